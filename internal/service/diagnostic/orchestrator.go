// Package diagnostic implements the root-cause-analysis workflow: a "why"
// question fans out into one trend query plus one contribution ranking per
// analysis dimension, all derived from the same base semantic query, and the
// combined results are synthesized into a narrative report.
package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/compiler"
	"cpg-insights/internal/domain"
)

// DefaultPoolSize bounds concurrent sub-query execution.
const DefaultPoolSize = 4

// Service orchestrates diagnostic query plans. Sub-queries run concurrently
// on a bounded pool; one failure cancels the rest and fails the whole
// diagnosis, since a partial root-cause report would mislead.
type Service struct {
	store         *catalog.Store
	exec          domain.Executor
	logger        *slog.Logger
	pool          pond.ResultPool[*subResult]
	minConfidence float64
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock fixes the reference time used for symbolic windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMinConfidence overrides the confidence floor.
func WithMinConfidence(min float64) Option {
	return func(s *Service) { s.minConfidence = min }
}

// NewService creates a diagnostic service executing sub-queries on a pool of
// poolSize workers.
func NewService(store *catalog.Store, exec domain.Executor, poolSize int, logger *slog.Logger, opts ...Option) *Service {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	s := &Service{
		store:         store,
		exec:          exec,
		logger:        logger,
		pool:          pond.NewResultPool[*subResult](poolSize),
		minConfidence: domain.DefaultMinConfidence,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// subResult is one executed sub-query. Dimension is empty for the trend leg.
type subResult struct {
	dimension string
	timeDim   string
	result    *domain.QueryResult
}

// Report is the synthesized outcome of a diagnostic run.
type Report struct {
	QueryID         string                `json:"query_id"`
	Question        string                `json:"question,omitempty"`
	Metric          string                `json:"metric"`
	Window          string                `json:"window"`
	Trend           TrendAnalysis         `json:"trend"`
	Breakdowns      []DimensionBreakdown  `json:"breakdowns"`
	Insights        []string              `json:"insights"`
	Recommendations []string              `json:"recommendations"`
	SubQueries      int                   `json:"sub_queries"`
	Duration        time.Duration         `json:"duration"`
	Optimized       *domain.SemanticQuery `json:"optimized_query,omitempty"`
}

// Diagnose runs the full workflow for q. Scope filters are appended to every
// sub-query. q must carry the diagnostic intent.
func (s *Service) Diagnose(ctx context.Context, q domain.SemanticQuery, scope []domain.Filter) (*Report, error) {
	if q.Confidence != nil && *q.Confidence < s.minConfidence {
		return nil, domain.ErrValidation(
			"query confidence %.2f is below %.2f; please rephrase the question", *q.Confidence, s.minConfidence)
	}
	if q.Intent != domain.IntentDiagnostic {
		return nil, domain.ErrValidation("diagnosis requires the diagnostic intent, got %q", q.Intent)
	}
	if len(scope) > 0 {
		q = q.Clone()
		q.Filters = append(q.Filters, scope...)
	}

	snap := s.store.Current()
	if errs := compiler.Validate(q, snap); len(errs) > 0 {
		return nil, domain.ErrValidationList(errs)
	}

	base := compiler.Optimize(q, snap)
	plan, err := s.buildPlan(base, snap)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	group := s.pool.NewGroupContext(ctx)
	for _, sub := range plan {
		sub := sub
		group.SubmitErr(func() (*subResult, error) {
			rows, err := s.exec.Execute(ctx, sub.sql)
			if err != nil {
				return nil, fmt.Errorf("sub-query %q: %w", sub.name, err)
			}
			return &subResult{dimension: sub.dimension, timeDim: sub.timeDim, result: rows}, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, domain.ErrExecution(err, "diagnostic plan failed")
	}

	report := synthesize(base, results, *base.Diagnostics)
	report.QueryID = uuid.NewString()
	report.Question = base.OriginalQuestion
	report.SubQueries = len(plan)
	report.Duration = time.Since(start)
	report.Optimized = &base

	if s.logger != nil {
		s.logger.Info("diagnosis complete",
			"query_id", report.QueryID,
			"metric", report.Metric,
			"direction", report.Trend.Direction,
			"sub_queries", report.SubQueries,
			"duration", report.Duration)
	}
	return report, nil
}

// subPlan is one compiled sub-query awaiting execution.
type subPlan struct {
	name      string
	dimension string
	timeDim   string
	sql       string
}

// buildPlan derives and compiles the trend leg plus one contribution ranking
// per analysis dimension. All legs share the base query's metric, window,
// and filters.
func (s *Service) buildPlan(base domain.SemanticQuery, snap *catalog.Snapshot) ([]subPlan, error) {
	c := compiler.New(snap, compiler.WithClock(s.now))

	trend := base.Clone()
	trend.Intent = domain.IntentTrend
	trend.Diagnostics = nil
	trend.Sorting = nil
	trend.Dimensionality.GroupBy = nil
	trend = compiler.Optimize(trend, snap)
	trendAST, err := c.Compile(trend)
	if err != nil {
		return nil, err
	}
	plan := []subPlan{{
		name:    "trend",
		timeDim: trend.Dimensionality.GroupBy[0],
		sql:     trendAST.SQL(c.Dialect()),
	}}

	for _, dim := range base.Diagnostics.Dimensions {
		ranking := base.Clone()
		ranking.Intent = domain.IntentRanking
		ranking.Diagnostics = nil
		ranking.Sorting = nil
		ranking.Dimensionality.GroupBy = []string{dim}
		ranking = compiler.Optimize(ranking, snap)
		ast, err := c.Compile(ranking)
		if err != nil {
			return nil, err
		}
		plan = append(plan, subPlan{
			name:      "contribution by " + dim,
			dimension: dim,
			sql:       ast.SQL(c.Dialect()),
		})
	}
	return plan, nil
}
