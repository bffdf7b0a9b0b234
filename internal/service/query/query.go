// Package query provides the core compile-and-execute service: semantic
// query in, SQL plus warehouse results out.
package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/compiler"
	"cpg-insights/internal/domain"
)

// Service validates, optimizes, compiles, and optionally executes semantic
// queries against the current catalog snapshot.
type Service struct {
	store         *catalog.Store
	exec          domain.Executor
	logger        *slog.Logger
	minConfidence float64
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMinConfidence overrides the confidence floor.
func WithMinConfidence(min float64) Option {
	return func(s *Service) { s.minConfidence = min }
}

// WithClock fixes the reference time used for symbolic windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a query service. exec may be nil for compile-only use
// (the CLI); Run then fails with an execution error.
func NewService(store *catalog.Store, exec domain.Executor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		exec:          exec,
		logger:        logger,
		minConfidence: domain.DefaultMinConfidence,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompileResult is the outcome of compiling one semantic query.
type CompileResult struct {
	QueryID        string                `json:"query_id"`
	SQL            string                `json:"sql"`
	Explanation    string                `json:"explanation"`
	Pattern        string                `json:"pattern"`
	Warnings       []string              `json:"warnings,omitempty"`
	CatalogVersion int64                 `json:"catalog_version"`
	Optimized      *domain.SemanticQuery `json:"optimized_query,omitempty"`
}

// RunResult is a compile result plus the executed rows.
type RunResult struct {
	CompileResult
	Result   *domain.QueryResult `json:"result"`
	Duration time.Duration       `json:"duration"`
}

// Validate runs the pre-compilation validator against the current catalog.
// An empty slice means the query is compilable.
func (s *Service) Validate(q domain.SemanticQuery) []string {
	return compiler.Validate(q, s.store.Current())
}

// Compile validates, pattern-optimizes, and compiles q. Scope filters are
// appended before validation so row-level restrictions go through the same
// escaping and checking as user filters.
func (s *Service) Compile(ctx context.Context, q domain.SemanticQuery, scope []domain.Filter) (*CompileResult, error) {
	if q.Confidence != nil && *q.Confidence < s.minConfidence {
		return nil, domain.ErrValidation(
			"query confidence %.2f is below %.2f; please rephrase the question", *q.Confidence, s.minConfidence)
	}

	if len(scope) > 0 {
		q = q.Clone()
		q.Filters = append(q.Filters, scope...)
	}

	snap := s.store.Current()
	if errs := compiler.Validate(q, snap); len(errs) > 0 {
		return nil, domain.ErrValidationList(errs)
	}

	optimized := compiler.Optimize(q, snap)
	c := compiler.New(snap, compiler.WithClock(s.now))
	ast, err := c.Compile(optimized)
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, finding := range ast.Validate() {
		if strings.HasPrefix(finding, "warning: ") {
			warnings = append(warnings, strings.TrimPrefix(finding, "warning: "))
		}
	}

	result := &CompileResult{
		QueryID:        uuid.NewString(),
		SQL:            ast.SQL(c.Dialect()),
		Explanation:    compiler.Explain(optimized),
		Pattern:        compiler.PatternName(optimized.Intent),
		Warnings:       warnings,
		CatalogVersion: snap.Version(),
		Optimized:      &optimized,
	}

	if s.logger != nil {
		s.logger.Debug("query compiled",
			"query_id", result.QueryID,
			"intent", optimized.Intent,
			"metric", optimized.MetricRequest.PrimaryMetric,
			"catalog_version", snap.Version())
	}
	return result, nil
}

// Run compiles q and executes it against the warehouse.
func (s *Service) Run(ctx context.Context, q domain.SemanticQuery, scope []domain.Filter) (*RunResult, error) {
	compiled, err := s.Compile(ctx, q, scope)
	if err != nil {
		return nil, err
	}
	if s.exec == nil {
		return nil, domain.ErrExecution(nil, "no warehouse executor configured")
	}

	start := time.Now()
	rows, err := s.exec.Execute(ctx, compiled.SQL)
	if err != nil {
		return nil, err
	}
	out := &RunResult{
		CompileResult: *compiled,
		Result:        rows,
		Duration:      time.Since(start),
	}

	if s.logger != nil {
		s.logger.Info("query executed",
			"query_id", compiled.QueryID,
			"rows", rows.RowCount,
			"duration", out.Duration)
	}
	return out, nil
}
