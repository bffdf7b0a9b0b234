package query

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
)

const testCatalog = `
metrics:
  secondary_sales_value:
    table: fact_secondary_sales
    aggregate: SUM
    argument: net_value
    filters:
      - column: return_flag
        value: false
  sales_quantity:
    table: fact_secondary_sales
    aggregate: SUM
    argument: invoice_quantity

dimensions:
  date:
    table: dim_date
    key: date_key
    alias: d
    attributes:
      date: date
      month_name: month_name
  product:
    table: dim_product
    key: product_key
    alias: p
    attributes:
      brand_name: brand_name
  geography:
    table: dim_geography
    key: geography_key
    alias: g
    attributes:
      state_name: state_name
`

type fakeExecutor struct {
	lastSQL string
	result  *domain.QueryResult
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) (*domain.QueryResult, error) {
	f.lastSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testStore(t *testing.T) *catalog.Store {
	t.Helper()
	snap, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return catalog.NewStoreWith(snap)
}

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func confidence(v float64) *float64 { return &v }

func rankingQuery() domain.SemanticQuery {
	return domain.SemanticQuery{
		Intent:         domain.IntentRanking,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"brand_name"}},
		TimeContext:    domain.TimeContext{Window: "last_4_weeks"},
		Confidence:     confidence(0.9),
	}
}

func TestCompileProducesExecutableResult(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithClock(testClock()))

	res, err := svc.Compile(context.Background(), rankingQuery(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.QueryID)
	assert.Equal(t, "ranking", res.Pattern)
	assert.Contains(t, res.SQL, "SUM(net_value) AS secondary_sales_value")
	assert.Contains(t, res.SQL, "LIMIT 10")
	assert.Contains(t, res.Explanation, "Intent: ranking")
	assert.Greater(t, res.CatalogVersion, int64(0))
	require.NotNil(t, res.Optimized)
	require.NotNil(t, res.Optimized.Sorting)
	assert.Equal(t, 10, res.Optimized.Sorting.Limit)
}

func TestCompileRejectsLowConfidence(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithMinConfidence(0.7))

	q := rankingQuery()
	q.Confidence = confidence(0.3)
	_, err := svc.Compile(context.Background(), q, nil)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "rephrase")
}

func TestCompileRejectsExplicitZeroConfidence(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithClock(testClock()))

	q := rankingQuery()
	q.Confidence = confidence(0)
	_, err := svc.Compile(context.Background(), q, nil)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCompileUnsetConfidencePasses(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithClock(testClock()))

	q := rankingQuery()
	q.Confidence = nil
	_, err := svc.Compile(context.Background(), q, nil)
	require.NoError(t, err)
}

func TestCompileAppendsScopeFilters(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithClock(testClock()))

	q := rankingQuery()
	scope := []domain.Filter{{
		Dimension: "state_name",
		Operator:  domain.OpIn,
		Values:    []any{"Delhi", "Haryana"},
	}}
	res, err := svc.Compile(context.Background(), q, scope)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "g.state_name IN ('Delhi', 'Haryana')")

	// The caller's query is never mutated.
	assert.Empty(t, q.Filters)
}

func TestCompileAggregatesValidationErrors(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger())

	q := rankingQuery()
	q.TimeContext.Window = "whenever"
	q.Dimensionality.GroupBy = []string{"no_such_dim"}
	_, err := svc.Compile(context.Background(), q, nil)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Reasons, 2)
}

func TestValidateReportsProblems(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger())

	q := rankingQuery()
	assert.Empty(t, svc.Validate(q))

	q.MetricRequest.PrimaryMetric = "profit"
	assert.Equal(t, []string{"unknown metric: profit"}, svc.Validate(q))
}

func TestRunExecutesCompiledSQL(t *testing.T) {
	exec := &fakeExecutor{result: &domain.QueryResult{
		Columns:  []string{"brand_name", "secondary_sales_value"},
		Rows:     [][]any{{"Alpha", 1200.0}, {"Beta", 800.0}},
		RowCount: 2,
	}}
	svc := NewService(testStore(t), exec, discardLogger(), WithClock(testClock()))

	res, err := svc.Run(context.Background(), rankingQuery(), nil)
	require.NoError(t, err)

	assert.Equal(t, res.SQL, exec.lastSQL)
	assert.Equal(t, 2, res.Result.RowCount)
	assert.GreaterOrEqual(t, res.Duration, time.Duration(0))
}

func TestRunPropagatesExecutorError(t *testing.T) {
	cause := errors.New("connection reset")
	exec := &fakeExecutor{err: domain.ErrExecution(cause, "query failed")}
	svc := NewService(testStore(t), exec, discardLogger(), WithClock(testClock()))

	_, err := svc.Run(context.Background(), rankingQuery(), nil)
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, cause)
}

func TestRunWithoutExecutor(t *testing.T) {
	svc := NewService(testStore(t), nil, discardLogger(), WithClock(testClock()))

	_, err := svc.Run(context.Background(), rankingQuery(), nil)
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
}
