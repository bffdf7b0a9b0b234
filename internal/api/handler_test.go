package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
	"cpg-insights/internal/service/diagnostic"
	"cpg-insights/internal/service/query"
)

const testCatalog = `
metrics:
  secondary_sales_value:
    description: Net secondary sales value
    table: fact_secondary_sales
    aggregate: SUM
    argument: net_value
  invoice_count:
    table: fact_secondary_sales
    aggregate: COUNT
    argument: invoice_number
    distinct: true

dimensions:
  date:
    table: dim_date
    key: date_key
    alias: d
    attributes:
      date: date
      week: week
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

diagnostics:
  default_dimensions:
    - brand_name
`

type stubExecutor struct {
	result *domain.QueryResult
}

func (s *stubExecutor) Execute(_ context.Context, sql string) (*domain.QueryResult, error) {
	if s.result != nil {
		return s.result, nil
	}
	// Shapes good enough for both the trend and ranking legs.
	if strings.Contains(sql, "d.week AS week") {
		return &domain.QueryResult{
			Columns:  []string{"week", "secondary_sales_value"},
			Rows:     [][]any{{18, 100.0}, {19, 60.0}},
			RowCount: 2,
		}, nil
	}
	return &domain.QueryResult{
		Columns:  []string{"brand_name", "secondary_sales_value"},
		Rows:     [][]any{{"Alpha", 60.0}, {"Beta", 40.0}},
		RowCount: 2,
	}, nil
}

func testRouter(t *testing.T, exec domain.Executor) http.Handler {
	t.Helper()
	snap, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	store := catalog.NewStoreWith(snap)

	logger := slog.New(slog.DiscardHandler)
	clock := func() time.Time { return time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC) }

	queries := query.NewService(store, exec, logger, query.WithClock(clock))
	diagnostics := diagnostic.NewService(store, exec, 2, logger, diagnostic.WithClock(clock))

	h := NewHandler(queries, diagnostics, store, logger)
	return h.Routes([]string{"*"})
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func rankingRequest() domain.SemanticQuery {
	return domain.SemanticQuery{
		Intent:         domain.IntentRanking,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"brand_name"}},
		TimeContext:    domain.TimeContext{Window: "last_4_weeks"},
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	rec := getPath(t, router, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotZero(t, body["catalog_version"])
}

func TestCompileEndpoint(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	rec := postJSON(t, router, "/v1/queries/compile", rankingRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["query_id"])
	assert.Equal(t, "ranking", body["pattern"])
	sql, _ := body["sql"].(string)
	assert.Contains(t, sql, "SUM(net_value) AS secondary_sales_value")
	assert.Contains(t, sql, "LIMIT 10")
}

func TestCompileEndpointRejectsUnknownIntent(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	q := rankingRequest()
	q.Intent = "prediction"
	rec := postJSON(t, router, "/v1/queries/compile", q)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	require.NotNil(t, errObj)
	assert.Contains(t, errObj["message"], "unknown intent")
}

func TestCompileEndpointRejectsUnknownField(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	req := httptest.NewRequest(http.MethodPost, "/v1/queries/compile",
		strings.NewReader(`{"intent":"snapshot","metric_request":{"primary_metric":"secondary_sales_value"},"surprise":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompileEndpointValidationDetails(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	q := rankingRequest()
	q.MetricRequest.PrimaryMetric = "profit"
	rec := postJSON(t, router, "/v1/queries/compile", q)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	require.NotNil(t, errObj)
	details, _ := errObj["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "unknown metric: profit", details[0])
}

func TestRunEndpoint(t *testing.T) {
	exec := &stubExecutor{result: &domain.QueryResult{
		Columns:  []string{"brand_name", "secondary_sales_value"},
		Rows:     [][]any{{"Alpha", 1200.5}},
		RowCount: 1,
	}}
	router := testRouter(t, exec)
	rec := postJSON(t, router, "/v1/queries/run", rankingRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["row_count"])
	cols, _ := body["columns"].([]any)
	assert.Equal(t, []any{"brand_name", "secondary_sales_value"}, cols)
	_, hasDuration := body["duration_ms"]
	assert.True(t, hasDuration)
}

func TestDiagnoseEndpoint(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	q := domain.SemanticQuery{
		Intent:        domain.IntentDiagnostic,
		MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		TimeContext:   domain.TimeContext{Window: "last_4_weeks", Grain: domain.GrainWeek},
	}
	rec := postJSON(t, router, "/v1/queries/diagnose", q)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["sub_queries"])
	trend, _ := body["trend"].(map[string]any)
	require.NotNil(t, trend)
	assert.Equal(t, "decreasing", trend["direction"])
}

func TestCatalogEndpoints(t *testing.T) {
	router := testRouter(t, &stubExecutor{})

	rec := getPath(t, router, "/v1/catalog/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	metrics, _ := body["metrics"].([]any)
	require.Len(t, metrics, 2)
	first, _ := metrics[0].(map[string]any)
	assert.Equal(t, "invoice_count", first["name"])

	rec = getPath(t, router, "/v1/catalog/dimensions")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	dims, _ := body["dimensions"].([]any)
	require.Len(t, dims, 3)
	date, _ := dims[0].(map[string]any)
	assert.Equal(t, "date", date["name"])
	assert.Equal(t, []any{"date", "week"}, date["attributes"])
}

func TestCatalogReloadWithoutBackingFile(t *testing.T) {
	router := testRouter(t, &stubExecutor{})
	rec := postJSON(t, router, "/v1/catalog/reload", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
