package api

import (
	"sort"

	"cpg-insights/internal/domain"
	"cpg-insights/internal/service/query"
)

// metricResponse is the wire shape of a catalog metric.
type metricResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Table       string `json:"table"`
	Aggregate   string `json:"aggregate"`
	Argument    string `json:"argument"`
	Distinct    bool   `json:"distinct,omitempty"`
	Format      string `json:"format,omitempty"`
}

func metricToAPI(m *domain.Metric) metricResponse {
	return metricResponse{
		Name:        m.Name,
		Description: m.Description,
		Table:       m.Table,
		Aggregate:   m.Aggregate,
		Argument:    m.Argument,
		Distinct:    m.Distinct,
		Format:      m.Format,
	}
}

// dimensionResponse is the wire shape of a catalog dimension.
type dimensionResponse struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Key        string   `json:"key"`
	Attributes []string `json:"attributes"`
}

func dimensionToAPI(d *domain.Dimension) dimensionResponse {
	attrs := make([]string, 0, len(d.Attributes))
	for name := range d.Attributes {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)
	return dimensionResponse{
		Name:       d.Name,
		Table:      d.Table,
		Key:        d.Key,
		Attributes: attrs,
	}
}

// runResponseBody flattens a run result for the wire, with the duration in
// milliseconds instead of Go's duration encoding.
type runResponseBody struct {
	query.CompileResult
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	DurationMS int64    `json:"duration_ms"`
}

func runResponse(r *query.RunResult) runResponseBody {
	return runResponseBody{
		CompileResult: r.CompileResult,
		Columns:       r.Result.Columns,
		Rows:          r.Result.Rows,
		RowCount:      r.Result.RowCount,
		DurationMS:    r.Duration.Milliseconds(),
	}
}
