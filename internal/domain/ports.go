package domain

import "context"

// QueryResult is the shape every executor returns: column names plus rows in
// column order.
type QueryResult struct {
	Columns  []string
	Rows     [][]any
	RowCount int
}

// ColumnIndex returns the position of the named column, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Float returns the value at (row, column name) coerced to float64. Missing
// columns and non-numeric values read as 0.
func (r *QueryResult) Float(row int, column string) float64 {
	i := r.ColumnIndex(column)
	if i < 0 || row < 0 || row >= len(r.Rows) {
		return 0
	}
	switch v := r.Rows[row][i].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return 0
	}
}

// Executor runs a rendered SQL statement against the warehouse. The core
// calls it synchronously; cancellation and deadlines ride on ctx.
type Executor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}
