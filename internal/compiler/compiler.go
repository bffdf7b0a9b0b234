package compiler

import (
	"fmt"
	"strings"
	"time"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
	"cpg-insights/internal/sqlast"
)

// factAlias is the alias every compiled query gives its fact table. Dimension
// aliases come from the catalog.
const factAlias = "f"

// Compiler turns a semantic query into a SQL AST against one catalog
// snapshot. It holds no mutable state, so one compiler serves concurrent
// requests.
type Compiler struct {
	snap    *catalog.Snapshot
	dialect sqlast.Dialect
	now     func() time.Time
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithClock fixes the reference time used to resolve symbolic windows.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithDialect selects the rendered SQL dialect.
func WithDialect(d sqlast.Dialect) Option {
	return func(c *Compiler) { c.dialect = d }
}

// New builds a compiler over snap. The default clock is time.Now and the
// default dialect is DuckDB.
func New(snap *catalog.Snapshot, opts ...Option) *Compiler {
	c := &Compiler{snap: snap, dialect: sqlast.DuckDB, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect reports the dialect the compiler renders.
func (c *Compiler) Dialect() sqlast.Dialect { return c.dialect }

// Compile builds the SQL AST for q. The query is expected to have passed
// Validate and Optimize; violations surface as CompileError.
func (c *Compiler) Compile(q domain.SemanticQuery) (*sqlast.Query, error) {
	metric := c.snap.Metric(q.MetricRequest.PrimaryMetric)
	if metric == nil {
		return nil, domain.ErrCompile("unknown metric %q", q.MetricRequest.PrimaryMetric)
	}

	out := &sqlast.Query{
		From: sqlast.FromClause{Table: factTable(metric.Table), Alias: factAlias},
	}

	// Joins are keyed by dimension name so a dimension referenced by both a
	// grouping and a filter joins exactly once.
	joined := map[string]bool{}
	var addJoin func(ref domain.AttributeRef) error
	addJoin = func(ref domain.AttributeRef) error {
		if joined[ref.Dimension] {
			return nil
		}
		dim := c.snap.Dimension(ref.Dimension)
		if dim == nil {
			return domain.ErrCompile("attribute %q references unknown dimension %q", ref.Column, ref.Dimension)
		}
		joined[ref.Dimension] = true
		out.Joins = append(out.Joins, sqlast.JoinClause{
			Type:  sqlast.LeftJoin,
			Table: dim.Table,
			Alias: dim.Alias,
			On: sqlast.BinaryExpr{
				Left:     sqlast.ColumnRef{Table: factAlias, Column: dim.Key},
				Operator: "=",
				Right:    sqlast.ColumnRef{Table: dim.Alias, Column: dim.Key},
			},
		})
		return nil
	}

	// Dimension columns first, in request order, then the aggregates.
	var groupCols []sqlast.Expr
	for _, name := range q.Dimensionality.GroupBy {
		ref, err := c.resolveColumn(name)
		if err != nil {
			return nil, err
		}
		if err := addJoin(ref); err != nil {
			return nil, err
		}
		out.Select.Exprs = append(out.Select.Exprs, sqlast.ColumnRef{
			Table:  ref.Alias,
			Column: ref.Column,
			Alias:  name,
		})
		groupCols = append(groupCols, sqlast.ColumnRef{Table: ref.Alias, Column: ref.Column})
	}

	out.Select.Exprs = append(out.Select.Exprs, metricExpr(metric, q.MetricRequest.PrimaryMetric))
	for _, name := range q.MetricRequest.SecondaryMetrics {
		m := c.snap.Metric(name)
		if m == nil {
			return nil, domain.ErrCompile("unknown metric %q", name)
		}
		out.Select.Exprs = append(out.Select.Exprs, metricExpr(m, name))
	}

	var conditions []sqlast.Expr
	for _, mf := range metric.Filters {
		conditions = append(conditions, sqlast.Eq(
			sqlast.ColumnRef{Table: factAlias, Column: mf.Column}, mf.Value))
	}

	for _, f := range q.Filters {
		ref, err := c.resolveColumn(f.Dimension)
		if err != nil {
			return nil, err
		}
		if err := addJoin(ref); err != nil {
			return nil, err
		}
		expr, err := filterExpr(f, sqlast.ColumnRef{Table: ref.Alias, Column: ref.Column})
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, expr)
	}

	if q.TimeContext.Window != "" {
		dateRef, ok := c.snap.ResolveAttribute("date")
		if !ok {
			return nil, domain.ErrCompile("catalog defines no date attribute for time filtering")
		}
		if err := addJoin(dateRef); err != nil {
			return nil, err
		}
		preds, err := timeWindowPredicates(q.TimeContext.Window,
			sqlast.ColumnRef{Table: dateRef.Alias, Column: dateRef.Column}, c.now())
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, preds...)
	}

	if len(conditions) > 0 {
		out.Where = &sqlast.WhereClause{Conditions: conditions}
	}
	if len(groupCols) > 0 {
		out.GroupBy = &sqlast.GroupByClause{Columns: groupCols}
	}

	if s := q.Sorting; s != nil && s.OrderBy != "" {
		item, err := c.orderItem(q, *s)
		if err != nil {
			return nil, err
		}
		out.OrderBy = &sqlast.OrderByClause{Items: []sqlast.OrderItem{item}}
		if s.Limit > 0 {
			out.Limit = &sqlast.LimitClause{Limit: s.Limit}
		}
	}

	if errs := sqlast.CriticalErrors(out.Validate()); len(errs) > 0 {
		return nil, domain.ErrCompile("compiled query failed validation: %s", strings.Join(errs, "; "))
	}
	return out, nil
}

// CompileSQL compiles q and renders it, returning the SQL text plus a
// human-readable explanation of what the query computes.
func (c *Compiler) CompileSQL(q domain.SemanticQuery) (string, string, error) {
	ast, err := c.Compile(q)
	if err != nil {
		return "", "", err
	}
	return ast.SQL(c.dialect), Explain(q), nil
}

// resolveColumn maps a grouping or filter name to a concrete alias-qualified
// column. Attribute names resolve directly; a bare dimension name falls back
// to its same-named attribute, then to its join key.
func (c *Compiler) resolveColumn(name string) (domain.AttributeRef, error) {
	if ref, ok := c.snap.ResolveAttribute(name); ok {
		return ref, nil
	}
	if dim := c.snap.Dimension(name); dim != nil {
		column := dim.Key
		if col, ok := dim.Attributes[name]; ok {
			column = col
		}
		return domain.AttributeRef{
			Dimension: dim.Name, Table: dim.Table, Alias: dim.Alias, Column: column,
		}, nil
	}
	return domain.AttributeRef{}, domain.ErrCompile("unknown dimension %q", name)
}

func (c *Compiler) orderItem(q domain.SemanticQuery, s domain.Sorting) (sqlast.OrderItem, error) {
	direction := string(s.Direction)
	if direction == "" {
		direction = string(domain.SortDesc)
	}

	if s.OrderBy == q.MetricRequest.PrimaryMetric || containsString(q.MetricRequest.SecondaryMetrics, s.OrderBy) {
		// Metrics are ordered by their output alias.
		return sqlast.OrderItem{Expr: sqlast.Col(s.OrderBy), Direction: direction}, nil
	}
	if containsString(q.Dimensionality.GroupBy, s.OrderBy) {
		ref, err := c.resolveColumn(s.OrderBy)
		if err != nil {
			return sqlast.OrderItem{}, err
		}
		return sqlast.OrderItem{
			Expr:      sqlast.ColumnRef{Table: ref.Alias, Column: ref.Column},
			Direction: direction,
		}, nil
	}
	return sqlast.OrderItem{}, domain.ErrCompile("cannot sort by %q: not part of the compiled SELECT", s.OrderBy)
}

func metricExpr(m *domain.Metric, alias string) sqlast.AggregateExpr {
	return sqlast.AggregateExpr{
		Function: m.Aggregate,
		Operand:  sqlast.Col(m.Argument),
		Distinct: m.Distinct,
		Alias:    alias,
	}
}

func filterExpr(f domain.Filter, col sqlast.ColumnRef) (sqlast.Expr, error) {
	if len(f.Values) == 0 {
		return nil, domain.ErrCompile("filter on %q has no values", f.Dimension)
	}
	switch f.Operator {
	case domain.OpEqual, "":
		return sqlast.Eq(col, f.Values[0]), nil
	case domain.OpIn:
		return sqlast.BinaryExpr{Left: col, Operator: "IN", Right: sqlast.Values(f.Values...)}, nil
	case domain.OpNotIn:
		return sqlast.BinaryExpr{Left: col, Operator: "NOT IN", Right: sqlast.Values(f.Values...)}, nil
	case domain.OpBetween:
		if len(f.Values) != 2 {
			return nil, domain.ErrCompile("filter on %q: BETWEEN requires exactly 2 values", f.Dimension)
		}
		return sqlast.BetweenExpr{
			Operand: col,
			Low:     sqlast.Literal{Value: f.Values[0]},
			High:    sqlast.Literal{Value: f.Values[1]},
		}, nil
	case domain.OpGreater, domain.OpLess, domain.OpGreaterEqual, domain.OpLessEqual:
		return sqlast.BinaryExpr{Left: col, Operator: string(f.Operator), Right: sqlast.Literal{Value: f.Values[0]}}, nil
	default:
		return nil, domain.ErrCompile("unsupported filter operator %q", f.Operator)
	}
}

// Explain summarizes what a compiled query computes, for API responses and
// the CLI.
func Explain(q domain.SemanticQuery) string {
	metrics := append([]string{q.MetricRequest.PrimaryMetric}, q.MetricRequest.SecondaryMetrics...)
	dims := "none"
	if len(q.Dimensionality.GroupBy) > 0 {
		dims = strings.Join(q.Dimensionality.GroupBy, ", ")
	}
	window := q.TimeContext.Window
	if window == "" {
		window = "all time"
	}
	return fmt.Sprintf("Intent: %s | Metrics: %s | Dimensions: %s | Time: %s | Filters: %d",
		q.Intent, strings.Join(metrics, ", "), dims, window, len(q.Filters))
}

// factTable normalizes a metric's table definition to the bare fact table
// name, tolerating legacy definitions that embedded join text.
func factTable(table string) string {
	fields := strings.Fields(table)
	if len(fields) == 0 {
		return table
	}
	return fields[0]
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
