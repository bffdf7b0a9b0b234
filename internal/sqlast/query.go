package sqlast

import (
	"strconv"
	"strings"
)

// SelectClause holds the projected expressions: dimension columns first,
// then metric aggregates.
type SelectClause struct {
	Exprs    []Expr
	Distinct bool
}

func (s SelectClause) SQL(d Dialect) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, e := range s.Exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.SQL(d))
	}
	return b.String()
}

func (s SelectClause) Validate() []string {
	var errs []string
	if len(s.Exprs) == 0 {
		errs = append(errs, "SELECT clause must have at least one expression")
	}
	for _, e := range s.Exprs {
		errs = append(errs, e.Validate()...)
	}
	return errs
}

// FromClause names the fact table and its alias.
type FromClause struct {
	Table string
	Alias string
}

func (f FromClause) SQL(Dialect) string {
	if f.Alias != "" {
		return "FROM " + f.Table + " " + f.Alias
	}
	return "FROM " + f.Table
}

func (f FromClause) Validate() []string {
	if f.Table == "" {
		return []string{"FROM clause has empty table name"}
	}
	return nil
}

// JoinType enumerates supported join kinds.
type JoinType string

const (
	LeftJoin  JoinType = "LEFT"
	InnerJoin JoinType = "INNER"
)

// JoinClause joins one dimension table to the fact table.
type JoinClause struct {
	Type  JoinType
	Table string
	Alias string
	On    Expr
}

func (j JoinClause) SQL(d Dialect) string {
	var b strings.Builder
	b.WriteString(string(j.Type))
	b.WriteString(" JOIN ")
	b.WriteString(j.Table)
	if j.Alias != "" {
		b.WriteByte(' ')
		b.WriteString(j.Alias)
	}
	if j.On != nil {
		b.WriteString(" ON ")
		b.WriteString(j.On.SQL(d))
	}
	return b.String()
}

func (j JoinClause) Validate() []string {
	var errs []string
	if j.Table == "" {
		errs = append(errs, "JOIN clause has empty table name")
	}
	if j.On == nil {
		errs = append(errs, "JOIN clause on "+j.Table+" has no ON condition")
	} else {
		errs = append(errs, j.On.Validate()...)
	}
	return errs
}

// WhereClause is a conjunction of predicates.
type WhereClause struct {
	Conditions []Expr
}

func (w WhereClause) SQL(d Dialect) string {
	parts := make([]string, len(w.Conditions))
	for i, c := range w.Conditions {
		parts[i] = c.SQL(d)
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

func (w WhereClause) Validate() []string {
	var errs []string
	if len(w.Conditions) == 0 {
		errs = append(errs, "WHERE clause has no conditions")
	}
	for _, c := range w.Conditions {
		errs = append(errs, c.Validate()...)
	}
	return errs
}

// GroupByClause lists grouping columns in SELECT order.
type GroupByClause struct {
	Columns []Expr
}

func (g GroupByClause) SQL(d Dialect) string {
	parts := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		parts[i] = c.SQL(d)
	}
	return "GROUP BY " + strings.Join(parts, ", ")
}

func (g GroupByClause) Validate() []string {
	var errs []string
	if len(g.Columns) == 0 {
		errs = append(errs, "GROUP BY clause has no columns")
	}
	for _, c := range g.Columns {
		errs = append(errs, c.Validate()...)
	}
	return errs
}

// OrderItem is one sort key.
type OrderItem struct {
	Expr      Expr
	Direction string // ASC or DESC
}

// OrderByClause lists sort keys.
type OrderByClause struct {
	Items []OrderItem
}

func (o OrderByClause) SQL(d Dialect) string {
	parts := make([]string, len(o.Items))
	for i, it := range o.Items {
		parts[i] = it.Expr.SQL(d) + " " + it.Direction
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func (o OrderByClause) Validate() []string {
	var errs []string
	if len(o.Items) == 0 {
		errs = append(errs, "ORDER BY clause has no items")
	}
	for _, it := range o.Items {
		if it.Direction != "ASC" && it.Direction != "DESC" {
			errs = append(errs, "ORDER BY direction must be ASC or DESC, got "+it.Direction)
		}
		if it.Expr == nil {
			errs = append(errs, "ORDER BY item has no expression")
		} else {
			errs = append(errs, it.Expr.Validate()...)
		}
	}
	return errs
}

// LimitClause caps the result set.
type LimitClause struct {
	Limit  int
	Offset int
}

func (l LimitClause) SQL(Dialect) string {
	s := "LIMIT " + strconv.Itoa(l.Limit)
	if l.Offset > 0 {
		s += " OFFSET " + strconv.Itoa(l.Offset)
	}
	return s
}

func (l LimitClause) Validate() []string {
	if l.Limit < 1 {
		return []string{"LIMIT must be >= 1"}
	}
	return nil
}

// WarningPrefix marks advisory findings from Query.Validate. Callers treat
// entries without this prefix as hard failures.
const WarningPrefix = "warning: "

// dangerous keywords scanned for as defense in depth. Advisory only: literal
// values may legitimately contain these substrings; the safety guarantee is
// the Literal escaping path, not this scan.
var dangerousPatterns = []string{
	"DROP ", "DELETE ", "TRUNCATE ", "ALTER ", "CREATE ",
	"GRANT ", "REVOKE ", "--", "/*", "*/",
}

// Query is the root node: a full SELECT statement assembled from clauses in
// fixed SQL order, absent optional clauses skipped. Built fresh per compile,
// never mutated after construction.
type Query struct {
	Select  SelectClause
	From    FromClause
	Joins   []JoinClause
	Where   *WhereClause
	GroupBy *GroupByClause
	Having  *WhereClause
	OrderBy *OrderByClause
	Limit   *LimitClause
}

func (q *Query) SQL(d Dialect) string {
	parts := []string{q.Select.SQL(d), q.From.SQL(d)}
	for _, j := range q.Joins {
		parts = append(parts, j.SQL(d))
	}
	if q.Where != nil {
		parts = append(parts, q.Where.SQL(d))
	}
	if q.GroupBy != nil {
		parts = append(parts, q.GroupBy.SQL(d))
	}
	if q.Having != nil {
		h := q.Having.SQL(d)
		parts = append(parts, "HAVING "+strings.TrimPrefix(h, "WHERE "))
	}
	if q.OrderBy != nil {
		parts = append(parts, q.OrderBy.SQL(d))
	}
	if q.Limit != nil {
		parts = append(parts, q.Limit.SQL(d))
	}
	return strings.Join(parts, "\n")
}

// Validate runs structural checks over the whole tree plus the advisory
// keyword scan. Construction never fails; callers must treat any non-warning
// entry as a hard error before executing the rendered SQL.
func (q *Query) Validate() []string {
	var errs []string
	errs = append(errs, q.Select.Validate()...)
	errs = append(errs, q.From.Validate()...)
	for _, j := range q.Joins {
		errs = append(errs, j.Validate()...)
	}
	if q.Where != nil {
		errs = append(errs, q.Where.Validate()...)
	}
	if q.GroupBy != nil {
		errs = append(errs, q.GroupBy.Validate()...)
	}
	if q.Having != nil {
		errs = append(errs, q.Having.Validate()...)
	}
	if q.OrderBy != nil {
		errs = append(errs, q.OrderBy.Validate()...)
	}
	if q.Limit != nil {
		errs = append(errs, q.Limit.Validate()...)
	}

	upper := strings.ToUpper(q.SQL(DuckDB))
	for _, pat := range dangerousPatterns {
		if strings.Contains(upper, pat) {
			errs = append(errs, WarningPrefix+"rendered SQL contains "+strings.TrimSpace(pat))
		}
	}
	return errs
}

// CriticalErrors filters out advisory warnings from a Validate result.
func CriticalErrors(errs []string) []string {
	var out []string
	for _, e := range errs {
		if !strings.HasPrefix(e, WarningPrefix) {
			out = append(out, e)
		}
	}
	return out
}
