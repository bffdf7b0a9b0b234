// Package sqlast provides a typed SQL expression and clause tree that
// renders to text on demand. Queries are built from nodes, never from
// string concatenation: every user-supplied value enters the tree as a
// Literal, whose rendering is the single escaping path.
package sqlast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the SQL flavor rendered by the tree.
type Dialect string

const (
	// DuckDB is the default target warehouse dialect. The rendering rules
	// below are also valid Postgres.
	DuckDB Dialect = "duckdb"
)

// Node is the contract every AST node satisfies: pure rendering plus a
// structural self-check returning human-readable problems.
type Node interface {
	SQL(d Dialect) string
	Validate() []string
}

// Expr marks nodes usable in expression position.
type Expr interface {
	Node
	exprNode()
}

// ColumnRef references a column, optionally table-qualified and aliased.
type ColumnRef struct {
	Table  string
	Column string
	Alias  string
}

func (c ColumnRef) exprNode() {}

func (c ColumnRef) SQL(Dialect) string {
	var b strings.Builder
	if c.Table != "" {
		b.WriteString(c.Table)
		b.WriteByte('.')
	}
	b.WriteString(c.Column)
	if c.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(c.Alias)
	}
	return b.String()
}

func (c ColumnRef) Validate() []string {
	if c.Column == "" {
		return []string{"column reference has empty column name"}
	}
	return nil
}

// Literal is a typed constant. Rendering it is the only way a runtime value
// may reach SQL text: strings are single-quoted with embedded quotes
// doubled, nil renders NULL, booleans render TRUE/FALSE.
type Literal struct {
	Value any
}

func (l Literal) exprNode() {}

func (l Literal) SQL(Dialect) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case float64:
		if !isFinite(v) {
			return "NULL"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		if !isFinite(float64(v)) {
			return "NULL"
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		// Unknown types go through the string path so escaping still holds.
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	}
}

func (l Literal) Validate() []string {
	switch v := l.Value.(type) {
	case float64:
		if !isFinite(v) {
			return []string{"literal is not a finite number"}
		}
	case float32:
		if !isFinite(float64(v)) {
			return []string{"literal is not a finite number"}
		}
	}
	return nil
}

// isFinite reports whether f has a SQL literal form.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DateLiteral renders an ANSI DATE literal from a concrete day.
type DateLiteral struct {
	Time time.Time
}

func (d DateLiteral) exprNode() {}

func (d DateLiteral) SQL(Dialect) string {
	return "DATE '" + d.Time.Format("2006-01-02") + "'"
}

func (d DateLiteral) Validate() []string {
	if d.Time.IsZero() {
		return []string{"date literal has zero time"}
	}
	return nil
}

// ValueList is a parenthesized tuple of literals, the right-hand side of an
// IN or NOT IN comparison.
type ValueList []Literal

func (v ValueList) exprNode() {}

func (v ValueList) SQL(d Dialect) string {
	parts := make([]string, len(v))
	for i, l := range v {
		parts[i] = l.SQL(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (v ValueList) Validate() []string {
	if len(v) == 0 {
		return []string{"value list is empty"}
	}
	return nil
}

// Values wraps raw values into a ValueList.
func Values(vals ...any) ValueList {
	out := make(ValueList, len(vals))
	for i, v := range vals {
		out[i] = Literal{Value: v}
	}
	return out
}

// AggregateExpr is an aggregate function call, e.g. SUM(f.net_value).
type AggregateExpr struct {
	Function string
	Operand  Expr
	Distinct bool
	Alias    string
}

func (a AggregateExpr) exprNode() {}

func (a AggregateExpr) SQL(d Dialect) string {
	var b strings.Builder
	b.WriteString(a.Function)
	b.WriteByte('(')
	if a.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(a.Operand.SQL(d))
	b.WriteByte(')')
	if a.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(a.Alias)
	}
	return b.String()
}

func (a AggregateExpr) Validate() []string {
	var errs []string
	if a.Function == "" {
		errs = append(errs, "aggregate has empty function name")
	}
	if a.Operand == nil {
		errs = append(errs, "aggregate has no operand")
	} else {
		errs = append(errs, a.Operand.Validate()...)
	}
	return errs
}

// BinaryExpr renders "left OP right". With a ValueList right-hand side it
// forms an IN/NOT IN tuple comparison.
type BinaryExpr struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (b BinaryExpr) exprNode() {}

func (b BinaryExpr) SQL(d Dialect) string {
	return b.Left.SQL(d) + " " + b.Operator + " " + b.Right.SQL(d)
}

func (b BinaryExpr) Validate() []string {
	var errs []string
	if b.Left == nil || b.Right == nil {
		return []string{"binary expression missing operand"}
	}
	if b.Operator == "" {
		errs = append(errs, "binary expression has empty operator")
	}
	errs = append(errs, b.Left.Validate()...)
	errs = append(errs, b.Right.Validate()...)
	return errs
}

// BetweenExpr renders "operand BETWEEN low AND high".
type BetweenExpr struct {
	Operand Expr
	Low     Expr
	High    Expr
}

func (b BetweenExpr) exprNode() {}

func (b BetweenExpr) SQL(d Dialect) string {
	return b.Operand.SQL(d) + " BETWEEN " + b.Low.SQL(d) + " AND " + b.High.SQL(d)
}

func (b BetweenExpr) Validate() []string {
	if b.Operand == nil || b.Low == nil || b.High == nil {
		return []string{"between expression missing operand"}
	}
	var errs []string
	errs = append(errs, b.Operand.Validate()...)
	errs = append(errs, b.Low.Validate()...)
	errs = append(errs, b.High.Validate()...)
	return errs
}

// When is one CASE branch.
type When struct {
	Condition Expr
	Result    Expr
}

// CaseExpr renders CASE WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	Whens []When
	Else  Expr
	Alias string
}

func (c CaseExpr) exprNode() {}

func (c CaseExpr) SQL(d Dialect) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		b.WriteString(w.Condition.SQL(d))
		b.WriteString(" THEN ")
		b.WriteString(w.Result.SQL(d))
	}
	if c.Else != nil {
		b.WriteString(" ELSE ")
		b.WriteString(c.Else.SQL(d))
	}
	b.WriteString(" END")
	if c.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(c.Alias)
	}
	return b.String()
}

func (c CaseExpr) Validate() []string {
	var errs []string
	if len(c.Whens) == 0 {
		errs = append(errs, "case expression has no WHEN branches")
	}
	for _, w := range c.Whens {
		if w.Condition == nil || w.Result == nil {
			errs = append(errs, "case branch missing condition or result")
			continue
		}
		errs = append(errs, w.Condition.Validate()...)
		errs = append(errs, w.Result.Validate()...)
	}
	if c.Else != nil {
		errs = append(errs, c.Else.Validate()...)
	}
	return errs
}

// Eq builds "column = literal".
func Eq(col ColumnRef, value any) BinaryExpr {
	return BinaryExpr{Left: col, Operator: "=", Right: Literal{Value: value}}
}

// In builds "column IN (v1, v2, ...)".
func In(col ColumnRef, values ...any) BinaryExpr {
	return BinaryExpr{Left: col, Operator: "IN", Right: Values(values...)}
}

// Col builds an unqualified column reference.
func Col(name string) ColumnRef { return ColumnRef{Column: name} }
