package compiler

import (
	"sort"
	"time"

	"cpg-insights/internal/domain"
	"cpg-insights/internal/sqlast"
)

// windowKind distinguishes the two predicate shapes the vocabulary needs:
// a trailing number of days, or a calendar-aligned half-open range.
type windowKind int

const (
	trailingDays windowKind = iota
	calendarRange
)

type windowSpec struct {
	kind windowKind
	days int
	// rangeFn computes [start, end) for calendar windows, anchored to now.
	rangeFn func(now time.Time) (time.Time, time.Time)
}

// windowSpecs is the single authoritative mapping from every symbolic time
// window token to a date predicate. The vocabulary is closed: the validator
// rejects anything not in this table, and the compiler treats a miss as an
// internal error.
var windowSpecs = map[string]windowSpec{
	"last_4_weeks":  {kind: trailingDays, days: 28},
	"last_6_weeks":  {kind: trailingDays, days: 42},
	"last_12_weeks": {kind: trailingDays, days: 84},

	"mtd":        {kind: calendarRange, rangeFn: monthToDate},
	"this_month": {kind: calendarRange, rangeFn: wholeMonth(0)},
	"last_month": {kind: calendarRange, rangeFn: wholeMonth(-1)},

	"qtd":          {kind: calendarRange, rangeFn: quarterToDate},
	"this_quarter": {kind: calendarRange, rangeFn: wholeQuarter(0)},
	"last_quarter": {kind: calendarRange, rangeFn: wholeQuarter(-1)},

	"ytd":       {kind: calendarRange, rangeFn: yearToDate},
	"this_year": {kind: calendarRange, rangeFn: wholeYear(0)},
	"last_year": {kind: calendarRange, rangeFn: wholeYear(-1)},
}

// ValidWindow reports whether the token is in the closed vocabulary.
func ValidWindow(window string) bool {
	_, ok := windowSpecs[window]
	return ok
}

// Windows lists the vocabulary sorted, for error messages and docs.
func Windows() []string {
	out := make([]string, 0, len(windowSpecs))
	for w := range windowSpecs {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// timeWindowPredicates renders the window as predicates on dateCol, anchored
// to now. Trailing windows produce a single lower bound; calendar windows a
// half-open [start, end) pair.
func timeWindowPredicates(window string, dateCol sqlast.ColumnRef, now time.Time) ([]sqlast.Expr, error) {
	spec, ok := windowSpecs[window]
	if !ok {
		return nil, domain.ErrCompile("unresolved time window %q", window)
	}

	day := truncateDay(now)
	switch spec.kind {
	case trailingDays:
		start := day.AddDate(0, 0, -spec.days)
		return []sqlast.Expr{
			sqlast.BinaryExpr{Left: dateCol, Operator: ">=", Right: sqlast.DateLiteral{Time: start}},
		}, nil
	default:
		start, end := spec.rangeFn(day)
		return []sqlast.Expr{
			sqlast.BinaryExpr{Left: dateCol, Operator: ">=", Right: sqlast.DateLiteral{Time: start}},
			sqlast.BinaryExpr{Left: dateCol, Operator: "<", Right: sqlast.DateLiteral{Time: end}},
		}, nil
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func quarterStart(t time.Time) time.Time {
	q := (int(t.Month()) - 1) / 3
	return time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

func monthToDate(now time.Time) (time.Time, time.Time) {
	return monthStart(now), now.AddDate(0, 0, 1)
}

func quarterToDate(now time.Time) (time.Time, time.Time) {
	return quarterStart(now), now.AddDate(0, 0, 1)
}

func yearToDate(now time.Time) (time.Time, time.Time) {
	return yearStart(now), now.AddDate(0, 0, 1)
}

func wholeMonth(offset int) func(time.Time) (time.Time, time.Time) {
	return func(now time.Time) (time.Time, time.Time) {
		start := monthStart(now).AddDate(0, offset, 0)
		return start, start.AddDate(0, 1, 0)
	}
}

func wholeQuarter(offset int) func(time.Time) (time.Time, time.Time) {
	return func(now time.Time) (time.Time, time.Time) {
		start := quarterStart(now).AddDate(0, offset*3, 0)
		return start, start.AddDate(0, 3, 0)
	}
}

func wholeYear(offset int) func(time.Time) (time.Time, time.Time) {
	return func(now time.Time) (time.Time, time.Time) {
		start := yearStart(now).AddDate(offset, 0, 0)
		return start, start.AddDate(1, 0, 0)
	}
}
