// Package compiler turns validated semantic queries into SQL ASTs. It owns
// the pre-compilation validator, the intent pattern table, the time-window
// vocabulary, and the compiler itself.
package compiler

import (
	"fmt"
	"strings"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
)

// MaxGroupByDimensions caps GROUP BY cardinality to prevent combinatorial
// blow-up of result sets.
const MaxGroupByDimensions = 4

// Sort limit bounds accepted by the validator.
const (
	MinSortLimit = 1
	MaxSortLimit = 10000
)

// Validate checks a semantic query against the catalog and returns a list
// of human-readable problems; empty means valid. It short-circuits only on
// an unknown primary metric, since nothing else is checkable without one.
func Validate(q domain.SemanticQuery, snap *catalog.Snapshot) []string {
	var errs []string

	metric := snap.Metric(q.MetricRequest.PrimaryMetric)
	if metric == nil {
		return []string{fmt.Sprintf("unknown metric: %s", q.MetricRequest.PrimaryMetric)}
	}

	for _, name := range q.MetricRequest.SecondaryMetrics {
		if snap.Metric(name) == nil {
			errs = append(errs, fmt.Sprintf("unknown secondary metric: %s", name))
		}
	}

	for _, dim := range q.Dimensionality.GroupBy {
		if !dimensionResolves(dim, snap) {
			errs = append(errs, fmt.Sprintf("unknown dimension: %s", dim))
		}
	}

	if len(q.Dimensionality.GroupBy) > MaxGroupByDimensions {
		errs = append(errs, fmt.Sprintf("too many dimensions (max %d to prevent performance issues)", MaxGroupByDimensions))
	}

	if !ValidWindow(q.TimeContext.Window) {
		errs = append(errs, fmt.Sprintf("invalid time window: %s. Valid: %s",
			q.TimeContext.Window, strings.Join(Windows(), ", ")))
	}

	for _, f := range q.Filters {
		if _, ok := snap.ResolveAttribute(f.Dimension); !ok {
			errs = append(errs, fmt.Sprintf("invalid filter dimension: %s", f.Dimension))
		}
		if len(f.Values) == 0 {
			errs = append(errs, fmt.Sprintf("filter on %s has no values", f.Dimension))
		}
		if !f.Operator.Valid() {
			errs = append(errs, fmt.Sprintf("invalid filter operator: %s", f.Operator))
		}
		if f.Operator == domain.OpBetween && len(f.Values) != 2 {
			errs = append(errs, fmt.Sprintf("filter on %s: BETWEEN requires exactly 2 values", f.Dimension))
		}
	}

	if s := q.Sorting; s != nil {
		if !sortTargetInScope(s.OrderBy, q) {
			errs = append(errs, fmt.Sprintf("cannot sort by '%s' - not in SELECT clause", s.OrderBy))
		}
		if s.Direction != "" && s.Direction != domain.SortAsc && s.Direction != domain.SortDesc {
			errs = append(errs, fmt.Sprintf("invalid sort direction: %s", s.Direction))
		}
		if s.Limit != 0 && (s.Limit < MinSortLimit || s.Limit > MaxSortLimit) {
			errs = append(errs, fmt.Sprintf("limit must be between %d and %d", MinSortLimit, MaxSortLimit))
		}
	}

	return errs
}

func dimensionResolves(name string, snap *catalog.Snapshot) bool {
	if snap.Dimension(name) != nil {
		return true
	}
	_, ok := snap.ResolveAttribute(name)
	return ok
}

// sortTargetInScope reports whether a sort field is something the compiled
// SELECT will actually contain: the primary metric, a secondary metric, or
// a grouped dimension. Anything else is ambiguous and rejected rather than
// silently dropped.
func sortTargetInScope(field string, q domain.SemanticQuery) bool {
	if field == q.MetricRequest.PrimaryMetric {
		return true
	}
	for _, m := range q.MetricRequest.SecondaryMetrics {
		if field == m {
			return true
		}
	}
	for _, d := range q.Dimensionality.GroupBy {
		if field == d {
			return true
		}
	}
	return false
}
