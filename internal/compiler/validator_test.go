package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg-insights/internal/domain"
)

func validQuery() domain.SemanticQuery {
	return domain.SemanticQuery{
		Intent:         domain.IntentRanking,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"brand_name"}},
		TimeContext:    domain.TimeContext{Window: "last_4_weeks"},
	}
}

func TestValidateAcceptsWellFormedQuery(t *testing.T) {
	snap := testSnapshot(t)
	assert.Empty(t, Validate(validQuery(), snap))
}

func TestValidateUnknownMetricShortCircuits(t *testing.T) {
	snap := testSnapshot(t)
	q := validQuery()
	q.MetricRequest.PrimaryMetric = "profit"
	q.Dimensionality.GroupBy = []string{"no_such_dim"}
	q.TimeContext.Window = "whenever"

	errs := Validate(q, snap)
	require.Len(t, errs, 1)
	assert.Equal(t, "unknown metric: profit", errs[0])
}

func TestValidateDimensionCount(t *testing.T) {
	snap := testSnapshot(t)

	q := validQuery()
	q.Dimensionality.GroupBy = []string{"brand_name", "sku_name", "state_name", "month_name"}
	assert.Empty(t, Validate(q, snap))

	q.Dimensionality.GroupBy = append(q.Dimensionality.GroupBy, "week")
	errs := Validate(q, snap)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "too many dimensions")
}

func TestValidateUnknownDimension(t *testing.T) {
	snap := testSnapshot(t)
	q := validQuery()
	q.Dimensionality.GroupBy = []string{"warehouse_name"}

	errs := Validate(q, snap)
	require.Len(t, errs, 1)
	assert.Equal(t, "unknown dimension: warehouse_name", errs[0])
}

func TestValidateSynonymDimensionAccepted(t *testing.T) {
	snap := testSnapshot(t)
	q := validQuery()
	q.Dimensionality.GroupBy = []string{"brand"}
	assert.Empty(t, Validate(q, snap))
}

func TestValidateInvalidWindowListsVocabulary(t *testing.T) {
	snap := testSnapshot(t)
	q := validQuery()
	q.TimeContext.Window = "last_fortnight"

	errs := Validate(q, snap)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "invalid time window: last_fortnight")
	for _, w := range Windows() {
		assert.Contains(t, errs[0], w)
	}
}

func TestValidateFilters(t *testing.T) {
	snap := testSnapshot(t)
	tests := []struct {
		name   string
		filter domain.Filter
		want   string
	}{
		{
			"unknown dimension",
			domain.Filter{Dimension: "planet", Operator: domain.OpEqual, Values: []any{"Earth"}},
			"invalid filter dimension: planet",
		},
		{
			"no values",
			domain.Filter{Dimension: "state_name", Operator: domain.OpEqual},
			"filter on state_name has no values",
		},
		{
			"bad operator",
			domain.Filter{Dimension: "state_name", Operator: "LIKE", Values: []any{"D%"}},
			"invalid filter operator: LIKE",
		},
		{
			"between needs two values",
			domain.Filter{Dimension: "week", Operator: domain.OpBetween, Values: []any{10}},
			"BETWEEN requires exactly 2 values",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			q.Filters = []domain.Filter{tt.filter}
			errs := Validate(q, snap)
			require.NotEmpty(t, errs)
			assert.Contains(t, strings.Join(errs, "\n"), tt.want)
		})
	}
}

func TestValidateSorting(t *testing.T) {
	snap := testSnapshot(t)

	t.Run("sort target must be selected", func(t *testing.T) {
		q := validQuery()
		q.Sorting = &domain.Sorting{OrderBy: "sku_name", Direction: domain.SortDesc}
		errs := Validate(q, snap)
		require.Len(t, errs, 1)
		assert.Equal(t, "cannot sort by 'sku_name' - not in SELECT clause", errs[0])
	})

	t.Run("secondary metric is sortable", func(t *testing.T) {
		q := validQuery()
		q.MetricRequest.SecondaryMetrics = []string{"invoice_count"}
		q.Sorting = &domain.Sorting{OrderBy: "invoice_count", Direction: domain.SortDesc}
		assert.Empty(t, Validate(q, snap))
	})

	t.Run("bad direction", func(t *testing.T) {
		q := validQuery()
		q.Sorting = &domain.Sorting{OrderBy: "secondary_sales_value", Direction: "SIDEWAYS"}
		errs := Validate(q, snap)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "invalid sort direction")
	})

	t.Run("limit out of bounds", func(t *testing.T) {
		q := validQuery()
		q.Sorting = &domain.Sorting{OrderBy: "secondary_sales_value", Direction: domain.SortDesc, Limit: 20000}
		errs := Validate(q, snap)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "limit must be between")
	})
}
