package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg-insights/internal/domain"
)

func TestOptimizeDoesNotModifyInput(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:        domain.IntentTrend,
		MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		TimeContext:   domain.TimeContext{Window: "last_12_weeks", Grain: domain.GrainWeek},
	}

	_ = Optimize(q, snap)

	assert.Empty(t, q.Dimensionality.GroupBy)
	assert.Nil(t, q.Sorting)
}

func TestOptimizeIsIdempotent(t *testing.T) {
	snap := testSnapshot(t)
	queries := []domain.SemanticQuery{
		{
			Intent:        domain.IntentTrend,
			MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
			TimeContext:   domain.TimeContext{Window: "ytd", Grain: domain.GrainMonth},
		},
		{
			Intent:         domain.IntentRanking,
			MetricRequest:  domain.MetricRequest{PrimaryMetric: "sales_quantity"},
			Dimensionality: domain.Dimensionality{GroupBy: []string{"state_name"}},
			TimeContext:    domain.TimeContext{Window: "this_quarter"},
		},
		{
			Intent:        domain.IntentComparison,
			MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
			TimeContext:   domain.TimeContext{Window: "this_month"},
		},
		{
			Intent:        domain.IntentDiagnostic,
			MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
			TimeContext:   domain.TimeContext{Window: "last_4_weeks"},
		},
	}
	for _, q := range queries {
		t.Run(string(q.Intent), func(t *testing.T) {
			once := Optimize(q, snap)
			twice := Optimize(once, snap)
			assert.Equal(t, once, twice)
		})
	}
}

func TestTrendPatternInjectsTimeDimension(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:         domain.IntentTrend,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"brand_name"}},
		TimeContext:    domain.TimeContext{Window: "ytd", Grain: domain.GrainMonth},
	}

	out := Optimize(q, snap)

	assert.Equal(t, []string{"month_name", "brand_name"}, out.Dimensionality.GroupBy)
	require.NotNil(t, out.Sorting)
	assert.Equal(t, "month_name", out.Sorting.OrderBy)
	assert.Equal(t, domain.SortAsc, out.Sorting.Direction)
}

func TestTrendPatternKeepsExistingTimeDimension(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:         domain.IntentTrend,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"week"}},
		TimeContext:    domain.TimeContext{Window: "last_12_weeks", Grain: domain.GrainMonth},
	}

	out := Optimize(q, snap)

	assert.Equal(t, []string{"week"}, out.Dimensionality.GroupBy)
	assert.Equal(t, "week", out.Sorting.OrderBy)
}

func TestTrendPatternRespectsCallerSort(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:         domain.IntentTrend,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"date"}},
		TimeContext:    domain.TimeContext{Window: "last_4_weeks"},
		Sorting:        &domain.Sorting{OrderBy: "secondary_sales_value", Direction: domain.SortDesc},
	}

	out := Optimize(q, snap)
	assert.Equal(t, "secondary_sales_value", out.Sorting.OrderBy)
	assert.Equal(t, domain.SortDesc, out.Sorting.Direction)
}

func TestGrainDimension(t *testing.T) {
	assert.Equal(t, "date", GrainDimension(domain.GrainDay))
	assert.Equal(t, "week", GrainDimension(domain.GrainWeek))
	assert.Equal(t, "month_name", GrainDimension(domain.GrainMonth))
	assert.Equal(t, "quarter", GrainDimension(domain.GrainQuarter))
	assert.Equal(t, "year", GrainDimension(domain.GrainYear))
	assert.Equal(t, "date", GrainDimension(""))
}

func TestComparisonPatternSynthesizesBaseline(t *testing.T) {
	snap := testSnapshot(t)
	tests := []struct {
		window   string
		baseline string
	}{
		{"this_month", "last_month"},
		{"mtd", "last_month"},
		{"last_month", "last_month"},
		{"qtd", "last_quarter"},
		{"this_quarter", "last_quarter"},
		{"ytd", "last_year"},
		{"this_year", "last_year"},
		{"last_4_weeks", "previous_period"},
	}
	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			q := domain.SemanticQuery{
				Intent:        domain.IntentComparison,
				MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
				TimeContext:   domain.TimeContext{Window: tt.window},
			}
			out := Optimize(q, snap)
			require.NotNil(t, out.Comparison)
			assert.Equal(t, "period", out.Comparison.Type)
			assert.Equal(t, tt.baseline, out.Comparison.Baseline)
			assert.Equal(t, domain.VariantGrowth, out.MetricRequest.Variant)
		})
	}
}

func TestComparisonPatternKeepsExplicitComparison(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:        domain.IntentComparison,
		MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value", Variant: domain.VariantDelta},
		TimeContext:   domain.TimeContext{Window: "this_month"},
		Comparison:    &domain.Comparison{Type: "period", Baseline: "last_year"},
	}

	out := Optimize(q, snap)
	assert.Equal(t, "last_year", out.Comparison.Baseline)
	assert.Equal(t, domain.VariantDelta, out.MetricRequest.Variant)
}

func TestRankingPatternBounds(t *testing.T) {
	snap := testSnapshot(t)
	base := domain.SemanticQuery{
		Intent:         domain.IntentRanking,
		MetricRequest:  domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		Dimensionality: domain.Dimensionality{GroupBy: []string{"brand_name"}},
	}

	t.Run("nil sorting gets defaults", func(t *testing.T) {
		out := Optimize(base, snap)
		require.NotNil(t, out.Sorting)
		assert.Equal(t, "secondary_sales_value", out.Sorting.OrderBy)
		assert.Equal(t, domain.SortDesc, out.Sorting.Direction)
		assert.Equal(t, DefaultRankingLimit, out.Sorting.Limit)
	})

	t.Run("zero limit gets default", func(t *testing.T) {
		q := base.Clone()
		q.Sorting = &domain.Sorting{OrderBy: "brand_name", Direction: domain.SortAsc}
		out := Optimize(q, snap)
		assert.Equal(t, DefaultRankingLimit, out.Sorting.Limit)
		assert.Equal(t, domain.SortAsc, out.Sorting.Direction)
	})

	t.Run("oversized limit is capped", func(t *testing.T) {
		q := base.Clone()
		q.Sorting = &domain.Sorting{OrderBy: "secondary_sales_value", Limit: 5000}
		out := Optimize(q, snap)
		assert.Equal(t, MaxRankingLimit, out.Sorting.Limit)
		assert.Equal(t, domain.SortDesc, out.Sorting.Direction)
	})

	t.Run("explicit limit kept", func(t *testing.T) {
		q := base.Clone()
		q.Sorting = &domain.Sorting{OrderBy: "secondary_sales_value", Direction: domain.SortDesc, Limit: 25}
		out := Optimize(q, snap)
		assert.Equal(t, 25, out.Sorting.Limit)
	})
}

func TestDiagnosticPatternDefaults(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:        domain.IntentDiagnostic,
		MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		TimeContext:   domain.TimeContext{Window: "last_4_weeks"},
	}

	out := Optimize(q, snap)
	require.NotNil(t, out.Diagnostics)
	assert.True(t, out.Diagnostics.Enabled)
	assert.Equal(t, []string{"brand_name", "state_name"}, out.Diagnostics.Dimensions)
	assert.Equal(t, DefaultDiagnosticThreshold, out.Diagnostics.Threshold)
}

func TestDiagnosticPatternFillsPartialBlock(t *testing.T) {
	snap := testSnapshot(t)
	q := domain.SemanticQuery{
		Intent:        domain.IntentDiagnostic,
		MetricRequest: domain.MetricRequest{PrimaryMetric: "secondary_sales_value"},
		TimeContext:   domain.TimeContext{Window: "last_4_weeks"},
		Diagnostics:   &domain.Diagnostics{Enabled: false, Dimensions: []string{"sku_name"}},
	}

	out := Optimize(q, snap)
	assert.True(t, out.Diagnostics.Enabled)
	assert.Equal(t, []string{"sku_name"}, out.Diagnostics.Dimensions)
	assert.Equal(t, DefaultDiagnosticThreshold, out.Diagnostics.Threshold)
}

func TestPatternName(t *testing.T) {
	assert.Equal(t, "ranking", PatternName(domain.IntentRanking))
	assert.Equal(t, "snapshot", PatternName(domain.IntentSnapshot))
	assert.Equal(t, "snapshot", PatternName(domain.Intent("mystery")))
}
