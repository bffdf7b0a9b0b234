package compiler

import (
	"strings"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
)

// Ranking guards applied by the ranking pattern.
const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
)

// DefaultDiagnosticThreshold is the significance threshold synthesized for
// diagnostic queries that do not carry one.
const DefaultDiagnosticThreshold = 0.05

// timeGrainDimensions are the attributes that put a query on a time axis.
var timeGrainDimensions = map[string]bool{
	"date": true, "week": true, "month": true, "month_name": true,
	"quarter": true, "year": true,
	"fiscal_week": true, "fiscal_month": true, "fiscal_quarter": true, "fiscal_year": true,
}

// GrainDimension maps a time grain to the dimension attribute a trend series
// groups by.
func GrainDimension(g domain.Grain) string {
	switch g {
	case domain.GrainWeek:
		return "week"
	case domain.GrainMonth:
		return "month_name"
	case domain.GrainQuarter:
		return "quarter"
	case domain.GrainYear:
		return "year"
	default:
		return "date"
	}
}

// pattern normalizes a semantic query for its intent before compilation.
// Every pattern is a pure function on a clone and must be idempotent.
type pattern func(q domain.SemanticQuery, snap *catalog.Snapshot) domain.SemanticQuery

// patternTable dispatches on intent. Unknown intents fall back to the
// snapshot pattern, which is the identity transform, so there is always
// exactly one applicable pattern.
var patternTable = map[domain.Intent]pattern{
	domain.IntentSnapshot:   snapshotPattern,
	domain.IntentTrend:      trendPattern,
	domain.IntentComparison: comparisonPattern,
	domain.IntentRanking:    rankingPattern,
	domain.IntentDiagnostic: diagnosticPattern,
}

// PatternName reports which pattern Optimize will apply, for explanations
// and metadata.
func PatternName(intent domain.Intent) string {
	if _, ok := patternTable[intent]; ok && intent != domain.IntentSnapshot {
		return string(intent)
	}
	return string(domain.IntentSnapshot)
}

// Optimize applies the intent's pattern to a clone of q and returns the
// transformed copy. The input is never modified.
func Optimize(q domain.SemanticQuery, snap *catalog.Snapshot) domain.SemanticQuery {
	p, ok := patternTable[q.Intent]
	if !ok {
		p = snapshotPattern
	}
	return p(q.Clone(), snap)
}

// snapshotPattern is the identity transform: a single point-in-time
// aggregate needs no normalization.
func snapshotPattern(q domain.SemanticQuery, _ *catalog.Snapshot) domain.SemanticQuery {
	return q
}

// trendPattern guarantees a time axis and chronological ordering. A trend
// chart sorted by value instead of time would be wrong, so ascending time
// sort is forced whenever the caller did not choose a sort.
func trendPattern(q domain.SemanticQuery, _ *catalog.Snapshot) domain.SemanticQuery {
	timeDim := ""
	for _, dim := range q.Dimensionality.GroupBy {
		if timeGrainDimensions[dim] {
			timeDim = dim
			break
		}
	}
	if timeDim == "" {
		timeDim = GrainDimension(q.TimeContext.Grain)
		q.Dimensionality.GroupBy = append([]string{timeDim}, q.Dimensionality.GroupBy...)
	}
	if q.Sorting == nil {
		q.Sorting = &domain.Sorting{OrderBy: timeDim, Direction: domain.SortAsc}
	}
	return q
}

// comparisonPattern synthesizes a baseline period from the time window and
// switches the metric presentation to growth.
func comparisonPattern(q domain.SemanticQuery, _ *catalog.Snapshot) domain.SemanticQuery {
	if q.Comparison == nil {
		q.Comparison = &domain.Comparison{
			Type:     "period",
			Baseline: baselineForWindow(q.TimeContext.Window),
			Variant:  string(domain.VariantGrowth),
		}
	}
	if q.MetricRequest.Variant == domain.VariantAbsolute || q.MetricRequest.Variant == "" {
		q.MetricRequest.Variant = domain.VariantGrowth
	}
	return q
}

func baselineForWindow(window string) string {
	switch {
	case strings.Contains(window, "month") || window == "mtd":
		return "last_month"
	case strings.Contains(window, "quarter") || window == "qtd":
		return "last_quarter"
	case strings.Contains(window, "year") || window == "ytd":
		return "last_year"
	default:
		return "previous_period"
	}
}

// rankingPattern guarantees a sort and a bounded limit.
func rankingPattern(q domain.SemanticQuery, _ *catalog.Snapshot) domain.SemanticQuery {
	if q.Sorting == nil {
		q.Sorting = &domain.Sorting{
			OrderBy:   q.MetricRequest.PrimaryMetric,
			Direction: domain.SortDesc,
			Limit:     DefaultRankingLimit,
		}
		return q
	}
	if q.Sorting.Direction == "" {
		q.Sorting.Direction = domain.SortDesc
	}
	if q.Sorting.Limit == 0 {
		q.Sorting.Limit = DefaultRankingLimit
	} else if q.Sorting.Limit > MaxRankingLimit {
		q.Sorting.Limit = MaxRankingLimit
	}
	return q
}

// diagnosticPattern guarantees an enabled diagnostics block with a non-empty
// analysis dimension set, defaulting from the catalog configuration.
func diagnosticPattern(q domain.SemanticQuery, snap *catalog.Snapshot) domain.SemanticQuery {
	if q.Diagnostics == nil {
		q.Diagnostics = &domain.Diagnostics{
			Enabled:    true,
			Dimensions: snap.DiagnosticDefaults(),
			Threshold:  DefaultDiagnosticThreshold,
		}
		return q
	}
	q.Diagnostics.Enabled = true
	if len(q.Diagnostics.Dimensions) == 0 {
		q.Diagnostics.Dimensions = snap.DiagnosticDefaults()
	}
	if q.Diagnostics.Threshold == 0 {
		q.Diagnostics.Threshold = DefaultDiagnosticThreshold
	}
	return q
}
