package domain

// Intent classifies what kind of answer the user is after. It selects the
// query pattern applied before compilation.
type Intent string

const (
	IntentSnapshot   Intent = "snapshot"
	IntentTrend      Intent = "trend"
	IntentComparison Intent = "comparison"
	IntentRanking    Intent = "ranking"
	IntentDiagnostic Intent = "diagnostic"
)

// Valid reports whether the intent is one of the known archetypes.
func (i Intent) Valid() bool {
	switch i {
	case IntentSnapshot, IntentTrend, IntentComparison, IntentRanking, IntentDiagnostic:
		return true
	}
	return false
}

// MetricVariant selects how a metric value is presented.
type MetricVariant string

const (
	VariantAbsolute     MetricVariant = "absolute"
	VariantGrowth       MetricVariant = "growth"
	VariantDelta        MetricVariant = "delta"
	VariantContribution MetricVariant = "contribution"
)

// Grain is the time granularity of a trend series.
type Grain string

const (
	GrainDay     Grain = "day"
	GrainWeek    Grain = "week"
	GrainMonth   Grain = "month"
	GrainQuarter Grain = "quarter"
	GrainYear    Grain = "year"
)

// SortDirection is an ORDER BY direction.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// FilterOperator is the closed set of comparison operators a Filter may use.
type FilterOperator string

const (
	OpEqual        FilterOperator = "="
	OpIn           FilterOperator = "IN"
	OpNotIn        FilterOperator = "NOT IN"
	OpBetween      FilterOperator = "BETWEEN"
	OpGreater      FilterOperator = ">"
	OpLess         FilterOperator = "<"
	OpGreaterEqual FilterOperator = ">="
	OpLessEqual    FilterOperator = "<="
)

// Valid reports whether the operator is recognized.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEqual, OpIn, OpNotIn, OpBetween, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// MetricRequest names the metrics a query computes.
type MetricRequest struct {
	PrimaryMetric    string        `json:"primary_metric"`
	SecondaryMetrics []string      `json:"secondary_metrics,omitempty"`
	Variant          MetricVariant `json:"metric_variant,omitempty"`
}

// Dimensionality lists the dimensions to group by, in SELECT order, with
// optional hierarchy-level hints from the parser.
type Dimensionality struct {
	GroupBy        []string          `json:"group_by,omitempty"`
	HierarchyLevel map[string]string `json:"hierarchy_level,omitempty"`
}

// TimeContext pins the query to a symbolic time window and grain. Window is
// a closed vocabulary token, never free text.
type TimeContext struct {
	TimeDimension    string `json:"time_dimension,omitempty"`
	Window           string `json:"window,omitempty"`
	Grain            Grain  `json:"grain,omitempty"`
	ComparisonWindow string `json:"comparison_window,omitempty"`
}

// Filter is a single predicate on a dimension attribute. Values are rendered
// through literal escaping only, never interpolated.
type Filter struct {
	Dimension string         `json:"dimension"`
	Operator  FilterOperator `json:"operator"`
	Values    []any          `json:"values"`
}

// Comparison configures period-over-period analysis.
type Comparison struct {
	Type     string `json:"type"`
	Baseline string `json:"baseline"`
	Variant  string `json:"metric_variant,omitempty"`
}

// Diagnostics configures the root-cause-analysis workflow.
type Diagnostics struct {
	Enabled    bool     `json:"enabled"`
	Dimensions []string `json:"dimensions,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
}

// Sorting configures ORDER BY and LIMIT.
type Sorting struct {
	OrderBy   string        `json:"order_by"`
	Direction SortDirection `json:"direction,omitempty"`
	Limit     int           `json:"limit,omitempty"`
}

// DefaultMinConfidence is the parser-confidence floor below which the
// services bounce a query back for clarification instead of compiling it.
const DefaultMinConfidence = 0.5

// SemanticQuery is the canonical intermediate representation of a user's
// analytical intent, produced upstream by an intent parser. Treated as
// immutable once validated; pattern optimization works on a Clone.
//
// Confidence is a pointer so an explicit parser score of 0.0 stays
// distinguishable from a parser that reported no score at all.
type SemanticQuery struct {
	Intent           Intent         `json:"intent"`
	MetricRequest    MetricRequest  `json:"metric_request"`
	Dimensionality   Dimensionality `json:"dimensionality,omitempty"`
	TimeContext      TimeContext    `json:"time_context,omitempty"`
	Filters          []Filter       `json:"filters,omitempty"`
	Comparison       *Comparison    `json:"comparison,omitempty"`
	Diagnostics      *Diagnostics   `json:"diagnostics,omitempty"`
	Sorting          *Sorting       `json:"sorting,omitempty"`
	Confidence       *float64       `json:"confidence,omitempty"`
	OriginalQuestion string         `json:"original_question,omitempty"`
}

// Clone returns a deep copy. Patterns and the diagnostic orchestrator derive
// transformed queries from clones so concurrent compiles can share one input.
func (q SemanticQuery) Clone() SemanticQuery {
	out := q
	out.MetricRequest.SecondaryMetrics = append([]string(nil), q.MetricRequest.SecondaryMetrics...)
	out.Dimensionality.GroupBy = append([]string(nil), q.Dimensionality.GroupBy...)
	if q.Dimensionality.HierarchyLevel != nil {
		m := make(map[string]string, len(q.Dimensionality.HierarchyLevel))
		for k, v := range q.Dimensionality.HierarchyLevel {
			m[k] = v
		}
		out.Dimensionality.HierarchyLevel = m
	}
	if q.Filters != nil {
		out.Filters = make([]Filter, len(q.Filters))
		for i, f := range q.Filters {
			f.Values = append([]any(nil), f.Values...)
			out.Filters[i] = f
		}
	}
	if q.Comparison != nil {
		c := *q.Comparison
		out.Comparison = &c
	}
	if q.Diagnostics != nil {
		d := *q.Diagnostics
		d.Dimensions = append([]string(nil), q.Diagnostics.Dimensions...)
		out.Diagnostics = &d
	}
	if q.Sorting != nil {
		s := *q.Sorting
		out.Sorting = &s
	}
	if q.Confidence != nil {
		c := *q.Confidence
		out.Confidence = &c
	}
	return out
}
