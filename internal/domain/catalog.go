package domain

// Aggregate functions a metric definition may use.
const (
	AggSum           = "SUM"
	AggCount         = "COUNT"
	AggCountDistinct = "COUNT_DISTINCT"
	AggAvg           = "AVG"
	AggMin           = "MIN"
	AggMax           = "MAX"
)

// ValidAggregate reports whether fn is a supported aggregate function.
func ValidAggregate(fn string) bool {
	switch fn {
	case AggSum, AggCount, AggCountDistinct, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// MetricFilter is a predicate baked into a metric definition, applied to the
// fact table on every query of that metric (e.g. exclude returned rows).
type MetricFilter struct {
	Column string
	Value  any
}

// Metric maps a business-facing metric name to a fact table and a structured
// aggregate expression. Built at catalog-load time; immutable afterwards.
//
// The aggregate is stored as {Aggregate, Argument, Distinct} rather than a
// raw SQL template so the compiler never parses strings at query time.
type Metric struct {
	Name        string
	Description string
	Table       string
	Aggregate   string // SUM, COUNT, AVG, MIN, MAX, COUNT_DISTINCT
	Argument    string // column expression inside the aggregate, e.g. net_value
	Distinct    bool
	Format      string
	Filters     []MetricFilter
}

// Dimension maps a business entity to its dimension table. Attributes are
// the user-facing names the table exposes, each bound to a physical column.
type Dimension struct {
	Name       string
	Table      string
	Key        string // surrogate key shared with the fact table
	Alias      string // fixed table alias used in compiled SQL
	Attributes map[string]string
}

// AttributeRef is a resolved dimension attribute: the owning dimension plus
// the alias-qualified column the compiler selects and groups by.
type AttributeRef struct {
	Dimension string
	Table     string
	Alias     string
	Column    string
}

// Qualified returns the alias-qualified column reference, e.g. "p.brand_name".
func (a AttributeRef) Qualified() string {
	return a.Alias + "." + a.Column
}
