package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"cpg-insights/internal/domain"
)

type metricConfig struct {
	Description string `yaml:"description"`
	Table       string `yaml:"table"`
	Aggregate   string `yaml:"aggregate"`
	Argument    string `yaml:"argument"`
	Distinct    bool   `yaml:"distinct"`
	// SQL is the legacy single-aggregate template form, e.g. "SUM(net_value)".
	// Parsed once at load time; anything more complex fails the load.
	SQL     string               `yaml:"sql"`
	Format  string               `yaml:"format"`
	Filters []metricFilterConfig `yaml:"filters"`
}

type metricFilterConfig struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
}

type dimensionConfig struct {
	Table      string            `yaml:"table"`
	Key        string            `yaml:"key"`
	Alias      string            `yaml:"alias"`
	Attributes map[string]string `yaml:"attributes"`
}

type diagnosticsConfig struct {
	DefaultDimensions []string `yaml:"default_dimensions"`
}

type fileConfig struct {
	Metrics       map[string]metricConfig    `yaml:"metrics"`
	Dimensions    map[string]dimensionConfig `yaml:"dimensions"`
	BusinessTerms map[string]string          `yaml:"business_terms"`
	Diagnostics   diagnosticsConfig          `yaml:"diagnostics"`
}

var legacyAggregateRe = regexp.MustCompile(`^([A-Za-z_]+)\(\s*(DISTINCT\s+)?(.+?)\s*\)$`)

var defaultAliases = map[string]string{
	"date":      "d",
	"product":   "p",
	"geography": "g",
	"customer":  "c",
	"channel":   "ch",
}

var snapshotVersion atomic.Int64

// Load reads a semantic catalog configuration file and builds an immutable
// Snapshot. All structural problems are load errors: a catalog that loads
// is a catalog the compiler can trust.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read catalog config: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Snapshot from raw YAML configuration bytes.
func Parse(raw []byte) (*Snapshot, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog config: %w", err)
	}
	if len(cfg.Metrics) == 0 {
		return nil, fmt.Errorf("catalog config defines no metrics")
	}
	if len(cfg.Dimensions) == 0 {
		return nil, fmt.Errorf("catalog config defines no dimensions")
	}

	snap := &Snapshot{
		version:      snapshotVersion.Add(1),
		loadedAt:     time.Now().UTC(),
		metrics:      make(map[string]*domain.Metric, len(cfg.Metrics)),
		dimensions:   make(map[string]*domain.Dimension, len(cfg.Dimensions)),
		synonyms:     make(map[string]string, len(cfg.BusinessTerms)),
		attributes:   make(map[string]domain.AttributeRef),
		diagDefaults: append([]string(nil), defaultDiagnosticDimensions...),
	}

	for name, mc := range cfg.Metrics {
		m, err := buildMetric(name, mc)
		if err != nil {
			return nil, err
		}
		snap.metrics[name] = m
	}

	for name, dc := range cfg.Dimensions {
		d, err := buildDimension(name, dc)
		if err != nil {
			return nil, err
		}
		snap.dimensions[name] = d
		for attr, column := range d.Attributes {
			if prev, ok := snap.attributes[attr]; ok {
				return nil, fmt.Errorf("attribute %q defined by both dimension %q and %q", attr, prev.Dimension, name)
			}
			snap.attributes[attr] = domain.AttributeRef{
				Dimension: name,
				Table:     d.Table,
				Alias:     d.Alias,
				Column:    column,
			}
		}
	}

	for term, target := range cfg.BusinessTerms {
		if _, ok := snap.metrics[target]; !ok {
			if _, ok := snap.dimensions[target]; !ok {
				return nil, fmt.Errorf("business term %q points at unknown name %q", term, target)
			}
		}
		snap.synonyms[term] = target
	}

	if len(cfg.Diagnostics.DefaultDimensions) > 0 {
		for _, dim := range cfg.Diagnostics.DefaultDimensions {
			if _, ok := snap.attributes[dim]; !ok {
				return nil, fmt.Errorf("diagnostics default dimension %q is not a known attribute", dim)
			}
		}
		snap.diagDefaults = append([]string(nil), cfg.Diagnostics.DefaultDimensions...)
	}

	return snap, nil
}

func buildMetric(name string, mc metricConfig) (*domain.Metric, error) {
	if mc.Table == "" {
		return nil, fmt.Errorf("metric %q: table is required", name)
	}

	agg, arg, distinct := mc.Aggregate, mc.Argument, mc.Distinct
	if agg == "" && mc.SQL != "" {
		parts := legacyAggregateRe.FindStringSubmatch(strings.TrimSpace(mc.SQL))
		if parts == nil {
			return nil, fmt.Errorf("metric %q: legacy sql template %q is not a single aggregate call; use aggregate/argument instead", name, mc.SQL)
		}
		agg = strings.ToUpper(parts[1])
		distinct = parts[2] != ""
		arg = parts[3]
	}
	if agg == domain.AggCountDistinct {
		agg = domain.AggCount
		distinct = true
	}
	if !domain.ValidAggregate(agg) {
		return nil, fmt.Errorf("metric %q: unsupported aggregate %q", name, agg)
	}
	if arg == "" {
		return nil, fmt.Errorf("metric %q: aggregate argument is required", name)
	}

	m := &domain.Metric{
		Name:        name,
		Description: mc.Description,
		Table:       mc.Table,
		Aggregate:   agg,
		Argument:    arg,
		Distinct:    distinct,
		Format:      mc.Format,
	}
	for _, fc := range mc.Filters {
		if fc.Column == "" {
			return nil, fmt.Errorf("metric %q: filter with empty column", name)
		}
		m.Filters = append(m.Filters, domain.MetricFilter{Column: fc.Column, Value: fc.Value})
	}
	return m, nil
}

func buildDimension(name string, dc dimensionConfig) (*domain.Dimension, error) {
	if dc.Table == "" {
		return nil, fmt.Errorf("dimension %q: table is required", name)
	}
	if dc.Key == "" {
		return nil, fmt.Errorf("dimension %q: key is required", name)
	}
	if len(dc.Attributes) == 0 {
		return nil, fmt.Errorf("dimension %q: at least one attribute is required", name)
	}
	alias := dc.Alias
	if alias == "" {
		alias = defaultAliases[name]
	}
	if alias == "" {
		alias = name[:1]
	}
	return &domain.Dimension{
		Name:       name,
		Table:      dc.Table,
		Key:        dc.Key,
		Alias:      alias,
		Attributes: dc.Attributes,
	}, nil
}
