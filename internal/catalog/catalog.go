// Package catalog holds the semantic registry: business-facing metric and
// dimension definitions loaded from configuration, resolved by name or
// synonym. A loaded Snapshot is immutable; configuration reloads swap a new
// snapshot into the Store rather than mutating a live one.
package catalog

import (
	"sort"
	"time"

	"cpg-insights/internal/domain"
)

// defaultDiagnosticDimensions is the analysis dimension set used when the
// configuration does not override it.
var defaultDiagnosticDimensions = []string{"brand_name", "state_name", "channel_name"}

// Snapshot is a read-only view of the semantic registry at one version.
// Safe for concurrent use by any number of compiles.
type Snapshot struct {
	version      int64
	loadedAt     time.Time
	metrics      map[string]*domain.Metric
	dimensions   map[string]*domain.Dimension
	synonyms     map[string]string
	attributes   map[string]domain.AttributeRef
	diagDefaults []string
}

// Version identifies the snapshot; it increases on every reload.
func (s *Snapshot) Version() int64 { return s.version }

// LoadedAt reports when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Metric resolves a metric by name, then by business-term synonym.
// Returns nil when neither resolves.
func (s *Snapshot) Metric(name string) *domain.Metric {
	if m, ok := s.metrics[name]; ok {
		return m
	}
	if actual, ok := s.synonyms[name]; ok {
		return s.metrics[actual]
	}
	return nil
}

// Dimension resolves a dimension by name, then by synonym.
func (s *Snapshot) Dimension(name string) *domain.Dimension {
	if d, ok := s.dimensions[name]; ok {
		return d
	}
	if actual, ok := s.synonyms[name]; ok {
		return s.dimensions[actual]
	}
	return nil
}

// ResolveAttribute maps a dimension attribute name (brand_name, week, ...)
// to its owning dimension and alias-qualified column. The table is derived
// from the same dimension definitions the loader parsed, so it cannot drift
// from the catalog.
func (s *Snapshot) ResolveAttribute(name string) (domain.AttributeRef, bool) {
	ref, ok := s.attributes[name]
	return ref, ok
}

// Metrics lists all metric definitions sorted by name.
func (s *Snapshot) Metrics() []*domain.Metric {
	out := make([]*domain.Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dimensions lists all dimension definitions sorted by name.
func (s *Snapshot) Dimensions() []*domain.Dimension {
	out := make([]*domain.Dimension, 0, len(s.dimensions))
	for _, d := range s.dimensions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DiagnosticDefaults returns the analysis dimension set used by diagnostic
// queries that do not name their own.
func (s *Snapshot) DiagnosticDefaults() []string {
	return append([]string(nil), s.diagDefaults...)
}
