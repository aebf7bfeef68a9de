package promparse

import (
	"encoding/json"
	"math"
)

// MetricType identifies the declared type of a metric family.
// Values mirror the TYPE tokens of the exposition format.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
	TypeSummary   MetricType = "summary"
	TypeUntyped   MetricType = "untyped"
)

// MetricSample is one parsed data point from the exposition text.
// Help and Type are attached from the metadata table when a HELP/TYPE
// directive for the sample's family root has been seen.
type MetricSample struct {
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels"`
	Help   string            `json:"help,omitempty"`
	Type   MetricType        `json:"type,omitempty"`
}

// MarshalJSON encodes the sample for the dashboard API.
// JSON has no representation for NaN or the infinities, so non-finite
// values are emitted as their exposition sentinel strings.
func (s MetricSample) MarshalJSON() ([]byte, error) {
	out := struct {
		Name   string            `json:"name"`
		Value  interface{}       `json:"value"`
		Labels map[string]string `json:"labels"`
		Help   string            `json:"help,omitempty"`
		Type   MetricType        `json:"type,omitempty"`
	}{
		Name:   s.Name,
		Labels: s.Labels,
		Help:   s.Help,
		Type:   s.Type,
	}

	switch {
	case math.IsNaN(s.Value):
		out.Value = "NaN"
	case math.IsInf(s.Value, 1):
		out.Value = "+Inf"
	case math.IsInf(s.Value, -1):
		out.Value = "-Inf"
	default:
		out.Value = s.Value
	}

	return json.Marshal(out)
}

// ParsedMetrics is the immutable result of one parse call: four ordered
// sample groups split by name prefix. Every parsed sample lands in exactly
// one group, in the order it was first encountered in the source text.
type ParsedMetrics struct {
	ProcessMetrics []MetricSample `json:"processMetrics"`
	NodeMetrics    []MetricSample `json:"nodeMetrics"`
	HTTPMetrics    []MetricSample `json:"httpMetrics"`
	CustomMetrics  []MetricSample `json:"customMetrics"`

	// SkippedLines counts malformed lines that were discarded during
	// parsing. They are not an error; lenient consumers tolerate stray
	// vendor extensions and garbled lines.
	SkippedLines int `json:"-"`
}

// newParsedMetrics returns a result with all four groups present but empty,
// so callers and JSON consumers never see a null group.
func newParsedMetrics() *ParsedMetrics {
	return &ParsedMetrics{
		ProcessMetrics: []MetricSample{},
		NodeMetrics:    []MetricSample{},
		HTTPMetrics:    []MetricSample{},
		CustomMetrics:  []MetricSample{},
	}
}

// TotalSamples returns the number of samples across all four groups.
func (p *ParsedMetrics) TotalSamples() int {
	return len(p.ProcessMetrics) + len(p.NodeMetrics) + len(p.HTTPMetrics) + len(p.CustomMetrics)
}

// GroupCounts returns the per-group sample counts keyed by group name.
func (p *ParsedMetrics) GroupCounts() map[string]int {
	return map[string]int{
		"process": len(p.ProcessMetrics),
		"node":    len(p.NodeMetrics),
		"http":    len(p.HTTPMetrics),
		"custom":  len(p.CustomMetrics),
	}
}

// familyMeta holds the most recently seen HELP and TYPE for a family root.
// Later directives for the same root overwrite earlier ones.
type familyMeta struct {
	help string
	typ  string
}
