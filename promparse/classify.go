package promparse

import "strings"

// componentSuffixes are the reserved histogram/summary component suffixes.
// Metadata for these series is declared against the unsuffixed root.
var componentSuffixes = []string{"_bucket", "_sum", "_count"}

// familyRoot resolves the metadata lookup key for a metric name. A
// component suffix is stripped only when a metadata entry exists for the
// stripped root; otherwise the full name is used, so plain counters and
// gauges (including ones that happen to end in _count) are looked up
// directly.
func familyRoot(name string, meta map[string]familyMeta) string {
	for _, suffix := range componentSuffixes {
		if root, ok := strings.CutSuffix(name, suffix); ok && root != "" {
			if _, exists := meta[root]; exists {
				return root
			}
		}
	}
	return name
}

// classify annotates a parsed sample with whatever metadata is currently in
// the table. Directives seen after a sample do not retroactively annotate
// it; attachment reflects the table at classification time.
func classify(sample MetricSample, meta map[string]familyMeta) MetricSample {
	if m, ok := meta[familyRoot(sample.Name, meta)]; ok {
		sample.Help = m.help
		sample.Type = MetricType(m.typ)
	}
	return sample
}

// add appends a sample to exactly one group using first-matching prefix,
// in priority order. Matching is case-sensitive and anchored at the start
// of the name; everything without a reserved prefix is a custom metric.
func (p *ParsedMetrics) add(sample MetricSample) {
	switch {
	case strings.HasPrefix(sample.Name, "process_"):
		p.ProcessMetrics = append(p.ProcessMetrics, sample)
	case strings.HasPrefix(sample.Name, "nodejs_"):
		p.NodeMetrics = append(p.NodeMetrics, sample)
	case strings.HasPrefix(sample.Name, "http_"):
		p.HTTPMetrics = append(p.HTTPMetrics, sample)
	default:
		p.CustomMetrics = append(p.CustomMetrics, sample)
	}
}
