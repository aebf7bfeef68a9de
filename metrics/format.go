package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FormatPrometheus converts structured metrics data to Prometheus text format
func FormatPrometheus(data *MetricsData) string {
	var output strings.Builder

	for _, family := range data.Families {
		// Write HELP line
		output.WriteString(fmt.Sprintf("# HELP %s %s\n", family.Name, family.Help))
		// Write TYPE line
		output.WriteString(fmt.Sprintf("# TYPE %s %s\n", family.Name, family.Type))

		// Write each metric
		for _, metric := range family.Metrics {
			value := formatValue(metric.Value)
			if len(metric.Labels) == 0 {
				output.WriteString(fmt.Sprintf("%s %s\n", family.Name, value))
				continue
			}
			labels := formatLabels(metric.Labels)
			output.WriteString(fmt.Sprintf("%s{%s} %s\n", family.Name, labels, value))
		}
	}

	return output.String()
}

// formatValue renders a sample value, using the exposition format sentinels
// for non-finite values
func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// formatLabels converts a label map to Prometheus label string format
// Labels are sorted alphabetically for consistent output
func formatLabels(labels map[string]string) string {
	// Sort label keys for consistent output
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build label string
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := escapeLabelValue(labels[k])
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, v))
	}

	return strings.Join(parts, ",")
}

// escapeLabelValue escapes special characters in Prometheus label values
func escapeLabelValue(value string) string {
	// Escape backslash, newline, and double quote
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
