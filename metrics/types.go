package metrics

// MetricPoint represents a single metric observation with labels and value
type MetricPoint struct {
	Labels map[string]string
	Value  float64
}

// MetricFamily represents a family of metrics (e.g., all lemonmetrics_collections_total metrics)
type MetricFamily struct {
	Name    string        // Metric name (e.g., "lemonmetrics_collections_total")
	Help    string        // Help text
	Type    string        // Metric type (e.g., "gauge" or "counter")
	Metrics []MetricPoint // All metric points in this family
}

// MetricsData holds all metrics to be exported
type MetricsData struct {
	Families []MetricFamily
}
