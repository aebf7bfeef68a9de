// Package metrics provides Prometheus metrics exposition for lemon-metrics.
package metrics

import (
	"time"
)

// InfoProvider provides instance information for metrics labels
type InfoProvider interface {
	GetVersion() string
	GetTargetURL() string // configured scrape target (empty if unset)
}

// CollectorConfig holds configuration for which metrics to collect
type CollectorConfig struct {
	BuildInfoEnabled   bool
	CollectionsEnabled bool
	SamplesEnabled     bool
}

// DefaultCollectorConfig enables all metric families
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		BuildInfoEnabled:   true,
		CollectionsEnabled: true,
		SamplesEnabled:     true,
	}
}

// Collector collects metrics and formats them for Prometheus
type Collector struct {
	infoProvider InfoProvider
	instanceUUID string
	stats        *Stats
	config       CollectorConfig
}

// NewCollector creates a new metrics collector
func NewCollector(infoProvider InfoProvider, instanceUUID string, stats *Stats, config CollectorConfig) *Collector {
	return &Collector{
		infoProvider: infoProvider,
		instanceUUID: instanceUUID,
		stats:        stats,
		config:       config,
	}
}

// Collect generates structured metrics data
func (c *Collector) Collect() *MetricsData {
	data := &MetricsData{
		Families: make([]MetricFamily, 0),
	}

	snap := c.stats.Snapshot()

	if c.config.BuildInfoEnabled {
		data.Families = append(data.Families, c.collectBuildInfoMetric())
	}

	if c.config.CollectionsEnabled {
		data.Families = append(data.Families, c.collectCollectionMetrics(snap)...)
	}

	if c.config.SamplesEnabled {
		data.Families = append(data.Families, c.collectSampleMetrics(snap)...)
	}

	return data
}

// collectBuildInfoMetric generates the lemonmetrics_build_info metric
func (c *Collector) collectBuildInfoMetric() MetricFamily {
	labels := map[string]string{
		"instance_uuid":        c.instanceUUID,
		"lemonmetrics_version": c.infoProvider.GetVersion(),
	}

	// Only include target if configured
	if target := c.infoProvider.GetTargetURL(); target != "" {
		labels["target"] = target
	}

	return MetricFamily{
		Name: "lemonmetrics_build_info",
		Help: "Lemon-metrics instance information",
		Type: "gauge",
		Metrics: []MetricPoint{
			{
				Labels: labels,
				Value:  1,
			},
		},
	}
}

// collectCollectionMetrics generates counters describing collection activity
func (c *Collector) collectCollectionMetrics(snap StatsSnapshot) []MetricFamily {
	collectionPoints := make([]MetricPoint, 0, len(snap.Collections))
	for _, result := range []string{ResultSuccess, ResultFailure} {
		count, ok := snap.Collections[result]
		if !ok {
			continue
		}
		collectionPoints = append(collectionPoints, MetricPoint{
			Labels: map[string]string{
				"instance_uuid": c.instanceUUID,
				"result":        result,
			},
			Value: float64(count),
		})
	}

	families := []MetricFamily{
		{
			Name:    "lemonmetrics_collections_total",
			Help:    "Number of metric collection attempts by result",
			Type:    "counter",
			Metrics: collectionPoints,
		},
		{
			Name: "lemonmetrics_collection_duration_seconds",
			Help: "Duration of the most recent collection attempt",
			Type: "gauge",
			Metrics: []MetricPoint{
				{
					Labels: map[string]string{"instance_uuid": c.instanceUUID},
					Value:  snap.LastDuration.Seconds(),
				},
			},
		},
	}

	if !snap.LastCollection.IsZero() {
		families = append(families, MetricFamily{
			Name: "lemonmetrics_last_collection_timestamp_seconds",
			Help: "Unix timestamp of the most recent successful collection",
			Type: "gauge",
			Metrics: []MetricPoint{
				{
					Labels: map[string]string{"instance_uuid": c.instanceUUID},
					Value:  float64(snap.LastCollection.UnixNano()) / float64(time.Second),
				},
			},
		})
	}

	return families
}

// collectSampleMetrics generates counters describing parsed sample volume
func (c *Collector) collectSampleMetrics(snap StatsSnapshot) []MetricFamily {
	samplePoints := make([]MetricPoint, 0, len(snap.SamplesParsed))
	for _, group := range []string{"process", "node", "http", "custom"} {
		count, ok := snap.SamplesParsed[group]
		if !ok {
			continue
		}
		samplePoints = append(samplePoints, MetricPoint{
			Labels: map[string]string{
				"instance_uuid": c.instanceUUID,
				"group":         group,
			},
			Value: float64(count),
		})
	}

	return []MetricFamily{
		{
			Name:    "lemonmetrics_samples_parsed_total",
			Help:    "Number of samples parsed by classification group",
			Type:    "counter",
			Metrics: samplePoints,
		},
		{
			Name: "lemonmetrics_skipped_lines_total",
			Help: "Number of unparseable lines skipped during collection",
			Type: "counter",
			Metrics: []MetricPoint{
				{
					Labels: map[string]string{"instance_uuid": c.instanceUUID},
					Value:  float64(snap.SkippedLines),
				},
			},
		},
	}
}
