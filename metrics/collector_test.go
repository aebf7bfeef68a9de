package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lixrry/lemon-metrics/promparse"
)

// MockInfoProvider implements InfoProvider for testing
type MockInfoProvider struct {
	version string
	target  string
}

func (m *MockInfoProvider) GetVersion() string   { return m.version }
func (m *MockInfoProvider) GetTargetURL() string { return m.target }

func parsedFixture(t *testing.T) *promparse.ParsedMetrics {
	t.Helper()
	parsed, err := promparse.Parse(`process_cpu_seconds_total 12.5
nodejs_heap_size_used_bytes 1048576
http_requests_total{method="GET"} 42
mw_custom_gauge 7
this is not a metric line
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return parsed
}

func TestStatsRecordSuccess(t *testing.T) {
	stats := NewStats()
	stats.RecordSuccess("http://target/metrics", parsedFixture(t), 25*time.Millisecond)

	snap := stats.Snapshot()
	if snap.Collections[ResultSuccess] != 1 {
		t.Errorf("Expected 1 successful collection, got %d", snap.Collections[ResultSuccess])
	}
	if snap.SamplesParsed["process"] != 1 || snap.SamplesParsed["node"] != 1 ||
		snap.SamplesParsed["http"] != 1 || snap.SamplesParsed["custom"] != 1 {
		t.Errorf("Unexpected sample counts: %v", snap.SamplesParsed)
	}
	if snap.SkippedLines != 1 {
		t.Errorf("Expected 1 skipped line, got %d", snap.SkippedLines)
	}
	if snap.LastDuration != 25*time.Millisecond {
		t.Errorf("Expected last duration 25ms, got %v", snap.LastDuration)
	}
	if snap.LastCollection.IsZero() {
		t.Error("Expected last collection timestamp to be set")
	}
	if snap.LastSource != "http://target/metrics" {
		t.Errorf("Expected last source to be recorded, got %q", snap.LastSource)
	}
}

func TestStatsRecordFailure(t *testing.T) {
	stats := NewStats()
	stats.RecordFailure("http://target/metrics", 10*time.Millisecond)

	snap := stats.Snapshot()
	if snap.Collections[ResultFailure] != 1 {
		t.Errorf("Expected 1 failed collection, got %d", snap.Collections[ResultFailure])
	}
	if snap.Collections[ResultSuccess] != 0 {
		t.Errorf("Expected 0 successful collections, got %d", snap.Collections[ResultSuccess])
	}
	if !snap.LastCollection.IsZero() {
		t.Error("Failure should not update last collection timestamp")
	}
}

func TestStatsAccumulatesAcrossCollections(t *testing.T) {
	stats := NewStats()
	stats.RecordSuccess("a", parsedFixture(t), time.Millisecond)
	stats.RecordSuccess("b", parsedFixture(t), time.Millisecond)

	snap := stats.Snapshot()
	if snap.Collections[ResultSuccess] != 2 {
		t.Errorf("Expected 2 collections, got %d", snap.Collections[ResultSuccess])
	}
	if snap.SamplesParsed["http"] != 2 {
		t.Errorf("Expected http samples to accumulate to 2, got %d", snap.SamplesParsed["http"])
	}
	if snap.SkippedLines != 2 {
		t.Errorf("Expected skipped lines to accumulate to 2, got %d", snap.SkippedLines)
	}
}

func TestCollectorBuildInfo(t *testing.T) {
	stats := NewStats()
	info := &MockInfoProvider{version: "1.2.3", target: "http://app:3000/metrics"}
	collector := NewCollector(info, "uuid-123", stats, DefaultCollectorConfig())

	data := collector.Collect()
	if len(data.Families) == 0 {
		t.Fatal("Expected at least one family")
	}

	family := data.Families[0]
	if family.Name != "lemonmetrics_build_info" {
		t.Fatalf("Expected build info family first, got %s", family.Name)
	}
	if len(family.Metrics) != 1 {
		t.Fatalf("Expected 1 build info point, got %d", len(family.Metrics))
	}
	point := family.Metrics[0]
	if point.Labels["instance_uuid"] != "uuid-123" {
		t.Errorf("Expected instance_uuid label, got %v", point.Labels)
	}
	if point.Labels["lemonmetrics_version"] != "1.2.3" {
		t.Errorf("Expected version label, got %v", point.Labels)
	}
	if point.Labels["target"] != "http://app:3000/metrics" {
		t.Errorf("Expected target label, got %v", point.Labels)
	}
}

func TestCollectorOmitsEmptyTarget(t *testing.T) {
	stats := NewStats()
	info := &MockInfoProvider{version: "1.0.0"}
	collector := NewCollector(info, "uuid", stats, DefaultCollectorConfig())

	data := collector.Collect()
	point := data.Families[0].Metrics[0]
	if _, ok := point.Labels["target"]; ok {
		t.Error("Expected target label to be omitted when unset")
	}
}

func TestCollectorCollectionCounters(t *testing.T) {
	stats := NewStats()
	stats.RecordSuccess("t", parsedFixture(t), 5*time.Millisecond)
	stats.RecordFailure("t", time.Millisecond)

	info := &MockInfoProvider{version: "1.0.0"}
	collector := NewCollector(info, "uuid", stats, DefaultCollectorConfig())

	output := FormatPrometheus(collector.Collect())

	if !strings.Contains(output, `lemonmetrics_collections_total{instance_uuid="uuid",result="success"} 1`) {
		t.Errorf("Expected success counter in output:\n%s", output)
	}
	if !strings.Contains(output, `lemonmetrics_collections_total{instance_uuid="uuid",result="failure"} 1`) {
		t.Errorf("Expected failure counter in output:\n%s", output)
	}
	if !strings.Contains(output, `lemonmetrics_samples_parsed_total{group="http",instance_uuid="uuid"} 1`) {
		t.Errorf("Expected http sample counter in output:\n%s", output)
	}
	if !strings.Contains(output, `lemonmetrics_skipped_lines_total{instance_uuid="uuid"} 1`) {
		t.Errorf("Expected skipped lines counter in output:\n%s", output)
	}
	if !strings.Contains(output, "# TYPE lemonmetrics_collections_total counter") {
		t.Errorf("Expected TYPE line in output:\n%s", output)
	}
}

func TestFormatValueSentinels(t *testing.T) {
	data := &MetricsData{
		Families: []MetricFamily{
			{
				Name: "test_metric",
				Help: "Test",
				Type: "gauge",
				Metrics: []MetricPoint{
					{Labels: map[string]string{"k": "a"}, Value: 1.5},
				},
			},
		},
	}
	output := FormatPrometheus(data)
	if !strings.Contains(output, `test_metric{k="a"} 1.5`) {
		t.Errorf("Expected plain value rendering:\n%s", output)
	}
}

func TestFormatLabelEscaping(t *testing.T) {
	data := &MetricsData{
		Families: []MetricFamily{
			{
				Name: "test_metric",
				Help: "Test",
				Type: "gauge",
				Metrics: []MetricPoint{
					{Labels: map[string]string{"path": `C:\temp`, "msg": "say \"hi\"\n"}, Value: 1},
				},
			},
		},
	}
	output := FormatPrometheus(data)
	if !strings.Contains(output, `path="C:\\temp"`) {
		t.Errorf("Expected escaped backslash:\n%s", output)
	}
	if !strings.Contains(output, `msg="say \"hi\"\n"`) {
		t.Errorf("Expected escaped quote and newline:\n%s", output)
	}
}

func TestMetricsHandler(t *testing.T) {
	stats := NewStats()
	stats.RecordSuccess("t", parsedFixture(t), time.Millisecond)
	info := &MockInfoProvider{version: "1.0.0"}
	collector := NewCollector(info, "uuid", stats, DefaultCollectorConfig())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(collector)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("Expected text/plain content type, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "lemonmetrics_build_info") {
		t.Errorf("Expected build info metric in response:\n%s", w.Body.String())
	}
}

func TestMetricsHandlerRejectsPost(t *testing.T) {
	stats := NewStats()
	collector := NewCollector(&MockInfoProvider{}, "uuid", stats, DefaultCollectorConfig())

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(collector)(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}
