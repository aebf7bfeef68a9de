package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lixrry/lemon-metrics/cache"
	"github.com/lixrry/lemon-metrics/promparse"
)

// mockFetcher implements MetricsFetcher for testing
type mockFetcher struct {
	target    string
	targetErr error
	body      string
	fetchErr  error
}

func (m *mockFetcher) SetTarget(rawURL string) error {
	if m.targetErr != nil {
		return m.targetErr
	}
	m.target = rawURL
	return nil
}

func (m *mockFetcher) Target() string { return m.target }

func (m *mockFetcher) Fetch(ctx context.Context) (string, error) {
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return m.body, nil
}

// mockTrigger implements JobTrigger for testing
type mockTrigger struct {
	triggered []string
	err       error
}

func (m *mockTrigger) RunJobNow(name string) error {
	if m.err != nil {
		return m.err
	}
	m.triggered = append(m.triggered, name)
	return nil
}

func populatedStore(t *testing.T) *cache.Store {
	t.Helper()
	parsed, err := promparse.Parse("http_requests_total 42\nprocess_cpu_seconds_total 1.5\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	store := cache.NewStore()
	store.Replace(&cache.Snapshot{
		Metrics:   parsed,
		Source:    "http://app:3000/metrics",
		FetchedAt: time.Now(),
	})
	return store
}

func TestMetricsHandlerNoSnapshot(t *testing.T) {
	store := cache.NewStore()

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	MetricsHandler(store)(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first collection, got %d", w.Code)
	}
}

func TestMetricsHandlerReturnsSnapshot(t *testing.T) {
	store := populatedStore(t)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	MetricsHandler(store)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var response struct {
		HTTPMetrics    []promparse.MetricSample `json:"httpMetrics"`
		ProcessMetrics []promparse.MetricSample `json:"processMetrics"`
		NodeMetrics    []promparse.MetricSample `json:"nodeMetrics"`
		CustomMetrics  []promparse.MetricSample `json:"customMetrics"`
		Source         string                   `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.HTTPMetrics) != 1 || len(response.ProcessMetrics) != 1 {
		t.Errorf("Unexpected group sizes: http=%d process=%d",
			len(response.HTTPMetrics), len(response.ProcessMetrics))
	}
	if response.Source != "http://app:3000/metrics" {
		t.Errorf("Expected source in payload, got %q", response.Source)
	}
	if response.NodeMetrics == nil || response.CustomMetrics == nil {
		t.Error("Empty groups should encode as arrays, not null")
	}
}

func TestMetricsHandlerRejectsPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/metrics", nil)
	w := httptest.NewRecorder()
	MetricsHandler(cache.NewStore())(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestSourceHandlerSuccess(t *testing.T) {
	fetcher := &mockFetcher{body: "http_requests_total 7\nnodejs_heap_size_used_bytes 1024\n"}
	store := cache.NewStore()

	req := httptest.NewRequest(http.MethodPost, "/api/source",
		strings.NewReader(`{"url":"http://app:3000/metrics"}`))
	w := httptest.NewRecorder()
	SourceHandler(fetcher, store, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fetcher.Target() != "http://app:3000/metrics" {
		t.Errorf("Expected target to be stored, got %q", fetcher.Target())
	}

	snapshot := store.Current()
	if snapshot == nil {
		t.Fatal("Expected snapshot to be installed")
	}
	if snapshot.Metrics.TotalSamples() != 2 {
		t.Errorf("Expected 2 samples, got %d", snapshot.Metrics.TotalSamples())
	}
	if !strings.Contains(w.Body.String(), "httpMetrics") {
		t.Errorf("Expected parsed payload in response:\n%s", w.Body.String())
	}
}

func TestSourceHandlerUpstreamFailure(t *testing.T) {
	fetcher := &mockFetcher{fetchErr: errors.New("connection refused")}
	store := cache.NewStore()

	req := httptest.NewRequest(http.MethodPost, "/api/source",
		strings.NewReader(`{"url":"http://down:3000/metrics"}`))
	w := httptest.NewRecorder()
	SourceHandler(fetcher, store, nil)(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for upstream failure, got %d", w.Code)
	}
	if store.Current() != nil {
		t.Error("Failed fetch should not install a snapshot")
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Expected JSON error body: %v", err)
	}
	if !strings.Contains(response["error"], "connection refused") {
		t.Errorf("Expected upstream error in body, got %v", response)
	}
}

func TestSourceHandlerInvalidURL(t *testing.T) {
	fetcher := &mockFetcher{targetErr: errors.New("invalid target URL")}

	req := httptest.NewRequest(http.MethodPost, "/api/source",
		strings.NewReader(`{"url":"not a url"}`))
	w := httptest.NewRecorder()
	SourceHandler(fetcher, cache.NewStore(), nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid URL, got %d", w.Code)
	}
}

func TestSourceHandlerMissingURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/source", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	SourceHandler(&mockFetcher{}, cache.NewStore(), nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing url, got %d", w.Code)
	}
}

func TestSourceHandlerInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/source", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	SourceHandler(&mockFetcher{}, cache.NewStore(), nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestImportHandlerSuccess(t *testing.T) {
	store := cache.NewStore()

	body := `# HELP mw_custom_gauge A custom gauge
# TYPE mw_custom_gauge gauge
mw_custom_gauge 3.5
broken line here
`
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	w := httptest.NewRecorder()
	ImportHandler(store, nil)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	snapshot := store.Current()
	if snapshot == nil {
		t.Fatal("Expected snapshot to be installed")
	}
	if snapshot.Source != ImportSource {
		t.Errorf("Expected source %q, got %q", ImportSource, snapshot.Source)
	}
	if len(snapshot.Metrics.CustomMetrics) != 1 {
		t.Errorf("Expected 1 custom metric, got %d", len(snapshot.Metrics.CustomMetrics))
	}
	// Malformed line is skipped, not fatal
	if snapshot.Metrics.SkippedLines != 1 {
		t.Errorf("Expected 1 skipped line, got %d", snapshot.Metrics.SkippedLines)
	}
}

func TestImportHandlerNonText(t *testing.T) {
	store := cache.NewStore()

	req := httptest.NewRequest(http.MethodPost, "/api/import",
		strings.NewReader("metric_one 1\n\xff\xfe\x00"))
	w := httptest.NewRecorder()
	ImportHandler(store, nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-text input, got %d", w.Code)
	}
	if store.Current() != nil {
		t.Error("Non-text import should not install a snapshot")
	}
}

func TestRefreshHandler(t *testing.T) {
	trigger := &mockTrigger{}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	w := httptest.NewRecorder()
	RefreshHandler(trigger, "refresh-metrics")(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}
	if len(trigger.triggered) != 1 || trigger.triggered[0] != "refresh-metrics" {
		t.Errorf("Expected refresh-metrics to be triggered, got %v", trigger.triggered)
	}
}

func TestRefreshHandlerTriggerFailure(t *testing.T) {
	trigger := &mockTrigger{err: errors.New("scheduler not started")}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	w := httptest.NewRecorder()
	RefreshHandler(trigger, "refresh-metrics")(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestRefreshHandlerRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
	w := httptest.NewRecorder()
	RefreshHandler(&mockTrigger{}, "refresh-metrics")(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestLastUpdatedHandler(t *testing.T) {
	store := populatedStore(t)

	req := httptest.NewRequest(http.MethodGet, "/api/lastupdated", nil)
	w := httptest.NewRecorder()
	LastUpdatedHandler(store)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if _, err := time.Parse(time.RFC3339, w.Body.String()); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q: %v", w.Body.String(), err)
	}
}

func TestLastUpdatedHandlerNoSnapshot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/lastupdated", nil)
	w := httptest.NewRecorder()
	LastUpdatedHandler(cache.NewStore())(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first collection, got %d", w.Code)
	}
}
