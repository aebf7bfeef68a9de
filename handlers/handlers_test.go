package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lixrry/lemon-metrics/debug"
)

type testInfoProvider struct{}

func (p *testInfoProvider) GetInfo() interface{} {
	return map[string]string{
		"service": "lemon-metrics",
		"version": "1.0.0",
	}
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	HealthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "OK") {
		t.Errorf("Expected OK in body, got %q", w.Body.String())
	}
}

func TestInfoHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	w := httptest.NewRecorder()

	InfoHandler(&testInfoProvider{})(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var info map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info["service"] != "lemon-metrics" {
		t.Errorf("Expected service name in info, got %v", info)
	}
}

func TestDebugMetricsHandler(t *testing.T) {
	cfg := debug.NewDebugConfig(true)
	cfg.RecordRequest("/api/metrics", 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/debug/metrics", nil)
	w := httptest.NewRecorder()

	DebugMetricsHandler(cfg)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["request_count"].(float64) != 1 {
		t.Errorf("Expected request_count 1, got %v", response["request_count"])
	}
	endpoints := response["endpoints"].(map[string]interface{})
	if _, ok := endpoints["/api/metrics"]; !ok {
		t.Errorf("Expected /api/metrics in endpoints, got %v", endpoints)
	}
}

func TestDebugMetricsHandlerDisabled(t *testing.T) {
	cfg := debug.NewDebugConfig(false)

	req := httptest.NewRequest(http.MethodGet, "/debug/metrics", nil)
	w := httptest.NewRecorder()

	DebugMetricsHandler(cfg)(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 when debug disabled, got %d", w.Code)
	}
}

func TestDebugResetHandler(t *testing.T) {
	cfg := debug.NewDebugConfig(true)
	cfg.RecordRequest("/api/metrics", 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/debug/reset", nil)
	w := httptest.NewRecorder()
	DebugResetHandler(cfg)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if cfg.GetMetrics().RequestCount != 0 {
		t.Error("Expected metrics to be cleared after reset")
	}
}

func TestRegisterDebugHandlersSkippedWhenDisabled(t *testing.T) {
	mux := http.NewServeMux()
	RegisterDebugHandlers(mux, debug.NewDebugConfig(false))

	req := httptest.NewRequest(http.MethodGet, "/debug/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unregistered handler, got %d", w.Code)
	}
}
