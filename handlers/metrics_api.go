package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/lixrry/lemon-metrics/cache"
	"github.com/lixrry/lemon-metrics/promparse"
)

// ImportSource is the snapshot source recorded for text imported via /api/import
const ImportSource = "import"

// MetricsFetcher defines the interface for fetching exposition text from a target
type MetricsFetcher interface {
	SetTarget(rawURL string) error
	Target() string
	Fetch(ctx context.Context) (string, error)
}

// StatsRecorder defines the interface for recording collection outcomes
type StatsRecorder interface {
	RecordSuccess(source string, parsed *promparse.ParsedMetrics, duration time.Duration)
	RecordFailure(source string, duration time.Duration)
}

// JobTrigger defines the interface for triggering scheduled jobs on demand
type JobTrigger interface {
	RunJobNow(name string) error
}

// snapshotResponse is the JSON payload returned for parsed metrics
type snapshotResponse struct {
	*promparse.ParsedMetrics
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func writeSnapshot(w http.ResponseWriter, snapshot *cache.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := json.NewEncoder(w).Encode(snapshotResponse{
		ParsedMetrics: snapshot.Metrics,
		Source:        snapshot.Source,
		FetchedAt:     snapshot.FetchedAt,
	}); err != nil {
		log.Printf("Error encoding metrics response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Printf("Error encoding error response: %v", err)
	}
}

// MetricsHandler handles GET /api/metrics - returns the current snapshot.
// Responds 404 until a first successful collection has installed a snapshot.
func MetricsHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := store.Current()
		if snapshot == nil {
			writeJSONError(w, "No metrics collected yet", http.StatusNotFound)
			return
		}

		writeSnapshot(w, snapshot)
	}
}

// SourceHandler handles POST /api/source - sets the scrape target and performs
// a synchronous fetch, parse and cache replace.
//
// Request format:
//
//	POST /api/source
//	Content-Type: application/json
//	{
//	  "url": "http://localhost:3000/metrics"
//	}
//
// An unreachable or non-200 target responds 502 with a JSON error so the
// caller can surface the failure directly.
func SourceHandler(fetcher MetricsFetcher, store *cache.Store, stats StatsRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var request struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeJSONError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if request.URL == "" {
			writeJSONError(w, "url is required", http.StatusBadRequest)
			return
		}

		if err := fetcher.SetTarget(request.URL); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()

		body, err := fetcher.Fetch(r.Context())
		if err != nil {
			log.Printf("[api] Fetch from %s failed: %v", request.URL, err)
			if stats != nil {
				stats.RecordFailure(request.URL, time.Since(start))
			}
			writeJSONError(w, err.Error(), http.StatusBadGateway)
			return
		}

		parsed, err := promparse.Parse(body)
		if err != nil {
			log.Printf("[api] Response from %s is not parseable: %v", request.URL, err)
			if stats != nil {
				stats.RecordFailure(request.URL, time.Since(start))
			}
			writeJSONError(w, err.Error(), http.StatusBadGateway)
			return
		}

		snapshot := &cache.Snapshot{
			Metrics:   parsed,
			Source:    request.URL,
			FetchedAt: time.Now(),
		}
		store.Replace(snapshot)
		if stats != nil {
			stats.RecordSuccess(request.URL, parsed, time.Since(start))
		}

		writeSnapshot(w, snapshot)
	}
}

// ImportHandler handles POST /api/import - parses raw exposition text from the
// request body and installs it as the current snapshot.
// Non-text input responds 400; unparseable lines are skipped, not fatal.
func ImportHandler(store *cache.Store, stats StatsRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		defer func() {
			if err := r.Body.Close(); err != nil {
				log.Printf("Warning: failed to close request body: %v", err)
			}
		}()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		start := time.Now()

		parsed, err := promparse.Parse(string(body))
		if err != nil {
			if stats != nil {
				stats.RecordFailure(ImportSource, time.Since(start))
			}
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		snapshot := &cache.Snapshot{
			Metrics:   parsed,
			Source:    ImportSource,
			FetchedAt: time.Now(),
		}
		store.Replace(snapshot)
		if stats != nil {
			stats.RecordSuccess(ImportSource, parsed, time.Since(start))
		}

		writeSnapshot(w, snapshot)
	}
}

// RefreshHandler handles POST /api/refresh - triggers the refresh job for the
// current target and responds 202 without waiting for it to finish.
func RefreshHandler(trigger JobTrigger, jobName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if trigger == nil {
			http.Error(w, "Scheduler not initialized", http.StatusServiceUnavailable)
			return
		}

		if err := trigger.RunJobNow(jobName); err != nil {
			log.Printf("[api] Failed to trigger job %s: %v", jobName, err)
			writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status": "triggered",
			"job":    jobName,
		}); err != nil {
			log.Printf("Error encoding refresh response: %v", err)
		}
	}
}

// RegisterMetricsAPIHandlers registers the metrics API endpoints on the provided mux
func RegisterMetricsAPIHandlers(mux *http.ServeMux, fetcher MetricsFetcher, store *cache.Store, stats StatsRecorder, trigger JobTrigger, refreshJobName string) {
	mux.HandleFunc("/api/metrics", MetricsHandler(store))
	mux.HandleFunc("/api/source", SourceHandler(fetcher, store, stats))
	mux.HandleFunc("/api/import", ImportHandler(store, stats))
	mux.HandleFunc("/api/refresh", RefreshHandler(trigger, refreshJobName))
	mux.HandleFunc("/api/lastupdated", LastUpdatedHandler(store))
	log.Println("Metrics API handlers registered at /api")
}
