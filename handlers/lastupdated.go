package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lixrry/lemon-metrics/cache"
)

// LastUpdatedHandler returns the timestamp of the most recent snapshot
//
// Response format: Plain text timestamp (RFC3339 format)
// Example: 2026-08-29T17:30:45Z
func LastUpdatedHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		lastUpdated := store.LastUpdated()
		if lastUpdated.IsZero() {
			http.Error(w, "No metrics collected yet", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		if _, err := fmt.Fprint(w, lastUpdated.UTC().Format(time.RFC3339)); err != nil {
			log.Printf("Error writing response: %v", err)
		}
	}
}
