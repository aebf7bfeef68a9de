// Package cache holds the most recent parse result for the dashboard.
// Each successful collection produces a fresh immutable snapshot that
// atomically replaces the previous one; readers never see a partial update.
package cache

import (
	"log"
	"sync"
	"time"

	"github.com/lixrry/lemon-metrics/promparse"
)

// Snapshot is one complete collection: the parsed metrics plus where and
// when they came from. Source is the target URL, or "import" for text
// submitted through the file-import endpoint.
type Snapshot struct {
	Metrics   *promparse.ParsedMetrics `json:"metrics"`
	Source    string                   `json:"source"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

// Store keeps the latest snapshot behind a lock. The zero Store is not
// usable; create one with NewStore.
type Store struct {
	mu       sync.RWMutex
	current  *Snapshot
	replaced int64
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a new snapshot as the current one.
func (s *Store) Replace(snapshot *Snapshot) {
	if snapshot == nil || snapshot.Metrics == nil {
		log.Println("[cache] Ignoring nil snapshot")
		return
	}

	s.mu.Lock()
	s.current = snapshot
	s.replaced++
	s.mu.Unlock()

	log.Printf("[cache] Snapshot replaced: source=%s samples=%d skipped=%d",
		snapshot.Source, snapshot.Metrics.TotalSamples(), snapshot.Metrics.SkippedLines)
}

// Current returns the latest snapshot, or nil when nothing has been
// collected yet. The snapshot is shared and must not be mutated.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LastUpdated returns when the current snapshot was collected. The zero
// time means no collection has happened.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return time.Time{}
	}
	return s.current.FetchedAt
}

// ReplaceCount returns how many snapshots have been installed since start.
func (s *Store) ReplaceCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaced
}
