package metrics

import (
	"sync"
	"time"

	"github.com/lixrry/lemon-metrics/promparse"
)

// Result labels for collection outcomes
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Stats tracks collection activity for self-instrumentation.
// All methods are safe for concurrent use.
type Stats struct {
	mu             sync.RWMutex
	collections    map[string]int64 // result -> count
	samplesParsed  map[string]int64 // group -> cumulative sample count
	skippedLines   int64
	lastDuration   time.Duration
	lastCollection time.Time
	lastSource     string
}

// StatsSnapshot is a point-in-time copy of the recorded counters
type StatsSnapshot struct {
	Collections    map[string]int64
	SamplesParsed  map[string]int64
	SkippedLines   int64
	LastDuration   time.Duration
	LastCollection time.Time
	LastSource     string
}

// NewStats creates an empty stats recorder
func NewStats() *Stats {
	return &Stats{
		collections:   make(map[string]int64),
		samplesParsed: make(map[string]int64),
	}
}

// RecordSuccess records a completed collection and accumulates the
// per-group sample counts from the parsed result
func (s *Stats) RecordSuccess(source string, parsed *promparse.ParsedMetrics, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[ResultSuccess]++
	if parsed != nil {
		for group, count := range parsed.GroupCounts() {
			s.samplesParsed[group] += int64(count)
		}
		s.skippedLines += int64(parsed.SkippedLines)
	}
	s.lastDuration = duration
	s.lastCollection = time.Now()
	s.lastSource = source
}

// RecordFailure records a collection attempt that did not produce a snapshot
func (s *Stats) RecordFailure(source string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[ResultFailure]++
	s.lastDuration = duration
	s.lastSource = source
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collections := make(map[string]int64, len(s.collections))
	for k, v := range s.collections {
		collections[k] = v
	}
	samples := make(map[string]int64, len(s.samplesParsed))
	for k, v := range s.samplesParsed {
		samples[k] = v
	}

	return StatsSnapshot{
		Collections:    collections,
		SamplesParsed:  samples,
		SkippedLines:   s.skippedLines,
		LastDuration:   s.lastDuration,
		LastCollection: s.lastCollection,
		LastSource:     s.lastSource,
	}
}
