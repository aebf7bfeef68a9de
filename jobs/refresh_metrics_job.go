// Package jobs contains the background jobs run by the lemon-metrics scheduler.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lixrry/lemon-metrics/cache"
	"github.com/lixrry/lemon-metrics/promparse"
	"github.com/lixrry/lemon-metrics/scrape"
)

// FetcherInterface defines the interface for fetching raw exposition text
type FetcherInterface interface {
	Target() string
	Fetch(ctx context.Context) (string, error)
}

// StatsInterface defines the interface for recording collection outcomes
type StatsInterface interface {
	RecordSuccess(source string, parsed *promparse.ParsedMetrics, duration time.Duration)
	RecordFailure(source string, duration time.Duration)
}

// RefreshMetricsJob fetches the configured target, parses the response and
// replaces the cached snapshot
type RefreshMetricsJob struct {
	fetcher FetcherInterface
	store   *cache.Store
	stats   StatsInterface
}

// NewRefreshMetricsJob creates a new refresh metrics job
func NewRefreshMetricsJob(fetcher FetcherInterface, store *cache.Store, stats StatsInterface) *RefreshMetricsJob {
	if fetcher == nil {
		panic("RefreshMetricsJob requires a non-nil fetcher")
	}
	if store == nil {
		panic("RefreshMetricsJob requires a non-nil store")
	}

	return &RefreshMetricsJob{
		fetcher: fetcher,
		store:   store,
		stats:   stats,
	}
}

func (j *RefreshMetricsJob) Name() string {
	return "refresh-metrics"
}

func (j *RefreshMetricsJob) Run(ctx context.Context) error {
	target := j.fetcher.Target()
	if target == "" {
		log.Printf("[refresh-metrics] No target configured, skipping refresh")
		return nil
	}

	start := time.Now()

	body, err := j.fetcher.Fetch(ctx)
	if err != nil {
		j.recordFailure(target, start)
		return fmt.Errorf("failed to fetch %s: %w", target, err)
	}

	parsed, err := promparse.Parse(body)
	if err != nil {
		j.recordFailure(target, start)
		return fmt.Errorf("failed to parse response from %s: %w", target, err)
	}

	duration := time.Since(start)

	j.store.Replace(&cache.Snapshot{
		Metrics:   parsed,
		Source:    target,
		FetchedAt: time.Now(),
	})

	if j.stats != nil {
		j.stats.RecordSuccess(target, parsed, duration)
	}

	log.Printf("[refresh-metrics] Refreshed from %s: %d samples, %d skipped lines in %v",
		target, parsed.TotalSamples(), parsed.SkippedLines, duration)
	return nil
}

func (j *RefreshMetricsJob) recordFailure(target string, start time.Time) {
	if j.stats != nil {
		j.stats.RecordFailure(target, time.Since(start))
	}
}

// Ensure scrape.Scraper implements FetcherInterface
var _ FetcherInterface = (*scrape.Scraper)(nil)
