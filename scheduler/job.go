// Package scheduler runs recurring background jobs on interval schedules.
package scheduler

import (
	"context"
	"math/rand"
	"time"
)

// Job is a recurring task. Run should respect context cancellation; the
// scheduler applies the configured per-job timeout to the context.
type Job interface {
	// Name returns the unique identifier for this job
	Name() string

	// Run executes one iteration of the job
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	// Next calculates the next run time after the given time
	Next(after time.Time) time.Time
}

// JobConfig holds per-job scheduling options.
type JobConfig struct {
	Enabled bool
	Timeout time.Duration // Maximum execution time (0 = no timeout)
}

// IntervalSchedule runs a job at a fixed interval, optionally spread out
// with random jitter so multiple instances don't fetch in lockstep.
type IntervalSchedule struct {
	interval time.Duration
	jitter   time.Duration
}

// NewIntervalSchedule creates a schedule that runs every interval.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{interval: interval}
}

// NewIntervalScheduleWithJitter creates a schedule that runs every
// interval plus random(0, jitter).
func NewIntervalScheduleWithJitter(interval, jitter time.Duration) *IntervalSchedule {
	return &IntervalSchedule{interval: interval, jitter: jitter}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(after time.Time) time.Time {
	next := after.Add(s.interval)
	if s.jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.jitter))))
	}
	return next
}
