package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// scheduledJob pairs a job with its schedule and options.
type scheduledJob struct {
	job      Job
	schedule Schedule
	config   JobConfig

	mu      sync.Mutex
	nextRun time.Time
}

// Scheduler owns a set of jobs and runs each on its own schedule. Jobs are
// registered before Start; Stop waits for in-flight runs to finish.
type Scheduler struct {
	mu     sync.RWMutex
	jobs   map[string]*scheduledJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler with no jobs.
func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*scheduledJob),
	}
}

// AddJob registers a job. A disabled job is silently skipped; registering
// the same name twice is an error.
func (s *Scheduler) AddJob(job Job, schedule Schedule, config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if !config.Enabled {
		log.Printf("[scheduler] Job %s is disabled, skipping", name)
		return nil
	}

	s.jobs[name] = &scheduledJob{
		job:      job,
		schedule: schedule,
		config:   config,
		nextRun:  schedule.Next(time.Now()),
	}

	log.Printf("[scheduler] Registered job: %s", name)
	return nil
}

// Start launches one goroutine per registered job. It can be called once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for name, sj := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(name, sj)
	}
	count := len(s.jobs)
	s.mu.Unlock()

	log.Printf("[scheduler] Started with %d jobs", count)
	return nil
}

// runLoop sleeps until each scheduled run, executes, and reschedules.
func (s *Scheduler) runLoop(name string, sj *scheduledJob) {
	defer s.wg.Done()

	for {
		sj.mu.Lock()
		next := sj.nextRun
		sj.mu.Unlock()

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.execute(name, sj)

		sj.mu.Lock()
		sj.nextRun = sj.schedule.Next(time.Now())
		sj.mu.Unlock()
	}
}

// execute runs one iteration of a job with its timeout applied.
func (s *Scheduler) execute(name string, sj *scheduledJob) {
	ctx := s.ctx
	if sj.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, sj.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := sj.job.Run(ctx)
	duration := time.Since(start)

	if err != nil {
		log.Printf("[scheduler] Job %s failed after %v: %v", name, duration, err)
	} else {
		log.Printf("[scheduler] Job %s completed in %v", name, duration)
	}
}

// RunJobNow triggers an immediate out-of-schedule execution (non-blocking).
// The regular schedule is unaffected.
func (s *Scheduler) RunJobNow(name string) error {
	s.mu.RLock()
	sj, exists := s.jobs[name]
	started := s.ctx != nil
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	if !started {
		return fmt.Errorf("scheduler not started")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[scheduler] Manually executing job: %s", name)
		s.execute(name, sj)
	}()

	return nil
}

// NextRun returns the next scheduled run time for a job.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	s.mu.RLock()
	sj, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	sj.mu.Lock()
	defer sj.mu.Unlock()
	return sj.nextRun, nil
}

// Jobs returns the names of all registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Stop cancels all jobs and waits for running ones to complete, with a
// grace period.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[scheduler] All jobs stopped")
	case <-time.After(30 * time.Second):
		log.Printf("[scheduler] Timeout waiting for jobs to stop")
	}

	return nil
}
