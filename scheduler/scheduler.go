package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autoria-scraper/config"
	"autoria-scraper/utils"
)

// Job is a task run once a day at a fixed local time.
type Job struct {
	Name string
	At   string // "HH:MM", 24h
	Run  func(ctx context.Context) error

	hour, minute int
}

// Scheduler runs daily jobs until its context is cancelled. Each job has its
// own goroutine, so a long crawl does not delay the dump.
type Scheduler struct {
	jobs   []*Job
	logger *utils.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func New(logger *utils.Logger) *Scheduler {
	return &Scheduler{logger: logger, now: time.Now}
}

// Add registers a job. at must be "HH:MM".
func (s *Scheduler) Add(name, at string, run func(ctx context.Context) error) error {
	if !config.ValidTimeOfDay(at) {
		return fmt.Errorf("%w: job %q time %q must be in HH:MM format", config.ErrInvalidConfig, name, at)
	}
	t, _ := time.Parse("15:04", at)
	s.jobs = append(s.jobs, &Job{Name: name, At: at, Run: run, hour: t.Hour(), minute: t.Minute()})
	return nil
}

// Run blocks until ctx is cancelled and every running job has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, job := range s.jobs {
		s.logger.Info("[scheduler] %s scheduled daily at %s, next run %s",
			job.Name, job.At, NextRun(s.now(), job.hour, job.minute).Format("2006-01-02 15:04"))

		s.wg.Add(1)
		go func(job *Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}

	<-ctx.Done()
	s.logger.Info("[scheduler] Shutting down, waiting for running jobs...")
	s.wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	for {
		now := s.now()
		timer := time.NewTimer(NextRun(now, job.hour, job.minute).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.logger.Info("[scheduler] Starting scheduled %s task", job.Name)
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("[scheduler] %s failed after %s: %v", job.Name, time.Since(start).Round(time.Second), err)
			continue
		}
		s.logger.Info("[scheduler] %s finished in %s", job.Name, time.Since(start).Round(time.Second))
	}
}

// NextRun returns the first time after now that falls on hour:minute in
// now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
