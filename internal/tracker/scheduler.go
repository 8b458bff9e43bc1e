package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the tracker periodically.
type Scheduler struct {
	tracker  *Tracker
	interval time.Duration
	cron     *cron.Cron
	log      *zap.SugaredLogger

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

// NewScheduler creates a scheduler that runs t every interval. Intervals
// under the tracker's minimum refresh interval are raised to it.
func NewScheduler(t *Tracker, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if interval < t.minInterval {
		interval = t.minInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		tracker:  t,
		interval: interval,
		cron:     cron.New(),
		log:      log,
	}
}

// Interval returns the effective refresh period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Schedule returns the cron spec used for the refresh job.
func (s *Scheduler) Schedule() string {
	return fmt.Sprintf("@every %s", s.interval)
}

// Start begins the scheduled runs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(s.Schedule(), s.runScheduled)
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.entry = id
	s.running = true
	s.cron.Start()
	s.log.Infow("Auto-refresh started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cron.Remove(s.entry)
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Infow("Auto-refresh stopped")
}

// Running reports whether the scheduler is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.tracker.Run(ctx); err != nil {
		s.log.Errorw("Scheduled refresh failed", "error", err)
	}
}
