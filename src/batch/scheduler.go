// backend/src/batch/scheduler.go
package batch

import (
	"time"

	"github.com/username/assetfolio/backend/src/logger"
)

// Scheduler fires an injected job once a day at a fixed hour. Overlap
// prevention is owned by the job itself (the orchestrator skips when a
// run is active), so a trigger that lands mid-run is dropped rather
// than queued.
type Scheduler struct {
	hour int
	job  func() error
	stop chan struct{}
}

func NewScheduler(hour int, job func() error) *Scheduler {
	return &Scheduler{
		hour: hour,
		job:  job,
		stop: make(chan struct{}),
	}
}

// Start launches the scheduling loop in its own goroutine.
func (s *Scheduler) Start() {
	go s.loop()
	logger.L.Info("Batch scheduler started", "hour", s.hour)
}

// Stop ends the scheduling loop. An in-flight job is not interrupted.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) loop() {
	for {
		next := nextRun(time.Now(), s.hour)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			logger.L.Info("Scheduled batch trigger fired", "at", next.Format(time.RFC3339))
			if err := s.job(); err != nil {
				logger.L.Error("Scheduled batch run failed", "error", err)
			}
		case <-s.stop:
			timer.Stop()
			logger.L.Info("Batch scheduler stopped")
			return
		}
	}
}

// nextRun returns the next occurrence of the configured hour strictly
// after now. Triggers missed while a run was active are coalesced into
// the next day's occurrence.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
