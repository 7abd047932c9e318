package timers

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler implements Service on top of a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	now       func() time.Time
}

// NewScheduler creates and starts a gocron-backed Service.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()
	return &Scheduler{scheduler: s, now: time.Now}, nil
}

// After schedules a one-shot job.
func (s *Scheduler) After(d time.Duration, fn func()) (Handle, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(s.now().Add(d))),
		gocron.NewTask(fn),
		gocron.WithName(fmt.Sprintf("after-%s", d)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create one-shot job: %w", err)
	}
	return &jobHandle{scheduler: s.scheduler, id: job.ID()}, nil
}

// Every schedules a repeating job. A run that is still executing when the
// next one is due causes that next run to be skipped rather than overlap.
func (s *Scheduler) Every(d time.Duration, fn func()) (Handle, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(d),
		gocron.NewTask(fn),
		gocron.WithName(fmt.Sprintf("every-%s", d)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create periodic job: %w", err)
	}
	return &jobHandle{scheduler: s.scheduler, id: job.ID()}, nil
}

// Jobs returns the number of jobs currently registered with gocron.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// Shutdown stops all jobs and waits for running ones to finish.
func (s *Scheduler) Shutdown() error {
	slog.Debug("Stopping timer scheduler")
	return s.scheduler.Shutdown()
}

type jobHandle struct {
	scheduler gocron.Scheduler
	id        uuid.UUID
	stopped   atomic.Bool
}

func (h *jobHandle) Stop() bool {
	if !h.stopped.CompareAndSwap(false, true) {
		return false
	}
	if err := h.scheduler.RemoveJob(h.id); err != nil {
		// One-shot jobs that already ran, or a scheduler that was shut
		// down, no longer know the id.
		if !errors.Is(err, gocron.ErrJobNotFound) {
			slog.Warn("Failed to remove timer job", "job_id", h.id.String(), "error", err)
		}
	}
	return true
}
