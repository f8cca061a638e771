package preview

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Scheduler requests rebuilds on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler registers a duration job that calls request every interval.
func NewScheduler(interval time.Duration, request func(trigger string)) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(request, TriggerSchedule),
		gocron.WithName("scheduled-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled rebuild job: %w", err)
	}
	slog.Info("Scheduled rebuilds enabled", logfields.Schedule(interval.String()))
	return &Scheduler{scheduler: s}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() { s.scheduler.Start() }

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error { return s.scheduler.Shutdown() }
