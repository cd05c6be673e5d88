package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/config"
	"github.com/mamadbah2/farmer/internal/service/reminders"
)

const sweepTimeout = 2 * time.Minute

// ReminderChecker runs one vaccination reminder sweep.
type ReminderChecker interface {
	CheckDue(ctx context.Context) (reminders.Result, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	checker  ReminderChecker
	schedule string
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running the reminder sweep in the configured time zone.
func NewScheduler(cfg config.RemindersConfig, loc *time.Location, checker ReminderChecker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// Standard 5-field cron expressions, evaluated in loc.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		checker:  checker,
		schedule: cfg.CronSchedule,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.checkReminders); err != nil {
		return fmt.Errorf("schedule reminder sweep %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("reminder_schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) checkReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := s.checker.CheckDue(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err), zap.Int("created", res.Created))
		return
	}
	s.logger.Info("reminder sweep completed", zap.Int("due", res.Due), zap.Int("created", res.Created))
}
