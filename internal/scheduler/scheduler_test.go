package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mamadbah2/farmer/internal/config"
	"github.com/mamadbah2/farmer/internal/service/reminders"
)

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) CheckDue(context.Context) (reminders.Result, error) {
	c.calls.Add(1)
	return reminders.Result{Due: 1, Created: 1}, c.err
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(config.RemindersConfig{CronSchedule: "every morning"}, time.UTC, &countingChecker{}, nil)
	if err := s.Start(); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}

func TestStartRegistersSweep(t *testing.T) {
	checker := &countingChecker{}
	s := NewScheduler(config.RemindersConfig{CronSchedule: "0 7 * * *"}, time.UTC, checker, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one job, got %d", len(entries))
	}
	next := entries[0].Schedule.Next(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("next run %v, want %v", next, want)
	}
}

func TestCheckRemindersRunsSweep(t *testing.T) {
	checker := &countingChecker{err: errors.New("store down")}
	s := NewScheduler(config.RemindersConfig{CronSchedule: "0 7 * * *"}, nil, checker, nil)
	s.checkReminders()
	checker.err = nil
	s.checkReminders()
	if got := checker.calls.Load(); got != 2 {
		t.Fatalf("expected 2 sweeps, got %d", got)
	}
}
