package accrual

import (
	"sync"
	"testing"
	"time"

	"investment-platform/internal/events"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	calc := NewCalculator(nil, DailyPolicy(), events.NewEventBus())
	return NewScheduler(calc, nil, nil, SchedulerConfig{RunHourUTC: 2})
}

func TestSchedulerDueAt(t *testing.T) {
	s := newTestScheduler(t)

	beforeHour := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	afterHour := time.Date(2026, 3, 10, 2, 5, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 11, 2, 5, 0, 0, time.UTC)

	if s.dueAt(beforeHour) {
		t.Error("daily batch must not run before the configured hour")
	}
	if !s.dueAt(afterHour) {
		t.Error("daily batch should be due after the configured hour")
	}

	s.markRun(s.calculator.policy.PeriodKey(afterHour))

	if s.dueAt(afterHour) {
		t.Error("a period that already ran must not be due again")
	}
	if !s.dueAt(nextDay) {
		t.Error("the next day's period should be due")
	}
}

func TestSchedulerMarkRunConcurrent(t *testing.T) {
	// The admin trigger and the ticker loop touch the last-run key from
	// different goroutines; this fails under -race if the key is
	// unguarded.
	s := newTestScheduler(t)
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(day int) {
			defer wg.Done()
			s.markRun(s.calculator.policy.PeriodKey(now.AddDate(0, 0, day)))
		}(i)
		go func() {
			defer wg.Done()
			s.dueAt(now)
		}()
	}
	wg.Wait()

	if s.dueAt(now.AddDate(0, 0, 30)) != true {
		t.Error("a never-run period should still be due")
	}
}
