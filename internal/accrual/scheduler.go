package accrual

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/logging"
)

// BatchLocker guards against concurrent batch runs across instances.
// Implemented by the cache package with a Redis SetNX lock.
type BatchLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// FailureNotifier receives batch summaries that contained failures.
type FailureNotifier interface {
	NotifyBatchFailures(ctx context.Context, summary *BatchSummary)
}

// SchedulerConfig controls the batch loop.
type SchedulerConfig struct {
	TickInterval time.Duration
	RunHourUTC   int
	MaxRetries   int
	RetryDelay   time.Duration
	LockTTL      time.Duration
}

// Scheduler runs accrual batches on a timer. One batch visits every
// accruable investment exactly once; per-investment failures are isolated
// and retried, never aborting the rest of the batch.
type Scheduler struct {
	calculator *Calculator
	repo       *database.Repository
	locker     BatchLocker
	notifier   FailureNotifier
	bus        *events.EventBus
	cfg        SchedulerConfig
	logger     *logging.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastRunKey string // guarded by mu; RunBatch is reachable from the admin handler
}

const batchLockKey = "accrual:batch_lock"

// NewScheduler creates an accrual scheduler.
func NewScheduler(calculator *Calculator, repo *database.Repository, locker BatchLocker, cfg SchedulerConfig) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}

	return &Scheduler{
		calculator: calculator,
		repo:       repo,
		locker:     locker,
		bus:        calculator.bus,
		cfg:        cfg,
		logger:     logging.WithComponent("accrual-scheduler"),
	}
}

// SetFailureNotifier wires the alert sink for failed batches.
func (s *Scheduler) SetFailureNotifier(n FailureNotifier) {
	s.notifier = n
}

// Start begins the batch loop. Idempotent: a second Start is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.wg.Add(1)

	go s.loop()

	s.logger.Info("accrual scheduler started",
		"tick_interval", s.cfg.TickInterval.String(), "run_hour_utc", s.cfg.RunHourUTC)
}

// Stop halts the loop and waits for an in-flight batch to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("accrual scheduler stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			if !s.dueAt(now.UTC()) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
			if _, err := s.RunBatch(ctx, now.UTC()); err != nil {
				s.logger.Error("scheduled batch failed", "error", err)
			}
			cancel()
		}
	}
}

// dueAt reports whether a batch should run at now. The daily policy runs
// once per day at the configured hour; interval policies run once per
// period bucket.
func (s *Scheduler) dueAt(now time.Time) bool {
	key := s.calculator.policy.PeriodKey(now)

	s.mu.Lock()
	ran := key == s.lastRunKey
	s.mu.Unlock()
	if ran {
		return false
	}
	if s.calculator.policy.cadence == "daily" && now.Hour() < s.cfg.RunHourUTC {
		return false
	}
	return true
}

// RunBatch accrues one period of profit for every accruable investment.
// Safe to call manually at any time: already-credited investments are
// skipped, not double-credited. Also the entry point for the admin
// trigger, so manual and scheduled runs share one code path.
func (s *Scheduler) RunBatch(ctx context.Context, asOf time.Time) (*BatchSummary, error) {
	periodKey := s.calculator.policy.PeriodKey(asOf)

	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, batchLockKey, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("batch lock unavailable, proceeding without it", "error", err)
		} else if !acquired {
			return nil, &faults.AlreadyProcessedError{Key: "batch/" + periodKey}
		} else {
			defer s.locker.ReleaseLock(ctx, batchLockKey)
		}
	}

	summary := &BatchSummary{
		PeriodKey: periodKey,
		AsOf:      asOf,
		StartedAt: time.Now().UTC(),
	}

	investments, err := s.repo.ListAccruableInvestments(ctx, asOf)
	if err != nil {
		return nil, err
	}
	summary.Total = len(investments)

	log := logging.BatchContext(periodKey, summary.Total)
	log.Info("accrual batch started")

	for i := range investments {
		inv := &investments[i]

		record, err := s.accrueWithRetry(ctx, inv.ID, asOf)
		switch {
		case err == nil:
			summary.Succeeded++
			summary.TotalProfitDistributed += record.ProfitAmount
		case faults.IsAlreadyProcessed(err):
			summary.Skipped++
		default:
			summary.Failed++
			summary.Failures = append(summary.Failures, FailureEntry{
				InvestmentID: inv.ID,
				Error:        err.Error(),
				Attempts:     s.cfg.MaxRetries,
			})
			log.Error("accrual failed", "investment_id", inv.ID, "error", err)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	s.markRun(periodKey)

	if err := s.persistBatch(ctx, summary); err != nil {
		log.Error("failed to persist batch summary", "error", err)
	}

	log.WithDuration(summary.FinishedAt.Sub(summary.StartedAt)).Info("accrual batch finished",
		"succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped,
		"distributed", fmt.Sprintf("%.2f", summary.TotalProfitDistributed))

	s.bus.PublishBatchCompleted(periodKey, summary.Total, summary.Succeeded,
		summary.Failed, summary.Skipped, summary.TotalProfitDistributed)

	if summary.Failed > 0 && s.notifier != nil {
		s.notifier.NotifyBatchFailures(ctx, summary)
	}

	return summary, nil
}

// markRun records the period a batch just covered so the ticker does not
// schedule it again.
func (s *Scheduler) markRun(periodKey string) {
	s.mu.Lock()
	s.lastRunKey = periodKey
	s.mu.Unlock()
}

// accrueWithRetry retries only transient storage failures. Domain errors
// (invalid state, already processed) surface immediately.
func (s *Scheduler) accrueWithRetry(ctx context.Context, investmentID string, asOf time.Time) (*database.ProfitRecord, error) {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		record, err := s.calculator.Accrue(ctx, investmentID, asOf)
		if err == nil {
			return record, nil
		}
		if !faults.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt < s.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
	}

	return nil, lastErr
}

func (s *Scheduler) persistBatch(ctx context.Context, summary *BatchSummary) error {
	failures, err := json.Marshal(summary.Failures)
	if err != nil {
		failures = []byte("[]")
	}

	return s.repo.InsertAccrualBatch(ctx, &database.AccrualBatch{
		PeriodKey:              summary.PeriodKey,
		AsOf:                   summary.AsOf,
		Total:                  summary.Total,
		Succeeded:              summary.Succeeded,
		Failed:                 summary.Failed,
		Skipped:                summary.Skipped,
		TotalProfitDistributed: summary.TotalProfitDistributed,
		Failures:               failures,
		StartedAt:              summary.StartedAt,
		FinishedAt:             summary.FinishedAt,
	})
}

// BatchHistory returns recent batch summaries.
func (s *Scheduler) BatchHistory(ctx context.Context, limit int) ([]database.AccrualBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListAccrualBatches(ctx, limit)
}
