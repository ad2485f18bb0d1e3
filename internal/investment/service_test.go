package investment

import (
	"context"
	"testing"
	"time"

	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/logging"
)

type fakeStore struct {
	plans       map[int64]*database.Plan
	investments map[string]*database.Investment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:       make(map[int64]*database.Plan),
		investments: make(map[string]*database.Investment),
	}
}

func (f *fakeStore) CreateInvestment(_ context.Context, inv *database.Investment) error {
	cp := *inv
	f.investments[inv.ID] = &cp
	return nil
}

func (f *fakeStore) GetInvestmentByID(_ context.Context, id string) (*database.Investment, error) {
	inv, ok := f.investments[id]
	if !ok {
		return nil, &faults.NotFoundError{Entity: "investment", ID: id}
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) GetPlanByID(_ context.Context, planID int64) (*database.Plan, error) {
	p, ok := f.plans[planID]
	if !ok {
		return nil, &faults.NotFoundError{Entity: "plan", ID: ""}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ActivateInvestment(_ context.Context, id string, startDate, endDate time.Time, rate float64) error {
	inv, ok := f.investments[id]
	if !ok {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	inv.Status = database.InvestmentActive
	inv.StartDate = startDate
	inv.EndDate = endDate
	inv.DailyRatePercent = rate
	return nil
}

func (f *fakeStore) UpdateInvestmentStatus(_ context.Context, id, status string, pausedAt *time.Time, pausedReason *string) error {
	inv, ok := f.investments[id]
	if !ok {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	inv.Status = status
	inv.PausedAt = pausedAt
	inv.PausedReason = pausedReason
	return nil
}

func (f *fakeStore) ListInvestmentsByUser(_ context.Context, userID string) ([]database.Investment, error) {
	var out []database.Investment
	for _, inv := range f.investments {
		if inv.UserID == userID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func newTestService(store *fakeStore, now time.Time) *Service {
	s := NewService(store, events.NewEventBus())
	s.logger = logging.New(&logging.Config{Level: "FATAL", Output: "stderr"})
	s.now = func() time.Time { return now }
	return s
}

func seedPlan(store *fakeStore) {
	store.plans[1] = &database.Plan{
		ID:                    1,
		Name:                  "Growth 30",
		TotalReturnPercentage: 15.0,
		DurationDays:          30,
		MinInvestment:         100,
		MaxInvestment:         50000,
		Active:                true,
	}
}

func TestCreateInvestment(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	inv, err := svc.Create(context.Background(), "user-1", 1, 5000, "USD", "pay-123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if inv.Status != database.InvestmentPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	if inv.Principal != 5000 {
		t.Errorf("principal = %v, want 5000", inv.Principal)
	}
	if !floatEquals(inv.DailyRatePercent, 0.5) {
		t.Errorf("daily rate = %v, want 0.5", inv.DailyRatePercent)
	}
	if _, ok := store.investments[inv.ID]; !ok {
		t.Error("investment not persisted")
	}
}

func TestCreateInvestmentValidation(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	inactive := *store.plans[1]
	inactive.ID = 2
	inactive.Active = false
	store.plans[2] = &inactive

	svc := newTestService(store, time.Now())
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  string
		planID  int64
		amount  float64
		check   func(error) bool
		errName string
	}{
		{"empty user", "", 1, 5000, faults.IsValidation, "validation"},
		{"zero amount", "user-1", 1, 0, faults.IsValidation, "validation"},
		{"below plan minimum", "user-1", 1, 50, faults.IsValidation, "validation"},
		{"above plan maximum", "user-1", 1, 100000, faults.IsValidation, "validation"},
		{"inactive plan", "user-1", 2, 5000, faults.IsValidation, "validation"},
		{"unknown plan", "user-1", 99, 5000, faults.IsNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.userID, tt.planID, tt.amount, "USD", "")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("expected %s error, got %T: %v", tt.errName, err, err)
			}
		})
	}
}

func TestActivateStampsWindow(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	ctx := context.Background()

	inv, err := svc.Create(ctx, "user-1", 1, 5000, "USD", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	activated, err := svc.Activate(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if activated.Status != database.InvestmentActive {
		t.Errorf("status = %q, want active", activated.Status)
	}
	if !activated.StartDate.Equal(now) {
		t.Errorf("start = %v, want %v", activated.StartDate, now)
	}
	wantEnd := now.AddDate(0, 0, 30)
	if !activated.EndDate.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", activated.EndDate, wantEnd)
	}

	// Double activation is an invalid transition.
	if _, err := svc.Activate(ctx, inv.ID); !faults.IsInvalidState(err) {
		t.Errorf("second activation: got %v, want invalid state", err)
	}
}

func TestActivateFiresReferralHook(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	svc := newTestService(store, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var hookUser string
	var hookAmount float64
	svc.SetReferralHook(func(_ context.Context, investorID string, amount float64) {
		hookUser = investorID
		hookAmount = amount
	})

	inv, _ := svc.Create(ctx, "user-1", 1, 2500, "USD", "")
	if _, err := svc.Activate(ctx, inv.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if hookUser != "user-1" || hookAmount != 2500 {
		t.Errorf("hook called with (%q, %v), want (user-1, 2500)", hookUser, hookAmount)
	}
}

func TestPauseAndResume(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	ctx := context.Background()

	inv, _ := svc.Create(ctx, "user-1", 1, 5000, "USD", "")
	if _, err := svc.Activate(ctx, inv.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	paused, err := svc.Pause(ctx, inv.ID, "compliance hold")
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Status != database.InvestmentPaused {
		t.Errorf("status = %q, want paused", paused.Status)
	}
	if paused.PausedReason == nil || *paused.PausedReason != "compliance hold" {
		t.Error("pause reason not recorded")
	}

	// Pause requires a reason.
	if _, err := svc.Pause(ctx, inv.ID, ""); !faults.IsValidation(err) {
		t.Errorf("pause without reason: got %v, want validation error", err)
	}

	resumed, err := svc.Resume(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != database.InvestmentActive {
		t.Errorf("status = %q, want active", resumed.Status)
	}
	if resumed.PausedAt != nil || resumed.PausedReason != nil {
		t.Error("pause bookkeeping not cleared on resume")
	}
}

func TestLazyCompletion(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, start)
	ctx := context.Background()

	inv, _ := svc.Create(ctx, "user-1", 1, 5000, "USD", "")
	if _, err := svc.Activate(ctx, inv.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// Before the end date the investment stays active.
	svc.now = func() time.Time { return start.AddDate(0, 0, 29) }
	got, err := svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != database.InvestmentActive {
		t.Errorf("status before end = %q, want active", got.Status)
	}

	// The first read at or past the end date completes it.
	svc.now = func() time.Time { return start.AddDate(0, 0, 31) }
	got, err = svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != database.InvestmentCompleted {
		t.Errorf("status after end = %q, want completed", got.Status)
	}
	if store.investments[inv.ID].Status != database.InvestmentCompleted {
		t.Error("completion not persisted")
	}
}

func TestLazyCompletionSkipsPaused(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, start)
	ctx := context.Background()

	inv, _ := svc.Create(ctx, "user-1", 1, 5000, "USD", "")
	svc.Activate(ctx, inv.ID)
	svc.Pause(ctx, inv.ID, "dispute")

	svc.now = func() time.Time { return start.AddDate(0, 0, 40) }
	got, err := svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != database.InvestmentPaused {
		t.Errorf("paused investment past end = %q, want paused", got.Status)
	}

	// Resuming past the end date completes immediately.
	resumed, err := svc.Resume(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != database.InvestmentCompleted {
		t.Errorf("resume past end = %q, want completed", resumed.Status)
	}
}

func TestCancel(t *testing.T) {
	store := newFakeStore()
	seedPlan(store)
	svc := newTestService(store, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	inv, _ := svc.Create(ctx, "user-1", 1, 5000, "USD", "")
	cancelled, err := svc.Cancel(ctx, inv.ID, "payment failed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != database.InvestmentCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	// Terminal: no transition out of cancelled.
	if _, err := svc.Activate(ctx, inv.ID); !faults.IsInvalidState(err) {
		t.Errorf("activate after cancel: got %v, want invalid state", err)
	}
	if _, err := svc.Cancel(ctx, inv.ID, "again"); !faults.IsInvalidState(err) {
		t.Errorf("double cancel: got %v, want invalid state", err)
	}
}

func floatEquals(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
