package withdrawal

import (
	"math"
	"testing"
	"time"

	"investment-platform/internal/database"
)

const unlockDays = 7

func activeInvestment(start time.Time) *database.Investment {
	return &database.Investment{
		ID:               "inv-1",
		UserID:           "user-1",
		Principal:        5000,
		Status:           database.InvestmentActive,
		StartDate:        start,
		EndDate:          start.AddDate(0, 0, 90),
		CumulativeProfit: 120,
	}
}

func TestEvaluateHoldingPeriod(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)

	// Five days in: still locked, two days remain.
	now := start.AddDate(0, 0, 5)
	elig := Evaluate(inv, now, unlockDays, 0, 0)

	if elig.Eligible {
		t.Error("expected locked during holding period")
	}
	if elig.DaysUntilUnlock != 2 {
		t.Errorf("days until unlock = %d, want 2", elig.DaysUntilUnlock)
	}
	wantUnlock := start.AddDate(0, 0, unlockDays)
	if !elig.UnlockAt.Equal(wantUnlock) {
		t.Errorf("unlock at = %v, want %v", elig.UnlockAt, wantUnlock)
	}

	// Exactly at the unlock boundary the hold ends.
	elig = Evaluate(inv, wantUnlock, unlockDays, 0, 0)
	if !elig.Eligible {
		t.Errorf("expected eligible at unlock boundary: %s", elig.Reason)
	}
	if elig.DaysUntilUnlock != 0 {
		t.Errorf("days until unlock = %d, want 0", elig.DaysUntilUnlock)
	}
}

func TestEvaluateProfitsOnlyBeforeCompletion(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)
	inv.ProfitWithdrawn = 20

	now := start.AddDate(0, 0, 30)
	elig := Evaluate(inv, now, unlockDays, 0, 0)

	if !elig.Eligible {
		t.Fatalf("expected eligible: %s", elig.Reason)
	}
	if elig.PrincipalUnlocked {
		t.Error("principal must stay locked before completion")
	}
	if !floatEq(elig.AvailableProfit, 100) {
		t.Errorf("available profit = %v, want 100", elig.AvailableProfit)
	}
	if elig.AvailablePrincipal != 0 {
		t.Errorf("available principal = %v, want 0", elig.AvailablePrincipal)
	}
	if !floatEq(elig.AvailableTotal, 100) {
		t.Errorf("available total = %v, want 100", elig.AvailableTotal)
	}
}

func TestEvaluatePrincipalAfterCompletion(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)
	inv.Status = database.InvestmentCompleted
	inv.CumulativeProfit = 800

	now := start.AddDate(0, 0, 91)
	elig := Evaluate(inv, now, unlockDays, 0, 0)

	if !elig.Eligible {
		t.Fatalf("expected eligible: %s", elig.Reason)
	}
	if !elig.PrincipalUnlocked {
		t.Error("principal must unlock after completion")
	}
	if !floatEq(elig.AvailableTotal, 5800) {
		t.Errorf("available total = %v, want 5800", elig.AvailableTotal)
	}
}

func TestEvaluateTermElapsedCountsAsCompleted(t *testing.T) {
	// Still marked active but past the end date: principal unlocks, the
	// same way lazy completion would resolve it.
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)

	now := inv.EndDate.Add(time.Hour)
	elig := Evaluate(inv, now, unlockDays, 0, 0)

	if !elig.PrincipalUnlocked {
		t.Error("principal must unlock once the term has elapsed")
	}
}

func TestEvaluateReservations(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)

	now := start.AddDate(0, 0, 30)
	elig := Evaluate(inv, now, unlockDays, 0, 50)

	if !floatEq(elig.AvailableProfit, 70) {
		t.Errorf("available profit with reservation = %v, want 70", elig.AvailableProfit)
	}

	// A reservation covering the whole balance leaves nothing.
	elig = Evaluate(inv, now, unlockDays, 0, 120)
	if elig.Eligible {
		t.Error("fully reserved balance must not be eligible")
	}
}

func TestEvaluateIneligibleStatuses(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := start.AddDate(0, 0, 30)

	for _, status := range []string{database.InvestmentPending, database.InvestmentCancelled} {
		inv := activeInvestment(start)
		inv.Status = status
		elig := Evaluate(inv, now, unlockDays, 0, 0)
		if elig.Eligible {
			t.Errorf("%s investment must not be eligible", status)
		}
	}
}

func TestEvaluatePausedStillWithdrawsProfit(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(start)
	inv.Status = database.InvestmentPaused

	elig := Evaluate(inv, start.AddDate(0, 0, 30), unlockDays, 0, 0)
	if !elig.Eligible {
		t.Errorf("paused investment should allow profit withdrawal: %s", elig.Reason)
	}
	if elig.PrincipalUnlocked {
		t.Error("pause must not unlock principal")
	}
}

func TestSplitPortions(t *testing.T) {
	tests := []struct {
		name            string
		amount          float64
		availableProfit float64
		wantPrincipal   float64
		wantProfit      float64
	}{
		{"profit covers all", 500, 800, 0, 500},
		{"profit exactly covers", 800, 800, 0, 800},
		{"spills into principal", 5800, 800, 5000, 800},
		{"no profit available", 1000, 0, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, profit := SplitPortions(tt.amount, tt.availableProfit)
			if !floatEq(principal, tt.wantPrincipal) || !floatEq(profit, tt.wantProfit) {
				t.Errorf("SplitPortions(%v, %v) = (%v, %v), want (%v, %v)",
					tt.amount, tt.availableProfit, principal, profit, tt.wantPrincipal, tt.wantProfit)
			}
		})
	}
}

func TestClassifyKind(t *testing.T) {
	elig := Eligibility{AvailableProfit: 800, AvailablePrincipal: 5000, AvailableTotal: 5800}

	if got := ClassifyKind(0, elig, 500); got != database.KindProfitsOnly {
		t.Errorf("profits only: got %q", got)
	}
	if got := ClassifyKind(5000, elig, 5800); got != database.KindFullWithdrawal {
		t.Errorf("full withdrawal: got %q", got)
	}
	if got := ClassifyKind(1000, elig, 1800); got != database.KindPartialPrincipal {
		t.Errorf("partial principal: got %q", got)
	}
}

func TestWithdrawalTransitions(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{database.WithdrawalPending, database.WithdrawalApproved, true},
		{database.WithdrawalPending, database.WithdrawalRejected, true},
		{database.WithdrawalPending, database.WithdrawalCancelled, true},
		{database.WithdrawalPending, database.WithdrawalCompleted, false},
		{database.WithdrawalPending, database.WithdrawalProcessing, false},
		{database.WithdrawalApproved, database.WithdrawalProcessing, true},
		{database.WithdrawalApproved, database.WithdrawalCancelled, false},
		{database.WithdrawalProcessing, database.WithdrawalCompleted, true},
		{database.WithdrawalCompleted, database.WithdrawalPending, false},
		{database.WithdrawalRejected, database.WithdrawalApproved, false},
		{database.WithdrawalCancelled, database.WithdrawalPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
