// Integration tests for the repository layer. These require a running
// PostgreSQL instance and are skipped when DB_HOST is not set.
//
//go:build integration
// +build integration

package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"investment-platform/internal/faults"
)

func getTestDB(t *testing.T) *Repository {
	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("DB_HOST not set, skipping integration test")
		return nil
	}

	port := 5432
	if raw := os.Getenv("DB_PORT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			port = v
		}
	}

	db, err := NewDB(Config{
		Host:     host,
		Port:     port,
		User:     envOr("DB_USER", "invest"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: envOr("DB_NAME", "invest_platform_test"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	})
	if err != nil {
		t.Skipf("Failed to connect to database: %v", err)
		return nil
	}

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewRepository(db)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func createTestInvestment(t *testing.T, repo *Repository, userID string) *Investment {
	t.Helper()
	ctx := context.Background()

	plan := &Plan{
		Name:                  "integration-" + uuid.New().String()[:8],
		TotalReturnPercentage: 50,
		DurationDays:          365,
		MinInvestment:         100,
		MaxInvestment:         100000,
		Active:                true,
	}
	if err := repo.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	now := time.Now().UTC()
	inv := &Investment{
		ID:               uuid.New().String(),
		UserID:           userID,
		PlanID:           plan.ID,
		Principal:        5000,
		Currency:         "USD",
		Status:           InvestmentActive,
		StartDate:        now.AddDate(0, 0, -10),
		EndDate:          now.AddDate(0, 0, 355),
		DailyRatePercent: 50.0 / 365,
	}
	if err := repo.CreateInvestment(ctx, inv); err != nil {
		t.Fatalf("CreateInvestment: %v", err)
	}
	return inv
}

func TestIntegration_RepositoryHealthCheck(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}

	if err := repo.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestIntegration_InvestmentRoundTrip(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	userID := "itest-" + time.Now().Format("20060102150405")
	inv := createTestInvestment(t, repo, userID)

	got, err := repo.GetInvestmentByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID: %v", err)
	}
	if got.Principal != inv.Principal || got.Status != InvestmentActive {
		t.Errorf("round trip mismatch: got principal=%.2f status=%s", got.Principal, got.Status)
	}

	list, err := repo.ListInvestmentsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListInvestmentsByUser: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 investment for user, got %d", len(list))
	}
}

func TestIntegration_ProfitRecordIdempotency(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	inv := createTestInvestment(t, repo, "itest-idem-"+time.Now().Format("150405"))
	periodKey := time.Now().UTC().Format("2006-01-02")

	rec := &ProfitRecord{
		InvestmentID: inv.ID,
		PeriodKey:    periodKey,
		ProfitAmount: 6.85,
		RateUsed:     inv.DailyRatePercent,
		Status:       ProfitCalculated,
		CalculatedAt: time.Now().UTC(),
	}
	if err := repo.CreateProfitRecord(ctx, rec); err != nil {
		t.Fatalf("first CreateProfitRecord: %v", err)
	}

	// The partial unique index must reject a duplicate credit for the
	// same investment and period.
	dup := &ProfitRecord{
		InvestmentID: inv.ID,
		PeriodKey:    periodKey,
		ProfitAmount: 6.85,
		RateUsed:     inv.DailyRatePercent,
		Status:       ProfitCalculated,
		CalculatedAt: time.Now().UTC(),
	}
	if err := repo.CreateProfitRecord(ctx, dup); err == nil {
		t.Fatal("duplicate profit record should fail")
	}

	got, err := repo.GetProfitRecord(ctx, inv.ID, periodKey)
	if err != nil {
		t.Fatalf("GetProfitRecord: %v", err)
	}
	if got.ProfitAmount != 6.85 {
		t.Errorf("profit amount = %.2f, want 6.85", got.ProfitAmount)
	}
}

func TestIntegration_WithTxRollsBackOnError(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	inv := createTestInvestment(t, repo, "itest-tx-"+time.Now().Format("150405"))

	err := repo.WithTx(ctx, func(txRepo *Repository) error {
		if err := txRepo.IncrementCumulativeProfit(ctx, inv.ID, 100); err != nil {
			return err
		}
		return &faults.ValidationError{Field: "test", Reason: "forced rollback"}
	})
	if err == nil {
		t.Fatal("expected transaction error")
	}

	got, err := repo.GetInvestmentByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID: %v", err)
	}
	if got.CumulativeProfit != 0 {
		t.Errorf("cumulative profit = %.2f after rollback, want 0", got.CumulativeProfit)
	}
}

func TestIntegration_WithdrawalReservationSum(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	inv := createTestInvestment(t, repo, "itest-wd-"+time.Now().Format("150405"))

	req := &WithdrawalRequest{
		ID:               uuid.New().String(),
		InvestmentID:     inv.ID,
		UserID:           inv.UserID,
		RequestedAmount:  150,
		Kind:             KindProfitsOnly,
		PrincipalPortion: 50,
		ProfitPortion:    100,
		Fee:              0.75,
		NetAmount:        149.25,
		PaymentMethod:    "bank_transfer",
		Status:           WithdrawalPending,
	}
	if err := repo.CreateWithdrawalRequest(ctx, req); err != nil {
		t.Fatalf("CreateWithdrawalRequest: %v", err)
	}

	principal, profit, err := repo.SumOpenWithdrawals(ctx, inv.ID)
	if err != nil {
		t.Fatalf("SumOpenWithdrawals: %v", err)
	}
	if principal != 50 || profit != 100 {
		t.Errorf("open reservations = (%.2f, %.2f), want (50, 100)", principal, profit)
	}

	// Cancelled requests release their reservation.
	if err := repo.UpdateWithdrawalStatus(ctx, req.ID, WithdrawalCancelled); err != nil {
		t.Fatalf("UpdateWithdrawalStatus: %v", err)
	}

	principal, profit, err = repo.SumOpenWithdrawals(ctx, inv.ID)
	if err != nil {
		t.Fatalf("SumOpenWithdrawals after cancel: %v", err)
	}
	if principal != 0 || profit != 0 {
		t.Errorf("reservations after cancel = (%.2f, %.2f), want (0, 0)", principal, profit)
	}
}

func TestIntegration_ReferralAccountUpsert(t *testing.T) {
	repo := getTestDB(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	userID := "itest-ref-" + uuid.New().String()

	err := repo.WithTx(ctx, func(txRepo *Repository) error {
		account, err := txRepo.GetReferralAccountForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		account.TotalPoints += 95
		account.AvailablePoints += 95
		account.LifetimeReferrals++
		return txRepo.SaveReferralAccount(ctx, account)
	})
	if err != nil {
		t.Fatalf("award tx: %v", err)
	}

	account, err := repo.GetReferralAccount(ctx, userID)
	if err != nil {
		t.Fatalf("GetReferralAccount: %v", err)
	}
	if account == nil || account.TotalPoints != 95 {
		t.Fatalf("expected persisted account with 95 points, got %+v", account)
	}
}
