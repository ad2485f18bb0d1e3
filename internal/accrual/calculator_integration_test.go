// Integration tests for the accrual calculator. These require a running
// PostgreSQL instance and are skipped when DB_HOST is not set.
//
//go:build integration
// +build integration

package accrual

import (
	"context"
	"math"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"investment-platform/internal/database"
	"investment-platform/internal/events"
)

func getTestRepo(t *testing.T) *database.Repository {
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

	envOr := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	db, err := database.NewDB(database.Config{
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

	return database.NewRepository(db)
}

func createActiveInvestment(t *testing.T, repo *database.Repository) *database.Investment {
	t.Helper()
	ctx := context.Background()

	plan := &database.Plan{
		Name:                  "accrual-" + uuid.New().String()[:8],
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
	inv := &database.Investment{
		ID:               uuid.New().String(),
		UserID:           "accrual-itest-" + uuid.New().String()[:8],
		PlanID:           plan.ID,
		Principal:        5000,
		Currency:         "USD",
		Status:           database.InvestmentActive,
		StartDate:        now.AddDate(0, 0, -10),
		EndDate:          now.AddDate(0, 0, 355),
		DailyRatePercent: 50.0 / 365,
	}
	if err := repo.CreateInvestment(ctx, inv); err != nil {
		t.Fatalf("CreateInvestment: %v", err)
	}
	return inv
}

func TestIntegration_OverrideBackfillsMissedPeriod(t *testing.T) {
	repo := getTestRepo(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	calc := NewCalculator(repo, DailyPolicy(), events.NewEventBus())
	inv := createActiveInvestment(t, repo)

	// A period that was never accrued, for example because the batch was
	// down that day.
	missedKey := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")

	record, err := calc.Override(ctx, inv.ID, missedKey, 6.85, "batch outage backfill", "op-1")
	if err != nil {
		t.Fatalf("Override on missed period: %v", err)
	}
	if !record.ManualOverride {
		t.Error("backfilled record should be flagged as a manual override")
	}
	if record.ProfitAmount != 6.85 {
		t.Errorf("backfilled amount = %v, want 6.85", record.ProfitAmount)
	}

	got, err := repo.GetProfitRecord(ctx, inv.ID, missedKey)
	if err != nil {
		t.Fatalf("GetProfitRecord: %v", err)
	}
	if got == nil {
		t.Fatal("backfill should have persisted a profit record")
	}

	after, err := repo.GetInvestmentByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID: %v", err)
	}
	if math.Abs(after.CumulativeProfit-6.85) > 1e-6 {
		t.Errorf("cumulative profit = %v, want 6.85", after.CumulativeProfit)
	}
}

func TestIntegration_OverrideAdjustsExistingRecordByDelta(t *testing.T) {
	repo := getTestRepo(t)
	if repo == nil {
		return
	}
	ctx := context.Background()

	calc := NewCalculator(repo, DailyPolicy(), events.NewEventBus())
	inv := createActiveInvestment(t, repo)

	asOf := time.Now().UTC()
	record, err := calc.Accrue(ctx, inv.ID, asOf)
	if err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	// Correct the credited amount downward; the ledger must move by the
	// difference, not the full new amount.
	periodKey := calc.Policy().PeriodKey(asOf)
	if _, err := calc.Override(ctx, inv.ID, periodKey, 5.00, "rate correction", "op-1"); err != nil {
		t.Fatalf("Override on existing record: %v", err)
	}

	after, err := repo.GetInvestmentByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvestmentByID: %v", err)
	}
	// accrued amount + (5.00 - accrued amount) collapses to 5.00
	if math.Abs(after.CumulativeProfit-5.00) > 1e-6 {
		t.Errorf("cumulative profit = %v, want 5.00 (accrued %v then overridden)",
			after.CumulativeProfit, record.ProfitAmount)
	}
}
