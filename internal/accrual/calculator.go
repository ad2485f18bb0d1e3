package accrual

import (
	"context"
	"time"

	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/logging"
)

// ComputeProfit returns the profit for one period: the principal times the
// daily rate scaled by the period's fraction of a day. The rate is a
// percentage, so 0.5 means half a percent per day.
func ComputeProfit(principal, dailyRatePercent, periodFraction float64) float64 {
	return principal * (dailyRatePercent / 100.0) * periodFraction
}

// Calculator credits profit to investments one period at a time. Each
// accrual is one transaction: the profit record insert and the cumulative
// profit increment commit together or not at all.
type Calculator struct {
	repo   *database.Repository
	policy PeriodPolicy
	bus    *events.EventBus
	logger *logging.Logger
}

// NewCalculator creates an accrual calculator.
func NewCalculator(repo *database.Repository, policy PeriodPolicy, bus *events.EventBus) *Calculator {
	return &Calculator{
		repo:   repo,
		policy: policy,
		bus:    bus,
		logger: logging.WithComponent("accrual"),
	}
}

// Policy returns the calculator's period policy.
func (c *Calculator) Policy() PeriodPolicy {
	return c.policy
}

// Accrue credits one period of profit to one investment. Returns
// AlreadyProcessedError when a non-failed record for the period exists;
// callers count that as skipped, not failed. The investment row is locked
// for the duration so accrual never races withdrawal completion.
func (c *Calculator) Accrue(ctx context.Context, investmentID string, asOf time.Time) (*database.ProfitRecord, error) {
	periodKey := c.policy.PeriodKey(asOf)

	var record *database.ProfitRecord
	var cumulative float64
	var userID string

	err := c.repo.WithTx(ctx, func(tx *database.Repository) error {
		inv, err := tx.GetInvestmentForUpdate(ctx, investmentID)
		if err != nil {
			return err
		}

		if inv.Status != database.InvestmentActive {
			return &faults.InvalidStateError{
				Entity: "investment",
				From:   inv.Status,
				To:     inv.Status,
				Reason: "profit accrues only while active",
			}
		}
		if asOf.Before(inv.StartDate) || asOf.After(inv.EndDate) {
			return &faults.ValidationError{Field: "as_of", Reason: "outside the investment's accrual window"}
		}

		existing, err := tx.GetProfitRecord(ctx, investmentID, periodKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return &faults.AlreadyProcessedError{Key: investmentID + "/" + periodKey}
		}

		amount := ComputeProfit(inv.Principal, inv.DailyRatePercent, c.policy.PeriodFraction())

		record = &database.ProfitRecord{
			InvestmentID: investmentID,
			PeriodKey:    periodKey,
			ProfitAmount: amount,
			RateUsed:     inv.DailyRatePercent,
			Status:       database.ProfitCalculated,
		}
		if err := tx.CreateProfitRecord(ctx, record); err != nil {
			return err
		}
		if err := tx.IncrementCumulativeProfit(ctx, investmentID, amount); err != nil {
			return err
		}

		cumulative = inv.CumulativeProfit + amount
		userID = inv.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.bus.PublishProfitCredited(userID, investmentID, periodKey, record.ProfitAmount, cumulative)

	return record, nil
}

// Override sets a period's credited profit to an operator-supplied
// amount, creating the record when the period was never accrued (a
// backfill) and replacing it otherwise. The cumulative ledger adjusts
// by the difference in the same transaction, so the sum of records
// always matches the ledger.
func (c *Calculator) Override(ctx context.Context, investmentID, periodKey string, amount float64, reason, operatorID string) (*database.ProfitRecord, error) {
	if amount < 0 {
		return nil, &faults.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if reason == "" {
		return nil, &faults.ValidationError{Field: "reason", Reason: "must not be empty"}
	}

	var record *database.ProfitRecord
	var userID string

	err := c.repo.WithTx(ctx, func(tx *database.Repository) error {
		inv, err := tx.GetInvestmentForUpdate(ctx, investmentID)
		if err != nil {
			return err
		}

		existing, err := tx.GetProfitRecord(ctx, investmentID, periodKey)
		if err != nil {
			return err
		}
		if existing == nil {
			// Backfill: the period was never accrued, so the full
			// amount is new profit.
			record = &database.ProfitRecord{
				InvestmentID:   investmentID,
				PeriodKey:      periodKey,
				ProfitAmount:   amount,
				RateUsed:       inv.DailyRatePercent,
				Status:         database.ProfitCalculated,
				ManualOverride: true,
				OverrideReason: &reason,
				OverrideBy:     &operatorID,
			}
			if err := tx.CreateProfitRecord(ctx, record); err != nil {
				return err
			}
			if err := tx.IncrementCumulativeProfit(ctx, investmentID, amount); err != nil {
				return err
			}
			userID = inv.UserID
			return nil
		}

		delta := amount - existing.ProfitAmount
		if err := tx.UpdateProfitRecordOverride(ctx, existing.ID, amount, reason, operatorID); err != nil {
			return err
		}
		if err := tx.IncrementCumulativeProfit(ctx, investmentID, delta); err != nil {
			return err
		}

		existing.ProfitAmount = amount
		existing.ManualOverride = true
		existing.OverrideReason = &reason
		existing.OverrideBy = &operatorID
		record = existing
		userID = inv.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Warn("profit record overridden",
		"investment_id", investmentID, "period_key", periodKey,
		"amount", amount, "operator", operatorID)

	c.bus.Publish(events.Event{
		Type:   events.EventProfitOverridden,
		UserID: userID,
		Data: map[string]interface{}{
			"investment_id": investmentID,
			"period_key":    periodKey,
			"amount":        amount,
		},
	})

	return record, nil
}

// History returns an investment's accrual records, newest first.
func (c *Calculator) History(ctx context.Context, investmentID string, limit int) ([]database.ProfitRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return c.repo.ListProfitRecords(ctx, investmentID, limit)
}
