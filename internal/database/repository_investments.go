package database

import (
	"context"
	"time"

	"investment-platform/internal/faults"
)

// Investment ledger repository methods. The investment row is the single
// point of contention for accrual and withdrawal completion; both paths
// lock it with GetInvestmentForUpdate inside WithTx.

const investmentColumns = `id, user_id, plan_id, principal, currency, status,
	start_date, end_date, daily_rate_percent, cumulative_profit,
	cumulative_withdrawn, principal_withdrawn, profit_withdrawn,
	paused_at, paused_reason, payment_ref, created_at, updated_at`

func scanInvestment(row interface{ Scan(...any) error }) (*Investment, error) {
	var inv Investment
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.PlanID, &inv.Principal, &inv.Currency, &inv.Status,
		&inv.StartDate, &inv.EndDate, &inv.DailyRatePercent, &inv.CumulativeProfit,
		&inv.CumulativeWithdrawn, &inv.PrincipalWithdrawn, &inv.ProfitWithdrawn,
		&inv.PausedAt, &inv.PausedReason, &inv.PaymentRef, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvestment inserts a new investment record.
func (r *Repository) CreateInvestment(ctx context.Context, inv *Investment) error {
	query := `
		INSERT INTO investments (
			id, user_id, plan_id, principal, currency, status,
			start_date, end_date, daily_rate_percent, payment_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		inv.ID, inv.UserID, inv.PlanID, inv.Principal, inv.Currency, inv.Status,
		inv.StartDate, inv.EndDate, inv.DailyRatePercent, inv.PaymentRef,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)

	return storageErr("create investment", err)
}

// GetInvestmentByID retrieves an investment.
func (r *Repository) GetInvestmentByID(ctx context.Context, id string) (*Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`

	inv, err := scanInvestment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "investment", ID: id}
		}
		return nil, storageErr("get investment", err)
	}
	return inv, nil
}

// GetInvestmentForUpdate retrieves an investment with a row lock. Must be
// called inside WithTx; the lock serializes accrual against withdrawal
// completion for the same investment.
func (r *Repository) GetInvestmentForUpdate(ctx context.Context, id string) (*Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`

	inv, err := scanInvestment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "investment", ID: id}
		}
		return nil, storageErr("lock investment", err)
	}
	return inv, nil
}

// ListInvestmentsByUser returns all investments for one user.
func (r *Repository) ListInvestmentsByUser(ctx context.Context, userID string) ([]Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments
		WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, storageErr("list investments", err)
	}
	defer rows.Close()

	var investments []Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, storageErr("scan investment", err)
		}
		investments = append(investments, *inv)
	}

	return investments, storageErr("list investments", rows.Err())
}

// ListAccruableInvestments returns investments due for profit accrual:
// active status with the accrual window containing asOf.
func (r *Repository) ListAccruableInvestments(ctx context.Context, asOf time.Time) ([]Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments
		WHERE status = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query, InvestmentActive, asOf)
	if err != nil {
		return nil, storageErr("list accruable investments", err)
	}
	defer rows.Close()

	var investments []Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, storageErr("scan investment", err)
		}
		investments = append(investments, *inv)
	}

	return investments, storageErr("list accruable investments", rows.Err())
}

// ActivateInvestment stamps the accrual window and frozen daily rate and
// moves the investment to active.
func (r *Repository) ActivateInvestment(ctx context.Context, id string, startDate, endDate time.Time, dailyRatePercent float64) error {
	query := `UPDATE investments
		SET status = $2, start_date = $3, end_date = $4, daily_rate_percent = $5
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, InvestmentActive, startDate, endDate, dailyRatePercent)
	if err != nil {
		return storageErr("activate investment", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	return nil
}

// UpdateInvestmentStatus sets the status plus pause bookkeeping fields.
func (r *Repository) UpdateInvestmentStatus(ctx context.Context, id, status string, pausedAt *time.Time, pausedReason *string) error {
	query := `UPDATE investments
		SET status = $2, paused_at = $3, paused_reason = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status, pausedAt, pausedReason)
	if err != nil {
		return storageErr("update investment status", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	return nil
}

// IncrementCumulativeProfit adds delta to the cumulative profit. The delta
// may be negative for downward manual overrides; the ledger never goes
// below zero.
func (r *Repository) IncrementCumulativeProfit(ctx context.Context, id string, delta float64) error {
	query := `UPDATE investments
		SET cumulative_profit = GREATEST(cumulative_profit + $2, 0)
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, delta)
	if err != nil {
		return storageErr("increment cumulative profit", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	return nil
}

// ApplyWithdrawalDebit increments the withdrawal counters by a completed
// request's breakdown. Called only inside the completion transaction.
func (r *Repository) ApplyWithdrawalDebit(ctx context.Context, id string, principalPortion, profitPortion float64) error {
	query := `UPDATE investments
		SET cumulative_withdrawn = cumulative_withdrawn + $2 + $3,
			principal_withdrawn = principal_withdrawn + $2,
			profit_withdrawn = profit_withdrawn + $3
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, principalPortion, profitPortion)
	if err != nil {
		return storageErr("apply withdrawal debit", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "investment", ID: id}
	}
	return nil
}
