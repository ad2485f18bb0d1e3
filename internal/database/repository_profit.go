package database

import (
	"context"

	"investment-platform/internal/faults"
)

// Profit record repository methods. The (investment_id, period_key)
// partial unique index backs the idempotency guarantee: the accrual path
// checks for an existing non-failed record first, and the index catches
// any race between concurrent workers.

const profitColumns = `id, investment_id, period_key, profit_amount, rate_used,
	status, calculated_at, manual_override, override_reason, override_by`

// CreateProfitRecord inserts a new profit record.
func (r *Repository) CreateProfitRecord(ctx context.Context, rec *ProfitRecord) error {
	query := `
		INSERT INTO profit_records (
			investment_id, period_key, profit_amount, rate_used, status,
			manual_override, override_reason, override_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, calculated_at`

	err := r.q.QueryRow(ctx, query,
		rec.InvestmentID, rec.PeriodKey, rec.ProfitAmount, rec.RateUsed, rec.Status,
		rec.ManualOverride, rec.OverrideReason, rec.OverrideBy,
	).Scan(&rec.ID, &rec.CalculatedAt)

	return storageErr("create profit record", err)
}

// GetProfitRecord returns the non-failed record for (investmentID,
// periodKey), or nil when none exists.
func (r *Repository) GetProfitRecord(ctx context.Context, investmentID, periodKey string) (*ProfitRecord, error) {
	query := `SELECT ` + profitColumns + ` FROM profit_records
		WHERE investment_id = $1 AND period_key = $2 AND status <> $3`

	var rec ProfitRecord
	err := r.q.QueryRow(ctx, query, investmentID, periodKey, ProfitFailed).Scan(
		&rec.ID, &rec.InvestmentID, &rec.PeriodKey, &rec.ProfitAmount, &rec.RateUsed,
		&rec.Status, &rec.CalculatedAt, &rec.ManualOverride, &rec.OverrideReason, &rec.OverrideBy,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storageErr("get profit record", err)
	}

	return &rec, nil
}

// UpdateProfitRecordOverride replaces an existing record's amount with an
// operator-supplied value, tagging it as a manual override.
func (r *Repository) UpdateProfitRecordOverride(ctx context.Context, recordID int64, amount float64, reason, operatorID string) error {
	query := `UPDATE profit_records
		SET profit_amount = $2, manual_override = TRUE,
			override_reason = $3, override_by = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, recordID, amount, reason, operatorID)
	if err != nil {
		return storageErr("override profit record", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "profit record", ID: ""}
	}
	return nil
}

// ListProfitRecords returns accrual history for an investment, newest first.
func (r *Repository) ListProfitRecords(ctx context.Context, investmentID string, limit int) ([]ProfitRecord, error) {
	query := `SELECT ` + profitColumns + ` FROM profit_records
		WHERE investment_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, investmentID, limit)
	if err != nil {
		return nil, storageErr("list profit records", err)
	}
	defer rows.Close()

	var records []ProfitRecord
	for rows.Next() {
		var rec ProfitRecord
		err := rows.Scan(
			&rec.ID, &rec.InvestmentID, &rec.PeriodKey, &rec.ProfitAmount, &rec.RateUsed,
			&rec.Status, &rec.CalculatedAt, &rec.ManualOverride, &rec.OverrideReason, &rec.OverrideBy,
		)
		if err != nil {
			return nil, storageErr("scan profit record", err)
		}
		records = append(records, rec)
	}

	return records, storageErr("list profit records", rows.Err())
}
