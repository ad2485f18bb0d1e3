package database

import (
	"context"
)

// Accrual batch history repository methods.

// InsertAccrualBatch persists the summary of one finished batch run.
func (r *Repository) InsertAccrualBatch(ctx context.Context, batch *AccrualBatch) error {
	query := `
		INSERT INTO accrual_batches (
			period_key, as_of, total, succeeded, failed, skipped,
			total_profit_distributed, failures, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	failures := batch.Failures
	if len(failures) == 0 {
		failures = []byte("[]")
	}

	err := r.q.QueryRow(ctx, query,
		batch.PeriodKey, batch.AsOf, batch.Total, batch.Succeeded, batch.Failed,
		batch.Skipped, batch.TotalProfitDistributed, failures,
		batch.StartedAt, batch.FinishedAt,
	).Scan(&batch.ID)

	return storageErr("insert accrual batch", err)
}

// ListAccrualBatches returns batch history, newest first.
func (r *Repository) ListAccrualBatches(ctx context.Context, limit int) ([]AccrualBatch, error) {
	query := `SELECT id, period_key, as_of, total, succeeded, failed, skipped,
		total_profit_distributed, failures, started_at, finished_at
		FROM accrual_batches ORDER BY started_at DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, storageErr("list accrual batches", err)
	}
	defer rows.Close()

	var batches []AccrualBatch
	for rows.Next() {
		var b AccrualBatch
		err := rows.Scan(
			&b.ID, &b.PeriodKey, &b.AsOf, &b.Total, &b.Succeeded, &b.Failed,
			&b.Skipped, &b.TotalProfitDistributed, &b.Failures,
			&b.StartedAt, &b.FinishedAt,
		)
		if err != nil {
			return nil, storageErr("scan accrual batch", err)
		}
		batches = append(batches, b)
	}

	return batches, storageErr("list accrual batches", rows.Err())
}
