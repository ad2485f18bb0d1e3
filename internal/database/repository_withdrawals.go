package database

import (
	"context"
	"time"

	"investment-platform/internal/faults"
)

// Withdrawal request repository methods.

const withdrawalColumns = `id, investment_id, user_id, requested_amount, kind,
	status, principal_portion, profit_portion, fee, net_amount, payment_method,
	reject_reason, requested_at, reviewed_at, reviewed_by, processed_at, transaction_id`

func scanWithdrawal(row interface{ Scan(...any) error }) (*WithdrawalRequest, error) {
	var w WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.InvestmentID, &w.UserID, &w.RequestedAmount, &w.Kind,
		&w.Status, &w.PrincipalPortion, &w.ProfitPortion, &w.Fee, &w.NetAmount,
		&w.PaymentMethod, &w.RejectReason, &w.RequestedAt, &w.ReviewedAt,
		&w.ReviewedBy, &w.ProcessedAt, &w.TransactionID,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWithdrawalRequest inserts a new withdrawal request.
func (r *Repository) CreateWithdrawalRequest(ctx context.Context, req *WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (
			id, investment_id, user_id, requested_amount, kind, status,
			principal_portion, profit_portion, fee, net_amount, payment_method
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING requested_at`

	err := r.q.QueryRow(ctx, query,
		req.ID, req.InvestmentID, req.UserID, req.RequestedAmount, req.Kind, req.Status,
		req.PrincipalPortion, req.ProfitPortion, req.Fee, req.NetAmount, req.PaymentMethod,
	).Scan(&req.RequestedAt)

	return storageErr("create withdrawal request", err)
}

// GetWithdrawalByID retrieves a withdrawal request.
func (r *Repository) GetWithdrawalByID(ctx context.Context, id string) (*WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "withdrawal request", ID: id}
		}
		return nil, storageErr("get withdrawal request", err)
	}
	return w, nil
}

// GetWithdrawalForUpdate retrieves a withdrawal request with a row lock.
// Must be called inside WithTx.
func (r *Repository) GetWithdrawalForUpdate(ctx context.Context, id string) (*WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "withdrawal request", ID: id}
		}
		return nil, storageErr("lock withdrawal request", err)
	}
	return w, nil
}

// ListWithdrawalsByUser returns a user's withdrawal requests, newest first.
func (r *Repository) ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE user_id = $1 ORDER BY requested_at DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, storageErr("list withdrawals", err)
	}
	defer rows.Close()

	var requests []WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, storageErr("scan withdrawal", err)
		}
		requests = append(requests, *w)
	}

	return requests, storageErr("list withdrawals", rows.Err())
}

// ListWithdrawalsByStatus returns requests in one status, oldest first,
// for the review queue.
func (r *Repository) ListWithdrawalsByStatus(ctx context.Context, status string, limit int) ([]WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE status = $1 ORDER BY requested_at ASC LIMIT $2`

	rows, err := r.q.Query(ctx, query, status, limit)
	if err != nil {
		return nil, storageErr("list withdrawals by status", err)
	}
	defer rows.Close()

	var requests []WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, storageErr("scan withdrawal", err)
		}
		requests = append(requests, *w)
	}

	return requests, storageErr("list withdrawals by status", rows.Err())
}

// SumOpenWithdrawals returns the portions reserved by requests still in
// flight (pending, approved, processing) against one investment.
func (r *Repository) SumOpenWithdrawals(ctx context.Context, investmentID string) (principal, profit float64, err error) {
	query := `SELECT COALESCE(SUM(principal_portion), 0), COALESCE(SUM(profit_portion), 0)
		FROM withdrawal_requests
		WHERE investment_id = $1 AND status IN ($2, $3, $4)`

	err = r.q.QueryRow(ctx, query, investmentID,
		WithdrawalPending, WithdrawalApproved, WithdrawalProcessing,
	).Scan(&principal, &profit)
	if err != nil {
		return 0, 0, storageErr("sum open withdrawals", err)
	}
	return principal, profit, nil
}

// UpdateWithdrawalReview records an approve/reject decision.
func (r *Repository) UpdateWithdrawalReview(ctx context.Context, id, status string, reviewedBy string, rejectReason *string) error {
	query := `UPDATE withdrawal_requests
		SET status = $2, reviewed_at = NOW(), reviewed_by = $3, reject_reason = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status, reviewedBy, rejectReason)
	if err != nil {
		return storageErr("review withdrawal", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "withdrawal request", ID: id}
	}
	return nil
}

// UpdateWithdrawalStatus sets the status only (processing, cancelled).
func (r *Repository) UpdateWithdrawalStatus(ctx context.Context, id, status string) error {
	query := `UPDATE withdrawal_requests SET status = $2 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return storageErr("update withdrawal status", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "withdrawal request", ID: id}
	}
	return nil
}

// CompleteWithdrawal marks a request completed with its payment
// transaction reference. Called only inside the completion transaction.
func (r *Repository) CompleteWithdrawal(ctx context.Context, id, transactionID string, processedAt time.Time) error {
	query := `UPDATE withdrawal_requests
		SET status = $2, transaction_id = $3, processed_at = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, WithdrawalCompleted, transactionID, processedAt)
	if err != nil {
		return storageErr("complete withdrawal", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "withdrawal request", ID: id}
	}
	return nil
}
