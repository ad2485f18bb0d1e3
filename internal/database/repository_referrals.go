package database

import (
	"context"

	"investment-platform/internal/faults"
)

// Referral points and equity conversion repository methods.

const referralColumns = `user_id, total_points, available_points, used_points,
	tier, points_to_next_tier, lifetime_referrals, lifetime_invested,
	created_at, updated_at`

func scanReferralAccount(row interface{ Scan(...any) error }) (*ReferralAccount, error) {
	var a ReferralAccount
	err := row.Scan(
		&a.UserID, &a.TotalPoints, &a.AvailablePoints, &a.UsedPoints,
		&a.Tier, &a.PointsToNextTier, &a.LifetimeReferrals, &a.LifetimeInvested,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetReferralAccount retrieves an account, or nil when none exists yet.
// Accounts are created lazily on first qualifying referral.
func (r *Repository) GetReferralAccount(ctx context.Context, userID string) (*ReferralAccount, error) {
	query := `SELECT ` + referralColumns + ` FROM referral_accounts WHERE user_id = $1`

	a, err := scanReferralAccount(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storageErr("get referral account", err)
	}
	return a, nil
}

// GetReferralAccountForUpdate retrieves an account with a row lock,
// creating it first if absent. Must be called inside WithTx.
func (r *Repository) GetReferralAccountForUpdate(ctx context.Context, userID, initialTier string) (*ReferralAccount, error) {
	insert := `INSERT INTO referral_accounts (user_id, tier)
		VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, userID, initialTier); err != nil {
		return nil, storageErr("ensure referral account", err)
	}

	query := `SELECT ` + referralColumns + ` FROM referral_accounts WHERE user_id = $1 FOR UPDATE`

	a, err := scanReferralAccount(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, storageErr("lock referral account", err)
	}
	return a, nil
}

// SaveReferralAccount writes back an account's mutable fields.
func (r *Repository) SaveReferralAccount(ctx context.Context, a *ReferralAccount) error {
	query := `UPDATE referral_accounts
		SET total_points = $2, available_points = $3, used_points = $4,
			tier = $5, points_to_next_tier = $6,
			lifetime_referrals = $7, lifetime_invested = $8
		WHERE user_id = $1`

	tag, err := r.q.Exec(ctx, query,
		a.UserID, a.TotalPoints, a.AvailablePoints, a.UsedPoints,
		a.Tier, a.PointsToNextTier, a.LifetimeReferrals, a.LifetimeInvested,
	)
	if err != nil {
		return storageErr("save referral account", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "referral account", ID: a.UserID}
	}
	return nil
}

// CreateEquityTransaction inserts a pending conversion.
func (r *Repository) CreateEquityTransaction(ctx context.Context, tx *EquityTransaction) error {
	query := `
		INSERT INTO equity_transactions (
			id, user_id, points_converted, share_price, shares_received, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query,
		tx.ID, tx.UserID, tx.PointsConverted, tx.SharePrice, tx.SharesReceived, tx.Status,
	).Scan(&tx.CreatedAt)

	return storageErr("create equity transaction", err)
}

// GetEquityTransactionForUpdate retrieves a conversion with a row lock.
// Must be called inside WithTx.
func (r *Repository) GetEquityTransactionForUpdate(ctx context.Context, id string) (*EquityTransaction, error) {
	query := `SELECT id, user_id, points_converted, share_price, shares_received,
		status, reject_reason, created_at, reviewed_at, reviewed_by
		FROM equity_transactions WHERE id = $1 FOR UPDATE`

	var tx EquityTransaction
	err := r.q.QueryRow(ctx, query, id).Scan(
		&tx.ID, &tx.UserID, &tx.PointsConverted, &tx.SharePrice, &tx.SharesReceived,
		&tx.Status, &tx.RejectReason, &tx.CreatedAt, &tx.ReviewedAt, &tx.ReviewedBy,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "equity transaction", ID: id}
		}
		return nil, storageErr("lock equity transaction", err)
	}

	return &tx, nil
}

// UpdateEquityTransactionReview records an approve/reject decision.
func (r *Repository) UpdateEquityTransactionReview(ctx context.Context, id, status, reviewedBy string, rejectReason *string) error {
	query := `UPDATE equity_transactions
		SET status = $2, reviewed_at = NOW(), reviewed_by = $3, reject_reason = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status, reviewedBy, rejectReason)
	if err != nil {
		return storageErr("review equity transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "equity transaction", ID: id}
	}
	return nil
}

// ListEquityTransactionsByUser returns a user's conversions, newest first.
func (r *Repository) ListEquityTransactionsByUser(ctx context.Context, userID string, limit int) ([]EquityTransaction, error) {
	query := `SELECT id, user_id, points_converted, share_price, shares_received,
		status, reject_reason, created_at, reviewed_at, reviewed_by
		FROM equity_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, storageErr("list equity transactions", err)
	}
	defer rows.Close()

	var txs []EquityTransaction
	for rows.Next() {
		var tx EquityTransaction
		err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.PointsConverted, &tx.SharePrice, &tx.SharesReceived,
			&tx.Status, &tx.RejectReason, &tx.CreatedAt, &tx.ReviewedAt, &tx.ReviewedBy,
		)
		if err != nil {
			return nil, storageErr("scan equity transaction", err)
		}
		txs = append(txs, tx)
	}

	return txs, storageErr("list equity transactions", rows.Err())
}
