package database

import (
	"context"

	"investment-platform/internal/faults"
)

// Operator account repository methods.

const operatorColumns = `id, email, password_hash, name, role, referred_by,
	created_at, last_login_at`

func scanOperator(row interface{ Scan(...any) error }) (*Operator, error) {
	var op Operator
	err := row.Scan(
		&op.ID, &op.Email, &op.PasswordHash, &op.Name, &op.Role, &op.ReferredBy,
		&op.CreatedAt, &op.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// CreateOperator inserts a new operator account.
func (r *Repository) CreateOperator(ctx context.Context, op *Operator) error {
	query := `
		INSERT INTO operators (id, email, password_hash, name, role, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query,
		op.ID, op.Email, op.PasswordHash, op.Name, op.Role, op.ReferredBy,
	).Scan(&op.CreatedAt)

	return storageErr("create operator", err)
}

// GetOperatorByEmail retrieves an operator for login, or nil when the
// email is unknown.
func (r *Repository) GetOperatorByEmail(ctx context.Context, email string) (*Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE email = $1`

	op, err := scanOperator(r.q.QueryRow(ctx, query, email))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storageErr("get operator by email", err)
	}
	return op, nil
}

// GetOperatorByID retrieves an operator.
func (r *Repository) GetOperatorByID(ctx context.Context, id string) (*Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`

	op, err := scanOperator(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "operator", ID: id}
		}
		return nil, storageErr("get operator", err)
	}
	return op, nil
}

// UpdateOperatorPassword replaces an operator's password hash.
func (r *Repository) UpdateOperatorPassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE operators SET password_hash = $2 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return storageErr("update operator password", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "operator", ID: id}
	}
	return nil
}

// UpdateOperatorLastLogin stamps a successful login.
func (r *Repository) UpdateOperatorLastLogin(ctx context.Context, id string) error {
	query := `UPDATE operators SET last_login_at = NOW() WHERE id = $1`

	_, err := r.q.Exec(ctx, query, id)
	return storageErr("update operator last login", err)
}
