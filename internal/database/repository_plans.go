package database

import (
	"context"
	"strconv"

	"investment-platform/internal/faults"
)

// Plan catalog repository methods. Plans are immutable per use: the
// accrual engine reads the rate stored on the investment, never the plan.

const planColumns = `id, name, total_return_percentage, duration_days,
	min_investment, max_investment, active, created_at, updated_at`

// CreatePlan inserts a new investment plan.
func (r *Repository) CreatePlan(ctx context.Context, plan *Plan) error {
	query := `
		INSERT INTO plans (
			name, total_return_percentage, duration_days,
			min_investment, max_investment, active
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		plan.Name,
		plan.TotalReturnPercentage,
		plan.DurationDays,
		plan.MinInvestment,
		plan.MaxInvestment,
		plan.Active,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)

	return storageErr("create plan", err)
}

// GetPlanByID retrieves a plan by its ID.
func (r *Repository) GetPlanByID(ctx context.Context, planID int64) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var p Plan
	err := r.q.QueryRow(ctx, query, planID).Scan(
		&p.ID, &p.Name, &p.TotalReturnPercentage, &p.DurationDays,
		&p.MinInvestment, &p.MaxInvestment, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &faults.NotFoundError{Entity: "plan", ID: strconv.FormatInt(planID, 10)}
		}
		return nil, storageErr("get plan", err)
	}

	return &p, nil
}

// ListActivePlans returns all plans currently open for investment.
func (r *Repository) ListActivePlans(ctx context.Context) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE active = TRUE ORDER BY duration_days ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storageErr("list plans", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		err := rows.Scan(
			&p.ID, &p.Name, &p.TotalReturnPercentage, &p.DurationDays,
			&p.MinInvestment, &p.MaxInvestment, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, storageErr("scan plan", err)
		}
		plans = append(plans, p)
	}

	return plans, storageErr("list plans", rows.Err())
}

// SetPlanActive enables or disables a plan for new investments.
func (r *Repository) SetPlanActive(ctx context.Context, planID int64, active bool) error {
	query := `UPDATE plans SET active = $2 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, planID, active)
	if err != nil {
		return storageErr("set plan active", err)
	}
	if tag.RowsAffected() == 0 {
		return &faults.NotFoundError{Entity: "plan", ID: strconv.FormatInt(planID, 10)}
	}
	return nil
}
