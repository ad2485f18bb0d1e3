package plans

import (
	"context"
	"fmt"

	"investment-platform/internal/database"
	"investment-platform/internal/faults"
)

// Store is the subset of repository methods the catalog needs.
type Store interface {
	CreatePlan(ctx context.Context, plan *database.Plan) error
	GetPlanByID(ctx context.Context, planID int64) (*database.Plan, error)
	ListActivePlans(ctx context.Context) ([]database.Plan, error)
	SetPlanActive(ctx context.Context, planID int64, active bool) error
}

// Catalog manages the investment plan catalog.
type Catalog struct {
	store Store
}

// NewCatalog creates a plan catalog backed by the given store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// DeriveDailyRate converts a plan's total return over its duration into the
// per-day percentage used by the accrual engine. The rate is stored on the
// investment at activation so later plan edits never change it.
func DeriveDailyRate(totalReturnPercentage float64, durationDays int) float64 {
	if durationDays <= 0 {
		return 0
	}
	return totalReturnPercentage / float64(durationDays)
}

// ValidatePlan checks a plan definition before it enters the catalog.
func ValidatePlan(plan *database.Plan) error {
	if plan.Name == "" {
		return &faults.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if plan.TotalReturnPercentage <= 0 {
		return &faults.ValidationError{Field: "total_return_percentage", Reason: "must be positive"}
	}
	if plan.DurationDays <= 0 {
		return &faults.ValidationError{Field: "duration_days", Reason: "must be positive"}
	}
	if plan.MinInvestment <= 0 {
		return &faults.ValidationError{Field: "min_investment", Reason: "must be positive"}
	}
	if plan.MaxInvestment < plan.MinInvestment {
		return &faults.ValidationError{Field: "max_investment", Reason: "must be at least min_investment"}
	}
	return nil
}

// ValidateAmount checks a proposed principal against a plan's bounds.
func ValidateAmount(plan *database.Plan, amount float64) error {
	if amount < plan.MinInvestment {
		return &faults.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("below plan minimum of %.2f", plan.MinInvestment),
		}
	}
	if amount > plan.MaxInvestment {
		return &faults.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("above plan maximum of %.2f", plan.MaxInvestment),
		}
	}
	return nil
}

// Create validates and stores a new plan.
func (c *Catalog) Create(ctx context.Context, plan *database.Plan) error {
	if err := ValidatePlan(plan); err != nil {
		return err
	}
	return c.store.CreatePlan(ctx, plan)
}

// Get retrieves a plan by ID.
func (c *Catalog) Get(ctx context.Context, planID int64) (*database.Plan, error) {
	return c.store.GetPlanByID(ctx, planID)
}

// ListActive returns plans open for new investments.
func (c *Catalog) ListActive(ctx context.Context) ([]database.Plan, error) {
	return c.store.ListActivePlans(ctx)
}

// SetActive enables or disables a plan for new investments. Existing
// investments keep accruing on their stored rate either way.
func (c *Catalog) SetActive(ctx context.Context, planID int64, active bool) error {
	return c.store.SetPlanActive(ctx, planID, active)
}
