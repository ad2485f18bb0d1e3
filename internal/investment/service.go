package investment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/logging"
	"investment-platform/internal/plans"
)

// Store is the subset of repository methods the lifecycle service needs.
type Store interface {
	CreateInvestment(ctx context.Context, inv *database.Investment) error
	GetInvestmentByID(ctx context.Context, id string) (*database.Investment, error)
	GetPlanByID(ctx context.Context, planID int64) (*database.Plan, error)
	ActivateInvestment(ctx context.Context, id string, startDate, endDate time.Time, dailyRatePercent float64) error
	UpdateInvestmentStatus(ctx context.Context, id, status string, pausedAt *time.Time, pausedReason *string) error
	ListInvestmentsByUser(ctx context.Context, userID string) ([]database.Investment, error)
}

// ReferralHook is called after an investment activates so the referral
// service can award points to the investor's referrer. Best effort: a
// failed award never rolls back the activation.
type ReferralHook func(ctx context.Context, investorID string, amount float64)

// Service manages the investment lifecycle.
type Service struct {
	store        Store
	bus          *events.EventBus
	referralHook ReferralHook
	logger       *logging.Logger
	now          func() time.Time
}

// NewService creates an investment lifecycle service.
func NewService(store Store, bus *events.EventBus) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logging.WithComponent("investment"),
		now:    time.Now,
	}
}

// SetReferralHook wires the post-activation referral award.
func (s *Service) SetReferralHook(hook ReferralHook) {
	s.referralHook = hook
}

// Create places a new investment into a plan. The investment starts
// pending; funds confirmation moves it to active via Activate.
func (s *Service) Create(ctx context.Context, userID string, planID int64, amount float64, currency, paymentRef string) (*database.Investment, error) {
	if userID == "" {
		return nil, &faults.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if amount <= 0 {
		return nil, &faults.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	plan, err := s.store.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, &faults.ValidationError{Field: "plan_id", Reason: "plan is not open for investment"}
	}
	if err := plans.ValidateAmount(plan, amount); err != nil {
		return nil, err
	}

	if currency == "" {
		currency = "USD"
	}

	// Dates and rate are provisional until activation restamps them.
	now := s.now()
	inv := &database.Investment{
		ID:               uuid.New().String(),
		UserID:           userID,
		PlanID:           planID,
		Principal:        amount,
		Currency:         currency,
		Status:           database.InvestmentPending,
		StartDate:        now,
		EndDate:          now.AddDate(0, 0, plan.DurationDays),
		DailyRatePercent: plans.DeriveDailyRate(plan.TotalReturnPercentage, plan.DurationDays),
		PaymentRef:       paymentRef,
	}

	if err := s.store.CreateInvestment(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("investment created",
		"investment_id", inv.ID, "user_id", userID, "plan_id", planID, "principal", amount)

	return inv, nil
}

// Activate confirms funding: the accrual window opens now and the daily
// rate is frozen from the plan as it stands at this moment.
func (s *Service) Activate(ctx context.Context, id string) (*database.Investment, error) {
	inv, err := s.store.GetInvestmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(inv.Status, database.InvestmentActive); err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlanByID(ctx, inv.PlanID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	end := start.AddDate(0, 0, plan.DurationDays)
	rate := plans.DeriveDailyRate(plan.TotalReturnPercentage, plan.DurationDays)

	if err := s.store.ActivateInvestment(ctx, id, start, end, rate); err != nil {
		return nil, err
	}

	inv.Status = database.InvestmentActive
	inv.StartDate = start
	inv.EndDate = end
	inv.DailyRatePercent = rate

	s.logger.Info("investment activated",
		"investment_id", id, "end_date", end.Format(time.RFC3339), "daily_rate", rate)
	s.bus.PublishInvestmentStatus(events.EventInvestmentActivated, inv.UserID, id, inv.Status)

	if s.referralHook != nil {
		s.referralHook(ctx, inv.UserID, inv.Principal)
	}

	return inv, nil
}

// Pause suspends accrual. The reason is kept for the audit trail.
func (s *Service) Pause(ctx context.Context, id, reason string) (*database.Investment, error) {
	if reason == "" {
		return nil, &faults.ValidationError{Field: "reason", Reason: "must not be empty"}
	}

	inv, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(inv.Status, database.InvestmentPaused); err != nil {
		return nil, err
	}

	pausedAt := s.now()
	if err := s.store.UpdateInvestmentStatus(ctx, id, database.InvestmentPaused, &pausedAt, &reason); err != nil {
		return nil, err
	}

	inv.Status = database.InvestmentPaused
	inv.PausedAt = &pausedAt
	inv.PausedReason = &reason

	s.logger.Warn("investment paused", "investment_id", id, "reason", reason)
	s.bus.PublishInvestmentStatus(events.EventInvestmentPaused, inv.UserID, id, inv.Status)

	return inv, nil
}

// Resume returns a paused investment to active. The end date does not
// shift: paused periods simply never accrue.
func (s *Service) Resume(ctx context.Context, id string) (*database.Investment, error) {
	inv, err := s.store.GetInvestmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(inv.Status, database.InvestmentActive); err != nil {
		return nil, err
	}

	if err := s.store.UpdateInvestmentStatus(ctx, id, database.InvestmentActive, nil, nil); err != nil {
		return nil, err
	}

	inv.Status = database.InvestmentActive
	inv.PausedAt = nil
	inv.PausedReason = nil

	s.logger.Info("investment resumed", "investment_id", id)
	s.bus.PublishInvestmentStatus(events.EventInvestmentResumed, inv.UserID, id, inv.Status)

	// A resume past the end date completes immediately.
	return s.resolveLoaded(ctx, inv)
}

// Cancel terminates an investment before completion.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*database.Investment, error) {
	inv, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(inv.Status, database.InvestmentCancelled); err != nil {
		return nil, err
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.store.UpdateInvestmentStatus(ctx, id, database.InvestmentCancelled, inv.PausedAt, reasonPtr); err != nil {
		return nil, err
	}

	inv.Status = database.InvestmentCancelled

	s.logger.Warn("investment cancelled", "investment_id", id, "reason", reason)
	s.bus.PublishInvestmentStatus(events.EventInvestmentCancelled, inv.UserID, id, inv.Status)

	return inv, nil
}

// Get retrieves an investment, applying lazy completion.
func (s *Service) Get(ctx context.Context, id string) (*database.Investment, error) {
	return s.resolve(ctx, id)
}

// ListByUser returns a user's investments, applying lazy completion to each.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]database.Investment, error) {
	investments, err := s.store.ListInvestmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range investments {
		inv, err := s.resolveLoaded(ctx, &investments[i])
		if err != nil {
			return nil, err
		}
		investments[i] = *inv
	}

	return investments, nil
}

func (s *Service) resolve(ctx context.Context, id string) (*database.Investment, error) {
	inv, err := s.store.GetInvestmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolveLoaded(ctx, inv)
}

// resolveLoaded flips an active investment to completed once its term has
// elapsed, persisting the transition on first observation.
func (s *Service) resolveLoaded(ctx context.Context, inv *database.Investment) (*database.Investment, error) {
	if !DueForCompletion(inv, s.now()) {
		return inv, nil
	}

	if err := s.store.UpdateInvestmentStatus(ctx, inv.ID, database.InvestmentCompleted, nil, nil); err != nil {
		return nil, err
	}
	inv.Status = database.InvestmentCompleted

	s.logger.Info("investment completed", "investment_id", inv.ID)
	s.bus.PublishInvestmentStatus(events.EventInvestmentCompleted, inv.UserID, inv.ID, inv.Status)

	return inv, nil
}
