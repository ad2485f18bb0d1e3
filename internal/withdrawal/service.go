package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"investment-platform/config"
	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/investment"
	"investment-platform/internal/logging"
)

// Request state machine. Completed, rejected and cancelled are terminal.
var allowedTransitions = map[string][]string{
	database.WithdrawalPending:    {database.WithdrawalApproved, database.WithdrawalRejected, database.WithdrawalCancelled},
	database.WithdrawalApproved:   {database.WithdrawalProcessing},
	database.WithdrawalProcessing: {database.WithdrawalCompleted},
}

// CanTransition reports whether from -> to is a legal request move.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidStateError for illegal moves.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &faults.InvalidStateError{Entity: "withdrawal request", From: from, To: to}
	}
	return nil
}

// QuoteCache caches eligibility answers per investment. Implemented by
// the cache package over Redis; a nil cache means every quote recomputes.
type QuoteCache interface {
	GetEligibility(ctx context.Context, investmentID string) (*Eligibility, bool)
	SetEligibility(ctx context.Context, investmentID string, elig *Eligibility)
	InvalidateEligibility(ctx context.Context, investmentID string)
}

// Service manages withdrawal requests from quote to payout.
type Service struct {
	repo   *database.Repository
	bus    *events.EventBus
	cfg    config.WithdrawalConfig
	quotes QuoteCache
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a withdrawal service.
func NewService(repo *database.Repository, bus *events.EventBus, cfg config.WithdrawalConfig) *Service {
	if cfg.FeeSchedule == nil {
		cfg.FeeSchedule = config.DefaultFeeSchedule()
	}
	return &Service{
		repo:   repo,
		bus:    bus,
		cfg:    cfg,
		logger: logging.WithComponent("withdrawal"),
		now:    time.Now,
	}
}

// SetQuoteCache wires the eligibility cache.
func (s *Service) SetQuoteCache(cache QuoteCache) {
	s.quotes = cache
}

// Quote answers what a user can withdraw from an investment right now.
// Read-only and cacheable; every mutation path invalidates the entry.
func (s *Service) Quote(ctx context.Context, userID, investmentID string) (*Eligibility, error) {
	if s.quotes != nil {
		if cached, ok := s.quotes.GetEligibility(ctx, investmentID); ok {
			return cached, nil
		}
	}

	inv, err := s.repo.GetInvestmentByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, &faults.NotFoundError{Entity: "investment", ID: investmentID}
	}

	reservedPrincipal, reservedProfit, err := s.repo.SumOpenWithdrawals(ctx, investmentID)
	if err != nil {
		return nil, err
	}

	elig := Evaluate(inv, s.now(), s.cfg.UnlockDays, reservedPrincipal, reservedProfit)

	if s.quotes != nil {
		s.quotes.SetEligibility(ctx, investmentID, &elig)
	}

	return &elig, nil
}

// Request creates a pending withdrawal. Eligibility is evaluated under
// the investment row lock so concurrent requests cannot both reserve the
// same funds; the fee and portion split freeze at creation.
func (s *Service) Request(ctx context.Context, userID, investmentID string, amount float64, paymentMethod string) (*database.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, &faults.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	fee, net, err := ComputeFee(s.cfg.FeeSchedule, paymentMethod, amount)
	if err != nil {
		return nil, err
	}

	var req *database.WithdrawalRequest

	err = s.repo.WithTx(ctx, func(tx *database.Repository) error {
		inv, err := tx.GetInvestmentForUpdate(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != userID {
			return &faults.NotFoundError{Entity: "investment", ID: investmentID}
		}

		now := s.now()

		// Lazy completion inside the same transaction: a request placed
		// after the term elapsed sees principal unlocked.
		if investment.DueForCompletion(inv, now) {
			if err := tx.UpdateInvestmentStatus(ctx, inv.ID, database.InvestmentCompleted, nil, nil); err != nil {
				return err
			}
			inv.Status = database.InvestmentCompleted
		}

		reservedPrincipal, reservedProfit, err := tx.SumOpenWithdrawals(ctx, investmentID)
		if err != nil {
			return err
		}

		elig := Evaluate(inv, now, s.cfg.UnlockDays, reservedPrincipal, reservedProfit)
		if !elig.Eligible {
			return &faults.ValidationError{Field: "investment_id", Reason: elig.Reason}
		}
		if amount > elig.AvailableTotal {
			return &faults.InsufficientBalanceError{Requested: amount, Available: elig.AvailableTotal}
		}

		principalPortion, profitPortion := SplitPortions(amount, elig.AvailableProfit)
		if principalPortion > 0 && !elig.PrincipalUnlocked {
			return &faults.InsufficientBalanceError{Requested: amount, Available: elig.AvailableProfit}
		}

		req = &database.WithdrawalRequest{
			ID:               uuid.New().String(),
			InvestmentID:     investmentID,
			UserID:           userID,
			RequestedAmount:  amount,
			Kind:             ClassifyKind(principalPortion, elig, amount),
			Status:           database.WithdrawalPending,
			PrincipalPortion: principalPortion,
			ProfitPortion:    profitPortion,
			Fee:              fee,
			NetAmount:        net,
			PaymentMethod:    paymentMethod,
		}

		return tx.CreateWithdrawalRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateQuote(ctx, investmentID)

	logging.WithdrawalContext(req.ID, investmentID, amount).Info("withdrawal requested",
		"kind", req.Kind, "fee", fee, "net", net)
	s.bus.PublishWithdrawal(events.EventWithdrawalRequested, userID, req.ID, req.Status, amount)

	return req, nil
}

// Cancel lets the requesting user withdraw a pending request.
func (s *Service) Cancel(ctx context.Context, userID, requestID string) (*database.WithdrawalRequest, error) {
	var req *database.WithdrawalRequest

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		var err error
		req, err = tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return &faults.NotFoundError{Entity: "withdrawal request", ID: requestID}
		}
		if err := ValidateTransition(req.Status, database.WithdrawalCancelled); err != nil {
			return err
		}

		req.Status = database.WithdrawalCancelled
		return tx.UpdateWithdrawalStatus(ctx, requestID, database.WithdrawalCancelled)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateQuote(ctx, req.InvestmentID)
	s.bus.PublishWithdrawal(events.EventWithdrawalReviewed, userID, requestID, req.Status, req.RequestedAmount)

	return req, nil
}

// Review approves or rejects a pending request.
func (s *Service) Review(ctx context.Context, requestID string, approve bool, reviewerID, rejectReason string) (*database.WithdrawalRequest, error) {
	if !approve && rejectReason == "" {
		return nil, &faults.ValidationError{Field: "reject_reason", Reason: "required when rejecting"}
	}

	target := database.WithdrawalApproved
	if !approve {
		target = database.WithdrawalRejected
	}

	var req *database.WithdrawalRequest

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		var err error
		req, err = tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(req.Status, target); err != nil {
			return err
		}

		var reasonPtr *string
		if !approve {
			reasonPtr = &rejectReason
		}
		req.Status = target
		return tx.UpdateWithdrawalReview(ctx, requestID, target, reviewerID, reasonPtr)
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		s.invalidateQuote(ctx, req.InvestmentID)
	}

	logging.WithdrawalContext(requestID, req.InvestmentID, req.RequestedAmount).Info("withdrawal reviewed",
		"status", req.Status, "reviewer", reviewerID)
	s.bus.PublishWithdrawal(events.EventWithdrawalReviewed, req.UserID, requestID, req.Status, req.RequestedAmount)

	return req, nil
}

// StartProcessing moves an approved request into payout processing.
func (s *Service) StartProcessing(ctx context.Context, requestID string) (*database.WithdrawalRequest, error) {
	var req *database.WithdrawalRequest

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		var err error
		req, err = tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(req.Status, database.WithdrawalProcessing); err != nil {
			return err
		}

		req.Status = database.WithdrawalProcessing
		return tx.UpdateWithdrawalStatus(ctx, requestID, database.WithdrawalProcessing)
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Complete finalizes a processing request: the request closes and the
// investment ledger debits in one transaction. The frozen portions are
// re-checked against the locked row so a ledger drifted by overrides can
// never go negative.
func (s *Service) Complete(ctx context.Context, requestID, transactionID string) (*database.WithdrawalRequest, error) {
	if transactionID == "" {
		return nil, &faults.ValidationError{Field: "transaction_id", Reason: "must not be empty"}
	}

	var req *database.WithdrawalRequest

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		var err error
		req, err = tx.GetWithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(req.Status, database.WithdrawalCompleted); err != nil {
			return err
		}

		inv, err := tx.GetInvestmentForUpdate(ctx, req.InvestmentID)
		if err != nil {
			return err
		}

		availableProfit := inv.CumulativeProfit - inv.ProfitWithdrawn
		availablePrincipal := inv.Principal - inv.PrincipalWithdrawn
		if req.ProfitPortion > availableProfit || req.PrincipalPortion > availablePrincipal {
			return &faults.InsufficientBalanceError{
				Requested: req.RequestedAmount,
				Available: availableProfit + availablePrincipal,
			}
		}

		if err := tx.ApplyWithdrawalDebit(ctx, req.InvestmentID, req.PrincipalPortion, req.ProfitPortion); err != nil {
			return err
		}

		processedAt := s.now()
		if err := tx.CompleteWithdrawal(ctx, requestID, transactionID, processedAt); err != nil {
			return err
		}

		req.Status = database.WithdrawalCompleted
		req.TransactionID = &transactionID
		req.ProcessedAt = &processedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateQuote(ctx, req.InvestmentID)

	logging.WithdrawalContext(requestID, req.InvestmentID, req.RequestedAmount).Info("withdrawal completed",
		"transaction_id", transactionID, "net", req.NetAmount)
	s.bus.PublishWithdrawal(events.EventWithdrawalCompleted, req.UserID, requestID, req.Status, req.RequestedAmount)

	return req, nil
}

// Get retrieves a request, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, requestID string) (*database.WithdrawalRequest, error) {
	req, err := s.repo.GetWithdrawalByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, &faults.NotFoundError{Entity: "withdrawal request", ID: requestID}
	}
	return req, nil
}

// ListByUser returns a user's requests, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]database.WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListWithdrawalsByUser(ctx, userID, limit)
}

// ReviewQueue returns pending requests, oldest first.
func (s *Service) ReviewQueue(ctx context.Context, limit int) ([]database.WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListWithdrawalsByStatus(ctx, database.WithdrawalPending, limit)
}

func (s *Service) invalidateQuote(ctx context.Context, investmentID string) {
	if s.quotes != nil {
		s.quotes.InvalidateEligibility(ctx, investmentID)
	}
}
