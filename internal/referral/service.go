package referral

import (
	"context"
	"time"

	"github.com/google/uuid"

	"investment-platform/config"
	"investment-platform/internal/database"
	"investment-platform/internal/events"
	"investment-platform/internal/faults"
	"investment-platform/internal/logging"
)

// Service manages referral points, tier progression and equity conversion.
type Service struct {
	repo   *database.Repository
	bus    *events.EventBus
	cfg    config.ReferralConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a referral service.
func NewService(repo *database.Repository, bus *events.EventBus, cfg config.ReferralConfig) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		cfg:    cfg,
		logger: logging.WithComponent("referral"),
		now:    time.Now,
	}
}

// AwardResult is the outcome of one points award.
type AwardResult struct {
	Account       *database.ReferralAccount `json:"account"`
	PointsAwarded int64                     `json:"points_awarded"`
	UpgradeBonus  int64                     `json:"upgrade_bonus"`
	TierUpgraded  bool                      `json:"tier_upgraded"`
	PreviousTier  string                    `json:"previous_tier,omitempty"`
}

// QualifyInvestment is the activation hook: when the investor was
// referred and the amount qualifies, their referrer earns points. Wired
// into the investment service at startup; errors are logged, never
// propagated back into the activation.
func (s *Service) QualifyInvestment(ctx context.Context, investorID string, amount float64) {
	if !s.cfg.Enabled || amount < s.cfg.MinQualifyingAmount {
		return
	}

	investor, err := s.repo.GetOperatorByID(ctx, investorID)
	if err != nil {
		s.logger.Error("referral qualification lookup failed", "investor_id", investorID, "error", err)
		return
	}
	if investor.ReferredBy == nil {
		return
	}

	if _, err := s.Award(ctx, *investor.ReferredBy, amount); err != nil {
		s.logger.Error("referral award failed",
			"referrer_id", *investor.ReferredBy, "investor_id", investorID, "error", err)
	}
}

// ApplyAward mutates an account for one qualifying referral: points
// credit, lifetime counters, and at most one tier upgrade. An award
// crossing a tier boundary upgrades exactly one step; the upgrade bonus
// never cascades into a second upgrade within the same award.
func ApplyAward(account *database.ReferralAccount, amount float64) AwardResult {
	var result AwardResult

	tier := TierByName(account.Tier)
	points := AwardForInvestment(tier, amount)

	account.TotalPoints += points
	account.AvailablePoints += points
	account.LifetimeReferrals++
	account.LifetimeInvested += amount

	result.PointsAwarded = points

	if next, ok := NextTier(tier); ok && account.TotalPoints >= next.MinPoints {
		result.TierUpgraded = true
		result.PreviousTier = tier.Name
		result.UpgradeBonus = next.UpgradeBonus

		account.Tier = next.Name
		account.TotalPoints += next.UpgradeBonus
		account.AvailablePoints += next.UpgradeBonus
		tier = next
	}

	account.PointsToNextTier = PointsToNext(tier, account.TotalPoints)
	result.Account = account
	return result
}

// Award credits a referrer for one qualifying investment. The points
// credit and any tier upgrade commit in one transaction so the tier can
// never lag the points that earned it.
func (s *Service) Award(ctx context.Context, referrerID string, amount float64) (*AwardResult, error) {
	if referrerID == "" {
		return nil, &faults.ValidationError{Field: "referrer_id", Reason: "must not be empty"}
	}
	if amount <= 0 {
		return nil, &faults.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	var result AwardResult

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		account, err := tx.GetReferralAccountForUpdate(ctx, referrerID, DefaultTier().Name)
		if err != nil {
			return err
		}

		result = ApplyAward(account, amount)

		return tx.SaveReferralAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	logging.ReferralContext(referrerID, result.PointsAwarded).Info("points awarded",
		"tier", result.Account.Tier, "total_points", result.Account.TotalPoints)
	s.bus.PublishPointsAwarded(referrerID, result.PointsAwarded, result.Account.TotalPoints, result.Account.Tier)

	if result.TierUpgraded {
		s.bus.PublishTierUpgraded(referrerID, result.PreviousTier, result.Account.Tier, result.UpgradeBonus)
	}

	return &result, nil
}

// GetAccount returns a user's referral standing. Users who never earned
// points get a zero-value bronze account without persisting one.
func (s *Service) GetAccount(ctx context.Context, userID string) (*database.ReferralAccount, error) {
	account, err := s.repo.GetReferralAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		tier := DefaultTier()
		return &database.ReferralAccount{
			UserID:           userID,
			Tier:             tier.Name,
			PointsToNextTier: PointsToNext(tier, 0),
		}, nil
	}
	return account, nil
}

// ConvertToEquity reserves available points into a pending share
// conversion. Points leave the available balance immediately so they
// cannot be double-spent while the conversion awaits review; a rejection
// refunds them.
func (s *Service) ConvertToEquity(ctx context.Context, userID string, points int64) (*database.EquityTransaction, error) {
	if points < s.cfg.MinimumConversion {
		return nil, &faults.ValidationError{Field: "points", Reason: "below the minimum conversion"}
	}
	if s.cfg.BaseSharePrice <= 0 {
		return nil, &faults.ValidationError{Field: "share_price", Reason: "share price is not configured"}
	}

	var equityTx *database.EquityTransaction

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		account, err := tx.GetReferralAccountForUpdate(ctx, userID, DefaultTier().Name)
		if err != nil {
			return err
		}

		if account.AvailablePoints < points {
			return &faults.InsufficientBalanceError{
				Requested: float64(points),
				Available: float64(account.AvailablePoints),
			}
		}

		account.AvailablePoints -= points
		account.UsedPoints += points
		if err := tx.SaveReferralAccount(ctx, account); err != nil {
			return err
		}

		// One point converts at one dollar of share value.
		equityTx = &database.EquityTransaction{
			ID:              uuid.New().String(),
			UserID:          userID,
			PointsConverted: points,
			SharePrice:      s.cfg.BaseSharePrice,
			SharesReceived:  float64(points) / s.cfg.BaseSharePrice,
			Status:          database.EquityPending,
		}
		return tx.CreateEquityTransaction(ctx, equityTx)
	})
	if err != nil {
		return nil, err
	}

	logging.ReferralContext(userID, points).Info("equity conversion requested",
		"transaction_id", equityTx.ID, "shares", equityTx.SharesReceived)
	s.bus.Publish(events.Event{
		Type:   events.EventEquityRequested,
		UserID: userID,
		Data: map[string]interface{}{
			"transaction_id": equityTx.ID,
			"points":         points,
			"shares":         equityTx.SharesReceived,
		},
	})

	return equityTx, nil
}

// ReviewConversion approves or rejects a pending conversion. Rejection
// refunds the reserved points in the same transaction.
func (s *Service) ReviewConversion(ctx context.Context, transactionID string, approve bool, reviewerID, rejectReason string) (*database.EquityTransaction, error) {
	if !approve && rejectReason == "" {
		return nil, &faults.ValidationError{Field: "reject_reason", Reason: "required when rejecting"}
	}

	var equityTx *database.EquityTransaction

	err := s.repo.WithTx(ctx, func(tx *database.Repository) error {
		var err error
		equityTx, err = tx.GetEquityTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if equityTx.Status != database.EquityPending {
			return &faults.InvalidStateError{
				Entity: "equity transaction",
				From:   equityTx.Status,
				To:     database.EquityApproved,
				Reason: "only pending conversions can be reviewed",
			}
		}

		status := database.EquityApproved
		var reasonPtr *string
		if !approve {
			status = database.EquityRejected
			reasonPtr = &rejectReason

			account, err := tx.GetReferralAccountForUpdate(ctx, equityTx.UserID, DefaultTier().Name)
			if err != nil {
				return err
			}
			account.AvailablePoints += equityTx.PointsConverted
			account.UsedPoints -= equityTx.PointsConverted
			if err := tx.SaveReferralAccount(ctx, account); err != nil {
				return err
			}
		}

		equityTx.Status = status
		return tx.UpdateEquityTransactionReview(ctx, transactionID, status, reviewerID, reasonPtr)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("equity conversion reviewed",
		"transaction_id", transactionID, "status", equityTx.Status, "reviewer", reviewerID)
	s.bus.Publish(events.Event{
		Type:   events.EventEquityReviewed,
		UserID: equityTx.UserID,
		Data: map[string]interface{}{
			"transaction_id": transactionID,
			"status":         equityTx.Status,
		},
	})

	return equityTx, nil
}

// ListConversions returns a user's equity conversions, newest first.
func (s *Service) ListConversions(ctx context.Context, userID string, limit int) ([]database.EquityTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListEquityTransactionsByUser(ctx, userID, limit)
}
