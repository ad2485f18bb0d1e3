package database

import (
	"time"
)

// Investment status values. Transitions are validated by the investment
// package state machine; the database only stores the current value.
const (
	InvestmentPending   = "pending"
	InvestmentActive    = "active"
	InvestmentPaused    = "paused"
	InvestmentCompleted = "completed"
	InvestmentCancelled = "cancelled"
)

// Profit record status values
const (
	ProfitCalculated = "calculated"
	ProfitPaid       = "paid"
	ProfitFailed     = "failed"
)

// Withdrawal request status values
const (
	WithdrawalPending    = "pending"
	WithdrawalApproved   = "approved"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalRejected   = "rejected"
	WithdrawalCancelled  = "cancelled"
)

// Withdrawal kinds
const (
	KindProfitsOnly      = "profits_only"
	KindFullWithdrawal   = "full_withdrawal"
	KindPartialPrincipal = "partial_principal"
)

// Equity transaction status values
const (
	EquityPending  = "pending"
	EquityApproved = "approved"
	EquityRejected = "rejected"
)

// Plan defines an investment product. Plans are read-only inputs to the
// accrual engine: editing a plan never changes existing investments.
type Plan struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	TotalReturnPercentage float64   `json:"total_return_percentage"`
	DurationDays          int       `json:"duration_days"`
	MinInvestment         float64   `json:"min_investment"`
	MaxInvestment         float64   `json:"max_investment"`
	Active                bool      `json:"active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Investment is one user's placement into a plan. DailyRatePercent is
// derived once at activation and stored so later plan edits cannot change
// an existing investment's economics.
type Investment struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	PlanID              int64      `json:"plan_id"`
	Principal           float64    `json:"principal"`
	Currency            string     `json:"currency"`
	Status              string     `json:"status"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             time.Time  `json:"end_date"`
	DailyRatePercent    float64    `json:"daily_rate_percent"`
	CumulativeProfit    float64    `json:"cumulative_profit"`
	CumulativeWithdrawn float64    `json:"cumulative_withdrawn"`
	PrincipalWithdrawn  float64    `json:"principal_withdrawn"`
	ProfitWithdrawn     float64    `json:"profit_withdrawn"`
	PausedAt            *time.Time `json:"paused_at,omitempty"`
	PausedReason        *string    `json:"paused_reason,omitempty"`
	PaymentRef          string     `json:"payment_ref"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ProfitRecord is one accrual event for one investment and one period key.
// At most one non-failed record may exist per (investment_id, period_key);
// a partial unique index enforces this.
type ProfitRecord struct {
	ID             int64     `json:"id"`
	InvestmentID   string    `json:"investment_id"`
	PeriodKey      string    `json:"period_key"`
	ProfitAmount   float64   `json:"profit_amount"`
	RateUsed       float64   `json:"rate_used"`
	Status         string    `json:"status"`
	CalculatedAt   time.Time `json:"calculated_at"`
	ManualOverride bool      `json:"manual_override"`
	OverrideReason *string   `json:"override_reason,omitempty"`
	OverrideBy     *string   `json:"override_by,omitempty"`
}

// WithdrawalRequest is a user's ask to remove value from one investment.
// Fee and portions are computed at creation time and frozen.
type WithdrawalRequest struct {
	ID               string     `json:"id"`
	InvestmentID     string     `json:"investment_id"`
	UserID           string     `json:"user_id"`
	RequestedAmount  float64    `json:"requested_amount"`
	Kind             string     `json:"kind"`
	Status           string     `json:"status"`
	PrincipalPortion float64    `json:"principal_portion"`
	ProfitPortion    float64    `json:"profit_portion"`
	Fee              float64    `json:"fee"`
	NetAmount        float64    `json:"net_amount"`
	PaymentMethod    string     `json:"payment_method"`
	RejectReason     *string    `json:"reject_reason,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	TransactionID    *string    `json:"transaction_id,omitempty"`
}

// ReferralAccount tracks referral points and tier for one referring user.
// TotalPoints == AvailablePoints + UsedPoints always holds; the tier is
// monotone non-decreasing.
type ReferralAccount struct {
	UserID            string    `json:"user_id"`
	TotalPoints       int64     `json:"total_points"`
	AvailablePoints   int64     `json:"available_points"`
	UsedPoints        int64     `json:"used_points"`
	Tier              string    `json:"tier"`
	PointsToNextTier  int64     `json:"points_to_next_tier"`
	LifetimeReferrals int       `json:"lifetime_referrals"`
	LifetimeInvested  float64   `json:"lifetime_invested"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// EquityTransaction is a pending conversion of referral points into
// fractional shares. Points are debited at creation (reservation); a
// rejection refunds them.
type EquityTransaction struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	PointsConverted int64      `json:"points_converted"`
	SharePrice      float64    `json:"share_price"`
	SharesReceived  float64    `json:"shares_received"`
	Status          string     `json:"status"`
	RejectReason    *string    `json:"reject_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *string    `json:"reviewed_by,omitempty"`
}

// AccrualBatch is the persisted summary of one accrual batch run.
type AccrualBatch struct {
	ID                     int64     `json:"id"`
	PeriodKey              string    `json:"period_key"`
	AsOf                   time.Time `json:"as_of"`
	Total                  int       `json:"total"`
	Succeeded              int       `json:"succeeded"`
	Failed                 int       `json:"failed"`
	Skipped                int       `json:"skipped"`
	TotalProfitDistributed float64   `json:"total_profit_distributed"`
	Failures               []byte    `json:"-"` // JSON-encoded failure list
	StartedAt              time.Time `json:"started_at"`
	FinishedAt             time.Time `json:"finished_at"`
}

// Operator is a platform account able to call the API. Reviewers and
// admins carry elevated roles in their JWT claims.
type Operator struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"` // "user", "reviewer", "admin"
	ReferredBy   *string    `json:"referred_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}
