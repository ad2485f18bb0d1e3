package withdrawal

import (
	"math"
	"time"

	"investment-platform/internal/database"
)

// Eligibility is the answer to "what can be withdrawn from this investment
// right now". It is a pure computation over the investment's ledger; no
// request is created by asking.
type Eligibility struct {
	Eligible           bool      `json:"eligible"`
	Reason             string    `json:"reason,omitempty"`
	AvailableProfit    float64   `json:"available_profit"`
	AvailablePrincipal float64   `json:"available_principal"`
	AvailableTotal     float64   `json:"available_total"`
	UnlockAt           time.Time `json:"unlock_at"`
	DaysUntilUnlock    int       `json:"days_until_unlock"`
	PrincipalUnlocked  bool      `json:"principal_unlocked"`
}

// Evaluate computes withdrawal eligibility for an investment at a moment
// in time. Rules, in order:
//
//   - pending and cancelled investments are never eligible
//   - nothing unlocks before unlockDays have passed since the start date
//   - until the investment completes, only accrued profit is withdrawable
//   - after completion the remaining principal unlocks too
//
// Amounts already withdrawn are excluded; reserved covers requests still
// in flight (pending, approved, processing) so two open requests cannot
// both claim the same funds.
func Evaluate(inv *database.Investment, now time.Time, unlockDays int, reservedPrincipal, reservedProfit float64) Eligibility {
	result := Eligibility{
		UnlockAt: inv.StartDate.AddDate(0, 0, unlockDays),
	}

	switch inv.Status {
	case database.InvestmentPending:
		result.Reason = "investment is not yet active"
		return result
	case database.InvestmentCancelled:
		result.Reason = "investment was cancelled"
		return result
	}

	if now.Before(result.UnlockAt) {
		remaining := result.UnlockAt.Sub(now)
		result.DaysUntilUnlock = int(math.Ceil(remaining.Hours() / 24))
		result.Reason = "withdrawals are locked for the initial holding period"
		return result
	}

	completed := inv.Status == database.InvestmentCompleted || !now.Before(inv.EndDate)

	result.AvailableProfit = inv.CumulativeProfit - inv.ProfitWithdrawn - reservedProfit
	if result.AvailableProfit < 0 {
		result.AvailableProfit = 0
	}

	if completed {
		result.PrincipalUnlocked = true
		result.AvailablePrincipal = inv.Principal - inv.PrincipalWithdrawn - reservedPrincipal
		if result.AvailablePrincipal < 0 {
			result.AvailablePrincipal = 0
		}
	}

	result.AvailableTotal = result.AvailableProfit + result.AvailablePrincipal

	if result.AvailableTotal <= 0 {
		result.Reason = "no withdrawable balance"
		return result
	}

	result.Eligible = true
	return result
}

// SplitPortions divides a requested amount into profit and principal
// portions, consuming profit first. The caller has already checked the
// amount against AvailableTotal.
func SplitPortions(amount, availableProfit float64) (principalPortion, profitPortion float64) {
	profitPortion = math.Min(amount, availableProfit)
	principalPortion = amount - profitPortion
	return principalPortion, profitPortion
}

// ClassifyKind names a request by its portions against the eligibility
// snapshot at creation time.
func ClassifyKind(principalPortion float64, elig Eligibility, amount float64) string {
	if principalPortion <= 0 {
		return database.KindProfitsOnly
	}
	if amount >= elig.AvailableTotal {
		return database.KindFullWithdrawal
	}
	return database.KindPartialPrincipal
}
