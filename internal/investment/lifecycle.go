package investment

import (
	"time"

	"investment-platform/internal/database"
	"investment-platform/internal/faults"
)

// Lifecycle state machine. Completed and cancelled are terminal; every
// other transition must appear in this table.
var allowedTransitions = map[string][]string{
	database.InvestmentPending: {database.InvestmentActive, database.InvestmentCancelled},
	database.InvestmentActive:  {database.InvestmentPaused, database.InvestmentCompleted, database.InvestmentCancelled},
	database.InvestmentPaused:  {database.InvestmentActive, database.InvestmentCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
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
		return &faults.InvalidStateError{Entity: "investment", From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == database.InvestmentCompleted || status == database.InvestmentCancelled
}

// DueForCompletion reports whether an active investment's term has elapsed.
// Completion is applied lazily: no background job flips the status, the
// first read or accrual pass at or past the end date does.
func DueForCompletion(inv *database.Investment, now time.Time) bool {
	if inv.Status != database.InvestmentActive {
		return false
	}
	return !now.Before(inv.EndDate)
}
