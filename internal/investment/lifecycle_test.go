package investment

import (
	"testing"
	"time"

	"investment-platform/internal/database"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to active", database.InvestmentPending, database.InvestmentActive, true},
		{"pending to cancelled", database.InvestmentPending, database.InvestmentCancelled, true},
		{"pending to paused", database.InvestmentPending, database.InvestmentPaused, false},
		{"pending to completed", database.InvestmentPending, database.InvestmentCompleted, false},
		{"active to paused", database.InvestmentActive, database.InvestmentPaused, true},
		{"active to completed", database.InvestmentActive, database.InvestmentCompleted, true},
		{"active to cancelled", database.InvestmentActive, database.InvestmentCancelled, true},
		{"active to pending", database.InvestmentActive, database.InvestmentPending, false},
		{"paused to active", database.InvestmentPaused, database.InvestmentActive, true},
		{"paused to cancelled", database.InvestmentPaused, database.InvestmentCancelled, true},
		{"paused to completed", database.InvestmentPaused, database.InvestmentCompleted, false},
		{"completed is terminal", database.InvestmentCompleted, database.InvestmentActive, false},
		{"cancelled is terminal", database.InvestmentCancelled, database.InvestmentActive, false},
		{"cancelled stays cancelled", database.InvestmentCancelled, database.InvestmentCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(database.InvestmentCompleted) {
		t.Error("completed should be terminal")
	}
	if !IsTerminal(database.InvestmentCancelled) {
		t.Error("cancelled should be terminal")
	}
	if IsTerminal(database.InvestmentActive) {
		t.Error("active should not be terminal")
	}
	if IsTerminal(database.InvestmentPaused) {
		t.Error("paused should not be terminal")
	}
}

func TestDueForCompletion(t *testing.T) {
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status string
		now    time.Time
		want   bool
	}{
		{"active before end", database.InvestmentActive, end.Add(-time.Hour), false},
		{"active at end", database.InvestmentActive, end, true},
		{"active after end", database.InvestmentActive, end.Add(24 * time.Hour), true},
		{"paused after end stays paused", database.InvestmentPaused, end.Add(24 * time.Hour), false},
		{"pending after end", database.InvestmentPending, end.Add(24 * time.Hour), false},
		{"completed already", database.InvestmentCompleted, end.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &database.Investment{Status: tt.status, EndDate: end}
			if got := DueForCompletion(inv, tt.now); got != tt.want {
				t.Errorf("DueForCompletion(%s at %v) = %v, want %v", tt.status, tt.now, got, tt.want)
			}
		})
	}
}
