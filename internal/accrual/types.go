package accrual

import (
	"time"

	"investment-platform/internal/faults"
)

// PeriodPolicy defines the accrual cadence. The default daily policy keys
// periods by UTC calendar date; a duration policy buckets time into fixed
// windows and scales the daily rate by the window's fraction of a day.
type PeriodPolicy struct {
	cadence  string
	interval time.Duration
}

// DailyPolicy accrues once per UTC calendar day.
func DailyPolicy() PeriodPolicy {
	return PeriodPolicy{cadence: "daily"}
}

// IntervalPolicy accrues once per fixed window of the given duration.
func IntervalPolicy(interval time.Duration) (PeriodPolicy, error) {
	if interval <= 0 {
		return PeriodPolicy{}, &faults.ValidationError{Field: "interval", Reason: "must be positive"}
	}
	return PeriodPolicy{cadence: "interval", interval: interval}, nil
}

// ParsePolicy builds a policy from a config string: "daily" or a Go
// duration such as "6h".
func ParsePolicy(cadence string) (PeriodPolicy, error) {
	if cadence == "" || cadence == "daily" {
		return DailyPolicy(), nil
	}
	d, err := time.ParseDuration(cadence)
	if err != nil {
		return PeriodPolicy{}, &faults.ValidationError{Field: "period_cadence", Reason: "must be \"daily\" or a duration"}
	}
	return IntervalPolicy(d)
}

// PeriodKey returns the idempotency key for the period containing asOf.
// Two calls within the same period always return the same key.
func (p PeriodPolicy) PeriodKey(asOf time.Time) string {
	asOf = asOf.UTC()
	if p.cadence == "daily" {
		return asOf.Format("2006-01-02")
	}
	return asOf.Truncate(p.interval).Format(time.RFC3339)
}

// PeriodFraction returns the period's length as a fraction of a day, the
// multiplier applied to the stored daily rate.
func (p PeriodPolicy) PeriodFraction() float64 {
	if p.cadence == "daily" {
		return 1.0
	}
	return float64(p.interval) / float64(24*time.Hour)
}

// FailureEntry records one investment that failed during a batch run.
type FailureEntry struct {
	InvestmentID string `json:"investment_id"`
	Error        string `json:"error"`
	Attempts     int    `json:"attempts"`
}

// BatchSummary is the outcome of one accrual batch run.
type BatchSummary struct {
	PeriodKey              string         `json:"period_key"`
	AsOf                   time.Time      `json:"as_of"`
	Total                  int            `json:"total"`
	Succeeded              int            `json:"succeeded"`
	Failed                 int            `json:"failed"`
	Skipped                int            `json:"skipped"`
	TotalProfitDistributed float64        `json:"total_profit_distributed"`
	Failures               []FailureEntry `json:"failures,omitempty"`
	StartedAt              time.Time      `json:"started_at"`
	FinishedAt             time.Time      `json:"finished_at"`
}
