package accrual

import (
	"math"
	"testing"
	"time"
)

func floatEquals(a, b float64) bool {
	const epsilon = 1e-6
	return math.Abs(a-b) < epsilon
}

func TestComputeProfit(t *testing.T) {
	tests := []struct {
		name           string
		principal      float64
		dailyRate      float64
		periodFraction float64
		want           float64
	}{
		{
			name:           "half percent daily",
			principal:      5000,
			dailyRate:      0.5,
			periodFraction: 1.0,
			want:           25.0,
		},
		{
			name:           "one percent daily",
			principal:      10000,
			dailyRate:      1.0,
			periodFraction: 1.0,
			want:           100.0,
		},
		{
			name:           "six hour period scales to quarter",
			principal:      10000,
			dailyRate:      1.0,
			periodFraction: 0.25,
			want:           25.0,
		},
		{
			name:           "zero rate",
			principal:      5000,
			dailyRate:      0,
			periodFraction: 1.0,
			want:           0,
		},
		{
			name:           "small principal",
			principal:      100,
			dailyRate:      0.3,
			periodFraction: 1.0,
			want:           0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProfit(tt.principal, tt.dailyRate, tt.periodFraction)
			if !floatEquals(got, tt.want) {
				t.Errorf("ComputeProfit(%v, %v, %v) = %v, want %v",
					tt.principal, tt.dailyRate, tt.periodFraction, got, tt.want)
			}
		})
	}
}

func TestComputeProfitOverTerm(t *testing.T) {
	// $5,000 in a 365-day plan returning 50% total accrues about $205.48
	// over the first 30 days.
	principal := 5000.0
	dailyRate := 50.0 / 365.0

	var total float64
	for day := 0; day < 30; day++ {
		total += ComputeProfit(principal, dailyRate, 1.0)
	}

	want := 205.479452
	if math.Abs(total-want) > 0.01 {
		t.Errorf("30-day accrual = %v, want about %v", total, want)
	}
}

func TestDailyPolicyPeriodKey(t *testing.T) {
	policy := DailyPolicy()

	morning := time.Date(2026, 2, 14, 3, 15, 0, 0, time.UTC)
	evening := time.Date(2026, 2, 14, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	if got := policy.PeriodKey(morning); got != "2026-02-14" {
		t.Errorf("PeriodKey(morning) = %q, want 2026-02-14", got)
	}
	if policy.PeriodKey(morning) != policy.PeriodKey(evening) {
		t.Error("same-day calls must return the same key")
	}
	if policy.PeriodKey(evening) == policy.PeriodKey(nextDay) {
		t.Error("different days must return different keys")
	}
	if policy.PeriodFraction() != 1.0 {
		t.Errorf("daily fraction = %v, want 1.0", policy.PeriodFraction())
	}
}

func TestDailyPolicyKeyUsesUTC(t *testing.T) {
	policy := DailyPolicy()

	// 23:00 in UTC-5 is 04:00 next day UTC; the key must follow UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 2, 14, 23, 0, 0, 0, loc)

	if got := policy.PeriodKey(local); got != "2026-02-15" {
		t.Errorf("PeriodKey = %q, want 2026-02-15", got)
	}
}

func TestIntervalPolicy(t *testing.T) {
	policy, err := IntervalPolicy(6 * time.Hour)
	if err != nil {
		t.Fatalf("IntervalPolicy: %v", err)
	}

	if !floatEquals(policy.PeriodFraction(), 0.25) {
		t.Errorf("6h fraction = %v, want 0.25", policy.PeriodFraction())
	}

	a := time.Date(2026, 2, 14, 6, 10, 0, 0, time.UTC)
	b := time.Date(2026, 2, 14, 11, 59, 0, 0, time.UTC)
	c := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	if policy.PeriodKey(a) != policy.PeriodKey(b) {
		t.Error("times in the same window must share a key")
	}
	if policy.PeriodKey(b) == policy.PeriodKey(c) {
		t.Error("adjacent windows must have different keys")
	}

	if _, err := IntervalPolicy(0); err == nil {
		t.Error("zero interval must be rejected")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		cadence string
		wantErr bool
		frac    float64
	}{
		{"empty defaults to daily", "", false, 1.0},
		{"daily", "daily", false, 1.0},
		{"six hours", "6h", false, 0.25},
		{"one hour", "1h", false, 1.0 / 24.0},
		{"garbage", "fortnightly", true, 0},
		{"negative", "-1h", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := ParsePolicy(tt.cadence)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePolicy(%q): %v", tt.cadence, err)
			}
			if !floatEquals(policy.PeriodFraction(), tt.frac) {
				t.Errorf("fraction = %v, want %v", policy.PeriodFraction(), tt.frac)
			}
		})
	}
}
