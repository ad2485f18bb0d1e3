package plans

import (
	"math"
	"testing"

	"investment-platform/internal/database"
	"investment-platform/internal/faults"
)

func floatEquals(a, b float64) bool {
	const epsilon = 1e-9
	return math.Abs(a-b) < epsilon
}

func TestDeriveDailyRate(t *testing.T) {
	tests := []struct {
		name         string
		totalReturn  float64
		durationDays int
		want         float64
	}{
		{
			name:         "thirty day plan",
			totalReturn:  15.0,
			durationDays: 30,
			want:         0.5,
		},
		{
			name:         "ninety day plan",
			totalReturn:  27.0,
			durationDays: 90,
			want:         0.3,
		},
		{
			name:         "one day plan",
			totalReturn:  1.0,
			durationDays: 1,
			want:         1.0,
		},
		{
			name:         "non terminating division",
			totalReturn:  20.0,
			durationDays: 365,
			want:         20.0 / 365.0,
		},
		{
			name:         "zero duration yields zero",
			totalReturn:  15.0,
			durationDays: 0,
			want:         0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveDailyRate(tt.totalReturn, tt.durationDays)
			if !floatEquals(got, tt.want) {
				t.Errorf("DeriveDailyRate(%v, %d) = %v, want %v",
					tt.totalReturn, tt.durationDays, got, tt.want)
			}
		})
	}
}

func TestDeriveDailyRateRecoversTotal(t *testing.T) {
	// The stored daily rate times the duration must reproduce the plan's
	// total return within floating point tolerance.
	cases := []struct {
		totalReturn  float64
		durationDays int
	}{
		{15.0, 30},
		{27.0, 90},
		{8.5, 45},
		{100.0, 365},
		{0.7, 7},
	}

	for _, c := range cases {
		rate := DeriveDailyRate(c.totalReturn, c.durationDays)
		recovered := rate * float64(c.durationDays)
		relErr := math.Abs(recovered-c.totalReturn) / c.totalReturn
		if relErr > 1e-6 {
			t.Errorf("rate %v over %d days recovers %v, want %v (rel err %v)",
				rate, c.durationDays, recovered, c.totalReturn, relErr)
		}
	}
}

func TestValidatePlan(t *testing.T) {
	valid := database.Plan{
		Name:                  "Growth 30",
		TotalReturnPercentage: 15.0,
		DurationDays:          30,
		MinInvestment:         100,
		MaxInvestment:         50000,
	}

	if err := ValidatePlan(&valid); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *database.Plan)
	}{
		{"empty name", func(p *database.Plan) { p.Name = "" }},
		{"zero return", func(p *database.Plan) { p.TotalReturnPercentage = 0 }},
		{"negative return", func(p *database.Plan) { p.TotalReturnPercentage = -5 }},
		{"zero duration", func(p *database.Plan) { p.DurationDays = 0 }},
		{"zero minimum", func(p *database.Plan) { p.MinInvestment = 0 }},
		{"max below min", func(p *database.Plan) { p.MaxInvestment = 50 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := ValidatePlan(&p)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !faults.IsValidation(err) {
				t.Errorf("expected validation error, got %T: %v", err, err)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	plan := database.Plan{MinInvestment: 100, MaxInvestment: 10000}

	tests := []struct {
		name    string
		amount  float64
		wantErr bool
	}{
		{"at minimum", 100, false},
		{"at maximum", 10000, false},
		{"in range", 5000, false},
		{"below minimum", 99.99, true},
		{"above maximum", 10000.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(&plan, tt.amount)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr && !faults.IsValidation(err) {
				t.Errorf("expected validation error, got %T: %v", err, err)
			}
		})
	}
}
