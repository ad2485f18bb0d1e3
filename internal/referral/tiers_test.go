package referral

import "testing"

func TestTierByName(t *testing.T) {
	if got := TierByName("gold"); got.MinPoints != 250 {
		t.Errorf("gold min points = %d, want 250", got.MinPoints)
	}
	if got := TierByName("nonsense"); got.Name != "bronze" {
		t.Errorf("unknown tier falls back to %q, want bronze", got.Name)
	}
}

func TestTierTableOrdering(t *testing.T) {
	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinPoints <= tiers[i-1].MinPoints {
			t.Errorf("tier %q threshold %d not above %q threshold %d",
				tiers[i].Name, tiers[i].MinPoints, tiers[i-1].Name, tiers[i-1].MinPoints)
		}
		if tiers[i].Multiplier < tiers[i-1].Multiplier {
			t.Errorf("tier %q multiplier %v below %q multiplier %v",
				tiers[i].Name, tiers[i].Multiplier, tiers[i-1].Name, tiers[i-1].Multiplier)
		}
	}
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(TierByName("bronze"))
	if !ok || next.Name != "silver" {
		t.Errorf("next after bronze = %q, want silver", next.Name)
	}

	if _, ok := NextTier(TierByName("shareholder")); ok {
		t.Error("shareholder must be the top tier")
	}
}

func TestPointsToNext(t *testing.T) {
	tests := []struct {
		tier   string
		points int64
		want   int64
	}{
		{"bronze", 0, 100},
		{"bronze", 95, 5},
		{"silver", 115, 135},
		{"silver", 165, 85},
		{"shareholder", 5000, 0},
	}

	for _, tt := range tests {
		got := PointsToNext(TierByName(tt.tier), tt.points)
		if got != tt.want {
			t.Errorf("PointsToNext(%s, %d) = %d, want %d", tt.tier, tt.points, got, tt.want)
		}
	}
}

func TestAwardForInvestment(t *testing.T) {
	tests := []struct {
		name   string
		tier   string
		amount float64
		want   int64
	}{
		{"bronze base only", "bronze", 500, 10},
		{"bronze with size bonus", "bronze", 2000, 20},
		{"bronze just under a thousand", "bronze", 999.99, 10},
		{"bronze exactly a thousand", "bronze", 1000, 15},
		{"silver multiplier rounds", "silver", 500, 13},  // 12 * 1.1 = 13.2
		{"gold large referral", "gold", 10000, 81},       // (15 + 50) * 1.25 = 81.25
		{"diamond doubles", "diamond", 3000, 80},         // (25 + 15) * 2.0
		{"shareholder top rate", "shareholder", 1000, 88}, // (30 + 5) * 2.5 = 87.5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AwardForInvestment(TierByName(tt.tier), tt.amount)
			if got != tt.want {
				t.Errorf("AwardForInvestment(%s, %v) = %d, want %d", tt.tier, tt.amount, got, tt.want)
			}
		})
	}
}
