package referral

import (
	"testing"

	"investment-platform/internal/database"
)

func bronzeAccount(points int64) *database.ReferralAccount {
	return &database.ReferralAccount{
		UserID:          "user-1",
		TotalPoints:     points,
		AvailablePoints: points,
		Tier:            "bronze",
	}
}

func TestApplyAwardSimple(t *testing.T) {
	account := bronzeAccount(0)

	result := ApplyAward(account, 500)

	if result.PointsAwarded != 10 {
		t.Errorf("points awarded = %d, want 10", result.PointsAwarded)
	}
	if result.TierUpgraded {
		t.Error("no upgrade expected")
	}
	if account.TotalPoints != 10 || account.AvailablePoints != 10 {
		t.Errorf("account points = %d/%d, want 10/10", account.TotalPoints, account.AvailablePoints)
	}
	if account.LifetimeReferrals != 1 {
		t.Errorf("lifetime referrals = %d, want 1", account.LifetimeReferrals)
	}
	if account.PointsToNextTier != 90 {
		t.Errorf("points to next tier = %d, want 90", account.PointsToNextTier)
	}
}

func TestApplyAwardTierUpgradeWithBonus(t *testing.T) {
	// A bronze referrer at 95 points lands a $2,000 referral: 20 points
	// crosses into silver, which pays a one-time 50 point bonus.
	account := bronzeAccount(95)

	result := ApplyAward(account, 2000)

	if result.PointsAwarded != 20 {
		t.Errorf("points awarded = %d, want 20", result.PointsAwarded)
	}
	if !result.TierUpgraded {
		t.Fatal("expected tier upgrade")
	}
	if result.PreviousTier != "bronze" || account.Tier != "silver" {
		t.Errorf("upgrade %q -> %q, want bronze -> silver", result.PreviousTier, account.Tier)
	}
	if result.UpgradeBonus != 50 {
		t.Errorf("upgrade bonus = %d, want 50", result.UpgradeBonus)
	}
	if account.TotalPoints != 165 {
		t.Errorf("total points = %d, want 165", account.TotalPoints)
	}
	if account.AvailablePoints != 165 {
		t.Errorf("available points = %d, want 165", account.AvailablePoints)
	}
	if account.PointsToNextTier != 85 {
		t.Errorf("points to next tier = %d, want 85 (gold at 250)", account.PointsToNextTier)
	}
}

func TestApplyAwardSingleStepUpgrade(t *testing.T) {
	// A huge award crossing two thresholds still upgrades one tier only.
	account := bronzeAccount(90)

	result := ApplyAward(account, 50000) // 10 + 250 = 260 points

	if !result.TierUpgraded {
		t.Fatal("expected tier upgrade")
	}
	if account.Tier != "silver" {
		t.Errorf("tier = %q, want silver (single step even past gold threshold)", account.Tier)
	}
	// 90 + 260 + 50 bonus = 400 points, past gold's 250, but the next
	// award performs that upgrade.
	if account.TotalPoints != 400 {
		t.Errorf("total points = %d, want 400", account.TotalPoints)
	}
	if account.PointsToNextTier != 0 {
		t.Errorf("points to next tier = %d, want 0 (threshold already passed)", account.PointsToNextTier)
	}

	next := ApplyAward(account, 500)
	if account.Tier != "gold" {
		t.Errorf("tier after second award = %q, want gold", account.Tier)
	}
	if next.UpgradeBonus != 100 {
		t.Errorf("gold bonus = %d, want 100", next.UpgradeBonus)
	}
}

func TestApplyAwardUsesCurrentTierRate(t *testing.T) {
	silver := &database.ReferralAccount{
		UserID:          "user-2",
		TotalPoints:     150,
		AvailablePoints: 150,
		Tier:            "silver",
	}

	result := ApplyAward(silver, 1000) // (12 + 5) * 1.1 = 18.7 -> 19

	if result.PointsAwarded != 19 {
		t.Errorf("points awarded = %d, want 19", result.PointsAwarded)
	}
}

func TestApplyAwardPreservesPointsInvariant(t *testing.T) {
	// total == available + used must hold through awards and upgrades.
	account := &database.ReferralAccount{
		UserID:          "user-3",
		TotalPoints:     95,
		AvailablePoints: 45,
		UsedPoints:      50,
		Tier:            "bronze",
	}

	ApplyAward(account, 2000)

	if account.TotalPoints != account.AvailablePoints+account.UsedPoints {
		t.Errorf("invariant broken: total %d != available %d + used %d",
			account.TotalPoints, account.AvailablePoints, account.UsedPoints)
	}
}
