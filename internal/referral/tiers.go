package referral

import "math"

// Tier is one referral tier band. Bands are keyed by lifetime points and
// never move down: a tier once reached is kept even if points are spent.
type Tier struct {
	Name              string  `json:"name"`
	MinPoints         int64   `json:"min_points"`
	PointsPerReferral int64   `json:"points_per_referral"`
	Multiplier        float64 `json:"multiplier"`
	UpgradeBonus      int64   `json:"upgrade_bonus"`
}

// tierTable in ascending order of MinPoints.
var tierTable = []Tier{
	{Name: "bronze", MinPoints: 0, PointsPerReferral: 10, Multiplier: 1.0, UpgradeBonus: 0},
	{Name: "silver", MinPoints: 100, PointsPerReferral: 12, Multiplier: 1.1, UpgradeBonus: 50},
	{Name: "gold", MinPoints: 250, PointsPerReferral: 15, Multiplier: 1.25, UpgradeBonus: 100},
	{Name: "platinum", MinPoints: 500, PointsPerReferral: 20, Multiplier: 1.5, UpgradeBonus: 200},
	{Name: "diamond", MinPoints: 1000, PointsPerReferral: 25, Multiplier: 2.0, UpgradeBonus: 400},
	{Name: "shareholder", MinPoints: 2500, PointsPerReferral: 30, Multiplier: 2.5, UpgradeBonus: 1000},
}

// DefaultTier is the starting tier for new accounts.
func DefaultTier() Tier {
	return tierTable[0]
}

// Tiers returns the full tier table.
func Tiers() []Tier {
	out := make([]Tier, len(tierTable))
	copy(out, tierTable)
	return out
}

// TierByName looks up a tier; unknown names fall back to bronze.
func TierByName(name string) Tier {
	for _, t := range tierTable {
		if t.Name == name {
			return t
		}
	}
	return tierTable[0]
}

// NextTier returns the tier above the given one, or false at the top.
func NextTier(current Tier) (Tier, bool) {
	for i, t := range tierTable {
		if t.Name == current.Name && i+1 < len(tierTable) {
			return tierTable[i+1], true
		}
	}
	return Tier{}, false
}

// PointsToNext returns how many points remain until the tier above
// current, given lifetime points. Zero at the top tier.
func PointsToNext(current Tier, totalPoints int64) int64 {
	next, ok := NextTier(current)
	if !ok {
		return 0
	}
	remaining := next.MinPoints - totalPoints
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AwardForInvestment computes the points for one qualifying referral: the
// tier's base points plus 5 per full $1,000 invested, scaled by the tier
// multiplier and rounded half away from zero.
func AwardForInvestment(tier Tier, amount float64) int64 {
	base := float64(tier.PointsPerReferral) + math.Floor(amount/1000.0)*5.0
	return int64(math.Round(base * tier.Multiplier))
}
