package services

import "bean-loyalty/models"

// TierThreshold is the lifetime points needed to reach a tier.
type TierThreshold struct {
	Tier      models.Tier `json:"tier"`
	MinPoints int64       `json:"min_points"`
	Discount  int         `json:"discount_percent"`
}

// TierTable is ordered from lowest to highest tier.
var TierTable = []TierThreshold{
	{Tier: models.TierBronze, MinPoints: 0, Discount: 0},
	{Tier: models.TierSilver, MinPoints: 500, Discount: 5},
	{Tier: models.TierGold, MinPoints: 1500, Discount: 10},
	{Tier: models.TierPlatinum, MinPoints: 3000, Discount: 15},
}

// CalculateTier maps lifetime points to a tier. Negative input is Bronze.
func CalculateTier(totalPointsEarned int64) models.Tier {
	for i := len(TierTable) - 1; i >= 0; i-- {
		if totalPointsEarned >= TierTable[i].MinPoints {
			return TierTable[i].Tier
		}
	}
	return models.TierBronze
}

// TierDiscount returns the discount percentage for a tier; unknown tiers get none.
func TierDiscount(tier models.Tier) int {
	for _, t := range TierTable {
		if t.Tier == tier {
			return t.Discount
		}
	}
	return 0
}

// NextTier returns the tier above the current one and the points still
// needed to reach it. ok is false at the top tier.
func NextTier(totalPointsEarned int64) (next models.Tier, pointsToGo int64, ok bool) {
	if totalPointsEarned < 0 {
		totalPointsEarned = 0
	}
	for _, t := range TierTable {
		if t.MinPoints > totalPointsEarned {
			return t.Tier, t.MinPoints - totalPointsEarned, true
		}
	}
	return "", 0, false
}

func tierRank(tier models.Tier) int {
	for i, t := range TierTable {
		if t.Tier == tier {
			return i
		}
	}
	return -1
}
