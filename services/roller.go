package services

import (
	"math/rand"

	"stream-economy/models"
)

// Pure weighted-random resolution. No I/O, no DB — deterministic for a given
// RNG stream, so every roll is reproducible under utils.NewSeededRNG.

// RollCategory draws in [0,1) and walks the table's categories in declared
// order, returning the first whose cumulative weight exceeds the draw. The
// declared order is the tie-break rule.
func RollCategory(table DropTable, rng *rand.Rand) DropCategory {
	draw := rng.Float64()
	cum := 0.0
	for _, cw := range table.Categories {
		cum += cw.Weight
		if cum > draw {
			return cw.Category
		}
	}
	// float rounding exhausted the walk
	return table.Categories[len(table.Categories)-1].Category
}

// RollRarity applies the same cumulative walk to the nested rarity table.
// Falls back to the first (most common) entry if rounding exhausts the walk.
func RollRarity(rarities []RarityWeight, rng *rand.Rand) string {
	draw := rng.Float64()
	cum := 0.0
	for _, rw := range rarities {
		cum += rw.Weight
		if cum > draw {
			return rw.Rarity
		}
	}
	return rarities[0].Rarity
}

// RollAmount returns a uniform integer in [Min, Max] inclusive
func RollAmount(r AmountRange, rng *rand.Rand) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Int63n(r.Max-r.Min+1)
}

// RollOutcome resolves one play action against the outcome table
func RollOutcome(rng *rand.Rand) ActionOutcome {
	draw := rng.Float64()
	cum := 0.0
	for _, ow := range ActionOutcomes {
		cum += ow.Weight
		if cum > draw {
			return ow.Outcome
		}
	}
	return OutcomeNothing
}

// RollCrateTier resolves a crate tier from a tier-weight table, falling back
// to the first (most common) tier
func RollCrateTier(tiers []TierWeight, rng *rand.Rand) models.CrateTier {
	draw := rng.Float64()
	cum := 0.0
	for _, tw := range tiers {
		cum += tw.Weight
		if cum > draw {
			return tw.Tier
		}
	}
	return tiers[0].Tier
}
