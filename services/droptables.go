package services

import (
	"fmt"
	"math"

	"stream-economy/models"
)

// DropCategory is a top-level crate outcome family
type DropCategory string

const (
	DropCategoryWeapon   DropCategory = "weapon"
	DropCategoryArmor    DropCategory = "armor"
	DropCategoryCurrency DropCategory = "currency"
	DropCategoryTitle    DropCategory = "title"
)

type CategoryWeight struct {
	Category DropCategory
	Weight   float64
}

type RarityWeight struct {
	Rarity string
	Weight float64
}

type AmountRange struct {
	Min int64
	Max int64
}

// DropTable is the static per-tier crate configuration. Immutable at runtime.
// The declared Categories order is the cumulative-walk tie-break rule:
// reordering entries changes which category a given draw resolves to.
type DropTable struct {
	Tier       models.CrateTier
	Categories []CategoryWeight
	Rarities   []RarityWeight // most-common first; the walk falls back to [0]
	Currency   AmountRange
}

var DropTables = map[models.CrateTier]DropTable{
	models.CrateTierCommon: {
		Tier: models.CrateTierCommon,
		Categories: []CategoryWeight{
			{DropCategoryWeapon, 0.4},
			{DropCategoryArmor, 0.4},
			{DropCategoryCurrency, 0.2},
			{DropCategoryTitle, 0},
		},
		Rarities: []RarityWeight{
			{"common", 0.70},
			{"uncommon", 0.25},
			{"rare", 0.05},
		},
		Currency: AmountRange{Min: 50, Max: 200},
	},
	models.CrateTierRare: {
		Tier: models.CrateTierRare,
		Categories: []CategoryWeight{
			{DropCategoryWeapon, 0.35},
			{DropCategoryArmor, 0.35},
			{DropCategoryCurrency, 0.2},
			{DropCategoryTitle, 0.1},
		},
		Rarities: []RarityWeight{
			{"uncommon", 0.55},
			{"rare", 0.35},
			{"epic", 0.10},
		},
		Currency: AmountRange{Min: 200, Max: 600},
	},
	models.CrateTierEpic: {
		Tier: models.CrateTierEpic,
		Categories: []CategoryWeight{
			{DropCategoryWeapon, 0.3},
			{DropCategoryArmor, 0.3},
			{DropCategoryCurrency, 0.25},
			{DropCategoryTitle, 0.15},
		},
		Rarities: []RarityWeight{
			{"rare", 0.50},
			{"epic", 0.40},
			{"legendary", 0.10},
		},
		Currency: AmountRange{Min: 600, Max: 1500},
	},
	models.CrateTierLegendary: {
		Tier: models.CrateTierLegendary,
		Categories: []CategoryWeight{
			{DropCategoryWeapon, 0.25},
			{DropCategoryArmor, 0.25},
			{DropCategoryCurrency, 0.3},
			{DropCategoryTitle, 0.2},
		},
		Rarities: []RarityWeight{
			{"epic", 0.60},
			{"legendary", 0.40},
		},
		Currency: AmountRange{Min: 1500, Max: 5000},
	},
}

const weightEpsilon = 1e-9

// ValidateDropTables checks the configuration invariant: every table's
// top-level category weights sum to 1.0. Run at startup and in tests.
func ValidateDropTables() error {
	for tier, table := range DropTables {
		sum := 0.0
		for _, cw := range table.Categories {
			if cw.Weight < 0 {
				return fmt.Errorf("drop table %s: negative weight for %s", tier, cw.Category)
			}
			sum += cw.Weight
		}
		if math.Abs(sum-1.0) > weightEpsilon {
			return fmt.Errorf("drop table %s: category weights sum to %f, want 1.0", tier, sum)
		}
		if len(table.Rarities) == 0 {
			return fmt.Errorf("drop table %s: empty rarity table", tier)
		}
		if table.Currency.Min > table.Currency.Max {
			return fmt.Errorf("drop table %s: inverted currency range", tier)
		}
	}
	return nil
}
