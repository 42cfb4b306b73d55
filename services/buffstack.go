package services

import (
	"math"
	"time"

	"stream-economy/models"
)

// StageBonus reports what one buff stage added, for caller transparency
// (the overlay shows viewers where their bonus coins came from).
type StageBonus struct {
	Stage         models.BuffType `json:"stage"`
	CurrencyBonus int64           `json:"currency_bonus"`
	XPBonus       int64           `json:"xp_bonus"`
}

// Adjustment is the buff-stack output: final deltas plus per-stage bonuses.
// ConsumedBoostIDs lists one-shot boost buffs the caller must delete in the
// same transaction that applies the deltas.
type Adjustment struct {
	CurrencyDelta    int64        `json:"currency_delta"`
	XPDelta          int64        `json:"xp_delta"`
	Stages           []StageBonus `json:"stages,omitempty"`
	ConsumedBoostIDs []string     `json:"-"`
}

// buffStageOrder is the fixed application sequence. Each stage compounds on
// the running total, not the original base.
var buffStageOrder = []models.BuffType{
	models.BuffTypeConsumable,
	models.BuffTypeCrown,
	models.BuffTypeTerritory,
	models.BuffTypeBoost,
}

// ApplyBuffStack folds the account's active buffs over a base (currency, xp)
// pair. Multipliers amplify gains only — a bust passes through unmodified so
// buffs never deepen a loss. Expired buffs are ignored (the sweep deletes
// them lazily).
func ApplyBuffStack(baseCurrency, baseXP int64, buffs []models.ActiveBuff, now time.Time) Adjustment {
	adj := Adjustment{CurrencyDelta: baseCurrency, XPDelta: baseXP}

	byType := make(map[models.BuffType][]models.ActiveBuff)
	for _, b := range buffs {
		if b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
			continue
		}
		byType[b.BuffType] = append(byType[b.BuffType], b)
	}

	for _, stage := range buffStageOrder {
		active := byType[stage]
		if len(active) == 0 {
			continue
		}

		beforeCurrency := adj.CurrencyDelta
		beforeXP := adj.XPDelta

		switch stage {
		case models.BuffTypeConsumable, models.BuffTypeCrown, models.BuffTypeBoost:
			for _, b := range active {
				if b.Multiplier <= 0 {
					continue
				}
				if adj.CurrencyDelta > 0 {
					adj.CurrencyDelta = int64(math.Round(float64(adj.CurrencyDelta) * b.Multiplier))
				}
				adj.XPDelta = int64(math.Round(float64(adj.XPDelta) * b.Multiplier))
				if stage == models.BuffTypeBoost {
					adj.ConsumedBoostIDs = append(adj.ConsumedBoostIDs, b.ID)
				}
			}
		case models.BuffTypeTerritory:
			// additive percentages of the running total, summed as one stage
			pct := 0.0
			for _, b := range active {
				pct += b.AdditivePct
			}
			if adj.CurrencyDelta > 0 {
				adj.CurrencyDelta += int64(math.Round(float64(adj.CurrencyDelta) * pct / 100))
			}
			adj.XPDelta += int64(math.Round(float64(adj.XPDelta) * pct / 100))
		}

		if adj.CurrencyDelta != beforeCurrency || adj.XPDelta != beforeXP {
			adj.Stages = append(adj.Stages, StageBonus{
				Stage:         stage,
				CurrencyBonus: adj.CurrencyDelta - beforeCurrency,
				XPBonus:       adj.XPDelta - beforeXP,
			})
		}
	}

	return adj
}

// ClampLoss bounds a negative delta so the account cannot go below zero
func ClampLoss(delta, currentBalance int64) int64 {
	if delta < -currentBalance {
		return -currentBalance
	}
	return delta
}
