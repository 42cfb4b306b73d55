package models

import "time"

// BuffType orders the buff application stages. The numeric order of the
// constants below is the order BuffStack applies them in.
type BuffType string

const (
	BuffTypeConsumable BuffType = "consumable" // time-limited purchased multiplier
	BuffTypeCrown      BuffType = "crown"      // crown-holder exclusive multiplier
	BuffTypeTerritory  BuffType = "territory"  // additive percentage bonus
	BuffTypeBoost      BuffType = "boost"      // one-shot spend-to-boost multiplier
)

// ActiveBuff is a live bonus source on an account.
// ExpiresAt == nil means the buff lasts until explicitly cleared (crown buffs).
type ActiveBuff struct {
	ID        string   `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string   `gorm:"index;not null" json:"account_id"`
	BuffType  BuffType `gorm:"index;not null" json:"buff_type"`

	Multiplier  float64 `gorm:"default:1" json:"multiplier"`   // multiplicative types
	AdditivePct float64 `gorm:"default:0" json:"additive_pct"` // territory type, percent of running total

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Territory buffs carry a recurring coin upkeep collected by the sweep.
	UpkeepCost   int64      `gorm:"default:0" json:"upkeep_cost"`
	LastUpkeepAt *time.Time `json:"last_upkeep_at,omitempty"`

	Timestamps
}
