package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is the per-viewer economy record (denormalized for performance).
// Balance, XP, level and tier are mutated only inside coordinator-wrapped
// transactions — never through direct handler writes.
type Account struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core economy
	Balance int64 `json:"balance" gorm:"default:0"` // integer coins, never negative
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Tier    int   `json:"tier" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5), derived from level

	// Activity counters
	TotalActionCount  int64 `json:"total_action_count" gorm:"default:0"`
	TotalCratesOpened int64 `json:"total_crates_opened" gorm:"default:0"`
	TotalHeistWins    int64 `json:"total_heist_wins" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastTierUpAt  *time.Time `json:"last_tier_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
