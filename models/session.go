package models

import "time"

// CompetitiveSession is one crown-competition window. The orchestration layer
// keeps at most one active globally; this core only requires the ID it is
// handed to exist and be active.
type CompetitiveSession struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Name string `gorm:"not null" json:"name"`

	// No column default: gorm omits zero-valued fields when one is set, which
	// would silently store a false as active. Writers always set it explicitly.
	IsActive             bool    `gorm:"index" json:"is_active"`
	CurrentCrownHolderID *string `json:"current_crown_holder_id,omitempty"` // Account.ID
	TotalContributionUSD float64 `gorm:"default:0" json:"total_contribution_usd"`

	// Heist scheduling state
	NextHeistAt *time.Time `json:"next_heist_at,omitempty"`
	HeistCount  int        `gorm:"default:0" json:"heist_count"`

	EndedAt *time.Time `json:"ended_at,omitempty"`

	Timestamps
}

// Contribution is the append-only record of a monetization event.
// SourceEventID is the idempotency key: the unique index is the authoritative
// guard against double-delivery from the payment/chat platform.
type Contribution struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID     string  `gorm:"index;not null" json:"session_id"`
	ContributorID string  `gorm:"index;not null" json:"contributor_id"` // Account.ID
	USDValue      float64 `gorm:"not null" json:"usd_value"`
	SourceEventID string  `gorm:"uniqueIndex;not null" json:"source_event_id"`
	SourceKind    string  `json:"source_kind"` // "subscription", "bits", "donation"

	Timestamps
}

// CrownChange is the audit row appended on every crown transfer
type CrownChange struct {
	ID               string  `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID        string  `gorm:"index;not null" json:"session_id"`
	PreviousHolderID *string `json:"previous_holder_id,omitempty"`
	NewHolderID      string  `gorm:"not null" json:"new_holder_id"`
	NewHolderTotal   float64 `json:"new_holder_total"`

	Timestamps
}

// LeaderboardEntry is a periodically rebuilt snapshot of the contribution
// race, written by the leaderboard worker (best-effort, outside the core unit)
type LeaderboardEntry struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID     string    `gorm:"index;not null" json:"session_id"`
	Rank          int       `gorm:"not null" json:"rank"`
	ContributorID string    `gorm:"not null" json:"contributor_id"`
	TotalUSD      float64   `json:"total_usd"`
	CapturedAt    time.Time `json:"captured_at"`
}
