package models

// EventLog is the append-only ledger row written inside every coordinator
// unit. A committed balance or XP change always has exactly one of these;
// a rolled-back unit leaves none.
type EventLog struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string `gorm:"index;not null" json:"account_id"`
	Kind      string `gorm:"index;not null" json:"kind"` // "action", "crate_open", "heist_win", "crown_reward", "upkeep", ...

	CurrencyDelta int64  `json:"currency_delta"`
	XPDelta       int64  `json:"xp_delta"`
	Detail        string `gorm:"type:text" json:"detail"` // JSON blob with the outcome specifics

	Timestamps
}
