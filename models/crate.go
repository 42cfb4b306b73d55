package models

import "time"

// CrateTier is one of the four crate ranks
type CrateTier string

const (
	CrateTierCommon    CrateTier = "common"
	CrateTierRare      CrateTier = "rare"
	CrateTierEpic      CrateTier = "epic"
	CrateTierLegendary CrateTier = "legendary"
)

// Crate is a lootable grant. Created by a grant operation; soft-deleted when
// opened or when its escrow window lapses unclaimed.
type Crate struct {
	ID      string    `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID string    `gorm:"index;not null" json:"owner_id"` // Account.ID
	Tier    CrateTier `gorm:"not null" json:"tier"`
	Source  string    `json:"source"` // e.g. "action_drop", "heist_win", "crown_reward"

	IsEscrowed      bool       `gorm:"default:false;index" json:"is_escrowed"`
	EscrowExpiresAt *time.Time `json:"escrow_expires_at,omitempty"`

	Timestamps
}

// ItemKind is the non-currency loot family a crate can yield
type ItemKind string

const (
	ItemKindWeapon ItemKind = "weapon"
	ItemKindArmor  ItemKind = "armor"
	ItemKindTitle  ItemKind = "title"
)

// InventoryItem is a catalog item owned by an account. Items take the slot
// their source crate vacated, so opening never overflows primary storage.
type InventoryItem struct {
	ID      string   `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID string   `gorm:"index;not null" json:"owner_id"`
	Kind    ItemKind `gorm:"not null" json:"kind"`
	Rarity  string   `json:"rarity"`
	Name    string   `gorm:"not null" json:"name"`
	Slug    string   `gorm:"index" json:"slug"`

	Timestamps
}
