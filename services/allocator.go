package services

import (
	"time"

	"stream-economy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Placement says where a granted crate ended up
type Placement string

const (
	PlacementPrimary Placement = "primary"
	PlacementEscrow  Placement = "escrow"
	PlacementDropped Placement = "dropped"
)

type AllocationResult struct {
	Placement Placement     `json:"placement"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Crate     *models.Crate `json:"crate,omitempty"`
}

// Allocator decides primary vs. escrow vs. dropped under fixed caps. All
// methods that mutate must run inside a transaction in which the caller
// already holds the owner's account lock — that lock is what keeps two
// concurrent grants from both observing free capacity.
type Allocator struct {
	PrimaryCap   int
	EscrowCap    int
	EscrowWindow time.Duration
}

func NewAllocator() *Allocator {
	return &Allocator{
		PrimaryCap:   10,
		EscrowCap:    3,
		EscrowWindow: 48 * time.Hour,
	}
}

// primaryCount counts occupied primary slots: unopened non-escrowed crates
// plus weapon/armor items. Cosmetic titles don't take a slot.
func (a *Allocator) primaryCount(tx *gorm.DB, ownerID string) (int64, error) {
	var crates, items int64
	if err := tx.Model(&models.Crate{}).
		Where("owner_id = ? AND is_escrowed = ?", ownerID, false).
		Count(&crates).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&models.InventoryItem{}).
		Where("owner_id = ? AND kind IN ?", ownerID, []models.ItemKind{models.ItemKindWeapon, models.ItemKindArmor}).
		Count(&items).Error; err != nil {
		return 0, err
	}
	return crates + items, nil
}

func (a *Allocator) escrowCount(tx *gorm.DB, ownerID string) (int64, error) {
	var n int64
	err := tx.Model(&models.Crate{}).
		Where("owner_id = ? AND is_escrowed = ?", ownerID, true).
		Count(&n).Error
	return n, err
}

// PlaceCrate inserts a freshly granted crate into primary if there is room,
// escrow (time-limited) if primary is full, or reports Dropped when both are
// at cap. Dropped is a defined outcome, not an error — the caller must
// surface it to the owner.
func (a *Allocator) PlaceCrate(tx *gorm.DB, ownerID string, tier models.CrateTier, source string, now time.Time) (AllocationResult, error) {
	primary, err := a.primaryCount(tx, ownerID)
	if err != nil {
		return AllocationResult{}, err
	}

	if primary < int64(a.PrimaryCap) {
		crate := &models.Crate{ID: uuid.NewString(), OwnerID: ownerID, Tier: tier, Source: source}
		if err := tx.Create(crate).Error; err != nil {
			return AllocationResult{}, err
		}
		return AllocationResult{Placement: PlacementPrimary, Crate: crate}, nil
	}

	escrow, err := a.escrowCount(tx, ownerID)
	if err != nil {
		return AllocationResult{}, err
	}

	if escrow < int64(a.EscrowCap) {
		expires := now.Add(a.EscrowWindow)
		crate := &models.Crate{
			ID:              uuid.NewString(),
			OwnerID:         ownerID,
			Tier:            tier,
			Source:          source,
			IsEscrowed:      true,
			EscrowExpiresAt: &expires,
		}
		if err := tx.Create(crate).Error; err != nil {
			return AllocationResult{}, err
		}
		return AllocationResult{Placement: PlacementEscrow, ExpiresAt: &expires, Crate: crate}, nil
	}

	return AllocationResult{Placement: PlacementDropped}, nil
}

// PromoteEscrow moves an escrowed crate into primary if a slot is free.
// Caller holds the owner lock.
func (a *Allocator) PromoteEscrow(tx *gorm.DB, crate *models.Crate, now time.Time) error {
	if !crate.IsEscrowed {
		return ErrNotEscrowed
	}
	if crate.EscrowExpiresAt != nil && !crate.EscrowExpiresAt.After(now) {
		return ErrEscrowExpired
	}

	primary, err := a.primaryCount(tx, crate.OwnerID)
	if err != nil {
		return err
	}
	if primary >= int64(a.PrimaryCap) {
		return ErrPrimaryFull
	}

	return tx.Model(crate).Updates(map[string]interface{}{
		"is_escrowed":       false,
		"escrow_expires_at": nil,
	}).Error
}

// PurgeExpiredEscrow removes escrow entries past their window. Safe to run
// redundantly or concurrently with live traffic: each delete is keyed by id
// and a crate can only be purged once. Returns what was purged so the caller
// can announce the loss.
func (a *Allocator) PurgeExpiredEscrow(db *gorm.DB, now time.Time) ([]models.Crate, error) {
	var expired []models.Crate
	if err := db.Where("is_escrowed = ? AND escrow_expires_at <= ?", true, now).
		Find(&expired).Error; err != nil {
		return nil, err
	}

	var purged []models.Crate
	for _, crate := range expired {
		res := db.Where("id = ? AND is_escrowed = ?", crate.ID, true).Delete(&models.Crate{})
		if res.Error != nil {
			return purged, res.Error
		}
		if res.RowsAffected > 0 {
			purged = append(purged, crate)
		}
	}
	return purged, nil
}
