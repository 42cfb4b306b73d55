// services/economy_service.go
package services

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"stream-economy/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EconomyService owns the coordinator-wrapped operations: every balance or
// XP change travels through RunUnit together with its inventory change and
// event-log row. Post-commit side effects go out through the Publisher and
// are best-effort only.
type EconomyService struct {
	DB    *gorm.DB
	RNG   *rand.Rand
	Alloc *Allocator
	Pub   *Publisher
}

func NewEconomyService(db *gorm.DB, rng *rand.Rand, pub *Publisher) *EconomyService {
	return &EconomyService{DB: db, RNG: rng, Alloc: NewAllocator(), Pub: pub}
}

// EnsureAccount ensures an Account row exists (idempotent)
func (s *EconomyService) EnsureAccount(externalUserID string) (*models.Account, error) {
	var acct models.Account
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.createAccount(externalUserID)
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// createAccount inserts the first-contact row. Two concurrent first requests
// race on the external_user_id unique index; the loser re-fetches the
// winner's row instead of surfacing the conflict.
func (s *EconomyService) createAccount(externalUserID string) (*models.Account, error) {
	acct := models.Account{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Balance:        0,
		Level:          1,
		Tier:           1,
	}
	if err := s.DB.Create(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Account
			if err := s.DB.Where("external_user_id = ?", externalUserID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &acct, nil
}

// CrateGrant reports a crate granted during an operation and where it landed
type CrateGrant struct {
	CrateID   string           `json:"crate_id,omitempty"`
	Tier      models.CrateTier `json:"tier"`
	Placement Placement        `json:"placement"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

type ActionResult struct {
	Outcome       ActionOutcome `json:"outcome"`
	CurrencyDelta int64         `json:"currency_delta"`
	XPDelta       int64         `json:"xp_delta"`
	Busted        bool          `json:"busted"`
	CrateGranted  *CrateGrant   `json:"crate_granted,omitempty"`
	Stages        []StageBonus  `json:"stages,omitempty"`
	Balance       int64         `json:"balance"`
	Level         int           `json:"level"`
	Tier          int           `json:"tier"`
	LeveledUp     bool          `json:"leveled_up"`
}

// PerformAction resolves one play action: roll outcome → buff stack →
// (maybe) crate allocation → balance/XP write → event log, all in one unit.
func (s *EconomyService) PerformAction(externalUserID string) (*ActionResult, error) {
	acct, err := s.EnsureAccount(externalUserID)
	if err != nil {
		return nil, err
	}

	var result *ActionResult
	var events []Event

	err = RunUnit(s.DB, func(tx *gorm.DB) error {
		events = events[:0] // transaction may retry

		locked, err := lockAccount(tx, acct.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		outcome := RollOutcome(s.RNG)

		var baseCurrency int64
		if r, ok := OutcomeRanges[outcome]; ok {
			amount := RollAmount(r, s.RNG)
			if outcome == OutcomeBust {
				baseCurrency = -amount
			} else {
				baseCurrency = amount
			}
		}
		baseXP := int64(ActionBaseXP) + OutcomeXPBonus[outcome]

		var buffs []models.ActiveBuff
		if err := tx.Where("account_id = ?", locked.ID).Find(&buffs).Error; err != nil {
			return err
		}

		adj := ApplyBuffStack(baseCurrency, baseXP, buffs, now)
		adj.CurrencyDelta = ClampLoss(adj.CurrencyDelta, locked.Balance)

		var grant *CrateGrant
		if outcome == OutcomeCrateDrop {
			tier := RollCrateTier(CrateDropTiers, s.RNG)
			alloc, err := s.Alloc.PlaceCrate(tx, locked.ID, tier, "action_drop", now)
			if err != nil {
				return err
			}
			grant = &CrateGrant{Tier: tier, Placement: alloc.Placement, ExpiresAt: alloc.ExpiresAt}
			if alloc.Crate != nil {
				grant.CrateID = alloc.Crate.ID
			}
			if alloc.Placement == PlacementDropped {
				events = append(events, Event{
					Kind:      EventCrateDropped,
					AccountID: locked.ID,
					Payload:   map[string]interface{}{"tier": tier},
				})
			}
		}

		if len(adj.ConsumedBoostIDs) > 0 {
			if err := tx.Where("id IN ?", adj.ConsumedBoostIDs).Delete(&models.ActiveBuff{}).Error; err != nil {
				return err
			}
		}

		locked.Balance += adj.CurrencyDelta
		leveled := applyProgress(locked, adj.XPDelta, now)
		locked.TotalActionCount++

		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"outcome": outcome,
			"crate":   grant,
			"stages":  adj.Stages,
		})
		entry := models.EventLog{
			ID:            uuid.NewString(),
			AccountID:     locked.ID,
			Kind:          "action",
			CurrencyDelta: adj.CurrencyDelta,
			XPDelta:       adj.XPDelta,
			Detail:        string(detail),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &ActionResult{
			Outcome:       outcome,
			CurrencyDelta: adj.CurrencyDelta,
			XPDelta:       adj.XPDelta,
			Busted:        outcome == OutcomeBust,
			CrateGranted:  grant,
			Stages:        adj.Stages,
			Balance:       locked.Balance,
			Level:         locked.Level,
			Tier:          locked.Tier,
			LeveledUp:     leveled,
		}

		events = append(events, Event{
			Kind:      EventActionResolved,
			AccountID: locked.ID,
			Payload: map[string]interface{}{
				"outcome":        outcome,
				"currency_delta": adj.CurrencyDelta,
				"balance":        locked.Balance,
			},
		})
		if leveled {
			events = append(events, Event{
				Kind:      EventLevelUp,
				AccountID: locked.ID,
				Payload:   map[string]interface{}{"level": locked.Level, "tier": locked.Tier},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		s.Pub.Publish(e)
	}
	return result, nil
}

type OpenResult struct {
	Category        DropCategory          `json:"category"`
	ItemGranted     *models.InventoryItem `json:"item_granted,omitempty"`
	TitleGranted    *models.InventoryItem `json:"title_granted,omitempty"`
	CurrencyGranted int64                 `json:"currency_granted,omitempty"`
	XPDelta         int64                 `json:"xp_delta"`
	FellBack        bool                  `json:"fell_back"` // content missing → currency substitute
	Balance         int64                 `json:"balance"`
}

const crateOpenXP = 15

// OpenCrate consumes a crate and resolves its drop table. An empty crateID
// opens the oldest primary crate. A category that resolves to zero eligible
// content substitutes a currency payout from the tier's range — opening never
// fails because the catalog is thin.
func (s *EconomyService) OpenCrate(externalUserID, crateID string) (*OpenResult, error) {
	acct, err := s.EnsureAccount(externalUserID)
	if err != nil {
		return nil, err
	}

	var result *OpenResult
	var events []Event

	err = RunUnit(s.DB, func(tx *gorm.DB) error {
		events = events[:0]

		locked, err := lockAccount(tx, acct.ID)
		if err != nil {
			return err
		}

		var crate models.Crate
		if crateID == "" {
			err = tx.Where("owner_id = ? AND is_escrowed = ?", locked.ID, false).
				Order("created_at ASC").
				First(&crate).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCrates
			}
		} else {
			err = tx.Where("id = ? AND owner_id = ?", crateID, locked.ID).First(&crate).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCrateNotFound
			}
		}
		if err != nil {
			return err
		}
		if crate.IsEscrowed {
			return ErrCrateEscrowed
		}

		now := time.Now()
		table := DropTables[crate.Tier]
		category := RollCategory(table, s.RNG)

		var item *models.InventoryItem
		var baseCurrency int64
		fellBack := false

		switch category {
		case DropCategoryWeapon, DropCategoryArmor:
			kind := models.ItemKindWeapon
			if category == DropCategoryArmor {
				kind = models.ItemKindArmor
			}
			rarity := RollRarity(table.Rarities, s.RNG)
			pool := itemsFor(rarity, kind)
			if len(pool) == 0 {
				baseCurrency = RollAmount(table.Currency, s.RNG)
				fellBack = true
			} else {
				def := pool[s.RNG.Intn(len(pool))]
				item = &models.InventoryItem{
					ID:      uuid.NewString(),
					OwnerID: locked.ID,
					Kind:    kind,
					Rarity:  rarity,
					Name:    def.Name,
					Slug:    slug.Make(def.Name),
				}
				if err := tx.Create(item).Error; err != nil {
					return err
				}
			}
		case DropCategoryCurrency:
			baseCurrency = RollAmount(table.Currency, s.RNG)
		case DropCategoryTitle:
			var ownedSlugs []string
			if err := tx.Model(&models.InventoryItem{}).
				Where("owner_id = ? AND kind = ?", locked.ID, models.ItemKindTitle).
				Pluck("slug", &ownedSlugs).Error; err != nil {
				return err
			}
			owned := make(map[string]bool, len(ownedSlugs))
			for _, sl := range ownedSlugs {
				owned[sl] = true
			}
			var candidates []TitleDef
			for _, t := range TitleCatalog {
				if !owned[t.Slug] {
					candidates = append(candidates, t)
				}
			}
			if len(candidates) == 0 {
				baseCurrency = RollAmount(table.Currency, s.RNG)
				fellBack = true
			} else {
				def := candidates[s.RNG.Intn(len(candidates))]
				item = &models.InventoryItem{
					ID:      uuid.NewString(),
					OwnerID: locked.ID,
					Kind:    models.ItemKindTitle,
					Name:    def.Name,
					Slug:    def.Slug,
				}
				if err := tx.Create(item).Error; err != nil {
					return err
				}
			}
		}

		var buffs []models.ActiveBuff
		if err := tx.Where("account_id = ?", locked.ID).Find(&buffs).Error; err != nil {
			return err
		}
		adj := ApplyBuffStack(baseCurrency, crateOpenXP, buffs, now)

		if len(adj.ConsumedBoostIDs) > 0 {
			if err := tx.Where("id IN ?", adj.ConsumedBoostIDs).Delete(&models.ActiveBuff{}).Error; err != nil {
				return err
			}
		}

		// the crate is consumed in the same unit that grants its contents
		if err := tx.Delete(&crate).Error; err != nil {
			return err
		}

		locked.Balance += adj.CurrencyDelta
		leveled := applyProgress(locked, adj.XPDelta, now)
		locked.TotalCratesOpened++
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"crate_id": crate.ID,
			"tier":     crate.Tier,
			"category": category,
			"item":     item,
			"fellback": fellBack,
		})
		entry := models.EventLog{
			ID:            uuid.NewString(),
			AccountID:     locked.ID,
			Kind:          "crate_open",
			CurrencyDelta: adj.CurrencyDelta,
			XPDelta:       adj.XPDelta,
			Detail:        string(detail),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &OpenResult{
			Category:        category,
			CurrencyGranted: adj.CurrencyDelta,
			XPDelta:         adj.XPDelta,
			FellBack:        fellBack,
			Balance:         locked.Balance,
		}
		if item != nil {
			if item.Kind == models.ItemKindTitle {
				result.TitleGranted = item
			} else {
				result.ItemGranted = item
			}
		}

		events = append(events, Event{
			Kind:      EventCrateOpened,
			AccountID: locked.ID,
			Payload: map[string]interface{}{
				"tier":     crate.Tier,
				"category": category,
			},
		})
		if leveled {
			events = append(events, Event{
				Kind:      EventLevelUp,
				AccountID: locked.ID,
				Payload:   map[string]interface{}{"level": locked.Level, "tier": locked.Tier},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		s.Pub.Publish(e)
	}
	return result, nil
}

// ReclaimEscrow promotes an escrowed crate into primary storage if there is
// room. Expired escrow is not recoverable.
func (s *EconomyService) ReclaimEscrow(externalUserID, crateID string) error {
	acct, err := s.EnsureAccount(externalUserID)
	if err != nil {
		return err
	}

	return RunUnit(s.DB, func(tx *gorm.DB) error {
		locked, err := lockAccount(tx, acct.ID)
		if err != nil {
			return err
		}

		var crate models.Crate
		err = tx.Where("id = ? AND owner_id = ?", crateID, locked.ID).First(&crate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCrateNotFound
		}
		if err != nil {
			return err
		}

		return s.Alloc.PromoteEscrow(tx, &crate, time.Now())
	})
}

// GetProfile returns the account snapshot the dashboard polls
func (s *EconomyService) GetProfile(externalUserID string) (map[string]interface{}, error) {
	acct, err := s.EnsureAccount(externalUserID)
	if err != nil {
		return nil, err
	}

	primary, err := s.Alloc.primaryCount(s.DB, acct.ID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.Alloc.escrowCount(s.DB, acct.ID)
	if err != nil {
		return nil, err
	}

	var buffs []models.ActiveBuff
	if err := s.DB.Where("account_id = ?", acct.ID).Find(&buffs).Error; err != nil {
		return nil, err
	}

	var recent []models.EventLog
	if err := s.DB.Where("account_id = ?", acct.ID).
		Order("created_at DESC").Limit(10).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"account":       acct,
		"primary_used":  primary,
		"primary_cap":   s.Alloc.PrimaryCap,
		"escrow_used":   escrow,
		"escrow_cap":    s.Alloc.EscrowCap,
		"active_buffs":  buffs,
		"recent_events": recent,
	}, nil
}

// --- background sweeps (idempotent, safe to run concurrently with traffic) ---

// PurgeExpiredEscrow drops escrow entries past their window and announces
// each loss so the owner is told, not silently robbed.
func (s *EconomyService) PurgeExpiredEscrow(now time.Time) error {
	purged, err := s.Alloc.PurgeExpiredEscrow(s.DB, now)
	if err != nil {
		return err
	}
	for _, crate := range purged {
		s.Pub.Publish(Event{
			Kind:      EventCrateExpired,
			AccountID: crate.OwnerID,
			Payload:   map[string]interface{}{"tier": crate.Tier, "crate_id": crate.ID},
		})
	}
	if len(purged) > 0 {
		log.Printf("🧹 [ESCROW] purged %d expired crates", len(purged))
	}
	return nil
}

// ExpireBuffs clears lapsed time-limited buffs
func (s *EconomyService) ExpireBuffs(now time.Time) error {
	res := s.DB.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&models.ActiveBuff{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("🧹 [BUFFS] expired %d buffs", res.RowsAffected)
	}
	return nil
}

// UpkeepInterval is how often a territory buff charges its upkeep
const UpkeepInterval = 24 * time.Hour

// ChargeUpkeep collects the recurring cost of territory buffs. An owner who
// cannot cover the cost loses the buff; the balance never goes negative.
func (s *EconomyService) ChargeUpkeep(now time.Time) error {
	cutoff := now.Add(-UpkeepInterval)
	var due []models.ActiveBuff
	if err := s.DB.Where("buff_type = ? AND upkeep_cost > 0 AND (last_upkeep_at IS NULL OR last_upkeep_at <= ?)",
		models.BuffTypeTerritory, cutoff).
		Find(&due).Error; err != nil {
		return err
	}

	for _, buff := range due {
		buff := buff
		err := RunUnit(s.DB, func(tx *gorm.DB) error {
			locked, err := lockAccount(tx, buff.AccountID)
			if err != nil {
				return err
			}

			// re-check under the lock; a concurrent sweep may have charged it
			var current models.ActiveBuff
			err = tx.Where("id = ? AND (last_upkeep_at IS NULL OR last_upkeep_at <= ?)", buff.ID, cutoff).
				First(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			if locked.Balance < current.UpkeepCost {
				// can't pay: the buff lapses, the balance stays untouched
				if err := tx.Delete(&current).Error; err != nil {
					return err
				}
				entry := models.EventLog{
					ID:        uuid.NewString(),
					AccountID: locked.ID,
					Kind:      "upkeep_lapsed",
					Detail:    `{"buff_id":"` + current.ID + `"}`,
				}
				return tx.Create(&entry).Error
			}

			locked.Balance -= current.UpkeepCost
			if err := tx.Save(locked).Error; err != nil {
				return err
			}
			if err := tx.Model(&current).Update("last_upkeep_at", now).Error; err != nil {
				return err
			}
			entry := models.EventLog{
				ID:            uuid.NewString(),
				AccountID:     locked.ID,
				Kind:          "upkeep",
				CurrencyDelta: -current.UpkeepCost,
				Detail:        `{"buff_id":"` + current.ID + `"}`,
			}
			return tx.Create(&entry).Error
		})
		if err != nil {
			log.Printf("⚠️  [UPKEEP] charge failed for buff %s: %v", buff.ID, err)
		}
	}
	return nil
}
