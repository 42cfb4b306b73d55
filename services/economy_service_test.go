package services

import (
	"testing"
	"time"

	"stream-economy/models"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPerformAction(t *testing.T) {
	Convey("Given an account with an empty history", t, func() {
		svc := newTestEconomy(t, 1)

		Convey("a winning roll credits the balance and logs one event", func() {
			// outcome draw 0.10 → win, amount roll 50 → 150 coins
			svc.RNG = scriptedRNG(drawValue(0.10), 50)

			res, err := svc.PerformAction("viewer-win")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, OutcomeWin)
			So(res.CurrencyDelta, ShouldEqual, 150)
			So(res.XPDelta, ShouldEqual, 35) // 10 base + 25 win bonus
			So(res.Balance, ShouldEqual, 150)
			So(res.Busted, ShouldBeFalse)

			var acct models.Account
			So(svc.DB.Where("external_user_id = ?", "viewer-win").First(&acct).Error, ShouldBeNil)
			So(acct.Balance, ShouldEqual, 150)
			So(acct.TotalActionCount, ShouldEqual, 1)

			var logs int64
			So(svc.DB.Model(&models.EventLog{}).Where("account_id = ?", acct.ID).Count(&logs).Error, ShouldBeNil)
			So(logs, ShouldEqual, 1)
		})

		Convey("a bust never takes the balance below zero", func() {
			acct, err := svc.EnsureAccount("viewer-bust")
			So(err, ShouldBeNil)
			So(svc.DB.Model(&models.Account{}).Where("id = ?", acct.ID).Update("balance", 500).Error, ShouldBeNil)

			// outcome draw 0.90 → bust, amount roll 700 → 800-coin loss
			svc.RNG = scriptedRNG(drawValue(0.90), 700)

			res, err := svc.PerformAction("viewer-bust")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, OutcomeBust)
			So(res.Busted, ShouldBeTrue)
			So(res.CurrencyDelta, ShouldEqual, -500) // clamped from -800
			So(res.Balance, ShouldEqual, 0)

			var got models.Account
			So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
			So(got.Balance, ShouldEqual, 0)

			var entry models.EventLog
			So(svc.DB.Where("account_id = ?", acct.ID).First(&entry).Error, ShouldBeNil)
			So(entry.CurrencyDelta, ShouldEqual, -500)
		})

		Convey("a crate-drop roll allocates a crate in the same unit", func() {
			// outcome draw 0.96 → crate_drop, tier draw 0.50 → common
			svc.RNG = scriptedRNG(drawValue(0.96), drawValue(0.50))

			res, err := svc.PerformAction("viewer-crate")
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, OutcomeCrateDrop)
			So(res.CrateGranted, ShouldNotBeNil)
			So(res.CrateGranted.Tier, ShouldEqual, models.CrateTierCommon)
			So(res.CrateGranted.Placement, ShouldEqual, PlacementPrimary)
			So(res.XPDelta, ShouldEqual, 50) // 10 base + 40 crate bonus

			var crates int64
			So(svc.DB.Model(&models.Crate{}).Count(&crates).Error, ShouldBeNil)
			So(crates, ShouldEqual, 1)
		})

		Convey("active buffs amplify the win and one-shot boosts are consumed", func() {
			acct, err := svc.EnsureAccount("viewer-buffed")
			So(err, ShouldBeNil)
			boost := models.ActiveBuff{ID: uuid.NewString(), AccountID: acct.ID, BuffType: models.BuffTypeBoost, Multiplier: 2}
			So(svc.DB.Create(&boost).Error, ShouldBeNil)

			svc.RNG = scriptedRNG(drawValue(0.10), 50)

			res, err := svc.PerformAction("viewer-buffed")
			So(err, ShouldBeNil)
			So(res.CurrencyDelta, ShouldEqual, 300) // 150 doubled
			So(len(res.Stages), ShouldEqual, 1)
			So(res.Stages[0].Stage, ShouldEqual, models.BuffTypeBoost)

			var remaining int64
			So(svc.DB.Model(&models.ActiveBuff{}).Where("account_id = ?", acct.ID).Count(&remaining).Error, ShouldBeNil)
			So(remaining, ShouldEqual, 0)
		})
	})
}

func TestOpenCrate(t *testing.T) {
	Convey("Given an account holding one common crate", t, func() {
		svc := newTestEconomy(t, 2)
		acct, err := svc.EnsureAccount("opener")
		So(err, ShouldBeNil)
		crate := models.Crate{ID: uuid.NewString(), OwnerID: acct.ID, Tier: models.CrateTierCommon, Source: "test_grant"}
		So(svc.DB.Create(&crate).Error, ShouldBeNil)

		Convey("a currency roll credits coins and consumes the crate atomically", func() {
			// category draw 0.81 → currency, amount roll 75 → 125 coins
			svc.RNG = scriptedRNG(drawValue(0.81), 75)

			res, err := svc.OpenCrate("opener", "")
			So(err, ShouldBeNil)
			So(res.Category, ShouldEqual, DropCategoryCurrency)
			So(res.CurrencyGranted, ShouldEqual, 125)
			So(res.XPDelta, ShouldEqual, crateOpenXP)
			So(res.Balance, ShouldEqual, 125)
			So(res.FellBack, ShouldBeFalse)

			var crates int64
			So(svc.DB.Model(&models.Crate{}).Where("owner_id = ?", acct.ID).Count(&crates).Error, ShouldBeNil)
			So(crates, ShouldEqual, 0)

			var got models.Account
			So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
			So(got.Balance, ShouldEqual, 125)
			So(got.TotalCratesOpened, ShouldEqual, 1)
		})

		Convey("a weapon roll grants a catalog item", func() {
			// category draw 0.20 → weapon, rarity draw 0.50 → common
			svc.RNG = scriptedRNG(drawValue(0.20), drawValue(0.50))

			res, err := svc.OpenCrate("opener", crate.ID)
			So(err, ShouldBeNil)
			So(res.Category, ShouldEqual, DropCategoryWeapon)
			So(res.ItemGranted, ShouldNotBeNil)
			So(res.ItemGranted.Kind, ShouldEqual, models.ItemKindWeapon)
			So(res.ItemGranted.Rarity, ShouldEqual, "common")
			So(res.ItemGranted.Slug, ShouldNotBeEmpty)

			var items int64
			So(svc.DB.Model(&models.InventoryItem{}).Where("owner_id = ?", acct.ID).Count(&items).Error, ShouldBeNil)
			So(items, ShouldEqual, 1)
		})

		Convey("an open that crosses an XP threshold announces the level-up", func() {
			events := svc.Pub.Subscribe(8)
			So(svc.DB.Model(&models.Account{}).Where("id = ?", acct.ID).
				Update("total_xp", 190).Error, ShouldBeNil)

			svc.RNG = scriptedRNG(drawValue(0.81), 75)

			_, err := svc.OpenCrate("opener", "")
			So(err, ShouldBeNil)

			var kinds []string
			drained := false
			for !drained {
				select {
				case evt := <-events:
					kinds = append(kinds, evt.Kind)
				default:
					drained = true
				}
			}
			So(kinds, ShouldContain, EventCrateOpened)
			So(kinds, ShouldContain, EventLevelUp)

			var got models.Account
			So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
			So(got.Level, ShouldEqual, 2)
		})

		Convey("an unknown crate id is a typed error", func() {
			_, err := svc.OpenCrate("opener", uuid.NewString())
			So(err, ShouldEqual, ErrCrateNotFound)
		})

		Convey("an escrowed crate cannot be opened", func() {
			expires := time.Now().Add(time.Hour)
			So(svc.DB.Model(&models.Crate{}).Where("id = ?", crate.ID).
				Updates(map[string]interface{}{"is_escrowed": true, "escrow_expires_at": expires}).Error, ShouldBeNil)

			_, err := svc.OpenCrate("opener", crate.ID)
			So(err, ShouldEqual, ErrCrateEscrowed)
		})
	})

	Convey("Opening with no crates is a typed error", t, func() {
		svc := newTestEconomy(t, 3)
		_, err := svc.OpenCrate("empty-handed", "")
		So(err, ShouldEqual, ErrNoCrates)
	})

	Convey("A title roll with every title owned falls back to coins", t, func() {
		svc := newTestEconomy(t, 4)
		acct, err := svc.EnsureAccount("collector")
		So(err, ShouldBeNil)

		for _, title := range TitleCatalog {
			item := models.InventoryItem{ID: uuid.NewString(), OwnerID: acct.ID, Kind: models.ItemKindTitle, Name: title.Name, Slug: title.Slug}
			So(svc.DB.Create(&item).Error, ShouldBeNil)
		}
		crate := models.Crate{ID: uuid.NewString(), OwnerID: acct.ID, Tier: models.CrateTierLegendary, Source: "test_grant"}
		So(svc.DB.Create(&crate).Error, ShouldBeNil)

		// category draw 0.85 → title on the legendary table
		svc.RNG = scriptedRNG(drawValue(0.85))

		res, err := svc.OpenCrate("collector", crate.ID)
		So(err, ShouldBeNil)
		So(res.Category, ShouldEqual, DropCategoryTitle)
		So(res.FellBack, ShouldBeTrue)
		So(res.TitleGranted, ShouldBeNil)
		table := DropTables[models.CrateTierLegendary]
		So(res.CurrencyGranted, ShouldBeGreaterThanOrEqualTo, table.Currency.Min)
		So(res.CurrencyGranted, ShouldBeLessThanOrEqualTo, table.Currency.Max)
	})
}

func TestReclaimEscrow(t *testing.T) {
	Convey("Given an account with an escrowed crate", t, func() {
		svc := newTestEconomy(t, 5)
		acct, err := svc.EnsureAccount("reclaimer")
		So(err, ShouldBeNil)

		expires := time.Now().Add(24 * time.Hour)
		crate := models.Crate{ID: uuid.NewString(), OwnerID: acct.ID, Tier: models.CrateTierRare, IsEscrowed: true, EscrowExpiresAt: &expires}
		So(svc.DB.Create(&crate).Error, ShouldBeNil)

		Convey("reclaiming promotes it into primary", func() {
			So(svc.ReclaimEscrow("reclaimer", crate.ID), ShouldBeNil)

			var got models.Crate
			So(svc.DB.Where("id = ?", crate.ID).First(&got).Error, ShouldBeNil)
			So(got.IsEscrowed, ShouldBeFalse)
		})

		Convey("reclaiming fails while primary is full", func() {
			for i := 0; i < 10; i++ {
				filler := models.Crate{ID: uuid.NewString(), OwnerID: acct.ID, Tier: models.CrateTierCommon}
				So(svc.DB.Create(&filler).Error, ShouldBeNil)
			}
			So(svc.ReclaimEscrow("reclaimer", crate.ID), ShouldEqual, ErrPrimaryFull)
		})

		Convey("someone else's crate is not found", func() {
			_, err := svc.EnsureAccount("stranger")
			So(err, ShouldBeNil)
			So(svc.ReclaimEscrow("stranger", crate.ID), ShouldEqual, ErrCrateNotFound)
		})
	})
}

func TestBuffSweeps(t *testing.T) {
	Convey("ExpireBuffs clears lapsed buffs and spares indefinite ones", t, func() {
		svc := newTestEconomy(t, 6)
		acct, err := svc.EnsureAccount("buffed")
		So(err, ShouldBeNil)

		now := time.Now()
		past := now.Add(-time.Minute)
		stale := models.ActiveBuff{ID: uuid.NewString(), AccountID: acct.ID, BuffType: models.BuffTypeConsumable, Multiplier: 2, ExpiresAt: &past}
		crown := models.ActiveBuff{ID: uuid.NewString(), AccountID: acct.ID, BuffType: models.BuffTypeCrown, Multiplier: 1.5}
		So(svc.DB.Create(&stale).Error, ShouldBeNil)
		So(svc.DB.Create(&crown).Error, ShouldBeNil)

		So(svc.ExpireBuffs(now), ShouldBeNil)

		var remaining []models.ActiveBuff
		So(svc.DB.Where("account_id = ?", acct.ID).Find(&remaining).Error, ShouldBeNil)
		So(len(remaining), ShouldEqual, 1)
		So(remaining[0].BuffType, ShouldEqual, models.BuffTypeCrown)
	})

	Convey("Given a territory buff with upkeep due", t, func() {
		svc := newTestEconomy(t, 7)
		acct, err := svc.EnsureAccount("landlord")
		So(err, ShouldBeNil)

		buff := models.ActiveBuff{ID: uuid.NewString(), AccountID: acct.ID, BuffType: models.BuffTypeTerritory, AdditivePct: 10, UpkeepCost: 100}
		So(svc.DB.Create(&buff).Error, ShouldBeNil)
		now := time.Now()

		Convey("a solvent owner is charged and the buff survives", func() {
			So(svc.DB.Model(&models.Account{}).Where("id = ?", acct.ID).Update("balance", 1000).Error, ShouldBeNil)

			So(svc.ChargeUpkeep(now), ShouldBeNil)

			var got models.Account
			So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
			So(got.Balance, ShouldEqual, 900)

			var kept models.ActiveBuff
			So(svc.DB.Where("id = ?", buff.ID).First(&kept).Error, ShouldBeNil)
			So(kept.LastUpkeepAt, ShouldNotBeNil)

			var entry models.EventLog
			So(svc.DB.Where("account_id = ? AND kind = ?", acct.ID, "upkeep").First(&entry).Error, ShouldBeNil)
			So(entry.CurrencyDelta, ShouldEqual, -100)

			Convey("and a second sweep inside the interval charges nothing", func() {
				So(svc.ChargeUpkeep(now.Add(time.Minute)), ShouldBeNil)
				So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
				So(got.Balance, ShouldEqual, 900)
			})
		})

		Convey("an insolvent owner loses the buff, never goes negative", func() {
			So(svc.DB.Model(&models.Account{}).Where("id = ?", acct.ID).Update("balance", 50).Error, ShouldBeNil)

			So(svc.ChargeUpkeep(now), ShouldBeNil)

			var got models.Account
			So(svc.DB.Where("id = ?", acct.ID).First(&got).Error, ShouldBeNil)
			So(got.Balance, ShouldEqual, 50)

			var buffs int64
			So(svc.DB.Model(&models.ActiveBuff{}).Where("account_id = ?", acct.ID).Count(&buffs).Error, ShouldBeNil)
			So(buffs, ShouldEqual, 0)

			var entry models.EventLog
			So(svc.DB.Where("account_id = ? AND kind = ?", acct.ID, "upkeep_lapsed").First(&entry).Error, ShouldBeNil)
			So(entry.ID, ShouldNotBeEmpty)
		})
	})
}

func TestPurgeExpiredEscrowPublishes(t *testing.T) {
	Convey("An expired escrow crate is purged and announced", t, func() {
		svc := newTestEconomy(t, 8)
		events := svc.Pub.Subscribe(4)

		acct, err := svc.EnsureAccount("forgetful")
		So(err, ShouldBeNil)
		past := time.Now().Add(-time.Hour)
		crate := models.Crate{ID: uuid.NewString(), OwnerID: acct.ID, Tier: models.CrateTierEpic, IsEscrowed: true, EscrowExpiresAt: &past}
		So(svc.DB.Create(&crate).Error, ShouldBeNil)

		So(svc.PurgeExpiredEscrow(time.Now()), ShouldBeNil)

		var remaining int64
		So(svc.DB.Model(&models.Crate{}).Count(&remaining).Error, ShouldBeNil)
		So(remaining, ShouldEqual, 0)

		evt := <-events
		So(evt.Kind, ShouldEqual, EventCrateExpired)
		So(evt.AccountID, ShouldEqual, acct.ID)
	})
}

func TestEnsureAccount(t *testing.T) {
	Convey("EnsureAccount is idempotent per external user", t, func() {
		svc := newTestEconomy(t, 9)

		first, err := svc.EnsureAccount("same-viewer")
		So(err, ShouldBeNil)
		So(first.Level, ShouldEqual, 1)
		So(first.Tier, ShouldEqual, 1)

		second, err := svc.EnsureAccount("same-viewer")
		So(err, ShouldBeNil)
		So(second.ID, ShouldEqual, first.ID)

		var count int64
		So(svc.DB.Model(&models.Account{}).Count(&count).Error, ShouldBeNil)
		So(count, ShouldEqual, 1)
	})

	Convey("Losing the first-contact insert race falls back to the existing row", t, func() {
		svc := newTestEconomy(t, 10)

		winner, err := svc.EnsureAccount("simultaneous")
		So(err, ShouldBeNil)

		// the loser's path: its existence check missed, so its insert hits
		// the unique index and must hand back the winner's row
		loser, err := svc.createAccount("simultaneous")
		So(err, ShouldBeNil)
		So(loser.ID, ShouldEqual, winner.ID)

		var count int64
		So(svc.DB.Model(&models.Account{}).Count(&count).Error, ShouldBeNil)
		So(count, ShouldEqual, 1)
	})
}
