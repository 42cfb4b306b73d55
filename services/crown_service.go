// services/crown_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"stream-economy/models"
	"stream-economy/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CrownService tracks per-session contribution totals and moves the single
// crown role to whoever holds the strictly highest total. All of it — dedup
// check, contribution append, buff swap, holder update, audit row — commits
// as one unit under the session row lock.
type CrownService struct {
	DB      *gorm.DB
	Economy *EconomyService
	Heist   *HeistService
	Pub     *Publisher
}

func NewCrownService(db *gorm.DB, economy *EconomyService, heist *HeistService, pub *Publisher) *CrownService {
	return &CrownService{DB: db, Economy: economy, Heist: heist, Pub: pub}
}

// CrownBuffMultipliers is the fixed buff set the holder carries. Applied and
// removed only by crown transfer and session end.
var CrownBuffMultipliers = []float64{1.5, 1.25}

type ContributionResult struct {
	Duplicate        bool    `json:"duplicate,omitempty"`
	CrownChanged     bool    `json:"crown_changed"`
	NewHolderID      string  `json:"new_holder_id,omitempty"`
	ContributorTotal float64 `json:"contributor_total"`
}

// RecordContribution applies one externally-sourced monetization event.
// sourceEventID is the idempotency key: a replayed delivery is a typed no-op,
// never a double-applied reward.
func (s *CrownService) RecordContribution(sessionID, contributorExternalID string, usdValue float64, sourceEventID, sourceKind string) (*ContributionResult, error) {
	if sessionID == "" || contributorExternalID == "" || sourceEventID == "" {
		return nil, fmt.Errorf("sessionID, contributorID and sourceEventID are required")
	}
	if usdValue <= 0 {
		return nil, fmt.Errorf("usdValue must be positive, got %f", usdValue)
	}

	acct, err := s.Economy.EnsureAccount(contributorExternalID)
	if err != nil {
		return nil, err
	}

	var result *ContributionResult
	var events []Event

	err = RunUnit(s.DB, func(tx *gorm.DB) error {
		events = events[:0]

		session, err := lockSession(tx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if !session.IsActive {
			return ErrSessionEnded
		}

		// idempotency: checked under the session lock, unique index as backstop
		var existing models.Contribution
		err = tx.Where("source_event_id = ?", sourceEventID).First(&existing).Error
		if err == nil {
			result = &ContributionResult{Duplicate: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		contribution := models.Contribution{
			ID:            uuid.NewString(),
			SessionID:     sessionID,
			ContributorID: acct.ID,
			USDValue:      usdValue,
			SourceEventID: sourceEventID,
			SourceKind:    sourceKind,
		}
		if err := tx.Create(&contribution).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result = &ContributionResult{Duplicate: true}
				return nil
			}
			return err
		}

		contributorTotal, err := s.sessionTotal(tx, sessionID, acct.ID)
		if err != nil {
			return err
		}

		changed := false
		prevHolder := session.CurrentCrownHolderID
		switch {
		case prevHolder == nil:
			changed = true
		case *prevHolder == acct.ID:
			// already wearing it
		default:
			holderTotal, err := s.sessionTotal(tx, sessionID, *prevHolder)
			if err != nil {
				return err
			}
			// strictly greater; an equal total never transfers
			changed = contributorTotal > holderTotal
		}

		if changed {
			if prevHolder != nil {
				if err := tx.Where("account_id = ? AND buff_type = ?", *prevHolder, models.BuffTypeCrown).
					Delete(&models.ActiveBuff{}).Error; err != nil {
					return err
				}
			}
			for _, mult := range CrownBuffMultipliers {
				buff := models.ActiveBuff{
					ID:         uuid.NewString(),
					AccountID:  acct.ID,
					BuffType:   models.BuffTypeCrown,
					Multiplier: mult,
					// no ExpiresAt: crown buffs last until explicitly cleared
				}
				if err := tx.Create(&buff).Error; err != nil {
					return err
				}
			}

			change := models.CrownChange{
				ID:               uuid.NewString(),
				SessionID:        sessionID,
				PreviousHolderID: prevHolder,
				NewHolderID:      acct.ID,
				NewHolderTotal:   contributorTotal,
			}
			if err := tx.Create(&change).Error; err != nil {
				return err
			}
			session.CurrentCrownHolderID = &acct.ID
		}

		session.TotalContributionUSD += usdValue
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		result = &ContributionResult{
			CrownChanged:     changed,
			ContributorTotal: contributorTotal,
		}
		if changed {
			result.NewHolderID = acct.ID
			events = append(events, Event{
				Kind:      EventCrownChanged,
				SessionID: sessionID,
				AccountID: acct.ID,
				Payload: map[string]interface{}{
					"new_holder":   acct.ExternalUserID,
					"holder_total": contributorTotal,
				},
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

func (s *CrownService) sessionTotal(tx *gorm.DB, sessionID, accountID string) (float64, error) {
	var total float64
	err := tx.Model(&models.Contribution{}).
		Where("session_id = ? AND contributor_id = ?", sessionID, accountID).
		Select("COALESCE(SUM(usd_value), 0)").
		Scan(&total).Error
	return total, err
}

// StartSession opens a new competition window and arms the first heist
func (s *CrownService) StartSession(name string) (*models.CompetitiveSession, error) {
	session := models.CompetitiveSession{
		ID:       uuid.NewString(),
		Name:     name,
		IsActive: true,
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return nil, err
	}

	if err := s.Heist.ScheduleNext(session.ID, time.Now()); err != nil {
		log.Printf("⚠️  [SESSION] failed to arm first heist for %s: %v", session.ID, err)
	}
	return &session, nil
}

// CrownSessionReward is one row of the monotonic end-of-session payout table,
// keyed by the holder's final contribution total. Descending; first match wins.
type CrownSessionReward struct {
	MinUSD    float64
	Coins     int64
	XP        int64
	CrateTier models.CrateTier // "" = no crate
}

var CrownSessionRewards = []CrownSessionReward{
	{1000, 50000, 10000, models.CrateTierLegendary},
	{500, 20000, 5000, models.CrateTierEpic},
	{200, 8000, 2500, models.CrateTierRare},
	{50, 2500, 800, models.CrateTierCommon},
	{0, 500, 200, ""},
}

func crownRewardFor(total float64) CrownSessionReward {
	for _, r := range CrownSessionRewards {
		if total >= r.MinUSD {
			return r
		}
	}
	return CrownSessionRewards[len(CrownSessionRewards)-1]
}

type SessionEndResult struct {
	SessionID   string      `json:"session_id"`
	HolderID    *string     `json:"holder_id,omitempty"`
	FinalTotal  float64     `json:"final_total"`
	RewardCoins int64       `json:"reward_coins,omitempty"`
	RewardXP    int64       `json:"reward_xp,omitempty"`
	RewardCrate *CrateGrant `json:"reward_crate,omitempty"`
	ArchiveURL  string      `json:"archive_url,omitempty"`
}

// EndSession closes the window: the final holder gets the tiered reward, the
// crown buffs come off, and the session is archived (best-effort).
func (s *CrownService) EndSession(sessionID string) (*SessionEndResult, error) {
	var result *SessionEndResult
	var events []Event

	err := RunUnit(s.DB, func(tx *gorm.DB) error {
		events = events[:0]
		session, err := lockSession(tx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if session.EndedAt != nil {
			return ErrSessionEnded
		}

		now := time.Now()
		result = &SessionEndResult{SessionID: sessionID}

		if session.CurrentCrownHolderID != nil {
			holderID := *session.CurrentCrownHolderID
			holderTotal, err := s.sessionTotal(tx, sessionID, holderID)
			if err != nil {
				return err
			}
			reward := crownRewardFor(holderTotal)

			locked, err := lockAccount(tx, holderID)
			if err != nil {
				return err
			}

			locked.Balance += reward.Coins
			if applyProgress(locked, reward.XP, now) {
				events = append(events, Event{
					Kind:      EventLevelUp,
					AccountID: locked.ID,
					Payload:   map[string]interface{}{"level": locked.Level, "tier": locked.Tier},
				})
			}
			if err := tx.Save(locked).Error; err != nil {
				return err
			}

			var grant *CrateGrant
			if reward.CrateTier != "" {
				alloc, err := s.Economy.Alloc.PlaceCrate(tx, holderID, reward.CrateTier, "crown_reward", now)
				if err != nil {
					return err
				}
				grant = &CrateGrant{Tier: reward.CrateTier, Placement: alloc.Placement, ExpiresAt: alloc.ExpiresAt}
				if alloc.Crate != nil {
					grant.CrateID = alloc.Crate.ID
				}
			}

			if err := tx.Where("account_id = ? AND buff_type = ?", holderID, models.BuffTypeCrown).
				Delete(&models.ActiveBuff{}).Error; err != nil {
				return err
			}

			entry := models.EventLog{
				ID:            uuid.NewString(),
				AccountID:     holderID,
				Kind:          "crown_reward",
				CurrencyDelta: reward.Coins,
				XPDelta:       reward.XP,
				Detail:        fmt.Sprintf(`{"session_id":%q,"final_total":%.2f}`, sessionID, holderTotal),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}

			result.HolderID = &holderID
			result.FinalTotal = holderTotal
			result.RewardCoins = reward.Coins
			result.RewardXP = reward.XP
			result.RewardCrate = grant
		}

		session.IsActive = false
		session.EndedAt = &now
		session.NextHeistAt = nil
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	s.Pub.Publish(Event{
		Kind:      EventSessionEnded,
		SessionID: sessionID,
		Payload: map[string]interface{}{
			"final_total": result.FinalTotal,
		},
	})
	for _, e := range events {
		s.Pub.Publish(e)
	}

	if url, err := s.archiveSession(sessionID); err != nil {
		log.Printf("⚠️  [SESSION] archive upload failed for %s: %v", sessionID, err)
	} else if url != "" {
		result.ArchiveURL = url
	}

	return result, nil
}

// archiveSession exports the closed session's contributions and crown history
// to R2. Best-effort: the session is already committed as ended.
func (s *CrownService) archiveSession(sessionID string) (string, error) {
	if !utils.R2Enabled() {
		return "", nil
	}

	var session models.CompetitiveSession
	if err := s.DB.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return "", err
	}
	var contributions []models.Contribution
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at ASC").Find(&contributions).Error; err != nil {
		return "", err
	}
	var changes []models.CrownChange
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at ASC").Find(&changes).Error; err != nil {
		return "", err
	}

	key := fmt.Sprintf("sessions/%s.json", sessionID)
	return utils.UploadSessionArchive(key, map[string]interface{}{
		"session":       session,
		"contributions": contributions,
		"crown_changes": changes,
	})
}

// GetLeaderboard reads the worker-maintained snapshot for a session
func (s *CrownService) GetLeaderboard(sessionID string) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := s.DB.Where("session_id = ?", sessionID).
		Order("rank ASC").
		Find(&entries).Error
	return entries, err
}
