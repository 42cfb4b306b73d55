// services/heist_service.go
package services

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"stream-economy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HeistService drives the timed single-winner challenge:
// Scheduled → Active → Won | Expired. The time limit is a data-driven
// deadline checked lazily at submission and by the sweep — no live timers.
type HeistService struct {
	DB      *gorm.DB
	RNG     *rand.Rand
	Economy *EconomyService
	Pub     *Publisher
}

func NewHeistService(db *gorm.DB, rng *rand.Rand, economy *EconomyService, pub *Publisher) *HeistService {
	return &HeistService{DB: db, RNG: rng, Economy: economy, Pub: pub}
}

// Scheduling bounds. The first heist of a session fires sooner to hook the
// room early.
const (
	firstHeistDelayMin = 2 * time.Minute
	firstHeistDelayMax = 5 * time.Minute
	heistDelayMin      = 10 * time.Minute
	heistDelayMax      = 25 * time.Minute
	noRepeatWindow     = 5 // most-recently-used questions to avoid, per type
)

var heistWinXP = map[models.HeistDifficulty]int64{
	models.HeistEasy:   50,
	models.HeistMedium: 100,
	models.HeistHard:   200,
}

func (s *HeistService) scheduleDelay(heistCount int) time.Duration {
	lo, hi := heistDelayMin, heistDelayMax
	if heistCount == 0 {
		lo, hi = firstHeistDelayMin, firstHeistDelayMax
	}
	return lo + time.Duration(s.RNG.Int63n(int64(hi-lo)))
}

// ScheduleNext persists the session's next fire time if none is pending and
// no heist is currently open. Own small transaction, so it never extends the
// winner/expiry units that call it post-commit.
func (s *HeistService) ScheduleNext(sessionID string, now time.Time) error {
	return RunUnit(s.DB, func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsActive || session.NextHeistAt != nil {
			return nil
		}

		var open int64
		if err := tx.Model(&models.Heist{}).
			Where("session_id = ? AND ended_at IS NULL", sessionID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return nil
		}

		next := now.Add(s.scheduleDelay(session.HeistCount))
		return tx.Model(session).Update("next_heist_at", next).Error
	})
}

// ActivateDue is the gocron entrypoint: fire every session whose next-heist
// time has arrived. Idempotent — activation clears the fire time in the same
// transaction that creates the heist.
func (s *HeistService) ActivateDue(now time.Time) {
	var sessions []models.CompetitiveSession
	if err := s.DB.Where("is_active = ? AND next_heist_at IS NOT NULL AND next_heist_at <= ?", true, now).
		Find(&sessions).Error; err != nil {
		log.Printf("⚠️  [HEIST] activation scan failed: %v", err)
		return
	}

	for _, session := range sessions {
		if _, err := s.Activate(session.ID, now); err != nil {
			log.Printf("⚠️  [HEIST] failed to activate for session %s: %v", session.ID, err)
		}
	}
}

// Activate opens one heist for the session: weighted challenge-type pick,
// question chosen outside the no-repeat window, time limit by difficulty.
func (s *HeistService) Activate(sessionID string, now time.Time) (*models.Heist, error) {
	var heist *models.Heist

	err := RunUnit(s.DB, func(tx *gorm.DB) error {
		heist = nil

		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsActive {
			return ErrSessionEnded
		}

		// only one open heist per session
		var open int64
		if err := tx.Model(&models.Heist{}).
			Where("session_id = ? AND ended_at IS NULL", sessionID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return tx.Model(session).Update("next_heist_at", nil).Error
		}

		question := s.pickQuestion(tx, sessionID)

		heist = &models.Heist{
			ID:               uuid.NewString(),
			SessionID:        sessionID,
			ChallengeType:    question.Type,
			QuestionID:       question.ID,
			Prompt:           question.Prompt,
			AnswerKey:        question.AnswerKey,
			MatchStrategy:    question.Strategy,
			Difficulty:       question.Difficulty,
			StartedAt:        now,
			TimeLimitSeconds: HeistTimeLimits[question.Difficulty],
		}
		if err := tx.Create(heist).Error; err != nil {
			return err
		}

		return tx.Model(session).Updates(map[string]interface{}{
			"heist_count":   session.HeistCount + 1,
			"next_heist_at": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if heist != nil {
		s.Pub.Publish(Event{
			Kind:      EventHeistStarted,
			SessionID: sessionID,
			Payload: map[string]interface{}{
				"heist_id":   heist.ID,
				"prompt":     heist.Prompt,
				"difficulty": heist.Difficulty,
				"time_limit": heist.TimeLimitSeconds,
			},
		})
	}
	return heist, nil
}

// pickQuestion does the category-weighted type pick, then chooses a question
// avoiding the session's N most-recently-used per type.
func (s *HeistService) pickQuestion(tx *gorm.DB, sessionID string) ChallengeQuestion {
	draw := s.RNG.Float64()
	cum := 0.0
	challengeType := ChallengeTypeWeights[0].Type
	for _, tw := range ChallengeTypeWeights {
		cum += tw.Weight
		if cum > draw {
			challengeType = tw.Type
			break
		}
	}

	var recentIDs []string
	if err := tx.Model(&models.Heist{}).
		Where("session_id = ? AND challenge_type = ?", sessionID, challengeType).
		Order("started_at DESC").Limit(noRepeatWindow).
		Pluck("question_id", &recentIDs).Error; err != nil {
		log.Printf("⚠️  [HEIST] recent-question lookup failed: %v", err)
	}
	recent := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}

	pool := QuestionsByType(challengeType)
	var fresh []ChallengeQuestion
	for _, q := range pool {
		if !recent[q.ID] {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		fresh = pool // bank smaller than the window; repeats beat silence
	}
	return fresh[s.RNG.Intn(len(fresh))]
}

type AnswerResult struct {
	Correct    bool             `json:"correct"`
	AlreadyWon bool             `json:"already_won,omitempty"`
	Expired    bool             `json:"expired,omitempty"`
	RewardTier models.CrateTier `json:"reward_tier,omitempty"`
	Placement  Placement        `json:"placement,omitempty"`
}

// SubmitAnswer resolves one submission against the active heist. The winner
// write is a compare-and-set (`winner_id IS NULL` guard), so under any number
// of concurrent correct submissions exactly one wins; the rest get
// AlreadyWon, which is a normal result, never an error.
func (s *HeistService) SubmitAnswer(externalUserID, text string) (*AnswerResult, error) {
	acct, err := s.Economy.EnsureAccount(externalUserID)
	if err != nil {
		return nil, err
	}

	var heist models.Heist
	err = s.DB.Where("ended_at IS NULL").Order("started_at DESC").First(&heist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveHeist
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(heist.Deadline()) {
		// lazy expiry; the sweep closes the row
		return &AnswerResult{Expired: true}, nil
	}

	if !MatchAnswer(heist.MatchStrategy, heist.AnswerKey, text) {
		return &AnswerResult{Correct: false}, nil
	}

	var result *AnswerResult
	var events []Event

	err = RunUnit(s.DB, func(tx *gorm.DB) error {
		events = events[:0]

		won, err := claimWin(tx, heist.ID, acct.ID, now)
		if err != nil {
			return err
		}
		if !won {
			// lost the race: either another submission already won, or the
			// expiry sweep closed the heist between our read and the write
			var current models.Heist
			if err := tx.Where("id = ?", heist.ID).First(&current).Error; err != nil {
				return err
			}
			if current.WinnerID != nil {
				result = &AnswerResult{Correct: true, AlreadyWon: true}
			} else {
				result = &AnswerResult{Correct: true, Expired: true}
			}
			return nil
		}

		locked, err := lockAccount(tx, acct.ID)
		if err != nil {
			return err
		}

		tier := RollCrateTier(HeistRewardTiers[heist.Difficulty], s.RNG)
		alloc, err := s.Economy.Alloc.PlaceCrate(tx, locked.ID, tier, "heist_win", now)
		if err != nil {
			return err
		}

		leveled := applyProgress(locked, heistWinXP[heist.Difficulty], now)
		locked.TotalHeistWins++
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"heist_id":  heist.ID,
			"tier":      tier,
			"placement": alloc.Placement,
		})
		entry := models.EventLog{
			ID:        uuid.NewString(),
			AccountID: locked.ID,
			Kind:      "heist_win",
			XPDelta:   heistWinXP[heist.Difficulty],
			Detail:    string(detail),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &AnswerResult{Correct: true, RewardTier: tier, Placement: alloc.Placement}

		events = append(events, Event{
			Kind:      EventHeistWon,
			AccountID: locked.ID,
			SessionID: heist.SessionID,
			Payload: map[string]interface{}{
				"heist_id":    heist.ID,
				"reward_tier": tier,
			},
		})
		if alloc.Placement == PlacementDropped {
			events = append(events, Event{
				Kind:      EventCrateDropped,
				AccountID: locked.ID,
				Payload:   map[string]interface{}{"tier": tier},
			})
		}
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

	if result != nil && result.Correct && !result.AlreadyWon {
		if err := s.ScheduleNext(heist.SessionID, now); err != nil {
			log.Printf("⚠️  [HEIST] failed to schedule next after win: %v", err)
		}
	}
	return result, nil
}

// claimWin is the single write that can set a heist's winner: a compare-and-
// set guarded on both winner_id and ended_at, so neither a racing submission
// nor the expiry sweep can be overwritten. Returns whether this caller won.
func claimWin(tx *gorm.DB, heistID, accountID string, now time.Time) (bool, error) {
	res := tx.Model(&models.Heist{}).
		Where("id = ? AND winner_id IS NULL AND ended_at IS NULL", heistID).
		Updates(map[string]interface{}{"winner_id": accountID, "ended_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExpireOverdue closes heists past their deadline with no winner. Idempotent
// and safe from multiple concurrent workers: the conditional update only ever
// fires once per heist.
func (s *HeistService) ExpireOverdue(now time.Time) {
	var open []models.Heist
	if err := s.DB.Where("ended_at IS NULL").Find(&open).Error; err != nil {
		log.Printf("⚠️  [HEIST] expiry scan failed: %v", err)
		return
	}

	for _, h := range open {
		if !now.After(h.Deadline()) {
			continue
		}

		res := s.DB.Model(&models.Heist{}).
			Where("id = ? AND winner_id IS NULL AND ended_at IS NULL", h.ID).
			Update("ended_at", now)
		if res.Error != nil {
			log.Printf("⚠️  [HEIST] failed to expire %s: %v", h.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue // a racing submission or worker beat us, fine
		}

		s.Pub.Publish(Event{
			Kind:      EventHeistExpired,
			SessionID: h.SessionID,
			Payload:   map[string]interface{}{"heist_id": h.ID},
		})

		if err := s.ScheduleNext(h.SessionID, now); err != nil {
			log.Printf("⚠️  [HEIST] failed to schedule next after expiry: %v", err)
		}
	}
}
