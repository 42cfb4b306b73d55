// workers/leaderboard_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"stream-economy/models"
	"stream-economy/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const leaderboardTopN = 10

// LeaderboardClient rebuilds the contribution-race snapshot for active
// sessions. Runs outside the core transaction: a failed rebuild only means a
// slightly stale leaderboard, never lost contributions.
type LeaderboardClient struct {
	db *gorm.DB
}

func NewLeaderboardClient(db *gorm.DB) *LeaderboardClient {
	return &LeaderboardClient{db: db}
}

type rankedRow struct {
	ContributorID string
	Total         float64
}

// RebuildActive recomputes the top-N snapshot for every active session
func (w *LeaderboardClient) RebuildActive() error {
	var sessions []models.CompetitiveSession
	if err := w.db.Where("is_active = ?", true).Find(&sessions).Error; err != nil {
		return err
	}

	for _, session := range sessions {
		if err := w.rebuild(session.ID); err != nil {
			log.Printf("⚠️  [LEADERBOARD] rebuild failed for session %s: %v", session.ID, err)
		}
	}
	return nil
}

func (w *LeaderboardClient) rebuild(sessionID string) error {
	var rows []rankedRow
	if err := w.db.Raw(`
		SELECT contributor_id, SUM(usd_value) AS total
		FROM contributions
		WHERE session_id = ? AND deleted_at IS NULL
		GROUP BY contributor_id
		ORDER BY total DESC
		LIMIT ?
	`, sessionID, leaderboardTopN).Scan(&rows).Error; err != nil {
		return err
	}

	now := time.Now()
	return w.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		for i, row := range rows {
			entry := models.LeaderboardEntry{
				ID:            uuid.NewString(),
				SessionID:     sessionID,
				Rank:          i + 1,
				ContributorID: row.ContributorID,
				TotalUSD:      row.Total,
				CapturedAt:    now,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PollLeaderboards rebuilds on a timer and immediately after contribution
// traffic. Redundant rebuilds are harmless — the snapshot is replaced whole.
func PollLeaderboards(ctx context.Context, w *LeaderboardClient, interval time.Duration, events <-chan services.Event) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RebuildActive(); err != nil {
				log.Printf("⚠️  [LEADERBOARD] periodic rebuild failed: %v", err)
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Kind != services.EventCrownChanged && evt.Kind != services.EventSessionEnded {
				continue
			}
			if err := w.RebuildActive(); err != nil {
				log.Printf("⚠️  [LEADERBOARD] event-driven rebuild failed: %v", err)
			}
		}
	}
}
