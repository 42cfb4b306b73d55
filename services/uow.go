package services

import (
	"fmt"

	"stream-economy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunUnit wraps one unit of work (balance change + inventory change + event
// log row) in a single atomic commit. Either every sub-step is durable or
// none are — callers never observe partial state.
func RunUnit(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn)
}

// forUpdate adds a row lock to the query. This is the single narrow locking
// primitive: Postgres gets SELECT ... FOR UPDATE; sqlite (tests) skips the
// clause because its writers already serialize at the database level.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockAccount fetches the owner row under a row lock, serializing concurrent
// grants and balance writes against the same account.
func lockAccount(tx *gorm.DB, accountID string) (*models.Account, error) {
	var acct models.Account
	if err := forUpdate(tx).Where("id = ?", accountID).First(&acct).Error; err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	return &acct, nil
}

// lockSession fetches the session row under a row lock. Contribution
// recording and crown transfer serialize on this lock.
func lockSession(tx *gorm.DB, sessionID string) (*models.CompetitiveSession, error) {
	var session models.CompetitiveSession
	if err := forUpdate(tx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to lock session %s: %w", sessionID, err)
	}
	return &session, nil
}
