package models

import "time"

// MatchStrategy selects how a submitted answer is compared to the key
type MatchStrategy string

const (
	MatchExact   MatchStrategy = "exact"   // case-insensitive equality
	MatchLiteral MatchStrategy = "literal" // case-sensitive equality
	MatchFuzzy   MatchStrategy = "fuzzy"   // articles/punctuation tolerant, substring containment
	MatchNumeric MatchStrategy = "numeric" // both sides parsed as numbers
)

// HeistDifficulty indexes the time limit and the reward-tier table
type HeistDifficulty string

const (
	HeistEasy   HeistDifficulty = "easy"
	HeistMedium HeistDifficulty = "medium"
	HeistHard   HeistDifficulty = "hard"
)

// Heist is one timed single-winner challenge.
// Invariant: winner_id is written at most once, and only by the conditional
// update that also sets ended_at — never by a read-then-write.
type Heist struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID string `gorm:"index;not null" json:"session_id"`

	ChallengeType string          `gorm:"not null" json:"challenge_type"` // trivia, math, riddle, speed
	QuestionID    string          `gorm:"index" json:"question_id"`
	Prompt        string          `gorm:"type:text;not null" json:"prompt"`
	AnswerKey     string          `gorm:"not null" json:"-"` // never serialized out
	MatchStrategy MatchStrategy   `gorm:"not null" json:"match_strategy"`
	Difficulty    HeistDifficulty `gorm:"not null" json:"difficulty"`

	StartedAt        time.Time `gorm:"not null" json:"started_at"`
	TimeLimitSeconds int       `gorm:"not null" json:"time_limit_seconds"`

	WinnerID *string    `gorm:"index" json:"winner_id,omitempty"` // Account.ID
	EndedAt  *time.Time `gorm:"index" json:"ended_at,omitempty"`

	Timestamps
}

// Deadline is the moment submissions stop counting
func (h *Heist) Deadline() time.Time {
	return h.StartedAt.Add(time.Duration(h.TimeLimitSeconds) * time.Second)
}
