package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"stream-economy/models"
	"stream-economy/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory sqlite database. cache=shared keeps
// gorm's connection pool pointed at the same store; the sequence number
// isolates databases across calls (Convey re-runs setup per leaf).
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&testDBSeq, 1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Crate{},
		&models.InventoryItem{},
		&models.ActiveBuff{},
		&models.EventLog{},
		&models.CompetitiveSession{},
		&models.Contribution{},
		&models.CrownChange{},
		&models.LeaderboardEntry{},
		&models.Heist{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func newTestEconomy(t *testing.T, seed int64) *EconomyService {
	t.Helper()
	return NewEconomyService(newTestDB(t), utils.NewSeededRNG(seed), NewPublisher())
}

// scriptedSource plays back preset Int63 values, then falls through to a
// seeded PRNG. Lets a test pin the draws it cares about without risking an
// infinite rejection loop in Int63n.
type scriptedSource struct {
	draws    []int64
	idx      int
	fallback rand.Source
}

func (s *scriptedSource) Int63() int64 {
	if s.idx < len(s.draws) {
		v := s.draws[s.idx]
		s.idx++
		return v
	}
	return s.fallback.Int63()
}

func (s *scriptedSource) Seed(seed int64) {}

// drawValue converts a desired Float64 draw into the Int63 that produces it
func drawValue(f float64) int64 {
	return int64(f * (1 << 63))
}

func scriptedRNG(draws ...int64) *rand.Rand {
	return rand.New(&scriptedSource{draws: draws, fallback: rand.NewSource(1)})
}

// rngWithDraw yields the given Float64 on its first draw
func rngWithDraw(f float64) *rand.Rand {
	return scriptedRNG(drawValue(f))
}
