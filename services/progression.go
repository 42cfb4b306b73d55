package services

import (
	"math"
	"time"

	"stream-economy/models"
)

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// TierThresholds: levels required before tier-up
// e.g., Bronze→Silver at level 10, Silver→Gold at level 25, etc.
var TierThresholds = map[int]int{ // tier → min level
	1: 1,   // Bronze (start)
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

// determineTier is the monotonic level → tier lookup
func determineTier(level int) int {
	for tier := 5; tier >= 1; tier-- {
		if level >= TierThresholds[tier] {
			return tier
		}
	}
	return 1
}

// applyProgress folds an XP delta into the account: accumulate, level up
// while enough, re-derive tier. Mutates in place; the caller saves the row
// inside its transaction. Returns whether a level-up happened.
func applyProgress(acct *models.Account, xp int64, now time.Time) bool {
	acct.TotalXP += xp

	leveled := false
	for acct.TotalXP >= int64(BaseXPPerLevel)*int64(acct.Level)+xpForNextLevel(acct.Level) {
		acct.Level++
		acct.LastLevelUpAt = &now
		leveled = true
	}

	if newTier := determineTier(acct.Level); newTier > acct.Tier {
		acct.Tier = newTier
		acct.LastTierUpAt = &now
	}

	return leveled
}
