package services

import "stream-economy/models"

// ActionOutcome is the result family of one play action
type ActionOutcome string

const (
	OutcomeJackpot   ActionOutcome = "jackpot"
	OutcomeWin       ActionOutcome = "win"
	OutcomeSmallWin  ActionOutcome = "small_win"
	OutcomeNothing   ActionOutcome = "nothing"
	OutcomeBust      ActionOutcome = "bust"
	OutcomeCrateDrop ActionOutcome = "crate_drop"
)

type OutcomeWeight struct {
	Outcome ActionOutcome
	Weight  float64
}

// ActionOutcomes is walked in declared order, same rule as drop tables
var ActionOutcomes = []OutcomeWeight{
	{OutcomeJackpot, 0.02},
	{OutcomeWin, 0.28},
	{OutcomeSmallWin, 0.30},
	{OutcomeNothing, 0.15},
	{OutcomeBust, 0.20},
	{OutcomeCrateDrop, 0.05},
}

// Coin ranges per outcome (bust range is a loss, applied negative)
var OutcomeRanges = map[ActionOutcome]AmountRange{
	OutcomeJackpot:  {Min: 1000, Max: 3000},
	OutcomeWin:      {Min: 100, Max: 400},
	OutcomeSmallWin: {Min: 20, Max: 80},
	OutcomeBust:     {Min: 100, Max: 800},
}

// XP per action, before buffs. Every play earns the base; winning outcomes
// earn extra.
const ActionBaseXP = 10

var OutcomeXPBonus = map[ActionOutcome]int64{
	OutcomeJackpot:   100,
	OutcomeWin:       25,
	OutcomeSmallWin:  10,
	OutcomeCrateDrop: 40,
}

// CrateDropTiers is the tier roll used when an action drops a crate
var CrateDropTiers = []TierWeight{
	{models.CrateTierCommon, 0.70},
	{models.CrateTierRare, 0.20},
	{models.CrateTierEpic, 0.08},
	{models.CrateTierLegendary, 0.02},
}

type TierWeight struct {
	Tier   models.CrateTier
	Weight float64
}

// HeistRewardTiers indexes the winner's crate roll by heist difficulty
var HeistRewardTiers = map[models.HeistDifficulty][]TierWeight{
	models.HeistEasy: {
		{models.CrateTierCommon, 0.60},
		{models.CrateTierRare, 0.30},
		{models.CrateTierEpic, 0.09},
		{models.CrateTierLegendary, 0.01},
	},
	models.HeistMedium: {
		{models.CrateTierCommon, 0.35},
		{models.CrateTierRare, 0.40},
		{models.CrateTierEpic, 0.20},
		{models.CrateTierLegendary, 0.05},
	},
	models.HeistHard: {
		{models.CrateTierCommon, 0.10},
		{models.CrateTierRare, 0.35},
		{models.CrateTierEpic, 0.35},
		{models.CrateTierLegendary, 0.20},
	},
}
