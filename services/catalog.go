package services

import (
	"fmt"
	"math"

	"stream-economy/models"

	"github.com/gosimple/slug"
)

// Static content catalog: item definitions, cosmetic titles and the heist
// question bank. Read-only collaborator input — the services never write it.

type ItemDef struct {
	Kind models.ItemKind
	Name string
}

// ItemCatalog maps rarity → eligible items. A rarity/kind combination with no
// eligible items triggers the currency fallback in OpenCrate: the roll never
// fails because content is missing.
var ItemCatalog = map[string][]ItemDef{
	"common": {
		{models.ItemKindWeapon, "Rusty Dagger"},
		{models.ItemKindWeapon, "Chat Slapper"},
		{models.ItemKindArmor, "Cardboard Chestplate"},
		{models.ItemKindArmor, "Worn Hoodie"},
	},
	"uncommon": {
		{models.ItemKindWeapon, "Mod Sword"},
		{models.ItemKindWeapon, "Emote Cannon"},
		{models.ItemKindArmor, "Subscriber Shield"},
		{models.ItemKindArmor, "Raid Helm"},
	},
	"rare": {
		{models.ItemKindWeapon, "Poggers Pike"},
		{models.ItemKindArmor, "Clip Farmer's Cloak"},
	},
	"epic": {
		{models.ItemKindWeapon, "Bitstorm Blade"},
		{models.ItemKindArmor, "Hype Train Plate"},
	},
	"legendary": {
		{models.ItemKindWeapon, "Streamer's Bane"},
		{models.ItemKindArmor, "Aegis of the Algorithm"},
	},
}

type TitleDef struct {
	Name string
	Slug string
}

func makeTitle(name string) TitleDef {
	return TitleDef{Name: name, Slug: slug.Make(name)}
}

// TitleCatalog holds the cosmetic titles a crate can grant. Each account owns
// a title at most once; with every title owned the roll falls back to coins.
var TitleCatalog = []TitleDef{
	makeTitle("Certified Degenerate"),
	makeTitle("Crate Goblin"),
	makeTitle("Heist Mastermind"),
	makeTitle("Coin Baron"),
	makeTitle("First Blood"),
	makeTitle("The Untiltable"),
}

// --- Heist content ---

type ChallengeQuestion struct {
	ID         string
	Type       string // trivia, math, riddle, speed
	Difficulty models.HeistDifficulty
	Prompt     string
	AnswerKey  string
	Strategy   models.MatchStrategy
}

type ChallengeTypeWeight struct {
	Type   string
	Weight float64
}

// ChallengeTypeWeights drives the category-weighted type pick at activation
var ChallengeTypeWeights = []ChallengeTypeWeight{
	{"trivia", 0.40},
	{"math", 0.25},
	{"riddle", 0.20},
	{"speed", 0.15},
}

// HeistTimeLimits maps difficulty → answer window in seconds
var HeistTimeLimits = map[models.HeistDifficulty]int{
	models.HeistEasy:   60,
	models.HeistMedium: 90,
	models.HeistHard:   120,
}

var QuestionBank = []ChallengeQuestion{
	{ID: "trivia-01", Type: "trivia", Difficulty: models.HeistEasy, Prompt: "What color is the record button?", AnswerKey: "red", Strategy: models.MatchExact},
	{ID: "trivia-02", Type: "trivia", Difficulty: models.HeistEasy, Prompt: "How many sides does a d20 have?", AnswerKey: "20", Strategy: models.MatchNumeric},
	{ID: "trivia-03", Type: "trivia", Difficulty: models.HeistMedium, Prompt: "Which planet is known as the red planet?", AnswerKey: "mars", Strategy: models.MatchExact},
	{ID: "trivia-04", Type: "trivia", Difficulty: models.HeistMedium, Prompt: "What year did the first moon landing happen?", AnswerKey: "1969", Strategy: models.MatchNumeric},
	{ID: "trivia-05", Type: "trivia", Difficulty: models.HeistHard, Prompt: "What is the capital of Mongolia?", AnswerKey: "ulaanbaatar", Strategy: models.MatchFuzzy},
	{ID: "trivia-06", Type: "trivia", Difficulty: models.HeistHard, Prompt: "Name the protocol that replaced RTMP for most stream ingest.", AnswerKey: "srt", Strategy: models.MatchExact},
	{ID: "math-01", Type: "math", Difficulty: models.HeistEasy, Prompt: "7 x 6 = ?", AnswerKey: "42", Strategy: models.MatchNumeric},
	{ID: "math-02", Type: "math", Difficulty: models.HeistEasy, Prompt: "100 / 4 = ?", AnswerKey: "25", Strategy: models.MatchNumeric},
	{ID: "math-03", Type: "math", Difficulty: models.HeistMedium, Prompt: "What is 15% of 200?", AnswerKey: "30", Strategy: models.MatchNumeric},
	{ID: "math-04", Type: "math", Difficulty: models.HeistMedium, Prompt: "2^10 = ?", AnswerKey: "1024", Strategy: models.MatchNumeric},
	{ID: "math-05", Type: "math", Difficulty: models.HeistHard, Prompt: "Sum of the first 20 positive integers?", AnswerKey: "210", Strategy: models.MatchNumeric},
	{ID: "riddle-01", Type: "riddle", Difficulty: models.HeistMedium, Prompt: "I speak without a mouth and hear without ears. What am I?", AnswerKey: "an echo", Strategy: models.MatchFuzzy},
	{ID: "riddle-02", Type: "riddle", Difficulty: models.HeistMedium, Prompt: "The more you take, the more you leave behind. What am I?", AnswerKey: "footsteps", Strategy: models.MatchFuzzy},
	{ID: "riddle-03", Type: "riddle", Difficulty: models.HeistHard, Prompt: "What has keys but can't open locks?", AnswerKey: "a piano", Strategy: models.MatchFuzzy},
	{ID: "speed-01", Type: "speed", Difficulty: models.HeistEasy, Prompt: "First to type exactly: PogChamp", AnswerKey: "PogChamp", Strategy: models.MatchLiteral},
	{ID: "speed-02", Type: "speed", Difficulty: models.HeistEasy, Prompt: "First to type exactly: HeistTime", AnswerKey: "HeistTime", Strategy: models.MatchLiteral},
	{ID: "speed-03", Type: "speed", Difficulty: models.HeistMedium, Prompt: "First to type exactly: gg no re", AnswerKey: "gg no re", Strategy: models.MatchLiteral},
}

// itemsFor returns the eligible catalog entries for one rarity/kind pair
func itemsFor(rarity string, kind models.ItemKind) []ItemDef {
	var out []ItemDef
	for _, def := range ItemCatalog[rarity] {
		if def.Kind == kind {
			out = append(out, def)
		}
	}
	return out
}

// QuestionsByType filters the bank for one challenge type
func QuestionsByType(challengeType string) []ChallengeQuestion {
	var out []ChallengeQuestion
	for _, q := range QuestionBank {
		if q.Type == challengeType {
			out = append(out, q)
		}
	}
	return out
}

// ValidateCatalog checks the static content at startup: type weights sum to
// 1.0 and every weighted type has at least one question.
func ValidateCatalog() error {
	sum := 0.0
	for _, tw := range ChallengeTypeWeights {
		sum += tw.Weight
		if tw.Weight > 0 && len(QuestionsByType(tw.Type)) == 0 {
			return fmt.Errorf("challenge type %q has weight %f but no questions", tw.Type, tw.Weight)
		}
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("challenge type weights sum to %f, want 1.0", sum)
	}
	for _, t := range TitleCatalog {
		if t.Slug == "" {
			return fmt.Errorf("title %q produced an empty slug", t.Name)
		}
	}
	return nil
}
