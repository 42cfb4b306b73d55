package services

import (
	"strconv"
	"strings"
	"unicode"

	"stream-economy/models"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// MatchAnswer compares a raw chat submission against the active challenge's
// answer key under the challenge's strategy. Pure function.
func MatchAnswer(strategy models.MatchStrategy, answerKey, submission string) bool {
	switch strategy {
	case models.MatchLiteral:
		return strings.TrimSpace(submission) == answerKey
	case models.MatchExact:
		return foldCaser.String(strings.TrimSpace(submission)) == foldCaser.String(strings.TrimSpace(answerKey))
	case models.MatchFuzzy:
		key := normalizeFuzzy(answerKey)
		sub := normalizeFuzzy(submission)
		if key == "" || sub == "" {
			return false
		}
		return sub == key || strings.Contains(sub, key) || strings.Contains(key, sub)
	case models.MatchNumeric:
		keyNum, err := strconv.ParseFloat(strings.TrimSpace(answerKey), 64)
		if err != nil {
			return false
		}
		subNum, ok := firstNumber(submission)
		return ok && subNum == keyNum
	}
	return false
}

var fuzzyArticles = map[string]bool{"the": true, "a": true, "an": true}

// normalizeFuzzy case-folds, turns punctuation into spaces, and drops
// leading articles so "An Echo!!" and "echo" compare equal.
func normalizeFuzzy(s string) string {
	folded := foldCaser.String(s)
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, f := range strings.Fields(b.String()) {
		if fuzzyArticles[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// firstNumber extracts the first parseable number from free text, so
// "the answer is 42!" resolves to 42.
func firstNumber(s string) (float64, bool) {
	for _, f := range strings.Fields(s) {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsDigit(r) && r != '.' && r != '-'
		})
		if f == "" {
			continue
		}
		if n, err := strconv.ParseFloat(f, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
