package services

import (
	"testing"

	"stream-economy/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMatchAnswer(t *testing.T) {
	Convey("Literal matching is case-sensitive after trimming", t, func() {
		So(MatchAnswer(models.MatchLiteral, "PogChamp", "PogChamp"), ShouldBeTrue)
		So(MatchAnswer(models.MatchLiteral, "PogChamp", "  PogChamp  "), ShouldBeTrue)
		So(MatchAnswer(models.MatchLiteral, "PogChamp", "pogchamp"), ShouldBeFalse)
	})

	Convey("Exact matching folds case", t, func() {
		So(MatchAnswer(models.MatchExact, "mars", "Mars"), ShouldBeTrue)
		So(MatchAnswer(models.MatchExact, "mars", " MARS "), ShouldBeTrue)
		So(MatchAnswer(models.MatchExact, "mars", "marss"), ShouldBeFalse)
	})

	Convey("Fuzzy matching tolerates articles, punctuation and surrounding text", t, func() {
		So(MatchAnswer(models.MatchFuzzy, "an echo", "echo"), ShouldBeTrue)
		So(MatchAnswer(models.MatchFuzzy, "an echo", "ECHO!!!"), ShouldBeTrue)
		So(MatchAnswer(models.MatchFuzzy, "an echo", "the echo chamber"), ShouldBeTrue)
		So(MatchAnswer(models.MatchFuzzy, "a piano", "it's a piano?"), ShouldBeTrue)
		So(MatchAnswer(models.MatchFuzzy, "an echo", "a mirror"), ShouldBeFalse)
		So(MatchAnswer(models.MatchFuzzy, "an echo", ""), ShouldBeFalse)
	})

	Convey("Numeric matching pulls the first number out of free text", t, func() {
		So(MatchAnswer(models.MatchNumeric, "42", "42"), ShouldBeTrue)
		So(MatchAnswer(models.MatchNumeric, "42", "the answer is 42!"), ShouldBeTrue)
		So(MatchAnswer(models.MatchNumeric, "42", "42.0"), ShouldBeTrue)
		So(MatchAnswer(models.MatchNumeric, "42", "41"), ShouldBeFalse)
		So(MatchAnswer(models.MatchNumeric, "42", "no numbers here"), ShouldBeFalse)
		So(MatchAnswer(models.MatchNumeric, "not-a-number", "42"), ShouldBeFalse)
	})

	Convey("An unknown strategy never matches", t, func() {
		So(MatchAnswer(models.MatchStrategy("telepathy"), "42", "42"), ShouldBeFalse)
	})
}

func TestNormalizeFuzzy(t *testing.T) {
	Convey("Normalization folds case, strips punctuation and drops articles", t, func() {
		So(normalizeFuzzy("An Echo!!"), ShouldEqual, "echo")
		So(normalizeFuzzy("  the   FOOTSTEPS  "), ShouldEqual, "footsteps")
		So(normalizeFuzzy("gg, no re."), ShouldEqual, "gg no re")
		So(normalizeFuzzy("!!!"), ShouldEqual, "")
	})
}

func TestFirstNumber(t *testing.T) {
	Convey("firstNumber extracts the first parseable token", t, func() {
		n, ok := firstNumber("the answer is 42!")
		So(ok, ShouldBeTrue)
		So(n, ShouldEqual, 42.0)

		n, ok = firstNumber("around -3.5 degrees")
		So(ok, ShouldBeTrue)
		So(n, ShouldEqual, -3.5)

		_, ok = firstNumber("nothing numeric")
		So(ok, ShouldBeFalse)
	})
}
