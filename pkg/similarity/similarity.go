// Package similarity scores how alike two names are as a percentage.
//
// The score comes from a greedy run scan rather than an edit distance: the
// shorter string is walked against the longer one and every character that
// continues a run of matches is counted. Indices consumed by a run are not
// rewound, so the result depends on argument order when both strings have
// the same length. Consumers tune thresholds against this exact curve; do not
// swap in a textbook metric.
//
// All functions are pure and safe for concurrent use.
package similarity

import (
	"math"
	"regexp"
	"strings"
	"time"

	"team-matcher/pkg/utils"
)

var (
	// specSymbolsRe matches the punctuation stripped in clear mode plus
	// Unicode whitespace: ASCII controls, NEL and category Z.
	specSymbolsRe = regexp.MustCompile(`[%/\\&?,';:!\-|.@#()\f\n\r\t\v\x{85}\p{Z}]`)

	// levelMarkerRe flags age-group or tier codes such as U21, U19, O35.
	// Unanchored: feeds write U21s and ArsenalU21 too.
	levelMarkerRe = regexp.MustCompile(`[UO][A-Za-z]?\d+`)
)

// Normalize lower-cases s. With clearSpecSymbols every listed symbol and all
// whitespace is removed wherever it occurs; otherwise only the ends are trimmed.
func Normalize(s string, clearSpecSymbols bool) string {
	if clearSpecSymbols {
		return specSymbolsRe.ReplaceAllString(strings.ToLower(s), "")
	}
	return strings.TrimSpace(strings.ToLower(s))
}

// InPercent returns how similar first and second are, from 0 to 100.
// Two blank strings are identical (100); one blank string matches nothing (0).
func InPercent(first, second string, clearSpecSymbols bool) int16 {
	if score, done := blankScore(first, second, 100); done {
		return score
	}
	first = Normalize(first, clearSpecSymbols)
	second = Normalize(second, clearSpecSymbols)
	if score, done := blankScore(first, second, 100); done {
		return score
	}
	return percent([]rune(first), []rune(second))
}

// InPercentWithinLength is InPercent with a length gate: when the normalized
// lengths differ by more than lengthDiff the pair scores 0 without a scan.
// Two blank strings only count as identical when lengthDiff is 0.
func InPercentWithinLength(first, second string, clearSpecSymbols bool, lengthDiff uint) int16 {
	var bothBlank int16
	if lengthDiff == 0 {
		bothBlank = 100
	}
	if score, done := blankScore(first, second, bothBlank); done {
		return score
	}

	a := []rune(Normalize(first, clearSpecSymbols))
	b := []rune(Normalize(second, clearSpecSymbols))
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if uint(diff) > lengthDiff {
		return 0
	}
	if score, done := blankScore(string(a), string(b), bothBlank); done {
		return score
	}
	return percent(a, b)
}

// ForSportTeams scores two team names that belong to events on dateFirst and
// dateSecond. Events on different calendar days never match, and neither do
// names where only one side carries a level marker (U21 vs. the senior side).
func ForSportTeams(first, second string, clearSpecSymbols bool, dateFirst, dateSecond time.Time) int16 {
	if !SameCalendarDay(dateFirst, dateSecond) {
		return 0
	}
	if HasLevelMarker(first) != HasLevelMarker(second) {
		return 0
	}
	return InPercent(first, second, clearSpecSymbols)
}

// SameCalendarDay compares year and day-of-year, each read in the value's own
// location. Clock time is ignored.
func SameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// HasLevelMarker reports whether name carries an age-group or tier code.
func HasLevelMarker(name string) bool {
	return levelMarkerRe.MatchString(name)
}

// blankScore applies the blank rules. done is false when both sides have content.
func blankScore(first, second string, bothBlank int16) (score int16, done bool) {
	fb, sb := utils.IsBlank(first), utils.IsBlank(second)
	switch {
	case fb && sb:
		return bothBlank, true
	case fb || sb:
		return 0, true
	}
	return 0, false
}

// percent picks the short side (first only when strictly shorter) and turns
// the run count into a percentage of its length, rounding half to even.
func percent(first, second []rune) int16 {
	short, long := second, first
	if len(first) < len(second) {
		short, long = first, second
	}
	if len(short) == 0 {
		return 0
	}
	same := runLength(short, long)
	if same != 0 {
		// the first character of a run is never counted by the scan
		same++
	}
	return int16(math.RoundToEven(float64(same) / float64(len(short)) * 100))
}

// runLength counts run continuations. i and j advance inside a run and the
// enclosing loops resume from there.
func runLength(short, long []rune) int {
	same := 0
	for i := 0; i < len(short); i++ {
		for j := 0; j < len(long); j++ {
			if i >= len(short) {
				break
			}
			for short[i] == long[j] {
				i++
				j++
				if i >= len(short) || j >= len(long) {
					break
				}
				if short[i] == long[j] {
					same++
				}
			}
		}
	}
	return same
}
