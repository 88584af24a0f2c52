// Package ordering ranks level labels in curriculum order.
//
// Level labels such as "Grade 10" or "O-Level" do not sort lexicographically,
// so every place that displays or groups levels goes through Rank. Labels the
// policy does not recognize share the last rank and keep their declaration
// order.
package ordering

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pbaille/syllabus/internal/domain"
)

const (
	RankPrePrimary   = 0
	RankOLevel       = 13
	RankALevel       = 14
	RankUnrecognized = 15
)

var (
	prePrimary = map[string]bool{
		"pre primary": true, "preprimary": true, "kindergarten": true,
		"kg": true, "nursery": true, "prep": true, "playgroup": true,
	}
	oLevel = map[string]bool{"o level": true, "olevel": true, "o levels": true}
	aLevel = map[string]bool{"a level": true, "alevel": true, "a levels": true}

	numbered   = regexp.MustCompile(`^(?:grade|class|year)\s*(\d{1,2})$`)
	higherYear = regexp.MustCompile(`^(1st|first|2nd|second)\s+year$`)
)

// normalize lowercases and collapses separators so "O-Level", "o_level"
// and "O  Level" compare equal
func normalize(label string) string {
	label = strings.ToLower(label)
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// Rank returns the curriculum position of a level label. It is total: any
// label it does not recognize ranks RankUnrecognized.
func Rank(label string) int {
	l := normalize(label)

	if prePrimary[l] {
		return RankPrePrimary
	}
	if m := numbered.FindStringSubmatch(l); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 12 {
			return n
		}
		return RankUnrecognized
	}
	if m := higherYear.FindStringSubmatch(l); m != nil {
		if m[1] == "1st" || m[1] == "first" {
			return 11
		}
		return 12
	}
	if oLevel[l] {
		return RankOLevel
	}
	if aLevel[l] {
		return RankALevel
	}
	return RankUnrecognized
}

// Compare orders two labels by rank. Equal ranks compare as 0; callers must
// use a stable sort to keep declaration order among them.
func Compare(a, b string) int {
	return Rank(a) - Rank(b)
}

// SortLabels stably sorts labels in place
func SortLabels(labels []string) {
	slices.SortStableFunc(labels, Compare)
}

// SortLevels stably sorts levels in place
func SortLevels(levels []domain.Level) {
	SortStableFunc(levels, func(l domain.Level) string { return l.Label })
}

// SortStableFunc stably sorts any slice by the rank of the label key returns
func SortStableFunc[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(key(a), key(b))
	})
}

// TierFor classifies a label into its derivation tier
func TierFor(label string) domain.Tier {
	switch r := Rank(label); {
	case r <= 10:
		return domain.TierSchool
	case r <= 12:
		return domain.TierCollege
	default:
		return domain.TierSpecialProgram
	}
}

// IsExamBearing reports whether a level sits a board examination: the last
// two secondary years and both higher-secondary years.
func IsExamBearing(label string) bool {
	r := Rank(label)
	return r >= 9 && r <= 12
}

// IsTerminalSecondary reports whether a level is one of the two final
// secondary-school years
func IsTerminalSecondary(label string) bool {
	r := Rank(label)
	return r == 9 || r == 10
}
