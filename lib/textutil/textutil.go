package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize lowercases, strips non printable characters and collapses
// inner whitespace to single spaces.
func Normalize(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// minimum Jaro-Winkler similarity for a whole label to count as a match
const fuzzyThreshold = 0.9

// ContainsLabel reports whether any of the labels is contained in the
// normalized text. Used where a near miss would trigger the wrong action.
func ContainsLabel(text string, labels []string) bool {
	text = Normalize(text)
	if text == "" {
		return false
	}
	for _, label := range labels {
		label = Normalize(label)
		if label != "" && strings.Contains(text, label) {
			return true
		}
	}
	return false
}

// MatchLabel reports whether the visible text of a control matches any of
// the given labels. A label matches when it is contained in the normalized
// text, or when the whole text is a close (typo or inflection) variant of it.
func MatchLabel(text string, labels []string) bool {
	if ContainsLabel(text, labels) {
		return true
	}
	text = Normalize(text)
	if text == "" {
		return false
	}
	for _, label := range labels {
		label = Normalize(label)
		if label == "" {
			continue
		}
		// single symbol labels like "»" only match exactly
		if len([]rune(label)) < 3 || len([]rune(text)) < 3 {
			continue
		}
		if matchr.JaroWinkler(text, label, false) >= fuzzyThreshold {
			return true
		}
	}
	return false
}
