package crawler

import (
	"strings"

	"github.com/antzucaro/matchr"

	"peoplescraper/pkg/normalize"
)

const (
	exactScore    = 1.0
	containsScore = 0.95
)

// bestSuggestion returns the index and score of the label closest to want,
// or -1 when labels is empty. Labels are compared without case or
// diacritics; a label containing want outranks a fuzzy match, and ties
// keep the earliest label.
func bestSuggestion(want string, labels []string) (int, float64) {
	key := normalize.Key(want)
	best, bestScore := -1, 0.0
	for i, label := range labels {
		candidate := normalize.Key(label)
		var score float64
		switch {
		case candidate == key:
			score = exactScore
		case key != "" && strings.Contains(candidate, key):
			score = containsScore
		default:
			score = matchr.JaroWinkler(key, candidate, false)
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
