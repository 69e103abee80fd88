// Package fuzzy resolves free text to one of a set of known names.
package fuzzy

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const DefaultThreshold = 0.6

type Strategy string

const (
	// Best picks the highest ratio; the earliest candidate wins ties.
	Best Strategy = "best"
	// First picks the first candidate at or above the threshold.
	First Strategy = "first"
)

func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Best, "":
		return Best, true
	case First:
		return First, true
	default:
		return "", false
	}
}

type Matcher struct {
	threshold float64
	strategy  Strategy
}

func New(threshold float64, strategy Strategy) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if strategy == "" {
		strategy = Best
	}
	return &Matcher{threshold: threshold, strategy: strategy}
}

func (m *Matcher) Threshold() float64 { return m.threshold }

// Match returns the candidate, in its original spelling, that input refers to.
// Exact matches after lower-casing and trimming win outright.
func (m *Matcher) Match(input string, candidates []string) (string, bool) {
	needle := normalize(input)
	if needle == "" {
		return "", false
	}
	for _, c := range candidates {
		if normalize(c) == needle {
			return c, true
		}
	}

	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := Ratio(needle, normalize(c))
		if score < m.threshold {
			continue
		}
		if m.strategy == First {
			return c, true
		}
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", false
	}
	return candidates[best], true
}

// Ratio is the sequence similarity 2*M/T of a and b over their characters.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
