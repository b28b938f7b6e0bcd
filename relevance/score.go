package relevance

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	// MinWordLength is the exclusive lower bound for a query word to count.
	MinWordLength = 2
	// ProximityWindow is the mean gap, in characters, below which the
	// proximity bonus applies.
	ProximityWindow = 50
)

// Weights configures Score.
type Weights struct {
	Exact     float64 `json:"exact" yaml:"exact"`
	Partial   float64 `json:"partial" yaml:"partial"` // reserved, not applied
	Keyword   float64 `json:"keyword" yaml:"keyword"`
	Proximity float64 `json:"proximity" yaml:"proximity"`
}

// DefaultWeights returns exact=10, partial=5, keyword=3, proximity=2.
func DefaultWeights() Weights {
	return Weights{Exact: 10, Partial: 5, Keyword: 3, Proximity: 2}
}

func fold(s string) string { return cases.Fold().String(s) }

// QueryWords splits a query on whitespace and keeps case-folded words longer
// than MinWordLength characters. Duplicates are kept.
func QueryWords(query string) []string {
	fields := strings.Fields(fold(query))
	words := fields[:0]
	for _, w := range fields {
		if utf8.RuneCountInString(w) > MinWordLength {
			words = append(words, w)
		}
	}
	return words
}

// Score returns the non-negative relevance of text for query.
func Score(text, query string, w Weights) float64 {
	t := fold(text)
	q := fold(query)
	if strings.TrimSpace(q) == "" || t == "" {
		return 0
	}

	var score float64
	if strings.Contains(t, q) {
		score += w.Exact
	}

	var positions []int
	for _, word := range QueryWords(q) {
		i := strings.Index(t, word)
		if i < 0 {
			continue
		}
		score += w.Keyword
		positions = append(positions, utf8.RuneCountInString(t[:i]))
	}

	if len(positions) >= 2 {
		sort.Ints(positions)
		gaps := 0
		for i := 1; i < len(positions); i++ {
			gaps += positions[i] - positions[i-1]
		}
		if float64(gaps)/float64(len(positions)-1) < ProximityWindow {
			score += w.Proximity
		}
	}
	return score
}
