// Package tokens provides the advisory token estimator: roughly four
// characters per token, rounded up.
package tokens

import (
	"unicode/utf8"

	"github.com/hupe1980/contextmesh/core"
)

// CharsPerToken is the estimation ratio.
const CharsPerToken = 4

// Section names used in core.TokenEstimate.PerSection.
const (
	SectionChat      = "chat"
	SectionLore      = "lore"
	SectionCharacter = "character"
)

// Count estimates the tokens of s as ceil(characters / CharsPerToken).
func Count(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Estimate computes per-block and total estimates for the formatted chat,
// lore and character blocks of pc.
func Estimate(pc *core.ProcessedContext) core.TokenEstimate {
	est := core.TokenEstimate{PerSection: map[string]int{}}
	if pc == nil {
		return est
	}
	est.PerSection[SectionChat] = Count(pc.Chat.Text)
	est.PerSection[SectionLore] = Count(pc.Lore.Text)
	est.PerSection[SectionCharacter] = Count(pc.Character.Text)
	for _, n := range est.PerSection {
		est.Total += n
	}
	return est
}
