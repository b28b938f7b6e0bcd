package format

import (
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// FormatCharacter renders the non-empty parts of a character profile in fixed
// order: name, description, personality, scenario, system instructions.
// HasContent is true when anything beyond the name was rendered.
func FormatCharacter(p core.CharacterProfile) core.CharacterResult {
	candidates := []core.CharacterSection{
		{Key: "name", Title: "Name", Content: p.Name},
		{Key: "description", Title: "Description", Content: p.Description},
		{Key: "personality", Title: "Personality", Content: p.Personality},
		{Key: "scenario", Title: "Scenario", Content: p.Scenario},
		{Key: "systemInstructions", Title: "System Instructions", Content: joinNonEmpty("\n", p.SystemPrompt, p.PostHistoryInstructions)},
	}

	res := core.CharacterResult{Sections: []core.CharacterSection{}}
	blocks := make([]string, 0, len(candidates))
	for _, s := range candidates {
		s.Content = strings.TrimSpace(s.Content)
		if s.Content == "" {
			continue
		}
		res.Sections = append(res.Sections, s)
		if s.Key == "name" {
			blocks = append(blocks, "Name: "+s.Content)
			continue
		}
		res.HasContent = true
		blocks = append(blocks, s.Title+":\n"+s.Content)
	}
	res.Text = strings.Join(blocks, "\n\n")
	return res
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
