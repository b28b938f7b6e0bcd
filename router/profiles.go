package router

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Profiles maps consumer ids to their profiles.
type Profiles map[string]ConsumerProfile

// IDs returns the consumer ids in sorted order.
func (p Profiles) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultProfiles returns the built-in pipeline stages.
func DefaultProfiles() Profiles {
	return Profiles{
		"planner": {
			Name: "Planner",
			Role: "Plans the next beat of the story.",
			ContextNeeds: []string{
				NeedStorySynopsis.String(), NeedStoryOutline.String(), NeedPlotLines.String(),
				NeedRecentScenes.String(), NeedRelationships.String(), NeedFactionSheets.String(),
			},
			Instructions: "You are the {{.consumer}} for the {{.phase}} phase. Propose the next story beat.",
		},
		"writer": {
			Name: "Writer",
			Role: "Drafts prose for the current scene.",
			ContextNeeds: []string{
				NeedStoryDraft.String(), NeedDialogueHistory.String(), NeedCharacterSheets.String(),
				NeedCharacterPositions.String(), NeedLocationSheets.String(), NeedEnvironmentDetails.String(),
				NeedWorldInfo.String(),
			},
			Instructions: "You are the {{.consumer}}. Continue the scene in character.",
		},
		"continuity": {
			Name: "Continuity Editor",
			Role: "Checks new text against established facts.",
			ContextNeeds: []string{
				NeedCharacterSheets.String(), NeedCharacterDevelopment.String(), NeedCharacterInventory.String(),
				NeedRelationships.String(), NeedWorldInfo.String(), NeedStoreSummary.String(),
			},
			Instructions: "You are the {{.consumer}}. List contradictions with the established context.",
		},
	}
}

// ParseProfiles decodes a YAML (or JSON) document mapping consumer ids to
// profiles.
func ParseProfiles(data []byte) (Profiles, error) {
	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("router: decode profiles: %w", err)
	}
	if p == nil {
		p = Profiles{}
	}
	return p, nil
}

// LoadProfiles reads a profile document from path.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("router: read profiles: %w", err)
	}
	return ParseProfiles(data)
}
