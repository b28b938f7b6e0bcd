package router

import "fmt"

// Need is a declared category of contextual information.
type Need int

const (
	NeedStorySynopsis Need = iota
	NeedStoryOutline
	NeedStoryDraft
	NeedPlotLines
	NeedRecentScenes
	NeedDialogueHistory
	NeedCharacterSheets
	NeedCharacterDevelopment
	NeedCharacterPositions
	NeedCharacterInventory
	NeedRelationships
	NeedFactionSheets
	NeedLocationSheets
	NeedWorldInfo
	NeedEnvironmentDetails
	NeedStoreSummary

	needCount
)

// needNames doubles as the section key of each need.
var needNames = [...]string{
	NeedStorySynopsis:        "storySynopsis",
	NeedStoryOutline:         "storyOutline",
	NeedStoryDraft:           "storyDraft",
	NeedPlotLines:            "plotLines",
	NeedRecentScenes:         "recentScenes",
	NeedDialogueHistory:      "dialogueHistory",
	NeedCharacterSheets:      "characterSheets",
	NeedCharacterDevelopment: "characterDevelopment",
	NeedCharacterPositions:   "characterPositions",
	NeedCharacterInventory:   "characterInventory",
	NeedRelationships:        "relationships",
	NeedFactionSheets:        "factionSheets",
	NeedLocationSheets:       "locationSheets",
	NeedWorldInfo:            "worldInfo",
	NeedEnvironmentDetails:   "environmentDetails",
	NeedStoreSummary:         "storeSummary",
}

// every Need has a name
var _ [needCount]struct{} = [len(needNames)]struct{}{}

var needsByName = func() map[string]Need {
	m := make(map[string]Need, needCount)
	for n := Need(0); n < needCount; n++ {
		m[needNames[n]] = n
	}
	return m
}()

// String returns the need identifier.
func (n Need) String() string {
	if n < 0 || n >= needCount {
		return fmt.Sprintf("Need(%d)", int(n))
	}
	return needNames[n]
}

// Valid reports whether n is a member of the enumeration.
func (n Need) Valid() bool { return n >= 0 && n < needCount }

// ParseNeed resolves an identifier. Unknown identifiers report false.
func ParseNeed(s string) (Need, bool) {
	n, ok := needsByName[s]
	return n, ok
}

// AllNeeds returns every need in declaration order.
func AllNeeds() []Need {
	out := make([]Need, 0, needCount)
	for n := Need(0); n < needCount; n++ {
		out = append(out, n)
	}
	return out
}
