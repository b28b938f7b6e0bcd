package router

import (
	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/extract"
)

type routeContext struct {
	processed *core.ProcessedContext
	snapshot  *core.Snapshot
	captured  *core.StoreSnapshot
	live      core.StoreView
}

type needHandler func(rc *routeContext) any

var needHandlers = [...]needHandler{
	NeedStorySynopsis:        keyed(core.StoreKeySynopsis),
	NeedStoryOutline:         keyed(core.StoreKeyOutline),
	NeedStoryDraft:           keyed(core.StoreKeyDraft),
	NeedPlotLines:            plotLines,
	NeedRecentScenes:         recentScenes,
	NeedDialogueHistory:      dialogueHistory,
	NeedCharacterSheets:      characterSheets,
	NeedCharacterDevelopment: keyed(core.StoreKeyCharacterDevelopment),
	NeedCharacterPositions:   characterPositions,
	NeedCharacterInventory:   keyed(core.StoreKeyCharacterInventory),
	NeedRelationships:        relationships,
	NeedFactionSheets:        factionSheets,
	NeedLocationSheets:       locationSheets,
	NeedWorldInfo:            worldInfo,
	NeedEnvironmentDetails:   keyed(core.StoreKeyEnvironment),
	NeedStoreSummary:         storeSummary,
}

// every Need has a handler
var _ [needCount]struct{} = [len(needHandlers)]struct{}{}

// firstPresent returns the first value that is not empty. Later candidates
// are only evaluated when earlier ones are empty.
func firstPresent(candidates ...func() any) any {
	for _, c := range candidates {
		if v := c(); !isEmpty(v) {
			return v
		}
	}
	return nil
}

func (rc *routeContext) currentSituation() any {
	v := firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.CurrentScene
		},
		rc.live.CurrentScene,
	)
	if v == nil {
		return NotEstablished
	}
	return v
}

func keyed(key string) needHandler {
	return func(rc *routeContext) any {
		return firstPresent(
			func() any { return rc.captured.Value(key) },
			func() any { return rc.live.Get(key) },
		)
	}
}

func plotLines(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.PlotLines
		},
		rc.live.ActivePlotLines,
	)
}

func recentScenes(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.RecentScenes
		},
		func() any { return rc.live.RecentScenes(core.DefaultRecentScenes) },
	)
}

func dialogueHistory(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.processed == nil {
				return nil
			}
			return rc.processed.Chat.Text
		},
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.RecentDialogue
		},
		func() any { return rc.live.RecentDialogue(core.DefaultRecentDialogue) },
	)
}

func characterSheets(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.processed == nil || !rc.processed.Character.HasContent {
				return nil
			}
			return rc.processed.Character.Text
		},
		func() any { return rc.captured.Value(core.StoreKeyCharacterSheets) },
		func() any { return rc.live.Get(core.StoreKeyCharacterSheets) },
	)
}

func characterPositions(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.PresentCharacters
		},
		rc.live.PresentCharacters,
	)
}

func relationships(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.processed == nil || rc.processed.Relationships.Len() == 0 {
				return nil
			}
			lines := make([]any, 0, rc.processed.Relationships.Len())
			for _, r := range rc.processed.Relationships.All() {
				lines = append(lines, describeRelationship(r))
			}
			return lines
		},
		func() any { return rc.captured.Value(core.StoreKeyRelationships) },
		func() any { return rc.live.Get(core.StoreKeyRelationships) },
	)
}

func describeRelationship(r core.Relationship) string {
	if r.Object == "" || r.Object == extract.UnknownObject {
		return r.Subject + ": " + r.Predicate
	}
	return r.Subject + ": " + r.Predicate + " of " + r.Object
}

func factionSheets(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.Factions
		},
		func() any {
			if rc.processed == nil {
				return nil
			}
			return entitySheets(rc.processed.Entities.Factions)
		},
		rc.live.AllFactions,
	)
}

func locationSheets(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.Locations
		},
		func() any {
			if rc.processed == nil {
				return nil
			}
			return entitySheets(rc.processed.Entities.Locations)
		},
		rc.live.AllLocations,
	)
}

func entitySheets(idx core.EntityIndex) any {
	if len(idx) == 0 {
		return nil
	}
	out := make([]any, 0, len(idx))
	for _, e := range idx.Sorted() {
		sheet := map[string]any{"name": e.Name}
		if e.Description != "" {
			sheet["description"] = e.Description
		}
		out = append(out, sheet)
	}
	return out
}

func worldInfo(rc *routeContext) any {
	if rc.processed == nil {
		return nil
	}
	return rc.processed.Lore.Text
}

func storeSummary(rc *routeContext) any {
	return firstPresent(
		func() any {
			if rc.captured == nil {
				return nil
			}
			return rc.captured.Summary
		},
		rc.live.Summary,
	)
}
