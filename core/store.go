package core

// Well-known keys looked up through StateStore.Get.
const (
	StoreKeySynopsis             = "storySynopsis"
	StoreKeyOutline              = "storyOutline"
	StoreKeyDraft                = "storyDraft"
	StoreKeyCharacterSheets      = "characterSheets"
	StoreKeyCharacterDevelopment = "characterDevelopment"
	StoreKeyCharacterInventory   = "characterInventory"
	StoreKeyRelationships        = "relationships"
	StoreKeyEnvironment          = "environment"
)

// Default window sizes used when pulling history-like accessors.
const (
	DefaultRecentScenes   = 5
	DefaultRecentDialogue = 10
)

// StateStore is the external persistent story-state collaborator. Only keyed
// lookup is mandatory; richer stores additionally implement any of the
// accessor interfaces below. Values are plain data (strings, slices, maps).
type StateStore interface {
	Get(key string) (any, bool)
}

// SceneAccessor exposes the current scene.
type SceneAccessor interface{ CurrentScene() any }

// PlotLineAccessor exposes the active plot lines.
type PlotLineAccessor interface{ ActivePlotLines() any }

// SceneHistoryAccessor exposes the n most recent scenes.
type SceneHistoryAccessor interface{ RecentScenes(n int) any }

// PresenceAccessor exposes the characters present in the current scene.
type PresenceAccessor interface{ PresentCharacters() any }

// DialogueAccessor exposes the n most recent dialogue lines.
type DialogueAccessor interface{ RecentDialogue(n int) any }

// FactionAccessor exposes every known faction.
type FactionAccessor interface{ AllFactions() any }

// LocationAccessor exposes every known location.
type LocationAccessor interface{ AllLocations() any }

// Summarizer exposes a whole-store summary.
type Summarizer interface{ Summary() any }

// StoreView wraps an optional StateStore and tolerates absent accessors: a
// nil store or a missing accessor yields nil instead of failing.
type StoreView struct {
	store StateStore
}

// ViewStore returns a StoreView over s (which may be nil).
func ViewStore(s StateStore) StoreView { return StoreView{store: s} }

// Available reports whether a store is attached.
func (v StoreView) Available() bool { return v.store != nil }

// Get performs a keyed lookup.
func (v StoreView) Get(key string) any {
	if v.store == nil {
		return nil
	}
	val, ok := v.store.Get(key)
	if !ok {
		return nil
	}
	return val
}

// CurrentScene calls the SceneAccessor when present.
func (v StoreView) CurrentScene() any {
	if a, ok := v.store.(SceneAccessor); ok {
		return a.CurrentScene()
	}
	return nil
}

// ActivePlotLines calls the PlotLineAccessor when present.
func (v StoreView) ActivePlotLines() any {
	if a, ok := v.store.(PlotLineAccessor); ok {
		return a.ActivePlotLines()
	}
	return nil
}

// RecentScenes calls the SceneHistoryAccessor when present.
func (v StoreView) RecentScenes(n int) any {
	if a, ok := v.store.(SceneHistoryAccessor); ok {
		return a.RecentScenes(n)
	}
	return nil
}

// PresentCharacters calls the PresenceAccessor when present.
func (v StoreView) PresentCharacters() any {
	if a, ok := v.store.(PresenceAccessor); ok {
		return a.PresentCharacters()
	}
	return nil
}

// RecentDialogue calls the DialogueAccessor when present.
func (v StoreView) RecentDialogue(n int) any {
	if a, ok := v.store.(DialogueAccessor); ok {
		return a.RecentDialogue(n)
	}
	return nil
}

// AllFactions calls the FactionAccessor when present.
func (v StoreView) AllFactions() any {
	if a, ok := v.store.(FactionAccessor); ok {
		return a.AllFactions()
	}
	return nil
}

// AllLocations calls the LocationAccessor when present.
func (v StoreView) AllLocations() any {
	if a, ok := v.store.(LocationAccessor); ok {
		return a.AllLocations()
	}
	return nil
}

// Summary calls the Summarizer when present.
func (v StoreView) Summary() any {
	if a, ok := v.store.(Summarizer); ok {
		return a.Summary()
	}
	return nil
}

// StoreSnapshot is the store data captured during a processing pass.
type StoreSnapshot struct {
	CurrentScene      any            `json:"current_scene,omitempty"`
	PlotLines         any            `json:"plot_lines,omitempty"`
	RecentScenes      any            `json:"recent_scenes,omitempty"`
	PresentCharacters any            `json:"present_characters,omitempty"`
	RecentDialogue    any            `json:"recent_dialogue,omitempty"`
	Factions          any            `json:"factions,omitempty"`
	Locations         any            `json:"locations,omitempty"`
	Summary           any            `json:"summary,omitempty"`
	Values            map[string]any `json:"values,omitempty"`
}

var capturedKeys = []string{
	StoreKeySynopsis,
	StoreKeyOutline,
	StoreKeyDraft,
	StoreKeyCharacterSheets,
	StoreKeyCharacterDevelopment,
	StoreKeyCharacterInventory,
	StoreKeyRelationships,
	StoreKeyEnvironment,
}

// CaptureStore reads every accessor and well-known key once. It returns nil
// when no store is attached.
func CaptureStore(s StateStore) *StoreSnapshot {
	v := ViewStore(s)
	if !v.Available() {
		return nil
	}
	snap := &StoreSnapshot{
		CurrentScene:      v.CurrentScene(),
		PlotLines:         v.ActivePlotLines(),
		RecentScenes:      v.RecentScenes(DefaultRecentScenes),
		PresentCharacters: v.PresentCharacters(),
		RecentDialogue:    v.RecentDialogue(DefaultRecentDialogue),
		Factions:          v.AllFactions(),
		Locations:         v.AllLocations(),
		Summary:           v.Summary(),
		Values:            map[string]any{},
	}
	for _, k := range capturedKeys {
		if val := v.Get(k); val != nil {
			snap.Values[k] = val
		}
	}
	return snap
}

// Value returns a captured keyed value.
func (s *StoreSnapshot) Value(key string) any {
	if s == nil {
		return nil
	}
	return s.Values[key]
}
