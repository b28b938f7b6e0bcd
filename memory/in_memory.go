package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/relevance"
)

// ErrNotFound is returned when an id or key is not present in the store.
var ErrNotFound = errors.New("memory: not found")

// Scene is one recorded scene. The newest scene is the current one.
type Scene struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Summary    string    `json:"summary" yaml:"summary"`
	Location   string    `json:"location,omitempty" yaml:"location,omitempty"`
	Characters []string  `json:"characters,omitempty" yaml:"characters,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// PlotLine is a story thread that stays active until resolved.
type PlotLine struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Resolved bool   `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// DialogueLine is one spoken line.
type DialogueLine struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

// Sheet describes a faction or a location.
type Sheet struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// SearchResult is one scored hit from Search.
type SearchResult struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// InMemoryStore is a process-local story-state store.
//
// Concurrency: protected by RWMutex. Keyed values are deep-copied on Put and
// Get for the plain-data shapes (maps, slices); other values are shared.
type InMemoryStore struct {
	mu        sync.RWMutex
	values    map[string]any
	scenes    []Scene
	plotLines []PlotLine
	present   []string
	dialogue  []DialogueLine
	factions  map[string]Sheet
	locations map[string]Sheet
	now       func() time.Time
}

var (
	_ core.StateStore           = (*InMemoryStore)(nil)
	_ core.SceneAccessor        = (*InMemoryStore)(nil)
	_ core.PlotLineAccessor     = (*InMemoryStore)(nil)
	_ core.SceneHistoryAccessor = (*InMemoryStore)(nil)
	_ core.PresenceAccessor     = (*InMemoryStore)(nil)
	_ core.DialogueAccessor     = (*InMemoryStore)(nil)
	_ core.FactionAccessor      = (*InMemoryStore)(nil)
	_ core.LocationAccessor     = (*InMemoryStore)(nil)
	_ core.Summarizer           = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values:    make(map[string]any),
		factions:  make(map[string]Sheet),
		locations: make(map[string]Sheet),
		now:       time.Now,
	}
}

// Get returns the value stored under key.
func (m *InMemoryStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return cloneValue(v), ok
}

// Put stores v under key, replacing any previous value.
func (m *InMemoryStore) Put(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = cloneValue(v)
}

// Delete removes a keyed value.
func (m *InMemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return fmt.Errorf("%w: key %q", ErrNotFound, key)
	}
	delete(m.values, key)
	return nil
}

// AddScene appends a scene, making it current, and returns its id. A missing
// id is generated.
func (m *InMemoryStore) AddScene(s Scene) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	s.Characters = append([]string(nil), s.Characters...)
	m.scenes = append(m.scenes, s)
	if len(s.Characters) > 0 {
		m.present = append([]string(nil), s.Characters...)
	}
	return s.ID
}

// CurrentScene returns the newest scene, or nil when none was recorded.
func (m *InMemoryStore) CurrentScene() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.scenes) == 0 {
		return nil
	}
	return sceneData(m.scenes[len(m.scenes)-1])
}

// RecentScenes returns up to n scenes, oldest first.
func (m *InMemoryStore) RecentScenes(n int) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || len(m.scenes) == 0 {
		return nil
	}
	start := len(m.scenes) - n
	if start < 0 {
		start = 0
	}
	out := make([]any, 0, len(m.scenes)-start)
	for _, s := range m.scenes[start:] {
		out = append(out, sceneData(s))
	}
	return out
}

// AddPlotLine records an active plot line and returns its id.
func (m *InMemoryStore) AddPlotLine(p PlotLine) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.plotLines = append(m.plotLines, p)
	return p.ID
}

// ResolvePlotLine marks a plot line resolved.
func (m *InMemoryStore) ResolvePlotLine(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.plotLines {
		if m.plotLines[i].ID == id {
			m.plotLines[i].Resolved = true
			return nil
		}
	}
	return fmt.Errorf("%w: plot line %q", ErrNotFound, id)
}

// ActivePlotLines returns the unresolved plot lines in insertion order.
func (m *InMemoryStore) ActivePlotLines() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []any
	for _, p := range m.plotLines {
		if p.Resolved {
			continue
		}
		item := map[string]any{"id": p.ID, "title": p.Title}
		if p.Summary != "" {
			item["summary"] = p.Title + ": " + p.Summary
		} else {
			item["summary"] = p.Title
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SetPresent replaces the characters present in the current scene.
func (m *InMemoryStore) SetPresent(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = append([]string(nil), names...)
}

// PresentCharacters returns the present characters.
func (m *InMemoryStore) PresentCharacters() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.present) == 0 {
		return nil
	}
	out := make([]any, 0, len(m.present))
	for _, p := range m.present {
		out = append(out, p)
	}
	return out
}

// AddDialogue appends a dialogue line.
func (m *InMemoryStore) AddDialogue(speaker, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialogue = append(m.dialogue, DialogueLine{Speaker: speaker, Text: text})
}

// RecentDialogue returns up to n lines rendered as "Speaker: text", oldest
// first.
func (m *InMemoryStore) RecentDialogue(n int) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || len(m.dialogue) == 0 {
		return nil
	}
	start := len(m.dialogue) - n
	if start < 0 {
		start = 0
	}
	out := make([]any, 0, len(m.dialogue)-start)
	for _, d := range m.dialogue[start:] {
		out = append(out, d.Speaker+": "+d.Text)
	}
	return out
}

// PutFaction stores a faction sheet keyed by its case-insensitive name.
func (m *InMemoryStore) PutFaction(s Sheet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factions[strings.ToLower(s.Name)] = s
}

// PutLocation stores a location sheet keyed by its case-insensitive name.
func (m *InMemoryStore) PutLocation(s Sheet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[strings.ToLower(s.Name)] = s
}

// AllFactions returns the faction sheets ordered by name.
func (m *InMemoryStore) AllFactions() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sheetsData(m.factions)
}

// AllLocations returns the location sheets ordered by name.
func (m *InMemoryStore) AllLocations() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sheetsData(m.locations)
}

// Summary returns a short overview of the store, led by the synopsis when
// one is stored.
func (m *InMemoryStore) Summary() any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	for _, p := range m.plotLines {
		if !p.Resolved {
			active++
		}
	}
	if len(m.values) == 0 && len(m.scenes) == 0 && active == 0 && len(m.factions) == 0 && len(m.locations) == 0 {
		return nil
	}

	var b strings.Builder
	if syn, ok := m.values[core.StoreKeySynopsis].(string); ok && syn != "" {
		b.WriteString(syn)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Scenes: %d. Active plot lines: %d. Factions: %d. Locations: %d.",
		len(m.scenes), active, len(m.factions), len(m.locations))
	return b.String()
}

// Search scores every stored value against query and returns hits with a
// positive score, best first, up to limit (all when limit <= 0).
func (m *InMemoryStore) Search(query string, limit int) []SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w := relevance.DefaultWeights()
	var out []SearchResult
	consider := func(id string, v any) {
		text := relevance.Flatten(v)
		if s := relevance.Score(text, query, w); s > 0 {
			out = append(out, SearchResult{ID: id, Content: text, Score: s})
		}
	}

	for k, v := range m.values {
		consider("value:"+k, v)
	}
	for _, s := range m.scenes {
		consider("scene:"+s.ID, sceneData(s))
	}
	for _, p := range m.plotLines {
		consider("plot:"+p.ID, p.Title+"\n"+p.Summary)
	}
	for k, s := range m.factions {
		consider("faction:"+k, sheetData(s))
	}
	for k, s := range m.locations {
		consider("location:"+k, sheetData(s))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sceneData(s Scene) map[string]any {
	d := map[string]any{"id": s.ID, "title": s.Title}
	if s.Location != "" {
		d["location"] = s.Location
	}
	if len(s.Characters) > 0 {
		chars := make([]any, 0, len(s.Characters))
		for _, c := range s.Characters {
			chars = append(chars, c)
		}
		d["characters"] = chars
	}
	if s.Summary != "" {
		d["summary"] = s.Summary
	}
	return d
}

func sheetData(s Sheet) map[string]any {
	d := make(map[string]any, len(s.Fields)+2)
	for k, v := range s.Fields {
		d[k] = cloneValue(v)
	}
	d["name"] = s.Name
	if s.Description != "" {
		d["description"] = s.Description
	}
	return d
}

func sheetsData(sheets map[string]Sheet) any {
	if len(sheets) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sheets))
	for k := range sheets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, sheetData(sheets[k]))
	}
	return out
}

// cloneValue deep-copies the map and slice shapes produced by YAML/JSON
// decoding. Anything else is returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]string:
		if t == nil {
			return t
		}
		out := make(map[string]string, len(t))
		for k, item := range t {
			out[k] = item
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string(nil), t...)
	default:
		return v
	}
}
