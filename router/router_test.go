package router

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/core"
)

type fakeStore struct {
	values map[string]any
	scene  any
	plots  any
	calls  int
}

var (
	_ core.StateStore       = (*fakeStore)(nil)
	_ core.SceneAccessor    = (*fakeStore)(nil)
	_ core.PlotLineAccessor = (*fakeStore)(nil)
)

func (f *fakeStore) Get(key string) (any, bool) {
	f.calls++
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeStore) CurrentScene() any {
	f.calls++
	return f.scene
}

func (f *fakeStore) ActivePlotLines() any {
	f.calls++
	return f.plots
}

func TestParseNeed(t *testing.T) {
	for _, n := range AllNeeds() {
		got, ok := ParseNeed(n.String())
		require.True(t, ok, n.String())
		assert.Equal(t, n, got)
	}

	_, ok := ParseNeed("bogus")
	assert.False(t, ok)
	assert.Len(t, AllNeeds(), int(needCount))
	assert.Equal(t, "Need(99)", Need(99).String())
	assert.False(t, Need(-1).Valid())
}

func TestConsumerProfileNeeds(t *testing.T) {
	p := ConsumerProfile{ContextNeeds: []string{"plotLines", "nope", "worldInfo"}}
	assert.Equal(t, []Need{NeedPlotLines, NeedWorldInfo}, p.Needs())
}

func TestHeaderFor(t *testing.T) {
	assert.Equal(t, "Current Situation", HeaderFor("currentSituation"))
	assert.Equal(t, "World Info", HeaderFor("worldInfo"))
	assert.Equal(t, "Story Synopsis", HeaderFor("storySynopsis"))
	assert.Equal(t, "A", HeaderFor("a"))
	assert.Equal(t, "", HeaderFor(""))
}

func TestRoute_NothingKnown(t *testing.T) {
	r := New()
	b := r.Route(Input{}, "writer", ConsumerProfile{Name: "Writer"}, "draft", nil)

	assert.Equal(t, "writer", b.ConsumerID)
	assert.Equal(t, "Writer", b.ConsumerName)
	assert.Equal(t, "draft", b.Phase)
	assert.Equal(t, []string{CurrentSituationKey}, b.Sections.Keys())

	v, _ := b.Sections.Get(CurrentSituationKey)
	assert.Equal(t, NotEstablished, v)
	assert.Equal(t, "## Current Situation\nNot established", b.Formatted)
}

func TestRoute_CurrentSituationPrefersProcessed(t *testing.T) {
	store := &fakeStore{scene: "On the docks"}
	pc := &core.ProcessedContext{Store: &core.StoreSnapshot{CurrentScene: "In the tavern"}}

	b := New().Route(Input{Processed: pc}, "writer", ConsumerProfile{}, "", store)
	v, _ := b.Sections.Get(CurrentSituationKey)
	assert.Equal(t, "In the tavern", v)
	assert.Equal(t, "writer", b.ConsumerName)

	b = New().Route(Input{Processed: &core.ProcessedContext{}}, "writer", ConsumerProfile{}, "", store)
	v, _ = b.Sections.Get(CurrentSituationKey)
	assert.Equal(t, "On the docks", v)
}

func TestRoute_UnknownNeedsIgnored(t *testing.T) {
	store := &fakeStore{values: map[string]any{core.StoreKeySynopsis: "A heist gone wrong."}}
	profile := ConsumerProfile{ContextNeeds: []string{"storySynopsis", "astrology", "storySynopsis"}}

	b := New().Route(Input{}, "planner", profile, "plan", store)

	assert.Equal(t, []string{CurrentSituationKey, "storySynopsis"}, b.Sections.Keys())
	assert.Contains(t, b.Formatted, "## Story Synopsis\nA heist gone wrong.")
}

func TestRoute_ProcessedBeforeLive(t *testing.T) {
	var rels core.RelationshipSet
	rels.Add("elena_marcus", core.Relationship{Subject: "Elena", Predicate: "daughter", Object: "Marcus"})
	rels.Add("elena_unknown", core.Relationship{Subject: "Elena", Predicate: "sword", Object: "unknown"})

	pc := &core.ProcessedContext{
		Chat:          core.ChatResult{Text: "Elena: Hello."},
		Lore:          core.LoreResult{Text: "[Blackwood]\nA dark forest."},
		Character:     core.CharacterResult{Text: "Name: Elena", HasContent: true},
		Relationships: rels,
		Store: &core.StoreSnapshot{
			PlotLines: []any{"Find the ledger"},
			Values:    map[string]any{core.StoreKeyOutline: "Act one."},
		},
	}
	store := &fakeStore{
		plots:  []any{"stale"},
		values: map[string]any{core.StoreKeyOutline: "stale", core.StoreKeyDraft: "Live draft."},
	}

	profile := ConsumerProfile{ContextNeeds: []string{
		"plotLines", "storyOutline", "storyDraft", "dialogueHistory",
		"characterSheets", "relationships", "worldInfo",
	}}
	b := New().Route(Input{Processed: pc}, "writer", profile, "", store)

	get := func(k string) any {
		v, ok := b.Sections.Get(k)
		require.True(t, ok, k)
		return v
	}
	assert.Equal(t, []any{"Find the ledger"}, get("plotLines"))
	assert.Equal(t, "Act one.", get("storyOutline"))
	assert.Equal(t, "Live draft.", get("storyDraft"))
	assert.Equal(t, "Elena: Hello.", get("dialogueHistory"))
	assert.Equal(t, "Name: Elena", get("characterSheets"))
	assert.Equal(t, []any{"Elena: daughter of Marcus", "Elena: sword"}, get("relationships"))
	assert.Equal(t, "[Blackwood]\nA dark forest.", get("worldInfo"))

	assert.Contains(t, b.Formatted, "## Relationships\n- Elena: daughter of Marcus\n- Elena: sword")
}

func TestRoute_EntitySheetsFallback(t *testing.T) {
	es := core.NewEntitySet()
	es.Locations["blackwood"] = core.Entity{Name: "Blackwood", Type: core.EntityTypeLocation, Description: "A dark forest."}
	es.Locations["anvil"] = core.Entity{Name: "Anvil", Type: core.EntityTypeLocation}

	pc := &core.ProcessedContext{Entities: es}
	profile := ConsumerProfile{ContextNeeds: []string{"locationSheets", "factionSheets"}}

	b := New().Route(Input{Processed: pc}, "mapper", profile, "", nil)

	assert.Contains(t, b.Formatted, "## Location Sheets\n- Anvil\n- Blackwood: A dark forest.")
	assert.NotContains(t, b.Formatted, "Faction Sheets")
}

func TestRoute_ProfileBudget(t *testing.T) {
	store := &fakeStore{values: map[string]any{core.StoreKeySynopsis: strings.Repeat("s", 200)}}
	profile := ConsumerProfile{ContextNeeds: []string{"storySynopsis"}, MaxPromptLength: 100}

	b := New().Route(Input{}, "w", profile, "", store)

	_, ok := b.Sections.Get("storySynopsis")
	assert.True(t, ok)
	assert.NotContains(t, b.Formatted, "Story Synopsis")
	assert.LessOrEqual(t, len(b.Formatted), 100)
}

func TestFormatForPrompt_DropsOverflowingSections(t *testing.T) {
	s := NewSections()
	s.Set("a", strings.Repeat("x", 50))
	s.Set("b", strings.Repeat("y", 500))
	s.Set("c", "z")

	out := FormatForPrompt(s, 100)

	assert.Equal(t, "## A\n"+strings.Repeat("x", 50)+"\n\n## C\nz", out)
}

func TestFormatForPrompt_SkipsFalsy(t *testing.T) {
	s := NewSections()
	s.Set("empty", "")
	s.Set("blank", "   ")
	s.Set("zero", 0)
	s.Set("none", nil)
	s.Set("list", []string{})
	s.Set("flag", false)
	s.Set("kept", "value")

	assert.Equal(t, "## Kept\nvalue", FormatForPrompt(s, 0))
}

func TestFormatForPrompt_Shapes(t *testing.T) {
	s := NewSections()
	s.Set("plotLines", []string{"one", "two"})
	s.Set("summarized", map[string]any{"summary": "A short summary", "detail": "x"})
	s.Set("fields", map[string]any{"name": "Elena", "age": 30, "tags": []any{"a"}})
	s.Set("people", []any{
		map[string]any{"name": "Marcus", "description": "A smith"},
		map[string]any{"formatted": "Lira (scout)"},
		map[string]any{"role": "guard"},
	})

	out := FormatForPrompt(s, DefaultMaxLength)

	assert.Equal(t, strings.Join([]string{
		"## Plot Lines\n- one\n- two",
		"## Summarized\nA short summary",
		"## Fields\n- age: 30\n- name: Elena",
		"## People\n- Marcus: A smith\n- Lira (scout)\n- role: guard",
	}, SectionSeparator), out)
}

type promptScene struct {
	Title   string
	Summary string
}

type promptSheet struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type promptStats struct {
	Chapter int    `json:"chapter"`
	Mood    string `json:"mood,omitempty"`
	Secret  string `json:"-"`
	hidden  string
}

func TestFormatForPrompt_Structs(t *testing.T) {
	var missing *promptScene

	s := NewSections()
	s.Set("scene", promptScene{Title: "Gate", Summary: "The party waits at the gate."})
	s.Set("factions", []promptSheet{{Name: "Guild", Members: 3}})
	s.Set("previous", &promptScene{Title: "Keep", Summary: "A ruined keep."})
	s.Set("stats", promptStats{Chapter: 2, Mood: "tense", Secret: "x", hidden: "y"})
	s.Set("recent", []any{&promptScene{Title: "Dock"}, promptStats{Chapter: 1}})
	s.Set("absent", missing)

	out := FormatForPrompt(s, DefaultMaxLength)

	assert.Equal(t, strings.Join([]string{
		"## Scene\nThe party waits at the gate.",
		"## Factions\n- Guild",
		"## Previous\nA ruined keep.",
		"## Stats\n- chapter: 2\n- mood: tense",
		"## Recent\n- Title: Dock\n- chapter: 1",
	}, SectionSeparator), out)
	assert.NotContains(t, out, "{")
}

func TestSections(t *testing.T) {
	s := NewSections()
	s.Set("b", 1)
	s.Set("a", 2)
	s.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":3,"a":2}`, string(data))
	assert.Equal(t, `{"b":3,"a":2}`, string(data))

	var nilSections *Sections
	assert.Equal(t, 0, nilSections.Len())
	assert.Empty(t, FormatForPrompt(nilSections, 10))
}
