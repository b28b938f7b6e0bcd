package relevance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/format"
)

// Source names where a ranked excerpt came from.
type Source string

const (
	SourceLore      Source = "lore"
	SourceChat      Source = "chat"
	SourceCharacter Source = "character"
	SourceStore     Source = "store"
)

// AllSources lists every source in encounter order.
var AllSources = []Source{SourceLore, SourceChat, SourceCharacter, SourceStore}

const (
	// DefaultMaxResults is the default result cap.
	DefaultMaxResults = 10
	// DefaultMinScore is the default inclusion threshold.
	DefaultMinScore = 1
	// ChatWindow is how many trailing messages are scored.
	ChatWindow = 30
)

// Item is one ranked excerpt.
type Item struct {
	Source  Source  `json:"source"`
	Label   string  `json:"label"` // lore header, speaker or section name
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Result is the ranked outcome of a query, sorted by descending score.
type Result struct {
	Query string `json:"query"`
	Items []Item `json:"items"`
}

// QueryOptions configures Engine.Query.
type QueryOptions struct {
	MaxResults int
	MinScore   float64
	Sources    []Source
}

// DefaultQueryOptions returns maxResults=10, minScore=1 and every source.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
		Sources:    append([]Source(nil), AllSources...),
	}
}

// Corpus is the material a query ranks over.
type Corpus struct {
	Snapshot *core.Snapshot
	Store    *core.StoreSnapshot
}

// Engine ranks corpus units against queries. It is not safe for concurrent
// use; callers serialize access.
type Engine struct {
	weights Weights
	cache   *Cache
}

// NewEngine creates an Engine. A nil cache disables result caching.
func NewEngine(weights Weights, cache *Cache) *Engine {
	return &Engine{weights: weights, cache: cache}
}

// Weights returns the engine weights.
func (e *Engine) Weights() Weights { return e.weights }

// Query scores every eligible unit of the enabled sources, keeps units scoring
// at least MinScore, sorts them by descending score (ties keep encounter
// order) and truncates to MaxResults.
func (e *Engine) Query(corpus Corpus, text string, optFns ...func(o *QueryOptions)) Result {
	opts := DefaultQueryOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if len(opts.Sources) == 0 {
		opts.Sources = append([]Source(nil), AllSources...)
	}

	key := cacheKey(text, opts)
	if e.cache != nil {
		if res, ok := e.cache.Get(key); ok {
			return res
		}
	}

	enabled := map[Source]bool{}
	for _, s := range opts.Sources {
		enabled[s] = true
	}

	var items []Item
	for _, src := range AllSources {
		if !enabled[src] {
			continue
		}
		for _, u := range units(src, corpus) {
			score := Score(u.scored, text, e.weights)
			if score < opts.MinScore {
				continue
			}
			items = append(items, Item{Source: src, Label: u.label, Content: u.content, Score: score})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > opts.MaxResults {
		items = items[:opts.MaxResults]
	}
	if items == nil {
		items = []Item{}
	}

	res := Result{Query: text, Items: items}
	if e.cache != nil {
		e.cache.Put(key, res)
	}
	return res
}

type unit struct {
	label   string
	content string
	scored  string
}

func units(src Source, c Corpus) []unit {
	switch src {
	case SourceLore:
		return loreUnits(c.Snapshot)
	case SourceChat:
		return chatUnits(c.Snapshot)
	case SourceCharacter:
		return characterUnits(c.Snapshot)
	case SourceStore:
		return storeUnits(c.Store)
	}
	return nil
}

// loreUnits scores header and content together so that a query naming the
// entry (as its comment does) ranks it.
func loreUnits(s *core.Snapshot) []unit {
	if s == nil {
		return nil
	}
	out := make([]unit, 0, len(s.Lore))
	for _, e := range s.Lore {
		if !format.Included(e, false) {
			continue
		}
		header := format.LoreHeader(e)
		out = append(out, unit{label: header, content: e.Content, scored: header + "\n" + e.Content})
	}
	return out
}

func chatUnits(s *core.Snapshot) []unit {
	if s == nil {
		return nil
	}
	msgs := s.Messages
	if len(msgs) > ChatWindow {
		msgs = msgs[len(msgs)-ChatWindow:]
	}
	out := make([]unit, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		out = append(out, unit{label: m.Speaker, content: m.Text, scored: m.Text})
	}
	return out
}

func characterUnits(s *core.Snapshot) []unit {
	if s == nil {
		return nil
	}
	p := s.Character
	fields := []struct{ label, value string }{
		{"name", p.Name},
		{"description", p.Description},
		{"personality", p.Personality},
		{"scenario", p.Scenario},
		{"firstMessage", p.FirstMessage},
		{"systemPrompt", p.SystemPrompt},
		{"postHistoryInstructions", p.PostHistoryInstructions},
	}
	out := make([]unit, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		out = append(out, unit{label: f.label, content: f.value, scored: f.value})
	}
	return out
}

func storeUnits(s *core.StoreSnapshot) []unit {
	if s == nil {
		return nil
	}
	fields := []struct {
		label string
		value any
	}{
		{"currentScene", s.CurrentScene},
		{"plotLines", s.PlotLines},
		{"recentScenes", s.RecentScenes},
		{"presentCharacters", s.PresentCharacters},
		{"recentDialogue", s.RecentDialogue},
		{"factions", s.Factions},
		{"locations", s.Locations},
		{"summary", s.Summary},
	}
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, struct {
			label string
			value any
		}{k, s.Values[k]})
	}

	out := make([]unit, 0, len(fields))
	for _, f := range fields {
		text := Flatten(f.value)
		if text == "" {
			continue
		}
		out = append(out, unit{label: f.label, content: text, scored: text})
	}
	return out
}

// Flatten renders plain store data (strings, slices, maps) as text.
func Flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, "\n")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := Flatten(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(t)
	}
}

func cacheKey(text string, o QueryOptions) string {
	srcs := make([]string, 0, len(o.Sources))
	for _, s := range o.Sources {
		srcs = append(srcs, string(s))
	}
	sort.Strings(srcs)
	return fmt.Sprintf("%s\x00%d\x00%g\x00%s", text, o.MaxResults, o.MinScore, strings.Join(srcs, ","))
}
