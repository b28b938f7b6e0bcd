package relevance

import (
	"strings"
	"testing"

	"github.com/hupe1980/contextmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Components(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		name  string
		text  string
		query string
		want  float64
	}{
		{"no match", "Taxes are due.", "Blackwood forest", 0},
		{"single keyword", "A dark forest.", "Blackwood forest", 3},
		{"exact plus keywords plus proximity", "Blackwood Forest location\nA dark forest.", "Blackwood forest", 18},
		{"short words ignored", "an ox", "an ox", 10},
		{"far apart words", "alpha" + strings.Repeat(" ", 80) + "omega", "alpha omega", 6},
		{"empty query", "anything", "   ", 0},
		{"keywords additive beyond exact", "red green blue cyan magenta", "magenta cyan blue green red", 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text, tt.query, w))
		})
	}
}

func TestScore_CaseSymmetric(t *testing.T) {
	w := DefaultWeights()
	pairs := [][2]string{
		{"The Blackwood Forest is dark", "blackwood FOREST"},
		{"Straße nach Köln", "strasse köln"},
		{"Elena met Marcus at the inn", "marcus inn elena"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1], w), Score(strings.ToUpper(p[0]), strings.ToUpper(p[1]), w), p[0])
	}
}

func TestScore_MonotonicInFoundWords(t *testing.T) {
	w := DefaultWeights()
	text := "one two three four five six seven" + strings.Repeat(" pad", 40) + " eight"
	queries := []string{"one", "one three", "one three five", "one three five eight"}
	prev := -1.0
	for _, q := range queries {
		s := Score(text, "zzz "+q, w)
		assert.GreaterOrEqual(t, s, prev, q)
		prev = s
	}
}

func TestScore_PartialWeightUnused(t *testing.T) {
	w := DefaultWeights()
	w2 := w
	w2.Partial = 1000
	assert.Equal(t, Score("dark forest", "forest path", w), Score("dark forest", "forest path", w2))
}

func corpus() Corpus {
	snap := &core.Snapshot{
		Lore: []core.LoreEntry{
			{Keys: []string{"taxes"}, Comment: "Taxes", Content: "Taxes are due."},
			{Keys: []string{"Blackwood"}, Comment: "Blackwood Forest location", Content: "A dark forest."},
			{Keys: []string{"off"}, Comment: "Forest spirits", Content: "Spirits of the forest.", Disabled: true},
		},
		Messages: []core.Message{
			{Speaker: "User", Text: "Shall we enter the forest?", IsUser: true},
			{Speaker: "Elena", Text: "The Blackwood forest is dangerous."},
		},
		Character: core.CharacterProfile{Name: "Elena", Description: "A ranger of the Blackwood forest."},
	}
	store := &core.StoreSnapshot{
		CurrentScene: map[string]any{"location": "Blackwood forest edge", "time": "dusk"},
		Values:       map[string]any{core.StoreKeySynopsis: "A hunt through the forest."},
	}
	return Corpus{Snapshot: snap, Store: store}
}

func TestEngine_Query_SortedAndBounded(t *testing.T) {
	e := NewEngine(DefaultWeights(), nil)
	res := e.Query(corpus(), "Blackwood forest")

	require.NotEmpty(t, res.Items)
	assert.LessOrEqual(t, len(res.Items), DefaultMaxResults)
	for i, it := range res.Items {
		assert.GreaterOrEqual(t, it.Score, float64(DefaultMinScore))
		if i > 0 {
			assert.GreaterOrEqual(t, res.Items[i-1].Score, it.Score)
		}
		assert.NotEqual(t, "Forest spirits", it.Label, "disabled lore is not ranked")
	}
}

func TestEngine_Query_LoreExample(t *testing.T) {
	e := NewEngine(DefaultWeights(), nil)
	res := e.Query(corpus(), "Blackwood forest", func(o *QueryOptions) {
		o.Sources = []Source{SourceLore}
		o.MinScore = 0
	})
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Blackwood Forest location", res.Items[0].Label)
	assert.Equal(t, "A dark forest.", res.Items[0].Content)
	assert.GreaterOrEqual(t, res.Items[0].Score, 16.0)
	assert.Equal(t, "Taxes", res.Items[1].Label)
	assert.Equal(t, 0.0, res.Items[1].Score)
}

func TestEngine_Query_StableTies(t *testing.T) {
	snap := &core.Snapshot{Messages: []core.Message{
		{Speaker: "A", Text: "the forest"},
		{Speaker: "B", Text: "a forest"},
		{Speaker: "C", Text: "forest again"},
	}}
	res := NewEngine(DefaultWeights(), nil).Query(Corpus{Snapshot: snap}, "forest", func(o *QueryOptions) {
		o.Sources = []Source{SourceChat}
	})
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{res.Items[0].Label, res.Items[1].Label, res.Items[2].Label})
}

func TestEngine_Query_MaxResultsAndSources(t *testing.T) {
	e := NewEngine(DefaultWeights(), nil)
	res := e.Query(corpus(), "forest", func(o *QueryOptions) { o.MaxResults = 2 })
	assert.Len(t, res.Items, 2)

	res = e.Query(corpus(), "forest", func(o *QueryOptions) { o.Sources = []Source{SourceStore} })
	require.NotEmpty(t, res.Items)
	for _, it := range res.Items {
		assert.Equal(t, SourceStore, it.Source)
	}
}

func TestEngine_Query_ChatWindow(t *testing.T) {
	msgs := []core.Message{{Speaker: "Old", Text: "ancient dragon"}}
	for i := 0; i < ChatWindow; i++ {
		msgs = append(msgs, core.Message{Speaker: "New", Text: "filler"})
	}
	res := NewEngine(DefaultWeights(), nil).Query(Corpus{Snapshot: &core.Snapshot{Messages: msgs}}, "dragon")
	assert.Empty(t, res.Items)
}

func TestEngine_Cache(t *testing.T) {
	cache := NewCache()
	e := NewEngine(DefaultWeights(), cache)
	first := e.Query(corpus(), "forest")
	assert.Equal(t, 1, cache.Len())

	first.Items[0].Score = -1
	second := e.Query(corpus(), "forest")
	assert.NotEqual(t, -1.0, second.Items[0].Score, "cached results are copies")

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "", Flatten(nil))
	assert.Equal(t, "a\nb", Flatten([]any{"a", nil, "b"}))
	assert.Equal(t, "location: edge\ntime: dusk", Flatten(map[string]any{"time": "dusk", "location": "edge"}))
	assert.Equal(t, "3", Flatten(3))
}
