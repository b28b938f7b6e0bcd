package format

import (
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/contextmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgs(n int) []core.Message {
	out := make([]core.Message, 0, n)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, core.Message{
			Speaker:   []string{"Elena", "User"}[i%2],
			Text:      "message " + string(rune('a'+i%26)),
			IsUser:    i%2 == 1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestFormatChat_WindowIsSuffixOfEligible(t *testing.T) {
	history := msgs(12)
	history[3].IsSystem = true
	history[7].IsSystem = true

	var eligible []int
	for i, m := range history {
		if !m.IsSystem {
			eligible = append(eligible, i)
		}
	}

	for _, n := range []int{1, 4, 10, 50} {
		res := FormatChat(history, func(o *ChatOptions) { o.MaxMessages = n })
		want := n
		if len(eligible) < n {
			want = len(eligible)
		}
		require.Equal(t, want, res.IncludedCount, "n=%d", n)
		assert.Equal(t, len(history), res.TotalCount)

		suffix := eligible[len(eligible)-want:]
		for i, line := range res.Messages {
			assert.Equal(t, suffix[i], line.Index)
		}
	}
}

func TestFormatChat_IncludeSystem(t *testing.T) {
	history := msgs(3)
	history[1].IsSystem = true

	res := FormatChat(history)
	assert.Equal(t, 2, res.IncludedCount)

	res = FormatChat(history, func(o *ChatOptions) { o.IncludeSystem = true })
	assert.Equal(t, 3, res.IncludedCount)
}

func TestFormatChat_LatestMessageWins(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := []core.Message{
		{Speaker: "Elena", Text: "first", Timestamp: base},
		{Speaker: "Elena", Text: "second", Timestamp: base.Add(10 * time.Minute)},
	}

	res := FormatChat(history, func(o *ChatOptions) { o.MaxMessages = 1 })
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "second", res.Messages[0].Text)
	assert.Equal(t, "Elena: second", res.Text)
	assert.Equal(t, []string{"Elena"}, res.Speakers)
}

func TestFormatChat_CompactTruncates(t *testing.T) {
	long := strings.Repeat("x", 250)
	res := FormatChat([]core.Message{{Speaker: "A", Text: long}}, func(o *ChatOptions) { o.Mode = ChatModeCompact })
	require.Len(t, res.Messages, 1)
	assert.Equal(t, strings.Repeat("x", CompactLimit)+Ellipsis, res.Messages[0].Text)
}

func TestFormatChat_Detailed(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	res := FormatChat([]core.Message{{Speaker: "Bob", Text: "hi", IsUser: true, Timestamp: ts}}, func(o *ChatOptions) { o.Mode = ChatModeDetailed })
	assert.Equal(t, "[#0] Bob (user) @ 2024-05-01 12:30\nhi", res.Text)
	assert.True(t, res.Messages[0].IsUser)
	assert.Equal(t, ts, res.Messages[0].Timestamp)
}

func TestFormatChat_Empty(t *testing.T) {
	res := FormatChat(nil)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 0, res.IncludedCount)
	assert.Empty(t, res.Speakers)
}

func TestFormatLore_IncludedCount(t *testing.T) {
	entries := []core.LoreEntry{
		{Keys: []string{"a"}, Content: "alpha"},
		{Keys: []string{"b"}, Content: ""},
		{Keys: []string{"c"}, Content: "gamma", Disabled: true},
		{Keys: []string{"d"}, Content: "   "},
		{Keys: []string{"e"}, Content: "epsilon"},
	}

	for _, includeDisabled := range []bool{false, true} {
		want := 0
		for _, e := range entries {
			if strings.TrimSpace(e.Content) != "" && (includeDisabled || !e.Disabled) {
				want++
			}
		}
		res := FormatLore(entries, func(o *LoreOptions) { o.IncludeDisabled = includeDisabled })
		assert.Equal(t, want, res.IncludedCount)
		assert.Equal(t, len(entries), res.TotalCount)
	}
}

func TestFormatLore_HeadersAndSeparator(t *testing.T) {
	entries := []core.LoreEntry{
		{Comment: "Blackwood Forest location", Keys: []string{"Blackwood"}, Content: "A dark forest."},
		{Keys: []string{"sword", "blade"}, Content: "A blade."},
		{Content: "Nameless."},
	}
	res := FormatLore(entries)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "Blackwood Forest location", res.Entries[0].Header)
	assert.Equal(t, "sword, blade", res.Entries[1].Header)
	assert.Equal(t, "Entry", res.Entries[2].Header)
	assert.Equal(t, "[Blackwood Forest location]\nA dark forest."+LoreSeparator+"[sword, blade]\nA blade."+LoreSeparator+"[Entry]\nNameless.", res.Text)
}

func TestCategorize_FirstRuleWins(t *testing.T) {
	tests := []struct {
		comment string
		want    core.LoreCategory
	}{
		{"Blackwood Forest location", core.LoreCategoryLocation},
		{"CHARACTER: Marcus", core.LoreCategoryCharacter},
		{"character from the Iron Guild faction", core.LoreCategoryCharacter},
		{"location of the guild hall", core.LoreCategoryLocation},
		{"Thieves Guild", core.LoreCategoryFaction},
		{"ancient history", core.LoreCategoryLore},
		{"misc notes", core.LoreCategoryGeneral},
		{"", core.LoreCategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.comment, DefaultCategoryRules))
		})
	}
}

func TestFormatLore_ByCategory(t *testing.T) {
	res := FormatLore([]core.LoreEntry{
		{Comment: "Elena character", Content: "a"},
		{Comment: "Port city", Content: "b"},
		{Comment: "whatever", Content: "c"},
	})
	assert.Len(t, res.ByCategory[core.LoreCategoryCharacter], 1)
	assert.Len(t, res.ByCategory[core.LoreCategoryLocation], 1)
	assert.Len(t, res.ByCategory[core.LoreCategoryGeneral], 1)
}

func TestFormatCharacter(t *testing.T) {
	t.Run("name only has no content", func(t *testing.T) {
		res := FormatCharacter(core.CharacterProfile{Name: "Elena"})
		assert.False(t, res.HasContent)
		assert.Equal(t, "Name: Elena", res.Text)
		require.Len(t, res.Sections, 1)
	})

	t.Run("fixed order", func(t *testing.T) {
		res := FormatCharacter(core.CharacterProfile{
			Name:         "Elena",
			Scenario:     "At the inn.",
			Description:  "A ranger.",
			SystemPrompt: "Stay in character.",
			FirstMessage: "ignored",
		})
		assert.True(t, res.HasContent)
		keys := make([]string, 0, len(res.Sections))
		for _, s := range res.Sections {
			keys = append(keys, s.Key)
		}
		assert.Equal(t, []string{"name", "description", "scenario", "systemInstructions"}, keys)
		assert.Equal(t, "Name: Elena\n\nDescription:\nA ranger.\n\nScenario:\nAt the inn.\n\nSystem Instructions:\nStay in character.", res.Text)
	})

	t.Run("empty profile", func(t *testing.T) {
		res := FormatCharacter(core.CharacterProfile{})
		assert.False(t, res.HasContent)
		assert.Empty(t, res.Text)
	})
}
