package format

import (
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// LoreSeparator is placed between rendered lore entries.
const LoreSeparator = "\n\n---\n\n"

// CategoryRule pairs a predicate over a lore comment with the category it
// assigns.
type CategoryRule struct {
	Category core.LoreCategory
	Match    func(comment string) bool
}

// containsAny builds a case-insensitive substring predicate.
func containsAny(needles ...string) func(string) bool {
	return func(comment string) bool {
		c := strings.ToLower(comment)
		for _, n := range needles {
			if strings.Contains(c, n) {
				return true
			}
		}
		return false
	}
}

// DefaultCategoryRules is the ordered rule list used by Categorize. Rules are
// evaluated top to bottom and the first match wins; general is the fallback.
var DefaultCategoryRules = []CategoryRule{
	{Category: core.LoreCategoryCharacter, Match: containsAny("character", "npc", "person")},
	{Category: core.LoreCategoryLocation, Match: containsAny("location", "place", "city", "region")},
	{Category: core.LoreCategoryFaction, Match: containsAny("faction", "guild", "organization", "clan")},
	{Category: core.LoreCategoryLore, Match: containsAny("lore", "history", "legend", "myth")},
}

// Categorize classifies a comment using rules, falling back to general.
func Categorize(comment string, rules []CategoryRule) core.LoreCategory {
	for _, r := range rules {
		if r.Match(comment) {
			return r.Category
		}
	}
	return core.LoreCategoryGeneral
}

// LoreOptions configures FormatLore.
type LoreOptions struct {
	IncludeDisabled bool
	Rules           []CategoryRule
}

// LoreHeader returns the display header of an entry: the comment, the joined
// keys, or the literal "Entry".
func LoreHeader(e core.LoreEntry) string {
	if c := strings.TrimSpace(e.Comment); c != "" {
		return c
	}
	if len(e.Keys) > 0 {
		return strings.Join(e.Keys, ", ")
	}
	return "Entry"
}

// Included reports whether FormatLore keeps e.
func Included(e core.LoreEntry, includeDisabled bool) bool {
	if strings.TrimSpace(e.Content) == "" {
		return false
	}
	return includeDisabled || !e.Disabled
}

// FormatLore renders every eligible lore entry. Entries without content are
// dropped, as are disabled entries unless IncludeDisabled.
func FormatLore(entries []core.LoreEntry, optFns ...func(o *LoreOptions)) core.LoreResult {
	opts := LoreOptions{Rules: DefaultCategoryRules}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rules == nil {
		opts.Rules = DefaultCategoryRules
	}

	res := core.LoreResult{
		Entries:    []core.FormattedLore{},
		ByCategory: map[core.LoreCategory][]core.FormattedLore{},
		TotalCount: len(entries),
	}
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		if !Included(e, opts.IncludeDisabled) {
			continue
		}
		header := LoreHeader(e)
		fl := core.FormattedLore{
			Header:   header,
			Content:  e.Content,
			Keys:     append([]string(nil), e.Keys...),
			Category: Categorize(e.Comment, opts.Rules),
			Text:     "[" + header + "]\n" + e.Content,
		}
		res.Entries = append(res.Entries, fl)
		res.ByCategory[fl.Category] = append(res.ByCategory[fl.Category], fl)
		blocks = append(blocks, fl.Text)
	}
	res.IncludedCount = len(res.Entries)
	res.Text = strings.Join(blocks, LoreSeparator)
	return res
}
