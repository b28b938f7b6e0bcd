package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/format"
	"github.com/hupe1980/contextmesh/snapshot"
)

// Source labels attached to extracted entities.
const (
	SourceProfile     = "profile"
	SourceParticipant = "participant"
	SourceLore        = "lore"
	SourceDescription = "description"
	SourceScenario    = "scenario"
	SourceChat        = "chat"
)

// textUnit is one scanned block of text with its source label.
type textUnit struct {
	source string
	text   string
}

// Entities builds the entity set for a snapshot. Characters are seeded from
// the profile (type main) and participants; faction and location lore
// entries seed their sub-indexes; then lore content, the character
// description and scenario, and the most recent messages are scanned for
// location and name candidates.
func Entities(s *core.Snapshot) core.EntitySet {
	set := core.NewEntitySet()
	if s == nil {
		return set
	}

	seedCharacters(set, s)
	seedFromLore(set, s.Lore)

	units := scanUnits(s)
	for _, u := range units {
		for _, loc := range Locations(u.text) {
			mention(set.Locations, loc, core.EntityTypeLocation, u.source)
		}
	}
	for _, u := range units {
		for _, name := range Names(u.text) {
			key := strings.ToLower(name)
			if _, isPlace := set.Locations[key]; isPlace {
				continue
			}
			mention(set.Characters, name, core.EntityTypeMentioned, u.source)
		}
	}
	return set
}

func seedCharacters(set core.EntitySet, s *core.Snapshot) {
	name := strings.TrimSpace(s.Character.Name)
	if name != "" && name != core.UnknownName {
		set.Characters[strings.ToLower(name)] = core.Entity{
			Name:        name,
			Type:        core.EntityTypeMain,
			Description: s.Character.Description,
			Source:      SourceProfile,
		}
	}
	for _, id := range snapshot.ParticipantIDs(s) {
		p := s.Participants[id]
		key := strings.ToLower(p.Name)
		if p.Name == "" || p.Name == core.UnknownName {
			continue
		}
		if _, exists := set.Characters[key]; exists {
			continue
		}
		set.Characters[key] = core.Entity{
			Name:        p.Name,
			Type:        core.EntityTypeParticipant,
			Description: p.Description,
			Source:      SourceParticipant,
		}
	}
}

func seedFromLore(set core.EntitySet, lore []core.LoreEntry) {
	for _, e := range lore {
		if !format.Included(e, false) || len(e.Keys) == 0 {
			continue
		}
		var target core.EntityIndex
		var typ core.EntityType
		switch format.Categorize(e.Comment, format.DefaultCategoryRules) {
		case core.LoreCategoryFaction:
			target, typ = set.Factions, core.EntityTypeFaction
		case core.LoreCategoryLocation:
			target, typ = set.Locations, core.EntityTypeLocation
		default:
			continue
		}
		name := e.Keys[0]
		key := strings.ToLower(name)
		if _, exists := target[key]; exists {
			continue
		}
		target[key] = core.Entity{
			Name:        name,
			Type:        typ,
			Description: format.Truncate(e.Content, format.CompactLimit),
			Source:      SourceLore,
		}
	}
}

func scanUnits(s *core.Snapshot) []textUnit {
	units := make([]textUnit, 0, len(s.Lore)+2+RecentMessageWindow)
	for _, e := range s.Lore {
		if format.Included(e, false) {
			units = append(units, textUnit{source: SourceLore, text: e.Content})
		}
	}
	if s.Character.Description != "" {
		units = append(units, textUnit{source: SourceDescription, text: s.Character.Description})
	}
	if s.Character.Scenario != "" {
		units = append(units, textUnit{source: SourceScenario, text: s.Character.Scenario})
	}
	recent := s.Messages
	if len(recent) > RecentMessageWindow {
		recent = recent[len(recent)-RecentMessageWindow:]
	}
	for _, m := range recent {
		if m.Text != "" {
			units = append(units, textUnit{source: SourceChat, text: m.Text})
		}
	}
	return units
}

// mention records one occurrence of name: the first creates the entry with one
// mention, later ones increment it.
func mention(idx core.EntityIndex, name string, typ core.EntityType, source string) {
	key := strings.ToLower(name)
	if e, ok := idx[key]; ok {
		e.Mentions++
		idx[key] = e
		return
	}
	idx[key] = core.Entity{Name: name, Type: typ, Source: source, Mentions: 1}
}

// Locations returns every location candidate in text, in order of
// appearance, from both surface patterns. Duplicates are kept so callers can
// count mentions.
func Locations(text string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range []*regexp.Regexp{prepositionPlacePattern, calledPlacePattern} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			name := strings.TrimSpace(text[m[2]:m[3]])
			n := utf8.RuneCountInString(name)
			if n < minLocationLen || n > maxLocationLen {
				continue
			}
			hits = append(hits, hit{pos: m[2], name: name})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// Names returns capitalized one- or two-word sequences, with leading
// sentence-start function words stripped.
func Names(text string) []string {
	var out []string
	for _, m := range namePattern.FindAllString(text, -1) {
		words := strings.Fields(m)
		for len(words) > 0 {
			if _, stop := leadingStopwords[strings.ToLower(words[0])]; !stop {
				break
			}
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		out = append(out, strings.Join(words, " "))
	}
	return out
}
