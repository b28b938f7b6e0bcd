// Package index assembles lookup structures over a processed snapshot: entity
// sub-indexes by lowercased name, a keyword index from lowercased lore keys to
// their originating entries, and the chronological timeline.
//
// An Index is always rebuilt from scratch; there is no incremental update path.
package index

import (
	"sort"
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// Index is the read-only lookup structure derived from one processing pass.
type Index struct {
	Characters core.EntityIndex
	Locations  core.EntityIndex
	Factions   core.EntityIndex
	Items      core.EntityIndex
	// Keywords maps a lowercased lore key to every entry carrying it, in
	// insertion order. An entry with N keys appears in N buckets.
	Keywords map[string][]core.LoreEntry
	Timeline core.Timeline
}

// Build creates a fresh Index. Entity sub-indexes and the timeline are taken
// from pc as-is; the keyword index is built from every lore entry of snap.
func Build(pc *core.ProcessedContext, snap *core.Snapshot) *Index {
	idx := &Index{
		Characters: core.EntityIndex{},
		Locations:  core.EntityIndex{},
		Factions:   core.EntityIndex{},
		Items:      core.EntityIndex{},
		Keywords:   map[string][]core.LoreEntry{},
	}
	if pc != nil {
		if pc.Entities.Characters != nil {
			idx.Characters = pc.Entities.Characters
		}
		if pc.Entities.Locations != nil {
			idx.Locations = pc.Entities.Locations
		}
		if pc.Entities.Factions != nil {
			idx.Factions = pc.Entities.Factions
		}
		if pc.Entities.Items != nil {
			idx.Items = pc.Entities.Items
		}
		idx.Timeline = pc.Timeline
	}
	if snap != nil {
		for _, entry := range snap.Lore {
			for _, key := range entry.Keys {
				k := strings.ToLower(key)
				idx.Keywords[k] = append(idx.Keywords[k], entry)
			}
		}
	}
	return idx
}

// Entity looks a name up across the character, location, faction and item
// sub-indexes, in that order.
func (idx *Index) Entity(name string) (core.Entity, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, sub := range []core.EntityIndex{idx.Characters, idx.Locations, idx.Factions, idx.Items} {
		if e, ok := sub[key]; ok {
			return e, true
		}
	}
	return core.Entity{}, false
}

// LoreForKeyword returns the entries registered under keyword.
func (idx *Index) LoreForKeyword(keyword string) []core.LoreEntry {
	return idx.Keywords[strings.ToLower(keyword)]
}

// TriggeredLore returns the enabled entries whose keys occur (case-insensitive
// substring) in text. Each entry is returned once, ordered by the first
// keyword bucket that produced it; buckets are visited in sorted key order.
func (idx *Index) TriggeredLore(text string) []core.LoreEntry {
	haystack := strings.ToLower(text)
	keys := make([]string, 0, len(idx.Keywords))
	for k := range idx.Keywords {
		if k != "" && strings.Contains(haystack, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []core.LoreEntry
	seen := map[string]struct{}{}
	for _, k := range keys {
		for _, e := range idx.Keywords[k] {
			if e.Disabled {
				continue
			}
			id := entryIdentity(e)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the index sizes.
type Stats struct {
	Characters     int `json:"characters"`
	Locations      int `json:"locations"`
	Factions       int `json:"factions"`
	Items          int `json:"items"`
	Keywords       int `json:"keywords"`
	TimelineEvents int `json:"timeline_events"`
}

// Stats returns the index sizes.
func (idx *Index) Stats() Stats {
	return Stats{
		Characters:     len(idx.Characters),
		Locations:      len(idx.Locations),
		Factions:       len(idx.Factions),
		Items:          len(idx.Items),
		Keywords:       len(idx.Keywords),
		TimelineEvents: len(idx.Timeline),
	}
}

func entryIdentity(e core.LoreEntry) string {
	return strings.Join(e.Keys, "\x00") + "\x01" + e.Comment + "\x01" + e.Content
}
