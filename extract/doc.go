// Package extract surfaces candidate entities (characters, locations,
// factions) and subject-relation-object triples from snapshot text using
// literal lexical heuristics, and derives the chronological timeline.
//
// Extraction is best-effort. Duplicate detection is a case-insensitive exact
// match on the entity name; there is no fuzzy merging.
package extract
