package core

import (
	"encoding/json"
	"sort"
	"time"
)

// ChatLine is one message selected by the chat formatter. In detailed mode it
// carries the structured fields instead of only the flattened text.
type ChatLine struct {
	Index     int       `json:"index"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatResult is the rendered chat history block.
type ChatResult struct {
	Text          string     `json:"text"`
	Messages      []ChatLine `json:"messages"`
	Speakers      []string   `json:"speakers"` // unique, first-appearance order
	IncludedCount int        `json:"included_count"`
	TotalCount    int        `json:"total_count"`
}

// LoreCategory classifies a lore entry by its comment.
type LoreCategory string

const (
	LoreCategoryCharacter LoreCategory = "character"
	LoreCategoryLocation  LoreCategory = "location"
	LoreCategoryFaction   LoreCategory = "faction"
	LoreCategoryLore      LoreCategory = "lore"
	LoreCategoryGeneral   LoreCategory = "general"
)

// FormattedLore is one included lore entry with its rendered header.
type FormattedLore struct {
	Header   string       `json:"header"`
	Content  string       `json:"content"`
	Keys     []string     `json:"keys"`
	Category LoreCategory `json:"category"`
	Text     string       `json:"text"`
}

// LoreResult is the rendered lore block.
type LoreResult struct {
	Text          string                           `json:"text"`
	Entries       []FormattedLore                  `json:"entries"`
	ByCategory    map[LoreCategory][]FormattedLore `json:"by_category"`
	IncludedCount int                              `json:"included_count"`
	TotalCount    int                              `json:"total_count"`
}

// CharacterSection is one rendered part of the character sheet.
type CharacterSection struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CharacterResult is the rendered character sheet.
type CharacterResult struct {
	Text       string             `json:"text"`
	Sections   []CharacterSection `json:"sections"`
	HasContent bool               `json:"has_content"`
}

// EntityType tags how an entity entered the entity set.
type EntityType string

const (
	EntityTypeMain        EntityType = "main"
	EntityTypeParticipant EntityType = "participant"
	EntityTypeMentioned   EntityType = "mentioned"
	EntityTypeLocation    EntityType = "location"
	EntityTypeFaction     EntityType = "faction"
	EntityTypeItem        EntityType = "item"
)

// Entity is a named character/location/faction/item candidate.
type Entity struct {
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	Mentions    int        `json:"mentions"`
}

// EntityIndex maps a lowercased name to its entity.
type EntityIndex map[string]Entity

// Names returns the display names sorted alphabetically.
func (idx EntityIndex) Names() []string {
	names := make([]string, 0, len(idx))
	for _, e := range idx {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the entities ordered by lowercased key.
func (idx EntityIndex) Sorted() []Entity {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entity, 0, len(keys))
	for _, k := range keys {
		out = append(out, idx[k])
	}
	return out
}

// EntitySet groups the entity sub-indexes.
type EntitySet struct {
	Characters EntityIndex `json:"characters"`
	Locations  EntityIndex `json:"locations"`
	Factions   EntityIndex `json:"factions"`
	Items      EntityIndex `json:"items"`
}

// NewEntitySet returns an EntitySet with every sub-index allocated.
func NewEntitySet() EntitySet {
	return EntitySet{
		Characters: EntityIndex{},
		Locations:  EntityIndex{},
		Factions:   EntityIndex{},
		Items:      EntityIndex{},
	}
}

// TimelineEventType mirrors who authored a timeline event.
type TimelineEventType string

const (
	TimelineUser      TimelineEventType = "user"
	TimelineCharacter TimelineEventType = "character"
	TimelineSystem    TimelineEventType = "system"
)

// TimelineEvent is one chronological entry derived from a message.
type TimelineEvent struct {
	Index     int               `json:"index"`
	Type      TimelineEventType `json:"type"`
	Speaker   string            `json:"speaker"`
	Summary   string            `json:"summary"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	FullText  string            `json:"full_text"`
}

// Timeline is ordered by message order.
type Timeline []TimelineEvent

// Relationship is a subject-predicate-object triple.
type Relationship struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Source    string `json:"source"`
}

// RelationshipSet keeps relationships keyed by a synthesized key in first
// insertion order. The first relationship stored under a key wins.
type RelationshipSet struct {
	keys  []string
	byKey map[string]Relationship
}

// Add stores r under key unless the key is already taken. It reports whether
// r was stored.
func (s *RelationshipSet) Add(key string, r Relationship) bool {
	if s.byKey == nil {
		s.byKey = map[string]Relationship{}
	}
	if _, exists := s.byKey[key]; exists {
		return false
	}
	s.byKey[key] = r
	s.keys = append(s.keys, key)
	return true
}

// Get returns the relationship stored under key.
func (s RelationshipSet) Get(key string) (Relationship, bool) {
	r, ok := s.byKey[key]
	return r, ok
}

// Len returns the number of stored relationships.
func (s RelationshipSet) Len() int { return len(s.keys) }

// Keys returns the keys in insertion order.
func (s RelationshipSet) Keys() []string { return append([]string(nil), s.keys...) }

// All returns the relationships in insertion order.
func (s RelationshipSet) All() []Relationship {
	out := make([]Relationship, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.byKey[k])
	}
	return out
}

// MarshalJSON renders the set as an ordered list.
func (s RelationshipSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.All()) }

// TokenEstimate is an advisory token count per formatted block.
type TokenEstimate struct {
	PerSection map[string]int `json:"per_section"`
	Total      int            `json:"total"`
}

// ProcessedContext is everything derived from one Snapshot in a processing
// pass. It is rebuilt wholesale on every pass.
type ProcessedContext struct {
	Chat          ChatResult      `json:"chat"`
	Lore          LoreResult      `json:"lore"`
	Character     CharacterResult `json:"character"`
	Entities      EntitySet       `json:"entities"`
	Timeline      Timeline        `json:"timeline"`
	Relationships RelationshipSet `json:"relationships"`
	Store         *StoreSnapshot  `json:"store,omitempty"`
	Tokens        TokenEstimate   `json:"tokens"`
	ProcessedAt   time.Time       `json:"processed_at"`
}
