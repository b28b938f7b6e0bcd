package core

import (
	"context"
	"time"
)

// UnknownName is the placeholder used when the host cannot resolve a
// character or speaker name.
const UnknownName = "Unknown"

// Message is a single normalized chat message.
type Message struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	IsSystem  bool      `json:"is_system"`
	Timestamp time.Time `json:"timestamp"`
	VariantID int       `json:"variant_id"`
}

// LoreEntry is a keyed block of world/background text.
type LoreEntry struct {
	Keys     []string `json:"keys"`
	Content  string   `json:"content"`
	Comment  string   `json:"comment"`
	Disabled bool     `json:"disabled"`
}

// CharacterProfile is the normalized active character card.
type CharacterProfile struct {
	Name                    string   `json:"name"`
	Description             string   `json:"description"`
	Personality             string   `json:"personality"`
	Scenario                string   `json:"scenario"`
	FirstMessage            string   `json:"first_message"`
	SystemPrompt            string   `json:"system_prompt"`
	PostHistoryInstructions string   `json:"post_history_instructions"`
	Tags                    []string `json:"tags"`
}

// ParticipantSummary is a lightweight summary of a group participant.
type ParticipantSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Snapshot is an immutable point-in-time capture of a session for one
// processing pass. Callers must not mutate a Snapshot after acquisition; a new
// pass acquires a new Snapshot.
type Snapshot struct {
	Messages     []Message                     `json:"messages"`
	Lore         []LoreEntry                   `json:"lore"`
	Character    CharacterProfile              `json:"character"`
	Participants map[string]ParticipantSummary `json:"participants"`
	AcquiredAt   time.Time                     `json:"acquired_at"`
}

// SnapshotProvider pulls raw session data from the host application.
type SnapshotProvider interface {
	Session(ctx context.Context) (*RawSession, error)
}

// SnapshotProviderFunc is a functional adapter for SnapshotProvider.
type SnapshotProviderFunc func(ctx context.Context) (*RawSession, error)

// Session implements SnapshotProvider.
func (f SnapshotProviderFunc) Session(ctx context.Context) (*RawSession, error) { return f(ctx) }
