package testutil

import (
	"context"
	"errors"

	"github.com/hupe1980/contextmesh/core"
)

// SessionBuilder helps construct raw host sessions with fluent chaining for tests.
// Example:
//
//	raw := NewSessionBuilder("Elena").User("Alex", "Hi").Char("Hello.").Lore("A forest.", "Blackwood").Build()
type SessionBuilder struct {
	raw core.RawSession
}

// NewSessionBuilder creates a builder whose active character is named
// character. An empty name leaves the character unset.
func NewSessionBuilder(character string) *SessionBuilder {
	b := &SessionBuilder{}
	if character != "" {
		b.raw.Character = &core.RawCharacter{Name: character}
	}
	return b
}

func (b *SessionBuilder) character() *core.RawCharacter {
	if b.raw.Character == nil {
		b.raw.Character = &core.RawCharacter{}
	}
	return b.raw.Character
}

// Description sets the character description (chainable).
func (b *SessionBuilder) Description(s string) *SessionBuilder {
	b.character().Description = s
	return b
}

// Personality sets the character personality (chainable).
func (b *SessionBuilder) Personality(s string) *SessionBuilder {
	b.character().Personality = s
	return b
}

// Scenario sets the character scenario (chainable).
func (b *SessionBuilder) Scenario(s string) *SessionBuilder {
	b.character().Scenario = s
	return b
}

// User appends a user message (chainable).
func (b *SessionBuilder) User(name, text string) *SessionBuilder {
	b.raw.Chat = append(b.raw.Chat, core.RawMessage{Name: name, Mes: text, IsUser: true})
	return b
}

// Char appends a message from the active character (chainable).
func (b *SessionBuilder) Char(text string) *SessionBuilder {
	name := ""
	if b.raw.Character != nil {
		name = b.raw.Character.Name
	}
	b.raw.Chat = append(b.raw.Chat, core.RawMessage{Name: name, Mes: text})
	return b
}

// System appends a system message (chainable).
func (b *SessionBuilder) System(text string) *SessionBuilder {
	b.raw.Chat = append(b.raw.Chat, core.RawMessage{Name: "System", Mes: text, IsSystem: true})
	return b
}

// Message appends an arbitrary raw message (chainable).
func (b *SessionBuilder) Message(m core.RawMessage) *SessionBuilder {
	b.raw.Chat = append(b.raw.Chat, m)
	return b
}

// Lore appends an enabled world-info entry (chainable).
func (b *SessionBuilder) Lore(content string, keys ...string) *SessionBuilder {
	b.raw.WorldInfo = append(b.raw.WorldInfo, core.RawLoreEntry{Key: keys, Content: content})
	return b
}

// LoreEntry appends an arbitrary world-info entry (chainable).
func (b *SessionBuilder) LoreEntry(e core.RawLoreEntry) *SessionBuilder {
	b.raw.WorldInfo = append(b.raw.WorldInfo, e)
	return b
}

// Participant adds a group participant card (chainable).
func (b *SessionBuilder) Participant(id, name, description string) *SessionBuilder {
	if b.raw.Participants == nil {
		b.raw.Participants = map[string]core.RawCard{}
	}
	b.raw.Participants[id] = core.RawCard{Name: name, Description: description}
	return b
}

// Build returns a deep copy of the accumulated session.
func (b *SessionBuilder) Build() *core.RawSession {
	return b.raw.Clone()
}

// Provider returns a SnapshotProvider serving a copy of the session on
// every call.
func (b *SessionBuilder) Provider() core.SnapshotProvider {
	raw := b.Build()
	return core.SnapshotProviderFunc(func(context.Context) (*core.RawSession, error) {
		return raw.Clone(), nil
	})
}

// ErrProviderDown is returned by FlakyProvider while it is failing.
var ErrProviderDown = errors.New("testutil: provider down")

// FlakyProvider serves a session until Fail is set.
type FlakyProvider struct {
	Raw  *core.RawSession
	Fail bool
}

// Session implements core.SnapshotProvider.
func (p *FlakyProvider) Session(context.Context) (*core.RawSession, error) {
	if p.Fail {
		return nil, ErrProviderDown
	}
	return p.Raw.Clone(), nil
}
