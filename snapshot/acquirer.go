package snapshot

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

// Options configures an Acquirer.
type Options struct {
	// Logger receives malformed-input warnings. Defaults to NoOpLogger.
	Logger logging.Logger
	// Now supplies the acquisition timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Acquirer turns host sessions into snapshots.
type Acquirer struct {
	provider core.SnapshotProvider
	opts     Options
}

// NewAcquirer creates an Acquirer reading from provider.
func NewAcquirer(provider core.SnapshotProvider, optFns ...func(o *Options)) *Acquirer {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Acquirer{provider: provider, opts: opts}
}

// Acquire pulls a fresh snapshot. The returned error is always a
// *core.AcquisitionError.
func (a *Acquirer) Acquire(ctx context.Context) (*core.Snapshot, error) {
	if a.provider == nil {
		return nil, &core.AcquisitionError{Err: core.ErrHostUnavailable}
	}
	raw, err := a.provider.Session(ctx)
	if err != nil {
		return nil, &core.AcquisitionError{Err: err}
	}
	if raw == nil {
		a.opts.Logger.Debug("snapshot.malformed", "field", "session", "default", "empty")
		raw = &core.RawSession{}
	}
	snap := Normalize(raw, a.opts.Logger)
	snap.AcquiredAt = a.opts.Now()
	return snap, nil
}

// Normalize converts a raw session into a snapshot without touching the
// acquisition timestamp. logger may be nil.
func Normalize(raw *core.RawSession, logger logging.Logger) *core.Snapshot {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if raw == nil {
		raw = &core.RawSession{}
	}
	character := normalizeCharacter(raw.Character, logger)
	return &core.Snapshot{
		Messages:     normalizeMessages(raw.Chat, character.Name, logger),
		Lore:         normalizeLore(raw.WorldInfo),
		Character:    character,
		Participants: normalizeParticipants(raw.Participants),
	}
}

func normalizeCharacter(raw *core.RawCharacter, logger logging.Logger) core.CharacterProfile {
	if raw == nil {
		logger.Debug("snapshot.malformed", "field", "character", "default", core.UnknownName)
		return core.CharacterProfile{Name: core.UnknownName, Tags: []string{}}
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		logger.Debug("snapshot.malformed", "field", "character.name", "default", core.UnknownName)
		name = core.UnknownName
	}
	return core.CharacterProfile{
		Name:                    name,
		Description:             raw.Description,
		Personality:             raw.Personality,
		Scenario:                raw.Scenario,
		FirstMessage:            raw.FirstMes,
		SystemPrompt:            raw.SystemPrompt,
		PostHistoryInstructions: raw.PostHistoryInstructions,
		Tags:                    cleanList(raw.Tags),
	}
}

func normalizeMessages(raw []core.RawMessage, characterName string, logger logging.Logger) []core.Message {
	msgs := make([]core.Message, 0, len(raw))
	for i, m := range raw {
		speaker := strings.TrimSpace(m.Name)
		if speaker == "" {
			logger.Debug("snapshot.malformed", "field", "chat.name", "index", i, "default", core.UnknownName)
			speaker = core.UnknownName
			if !m.IsUser && !m.IsSystem && characterName != "" {
				speaker = characterName
			}
		}
		ts, ok := ParseTimestamp(m.SendDate)
		if !ok && m.SendDate != nil {
			logger.Debug("snapshot.malformed", "field", "chat.send_date", "index", i)
		}
		msgs = append(msgs, core.Message{
			Speaker:   speaker,
			Text:      m.Mes,
			IsUser:    m.IsUser,
			IsSystem:  m.IsSystem,
			Timestamp: ts,
			VariantID: m.SwipeID,
		})
	}
	return msgs
}

func normalizeLore(raw []core.RawLoreEntry) []core.LoreEntry {
	entries := make([]core.LoreEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, core.LoreEntry{
			Keys:     cleanList(e.Key),
			Content:  e.Content,
			Comment:  e.Comment,
			Disabled: e.Disable,
		})
	}
	return entries
}

func normalizeParticipants(raw map[string]core.RawCard) map[string]core.ParticipantSummary {
	out := make(map[string]core.ParticipantSummary, len(raw))
	for id, card := range raw {
		name := strings.TrimSpace(card.Name)
		if name == "" {
			name = core.UnknownName
		}
		out[id] = core.ParticipantSummary{ID: id, Name: name, Description: card.Description}
	}
	return out
}

// cleanList trims entries, drops empties and duplicates while preserving the
// first occurrence order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"January 2, 2006 3:04pm",
	"January 2, 2006 3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp understands the timestamp shapes hosts are known to emit:
// RFC3339 strings, a handful of human readable layouts and unix epoch
// milliseconds (as number or numeric string). It reports false for anything
// else and returns the zero time.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// ParticipantIDs returns the participant ids of a snapshot in sorted order.
func ParticipantIDs(s *core.Snapshot) []string {
	ids := make([]string, 0, len(s.Participants))
	for id := range s.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
