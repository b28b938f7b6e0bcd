package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/core"
)

func provider(raw *core.RawSession, err error) core.SnapshotProvider {
	return core.SnapshotProviderFunc(func(context.Context) (*core.RawSession, error) {
		return raw, err
	})
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestAcquire_Defaults(t *testing.T) {
	a := NewAcquirer(provider(&core.RawSession{}, nil), func(o *Options) { o.Now = fixedNow })

	snap, err := a.Acquire(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Messages)
	assert.NotNil(t, snap.Messages)
	assert.Empty(t, snap.Lore)
	assert.NotNil(t, snap.Lore)
	assert.Equal(t, core.UnknownName, snap.Character.Name)
	assert.Empty(t, snap.Character.Description)
	assert.NotNil(t, snap.Participants)
	assert.Equal(t, fixedNow(), snap.AcquiredAt)
}

func TestAcquire_NilSessionIsEmpty(t *testing.T) {
	snap, err := NewAcquirer(provider(nil, nil)).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.UnknownName, snap.Character.Name)
}

func TestAcquire_ProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")

	_, err := NewAcquirer(provider(nil, boom)).Acquire(context.Background())
	var acqErr *core.AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.ErrorIs(t, err, boom)

	_, err = NewAcquirer(nil).Acquire(context.Background())
	require.ErrorAs(t, err, &acqErr)
	assert.ErrorIs(t, err, core.ErrHostUnavailable)
}

func TestAcquire_Normalizes(t *testing.T) {
	raw := &core.RawSession{
		Character: &core.RawCharacter{
			Name:     "  Elena ",
			FirstMes: "Hello.",
			Tags:     core.StringList{"hero", " ", "hero", "scout"},
		},
		Chat: []core.RawMessage{
			{Name: "Alex", IsUser: true, Mes: "Hi", SendDate: "2024-05-01T10:00:00Z"},
			{Mes: "Greetings", SendDate: float64(1714557600000), SwipeID: 2},
			{Mes: "The wind rises.", IsSystem: true, SendDate: "yesterday-ish"},
		},
		WorldInfo: []core.RawLoreEntry{
			{Key: core.StringList{"Blackwood", "", "Blackwood"}, Content: "A dark forest.", Disable: true},
		},
		Participants: map[string]core.RawCard{
			"b": {Name: "Marcus"},
			"a": {},
		},
	}

	snap, err := NewAcquirer(provider(raw, nil)).Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Elena", snap.Character.Name)
	assert.Equal(t, "Hello.", snap.Character.FirstMessage)
	assert.Equal(t, []string{"hero", "scout"}, snap.Character.Tags)

	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Alex", snap.Messages[0].Speaker)
	assert.True(t, snap.Messages[0].IsUser)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), snap.Messages[0].Timestamp)
	assert.Equal(t, "Elena", snap.Messages[1].Speaker)
	assert.Equal(t, 2, snap.Messages[1].VariantID)
	assert.Equal(t, time.UnixMilli(1714557600000).UTC(), snap.Messages[1].Timestamp)
	assert.Equal(t, core.UnknownName, snap.Messages[2].Speaker)
	assert.True(t, snap.Messages[2].Timestamp.IsZero())

	require.Len(t, snap.Lore, 1)
	assert.Equal(t, []string{"Blackwood"}, snap.Lore[0].Keys)
	assert.True(t, snap.Lore[0].Disabled)

	assert.Equal(t, []string{"a", "b"}, ParticipantIDs(snap))
	assert.Equal(t, core.UnknownName, snap.Participants["a"].Name)
	assert.Equal(t, "Marcus", snap.Participants["b"].Name)
}

func TestAcquire_Idempotent(t *testing.T) {
	raw := &core.RawSession{
		Character: &core.RawCharacter{Name: "Elena"},
		Chat:      []core.RawMessage{{Name: "Alex", IsUser: true, Mes: "Hi"}},
	}
	a := NewAcquirer(provider(raw, nil))

	first, err := a.Acquire(context.Background())
	require.NoError(t, err)
	second, err := a.Acquire(context.Background())
	require.NoError(t, err)

	first.AcquiredAt, second.AcquiredAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 15, 4, 0, 0, time.UTC)

	for _, v := range []any{
		"2024-05-01T15:04:00Z",
		"May 1, 2024 3:04pm",
		"2024-05-01 15:04:00",
		want.UnixMilli(),
		float64(want.UnixMilli()),
		"1714575840000",
	} {
		got, ok := ParseTimestamp(v)
		assert.True(t, ok, "%v", v)
		assert.Equal(t, want, got, "%v", v)
	}

	for _, v := range []any{nil, "", "soon", true} {
		got, ok := ParseTimestamp(v)
		assert.False(t, ok, "%v", v)
		assert.True(t, got.IsZero())
	}
}
