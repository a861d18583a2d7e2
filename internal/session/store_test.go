package session

import (
	"path/filepath"
	"testing"

	"vacancy-tracker/internal/hole"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	key, ok := Key("b1", "a1")
	require.True(t, ok)
	assert.Equal(t, "b1::a1", key)

	_, ok = Key("b1", "b1")
	assert.False(t, ok, "same panel on both sides has no session")
	_, ok = Key("", "a1")
	assert.False(t, ok)
	_, ok = Key("b1", "")
	assert.False(t, ok)
}

func TestSwitchCreatesAndRestores(t *testing.T) {
	st := NewStore()

	s1 := st.Switch("b1", "a1")
	require.NotNil(t, s1)
	assert.Same(t, s1, st.Active())

	before := holeRef("b1", 1, 0, 0, 10)
	require.NoError(t, s1.AddPairing(pairingOf(&before, nil)))

	// Switching away stashes the populated session.
	s2 := st.Switch("b1", "a2")
	require.NotNil(t, s2)
	assert.NotSame(t, s1, s2)

	// Switching back restores the same instance.
	back := st.Switch("b1", "a1")
	assert.Same(t, s1, back)
	assert.Len(t, back.Pairings, 1)
}

func TestSwitchDropsEmptySessions(t *testing.T) {
	st := NewStore()
	first := st.Switch("b1", "a1")
	require.NotNil(t, first)

	// No data was added, so nothing is stashed.
	st.Switch("b1", "a2")
	assert.Equal(t, 0, st.Len())

	// Coming back yields a fresh session, not the dropped one.
	again := st.Switch("b1", "a1")
	assert.NotSame(t, first, again)
}

func TestSwitchUndefinedKeyClearsActive(t *testing.T) {
	st := NewStore()
	s := st.Switch("b1", "a1")
	require.NotNil(t, s)
	before := holeRef("b1", 1, 0, 0, 10)
	require.NoError(t, s.AddPairing(pairingOf(&before, nil)))

	assert.Nil(t, st.Switch("b1", "b1"))
	assert.Nil(t, st.Active())

	// The populated session survived the clear.
	got, ok := st.Get("b1", "a1")
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestGetNeverCreates(t *testing.T) {
	st := NewStore()
	_, ok := st.Get("b1", "a1")
	assert.False(t, ok)
	_, ok = st.Get("b1", "b1")
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestDocumentRoundTrip(t *testing.T) {
	st := NewStore()
	s := st.Switch("b1", "a1")
	before := holeRef("b1", 1, 2, 3, 10)
	after := holeRef("a1", 2, 3, 3, 14)
	require.NoError(t, s.AddPairing(pairingOf(&before, &after)))
	s.SetSmallHoleFate(holeRef("b1", 9, 1, 1, 2), hole.FateAbsorbed, s.Pairings[0].PairingID)

	doc := FromStore(st)
	require.Len(t, doc.Sessions, 1)

	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, doc.Save(path))

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Version, loaded.Version)
	require.Len(t, loaded.Sessions, 1)

	got, ok := loaded.SessionByID("b1::a1")
	require.True(t, ok)
	assert.Equal(t, s.SessionID, got.SessionID)
	require.Len(t, got.Pairings, 1)
	assert.Equal(t, s.Pairings[0].PairingID, got.Pairings[0].PairingID)
	require.Len(t, got.Fates, 1)
	assert.Equal(t, hole.FateAbsorbed, got.Fates[0].Fate)

	// Sessions from a loaded document slot back into a store.
	restored := loaded.PopulateStore()
	sess, ok := restored.Get("b1", "a1")
	require.True(t, ok)
	assert.Equal(t, "b1::a1", sess.SessionID)
}

func TestLoadDocumentMissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
