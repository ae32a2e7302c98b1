package content

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(zerolog.New(io.Discard))
}

func TestAddAssignsIDAndKeepsOrder(t *testing.T) {
	store := newTestStore()

	first, err := store.Add(Entry{Word: "Sjukhus", Phoneme: "sj", Language: "sv-SE"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := store.Add(Entry{ID: "fixed", Word: "Tjugo", Phoneme: "tj", Language: "sv-SE"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second.ID)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, "fixed", all[1].ID)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	store := newTestStore()
	_, err := store.Add(Entry{ID: "a", Word: "Katt"})
	require.NoError(t, err)

	_, err = store.Add(Entry{ID: "a", Word: "Hund"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, store.Len())
}

func TestDistractorsExcludeTargetAndDuplicates(t *testing.T) {
	store := newTestStore()
	added, err := store.Add(Entry{
		Word:        "Sjukhus",
		Phoneme:     "sj",
		Distractors: []string{"tj", "sj", "rs", "tj", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tj", "rs"}, added.Distractors)

	added.Distractors = []string{"sj", "ng", "ng"}
	require.NoError(t, store.Update(added))
	got, ok := store.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"ng"}, got.Distractors)
}

func TestHighlightMustBeSubstring(t *testing.T) {
	store := newTestStore()
	_, err := store.Add(Entry{Word: "Sjukhus", Highlight: "tj"})
	assert.Error(t, err)

	_, err = store.Add(Entry{Word: "Sjukhus", Highlight: "Sj"})
	assert.NoError(t, err)
}

func TestUpdateUnknownIDFails(t *testing.T) {
	store := newTestStore()
	err := store.Update(Entry{ID: "ghost", Word: "Katt"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsLenient(t *testing.T) {
	store := newTestStore()
	added, err := store.Add(Entry{Word: "Katt"})
	require.NoError(t, err)

	store.Delete("never-existed") // must not error or disturb the store
	assert.Equal(t, 1, store.Len())

	store.Delete(added.ID)
	assert.Equal(t, 0, store.Len())
	store.Delete(added.ID) // idempotent
}

func TestFilters(t *testing.T) {
	store := newTestStore()
	sv, _ := store.Add(Entry{Word: "Sjukhus", Language: "sv-SE", Audio: []byte{1, 2}})
	ru, _ := store.Add(Entry{Word: "Кошка", Language: "ru-RU"})
	sv2, _ := store.Add(Entry{Word: "Tjugo", Language: "sv-SE"})

	svEntries := store.FilterByLanguage("sv-SE")
	require.Len(t, svEntries, 2)
	assert.Equal(t, sv.ID, svEntries[0].ID)
	assert.Equal(t, sv2.ID, svEntries[1].ID)

	picked := store.FilterByIDs([]string{ru.ID, sv.ID})
	require.Len(t, picked, 2)

	eligible := store.WithAudio("sv-SE")
	require.Len(t, eligible, 1)
	assert.Equal(t, sv.ID, eligible[0].ID)
}

func TestReplaceIsAllOrNothing(t *testing.T) {
	store := newTestStore()
	_, err := store.Add(Entry{ID: "keep", Word: "Katt"})
	require.NoError(t, err)

	err = store.Replace([]Entry{
		{ID: "x", Word: "Hund"},
		{ID: "x", Word: "Duplicate"},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// Original state survives the failed replace.
	_, ok := store.Get("keep")
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Replace([]Entry{{ID: "x", Word: "Hund"}}))
	assert.Equal(t, 1, store.Len())
	_, ok = store.Get("keep")
	assert.False(t, ok)
}

func TestParseBracketed(t *testing.T) {
	p := ParseBracketed("[Skj]orta")
	assert.Equal(t, Parsed{FullWord: "Skjorta", Prefix: "", Highlight: "Skj", Suffix: "orta"}, p)

	p = ParseBracketed("Du[sch]")
	assert.Equal(t, Parsed{FullWord: "Dusch", Prefix: "Du", Highlight: "sch", Suffix: ""}, p)

	p = ParseBracketed("Katt")
	assert.Equal(t, Parsed{FullWord: "Katt", Prefix: "Katt"}, p)
}

func TestStripBrackets(t *testing.T) {
	assert.Equal(t, "Skjorta", StripBrackets("[Skj]orta"))
	assert.Equal(t, "Dusch", StripBrackets(" Du[sch] "))
}
