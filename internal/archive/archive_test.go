package archive

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

func newTestCodec() *Codec {
	return NewCodec(zerolog.New(io.Discard))
}

func sampleEntries() []content.Entry {
	return []content.Entry{
		{
			ID:          "w1",
			Word:        "Sjukhus",
			Highlight:   "Sj",
			Phoneme:     "sj",
			Distractors: []string{"tj", "rs"},
			Image:       "🏥",
			Category:    "places",
			Language:    "sv-SE",
			Audio:       []byte{0x1f, 0x8b, 0x00, 0xff},
		},
		{
			ID:          "w2",
			Word:        "Tjugo",
			Phoneme:     "tj",
			Distractors: []string{},
			Image:       "2️⃣",
			Category:    "numbers",
			Language:    "sv-SE",
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	codec := newTestCodec()
	entries := sampleEntries()
	plan := lesson.Plan{
		{ID: "ex1", Type: lesson.TypeMatching, WordIDs: []string{"w1", "w2"}, Difficulty: lesson.DifficultyLevel3},
		{ID: "ex2", Type: lesson.TypePhoneme, WordIDs: []string{"w1"}},
	}

	data, err := codec.Export(entries, plan)
	require.NoError(t, err)

	doc, err := codec.Import(data)
	require.NoError(t, err)
	require.Len(t, doc.Content, 2)
	assert.Equal(t, entries[0], doc.Content[0])
	assert.Equal(t, entries[1], doc.Content[1])
	assert.Equal(t, plan, doc.Plan)
}

func TestExportDocumentShape(t *testing.T) {
	codec := newTestCodec()
	data, err := codec.Export(sampleEntries(), nil)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, "2", string(raw["version"]))
	require.Contains(t, raw, "content")
	require.Contains(t, raw, "lessonPlan")
	assert.JSONEq(t, "[]", string(raw["lessonPlan"]))

	var records []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["content"], &records))
	require.Len(t, records, 2)
	// Audio is base64 text, never raw bytes; absent audio serializes as null.
	expected := base64.StdEncoding.EncodeToString([]byte{0x1f, 0x8b, 0x00, 0xff})
	assert.JSONEq(t, `"`+expected+`"`, string(records[0]["audioBase64"]))
	assert.JSONEq(t, "null", string(records[1]["audioBase64"]))
	assert.JSONEq(t, `"sj"`, string(records[0]["phonemeDisplay"]))
}

func TestExportEmptyRejected(t *testing.T) {
	codec := newTestCodec()
	_, err := codec.Export(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyExport)

	// A plan alone is exportable.
	_, err = codec.Export(nil, lesson.Plan{{ID: "ex1", Type: lesson.TypePhoneme}})
	assert.NoError(t, err)
}

func TestImportLegacyBareArray(t *testing.T) {
	codec := newTestCodec()
	legacy := `[
		{"word": "Katt", "image": "🐱"},
		{"id": "w9", "word": "Hund", "phonemeDisplay": "h", "category": "animals"}
	]`

	doc, err := codec.Import([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, doc.Content, 2)
	require.NotNil(t, doc.Plan)
	assert.Empty(t, doc.Plan)

	// Legacy defaults.
	assert.NotEmpty(t, doc.Content[0].ID)
	assert.Equal(t, "?", doc.Content[0].Phoneme)
	assert.Equal(t, "custom", doc.Content[0].Category)
	assert.Equal(t, "w9", doc.Content[1].ID)
	assert.Equal(t, "animals", doc.Content[1].Category)
}

func TestImportMalformed(t *testing.T) {
	codec := newTestCodec()

	for _, input := range []string{"", "not json at all", `"just a string"`, `{"version": 2}`} {
		_, err := codec.Import([]byte(input))
		assert.ErrorIs(t, err, ErrMalformedDocument, "input %q", input)
	}
}

func TestImportSkipsWordlessRecords(t *testing.T) {
	codec := newTestCodec()
	doc, err := codec.Import([]byte(`[{"id": "a"}, {"id": "b", "word": "Hund"}]`))
	require.NoError(t, err)
	require.Len(t, doc.Content, 1)
	assert.Equal(t, "Hund", doc.Content[0].Word)
}

func TestImportAllRejectedFails(t *testing.T) {
	codec := newTestCodec()
	_, err := codec.Import([]byte(`[{"id": "a"}, {"image": "🐱"}]`))
	assert.ErrorIs(t, err, ErrNoRecoverableRecords)
}

func TestImportResolvesIDCollisions(t *testing.T) {
	codec := newTestCodec()
	doc, err := codec.Import([]byte(`[
		{"id": "same", "word": "Katt"},
		{"id": "same", "word": "Hund"},
		{"word": "Mus"}
	]`))
	require.NoError(t, err)
	require.Len(t, doc.Content, 3)

	ids := map[string]bool{}
	for _, e := range doc.Content {
		assert.NotEmpty(t, e.ID)
		assert.False(t, ids[e.ID], "ids must be unique after import")
		ids[e.ID] = true
	}
	assert.Equal(t, "same", doc.Content[0].ID, "first holder keeps the id")
}

func TestImportBadAudioIsRecoverable(t *testing.T) {
	codec := newTestCodec()
	entries := make([]content.Entry, 5)
	for i := range entries {
		entries[i] = content.Entry{
			ID:      string(rune('a' + i)),
			Word:    "Ord",
			Phoneme: "o",
			Audio:   []byte{byte(i), 1, 2},
		}
	}
	data, err := codec.Export(entries, nil)
	require.NoError(t, err)

	// Corrupt the third record's audio in the serialized document.
	var doc envelope
	require.NoError(t, json.Unmarshal(data, &doc))
	bad := "%%%not-base64%%%"
	doc.Content[2].AudioBase64 = &bad
	data, err = json.Marshal(doc)
	require.NoError(t, err)

	restored, err := codec.Import(data)
	require.NoError(t, err, "one bad clip must not fail the import")
	require.Len(t, restored.Content, 5)
	for i, e := range restored.Content {
		if i == 2 {
			assert.False(t, e.HasAudio(), "corrupted clip becomes missing audio")
		} else {
			assert.Equal(t, entries[i].Audio, e.Audio)
		}
	}
}

func TestImportVersionedWithPlan(t *testing.T) {
	codec := newTestCodec()
	input := `{
		"version": 2,
		"content": [{"id": "w1", "word": "Sjukhus", "phonemeDisplay": "sj", "language": "sv-SE"}],
		"lessonPlan": [{"id": "ex1", "type": "SPELLING", "wordIds": ["w1"], "difficulty": "LEVEL_2"}]
	}`

	doc, err := codec.Import([]byte(input))
	require.NoError(t, err)
	require.Len(t, doc.Plan, 1)
	assert.Equal(t, lesson.TypeSpelling, doc.Plan[0].Type)
	assert.Equal(t, lesson.DifficultyLevel2, doc.Plan[0].Difficulty)
}

func TestDefaultFilename(t *testing.T) {
	ts := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "trainer-db-2026-08-31.json", DefaultFilename(ts))
}
