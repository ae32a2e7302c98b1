// Package archive converts the content store and lesson plan to and from the
// portable JSON library document, including the legacy bare-array format.
package archive

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// Version of the document format produced by Export.
const Version = 2

var (
	// ErrMalformedDocument signals unparseable JSON or an unrecognized shape.
	ErrMalformedDocument = errors.New("malformed library document")
	// ErrNoRecoverableRecords signals a non-empty input with zero valid records.
	ErrNoRecoverableRecords = errors.New("no recoverable records in document")
	// ErrEmptyExport signals an export with no content and no plan.
	ErrEmptyExport = errors.New("nothing to export")
)

// Document is the parsed result of an import. Plan is never nil.
type Document struct {
	Content []content.Entry
	Plan    lesson.Plan
}

type record struct {
	ID          string   `json:"id"`
	Word        string   `json:"word"`
	Highlight   string   `json:"highlight"`
	Phoneme     string   `json:"phonemeDisplay"`
	Distractors []string `json:"distractors"`
	Image       string   `json:"image"`
	IsImageFile bool     `json:"isImageFile"`
	Category    string   `json:"category"`
	Language    string   `json:"language"`
	AudioBase64 *string  `json:"audioBase64"`
}

type envelope struct {
	Version    int                     `json:"version"`
	Content    []record                `json:"content"`
	LessonPlan []lesson.ExerciseConfig `json:"lessonPlan"`
}

// Codec serializes and restores library documents.
type Codec struct {
	logger zerolog.Logger
}

// NewCodec creates a codec logging recoverable import conditions.
func NewCodec(logger zerolog.Logger) *Codec {
	return &Codec{logger: logger.With().Str("component", "archive").Logger()}
}

// Export produces the versioned document. Audio clips are base64-encoded;
// entries without audio serialize audioBase64 as null.
func (c *Codec) Export(entries []content.Entry, plan lesson.Plan) ([]byte, error) {
	if len(entries) == 0 && len(plan) == 0 {
		return nil, ErrEmptyExport
	}

	doc := envelope{
		Version:    Version,
		Content:    make([]record, 0, len(entries)),
		LessonPlan: plan,
	}
	if doc.LessonPlan == nil {
		doc.LessonPlan = lesson.Plan{}
	}

	for _, e := range entries {
		rec := record{
			ID:          e.ID,
			Word:        e.Word,
			Highlight:   e.Highlight,
			Phoneme:     e.Phoneme,
			Distractors: e.Distractors,
			Image:       e.Image,
			IsImageFile: e.IsImageFile,
			Category:    e.Category,
			Language:    e.Language,
		}
		if rec.Distractors == nil {
			rec.Distractors = []string{}
		}
		if e.HasAudio() {
			encoded := base64.StdEncoding.EncodeToString(e.Audio)
			rec.AudioBase64 = &encoded
		}
		doc.Content = append(doc.Content, rec)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Import restores a document. Both the versioned envelope and the legacy bare
// content array are accepted. Individual bad records are skipped or repaired;
// only an unusable document as a whole fails.
func (c *Codec) Import(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}

	var (
		records []record
		plan    lesson.Plan
	)

	switch trimmed[0] {
	case '[':
		// Legacy format: bare content array, no plan, no version.
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	case '{':
		var doc envelope
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		if doc.Content == nil {
			return nil, fmt.Errorf("%w: missing content array", ErrMalformedDocument)
		}
		records = doc.Content
		plan = doc.LessonPlan
	default:
		return nil, fmt.Errorf("%w: unexpected top-level shape", ErrMalformedDocument)
	}

	entries := make([]content.Entry, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		entry, ok := c.restore(i, rec, seen)
		if !ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		entries = append(entries, entry)
	}

	if len(entries) == 0 && len(records) > 0 {
		return nil, ErrNoRecoverableRecords
	}

	if plan == nil {
		plan = lesson.Plan{}
	}
	return &Document{Content: entries, Plan: plan}, nil
}

// restore maps one raw record to an entry, repairing what it can. Returns
// false when the record is unusable and must be skipped.
func (c *Codec) restore(index int, rec record, seen map[string]struct{}) (content.Entry, bool) {
	if strings.TrimSpace(rec.Word) == "" {
		c.logger.Warn().Int("index", index).Msg("skipping record without word")
		return content.Entry{}, false
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, dup := seen[id]; dup {
		c.logger.Warn().Int("index", index).Str("entry_id", id).Msg("duplicate id in import batch, assigning fresh id")
		id = uuid.NewString()
	}

	phoneme := rec.Phoneme
	if phoneme == "" {
		phoneme = "?"
	}
	category := rec.Category
	if category == "" {
		category = "custom"
	}

	highlight := rec.Highlight
	if highlight != "" && !strings.Contains(rec.Word, highlight) {
		c.logger.Warn().Int("index", index).Str("word", rec.Word).Msg("dropping highlight not contained in word")
		highlight = ""
	}

	var audio []byte
	if rec.AudioBase64 != nil && *rec.AudioBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(*rec.AudioBase64)
		if err != nil {
			// Keep the record, just without sound.
			c.logger.Warn().Err(err).Str("word", rec.Word).Msg("audio decode failed, importing entry without audio")
		} else {
			audio = decoded
		}
	}

	return content.Entry{
		ID:          id,
		Word:        rec.Word,
		Highlight:   highlight,
		Phoneme:     phoneme,
		Distractors: rec.Distractors,
		Image:       rec.Image,
		IsImageFile: rec.IsImageFile,
		Audio:       audio,
		Category:    category,
		Language:    rec.Language,
	}, true
}

// DefaultFilename names an exported document after the export date.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("trainer-db-%s.json", now.Format("2006-01-02"))
}
