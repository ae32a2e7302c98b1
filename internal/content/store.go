package content

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound signals an update referencing an unknown entry id.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicateID signals an insert with an id already present.
	ErrDuplicateID = errors.New("entry id already exists")
	// ErrInvalidEntry signals an entry that fails basic validation.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrInvalidHighlight signals a highlight that is not part of its word.
	ErrInvalidHighlight = errors.New("highlight is not a substring of word")
)

// Store holds the in-memory content collection. Entries are kept in insertion
// order and addressed by id. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*Entry
	order  []string
	logger zerolog.Logger
}

// NewStore creates an empty content store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		byID:   make(map[string]*Entry),
		logger: logger.With().Str("component", "content").Logger(),
	}
}

// Add appends a new entry, assigning a fresh id when none is supplied.
// The stored entry is returned with its final id.
func (s *Store) Add(e Entry) (Entry, error) {
	if err := validate(&e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Distractors = normalizeDistractors(e.Distractors, e.Phoneme)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[e.ID]; exists {
		return Entry{}, fmt.Errorf("add %q: %w", e.ID, ErrDuplicateID)
	}
	stored := e
	s.byID[e.ID] = &stored
	s.order = append(s.order, e.ID)
	return stored, nil
}

// Update replaces the entry with a matching id.
func (s *Store) Update(e Entry) error {
	if err := validate(&e); err != nil {
		return err
	}
	e.Distractors = normalizeDistractors(e.Distractors, e.Phoneme)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[e.ID]; !exists {
		return fmt.Errorf("update %q: %w", e.ID, ErrNotFound)
	}
	stored := e
	s.byID[e.ID] = &stored
	return nil
}

// Delete removes the entry with a matching id. A missing id is logged and
// otherwise ignored; callers that care should check existence first.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[id]; !exists {
		s.logger.Warn().Str("entry_id", id).Msg("delete of unknown entry ignored")
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// FilterByLanguage returns entries whose language tag equals lang.
func (s *Store) FilterByLanguage(lang string) []Entry {
	return s.filter(func(e *Entry) bool { return e.Language == lang })
}

// FilterByIDs returns entries whose id is in ids, in store order.
func (s *Store) FilterByIDs(ids []string) []Entry {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.filter(func(e *Entry) bool {
		_, ok := want[e.ID]
		return ok
	})
}

// WithAudio returns entries that carry a recorded clip, optionally scoped to a
// language. This is the eligible pool for quick-start and randomized rounds.
func (s *Store) WithAudio(lang string) []Entry {
	return s.filter(func(e *Entry) bool {
		if lang != "" && e.Language != lang {
			return false
		}
		return e.HasAudio()
	})
}

// Replace swaps the whole collection for imported entries. The previous state
// is untouched if any entry fails validation or duplicates an id.
func (s *Store) Replace(entries []Entry) error {
	byID := make(map[string]*Entry, len(entries))
	order := make([]string, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if err := validate(&e); err != nil {
			return fmt.Errorf("entry %q: %w", e.ID, err)
		}
		if _, dup := byID[e.ID]; dup {
			return fmt.Errorf("replace %q: %w", e.ID, ErrDuplicateID)
		}
		e.Distractors = normalizeDistractors(e.Distractors, e.Phoneme)
		byID[e.ID] = &e
		order = append(order, e.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = byID
	s.order = order
	return nil
}

func (s *Store) filter(keep func(*Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, id := range s.order {
		if e := s.byID[id]; keep(e) {
			out = append(out, *e)
		}
	}
	return out
}

func validate(e *Entry) error {
	if strings.TrimSpace(e.Word) == "" {
		return fmt.Errorf("%w: word must not be empty", ErrInvalidEntry)
	}
	if e.Highlight != "" && !strings.Contains(e.Word, e.Highlight) {
		return fmt.Errorf("highlight %q in word %q: %w", e.Highlight, e.Word, ErrInvalidHighlight)
	}
	return nil
}
