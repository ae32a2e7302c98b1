package lesson

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/mlindgren/uttala/internal/content"
)

// ExerciseType identifies one of the trainer's mini-games.
type ExerciseType string

const (
	TypePhoneme  ExerciseType = "PHONEME"
	TypeMatching ExerciseType = "MATCHING"
	TypeSpelling ExerciseType = "SPELLING"
)

// Difficulty tiers. Matching uses all three, spelling the first two, phoneme none.
type Difficulty string

const (
	DifficultyLevel1 Difficulty = "LEVEL_1"
	DifficultyLevel2 Difficulty = "LEVEL_2"
	DifficultyLevel3 Difficulty = "LEVEL_3"
)

// ExerciseConfig is one round within a lesson: a game type, a difficulty tier
// and the entry ids it may draw from.
type ExerciseConfig struct {
	ID         string       `json:"id"`
	Type       ExerciseType `json:"type"`
	WordIDs    []string     `json:"wordIds"`
	Difficulty Difficulty   `json:"difficulty,omitempty"`
}

// Plan is an ordered sequence of exercises, executed in list order.
type Plan []ExerciseConfig

var (
	// ErrEmptyPlan is returned when starting a plan with zero exercises.
	ErrEmptyPlan = errors.New("lesson plan has no exercises")
	// ErrExerciseNotFound signals an edit referencing an unknown exercise id.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrUnknownType signals an exercise type outside the supported set.
	ErrUnknownType = errors.New("unknown exercise type")
)

// EmptyRoundError names the exercises that have no words selected.
type EmptyRoundError struct {
	ExerciseIDs []string
}

func (e *EmptyRoundError) Error() string {
	return fmt.Sprintf("exercises without words: %s", strings.Join(e.ExerciseIDs, ", "))
}

// ValidType reports whether t is one of the supported exercise types.
func ValidType(t ExerciseType) bool {
	switch t {
	case TypePhoneme, TypeMatching, TypeSpelling:
		return true
	}
	return false
}

// DefaultDifficulty returns the tier a freshly added exercise starts at.
// Phoneme rounds have no difficulty.
func DefaultDifficulty(t ExerciseType) Difficulty {
	switch t {
	case TypeMatching, TypeSpelling:
		return DifficultyLevel1
	default:
		return ""
	}
}

// DefaultRandomCount is the word count the randomize shortcut picks per type.
func DefaultRandomCount(t ExerciseType) int {
	if t == TypeMatching {
		return 6
	}
	return 5
}

// AddExercise appends a new empty round of the given type and returns it.
func (p *Plan) AddExercise(t ExerciseType) (ExerciseConfig, error) {
	if !ValidType(t) {
		return ExerciseConfig{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	cfg := ExerciseConfig{
		ID:         uuid.NewString(),
		Type:       t,
		WordIDs:    []string{},
		Difficulty: DefaultDifficulty(t),
	}
	*p = append(*p, cfg)
	return cfg, nil
}

// RemoveExercise deletes the round with the given id.
func (p *Plan) RemoveExercise(id string) error {
	for i, cfg := range *p {
		if cfg.ID == id {
			*p = append((*p)[:i], (*p)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove %q: %w", id, ErrExerciseNotFound)
}

// MoveUp swaps the exercise at index with its predecessor. The first element
// stays put.
func (p Plan) MoveUp(index int) {
	if index <= 0 || index >= len(p) {
		return
	}
	p[index-1], p[index] = p[index], p[index-1]
}

// MoveDown swaps the exercise at index with its successor. The last element
// stays put.
func (p Plan) MoveDown(index int) {
	if index < 0 || index >= len(p)-1 {
		return
	}
	p[index], p[index+1] = p[index+1], p[index]
}

// SetWordSelection replaces the word selection of one round. Ids are not
// checked against the store here; that happens at lesson start.
func (p Plan) SetWordSelection(exerciseID string, wordIDs []string) error {
	cfg := p.find(exerciseID)
	if cfg == nil {
		return fmt.Errorf("select words for %q: %w", exerciseID, ErrExerciseNotFound)
	}
	cfg.WordIDs = append([]string(nil), wordIDs...)
	return nil
}

// SetDifficulty changes the tier of one round.
func (p Plan) SetDifficulty(exerciseID string, d Difficulty) error {
	cfg := p.find(exerciseID)
	if cfg == nil {
		return fmt.Errorf("set difficulty for %q: %w", exerciseID, ErrExerciseNotFound)
	}
	cfg.Difficulty = d
	return nil
}

// RandomizeSelection draws count entries uniformly without replacement from
// the eligible pool. A pool smaller than count is taken whole.
func (p Plan) RandomizeSelection(exerciseID string, count int, pool []content.Entry, rng *rand.Rand) error {
	cfg := p.find(exerciseID)
	if cfg == nil {
		return fmt.Errorf("randomize %q: %w", exerciseID, ErrExerciseNotFound)
	}
	if count > len(pool) {
		count = len(pool)
	}
	ids := make([]string, 0, count)
	for _, idx := range rng.Perm(len(pool))[:count] {
		ids = append(ids, pool[idx].ID)
	}
	cfg.WordIDs = ids
	return nil
}

// ValidateForStart checks the plan is playable: at least one exercise, and no
// exercise without words. Violations are reported before anything starts.
func (p Plan) ValidateForStart() error {
	if len(p) == 0 {
		return ErrEmptyPlan
	}
	var empty []string
	for _, cfg := range p {
		if len(cfg.WordIDs) == 0 {
			empty = append(empty, cfg.ID)
		}
	}
	if len(empty) > 0 {
		return &EmptyRoundError{ExerciseIDs: empty}
	}
	return nil
}

// Clone returns a deep copy so a running lesson is immune to later edits.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	for i, cfg := range p {
		out[i] = cfg
		out[i].WordIDs = append([]string(nil), cfg.WordIDs...)
	}
	return out
}

func (p Plan) find(exerciseID string) *ExerciseConfig {
	for i := range p {
		if p[i].ID == exerciseID {
			return &p[i]
		}
	}
	return nil
}
