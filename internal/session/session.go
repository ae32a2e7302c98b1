// Package session drives single exercises and whole lessons: it owns the
// turn queues, per-variant state machines and scoring. Engines are pure state
// machines; they never sleep or touch a transport. Display delays are
// exported constants the caller schedules.
package session

import (
	"errors"
	"math/rand"
	"time"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// Display delays between a terminal turn state and the next turn. The
// transport owns the timers.
const (
	FeedbackDelay   = 1500 * time.Millisecond // correct-answer feedback before advancing
	CompletionDelay = 1000 * time.Millisecond // completion splash before onComplete
	AutoPlayDelay   = 500 * time.Millisecond  // spelling: delay before the clip auto-plays
)

var (
	// ErrNoContent signals a round started with an empty content subset.
	ErrNoContent = errors.New("round has no content")
	// ErrRoundDone signals input after the round reached its goal.
	ErrRoundDone = errors.New("round already complete")
	// ErrTurnAnswered signals a second guess within one answered turn.
	ErrTurnAnswered = errors.New("turn already answered")
	// ErrTurnOpen signals an advance before the turn reached a terminal state.
	ErrTurnOpen = errors.New("turn not answered yet")
)

// TurnState is the per-turn machine shared by the variants.
type TurnState int

const (
	TurnPresented TurnState = iota
	TurnCorrect
	TurnIncorrect
)

// Round is one running exercise, whatever its variant.
type Round interface {
	Type() lesson.ExerciseType
	Score() int
	Done() bool
	// Progress reports completed steps and the step total of this round.
	Progress() (step, total int)
}

// Options configures a round or lesson run.
type Options struct {
	// Rand drives every shuffle and sample. Defaults to a time-seeded
	// source; tests inject a fixed seed.
	Rand *rand.Rand
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// engine is the shared queue/cursor/score primitive under phoneme and
// spelling rounds.
type engine struct {
	queue  []content.Entry
	cursor int
	score  int
	wrap   bool
	done   bool
}

func newEngine(entries []content.Entry, rng *rand.Rand, wrap bool) *engine {
	return &engine{
		queue: shuffled(entries, rng),
		wrap:  wrap,
	}
}

func (e *engine) current() content.Entry {
	return e.queue[e.cursor]
}

func (e *engine) addScore(points int) {
	e.score += points
}

// advance moves to the next queue item. A wrapping queue cycles forever;
// otherwise the engine is done after the last item.
func (e *engine) advance() {
	if e.cursor < len(e.queue)-1 {
		e.cursor++
		return
	}
	if e.wrap {
		e.cursor = 0
		return
	}
	e.done = true
}

// shuffled returns a Fisher–Yates shuffled copy, leaving the input intact.
func shuffled(entries []content.Entry, rng *rand.Rand) []content.Entry {
	out := make([]content.Entry, len(entries))
	copy(out, entries)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// NewRound builds the engine for one exercise config over its resolved
// content subset.
func NewRound(cfg lesson.ExerciseConfig, entries []content.Entry, opts Options) (Round, error) {
	switch cfg.Type {
	case lesson.TypePhoneme:
		return NewPhonemeRound(entries, opts)
	case lesson.TypeMatching:
		return NewMatchingRound(entries, cfg.Difficulty, opts)
	case lesson.TypeSpelling:
		return NewSpellingRound(entries, cfg.Difficulty, opts)
	default:
		return nil, lesson.ErrUnknownType
	}
}
