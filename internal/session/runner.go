package session

import (
	"errors"
	"fmt"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// ErrExerciseRunning signals an advance while the current round is still open.
var ErrExerciseRunning = errors.New("current exercise not complete")

// ErrLessonDone signals input after the last exercise finished.
var ErrLessonDone = errors.New("lesson already complete")

// Resolver maps a plan's word ids onto live entries. Ids without an entry are
// silently dropped; the round constructors reject an empty result.
type Resolver func(wordIDs []string) []content.Entry

// Runner executes a lesson plan front to back: one round at a time, folding
// each round's score into the lesson total as it completes.
type Runner struct {
	plan    lesson.Plan
	resolve Resolver
	opts    Options

	index  int
	round  Round
	banked int
	done   bool
}

// NewRunner validates the plan, snapshots it against concurrent edits and
// mounts the first round.
func NewRunner(plan lesson.Plan, resolve Resolver, opts Options) (*Runner, error) {
	if err := plan.ValidateForStart(); err != nil {
		return nil, err
	}
	r := &Runner{
		plan:    plan.Clone(),
		resolve: resolve,
		opts:    opts,
	}
	if err := r.mount(); err != nil {
		return nil, err
	}
	return r, nil
}

// RestoreRunner rebuilds a run from a resume point: completed exercises keep
// their banked score and the exercise at index starts over.
func RestoreRunner(plan lesson.Plan, resolve Resolver, opts Options, index, banked int) (*Runner, error) {
	if err := plan.ValidateForStart(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(plan) {
		return nil, fmt.Errorf("resume index %d out of range", index)
	}
	r := &Runner{
		plan:    plan.Clone(),
		resolve: resolve,
		opts:    opts,
		index:   index,
		banked:  banked,
	}
	if err := r.mount(); err != nil {
		return nil, err
	}
	return r, nil
}

// Round is the currently running exercise, nil once the lesson is done.
func (r *Runner) Round() Round {
	return r.round
}

// Config is the plan entry behind the current round, zero once done.
func (r *Runner) Config() lesson.ExerciseConfig {
	if r.index >= len(r.plan) {
		return lesson.ExerciseConfig{}
	}
	return r.plan[r.index]
}

// Progress reports the current exercise position and the plan length.
func (r *Runner) Progress() (int, int) {
	return r.index, len(r.plan)
}

// Done reports whether every exercise in the plan has completed.
func (r *Runner) Done() bool { return r.done }

// TotalScore is the lesson-wide score: banked completed rounds plus the live
// round's points so far.
func (r *Runner) TotalScore() int {
	total := r.banked
	if r.round != nil {
		total += r.round.Score()
	}
	return total
}

// CompleteCurrent banks the finished round's score and mounts the next
// exercise. After the last one the runner is done and Round returns nil.
func (r *Runner) CompleteCurrent() error {
	if r.done {
		return ErrLessonDone
	}
	if !r.round.Done() {
		return ErrExerciseRunning
	}
	r.banked += r.round.Score()
	r.round = nil

	r.index++
	if r.index >= len(r.plan) {
		r.done = true
		return nil
	}
	return r.mount()
}

// Abort discards the live round. Banked scores from completed exercises are
// kept; the in-flight round contributes nothing.
func (r *Runner) Abort() {
	r.round = nil
	r.done = true
}

func (r *Runner) mount() error {
	cfg := r.plan[r.index]
	round, err := NewRound(cfg, r.resolve(cfg.WordIDs), r.opts)
	if err != nil {
		return fmt.Errorf("start exercise %q: %w", cfg.ID, err)
	}
	r.round = round
	return nil
}
