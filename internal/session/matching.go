package session

import (
	"fmt"
	"math/rand"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// GridSize is the number of image cells a matching round shows at most.
const GridSize = 6

// Cell is one image position in the matching grid.
type Cell struct {
	Entry   content.Entry
	Solved  bool // Level 1 only: grayed out after being the target
	Errored bool // visually marked after a wrong click
}

// MatchingRound plays sound-to-image identification over a grid of up to six
// cells. Levels 1 and 2 walk a no-repeat permutation of the grid; Level 3
// keeps the grid fresh from an unused pool and targets at random.
type MatchingRound struct {
	difficulty lesson.Difficulty
	rng        *rand.Rand

	cells []Cell

	// Levels 1-2: fixed question permutation over the grid entries.
	queue  []content.Entry
	qIndex int

	// Level 3: dynamic pool and scaling goal.
	pool    []content.Entry
	goal    int
	correct int

	targetID string
	score    int
	state    TurnState
	done     bool
}

// NewMatchingRound sets up the grid for the requested difficulty. An empty
// difficulty runs as Level 1.
func NewMatchingRound(entries []content.Entry, difficulty lesson.Difficulty, opts Options) (*MatchingRound, error) {
	if len(entries) == 0 {
		return nil, ErrNoContent
	}
	if difficulty == "" {
		difficulty = lesson.DifficultyLevel1
	}
	rng := opts.rng()

	r := &MatchingRound{
		difficulty: difficulty,
		rng:        rng,
		state:      TurnPresented,
	}

	mixed := shuffled(entries, rng)
	if difficulty == lesson.DifficultyLevel3 {
		grid := mixed
		if len(grid) > GridSize {
			grid = mixed[:GridSize]
			r.pool = mixed[GridSize:]
		}
		for _, e := range grid {
			r.cells = append(r.cells, Cell{Entry: e})
		}
		r.goal = len(entries) - GridSize
		if r.goal < GridSize {
			r.goal = GridSize
		}
		r.targetID = r.cells[rng.Intn(len(r.cells))].Entry.ID
	} else {
		distinct := mixed
		if len(distinct) > GridSize {
			distinct = mixed[:GridSize]
		}
		for _, e := range shuffled(distinct, rng) {
			r.cells = append(r.cells, Cell{Entry: e})
		}
		r.queue = shuffled(distinct, rng)
		r.targetID = r.queue[0].ID
	}
	return r, nil
}

func (r *MatchingRound) Type() lesson.ExerciseType { return lesson.TypeMatching }

func (r *MatchingRound) Score() int { return r.score }

func (r *MatchingRound) Done() bool { return r.done }

// Progress reports answered questions against the round length.
func (r *MatchingRound) Progress() (int, int) {
	if r.difficulty == lesson.DifficultyLevel3 {
		return r.correct, r.goal
	}
	return r.qIndex, len(r.queue)
}

// Difficulty returns the tier this round runs at.
func (r *MatchingRound) Difficulty() lesson.Difficulty { return r.difficulty }

// State is the current turn's state.
func (r *MatchingRound) State() TurnState { return r.state }

// Cells returns the current grid for rendering.
func (r *MatchingRound) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Target is the entry the player must identify by ear this turn.
func (r *MatchingRound) Target() content.Entry {
	for _, c := range r.cells {
		if c.Entry.ID == r.targetID {
			return c.Entry
		}
	}
	// Target is always a grid member; reaching here is a bug.
	panic(fmt.Sprintf("matching target %q not on grid", r.targetID))
}

// ReplayAudio clears error marks and hands back the target clip, mirroring
// the player hitting the sound button again after a miss.
func (r *MatchingRound) ReplayAudio() []byte {
	for i := range r.cells {
		r.cells[i].Errored = false
	}
	return r.Target().Audio
}

// ChooseResult reports the outcome of one grid click.
type ChooseResult struct {
	Correct bool
	Audio   []byte // target clip, played as reinforcement on a correct pick
}

// Choose clicks the cell holding entryID. A wrong pick marks the cell
// errored and leaves the turn open for another try; a correct pick scores
// and waits for AdvanceTurn after the feedback delay.
func (r *MatchingRound) Choose(entryID string) (ChooseResult, error) {
	if r.done {
		return ChooseResult{}, ErrRoundDone
	}
	if r.state != TurnPresented {
		return ChooseResult{}, ErrTurnAnswered
	}

	idx := -1
	for i := range r.cells {
		if r.cells[i].Entry.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ChooseResult{}, fmt.Errorf("entry %q is not on the grid", entryID)
	}
	if r.difficulty == lesson.DifficultyLevel1 && r.cells[idx].Solved {
		return ChooseResult{}, fmt.Errorf("cell %q already solved", entryID)
	}

	if entryID != r.targetID {
		r.cells[idx].Errored = true
		return ChooseResult{Correct: false}, nil
	}

	for i := range r.cells {
		r.cells[i].Errored = false
	}
	r.state = TurnCorrect
	r.score++
	return ChooseResult{Correct: true, Audio: r.cells[idx].Entry.Audio}, nil
}

// AdvanceTurn finishes a correctly answered turn after the feedback delay:
// Level 1 grays out the solved cell, Level 3 swaps it for the next pool item
// and re-targets at random. The round completes when the permutation is
// exhausted (Levels 1-2) or the scaling goal is met (Level 3).
func (r *MatchingRound) AdvanceTurn() error {
	if r.done {
		return ErrRoundDone
	}
	if r.state != TurnCorrect {
		return ErrTurnOpen
	}
	r.state = TurnPresented

	if r.difficulty == lesson.DifficultyLevel3 {
		r.correct++
		if r.correct >= r.goal {
			r.done = true
			return nil
		}
		r.swapSolvedCell()
		r.targetID = r.cells[r.rng.Intn(len(r.cells))].Entry.ID
		return nil
	}

	if r.difficulty == lesson.DifficultyLevel1 {
		for i := range r.cells {
			if r.cells[i].Entry.ID == r.targetID {
				r.cells[i].Solved = true
			}
		}
	}
	r.qIndex++
	if r.qIndex >= len(r.queue) {
		r.done = true
		return nil
	}
	r.targetID = r.queue[r.qIndex].ID
	return nil
}

// swapSolvedCell replaces the just-solved cell with the next unused pool
// entry. An exhausted pool leaves the grid as-is.
func (r *MatchingRound) swapSolvedCell() {
	if len(r.pool) == 0 {
		return
	}
	next := r.pool[0]
	r.pool = r.pool[1:]
	for i := range r.cells {
		if r.cells[i].Entry.ID == r.targetID {
			r.cells[i] = Cell{Entry: next}
			return
		}
	}
}
