package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindgren/uttala/internal/lesson"
)

// playMatching answers every target correctly until the round completes and
// returns the number of turns played.
func playMatching(t *testing.T, r *MatchingRound) int {
	t.Helper()
	turns := 0
	for !r.Done() {
		turns++
		res, err := r.Choose(r.Target().ID)
		require.NoError(t, err)
		require.True(t, res.Correct)
		require.NoError(t, r.AdvanceTurn())
	}
	return turns
}

func TestMatchingLevel1VisitsEveryCellOnce(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(6, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)
	require.Len(t, r.Cells(), 6)

	seen := map[string]int{}
	for !r.Done() {
		target := r.Target()
		seen[target.ID]++
		res, err := r.Choose(target.ID)
		require.NoError(t, err)
		require.True(t, res.Correct)
		require.NoError(t, r.AdvanceTurn())
	}

	assert.Len(t, seen, 6, "every entry targeted")
	for id, n := range seen {
		assert.Equal(t, 1, n, "entry %s targeted once", id)
	}
	assert.Equal(t, 6, r.Score())
	for _, c := range r.Cells() {
		assert.True(t, c.Solved)
	}
}

func TestMatchingGridCapsAtSixCells(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(9, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)
	assert.Len(t, r.Cells(), GridSize)

	_, total := r.Progress()
	assert.Equal(t, GridSize, total)
}

func TestMatchingWrongPickMarksCellAndAllowsRetry(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(4, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)

	target := r.Target()
	var wrongID string
	for _, c := range r.Cells() {
		if c.Entry.ID != target.ID {
			wrongID = c.Entry.ID
			break
		}
	}

	res, err := r.Choose(wrongID)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, TurnPresented, r.State(), "turn stays open after a miss")
	assert.Equal(t, 0, r.Score())

	for _, c := range r.Cells() {
		if c.Entry.ID == wrongID {
			assert.True(t, c.Errored)
		}
	}

	// Replaying the prompt clears the error marks.
	clip := r.ReplayAudio()
	assert.Equal(t, target.Audio, clip)
	for _, c := range r.Cells() {
		assert.False(t, c.Errored)
	}

	res, err = r.Choose(target.ID)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, r.Score())
}

func TestMatchingLevel1RejectsSolvedCell(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(3, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)

	solved := r.Target().ID
	_, err = r.Choose(solved)
	require.NoError(t, err)
	require.NoError(t, r.AdvanceTurn())

	_, err = r.Choose(solved)
	assert.Error(t, err)
}

func TestMatchingLevel2KeepsCellsActive(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(4, "sj"), lesson.DifficultyLevel2, testOptions())
	require.NoError(t, err)

	first := r.Target().ID
	_, err = r.Choose(first)
	require.NoError(t, err)
	require.NoError(t, r.AdvanceTurn())

	for _, c := range r.Cells() {
		assert.False(t, c.Solved, "Level 2 never grays out cells")
	}
	// The already-answered cell is still clickable.
	if r.Target().ID != first {
		res, err := r.Choose(first)
		require.NoError(t, err)
		assert.False(t, res.Correct)
	}
}

func TestMatchingLevel3GoalScalesWithContent(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(20, "sj"), lesson.DifficultyLevel3, testOptions())
	require.NoError(t, err)
	require.Len(t, r.Cells(), GridSize)

	turns := playMatching(t, r)
	assert.Equal(t, 14, turns, "goal is entry count minus grid size")
	assert.Equal(t, 14, r.Score())
	assert.Len(t, r.Cells(), GridSize, "grid stays full while the pool lasts")
}

func TestMatchingLevel3MinimumGoal(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(4, "sj"), lesson.DifficultyLevel3, testOptions())
	require.NoError(t, err)
	require.Len(t, r.Cells(), 4)

	turns := playMatching(t, r)
	assert.Equal(t, GridSize, turns, "small sets still play at least six turns")
}

func TestMatchingLevel3SwapsSolvedCells(t *testing.T) {
	entries := makeEntries(12, "sj")
	r, err := NewMatchingRound(entries, lesson.DifficultyLevel3, testOptions())
	require.NoError(t, err)

	onGrid := func() map[string]bool {
		ids := map[string]bool{}
		for _, c := range r.Cells() {
			ids[c.Entry.ID] = true
		}
		return ids
	}

	before := onGrid()
	solved := r.Target().ID
	_, err = r.Choose(solved)
	require.NoError(t, err)
	require.NoError(t, r.AdvanceTurn())

	after := onGrid()
	assert.False(t, after[solved], "solved entry leaves the grid")
	assert.Len(t, after, GridSize)
	newcomers := 0
	for id := range after {
		if !before[id] {
			newcomers++
		}
	}
	assert.Equal(t, 1, newcomers, "exactly one pool entry joins")
}

func TestMatchingChooseUnknownEntry(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(3, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)

	_, err = r.Choose("not-on-grid")
	assert.Error(t, err)
}

func TestMatchingTurnProtocol(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(3, "sj"), lesson.DifficultyLevel1, testOptions())
	require.NoError(t, err)

	assert.ErrorIs(t, r.AdvanceTurn(), ErrTurnOpen)

	_, err = r.Choose(r.Target().ID)
	require.NoError(t, err)
	_, err = r.Choose(r.Target().ID)
	assert.ErrorIs(t, err, ErrTurnAnswered)

	playMatchingRest(t, r)
	_, err = r.Choose("w00")
	assert.ErrorIs(t, err, ErrRoundDone)
	assert.ErrorIs(t, r.AdvanceTurn(), ErrRoundDone)
}

func playMatchingRest(t *testing.T, r *MatchingRound) {
	t.Helper()
	for !r.Done() {
		if r.State() == TurnCorrect {
			require.NoError(t, r.AdvanceTurn())
			continue
		}
		_, err := r.Choose(r.Target().ID)
		require.NoError(t, err)
	}
}

func TestMatchingDefaultsToLevel1(t *testing.T) {
	r, err := NewMatchingRound(makeEntries(3, "sj"), "", testOptions())
	require.NoError(t, err)
	assert.Equal(t, lesson.DifficultyLevel1, r.Difficulty())
}

func TestMatchingRequiresContent(t *testing.T) {
	_, err := NewMatchingRound(nil, lesson.DifficultyLevel1, testOptions())
	assert.ErrorIs(t, err, ErrNoContent)
}
