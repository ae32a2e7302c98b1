package lesson

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindgren/uttala/internal/content"
)

func TestAddExerciseDefaults(t *testing.T) {
	var plan Plan

	matching, err := plan.AddExercise(TypeMatching)
	require.NoError(t, err)
	assert.Equal(t, DifficultyLevel1, matching.Difficulty)
	assert.Empty(t, matching.WordIDs)

	phoneme, err := plan.AddExercise(TypePhoneme)
	require.NoError(t, err)
	assert.Equal(t, Difficulty(""), phoneme.Difficulty)

	_, err = plan.AddExercise(ExerciseType("KARAOKE"))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Len(t, plan, 2)
}

func TestReorderBoundaries(t *testing.T) {
	var plan Plan
	a, _ := plan.AddExercise(TypePhoneme)
	b, _ := plan.AddExercise(TypeMatching)
	c, _ := plan.AddExercise(TypeSpelling)

	plan.MoveUp(0) // no-op: first can't move up
	assert.Equal(t, a.ID, plan[0].ID)

	plan.MoveDown(2) // no-op: last can't move down
	assert.Equal(t, c.ID, plan[2].ID)

	plan.MoveUp(2)
	assert.Equal(t, []string{a.ID, c.ID, b.ID}, []string{plan[0].ID, plan[1].ID, plan[2].ID})

	plan.MoveDown(0)
	assert.Equal(t, c.ID, plan[0].ID)
}

func TestSetWordSelection(t *testing.T) {
	var plan Plan
	ex, _ := plan.AddExercise(TypeSpelling)

	require.NoError(t, plan.SetWordSelection(ex.ID, []string{"w1", "w2"}))
	assert.Equal(t, []string{"w1", "w2"}, plan[0].WordIDs)

	err := plan.SetWordSelection("ghost", []string{"w1"})
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestRandomizeSelection(t *testing.T) {
	pool := make([]content.Entry, 10)
	for i := range pool {
		pool[i] = content.Entry{ID: string(rune('a' + i)), Word: "w", Audio: []byte{1}}
	}

	var plan Plan
	ex, _ := plan.AddExercise(TypeMatching)
	rng := rand.New(rand.NewSource(7))

	require.NoError(t, plan.RandomizeSelection(ex.ID, 6, pool, rng))
	require.Len(t, plan[0].WordIDs, 6)

	seen := map[string]bool{}
	for _, id := range plan[0].WordIDs {
		assert.False(t, seen[id], "selection must be without replacement")
		seen[id] = true
	}

	// Pool smaller than count: take the whole pool.
	require.NoError(t, plan.RandomizeSelection(ex.ID, 20, pool[:3], rng))
	assert.Len(t, plan[0].WordIDs, 3)
}

func TestValidateForStart(t *testing.T) {
	var plan Plan
	assert.ErrorIs(t, plan.ValidateForStart(), ErrEmptyPlan)

	full, _ := plan.AddExercise(TypePhoneme)
	empty, _ := plan.AddExercise(TypeMatching)
	require.NoError(t, plan.SetWordSelection(full.ID, []string{"w1"}))

	err := plan.ValidateForStart()
	var emptyRound *EmptyRoundError
	require.ErrorAs(t, err, &emptyRound)
	assert.Equal(t, []string{empty.ID}, emptyRound.ExerciseIDs)

	require.NoError(t, plan.SetWordSelection(empty.ID, []string{"w2"}))
	assert.NoError(t, plan.ValidateForStart())
}

func TestCloneIsIndependent(t *testing.T) {
	var plan Plan
	ex, _ := plan.AddExercise(TypeSpelling)
	require.NoError(t, plan.SetWordSelection(ex.ID, []string{"w1"}))

	snapshot := plan.Clone()
	require.NoError(t, plan.SetWordSelection(ex.ID, []string{"w1", "w2"}))

	assert.Equal(t, []string{"w1"}, snapshot[0].WordIDs)
}
