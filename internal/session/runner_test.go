package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

func resolverFor(entries []content.Entry) Resolver {
	byID := make(map[string]content.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return func(ids []string) []content.Entry {
		var out []content.Entry
		for _, id := range ids {
			if e, ok := byID[id]; ok {
				out = append(out, e)
			}
		}
		return out
	}
}

func idsOf(entries []content.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestRunnerSumsScoresAcrossExercises(t *testing.T) {
	entries := makeEntries(3, "sj")
	plan := lesson.Plan{
		{ID: "ex1", Type: lesson.TypePhoneme, WordIDs: idsOf(entries)},
		{ID: "ex2", Type: lesson.TypeSpelling, WordIDs: idsOf(entries[:2]), Difficulty: lesson.DifficultyLevel1},
	}
	run, err := NewRunner(plan, resolverFor(entries), testOptions())
	require.NoError(t, err)

	// Exercise 1: phoneme, all correct, 5 points.
	ph := run.Round().(*PhonemeRound)
	for !ph.Done() {
		guessRight(t, ph)
		if !ph.Done() {
			require.NoError(t, ph.Next())
		}
	}
	assert.Equal(t, 5, run.TotalScore())
	require.NoError(t, run.CompleteCurrent())

	// Exercise 2: spelling, both words first try, 4 points.
	sp := run.Round().(*SpellingRound)
	for i := 0; i < 2; i++ {
		_, err := sp.Submit(sp.Current().Word)
		require.NoError(t, err)
		require.NoError(t, sp.Next())
	}
	require.NoError(t, run.CompleteCurrent())

	assert.True(t, run.Done())
	assert.Nil(t, run.Round())
	assert.Equal(t, 9, run.TotalScore())
}

func TestRunnerRejectsAdvanceWhileRoundOpen(t *testing.T) {
	entries := makeEntries(2, "sj")
	plan := lesson.Plan{{ID: "ex1", Type: lesson.TypeSpelling, WordIDs: idsOf(entries)}}
	run, err := NewRunner(plan, resolverFor(entries), testOptions())
	require.NoError(t, err)

	assert.ErrorIs(t, run.CompleteCurrent(), ErrExerciseRunning)
}

func TestRunnerValidatesPlanUpFront(t *testing.T) {
	_, err := NewRunner(lesson.Plan{}, resolverFor(nil), testOptions())
	assert.ErrorIs(t, err, lesson.ErrEmptyPlan)

	plan := lesson.Plan{{ID: "ex1", Type: lesson.TypePhoneme, WordIDs: []string{}}}
	_, err = NewRunner(plan, resolverFor(nil), testOptions())
	var empty *lesson.EmptyRoundError
	assert.ErrorAs(t, err, &empty)
}

func TestRunnerSurfacesUnresolvableWords(t *testing.T) {
	plan := lesson.Plan{{ID: "ex1", Type: lesson.TypePhoneme, WordIDs: []string{"gone"}}}
	_, err := NewRunner(plan, resolverFor(nil), testOptions())
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestRunnerSnapshotsThePlan(t *testing.T) {
	entries := makeEntries(2, "sj")
	plan := lesson.Plan{{ID: "ex1", Type: lesson.TypePhoneme, WordIDs: idsOf(entries)}}
	run, err := NewRunner(plan, resolverFor(entries), testOptions())
	require.NoError(t, err)

	// Editing the source plan after start does not reach the run.
	plan[0].WordIDs[0] = "changed"
	assert.Equal(t, "w00", run.Config().WordIDs[0])
}

func TestRunnerAbortKeepsBankedScore(t *testing.T) {
	entries := makeEntries(2, "sj")
	plan := lesson.Plan{
		{ID: "ex1", Type: lesson.TypeSpelling, WordIDs: idsOf(entries)},
		{ID: "ex2", Type: lesson.TypeSpelling, WordIDs: idsOf(entries)},
	}
	run, err := NewRunner(plan, resolverFor(entries), testOptions())
	require.NoError(t, err)

	sp := run.Round().(*SpellingRound)
	for !sp.Done() {
		_, err := sp.Submit(sp.Current().Word)
		require.NoError(t, err)
		require.NoError(t, sp.Next())
	}
	require.NoError(t, run.CompleteCurrent())
	require.Equal(t, 4, run.TotalScore())

	run.Abort()
	assert.True(t, run.Done())
	assert.Nil(t, run.Round())
	assert.Equal(t, 4, run.TotalScore(), "the aborted round contributes nothing")
	assert.ErrorIs(t, run.CompleteCurrent(), ErrLessonDone)
}

func TestRunnerProgress(t *testing.T) {
	entries := makeEntries(2, "sj")
	plan := lesson.Plan{
		{ID: "ex1", Type: lesson.TypeSpelling, WordIDs: idsOf(entries)},
		{ID: "ex2", Type: lesson.TypePhoneme, WordIDs: idsOf(entries)},
	}
	run, err := NewRunner(plan, resolverFor(entries), testOptions())
	require.NoError(t, err)

	step, total := run.Progress()
	assert.Equal(t, 0, step)
	assert.Equal(t, 2, total)
	assert.Equal(t, "ex1", run.Config().ID)
}
