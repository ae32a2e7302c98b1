package trainer

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindgren/uttala/internal/archive"
	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
	"github.com/mlindgren/uttala/internal/trainer/ticket"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := zerolog.Nop()
	return NewService(
		content.NewStore(logger),
		archive.NewCodec(logger),
		nil, nil, nil, nil,
		ticket.NewManager(ticket.Config{Secret: []byte("test-secret")}),
		NewMetrics(prometheus.NewRegistry()),
		ServiceOptions{},
		logger,
	)
}

func seedWords(t *testing.T, svc *Service, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		e, err := svc.CreateWord(content.Entry{
			Word:    fmt.Sprintf("ord%02d", i),
			Phoneme: "sj",
			Image:   "🗣️",
			Audio:   []byte{byte(i + 1)},
		})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	return ids
}

func TestCreateWordAppliesDefaultLanguage(t *testing.T) {
	svc := newTestService(t)

	e, err := svc.CreateWord(content.Entry{Word: "Dusch"})
	require.NoError(t, err)
	assert.Equal(t, "sv-SE", e.Language)

	got, err := svc.Word(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dusch", got.Word)
}

func TestBusyRejectsLibraryEdits(t *testing.T) {
	svc := newTestService(t)
	svc.busy.Store(true)

	_, err := svc.CreateWord(content.Entry{Word: "Sju"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, svc.UpdateWord(content.Entry{ID: "x", Word: "Sju"}), ErrBusy)
	assert.ErrorIs(t, svc.DeleteWord("x"), ErrBusy)
}

func TestPlanLifecycle(t *testing.T) {
	svc := newTestService(t)
	ids := seedWords(t, svc, 5)

	rec := svc.CreatePlan("Monday group")
	require.NotEmpty(t, rec.ID)

	cfg, err := svc.AddExercise(rec.ID, lesson.TypePhoneme)
	require.NoError(t, err)
	require.NoError(t, svc.SetExerciseWords(rec.ID, cfg.ID, ids))

	got, err := svc.Plan(rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Exercises, 1)
	assert.Equal(t, ids, got.Exercises[0].WordIDs)

	require.NoError(t, svc.ValidatePlan(rec.ID))
	require.NoError(t, svc.DeletePlan(rec.ID))
	_, err = svc.Plan(rec.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestValidatePlanNamesEmptyExercises(t *testing.T) {
	svc := newTestService(t)
	rec := svc.CreatePlan("empty")

	assert.ErrorIs(t, svc.ValidatePlan(rec.ID), lesson.ErrEmptyPlan)

	cfg, err := svc.AddExercise(rec.ID, lesson.TypeSpelling)
	require.NoError(t, err)

	err = svc.ValidatePlan(rec.ID)
	var emptyRound *lesson.EmptyRoundError
	require.ErrorAs(t, err, &emptyRound)
	assert.Equal(t, []string{cfg.ID}, emptyRound.ExerciseIDs)
}

func TestPlanEditsOnUnknownPlan(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddExercise("missing", lesson.TypePhoneme)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.ErrorIs(t, svc.SetExerciseWords("missing", "e1", nil), ErrPlanNotFound)
	assert.ErrorIs(t, svc.DeletePlan("missing"), ErrPlanNotFound)
}

func TestStartLessonIssuesTicketAndResumesInMemory(t *testing.T) {
	svc := newTestService(t)
	ids := seedWords(t, svc, 5)

	rec := svc.CreatePlan("practice")
	cfg, err := svc.AddExercise(rec.ID, lesson.TypePhoneme)
	require.NoError(t, err)
	require.NoError(t, svc.SetExerciseWords(rec.ID, cfg.ID, ids))

	live, tkt, err := svc.StartLesson(context.Background(), rec.ID, "Alma", 42)
	require.NoError(t, err)
	require.NotEmpty(t, tkt)
	assert.Equal(t, int64(42), live.Seed)
	assert.NotNil(t, live.run.Round())

	found, err := svc.Session(live.ID)
	require.NoError(t, err)
	assert.Same(t, live, found)

	resumed, err := svc.ResumeLesson(context.Background(), tkt)
	require.NoError(t, err)
	assert.Same(t, live, resumed)
}

func TestStartLessonUnknownPlan(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.StartLesson(context.Background(), "missing", "", 0)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestAbortLessonForgetsSession(t *testing.T) {
	svc := newTestService(t)
	ids := seedWords(t, svc, 5)

	rec := svc.CreatePlan("practice")
	cfg, err := svc.AddExercise(rec.ID, lesson.TypePhoneme)
	require.NoError(t, err)
	require.NoError(t, svc.SetExerciseWords(rec.ID, cfg.ID, ids))

	live, _, err := svc.StartLesson(context.Background(), rec.ID, "", 7)
	require.NoError(t, err)

	svc.AbortLesson(context.Background(), live.ID)
	_, err = svc.Session(live.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ids := seedWords(t, svc, 3)

	rec := svc.CreatePlan("exported plan")
	cfg, err := svc.AddExercise(rec.ID, lesson.TypeSpelling)
	require.NoError(t, err)
	require.NoError(t, svc.SetExerciseWords(rec.ID, cfg.ID, ids))

	data, filename, err := svc.ExportLibrary(context.Background())
	require.NoError(t, err)
	assert.Contains(t, filename, "trainer-db-")

	fresh := newTestService(t)
	doc, err := fresh.ImportLibrary(context.Background(), data)
	require.NoError(t, err)
	assert.Len(t, doc.Content, 3)
	assert.Len(t, doc.Plan, 1)

	imported, err := fresh.Plan(ImportedPlanID)
	require.NoError(t, err)
	assert.Len(t, imported.Exercises, 1)
	assert.Equal(t, 3, len(fresh.Words("")))
}

func TestImportTooLarge(t *testing.T) {
	svc := newTestService(t)
	svc.opts.ImportMaxBytes = 4

	_, err := svc.ImportLibrary(context.Background(), []byte(`{"version":2}`))
	assert.ErrorIs(t, err, ErrImportTooLarge)
}

func TestRandomizeExerciseWordsDrawsFromAudioPool(t *testing.T) {
	svc := newTestService(t)
	ids := seedWords(t, svc, 8)

	// One entry without audio must never be drawn.
	silent, err := svc.CreateWord(content.Entry{Word: "Tyst"})
	require.NoError(t, err)

	rec := svc.CreatePlan("random")
	cfg, err := svc.AddExercise(rec.ID, lesson.TypeMatching)
	require.NoError(t, err)

	require.NoError(t, svc.RandomizeExerciseWords(rec.ID, cfg.ID, 0, ""))

	got, err := svc.Plan(rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Exercises[0].WordIDs, lesson.DefaultRandomCount(lesson.TypeMatching))
	assert.NotContains(t, got.Exercises[0].WordIDs, silent.ID)
	for _, id := range got.Exercises[0].WordIDs {
		assert.Contains(t, ids, id)
	}
}
