package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mlindgren/uttala/internal/db"
)

type mockResultStore struct {
	mock.Mock
}

func (m *mockResultStore) InsertLessonResult(ctx context.Context, arg db.InsertLessonResultParams) (db.LessonResult, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.LessonResult), args.Error(1)
}

func (m *mockResultStore) GetLessonResultBySession(ctx context.Context, sessionID pgtype.UUID) (db.LessonResult, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(db.LessonResult), args.Error(1)
}

func (m *mockResultStore) ListRecentLessonResults(ctx context.Context, limit int32) ([]db.LessonResult, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]db.LessonResult), args.Error(1)
}

func (m *mockResultStore) ListLessonResultsForPlayer(ctx context.Context, player string, limit int32) ([]db.LessonResult, error) {
	args := m.Called(ctx, player, limit)
	return args.Get(0).([]db.LessonResult), args.Error(1)
}

func TestResultRepository_Create(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)

	params := db.InsertLessonResultParams{
		SessionID:     uuidFromByte(1),
		PlanID:        "plan-1",
		Player:        "Stina",
		TotalScore:    12,
		ExerciseCount: 3,
	}
	expect := db.LessonResult{ID: uuidFromByte(2), SessionID: params.SessionID, TotalScore: 12}
	store.On("InsertLessonResult", mock.Anything, params).Return(expect, nil)

	got, err := repo.Create(context.Background(), params)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}

func TestResultRepository_ListRecent(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)

	expect := []db.LessonResult{{ID: uuidFromByte(3), Player: "Stina"}}
	store.On("ListRecentLessonResults", mock.Anything, int32(10)).Return(expect, nil)

	got, err := repo.ListRecent(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}

func TestResultRepository_ListForPlayer(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)

	expect := []db.LessonResult{{ID: uuidFromByte(4), Player: "Stina"}}
	store.On("ListLessonResultsForPlayer", mock.Anything, "Stina", int32(5)).Return(expect, nil)

	got, err := repo.ListForPlayer(context.Background(), "Stina", 5)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}
