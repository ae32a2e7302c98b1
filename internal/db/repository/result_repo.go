package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mlindgren/uttala/internal/db"
)

type resultStore interface {
	InsertLessonResult(ctx context.Context, arg db.InsertLessonResultParams) (db.LessonResult, error)
	GetLessonResultBySession(ctx context.Context, sessionID pgtype.UUID) (db.LessonResult, error)
	ListRecentLessonResults(ctx context.Context, limit int32) ([]db.LessonResult, error)
	ListLessonResultsForPlayer(ctx context.Context, player string, limit int32) ([]db.LessonResult, error)
}

// ResultRepository contains DB helpers for finished lesson runs.
type ResultRepository struct {
	store resultStore
}

// NewResultRepository constructs a new result repository.
func NewResultRepository(store resultStore) *ResultRepository {
	return &ResultRepository{store: store}
}

// Create persists a finished lesson row.
func (r *ResultRepository) Create(ctx context.Context, params db.InsertLessonResultParams) (db.LessonResult, error) {
	return r.store.InsertLessonResult(ctx, params)
}

// GetBySession fetches the result recorded for one session.
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (db.LessonResult, error) {
	var pgSessionID pgtype.UUID
	if err := pgSessionID.Scan(sessionID.String()); err != nil {
		return db.LessonResult{}, err
	}
	return r.store.GetLessonResultBySession(ctx, pgSessionID)
}

// ListRecent returns the latest finished lessons.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int32) ([]db.LessonResult, error) {
	return r.store.ListRecentLessonResults(ctx, limit)
}

// ListForPlayer returns one player's lesson history.
func (r *ResultRepository) ListForPlayer(ctx context.Context, player string, limit int32) ([]db.LessonResult, error) {
	return r.store.ListLessonResultsForPlayer(ctx, player, limit)
}
