package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mlindgren/uttala/internal/db"
)

type archiveStore interface {
	InsertLibraryArchive(ctx context.Context, arg db.InsertLibraryArchiveParams) (db.LibraryArchive, error)
	GetLibraryArchive(ctx context.Context, id pgtype.UUID) (db.LibraryArchive, error)
	ListRecentLibraryArchives(ctx context.Context, limit int32) ([]db.LibraryArchive, error)
}

// ArchiveRepository stores exported library documents for safekeeping.
type ArchiveRepository struct {
	store archiveStore
}

// NewArchiveRepository constructs a new archive repository.
func NewArchiveRepository(store archiveStore) *ArchiveRepository {
	return &ArchiveRepository{store: store}
}

// Create persists one export document.
func (r *ArchiveRepository) Create(ctx context.Context, params db.InsertLibraryArchiveParams) (db.LibraryArchive, error) {
	return r.store.InsertLibraryArchive(ctx, params)
}

// Get fetches a stored archive by id.
func (r *ArchiveRepository) Get(ctx context.Context, id uuid.UUID) (db.LibraryArchive, error) {
	var pgID pgtype.UUID
	if err := pgID.Scan(id.String()); err != nil {
		return db.LibraryArchive{}, err
	}
	return r.store.GetLibraryArchive(ctx, pgID)
}

// ListRecent returns the latest stored archives.
func (r *ArchiveRepository) ListRecent(ctx context.Context, limit int32) ([]db.LibraryArchive, error) {
	return r.store.ListRecentLibraryArchives(ctx, limit)
}
