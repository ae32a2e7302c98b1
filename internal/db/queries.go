// Package db holds the hand-written Postgres query layer the repositories
// build on.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries bundles all SQL statements over one connection source.
type Queries struct {
	db DBTX
}

// New wraps a connection source.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// LessonResult is one finished lesson run.
type LessonResult struct {
	ID            pgtype.UUID
	SessionID     pgtype.UUID
	PlanID        string
	Player        string
	TotalScore    int32
	ExerciseCount int32
	StartedAt     pgtype.Timestamptz
	CompletedAt   pgtype.Timestamptz
}

// LibraryArchive is one stored export document.
type LibraryArchive struct {
	ID        pgtype.UUID
	Filename  string
	WordCount int32
	Document  []byte
	CreatedAt pgtype.Timestamptz
}

const insertLessonResult = `
INSERT INTO lesson_results (session_id, plan_id, player, total_score, exercise_count, started_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, session_id, plan_id, player, total_score, exercise_count, started_at, completed_at
`

// InsertLessonResultParams holds the columns for a new result row.
type InsertLessonResultParams struct {
	SessionID     pgtype.UUID
	PlanID        string
	Player        string
	TotalScore    int32
	ExerciseCount int32
	StartedAt     pgtype.Timestamptz
}

func (q *Queries) InsertLessonResult(ctx context.Context, arg InsertLessonResultParams) (LessonResult, error) {
	row := q.db.QueryRow(ctx, insertLessonResult,
		arg.SessionID, arg.PlanID, arg.Player, arg.TotalScore, arg.ExerciseCount, arg.StartedAt)
	var r LessonResult
	err := row.Scan(&r.ID, &r.SessionID, &r.PlanID, &r.Player, &r.TotalScore, &r.ExerciseCount, &r.StartedAt, &r.CompletedAt)
	return r, err
}

const getLessonResultBySession = `
SELECT id, session_id, plan_id, player, total_score, exercise_count, started_at, completed_at
FROM lesson_results
WHERE session_id = $1
`

func (q *Queries) GetLessonResultBySession(ctx context.Context, sessionID pgtype.UUID) (LessonResult, error) {
	row := q.db.QueryRow(ctx, getLessonResultBySession, sessionID)
	var r LessonResult
	err := row.Scan(&r.ID, &r.SessionID, &r.PlanID, &r.Player, &r.TotalScore, &r.ExerciseCount, &r.StartedAt, &r.CompletedAt)
	return r, err
}

const listRecentLessonResults = `
SELECT id, session_id, plan_id, player, total_score, exercise_count, started_at, completed_at
FROM lesson_results
ORDER BY completed_at DESC
LIMIT $1
`

func (q *Queries) ListRecentLessonResults(ctx context.Context, limit int32) ([]LessonResult, error) {
	rows, err := q.db.Query(ctx, listRecentLessonResults, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LessonResult
	for rows.Next() {
		var r LessonResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PlanID, &r.Player, &r.TotalScore, &r.ExerciseCount, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listLessonResultsForPlayer = `
SELECT id, session_id, plan_id, player, total_score, exercise_count, started_at, completed_at
FROM lesson_results
WHERE player = $1
ORDER BY completed_at DESC
LIMIT $2
`

func (q *Queries) ListLessonResultsForPlayer(ctx context.Context, player string, limit int32) ([]LessonResult, error) {
	rows, err := q.db.Query(ctx, listLessonResultsForPlayer, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LessonResult
	for rows.Next() {
		var r LessonResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PlanID, &r.Player, &r.TotalScore, &r.ExerciseCount, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertLibraryArchive = `
INSERT INTO library_archives (filename, word_count, document)
VALUES ($1, $2, $3)
RETURNING id, filename, word_count, document, created_at
`

// InsertLibraryArchiveParams holds the columns for a new archive row.
type InsertLibraryArchiveParams struct {
	Filename  string
	WordCount int32
	Document  []byte
}

func (q *Queries) InsertLibraryArchive(ctx context.Context, arg InsertLibraryArchiveParams) (LibraryArchive, error) {
	row := q.db.QueryRow(ctx, insertLibraryArchive, arg.Filename, arg.WordCount, arg.Document)
	var a LibraryArchive
	err := row.Scan(&a.ID, &a.Filename, &a.WordCount, &a.Document, &a.CreatedAt)
	return a, err
}

const getLibraryArchive = `
SELECT id, filename, word_count, document, created_at
FROM library_archives
WHERE id = $1
`

func (q *Queries) GetLibraryArchive(ctx context.Context, id pgtype.UUID) (LibraryArchive, error) {
	row := q.db.QueryRow(ctx, getLibraryArchive, id)
	var a LibraryArchive
	err := row.Scan(&a.ID, &a.Filename, &a.WordCount, &a.Document, &a.CreatedAt)
	return a, err
}

const listRecentLibraryArchives = `
SELECT id, filename, word_count, document, created_at
FROM library_archives
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListRecentLibraryArchives(ctx context.Context, limit int32) ([]LibraryArchive, error) {
	rows, err := q.db.Query(ctx, listRecentLibraryArchives, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LibraryArchive
	for rows.Next() {
		var a LibraryArchive
		if err := rows.Scan(&a.ID, &a.Filename, &a.WordCount, &a.Document, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
