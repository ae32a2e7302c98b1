// Package trainer is the application service behind the HTTP and WebSocket
// surfaces: it owns the word library, the saved lesson plans and the live
// lesson sessions, and persists outcomes.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/mlindgren/uttala/internal/archive"
	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/db"
	"github.com/mlindgren/uttala/internal/db/repository"
	"github.com/mlindgren/uttala/internal/lesson"
	"github.com/mlindgren/uttala/internal/progress"
	"github.com/mlindgren/uttala/internal/session"
	"github.com/mlindgren/uttala/internal/trainer/ticket"
)

var (
	// ErrBusy signals a library mutation while an import or export runs.
	ErrBusy = errors.New("library import/export in progress")
	// ErrPlanNotFound signals an operation on an unknown plan id.
	ErrPlanNotFound = errors.New("lesson plan not found")
	// ErrSessionNotFound signals an operation on an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrImportTooLarge signals an import document over the configured cap.
	ErrImportTooLarge = errors.New("import document too large")
)

// ImportedPlanID names the plan slot filled by a document import.
const ImportedPlanID = "imported"

// PlanRecord is a saved, named lesson plan.
type PlanRecord struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Exercises lesson.Plan `json:"exercises"`
}

// ExerciseOutcome is one completed exercise within a lesson.
type ExerciseOutcome struct {
	ExerciseID string
	Type       lesson.ExerciseType
	Score      int
}

// LiveSession is one running lesson. The handler serializes access through mu.
type LiveSession struct {
	ID        uuid.UUID
	PlanID    string
	Player    string
	Seed      int64
	StartedAt time.Time

	mu       sync.Mutex
	run      *session.Runner
	outcomes []ExerciseOutcome
}

// ServiceOptions configures trainer behavior.
type ServiceOptions struct {
	DefaultLanguage  string
	ImportMaxBytes   int64
	ArchiveSnapshots bool
}

// Service wires the library, plans and sessions to their collaborators.
type Service struct {
	content  *content.Store
	codec    *archive.Codec
	results  *repository.ResultRepository
	archives *repository.ArchiveRepository
	board    *progress.Scoreboard
	state    *progress.StateManager
	tickets  *ticket.Manager
	metrics  *Metrics
	logger   zerolog.Logger
	opts     ServiceOptions

	busy atomic.Bool

	mu        sync.RWMutex
	plans     map[string]*PlanRecord
	planOrder []string
	sessions  map[uuid.UUID]*LiveSession
}

// NewService constructs the trainer service. The persistence collaborators
// (results, archives, board, state) may be nil; the corresponding writes are
// then skipped and reads return empty.
func NewService(
	store *content.Store,
	codec *archive.Codec,
	results *repository.ResultRepository,
	archives *repository.ArchiveRepository,
	board *progress.Scoreboard,
	state *progress.StateManager,
	tickets *ticket.Manager,
	metrics *Metrics,
	opts ServiceOptions,
	logger zerolog.Logger,
) *Service {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "sv-SE"
	}
	return &Service{
		content:  store,
		codec:    codec,
		results:  results,
		archives: archives,
		board:    board,
		state:    state,
		tickets:  tickets,
		metrics:  metrics,
		logger:   logger.With().Str("component", "trainer").Logger(),
		opts:     opts,
		plans:    make(map[string]*PlanRecord),
		sessions: make(map[uuid.UUID]*LiveSession),
	}
}

// ---- library ----

// Words lists the library, optionally scoped to one language.
func (s *Service) Words(language string) []content.Entry {
	if language == "" {
		return s.content.All()
	}
	return s.content.FilterByLanguage(language)
}

// Word fetches one entry.
func (s *Service) Word(id string) (content.Entry, error) {
	e, ok := s.content.Get(id)
	if !ok {
		return content.Entry{}, fmt.Errorf("word %q: %w", id, content.ErrNotFound)
	}
	return e, nil
}

// CreateWord adds a library entry.
func (s *Service) CreateWord(e content.Entry) (content.Entry, error) {
	if s.busy.Load() {
		return content.Entry{}, ErrBusy
	}
	if e.Language == "" {
		e.Language = s.opts.DefaultLanguage
	}
	return s.content.Add(e)
}

// UpdateWord replaces a library entry.
func (s *Service) UpdateWord(e content.Entry) error {
	if s.busy.Load() {
		return ErrBusy
	}
	return s.content.Update(e)
}

// DeleteWord removes a library entry. Unknown ids are ignored.
func (s *Service) DeleteWord(id string) error {
	if s.busy.Load() {
		return ErrBusy
	}
	s.content.Delete(id)
	return nil
}

// ImportLibrary replaces the library (and the imported plan slot) from a
// document. The library is locked against edits for the duration.
func (s *Service) ImportLibrary(ctx context.Context, data []byte) (*archive.Document, error) {
	if s.opts.ImportMaxBytes > 0 && int64(len(data)) > s.opts.ImportMaxBytes {
		return nil, ErrImportTooLarge
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	doc, err := s.codec.Import(data)
	if err != nil {
		s.metrics.Imports.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := s.content.Replace(doc.Content); err != nil {
		s.metrics.Imports.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("replace library: %w", err)
	}

	if len(doc.Plan) > 0 {
		s.upsertPlan(&PlanRecord{ID: ImportedPlanID, Name: "Imported lesson plan", Exercises: doc.Plan.Clone()})
	}

	if s.opts.ArchiveSnapshots && s.archives != nil {
		if _, err := s.archives.Create(ctx, db.InsertLibraryArchiveParams{
			Filename:  archive.DefaultFilename(time.Now()),
			WordCount: int32(len(doc.Content)),
			Document:  data,
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to archive imported document")
		}
	}

	s.metrics.Imports.WithLabelValues("accepted").Inc()
	s.logger.Info().Int("words", len(doc.Content)).Int("exercises", len(doc.Plan)).Msg("library imported")
	return doc, nil
}

// ExportLibrary serializes the library and the first saved plan.
func (s *Service) ExportLibrary(ctx context.Context) ([]byte, string, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, "", ErrBusy
	}
	defer s.busy.Store(false)

	var plan lesson.Plan
	s.mu.RLock()
	if len(s.planOrder) > 0 {
		plan = s.plans[s.planOrder[0]].Exercises.Clone()
	}
	s.mu.RUnlock()

	entries := s.content.All()
	data, err := s.codec.Export(entries, plan)
	if err != nil {
		return nil, "", err
	}
	filename := archive.DefaultFilename(time.Now())

	if s.opts.ArchiveSnapshots && s.archives != nil {
		if _, err := s.archives.Create(ctx, db.InsertLibraryArchiveParams{
			Filename:  filename,
			WordCount: int32(len(entries)),
			Document:  data,
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to archive exported document")
		}
	}

	s.metrics.Exports.Inc()
	return data, filename, nil
}

// ---- plans ----

// CreatePlan saves a new empty plan.
func (s *Service) CreatePlan(name string) PlanRecord {
	rec := &PlanRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Exercises: lesson.Plan{},
	}
	out := PlanRecord{ID: rec.ID, Name: rec.Name, Exercises: lesson.Plan{}}
	s.upsertPlan(rec)
	return out
}

// Plans lists saved plans in creation order.
func (s *Service) Plans() []PlanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlanRecord, 0, len(s.planOrder))
	for _, id := range s.planOrder {
		out = append(out, s.snapshotPlan(s.plans[id]))
	}
	return out
}

// Plan fetches one saved plan.
func (s *Service) Plan(id string) (PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.plans[id]
	if !ok {
		return PlanRecord{}, fmt.Errorf("plan %q: %w", id, ErrPlanNotFound)
	}
	return s.snapshotPlan(rec), nil
}

// DeletePlan removes a saved plan.
func (s *Service) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return fmt.Errorf("plan %q: %w", id, ErrPlanNotFound)
	}
	delete(s.plans, id)
	for i, pid := range s.planOrder {
		if pid == id {
			s.planOrder = append(s.planOrder[:i], s.planOrder[i+1:]...)
			break
		}
	}
	return nil
}

// AddExercise appends an exercise to a plan.
func (s *Service) AddExercise(planID string, t lesson.ExerciseType) (lesson.ExerciseConfig, error) {
	var cfg lesson.ExerciseConfig
	err := s.editPlan(planID, func(p *lesson.Plan) error {
		var err error
		cfg, err = p.AddExercise(t)
		return err
	})
	return cfg, err
}

// RemoveExercise deletes an exercise from a plan.
func (s *Service) RemoveExercise(planID, exerciseID string) error {
	return s.editPlan(planID, func(p *lesson.Plan) error {
		return p.RemoveExercise(exerciseID)
	})
}

// MoveExercise shifts an exercise one step up or down.
func (s *Service) MoveExercise(planID string, index int, up bool) error {
	return s.editPlan(planID, func(p *lesson.Plan) error {
		if up {
			p.MoveUp(index)
		} else {
			p.MoveDown(index)
		}
		return nil
	})
}

// SetExerciseWords replaces an exercise's word selection.
func (s *Service) SetExerciseWords(planID, exerciseID string, wordIDs []string) error {
	return s.editPlan(planID, func(p *lesson.Plan) error {
		return p.SetWordSelection(exerciseID, wordIDs)
	})
}

// SetExerciseDifficulty changes an exercise's tier.
func (s *Service) SetExerciseDifficulty(planID, exerciseID string, d lesson.Difficulty) error {
	return s.editPlan(planID, func(p *lesson.Plan) error {
		return p.SetDifficulty(exerciseID, d)
	})
}

// RandomizeExerciseWords draws a fresh selection from the recorded pool.
func (s *Service) RandomizeExerciseWords(planID, exerciseID string, count int, language string) error {
	if language == "" {
		language = s.opts.DefaultLanguage
	}
	pool := s.content.WithAudio(language)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return s.editPlan(planID, func(p *lesson.Plan) error {
		if count <= 0 {
			cfg := findExercise(*p, exerciseID)
			if cfg == nil {
				return fmt.Errorf("randomize %q: %w", exerciseID, lesson.ErrExerciseNotFound)
			}
			count = lesson.DefaultRandomCount(cfg.Type)
		}
		return p.RandomizeSelection(exerciseID, count, pool, rng)
	})
}

// ValidatePlan checks a saved plan is playable.
func (s *Service) ValidatePlan(planID string) error {
	rec, err := s.Plan(planID)
	if err != nil {
		return err
	}
	return rec.Exercises.ValidateForStart()
}

func (s *Service) editPlan(planID string, edit func(*lesson.Plan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("plan %q: %w", planID, ErrPlanNotFound)
	}
	return edit(&rec.Exercises)
}

func (s *Service) upsertPlan(rec *PlanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[rec.ID]; !exists {
		s.planOrder = append(s.planOrder, rec.ID)
	}
	s.plans[rec.ID] = rec
}

func (s *Service) snapshotPlan(rec *PlanRecord) PlanRecord {
	return PlanRecord{ID: rec.ID, Name: rec.Name, Exercises: rec.Exercises.Clone()}
}

func findExercise(p lesson.Plan, exerciseID string) *lesson.ExerciseConfig {
	for i := range p {
		if p[i].ID == exerciseID {
			return &p[i]
		}
	}
	return nil
}

// ---- sessions ----

// StartLesson validates the plan and creates a live session. Seed zero picks
// a random seed; the seed is kept for snapshots so a resumed run reshuffles
// the same way.
func (s *Service) StartLesson(ctx context.Context, planID, player string, seed int64) (*LiveSession, string, error) {
	rec, err := s.Plan(planID)
	if err != nil {
		return nil, "", err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	run, err := session.NewRunner(rec.Exercises, s.resolver(), session.Options{
		Rand: rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		return nil, "", err
	}

	live := &LiveSession{
		ID:        uuid.New(),
		PlanID:    planID,
		Player:    player,
		Seed:      seed,
		StartedAt: time.Now().UTC(),
		run:       run,
	}

	s.mu.Lock()
	s.sessions[live.ID] = live
	s.mu.Unlock()

	tkt, err := s.tickets.Issue(live.ID, planID, player)
	if err != nil {
		return nil, "", fmt.Errorf("issue resume ticket: %w", err)
	}

	s.storeSnapshot(ctx, live)
	s.metrics.LessonsStarted.Inc()
	s.logger.Info().
		Str("session_id", live.ID.String()).
		Str("plan_id", planID).
		Int("exercises", len(rec.Exercises)).
		Msg("lesson started")
	return live, tkt, nil
}

// ResumeLesson reattaches a ticket to its session. A session lost to a
// restart is rebuilt from its Redis snapshot; the interrupted exercise
// starts over, banked scores stay.
func (s *Service) ResumeLesson(ctx context.Context, ticketStr string) (*LiveSession, error) {
	claims, err := s.tickets.Validate(ticketStr)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	live, ok := s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if ok {
		return live, nil
	}

	if s.state == nil {
		return nil, fmt.Errorf("session %s: %w", claims.SessionID, ErrSessionNotFound)
	}

	// Serialize rebuilds so two tabs resuming at once share one session.
	unlock, err := s.state.LockSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release session lock")
		}
	}()

	s.mu.RLock()
	live, ok = s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if ok {
		return live, nil
	}

	snap, err := s.state.GetSnapshot(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("session %s: %w", claims.SessionID, ErrSessionNotFound)
	}

	rec, err := s.Plan(snap.PlanID)
	if err != nil {
		return nil, err
	}
	run, err := session.RestoreRunner(rec.Exercises, s.resolver(), session.Options{
		Rand: rand.New(rand.NewSource(snap.Seed)),
	}, snap.ExerciseIndex, snap.BankedScore)
	if err != nil {
		return nil, err
	}

	live = &LiveSession{
		ID:        snap.SessionID,
		PlanID:    snap.PlanID,
		Player:    snap.Player,
		Seed:      snap.Seed,
		StartedAt: snap.StartedAt,
		run:       run,
	}
	s.mu.Lock()
	s.sessions[live.ID] = live
	s.mu.Unlock()

	s.logger.Info().Str("session_id", live.ID.String()).Msg("lesson resumed from snapshot")
	return live, nil
}

// Session fetches a live session by id.
func (s *Service) Session(id uuid.UUID) (*LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return live, nil
}

// FinishLesson persists a completed run and clears its ephemeral state.
// Callers hold the session lock.
func (s *Service) FinishLesson(ctx context.Context, live *LiveSession) error {
	total := live.run.TotalScore()
	count := len(live.outcomes)

	var pgSessionID pgtype.UUID
	if err := pgSessionID.Scan(live.ID.String()); s.results != nil && err == nil {
		var started pgtype.Timestamptz
		_ = started.Scan(live.StartedAt)
		if _, err := s.results.Create(ctx, db.InsertLessonResultParams{
			SessionID:     pgSessionID,
			PlanID:        live.PlanID,
			Player:        live.Player,
			TotalScore:    int32(total),
			ExerciseCount: int32(count),
			StartedAt:     started,
		}); err != nil {
			s.logger.Warn().Err(err).Str("session_id", live.ID.String()).Msg("failed to persist lesson result")
		}
	}

	if s.board != nil {
		if err := s.board.RecordLesson(ctx, progress.RecordRequest{
			Player:        live.Player,
			Score:         total,
			ExerciseCount: count,
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record scoreboard entry")
		}
	}

	if s.state != nil {
		if err := s.state.DeleteSnapshot(ctx, live.ID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drop session snapshot")
		}
	}

	s.mu.Lock()
	delete(s.sessions, live.ID)
	s.mu.Unlock()

	s.metrics.LessonsCompleted.Inc()
	s.logger.Info().
		Str("session_id", live.ID.String()).
		Int("total_score", total).
		Msg("lesson completed")
	return nil
}

// AbortLesson discards a live session.
func (s *Service) AbortLesson(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	live, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	live.mu.Lock()
	live.run.Abort()
	live.mu.Unlock()

	if s.state != nil {
		if err := s.state.DeleteSnapshot(ctx, id); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drop session snapshot")
		}
	}
	s.metrics.LessonsAborted.Inc()
	s.logger.Info().Str("session_id", id.String()).Msg("lesson aborted")
}

// storeSnapshot records the resume point. Callers hold the session lock when
// the run has started.
func (s *Service) storeSnapshot(ctx context.Context, live *LiveSession) {
	if s.state == nil {
		return
	}
	index, _ := live.run.Progress()
	if err := s.state.StoreSnapshot(ctx, progress.SessionSnapshot{
		SessionID:     live.ID,
		PlanID:        live.PlanID,
		Player:        live.Player,
		Seed:          live.Seed,
		ExerciseIndex: index,
		BankedScore:   live.run.TotalScore(),
		StartedAt:     live.StartedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", live.ID.String()).Msg("failed to store session snapshot")
	}
}

// resolver maps plan word ids to live entries.
func (s *Service) resolver() session.Resolver {
	return func(wordIDs []string) []content.Entry {
		return s.content.FilterByIDs(wordIDs)
	}
}

// ---- results ----

// RecentResults lists the latest finished lessons.
func (s *Service) RecentResults(ctx context.Context, limit int32) ([]db.LessonResult, error) {
	if s.results == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.results.ListRecent(ctx, limit)
}

// PlayerResults lists one player's lesson history.
func (s *Service) PlayerResults(ctx context.Context, player string, limit int32) ([]db.LessonResult, error) {
	if s.results == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.results.ListForPlayer(ctx, player, limit)
}

// ScoreboardTop returns the scoreboard for one window.
func (s *Service) ScoreboardTop(ctx context.Context, window string, limit int) ([]progress.Entry, error) {
	if s.board == nil {
		return nil, nil
	}
	return s.board.Top(ctx, window, limit)
}
