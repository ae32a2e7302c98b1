package trainer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
	"github.com/mlindgren/uttala/internal/session"
	"github.com/mlindgren/uttala/internal/trainer/ticket"
	httperrors "github.com/mlindgren/uttala/pkg/http/errors"
	ws "github.com/mlindgren/uttala/pkg/http/ws"
)

// Handler drives lesson sessions over WebSocket: it routes client messages
// into the session engines and schedules the feedback and completion delays
// between turns.
type Handler struct {
	service *Service
	hub     *ws.Hub
	logger  zerolog.Logger
}

// NewHandler creates a lesson WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// HandleConnection processes a new WebSocket connection. A connection starts
// detached; start_lesson or resume_lesson binds it to a session.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	wsConn := ws.NewConnection(conn, h.logger)
	attached := uuid.Nil

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), wsConn, &attached, msg)
	})

	// Leave the session resumable; only this connection goes away. A resume
	// from another tab has already replaced it in the hub.
	if attached != uuid.Nil {
		h.hub.DropConnection(attached, wsConn)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *ws.Connection, attached *uuid.UUID, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeStartLesson:
		return h.handleStartLesson(ctx, conn, attached, msg.Payload)
	case ws.TypeResumeLesson:
		return h.handleResumeLesson(ctx, conn, attached, msg.Payload)
	case ws.TypeSubmitGuess:
		return h.handleSubmitGuess(ctx, conn, msg.Payload)
	case ws.TypeChooseCell:
		return h.handleChooseCell(ctx, conn, msg.Payload)
	case ws.TypeSubmitSpelling:
		return h.handleSubmitSpelling(ctx, conn, msg.Payload)
	case ws.TypeReplayAudio:
		return h.handleReplayAudio(ctx, conn, msg.Payload)
	case ws.TypeLeaveLesson:
		return h.handleLeaveLesson(ctx, conn, attached, msg.Payload)
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong})
	default:
		return h.sendError(conn, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleStartLesson(ctx context.Context, conn *ws.Connection, attached *uuid.UUID, payload json.RawMessage) error {
	var req ws.StartLessonPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid start_lesson payload")
	}

	live, tkt, err := h.service.StartLesson(ctx, req.PlanID, req.Player, req.Seed)
	if err != nil {
		return h.sendError(conn, startErrorCode(err), err.Error())
	}

	h.hub.RegisterConnection(live.ID, conn)
	*attached = live.ID

	live.mu.Lock()
	defer live.mu.Unlock()
	_, total := live.run.Progress()
	h.send(live.ID, ws.TypeLessonStarted, ws.LessonStartedPayload{
		SessionID:     live.ID.String(),
		Ticket:        tkt,
		ExerciseCount: total,
	})
	h.presentTurn(live)
	return nil
}

func (h *Handler) handleResumeLesson(ctx context.Context, conn *ws.Connection, attached *uuid.UUID, payload json.RawMessage) error {
	var req ws.ResumeLessonPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid resume_lesson payload")
	}

	live, err := h.service.ResumeLesson(ctx, req.Ticket)
	if err != nil {
		return h.sendError(conn, resumeErrorCode(err), err.Error())
	}

	h.hub.RegisterConnection(live.ID, conn)
	*attached = live.ID

	live.mu.Lock()
	defer live.mu.Unlock()
	_, total := live.run.Progress()
	h.send(live.ID, ws.TypeLessonStarted, ws.LessonStartedPayload{
		SessionID:     live.ID.String(),
		Ticket:        req.Ticket,
		ExerciseCount: total,
	})
	h.presentTurn(live)
	return nil
}

func (h *Handler) handleSubmitGuess(ctx context.Context, conn *ws.Connection, payload json.RawMessage) error {
	var req ws.SubmitGuessPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid submit_guess payload")
	}
	live, err := h.sessionFor(conn, req.SessionID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	round, ok := live.run.Round().(*session.PhonemeRound)
	if !ok {
		return h.sendError(conn, httperrors.ErrCodeTurnOutOfOrder, "No phoneme exercise is running")
	}
	res, err := round.Guess(req.Label)
	if err != nil {
		return h.sendError(conn, turnErrorCode(err), err.Error())
	}
	h.service.metrics.TurnsPlayed.WithLabelValues(string(lesson.TypePhoneme), outcomeLabel(res.Correct)).Inc()

	h.send(live.ID, ws.TypeGuessResult, ws.GuessResultPayload{
		SessionID:   live.ID.String(),
		Correct:     res.Correct,
		Answer:      res.Answer,
		Score:       live.run.TotalScore(),
		AudioBase64: encodeClip(res.Audio),
	})

	h.after(session.FeedbackDelay, live, func(ctx context.Context) {
		r, ok := live.run.Round().(*session.PhonemeRound)
		if !ok || r != round {
			return
		}
		if r.Done() {
			h.completeExercise(ctx, live)
			return
		}
		if err := r.Next(); err != nil {
			h.logger.Warn().Err(err).Msg("phoneme advance failed")
			return
		}
		h.presentTurn(live)
	})
	return nil
}

func (h *Handler) handleChooseCell(ctx context.Context, conn *ws.Connection, payload json.RawMessage) error {
	var req ws.ChooseCellPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid choose_cell payload")
	}
	live, err := h.sessionFor(conn, req.SessionID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	round, ok := live.run.Round().(*session.MatchingRound)
	if !ok {
		return h.sendError(conn, httperrors.ErrCodeTurnOutOfOrder, "No matching exercise is running")
	}
	res, err := round.Choose(req.WordID)
	if err != nil {
		return h.sendError(conn, turnErrorCode(err), err.Error())
	}
	h.service.metrics.TurnsPlayed.WithLabelValues(string(lesson.TypeMatching), outcomeLabel(res.Correct)).Inc()

	h.send(live.ID, ws.TypeGuessResult, ws.GuessResultPayload{
		SessionID:   live.ID.String(),
		Correct:     res.Correct,
		Score:       live.run.TotalScore(),
		AudioBase64: encodeClip(res.Audio),
	})

	if !res.Correct {
		// The turn stays open; show the error mark and let the player retry.
		h.send(live.ID, ws.TypeTurnPresented, h.buildTurn(live))
		return nil
	}

	h.after(session.FeedbackDelay, live, func(ctx context.Context) {
		r, ok := live.run.Round().(*session.MatchingRound)
		if !ok || r != round {
			return
		}
		if err := r.AdvanceTurn(); err != nil {
			h.logger.Warn().Err(err).Msg("matching advance failed")
			return
		}
		if r.Done() {
			h.completeExercise(ctx, live)
			return
		}
		h.presentTurn(live)
	})
	return nil
}

func (h *Handler) handleSubmitSpelling(ctx context.Context, conn *ws.Connection, payload json.RawMessage) error {
	var req ws.SubmitSpellingPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid submit_spelling payload")
	}
	live, err := h.sessionFor(conn, req.SessionID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	round, ok := live.run.Round().(*session.SpellingRound)
	if !ok {
		return h.sendError(conn, httperrors.ErrCodeTurnOutOfOrder, "No spelling exercise is running")
	}
	res, err := round.Submit(req.Attempt)
	if err != nil {
		return h.sendError(conn, turnErrorCode(err), err.Error())
	}
	h.service.metrics.TurnsPlayed.WithLabelValues(string(lesson.TypeSpelling), outcomeLabel(res.Status == session.SpellingSuccess)).Inc()

	h.send(live.ID, ws.TypeGuessResult, ws.GuessResultPayload{
		SessionID: live.ID.String(),
		Correct:   res.Status == session.SpellingSuccess,
		Status:    spellingStatusLabel(res.Status),
		Reveal:    res.Reveal,
		Points:    res.Points,
		Score:     live.run.TotalScore(),
	})

	if res.Status == session.SpellingWarning {
		return nil
	}

	h.after(session.FeedbackDelay, live, func(ctx context.Context) {
		r, ok := live.run.Round().(*session.SpellingRound)
		if !ok || r != round {
			return
		}
		if err := r.Next(); err != nil {
			h.logger.Warn().Err(err).Msg("spelling advance failed")
			return
		}
		if r.Done() {
			h.completeExercise(ctx, live)
			return
		}
		h.presentTurn(live)
	})
	return nil
}

func (h *Handler) handleReplayAudio(ctx context.Context, conn *ws.Connection, payload json.RawMessage) error {
	var req ws.ReplayAudioPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid replay_audio payload")
	}
	live, err := h.sessionFor(conn, req.SessionID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	var clip []byte
	switch r := live.run.Round().(type) {
	case *session.PhonemeRound:
		clip = r.Current().Audio
	case *session.MatchingRound:
		clip = r.ReplayAudio()
		// Error marks were cleared; refresh the grid.
		h.send(live.ID, ws.TypeTurnPresented, h.buildTurn(live))
	case *session.SpellingRound:
		clip = r.Current().Audio
	default:
		return h.sendError(conn, httperrors.ErrCodeTurnOutOfOrder, "No exercise is running")
	}

	h.send(live.ID, ws.TypeAudioClip, ws.AudioClipPayload{
		SessionID:   live.ID.String(),
		AudioBase64: encodeClip(clip),
	})
	return nil
}

func (h *Handler) handleLeaveLesson(ctx context.Context, conn *ws.Connection, attached *uuid.UUID, payload json.RawMessage) error {
	var req ws.LeaveLessonPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid leave_lesson payload")
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid session id")
	}

	h.service.AbortLesson(ctx, sessionID)
	h.hub.UnregisterConnection(sessionID)
	if *attached == sessionID {
		*attached = uuid.Nil
	}
	return nil
}

// completeExercise closes the finished round and, after the completion
// splash, mounts the next exercise or ends the lesson. Callers hold the
// session lock.
func (h *Handler) completeExercise(ctx context.Context, live *LiveSession) {
	round := live.run.Round()
	cfg := live.run.Config()
	live.outcomes = append(live.outcomes, ExerciseOutcome{
		ExerciseID: cfg.ID,
		Type:       round.Type(),
		Score:      round.Score(),
	})

	h.send(live.ID, ws.TypeExerciseComplete, ws.ExerciseCompletePayload{
		SessionID:  live.ID.String(),
		ExerciseID: cfg.ID,
		Score:      round.Score(),
		TotalScore: live.run.TotalScore(),
	})

	h.after(session.CompletionDelay, live, func(ctx context.Context) {
		if err := live.run.CompleteCurrent(); err != nil {
			h.logger.Warn().Err(err).Msg("exercise completion failed")
			return
		}
		if live.run.Done() {
			h.finishLesson(ctx, live)
			return
		}
		h.service.storeSnapshot(ctx, live)
		h.presentTurn(live)
	})
}

// finishLesson persists the run and sends the summary. Callers hold the
// session lock.
func (h *Handler) finishLesson(ctx context.Context, live *LiveSession) {
	summary := make([]ws.ExerciseResult, 0, len(live.outcomes))
	for _, o := range live.outcomes {
		summary = append(summary, ws.ExerciseResult{
			ExerciseID:   o.ExerciseID,
			ExerciseType: string(o.Type),
			Score:        o.Score,
		})
	}

	h.send(live.ID, ws.TypeLessonComplete, ws.LessonCompletePayload{
		SessionID:  live.ID.String(),
		TotalScore: live.run.TotalScore(),
		Exercises:  summary,
	})

	if err := h.service.FinishLesson(ctx, live); err != nil {
		h.logger.Warn().Err(err).Msg("lesson finalization failed")
	}
}

// presentTurn sends the current turn. Spelling turns get their prompt clip
// shortly after, matching the auto-play behavior. Callers hold the session
// lock.
func (h *Handler) presentTurn(live *LiveSession) {
	h.send(live.ID, ws.TypeTurnPresented, h.buildTurn(live))

	round, ok := live.run.Round().(*session.SpellingRound)
	if !ok {
		return
	}
	clip := round.Current().Audio
	step, _ := round.Progress()
	h.after(session.AutoPlayDelay, live, func(ctx context.Context) {
		r, ok := live.run.Round().(*session.SpellingRound)
		if !ok || r != round {
			return
		}
		if cur, _ := r.Progress(); cur != step {
			return
		}
		h.send(live.ID, ws.TypeAudioClip, ws.AudioClipPayload{
			SessionID:   live.ID.String(),
			AudioBase64: encodeClip(clip),
		})
	})
}

// buildTurn renders the current round state for the client. Callers hold the
// session lock.
func (h *Handler) buildTurn(live *LiveSession) ws.TurnPresentedPayload {
	idx, total := live.run.Progress()
	cfg := live.run.Config()
	p := ws.TurnPresentedPayload{
		SessionID:     live.ID.String(),
		ExerciseID:    cfg.ID,
		ExerciseType:  string(cfg.Type),
		Difficulty:    string(cfg.Difficulty),
		ExerciseIndex: idx,
		ExerciseTotal: total,
	}

	switch r := live.run.Round().(type) {
	case *session.PhonemeRound:
		e := r.Current()
		parsed := content.ParseBracketed(e.Word)
		p.WordPrefix = parsed.Prefix
		p.WordHighlight = parsed.Highlight
		p.WordSuffix = parsed.Suffix
		p.Options = r.Options()
		p.Image = e.Image
		p.IsImageFile = e.IsImageFile
		p.ShowImage = true
		p.AudioBase64 = encodeClip(e.Audio)
		p.Step, p.StepTotal = r.Progress()
	case *session.MatchingRound:
		for _, c := range r.Cells() {
			p.Cells = append(p.Cells, ws.Cell{
				WordID:      c.Entry.ID,
				Image:       c.Entry.Image,
				IsImageFile: c.Entry.IsImageFile,
				Solved:      c.Solved,
				Errored:     c.Errored,
			})
		}
		p.Difficulty = string(r.Difficulty())
		p.AudioBase64 = encodeClip(r.Target().Audio)
		p.Step, p.StepTotal = r.Progress()
	case *session.SpellingRound:
		e := r.Current()
		p.Difficulty = string(r.Difficulty())
		p.ShowImage = r.ShowImage()
		if p.ShowImage {
			p.Image = e.Image
			p.IsImageFile = e.IsImageFile
		}
		p.AudioBase64 = encodeClip(e.Audio)
		p.Step, p.StepTotal = r.Progress()
	}
	return p
}

// after schedules a delayed step on the session. The session lock is taken
// inside the timer; a round that ended or changed in between is a no-op for
// the scheduled step.
func (h *Handler) after(d time.Duration, live *LiveSession, fn func(ctx context.Context)) {
	time.AfterFunc(d, func() {
		live.mu.Lock()
		defer live.mu.Unlock()
		if live.run.Round() == nil {
			return
		}
		fn(context.Background())
	})
}

func (h *Handler) sessionFor(conn *ws.Connection, sessionID string) (*LiveSession, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid session id")
	}
	live, err := h.service.Session(id)
	if err != nil {
		return nil, h.sendError(conn, httperrors.ErrCodeSessionNotFound, err.Error())
	}
	return live, nil
}

func (h *Handler) send(sessionID uuid.UUID, msgType string, payload interface{}) {
	msg := ws.Message{Type: msgType}
	msg.Payload, _ = json.Marshal(payload)
	if err := h.hub.SendToSession(sessionID, msg); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID.String()).Str("type", msgType).Msg("send failed")
	}
}

func (h *Handler) sendError(conn *ws.Connection, code, message string) error {
	errPayload := ws.ErrorPayload{
		Code:    code,
		Message: message,
	}
	msg := ws.Message{Type: ws.TypeError}
	msg.Payload, _ = json.Marshal(errPayload)
	return conn.Send(msg)
}

func encodeClip(clip []byte) string {
	if len(clip) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(clip)
}

func outcomeLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}

func spellingStatusLabel(st session.SpellingStatus) string {
	switch st {
	case session.SpellingWarning:
		return "warning"
	case session.SpellingSuccess:
		return "success"
	case session.SpellingFailed:
		return "failed"
	default:
		return "open"
	}
}

func startErrorCode(err error) string {
	var emptyRound *lesson.EmptyRoundError
	switch {
	case errors.Is(err, ErrPlanNotFound):
		return httperrors.ErrCodeNotFound
	case errors.Is(err, lesson.ErrEmptyPlan):
		return httperrors.ErrCodeEmptyPlan
	case errors.As(err, &emptyRound):
		return httperrors.ErrCodeExercisesWithoutWords
	case errors.Is(err, session.ErrNoContent):
		return httperrors.ErrCodeLessonStartFailed
	default:
		return httperrors.ErrCodeLessonStartFailed
	}
}

func resumeErrorCode(err error) string {
	switch {
	case errors.Is(err, ticket.ErrExpiredTicket):
		return httperrors.ErrCodeTicketExpired
	case errors.Is(err, ticket.ErrInvalidTicket):
		return httperrors.ErrCodeInvalidTicket
	case errors.Is(err, ErrSessionNotFound):
		return httperrors.ErrCodeSessionNotFound
	default:
		return httperrors.ErrCodeLessonStartFailed
	}
}

func turnErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrRoundDone),
		errors.Is(err, session.ErrTurnAnswered),
		errors.Is(err, session.ErrTurnOpen):
		return httperrors.ErrCodeTurnOutOfOrder
	default:
		return httperrors.ErrCodeInvalidRequest
	}
}
