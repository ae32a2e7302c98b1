package trainer

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mlindgren/uttala/internal/archive"
	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
	httperrors "github.com/mlindgren/uttala/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for the library, lesson plans and
// finished results.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for trainer endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "trainer_http").Logger(),
	}
}

// WordPayload is the JSON shape of a library entry. Audio travels base64
// encoded.
type WordPayload struct {
	ID          string   `json:"id,omitempty"`
	Word        string   `json:"word"`
	Highlight   string   `json:"highlight,omitempty"`
	Phoneme     string   `json:"phoneme,omitempty"`
	Distractors []string `json:"distractors,omitempty"`
	Image       string   `json:"image,omitempty"`
	IsImageFile bool     `json:"is_image_file,omitempty"`
	AudioBase64 string   `json:"audio_base64,omitempty"`
	Category    string   `json:"category,omitempty"`
	Language    string   `json:"language,omitempty"`
	HasAudio    bool     `json:"has_audio"`
}

// ---- words ----

// ListWords handles GET /v1/words
func (h *HTTPHandlers) ListWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.service.Words(r.URL.Query().Get("language"))
	includeAudio := r.URL.Query().Get("include_audio") == "true"

	out := make([]WordPayload, 0, len(entries))
	for i := range entries {
		out = append(out, entryToPayload(&entries[i], includeAudio))
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"words": out})
}

// CreateWord handles POST /v1/words
func (h *HTTPHandlers) CreateWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	entry, err := payloadToEntry(&req)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeAudioDecodeFailed, err.Error())
		return
	}

	created, err := h.service.CreateWord(entry)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, entryToPayload(&created, true))
}

// GetWord handles GET /v1/words/{id}
func (h *HTTPHandlers) GetWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entry, err := h.service.Word(r.PathValue("id"))
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeWordNotFound, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, entryToPayload(&entry, true))
}

// UpdateWord handles PUT /v1/words/{id}
func (h *HTTPHandlers) UpdateWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	req.ID = r.PathValue("id")

	entry, err := payloadToEntry(&req)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeAudioDecodeFailed, err.Error())
		return
	}

	if err := h.service.UpdateWord(entry); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, entryToPayload(&entry, true))
}

// DeleteWord handles DELETE /v1/words/{id}
func (h *HTTPHandlers) DeleteWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.service.DeleteWord(r.PathValue("id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- library import/export ----

// ImportLibrary handles POST /v1/library/import
func (h *HTTPHandlers) ImportLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Failed to read request body")
		return
	}

	doc, err := h.service.ImportLibrary(r.Context(), data)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"words":     len(doc.Content),
		"exercises": len(doc.Plan),
	})
}

// ExportLibrary handles GET /v1/library/export
func (h *HTTPHandlers) ExportLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, filename, err := h.service.ExportLibrary(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// ---- plans ----

// ListPlans handles GET /v1/plans and POST /v1/plans
func (h *HTTPHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"plans": h.service.Plans()})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		if req.Name == "" {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "name is required", "name")
			return
		}
		h.respondJSON(w, http.StatusCreated, h.service.CreatePlan(req.Name))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GetPlan handles GET and DELETE /v1/plans/{id}
func (h *HTTPHandlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		rec, err := h.service.Plan(id)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := h.service.DeletePlan(id); err != nil {
			h.respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// AddExercise handles POST /v1/plans/{id}/exercises
func (h *HTTPHandlers) AddExercise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	cfg, err := h.service.AddExercise(r.PathValue("id"), lesson.ExerciseType(req.Type))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, cfg)
}

// RemoveExercise handles DELETE /v1/plans/{id}/exercises/{exerciseID}
func (h *HTTPHandlers) RemoveExercise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.service.RemoveExercise(r.PathValue("id"), r.PathValue("exerciseID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveExercise handles POST /v1/plans/{id}/exercises/move
func (h *HTTPHandlers) MoveExercise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Index     int    `json:"index"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Direction != "up" && req.Direction != "down" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "direction must be up or down", "direction")
		return
	}

	if err := h.service.MoveExercise(r.PathValue("id"), req.Index, req.Direction == "up"); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetExerciseWords handles PUT /v1/plans/{id}/exercises/{exerciseID}/words
func (h *HTTPHandlers) SetExerciseWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		WordIDs []string `json:"word_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if err := h.service.SetExerciseWords(r.PathValue("id"), r.PathValue("exerciseID"), req.WordIDs); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetExerciseDifficulty handles PUT /v1/plans/{id}/exercises/{exerciseID}/difficulty
func (h *HTTPHandlers) SetExerciseDifficulty(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	d := lesson.Difficulty(req.Difficulty)
	switch d {
	case lesson.DifficultyLevel1, lesson.DifficultyLevel2, lesson.DifficultyLevel3:
	default:
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "unknown difficulty tier", "difficulty")
		return
	}

	if err := h.service.SetExerciseDifficulty(r.PathValue("id"), r.PathValue("exerciseID"), d); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RandomizeExerciseWords handles POST /v1/plans/{id}/exercises/{exerciseID}/randomize
func (h *HTTPHandlers) RandomizeExerciseWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Count    int    `json:"count"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if err := h.service.RandomizeExerciseWords(r.PathValue("id"), r.PathValue("exerciseID"), req.Count, req.Language); err != nil {
		h.respondServiceError(w, err)
		return
	}

	rec, err := h.service.Plan(r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, rec)
}

// ValidatePlan handles POST /v1/plans/{id}/validate
func (h *HTTPHandlers) ValidatePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.service.ValidatePlan(r.PathValue("id")); err != nil {
		var emptyRound *lesson.EmptyRoundError
		switch {
		case errors.As(err, &emptyRound):
			httperrors.RespondErrorWithDetails(w, http.StatusUnprocessableEntity,
				httperrors.ErrCodeExercisesWithoutWords, err.Error(),
				map[string]interface{}{"exercise_ids": emptyRound.ExerciseIDs})
		case errors.Is(err, lesson.ErrEmptyPlan):
			httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeEmptyPlan, err.Error())
		default:
			h.respondServiceError(w, err)
		}
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

// ---- results and scoreboard ----

// RecentResults handles GET /v1/results
func (h *HTTPHandlers) RecentResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results, err := h.service.RecentResults(r.Context(), int32(queryInt(r, "limit")))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list results")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeResultStoreFailed, "Failed to load results")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// PlayerResults handles GET /v1/results/players/{player}
func (h *HTTPHandlers) PlayerResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results, err := h.service.PlayerResults(r.Context(), r.PathValue("player"), int32(queryInt(r, "limit")))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list player results")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeResultStoreFailed, "Failed to load results")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// Scoreboard handles GET /v1/scoreboard/{window}
func (h *HTTPHandlers) Scoreboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.service.ScoreboardTop(r.Context(), r.PathValue("window"), queryInt(r, "limit"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load scoreboard")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeScoreboardFailed, "Failed to load scoreboard")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"window":  r.PathValue("window"),
		"entries": entries,
	})
}

// ---- helpers ----

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondServiceError maps service errors onto HTTP responses.
func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBusy):
		httperrors.RespondConflict(w, httperrors.ErrCodeLibraryBusy, err.Error())
	case errors.Is(err, ErrImportTooLarge):
		httperrors.RespondError(w, http.StatusRequestEntityTooLarge, httperrors.ErrCodeImportTooLarge, err.Error())
	case errors.Is(err, ErrPlanNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, content.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeWordNotFound, err.Error())
	case errors.Is(err, content.ErrDuplicateID):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, content.ErrInvalidHighlight):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidHighlight, err.Error())
	case errors.Is(err, content.ErrInvalidEntry):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, lesson.ErrExerciseNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeExerciseNotFound, err.Error())
	case errors.Is(err, lesson.ErrUnknownType):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownExerciseType, err.Error())
	case errors.Is(err, archive.ErrMalformedDocument):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMalformedDocument, err.Error())
	case errors.Is(err, archive.ErrNoRecoverableRecords):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeNoRecoverableWords, err.Error())
	case errors.Is(err, archive.ErrEmptyExport):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeEmptyLibrary, err.Error())
	default:
		h.logger.Error().Err(err).Msg("unhandled service error")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func entryToPayload(e *content.Entry, includeAudio bool) WordPayload {
	p := WordPayload{
		ID:          e.ID,
		Word:        e.Word,
		Highlight:   e.Highlight,
		Phoneme:     e.Phoneme,
		Distractors: e.Distractors,
		Image:       e.Image,
		IsImageFile: e.IsImageFile,
		Category:    e.Category,
		Language:    e.Language,
		HasAudio:    e.HasAudio(),
	}
	if includeAudio && e.HasAudio() {
		p.AudioBase64 = base64.StdEncoding.EncodeToString(e.Audio)
	}
	return p
}

func payloadToEntry(p *WordPayload) (content.Entry, error) {
	e := content.Entry{
		ID:          p.ID,
		Word:        p.Word,
		Highlight:   p.Highlight,
		Phoneme:     p.Phoneme,
		Distractors: p.Distractors,
		Image:       p.Image,
		IsImageFile: p.IsImageFile,
		Category:    p.Category,
		Language:    p.Language,
	}
	if p.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(p.AudioBase64)
		if err != nil {
			return content.Entry{}, fmt.Errorf("decode audio clip: %w", err)
		}
		e.Audio = audio
	}
	return e, nil
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
