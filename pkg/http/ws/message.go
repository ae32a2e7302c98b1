package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeStartLesson    = "start_lesson"
	TypeResumeLesson   = "resume_lesson"
	TypeSubmitGuess    = "submit_guess"
	TypeChooseCell     = "choose_cell"
	TypeSubmitSpelling = "submit_spelling"
	TypeReplayAudio    = "replay_audio"
	TypeLeaveLesson    = "leave_lesson"

	// Server -> Client
	TypeLessonStarted    = "lesson_started"
	TypeTurnPresented    = "turn_presented"
	TypeGuessResult      = "guess_result"
	TypeExerciseComplete = "exercise_complete"
	TypeLessonComplete   = "lesson_complete"
	TypeAudioClip        = "audio_clip"
	TypeError            = "error"
	TypePing             = "ping"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type StartLessonPayload struct {
	PlanID string `json:"plan_id"`
	Player string `json:"player,omitempty"`
	Seed   int64  `json:"seed,omitempty"` // fixed seed for reproducible runs
}

type ResumeLessonPayload struct {
	Ticket string `json:"ticket"`
}

type SubmitGuessPayload struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
}

type ChooseCellPayload struct {
	SessionID string `json:"session_id"`
	WordID    string `json:"word_id"`
}

type SubmitSpellingPayload struct {
	SessionID string `json:"session_id"`
	Attempt   string `json:"attempt"`
}

type ReplayAudioPayload struct {
	SessionID string `json:"session_id"`
}

type LeaveLessonPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// Server Messages (outgoing)

type LessonStartedPayload struct {
	SessionID     string `json:"session_id"`
	Ticket        string `json:"ticket"`
	ExerciseCount int    `json:"exercise_count"`
}

// TurnPresentedPayload carries everything the client needs to render one
// turn, whichever game is running. Unused fields stay empty.
type TurnPresentedPayload struct {
	SessionID     string   `json:"session_id"`
	ExerciseID    string   `json:"exercise_id"`
	ExerciseType  string   `json:"exercise_type"`
	Difficulty    string   `json:"difficulty,omitempty"`
	ExerciseIndex int      `json:"exercise_index"`
	ExerciseTotal int      `json:"exercise_total"`
	Step          int      `json:"step"`
	StepTotal     int      `json:"step_total"`
	WordPrefix    string   `json:"word_prefix,omitempty"`
	WordHighlight string   `json:"word_highlight,omitempty"`
	WordSuffix    string   `json:"word_suffix,omitempty"`
	Options       []string `json:"options,omitempty"`
	Cells         []Cell   `json:"cells,omitempty"`
	Image         string   `json:"image,omitempty"`
	IsImageFile   bool     `json:"is_image_file,omitempty"`
	ShowImage     bool     `json:"show_image,omitempty"`
	AudioBase64   string   `json:"audio_base64,omitempty"`
}

// Cell is one matching-grid position as shown to the client.
type Cell struct {
	WordID      string `json:"word_id"`
	Image       string `json:"image"`
	IsImageFile bool   `json:"is_image_file"`
	Solved      bool   `json:"solved"`
	Errored     bool   `json:"errored"`
}

type GuessResultPayload struct {
	SessionID   string `json:"session_id"`
	Correct     bool   `json:"correct"`
	Status      string `json:"status,omitempty"` // spelling: open|warning|success|failed
	Answer      string `json:"answer,omitempty"`
	Reveal      string `json:"reveal,omitempty"`
	Points      int    `json:"points"`
	Score       int    `json:"score"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

type ExerciseCompletePayload struct {
	SessionID  string `json:"session_id"`
	ExerciseID string `json:"exercise_id"`
	Score      int    `json:"score"`
	TotalScore int    `json:"total_score"`
}

type LessonCompletePayload struct {
	SessionID  string           `json:"session_id"`
	TotalScore int              `json:"total_score"`
	Exercises  []ExerciseResult `json:"exercises"`
}

type ExerciseResult struct {
	ExerciseID   string `json:"exercise_id"`
	ExerciseType string `json:"exercise_type"`
	Score        int    `json:"score"`
}

type AudioClipPayload struct {
	SessionID   string `json:"session_id"`
	AudioBase64 string `json:"audio_base64"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
