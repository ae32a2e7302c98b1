package session

import (
	"strings"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// SpellingAttempts is how many tries each word allows before it is revealed.
const SpellingAttempts = 2

// SpellingStatus is the per-word state of a spelling turn.
type SpellingStatus int

const (
	// SpellingOpen accepts input.
	SpellingOpen SpellingStatus = iota
	// SpellingWarning follows a first wrong attempt; one retry remains.
	SpellingWarning
	// SpellingSuccess ends the turn with points.
	SpellingSuccess
	// SpellingFailed ends the turn after the retry also missed.
	SpellingFailed
)

// SpellingRound plays hear-and-type over a fixed shuffled queue. Each word
// allows two attempts: a first-try hit earns 2 points, a retry hit 1, a
// second miss 0 and the answer is revealed.
type SpellingRound struct {
	eng        *engine
	difficulty lesson.Difficulty
	status     SpellingStatus
	attempts   int
}

// NewSpellingRound shuffles the content into a single-pass queue. An empty
// difficulty runs as Level 1.
func NewSpellingRound(entries []content.Entry, difficulty lesson.Difficulty, opts Options) (*SpellingRound, error) {
	if len(entries) == 0 {
		return nil, ErrNoContent
	}
	if difficulty == "" {
		difficulty = lesson.DifficultyLevel1
	}
	return &SpellingRound{
		eng:        newEngine(entries, opts.rng(), false),
		difficulty: difficulty,
	}, nil
}

func (r *SpellingRound) Type() lesson.ExerciseType { return lesson.TypeSpelling }

func (r *SpellingRound) Score() int { return r.eng.score }

// Done reports whether every word in the queue has been resolved.
func (r *SpellingRound) Done() bool { return r.eng.done }

// Progress reports resolved words against the queue length.
func (r *SpellingRound) Progress() (int, int) {
	if r.eng.done {
		return len(r.eng.queue), len(r.eng.queue)
	}
	return r.eng.cursor, len(r.eng.queue)
}

// Difficulty returns the tier this round runs at.
func (r *SpellingRound) Difficulty() lesson.Difficulty { return r.difficulty }

// Current is the word under test this turn.
func (r *SpellingRound) Current() content.Entry { return r.eng.current() }

// Status is the current turn's state.
func (r *SpellingRound) Status() SpellingStatus { return r.status }

// ShowImage reports whether the word's picture may be shown right now. Level
// 1 shows it as a clue from the start; Level 2 only reveals it once the turn
// is resolved.
func (r *SpellingRound) ShowImage() bool {
	if r.difficulty == lesson.DifficultyLevel1 {
		return true
	}
	return r.terminal()
}

// SubmitResult reports the outcome of one typed attempt.
type SubmitResult struct {
	Status SpellingStatus
	Points int    // points earned by this attempt, 0 unless Status is SpellingSuccess
	Reveal string // correct spelling, set once the turn is resolved
}

// Submit checks one typed attempt against the word, case-insensitively and
// with bracket markers ignored on both sides.
func (r *SpellingRound) Submit(attempt string) (SubmitResult, error) {
	if r.eng.done {
		return SubmitResult{}, ErrRoundDone
	}
	if r.terminal() {
		return SubmitResult{}, ErrTurnAnswered
	}

	cur := r.eng.current()
	want := strings.ToLower(cur.CleanWord())
	got := strings.ToLower(content.StripBrackets(attempt))

	if got == want {
		points := 2
		if r.attempts > 0 {
			points = 1
		}
		r.status = SpellingSuccess
		r.eng.addScore(points)
		return SubmitResult{Status: r.status, Points: points, Reveal: cur.CleanWord()}, nil
	}

	r.attempts++
	if r.attempts >= SpellingAttempts {
		r.status = SpellingFailed
		return SubmitResult{Status: r.status, Reveal: cur.CleanWord()}, nil
	}
	r.status = SpellingWarning
	return SubmitResult{Status: r.status}, nil
}

// Next moves to the following word once the current turn is resolved.
func (r *SpellingRound) Next() error {
	if r.eng.done {
		return ErrRoundDone
	}
	if !r.terminal() {
		return ErrTurnOpen
	}
	r.eng.advance()
	r.status = SpellingOpen
	r.attempts = 0
	return nil
}

func (r *SpellingRound) terminal() bool {
	return r.status == SpellingSuccess || r.status == SpellingFailed
}
