package session

import (
	"math/rand"

	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/lesson"
)

// PhonemeGoal is the number of correct answers that completes a phoneme
// round, regardless of how many attempts they took.
const PhonemeGoal = 5

// DefaultPhonemePool supplies filler options when a round's content has no
// usable distractors and only one distinct phoneme label.
var DefaultPhonemePool = []string{"sj", "tj", "sk", "ng"}

// PhonemeRound asks the player to pick the sound they hear in the
// highlighted part of a word. The queue wraps, so missed words come around
// again until five answers are correct.
type PhonemeRound struct {
	eng     *engine
	rng     *rand.Rand
	labels  []string // distinct phoneme labels across the round's content
	options []string
	state   TurnState
	correct int
}

// NewPhonemeRound shuffles the content into a wrapping queue and presents
// the first turn.
func NewPhonemeRound(entries []content.Entry, opts Options) (*PhonemeRound, error) {
	if len(entries) == 0 {
		return nil, ErrNoContent
	}
	rng := opts.rng()

	seen := make(map[string]struct{})
	var labels []string
	for _, e := range entries {
		if _, dup := seen[e.Phoneme]; dup || e.Phoneme == "" {
			continue
		}
		seen[e.Phoneme] = struct{}{}
		labels = append(labels, e.Phoneme)
	}

	r := &PhonemeRound{
		eng:    newEngine(entries, rng, true),
		rng:    rng,
		labels: labels,
	}
	r.present()
	return r, nil
}

func (r *PhonemeRound) Type() lesson.ExerciseType { return lesson.TypePhoneme }

// Score counts correct answers only.
func (r *PhonemeRound) Score() int { return r.eng.score }

// Done reports whether the correct-answer goal has been reached.
func (r *PhonemeRound) Done() bool { return r.correct >= PhonemeGoal }

// Progress reports correct answers against the fixed goal.
func (r *PhonemeRound) Progress() (int, int) { return r.correct, PhonemeGoal }

// Current is the entry under test this turn.
func (r *PhonemeRound) Current() content.Entry { return r.eng.current() }

// State is the current turn's state.
func (r *PhonemeRound) State() TurnState { return r.state }

// Options returns the shuffled answer set for the current turn.
func (r *PhonemeRound) Options() []string { return r.options }

// GuessResult reports the outcome of one phoneme guess. Audio carries the
// target clip to play as feedback, right or wrong.
type GuessResult struct {
	Correct bool
	Answer  string
	Audio   []byte
}

// Guess answers the current turn.
func (r *PhonemeRound) Guess(label string) (GuessResult, error) {
	if r.Done() {
		return GuessResult{}, ErrRoundDone
	}
	if r.state != TurnPresented {
		return GuessResult{}, ErrTurnAnswered
	}

	cur := r.eng.current()
	result := GuessResult{
		Correct: label == cur.Phoneme,
		Answer:  cur.Phoneme,
		Audio:   cur.Audio,
	}
	if result.Correct {
		r.state = TurnCorrect
		r.eng.addScore(1)
		r.correct++
	} else {
		r.state = TurnIncorrect
	}
	return result, nil
}

// Next moves to the following turn after an answer.
func (r *PhonemeRound) Next() error {
	if r.Done() {
		return ErrRoundDone
	}
	if r.state == TurnPresented {
		return ErrTurnOpen
	}
	r.eng.advance()
	r.present()
	return nil
}

// present builds the option set for the new turn: the entry's own
// distractors when it has any, otherwise up to two fillers drawn from the
// round's other labels (or the fixed default pool), plus the answer.
func (r *PhonemeRound) present() {
	cur := r.eng.current()
	var options []string
	if len(cur.Distractors) > 0 {
		options = append(append([]string{}, cur.Distractors...), cur.Phoneme)
	} else {
		var fillers []string
		for _, label := range r.labels {
			if label != cur.Phoneme {
				fillers = append(fillers, label)
			}
		}
		if len(fillers) == 0 {
			for _, label := range DefaultPhonemePool {
				if label != cur.Phoneme {
					fillers = append(fillers, label)
				}
			}
		}
		r.rng.Shuffle(len(fillers), func(i, j int) {
			fillers[i], fillers[j] = fillers[j], fillers[i]
		})
		if len(fillers) > 2 {
			fillers = fillers[:2]
		}
		options = append(fillers, cur.Phoneme)
	}

	r.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	r.options = options
	r.state = TurnPresented
}
