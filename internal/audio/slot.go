// Package audio owns the single playback slot of a running session. The
// actual sound device is an external collaborator; this package enforces the
// resource rules: playback is exclusive, and every opened handle is released
// exactly once, whether it finishes, is stopped, or is superseded.
package audio

import (
	"sync"

	"github.com/rs/zerolog"
)

// Player is the playback collaborator: it turns a clip into a playable handle.
type Player interface {
	Open(clip []byte) (Handle, error)
}

// Handle is one playable resource.
type Handle interface {
	// Play starts playback and invokes done exactly once, when playback
	// ends or is stopped.
	Play(done func())
	// Stop halts playback early. The done callback still fires.
	Stop()
	// Release frees the underlying temporary resource. Idempotent.
	Release()
}

// Slot serializes playback: starting a new clip stops and releases whatever
// was playing before.
type Slot struct {
	mu      sync.Mutex
	player  Player
	current Handle
	playing bool
	logger  zerolog.Logger
}

// NewSlot creates an idle playback slot.
func NewSlot(player Player, logger zerolog.Logger) *Slot {
	return &Slot{
		player: player,
		logger: logger.With().Str("component", "audio").Logger(),
	}
}

// Play starts the clip, superseding any in-flight playback. A nil or empty
// clip is a silent no-op, matching entries that have no recording.
func (s *Slot) Play(clip []byte) error {
	if len(clip) == 0 {
		return nil
	}

	// Supersede outside the lock: a handle may fire its done callback
	// synchronously from Stop.
	s.mu.Lock()
	old := s.current
	s.current = nil
	s.playing = false
	s.mu.Unlock()
	if old != nil {
		old.Stop()
		old.Release()
	}

	handle, err := s.player.Open(clip)
	if err != nil {
		s.logger.Warn().Err(err).Msg("playback open failed")
		return err
	}
	s.mu.Lock()
	s.current = handle
	s.playing = true
	s.mu.Unlock()

	handle.Play(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only the still-current handle owns the slot; a superseded
		// handle was already released by Play or Stop.
		if s.current == handle {
			s.playing = false
			s.current = nil
			handle.Release()
		}
	})
	return nil
}

// IsPlaying reports whether a clip is currently audible.
func (s *Slot) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Stop halts and releases the in-flight playback, if any. Called on turn
// advance and on session teardown.
func (s *Slot) Stop() {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.playing = false
	s.mu.Unlock()

	if current != nil {
		current.Stop()
		current.Release()
	}
}
