package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionSnapshot is the ephemeral record of a running lesson. It carries
// enough to reattach a reloaded client and to rebuild the run from its plan
// and seed if the server restarts.
type SessionSnapshot struct {
	SessionID     uuid.UUID `json:"session_id"`
	PlanID        string    `json:"plan_id"`
	Player        string    `json:"player,omitempty"`
	Seed          int64     `json:"seed"`
	ExerciseIndex int       `json:"exercise_index"`
	BankedScore   int       `json:"banked_score"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateManager handles ephemeral session state in Redis with atomic locks.
type StateManager struct {
	redis  *redis.Client
	logger zerolog.Logger
	ttl    time.Duration
}

// NewStateManager creates a state manager backed by Redis.
func NewStateManager(redis *redis.Client, logger zerolog.Logger, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &StateManager{
		redis:  redis,
		logger: logger,
		ttl:    ttl,
	}
}

// LockSession acquires a distributed lock for session state transitions.
// Returns unlock function and error. Lock expires after 30s.
func (s *StateManager) LockSession(ctx context.Context, sessionID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("session:lock:%s", sessionID.String())
	lockValue := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, 30*time.Second).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("lock already held")
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(ctx, script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}

// StoreSnapshot saves a session's resume point.
func (s *StateManager) StoreSnapshot(ctx context.Context, snap SessionSnapshot) error {
	key := s.snapshotKey(snap.SessionID)
	snap.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, key, data, s.ttl).Err()
}

// GetSnapshot retrieves a session's resume point, nil when unknown.
func (s *StateManager) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*SessionSnapshot, error) {
	data, err := s.redis.Get(ctx, s.snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot drops a finished or abandoned session.
func (s *StateManager) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	return s.redis.Del(ctx, s.snapshotKey(sessionID)).Err()
}

func (s *StateManager) snapshotKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:snapshot:%s", sessionID.String())
}
