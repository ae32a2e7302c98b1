// Package progress keeps lesson outcomes in Redis: rolling scoreboards per
// time window, and snapshots of running sessions for resume.
package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Supported scoreboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowAllTime}

// Entry represents one player's scoreboard record.
type Entry struct {
	Player    string `json:"player"`
	Score     int    `json:"score"`
	Lessons   int    `json:"lessons"`
	Exercises int    `json:"exercises"`
}

// RecordRequest captures a finished lesson for scoreboard aggregation.
type RecordRequest struct {
	Player        string
	Score         int
	ExerciseCount int
	Windows       []string
}

// ScoreboardOptions configures scoreboard behavior.
type ScoreboardOptions struct {
	TopN           int
	Windows        []string
	EntryTTL       time.Duration
	RedisKeyPrefix string
}

// Scoreboard manages per-window score aggregates in Redis.
type Scoreboard struct {
	redis    *redis.Client
	logger   zerolog.Logger
	topN     int
	windows  []string
	entryTTL time.Duration
	prefix   string
}

// NewScoreboard constructs a scoreboard instance.
func NewScoreboard(redis *redis.Client, logger zerolog.Logger, opts ScoreboardOptions) *Scoreboard {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = defaultWindows
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "sb"
	}

	return &Scoreboard{
		redis:    redis,
		logger:   logger.With().Str("component", "scoreboard").Logger(),
		topN:     topN,
		windows:  windows,
		entryTTL: opts.EntryTTL,
		prefix:   prefix,
	}
}

// RecordLesson folds one finished lesson into the applicable windows.
func (s *Scoreboard) RecordLesson(ctx context.Context, req RecordRequest) error {
	if req.Player == "" {
		return nil
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = s.windows
	}

	for _, window := range windows {
		if err := s.updateWindow(ctx, window, req); err != nil {
			return err
		}
	}
	return nil
}

// Top retrieves the top N entries for a given window.
func (s *Scoreboard) Top(ctx context.Context, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	zKey := s.scoreKey(window)
	results, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		meta, err := s.readMeta(ctx, window, z.Member.(string))
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read scoreboard metadata")
			continue
		}
		meta.Score = int(z.Score)
		entries = append(entries, *meta)
	}
	return entries, nil
}

func (s *Scoreboard) updateWindow(ctx context.Context, window string, req RecordRequest) error {
	zKey := s.scoreKey(window)
	metaKey := s.metaKey(window, req.Player)

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, zKey, float64(req.Score), req.Player)
	pipe.HIncrBy(ctx, metaKey, "lessons", 1)
	pipe.HIncrBy(ctx, metaKey, "exercises", int64(req.ExerciseCount))
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"last_played": time.Now().UTC().Format(time.RFC3339),
	})
	if s.entryTTL > 0 && window != WindowAllTime {
		pipe.Expire(ctx, zKey, s.entryTTL)
		pipe.Expire(ctx, metaKey, s.entryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update scoreboard window %s: %w", window, err)
	}
	return nil
}

func (s *Scoreboard) readMeta(ctx context.Context, window, player string) (*Entry, error) {
	data, err := s.redis.HGetAll(ctx, s.metaKey(window, player)).Result()
	if err != nil {
		return nil, err
	}

	entry := &Entry{Player: player}
	entry.Lessons = parseInt(data["lessons"])
	entry.Exercises = parseInt(data["exercises"])
	return entry, nil
}

func (s *Scoreboard) scoreKey(window string) string {
	return fmt.Sprintf("%s:%s", s.prefix, window)
}

func (s *Scoreboard) metaKey(window, player string) string {
	return fmt.Sprintf("%s:%s:meta:%s", s.prefix, window, player)
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
