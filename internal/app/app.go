package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mlindgren/uttala/internal/archive"
	"github.com/mlindgren/uttala/internal/config"
	"github.com/mlindgren/uttala/internal/content"
	"github.com/mlindgren/uttala/internal/db"
	"github.com/mlindgren/uttala/internal/db/repository"
	"github.com/mlindgren/uttala/internal/logging"
	"github.com/mlindgren/uttala/internal/progress"
	"github.com/mlindgren/uttala/internal/server"
	"github.com/mlindgren/uttala/internal/trainer"
	"github.com/mlindgren/uttala/internal/trainer/ticket"
	ws "github.com/mlindgren/uttala/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps configs, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := db.New(pool)
	resultRepo := repository.NewResultRepository(queries)
	archiveRepo := repository.NewArchiveRepository(queries)

	store := content.NewStore(logger)
	codec := archive.NewCodec(logger)

	scoreboard := progress.NewScoreboard(redisClient, logger, progress.ScoreboardOptions{
		TopN: cfg.Progress.ScoreboardTop,
	})
	stateMgr := progress.NewStateManager(redisClient, logger, cfg.Progress.SnapshotTTL)

	tickets := ticket.NewManager(ticket.Config{
		Secret: []byte(cfg.Security.TicketSecret),
		TTL:    cfg.Security.TicketTTL,
		Issuer: cfg.Name,
	})

	metrics := trainer.NewMetrics(prometheus.DefaultRegisterer)

	trainerSvc := trainer.NewService(
		store,
		codec,
		resultRepo,
		archiveRepo,
		scoreboard,
		stateMgr,
		tickets,
		metrics,
		trainer.ServiceOptions{
			DefaultLanguage:  cfg.Library.DefaultLanguage,
			ImportMaxBytes:   cfg.Library.ImportMaxBytes,
			ArchiveSnapshots: cfg.Library.ArchiveSnapshot,
		},
		logger,
	)

	wsHub := ws.NewHub(logger)
	lessonHandler := trainer.NewHandler(trainerSvc, wsHub, logger)
	api := trainer.NewHTTPHandlers(trainerSvc, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Routes{
		ListWords:  api.ListWords,
		CreateWord: api.CreateWord,
		GetWord:    api.GetWord,
		UpdateWord: api.UpdateWord,
		DeleteWord: api.DeleteWord,

		LibraryImport: api.ImportLibrary,
		LibraryExport: api.ExportLibrary,

		Plans:                 api.ListPlans,
		Plan:                  api.GetPlan,
		AddExercise:           api.AddExercise,
		RemoveExercise:        api.RemoveExercise,
		MoveExercise:          api.MoveExercise,
		SetExerciseWords:      api.SetExerciseWords,
		SetExerciseDifficulty: api.SetExerciseDifficulty,
		RandomizeExercise:     api.RandomizeExerciseWords,
		ValidatePlan:          api.ValidatePlan,

		RecentResults: api.RecentResults,
		PlayerResults: api.PlayerResults,
		Scoreboard:    api.Scoreboard,

		LessonSocket: lessonHandler.HandleWebSocket,
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
