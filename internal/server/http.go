package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mlindgren/uttala/internal/config"
	"github.com/mlindgren/uttala/internal/logging"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: implement proper origin checking for production
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Routes carries the handler functions mounted on the API mux. The trainer
// package supplies them; keeping plain funcs here avoids an import cycle with
// the upgrader.
type Routes struct {
	ListWords  http.HandlerFunc
	CreateWord http.HandlerFunc
	GetWord    http.HandlerFunc
	UpdateWord http.HandlerFunc
	DeleteWord http.HandlerFunc

	LibraryImport http.HandlerFunc
	LibraryExport http.HandlerFunc

	Plans                 http.HandlerFunc
	Plan                  http.HandlerFunc
	AddExercise           http.HandlerFunc
	RemoveExercise        http.HandlerFunc
	MoveExercise          http.HandlerFunc
	SetExerciseWords      http.HandlerFunc
	SetExerciseDifficulty http.HandlerFunc
	RandomizeExercise     http.HandlerFunc
	ValidatePlan          http.HandlerFunc

	RecentResults http.HandlerFunc
	PlayerResults http.HandlerFunc
	Scoreboard    http.HandlerFunc

	LessonSocket http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) plus the trainer API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, rt Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Word library
	mux.HandleFunc("GET /v1/words", rt.ListWords)
	mux.HandleFunc("POST /v1/words", rt.CreateWord)
	mux.HandleFunc("GET /v1/words/{id}", rt.GetWord)
	mux.HandleFunc("PUT /v1/words/{id}", rt.UpdateWord)
	mux.HandleFunc("DELETE /v1/words/{id}", rt.DeleteWord)

	mux.HandleFunc("POST /v1/library/import", rt.LibraryImport)
	mux.HandleFunc("GET /v1/library/export", rt.LibraryExport)

	// Lesson plans
	mux.HandleFunc("/v1/plans", rt.Plans)
	mux.HandleFunc("/v1/plans/{id}", rt.Plan)
	mux.HandleFunc("POST /v1/plans/{id}/exercises", rt.AddExercise)
	mux.HandleFunc("POST /v1/plans/{id}/exercises/move", rt.MoveExercise)
	mux.HandleFunc("DELETE /v1/plans/{id}/exercises/{exerciseID}", rt.RemoveExercise)
	mux.HandleFunc("PUT /v1/plans/{id}/exercises/{exerciseID}/words", rt.SetExerciseWords)
	mux.HandleFunc("PUT /v1/plans/{id}/exercises/{exerciseID}/difficulty", rt.SetExerciseDifficulty)
	mux.HandleFunc("POST /v1/plans/{id}/exercises/{exerciseID}/randomize", rt.RandomizeExercise)
	mux.HandleFunc("POST /v1/plans/{id}/validate", rt.ValidatePlan)

	// Results and scoreboard
	mux.HandleFunc("GET /v1/results", rt.RecentResults)
	mux.HandleFunc("GET /v1/results/players/{player}", rt.PlayerResults)
	mux.HandleFunc("GET /v1/scoreboard/{window}", rt.Scoreboard)

	// WebSocket endpoint for live lessons
	if rt.LessonSocket != nil {
		mux.HandleFunc("/ws/lessons", rt.LessonSocket)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware(cfg.CORS, mux),
	}
}

// corsMiddleware applies the configured CORS policy for the browser client.
func corsMiddleware(cfg config.CORS, next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
