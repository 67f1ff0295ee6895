package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/eqmx/equilibrium-engine/internal/guard"
	"github.com/eqmx/equilibrium-engine/internal/metrics"
	"github.com/eqmx/equilibrium-engine/internal/solve"
	"github.com/eqmx/equilibrium-engine/internal/store"
)

// Config holds runtime settings, populated from the environment with the
// EQMX_ prefix (EQMX_PORT, EQMX_DATABASE_URL, ...).
type Config struct {
	Port        string        `default:"8080"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	MaxGoods      int `envconfig:"MAX_GOODS" default:"64"`
	MaxAgents     int `envconfig:"MAX_AGENTS" default:"256"`
	MaxGridPoints int `envconfig:"MAX_GRID_POINTS" default:"10000"`
	MaxScenarios  int `envconfig:"MAX_SCENARIOS" default:"1000"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var cfg Config
	if err := envconfig.Process("eqmx", &cfg); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Problem-size limits ---
	limiter := guard.NewSizeLimiter(cfg.MaxGoods, cfg.MaxAgents, cfg.MaxGridPoints, cfg.MaxScenarios)

	// --- WebSocket hub ---
	wsHub := solve.NewWSHub()
	go wsHub.Run()

	// --- Solve service ---
	solveSvc := solve.NewService(st, limiter, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"equilibrium-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time solve notifications.
		r.Get("/ws", wsHub.HandleWS)

		// Scenario management.
		r.Get("/scenarios", solveSvc.ListScenarios)
		r.Post("/scenarios", solveSvc.CreateScenario)
		r.Get("/scenarios/{scenarioID}", solveSvc.GetScenario)
		r.Patch("/scenarios/{scenarioID}", solveSvc.AmendScenario)

		// Equilibrium computation.
		r.Post("/scenarios/{scenarioID}/solve", solveSvc.Solve)
		r.Get("/scenarios/{scenarioID}/surplus", solveSvc.GetSurplus)
		r.Get("/scenarios/{scenarioID}/curves", solveSvc.GetCurves)
		r.Get("/scenarios/{scenarioID}/history", solveSvc.GetHistory)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("equilibrium-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down equilibrium-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("equilibrium-engine stopped")
}
