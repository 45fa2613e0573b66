package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-planner/internal/api"
	"github.com/p-n-ai/pai-planner/internal/decision"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/platform/config"
	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/store"
	"github.com/p-n-ai/pai-planner/internal/tuning"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config) error {
	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tun, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		return err
	}

	var (
		repo   store.Repository
		log    decision.Logger
		checks []readinessCheck
	)
	switch {
	case cfg.UsesPostgres():
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		pg, err := store.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		repo, log = pg, decision.NewPostgresLog(db.Pool)
		checks = append(checks, readinessCheck{"database", db.HealthCheck})
		slog.Info("using postgres storage")
	default:
		repo, log = store.NewMemoryStore(), decision.NewMemoryLog()
		slog.Info("using in-memory storage")
	}

	var analytics api.Cache
	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		analytics = c
		checks = append(checks, readinessCheck{"cache", c.HealthCheck})
		slog.Info("analytics cache enabled", "ttl", cfg.Cache.TTL)
	}

	if cfg.SeedPath != "" {
		seed, err := store.LoadSeed(cfg.SeedPath)
		if err != nil {
			return err
		}
		if _, err := store.Seed(ctx, repo, seed, time.Now()); err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
	}

	hub := decision.NewHub(log, cfg.Stream.Buffer)
	handlers := api.New(api.Deps{
		Repo:     repo,
		Log:      hub,
		Hub:      hub,
		Cache:    analytics,
		CacheTTL: cfg.Cache.TTL,
		Tuning:   tun,
	})

	mux := newMux(checks...)
	handlers.Register(mux)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      api.WithRequestLog(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// newMux creates the HTTP router with health check endpoints. Readiness
// fails while any dependency check fails.
func newMux(checks ...readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", c.name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","check":%q}`, c.name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
