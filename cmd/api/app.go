package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/mandadito/backend/internal/admin"
	"github.com/mandadito/backend/internal/auth"
	"github.com/mandadito/backend/internal/config"
	"github.com/mandadito/backend/internal/ledger"
	"github.com/mandadito/backend/internal/lock"
	"github.com/mandadito/backend/internal/metrics"
	"github.com/mandadito/backend/internal/profiles"
	"github.com/mandadito/backend/internal/ratings"
	"github.com/mandadito/backend/internal/repository"
	"github.com/mandadito/backend/internal/router"
	"github.com/mandadito/backend/internal/services"
	"github.com/mandadito/backend/internal/store"
	"github.com/mandadito/backend/internal/store/filestore"
	"github.com/mandadito/backend/internal/tasks"
)

// app holds the wired services shared by every command.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	backend store.Backend
	pool    *pgxpool.Pool
	redis   rueidis.Client

	recorder  *metrics.Recorder
	validator *services.Validator
	ledger    ledger.Service
	auth      auth.Service
	tasks     tasks.Service
	ratings   ratings.Service
	profiles  profiles.Service
	admin     admin.Service
}

// loadConfig reads the config and installs a JSON logger at the configured level.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openBackend connects the configured storage engine. pool is nil on the file engine.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Backend, *pgxpool.Pool, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("reach PostgreSQL: %w", err)
		}
		log.Info("connected to PostgreSQL")
		return repository.NewPostgres(pool), pool, nil
	default:
		db, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		log.Info("using file store", "dir", cfg.DataDir)
		return db, nil, nil
	}
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	backend, pool, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, backend: backend, pool: pool}

	a.redis, err = config.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if a.redis != nil {
		log.Info("sweep lock backed by redis", "addr", cfg.RedisAddr)
	}

	a.validator, err = services.NewValidator()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	stores := backend.Stores()
	a.recorder = metrics.NewRecorder()
	a.ledger = ledger.NewService(stores.Ledger)
	a.auth = auth.NewService(backend, []byte(cfg.JWTSecret), cfg.TokenTTL, log)
	a.ratings = ratings.NewService(backend, cfg.RatingWindow, a.recorder, log)
	a.tasks = tasks.NewService(backend, services.NewSettlementService(), tasks.Options{
		FeeRate:          cfg.PlatformFeeRate,
		AutoConfirmAfter: cfg.AutoConfirmAfter,
		Locker:           lock.New(a.redis),
		Matcher:          services.NewMatcher(stores.Taskers, a.ratings),
		Observer:         a.recorder,
	}, log)
	a.profiles = profiles.NewService(stores, a.ledger)
	a.admin = admin.NewService(stores, a.tasks, a.ledger, log)
	return a, nil
}

func (a *app) handler() http.Handler {
	return router.New(router.Routes{
		Auth:           auth.NewHandler(a.auth, a.validator, a.log),
		Tasks:          tasks.NewHandler(a.tasks, a.validator, a.log),
		Ratings:        ratings.NewHandler(a.ratings, a.validator, a.log),
		Profiles:       profiles.NewHandler(a.profiles, a.validator, a.log),
		Admin:          admin.NewHandler(a.admin, a.log),
		Tokens:         a.auth,
		Metrics:        metrics.Handler(),
		HTTPObs:        a.recorder,
		AllowedOrigins: a.cfg.AllowedOrigins,
		RateLimit:      a.cfg.RateLimit,
	}, a.log)
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.log.Warn("close storage", "error", err)
		}
	}
}
