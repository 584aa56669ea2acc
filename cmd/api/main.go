package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/phishguard/internal/application"
	"github.com/bryanwahyu/phishguard/internal/application/assessments"
	"github.com/bryanwahyu/phishguard/internal/config"
	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
	"github.com/bryanwahyu/phishguard/internal/infra/ai/gemini"
	"github.com/bryanwahyu/phishguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/phishguard/internal/infra/db/migrations"
	mysqlp "github.com/bryanwahyu/phishguard/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/phishguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/phishguard/internal/infra/httpserver"
	"github.com/bryanwahyu/phishguard/internal/infra/storage"
	"github.com/bryanwahyu/phishguard/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx := context.Background()

	// init history backend
	history, checkers, closeHistory, err := openHistory(ctx, cfg, logger)
	if err != nil {
		logger.Error("history init error", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}
	defer closeHistory()

	// init AI
	ai, err := newAssessor(ctx, cfg)
	if err != nil {
		logger.Error("ai client init error", "provider", cfg.AI.Provider, "error", err)
		os.Exit(1)
	}
	model := ""
	if ai == nil {
		logger.Warn("no AI API key configured, every URL is scored by the heuristic")
	} else {
		model = ai.Model()
	}

	metrics := middleware.NewMetrics()
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Stop()

	// init service
	svc := &assessments.Service{
		AI:      ai,
		History: history,
		Clock:   application.SystemClock{},
		Logger:  logger,
		Metrics: metrics,
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		Logger:         logger,
		Metrics:        metrics,
		RateLimiter:    limiter,
		APIKeys:        cfg.Server.APIKeys,
		HealthCheckers: checkers,
		AIEnabled:      cfg.AIEnabled(),
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", "addr", addr, "provider", cfg.AI.Provider, "model", model, "history", cfg.History.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newAssessor returns nil when no API key is configured. An empty model
// leaves the provider default in place.
func newAssessor(ctx context.Context, cfg *config.Config) (domain.Assessor, error) {
	if !cfg.AIEnabled() {
		return nil, nil
	}
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout), nil
	default:
		cli, err := gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout)
		if err != nil {
			return nil, err
		}
		return cli, nil
	}
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.HistoryRepository, map[string]middleware.HealthChecker, func(), error) {
	checkers := map[string]middleware.HealthChecker{}
	noop := func() {}

	switch cfg.History.Driver {
	case config.DriverMinio:
		store, err := storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.ObjectKey,
			cfg.Minio.UseSSL,
			logger,
		)
		if err != nil {
			return nil, nil, noop, err
		}
		checkers["minio"] = store
		return store, checkers, noop, nil

	case config.DriverMySQL, config.DriverPostgres:
		var (
			db  *sql.DB
			err error
		)
		if cfg.History.Driver == config.DriverMySQL {
			db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		} else {
			db, err = pgp.Connect(ctx, cfg.PostgresDSN())
		}
		if err != nil {
			return nil, nil, noop, err
		}
		if cfg.History.Migrate {
			if err := migrations.Up(db, cfg.History.Driver); err != nil {
				db.Close()
				return nil, nil, noop, err
			}
		}
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		closeDB := func() { db.Close() }
		if cfg.History.Driver == config.DriverMySQL {
			return mysqlp.NewHistoryRepository(db, logger), checkers, closeDB, nil
		}
		return pgp.NewHistoryRepository(db, logger), checkers, closeDB, nil

	default:
		return storage.NewFileHistory(cfg.History.File, logger), checkers, noop, nil
	}
}
