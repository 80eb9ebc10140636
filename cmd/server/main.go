package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/attendee-import/internal/classifier"
	"github.com/JonMunkholm/attendee-import/internal/config"
	"github.com/JonMunkholm/attendee-import/internal/core"
	"github.com/JonMunkholm/attendee-import/internal/logging"
	"github.com/JonMunkholm/attendee-import/internal/store/postgres"
	"github.com/JonMunkholm/attendee-import/internal/store/redisstore"
	"github.com/JonMunkholm/attendee-import/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool)
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		slog.Info("database schema applied")
	}

	previews, closePreviews, err := newPreviewStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up preview store", "error", err)
		os.Exit(1)
	}
	defer closePreviews()

	cls, err := newClassifier(ctx, cfg.Classifier)
	if err != nil {
		slog.Error("failed to set up column classifier", "error", err)
		os.Exit(1)
	}

	service := core.NewService(store, cls, previews, core.ServiceConfig{
		MaxFileSize:   cfg.Import.MaxFileSize,
		BatchSize:     cfg.Import.BatchSize,
		SampleRows:    cfg.Import.SampleRows,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		CommitTimeout: cfg.Import.CommitTimeout,
	})

	server := web.NewServer(ctx, service, cfg, pool.Ping)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveImports(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// newPreviewStore uses Redis when configured so previews survive restarts
// and can be confirmed on any instance.
func newPreviewStore(ctx context.Context, cfg *config.Config) (core.PreviewStore, func(), error) {
	if cfg.Redis.URL == "" {
		slog.Info("preview store: memory")
		return core.NewMemoryPreviewStore(cfg.Import.PreviewTTL), func() {}, nil
	}

	client, err := redisstore.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("preview store: redis", "prefix", cfg.Redis.KeyPrefix)
	return redisstore.NewPreviewStore(client, cfg.Redis.KeyPrefix, cfg.Import.PreviewTTL), func() { client.Close() }, nil
}

func newClassifier(ctx context.Context, cfg config.ClassifierConfig) (core.Classifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "aliases":
		c := classifier.NewAliases()
		slog.Info("column classifier ready", "classifier", c.Name())
		return c, nil
	default:
		c, err := classifier.NewGenAI(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("column classifier ready", "classifier", c.Name(), "timeout", cfg.Timeout)
		return c, nil
	}
}
