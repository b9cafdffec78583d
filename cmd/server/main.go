package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/chiptourney/internal/api"
	"github.com/mcoot/chiptourney/internal/factory"
	"github.com/mcoot/chiptourney/internal/scheduler"
	redisstorage "github.com/mcoot/chiptourney/internal/storage/redis"
)

func main() {
	// A missing .env is fine; the process environment still applies
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not load .env: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: os.Getenv("STORAGE_TYPE"),
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		if prefix := os.Getenv("REDIS_KEY_PREFIX"); prefix != "" {
			redisCfg.KeyPrefix = prefix
		}
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("closing storage", slog.String("error", err.Error()))
		}
	}()

	schedCfg := scheduler.DefaultConfig()
	if schedCfg.Interval, err = envDuration("AUTO_ASSIGN_INTERVAL", schedCfg.Interval); err != nil {
		return err
	}
	if schedCfg.BatchSize, err = envInt("AUTO_ASSIGN_BATCH", schedCfg.BatchSize); err != nil {
		return err
	}
	if err := schedCfg.Validate(); err != nil {
		return err
	}
	assigner := scheduler.NewAutoAssigner(schedCfg, app.Roster, app.Queue, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Roster:   app.Roster,
		Ledger:   app.Ledger,
		Queue:    app.Queue,
		Matches:  app.Matches,
		Cutoff:   app.Cutoff,
		Stats:    app.Stats,
		Ratings:  app.Ratings,
		Registry: app.Registry,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = os.Getenv("HOST")
	if serverConfig.Port, err = envInt("PORT", serverConfig.Port); err != nil {
		return err
	}
	server := api.NewServer(router, serverConfig, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := assigner.Start(ctx); err != nil {
		return fmt.Errorf("start auto-assign: %w", err)
	}
	defer func() {
		if err := assigner.Stop(); err != nil {
			logger.Warn("stopping auto-assign", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	}
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func logLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
