package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/h1v3-io/inbox/internal/api"
	"github.com/h1v3-io/inbox/internal/config"
	"github.com/h1v3-io/inbox/internal/logbuf"
	"github.com/h1v3-io/inbox/internal/ticket"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("INBOX_CONFIG"), "Path to config file (JSON with comments, or YAML)")
	seed := pflag.Bool("seed", false, "Seed sample tickets into an empty database")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose logging")
	pflag.Parse()

	// Set up logging. The level is final once the config is loaded.
	var level slog.LevelVar
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	// Load config (2 modes: file, env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(logbuf.ParseLevel(cfg.Desk.LogLevel))
	if *verbose {
		level.Set(slog.LevelDebug)
	}

	logger.Info("deskd starting", "data_dir", cfg.Desk.DataDir)

	// 1. Open ticket store
	dbPath := cfg.Desk.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Error("failed to create data dir", "path", filepath.Dir(dbPath), "error", err)
		os.Exit(1)
	}
	store, err := ticket.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open ticket store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := ticket.NewService(store, logger.With("component", "tickets"))
	if *seed || cfg.Desk.Seed {
		n, err := svc.Seed()
		if err != nil {
			logger.Error("failed to seed tickets", "error", err)
			os.Exit(1)
		}
		logger.Info("seed complete", "inserted", n)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Start API server
	apiSrv := api.NewServer(svc, api.Config{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		Key:            cfg.API.Key,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, logger.With("component", "api"), logBuf)

	errCh := make(chan error, 1)
	go safeGo(logger, "api-server", func() { errCh <- apiSrv.Start(ctx) })

	// 3. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("api server failed", "error", err)
			cancel()
			store.Close()
			os.Exit(1)
		}
	}
	cancel()
	logger.Info("deskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
