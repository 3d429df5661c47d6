package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/broadcast"
	"github.com/vegarwe/skistart-lockedup/internal/journal"
	"github.com/vegarwe/skistart-lockedup/internal/server"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
	"github.com/vegarwe/skistart-lockedup/internal/station"
)

func main() {
	configPath := flag.String("config", "./server.json", "path to server config (json or yaml)")
	flag.Parse()

	os.Exit(run(*configPath))
}

func newLogger(cfg *shared.ServerConfig) *slog.Logger {
	lvl, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(configPath string) int {
	cfg, err := shared.LoadServerConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		return 1
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	var (
		rec broadcast.Recorder
		jr  server.Journal
	)
	if cfg.JournalPath != "" {
		if dir := filepath.Dir(cfg.JournalPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				logger.Error("failed to create journal dir", "dir", dir, "error", err)
				return 1
			}
		}
		j, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.JournalPath, "error", err)
			return 1
		}
		defer j.Close()
		rec, jr = j, j
	}

	st, err := station.FromConfig(cfg, rec, logger)
	if err != nil {
		logger.Error("failed to build station", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Start(ctx); err != nil {
		logger.Error("failed to start station", "error", err)
		return 1
	}

	api := &server.API{
		Rack:         st,
		Journal:      jr,
		AuthData:     cfg.AuthData,
		CookieSecret: cfg.CookieSecret,
		StaticDir:    cfg.StaticDir,
		Log:          logger.With("component", "http"),
	}
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           server.NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("lu-server listening", "addr", srv.Addr, "journal", cfg.JournalPath, "auth", cfg.AuthData != "")

	code := 0
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info("stopping")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := st.Stop(); err != nil {
		logger.Error("hardware loop failed", "error", err)
		code = 1
	}
	return code
}
