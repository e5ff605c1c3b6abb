// Command poppod runs the PoppoBuilder maintenance daemon: it claims the
// process singleton for the configured state directory and runs the
// scheduled integrity audit until signalled.
package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"poppo/internal/config"
	"poppo/internal/daemon"
	"poppo/internal/logging"
	"poppo/internal/state"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := state.Open(cfg, logger)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("poppod shutting down")
	d.Stop()
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logPath := filepath.Join(cfg.Paths.LogDir, "poppod.log")
	if err := logging.EnsureLogDir(logPath); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: io.MultiWriter(os.Stdout, file),
	})
}
