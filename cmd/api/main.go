package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/officerag/internal/app"
	"github.com/markdave123-py/officerag/internal/config"
	"github.com/markdave123-py/officerag/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logging.Setup(cfg.LogJSON)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return application.Coordinator.Run(gctx, cfg.Workers) })

	// Unfinished rows are queued before uploads are accepted, so a fresh
	// upload is never raced by a stale job for the same document.
	if _, err := application.Coordinator.Resume(gctx); err != nil {
		interrupted := ctx.Err() != nil
		stop()
		_ = g.Wait()
		if interrupted {
			return
		}
		slog.Error("resume failed", "error", err)
		_ = application.Close()
		os.Exit(1)
	}

	g.Go(application.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return application.Server.Shutdown(shutdownCtx)
	})

	slog.Info("officerag is running", "port", cfg.Port, "workers", cfg.Workers)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("shut down cleanly")
}
