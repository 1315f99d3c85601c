// Package internal wires configuration, storage, and the refactoring engine
// for the raido command line.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/linkcheck"
	"github.com/starford/raido/internal/vault"
	"github.com/starford/raido/internal/watcher"
)

// App is the assembled application: one vault, one engine, one logger.
type App struct {
	Config *Config
	Logger *slog.Logger
	Store  vault.Provider
	Engine *engine.Engine
}

// NewApp builds the application from options.
func NewApp(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Structured JSON logger on stderr: stdout carries operation output.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("strict", cfg.App.Strict),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Backup.Suffix != "" {
		engOpts = append(engOpts, engine.WithBackupSuffix(cfg.Backup.Suffix))
	}
	if a.events != nil {
		engOpts = append(engOpts, engine.WithEvents(a.events))
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Engine: engine.New(store, engOpts...),
	}, nil
}

// LinkChecker builds an external URL checker from the check configuration.
func (a *App) LinkChecker() *linkcheck.Checker {
	return linkcheck.New(
		linkcheck.WithParallelism(a.Config.Check.Parallelism),
		linkcheck.WithTimeout(a.Config.Check.Timeout()),
	)
}

// Watch runs the revalidation watcher until ctx is cancelled or a shutdown
// signal arrives.
func (a *App) Watch(ctx context.Context, cb watcher.Callback) error {
	g, gctx := errgroup.WithContext(ctx)
	wctx, cancel := context.WithCancel(gctx)

	g.Go(func() error {
		defer cancel()
		return watcher.Watch(wctx, a.Engine, a.Store.Root(), a.Config.App.Strict, a.Logger, cb)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			a.Logger.Info("received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-wctx.Done():
		}
		return nil
	})

	return g.Wait()
}
