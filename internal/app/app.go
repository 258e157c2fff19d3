package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/playbookgen/internal/builder"
	"github.com/vk/playbookgen/internal/catalogue"
	"github.com/vk/playbookgen/internal/config"
	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/schema"
)

// App holds the loaded catalogue and the settings every operation shares.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	catalogue *catalogue.Catalogue
	loadErr   error
}

// New configures logging to logW and loads the module catalogue. Modules
// that fail validation are left out and reported by LoadError; only a
// modules directory that cannot be read at all makes New fail.
func New(ctx context.Context, logW io.Writer, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	cat, err := catalogue.Load(ctx, cfg.ModulesPath)
	a := &App{cfg: cfg, logger: logger, catalogue: cat}
	if err != nil {
		var loadErr *catalogue.LoadError
		if !errors.As(err, &loadErr) {
			return nil, fmt.Errorf("failed to load modules: %w", err)
		}
		a.loadErr = loadErr
		logger.Warn("Some modules failed to load and are unavailable.", "failed", len(loadErr.Modules))
	}
	logger.Debug("Catalogue loaded.", "modules_path", cfg.ModulesPath, "modules", cat.Len())
	return a, nil
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Catalogue returns the module catalogue.
func (a *App) Catalogue() *catalogue.Catalogue { return a.catalogue }

// LoadError returns the *catalogue.LoadError from the initial load, or nil.
func (a *App) LoadError() error { return a.loadErr }

// Module looks a module up by name.
func (a *App) Module(name string) (*schema.Module, error) {
	return a.catalogue.Get(name)
}

// NewBuilder returns a builder writing to the configured output directory
// with the configured gather_facts default.
func (a *App) NewBuilder() *builder.Builder {
	return builder.New(a.catalogue,
		builder.WithOutputDir(a.cfg.OutputDir),
		builder.WithGatherFacts(a.cfg.Defaults.GatherFactsOr(true)),
	)
}
