// Package app wires the scanner's dependencies and runs it in the configured
// mode.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/alanyoungcy/crossarb/internal/config"
)

// Run modes accepted in config.mode.
const (
	ModeServer  = "server"
	ModeMonitor = "monitor"
	ModeScan    = "scan"
)

type modeFunc func(ctx context.Context, deps *Dependencies) error

// App runs one mode over the wired dependencies and releases them on Close.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	// out receives scan-mode reports.
	out io.Writer

	cleanup   func()
	closeOnce sync.Once
}

// New creates an App. Scan mode writes its reports to os.Stdout.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		out:    os.Stdout,
	}
}

func (a *App) mode(name string) (modeFunc, bool) {
	switch strings.ToLower(name) {
	case ModeServer:
		return a.ServerMode, true
	case ModeMonitor:
		return a.MonitorMode, true
	case ModeScan:
		return a.ScanMode, true
	}
	return nil, false
}

// Run wires the dependencies and blocks in the configured mode. An unknown
// mode fails before anything is wired.
func (a *App) Run(ctx context.Context) error {
	run, ok := a.mode(a.cfg.Mode)
	if !ok {
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)
	if kinds, err := a.cfg.PriceModels(); err == nil {
		for _, kind := range kinds {
			a.logger.InfoContext(ctx, "venues enabled",
				slog.String("kind", string(kind)),
				slog.Any("venues", a.cfg.EnabledVenues(kind)),
			)
		}
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.cleanup = cleanup

	return run(ctx, deps)
}

// Close releases what Run wired. Only the first call has an effect.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cleanup == nil {
			return
		}
		a.logger.Info("releasing resources")
		a.cleanup()
	})
}
