package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// ServerMode runs the periodic scan together with the HTTP API, the
// WebSocket hub and /metrics.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Scanner.RunLoop(ctx, a.cfg.Scan.Interval.Duration)
	})

	hub := ws.NewHub(deps.SignalBus, ws.Config{
		Mode:      a.cfg.Mode,
		Kinds:     deps.Scanner.Kinds(),
		StartedAt: time.Now().UTC(),
	}, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// MonitorMode runs the periodic scan with notifications and no HTTP surface.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
	)
	if !deps.Notifier.Enabled() {
		a.logger.WarnContext(ctx, "monitor mode without notification channels; opportunities are only logged")
	}
	return deps.Scanner.RunLoop(ctx, a.cfg.Scan.Interval.Duration)
}

// ScanMode scans every enabled kind once and writes the reports to the
// app's output as JSON.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting one-shot scan")

	reports := deps.Scanner.ScanAll(ctx)

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"reports": reports}); err != nil {
		return fmt.Errorf("scan mode: write reports: %w", err)
	}
	return nil
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	var pinger handler.Pinger
	if deps.Redis != nil {
		pinger = deps.Redis
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(pinger, deps.Scanner.Kinds(), a.logger),
		Arb:     handler.NewArbHandler(deps.Scanner, a.logger),
		Markets: handler.NewMarketHandler(deps.Scanner, a.logger),
	}
	if deps.Registry != nil {
		handlers.Metrics = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.ApiKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
