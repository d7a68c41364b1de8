package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/cache/memory"
	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/metrics"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/pipeline"
	"github.com/alanyoungcy/crossarb/internal/platform/dydx"
	"github.com/alanyoungcy/crossarb/internal/platform/hyperliquid"
	"github.com/alanyoungcy/crossarb/internal/platform/kalshi"
	"github.com/alanyoungcy/crossarb/internal/platform/manifold"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/service"
)

// Dependencies bundles everything the modes need. Interface fields are nil
// when the backing feature is disabled.
type Dependencies struct {
	// Redis is nil when redis.enabled is false.
	Redis       *redis.Client
	ReportCache domain.ReportCache
	RateLimiter domain.RateLimiter
	// SignalBus is Redis pub/sub when enabled and in-process otherwise.
	SignalBus domain.SignalBus

	Notifier *notify.Notifier

	// Registry and Metrics are nil when metrics.enabled is false.
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	Engine       *arbitrage.Engine
	Orchestrator *pipeline.Orchestrator
	Scanner      *service.ScanService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Redis = redisClient
		deps.ReportCache = redis.NewReportCache(redisClient, cfg.Redis.ReportTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	} else {
		deps.SignalBus = memory.NewBus()
	}

	// --- Metrics ---
	var observer pipeline.Observer
	var reportObserver service.ReportObserver
	if cfg.Metrics.Enabled {
		deps.Registry = prometheus.NewRegistry()
		deps.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = metrics.New(deps.Registry)
		observer = deps.Metrics
		reportObserver = deps.Metrics
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	var notifier service.Notifier
	if deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}

	// --- Engine ---
	kinds, err := cfg.PriceModels()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	deps.Engine = arbitrage.NewEngine(engineConfig(cfg))

	// --- Venues ---
	fetchers, err := buildFetchers(cfg, kinds, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	deps.Orchestrator = pipeline.NewOrchestrator(fetchers, deps.Engine, pipeline.Config{
		FetchTimeout: cfg.Scan.FetchTimeout.Duration,
		Deadline:     cfg.Scan.Deadline.Duration,
	}, observer, logger)

	// --- Service ---
	deps.Scanner = service.NewScanService(
		deps.Orchestrator,
		deps.ReportCache,
		deps.SignalBus,
		notifier,
		reportObserver,
		service.ScanConfig{
			Kinds:          kinds,
			PerVenueLimit:  cfg.Scan.PerVenueLimit,
			ResultLimit:    cfg.Scan.ResultLimit,
			MaxSnapshotAge: cfg.Scan.MaxSnapshotAge.Duration,
			MinReturn: map[domain.PriceModel]float64{
				domain.PriceModelBinary:  cfg.Binary.MinReturn,
				domain.PriceModelFunding: cfg.Funding.MinReturn,
			},
		},
		logger,
	)

	return deps, cleanup, nil
}

// engineConfig layers configured aliases over the built-in ones.
func engineConfig(cfg *config.Config) arbitrage.EngineConfig {
	ec := arbitrage.DefaultEngineConfig()
	ec.SimilarityThreshold = cfg.Matcher.SimilarityThreshold
	ec.SymbolThreshold = cfg.Matcher.SymbolThreshold
	maps.Copy(ec.Aliases, cfg.Matcher.Aliases)

	ec.Funding.Materiality = cfg.Funding.Materiality
	ec.Funding.PeriodsPerDay = cfg.Funding.PeriodsPerDay
	ec.Funding.NotionalUSD = cfg.Funding.NotionalUSD
	if len(cfg.Funding.PerVenueFeeBps) > 0 {
		ec.Funding.FeeBps = make(map[domain.Venue]float64, len(cfg.Funding.PerVenueFeeBps))
		for venue, bps := range cfg.Funding.PerVenueFeeBps {
			ec.Funding.FeeBps[domain.Venue(strings.ToLower(venue))] = bps
		}
	}
	return ec
}

// buildFetchers creates a fetcher for every enabled venue whose price model
// is scanned.
func buildFetchers(cfg *config.Config, kinds []domain.PriceModel, logger *slog.Logger) ([]pipeline.Fetcher, error) {
	scanned := make(map[domain.PriceModel]bool, len(kinds))
	for _, k := range kinds {
		scanned[k] = true
	}

	var fetchers []pipeline.Fetcher
	v := cfg.Venues

	if scanned[domain.PriceModelBinary] {
		if v.Polymarket.Enabled {
			fetchers = append(fetchers, polymarket.NewFetcher(polymarket.NewGammaClient(v.Polymarket.GammaHost), logger))
		}
		if v.Kalshi.Enabled {
			client := kalshi.NewClient(v.Kalshi.BaseURL, v.Kalshi.ApiKey)
			if v.Kalshi.RsaPrivateKeyPath != "" {
				pemBytes, err := os.ReadFile(v.Kalshi.RsaPrivateKeyPath)
				if err != nil {
					return nil, fmt.Errorf("kalshi: read private key: %w", err)
				}
				if err := client.SetRSAPrivateKey(pemBytes); err != nil {
					return nil, fmt.Errorf("kalshi: %w", err)
				}
			}
			fetchers = append(fetchers, kalshi.NewFetcher(client, strings.ToLower(v.Kalshi.QuoteSide), logger))
		}
		if v.Manifold.Enabled {
			fetchers = append(fetchers, manifold.NewFetcher(nil, logger))
		}
	}

	if scanned[domain.PriceModelFunding] {
		if v.Dydx.Enabled {
			fetchers = append(fetchers, dydx.NewFetcher(dydx.NewClient(v.Dydx.BaseURL), v.Dydx.FundingIntervalHours, cfg.Funding.PeriodsPerDay, logger))
		}
		if v.Hyperliquid.Enabled {
			fetchers = append(fetchers, hyperliquid.NewFetcher(hyperliquid.NewClient(v.Hyperliquid.BaseURL), v.Hyperliquid.FundingIntervalHours, cfg.Funding.PeriodsPerDay, logger))
		}
	}

	return fetchers, nil
}
