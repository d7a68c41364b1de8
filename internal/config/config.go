// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Venues   VenuesConfig  `toml:"venues"`
	Scan     ScanConfig    `toml:"scan"`
	Matcher  MatcherConfig `toml:"matcher"`
	Binary   BinaryConfig  `toml:"binary"`
	Funding  FundingConfig `toml:"funding"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	Metrics  MetricsConfig `toml:"metrics"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// VenuesConfig enables and locates each venue.
type VenuesConfig struct {
	Polymarket  PolymarketConfig  `toml:"polymarket"`
	Kalshi      KalshiConfig      `toml:"kalshi"`
	Manifold    ManifoldConfig    `toml:"manifold"`
	Dydx        DydxConfig        `toml:"dydx"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
}

// PolymarketConfig holds the Gamma API endpoint.
type PolymarketConfig struct {
	Enabled   bool   `toml:"enabled"`
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds Kalshi exchange API credentials. Market data is public;
// the key pair is only needed for signed access.
type KalshiConfig struct {
	Enabled           bool   `toml:"enabled"`
	BaseURL           string `toml:"base_url"`
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	// QuoteSide is "ask" (the price to buy) or "bid".
	QuoteSide string `toml:"quote_side"`
}

// ManifoldConfig toggles the Manifold venue. The mango client reads its own
// API key from the environment.
type ManifoldConfig struct {
	Enabled bool `toml:"enabled"`
}

// DydxConfig holds the dYdX indexer endpoint and its funding cadence.
type DydxConfig struct {
	Enabled              bool    `toml:"enabled"`
	BaseURL              string  `toml:"base_url"`
	FundingIntervalHours float64 `toml:"funding_interval_hours"`
}

// HyperliquidConfig holds the Hyperliquid API endpoint and its funding
// cadence.
type HyperliquidConfig struct {
	Enabled              bool    `toml:"enabled"`
	BaseURL              string  `toml:"base_url"`
	FundingIntervalHours float64 `toml:"funding_interval_hours"`
}

// ScanConfig controls collection and the default evaluation parameters.
type ScanConfig struct {
	Kinds          []string `toml:"kinds"`
	FetchTimeout   duration `toml:"fetch_timeout"`
	Deadline       duration `toml:"deadline"`
	Interval       duration `toml:"interval"`
	PerVenueLimit  int      `toml:"per_venue_limit"`
	ResultLimit    int      `toml:"result_limit"`
	MaxSnapshotAge duration `toml:"max_snapshot_age"`
}

// MatcherConfig holds the entity matching thresholds.
type MatcherConfig struct {
	SimilarityThreshold float64           `toml:"similarity_threshold"`
	SymbolThreshold     float64           `toml:"symbol_threshold"`
	Aliases             map[string]string `toml:"aliases"`
}

// BinaryConfig holds binary-outcome evaluation parameters.
type BinaryConfig struct {
	// MinReturn is the minimum expected return in percent.
	MinReturn float64 `toml:"min_return"`
}

// FundingConfig holds funding-rate evaluation parameters.
type FundingConfig struct {
	Materiality    float64            `toml:"materiality"`
	PeriodsPerDay  float64            `toml:"periods_per_day"`
	NotionalUSD    float64            `toml:"notional_usd"`
	PerVenueFeeBps map[string]float64 `toml:"per_venue_fee_bps"`
	// MinReturn is the minimum estimated periodic profit, as a fraction.
	MinReturn float64 `toml:"min_return"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	ReportTTL  duration `toml:"report_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// ApiKey protects the API when set.
	ApiKey string `toml:"api_key"`
	// RateLimit is the number of requests per RateWindow per client IP. Zero
	// disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig toggles the Prometheus registry and /metrics.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: VenuesConfig{
			Polymarket: PolymarketConfig{
				Enabled:   true,
				GammaHost: "https://gamma-api.polymarket.com",
			},
			Kalshi: KalshiConfig{
				Enabled:   true,
				BaseURL:   "https://api.elections.kalshi.com/trade-api/v2",
				QuoteSide: "ask",
			},
			Manifold: ManifoldConfig{Enabled: true},
			Dydx: DydxConfig{
				Enabled:              true,
				BaseURL:              "https://indexer.dydx.trade",
				FundingIntervalHours: 1,
			},
			Hyperliquid: HyperliquidConfig{
				Enabled:              true,
				BaseURL:              "https://api.hyperliquid.xyz",
				FundingIntervalHours: 1,
			},
		},
		Scan: ScanConfig{
			Kinds:          []string{"binary", "funding"},
			FetchTimeout:   duration{30 * time.Second},
			Deadline:       duration{45 * time.Second},
			Interval:       duration{time.Minute},
			PerVenueLimit:  100,
			ResultLimit:    20,
			MaxSnapshotAge: duration{time.Minute},
		},
		Matcher: MatcherConfig{
			SimilarityThreshold: 0.75,
			SymbolThreshold:     1.0,
		},
		Binary: BinaryConfig{
			MinReturn: 1.0,
		},
		Funding: FundingConfig{
			Materiality:   0.0001,
			PeriodsPerDay: 3,
			NotionalUSD:   10000,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			ReportTTL:  duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected"},
		},
		Metrics: MetricsConfig{Enabled: true},
		Mode:     "server",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"scan":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// PriceModels parses Scan.Kinds, dropping duplicates.
func (c *Config) PriceModels() ([]domain.PriceModel, error) {
	seen := make(map[domain.PriceModel]bool)
	var out []domain.PriceModel
	for _, k := range c.Scan.Kinds {
		m, err := domain.ParsePriceModel(k)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// EnabledVenues returns the enabled venues serving a price model.
func (c *Config) EnabledVenues(model domain.PriceModel) []domain.Venue {
	var out []domain.Venue
	switch model {
	case domain.PriceModelBinary:
		if c.Venues.Polymarket.Enabled {
			out = append(out, domain.VenuePolymarket)
		}
		if c.Venues.Kalshi.Enabled {
			out = append(out, domain.VenueKalshi)
		}
		if c.Venues.Manifold.Enabled {
			out = append(out, domain.VenueManifold)
		}
	case domain.PriceModelFunding:
		if c.Venues.Dydx.Enabled {
			out = append(out, domain.VenueDydx)
		}
		if c.Venues.Hyperliquid.Enabled {
			out = append(out, domain.VenueHyperliquid)
		}
	}
	return out
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, scan)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scan
	models, err := c.PriceModels()
	switch {
	case err != nil:
		errs = append(errs, "scan: "+err.Error())
	case len(models) == 0:
		errs = append(errs, "scan: kinds must list at least one of binary, funding")
	}
	for _, m := range models {
		if n := len(c.EnabledVenues(m)); n < 2 {
			errs = append(errs, fmt.Sprintf("scan: kind %q needs at least two enabled venues, got %d", m, n))
		}
	}
	if c.Scan.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scan: fetch_timeout must be > 0")
	}
	if c.Scan.Deadline.Duration <= 0 {
		errs = append(errs, "scan: deadline must be > 0")
	}
	if c.Mode != "scan" && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 for mode "+c.Mode)
	}
	if c.Scan.PerVenueLimit < 1 {
		errs = append(errs, "scan: per_venue_limit must be >= 1")
	}
	if c.Scan.ResultLimit < 0 {
		errs = append(errs, "scan: result_limit must be >= 0")
	}
	if c.Scan.MaxSnapshotAge.Duration < 0 {
		errs = append(errs, "scan: max_snapshot_age must be >= 0")
	}

	// Matcher
	if c.Matcher.SimilarityThreshold <= 0 || c.Matcher.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Sprintf("matcher: similarity_threshold must be in (0, 1], got %v", c.Matcher.SimilarityThreshold))
	}
	if c.Matcher.SymbolThreshold <= 0 || c.Matcher.SymbolThreshold > 1 {
		errs = append(errs, fmt.Sprintf("matcher: symbol_threshold must be in (0, 1], got %v", c.Matcher.SymbolThreshold))
	}

	// Funding
	if c.Funding.Materiality < 0 {
		errs = append(errs, "funding: materiality must be >= 0")
	}
	if c.Funding.PeriodsPerDay <= 0 {
		errs = append(errs, "funding: periods_per_day must be > 0")
	}
	if c.Funding.NotionalUSD <= 0 {
		errs = append(errs, "funding: notional_usd must be > 0")
	}
	for venue, bps := range c.Funding.PerVenueFeeBps {
		if bps < 0 {
			errs = append(errs, fmt.Sprintf("funding: per_venue_fee_bps[%s] must be >= 0", venue))
		}
	}

	// Venues
	if c.Venues.Kalshi.Enabled {
		if side := strings.ToLower(c.Venues.Kalshi.QuoteSide); side != "ask" && side != "bid" {
			errs = append(errs, fmt.Sprintf("kalshi: quote_side must be ask or bid, got %q", c.Venues.Kalshi.QuoteSide))
		}
		if c.Venues.Kalshi.RsaPrivateKeyPath != "" && c.Venues.Kalshi.ApiKey == "" {
			errs = append(errs, "kalshi: api_key is required when rsa_private_key_path is set")
		}
	}
	if c.Venues.Dydx.Enabled && c.Venues.Dydx.FundingIntervalHours <= 0 {
		errs = append(errs, "dydx: funding_interval_hours must be > 0")
	}
	if c.Venues.Hyperliquid.Enabled && c.Venues.Hyperliquid.FundingIntervalHours <= 0 {
		errs = append(errs, "hyperliquid: funding_interval_hours must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.ReportTTL.Duration <= 0 {
			errs = append(errs, "redis: report_ttl must be > 0")
		}
	}

	// Server
	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
