package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venues ──
	setBool(&cfg.Venues.Polymarket.Enabled, "CROSSARB_POLYMARKET_ENABLED")
	setStr(&cfg.Venues.Polymarket.GammaHost, "CROSSARB_POLYMARKET_GAMMA_HOST")

	setBool(&cfg.Venues.Kalshi.Enabled, "CROSSARB_KALSHI_ENABLED")
	setStr(&cfg.Venues.Kalshi.BaseURL, "CROSSARB_KALSHI_BASE_URL")
	setStr(&cfg.Venues.Kalshi.ApiKey, "CROSSARB_KALSHI_API_KEY")
	setStr(&cfg.Venues.Kalshi.RsaPrivateKeyPath, "CROSSARB_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Venues.Kalshi.QuoteSide, "CROSSARB_KALSHI_QUOTE_SIDE")

	setBool(&cfg.Venues.Manifold.Enabled, "CROSSARB_MANIFOLD_ENABLED")

	setBool(&cfg.Venues.Dydx.Enabled, "CROSSARB_DYDX_ENABLED")
	setStr(&cfg.Venues.Dydx.BaseURL, "CROSSARB_DYDX_BASE_URL")
	setFloat64(&cfg.Venues.Dydx.FundingIntervalHours, "CROSSARB_DYDX_FUNDING_INTERVAL_HOURS")

	setBool(&cfg.Venues.Hyperliquid.Enabled, "CROSSARB_HYPERLIQUID_ENABLED")
	setStr(&cfg.Venues.Hyperliquid.BaseURL, "CROSSARB_HYPERLIQUID_BASE_URL")
	setFloat64(&cfg.Venues.Hyperliquid.FundingIntervalHours, "CROSSARB_HYPERLIQUID_FUNDING_INTERVAL_HOURS")

	// ── Scan ──
	setStringSlice(&cfg.Scan.Kinds, "CROSSARB_SCAN_KINDS")
	setDuration(&cfg.Scan.FetchTimeout, "CROSSARB_SCAN_FETCH_TIMEOUT")
	setDuration(&cfg.Scan.Deadline, "CROSSARB_SCAN_DEADLINE")
	setDuration(&cfg.Scan.Interval, "CROSSARB_SCAN_INTERVAL")
	setInt(&cfg.Scan.PerVenueLimit, "CROSSARB_SCAN_PER_VENUE_LIMIT")
	setInt(&cfg.Scan.ResultLimit, "CROSSARB_SCAN_RESULT_LIMIT")
	setDuration(&cfg.Scan.MaxSnapshotAge, "CROSSARB_SCAN_MAX_SNAPSHOT_AGE")

	// ── Matcher ──
	setFloat64(&cfg.Matcher.SimilarityThreshold, "CROSSARB_MATCHER_SIMILARITY_THRESHOLD")
	setFloat64(&cfg.Matcher.SymbolThreshold, "CROSSARB_MATCHER_SYMBOL_THRESHOLD")

	// ── Evaluators ──
	setFloat64(&cfg.Binary.MinReturn, "CROSSARB_BINARY_MIN_RETURN")
	setFloat64(&cfg.Funding.Materiality, "CROSSARB_FUNDING_MATERIALITY")
	setFloat64(&cfg.Funding.PeriodsPerDay, "CROSSARB_FUNDING_PERIODS_PER_DAY")
	setFloat64(&cfg.Funding.NotionalUSD, "CROSSARB_FUNDING_NOTIONAL_USD")
	setFloat64(&cfg.Funding.MinReturn, "CROSSARB_FUNDING_MIN_RETURN")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CROSSARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.ReportTTL, "CROSSARB_REDIS_REPORT_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CROSSARB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "CROSSARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CROSSARB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "CROSSARB_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "CROSSARB_METRICS_ENABLED")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
