package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossarb.toml")
	body := `
mode = "scan"

[scan]
kinds = ["binary"]
fetch_timeout = "5s"
per_venue_limit = 25

[matcher]
similarity_threshold = 0.8

[matcher.aliases]
"fed" = "federal reserve"

[funding.per_venue_fee_bps]
dydx = 2.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Mode != "scan" {
		t.Errorf("expected mode scan, got %s", cfg.Mode)
	}
	if cfg.Scan.FetchTimeout.Duration != 5*time.Second {
		t.Errorf("expected fetch_timeout 5s, got %v", cfg.Scan.FetchTimeout.Duration)
	}
	if cfg.Scan.Deadline.Duration != 45*time.Second {
		t.Errorf("expected default deadline 45s, got %v", cfg.Scan.Deadline.Duration)
	}
	if cfg.Scan.PerVenueLimit != 25 {
		t.Errorf("expected per_venue_limit 25, got %d", cfg.Scan.PerVenueLimit)
	}
	if cfg.Matcher.SimilarityThreshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", cfg.Matcher.SimilarityThreshold)
	}
	if cfg.Matcher.Aliases["fed"] != "federal reserve" {
		t.Errorf("expected alias to be decoded, got %v", cfg.Matcher.Aliases)
	}
	if cfg.Funding.PerVenueFeeBps["dydx"] != 2.5 {
		t.Errorf("expected dydx fee 2.5, got %v", cfg.Funding.PerVenueFeeBps)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CROSSARB_MODE", "monitor")
	t.Setenv("CROSSARB_SCAN_KINDS", " funding , ")
	t.Setenv("CROSSARB_SCAN_INTERVAL", "2m")
	t.Setenv("CROSSARB_MATCHER_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("CROSSARB_REDIS_ENABLED", "true")
	t.Setenv("CROSSARB_SERVER_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Mode != "monitor" {
		t.Errorf("expected mode monitor, got %s", cfg.Mode)
	}
	if len(cfg.Scan.Kinds) != 1 || cfg.Scan.Kinds[0] != "funding" {
		t.Errorf("expected kinds [funding], got %v", cfg.Scan.Kinds)
	}
	if cfg.Scan.Interval.Duration != 2*time.Minute {
		t.Errorf("expected interval 2m, got %v", cfg.Scan.Interval.Duration)
	}
	if cfg.Matcher.SimilarityThreshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", cfg.Matcher.SimilarityThreshold)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected unparsable port to keep default, got %d", cfg.Server.Port)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Scan.Kinds = []string{"binary", "options"}
	cfg.Matcher.SimilarityThreshold = 0
	cfg.Funding.PeriodsPerDay = 0
	cfg.Venues.Kalshi.QuoteSide = "mid"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "scan:", "similarity_threshold", "periods_per_day", "quote_side"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestValidate_KindNeedsTwoVenues(t *testing.T) {
	cfg := Defaults()
	cfg.Venues.Dydx.Enabled = false

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `kind "funding"`) {
		t.Errorf("expected funding venue error, got %v", err)
	}

	cfg.Scan.Kinds = []string{"binary"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected binary-only config to validate, got %v", err)
	}
}

func TestValidate_RedisFieldsOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled redis to be ignored, got %v", err)
	}
	cfg.Redis.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty redis addr")
	}
}

func TestPriceModels_Dedupes(t *testing.T) {
	cfg := Defaults()
	cfg.Scan.Kinds = []string{"binary", "BINARY", "funding"}
	models, err := cfg.PriceModels()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(models) != 2 || models[0] != domain.PriceModelBinary || models[1] != domain.PriceModelFunding {
		t.Errorf("expected [binary funding], got %v", models)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Venues.Kalshi.ApiKey = "key-id"
	cfg.Redis.Password = "hunter2"
	cfg.Notify.TelegramToken = "tg"
	cfg.Matcher.Aliases = map[string]string{"a": "b"}

	out := RedactedConfig(&cfg)
	if out.Venues.Kalshi.ApiKey != redacted || out.Redis.Password != redacted || out.Notify.TelegramToken != redacted {
		t.Errorf("expected secrets redacted, got %+v", out)
	}
	if out.Server.ApiKey != "" {
		t.Errorf("expected empty secret to stay empty, got %q", out.Server.ApiKey)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Error("expected original config to be untouched")
	}

	out.Matcher.Aliases["a"] = "changed"
	out.Scan.Kinds[0] = "changed"
	if cfg.Matcher.Aliases["a"] != "b" || cfg.Scan.Kinds[0] != "binary" {
		t.Error("expected redacted copy to own its maps and slices")
	}
}
