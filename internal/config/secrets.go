package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Venues.Kalshi.ApiKey)
	redact(&out.Redis.Password)
	redact(&out.Server.ApiKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Scan.Kinds = cloneStrings(cfg.Scan.Kinds)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)

	// Copy maps so mutations to the redacted copy do not affect the original.
	if cfg.Matcher.Aliases != nil {
		out.Matcher.Aliases = make(map[string]string, len(cfg.Matcher.Aliases))
		for k, v := range cfg.Matcher.Aliases {
			out.Matcher.Aliases[k] = v
		}
	}
	if cfg.Funding.PerVenueFeeBps != nil {
		out.Funding.PerVenueFeeBps = make(map[string]float64, len(cfg.Funding.PerVenueFeeBps))
		for k, v := range cfg.Funding.PerVenueFeeBps {
			out.Funding.PerVenueFeeBps[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
