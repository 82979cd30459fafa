package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***", for logging the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so the redacted copy shares nothing mutable.
	out.Notify.Events = cloneSlice(cfg.Notify.Events)
	out.Server.CORSOrigins = cloneSlice(cfg.Server.CORSOrigins)
	out.Simulate.Products = cloneSlice(cfg.Simulate.Products)
	if cfg.Refdata.PV01 != nil {
		out.Refdata.PV01 = make(map[string]float64, len(cfg.Refdata.PV01))
		for k, v := range cfg.Refdata.PV01 {
			out.Refdata.PV01[k] = v
		}
	}
	if cfg.Refdata.Sectors != nil {
		out.Refdata.Sectors = make(map[string][]string, len(cfg.Refdata.Sectors))
		for k, v := range cfg.Refdata.Sectors {
			out.Refdata.Sectors[k] = cloneSlice(v)
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

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
