package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDTRADER_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from BONDTRADER_* variables that
// are set and non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Desk ──
	setStr(&cfg.Desk.PricesFile, "BONDTRADER_DESK_PRICES_FILE")
	setStr(&cfg.Desk.TradesFile, "BONDTRADER_DESK_TRADES_FILE")
	setStr(&cfg.Desk.MarketDataFile, "BONDTRADER_DESK_MARKET_DATA_FILE")
	setStr(&cfg.Desk.InquiriesFile, "BONDTRADER_DESK_INQUIRIES_FILE")
	setStr(&cfg.Desk.OutputDir, "BONDTRADER_DESK_OUTPUT_DIR")
	setInt(&cfg.Desk.BookDepth, "BONDTRADER_DESK_BOOK_DEPTH")
	setInt(&cfg.Desk.ExecutionSpread, "BONDTRADER_DESK_EXECUTION_SPREAD")
	setFloat64(&cfg.Desk.QuotePrice, "BONDTRADER_DESK_QUOTE_PRICE")
	setStr(&cfg.Desk.Venue, "BONDTRADER_DESK_VENUE")
	setDuration(&cfg.Desk.GUIThrottle, "BONDTRADER_DESK_GUI_THROTTLE")
	setDuration(&cfg.Desk.FeedsLockTTL, "BONDTRADER_DESK_FEEDS_LOCK_TTL")

	// ── Simulate ──
	setStr(&cfg.Simulate.Dir, "BONDTRADER_SIMULATE_DIR")
	setStringSlice(&cfg.Simulate.Products, "BONDTRADER_SIMULATE_PRODUCTS")
	setInt(&cfg.Simulate.PricesPerProduct, "BONDTRADER_SIMULATE_PRICES_PER_PRODUCT")
	setInt(&cfg.Simulate.BooksPerProduct, "BONDTRADER_SIMULATE_BOOKS_PER_PRODUCT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BONDTRADER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BONDTRADER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BONDTRADER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BONDTRADER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BONDTRADER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BONDTRADER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BONDTRADER_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "BONDTRADER_REDIS_KEY_PREFIX")
	setBool(&cfg.Redis.BusFeeds, "BONDTRADER_REDIS_BUS_FEEDS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "BONDTRADER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "BONDTRADER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "BONDTRADER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BONDTRADER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BONDTRADER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BONDTRADER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BONDTRADER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BONDTRADER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BONDTRADER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BONDTRADER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BONDTRADER_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BONDTRADER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BONDTRADER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BONDTRADER_S3_REGION")
	setStr(&cfg.S3.Bucket, "BONDTRADER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BONDTRADER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BONDTRADER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BONDTRADER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BONDTRADER_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "BONDTRADER_S3_PREFIX")
	setStr(&cfg.S3.ArchiveDay, "BONDTRADER_S3_ARCHIVE_DAY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BONDTRADER_SERVER_ENABLED")
	setStr(&cfg.Server.Host, "BONDTRADER_SERVER_HOST")
	setInt(&cfg.Server.Port, "BONDTRADER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BONDTRADER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BONDTRADER_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "BONDTRADER_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "BONDTRADER_SERVER_RATE_WINDOW")

	// ── Telemetry ──
	setStr(&cfg.Telemetry.OTLPEndpoint, "BONDTRADER_TELEMETRY_OTLP_ENDPOINT")
	setStr(&cfg.Telemetry.ServiceName, "BONDTRADER_TELEMETRY_SERVICE_NAME")
	setStr(&cfg.Telemetry.Environment, "BONDTRADER_TELEMETRY_ENVIRONMENT")
	setFloat64(&cfg.Telemetry.SampleRatio, "BONDTRADER_TELEMETRY_SAMPLE_RATIO")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BONDTRADER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BONDTRADER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BONDTRADER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BONDTRADER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BONDTRADER_MODE")
	setStr(&cfg.LogLevel, "BONDTRADER_LOG_LEVEL")
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
