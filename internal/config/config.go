// Package config defines the desk configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BONDTRADER_* environment variables.
type Config struct {
	Desk      DeskConfig      `toml:"desk"`
	Refdata   RefdataConfig   `toml:"refdata"`
	Simulate  SimulateConfig  `toml:"simulate"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DeskConfig holds the core trading-desk parameters.
type DeskConfig struct {
	PricesFile     string `toml:"prices_file"`
	TradesFile     string `toml:"trades_file"`
	MarketDataFile string `toml:"market_data_file"`
	InquiriesFile  string `toml:"inquiries_file"`
	// OutputDir receives the history files and gui.txt.
	OutputDir string `toml:"output_dir"`
	BookDepth int    `toml:"book_depth"`
	// ExecutionSpread is the trigger spread in 1/256 units (2 = 1/128).
	ExecutionSpread int      `toml:"execution_spread"`
	QuotePrice      float64  `toml:"quote_price"`
	Venue           string   `toml:"venue"`
	GUIThrottle     duration `toml:"gui_throttle"`
	// FeedsLockTTL bounds how long one process may hold the feeds lock.
	FeedsLockTTL duration `toml:"feeds_lock_ttl"`
}

// ExecutionSpreadPoints converts ExecutionSpread to a price.
func (d DeskConfig) ExecutionSpreadPoints() float64 {
	return float64(d.ExecutionSpread) / 256.0
}

// RefdataConfig overrides the built-in reference data.
type RefdataConfig struct {
	PV01    map[string]float64  `toml:"pv01"`
	Sectors map[string][]string `toml:"sectors"`
}

// SimulateConfig sizes the generated feeds.
type SimulateConfig struct {
	Dir                 string   `toml:"dir"`
	Products            []string `toml:"products"`
	PricesPerProduct    int      `toml:"prices_per_product"`
	BooksPerProduct     int      `toml:"books_per_product"`
	TradesPerProduct    int      `toml:"trades_per_product"`
	InquiriesPerProduct int      `toml:"inquiries_per_product"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	KeyPrefix    string `toml:"key_prefix"`
	StreamMaxLen int64  `toml:"stream_max_len"`
	// BusFeeds subscribes the desk to desk:input:<feed> channels in serve mode.
	BusFeeds bool `toml:"bus_feeds"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	// ArchiveDay selects the history date label, "YYYY-MM-DD". Empty means today.
	ArchiveDay string `toml:"archive_day"`
}

// duration wraps time.Duration so TOML strings like "300ms" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
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
	Enabled     bool     `toml:"enabled"`
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	ServiceName  string  `toml:"service_name"`
	Environment  string  `toml:"environment"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	TelegramAPI       string   `toml:"telegram_api"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Desk: DeskConfig{
			PricesFile:      "prices.txt",
			TradesFile:      "trades.txt",
			MarketDataFile:  "marketdata.txt",
			InquiriesFile:   "inquiries.txt",
			OutputDir:       "output",
			BookDepth:       5,
			ExecutionSpread: 2,
			QuotePrice:      100,
			Venue:           string(domain.MarketBrokerTec),
			GUIThrottle:     duration{300 * time.Millisecond},
			FeedsLockTTL:    duration{10 * time.Minute},
		},
		Simulate: SimulateConfig{
			Dir: ".",
			Products: []string{
				"91282CLY5", "91282CMB4", "91282CMA6", "91282CLZ2",
				"91282CLW9", "912810UF3", "912810UE6",
			},
			PricesPerProduct:    1000,
			BooksPerProduct:     1000,
			TradesPerProduct:    10,
			InquiriesPerProduct: 10,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			KeyPrefix:    "bondtrader",
			StreamMaxLen: 10000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bondtrader",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bondtrader-history",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   50,
			RateWindow:  duration{time.Second},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bondtrader",
			Environment: "dev",
			SampleRatio: 1,
		},
		Notify: NotifyConfig{
			Events: []string{"execution", "inquiry_done", "inquiry_rejected"},
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":      true,
	"serve":    true,
	"generate": true,
	"archive":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, serve, generate, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Desk
	if c.Desk.BookDepth < 1 {
		errs = append(errs, "desk: book_depth must be >= 1")
	}
	if c.Desk.ExecutionSpread < 1 {
		errs = append(errs, "desk: execution_spread must be >= 1 (1/256 units)")
	}
	if c.Desk.QuotePrice <= 0 {
		errs = append(errs, "desk: quote_price must be > 0")
	}
	if _, err := domain.ParseMarket(c.Desk.Venue); err != nil {
		errs = append(errs, fmt.Sprintf("desk: unknown venue %q", c.Desk.Venue))
	}
	if c.Desk.GUIThrottle.Duration < 0 {
		errs = append(errs, "desk: gui_throttle must not be negative")
	}
	if mode == "run" || mode == "serve" {
		for _, f := range []struct{ name, path string }{
			{"prices_file", c.Desk.PricesFile},
			{"trades_file", c.Desk.TradesFile},
			{"market_data_file", c.Desk.MarketDataFile},
			{"inquiries_file", c.Desk.InquiriesFile},
		} {
			if strings.TrimSpace(f.path) == "" {
				errs = append(errs, "desk: "+f.name+" must not be empty")
			}
		}
	}

	// Simulate
	if mode == "generate" && len(c.Simulate.Products) == 0 {
		errs = append(errs, "simulate: products must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled || mode == "archive" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if mode == "archive" && !c.S3.Enabled {
		errs = append(errs, "s3: must be enabled for mode archive")
	}
	if c.S3.ArchiveDay != "" {
		if _, err := time.Parse(time.DateOnly, c.S3.ArchiveDay); err != nil {
			errs = append(errs, fmt.Sprintf("s3: archive_day %q is not YYYY-MM-DD", c.S3.ArchiveDay))
		}
	}

	// Server
	if c.Server.Enabled && mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	// Telemetry
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, "telemetry: sample_ratio must be within [0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
