package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0/128, cfg.Desk.ExecutionSpreadPoints(), 1e-12)
	assert.Equal(t, 300*time.Millisecond, cfg.Desk.GUIThrottle.Duration)
}

func TestExampleConfigValidates(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Defaults().Desk, cfg.Desk)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"

[desk]
book_depth = 3
venue = "ESPEED"
gui_throttle = "1s"

[refdata.pv01]
91282CLY5 = 0.2

[redis]
enabled = true
`), 0o644))

	t.Setenv("BONDTRADER_REDIS_ADDR", "cache:6380")
	t.Setenv("BONDTRADER_SERVER_CORS_ORIGINS", " http://a , ,http://b")
	t.Setenv("BONDTRADER_DESK_QUOTE_PRICE", "99.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 3, cfg.Desk.BookDepth)
	assert.Equal(t, "ESPEED", cfg.Desk.Venue)
	assert.Equal(t, time.Second, cfg.Desk.GUIThrottle.Duration)
	assert.Equal(t, 0.2, cfg.Refdata.PV01["91282CLY5"])
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 99.5, cfg.Desk.QuotePrice)
	assert.Equal(t, "trades.txt", cfg.Desk.TradesFile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.LogLevel = "loud"
	cfg.Desk.BookDepth = 0
	cfg.Desk.Venue = "NYSE"
	cfg.Postgres.Enabled = true
	cfg.Postgres.PoolMinConns = 20
	cfg.Telemetry.SampleRatio = 2

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"unknown log_level",
		"book_depth",
		`unknown venue "NYSE"`,
		"pool_min_conns must not exceed",
		"s3: must be enabled for mode archive",
		"sample_ratio",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	assert.ErrorContains(t, cfg.Validate(), `unknown mode "trade"`)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "k"
	cfg.Notify.TelegramToken = "tok"
	cfg.Refdata.Sectors = map[string][]string{"FrontEnd": {"US2Y"}}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Redis.Password)

	out.Refdata.Sectors["FrontEnd"][0] = "US3Y"
	out.Server.CORSOrigins[0] = "x"
	assert.Equal(t, "US2Y", cfg.Refdata.Sectors["FrontEnd"][0])
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
