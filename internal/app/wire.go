package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/bondtrader/internal/blob/s3"
	"github.com/alanyoungcy/bondtrader/internal/cache/redis"
	"github.com/alanyoungcy/bondtrader/internal/config"
	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/notify"
	"github.com/alanyoungcy/bondtrader/internal/refdata"
	"github.com/alanyoungcy/bondtrader/internal/server/handler"
	"github.com/alanyoungcy/bondtrader/internal/store/postgres"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// Dependencies bundles the infrastructure the desk optionally runs with.
// Every field except Refdata and Notifier may be nil.
type Dependencies struct {
	Refdata *refdata.Static

	// Redis
	SignalBus   domain.SignalBus
	BookCache   domain.BookCache
	QuoteCache  domain.QuoteCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Postgres
	HistoryStore  domain.HistoryStore
	PositionStore domain.PositionStore
	TradeStore    domain.TradeStore

	// Object storage
	BlobWriter domain.BlobWriter
	ArchiveReader domain.ArchiveReader
	Archiver   domain.Archiver
	BlobPrefix string

	Notifier *notify.Notifier

	// Checks feeds /api/health, one entry per connected dependency.
	Checks map[string]handler.Check
}

// Infrastructure reports which optional dependencies are connected.
func (d *Dependencies) Infrastructure() map[string]bool {
	return map[string]bool{
		"redis":    d.SignalBus != nil,
		"postgres": d.HistoryStore != nil,
		"s3":       d.BlobWriter != nil,
		"notify":   d.Notifier != nil && d.Notifier.Enabled(),
	}
}

// Wire constructs the enabled infrastructure and returns it together with a
// cleanup function releasing it in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Checks: map[string]handler.Check{}}

	ref, err := refdata.NewStatic(refdata.Options{
		PV01:    cfg.Refdata.PV01,
		Sectors: cfg.Refdata.Sectors,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: refdata: %w", err))
	}
	deps.Refdata = ref

	// --- Tracing ---
	shutdown, err := telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: tracing: %w", err))
	}
	closers = append(closers, func() { _ = shutdown(context.Background()) })

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
		deps.BookCache = redis.NewBookCache(redisClient)
		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Checks["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "wire: redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.HistoryStore = postgres.NewHistoryStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.Checks["postgres"] = pgClient.Ping
		logger.InfoContext(ctx, "wire: postgres connected")
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}

		writer := s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobWriter = writer
		deps.ArchiveReader = reader
		deps.Archiver = s3blob.NewArchiver(writer, s3blob.ArchiverConfig{
			Prefix:   s3Client.Prefix(),
			Existing: reader,
		}, logger)
		deps.BlobPrefix = s3Client.Prefix() + s3blob.HistoryRoot + "/"
		deps.Checks["s3"] = s3Client.Health
		logger.InfoContext(ctx, "wire: s3 configured", slog.String("bucket", cfg.S3.Bucket))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPI,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
