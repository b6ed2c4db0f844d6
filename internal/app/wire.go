package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/polyarb/arbot/internal/blob/s3"
	"github.com/polyarb/arbot/internal/bot"
	"github.com/polyarb/arbot/internal/cache/redis"
	"github.com/polyarb/arbot/internal/config"
	"github.com/polyarb/arbot/internal/crypto"
	"github.com/polyarb/arbot/internal/detector"
	"github.com/polyarb/arbot/internal/domain"
	"github.com/polyarb/arbot/internal/executor"
	"github.com/polyarb/arbot/internal/feed"
	"github.com/polyarb/arbot/internal/notify"
	"github.com/polyarb/arbot/internal/platform/polymarket"
	"github.com/polyarb/arbot/internal/store/postgres"
)

// Dependencies bundles everything the bot needs to run. Optional
// collaborators stay nil when their backing service is not configured.
type Dependencies struct {
	Venue    domain.Venue
	Detector *detector.Detector
	Engine   *executor.Engine
	Registry *bot.TokenRegistry

	TradeStore  domain.TradeStore
	LockManager domain.LockManager
	QuoteCache  domain.QuoteCache
	Archiver    domain.OpportunityArchiver
	Notifier    *notify.Notifier
	QuoteFeed   *feed.QuoteFeed
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to call on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Registry: bot.NewTokenRegistry(),
	}

	// --- Venue ---
	deps.Venue = polymarket.NewClient(polymarket.Config{
		ClobHost:    cfg.Polymarket.ClobHost,
		GammaHost:   cfg.Polymarket.GammaHost,
		HTTPTimeout: cfg.Polymarket.HTTPTimeout.Duration,
	}, logger)

	// --- PostgreSQL trade history ---
	if cfg.PostgresEnabled() {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())
	}

	// --- Redis lock manager and quote cache ---
	if cfg.RedisEnabled() {
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

		deps.LockManager = redis.NewLockManager(redisClient)
		deps.QuoteCache = redis.NewQuoteCache(redisClient)

		// The feed only exists to keep revalidation quotes fresh.
		if cfg.Trading.RevalidateQuotes {
			deps.QuoteFeed = feed.NewQuoteFeed(cfg.Polymarket.WsHost, deps.QuoteCache, logger)
		}
	}

	// --- S3 opportunity archive ---
	if cfg.S3Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewOpportunityArchiver(s3Client)
	}

	// --- Notifications ---
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders := []notify.Sender{
			notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID),
		}
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- Signer (live trading only; simulation never signs) ---
	var signer executor.OrderSigner
	if cfg.Trading.Enabled {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		s, err := crypto.NewSigner(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
		signer = s
		logger.Info("signer loaded", slog.String("address", s.AddressHex()))
	}

	// --- Core components ---
	deps.Detector = detector.New(deps.Venue, deps.LockManager, detector.Config{
		MinProfitPct:       cfg.Trading.MinProfitPct,
		MaxConcurrentScans: cfg.Trading.MaxConcurrent * 2,
	}, logger)

	deps.Engine = executor.New(
		deps.Venue,
		signer,
		deps.QuoteCache,
		deps.Registry.Resolve,
		executor.Config{
			Simulated:        !cfg.Trading.Enabled,
			RevalidateQuotes: cfg.Trading.RevalidateQuotes,
		},
		logger,
	)

	return deps, cleanup, nil
}
