package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/predictos/predictbot/internal/ai"
	s3blob "github.com/predictos/predictbot/internal/blob/s3"
	"github.com/predictos/predictbot/internal/cache/redis"
	"github.com/predictos/predictbot/internal/config"
	"github.com/predictos/predictbot/internal/crypto"
	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/marketdata"
	"github.com/predictos/predictbot/internal/notify"
	"github.com/predictos/predictbot/internal/platform/kalshi"
	"github.com/predictos/predictbot/internal/platform/polymarket"
	"github.com/predictos/predictbot/internal/position"
	"github.com/predictos/predictbot/internal/research"
	"github.com/predictos/predictbot/internal/resilience"
	"github.com/predictos/predictbot/internal/service"
	"github.com/predictos/predictbot/internal/store/postgres"
	"github.com/predictos/predictbot/internal/strategy"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Markets  *marketdata.Service
	Analysis *service.AnalysisService
	Trading  *service.TradingService

	Signer      *crypto.Signer // nil when no wallet key is configured
	RateLimiter domain.RateLimiter
	Decisions   domain.DecisionStore
	Archiver    domain.Archiver
	Notifier    *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (market cache + rate limiter) ---
	var marketCache domain.MarketCache
	if cfg.Redis.Enabled {
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

		marketCache = redis.NewMarketCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- PostgreSQL (decision log) ---
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

		deps.Decisions = postgres.NewDecisionStore(pgClient.Pool())
	}

	// --- S3 (cold archive of the decision log) ---
	if cfg.S3.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Decisions)
	}

	// --- Wallet signer ---
	wallet := cfg.Wallet.Address
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}
		signer, err := crypto.NewSigner(keyHex, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
		deps.Signer = signer
		if wallet == "" {
			wallet = signer.Address().Hex()
		}
	}

	// --- Platform adapters ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	data := polymarket.NewDataClient(cfg.Polymarket.DataHost)
	adapters := []marketdata.Adapter{polymarket.NewAdapter(gamma, data)}

	if cfg.Kalshi.Enabled {
		kalshiClient := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKeyID)
		pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: kalshi rsa key: %w", err)
		}
		if err := kalshiClient.SetRSAPrivateKey(pemBytes); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: kalshi rsa key: %w", err)
		}
		adapters = append(adapters, kalshi.NewAdapter(kalshiClient))
	}

	// --- Market resolution ---
	retry := resilience.Config{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BaseDelay:   cfg.Resilience.BaseDelay.Duration,
		MaxDelay:    cfg.Resilience.MaxDelay.Duration,
		Timeout:     cfg.Resilience.Timeout.Duration,
	}
	cycle := marketdata.CycleSpec{
		Duration:  cfg.Cycle.Duration.Duration,
		Tolerance: cfg.Cycle.Tolerance.Duration,
	}
	deps.Markets = marketdata.NewService(adapters, marketCache, retry, cycle, logger)

	// --- AI providers ---
	primary, err := buildProvider(cfg, cfg.AI.Primary)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ai primary: %w", err)
	}
	var fallback ai.Provider
	if cfg.AI.Fallback != "" {
		fallback, err = buildProvider(cfg, cfg.AI.Fallback)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ai fallback: %w", err)
		}
	}

	var researchClient *research.Client
	if cfg.Research.Enabled {
		researchClient = research.NewClient(cfg.Research.ApiURL, cfg.Research.ApiKey)
	}

	// --- Services ---
	deps.Analysis = service.NewAnalysisService(service.AnalysisConfig{
		Markets:     deps.Markets,
		Research:    researchClient,
		Primary:     primary,
		Fallback:    fallback,
		PrimaryCfg:  retry,
		FallbackCfg: retry,
		Limiter:     deps.RateLimiter,
		RateLimit:   cfg.AI.RateLimit,
		RateWindow:  cfg.AI.RateWindow.Duration,
		Audit:       deps.Decisions,
		Logger:      logger,
	})

	deps.Trading = service.NewTradingService(service.TradingConfig{
		Markets:      deps.Markets,
		Tracker:      position.NewTracker(),
		Engine:       strategy.NewEngine(logger),
		Signer:       deps.Signer,
		Wallet:       wallet,
		Platform:     domain.PlatformPolymarket,
		SeriesPrefix: cfg.Cycle.SeriesPrefix,
		Audit:        deps.Decisions,
		Logger:       logger,
	})

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
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

// buildProvider constructs an AI provider client by configured name.
func buildProvider(cfg *config.Config, name string) (ai.Provider, error) {
	switch name {
	case "grok":
		return ai.NewGrok(cfg.AI.GrokApiKey, cfg.AI.GrokModel), nil
	case "openai":
		return ai.NewOpenAI(cfg.AI.OpenAIApiKey, cfg.AI.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
