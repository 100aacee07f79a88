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
// built-in defaults, applies PREDICTBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDICTBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PREDICTBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.Address, "PREDICTBOT_WALLET_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PREDICTBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PREDICTBOT_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "PREDICTBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "PREDICTBOT_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "PREDICTBOT_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.WsHost, "PREDICTBOT_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "PREDICTBOT_POLYMARKET_CHAIN_ID")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "PREDICTBOT_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.ApiKeyID, "PREDICTBOT_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "PREDICTBOT_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "PREDICTBOT_KALSHI_BASE_URL")

	// ── AI ──
	setStr(&cfg.AI.Primary, "PREDICTBOT_AI_PRIMARY")
	setStr(&cfg.AI.Fallback, "PREDICTBOT_AI_FALLBACK")
	setStr(&cfg.AI.GrokApiKey, "PREDICTBOT_AI_GROK_API_KEY")
	setStr(&cfg.AI.GrokModel, "PREDICTBOT_AI_GROK_MODEL")
	setStr(&cfg.AI.OpenAIApiKey, "PREDICTBOT_AI_OPENAI_API_KEY")
	setStr(&cfg.AI.OpenAIModel, "PREDICTBOT_AI_OPENAI_MODEL")
	setInt(&cfg.AI.RateLimit, "PREDICTBOT_AI_RATE_LIMIT")
	setDuration(&cfg.AI.RateWindow, "PREDICTBOT_AI_RATE_WINDOW")

	// ── Research ──
	setBool(&cfg.Research.Enabled, "PREDICTBOT_RESEARCH_ENABLED")
	setStr(&cfg.Research.ApiURL, "PREDICTBOT_RESEARCH_API_URL")
	setStr(&cfg.Research.ApiKey, "PREDICTBOT_RESEARCH_API_KEY")

	// ── Resilience ──
	setInt(&cfg.Resilience.MaxAttempts, "PREDICTBOT_RESILIENCE_MAX_ATTEMPTS")
	setDuration(&cfg.Resilience.BaseDelay, "PREDICTBOT_RESILIENCE_BASE_DELAY")
	setDuration(&cfg.Resilience.MaxDelay, "PREDICTBOT_RESILIENCE_MAX_DELAY")
	setDuration(&cfg.Resilience.Timeout, "PREDICTBOT_RESILIENCE_TIMEOUT")

	// ── Cycle ──
	setDuration(&cfg.Cycle.Duration, "PREDICTBOT_CYCLE_DURATION")
	setDuration(&cfg.Cycle.Tolerance, "PREDICTBOT_CYCLE_TOLERANCE")
	setStr(&cfg.Cycle.SeriesPrefix, "PREDICTBOT_CYCLE_SERIES_PREFIX")

	// ── Strategy ──
	setStr(&cfg.Strategy.Mode, "PREDICTBOT_STRATEGY_MODE")
	setFloat64(&cfg.Strategy.Bankroll, "PREDICTBOT_STRATEGY_BANKROLL")
	setInt(&cfg.Strategy.Levels, "PREDICTBOT_STRATEGY_LEVELS")
	setFloat64(&cfg.Strategy.Taper, "PREDICTBOT_STRATEGY_TAPER")
	setFloat64(&cfg.Strategy.Step, "PREDICTBOT_STRATEGY_STEP")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PREDICTBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PREDICTBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDICTBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PREDICTBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PREDICTBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PREDICTBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PREDICTBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "PREDICTBOT_S3_RETENTION_DAYS")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDICTBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDICTBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PREDICTBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PREDICTBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PREDICTBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PREDICTBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PREDICTBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PREDICTBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PREDICTBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDICTBOT_MODE")
	setStr(&cfg.LogLevel, "PREDICTBOT_LOG_LEVEL")
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
