// Package config defines the top-level configuration for predictbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PREDICTBOT_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	AI         AIConfig         `toml:"ai"`
	Research   ResearchConfig   `toml:"research"`
	Resilience ResilienceConfig `toml:"resilience"`
	Cycle      CycleConfig      `toml:"cycle"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials used for order signing.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	Address          string `toml:"address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	DataHost  string `toml:"data_host"`
	WsHost    string `toml:"ws_host"`
	ChainID   int    `toml:"chain_id"`
}

// KalshiConfig holds Kalshi exchange API credentials.
type KalshiConfig struct {
	Enabled           bool   `toml:"enabled"`
	ApiKeyID          string `toml:"api_key_id"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
}

// AIConfig holds AI provider credentials and retry budgets. Primary and
// Fallback select which provider fills each role.
type AIConfig struct {
	Primary      string `toml:"primary"`
	Fallback     string `toml:"fallback"`
	GrokApiKey   string `toml:"grok_api_key"`
	GrokModel    string `toml:"grok_model"`
	OpenAIApiKey string `toml:"openai_api_key"`
	OpenAIModel  string `toml:"openai_model"`

	// Sliding-window quota on outbound inference calls. Zero disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// ResearchConfig holds the cited-research API parameters.
type ResearchConfig struct {
	Enabled bool   `toml:"enabled"`
	ApiURL  string `toml:"api_url"`
	ApiKey  string `toml:"api_key"`
}

// ResilienceConfig holds the retry budgets applied to upstream calls.
type ResilienceConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   duration `toml:"base_delay"`
	MaxDelay    duration `toml:"max_delay"`
	Timeout     duration `toml:"timeout"`
}

// CycleConfig holds the recurring-market cycle parameters.
type CycleConfig struct {
	Duration     duration `toml:"duration"`
	Tolerance    duration `toml:"tolerance"`
	SeriesPrefix string   `toml:"series_prefix"`
}

// StrategyConfig holds order-planning parameters.
type StrategyConfig struct {
	Mode     string  `toml:"mode"` // "simple" or "ladder"
	Bankroll float64 `toml:"bankroll"`
	Levels   int     `toml:"levels"`
	Taper    float64 `toml:"taper"`
	Step     float64 `toml:"step"`
}

// PostgresConfig holds PostgreSQL connection parameters for the decision log.
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			DataHost:  "https://data-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:   137,
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		AI: AIConfig{
			Primary:     "grok",
			Fallback:    "openai",
			GrokModel:   "grok-beta",
			OpenAIModel: "gpt-4o-mini",
			RateLimit:   30,
			RateWindow:  duration{time.Minute},
		},
		Research: ResearchConfig{
			ApiURL: "https://api.polyfactual.com/v1/research",
		},
		Resilience: ResilienceConfig{
			MaxAttempts: 3,
			BaseDelay:   duration{250 * time.Millisecond},
			MaxDelay:    duration{5 * time.Second},
			Timeout:     duration{30 * time.Second},
		},
		Cycle: CycleConfig{
			Duration:     duration{15 * time.Minute},
			Tolerance:    duration{90 * time.Second},
			SeriesPrefix: "btc-up-or-down",
		},
		Strategy: StrategyConfig{
			Mode:     "simple",
			Bankroll: 100.0,
			Levels:   3,
			Taper:    0.5,
			Step:     0.02,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "predictbot-data",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"assessment", "order_plan", "error"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"watch": true,
	"plan":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validProviders enumerates the accepted AI provider names.
var validProviders = map[string]bool{
	"grok":   true,
	"openai": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, watch, plan)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — only the plan mode signs orders; elsewhere a wallet address
	// alone is enough to query holdings.
	if c.Mode == "plan" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode plan")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}

	if c.Kalshi.Enabled {
		if c.Kalshi.ApiKeyID == "" {
			errs = append(errs, "kalshi: api_key_id is required when kalshi is enabled")
		}
		if c.Kalshi.RsaPrivateKeyPath == "" {
			errs = append(errs, "kalshi: rsa_private_key_path is required when kalshi is enabled")
		}
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
	}

	// AI — the primary provider must have a key; the fallback is optional
	// but must be keyed when named.
	if !validProviders[c.AI.Primary] {
		errs = append(errs, fmt.Sprintf("ai: unknown primary provider %q (valid: grok, openai)", c.AI.Primary))
	}
	if c.AI.Fallback != "" && !validProviders[c.AI.Fallback] {
		errs = append(errs, fmt.Sprintf("ai: unknown fallback provider %q (valid: grok, openai)", c.AI.Fallback))
	}
	if c.AI.Primary == c.AI.Fallback {
		errs = append(errs, "ai: primary and fallback must differ")
	}
	if key := c.providerKey(c.AI.Primary); key == "" {
		errs = append(errs, fmt.Sprintf("ai: missing API key for primary provider %q", c.AI.Primary))
	}
	if c.AI.Fallback != "" {
		if key := c.providerKey(c.AI.Fallback); key == "" {
			errs = append(errs, fmt.Sprintf("ai: missing API key for fallback provider %q", c.AI.Fallback))
		}
	}

	if c.Research.Enabled && c.Research.ApiKey == "" {
		errs = append(errs, "research: api_key is required when research is enabled")
	}

	if c.Resilience.MaxAttempts < 1 {
		errs = append(errs, "resilience: max_attempts must be >= 1")
	}
	if c.Resilience.BaseDelay.Duration <= 0 {
		errs = append(errs, "resilience: base_delay must be > 0")
	}
	if c.Resilience.MaxDelay.Duration < c.Resilience.BaseDelay.Duration {
		errs = append(errs, "resilience: max_delay must be >= base_delay")
	}

	if c.Cycle.Duration.Duration <= 0 {
		errs = append(errs, "cycle: duration must be > 0")
	}
	if c.Cycle.Tolerance.Duration <= 0 || c.Cycle.Tolerance.Duration >= c.Cycle.Duration.Duration {
		errs = append(errs, "cycle: tolerance must be > 0 and shorter than the cycle duration")
	}
	if c.Cycle.SeriesPrefix == "" {
		errs = append(errs, "cycle: series_prefix must not be empty")
	}

	if c.Strategy.Mode != "simple" && c.Strategy.Mode != "ladder" {
		errs = append(errs, fmt.Sprintf("strategy: mode must be \"simple\" or \"ladder\", got %q", c.Strategy.Mode))
	}
	if c.Strategy.Bankroll <= 0 {
		errs = append(errs, "strategy: bankroll must be > 0")
	}
	if c.Strategy.Levels < 1 {
		errs = append(errs, "strategy: levels must be >= 1")
	}
	if c.Strategy.Taper <= 0 || c.Strategy.Taper >= 1 {
		errs = append(errs, "strategy: taper must be in (0, 1)")
	}
	if c.Strategy.Step <= 0 {
		errs = append(errs, "strategy: step must be > 0")
	}

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
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiving requires postgres to be enabled")
		}
	}

	if c.Mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// providerKey returns the configured API key for a provider name, or "".
func (c *Config) providerKey(name string) string {
	switch name {
	case "grok":
		return c.AI.GrokApiKey
	case "openai":
		return c.AI.OpenAIApiKey
	}
	return ""
}
