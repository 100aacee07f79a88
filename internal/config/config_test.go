package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "plan"

[cycle]
duration = "15m"
series_prefix = "eth-up-or-down"

[strategy]
bankroll = 250.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "plan", cfg.Mode)
	assert.Equal(t, "eth-up-or-down", cfg.Cycle.SeriesPrefix)
	assert.InDelta(t, 250.0, cfg.Strategy.Bankroll, 1e-9)

	// Untouched sections keep their defaults.
	assert.Equal(t, 15*time.Minute, cfg.Cycle.Duration.Duration)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
	assert.Equal(t, "grok", cfg.AI.Primary)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTBOT_AI_GROK_API_KEY", "env-key")
	t.Setenv("PREDICTBOT_STRATEGY_MODE", "ladder")
	t.Setenv("PREDICTBOT_RESILIENCE_BASE_DELAY", "100ms")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.AI.GrokApiKey)
	assert.Equal(t, "ladder", cfg.Strategy.Mode)
	assert.Equal(t, 100*time.Millisecond, cfg.Resilience.BaseDelay.Duration)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.AI.GrokApiKey = "k" // satisfy the primary-provider key check
	cfg.Cycle.Tolerance.Duration = cfg.Cycle.Duration.Duration
	cfg.Strategy.Taper = 1.5
	cfg.Mode = "magical"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle: tolerance")
	assert.Contains(t, err.Error(), "strategy: taper")
	assert.Contains(t, err.Error(), "mode")
}

func TestValidatePlanModeRequiresWalletKey(t *testing.T) {
	cfg := Defaults()
	cfg.AI.GrokApiKey = "k"
	cfg.AI.OpenAIApiKey = "k"
	cfg.Mode = "plan"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.AI.GrokApiKey = "grok-secret"
	cfg.Postgres.Password = "pg-secret"

	redacted := RedactedConfig(&cfg)

	assert.NotContains(t, redacted.Wallet.PrivateKey, "deadbeef")
	assert.NotContains(t, redacted.AI.GrokApiKey, "secret")
	assert.NotContains(t, redacted.Postgres.Password, "secret")

	// The original is untouched.
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
}
