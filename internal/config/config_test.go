package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MARKET_AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "market.db", cfg.Database.Path)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30, cfg.Auth.AccessTokenMinutes)
	assert.Equal(t, 10080, cfg.Auth.RefreshTokenMinutes)
	assert.Equal(t, "stripe", cfg.Payments.Provider)
	assert.Equal(t, "whsec_mock", cfg.Payments.MockWebhookSecret)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("MARKET_AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKET_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("MARKET_ENVIRONMENT", "production")
	t.Setenv("MARKET_SERVER_PORT", "9090")
	t.Setenv("MARKET_DATABASE_PATH", "/tmp/market-test.db")
	t.Setenv("MARKET_PAYMENTS_PROVIDER", "mock")
	t.Setenv("MARKET_AUTH_ACCESS_TOKEN_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/market-test.db", cfg.Database.Path)
	assert.Equal(t, "mock", cfg.Payments.Provider)
	assert.Equal(t, 15, cfg.Auth.AccessTokenMinutes)
}
