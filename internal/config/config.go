package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all runtime settings. It is loaded once at startup and passed
// to the components that need it; nothing reads the environment after Load.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Payments    PaymentsConfig `mapstructure:"payments"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

// DatabaseConfig holds storage settings
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret           string `mapstructure:"jwt_secret" validate:"required"`
	AccessTokenMinutes  int    `mapstructure:"access_token_minutes" validate:"required,min=1"`
	RefreshTokenMinutes int    `mapstructure:"refresh_token_minutes" validate:"required,min=1"`
}

// PaymentsConfig holds payment provider settings. Stripe keys are optional;
// without them the gateway runs in mock mode.
type PaymentsConfig struct {
	Provider            string `mapstructure:"provider" validate:"required"`
	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	MockWebhookSecret   string `mapstructure:"mock_webhook_secret"`
}

// Load reads configuration from MARKET_* environment variables with defaults
// and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "market.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_minutes", 30)
	v.SetDefault("auth.refresh_token_minutes", 10080) // 7 days
	v.SetDefault("payments.provider", "stripe")
	v.SetDefault("payments.stripe_secret_key", "")
	v.SetDefault("payments.stripe_webhook_secret", "")
	v.SetDefault("payments.mock_webhook_secret", "whsec_mock")

	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
