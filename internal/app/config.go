package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:"127.0.0.1:8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"25s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	KompelloBaseURL string        `envconfig:"KOMPELLO_BASE_URL" default:"http://127.0.0.1:8000"`
	KompelloTimeout time.Duration `envconfig:"KOMPELLO_TIMEOUT" default:"10s"`

	AuthCheckTimeout  time.Duration `envconfig:"AUTH_CHECK_TIMEOUT" default:"10s"`
	AuthSettleTimeout time.Duration `envconfig:"AUTH_SETTLE_TIMEOUT" default:"2s"`
	AuthPollInterval  time.Duration `envconfig:"AUTH_POLL_INTERVAL" default:"5m"`

	DefaultLocale string `envconfig:"DEFAULT_LOCALE" default:"en"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	u, err := url.Parse(c.KompelloBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("KOMPELLO_BASE_URL must be an absolute URL, got %q", c.KompelloBaseURL)
	}
	if c.AuthCheckTimeout <= 0 {
		return errors.New("AUTH_CHECK_TIMEOUT must be positive")
	}
	if c.AuthSettleTimeout < 0 || c.AuthPollInterval < 0 {
		return errors.New("AUTH_SETTLE_TIMEOUT and AUTH_POLL_INTERVAL must not be negative")
	}
	return nil
}

// IsProduction returns true when the console runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
