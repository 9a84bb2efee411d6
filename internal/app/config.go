package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-identity/internal/credentials"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/kv"
	"github.com/odyssey-erp/odyssey-identity/internal/users"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":3000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	RedisMaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisDialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	RedisWriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"12"`

	// PGDSN enables the product catalog when set.
	PGDSN string `envconfig:"PG_DSN"`

	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimitGlobal   int           `envconfig:"RATE_LIMIT_GLOBAL" default:"120"`
	RateLimitRegister int           `envconfig:"RATE_LIMIT_REGISTER" default:"3"`
	RateLimitVerify   int           `envconfig:"RATE_LIMIT_VERIFY" default:"5"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	AuditCron        string `envconfig:"AUDIT_CRON" default:"0 3 * * *"`
	AuditConcurrency int    `envconfig:"AUDIT_CONCURRENCY" default:"8"`

	// WorkerMetricsAddr serves the worker's /metrics; empty disables it.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
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
	if c.RedisAddr == "" {
		return errors.New("redis address must be provided")
	}
	if c.BcryptCost < credentials.DefaultCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", credentials.DefaultCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.RedisMaxRetries > kv.MaxRetriesCap {
		return fmt.Errorf("redis max retries must not exceed %d, got %d", kv.MaxRetriesCap, c.RedisMaxRetries)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis db must not be negative, got %d", c.RedisDB)
	}
	if c.RateLimitRegister < 0 || c.RateLimitVerify < 0 || c.RateLimitGlobal < 0 {
		return errors.New("rate limits must not be negative")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// RedisOptions maps the Redis settings onto the kv client options.
func (c *Config) RedisOptions() kv.Options {
	return kv.Options{
		Addr:         c.RedisAddr,
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		MaxRetries:   c.RedisMaxRetries,
		DialTimeout:  c.RedisDialTimeout,
		ReadTimeout:  c.RedisReadTimeout,
		WriteTimeout: c.RedisWriteTimeout,
	}
}

// UserRateLimits returns the per-endpoint limits for the user routes.
func (c *Config) UserRateLimits() users.RateLimits {
	return users.RateLimits{
		Register: c.RateLimitRegister,
		Verify:   c.RateLimitVerify,
		Window:   c.RateLimitWindow,
	}
}

// CatalogEnabled reports whether a Postgres DSN was configured.
func (c *Config) CatalogEnabled() bool {
	return c != nil && strings.TrimSpace(c.PGDSN) != ""
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
