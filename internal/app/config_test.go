package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.AppAddr)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisMaxRetries)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 3, cfg.RateLimitRegister)
	assert.Equal(t, 5, cfg.RateLimitVerify)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "0 3 * * *", cfg.AuditCron)
	assert.False(t, cfg.CatalogEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_MAX_RETRIES", "-1")
	t.Setenv("BCRYPT_COST", "14")
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/catalog")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CatalogEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	opts := cfg.RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, -1, opts.MaxRetries)

	limits := cfg.UserRateLimits()
	assert.Equal(t, 3, limits.Register)
	assert.Equal(t, 5, limits.Verify)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"weak bcrypt":     {"BCRYPT_COST", "10"},
		"huge bcrypt":     {"BCRYPT_COST", "32"},
		"negative db":     {"REDIS_DB", "-1"},
		"unbounded retry": {"REDIS_MAX_RETRIES", "10"},
		"bad level":       {"LOG_LEVEL", "loud"},
		"bad format":      {"LOG_FORMAT", "xml"},
		"zero window":     {"RATE_LIMIT_WINDOW", "0s"},
		"negative limit":  {"RATE_LIMIT_VERIFY", "-2"},
		"unparsable cost": {"BCRYPT_COST", "twelve"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
