package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":    "test",
		"APP_PORT":   "8080",
		"DB_USER":    "taskhub",
		"DB_HOST":    "127.0.0.1",
		"DB_PORT":    "3306",
		"DB_NAME":    "taskhub",
		"JWT_SECRET": "0123456789abcdef0123456789abcdef",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, c.AccessTTL)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.AuditEnabled)
	assert.Equal(t, 256, c.AuditBuffer)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
	assert.False(t, c.WeakSecret())
	assert.False(t, c.Production())
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoadMalformedInt(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "ten")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestShortSecretIsAcceptedButWeak(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.WeakSecret())
}

func TestRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.True(t, rl.Enabled)
	assert.Equal(t, 3, rl.Capacity)
	assert.Equal(t, 5*time.Second, rl.TTL)
}
