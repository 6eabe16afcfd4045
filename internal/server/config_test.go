package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	c, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "briscola.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
service {
  protocol_version = "2.0.0"
  log_level        = "debug"
}

redis {
  url = "redis://localhost:6380/3"
}

heartbeat {
  ttl_seconds      = 30
  interval_seconds = 10
}

game {
  minimum_hand_value = 15
  seed               = 42
}
`), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", c.ProtocolVersion)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "redis://localhost:6380/3", c.RedisURL)
	assert.Equal(t, 30*time.Second, c.HeartbeatTTL)
	assert.Equal(t, 10*time.Second, c.HeartbeatInterval)
	assert.Equal(t, 15, c.MinimumHandValue)
	assert.Equal(t, int64(42), c.Seed)

	// Untouched settings keep their defaults.
	d := DefaultConfig()
	assert.Equal(t, d.KeyPrefix, c.KeyPrefix)
	assert.Equal(t, d.AuditInterval, c.AuditInterval)
	assert.Equal(t, d.SnapshotTTL, c.SnapshotTTL)
	assert.Equal(t, d.RedisPoolSize, c.RedisPoolSize)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.hcl")
	require.NoError(t, os.WriteFile(broken, []byte("service {"), 0o644))
	_, err := LoadConfig(broken)
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.hcl")
	require.NoError(t, os.WriteFile(unknown, []byte(`tables { count = 3 }`), 0o644))
	_, err = LoadConfig(unknown)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		"REDIS_URL":                  "redis://cache:6379/1",
		"KEY_PREFIX":                 "briscola",
		"HEARTBEAT_TTL_SECONDS":      "40",
		"HEARTBEAT_INTERVAL_SECONDS": "8",
		"GAME_STATE_TTL_SECONDS":     "600",
		"IDLE_TIMEOUT_SECONDS":       "0",
		"MINIMUM_HAND_VALUE":         "12",
		"SEED":                       "-9",
		"PROTOCOL_VERSION":           "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	c := DefaultConfig()
	require.NoError(t, c.ApplyEnv(lookup))

	assert.Equal(t, "redis://cache:6379/1", c.RedisURL)
	assert.Equal(t, "briscola", c.KeyPrefix)
	assert.Equal(t, 40*time.Second, c.HeartbeatTTL)
	assert.Equal(t, 8*time.Second, c.HeartbeatInterval)
	assert.Equal(t, 10*time.Minute, c.SnapshotTTL)
	assert.Zero(t, c.IdleTimeout)
	assert.Equal(t, 12, c.MinimumHandValue)
	assert.Equal(t, int64(-9), c.Seed)
	assert.Equal(t, "1.0.0", c.ProtocolVersion, "empty values are ignored")
	require.NoError(t, c.Validate())
}

func TestApplyEnvReportsEveryBadNumber(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		"HEARTBEAT_TTL_SECONDS": "soon",
		"MAILBOX_SIZE":          "lots",
		"SEED":                  "0x",
	}
	c := DefaultConfig()
	err := c.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEARTBEAT_TTL_SECONDS")
	assert.Contains(t, err.Error(), "MAILBOX_SIZE")
	assert.Contains(t, err.Error(), "SEED")
	assert.Equal(t, DefaultConfig().HeartbeatTTL, c.HeartbeatTTL)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BRISCOLA_TEST_ENV_KEY=from-file\n"), 0o644))
	t.Setenv("BRISCOLA_TEST_ENV_KEY", "")
	require.NoError(t, os.Unsetenv("BRISCOLA_TEST_ENV_KEY"))

	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("BRISCOLA_TEST_ENV_KEY"))
}

func TestConfigValidateIdleTimeout(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	assert.Greater(t, c.SnapshotTTL, c.IdleTimeout)

	c.IdleTimeout = 2 * c.SnapshotTTL
	require.ErrorContains(t, c.Validate(), "idle timeout")

	c.IdleTimeout = 0
	require.NoError(t, c.Validate(), "retirement disabled")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.KeyPrefix = "" }},
		{"empty protocol version", func(c *Config) { c.ProtocolVersion = "" }},
		{"zero heartbeat interval", func(c *Config) { c.HeartbeatInterval = 0 }},
		{"ttl not above interval", func(c *Config) { c.HeartbeatTTL = c.HeartbeatInterval }},
		{"zero audit interval", func(c *Config) { c.AuditInterval = 0 }},
		{"zero snapshot ttl", func(c *Config) { c.SnapshotTTL = 0 }},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }},
		{"snapshot ttl not above idle timeout", func(c *Config) { c.SnapshotTTL = c.IdleTimeout }},
		{"hand value too high", func(c *Config) { c.MinimumHandValue = 25 }},
		{"hand value negative", func(c *Config) { c.MinimumHandValue = -1 }},
		{"empty mailbox", func(c *Config) { c.MailboxSize = 0 }},
		{"empty pool", func(c *Config) { c.RedisPoolSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
