package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/lapster88/briscola/internal/game"
)

// Config holds the runtime settings of the game service
type Config struct {
	RedisURL          string
	RedisPoolSize     int
	ProtocolVersion   string
	KeyPrefix         string
	HeartbeatTTL      time.Duration
	HeartbeatInterval time.Duration
	AuditInterval     time.Duration
	SnapshotTTL       time.Duration
	IdleTimeout       time.Duration // 0 disables retirement
	MinimumHandValue  int
	MailboxSize       int
	Seed              int64 // 0 picks a time-based seed
	MetricsAddress    string
	LogLevel          string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		RedisURL:          "redis://redis:6379/0",
		RedisPoolSize:     10,
		ProtocolVersion:   "1.0.0",
		KeyPrefix:         "game",
		HeartbeatTTL:      20 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		AuditInterval:     5 * time.Second,
		SnapshotTTL:       time.Hour,
		IdleTimeout:       30 * time.Minute,
		MinimumHandValue:  game.DefaultMinimumHandValue,
		MailboxSize:       64,
		MetricsAddress:    ":9100",
		LogLevel:          "info",
	}
}

// FileConfig is the HCL layout of a config file. Every block is optional.
type FileConfig struct {
	Service   *ServiceSettings   `hcl:"service,block"`
	Redis     *RedisSettings     `hcl:"redis,block"`
	Heartbeat *HeartbeatSettings `hcl:"heartbeat,block"`
	Game      *GameSettings      `hcl:"game,block"`
}

// ServiceSettings contains service-level configuration
type ServiceSettings struct {
	ProtocolVersion string `hcl:"protocol_version,optional"`
	KeyPrefix       string `hcl:"key_prefix,optional"`
	MetricsAddress  string `hcl:"metrics_address,optional"`
	LogLevel        string `hcl:"log_level,optional"`
}

// RedisSettings configures the Redis connection
type RedisSettings struct {
	URL      string `hcl:"url,optional"`
	PoolSize int    `hcl:"pool_size,optional"`
}

// HeartbeatSettings configures liveness tracking
type HeartbeatSettings struct {
	TTLSeconds           int `hcl:"ttl_seconds,optional"`
	IntervalSeconds      int `hcl:"interval_seconds,optional"`
	AuditIntervalSeconds int `hcl:"audit_interval_seconds,optional"`
}

// GameSettings configures actors and their engines
type GameSettings struct {
	StateTTLSeconds    int   `hcl:"state_ttl_seconds,optional"`
	IdleTimeoutSeconds int   `hcl:"idle_timeout_seconds,optional"`
	MinimumHandValue   int   `hcl:"minimum_hand_value,optional"`
	MailboxSize        int   `hcl:"mailbox_size,optional"`
	Seed               int64 `hcl:"seed,optional"`
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults; values left out of the file keep their defaults.
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc FileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	fc.apply(&config)
	return config, nil
}

func (fc FileConfig) apply(c *Config) {
	if s := fc.Service; s != nil {
		setString(&c.ProtocolVersion, s.ProtocolVersion)
		setString(&c.KeyPrefix, s.KeyPrefix)
		setString(&c.MetricsAddress, s.MetricsAddress)
		setString(&c.LogLevel, s.LogLevel)
	}
	if r := fc.Redis; r != nil {
		setString(&c.RedisURL, r.URL)
		setInt(&c.RedisPoolSize, r.PoolSize)
	}
	if h := fc.Heartbeat; h != nil {
		setSeconds(&c.HeartbeatTTL, h.TTLSeconds)
		setSeconds(&c.HeartbeatInterval, h.IntervalSeconds)
		setSeconds(&c.AuditInterval, h.AuditIntervalSeconds)
	}
	if g := fc.Game; g != nil {
		setSeconds(&c.SnapshotTTL, g.StateTTLSeconds)
		setSeconds(&c.IdleTimeout, g.IdleTimeoutSeconds)
		setInt(&c.MinimumHandValue, g.MinimumHandValue)
		setInt(&c.MailboxSize, g.MailboxSize)
		if g.Seed != 0 {
			c.Seed = g.Seed
		}
	}
}

// LoadEnvFile loads KEY=value pairs from files into the environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadEnvFile(filenames ...string) error {
	for _, name := range filenames {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables found by lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, apply func(int)) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		apply(n)
	}
	seconds := func(key string, dst *time.Duration) {
		num(key, func(n int) { *dst = time.Duration(n) * time.Second })
	}

	str("REDIS_URL", &c.RedisURL)
	str("PROTOCOL_VERSION", &c.ProtocolVersion)
	str("KEY_PREFIX", &c.KeyPrefix)
	str("METRICS_ADDRESS", &c.MetricsAddress)
	str("LOG_LEVEL", &c.LogLevel)
	seconds("HEARTBEAT_TTL_SECONDS", &c.HeartbeatTTL)
	seconds("HEARTBEAT_INTERVAL_SECONDS", &c.HeartbeatInterval)
	seconds("AUDIT_INTERVAL_SECONDS", &c.AuditInterval)
	seconds("GAME_STATE_TTL_SECONDS", &c.SnapshotTTL)
	seconds("IDLE_TIMEOUT_SECONDS", &c.IdleTimeout)
	num("MINIMUM_HAND_VALUE", func(n int) { c.MinimumHandValue = n })
	num("MAILBOX_SIZE", func(n int) { c.MailboxSize = n })
	num("REDIS_POOL_SIZE", func(n int) { c.RedisPoolSize = n })
	if v, ok := lookup("SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEED: %w", err))
		} else {
			c.Seed = n
		}
	}
	return errors.Join(errs...)
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.KeyPrefix == "" {
		return fmt.Errorf("key prefix must not be empty")
	}
	if c.ProtocolVersion == "" {
		return fmt.Errorf("protocol version must not be empty")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", c.HeartbeatInterval)
	}
	if c.HeartbeatTTL <= c.HeartbeatInterval {
		return fmt.Errorf("heartbeat TTL %s must exceed heartbeat interval %s", c.HeartbeatTTL, c.HeartbeatInterval)
	}
	if c.AuditInterval <= 0 {
		return fmt.Errorf("audit interval must be positive, got %s", c.AuditInterval)
	}
	if c.SnapshotTTL <= 0 {
		return fmt.Errorf("snapshot TTL must be positive, got %s", c.SnapshotTTL)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", c.IdleTimeout)
	}
	if c.IdleTimeout > 0 && c.SnapshotTTL <= c.IdleTimeout {
		return fmt.Errorf("snapshot TTL %s must exceed idle timeout %s", c.SnapshotTTL, c.IdleTimeout)
	}
	if c.MinimumHandValue < 0 || c.MinimumHandValue > game.MaxMinimumHandValue {
		return fmt.Errorf("minimum hand value must be between 0 and %d, got %d", game.MaxMinimumHandValue, c.MinimumHandValue)
	}
	if c.MailboxSize < 1 {
		return fmt.Errorf("mailbox size must be at least 1, got %d", c.MailboxSize)
	}
	if c.RedisPoolSize < 1 {
		return fmt.Errorf("redis pool size must be at least 1, got %d", c.RedisPoolSize)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, v int) {
	if v != 0 {
		*dst = time.Duration(v) * time.Second
	}
}
