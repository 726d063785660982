// Package config loads server configuration from a YAML file with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full chatd configuration. Zero values fall back to the
// defaults applied by Load.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Chat    Chat    `yaml:"chat"`
}

type Server struct {
	Addr string `yaml:"addr"`
	// Dev switches logging to a human-readable handler at debug level.
	Dev bool `yaml:"dev"`
}

type Storage struct {
	// PostgresDSN selects the Postgres store. Empty keeps messages in
	// memory.
	PostgresDSN string `yaml:"postgres_dsn"`
	// RedisAddr enables the recent-history cache. Empty disables it.
	RedisAddr string `yaml:"redis_addr"`

	RetentionCeiling int `yaml:"retention_ceiling"`
	RetentionBatch   int `yaml:"retention_batch"`
}

type Chat struct {
	DefaultRoom     string   `yaml:"default_room"`
	PageSize        int      `yaml:"page_size"`
	MaxFrameBytes   int64    `yaml:"max_frame_bytes"`
	RateInterval    Duration `yaml:"rate_interval"`
	Heartbeat       Duration `yaml:"heartbeat"`
	LivenessTimeout Duration `yaml:"liveness_timeout"`
}

// Load reads the YAML file at path (optional), applies environment
// overrides, then fills in defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CHATD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if os.Getenv("CHATD_DEV") == "true" {
		c.Server.Dev = true
	}
	if v := os.Getenv("CHATD_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CHATD_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("CHATD_DEFAULT_ROOM"); v != "" {
		c.Chat.DefaultRoom = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.RetentionCeiling == 0 {
		c.Storage.RetentionCeiling = 10000
	}
	if c.Storage.RetentionBatch == 0 {
		c.Storage.RetentionBatch = 500
	}
	if c.Chat.DefaultRoom == "" {
		c.Chat.DefaultRoom = "public"
	}
	if c.Chat.PageSize == 0 {
		c.Chat.PageSize = 500
	}
	if c.Chat.MaxFrameBytes == 0 {
		c.Chat.MaxFrameBytes = 8 * 1024
	}
	if c.Chat.RateInterval == 0 {
		c.Chat.RateInterval = Duration(time.Second)
	}
	if c.Chat.Heartbeat == 0 {
		c.Chat.Heartbeat = Duration(30 * time.Second)
	}
	if c.Chat.LivenessTimeout == 0 {
		c.Chat.LivenessTimeout = Duration(65 * time.Second)
	}
}
