package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/iammadab/chessbench/internal/obslog"
)

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"legacy"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"false"`
	File    string `env:"LOG_FILE" envDefault:"logs/chessbench.log"`
	Caller  bool   `env:"LOG_CALLER" envDefault:"false"`
}

type AppConfig struct {
	Bind        string `env:"CHESSBENCH_BIND" envDefault:"0.0.0.0:8080"`
	EnginesFile string `env:"CHESSBENCH_ENGINES"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	MaxConcurrentMatches int           `env:"MAX_CONCURRENT_MATCHES" envDefault:"0"`
	StreamInterval       time.Duration `env:"STREAM_INTERVAL" envDefault:"200ms"`
	HandshakeTimeout     time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
	ShutdownGrace        time.Duration `env:"SHUTDOWN_GRACE" envDefault:"2s"`
	SnapshotTTL          time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`

	Log LogConfig
}

// Load reads the environment. Flags bound with BindFlags may override it
// before Validate is called.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Bind = strings.TrimSpace(cfg.Bind)
	cfg.EnginesFile = strings.TrimSpace(cfg.EnginesFile)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	return cfg, nil
}

// BindFlags registers --bind and --config with the environment values as defaults.
func (c *AppConfig) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Bind, "bind", c.Bind, "listen address")
	fs.StringVarP(&c.EnginesFile, "config", "c", c.EnginesFile, "engine roster file (YAML)")
}

func (c *AppConfig) Validate() error {
	if c.Bind == "" {
		return errors.New("bind address is required")
	}
	if c.EnginesFile == "" {
		return errors.New("engine roster is required (--config or CHESSBENCH_ENGINES)")
	}
	if c.MaxConcurrentMatches < 0 {
		return errors.New("MAX_CONCURRENT_MATCHES must not be negative")
	}
	if c.StreamInterval <= 0 {
		return errors.New("STREAM_INTERVAL must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("HANDSHAKE_TIMEOUT must be positive")
	}
	if c.ShutdownGrace <= 0 {
		return errors.New("SHUTDOWN_GRACE must be positive")
	}
	return nil
}

func (c *AppConfig) LogOptions() obslog.Options {
	return obslog.Options{
		Level:   c.Log.Level,
		Format:  c.Log.Format,
		Console: c.Log.Console,
		ToFile:  c.Log.ToFile,
		File:    c.Log.File,
		Caller:  c.Log.Caller,
	}
}
