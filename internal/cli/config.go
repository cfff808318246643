package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var errRedisRequired = errors.New("redis.addr is required for redis numbering and notifications")

// Config is the CLI configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Engine  EngineConfig  `yaml:"engine"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // memory, sqlite, postgres, mongo
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"` // mongo only
}

// RedisConfig is shared by redis numbering and the notification queue.
// An empty Addr disables both.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Numbering bool   `yaml:"numbering"`
}

type EngineConfig struct {
	ConflictRetries int           `yaml:"conflict_retries"`
	NumberWidth     int           `yaml:"number_width"`
	PluginTimeout   time.Duration `yaml:"plugin_timeout"`
}

type NotifyConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Queue       string `yaml:"queue"`
	MaxRetry    int    `yaml:"max_retry"`
	Concurrency int    `yaml:"concurrency"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Store:  StoreConfig{Driver: "memory", Database: "salesdoc"},
		Engine: EngineConfig{
			ConflictRetries: 3,
			NumberWidth:     4,
			PluginTimeout:   5 * time.Second,
		},
		Notify:  NotifyConfig{Queue: "notifications", MaxRetry: 5, Concurrency: 4},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// LoadConfig reads path over the defaults and then applies SALESDOC_*
// environment overrides. A .env file in the working directory is loaded
// first if present. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("SALESDOC_LOG_LEVEL", &c.Log.Level)
	str("SALESDOC_LOG_FORMAT", &c.Log.Format)
	str("SALESDOC_HTTP_ADDR", &c.Server.Addr)
	str("SALESDOC_STORE_DRIVER", &c.Store.Driver)
	str("SALESDOC_STORE_DSN", &c.Store.DSN)
	str("SALESDOC_STORE_DATABASE", &c.Store.Database)
	str("SALESDOC_REDIS_ADDR", &c.Redis.Addr)
	str("SALESDOC_REDIS_PASSWORD", &c.Redis.Password)
	str("SALESDOC_NOTIFY_QUEUE", &c.Notify.Queue)

	for key, dst := range map[string]*int{
		"SALESDOC_REDIS_DB":         &c.Redis.DB,
		"SALESDOC_CONFLICT_RETRIES": &c.Engine.ConflictRetries,
		"SALESDOC_NUMBER_WIDTH":     &c.Engine.NumberWidth,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"SALESDOC_REDIS_NUMBERING": &c.Redis.Numbering,
		"SALESDOC_NOTIFY_ENABLED":  &c.Notify.Enabled,
		"SALESDOC_METRICS_ENABLED": &c.Metrics.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the combinations the commands rely on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres", "mongo":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Redis.Addr == "" && (c.Redis.Numbering || c.Notify.Enabled) {
		return errRedisRequired
	}
	return nil
}
