package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Reaper   ReaperConfig   `mapstructure:"reaper"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"` // debug, release, test
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CaptureConfig bounds the ingestion path: body size at the transport
// boundary and the TTLs that drive lazy expiry.
type CaptureConfig struct {
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	EndpointTTL  time.Duration `mapstructure:"endpoint_ttl"`
	RequestTTL   time.Duration `mapstructure:"request_ttl"`
}

// StreamConfig tunes the live SSE delivery path.
type StreamConfig struct {
	QueueSize int           `mapstructure:"queue_size"` // per-subscriber bounded queue capacity
	Heartbeat time.Duration `mapstructure:"heartbeat"`  // keepalive comment interval
}

// ReaperConfig tunes the background TTL cleanup loop.
type ReaperConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WHK_.
// Nested keys use underscore: WHK_DATABASE_HOST, WHK_REAPER_INTERVAL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "webhook_tester")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("capture.max_body_bytes", 1<<20)
	v.SetDefault("capture.endpoint_ttl", "24h")
	v.SetDefault("capture.request_ttl", "24h")
	v.SetDefault("stream.queue_size", 256)
	v.SetDefault("stream.heartbeat", "15s")
	v.SetDefault("reaper.interval", "60s")
	v.SetDefault("reaper.batch_size", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WHK_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WHK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects tunables that would break an invariant rather than
// degrade performance.
func (c *Config) validate() error {
	if c.Capture.MaxBodyBytes <= 0 {
		return fmt.Errorf("capture.max_body_bytes must be positive")
	}
	if c.Capture.EndpointTTL <= 0 || c.Capture.RequestTTL <= 0 {
		return fmt.Errorf("capture TTLs must be positive")
	}
	if c.Stream.QueueSize <= 0 {
		return fmt.Errorf("stream.queue_size must be positive")
	}
	if c.Stream.Heartbeat <= 0 {
		return fmt.Errorf("stream.heartbeat must be positive")
	}
	if c.Reaper.Interval <= 0 {
		return fmt.Errorf("reaper.interval must be positive")
	}
	if c.Reaper.BatchSize <= 0 {
		return fmt.Errorf("reaper.batch_size must be positive")
	}
	return nil
}
