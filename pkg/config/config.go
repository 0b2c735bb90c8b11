package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		// CIDRs of proxies whose X-Forwarded-For is trusted; empty uses the peer address
		TrustedProxies  []string      `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Forecast struct {
		Model       string `yaml:"model"` // regression or simple
		Seed        *int64 `yaml:"seed"`  // fixes strategy B noise when set
		HorizonDays int    `yaml:"horizon_days"`
		PreviewDays int    `yaml:"preview_days"`
	} `yaml:"forecast"`
	Store struct {
		Type       string `yaml:"type"` // memory, sqlite or clickhouse
		SQLitePath string `yaml:"sqlite_path"`
		Table      string `yaml:"table"`
	} `yaml:"store"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled"`
		Capacity     int     `yaml:"capacity"`
		RefillPerSec float64       `yaml:"refill_per_sec"`
		IdleTTL      time.Duration `yaml:"idle_ttl"`
		PruneEvery   time.Duration `yaml:"prune_interval"`
	} `yaml:"rate_limit"`
	Cache struct {
		Enabled      bool          `yaml:"enabled"`
		TTL          time.Duration `yaml:"ttl"`
		MemoryMaxLen int           `yaml:"memory_max_len"`
		Redis        struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Scheduler struct {
		Enabled     bool   `yaml:"enabled"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"scheduler"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		PricesTopic      string   `yaml:"prices_topic"`
		PredictionsTopic string   `yaml:"predictions_topic"`
		LogsTopic        string   `yaml:"logs_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the built-in defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the given lookup (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PRICECAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PRICECAST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRICECAST_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("PRICECAST_MODEL"); v != "" {
		c.Forecast.Model = v
	}
	if v := getenv("PRICECAST_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PRICECAST_SEED: %w", err)
		}
		c.Forecast.Seed = &seed
	}
	if v := getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	return nil
}

// Default returns the configuration used for any field the YAML leaves out.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RequestTimeout = 30 * time.Second
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Forecast.Model = "regression"
	c.Forecast.HorizonDays = 30
	c.Forecast.PreviewDays = 7
	c.Store.Type = "memory"
	c.Store.SQLitePath = "data/pricecast.db"
	c.Store.Table = "price_points"
	c.RateLimit.Capacity = 20
	c.RateLimit.RefillPerSec = 5
	c.RateLimit.IdleTTL = 10 * time.Minute
	c.RateLimit.PruneEvery = time.Minute
	c.Cache.TTL = 5 * time.Minute
	c.Cache.MemoryMaxLen = 1000
	c.Scheduler.RefreshCron = "@every 1h"
	c.Kafka.PricesTopic = "pricecast.prices"
	c.Kafka.PredictionsTopic = "pricecast.predictions"
	c.Kafka.LogsTopic = "pricecast.logs"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Consumer.GroupID = "pricecast"
	c.Kafka.Consumer.Workers = 4
	c.Kafka.Consumer.BufferSize = 256
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 100 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 2 * time.Second
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "pricecast"
	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Forecast.Model {
	case "regression", "simple":
	default:
		return fmt.Errorf("forecast.model must be 'regression' or 'simple', got '%s'", c.Forecast.Model)
	}
	if c.Forecast.HorizonDays < 1 || c.Forecast.HorizonDays > 365 {
		return fmt.Errorf("forecast.horizon_days must be within 1..365, got %d", c.Forecast.HorizonDays)
	}
	if c.Forecast.PreviewDays < 1 {
		return fmt.Errorf("forecast.preview_days must be positive")
	}
	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for sqlite store")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for clickhouse store")
		}
	default:
		return fmt.Errorf("store.type must be 'memory', 'sqlite' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillPerSec <= 0) {
		return fmt.Errorf("rate_limit capacity and refill_per_sec must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.IdleTTL <= 0 || c.RateLimit.PruneEvery <= 0) {
		return fmt.Errorf("rate_limit idle_ttl and prune_interval must be positive")
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	return nil
}
