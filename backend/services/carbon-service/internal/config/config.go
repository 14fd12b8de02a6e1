package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "carboncheck/backend/libs/config"
	"carboncheck/backend/services/carbon-service/internal/intensity"
	"carboncheck/backend/services/carbon-service/internal/models"
	"carboncheck/backend/services/carbon-service/internal/scheduler"
	"carboncheck/backend/services/carbon-service/internal/service"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

const (
	defaultPort             = "8085"
	defaultCron             = "0 */30 * * * *"
	defaultTable            = "carbon_intensity"
	defaultSQLitePath       = "carbon.db"
	defaultRedisAddr        = "localhost:6379"
	defaultIntensityTimeout = 10
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	Environment string `yaml:"environment" env:"CARBON_ENVIRONMENT"`
	HTTP        struct {
		Port string `yaml:"port" env:"CARBON_HTTP_PORT"`
	} `yaml:"http"`
	Check struct {
		Threshold    int    `yaml:"threshold" env:"CAR_CHARGE_THRESHOLD"`
		MaxRecords   int    `yaml:"maxRecords" env:"MAX_CARBON_INTENSITY_RECORDS"`
		PartitionKey string `yaml:"partitionKey" env:"CARBON_PARTITION_KEY"`
	} `yaml:"check"`
	Schedule struct {
		Cron    string `yaml:"cron" env:"CARBON_CHECK_CRON"`
		Enabled bool   `yaml:"enabled" env:"CARBON_SCHEDULE_ENABLED"`
	} `yaml:"schedule"`
	Intensity struct {
		URL            string `yaml:"url" env:"CARBON_INTENSITY_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"CARBON_INTENSITY_TIMEOUT"`
	} `yaml:"intensity"`
	Store struct {
		Driver string `yaml:"driver" env:"CARBON_STORE_DRIVER"`
		Table  string `yaml:"table" env:"CARBON_STORE_TABLE"`
	} `yaml:"store"`
	Database struct {
		DSN string `yaml:"dsn" env:"CARBON_POSTGRES_DSN"`
	} `yaml:"database"`
	SQLite struct {
		Path string `yaml:"path" env:"CARBON_SQLITE_PATH"`
	} `yaml:"sqlite"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CARBON_REDIS_ADDR"`
		Password string `yaml:"password" env:"CARBON_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"CARBON_REDIS_DB"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret     string `yaml:"jwtSecret" env:"CARBON_JWT_SECRET"`
		AccessKeyHash string `yaml:"accessKeyHash" env:"CARBON_ACCESS_KEY_HASH"`
	} `yaml:"auth"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env:"CARBON_METRICS_ENABLED"`
	} `yaml:"metrics"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = defaultPort
	cfg.Check.Threshold = service.DefaultThreshold
	cfg.Check.MaxRecords = service.DefaultMaxRecords
	cfg.Check.PartitionKey = models.DefaultPartitionKey
	cfg.Schedule.Cron = defaultCron
	cfg.Schedule.Enabled = true
	cfg.Intensity.URL = intensity.DefaultURL
	cfg.Intensity.TimeoutSeconds = defaultIntensityTimeout
	cfg.Store.Driver = DriverMemory
	cfg.Store.Table = defaultTable
	cfg.SQLite.Path = defaultSQLitePath
	cfg.Redis.Addr = defaultRedisAddr
	cfg.Metrics.Enabled = true

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Check.Threshold < 0 {
		return errors.New("config: charge threshold must not be negative")
	}
	if c.Check.MaxRecords < 1 {
		return errors.New("config: max records must be at least 1")
	}
	if strings.TrimSpace(c.Check.PartitionKey) == "" {
		c.Check.PartitionKey = models.DefaultPartitionKey
	}
	if c.Intensity.TimeoutSeconds <= 0 {
		c.Intensity.TimeoutSeconds = defaultIntensityTimeout
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("config: database DSN is required for the postgres store")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return errors.New("config: sqlite path is required for the sqlite store")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis addr is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.Schedule.Enabled {
		if _, err := scheduler.ParseSpec(c.Schedule.Cron); err != nil {
			return fmt.Errorf("config: invalid check schedule %q: %w", c.Schedule.Cron, err)
		}
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// IntensityTimeout converts the configured timeout to duration.
func (c *Config) IntensityTimeout() time.Duration {
	if c.Intensity.TimeoutSeconds <= 0 {
		return defaultIntensityTimeout * time.Second
	}
	return time.Duration(c.Intensity.TimeoutSeconds) * time.Second
}

// CheckParams returns the explicit ingestion parameters.
func (c *Config) CheckParams() service.Params {
	return service.Params{
		Threshold:    c.Check.Threshold,
		MaxRecords:   c.Check.MaxRecords,
		PartitionKey: c.Check.PartitionKey,
	}
}
