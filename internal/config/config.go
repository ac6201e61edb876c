// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Durations are plain integers with a unit suffix in the key (_ms, _sec).
//   - New returns a Config holding every default; Load layers overrides on top.
//   - Validate reports the first invalid field wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // cdc_timezone must resolve on hosts without zoneinfo
)

// Store drivers, cache backends and resync schedulers.
const (
	StoreSQLite   = "sqlite3"
	StorePostgres = "postgres"

	CacheRedis  = "redis"
	CacheMemory = "memory"

	SchedulerAsynq  = "asynq"
	SchedulerTicker = "ticker"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	StoreDriver    string `koanf:"store_driver"`
	StoreDSN       string `koanf:"store_dsn"`
	StoreTimeoutMS int    `koanf:"store_timeout_ms"`

	CacheBackend        string `koanf:"cache_backend"`
	RedisAddr           string `koanf:"redis_addr"`
	RedisPassword       string `koanf:"redis_password"`
	RedisDB             int    `koanf:"redis_db"`
	CacheTimeoutMS      int    `koanf:"cache_timeout_ms"`
	MemoryCacheCapacity int    `koanf:"memory_cache_capacity"`

	// DefaultHotLimit applies when GET /items/hot has no usable limit.
	DefaultHotLimit int `koanf:"default_hot_limit"`
	// MaxHotLimit caps GET /items/hot?limit.
	MaxHotLimit int `koanf:"max_hot_limit"`
	// LikeAttempts bounds optimistic retries per like; 1 disables retrying.
	LikeAttempts int `koanf:"like_attempts"`

	CDCEnabled bool `koanf:"cdc_enabled"`
	// KafkaBrokers is a comma separated host:port list.
	KafkaBrokers  string `koanf:"kafka_brokers"`
	KafkaTopic    string `koanf:"kafka_topic"`
	KafkaGroupID  string `koanf:"kafka_group_id"`
	CDCQueueSize  int    `koanf:"cdc_queue_size"`
	CDCWorkers    int    `koanf:"cdc_workers"`
	CDCDedupeSize int    `koanf:"cdc_dedupe_size"`
	// CDCTimezone is the IANA zone naive CDC timestamps are written in.
	CDCTimezone string `koanf:"cdc_timezone"`

	ResyncScheduler   string `koanf:"resync_scheduler"`
	ResyncIntervalSec int    `koanf:"resync_interval_sec"`
	ResyncTimeoutMS   int    `koanf:"resync_timeout_ms"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",

		StoreDriver:    StoreSQLite,
		StoreDSN:       "file:hotitems.db?cache=shared&_busy_timeout=5000",
		StoreTimeoutMS: 2000,

		CacheBackend:        CacheRedis,
		RedisAddr:           "localhost:6379",
		CacheTimeoutMS:      500,
		MemoryCacheCapacity: 100_000,

		DefaultHotLimit: 10,
		MaxHotLimit:     100,
		LikeAttempts:    3,

		CDCEnabled:    false,
		KafkaBrokers:  "localhost:9092",
		KafkaTopic:    "hot_items_cdc",
		KafkaGroupID:  "hot-items-cache",
		CDCQueueSize:  10_000,
		CDCWorkers:    1,
		CDCDedupeSize: 50_000,
		CDCTimezone:   "UTC",

		ResyncScheduler:   SchedulerAsynq,
		ResyncIntervalSec: 600,
		ResyncTimeoutMS:   120_000,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.StoreDriver != StoreSQLite && c.StoreDriver != StorePostgres:
		return invalid("store_driver must be %q or %q, got %q", StoreSQLite, StorePostgres, c.StoreDriver)
	case strings.TrimSpace(c.StoreDSN) == "":
		return invalid("store_dsn must not be empty")
	case c.CacheBackend != CacheRedis && c.CacheBackend != CacheMemory:
		return invalid("cache_backend must be %q or %q, got %q", CacheRedis, CacheMemory, c.CacheBackend)
	case c.CacheBackend == CacheRedis && strings.TrimSpace(c.RedisAddr) == "":
		return invalid("redis_addr is required for the redis cache")
	case c.StoreTimeoutMS <= 0 || c.CacheTimeoutMS <= 0 || c.ResyncTimeoutMS <= 0:
		return invalid("timeouts must be positive")
	case c.DefaultHotLimit <= 0 || c.MaxHotLimit < c.DefaultHotLimit:
		return invalid("need 0 < default_hot_limit <= max_hot_limit, got %d and %d", c.DefaultHotLimit, c.MaxHotLimit)
	case c.LikeAttempts <= 0:
		return invalid("like_attempts must be positive")
	case c.ResyncScheduler != SchedulerAsynq && c.ResyncScheduler != SchedulerTicker:
		return invalid("resync_scheduler must be %q or %q, got %q", SchedulerAsynq, SchedulerTicker, c.ResyncScheduler)
	case c.ResyncScheduler == SchedulerAsynq && c.CacheBackend != CacheRedis:
		return invalid("the asynq scheduler needs the redis cache backend")
	case c.ResyncIntervalSec <= 0:
		return invalid("resync_interval_sec must be positive")
	}
	if _, err := time.LoadLocation(c.CDCTimezone); err != nil {
		return invalid("cdc_timezone %q: %v", c.CDCTimezone, err)
	}
	if c.CDCEnabled {
		switch {
		case len(c.Brokers()) == 0:
			return invalid("kafka_brokers is required when cdc is enabled")
		case strings.TrimSpace(c.KafkaTopic) == "":
			return invalid("kafka_topic is required when cdc is enabled")
		case c.CDCQueueSize <= 0:
			return invalid("cdc_queue_size must be positive")
		}
	}
	return nil
}

// Brokers splits KafkaBrokers, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Location resolves CDCTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.CDCTimezone)
}

func (c *Config) StoreTimeout() time.Duration  { return ms(c.StoreTimeoutMS) }
func (c *Config) CacheTimeout() time.Duration  { return ms(c.CacheTimeoutMS) }
func (c *Config) ResyncTimeout() time.Duration { return ms(c.ResyncTimeoutMS) }

func (c *Config) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncIntervalSec) * time.Second
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
