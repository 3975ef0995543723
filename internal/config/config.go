// Package config loads and validates the core's typed configuration tree
// from environment variables and an optional YAML file, via
// github.com/spf13/viper, grounded on evalgo-org-eve/cli/root.go's
// viper.AutomaticEnv + dotted-key convention.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/DrJLabs/forgetful-core/internal/merrors"
)

// RelationalPoolConfig is the `pool.relational.*` key group.
type RelationalPoolConfig struct {
	DSN              string        `mapstructure:"dsn"`
	Min              int           `mapstructure:"min"`
	Max              int           `mapstructure:"max"`
	AcquireTimeout   time.Duration `mapstructure:"acquire_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// GraphPoolConfig is the `pool.graph.*` key group.
type GraphPoolConfig struct {
	URI            string        `mapstructure:"uri"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Min            int           `mapstructure:"min"`
	Max            int           `mapstructure:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// KeyValuePoolConfig is the `pool.key_value.*` key group.
type KeyValuePoolConfig struct {
	Addr           string        `mapstructure:"addr"`
	Min            int           `mapstructure:"min"`
	Max            int           `mapstructure:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// PoolConfig is the `pool.*` key group.
type PoolConfig struct {
	Relational            RelationalPoolConfig `mapstructure:"relational"`
	Graph                 GraphPoolConfig      `mapstructure:"graph"`
	KeyValue              KeyValuePoolConfig   `mapstructure:"key_value"`
	HealthCheckInterval   time.Duration        `mapstructure:"health_check_interval"`
	RecoveryCheckInterval time.Duration        `mapstructure:"recovery_check_interval"`
}

// L1Config is the `cache.l1.*` key group.
type L1Config struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// L2Config is the `cache.l2.*` key group.
type L2Config struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	TTL      time.Duration `mapstructure:"ttl"`
	URL      string        `mapstructure:"url"`
}

// L3Config is the `cache.l3.*` key group.
type L3Config struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxPrepared int           `mapstructure:"max_prepared"`
}

// CacheConfig is the `cache.*` key group.
type CacheConfig struct {
	L1 L1Config `mapstructure:"l1"`
	L2 L2Config `mapstructure:"l2"`
	L3 L3Config `mapstructure:"l3"`
}

// BatcherConfig is one `batch.<name>.*` key group.
type BatcherConfig struct {
	Size     int           `mapstructure:"size"`
	Interval time.Duration `mapstructure:"interval"`
	Workers  int           `mapstructure:"workers"`
}

// BatchConfig is the `batch.*` key group.
type BatchConfig struct {
	Write  BatcherConfig `mapstructure:"write"`
	Search BatcherConfig `mapstructure:"search"`
	Graph  BatcherConfig `mapstructure:"graph"`
}

// RetryConfig is the `resilience.retry.*` key group.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Jitter       float64       `mapstructure:"jitter"`
}

// BreakerConfig is the `resilience.breaker.*` key group.
type BreakerConfig struct {
	Threshold       int           `mapstructure:"threshold"`
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout"`
}

// ResilienceConfig is the `resilience.*` key group.
type ResilienceConfig struct {
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// Config is the full typed configuration tree, per spec.md §6's table.
type Config struct {
	Pool       PoolConfig       `mapstructure:"pool"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Port       int              `mapstructure:"port"`
	LogLevel   string           `mapstructure:"log_level"`
}

// Load reads configuration from an optional YAML file at path (ignored if
// empty and not found) and from environment variables using FORGETFUL_ as
// the prefix and "_" in place of ".", then validates the result.
func Load(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("forgetful")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, merrors.New(merrors.Validation, "CONFIG_FILE_UNREADABLE", "failed to read config file").WithCause(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, merrors.New(merrors.Validation, "CONFIG_UNMARSHAL_FAILED", "failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pool.relational.min", 20)
	v.SetDefault("pool.relational.max", 100)
	v.SetDefault("pool.relational.acquire_timeout", time.Second)
	v.SetDefault("pool.relational.statement_timeout", 30*time.Second)
	v.SetDefault("pool.graph.min", 10)
	v.SetDefault("pool.graph.max", 50)
	v.SetDefault("pool.graph.acquire_timeout", time.Second)
	v.SetDefault("pool.key_value.min", 10)
	v.SetDefault("pool.key_value.max", 50)
	v.SetDefault("pool.key_value.acquire_timeout", 500*time.Millisecond)
	v.SetDefault("pool.health_check_interval", 30*time.Second)
	v.SetDefault("pool.recovery_check_interval", 10*time.Second)

	v.SetDefault("cache.l1.max_bytes", 256*1024*1024)
	v.SetDefault("cache.l1.ttl", 5*time.Minute)
	v.SetDefault("cache.l2.max_bytes", 1*1024*1024*1024)
	v.SetDefault("cache.l2.ttl", time.Hour)
	v.SetDefault("cache.l2.url", "redis://localhost:6379")
	v.SetDefault("cache.l3.ttl", 30*time.Minute)
	v.SetDefault("cache.l3.max_prepared", 1000)

	v.SetDefault("batch.write.size", 50)
	v.SetDefault("batch.write.interval", 100*time.Millisecond)
	v.SetDefault("batch.write.workers", 2)
	v.SetDefault("batch.search.size", 20)
	v.SetDefault("batch.search.interval", 50*time.Millisecond)
	v.SetDefault("batch.search.workers", 4)
	v.SetDefault("batch.graph.size", 10)
	v.SetDefault("batch.graph.interval", 100*time.Millisecond)
	v.SetDefault("batch.graph.workers", 2)

	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_delay", 50*time.Millisecond)
	v.SetDefault("resilience.retry.max_delay", 10*time.Second)
	v.SetDefault("resilience.retry.multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter", 0.25)
	v.SetDefault("resilience.breaker.threshold", 5)
	v.SetDefault("resilience.breaker.recovery_timeout", 30*time.Second)

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
}

const (
	minCacheBytesL1 = 1 * 1024 * 1024
	maxCacheBytesL1 = 1 * 1024 * 1024 * 1024
	minCacheBytesL2 = 1 * 1024 * 1024
	maxCacheBytesL2 = 8 * 1024 * 1024 * 1024

	minTTL = 60 * time.Second
	maxTTL = 24 * time.Hour

	minPreparedCap = 100
	maxPreparedCap = 10000

	minPort = 1024
	maxPort = 65535
)

// Validate enforces spec.md §6's validation table. It fails fast on the
// first violation, never logs-and-continues.
func (c Config) Validate() error {
	if err := inRangeBytes("cache.l1.max_bytes", c.Cache.L1.MaxBytes, minCacheBytesL1, maxCacheBytesL1); err != nil {
		return err
	}
	if err := inRangeBytes("cache.l2.max_bytes", c.Cache.L2.MaxBytes, minCacheBytesL2, maxCacheBytesL2); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Cache.L2.URL, "redis://") {
		return validationErr("cache.l2.url", "must use the redis:// scheme")
	}

	for key, ttl := range map[string]time.Duration{
		"cache.l1.ttl": c.Cache.L1.TTL,
		"cache.l2.ttl": c.Cache.L2.TTL,
		"cache.l3.ttl": c.Cache.L3.TTL,
	} {
		if ttl < minTTL || ttl > maxTTL {
			return validationErr(key, fmt.Sprintf("must be within [%s, %s]", minTTL, maxTTL))
		}
	}

	if c.Cache.L3.MaxPrepared < minPreparedCap || c.Cache.L3.MaxPrepared > maxPreparedCap {
		return validationErr("cache.l3.max_prepared", fmt.Sprintf("must be within [%d, %d]", minPreparedCap, maxPreparedCap))
	}

	if c.Port < minPort || c.Port > maxPort {
		return validationErr("port", fmt.Sprintf("must be within [%d, %d]", minPort, maxPort))
	}

	for name, p := range map[string]struct{ min, max int }{
		"pool.relational": {c.Pool.Relational.Min, c.Pool.Relational.Max},
		"pool.graph":      {c.Pool.Graph.Min, c.Pool.Graph.Max},
		"pool.key_value":  {c.Pool.KeyValue.Min, c.Pool.KeyValue.Max},
	} {
		if p.min > p.max {
			return validationErr(name, "min must be <= max")
		}
	}

	for name, d := range map[string]time.Duration{
		"pool.relational.acquire_timeout":   c.Pool.Relational.AcquireTimeout,
		"pool.relational.statement_timeout": c.Pool.Relational.StatementTimeout,
		"pool.graph.acquire_timeout":        c.Pool.Graph.AcquireTimeout,
		"pool.key_value.acquire_timeout":    c.Pool.KeyValue.AcquireTimeout,
		"pool.health_check_interval":        c.Pool.HealthCheckInterval,
		"pool.recovery_check_interval":      c.Pool.RecoveryCheckInterval,
	} {
		if d <= 0 {
			return validationErr(name, "must be > 0")
		}
	}

	return nil
}

func inRangeBytes(key string, v, min, max int64) error {
	if v < min || v > max {
		return validationErr(key, fmt.Sprintf("must be within [%d, %d] bytes", min, max))
	}
	return nil
}

func validationErr(field, message string) error {
	return merrors.New(merrors.Validation, "CONFIG_INVALID", fmt.Sprintf("%s: %s", field, message)).
		WithDetails(map[string]any{"field": field})
}
