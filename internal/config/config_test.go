package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Pool: PoolConfig{
			Relational:            RelationalPoolConfig{Min: 20, Max: 100, AcquireTimeout: time.Second, StatementTimeout: 30 * time.Second},
			Graph:                 GraphPoolConfig{Min: 10, Max: 50, AcquireTimeout: time.Second},
			KeyValue:              KeyValuePoolConfig{Min: 10, Max: 50, AcquireTimeout: time.Second},
			HealthCheckInterval:   30 * time.Second,
			RecoveryCheckInterval: 10 * time.Second,
		},
		Cache: CacheConfig{
			L1: L1Config{MaxBytes: 256 * 1024 * 1024, TTL: 5 * time.Minute},
			L2: L2Config{MaxBytes: 1024 * 1024 * 1024, TTL: time.Hour, URL: "redis://localhost:6379"},
			L3: L3Config{TTL: 30 * time.Minute, MaxPrepared: 1000},
		},
		Port: 8080,
	}
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_ValidateRejectsL1ByteCapOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.L1.MaxBytes = 100
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsNonRedisURL(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.L2.URL = "http://localhost:6379"
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsTTLOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.L3.TTL = time.Second
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsPreparedCapOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.L3.MaxPrepared = 1
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 80
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsMinGreaterThanMax(t *testing.T) {
	cfg := validConfig()
	cfg.Pool.Relational.Min = 200
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Pool.Relational.AcquireTimeout = 0
	require.Error(t, cfg.Validate())
}

func TestLoad_AppliesDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 20, cfg.Pool.Relational.Min)
	require.NoError(t, cfg.Validate())
}
