package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGraphConfig(t *testing.T) {
	cfg := DefaultGraphConfig("neo4j://host:7687", "neo4j", "secret")

	assert.Equal(t, "neo4j://host:7687", cfg.URI)
	assert.Equal(t, "neo4j", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 10, cfg.Min)
	assert.Equal(t, 50, cfg.Max)
	assert.Equal(t, time.Second, cfg.AcquireTimeout)
	assert.Equal(t, 10*time.Second, cfg.TransactionRetryHorizon)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.RecoveryCheckInterval)
}

func TestNewGraphPool_RejectsUnsupportedScheme(t *testing.T) {
	cfg := DefaultGraphConfig("notascheme://host:7687", "neo4j", "secret")

	_, err := NewGraphPool(context.Background(), cfg, testLog(t))
	assert.Error(t, err)
}
