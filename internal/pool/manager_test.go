package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdConstants(t *testing.T) {
	assert.Equal(t, 3, FailureThreshold)
	assert.Equal(t, 3, RecoverySuccessesRequired)
}

// NewManager builds its pools in order (relational, graph, key-value) and
// returns on the first failure, so an invalid relational DSN is enough to
// exercise the error path without a live Postgres, Neo4j, or Redis instance.
func TestNewManager_FailsFastOnInvalidRelationalDSN(t *testing.T) {
	relCfg := DefaultRelationalConfig("postgres://[::1")
	graphCfg := DefaultGraphConfig("neo4j://host:7687", "neo4j", "secret")
	kvCfg := DefaultKeyValueConfig("redis://host:6379")

	_, err := NewManager(context.Background(), relCfg, graphCfg, kvCfg, testLog(t))
	assert.Error(t, err)
}
