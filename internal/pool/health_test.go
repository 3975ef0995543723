package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthState_StartsHealthy(t *testing.T) {
	h := newHealthState()
	assert.Equal(t, HEALTHY, h.get())
}

func TestHealthState_TransitionsToDegradedAtThreshold(t *testing.T) {
	h := newHealthState()

	assert.False(t, h.recordFailure(3))
	assert.False(t, h.recordFailure(3))
	assert.True(t, h.recordFailure(3))
	assert.Equal(t, DEGRADED, h.get())
}

func TestHealthState_ValidationTimeoutForcesDegradedImmediately(t *testing.T) {
	h := newHealthState()
	h.recordValidationTimeout()
	assert.Equal(t, DEGRADED, h.get())
}

func TestHealthState_BeginRecoveryOnlyOnce(t *testing.T) {
	h := newHealthState()
	h.recordValidationTimeout()

	assert.True(t, h.beginRecovery())
	assert.Equal(t, RECOVERING, h.get())
	assert.False(t, h.beginRecovery(), "a second concurrent recovery loop must not start")
}

func TestHealthState_RecoversAfterConsecutiveSuccesses(t *testing.T) {
	h := newHealthState()
	h.recordValidationTimeout()
	h.beginRecovery()

	assert.False(t, h.recordRecoverySuccess(3))
	assert.False(t, h.recordRecoverySuccess(3))
	assert.True(t, h.recordRecoverySuccess(3))
	assert.Equal(t, HEALTHY, h.get())
}

func TestHealthState_RecoveryFailureResetsConsecutiveCount(t *testing.T) {
	h := newHealthState()
	h.recordValidationTimeout()
	h.beginRecovery()

	assert.False(t, h.recordRecoverySuccess(3))
	h.recordRecoveryFailure()
	assert.False(t, h.recordRecoverySuccess(3))
	assert.False(t, h.recordRecoverySuccess(3))
	assert.True(t, h.recordRecoverySuccess(3), "three consecutive successes after the reset should still recover")
}
