package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserKey_Deterministic(t *testing.T) {
	a := NewUserKey("memory", "user:u1", map[string]any{"id": "m1", "kind": "note"})
	b := NewUserKey("memory", "user:u1", map[string]any{"kind": "note", "id": "m1"})

	assert.Equal(t, a, b, "equivalent params must hash identically")
}

func TestNewUserKey_HashLength(t *testing.T) {
	key := NewUserKey("memory", "user:u1", "m1")
	hash := string(key)[len(string(key))-userScopeHashLen:]
	assert.Len(t, hash, userScopeHashLen)
}

func TestNewQueryKey_HashLength(t *testing.T) {
	key := NewQueryKey("query", "result", "SELECT 1")
	hash := string(key)[len(string(key))-queryScopeHashLen:]
	assert.Len(t, hash, queryScopeHashLen)
}

func TestUserScopeMarker(t *testing.T) {
	key := NewUserKey("memory", "user:u1", "m1")
	assert.True(t, strings.Contains(string(key), UserScopeMarker("u1")))
}
