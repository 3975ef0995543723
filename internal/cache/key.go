// Package cache implements the multi-layer (L1/L2/L3) cache facade.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Key is the canonical cache key string: <prefix>:<scope>:<hash>. Two
// callers presenting equivalent params always produce the identical Key.
type Key string

// userScopeHashLen and queryScopeHashLen are the hex-digest truncation
// lengths for the two key flavors, per spec.md §3.
const (
	userScopeHashLen  = 16
	queryScopeHashLen = 32
)

// NewUserKey builds a user-scoped key, e.g. prefix="memory", scope="user:u1".
// params is canonicalized (sorted map keys) before hashing so that
// semantically equivalent inputs always hash identically.
func NewUserKey(prefix, scope string, params any) Key {
	return newKey(prefix, scope, params, userScopeHashLen)
}

// NewQueryKey builds a query-scoped key (used by the L3 layer internally,
// exposed here for callers that need to predict a query's cache key).
func NewQueryKey(prefix, scope string, params any) Key {
	return newKey(prefix, scope, params, queryScopeHashLen)
}

func newKey(prefix, scope string, params any, hashLen int) Key {
	digest := sha256.Sum256([]byte(canonicalize(params)))
	hexDigest := hex.EncodeToString(digest[:])
	if hashLen < len(hexDigest) {
		hexDigest = hexDigest[:hashLen]
	}
	return Key(fmt.Sprintf("%s:%s:%s", prefix, scope, hexDigest))
}

// canonicalize produces a deterministic textual serialization of params:
// maps are re-encoded with sorted keys, everything else falls back to
// json.Marshal (which already sorts struct-tag-less map[string]any keys,
// but we re-marshal through sortedJSON to also cover nested maps).
func canonicalize(params any) string {
	normalized := sortedJSON(params)
	b, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(b)
}

// sortedJSON recursively converts maps into sorted [ [key, value], ... ]
// slices so that json.Marshal's output is stable regardless of Go's
// randomized map iteration order on the input value itself.
func sortedJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([][2]any, 0, len(t))
		for _, k := range keys {
			out = append(out, [2]any{k, sortedJSON(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortedJSON(e)
		}
		return out
	default:
		return v
	}
}

// UserScopeMarker returns the substring that must appear in any cache key
// belonging to the given user, per spec.md §4.5's invalidate_user contract.
func UserScopeMarker(userID string) string {
	return fmt.Sprintf(":user:%s:", userID)
}
