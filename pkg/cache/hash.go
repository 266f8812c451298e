package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ResolutionPrefix namespaces resolution entries.
const ResolutionPrefix = "resolution"

// ResolutionKey derives the cache key of a resolution from its inputs.
// Inputs are JSON-encoded, so maps hash the same regardless of iteration
// order.
func ResolutionKey(inputs ...any) (string, error) {
	return hashKey(ResolutionPrefix, inputs...)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	return fmt.Sprintf("%s:%s", prefix, Hash(data)), nil
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
