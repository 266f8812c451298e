// Package cache memoises version resolutions.
//
// A resolution is a pure function of the discovered packages, the changeset
// and the configuration, so its JSON form can be stored under a hash of
// those inputs and served again while nothing changes. This matters most in
// watch mode and in CI jobs that plan and apply in separate steps.
//
// Three backends implement [Cache]:
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON file per entry under a directory
//   - [RedisCache]: shared cache for CI runners
//
// Use [Open] to build the backend selected in configuration.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/errors"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// DefaultDir returns the per-user cache directory for the file backend.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "stackbump")
	}
	return filepath.Join(os.TempDir(), "stackbump-cache")
}

// Open builds the backend named by cfg.Backend. dir is used by the file
// backend; an empty dir means [DefaultDir].
func Open(cfg config.CacheConfig, dir string) (Cache, time.Duration, error) {
	ttl, err := parseTTL(cfg.TTL)
	if err != nil {
		return nil, 0, err
	}
	switch cfg.Backend {
	case "", "none":
		return NewNullCache(), ttl, nil
	case "file":
		if dir == "" {
			dir = DefaultDir()
		}
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open file cache")
		}
		return c, ttl, nil
	case "redis":
		c, err := NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, 0, err
		}
		return c, ttl, nil
	}
	return nil, 0, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Backend)
}

func parseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "invalid cache ttl %q", s)
	}
	return d, nil
}
