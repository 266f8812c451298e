// Package config holds the settings that drive version resolution and how
// they are loaded from a stackbump.toml file.
//
// Configuration is always passed explicitly: every component takes a
// [DependencyConfig] (or the whole [Config]) in its constructor, and there
// is no process-wide state.
package config

import (
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// FileName is the default configuration file name, looked up at the
// workspace root.
const FileName = "stackbump.toml"

// Strategy decides how versions relate across a workspace.
type Strategy string

const (
	// Independent versions each package on its own.
	Independent Strategy = "independent"
	// Unified keeps every workspace package on one shared version.
	Unified Strategy = "unified"
)

// DependencyConfig controls graph construction, propagation and cycle handling.
type DependencyConfig struct {
	PropagateUpdates            bool `toml:"propagate_updates"`
	PropagateDevDependencies    bool `toml:"propagate_dev_dependencies"`
	IncludePeerDependencies     bool `toml:"include_peer_dependencies"`
	IncludeOptionalDependencies bool `toml:"include_optional_dependencies"`
	// MaxPropagationDepth bounds the BFS level of propagated updates.
	// Zero means unlimited.
	MaxPropagationDepth int `toml:"max_propagation_depth"`
	// PropagationBump is applied to the current version of every dependent
	// reached by propagation: "major", "minor", "patch" or "none".
	PropagationBump string `toml:"propagation_bump"`
	// SkipProtocols lists specifier protocol families that propagation never
	// rewrites.
	SkipProtocols  []string `toml:"skip_protocols"`
	DetectCircular bool     `toml:"detect_circular"`
	FailOnCircular bool     `toml:"fail_on_circular"`
}

// SnapshotConfig configures snapshot version generation.
type SnapshotConfig struct {
	Format string `toml:"format"`
}

// CacheConfig selects where resolutions are memoised.
type CacheConfig struct {
	// Backend is "none", "file" or "redis".
	Backend  string `toml:"backend"`
	RedisURL string `toml:"redis_url"`
	TTL      string `toml:"ttl"`
}

// ApplyConfig configures manifest writes.
type ApplyConfig struct {
	// KeepBackups leaves backup files on disk after a successful apply.
	KeepBackups bool `toml:"keep_backups"`
}

// Config is the full content of stackbump.toml.
type Config struct {
	Strategy     Strategy         `toml:"strategy"`
	Workspaces   []string         `toml:"workspaces"`
	ChangesetDir string           `toml:"changeset_dir"`
	Dependencies DependencyConfig `toml:"dependencies"`
	Snapshot     SnapshotConfig   `toml:"snapshot"`
	Cache        CacheConfig      `toml:"cache"`
	Apply        ApplyConfig      `toml:"apply"`
}

// DefaultSnapshotFormat is used when no snapshot format is configured.
const DefaultSnapshotFormat = "{version}-snapshot.{timestamp}"

// DefaultDependencyConfig returns the dependency settings used when nothing
// is configured: runtime-only propagation with patch bumps and no depth limit.
func DefaultDependencyConfig() DependencyConfig {
	return DependencyConfig{
		PropagateUpdates:            true,
		PropagateDevDependencies:    false,
		IncludePeerDependencies:     false,
		IncludeOptionalDependencies: false,
		MaxPropagationDepth:         0,
		PropagationBump:             "patch",
		SkipProtocols:               slices.Clone(deps.DefaultSkipProtocols),
		DetectCircular:              true,
		FailOnCircular:              false,
	}
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Strategy:     Independent,
		ChangesetDir: ".changeset",
		Dependencies: DefaultDependencyConfig(),
		Snapshot:     SnapshotConfig{Format: DefaultSnapshotFormat},
		Cache:        CacheConfig{Backend: "none", TTL: "24h"},
	}
}

// Bump parses PropagationBump. It fails with INVALID_BUMP for anything
// other than major, minor, patch or none.
func (c DependencyConfig) Bump() (semver.Bump, error) {
	return semver.ParseBump(c.PropagationBump)
}

// Includes reports whether dependencies of type t take part in the graph
// and in propagation. Runtime dependencies are always included.
func (c DependencyConfig) Includes(t deps.DependencyType) bool {
	switch t {
	case deps.Dev:
		return c.PropagateDevDependencies
	case deps.Peer:
		return c.IncludePeerDependencies
	case deps.Optional:
		return c.IncludeOptionalDependencies
	}
	return true
}

// Validate checks the dependency settings.
func (c DependencyConfig) Validate() error {
	if _, err := c.Bump(); err != nil {
		return err
	}
	if c.MaxPropagationDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_propagation_depth must be >= 0, got %d", c.MaxPropagationDepth)
	}
	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	switch c.Strategy {
	case Independent, Unified:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown strategy %q (want independent or unified)", c.Strategy)
	}
	switch c.Cache.Backend {
	case "", "none", "file", "redis":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
	}
	return c.Dependencies.Validate()
}

// ParseStrategy parses "independent" or "unified".
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case Independent, Unified:
		return st, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown strategy %q (want independent or unified)", s)
}

// Load reads path on top of [Default]. A missing file is not an error and
// yields the defaults. Keys not known to Config are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return Parse(data, cfg)
}

// Parse decodes TOML data on top of base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return base, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return base, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
