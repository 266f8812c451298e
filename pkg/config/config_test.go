package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d := cfg.Dependencies
	if !d.PropagateUpdates || !d.DetectCircular || d.FailOnCircular {
		t.Errorf("unexpected defaults: %+v", d)
	}
	if d.PropagationBump != "patch" || d.MaxPropagationDepth != 0 {
		t.Errorf("bump = %q depth = %d", d.PropagationBump, d.MaxPropagationDepth)
	}
	if !slices.Equal(d.SkipProtocols, deps.DefaultSkipProtocols) {
		t.Errorf("skip protocols = %v", d.SkipProtocols)
	}

	// Callers may mutate the returned slice without touching the package default.
	d.SkipProtocols[0] = "changed"
	if deps.DefaultSkipProtocols[0] == "changed" {
		t.Error("DefaultDependencyConfig shares SkipProtocols with deps.DefaultSkipProtocols")
	}
}

func TestIncludes(t *testing.T) {
	var c DependencyConfig
	if !c.Includes(deps.Runtime) {
		t.Error("runtime must always be included")
	}
	for _, typ := range []deps.DependencyType{deps.Dev, deps.Peer, deps.Optional} {
		if c.Includes(typ) {
			t.Errorf("%s included by zero config", typ)
		}
	}
	c = DependencyConfig{PropagateDevDependencies: true, IncludePeerDependencies: true, IncludeOptionalDependencies: true}
	for _, typ := range deps.AllTypes {
		if !c.Includes(typ) {
			t.Errorf("%s not included", typ)
		}
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
strategy = "unified"
workspaces = ["packages/*", "apps/*"]

[dependencies]
propagate_dev_dependencies = true
max_propagation_depth = 2
propagation_bump = "minor"
skip_protocols = ["workspace"]
fail_on_circular = true

[snapshot]
format = "{version}-{branch}.{commit}"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "1h"

[apply]
keep_backups = true
`)
	cfg, err := Parse(data, Default())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Strategy != Unified {
		t.Errorf("strategy = %q", cfg.Strategy)
	}
	if !slices.Equal(cfg.Workspaces, []string{"packages/*", "apps/*"}) {
		t.Errorf("workspaces = %v", cfg.Workspaces)
	}
	d := cfg.Dependencies
	if !d.PropagateUpdates {
		t.Error("unset keys must keep their defaults")
	}
	if !d.PropagateDevDependencies || d.MaxPropagationDepth != 2 || !d.FailOnCircular {
		t.Errorf("dependencies = %+v", d)
	}
	if b, _ := d.Bump(); b != semver.BumpMinor {
		t.Errorf("bump = %v", b)
	}
	if !slices.Equal(d.SkipProtocols, []string{"workspace"}) {
		t.Errorf("skip protocols = %v", d.SkipProtocols)
	}
	if cfg.Snapshot.Format != "{version}-{branch}.{commit}" {
		t.Errorf("snapshot format = %q", cfg.Snapshot.Format)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL != "1h" || !cfg.Apply.KeepBackups {
		t.Errorf("cache = %+v apply = %+v", cfg.Cache, cfg.Apply)
	}
	if cfg.ChangesetDir != ".changeset" {
		t.Errorf("changeset dir = %q", cfg.ChangesetDir)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"syntax", `strategy = `, errors.ErrCodeInvalidConfig},
		{"unknown key", "[dependencies]\npropagate_updatez = true", errors.ErrCodeInvalidConfig},
		{"strategy", `strategy = "lockstep"`, errors.ErrCodeInvalidConfig},
		{"bump", "[dependencies]\npropagation_bump = \"huge\"", errors.ErrCodeInvalidBump},
		{"negative depth", "[dependencies]\nmax_propagation_depth = -1", errors.ErrCodeInvalidConfig},
		{"backend", "[cache]\nbackend = \"memcached\"", errors.ErrCodeInvalidConfig},
		{"redis url", "[cache]\nbackend = \"redis\"", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := Default()
			cfg, err := Parse([]byte(tt.data), base)
			if !errors.Is(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
			if cfg.Strategy != base.Strategy {
				t.Errorf("failed parse should return base, got strategy %q", cfg.Strategy)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg.Strategy != Independent {
		t.Errorf("missing file should give defaults, got %q", cfg.Strategy)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("strategy = \"unified\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy != Unified {
		t.Errorf("strategy = %q", cfg.Strategy)
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"independent": Independent, " Unified ": Unified} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("fixed"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v", err)
	}
}
