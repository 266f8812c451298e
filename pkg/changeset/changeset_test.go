package changeset

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
branch: feat/oauth-login
bump: Minor
environments: [staging, production, staging]
packages:
  - "@acme/web"
  - "@acme/auth"
commits:
  - abc123def456
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if c.Branch != "feat/oauth-login" || c.Bump != semver.BumpMinor {
		t.Errorf("Parse() = %+v", c)
	}
	if !slices.Equal(c.Packages, []string{"@acme/auth", "@acme/web"}) {
		t.Errorf("Packages = %v, want sorted set", c.Packages)
	}
	if !slices.Equal(c.Environments, []string{"production", "staging"}) {
		t.Errorf("Environments = %v", c.Environments)
	}
	if !c.Has("@acme/web") || c.Has("@acme/other") {
		t.Error("Has() mismatch")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.Code
	}{
		{"not yaml", "packages: [unclosed", errors.ErrCodeInvalidChangeset},
		{"missing bump", "packages: [a]", errors.ErrCodeInvalidChangeset},
		{"bad bump", "bump: huge\npackages: [a]", errors.ErrCodeInvalidBump},
		{"no packages", "bump: patch", errors.ErrCodeInvalidChangeset},
		{"bad package name", "bump: patch\npackages: [\"../x\"]", errors.ErrCodeInvalidChangeset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.code) {
				t.Errorf("Parse() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("01-auth.yaml", "bump: patch\npackages: [auth]\n")
	write("02-web.yml", "branch: main\nbump: minor\npackages: [web, auth]\ncommits: [c1]\n")
	write("README.md", "ignored")

	cs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("LoadDir() returned %d changesets, want 2", len(cs))
	}

	merged := Merge(cs...)
	if merged.Bump != semver.BumpMinor {
		t.Errorf("merged bump = %s, want minor", merged.Bump)
	}
	if merged.Branch != "main" {
		t.Errorf("merged branch = %q", merged.Branch)
	}
	if !slices.Equal(merged.Packages, []string{"auth", "web"}) {
		t.Errorf("merged packages = %v", merged.Packages)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	cs, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || cs != nil {
		t.Errorf("LoadDir(missing) = %v, %v", cs, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("bump: nope\npackages: [a]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidBump) {
		t.Errorf("Load(bad bump) error = %v", err)
	}
}

func TestNew(t *testing.T) {
	c := New(semver.BumpMajor, "b", "a", "b")
	if !slices.Equal(c.Packages, []string{"a", "b"}) || c.Bump != semver.BumpMajor {
		t.Errorf("New() = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
