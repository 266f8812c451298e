// Package changeset reads the records of intended changes that drive a
// version resolution.
//
// A changeset file is YAML:
//
//	branch: feat/oauth-login
//	bump: minor
//	environments: [staging]
//	packages:
//	  - "@acme/auth"
//	  - "@acme/web"
//	commits:
//	  - abc123def456
//
// Files are usually kept in a .changeset directory and merged into one
// [Changeset] before resolution; the highest bump wins.
package changeset

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// Changeset is the read-only input of a resolution: which packages changed
// and by how much.
type Changeset struct {
	Branch       string      `json:"branch,omitempty"`
	Bump         semver.Bump `json:"bump"`
	Environments []string    `json:"environments,omitempty"`
	// Packages and Commits are sets; they are kept sorted and free of
	// duplicates.
	Packages []string `json:"packages"`
	Commits  []string `json:"commits,omitempty"`
}

// New builds a changeset bumping the given packages.
func New(bump semver.Bump, packages ...string) Changeset {
	return Changeset{Bump: bump, Packages: set(packages)}
}

// Has reports whether name is part of the changeset.
func (c Changeset) Has(name string) bool {
	_, found := slices.BinarySearch(c.Packages, name)
	return found
}

// Validate checks that the changeset names at least one well-formed package.
func (c Changeset) Validate() error {
	if len(c.Packages) == 0 {
		return errors.New(errors.ErrCodeInvalidChangeset, "changeset lists no packages")
	}
	for _, p := range c.Packages {
		if err := errors.ValidatePackageName(p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidChangeset, err, "changeset package %q", p)
		}
	}
	return nil
}

type file struct {
	Branch       string   `yaml:"branch"`
	Bump         string   `yaml:"bump"`
	Environments []string `yaml:"environments"`
	Packages     []string `yaml:"packages"`
	Commits      []string `yaml:"commits"`
}

// Parse decodes one YAML changeset document.
func Parse(data []byte) (Changeset, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Changeset{}, errors.Wrap(errors.ErrCodeInvalidChangeset, err, "decode changeset")
	}
	if f.Bump == "" {
		return Changeset{}, errors.New(errors.ErrCodeInvalidChangeset, "changeset has no bump")
	}
	bump, err := semver.ParseBump(f.Bump)
	if err != nil {
		return Changeset{}, err
	}
	c := Changeset{
		Branch:       strings.TrimSpace(f.Branch),
		Bump:         bump,
		Environments: set(f.Environments),
		Packages:     set(f.Packages),
		Commits:      set(f.Commits),
	}
	if err := c.Validate(); err != nil {
		return Changeset{}, err
	}
	return c, nil
}

// Load reads and parses a single changeset file.
func Load(path string) (Changeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Changeset{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "changeset %s", path)
		}
		return Changeset{}, errors.Wrap(errors.ErrCodeInvalidChangeset, err, "read %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return Changeset{}, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return c, nil
}

// LoadDir parses every *.yaml and *.yml file in dir, in file name order.
// A missing directory yields no changesets.
func LoadDir(dir string) ([]Changeset, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidChangeset, err, "read %s", dir)
	}
	var out []Changeset
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		c, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Merge folds several changesets into one. Package, environment and commit
// sets are unioned, the highest bump wins and the first non-empty branch is
// kept.
func Merge(cs ...Changeset) Changeset {
	var (
		out                 Changeset
		pkgs, envs, commits []string
	)
	for _, c := range cs {
		out.Bump = semver.MaxBump(out.Bump, c.Bump)
		if out.Branch == "" {
			out.Branch = c.Branch
		}
		pkgs = append(pkgs, c.Packages...)
		envs = append(envs, c.Environments...)
		commits = append(commits, c.Commits...)
	}
	out.Packages = set(pkgs)
	out.Environments = set(envs)
	out.Commits = set(commits)
	return out
}

func set(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
