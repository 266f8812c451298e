package version

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackbump/pkg/changeset"
	"github.com/matzehuels/stackbump/pkg/config"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

func packages(t *testing.T, versions map[string]string) Packages {
	t.Helper()
	var infos []deps.PackageInfo
	for name, v := range versions {
		infos = append(infos, pkg(name, v, nil))
	}
	pkgs, err := NewPackages(infos)
	require.NoError(t, err)
	return pkgs
}

func nextVersions(res *VersionResolution) map[string]string {
	out := map[string]string{}
	for _, u := range res.Updates {
		out[u.Name] = u.NextVersion.String()
	}
	return out
}

func TestEngine_Independent(t *testing.T) {
	pkgs := packages(t, map[string]string{"a": "1.2.3", "b": "0.9.0", "c": "3.0.0"})

	tests := []struct {
		bump semver.Bump
		want map[string]string
	}{
		{semver.BumpMajor, map[string]string{"a": "2.0.0", "b": "1.0.0"}},
		{semver.BumpMinor, map[string]string{"a": "1.3.0", "b": "0.10.0"}},
		{semver.BumpPatch, map[string]string{"a": "1.2.4", "b": "0.9.1"}},
		{semver.BumpNone, map[string]string{"a": "1.2.3", "b": "0.9.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.bump.String(), func(t *testing.T) {
			res, err := NewEngine(config.Independent, nil).Resolve(changeset.New(tt.bump, "b", "a"), pkgs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nextVersions(res))
			assert.Equal(t, []string{"a", "b"}, res.Names(), "updates are ordered by name")
			for _, u := range res.Updates {
				assert.Equal(t, DirectChange{}, u.Reason)
				assert.Equal(t, tt.bump != semver.BumpNone, u.VersionChanged())
			}
		})
	}
}

func TestEngine_Unified(t *testing.T) {
	tests := []struct {
		name     string
		versions map[string]string
		changed  []string
		bump     semver.Bump
		want     string
	}{
		{"highest bumped wins", map[string]string{"a": "1.0.0", "b": "1.4.0", "c": "1.1.0"}, []string{"a", "b"}, semver.BumpMinor, "1.5.0"},
		{"never downgrades", map[string]string{"a": "1.0.0", "b": "3.0.0"}, []string{"a"}, semver.BumpMajor, "3.0.0"},
		{"none keeps the highest", map[string]string{"a": "1.0.0", "b": "1.2.0"}, []string{"a"}, semver.BumpNone, "1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkgs := packages(t, tt.versions)
			res, err := NewEngine(config.Unified, nil).Resolve(changeset.New(tt.bump, tt.changed...), pkgs)
			require.NoError(t, err)
			require.Len(t, res.Updates, len(tt.versions), "every workspace package moves")
			for _, u := range res.Updates {
				assert.Equal(t, tt.want, u.NextVersion.String(), u.Name)
				if slices.Contains(tt.changed, u.Name) {
					assert.Equal(t, DirectChange{}, u.Reason, u.Name)
				} else {
					assert.Equal(t, UnifiedAlignment{}, u.Reason, u.Name)
				}
				assert.False(t, u.NextVersion.LessThan(u.CurrentVersion), "%s moved backwards", u.Name)
			}
		})
	}
}

func TestEngine_EmptyChangeset(t *testing.T) {
	pkgs := packages(t, map[string]string{"a": "1.0.0", "b": "2.0.0"})

	for _, strategy := range []config.Strategy{config.Independent, config.Unified} {
		t.Run(string(strategy), func(t *testing.T) {
			res, err := NewEngine(strategy, nil).Resolve(changeset.New(semver.BumpMinor), pkgs)
			require.NoError(t, err)
			assert.Empty(t, res.Updates)
		})
	}
}

func TestEngine_UnifiedReasonJSON(t *testing.T) {
	pkgs := packages(t, map[string]string{"a": "1.0.0", "b": "1.0.0"})
	res, err := NewEngine(config.Unified, nil).Resolve(changeset.New(semver.BumpPatch, "a"), pkgs)
	require.NoError(t, err)

	data, err := json.Marshal(res.Updates[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reason":{"type":"unified"}`)

	var back PackageUpdate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, UnifiedAlignment{}, back.Reason)
	assert.Equal(t, "1.0.1", back.NextVersion.String())

	direct, propagated := res.Counts()
	assert.Equal(t, 2, direct)
	assert.Zero(t, propagated)
}

func TestEngine_Errors(t *testing.T) {
	pkgs := packages(t, map[string]string{"a": "1.0.0"})

	_, err := NewEngine(config.Independent, nil).Resolve(changeset.New(semver.BumpPatch, "a", "zz"), pkgs)
	assert.True(t, errors.Is(err, errors.ErrCodePackageNotFound), "got %v", err)

	_, err = NewEngine(config.Unified, nil).Resolve(changeset.New(semver.BumpPatch, "zz"), pkgs)
	assert.True(t, errors.Is(err, errors.ErrCodePackageNotFound), "got %v", err)

	_, err = NewEngine("lockstep", nil).Resolve(changeset.New(semver.BumpPatch, "a"), pkgs)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
}

func TestNewPackages_Duplicate(t *testing.T) {
	_, err := NewPackages([]deps.PackageInfo{pkg("a", "1.0.0", nil), pkg("a", "2.0.0", nil)})
	assert.True(t, errors.Is(err, errors.ErrCodeGraphConstruction), "got %v", err)
}
