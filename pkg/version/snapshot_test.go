package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackbump/pkg/dag"
	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

func TestSnapshotGenerator_Generate(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	sc := SnapshotContext{
		Version:   semver.MustParse("1.2.3"),
		Branch:    "feat/OAuth Login",
		Commit:    "abc123def456",
		Timestamp: ts,
	}

	tests := []struct {
		format string
		want   string
	}{
		{"{version}-{branch}.{commit}", "1.2.3-feat-oauth-login.abc123d"},
		{"{version}-snapshot.{timestamp}", "1.2.3-snapshot.1700000000"},
		{"{version}", "1.2.3"},
		{"{version}-{commit}-{commit}", "1.2.3-abc123d-abc123d"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			g, err := NewSnapshotGenerator(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.format, g.Format())
			assert.Equal(t, tt.want, g.Generate(sc))
		})
	}
}

func TestSnapshotGenerator_ShortCommit(t *testing.T) {
	g, err := NewSnapshotGenerator("{version}.{commit}")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0.ab1", g.Generate(SnapshotContext{Version: semver.MustParse("1.0.0"), Commit: "ab1"}))
}

func TestNewSnapshotGenerator_Invalid(t *testing.T) {
	for _, format := range []string{"", "   ", "snapshot-{branch}", "{version}-{sha}", "{version}-{}"} {
		_, err := NewSnapshotGenerator(format)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidTemplate), "%q: got %v", format, err)
	}
}

func TestSanitizeBranch(t *testing.T) {
	tests := map[string]string{
		"main":               "main",
		"feat/OAuth Login":   "feat-oauth-login",
		"release/v2.x":       "release-v2.x",
		"fix//double--dash":  "fix-double-dash",
		"/leading/trailing/": "leading-trailing",
		"user@host#42":       "userhost42",
		"tab\tand  spaces":   "tab-and-spaces",
		"under_score/Übung":  "under_score-bung",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeBranch(in), "SanitizeBranch(%q)", in)
	}
}

func TestApplySnapshot(t *testing.T) {
	res := &VersionResolution{
		Updates: []PackageUpdate{
			{
				Name:           "core",
				CurrentVersion: semver.MustParse("1.0.0"),
				NextVersion:    semver.MustParse("1.1.0"),
				Reason:         DirectChange{},
			},
			{
				Name:           "app",
				CurrentVersion: semver.MustParse("2.0.0"),
				NextVersion:    semver.MustParse("2.0.1"),
				Reason:         DependencyPropagation{TriggeredBy: "core", Depth: 1},
				DependencyUpdates: []DependencyUpdate{
					{Name: "core", Type: deps.Runtime, OldSpec: "^1.0.0", NewSpec: "^1.1.0"},
					{Name: "core", Type: deps.Dev, OldSpec: "workspace:^1.0.0", NewSpec: "workspace:^1.1.0"},
				},
			},
		},
		CircularDependencies: []dag.CircularDependency{{Packages: []string{"x", "y"}}},
	}
	g, err := NewSnapshotGenerator("{version}-{branch}.{commit}")
	require.NoError(t, err)

	out, err := ApplySnapshot(res, g, SnapshotContext{Branch: "main", Commit: "deadbeefcafe"})
	require.NoError(t, err)

	assert.Equal(t, "1.1.0-main.deadbee", out.Updates[0].Snapshot)
	assert.Equal(t, "2.0.1-main.deadbee", out.Updates[1].Target())
	assert.Equal(t, "1.1.0", out.Updates[0].NextVersion.String(), "release version is kept")
	assert.Equal(t, DependencyPropagation{TriggeredBy: "core", Depth: 1}, out.Updates[1].Reason)
	assert.Equal(t, "1.1.0-main.deadbee", out.Updates[1].DependencyUpdates[0].NewSpec)
	assert.Equal(t, "workspace:1.1.0-main.deadbee", out.Updates[1].DependencyUpdates[1].NewSpec)
	assert.Len(t, out.CircularDependencies, 1)

	// The input is left untouched.
	assert.Empty(t, res.Updates[0].Snapshot)
	assert.Equal(t, "1.1.0", res.Updates[0].Target())
	assert.Equal(t, "^1.1.0", res.Updates[1].DependencyUpdates[0].NewSpec)
}

func TestApplySnapshot_VerbatimStrings(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	tests := []struct {
		name   string
		format string
		sc     SnapshotContext
		want   string
	}{
		{"underscore branch", "{version}-{branch}.{commit}", SnapshotContext{Branch: "feat/my_branch", Commit: "abc123def"}, "1.2.4-feat-my_branch.abc123d"},
		{"timestamp suffix", "{version}.{timestamp}", SnapshotContext{Timestamp: ts}, "1.2.4.1700000000"},
		{"free-form prefix", "snap_{version}", SnapshotContext{}, "snap_1.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &VersionResolution{Updates: []PackageUpdate{
				{
					Name:           "core",
					CurrentVersion: semver.MustParse("1.2.3"),
					NextVersion:    semver.MustParse("1.2.4"),
					Reason:         DirectChange{},
				},
				{
					Name:           "app",
					CurrentVersion: semver.MustParse("0.1.0"),
					NextVersion:    semver.MustParse("0.1.0"),
					Reason:         DependencyPropagation{TriggeredBy: "core", Depth: 1},
					DependencyUpdates: []DependencyUpdate{
						{Name: "core", Type: deps.Runtime, OldSpec: "^1.2.3", NewSpec: "^1.2.4"},
					},
				},
			}}
			g, err := NewSnapshotGenerator(tt.format)
			require.NoError(t, err)

			out, err := ApplySnapshot(res, g, tt.sc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Updates[0].Target())
			assert.Equal(t, tt.want, out.Updates[1].DependencyUpdates[0].NewSpec)
			assert.True(t, out.Updates[1].VersionChanged(), "a snapshot always changes the written version")
		})
	}
}

func TestApplySnapshot_MissingNextVersion(t *testing.T) {
	res := &VersionResolution{Updates: []PackageUpdate{{Name: "core", Reason: DirectChange{}}}}
	g, err := NewSnapshotGenerator("{version}-snap")
	require.NoError(t, err)

	_, err = ApplySnapshot(res, g, SnapshotContext{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidVersion), "got %v", err)
}
