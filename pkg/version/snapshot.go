package version

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
)

// Snapshot template placeholders.
const (
	PlaceholderVersion   = "{version}"
	PlaceholderBranch    = "{branch}"
	PlaceholderCommit    = "{commit}"
	PlaceholderTimestamp = "{timestamp}"
)

var (
	placeholderRe        = regexp.MustCompile(`\{[^{}]*\}`)
	knownPlaceholders    = []string{PlaceholderVersion, PlaceholderBranch, PlaceholderCommit, PlaceholderTimestamp}
	branchDisallowedRe   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	branchRepeatedDashRe = regexp.MustCompile(`-{2,}`)
)

const shortCommitLen = 7

// SnapshotContext holds the values substituted into a snapshot template.
type SnapshotContext struct {
	Version   semver.Version
	Branch    string
	Commit    string
	Timestamp time.Time
}

// SnapshotGenerator formats snapshot versions from a validated template.
type SnapshotGenerator struct {
	format string
}

// NewSnapshotGenerator validates format and returns a generator. The
// template must be non-empty, contain {version}, and use no placeholders
// other than {version}, {branch}, {commit} and {timestamp}. Violations fail
// with INVALID_TEMPLATE.
func NewSnapshotGenerator(format string) (*SnapshotGenerator, error) {
	if strings.TrimSpace(format) == "" {
		return nil, errors.New(errors.ErrCodeInvalidTemplate, "snapshot format must not be empty")
	}
	if !strings.Contains(format, PlaceholderVersion) {
		return nil, errors.New(errors.ErrCodeInvalidTemplate, "snapshot format %q must contain %s", format, PlaceholderVersion)
	}
	for _, token := range placeholderRe.FindAllString(format, -1) {
		if !slices.Contains(knownPlaceholders, token) {
			return nil, errors.New(errors.ErrCodeInvalidTemplate,
				"snapshot format %q uses unknown placeholder %s (supported: %s)",
				format, token, strings.Join(knownPlaceholders, ", "))
		}
	}
	return &SnapshotGenerator{format: format}, nil
}

// Format returns the template.
func (g *SnapshotGenerator) Format() string { return g.format }

// Generate substitutes sc into the template. The branch is sanitised with
// [SanitizeBranch], the commit is cut to 7 characters and the timestamp is
// rendered as Unix seconds. The result is not checked for semver validity.
func (g *SnapshotGenerator) Generate(sc SnapshotContext) string {
	commit := sc.Commit
	if len(commit) > shortCommitLen {
		commit = commit[:shortCommitLen]
	}
	r := strings.NewReplacer(
		PlaceholderVersion, sc.Version.String(),
		PlaceholderBranch, SanitizeBranch(sc.Branch),
		PlaceholderCommit, commit,
		PlaceholderTimestamp, strconv.FormatInt(sc.Timestamp.Unix(), 10),
	)
	return r.Replace(g.format)
}

// SanitizeBranch turns a branch name into a pre-release friendly token:
// "/" and whitespace become "-", characters other than letters, digits,
// "-", "." and "_" are dropped, dash runs collapse, leading and trailing
// dashes are trimmed and the result is lower-cased.
//
//	SanitizeBranch("feat/OAuth Login") // "feat-oauth-login"
func SanitizeBranch(branch string) string {
	s := strings.Map(func(r rune) rune {
		if r == '/' || unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, branch)
	s = branchDisallowedRe.ReplaceAllString(s, "")
	s = branchRepeatedDashRe.ReplaceAllString(s, "-")
	return strings.ToLower(strings.Trim(s, "-"))
}

// ApplySnapshot returns a copy of res where every update carries the
// snapshot generated from its next version in [PackageUpdate.Snapshot].
// Updates keep their reasons and dependency rewrites; specifiers are
// re-pointed at the snapshot where they were rewritten. The composed string
// is used verbatim and is not required to be valid semver. An update without
// a next version fails with INVALID_VERSION.
func ApplySnapshot(res *VersionResolution, g *SnapshotGenerator, sc SnapshotContext) (*VersionResolution, error) {
	out := &VersionResolution{
		Updates:              make([]PackageUpdate, len(res.Updates)),
		CircularDependencies: slices.Clone(res.CircularDependencies),
	}
	snapshots := make(map[string]string, len(res.Updates))
	for i, u := range res.Updates {
		if u.NextVersion.IsZero() {
			return nil, errors.New(errors.ErrCodeInvalidVersion, "snapshot for %s: no next version", u.Name)
		}
		ctx := sc
		ctx.Version = u.NextVersion
		u.Snapshot = g.Generate(ctx)
		out.Updates[i] = u
		snapshots[u.Name] = u.Snapshot
	}
	for i := range out.Updates {
		dus := slices.Clone(out.Updates[i].DependencyUpdates)
		for j, du := range dus {
			snap, ok := snapshots[du.Name]
			if !ok {
				continue
			}
			if spec, changed := rewriteExact(du.NewSpec, snap); changed {
				dus[j].NewSpec = spec
			}
		}
		out.Updates[i].DependencyUpdates = dus
	}
	return out, nil
}

// rewriteExact points a rewritten specifier at a snapshot. Ranges are
// pinned exactly since pre-release versions do not satisfy caret or tilde
// ranges of their release.
func rewriteExact(spec, snapshot string) (string, bool) {
	prefix := ""
	if rest, ok := strings.CutPrefix(spec, "workspace:"); ok {
		prefix, spec = "workspace:", rest
	}
	if _, _, ok := deps.ParseRange(spec); !ok {
		return "", false
	}
	return prefix + snapshot, true
}
