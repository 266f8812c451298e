// Package semver provides the semantic version value used throughout
// stackbump and the bump arithmetic applied by the version resolution engine.
//
// [Version] is a thin immutable wrapper around github.com/Masterminds/semver/v3.
// The zero value is "0.0.0" and is usable.
//
// # Bumps
//
// A [Bump] is one of [BumpMajor], [BumpMinor], [BumpPatch] or [BumpNone].
// [BumpNone] leaves the version untouched but still marks a package as
// touched by a resolution. Bumps are parsed from configuration and changeset
// files with [ParseBump]:
//
//	b, err := semver.ParseBump("minor")
//	v := semver.MustParse("1.2.3").Bump(b) // 1.3.0
package semver

import (
	"encoding/json"
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stackbump/pkg/errors"
)

// Version is a semantic version (major.minor.patch with optional
// pre-release and build metadata). Values are immutable: every operation
// returns a new Version.
type Version struct {
	v *mm.Version
}

// Parse parses a semantic version. A leading "v" is accepted.
// Partial versions such as "1.2" are coerced to "1.2.0".
func Parse(raw string) (Version, error) {
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return Version{}, errors.Wrap(errors.ErrCodeInvalidVersion, err, "parse version %q", raw)
	}
	return Version{v: v}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// New returns the release version major.minor.patch.
func New(major, minor, patch uint64) Version {
	return Version{v: mm.New(major, minor, patch, "", "")}
}

func (v Version) inner() *mm.Version {
	if v.v == nil {
		return mm.New(0, 0, 0, "", "")
	}
	return v.v
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.inner().Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.inner().Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.inner().Patch() }

// Prerelease returns the pre-release identifier, or "" for a release.
func (v Version) Prerelease() string { return v.inner().Prerelease() }

// String returns the canonical form without a "v" prefix, e.g. "1.2.3-rc.1".
func (v Version) String() string { return v.inner().String() }

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool { return v.v == nil }

// Compare returns -1, 0 or 1 following semver precedence rules.
// Build metadata is ignored.
func (v Version) Compare(o Version) int { return v.inner().Compare(o.inner()) }

// Equal reports whether v and o have the same precedence.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// LessThan reports whether v sorts before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// Bump returns v incremented by b. A pre-release version bumped by patch
// is released at the same patch number, matching semver precedence
// (1.2.3-rc.1 -> 1.2.3).
func (v Version) Bump(b Bump) Version {
	cur := v.inner()
	var next mm.Version
	switch b {
	case BumpMajor:
		next = cur.IncMajor()
	case BumpMinor:
		next = cur.IncMinor()
	case BumpPatch:
		next = cur.IncPatch()
	default:
		return Version{v: cur}
	}
	return Version{v: &next}
}

// Satisfies reports whether v matches the given range expression.
// Unparseable ranges never match.
func (v Version) Satisfies(constraint string) bool {
	c, err := mm.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(v.inner())
}

// ValidRange reports whether s parses as a range expression.
func ValidRange(s string) bool {
	_, err := mm.NewConstraint(s)
	return err == nil
}

// Max returns the highest of the given versions, or the zero Version when
// vs is empty.
func Max(vs ...Version) Version {
	var best Version
	for i, v := range vs {
		if i == 0 || v.Compare(best) > 0 {
			best = v
		}
	}
	return best
}

// MarshalJSON encodes the version as a JSON string.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a version from a JSON string.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Bump is a semantic version increment class.
type Bump int

const (
	// BumpNone records a package as touched without changing its version.
	BumpNone Bump = iota
	// BumpPatch increments the patch component.
	BumpPatch
	// BumpMinor increments the minor component and resets patch.
	BumpMinor
	// BumpMajor increments the major component and resets minor and patch.
	BumpMajor
)

var bumpNames = map[Bump]string{
	BumpNone:  "none",
	BumpPatch: "patch",
	BumpMinor: "minor",
	BumpMajor: "major",
}

// String returns the lower-case bump name.
func (b Bump) String() string {
	if s, ok := bumpNames[b]; ok {
		return s
	}
	return fmt.Sprintf("Bump(%d)", int(b))
}

// ParseBump parses "major", "minor", "patch" or "none" (case-insensitive).
// Any other value fails with an INVALID_BUMP error.
func ParseBump(s string) (Bump, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return BumpMajor, nil
	case "minor":
		return BumpMinor, nil
	case "patch":
		return BumpPatch, nil
	case "none":
		return BumpNone, nil
	}
	return BumpNone, errors.New(errors.ErrCodeInvalidBump, "invalid bump type %q (want major, minor, patch or none)", s)
}

// MaxBump returns the larger of a and b.
func MaxBump(a, b Bump) Bump {
	if a > b {
		return a
	}
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (b Bump) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so bumps can be
// decoded directly from JSON, YAML and TOML documents.
func (b *Bump) UnmarshalText(text []byte) error {
	parsed, err := ParseBump(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
