package deps

import (
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/stackbump/pkg/semver"
)

// Protocol is the classification of a raw dependency specifier. The set of
// implementations is closed: [Workspace], [Local] and [Semver].
type Protocol interface {
	// Name returns the protocol family as used in skip lists
	// ("workspace", "file", "link", "portal" or "semver").
	Name() string
	isProtocol()
}

// Workspace is a "workspace:" specifier. Range holds the part after the
// prefix, e.g. "*", "^" or "^1.2.3".
type Workspace struct{ Range string }

// LocalKind distinguishes the path-based local protocols.
type LocalKind int

const (
	File LocalKind = iota
	Link
	Portal
)

func (k LocalKind) String() string {
	switch k {
	case Link:
		return "link"
	case Portal:
		return "portal"
	default:
		return "file"
	}
}

// Local is a path-based specifier ("file:", "link:", "portal:" or a bare
// relative path).
type Local struct {
	Kind LocalKind
	Path string
}

// Semver is an ordinary range such as "^1.2.3", "~2.0.0" or "latest".
type Semver struct{ Range string }

func (Workspace) Name() string { return "workspace" }
func (l Local) Name() string   { return l.Kind.String() }
func (Semver) Name() string    { return "semver" }

func (Workspace) isProtocol() {}
func (Local) isProtocol()     {}
func (Semver) isProtocol()    {}

// DefaultSkipProtocols are the protocol families left untouched when a
// dependency's version changes.
var DefaultSkipProtocols = []string{"workspace", "file", "link", "portal"}

// DetectProtocol classifies a raw specifier.
func DetectProtocol(spec string) Protocol {
	s := strings.TrimSpace(spec)
	switch {
	case strings.HasPrefix(s, "workspace:"):
		return Workspace{Range: strings.TrimPrefix(s, "workspace:")}
	case strings.HasPrefix(s, "file:"):
		return Local{Kind: File, Path: strings.TrimPrefix(s, "file:")}
	case strings.HasPrefix(s, "link:"):
		return Local{Kind: Link, Path: strings.TrimPrefix(s, "link:")}
	case strings.HasPrefix(s, "portal:"):
		return Local{Kind: Portal, Path: strings.TrimPrefix(s, "portal:")}
	case strings.HasPrefix(s, "./"), strings.HasPrefix(s, "../"), strings.HasPrefix(s, "/"):
		return Local{Kind: File, Path: s}
	}
	return Semver{Range: s}
}

// IsLocal reports whether the specifier always refers to the in-repo
// package (workspace or path protocols).
func IsLocal(spec string) bool {
	_, ok := DetectProtocol(spec).(Semver)
	return !ok
}

// Operator is the leading comparison of a single-version range.
type Operator string

const (
	OpExact Operator = ""
	OpCaret Operator = "^"
	OpTilde Operator = "~"
	OpGTE   Operator = ">="
)

var simpleRangeRe = regexp.MustCompile(`^(\^|~|>=)?\s*v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?)$`)

// ParseRange splits a single-version range into its operator and version.
// Compound ranges ("1.x", ">=1 <2", "^1 || ^2"), wildcards and tags are
// not simple ranges and report ok=false.
func ParseRange(r string) (op Operator, version string, ok bool) {
	m := simpleRangeRe.FindStringSubmatch(strings.TrimSpace(r))
	if m == nil {
		return OpExact, "", false
	}
	return Operator(m[1]), m[2], true
}

// RewriteSpec returns the specifier spec updated to point at next, keeping
// its protocol family and range operator. Specifiers whose protocol is in
// skip, path-based specifiers, and ranges that are not a single version are
// returned unchanged with changed=false.
func RewriteSpec(spec string, next semver.Version, skip []string) (rewritten string, changed bool) {
	p := DetectProtocol(spec)
	if slices.Contains(skip, p.Name()) {
		return spec, false
	}

	switch p := p.(type) {
	case Workspace:
		op, _, ok := ParseRange(p.Range)
		if !ok {
			return spec, false
		}
		rewritten = "workspace:" + string(op) + next.String()
	case Local:
		return spec, false
	case Semver:
		op, _, ok := ParseRange(p.Range)
		if !ok {
			return spec, false
		}
		rewritten = string(op) + next.String()
	}

	return rewritten, rewritten != spec
}
