package deps

import (
	"testing"

	"github.com/matzehuels/stackbump/pkg/semver"
)

func TestDetectProtocol(t *testing.T) {
	tests := []struct {
		spec string
		want Protocol
	}{
		{"workspace:*", Workspace{Range: "*"}},
		{"workspace:^1.2.0", Workspace{Range: "^1.2.0"}},
		{"file:../core", Local{Kind: File, Path: "../core"}},
		{"link:../core", Local{Kind: Link, Path: "../core"}},
		{"portal:../core", Local{Kind: Portal, Path: "../core"}},
		{"../core", Local{Kind: File, Path: "../core"}},
		{"^1.2.3", Semver{Range: "^1.2.3"}},
		{"latest", Semver{Range: "latest"}},
		{" ~2.0.0 ", Semver{Range: "~2.0.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if got := DetectProtocol(tt.spec); got != tt.want {
				t.Errorf("DetectProtocol(%q) = %#v, want %#v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestProtocolName(t *testing.T) {
	tests := map[string]string{
		"workspace:*":  "workspace",
		"file:../a":    "file",
		"link:../a":    "link",
		"portal:../a":  "portal",
		"^1.0.0":       "semver",
		"npm:foo@^1.0": "semver",
	}
	for spec, want := range tests {
		if got := DetectProtocol(spec).Name(); got != want {
			t.Errorf("DetectProtocol(%q).Name() = %q, want %q", spec, got, want)
		}
	}
}

func TestIsLocal(t *testing.T) {
	if !IsLocal("workspace:*") || !IsLocal("file:../x") {
		t.Error("workspace and file specifiers should be local")
	}
	if IsLocal("^1.0.0") {
		t.Error("semver range should not be local")
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		op      Operator
		version string
		ok      bool
	}{
		{"^1.2.3", OpCaret, "1.2.3", true},
		{"~1.2.3", OpTilde, "1.2.3", true},
		{">=1.2.3", OpGTE, "1.2.3", true},
		{">= 1.2.3", OpGTE, "1.2.3", true},
		{"1.2.3", OpExact, "1.2.3", true},
		{"v1.2.3", OpExact, "1.2.3", true},
		{"^1.0.0-beta.1", OpCaret, "1.0.0-beta.1", true},
		{"*", OpExact, "", false},
		{"1.x", OpExact, "", false},
		{">=1.0.0 <2.0.0", OpExact, "", false},
		{"^1.0.0 || ^2.0.0", OpExact, "", false},
		{"latest", OpExact, "", false},
		{"^", OpExact, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, v, ok := ParseRange(tt.in)
			if op != tt.op || v != tt.version || ok != tt.ok {
				t.Errorf("ParseRange(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, op, v, ok, tt.op, tt.version, tt.ok)
			}
		})
	}
}

func TestRewriteSpec(t *testing.T) {
	next := semver.MustParse("1.1.0")

	tests := []struct {
		name        string
		spec        string
		skip        []string
		want        string
		wantChanged bool
	}{
		{"caret", "^1.0.0", DefaultSkipProtocols, "^1.1.0", true},
		{"tilde", "~1.0.0", DefaultSkipProtocols, "~1.1.0", true},
		{"gte", ">=1.0.0", DefaultSkipProtocols, ">=1.1.0", true},
		{"exact", "1.0.0", DefaultSkipProtocols, "1.1.0", true},
		{"already current", "^1.1.0", DefaultSkipProtocols, "^1.1.0", false},
		{"wildcard untouched", "*", DefaultSkipProtocols, "*", false},
		{"compound untouched", ">=1.0.0 <2.0.0", DefaultSkipProtocols, ">=1.0.0 <2.0.0", false},
		{"workspace star skipped", "workspace:*", DefaultSkipProtocols, "workspace:*", false},
		{"workspace version skipped", "workspace:^1.0.0", DefaultSkipProtocols, "workspace:^1.0.0", false},
		{"workspace rewritten when allowed", "workspace:^1.0.0", []string{"file"}, "workspace:^1.1.0", true},
		{"workspace star when allowed", "workspace:*", nil, "workspace:*", false},
		{"file skipped", "file:../core", DefaultSkipProtocols, "file:../core", false},
		{"link never rewritten", "link:../core", nil, "link:../core", false},
		{"portal never rewritten", "portal:../core", nil, "portal:../core", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := RewriteSpec(tt.spec, next, tt.skip)
			if got != tt.want || changed != tt.wantChanged {
				t.Errorf("RewriteSpec(%q) = (%q, %v), want (%q, %v)", tt.spec, got, changed, tt.want, tt.wantChanged)
			}
		})
	}
}
