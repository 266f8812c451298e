package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stackbump/pkg/apply"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/observability"
	"github.com/matzehuels/stackbump/pkg/version"
)

// writeWorkspace lays out a two-package workspace where b depends on a,
// with a pending minor changeset for a.
func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json":            `{"name": "root", "private": true, "workspaces": ["packages/*"]}`,
		"packages/a/package.json": "{\n  \"name\": \"a\",\n  \"version\": \"1.0.0\"\n}\n",
		"packages/b/package.json": "{\n  \"name\": \"b\",\n  \"version\": \"1.0.0\",\n  \"dependencies\": {\n    \"a\": \"^1.0.0\"\n  }\n}\n",
		".changeset/login.yaml":   "branch: feat/login\nbump: minor\npackages: [a]\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// runCLI executes the root command and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	c := New(&logs, LogDebug)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	if ferr := c.FlushMetrics(); ferr != nil {
		t.Fatalf("FlushMetrics() error: %v", ferr)
	}
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestPlanJSON(t *testing.T) {
	dir := writeWorkspace(t)
	out, err := runCLI(t, "-C", dir, "plan", "--json")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}

	var res version.VersionResolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	want := map[string]string{"a": "1.1.0", "b": "1.0.1"}
	if len(res.Updates) != len(want) {
		t.Fatalf("got %d updates, want %d", len(res.Updates), len(want))
	}
	for _, u := range res.Updates {
		if got := u.NextVersion.String(); got != want[u.Name] {
			t.Errorf("%s next = %s, want %s", u.Name, got, want[u.Name])
		}
	}
	b, _ := res.Update("b")
	if len(b.DependencyUpdates) != 1 || b.DependencyUpdates[0].NewSpec != "^1.1.0" {
		t.Errorf("b dependency updates = %+v", b.DependencyUpdates)
	}
}

func TestPlanText(t *testing.T) {
	dir := writeWorkspace(t)
	out, err := runCLI(t, "-C", dir, "plan", "--packages", "b", "--bump", "major")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	for _, want := range []string{"b", "2.0.0", "direct change", "1 direct"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanNoChangesets(t *testing.T) {
	dir := writeWorkspace(t)
	if err := os.RemoveAll(filepath.Join(dir, ".changeset")); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "-C", dir, "plan")
	if !errors.Is(err, errors.ErrCodeInvalidChangeset) {
		t.Errorf("got %v, want INVALID_CHANGESET", err)
	}
}

func TestPlanConfigOverrides(t *testing.T) {
	dir := writeWorkspace(t)
	cfg := "strategy = \"unified\"\n"
	if err := os.WriteFile(filepath.Join(dir, "stackbump.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "-C", dir, "plan", "--json", "--strategy", "independent", "--propagate=false")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	var res version.VersionResolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Updates) != 1 || res.Updates[0].Name != "a" {
		t.Errorf("flags should override the file; got %v", res.Names())
	}

	_, err = runCLI(t, "-C", dir, "plan", "--strategy", "lockstep")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("got %v, want INVALID_CONFIG", err)
	}
}

func TestApply(t *testing.T) {
	dir := writeWorkspace(t)
	pathB := filepath.Join(dir, "packages", "b", "package.json")
	before := readFile(t, pathB)

	out, err := runCLI(t, "-C", dir, "apply", "--dry-run")
	if err != nil {
		t.Fatalf("dry run error: %v", err)
	}
	if !strings.Contains(out, "2 file(s) would change") {
		t.Errorf("dry run output:\n%s", out)
	}
	if got := readFile(t, pathB); got != before {
		t.Error("dry run modified a manifest")
	}

	if _, err := runCLI(t, "-C", dir, "apply"); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	got := readFile(t, pathB)
	if !strings.Contains(got, `"version": "1.0.1"`) || !strings.Contains(got, `"a": "^1.1.0"`) {
		t.Errorf("b after apply:\n%s", got)
	}
	backups, _ := filepath.Glob(filepath.Join(dir, "packages", "*", "*"+apply.BackupSuffix+"*"))
	if len(backups) != 0 {
		t.Errorf("backups left behind: %v", backups)
	}
}

func TestApplySnapshotJSON(t *testing.T) {
	dir := writeWorkspace(t)
	out, err := runCLI(t, "-C", dir, "apply", "--snapshot", "--json",
		"--format", "{version}-{branch}.{commit}", "--commit", "abcdef123456")
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}
	var result apply.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if len(result.ModifiedFiles) != 2 || result.RolledBack {
		t.Errorf("result = %+v", result)
	}

	got := readFile(t, filepath.Join(dir, "packages", "b", "package.json"))
	for _, want := range []string{`"version": "1.0.1-feat-login.abcdef1"`, `"a": "1.1.0-feat-login.abcdef1"`} {
		if !strings.Contains(got, want) {
			t.Errorf("b missing %s:\n%s", want, got)
		}
	}
}

func TestSnapshotUnderscoreBranch(t *testing.T) {
	dir := writeWorkspace(t)
	out, err := runCLI(t, "-C", dir, "snapshot", "--json",
		"--format", "{version}-{branch}.{commit}", "--branch", "feat/my_branch", "--commit", "abc123def")
	if err != nil {
		t.Fatalf("snapshot error: %v", err)
	}
	for _, want := range []string{`"snapshot":"1.1.0-feat-my_branch.abc123d"`, `"snapshot":"1.0.1-feat-my_branch.abc123d"`} {
		if !strings.Contains(strings.Join(strings.Fields(out), ""), want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSnapshotInvalidTemplate(t *testing.T) {
	dir := writeWorkspace(t)
	_, err := runCLI(t, "-C", dir, "snapshot", "--format", "{branch}")
	if !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("got %v, want INVALID_TEMPLATE", err)
	}
}

func TestGraphDOT(t *testing.T) {
	dir := writeWorkspace(t)
	out, err := runCLI(t, "-C", dir, "graph", "--updates")
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}
	for _, want := range []string{"digraph G {", `"b" -> "a"`, `1.0.0 → 1.1.0`} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "-C", dir, "graph", "--format", "gif"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestMetricsFile(t *testing.T) {
	t.Cleanup(observability.Reset)
	dir := writeWorkspace(t)
	metrics := filepath.Join(t.TempDir(), "stackbump.prom")

	if _, err := runCLI(t, "-C", dir, "--metrics-file", metrics, "plan"); err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if got := readFile(t, metrics); !strings.Contains(got, "stackbump_resolve_total") {
		t.Errorf("metrics file:\n%s", got)
	}
}

func TestCacheCommands(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	dir := writeWorkspace(t)
	cfg := "[cache]\nbackend = \"file\"\n"
	if err := os.WriteFile(filepath.Join(dir, "stackbump.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "-C", dir, "plan"); err != nil {
		t.Fatalf("plan error: %v", err)
	}
	out, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	cacheDir := strings.TrimSpace(out)
	entries, _ := os.ReadDir(cacheDir)
	if len(entries) == 0 {
		t.Fatalf("plan should have stored a resolution under %s", cacheDir)
	}

	if _, err := runCLI(t, "-C", dir, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	entries, _ = os.ReadDir(cacheDir)
	if len(entries) != 0 {
		t.Errorf("cache clear left %d entries", len(entries))
	}
}

func TestCompletion(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "stackbump") {
		t.Error("bash completion should mention the command name")
	}
}
