package deps

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackbump/pkg/errors"
)

const (
	// DefaultWorkspaceGlob is used when the root manifest declares no workspaces.
	DefaultWorkspaceGlob = "packages/*"

	discoverWorkers = 8
)

// Finder discovers packages in a workspace rooted at Root. Manifests are
// read through FS so tests can run against an in-memory tree; paths in the
// returned records are joined onto Root.
type Finder struct {
	FS   fs.FS
	Root string
	// Patterns overrides the root manifest's workspace globs when non-empty.
	Patterns []string
	// IncludePrivate keeps packages marked "private": true.
	IncludePrivate bool
}

// NewFinder returns a Finder reading from the directory root on disk.
func NewFinder(root string) *Finder {
	return &Finder{FS: os.DirFS(root), Root: root, IncludePrivate: true}
}

// Discover reads the root manifest, expands its workspace globs and parses
// every matched package manifest concurrently. Records are returned sorted
// by name. Duplicate package names fail with INVALID_PACKAGE.
func (f *Finder) Discover(ctx context.Context) ([]PackageInfo, error) {
	patterns, err := f.patterns()
	if err != nil {
		return nil, err
	}

	manifests, err := f.expand(patterns)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		pkgs []PackageInfo
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(discoverWorkers)
	for _, rel := range manifests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, ok, err := f.read(rel)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			pkgs = append(pkgs, info)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(pkgs, func(a, b PackageInfo) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(pkgs); i++ {
		if pkgs[i].Name == pkgs[i-1].Name {
			return nil, errors.New(errors.ErrCodeInvalidPackage,
				"duplicate package %q in %s and %s", pkgs[i].Name, pkgs[i-1].Path, pkgs[i].Path)
		}
	}
	return pkgs, nil
}

func (f *Finder) patterns() ([]string, error) {
	if len(f.Patterns) > 0 {
		return f.Patterns, nil
	}
	data, err := fs.ReadFile(f.FS, ManifestName)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []string{DefaultWorkspaceGlob}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read root manifest")
	}
	root, err := ParseManifest(ManifestName, data)
	if err != nil {
		return nil, err
	}
	if len(root.Workspaces) == 0 {
		return []string{DefaultWorkspaceGlob}, nil
	}
	return root.Workspaces, nil
}

// expand resolves workspace globs to manifest paths relative to the FS root.
// Negated patterns ("!packages/legacy", "!packages/legacy-*") remove earlier
// matches whose directory matches the pattern.
func (f *Finder) expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		p = strings.TrimSuffix(path.Clean(strings.TrimPrefix(p, "./")), "/")
		if excl, ok := strings.CutPrefix(p, "!"); ok {
			for m := range seen {
				hit, err := path.Match(excl, path.Dir(m))
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "workspace pattern %q", p)
				}
				if hit {
					delete(seen, m)
				}
			}
			continue
		}
		if err := errors.ValidatePath(p); err != nil {
			return nil, err
		}
		matches, err := fs.Glob(f.FS, path.Join(p, ManifestName))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "workspace pattern %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	out = slices.DeleteFunc(out, func(m string) bool { return !seen[m] })
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (f *Finder) read(rel string) (PackageInfo, bool, error) {
	data, err := fs.ReadFile(f.FS, rel)
	if err != nil {
		return PackageInfo{}, false, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", rel)
	}
	m, err := ParseManifest(rel, data)
	if err != nil {
		return PackageInfo{}, false, err
	}
	if m.Name == "" || (m.Private && !f.IncludePrivate) {
		return PackageInfo{}, false, nil
	}
	if err := errors.ValidateNpmPackageName(m.Name); err != nil {
		return PackageInfo{}, false, errors.Wrap(errors.ErrCodeInvalidPackage, err, "%s", rel)
	}
	return m.Info(filepath.Join(f.Root, filepath.FromSlash(rel))), true, nil
}
