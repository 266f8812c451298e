package deps

import (
	"encoding/json"
	"strings"

	"github.com/matzehuels/stackbump/pkg/errors"
)

// ManifestName is the file name of a package manifest.
const ManifestName = "package.json"

// Manifest is the subset of package.json read during discovery.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Private              bool              `json:"private"`
	Workspaces           workspaceGlobs    `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// workspaceGlobs accepts both the array form and the object form
// ({"packages": [...]}) of the "workspaces" field.
type workspaceGlobs []string

func (w *workspaceGlobs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*w = obj.Packages
	return nil
}

// ParseManifest decodes package.json content read from path.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	m.Name = strings.TrimSpace(m.Name)
	return &m, nil
}

// Info converts the manifest into a package record located at path.
func (m *Manifest) Info(path string) PackageInfo {
	return PackageInfo{
		Name:                 m.Name,
		Version:              m.Version,
		Path:                 path,
		Dependencies:         m.Dependencies,
		DevDependencies:      m.DevDependencies,
		PeerDependencies:     m.PeerDependencies,
		OptionalDependencies: m.OptionalDependencies,
	}
}
