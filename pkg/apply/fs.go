package apply

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FS is the filesystem capability the engine writes manifests through.
type FS interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces path atomically: readers see either the old or the
	// new content, never a partial write.
	WriteFile(path string, data []byte) error
	Exists(path string) (bool, error)
	Remove(path string) error
}

// OSFS is the real filesystem.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// WriteFile writes to a temporary file in the same directory and renames it
// over path, keeping the original file mode when path already exists.
func (OSFS) WriteFile(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		return err
	}
	return os.Rename(name, path)
}

func (OSFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (OSFS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemFS is an in-memory FS for tests. Writes listed in FailWrites fail with
// the given error and leave the file untouched.
type MemFS struct {
	mu    sync.Mutex
	files map[string][]byte

	// FailWrites maps a path to the error its next writes return.
	FailWrites map[string]error
	// writes records every successful write in order.
	writes []string
}

// NewMemFS returns a MemFS holding a copy of files.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{files: make(map[string][]byte, len(files)), FailWrites: map[string]error{}}
	for p, content := range files {
		m.files[filepath.Clean(p)] = []byte(content)
	}
	return m
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return slices.Clone(data), nil
}

func (m *MemFS) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.FailWrites[path]; err != nil {
		return &fs.PathError{Op: "write", Path: path, Err: err}
	}
	m.files[path] = slices.Clone(data)
	m.writes = append(m.writes, path)
	return nil
}

func (m *MemFS) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filepath.Clean(path)]
	return ok, nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
	return nil
}

// Files returns a snapshot of every file's content.
func (m *MemFS) Files() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.files))
	for p, data := range m.files {
		out[p] = string(data)
	}
	return out
}

// Writes returns the paths written so far, in order.
func (m *MemFS) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.writes)
}
