package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is a scratch directory owned by a single request.
type Workspace struct {
	dir  string
	keep bool
}

// NewWorkspace creates <root>/<id>. keep leaves the directory in place on
// Cleanup for debugging.
func NewWorkspace(root, id string, keep bool) (*Workspace, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("workspace: invalid id %q", id)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: ensure root: %w", err)
	}
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create: %w", err)
	}
	return &Workspace{dir: dir, keep: keep}, nil
}

// Dir is the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the workspace root.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile stores data under name and returns the full path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("workspace: write %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes the workspace unless it was created with keep. Safe to
// call more than once.
func (w *Workspace) Cleanup() error {
	if w == nil || w.keep {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("workspace: cleanup: %w", err)
	}
	return nil
}
