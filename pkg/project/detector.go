// Package project locates the root folder a source file belongs to, so
// report headers can show paths relative to the project rather than
// absolute ones.
package project

import (
	"os"
	"path/filepath"
)

// Detector identifies project root folders by walking up the directory
// tree looking for well-known marker files.
type Detector struct {
	markers []string
}

// New creates a detector with the default marker set.
func New() *Detector {
	return &Detector{
		markers: []string{
			"go.mod",
			"pipelens.yaml",
			"package.json",
			"Cargo.toml",
			"pyproject.toml",
			".git",
		},
	}
}

// Root returns the project root directory for the given file path, or ""
// when no marker is found anywhere up the tree.
func (d *Detector) Root(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}

	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		for _, marker := range d.markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Rel returns the path of file relative to its project root. When no
// root is found (or the relative path cannot be computed) it falls back
// to the base file name.
func (d *Detector) Rel(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}

	root := d.Root(abs)
	if root == "" {
		return filepath.Base(abs)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.Base(abs)
	}
	return rel
}
