// registry.go - Template image discovery in the templates directory.
package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xob0t/FormStencil/pkg/layout"
)

// TemplateExtensions are the recognised template file extensions (lower case).
var TemplateExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// IsTemplateFile reports whether name has a recognised image extension.
func IsTemplateFile(name string) bool {
	return slices.Contains(TemplateExtensions, strings.ToLower(filepath.Ext(name)))
}

// Registry lists the templates stored in one directory. A template's file
// name is its identity.
type Registry struct {
	dir string
}

// NewRegistry creates a registry over dir. The directory need not exist yet.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Dir returns the templates directory.
func (r *Registry) Dir() string {
	return r.dir
}

// List returns template names in lexicographic order, so that numbered
// selection refers to the same file on every platform. A missing or
// unreadable directory yields an empty list.
func (r *Registry) List() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			Logger().Warn("list templates", "dir", r.dir, "err", err)
		}
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names
}

// Path resolves a template name to its file.
func (r *Registry) Path(name string) (string, error) {
	if err := layout.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}

	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrTemplateNotFound, path)
	}
	return path, nil
}
