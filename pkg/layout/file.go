// file.go - Layout records as JSON files, one per template, in a config directory.
package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xob0t/FormStencil/pkg/keylock"
)

// FileStore keeps each layout in <dir>/<template name>.json.
// Saves are atomic per record: the document is written to a temporary file
// and renamed over the previous one while holding a per-name lock.
type FileStore struct {
	dir   string
	locks keylock.Locks[string]
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads the record for name.
func (s *FileStore) Load(_ context.Context, name string) (*Layout, bool) {
	if err := ValidateName(name); err != nil {
		Logger().Warn("layout lookup rejected", "template", name, "err", err)
		return nil, false
	}

	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		Logger().Error("read layout", "path", path, "err", err)
		return nil, false
	}

	l, err := Decode(data)
	if err != nil {
		Logger().Error("malformed layout record", "path", path, "err", err)
		return nil, false
	}
	return l, true
}

// Save writes the record for name, replacing any previous one.
func (s *FileStore) Save(_ context.Context, name string, l *Layout) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(l)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", s.path(name), err)
	}

	Logger().Info("layout saved", "template", name, "fields", len(l.Fields))
	return nil
}
