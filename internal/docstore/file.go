package docstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage keeps each document as a UTF-8 file under dir.
type FileStorage struct {
	dir string
}

// NewFileStorage returns file storage rooted at dir. The directory is
// created on first write.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the document has been written.
func (s *FileStorage) Exists(name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &IOError{Op: "stat", Name: name, Err: err}
	}
	return true, nil
}

// Read returns the whole document.
func (s *FileStorage) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, &IOError{Op: "read", Name: name, Err: err}
	}
	return data, nil
}

// Write replaces the document. Data goes to a temp file in the same
// directory first and is renamed over the old file, so an interrupted
// write never leaves a truncated document behind.
func (s *FileStorage) Write(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &IOError{Op: "write", Name: name, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return &IOError{Op: "write", Name: name, Err: err}
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Name: name, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Name: name, Err: err}
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return &IOError{Op: "write", Name: name, Err: err}
	}
	return nil
}

// Close is a no-op.
func (s *FileStorage) Close() error {
	return nil
}
