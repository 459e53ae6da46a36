// Package docstore persists whole serialized documents by name. Callers
// always read and write a document in full; there are no partial updates.
package docstore

import "fmt"

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Storage is durable key-document storage.
type Storage interface {
	Exists(name string) (bool, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Close() error
}

// IOError reports a failed storage operation. It unwraps to the cause.
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Open returns the storage backend named by backend. dir is the profile
// directory for file storage; dbPath is the database for sqlite.
func Open(backend, dir, dbPath string) (Storage, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStorage(dir), nil
	case BackendSQLite:
		s, err := OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		if _, err := s.Migrate(); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
