package docstore

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage keeps documents as rows of the documents table.
type SQLiteStorage struct {
	*sql.DB
}

// OpenSQLite creates a new SQLite connection with WAL mode and recommended pragmas.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &SQLiteStorage{db}, nil
}

// Exists reports whether a row for name is present.
func (s *SQLiteStorage) Exists(name string) (bool, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM documents WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, &IOError{Op: "stat", Name: name, Err: err}
	}
	return n > 0, nil
}

// Read returns the stored body. A missing row is reported as fs.ErrNotExist.
func (s *SQLiteStorage) Read(name string) ([]byte, error) {
	var body string
	err := s.QueryRow(`SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &IOError{Op: "read", Name: name, Err: fs.ErrNotExist}
	}
	if err != nil {
		return nil, &IOError{Op: "read", Name: name, Err: err}
	}
	return []byte(body), nil
}

// Write upserts the whole document.
func (s *SQLiteStorage) Write(name string, data []byte) error {
	_, err := s.Exec(`
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		name, string(data), time.Now().UnixMilli())
	if err != nil {
		return &IOError{Op: "write", Name: name, Err: err}
	}
	return nil
}
