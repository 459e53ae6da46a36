package docstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func testSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Storage {
	return map[string]Storage{
		"file":   NewFileStorage(filepath.Join(t.TempDir(), "profile")),
		"sqlite": testSQLite(t),
	}
}

func TestStorageContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Exists("chats.json")
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatal("Exists() = true before any write")
			}

			_, err = s.Read("chats.json")
			var ioErr *IOError
			if !errors.As(err, &ioErr) {
				t.Fatalf("Read() missing error = %T %v, want *IOError", err, err)
			}
			if !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("Read() missing error = %v, want fs.ErrNotExist", err)
			}

			if err := s.Write("chats.json", []byte(`{"1":{}}`)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := s.Write("chats.json", []byte(`{"2":{"name":"Zoë 😊"}}`)); err != nil {
				t.Fatalf("second Write() error = %v", err)
			}

			ok, err = s.Exists("chats.json")
			if err != nil || !ok {
				t.Fatalf("Exists() = %v, %v after write", ok, err)
			}
			data, err := s.Read("chats.json")
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != `{"2":{"name":"Zoë 😊"}}` {
				t.Errorf("Read() = %q", data)
			}

			ok, err = s.Exists("calls.json")
			if err != nil || ok {
				t.Errorf("Exists(calls.json) = %v, %v, documents must be independent", ok, err)
			}
		})
	}
}

func TestFileStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir)
	for range 3 {
		if err := s.Write("calls.json", []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "calls.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [calls.json]", names)
	}
	info, err := os.Stat(filepath.Join(dir, "calls.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestFileStorageWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStorage(filepath.Join(blocker, "profile"))

	err := s.Write("chats.json", []byte("{}"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Write() error = %T %v, want *IOError", err, err)
	}
	if ioErr.Op != "write" || ioErr.Name != "chats.json" {
		t.Errorf("IOError = %+v", ioErr)
	}
}

func TestMigrate(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	first, err := s.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !first.Applied || first.Version != 1 {
		t.Errorf("first Migrate() = %+v, want applied version 1", first)
	}

	second, err := s.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if second.Applied {
		t.Error("second Migrate() should report Applied=false")
	}
	if second.Version != 1 {
		t.Errorf("version = %d, want 1", second.Version)
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(BackendFile, dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStorage); !ok {
		t.Errorf("Open(file) = %T", s)
	}

	db, err := Open(BackendSQLite, dir, filepath.Join(dir, "chatter.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, ok := db.(*SQLiteStorage); !ok {
		t.Errorf("Open(sqlite) = %T", db)
	}

	s, err = Open("", dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStorage); !ok {
		t.Errorf("Open(\"\") = %T, want the file backend", s)
	}

	if _, err := Open("redis", dir, ""); err == nil {
		t.Error("Open(redis) should fail")
	}
}
