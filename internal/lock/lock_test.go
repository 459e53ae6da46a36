package lock

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	owner, err := ReadOwner(path)
	if err != nil {
		t.Fatalf("ReadOwner() error = %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("owner PID = %d, want %d", owner.PID, os.Getpid())
	}
	if time.Since(owner.Since) > time.Minute {
		t.Errorf("owner since = %v, want about now", owner.Since)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := ReadOwner(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadOwner() after Release error = %v, want not exist", err)
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(path)
	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockHeldError, got %T: %v", err, err)
	}
	if lockErr.Owner.PID != os.Getpid() || lockErr.Path != path {
		t.Errorf("lockErr = %+v", lockErr)
	}
}

func TestAcquireMissingDir(t *testing.T) {
	if _, err := Acquire(filepath.Join(t.TempDir(), "nope", "LOCK")); err == nil {
		t.Fatal("Acquire() in a missing directory should fail")
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(filepath.Join(t.TempDir(), "LOCK"))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestParseOwner(t *testing.T) {
	since := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		content string
		want    Owner
	}{
		{"pid=42\ntime=2024-03-20T10:00:00Z\n", Owner{PID: 42, Since: since}},
		{"time=x\npid=7", Owner{PID: 7}},
		{"", Owner{}},
		{"pid=abc", Owner{}},
	}
	for _, tt := range tests {
		if got := parseOwner(tt.content); !got.Since.Equal(tt.want.Since) || got.PID != tt.want.PID {
			t.Errorf("parseOwner(%q) = %+v, want %+v", tt.content, got, tt.want)
		}
	}

	o := Owner{PID: 9, Since: since}
	if got := parseOwner(o.String()); got.PID != 9 || !got.Since.Equal(since) {
		t.Errorf("parseOwner(String()) = %+v, want %+v", got, o)
	}
}
