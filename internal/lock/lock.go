// Package lock guards a profile directory with an flock so that only one
// chatterd rewrites its documents at a time.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Owner identifies the process holding a lock.
type Owner struct {
	PID   int
	Since time.Time
}

func (o Owner) String() string {
	return fmt.Sprintf("pid=%d\ntime=%s\n", o.PID, o.Since.UTC().Format(time.RFC3339))
}

func parseOwner(content string) Owner {
	var o Owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "time":
			o.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}

// LockHeldError is returned when another process holds the profile lock.
type LockHeldError struct {
	Owner Owner
	Path  string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("profile lock held by PID %d since %s (%s)",
		e.Owner.PID, e.Owner.Since.Format(time.RFC3339), e.Path)
}

// Lock is an acquired lock file. It is removed again on Release.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock on the file at path, creating it if
// needed, and records the calling process as owner.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(path)
		_ = f.Close()
		return nil, &LockHeldError{Owner: parseOwner(string(data)), Path: path}
	}

	owner := Owner{PID: os.Getpid(), Since: time.Now()}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(owner.String()), 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{file: f, path: path}, nil
}

// ReadOwner reports who holds the lock at path without taking it. An
// error wrapping fs.ErrNotExist means no daemon is running.
func ReadOwner(path string) (Owner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Owner{}, err
	}
	return parseOwner(string(data)), nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
