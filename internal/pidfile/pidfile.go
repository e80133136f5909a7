// Package pidfile implements the single-instance guard for the agent.
//
// The guard is an exclusive advisory lock held on the pid file for the
// lifetime of the agent. The pid written into the file is informational;
// a file whose lock nobody holds is stale whatever it contains.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/cctv/errors"
)

// Lock is a held single-instance lock.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path and records the current PID in it.
// It returns an ALREADY_RUNNING error if another instance holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create pid directory: %w", err)
	}

	// A holder may unlink the file between our open and our lock; the lock
	// then covers an orphaned inode and the open is retried.
	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open pid file: %w", err)
		}

		held, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to lock pid file: %w", err)
		}
		if !held {
			f.Close()
			pid, _ := Read(path)
			return nil, errors.AlreadyRunning(pid)
		}

		if !sameFile(f, path) {
			f.Close()
			continue
		}

		if err := writePID(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write pid file: %w", err)
		}
		return &Lock{path: path, f: f}, nil
	}

	return nil, fmt.Errorf("failed to acquire pid file %s", path)
}

// Release removes the pid file and drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	rmErr := os.Remove(l.path)
	if os.IsNotExist(rmErr) {
		rmErr = nil
	}
	closeErr := l.f.Close()
	l.f = nil
	return firstErr(rmErr, closeErr)
}

// Path returns the locked file.
func (l *Lock) Path() string {
	return l.path
}

// Read returns the PID from the file.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(content))
	return strconv.Atoi(pidStr)
}

// IsRunning reports whether some instance holds the lock at path, and the
// PID it recorded.
func IsRunning(path string) (bool, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer f.Close()

	free, err := tryShared(f)
	if err != nil {
		return false, 0, err
	}
	if free {
		return false, 0, nil
	}
	pid, _ := Read(path)
	return true, pid, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}

func sameFile(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
