//go:build unix

package pidfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock takes an exclusive lock on f without blocking. It reports false
// when another open file holds a lock.
func tryLock(f *os.File) (bool, error) {
	return flock(f, unix.LOCK_EX|unix.LOCK_NB)
}

// tryShared probes the lock on f. It reports true when nobody holds an
// exclusive lock; the probe lock is released before returning.
func tryShared(f *os.File) (bool, error) {
	free, err := flock(f, unix.LOCK_SH|unix.LOCK_NB)
	if err != nil || !free {
		return free, err
	}
	return true, unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func flock(f *os.File, how int) (bool, error) {
	for {
		err := unix.Flock(int(f.Fd()), how)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return false, nil
		default:
			return false, err
		}
	}
}
