//go:build !linux

package process

import (
	"context"
	"fmt"
	"runtime"
)

// WaitExit blocks until pid exits or ctx is done, probing every pollInterval.
func WaitExit(ctx context.Context, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	return pollExit(ctx, pid, pollInterval)
}

// SetThreadNice is not supported outside Linux.
func SetThreadNice(nice int) error {
	return fmt.Errorf("thread priority not supported on %s", runtime.GOOS)
}
