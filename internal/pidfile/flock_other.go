//go:build !unix

package pidfile

import (
	"fmt"
	"os"
	"runtime"
)

func tryLock(f *os.File) (bool, error) {
	return false, fmt.Errorf("file locking not supported on %s", runtime.GOOS)
}

func tryShared(f *os.File) (bool, error) {
	return false, fmt.Errorf("file locking not supported on %s", runtime.GOOS)
}
