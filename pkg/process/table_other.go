//go:build !linux

package process

import (
	"fmt"
	"runtime"
)

// ProcTable is only implemented on Linux.
type ProcTable struct{}

// NewProcTable reports that the process table is unavailable on this platform.
func NewProcTable() (*ProcTable, error) {
	return nil, fmt.Errorf("process table not supported on %s", runtime.GOOS)
}

func (t *ProcTable) List() ([]Info, error) { return nil, fmt.Errorf("unsupported") }

func (t *ProcTable) Kill(pid int) error { return fmt.Errorf("unsupported") }

func (t *ProcTable) SetPriority(pid, nice int) error { return fmt.Errorf("unsupported") }
