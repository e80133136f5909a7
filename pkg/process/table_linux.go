//go:build linux

package process

import (
	"errors"
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcTable reads the process table from /proc.
type ProcTable struct {
	fs procfs.FS
}

// NewProcTable opens the default /proc mount.
func NewProcTable() (*ProcTable, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &ProcTable{fs: fs}, nil
}

// List implements Table. Processes that vanish mid-scan are skipped.
func (t *ProcTable) List() ([]Info, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(procs))
	for _, p := range procs {
		comm, err := p.Comm()
		if err != nil {
			continue
		}
		out = append(out, Info{PID: p.PID, Name: comm})
	}
	return out, nil
}

// Kill implements Table.
func (t *ProcTable) Kill(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// SetPriority implements Table. Linux niceness is per thread, so every task
// of the process is adjusted.
func (t *ProcTable) SetPriority(pid, nice int) error {
	threads, err := t.fs.AllThreads(pid)
	if err != nil || len(threads) == 0 {
		return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
	}

	var errs []error
	for _, th := range threads {
		if err := unix.Setpriority(unix.PRIO_PROCESS, th.PID, nice); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("tid %d: %w", th.PID, err))
		}
	}
	return errors.Join(errs...)
}
