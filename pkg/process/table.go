package process

import (
	"errors"
	"fmt"
	"os"
)

// Info identifies one running process.
type Info struct {
	PID  int
	Name string
}

// Table is the view of the process table the agent needs.
type Table interface {
	// List returns every visible process.
	List() ([]Info, error)
	// Kill terminates pid immediately. A process that is already gone is not an error.
	Kill(pid int) error
	// SetPriority applies a nice value to every thread of pid.
	SetPriority(pid, nice int) error
}

// Matching returns the processes whose names match m, excluding the caller.
func Matching(t Table, m *Matcher) ([]Info, error) {
	all, err := t.List()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()
	var out []Info
	for _, p := range all {
		if p.PID == self {
			continue
		}
		if m.Match(p.Name) {
			out = append(out, p)
		}
	}
	return out, nil
}

// KillMatching kills every process matching m. It keeps going past
// individual failures and returns how many were killed plus the joined errors.
func KillMatching(t Table, m *Matcher) (int, error) {
	procs, err := Matching(t, m)
	if err != nil {
		return 0, err
	}

	killed := 0
	var errs []error
	for _, p := range procs {
		if err := t.Kill(p.PID); err != nil {
			errs = append(errs, fmt.Errorf("kill %s[%d]: %w", p.Name, p.PID, err))
			continue
		}
		killed++
	}
	return killed, errors.Join(errs...)
}
