// Package liveness ends the session when the surface's process exits.
package liveness

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/internal/lifecycle"
	"github.com/grovetools/cctv/internal/surface"
	"github.com/grovetools/cctv/pkg/process"
)

// WaitFunc blocks until pid exits or ctx is done.
type WaitFunc func(ctx context.Context, pid int) error

// Monitor watches one surface process.
type Monitor struct {
	signal *lifecycle.Signal
	wait   WaitFunc
	log    *logrus.Entry
}

// New returns a Monitor that fires signal. A nil wait uses process.WaitExit.
func New(signal *lifecycle.Signal, wait WaitFunc, log *logrus.Entry) *Monitor {
	if wait == nil {
		wait = process.WaitExit
	}
	return &Monitor{signal: signal, wait: wait, log: log}
}

// Watch resolves the owning process of h once and blocks until it exits or
// ctx ends. The signal is fired on every return path, including an invalid
// handle at entry.
func (m *Monitor) Watch(ctx context.Context, h surface.Handle) {
	reason := "surface process exited"
	defer func() {
		m.signal.Fire(reason)
	}()

	if !h.Valid() {
		reason = "surface handle invalid"
		m.log.Warn("Surface already gone, not monitoring")
		return
	}

	log := m.log.WithField("pid", h.PID)
	log.Debug("Watching surface process")

	if err := m.wait(ctx, h.PID); err != nil {
		if ctx.Err() != nil {
			reason = "shutdown"
			return
		}
		reason = "surface process wait failed"
		log.WithError(err).Warn("Cannot wait on surface process")
		return
	}
	log.Info("Surface process exited")
}
