// Package lifecycle holds the one synchronization primitive shared by every
// session activity: a fire-once, observed-by-many termination signal.
package lifecycle

import (
	"context"
	"sync"
)

// Signal is set at most once and wakes every current and future waiter.
// The zero value is not usable; call NewSignal.
type Signal struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	reason string
}

// NewSignal returns an unset signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire sets the signal. Only the first call records its reason and returns true.
func (s *Signal) Fire(reason string) bool {
	fired := false
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.done)
		fired = true
	})
	return fired
}

// Done is closed once the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal is set.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Reason returns the reason given to the first Fire call.
func (s *Signal) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Wait blocks until the signal fires.
func (s *Signal) Wait() {
	<-s.done
}

// Context derives a context that is canceled when the signal fires. If parent
// ends first, the signal is fired with the parent's error as reason, so an
// interrupted agent shuts down through the same path as a closed surface.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
			if parent.Err() != nil {
				s.Fire(parent.Err().Error())
			}
		}
	}()
	return ctx, cancel
}
