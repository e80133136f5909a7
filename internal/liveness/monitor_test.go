package liveness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/grovetools/cctv/internal/lifecycle"
	"github.com/grovetools/cctv/internal/surface"
)

func quietLogger() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func TestWatchFiresWhenProcessExits(t *testing.T) {
	sig := lifecycle.NewSignal()
	exit := make(chan struct{})
	var waited int
	m := New(sig, func(ctx context.Context, pid int) error {
		waited = pid
		<-exit
		return nil
	}, quietLogger())

	done := make(chan struct{})
	go func() {
		m.Watch(context.Background(), surface.Handle{TargetID: "T", PID: 99})
		close(done)
	}()

	assert.Never(t, sig.Fired, 100*time.Millisecond, 10*time.Millisecond)
	close(exit)
	<-done

	assert.True(t, sig.Fired())
	assert.Equal(t, 99, waited)
	assert.Equal(t, "surface process exited", sig.Reason())
}

func TestWatchInvalidHandleFiresImmediately(t *testing.T) {
	sig := lifecycle.NewSignal()
	m := New(sig, func(ctx context.Context, pid int) error {
		t.Fatal("must not wait on an invalid handle")
		return nil
	}, quietLogger())

	m.Watch(context.Background(), surface.Handle{})
	assert.True(t, sig.Fired())
	assert.Equal(t, "surface handle invalid", sig.Reason())
}

func TestWatchFiresOnWaitError(t *testing.T) {
	sig := lifecycle.NewSignal()
	m := New(sig, func(ctx context.Context, pid int) error {
		return fmt.Errorf("operation not permitted")
	}, quietLogger())

	m.Watch(context.Background(), surface.Handle{TargetID: "T", PID: 5})
	assert.True(t, sig.Fired())
}

func TestWatchReturnsOnCancel(t *testing.T) {
	sig := lifecycle.NewSignal()
	m := New(sig, func(ctx context.Context, pid int) error {
		<-ctx.Done()
		return ctx.Err()
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, surface.Handle{TargetID: "T", PID: 5})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.True(t, sig.Fired())
	assert.Equal(t, "shutdown", sig.Reason())
}
