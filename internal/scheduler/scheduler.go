// Package scheduler runs the fixed-cadence capture loop of a session.
package scheduler

import (
	"context"
	"image"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/internal/lifecycle"
	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/internal/session"
	"github.com/grovetools/cctv/pkg/process"
)

// HighestNice is the niceness the capture thread asks for.
const HighestNice = -20

// State is the loop's lifecycle position.
type State int32

const (
	StateStarting State = iota
	StateCapturing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateCapturing:
		return "capturing"
	default:
		return "stopped"
	}
}

// FrameSource produces encoded frames from screen regions.
type FrameSource interface {
	Clear()
	Capture(region image.Rectangle) ([]byte, error)
}

// Terminator ends the session.
type Terminator interface {
	Fire(reason string) bool
}

// Config sets the cadence.
type Config struct {
	Period time.Duration
	Grace  time.Duration
}

// Scheduler writes one frame per period into the session directory until
// the context ends or a capture fails.
type Scheduler struct {
	cfg     Config
	sess    *session.Session
	frames  FrameSource
	region  RegionSource
	term    Terminator
	clock   lifecycle.Clock
	metrics *metrics.Recorder
	log     *logrus.Entry

	state   atomic.Int32
	written atomic.Int64

	// threadNice raises the priority of the capture thread.
	threadNice func(nice int) error
}

// New builds a scheduler. A nil clock uses the wall clock.
func New(cfg Config, sess *session.Session, frames FrameSource, region RegionSource,
	term Terminator, clock lifecycle.Clock, rec *metrics.Recorder, log *logrus.Entry) *Scheduler {
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if cfg.Period <= 0 {
		cfg.Period = 2 * time.Second
	}
	return &Scheduler{
		cfg:     cfg,
		sess:    sess,
		frames:  frames,
		region:  region,
		term:    term,
		clock:   clock,
		metrics: rec,
		log:     log.WithField("strategy", region.Strategy()),

		threadNice: process.SetThreadNice,
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Written returns the number of frames written so far.
func (s *Scheduler) Written() int64 {
	return s.written.Load()
}

// Run blocks until ctx ends or a capture fails. A failure fires the
// terminator and is returned; a context end returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.state.Store(int32(StateStarting))
	defer s.state.Store(int32(StateStopped))

	// Never unlocked, like the booster: the raised priority leaves with the thread.
	runtime.LockOSThread()
	if err := s.threadNice(HighestNice); err != nil {
		s.log.WithError(err).Debug("Could not raise capture thread priority")
	}

	select {
	case <-ctx.Done():
		return nil
	case <-s.clock.After(s.cfg.Grace):
	}

	s.state.Store(int32(StateCapturing))
	s.log.WithField("period", s.cfg.Period).Info("Capturing")

	next := s.clock.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		start := s.clock.Now()
		if err := s.captureOnce(ctx, start); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WithError(err).Error("Capture failed, ending session")
			s.term.Fire("capture failed")
			return err
		}

		if ctx.Err() != nil {
			return nil
		}

		next = next.Add(s.cfg.Period)
		now := s.clock.Now()
		if now.After(next) {
			s.log.WithField("behind", now.Sub(next)).Debug("Capture overran its slot")
			next = now
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(next.Sub(now)):
		}
	}
}

func (s *Scheduler) captureOnce(ctx context.Context, start time.Time) error {
	region, err := s.region.Region(ctx)
	if err != nil {
		s.metrics.CaptureFailed("region")
		return errors.CaptureFailed("resolve region", err)
	}

	s.frames.Clear()
	data, err := s.frames.Capture(region)
	if err != nil {
		s.metrics.CaptureFailed("encode")
		return err
	}

	path := s.sess.FramePath(start)
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.metrics.CaptureFailed("write")
		return errors.CaptureFailed("write frame", err).WithDetail("path", path)
	}

	s.written.Add(1)
	s.metrics.FrameWritten(s.clock.Now().Sub(start))
	return nil
}
