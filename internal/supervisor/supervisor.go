// Package supervisor runs one capture session from surface acquisition to
// archive rotation.
package supervisor

import (
	"context"
	"image"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/internal/archive"
	"github.com/grovetools/cctv/internal/booster"
	"github.com/grovetools/cctv/internal/encoder"
	"github.com/grovetools/cctv/internal/lifecycle"
	"github.com/grovetools/cctv/internal/liveness"
	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/internal/scheduler"
	"github.com/grovetools/cctv/internal/session"
	"github.com/grovetools/cctv/internal/surface"
	"github.com/grovetools/cctv/pkg/process"
)

// Surface is the controlled browser window as the supervisor uses it.
type Surface interface {
	Handle() surface.Handle
	DPI() float64
	WindowRect(ctx context.Context) (image.Rectangle, error)
	SubscribeClose(ctx context.Context, onClose func()) error
	Close(ctx context.Context) error
	Release() error
}

// AcquireFunc makes one acquisition attempt.
type AcquireFunc func(ctx context.Context, url string) (Surface, error)

// Config holds the session parameters.
type Config struct {
	Root     string
	Attempts int
	Backoff  time.Duration
	Capture  scheduler.Config
	Booster  booster.Config
	DPI      float64
	SelfNice int
	// CloseWait is how long the browser is given to exit after Browser.close.
	CloseWait time.Duration
	// CloseTimeout bounds the Browser.close request itself.
	CloseTimeout time.Duration
}

// Deps are the collaborators of a session. Acquire, Processes, Family and
// NewDisplay are required.
type Deps struct {
	Acquire    AcquireFunc
	Processes  process.Table
	Family     *process.Matcher
	NewDisplay func() (encoder.Display, error)
	WaitExit   liveness.WaitFunc
	Metrics    *metrics.Recorder
	Logger     *logrus.Entry
	Clock      lifecycle.Clock
}

// Supervisor owns a single session.
type Supervisor struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry
}

// New returns a supervisor.
func New(cfg Config, deps Deps) *Supervisor {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 5 * time.Second
	}
	if deps.Clock == nil {
		deps.Clock = lifecycle.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{cfg: cfg, deps: deps, log: deps.Logger}
}

// Run acquires the surface at url, captures until the session ends, and
// archives it. Only acquisition failures are returned; once capturing has
// started every outcome is a normal end of session.
func (s *Supervisor) Run(ctx context.Context, url string) error {
	surf, err := s.acquire(ctx, url)
	if err != nil {
		return err
	}

	display, err := s.deps.NewDisplay()
	if err != nil {
		s.abandon(surf)
		return errors.Wrap(err, errors.ErrCodeDisplayUnavailable, "cannot open display")
	}
	enc, err := encoder.New(display, s.dpi(surf))
	if err != nil {
		s.abandon(surf)
		return err
	}
	sess, err := session.New(s.cfg.Root, s.deps.Clock.Now())
	if err != nil {
		s.abandon(surf)
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create session directory")
	}

	log := s.log.WithField("session_id", sess.ID).WithField("dir", sess.Dir)
	sig := lifecycle.NewSignal()
	runCtx, cancel := sig.Context(ctx)
	defer cancel()

	var region scheduler.RegionSource = scheduler.WindowRegion{Window: surf}
	wired := true
	if err := surf.SubscribeClose(runCtx, func() { sig.Fire("surface closed") }); err != nil {
		wired = false
		region = scheduler.ScreenRegion{Bounds: display.Bounds()}
		log.WithError(err).Warn("Close notification unavailable, capturing the whole screen")
	}
	sess.Strategy = region.Strategy()

	s.housekeep(log, sess)

	log.WithFields(logrus.Fields{
		"strategy": sess.Strategy,
		"quality":  enc.Quality(),
		"url":      url,
	}).Info("Session started")

	sched := scheduler.New(s.cfg.Capture, sess, enc, region, sig, s.deps.Clock, s.deps.Metrics, log.WithField("component", "scheduler"))
	monitor := liveness.New(sig, s.deps.WaitExit, log.WithField("component", "liveness"))
	boost := booster.New(s.cfg.Booster, s.deps.Processes, s.deps.Family, s.deps.Metrics, log.WithField("component", "booster"))

	var wg sync.WaitGroup
	schedDone := make(chan struct{})
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer close(schedDone)
		sched.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		monitor.Watch(runCtx, surf.Handle())
	}()
	go func() {
		defer wg.Done()
		boost.Run(runCtx)
	}()

	<-sig.Done()
	log.WithField("reason", sig.Reason()).WithField("frames", sched.Written()).Info("Session ending")

	if wired {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), s.cfg.CloseTimeout)
		if err := surf.Close(closeCtx); err != nil {
			log.WithError(err).Debug("Browser close request failed")
		}
		closeCancel()
		if s.cfg.CloseWait > 0 {
			<-s.deps.Clock.After(s.cfg.CloseWait)
		}
	}
	s.killStrays(log)

	cancel()
	<-schedDone
	wg.Wait()

	if err := surf.Release(); err != nil {
		log.WithError(err).Debug("Surface release failed")
	}

	if err := archive.New(s.deps.Metrics, log).Rotate(sess.Dir); err != nil {
		log.WithError(err).Warn("Session left uncompacted")
	}
	return nil
}

// acquire makes up to Attempts attempts, killing stray family processes
// before each. Only disconnects are retried.
func (s *Supervisor) acquire(ctx context.Context, url string) (Surface, error) {
	attempt := 0
	op := func() (Surface, error) {
		attempt++
		log := s.log.WithField("attempt", attempt)
		s.killStrays(log)

		surf, err := s.deps.Acquire(ctx, url)
		if err == nil {
			s.deps.Metrics.AcquireAttempt("ok")
			log.Debug("Surface acquired")
			return surf, nil
		}
		if errors.IsTransient(err) {
			s.deps.Metrics.AcquireAttempt("transient")
			log.WithError(err).Warn("Surface disconnected during acquisition")
			return nil, err
		}
		s.deps.Metrics.AcquireAttempt("fatal")
		return nil, backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.Backoff), uint64(s.cfg.Attempts-1)),
		ctx,
	)
	surf, err := backoff.RetryWithData(op, policy)
	if err == nil {
		return surf, nil
	}

	s.killStrays(s.log)
	if errors.IsTransient(err) {
		return nil, errors.AcquisitionExhausted(attempt, err)
	}
	return nil, err
}

func (s *Supervisor) dpi(surf Surface) float64 {
	if s.cfg.DPI > 0 {
		return s.cfg.DPI
	}
	if d := surf.DPI(); d > 0 {
		return d
	}
	return encoder.BaseDPI
}

// abandon tears down a surface that was acquired but never captured.
func (s *Supervisor) abandon(surf Surface) {
	surf.Release()
	s.killStrays(s.log)
}

// housekeep raises the agent's own priority and compacts earlier sessions.
// Both are best effort.
func (s *Supervisor) housekeep(log *logrus.Entry, sess *session.Session) {
	if s.cfg.SelfNice != 0 {
		if err := s.deps.Processes.SetPriority(os.Getpid(), s.cfg.SelfNice); err != nil {
			log.WithError(errors.Wrap(err, errors.ErrCodePriorityFailed, "raise own priority")).Debug("Priority unchanged")
		}
	}
	if n := archive.New(s.deps.Metrics, log).Sweep(s.cfg.Root, sess.Dir); n > 0 {
		log.WithField("count", n).Info("Archived previous sessions")
	}
}

func (s *Supervisor) killStrays(log *logrus.Entry) {
	n, err := process.KillMatching(s.deps.Processes, s.deps.Family)
	if err != nil {
		log.WithError(err).Debug("Some surface processes could not be killed")
	}
	if n > 0 {
		log.WithField("count", n).Debug("Killed surface processes")
	}
}
