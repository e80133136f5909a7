// Package booster keeps the surface's processes at a raised scheduling
// priority for the lifetime of a session.
package booster

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/pkg/process"
)

// LowestNice is the niceness the booster runs itself at.
const LowestNice = 19

// Config controls the boost pass.
type Config struct {
	Interval time.Duration
	Nice     int
}

// Booster periodically raises the priority of every process in a family.
type Booster struct {
	cfg     Config
	table   process.Table
	family  *process.Matcher
	metrics *metrics.Recorder
	log     *logrus.Entry

	// selfNice lowers the priority of the booster's own thread.
	selfNice func(nice int) error
}

// New returns a booster over table for processes matched by family.
func New(cfg Config, table process.Table, family *process.Matcher, rec *metrics.Recorder, log *logrus.Entry) *Booster {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Booster{
		cfg:      cfg,
		table:    table,
		family:   family,
		metrics:  rec,
		log:      log,
		selfNice: process.SetThreadNice,
	}
}

// Run sleeps first, then boosts every interval until ctx ends. It never fails.
func (b *Booster) Run(ctx context.Context) {
	// Never unlocked: the thread exits with the goroutine and takes its
	// lowered priority with it.
	runtime.LockOSThread()

	if err := b.selfNice(LowestNice); err != nil {
		b.log.WithError(err).Debug("Could not lower booster thread priority")
	}

	timer := time.NewTimer(b.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		n := b.boostOnce()
		b.metrics.Boosted(n)
		timer.Reset(b.cfg.Interval)
	}
}

// boostOnce applies the configured niceness to every matching process and
// returns how many accepted it.
func (b *Booster) boostOnce() int {
	procs, err := process.Matching(b.table, b.family)
	if err != nil {
		b.log.WithError(err).Debug("Process scan failed")
		return 0
	}

	boosted := 0
	for _, p := range procs {
		if err := b.table.SetPriority(p.PID, b.cfg.Nice); err != nil {
			b.log.WithError(err).WithField("pid", p.PID).WithField("name", p.Name).Debug("Priority boost failed")
			continue
		}
		boosted++
	}
	return boosted
}
