package booster

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/pkg/process"
	"github.com/grovetools/cctv/testutil"
)

type fakeTable struct {
	mu       sync.Mutex
	procs    []process.Info
	listErr  error
	deny     map[int]bool
	priority map[int]int
	passes   int
}

func (f *fakeTable) List() ([]process.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes++
	return f.procs, f.listErr
}

func (f *fakeTable) Kill(pid int) error { return nil }

func (f *fakeTable) SetPriority(pid, nice int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny[pid] {
		return fmt.Errorf("permission denied")
	}
	if f.priority == nil {
		f.priority = map[int]int{}
	}
	f.priority[pid] = nice
	return nil
}

func (f *fakeTable) snapshot() (map[int]int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int]int{}
	for k, v := range f.priority {
		out[k] = v
	}
	return out, f.passes
}

func family() *process.Matcher {
	return process.MustMatcher("chrome", "chromium*", "webact*")
}

func TestBoostOnceSwallowsPerProcessFailures(t *testing.T) {
	table := &fakeTable{
		procs: []process.Info{
			{PID: 100, Name: "chromium-browse"},
			{PID: 101, Name: "chrome"},
			{PID: 102, Name: "sshd"},
			{PID: 103, Name: "WebActivator"},
		},
		deny: map[int]bool{101: true},
	}
	log, hook := testutil.NullLogger()
	b := New(Config{Interval: time.Second, Nice: -10}, table, family(), nil, log)

	assert.Equal(t, 2, b.boostOnce())
	prio, _ := table.snapshot()
	assert.Equal(t, map[int]int{100: -10, 103: -10}, prio)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Priority boost failed", hook.LastEntry().Message)
}

func TestBoostOnceScanFailure(t *testing.T) {
	table := &fakeTable{listErr: fmt.Errorf("/proc unavailable")}
	log, _ := testutil.NullLogger()
	b := New(Config{Interval: time.Second, Nice: -10}, table, family(), nil, log)
	assert.Zero(t, b.boostOnce())
}

func TestRunSleepsFirstAndRepeats(t *testing.T) {
	table := &fakeTable{procs: []process.Info{{PID: 200, Name: "chrome"}}}
	log, _ := testutil.NullLogger()
	rec := metrics.New()
	b := New(Config{Interval: 50 * time.Millisecond, Nice: -7}, table, family(), rec, log)

	var selfNice int
	b.selfNice = func(n int) error {
		selfNice = n
		return fmt.Errorf("not permitted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	_, passes := table.snapshot()
	assert.Zero(t, passes, "the first pass waits one interval")

	assert.Eventually(t, func() bool {
		_, passes := table.snapshot()
		return passes >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	prio, _ := table.snapshot()
	assert.Equal(t, -7, prio[200])
	assert.Equal(t, LowestNice, selfNice)
}
