package poller

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
)

type countingChecker struct {
	calls atomic.Int32
	busy  atomic.Bool
}

func (c *countingChecker) StartCheck() error {
	c.calls.Add(1)
	if c.busy.Load() {
		return update.ErrBusy
	}
	return nil
}

func TestReleasePollerTicks(t *testing.T) {
	checker := &countingChecker{}
	p := NewReleasePoller(10*time.Millisecond, checker)
	p.Start()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	p.Stop()

	stopped := checker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, checker.calls.Load(), "no checks after Stop")
}

func TestReleasePollerToleratesBusy(t *testing.T) {
	checker := &countingChecker{}
	checker.busy.Store(true)
	p := NewReleasePoller(5*time.Millisecond, checker)
	p.Start()
	defer p.Stop()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
