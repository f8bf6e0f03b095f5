package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/update"
)

// Checker starts a background release check
type Checker interface {
	StartCheck() error
}

// ReleasePoller re-runs the firmware release check on an interval
type ReleasePoller struct {
	interval time.Duration
	checker  Checker
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewReleasePoller creates a new release poller
func NewReleasePoller(interval time.Duration, checker Checker) *ReleasePoller {
	ctx, cancel := context.WithCancel(context.Background())

	return &ReleasePoller{
		interval: interval,
		checker:  checker,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the polling loop. The first check happens after one interval;
// startup already runs one.
func (p *ReleasePoller) Start() {
	log.Infof("Starting release poller (interval: %v)", p.interval)

	p.wg.Add(1)
	go p.pollLoop()
}

// Stop stops the polling loop
func (p *ReleasePoller) Stop() {
	p.cancel()
	p.wg.Wait()
	log.Info("Release poller stopped")
}

// pollLoop runs the polling loop
func (p *ReleasePoller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *ReleasePoller) poll() {
	err := p.checker.StartCheck()
	switch {
	case err == nil:
		log.Debug("Periodic release check started")
	case errors.Is(err, update.ErrBusy):
		log.Debug("Skipping periodic release check, an operation is in progress")
	default:
		log.Warnf("Failed to start periodic release check: %v", err)
	}
}
