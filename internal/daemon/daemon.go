package daemon

import (
	"context"
	"github.com/ZilDuck/membership-market/internal/entity"
	"go.uber.org/zap"
	"sync"
	"time"
)

// Runner performs one billing cycle.
type Runner interface {
	Run(ctx context.Context) (entity.BillingRun, error)
}

// Daemon runs billing cycles back to back on a fixed interval. A cycle that
// overruns the interval delays the next tick instead of overlapping it.
type Daemon struct {
	runner   Runner
	interval time.Duration

	mu      sync.RWMutex
	latest  *entity.BillingRun
	lastErr error
	started time.Time
}

func NewDaemon(runner Runner, interval time.Duration) *Daemon {
	return &Daemon{runner: runner, interval: interval}
}

// Execute runs a cycle straight away and then on every tick until ctx is
// cancelled. Cancellation interrupts the cycle in flight.
func (d *Daemon) Execute(ctx context.Context) {
	d.mu.Lock()
	d.started = time.Now()
	d.mu.Unlock()

	zap.L().With(zap.Duration("interval", d.interval)).Info("Daemon: Billing started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.cycle(ctx)

		select {
		case <-ctx.Done():
			zap.L().Info("Daemon: Billing stopped")
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) cycle(ctx context.Context) {
	run, err := d.runner.Run(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.latest = &run
	d.lastErr = err
	if err != nil && ctx.Err() == nil {
		zap.L().With(zap.Error(err)).Error("Daemon: Billing run failed")
	}
}

// Latest is the most recent run of this process, if any.
func (d *Daemon) Latest() (entity.BillingRun, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.latest == nil {
		return entity.BillingRun{}, false
	}
	return *d.latest, true
}

type Health struct {
	Started   time.Time `json:"started"`
	LastRun   string    `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Healthy   bool      `json:"healthy"`
}

func (d *Daemon) Health() Health {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h := Health{Started: d.started, Healthy: d.lastErr == nil}
	if d.latest != nil {
		h.LastRun = d.latest.Id
	}
	if d.lastErr != nil {
		h.LastError = d.lastErr.Error()
	}
	return h
}
