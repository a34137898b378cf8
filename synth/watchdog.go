package synth

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/status"
)

// Watchdog releases notes left hanging by a lost note-off
// A note or open gate with no control activity for longer than grace is
// treated as stuck, as is an open gate whose target frequency went silent
type Watchdog struct {
	bridge   *Bridge
	grace    time.Duration
	interval time.Duration
	trips    *atomic.Int64
}

// NewWatchdog creates a watchdog. grace <= 0 disables the stuck-note check
func NewWatchdog(bridge *Bridge, grace, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = constant.WatchdogInterval
	}
	return &Watchdog{
		bridge:   bridge,
		grace:    grace,
		interval: interval,
		trips:    new(atomic.Int64),
	}
}

// SetMetrics publishes the trip count into reg. Call before Run
func (w *Watchdog) SetMetrics(reg *status.Registry) {
	w.trips = reg.Counter(status.KeyWatchdogTrips)
}

// Check evaluates the stuck-note conditions at now and panics the bridge if one holds
func (w *Watchdog) Check(now time.Time) bool {
	held, last := w.bridge.holding()
	if !held {
		return false
	}

	stuck := w.bridge.Frequency() <= 0
	if w.grace > 0 && now.Sub(last) > w.grace {
		stuck = true
	}
	if !stuck {
		return false
	}

	w.trips.Add(1)
	w.bridge.Panic()
	return true
}

// Run checks on every interval tick until ctx is done
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if w.Check(now) {
				slog.Warn("watchdog released stuck note", "trips", w.trips.Load())
			}
		}
	}
}

// Trips returns how many times the watchdog forced a release
func (w *Watchdog) Trips() uint64 {
	return uint64(w.trips.Load())
}
