package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/monosynth/status"
)

// AudioEngine owns the output stream and drives a Renderer from the sink's callback
type AudioEngine struct {
	config   *AudioConfig
	renderer Renderer
	rate     float64

	sink sink

	running    atomic.Bool
	muted      atomic.Bool
	silentMode atomic.Bool

	mu sync.Mutex // Serializes Start/Stop

	driverMetric *status.AtomicString
	starts       *atomic.Int64
	failures     *atomic.Int64
}

// NewAudioEngine creates an audio engine rendering through r
func NewAudioEngine(r Renderer, cfg ...*AudioConfig) (*AudioEngine, error) {
	if r == nil {
		return nil, errors.New("audio engine requires a renderer")
	}

	config := DefaultAudioConfig()
	if len(cfg) > 0 && cfg[0] != nil {
		c := *cfg[0]
		config = &c
	}
	config.Sanitize()

	ae := &AudioEngine{
		config:   config,
		renderer: r,
		rate:     float64(config.SampleRate),
	}
	ae.muted.Store(!config.Enabled)
	ae.SetMetrics(nil)
	return ae, nil
}

// SetMetrics publishes driver and start counters into reg. Call before Start
func (ae *AudioEngine) SetMetrics(reg *status.Registry) {
	ae.driverMetric = reg.Text(status.KeyAudioDriver)
	ae.starts = reg.Counter(status.KeyAudioStarts)
	ae.failures = reg.Counter(status.KeyAudioStartFailures)
}

// Start opens the configured driver, or the first working one for auto.
// Setup failures are returned once; an explicit driver never falls back
func (ae *AudioEngine) Start() error {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	if ae.running.Load() {
		return ErrAlreadyRunning
	}

	var errs []error
	for _, d := range ae.config.Driver.candidates() {
		s, err := ae.newSink(d)
		if err == nil {
			err = s.start()
		}
		if err != nil {
			slog.Debug("audio driver unavailable", "driver", d, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
			continue
		}

		ae.sink = s
		ae.silentMode.Store(false)
		ae.running.Store(true)
		ae.starts.Add(1)
		ae.driverMetric.Store(s.name())
		slog.Info("audio started", "driver", s.name(), "rate", ae.config.SampleRate,
			"frames", ae.config.BufferFrames, "channels", ae.config.Channels)
		return nil
	}

	ae.failures.Add(1)
	return fmt.Errorf("%w: %w", ErrNoAudioBackend, errors.Join(errs...))
}

func (ae *AudioEngine) newSink(d Driver) (sink, error) {
	switch d {
	case DriverBeep:
		return newSpeakerSink(ae), nil
	case DriverOto:
		return newOtoSink(ae), nil
	case DriverPortAudio:
		return newPortAudioSink(ae), nil
	case DriverPipe:
		return newPipeSink(ae), nil
	case DriverHeadless:
		return newHeadlessSink(ae), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, d)
}

// Stop tears down the stream and drops real-time state. Idempotent
func (ae *AudioEngine) Stop() {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	if !ae.running.CompareAndSwap(true, false) {
		return
	}

	if ae.sink != nil {
		ae.sink.stop()
		slog.Info("audio stopped", "driver", ae.sink.name())
		ae.sink = nil
	}
	ae.driverMetric.Store("")
	ae.renderer.Reset()
}

// fill renders a mono buffer, silenced while muted
func (ae *AudioEngine) fill(out []float32, frames int) {
	ae.renderer.Process(out, frames, ae.rate)
	if ae.muted.Load() {
		clear(out[:min(frames, len(out))])
	}
}

// fillInterleaved renders an interleaved buffer at the configured channel count
func (ae *AudioEngine) fillInterleaved(out []float32) {
	ae.renderer.ProcessInterleaved(out, ae.config.Channels, ae.rate)
	if ae.muted.Load() {
		clear(out)
	}
}

// ToggleMute toggles mute state, returns true if now audible
func (ae *AudioEngine) ToggleMute() bool {
	newMute := !ae.muted.Load()
	ae.muted.Store(newMute)
	return !newMute
}

// SetMuted mutes or unmutes output; rendering continues so envelopes stay in time
func (ae *AudioEngine) SetMuted(muted bool) {
	ae.muted.Store(muted)
}

// IsMuted returns current mute state
func (ae *AudioEngine) IsMuted() bool {
	return ae.muted.Load()
}

// IsEnabled returns true if running, unmuted and the sink is healthy
func (ae *AudioEngine) IsEnabled() bool {
	return ae.running.Load() && !ae.muted.Load() && !ae.silentMode.Load()
}

// IsRunning returns true if a stream is open
func (ae *AudioEngine) IsRunning() bool {
	return ae.running.Load()
}

// Playing reports transport state
func (ae *AudioEngine) Playing() bool {
	return ae.running.Load()
}

// SetPlaying starts or stops the stream
func (ae *AudioEngine) SetPlaying(on bool) error {
	if on {
		if ae.running.Load() {
			return nil
		}
		return ae.Start()
	}
	ae.Stop()
	return nil
}

// DriverName returns the active driver, empty when stopped
func (ae *AudioEngine) DriverName() string {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.sink == nil {
		return ""
	}
	return ae.sink.name()
}

// Config returns a copy of the stream settings
func (ae *AudioEngine) Config() AudioConfig {
	return *ae.config
}
