// Package status holds lock-free control-plane metrics shared between the
// audio, MIDI, watchdog and remote subsystems
package status

import "sync/atomic"

// Metric keys
const (
	KeyAudioDriver        = "audio.driver"
	KeyAudioStarts        = "audio.starts"
	KeyAudioStartFailures = "audio.start_failures"
	KeyMIDIPort           = "midi.port"
	KeyMIDIReceived       = "midi.received"
	KeyMIDIIgnored        = "midi.ignored"
	KeyMIDIDisconnects    = "midi.disconnects"
	KeyWatchdogTrips      = "watchdog.trips"
	KeyRemoteClients      = "remote.clients"
)

// Registry is the central metrics facade
// Subsystems cache pointers when wired; hot paths write directly to atomics
type Registry struct {
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Snapshot copies every metric into a map suitable for JSON
func (r *Registry) Snapshot() map[string]any {
	out := make(map[string]any, r.TotalCount())
	r.Ints.Range(func(k string, v *atomic.Int64) { out[k] = v.Load() })
	r.Floats.Range(func(k string, v *AtomicFloat) { out[k] = v.Get() })
	r.Strings.Range(func(k string, v *AtomicString) { out[k] = v.Load() })
	return out
}

// Counter returns the integer metric for key, or a detached counter when r is nil
func (r *Registry) Counter(key string) *atomic.Int64 {
	if r == nil {
		return new(atomic.Int64)
	}
	return r.Ints.Get(key)
}

// Text returns the string metric for key, or a detached value when r is nil
func (r *Registry) Text(key string) *AtomicString {
	if r == nil {
		return new(AtomicString)
	}
	return r.Strings.Get(key)
}
