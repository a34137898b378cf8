// Package midiin feeds MIDI note input into the synth control plane
package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/lixenwraith/monosynth/status"
)

// Controller numbers treated as panic
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// AllChannels disables channel filtering
const AllChannels = -1

// Sentinel errors
var (
	ErrNoPorts      = errors.New("no MIDI input ports")
	ErrPortNotFound = errors.New("MIDI input port not found")
	ErrNotOpen      = errors.New("MIDI input not open")
)

// NoteSink receives decoded note events
type NoteSink interface {
	NoteOn(note, velocity uint8)
	NoteOff(note uint8)
	Panic()
}

// Input listens on one MIDI port and forwards note events to a sink
type Input struct {
	sink    NoteSink
	channel int

	mu   sync.Mutex
	port drivers.In
	stop func()
	name string

	received    *atomic.Int64
	ignored     *atomic.Int64
	disconnects *atomic.Int64
	portMetric  *status.AtomicString
}

// New creates an input forwarding to sink. channel 0-15 filters, AllChannels accepts any
func New(sink NoteSink, channel int) *Input {
	if channel < 0 || channel > 15 {
		channel = AllChannels
	}
	in := &Input{sink: sink, channel: channel}
	in.SetMetrics(nil)
	return in
}

// SetMetrics publishes message counts and the port name into reg
// A nil registry keeps counters private. Call before Open
func (in *Input) SetMetrics(reg *status.Registry) {
	in.received = reg.Counter(status.KeyMIDIReceived)
	in.ignored = reg.Counter(status.KeyMIDIIgnored)
	in.disconnects = reg.Counter(status.KeyMIDIDisconnects)
	in.portMetric = reg.Text(status.KeyMIDIPort)
}

// Ports lists available MIDI input port names
func Ports() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Ports lists the input ports currently visible to the driver
func (in *Input) Ports() []string {
	return Ports()
}

// resolvePort finds a port by exact name, index or name substring; empty picks the first
func resolvePort(spec string) (drivers.In, error) {
	spec = strings.TrimSpace(spec)
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, ErrNoPorts
	}
	if spec == "" {
		return ins[0], nil
	}
	if n, err := strconv.Atoi(spec); err == nil {
		port, err := midi.InPort(n)
		if err != nil {
			return nil, fmt.Errorf("%w: index %d", ErrPortNotFound, n)
		}
		return port, nil
	}
	if port, err := midi.FindInPort(spec); err == nil {
		return port, nil
	}
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(spec)) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPortNotFound, spec)
}

// Open connects to the port named by spec and starts listening
func (in *Input) Open(spec string) error {
	port, err := resolvePort(spec)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.closeLocked()

	name := port.String()
	if err := port.Open(); err != nil {
		return fmt.Errorf("open MIDI port %q: %w", name, err)
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		in.HandleMessage(msg)
	}, midi.HandleError(func(listenErr error) {
		slog.Warn("MIDI listener error, device likely disconnected", "device", name, "error", listenErr)
		// Must not stop the listener from inside its own goroutine
		go in.disconnect(name)
	}))
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("listen on MIDI port %q: %w", name, err)
	}

	in.port = port
	in.stop = stop
	in.name = name
	in.portMetric.Store(name)
	slog.Info("MIDI input connected", "device", name, "channel", in.channel)
	return nil
}

// disconnect closes a failed port and releases any hanging note
func (in *Input) disconnect(name string) {
	in.mu.Lock()
	if in.name != name {
		in.mu.Unlock()
		return
	}
	in.closeLocked()
	in.mu.Unlock()

	in.disconnects.Add(1)
	in.sink.Panic()
}

// Close stops listening and releases the port. Returns ErrNotOpen when no
// port is open
func (in *Input) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.port == nil {
		return ErrNotOpen
	}
	in.closeLocked()
	return nil
}

func (in *Input) closeLocked() {
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	if in.port != nil {
		_ = in.port.Close()
		slog.Info("MIDI input closed", "device", in.name)
		in.port = nil
	}
	in.name = ""
	in.portMetric.Store("")
}

// Connected reports whether a port is open
func (in *Input) Connected() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.port != nil
}

// PortName returns the open port name
func (in *Input) PortName() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.name
}

// HandleMessage decodes one message. Returns true if it reached the sink
func (in *Input) HandleMessage(msg midi.Message) bool {
	var ch, key, vel uint8

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !in.accepts(ch) {
			break
		}
		in.received.Add(1)
		in.sink.NoteOn(key, vel)
		return true

	case msg.GetNoteEnd(&ch, &key):
		if !in.accepts(ch) {
			break
		}
		in.received.Add(1)
		in.sink.NoteOff(key)
		return true

	case msg.GetControlChange(&ch, &key, &vel):
		if !in.accepts(ch) || (key != ccAllNotesOff && key != ccAllSoundOff) {
			break
		}
		in.received.Add(1)
		in.sink.Panic()
		return true
	}

	in.ignored.Add(1)
	return false
}

func (in *Input) accepts(ch uint8) bool {
	return in.channel == AllChannels || int(ch) == in.channel
}

// Stats returns counts of forwarded and ignored messages
func (in *Input) Stats() (received, ignored uint64) {
	return uint64(in.received.Load()), uint64(in.ignored.Load())
}
