package synth

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/status"
)

// Params is the control-plane parameter snapshot read by the audio callback
type Params struct {
	Unison     UnisonSettings    `json:"unison"`
	Envelope   EnvelopeParams    `json:"envelope"`
	Quality    OscillatorQuality `json:"quality"`
	MasterGain float64           `json:"master_gain"`
}

// DefaultParams returns the startup patch
func DefaultParams() Params {
	return Params{
		Unison:     DefaultUnison(),
		Envelope:   DefaultEnvelopeParams(),
		Quality:    DefaultQuality(),
		MasterGain: constant.DefaultMasterGain,
	}
}

// Sanitize clamps every group to its domain
func (p Params) Sanitize() Params {
	p.Unison = p.Unison.Sanitize()
	p.Envelope = p.Envelope.Sanitize()
	p.Quality = p.Quality.Sanitize()
	p.MasterGain = clampFinite(p.MasterGain, 0, 1, constant.DefaultMasterGain)
	return p
}

// NoteEventKind identifies a trigger delivered to the audio callback
type NoteEventKind uint8

const (
	NoteOnEvent NoteEventKind = iota
	NoteOffEvent
	PanicEvent
)

// NoteEvent carries a trigger with its note token
type NoteEvent struct {
	Kind NoteEventKind
	Note uint32
}

// NoteToken maps a MIDI note to the envelope note identity (1..128)
func NoteToken(note uint8) uint32 {
	return uint32(note) + 1
}

// Bridge carries control-plane state into the audio callback.
//
// Ownership: the control plane (panel, MIDI, remote, watchdog) writes through
// setters; the audio callback only reads the parameter snapshot and frequency
// and drains note events. Parameters are published copy-on-write through an
// atomic pointer so the reader never blocks. Envelope progression belongs to
// the Engine and never crosses this boundary.
type Bridge struct {
	params  atomic.Pointer[Params]
	writeMu sync.Mutex // Serializes control-plane writers only

	freq     status.AtomicFloat // Hz, 0 = silent
	lastFreq status.AtomicFloat // Last positive frequency set by the control plane

	events  chan NoteEvent
	dropped atomic.Uint64
	version atomic.Uint64

	// Control-plane note tracking, never touched by the callback
	noteMu       sync.Mutex
	current      int // Sounding MIDI note, -1 = none
	gate         bool
	lastActivity time.Time
	now          func() time.Time

	subsMu sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewBridge creates a bridge holding params and frequency
func NewBridge(params Params, freq float64) *Bridge {
	b := &Bridge{
		events:  make(chan NoteEvent, constant.NoteEventQueueSize),
		current: -1,
		now:     time.Now,
		subs:    make(map[int]chan struct{}),
	}
	p := params.Sanitize()
	b.params.Store(&p)
	b.SetFrequency(freq)
	b.lastActivity = b.now()
	return b
}

// --- Audio-thread side ---

// Snapshot returns the current parameter block pointer without blocking
// The pointed-to value is immutable
func (b *Bridge) Snapshot() *Params {
	return b.params.Load()
}

// Frequency returns the shared target frequency in Hz, 0 = silent
func (b *Bridge) Frequency() float64 {
	return b.freq.Get()
}

// PollEvent returns the next pending note event without blocking
func (b *Bridge) PollEvent() (NoteEvent, bool) {
	select {
	case ev := <-b.events:
		return ev, true
	default:
		return NoteEvent{}, false
	}
}

// --- Control-plane side ---

// Params returns a copy of the current parameters
func (b *Bridge) Params() Params {
	return *b.params.Load()
}

// Update applies fn to a copy of the parameters and publishes the sanitized result
func (b *Bridge) Update(fn func(p *Params)) Params {
	b.writeMu.Lock()
	next := *b.params.Load()
	fn(&next)
	next = next.Sanitize()
	b.params.Store(&next)
	b.writeMu.Unlock()

	b.version.Add(1)
	b.notify()
	return next
}

// SetParams replaces the whole parameter block
func (b *Bridge) SetParams(p Params) Params {
	return b.Update(func(dst *Params) { *dst = p })
}

// SetWaveform selects the oscillator shape
func (b *Bridge) SetWaveform(k WaveformKind) {
	b.Update(func(p *Params) { p.Unison.Waveform = k })
}

// SetVoices sets the unison voice count, clamped to [1, 8]
func (b *Bridge) SetVoices(n int) {
	b.Update(func(p *Params) { p.Unison.Voices = n })
}

// SetDetune sets the total unison spread in cents, clamped to [0, 100]
func (b *Bridge) SetDetune(cents float64) {
	b.Update(func(p *Params) { p.Unison.Detune = cents })
}

// SetUnison replaces the unison group
func (b *Bridge) SetUnison(u UnisonSettings) {
	b.Update(func(p *Params) { p.Unison = u })
}

// SetEnvelope replaces the ADSR group
func (b *Bridge) SetEnvelope(e EnvelopeParams) {
	b.Update(func(p *Params) { p.Envelope = e })
}

// SetAttack sets the attack time in seconds
func (b *Bridge) SetAttack(s float64) {
	b.Update(func(p *Params) { p.Envelope.Attack = s })
}

// SetDecay sets the decay time in seconds
func (b *Bridge) SetDecay(s float64) {
	b.Update(func(p *Params) { p.Envelope.Decay = s })
}

// SetSustain sets the sustain level
func (b *Bridge) SetSustain(level float64) {
	b.Update(func(p *Params) { p.Envelope.Sustain = level })
}

// SetRelease sets the release time in seconds
func (b *Bridge) SetRelease(s float64) {
	b.Update(func(p *Params) { p.Envelope.Release = s })
}

// SetQuality replaces the oscillator quality group
func (b *Bridge) SetQuality(q OscillatorQuality) {
	b.Update(func(p *Params) { p.Quality = q })
}

// SetMasterGain sets output gain in [0, 1]
func (b *Bridge) SetMasterGain(g float64) {
	b.Update(func(p *Params) { p.MasterGain = g })
}

// SetFrequency stores a manual target frequency. Values <= 0 or non-finite mean
// silent, positive values are clamped to the audible range
func (b *Bridge) SetFrequency(hz float64) {
	if hz > 0 && !math.IsInf(hz, 0) {
		hz = math.Max(constant.MinFrequency, math.Min(constant.MaxFrequency, hz))
	}
	b.storeFrequency(hz)
}

// SetPitch tunes the target to MIDI note without triggering it
func (b *Bridge) SetPitch(note uint8) {
	if note >= constant.MIDINoteCount {
		return
	}
	b.storeFrequency(NoteFreq(int(note)))
}

// storeFrequency publishes hz without range clamping; MIDI notes below the
// audible floor keep their equal-tempered pitch
func (b *Bridge) storeFrequency(hz float64) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		hz = 0
	} else {
		b.lastFreq.Set(hz)
	}
	b.freq.Set(hz)
	b.notify()
}

// NoteOn handles a MIDI note-on. Velocity 0 is a note-off
func (b *Bridge) NoteOn(note, velocity uint8) {
	if note >= constant.MIDINoteCount {
		return
	}
	if velocity == 0 {
		b.NoteOff(note)
		return
	}

	b.noteMu.Lock()
	b.current = int(note)
	b.lastActivity = b.now()
	b.noteMu.Unlock()

	b.storeFrequency(NoteFreq(int(note)))
	b.send(NoteEvent{Kind: NoteOnEvent, Note: NoteToken(note)})
}

// NoteOff handles a MIDI note-off. Only the sounding note releases (last-note priority)
func (b *Bridge) NoteOff(note uint8) {
	b.noteMu.Lock()
	b.lastActivity = b.now()
	if b.current != int(note) {
		b.noteMu.Unlock()
		return
	}
	b.current = -1
	b.noteMu.Unlock()

	b.send(NoteEvent{Kind: NoteOffEvent, Note: NoteToken(note)})
	b.notify()
}

// Gate opens or closes the manual note used by the panel and remote
// Opening restores the last positive frequency if the target is silent
func (b *Bridge) Gate(on bool) {
	b.noteMu.Lock()
	if b.gate == on {
		b.noteMu.Unlock()
		return
	}
	b.gate = on
	b.lastActivity = b.now()
	b.noteMu.Unlock()

	if on {
		if b.Frequency() <= 0 {
			b.storeFrequency(b.lastFreq.Get())
		}
		b.send(NoteEvent{Kind: NoteOnEvent, Note: constant.ManualNoteID})
	} else {
		b.send(NoteEvent{Kind: NoteOffEvent, Note: constant.ManualNoteID})
	}
	b.notify()
}

// GateOpen reports the manual gate state
func (b *Bridge) GateOpen() bool {
	b.noteMu.Lock()
	defer b.noteMu.Unlock()
	return b.gate
}

// CurrentNote returns the sounding MIDI note
func (b *Bridge) CurrentNote() (uint8, bool) {
	b.noteMu.Lock()
	defer b.noteMu.Unlock()
	if b.current < 0 {
		return 0, false
	}
	return uint8(b.current), true
}

// Panic releases every note, closes the gate and silences the target frequency
func (b *Bridge) Panic() {
	b.noteMu.Lock()
	b.current = -1
	b.gate = false
	b.lastActivity = b.now()
	b.noteMu.Unlock()

	b.freq.Set(0)
	b.send(NoteEvent{Kind: PanicEvent})
	b.notify()
}

// Dropped returns the number of note events lost to a full queue
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Version increments on every parameter change
func (b *Bridge) Version() uint64 {
	return b.version.Load()
}

// Subscribe returns a channel signalled (coalesced) on every control change
func (b *Bridge) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.subsMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.subsMu.Unlock()

	return ch, func() {
		b.subsMu.Lock()
		delete(b.subs, id)
		b.subsMu.Unlock()
	}
}

// holding reports whether a note or the gate is open, and the last activity time
func (b *Bridge) holding() (bool, time.Time) {
	b.noteMu.Lock()
	defer b.noteMu.Unlock()
	return b.current >= 0 || b.gate, b.lastActivity
}

func (b *Bridge) send(ev NoteEvent) {
	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
	}
}

func (b *Bridge) notify() {
	b.subsMu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.subsMu.Unlock()
}
