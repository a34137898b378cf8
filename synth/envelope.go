package synth

import (
	"math"

	"github.com/lixenwraith/monosynth/constant"
)

// EnvelopeParams holds stage durations in seconds and the sustain level
type EnvelopeParams struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// DefaultEnvelopeParams returns (0.01, 0.1, 0.7, 0.2)
func DefaultEnvelopeParams() EnvelopeParams {
	return EnvelopeParams{
		Attack:  constant.DefaultAttack,
		Decay:   constant.DefaultDecay,
		Sustain: constant.DefaultSustain,
		Release: constant.DefaultRelease,
	}
}

// Sanitize clamps durations to [MinStageSeconds, MaxStageSeconds] and sustain to [0, 1]
func (p EnvelopeParams) Sanitize() EnvelopeParams {
	def := DefaultEnvelopeParams()
	p.Attack = clampFinite(p.Attack, constant.MinStageSeconds, constant.MaxStageSeconds, def.Attack)
	p.Decay = clampFinite(p.Decay, constant.MinStageSeconds, constant.MaxStageSeconds, def.Decay)
	p.Release = clampFinite(p.Release, constant.MinStageSeconds, constant.MaxStageSeconds, def.Release)
	p.Sustain = clampFinite(p.Sustain, 0, 1, def.Sustain)
	return p
}

// EnvelopeState tracks the ADSR phase
type EnvelopeState int

const (
	EnvIdle EnvelopeState = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
)

func (s EnvelopeState) String() string {
	switch s {
	case EnvIdle:
		return "idle"
	case EnvAttack:
		return "attack"
	case EnvDecay:
		return "decay"
	case EnvSustain:
		return "sustain"
	case EnvRelease:
		return "release"
	}
	return "unknown"
}

// Envelope is a single ADSR generator. Not safe for concurrent use: it is
// owned by the audio callback, the control plane only delivers triggers
type Envelope struct {
	params EnvelopeParams
	state  EnvelopeState
	value  float64

	elapsed      float64 // Seconds into current stage
	sustainLevel float64 // Sustain snapshot taken at trigger
	releaseStart float64 // Value captured when release began
	releaseTime  float64 // Duration of the current release

	note       uint32
	pending    uint32 // Note queued behind a retrigger fade
	hasPending bool

	triggered  bool
	processing bool
	released   bool
}

// NewEnvelope creates an idle envelope
func NewEnvelope(params EnvelopeParams) *Envelope {
	e := &Envelope{}
	e.params = params.Sanitize()
	return e
}

// Start triggers note. Same note while held is a no-op. A different note
// while sounding fades the current one out briefly, then attacks
func (e *Envelope) Start(note uint32) {
	switch {
	case e.processing && !e.released && e.note == note:
		return
	case e.processing && e.hasPending && e.pending == note:
		return
	case !e.processing || e.value <= 0:
		e.attack(note)
		return
	}

	fade := math.Min(e.params.Release, constant.RetriggerFadeSeconds)
	if !e.released || e.releaseTime-e.elapsed > fade {
		e.beginRelease(fade)
	}
	e.pending = note
	e.hasPending = true
}

// End releases the sounding note from its current value
// While a retrigger is pending, End cancels the queued note instead
func (e *Envelope) End() {
	if !e.triggered || !e.processing {
		return
	}
	if e.hasPending {
		e.hasPending = false
		e.pending = 0
		return
	}
	if e.released {
		return
	}
	e.beginRelease(e.params.Release)
}

// Update advances the envelope by dt seconds. Leftover time at a stage
// boundary carries into the next stage
func (e *Envelope) Update(dt float64) {
	if !e.triggered || !e.processing {
		e.value = 0
		e.released = false
		e.processing = false
		return
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}

	remaining := dt
	for remaining > 0 {
		switch e.state {
		case EnvAttack:
			dur := e.params.Attack
			left := dur - e.elapsed
			if remaining+constant.StageTimeEpsilon >= left {
				remaining -= math.Max(left, 0)
				e.value = 1
				e.state = EnvDecay
				e.elapsed = 0
				continue
			}
			e.elapsed += remaining
			remaining = 0
			e.value = smootherstep(e.elapsed / dur)

		case EnvDecay:
			dur := e.params.Decay
			left := dur - e.elapsed
			if remaining+constant.StageTimeEpsilon >= left {
				e.value = e.sustainLevel
				e.state = EnvSustain
				e.elapsed = 0
				remaining = 0
				continue
			}
			e.elapsed += remaining
			remaining = 0
			e.value = 1 - (1-e.sustainLevel)*smootherstep(e.elapsed/dur)

		case EnvSustain:
			e.value = e.sustainLevel
			remaining = 0

		case EnvRelease:
			dur := e.releaseTime
			left := dur - e.elapsed
			if remaining+constant.StageTimeEpsilon >= left {
				remaining -= math.Max(left, 0)
				if e.hasPending {
					e.attack(e.pending)
					continue
				}
				e.reset()
				remaining = 0
				continue
			}
			e.elapsed += remaining
			remaining = 0
			e.value = e.releaseStart * (1 - smootherstep(e.elapsed/dur))

		default:
			e.reset()
			remaining = 0
		}
	}

	if e.value < 0 {
		e.value = 0
	} else if e.value > 1 {
		e.value = 1
	}
}

// SetParams replaces stage parameters. A sustaining envelope follows the new level
func (e *Envelope) SetParams(p EnvelopeParams) {
	e.params = p.Sanitize()
	if e.state == EnvSustain && e.processing {
		e.sustainLevel = e.params.Sustain
		e.value = e.sustainLevel
	}
}

// Params returns the active parameters
func (e *Envelope) Params() EnvelopeParams { return e.params }

// Value returns the current gain in [0, 1]
func (e *Envelope) Value() float64 { return e.value }

// State returns the current stage
func (e *Envelope) State() EnvelopeState { return e.state }

// Note returns the sounding note token, valid while Active
func (e *Envelope) Note() uint32 { return e.note }

// Pending reports the note waiting behind a retrigger fade
func (e *Envelope) Pending() (uint32, bool) { return e.pending, e.hasPending }

// Active reports whether the envelope produces non-idle output
func (e *Envelope) Active() bool { return e.processing }

// Released reports whether the sounding note has been ended
func (e *Envelope) Released() bool { return e.released }

// Reset forces the envelope idle and silent
func (e *Envelope) Reset() { e.reset() }

func (e *Envelope) attack(note uint32) {
	e.state = EnvAttack
	e.value = 0
	e.elapsed = 0
	e.sustainLevel = e.params.Sustain
	e.releaseStart = 0
	e.releaseTime = 0
	e.note = note
	e.pending = 0
	e.hasPending = false
	e.triggered = true
	e.processing = true
	e.released = false
}

func (e *Envelope) beginRelease(dur float64) {
	e.state = EnvRelease
	e.releaseStart = e.value
	e.releaseTime = math.Max(dur, constant.MinStageSeconds)
	e.elapsed = 0
	e.released = true
}

func (e *Envelope) reset() {
	e.state = EnvIdle
	e.value = 0
	e.elapsed = 0
	e.releaseStart = 0
	e.releaseTime = 0
	e.note = 0
	e.pending = 0
	e.hasPending = false
	e.triggered = false
	e.processing = false
	e.released = false
}

// smootherstep is the quintic ease 6t^5 - 15t^4 + 10t^3 on [0, 1]
func smootherstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * t * (t*(t*6-15) + 10)
}

// EnvelopeManager drives a fixed pool of envelopes as one batch
type EnvelopeManager struct {
	envelopes []Envelope
	params    EnvelopeParams
}

// NewEnvelopeManager allocates size envelopes, clamped to [1, 8]
func NewEnvelopeManager(size int, params EnvelopeParams) *EnvelopeManager {
	if size < constant.MinEnvelopePool {
		size = constant.MinEnvelopePool
	} else if size > constant.MaxEnvelopePool {
		size = constant.MaxEnvelopePool
	}
	params = params.Sanitize()
	m := &EnvelopeManager{
		envelopes: make([]Envelope, size),
		params:    params,
	}
	for i := range m.envelopes {
		m.envelopes[i].params = params
	}
	return m
}

// StartAll triggers note on every envelope
func (m *EnvelopeManager) StartAll(note uint32) {
	for i := range m.envelopes {
		m.envelopes[i].Start(note)
	}
}

// EndAll releases every envelope
func (m *EnvelopeManager) EndAll() {
	for i := range m.envelopes {
		m.envelopes[i].End()
	}
}

// EndNote releases envelopes sounding or queueing note, other notes are untouched
func (m *EnvelopeManager) EndNote(note uint32) {
	for i := range m.envelopes {
		e := &m.envelopes[i]
		if (e.hasPending && e.pending == note) || (!e.hasPending && e.note == note) {
			e.End()
		}
	}
}

// UpdateAll advances every envelope by dt seconds
func (m *EnvelopeManager) UpdateAll(dt float64) {
	for i := range m.envelopes {
		m.envelopes[i].Update(dt)
	}
}

// ResetAll silences every envelope immediately
func (m *EnvelopeManager) ResetAll() {
	for i := range m.envelopes {
		m.envelopes[i].reset()
	}
}

// SetParams pushes parameters to every envelope
func (m *EnvelopeManager) SetParams(p EnvelopeParams) {
	p = p.Sanitize()
	m.params = p
	for i := range m.envelopes {
		m.envelopes[i].SetParams(p)
	}
}

// Params returns the parameters last pushed to the pool
func (m *EnvelopeManager) Params() EnvelopeParams { return m.params }

// Value returns envelope i's gain, 0 when out of range
func (m *EnvelopeManager) Value(i int) float64 {
	if i < 0 || i >= len(m.envelopes) {
		return 0
	}
	return m.envelopes[i].value
}

// Level returns the loudest envelope in the pool
func (m *EnvelopeManager) Level() float64 {
	level := 0.0
	for i := range m.envelopes {
		if v := m.envelopes[i].value; v > level {
			level = v
		}
	}
	return level
}

// State returns the stage of the first envelope
func (m *EnvelopeManager) State() EnvelopeState {
	return m.envelopes[0].state
}

// Active reports whether any envelope is still producing output
func (m *EnvelopeManager) Active() bool {
	for i := range m.envelopes {
		if m.envelopes[i].processing {
			return true
		}
	}
	return false
}

// Pending reports whether any envelope is fading out ahead of a queued note
func (m *EnvelopeManager) Pending() bool {
	for i := range m.envelopes {
		if m.envelopes[i].hasPending {
			return true
		}
	}
	return false
}

// Size returns the pool size
func (m *EnvelopeManager) Size() int { return len(m.envelopes) }
