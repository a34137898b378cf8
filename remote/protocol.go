package remote

import (
	"github.com/lixenwraith/monosynth/audio"
	"github.com/lixenwraith/monosynth/synth"
)

// WebSocket message types
const (
	TypeState   = "state"
	TypeParam   = "param"
	TypeNoteOn  = "note_on"
	TypeNoteOff = "note_off"
	TypeGate    = "gate"
	TypePanic   = "panic"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

const defaultVelocity = 100

// Message is the envelope for every WebSocket frame in either direction
type Message struct {
	Type     string      `json:"type"`
	Params   *ParamPatch `json:"params,omitempty"`
	Note     *int        `json:"note,omitempty"`
	Velocity *int        `json:"velocity,omitempty"`
	Open     *bool       `json:"open,omitempty"`
	State    *State      `json:"state,omitempty"`
	Error    string      `json:"error,omitempty"`
	TS       int64       `json:"ts,omitempty"`
}

// ParamPatch is a partial parameter update; nil fields are left unchanged
type ParamPatch struct {
	Waveform   *synth.WaveformKind `json:"waveform,omitempty"`
	Voices     *int                `json:"voices,omitempty"`
	Detune     *float64            `json:"detune,omitempty"`
	Attack     *float64            `json:"attack,omitempty"`
	Decay      *float64            `json:"decay,omitempty"`
	Sustain    *float64            `json:"sustain,omitempty"`
	Release    *float64            `json:"release,omitempty"`
	Oversample *int                `json:"oversample,omitempty"`
	Alpha      *float64            `json:"filter_alpha,omitempty"`
	Smoothing  *float64            `json:"smoothing,omitempty"`
	MasterGain *float64            `json:"master_gain,omitempty"`
	Frequency  *float64            `json:"frequency,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p ParamPatch) Empty() bool {
	return p == ParamPatch{}
}

// Apply publishes the patch through the bridge as one parameter snapshot
func (p ParamPatch) Apply(b *synth.Bridge) {
	if p.Frequency != nil {
		b.SetFrequency(*p.Frequency)
	}
	params := p
	params.Frequency = nil
	if params.Empty() {
		return
	}

	b.Update(func(dst *synth.Params) {
		if p.Waveform != nil {
			dst.Unison.Waveform = *p.Waveform
		}
		if p.Voices != nil {
			dst.Unison.Voices = *p.Voices
		}
		if p.Detune != nil {
			dst.Unison.Detune = *p.Detune
		}
		if p.Attack != nil {
			dst.Envelope.Attack = *p.Attack
		}
		if p.Decay != nil {
			dst.Envelope.Decay = *p.Decay
		}
		if p.Sustain != nil {
			dst.Envelope.Sustain = *p.Sustain
		}
		if p.Release != nil {
			dst.Envelope.Release = *p.Release
		}
		if p.Oversample != nil {
			dst.Quality.Oversample = *p.Oversample
		}
		if p.Alpha != nil {
			dst.Quality.FilterAlpha = *p.Alpha
		}
		if p.Smoothing != nil {
			dst.Quality.Smoothing = *p.Smoothing
		}
		if p.MasterGain != nil {
			dst.MasterGain = *p.MasterGain
		}
	})
}

// NoteState describes the sounding MIDI note
type NoteState struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// State is the full control-plane snapshot served over REST and pushed over WebSocket
type State struct {
	Params    synth.Params      `json:"params"`
	Frequency float64           `json:"frequency"`
	Note      *NoteState        `json:"note,omitempty"`
	Gate      bool              `json:"gate"`
	Envelope  string            `json:"envelope"`
	Level     float64           `json:"level"`
	Mode      string            `json:"envelope_mode"`
	Playing   bool              `json:"playing"`
	Driver    string            `json:"driver,omitempty"`
	Stats     synth.EngineStats `json:"stats"`
	Version   uint64            `json:"version"`
}

// Transport starts and stops the audio stream
type Transport interface {
	Playing() bool
	SetPlaying(on bool) error
}

var _ Transport = (*audio.AudioEngine)(nil)

type driverNamer interface {
	DriverName() string
}

func snapshotState(engine *synth.Engine, transport Transport) State {
	b := engine.Bridge()
	st := State{
		Params:    b.Params(),
		Frequency: b.Frequency(),
		Gate:      b.GateOpen(),
		Envelope:  engine.State().String(),
		Level:     engine.Level(),
		Mode:      engine.Mode().String(),
		Stats:     engine.Stats(),
		Version:   b.Version(),
	}
	if n, ok := b.CurrentNote(); ok {
		st.Note = &NoteState{Number: int(n), Name: synth.NoteName(int(n))}
	}
	if transport != nil {
		st.Playing = transport.Playing()
		if d, ok := transport.(driverNamer); ok {
			st.Driver = d.DriverName()
		}
	}
	return st
}
