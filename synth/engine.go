package synth

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/status"
)

// EnvelopeMode selects how often the envelope advances
type EnvelopeMode uint8

const (
	// EnvelopePerSample advances the envelope once per frame
	EnvelopePerSample EnvelopeMode = iota
	// EnvelopePerBuffer advances once per buffer and interpolates gain across frames
	EnvelopePerBuffer
)

func (m EnvelopeMode) String() string {
	if m == EnvelopePerBuffer {
		return "buffer"
	}
	return "sample"
}

// ParseEnvelopeMode accepts "sample" or "buffer"
func ParseEnvelopeMode(s string) (EnvelopeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sample":
		return EnvelopePerSample, nil
	case "buffer":
		return EnvelopePerBuffer, nil
	}
	return EnvelopePerSample, fmt.Errorf("unknown envelope mode %q", s)
}

// EngineStats is a snapshot of callback counters
type EngineStats struct {
	Buffers uint64 `json:"buffers"`
	Frames  uint64 `json:"frames"`
	Faults  uint64 `json:"faults"`
	Dropped uint64 `json:"dropped_events"`
}

// Engine is the real-time fill function. Process must only be called from one
// goroutine at a time (the audio sink's callback); readouts are safe anywhere
type Engine struct {
	bridge *Bridge
	env    *EnvelopeManager
	mode   EnvelopeMode

	// Audio-thread state
	sampleRate float64
	clock      uint64 // Samples rendered since stream start
	snapshot   *Params
	params     Params
	holdFreq   float64 // Last positive frequency, held through the release tail
	scratch    [constant.AudioMaxBufferFrames]float32

	// Published for the control plane
	buffers atomic.Uint64
	frames  atomic.Uint64
	faults  atomic.Uint64
	level   status.AtomicFloat
	state   atomic.Int32
	rate    status.AtomicFloat
	pitch   status.AtomicFloat
}

// NewEngine creates an engine reading from bridge with poolSize envelopes
func NewEngine(bridge *Bridge, poolSize int, mode EnvelopeMode) *Engine {
	snap := bridge.Snapshot()
	e := &Engine{
		bridge:   bridge,
		mode:     mode,
		snapshot: snap,
		params:   *snap,
		env:      NewEnvelopeManager(poolSize, snap.Envelope),
	}
	return e
}

// Process fills out[:frameCount] with mono samples at sampleRate.
// A fault inside the callback silences the buffer and is counted in Stats
func (e *Engine) Process(out []float32, frameCount int, sampleRate float64) {
	n := frameCount
	if n > len(out) {
		n = len(out)
	}
	if n <= 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.faults.Add(1)
			clear(out[:n])
		}
	}()

	if sampleRate > 0 && !math.IsInf(sampleRate, 0) && sampleRate != e.sampleRate {
		e.sampleRate = sampleRate
		e.rate.Set(sampleRate)
	}
	if e.sampleRate <= 0 {
		clear(out[:n])
		return
	}

	e.refresh()
	e.render(out[:n])

	e.buffers.Add(1)
	e.frames.Add(uint64(n))
	e.level.Set(e.env.Level())
	e.state.Store(int32(e.env.State()))
}

// ProcessInterleaved fills an interleaved buffer, copying the mono signal to every channel
func (e *Engine) ProcessInterleaved(out []float32, channels int, sampleRate float64) {
	if channels <= 0 {
		return
	}
	if channels == 1 {
		e.Process(out, len(out), sampleRate)
		return
	}

	frames := len(out) / channels
	for done := 0; done < frames; {
		chunk := frames - done
		if chunk > len(e.scratch) {
			chunk = len(e.scratch)
		}
		e.Process(e.scratch[:chunk], chunk, sampleRate)
		base := done * channels
		for i := 0; i < chunk; i++ {
			s := e.scratch[i]
			for c := 0; c < channels; c++ {
				out[base+i*channels+c] = s
			}
		}
		done += chunk
	}
	clear(out[frames*channels:])
}

// refresh pulls the latest parameters and drains pending note events
func (e *Engine) refresh() {
	if snap := e.bridge.Snapshot(); snap != nil && snap != e.snapshot {
		e.snapshot = snap
		e.params = *snap
		e.env.SetParams(snap.Envelope)
	}

	for i := 0; i < constant.NoteEventQueueSize; i++ {
		ev, ok := e.bridge.PollEvent()
		if !ok {
			break
		}
		switch ev.Kind {
		case NoteOnEvent:
			e.env.StartAll(ev.Note)
		case NoteOffEvent:
			e.env.EndNote(ev.Note)
		case PanicEvent:
			e.env.EndAll()
		}
	}
}

// frequency applies the hold policy: a silent target keeps the last pitch
// while the envelope is still sounding, and a retrigger fade keeps the old
// note's pitch until the queued attack begins
func (e *Engine) frequency() float64 {
	if e.env.Pending() && e.holdFreq > 0 {
		return e.holdFreq
	}
	if f := e.bridge.Frequency(); f > 0 {
		e.holdFreq = f
		return f
	}
	if e.env.Active() {
		return e.holdFreq
	}
	return 0
}

func (e *Engine) render(out []float32) {
	n := len(out)
	sr := e.sampleRate
	dt := 1.0 / sr
	freq := e.frequency()
	u := e.params.Unison
	q := e.params.Quality
	master := e.params.MasterGain

	switch e.mode {
	case EnvelopePerBuffer:
		g0 := e.env.Level()
		e.env.UpdateAll(dt * float64(n))
		g1 := e.env.Level()
		for i := range out {
			gain := g0 + (g1-g0)*float64(i)/float64(n)
			out[i] = e.voice(freq, gain, u, q, master)
		}

	default:
		fading := e.env.Pending()
		for i := range out {
			e.env.UpdateAll(dt)
			if fading && !e.env.Pending() {
				fading = false
				freq = e.frequency()
			}
			out[i] = e.voice(freq, e.env.Level(), u, q, master)
		}
	}
	e.pitch.Set(freq)
}

// voice renders one frame and advances the sample clock
func (e *Engine) voice(freq, gain float64, u UnisonSettings, q OscillatorQuality, master float64) float32 {
	s := 0.0
	if freq > 0 && gain > 0 {
		t := float64(e.clock) / e.sampleRate
		s = MixVoices(freq, u, t, e.sampleRate, q) * gain * master
	}
	e.clock++
	return float32(s)
}

// Stats returns callback counters
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Buffers: e.buffers.Load(),
		Frames:  e.frames.Load(),
		Faults:  e.faults.Load(),
		Dropped: e.bridge.Dropped(),
	}
}

// Level returns the envelope gain published by the last buffer
func (e *Engine) Level() float64 {
	return e.level.Get()
}

// State returns the envelope stage published by the last buffer
func (e *Engine) State() EnvelopeState {
	return EnvelopeState(e.state.Load())
}

// Pitch returns the frequency rendered by the last buffer, 0 when silent
func (e *Engine) Pitch() float64 {
	return e.pitch.Get()
}

// SampleRate returns the rate of the running stream, 0 before the first buffer
func (e *Engine) SampleRate() float64 {
	return e.rate.Get()
}

// Elapsed returns stream time in seconds derived from rendered frames
func (e *Engine) Elapsed() float64 {
	sr := e.SampleRate()
	if sr <= 0 {
		return 0
	}
	return float64(e.frames.Load()) / sr
}

// Mode returns the envelope advancement mode
func (e *Engine) Mode() EnvelopeMode {
	return e.mode
}

// Bridge returns the control-plane bridge feeding this engine
func (e *Engine) Bridge() *Bridge {
	return e.bridge
}

// Reset drops all real-time state. Call only while no stream is running
func (e *Engine) Reset() {
	e.env.ResetAll()
	e.clock = 0
	e.holdFreq = 0
	for {
		if _, ok := e.bridge.PollEvent(); !ok {
			break
		}
	}
	e.level.Set(0)
	e.pitch.Set(0)
	e.state.Store(int32(EnvIdle))
}
