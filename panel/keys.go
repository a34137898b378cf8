package panel

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/monosynth/constant"
)

const (
	detuneStep  = 5.0  // cents
	timeFactor  = 1.25 // ADSR durations scale geometrically
	levelStep   = 0.05 // sustain, filter alpha, smoothing, gain
	octaveNotes = 12
)

// HandleKey applies one key binding, returning false on quit
// Lowercase letters decrease a parameter, uppercase increase it
func (p *Panel) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		p.shiftPitch(-1)
		return true
	case tcell.KeyRight:
		p.shiftPitch(1)
		return true
	case tcell.KeyUp:
		p.shiftPitch(octaveNotes)
		return true
	case tcell.KeyDown:
		p.shiftPitch(-octaveNotes)
		return true
	case tcell.KeyRune:
	default:
		return true
	}

	b := p.bridge
	switch ev.Rune() {
	case 'q':
		return false

	case 'w':
		next := b.Params().Unison.Waveform.Next()
		b.SetWaveform(next)
		p.setStatus("waveform " + next.String())

	case '+', '=':
		b.SetVoices(b.Params().Unison.Voices + 1)
	case '-', '_':
		b.SetVoices(b.Params().Unison.Voices - 1)

	case ']':
		b.SetDetune(b.Params().Unison.Detune + detuneStep)
	case '[':
		b.SetDetune(b.Params().Unison.Detune - detuneStep)

	case 'a':
		b.SetAttack(b.Params().Envelope.Attack / timeFactor)
	case 'A':
		b.SetAttack(b.Params().Envelope.Attack * timeFactor)
	case 'd':
		b.SetDecay(b.Params().Envelope.Decay / timeFactor)
	case 'D':
		b.SetDecay(b.Params().Envelope.Decay * timeFactor)
	case 's':
		b.SetSustain(stepLevel(b.Params().Envelope.Sustain, -levelStep))
	case 'S':
		b.SetSustain(stepLevel(b.Params().Envelope.Sustain, levelStep))
	case 'r':
		b.SetRelease(b.Params().Envelope.Release / timeFactor)
	case 'R':
		b.SetRelease(b.Params().Envelope.Release * timeFactor)

	case 'o', 'O', 'f', 'F', 'h', 'H':
		q := b.Params().Quality
		switch ev.Rune() {
		case 'o':
			q.Oversample--
		case 'O':
			q.Oversample++
		case 'f':
			q.FilterAlpha = stepLevel(q.FilterAlpha, -levelStep)
		case 'F':
			q.FilterAlpha = stepLevel(q.FilterAlpha, levelStep)
		case 'h':
			q.Smoothing = stepLevel(q.Smoothing, -levelStep)
		case 'H':
			q.Smoothing = stepLevel(q.Smoothing, levelStep)
		}
		b.SetQuality(q)

	case 'g':
		b.SetMasterGain(stepLevel(b.Params().MasterGain, -levelStep))
	case 'G':
		b.SetMasterGain(stepLevel(b.Params().MasterGain, levelStep))

	case ' ':
		b.Gate(!b.GateOpen())

	case 'p':
		p.toggleTransport()

	case 'm':
		p.refreshPorts()
	case 'n':
		p.selectPort(1)
	case 'N':
		p.selectPort(-1)
	case 'c':
		p.connectPort()
	case 'x':
		p.disconnectPort()

	case '!':
		b.Panic()
		p.setStatus("panic: all notes released")
	}
	return true
}

// shiftPitch moves the manual frequency by semitones within the MIDI range
func (p *Panel) shiftPitch(semitones int) {
	p.mu.Lock()
	n := p.pitch + semitones
	if n < 0 {
		n = 0
	} else if n >= constant.MIDINoteCount {
		n = constant.MIDINoteCount - 1
	}
	p.pitch = n
	p.mu.Unlock()

	p.bridge.SetPitch(uint8(n))
}

func (p *Panel) toggleTransport() {
	if p.transport == nil {
		p.setStatus("transport unavailable")
		return
	}
	on := !p.transport.Playing()
	if err := p.transport.SetPlaying(on); err != nil {
		p.setStatus(fmt.Sprintf("transport: %v", err))
		return
	}
	if on {
		p.setStatus("playing")
	} else {
		p.setStatus("stopped")
	}
}

// stepLevel adds delta and rounds to the step grid so repeated presses stay on it
func stepLevel(v, delta float64) float64 {
	return math.Round((v+delta)/levelStep) * levelStep
}
