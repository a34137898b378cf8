package synth

import (
	"math"

	"github.com/lixenwraith/monosynth/constant"
)

// UnisonSettings describes the detuned voice stack
// Detune is the total spread in cents, voices sit symmetrically in [-Detune/2, +Detune/2]
type UnisonSettings struct {
	Voices   int          `json:"voices"`
	Detune   float64      `json:"detune"`
	Waveform WaveformKind `json:"waveform"`
}

// DefaultUnison returns a single sine voice
func DefaultUnison() UnisonSettings {
	return UnisonSettings{
		Voices:   constant.DefaultVoices,
		Detune:   constant.DefaultDetune,
		Waveform: WaveSine,
	}
}

// Sanitize clamps voices to [1, 8] and detune to [0, 100]
// Non-finite detune or an unknown waveform falls back to a single undetuned voice
func (u UnisonSettings) Sanitize() UnisonSettings {
	if math.IsNaN(u.Detune) || math.IsInf(u.Detune, 0) {
		u.Voices = 1
		u.Detune = 0
	}
	if u.Voices < constant.MinVoices {
		u.Voices = constant.MinVoices
	} else if u.Voices > constant.MaxVoices {
		u.Voices = constant.MaxVoices
	}
	if u.Detune < 0 {
		u.Detune = 0
	} else if u.Detune > constant.MaxDetuneCents {
		u.Detune = constant.MaxDetuneCents
	}
	if !u.Waveform.Valid() {
		u.Waveform = WaveSine
	}
	return u
}

// DetuneOffsets returns per-voice offsets in cents, linearly spaced over
// [-detune/2, +detune/2] with (voices-1) steps. Only the first voices entries are set
func DetuneOffsets(voices int, detune float64) (offsets [constant.MaxVoices]float64) {
	if voices <= 1 {
		return offsets
	}
	if voices > constant.MaxVoices {
		voices = constant.MaxVoices
	}
	step := detune / float64(voices-1)
	for i := 0; i < voices; i++ {
		offsets[i] = step*float64(i) - detune/2
	}
	return offsets
}

// CentsToRatio converts a pitch offset in cents to a frequency multiplier
func CentsToRatio(cents float64) float64 {
	return math.Exp2(cents / 1200)
}

// RatioToCents is the inverse of CentsToRatio
func RatioToCents(ratio float64) float64 {
	return 1200 * math.Log2(ratio)
}

// VoiceFrequencies returns the detuned frequency of each voice and the voice count
func VoiceFrequencies(base float64, u UnisonSettings) (freqs [constant.MaxVoices]float64, n int) {
	u = u.Sanitize()
	offsets := DetuneOffsets(u.Voices, u.Detune)
	for i := 0; i < u.Voices; i++ {
		freqs[i] = base * CentsToRatio(offsets[i])
	}
	return freqs, u.Voices
}

// MixVoices sums the detuned voices at time t and divides by the voice count
// A single voice delegates straight to Sample at the base frequency
func MixVoices(base float64, u UnisonSettings, t, sampleRate float64, q OscillatorQuality) float64 {
	u = u.Sanitize()
	if u.Voices == 1 {
		return Sample(u.Waveform, base, t, sampleRate, q)
	}

	offsets := DetuneOffsets(u.Voices, u.Detune)
	sum := 0.0
	for i := 0; i < u.Voices; i++ {
		sum += Sample(u.Waveform, base*CentsToRatio(offsets[i]), t, sampleRate, q)
	}
	return sum / float64(u.Voices)
}
