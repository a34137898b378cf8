package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/lixenwraith/monosynth/constant"
)

// WaveformKind selects the oscillator shape
type WaveformKind uint8

const (
	WaveSine WaveformKind = iota
	WaveTriangle
	WaveSquare
	WaveSawtooth
	waveformCount
)

var waveformNames = [waveformCount]string{
	WaveSine:     "sine",
	WaveTriangle: "triangle",
	WaveSquare:   "square",
	WaveSawtooth: "sawtooth",
}

func (k WaveformKind) String() string {
	if k >= waveformCount {
		return fmt.Sprintf("waveform(%d)", uint8(k))
	}
	return waveformNames[k]
}

// Valid reports whether k is one of the four supported shapes
func (k WaveformKind) Valid() bool {
	return k < waveformCount
}

// Next cycles to the following waveform, wrapping after sawtooth
func (k WaveformKind) Next() WaveformKind {
	return (k + 1) % waveformCount
}

// ParseWaveform resolves a waveform name, accepting "saw" and "tri" shorthands
func ParseWaveform(s string) (WaveformKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return WaveSine, nil
	case "triangle", "tri":
		return WaveTriangle, nil
	case "square", "sqr":
		return WaveSquare, nil
	case "sawtooth", "saw":
		return WaveSawtooth, nil
	}
	return WaveSine, fmt.Errorf("%w: %q", ErrUnknownWaveform, s)
}

// MarshalText implements encoding.TextMarshaler for JSON configs and the remote API
func (k WaveformKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWaveform, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *WaveformKind) UnmarshalText(b []byte) error {
	w, err := ParseWaveform(string(b))
	if err != nil {
		return err
	}
	*k = w
	return nil
}

// OscillatorQuality configures anti-aliasing
// Oversample 1 evaluates the raw waveform directly
type OscillatorQuality struct {
	Oversample  int     `json:"oversample"`
	FilterAlpha float64 `json:"filter_alpha"`
	Smoothing   float64 `json:"smoothing"`
}

// DefaultQuality returns the pure waveform setting
func DefaultQuality() OscillatorQuality {
	return OscillatorQuality{
		Oversample:  1,
		FilterAlpha: 1.0,
		Smoothing:   0,
	}
}

// Sanitize clamps every field to its domain, NaN falls back to the default
func (q OscillatorQuality) Sanitize() OscillatorQuality {
	def := DefaultQuality()
	if q.Oversample < constant.MinOversample {
		q.Oversample = constant.MinOversample
	} else if q.Oversample > constant.MaxOversample {
		q.Oversample = constant.MaxOversample
	}
	q.FilterAlpha = clampFinite(q.FilterAlpha, 0, 1, def.FilterAlpha)
	q.Smoothing = clampFinite(q.Smoothing, 0, constant.MaxSmoothing, def.Smoothing)
	return q
}

// Sample evaluates waveform kind at time t (seconds)
// The result is bounded to [-1, 1]. Non-positive or non-finite frequency yields 0,
// and q is sanitized first so malformed quality settings cannot escape the bound
func Sample(kind WaveformKind, freq, t, sampleRate float64, q OscillatorQuality) float64 {
	if !(freq > 0) || math.IsInf(freq, 0) || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}

	q = q.Sanitize()
	if q.Oversample == 1 || !(sampleRate > 0) {
		return rawWave(kind, phaseAt(freq, t), false)
	}

	ratio := q.Oversample
	alpha := q.FilterAlpha
	strength := q.Smoothing
	smoothed := strength > 0
	subDt := 1.0 / (sampleRate * float64(ratio))

	// Filter state is local to the call, seeded with the first raw sub-sample
	prev := rawWave(kind, phaseAt(freq, t), smoothed)
	sum := 0.0
	for k := 0; k < ratio; k++ {
		raw := rawWave(kind, phaseAt(freq, t+float64(k)*subDt), smoothed)
		y := prev + alpha*(raw-prev)
		prev = y
		sum += saturate(y, strength)
	}
	return sum / float64(ratio)
}

// phaseAt returns the normalized phase fract(t*freq) in [0, 1)
func phaseAt(freq, t float64) float64 {
	x := t * freq
	p := x - math.Floor(x)
	if p >= 1 {
		p = 0
	}
	return p
}

// rawWave evaluates one period shape at normalized phase p
func rawWave(kind WaveformKind, p float64, smoothed bool) float64 {
	switch kind {
	case WaveSine:
		return math.Sin(2 * math.Pi * p)
	case WaveTriangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	case WaveSquare:
		level := 1.0
		if smoothed {
			level = constant.SmoothedSquareLevel
		}
		if p < 0.5 {
			return level
		}
		return -level
	case WaveSawtooth:
		return 2*p - 1
	default:
		return 0
	}
}

// saturate applies x*(1-|x|*strength) and clamps to [-1, 1]
func saturate(x, strength float64) float64 {
	y := x * (1 - math.Abs(x)*strength)
	if y > 1 {
		return 1
	}
	if y < -1 {
		return -1
	}
	return y
}

// clampFinite clamps v to [lo, hi], replacing NaN/Inf with fallback
func clampFinite(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
