package synth

import (
	"fmt"
	"math"

	"github.com/lixenwraith/monosynth/constant"
)

// NoteFrequencies contains precomputed frequencies for MIDI notes 0-127
// A4 (note 69) = 440Hz, equal temperament
var NoteFrequencies [constant.MIDINoteCount]float64

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func init() {
	for i := range NoteFrequencies {
		NoteFrequencies[i] = MIDIToFreq(float64(i))
	}
}

// MIDIToFreq converts a (possibly fractional) MIDI note number to Hz
func MIDIToFreq(note float64) float64 {
	return constant.MIDITuningHz * math.Exp2((note-constant.MIDIReference)/12)
}

// FreqToMIDI returns the fractional MIDI note for freq, 0 for non-positive input
func FreqToMIDI(freq float64) float64 {
	if !(freq > 0) {
		return 0
	}
	return constant.MIDIReference + 12*math.Log2(freq/constant.MIDITuningHz)
}

// NoteFreq returns frequency in Hz for MIDI note number
func NoteFreq(midi int) float64 {
	if midi < 0 || midi >= constant.MIDINoteCount {
		return 0
	}
	return NoteFrequencies[midi]
}

// NearestNote returns the MIDI note closest to freq
func NearestNote(freq float64) (int, error) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return 0, fmt.Errorf("%w: %g Hz", ErrInvalidNote, freq)
	}
	n := int(math.Round(FreqToMIDI(freq)))
	if n < 0 || n >= constant.MIDINoteCount {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNote, n)
	}
	return n, nil
}

// NoteName returns scientific pitch notation, e.g. 69 -> "A4"
func NoteName(midi int) string {
	if midi < 0 || midi >= constant.MIDINoteCount {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1)
}
