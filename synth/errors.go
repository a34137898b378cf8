package synth

import "errors"

// Sentinel errors
var (
	ErrUnknownWaveform = errors.New("unknown waveform")
	ErrInvalidNote     = errors.New("midi note out of range")
)
