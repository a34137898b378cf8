package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Driver selects the audio output implementation
type Driver string

const (
	DriverAuto      Driver = "auto"
	DriverBeep      Driver = "beep"
	DriverOto       Driver = "oto"
	DriverPortAudio Driver = "portaudio"
	DriverPipe      Driver = "pipe"
	DriverHeadless  Driver = "headless"
)

// autoOrder is the fallback chain tried by DriverAuto
var autoOrder = []Driver{DriverBeep, DriverPortAudio, DriverPipe, DriverHeadless}

// ParseDriver resolves a driver name, empty selects auto
func ParseDriver(s string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case "":
		return DriverAuto, nil
	case DriverAuto, DriverBeep, DriverOto, DriverPortAudio, DriverPipe, DriverHeadless:
		return d, nil
	}
	return DriverAuto, fmt.Errorf("%w: %q", ErrUnknownDriver, s)
}

// candidates returns the drivers to try in order
func (d Driver) candidates() []Driver {
	if d == DriverAuto || d == "" {
		return autoOrder
	}
	return []Driver{d}
}

// BackendType identifies the CLI pipe backend
type BackendType int

const (
	BackendPulse BackendType = iota
	BackendPipeWire
	BackendALSA
	BackendSoX
	BackendFFplay
	BackendOSS
)

// BackendConfig describes a CLI audio backend
type BackendConfig struct {
	Type BackendType
	Name string
	Path string
	Args []string
}

// Renderer is the real-time fill function driven by every sink
// Process and ProcessInterleaved are called from a single audio goroutine
type Renderer interface {
	Process(out []float32, frameCount int, sampleRate float64)
	ProcessInterleaved(out []float32, channels int, sampleRate float64)
	Reset()
}

// sink is one output driver instance owned by AudioEngine
type sink interface {
	start() error
	stop()
	name() string
}

// Sentinel errors
var (
	ErrNoAudioBackend = errors.New("no compatible audio backend found")
	ErrPipeClosed     = errors.New("audio pipe closed")
	ErrUnknownDriver  = errors.New("unknown audio driver")
	ErrAlreadyRunning = errors.New("audio engine already running")
	ErrContextInUse   = errors.New("oto context already created with different format")
)
