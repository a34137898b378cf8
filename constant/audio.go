package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate    = 44100
	AudioChannels      = 2
	AudioBitDepth      = 16
	AudioBytesPerFrame = AudioChannels * (AudioBitDepth / 8) // 4 bytes
)

// Audio Engine Timing
const (
	// AudioBufferFrames is the default frames per output buffer
	// 512 frames at 44.1kHz is ~11.6ms
	AudioBufferFrames = 512

	// AudioMaxBufferFrames bounds the scratch buffers pre-sized at stream setup
	// Larger host requests are rendered in chunks of this size
	AudioMaxBufferFrames = 8192

	// AudioDrainTimeout for in-flight buffers on stop
	AudioDrainTimeout = 100 * time.Millisecond
)

// Oscillator Quality Bounds
const (
	MinOversample = 1
	MaxOversample = 16
	MaxSmoothing  = 0.5

	// SmoothedSquareLevel is the square wave amplitude when smoothing is active
	SmoothedSquareLevel = 0.8
)

// Unison Bounds
const (
	MinVoices      = 1
	MaxVoices      = 8
	MaxDetuneCents = 100.0
)

// Envelope Bounds
const (
	// MinStageSeconds keeps stage durations away from zero before division
	MinStageSeconds = 0.001
	MaxStageSeconds = 10.0

	// StageTimeEpsilon absorbs float accumulation when testing stage completion
	StageTimeEpsilon = 1e-9

	// RetriggerFadeSeconds caps the implicit release before a new note attacks
	RetriggerFadeSeconds = 0.005

	MinEnvelopePool = 1
	MaxEnvelopePool = 8
)

// Default Patch
const (
	DefaultFrequency  = 440.0
	DefaultVoices     = 1
	DefaultDetune     = 10.0
	DefaultAttack     = 0.01
	DefaultDecay      = 0.1
	DefaultSustain    = 0.7
	DefaultRelease    = 0.2
	DefaultMasterGain = 0.5
)

// Frequency Bounds
const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
)

// MIDI
const (
	MIDINoteCount = 128
	MIDIReference = 69    // A4
	MIDITuningHz  = 440.0 // A4 reference pitch

	// ManualNoteID is the note token used by the panel/remote gate
	// Outside the MIDI token range (1..128)
	ManualNoteID = 1000
)

// Control Plane
const (
	// NoteEventQueueSize bounds pending note events between control plane and callback
	NoteEventQueueSize = 64

	// WatchdogInterval is the default watchdog tick
	WatchdogInterval = 250 * time.Millisecond

	// WatchdogGrace is the default stuck-note grace period, 0 disables
	WatchdogGrace = 0 * time.Second

	// PanelRefreshInterval is the terminal panel redraw cadence (~60Hz)
	PanelRefreshInterval = 16 * time.Millisecond
)
