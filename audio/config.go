package audio

import (
	"os"
	"strconv"

	"github.com/lixenwraith/monosynth/constant"
)

// AudioConfig holds output stream settings
type AudioConfig struct {
	Driver       Driver `json:"driver"`
	SampleRate   int    `json:"sample_rate"`
	BufferFrames int    `json:"buffer_frames"`
	Channels     int    `json:"channels"`
	Enabled      bool   `json:"enabled"` // false starts muted
}

// DefaultAudioConfig returns 44.1kHz stereo with 512-frame buffers on the auto driver
func DefaultAudioConfig() *AudioConfig {
	return &AudioConfig{
		Driver:       DriverAuto,
		SampleRate:   constant.AudioSampleRate,
		BufferFrames: constant.AudioBufferFrames,
		Channels:     constant.AudioChannels,
		Enabled:      true,
	}
}

// LoadAudioConfig loads audio configuration from environment variables
func LoadAudioConfig() *AudioConfig {
	cfg := DefaultAudioConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from MONOSYNTH_* variables, ignoring malformed values
func (c *AudioConfig) ApplyEnv() {
	if v := os.Getenv("MONOSYNTH_AUDIO_DRIVER"); v != "" {
		if d, err := ParseDriver(v); err == nil {
			c.Driver = d
		}
	}

	if v := os.Getenv("MONOSYNTH_AUDIO_ENABLED"); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			c.Enabled = val
		}
	}

	if v := os.Getenv("MONOSYNTH_SAMPLE_RATE"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			c.SampleRate = val
		}
	}

	if v := os.Getenv("MONOSYNTH_BUFFER_FRAMES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			c.BufferFrames = val
		}
	}

	c.Sanitize()
}

// Sanitize clamps stream settings to what the sinks support
func (c *AudioConfig) Sanitize() {
	if _, err := ParseDriver(string(c.Driver)); err != nil || c.Driver == "" {
		c.Driver = DriverAuto
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		c.SampleRate = constant.AudioSampleRate
	}
	if c.BufferFrames < 32 {
		c.BufferFrames = 32
	} else if c.BufferFrames > constant.AudioMaxBufferFrames {
		c.BufferFrames = constant.AudioMaxBufferFrames
	}
	if c.Channels < 1 || c.Channels > 2 {
		c.Channels = constant.AudioChannels
	}
}
