// Package config holds startup settings for monosynth.
// Layering: defaults, then the JSON file, then MONOSYNTH_* environment
// variables, then command-line flags (applied by cmd).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lixenwraith/monosynth/audio"
	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/synth"
)

// Config holds all startup settings
type Config struct {
	Audio        audio.AudioConfig `json:"audio"`
	EnvelopeMode string            `json:"envelope_mode"`
	EnvelopePool int               `json:"envelope_pool"`
	Patch        synth.Params      `json:"patch"`
	Frequency    float64           `json:"frequency"`
	MIDI         MIDIConfig        `json:"midi"`
	Remote       RemoteConfig      `json:"remote"`
	Watchdog     WatchdogConfig    `json:"watchdog"`
	UI           bool              `json:"ui"`
}

// MIDIConfig selects the MIDI input port
type MIDIConfig struct {
	Enabled bool   `json:"enabled"`
	Port    string `json:"port"`    // Name, substring or index; empty = first port
	Channel int    `json:"channel"` // 0-15, -1 = all
}

// RemoteConfig configures the HTTP/WebSocket control surface
type RemoteConfig struct {
	Addr string `json:"addr"` // Empty disables
}

// WatchdogConfig configures stuck-note protection
type WatchdogConfig struct {
	GraceMS    int `json:"grace_ms"` // 0 disables the stuck-note timeout
	IntervalMS int `json:"interval_ms"`
}

// Grace returns the stuck-note timeout
func (w WatchdogConfig) Grace() time.Duration {
	return time.Duration(w.GraceMS) * time.Millisecond
}

// Interval returns the check period
func (w WatchdogConfig) Interval() time.Duration {
	return time.Duration(w.IntervalMS) * time.Millisecond
}

// Default returns a Config populated with defaults
func Default() Config {
	return Config{
		Audio:        *audio.DefaultAudioConfig(),
		EnvelopeMode: synth.EnvelopePerSample.String(),
		EnvelopePool: constant.MinEnvelopePool,
		Patch:        synth.DefaultParams(),
		Frequency:    constant.DefaultFrequency,
		MIDI: MIDIConfig{
			Enabled: true,
			Channel: -1,
		},
		Watchdog: WatchdogConfig{
			GraceMS:    int(constant.WatchdogGrace / time.Millisecond),
			IntervalMS: int(constant.WatchdogInterval / time.Millisecond),
		},
		UI: true,
	}
}

// Path returns the default config file location
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "monosynth", "config.json"), nil
}

// Load reads the config file at path (default location when empty).
// A missing or unreadable file yields defaults, never an error
func Load(path string) Config {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default()
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	cfg.Sanitize()
	return cfg
}

// Save writes cfg to path, creating the directory if needed
func Save(path string, cfg Config) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overrides fields from MONOSYNTH_* variables, ignoring malformed values
func (c *Config) ApplyEnv() {
	c.Audio.ApplyEnv()

	if v := os.Getenv("MONOSYNTH_ENVELOPE_MODE"); v != "" {
		if _, err := synth.ParseEnvelopeMode(v); err == nil {
			c.EnvelopeMode = v
		}
	}
	if v := os.Getenv("MONOSYNTH_WAVEFORM"); v != "" {
		if w, err := synth.ParseWaveform(v); err == nil {
			c.Patch.Unison.Waveform = w
		}
	}
	if v := os.Getenv("MONOSYNTH_VOICES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Patch.Unison.Voices = n
		}
	}
	if v := os.Getenv("MONOSYNTH_DETUNE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Patch.Unison.Detune = f
		}
	}
	if v := os.Getenv("MONOSYNTH_MASTER_GAIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Patch.MasterGain = f
		}
	}
	if v := os.Getenv("MONOSYNTH_MIDI_PORT"); v != "" {
		c.MIDI.Port = v
	}
	if v := os.Getenv("MONOSYNTH_MIDI_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MIDI.Enabled = b
		}
	}
	if v, ok := os.LookupEnv("MONOSYNTH_REMOTE_ADDR"); ok {
		c.Remote.Addr = v
	}
	if v := os.Getenv("MONOSYNTH_WATCHDOG_GRACE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watchdog.GraceMS = n
		}
	}

	c.Sanitize()
}

// Sanitize clamps every field to its domain
func (c *Config) Sanitize() {
	c.Audio.Sanitize()
	c.Patch = c.Patch.Sanitize()

	if _, err := synth.ParseEnvelopeMode(c.EnvelopeMode); err != nil || c.EnvelopeMode == "" {
		c.EnvelopeMode = synth.EnvelopePerSample.String()
	}
	if c.EnvelopePool < constant.MinEnvelopePool {
		c.EnvelopePool = constant.MinEnvelopePool
	} else if c.EnvelopePool > constant.MaxEnvelopePool {
		c.EnvelopePool = constant.MaxEnvelopePool
	}
	if !(c.Frequency > 0) {
		c.Frequency = constant.DefaultFrequency
	} else if c.Frequency < constant.MinFrequency {
		c.Frequency = constant.MinFrequency
	} else if c.Frequency > constant.MaxFrequency {
		c.Frequency = constant.MaxFrequency
	}
	if c.MIDI.Channel < -1 || c.MIDI.Channel > 15 {
		c.MIDI.Channel = -1
	}
	if c.Watchdog.GraceMS < 0 {
		c.Watchdog.GraceMS = 0
	}
	if c.Watchdog.IntervalMS <= 0 {
		c.Watchdog.IntervalMS = int(constant.WatchdogInterval / time.Millisecond)
	}
}

// Mode returns the parsed envelope mode
func (c *Config) Mode() synth.EnvelopeMode {
	m, _ := synth.ParseEnvelopeMode(c.EnvelopeMode)
	return m
}
