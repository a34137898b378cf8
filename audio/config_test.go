package audio

import (
	"errors"
	"testing"
)

// TestDefaultAudioConfig verifies default configuration
func TestDefaultAudioConfig(t *testing.T) {
	cfg := DefaultAudioConfig()
	if cfg.Driver != DriverAuto {
		t.Errorf("Expected auto driver, got %q", cfg.Driver)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("Expected default sample rate 44100, got %d", cfg.SampleRate)
	}
	if cfg.BufferFrames != 512 {
		t.Errorf("Expected 512 buffer frames, got %d", cfg.BufferFrames)
	}
	if cfg.Channels != 2 || !cfg.Enabled {
		t.Errorf("Expected enabled stereo, got %+v", cfg)
	}
}

// TestLoadAudioConfigEnv verifies environment overrides
func TestLoadAudioConfigEnv(t *testing.T) {
	t.Setenv("MONOSYNTH_AUDIO_DRIVER", "PortAudio")
	t.Setenv("MONOSYNTH_AUDIO_ENABLED", "false")
	t.Setenv("MONOSYNTH_SAMPLE_RATE", "48000")
	t.Setenv("MONOSYNTH_BUFFER_FRAMES", "256")

	cfg := LoadAudioConfig()
	if cfg.Driver != DriverPortAudio {
		t.Errorf("Expected portaudio, got %q", cfg.Driver)
	}
	if cfg.Enabled {
		t.Error("Expected disabled")
	}
	if cfg.SampleRate != 48000 || cfg.BufferFrames != 256 {
		t.Errorf("Expected 48000/256, got %d/%d", cfg.SampleRate, cfg.BufferFrames)
	}
}

// TestLoadAudioConfigInvalidEnv verifies malformed values are ignored
func TestLoadAudioConfigInvalidEnv(t *testing.T) {
	t.Setenv("MONOSYNTH_AUDIO_DRIVER", "jack")
	t.Setenv("MONOSYNTH_AUDIO_ENABLED", "maybe")
	t.Setenv("MONOSYNTH_SAMPLE_RATE", "-1")
	t.Setenv("MONOSYNTH_BUFFER_FRAMES", "abc")

	cfg := LoadAudioConfig()
	def := DefaultAudioConfig()
	if *cfg != *def {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

// TestAudioConfigSanitize verifies clamping
func TestAudioConfigSanitize(t *testing.T) {
	cfg := &AudioConfig{Driver: "bogus", SampleRate: 1, BufferFrames: 1 << 20, Channels: 6}
	cfg.Sanitize()
	if cfg.Driver != DriverAuto || cfg.SampleRate != 44100 || cfg.BufferFrames != 8192 || cfg.Channels != 2 {
		t.Errorf("Unexpected sanitized config %+v", cfg)
	}
	cfg.BufferFrames = 4
	cfg.Sanitize()
	if cfg.BufferFrames != 32 {
		t.Errorf("Expected minimum 32 frames, got %d", cfg.BufferFrames)
	}
}

// TestParseDriver verifies driver names
func TestParseDriver(t *testing.T) {
	for _, name := range []string{"auto", "beep", "oto", "portaudio", "pipe", "headless"} {
		if d, err := ParseDriver(name); err != nil || string(d) != name {
			t.Errorf("ParseDriver(%q) = %q, %v", name, d, err)
		}
	}
	if d, _ := ParseDriver(""); d != DriverAuto {
		t.Errorf("Expected empty to select auto, got %q", d)
	}
	if _, err := ParseDriver("jack"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Expected ErrUnknownDriver, got %v", err)
	}
}

// TestDriverCandidates verifies the auto fallback chain ends headless
func TestDriverCandidates(t *testing.T) {
	c := DriverAuto.candidates()
	if c[len(c)-1] != DriverHeadless {
		t.Errorf("Expected auto chain to end with headless, got %v", c)
	}
	if got := DriverOto.candidates(); len(got) != 1 || got[0] != DriverOto {
		t.Errorf("Expected explicit driver only, got %v", got)
	}
}
