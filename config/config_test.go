package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/monosynth/audio"
	"github.com/lixenwraith/monosynth/synth"
)

// TestDefault verifies default values
func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Frequency != 440 {
		t.Errorf("got frequency %f, want 440", cfg.Frequency)
	}
	if cfg.Patch != synth.DefaultParams() {
		t.Errorf("got patch %+v, want defaults", cfg.Patch)
	}
	if cfg.Mode() != synth.EnvelopePerSample {
		t.Errorf("got mode %s, want sample", cfg.Mode())
	}
	if !cfg.UI || !cfg.MIDI.Enabled || cfg.MIDI.Channel != -1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Remote.Addr != "" {
		t.Errorf("Expected remote disabled by default, got %q", cfg.Remote.Addr)
	}
}

// TestLoadMissingFile verifies defaults on a missing file
func TestLoadMissingFile(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.json"))
	if cfg.Frequency != Default().Frequency {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

// TestLoadCorruptFile verifies defaults on invalid JSON
func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if cfg := Load(path); cfg.EnvelopePool != Default().EnvelopePool {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

// TestSaveLoadPartial verifies a saved file round-trips and partial files keep defaults
func TestSaveLoadPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.json")

	cfg := Default()
	cfg.Patch.Unison.Waveform = synth.WaveSawtooth
	cfg.Patch.Unison.Voices = 5
	cfg.Audio.Driver = audio.DriverPortAudio
	cfg.Remote.Addr = "127.0.0.1:8090"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load(path)
	if got.Patch.Unison.Waveform != synth.WaveSawtooth || got.Patch.Unison.Voices != 5 {
		t.Errorf("got unison %+v", got.Patch.Unison)
	}
	if got.Audio.Driver != audio.DriverPortAudio || got.Remote.Addr != "127.0.0.1:8090" {
		t.Errorf("got audio %q remote %q", got.Audio.Driver, got.Remote.Addr)
	}

	partial := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(partial, []byte(`{"frequency": 220, "envelope_pool": 40}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got = Load(partial)
	if got.Frequency != 220 {
		t.Errorf("got frequency %f, want 220", got.Frequency)
	}
	if got.EnvelopePool != 8 {
		t.Errorf("got pool %d, want clamped 8", got.EnvelopePool)
	}
	if got.Patch.Envelope != synth.DefaultEnvelopeParams() {
		t.Errorf("Expected default envelope kept, got %+v", got.Patch.Envelope)
	}
}

// TestApplyEnv verifies environment overrides
func TestApplyEnv(t *testing.T) {
	t.Setenv("MONOSYNTH_WAVEFORM", "square")
	t.Setenv("MONOSYNTH_VOICES", "12")
	t.Setenv("MONOSYNTH_DETUNE", "25")
	t.Setenv("MONOSYNTH_ENVELOPE_MODE", "buffer")
	t.Setenv("MONOSYNTH_MIDI_ENABLED", "false")
	t.Setenv("MONOSYNTH_MIDI_PORT", "Keystation")
	t.Setenv("MONOSYNTH_REMOTE_ADDR", ":9000")
	t.Setenv("MONOSYNTH_WATCHDOG_GRACE_MS", "1500")
	t.Setenv("MONOSYNTH_AUDIO_DRIVER", "headless")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Patch.Unison.Waveform != synth.WaveSquare {
		t.Errorf("got waveform %s, want square", cfg.Patch.Unison.Waveform)
	}
	if cfg.Patch.Unison.Voices != 8 {
		t.Errorf("got voices %d, want clamped 8", cfg.Patch.Unison.Voices)
	}
	if cfg.Patch.Unison.Detune != 25 {
		t.Errorf("got detune %f, want 25", cfg.Patch.Unison.Detune)
	}
	if cfg.Mode() != synth.EnvelopePerBuffer {
		t.Errorf("got mode %s, want buffer", cfg.Mode())
	}
	if cfg.MIDI.Enabled || cfg.MIDI.Port != "Keystation" {
		t.Errorf("got midi %+v", cfg.MIDI)
	}
	if cfg.Remote.Addr != ":9000" {
		t.Errorf("got remote %q", cfg.Remote.Addr)
	}
	if cfg.Watchdog.Grace().Milliseconds() != 1500 {
		t.Errorf("got grace %v", cfg.Watchdog.Grace())
	}
	if cfg.Audio.Driver != audio.DriverHeadless {
		t.Errorf("got driver %q", cfg.Audio.Driver)
	}
}

// TestSanitize verifies clamping of out-of-range values
func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Frequency = -5
	cfg.EnvelopeMode = "weird"
	cfg.EnvelopePool = 0
	cfg.MIDI.Channel = 99
	cfg.Watchdog.GraceMS = -1
	cfg.Watchdog.IntervalMS = 0
	cfg.Sanitize()

	if cfg.Frequency != 440 || cfg.EnvelopeMode != "sample" || cfg.EnvelopePool != 1 {
		t.Errorf("unexpected %+v", cfg)
	}
	if cfg.MIDI.Channel != -1 || cfg.Watchdog.GraceMS != 0 || cfg.Watchdog.IntervalMS <= 0 {
		t.Errorf("unexpected midi/watchdog %+v %+v", cfg.MIDI, cfg.Watchdog)
	}
}
