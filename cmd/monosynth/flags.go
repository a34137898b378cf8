package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/lixenwraith/monosynth/audio"
	"github.com/lixenwraith/monosynth/config"
	"github.com/lixenwraith/monosynth/synth"
)

// options are process-level switches that are not part of the stored config
type options struct {
	configPath  string
	writeConfig string
	listMIDI    bool
	debug       bool
}

// parseArgs layers defaults, the config file, the environment and the
// explicitly set flags, in that order
func parseArgs(args []string, stderr io.Writer) (config.Config, options, error) {
	var opts options
	def := config.Default()

	fs := flag.NewFlagSet("monosynth", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "config file (default: user config dir)")
	fs.StringVar(&opts.writeConfig, "write-config", "", "write the effective config to this path and exit")
	fs.BoolVar(&opts.listMIDI, "list-midi", false, "list MIDI input ports and exit")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	driver := fs.String("driver", string(def.Audio.Driver), "audio driver: auto, beep, oto, portaudio, pipe, headless")
	rate := fs.Int("rate", def.Audio.SampleRate, "sample rate in Hz")
	frames := fs.Int("frames", def.Audio.BufferFrames, "frames per audio buffer")
	mute := fs.Bool("mute", !def.Audio.Enabled, "start muted")
	mode := fs.String("envelope-mode", def.EnvelopeMode, "envelope advancement: sample or buffer")
	pool := fs.Int("envelope-pool", def.EnvelopePool, "envelope pool size (1-8)")
	waveform := fs.String("waveform", def.Patch.Unison.Waveform.String(), "waveform: sine, triangle, square, sawtooth")
	voices := fs.Int("voices", def.Patch.Unison.Voices, "unison voices (1-8)")
	detune := fs.Float64("detune", def.Patch.Unison.Detune, "unison spread in cents (0-100)")
	gain := fs.Float64("gain", def.Patch.MasterGain, "master gain (0-1)")
	freq := fs.Float64("freq", def.Frequency, "initial frequency in Hz")
	noMIDI := fs.Bool("no-midi", false, "do not connect a MIDI input at startup")
	midiPort := fs.String("midi-port", def.MIDI.Port, "MIDI input port name, substring or index")
	midiChannel := fs.Int("midi-channel", def.MIDI.Channel, "MIDI channel 0-15, -1 for all")
	remoteAddr := fs.String("remote", def.Remote.Addr, "remote control listen address, empty to disable")
	grace := fs.Int("watchdog-grace", def.Watchdog.GraceMS, "stuck-note timeout in ms, 0 to disable")
	ui := fs.Bool("ui", def.UI, "show the terminal control panel")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}

	cfg := config.Load(opts.configPath)
	cfg.ApplyEnv()

	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "driver":
			var d audio.Driver
			if d, err = audio.ParseDriver(*driver); err == nil {
				cfg.Audio.Driver = d
			}
		case "rate":
			cfg.Audio.SampleRate = *rate
		case "frames":
			cfg.Audio.BufferFrames = *frames
		case "mute":
			cfg.Audio.Enabled = !*mute
		case "envelope-mode":
			if _, err = synth.ParseEnvelopeMode(*mode); err == nil {
				cfg.EnvelopeMode = *mode
			}
		case "envelope-pool":
			cfg.EnvelopePool = *pool
		case "waveform":
			var w synth.WaveformKind
			if w, err = synth.ParseWaveform(*waveform); err == nil {
				cfg.Patch.Unison.Waveform = w
			}
		case "voices":
			cfg.Patch.Unison.Voices = *voices
		case "detune":
			cfg.Patch.Unison.Detune = *detune
		case "gain":
			cfg.Patch.MasterGain = *gain
		case "freq":
			cfg.Frequency = *freq
		case "no-midi":
			cfg.MIDI.Enabled = !*noMIDI
		case "midi-port":
			cfg.MIDI.Port = *midiPort
		case "midi-channel":
			cfg.MIDI.Channel = *midiChannel
		case "remote":
			cfg.Remote.Addr = *remoteAddr
		case "watchdog-grace":
			cfg.Watchdog.GraceMS = *grace
		case "ui":
			cfg.UI = *ui
		}
	})
	if err != nil {
		return config.Config{}, opts, fmt.Errorf("invalid flag: %w", err)
	}

	cfg.Sanitize()
	return cfg, opts, nil
}
