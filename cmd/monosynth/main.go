package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gdamore/tcell/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Registers the rtmidi MIDI driver

	"github.com/lixenwraith/monosynth/audio"
	"github.com/lixenwraith/monosynth/config"
	"github.com/lixenwraith/monosynth/midiin"
	"github.com/lixenwraith/monosynth/panel"
	"github.com/lixenwraith/monosynth/remote"
	"github.com/lixenwraith/monosynth/service"
	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

var _ panel.MIDIControl = (*midiin.Input)(nil)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	var screen tcell.Screen

	// Panic Recovery: restore the terminal before printing the crash
	defer func() {
		if r := recover(); r != nil {
			if screen != nil {
				screen.Fini()
			}
			fmt.Fprintf(os.Stderr, "\n\x1b[31mMONOSYNTH CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			code = 1
		}
	}()

	cfg, opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if opts.listMIDI {
		ports := midiin.Ports()
		if len(ports) == 0 {
			fmt.Println("no MIDI input ports")
		}
		for i, name := range ports {
			fmt.Printf("%d: %s\n", i, name)
		}
		return 0
	}

	if opts.writeConfig != "" {
		if err := config.Save(opts.writeConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			return 1
		}
		return 0
	}

	if cfg.UI {
		if logFile := setupLogging(opts.debug); logFile != nil {
			defer logFile.Close()
		}
	} else {
		setupConsoleLogging(opts.debug)
	}

	reg := status.NewRegistry()
	bridge := synth.NewBridge(cfg.Patch, cfg.Frequency)
	engine := synth.NewEngine(bridge, cfg.EnvelopePool, cfg.Mode())

	audioEngine, err := audio.NewAudioEngine(engine, &cfg.Audio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio: %v\n", err)
		return 1
	}
	audioEngine.SetMetrics(reg)

	dog := synth.NewWatchdog(bridge, cfg.Watchdog.Grace(), cfg.Watchdog.Interval())
	dog.SetMetrics(reg)

	hub := service.NewHub()
	hub.Register(audio.NewService(audioEngine))
	hub.Register(newWatchdogService(dog))

	// The input always exists so the panel can connect a port at runtime;
	// the enable flag only controls connecting at startup
	input := midiin.New(bridge, cfg.MIDI.Channel)
	input.SetMetrics(reg)
	hub.Register(midiin.NewService(input, cfg.MIDI.Port, cfg.MIDI.Enabled))
	if cfg.Remote.Addr != "" {
		server := remote.New(engine, audioEngine)
		server.SetMetrics(reg)
		hub.Register(optionalService{remote.NewService(server, cfg.Remote.Addr, "audio")})
	}

	if err := hub.InitAll(); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return 1
	}
	if err := hub.StartAll(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		return 1
	}
	defer hub.StopAll()

	slog.Info("monosynth started",
		"driver", audioEngine.DriverName(),
		"rate", cfg.Audio.SampleRate,
		"frames", cfg.Audio.BufferFrames,
		"mode", cfg.EnvelopeMode,
		"services", hub.Order())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.UI {
		<-ctx.Done()
		slog.Info("shutting down")
		return 0
	}

	screen, err = tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		return 1
	}
	defer screen.Fini()

	p := panel.New(screen, engine, audioEngine)
	p.SetDriverStatus(audioEngine.DriverName)
	p.SetMetrics(reg)
	p.SetMIDI(input)
	p.Run(ctx)
	return 0
}
