package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// pipeSink streams s16le PCM into a CLI player or the OSS device
type pipeSink struct {
	ae      *AudioEngine
	backend *BackendConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ossFile *os.File // For direct OSS writes
	mixer   *Mixer
	wg      sync.WaitGroup
}

func newPipeSink(ae *AudioEngine) *pipeSink {
	return &pipeSink{ae: ae}
}

func (s *pipeSink) name() string {
	if s.backend != nil {
		return string(DriverPipe) + ":" + s.backend.Name
	}
	return string(DriverPipe)
}

func (s *pipeSink) start() error {
	cfg := s.ae.config
	backend, err := DetectBackend(cfg.SampleRate, cfg.Channels)
	if err != nil {
		return err
	}
	s.backend = backend

	var writer io.Writer
	if backend.Type == BackendOSS {
		f, err := os.OpenFile(backend.Path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", backend.Path, err)
		}
		s.ossFile = f
		writer = f
	} else {
		cmd := exec.Command(backend.Path, backend.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("%s stdin: %w", backend.Name, err)
		}
		if err := cmd.Start(); err != nil {
			stdin.Close()
			return fmt.Errorf("start %s: %w", backend.Name, err)
		}
		s.cmd = cmd
		s.stdin = stdin
		writer = stdin

		s.wg.Add(1)
		go s.monitorProcess()
	}

	s.mixer = NewMixer(writer, s.ae.fill, cfg.BufferFrames, cfg.Channels, cfg.SampleRate)
	s.mixer.Start()

	s.wg.Add(1)
	go s.monitorMixer()
	return nil
}

// monitorProcess watches for subprocess exit
func (s *pipeSink) monitorProcess() {
	defer s.wg.Done()

	err := s.cmd.Wait()
	if err != nil && s.ae.running.Load() && !s.ae.silentMode.Load() {
		s.ae.silentMode.Store(true)
		slog.Warn("audio player exited", "backend", s.backend.Name, "error", err)
	}
}

// monitorMixer watches for pipe errors
func (s *pipeSink) monitorMixer() {
	defer s.wg.Done()

	select {
	case err := <-s.mixer.Errors():
		s.ae.silentMode.Store(true)
		slog.Warn("audio pipe failed", "backend", s.backend.Name, "error", err)
	case <-s.mixer.done:
	}
}

func (s *pipeSink) stop() {
	if s.mixer != nil {
		s.mixer.Stop()
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.ossFile != nil {
		s.ossFile.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.wg.Wait()
}

// headlessSink renders in real time and discards the output
type headlessSink struct {
	ae    *AudioEngine
	mixer *Mixer
}

func newHeadlessSink(ae *AudioEngine) *headlessSink {
	return &headlessSink{ae: ae}
}

func (s *headlessSink) name() string { return string(DriverHeadless) }

func (s *headlessSink) start() error {
	cfg := s.ae.config
	s.mixer = NewMixer(io.Discard, s.ae.fill, cfg.BufferFrames, cfg.Channels, cfg.SampleRate)
	s.mixer.Start()
	return nil
}

func (s *headlessSink) stop() {
	if s.mixer != nil {
		s.mixer.Stop()
	}
}
