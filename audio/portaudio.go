package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// portAudioSink registers the engine as the native PortAudio output callback
type portAudioSink struct {
	ae     *AudioEngine
	stream *portaudio.Stream
}

func newPortAudioSink(ae *AudioEngine) *portAudioSink {
	return &portAudioSink{ae: ae}
}

func (s *portAudioSink) name() string { return string(DriverPortAudio) }

func (s *portAudioSink) start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("portaudio output device: %w", err)
	}

	cfg := s.ae.config
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: cfg.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.BufferFrames,
	}

	stream, err := portaudio.OpenStream(params, s.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("portaudio open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("portaudio start stream: %w", err)
	}

	s.stream = stream
	return nil
}

// callback runs on the PortAudio real-time thread
func (s *portAudioSink) callback(out []float32) {
	s.ae.fillInterleaved(out)
}

// stop lets the in-flight buffer finish before closing the stream
func (s *portAudioSink) stop() {
	if s.stream == nil {
		return
	}
	s.stream.Stop()
	s.stream.Close()
	s.stream = nil
	portaudio.Terminate()
}
