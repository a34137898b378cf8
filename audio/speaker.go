package audio

import (
	"fmt"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/monosynth/constant"
)

// speakerSink plays through the beep speaker
type speakerSink struct {
	ae       *AudioEngine
	rate     beep.SampleRate
	frames   int
	streamer *engineStreamer
}

func newSpeakerSink(ae *AudioEngine) *speakerSink {
	return &speakerSink{
		ae:       ae,
		rate:     beep.SampleRate(ae.config.SampleRate),
		frames:   ae.config.BufferFrames,
		streamer: &engineStreamer{ae: ae},
	}
}

func (s *speakerSink) name() string { return string(DriverBeep) }

func (s *speakerSink) start() error {
	if err := speaker.Init(s.rate, s.frames); err != nil {
		return fmt.Errorf("beep speaker init: %w", err)
	}
	speaker.Play(s.streamer)
	return nil
}

// stop clears the speaker under its lock, so a Stream call in progress completes first
func (s *speakerSink) stop() {
	speaker.Clear()
	speaker.Close()
}

// engineStreamer adapts the engine fill function to beep.Streamer
type engineStreamer struct {
	ae  *AudioEngine
	buf [constant.AudioMaxBufferFrames]float32
}

func (g *engineStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for done := 0; done < len(samples); {
		chunk := len(samples) - done
		if chunk > len(g.buf) {
			chunk = len(g.buf)
		}
		g.ae.fill(g.buf[:chunk], chunk)
		for i := 0; i < chunk; i++ {
			v := float64(g.buf[i])
			samples[done+i][0] = v
			samples[done+i][1] = v
		}
		done += chunk
	}
	return len(samples), true
}

func (g *engineStreamer) Err() error {
	return nil
}
