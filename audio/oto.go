package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/lixenwraith/monosynth/constant"
)

// oto allows a single context per process; it is created lazily and reused
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func otoContext(rate, channels, frames int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != rate || otoChannels != channels {
			return nil, fmt.Errorf("%w: have %dHz/%dch", ErrContextInUse, otoRate, otoChannels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(frames) * time.Second / time.Duration(rate),
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	otoCtx, otoRate, otoChannels = ctx, rate, channels
	return ctx, nil
}

// otoSink pulls float32 frames through oto's io.Reader player
type otoSink struct {
	ae       *AudioEngine
	player   *oto.Player
	channels int
	buf      []float32 // Pre-allocated interleaved scratch
}

func newOtoSink(ae *AudioEngine) *otoSink {
	ch := ae.config.Channels
	return &otoSink{
		ae:       ae,
		channels: ch,
		buf:      make([]float32, constant.AudioMaxBufferFrames*ch),
	}
}

func (s *otoSink) name() string { return string(DriverOto) }

func (s *otoSink) start() error {
	cfg := s.ae.config
	ctx, err := otoContext(cfg.SampleRate, cfg.Channels, cfg.BufferFrames)
	if err != nil {
		return err
	}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return nil
}

func (s *otoSink) stop() {
	if s.player == nil {
		return
	}
	s.player.Pause()
	_ = s.player.Close()
	s.player = nil
}

// Read renders whole frames as float32 LE; a trailing partial frame is zero-filled
func (s *otoSink) Read(p []byte) (int, error) {
	frameBytes := 4 * s.channels
	frames := len(p) / frameBytes
	maxFrames := len(s.buf) / s.channels

	off := 0
	for done := 0; done < frames; {
		chunk := frames - done
		if chunk > maxFrames {
			chunk = maxFrames
		}
		samples := s.buf[:chunk*s.channels]
		s.ae.fillInterleaved(samples)
		for _, v := range samples {
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(v))
			off += 4
		}
		done += chunk
	}
	clear(p[off:])
	return len(p), nil
}
