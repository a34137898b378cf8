package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// fillFunc renders frames mono samples into out
type fillFunc func(out []float32, frames int)

// Mixer drives a pull-based sink: every buffer period it renders one buffer,
// converts it to interleaved s16le and writes it to output
type Mixer struct {
	output   io.Writer
	fill     fillFunc
	frames   int
	channels int
	interval time.Duration

	stopChan chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopped  atomic.Bool

	buffers atomic.Uint64
	errChan chan error
}

// NewMixer creates a mixer writing to out at sampleRate
func NewMixer(out io.Writer, fill fillFunc, frames, channels, sampleRate int) *Mixer {
	if channels < 1 {
		channels = 1
	}
	return &Mixer{
		output:   out,
		fill:     fill,
		frames:   frames,
		channels: channels,
		interval: time.Duration(frames) * time.Second / time.Duration(sampleRate),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		errChan:  make(chan error, 1),
	}
}

// Start begins the mixing loop
func (m *Mixer) Start() {
	if m.started.CompareAndSwap(false, true) {
		go m.loop()
	}
}

// Stop signals the mixer to halt and waits for the in-flight buffer
func (m *Mixer) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopChan)
	}
	if m.started.Load() {
		<-m.done
	}
}

// Errors returns channel for pipe errors
func (m *Mixer) Errors() <-chan error {
	return m.errChan
}

// Buffers returns the number of buffers written
func (m *Mixer) Buffers() uint64 {
	return m.buffers.Load()
}

// loop is the main mixing goroutine
func (m *Mixer) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	mixBuf := make([]float32, m.frames)
	outBytes := make([]byte, m.frames*m.channels*2)

	for {
		select {
		case <-m.stopChan:
			return

		case <-ticker.C:
			m.fill(mixBuf, m.frames)
			floatToBytes(mixBuf, outBytes, m.channels)

			if _, err := m.output.Write(outBytes); err != nil {
				select {
				case m.errChan <- fmt.Errorf("%w: %v", ErrPipeClosed, err):
				default:
				}
				return
			}
			m.buffers.Add(1)
		}
	}
}

// floatToBytes converts mono float32 to interleaved int16 LE frames
// Applies soft limiting before hard clip
func floatToBytes(in []float32, out []byte, channels int) {
	stride := channels * 2
	for i, s := range in {
		v := float64(s)

		// Soft limiter above the 0.8 knee
		if v > 0.8 {
			v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
		} else if v < -0.8 {
			v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
		}

		// Hard clip
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}

		i16 := uint16(int16(v * 32767))
		idx := i * stride
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(out[idx+c*2:], i16)
		}
	}
}
