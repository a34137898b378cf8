package midiin

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

type recordSink struct {
	ons    [][2]uint8
	offs   []uint8
	panics int
}

func (s *recordSink) NoteOn(note, velocity uint8) { s.ons = append(s.ons, [2]uint8{note, velocity}) }
func (s *recordSink) NoteOff(note uint8)          { s.offs = append(s.offs, note) }
func (s *recordSink) Panic()                      { s.panics++ }

// TestHandleNoteMessages verifies note-on, note-off and zero-velocity decoding
func TestHandleNoteMessages(t *testing.T) {
	sink := &recordSink{}
	in := New(sink, AllChannels)

	if !in.HandleMessage(midi.NoteOn(0, 60, 100)) {
		t.Error("Expected note-on to be forwarded")
	}
	in.HandleMessage(midi.NoteOff(3, 60))
	in.HandleMessage(midi.NoteOn(9, 64, 0))

	if len(sink.ons) != 1 || sink.ons[0] != [2]uint8{60, 100} {
		t.Errorf("Expected one note-on 60/100, got %v", sink.ons)
	}
	if len(sink.offs) != 2 || sink.offs[0] != 60 || sink.offs[1] != 64 {
		t.Errorf("Expected note-offs [60 64], got %v", sink.offs)
	}
}

// TestHandleChannelFilter verifies messages on other channels are ignored
func TestHandleChannelFilter(t *testing.T) {
	sink := &recordSink{}
	in := New(sink, 2)

	if in.HandleMessage(midi.NoteOn(1, 60, 100)) {
		t.Error("Expected channel 1 to be filtered")
	}
	if !in.HandleMessage(midi.NoteOn(2, 61, 90)) {
		t.Error("Expected channel 2 to pass")
	}

	received, ignored := in.Stats()
	if received != 1 || ignored != 1 {
		t.Errorf("Expected 1 received / 1 ignored, got %d / %d", received, ignored)
	}
}

// TestHandleAllNotesOff verifies panic controllers and unrelated messages
func TestHandleAllNotesOff(t *testing.T) {
	sink := &recordSink{}
	in := New(sink, AllChannels)

	in.HandleMessage(midi.ControlChange(0, ccAllNotesOff, 0))
	in.HandleMessage(midi.ControlChange(0, ccAllSoundOff, 0))
	if sink.panics != 2 {
		t.Errorf("Expected 2 panics, got %d", sink.panics)
	}

	if in.HandleMessage(midi.ControlChange(0, 7, 100)) {
		t.Error("Expected volume CC to be ignored")
	}
	if in.HandleMessage(midi.ProgramChange(0, 5)) {
		t.Error("Expected program change to be ignored")
	}
}

// TestNewClampsChannel verifies out-of-range channels mean all
func TestNewClampsChannel(t *testing.T) {
	if in := New(&recordSink{}, 16); in.channel != AllChannels {
		t.Errorf("Expected AllChannels, got %d", in.channel)
	}
}

// TestCloseWhenNotOpen verifies Close reports ErrNotOpen
func TestCloseWhenNotOpen(t *testing.T) {
	in := New(&recordSink{}, AllChannels)
	if err := in.Close(); err != ErrNotOpen {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
	if in.Connected() || in.PortName() != "" {
		t.Error("Expected disconnected input")
	}
}

// TestDisconnectPanics verifies a lost device releases the sounding note
func TestDisconnectPanics(t *testing.T) {
	sink := &recordSink{}
	in := New(sink, AllChannels)
	in.disconnect("")
	if sink.panics != 1 {
		t.Errorf("Expected panic on disconnect, got %d", sink.panics)
	}
}

// TestBridgeIntegration verifies decoded notes reach the synth bridge
func TestBridgeIntegration(t *testing.T) {
	b := synth.NewBridge(synth.DefaultParams(), 0)
	in := New(b, AllChannels)

	in.HandleMessage(midi.NoteOn(0, 69, 127))
	if math.Abs(b.Frequency()-440) > 1e-9 {
		t.Errorf("Expected 440Hz, got %f", b.Frequency())
	}
	if n, ok := b.CurrentNote(); !ok || n != 69 {
		t.Errorf("Expected current note 69, got %d %v", n, ok)
	}

	in.HandleMessage(midi.NoteOff(0, 69))
	if _, ok := b.CurrentNote(); ok {
		t.Error("Expected note released")
	}
}

// TestMetricsPublished verifies counters land in a shared registry
func TestMetricsPublished(t *testing.T) {
	reg := status.NewRegistry()
	in := New(&recordSink{}, 0)
	in.SetMetrics(reg)

	in.HandleMessage(midi.NoteOn(0, 60, 100))
	in.HandleMessage(midi.NoteOn(5, 60, 100))
	in.disconnect("")

	snap := reg.Snapshot()
	if snap[status.KeyMIDIReceived] != int64(1) || snap[status.KeyMIDIIgnored] != int64(1) {
		t.Errorf("unexpected counters %v", snap)
	}
	if snap[status.KeyMIDIDisconnects] != int64(1) {
		t.Errorf("Expected one disconnect, got %v", snap[status.KeyMIDIDisconnects])
	}
	if snap[status.KeyMIDIPort] != "" {
		t.Errorf("Expected empty port after disconnect, got %v", snap[status.KeyMIDIPort])
	}
}

// TestServiceWithoutAutoConnect verifies a disabled input stays closed through the lifecycle
func TestServiceWithoutAutoConnect(t *testing.T) {
	in := New(&recordSink{}, AllChannels)
	svc := NewService(in, "", false)
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if in.Connected() {
		t.Error("Expected input closed without auto-connect")
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Expected clean stop, got %v", err)
	}
}
