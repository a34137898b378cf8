// Package panel is the terminal control surface for the synth.
// It reads engine readouts and writes parameters through the bridge; it never
// touches real-time state directly.
package panel

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

// Transport starts and stops the audio stream
type Transport interface {
	Playing() bool
	SetPlaying(on bool) error
}

// Panel renders synth state and maps keys to control-plane writes
type Panel struct {
	screen    tcell.Screen
	engine    *synth.Engine
	bridge    *synth.Bridge
	transport Transport

	mu      sync.Mutex
	pitch   int // MIDI note driving the manual frequency
	status  string
	driver  func() string
	metrics *status.Registry

	midi    MIDIControl
	ports   []string // Last scanned MIDI input ports
	portSel int
}

// New creates a panel drawing on screen. transport may be nil
func New(screen tcell.Screen, engine *synth.Engine, transport Transport) *Panel {
	p := &Panel{
		screen:    screen,
		engine:    engine,
		bridge:    engine.Bridge(),
		transport: transport,
		pitch:     constant.MIDIReference,
	}
	if f := p.bridge.Frequency(); f > 0 {
		if n, err := synth.NearestNote(f); err == nil {
			p.pitch = n
		}
	}
	return p
}

// SetDriverStatus installs a callback reporting the active audio driver
func (p *Panel) SetDriverStatus(name func() string) {
	p.mu.Lock()
	p.driver = name
	p.mu.Unlock()
}

// SetMetrics shows the registry counters in the panel footer
func (p *Panel) SetMetrics(reg *status.Registry) {
	p.mu.Lock()
	p.metrics = reg
	p.mu.Unlock()
}

// Pitch returns the MIDI note used for manual frequency
func (p *Panel) Pitch() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pitch
}

// Status returns the last status line
func (p *Panel) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Panel) setStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// Run polls input and redraws until quit is requested or ctx is done
// The caller owns screen Init/Fini
func (p *Panel) Run(ctx context.Context) {
	ticker := time.NewTicker(constant.PanelRefreshInterval)
	defer ticker.Stop()

	changes, unsubscribe := p.bridge.Subscribe()
	defer unsubscribe()

	eventChan := make(chan tcell.Event, 100)
	stop := make(chan struct{})
	defer close(stop)
	go p.pollLoop(eventChan, stop)

	p.Draw()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-eventChan:
			if !ok {
				return
			}
			if !p.HandleEvent(ev) {
				return
			}
			p.Draw()

		case <-changes:
			p.Draw()

		case <-ticker.C:
			p.Draw()
		}
	}
}

// pollLoop forwards screen events until the screen is finalized
func (p *Panel) pollLoop(out chan<- tcell.Event, stop <-chan struct{}) {
	defer close(out)
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-stop:
			return
		}
	}
}

// HandleEvent processes one screen event, returning false on quit
func (p *Panel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.HandleKey(ev)
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return true
}
