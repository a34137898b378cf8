package panel

import "fmt"

const maxPortRows = 6

// MIDIControl manages the MIDI input port at runtime
type MIDIControl interface {
	Ports() []string
	Open(name string) error
	Close() error
	PortName() string
}

// SetMIDI installs the MIDI port controller and scans its ports
func (p *Panel) SetMIDI(ctl MIDIControl) {
	p.mu.Lock()
	p.midi = ctl
	p.mu.Unlock()
	if ctl != nil {
		p.refreshPorts()
	}
}

// SelectedPort returns the port name the connect key would open
func (p *Panel) SelectedPort() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.portSel < 0 || p.portSel >= len(p.ports) {
		return ""
	}
	return p.ports[p.portSel]
}

func (p *Panel) midiControl() MIDIControl {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.midi
}

// refreshPorts rescans ports, keeping the selection on the same name if it survived
func (p *Panel) refreshPorts() {
	ctl := p.midiControl()
	if ctl == nil {
		p.setStatus("MIDI unavailable")
		return
	}
	ports := ctl.Ports()

	p.mu.Lock()
	prev := ""
	if p.portSel >= 0 && p.portSel < len(p.ports) {
		prev = p.ports[p.portSel]
	}
	p.ports = ports
	p.portSel = 0
	for i, name := range ports {
		if name == prev {
			p.portSel = i
			break
		}
	}
	p.mu.Unlock()

	p.setStatus(fmt.Sprintf("%d MIDI input port(s)", len(ports)))
}

// selectPort moves the selection by delta, wrapping around the list
func (p *Panel) selectPort(delta int) {
	p.mu.Lock()
	n := len(p.ports)
	if n == 0 {
		p.mu.Unlock()
		p.setStatus("no MIDI ports, press m to scan")
		return
	}
	p.portSel = ((p.portSel+delta)%n + n) % n
	name := p.ports[p.portSel]
	p.mu.Unlock()

	p.setStatus("selected MIDI port " + name)
}

func (p *Panel) connectPort() {
	ctl := p.midiControl()
	if ctl == nil {
		p.setStatus("MIDI unavailable")
		return
	}
	name := p.SelectedPort()
	if name == "" {
		p.setStatus("no MIDI ports, press m to scan")
		return
	}
	if err := ctl.Open(name); err != nil {
		p.setStatus("MIDI connect failed: " + err.Error())
		return
	}
	p.setStatus("MIDI connected: " + ctl.PortName())
}

func (p *Panel) disconnectPort() {
	ctl := p.midiControl()
	if ctl == nil {
		p.setStatus("MIDI unavailable")
		return
	}
	name := ctl.PortName()
	if name == "" {
		p.setStatus("MIDI not connected")
		return
	}
	if err := ctl.Close(); err != nil {
		p.setStatus("MIDI disconnect failed: " + err.Error())
		return
	}
	// A dropped note-off from the closed port must not leave a voice hanging
	p.bridge.Panic()
	p.setStatus("MIDI disconnected: " + name)
}

// portRows renders the scanned port list, windowed around the selection
func (p *Panel) portRows() []row {
	p.mu.Lock()
	ctl, ports, sel := p.midi, p.ports, p.portSel
	p.mu.Unlock()
	if ctl == nil {
		return nil
	}

	keys := "[m] scan [n/N] pick [c] connect [x] close"
	if len(ports) == 0 {
		return []row{{"Ports", "none found", keys, styleLabel}}
	}

	connected := ctl.PortName()
	start := 0
	if sel >= maxPortRows {
		start = sel - maxPortRows + 1
	}
	end := min(start+maxPortRows, len(ports))

	rows := make([]row, 0, end-start)
	for i := start; i < end; i++ {
		marker, style := "  ", styleLabel
		if i == sel {
			marker, style = "> ", styleValue
		}
		value := marker + ports[i]
		if ports[i] == connected {
			value += " *"
			style = styleOn
		}
		label := ""
		if i == start {
			label = "Ports"
		} else {
			keys = ""
		}
		rows = append(rows, row{label, value, keys, style})
	}
	return rows
}
