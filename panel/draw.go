package panel

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

const (
	labelWidth = 10
	meterWidth = 20
	leftMargin = 2
)

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleValue = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleKey   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleOn    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleOff   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleMeter = tcell.StyleDefault.Foreground(tcell.ColorGreen)
)

type row struct {
	label string
	value string
	keys  string
	style tcell.Style
}

// Draw renders the full panel
func (p *Panel) Draw() {
	p.screen.Clear()
	rows := p.rows()
	keyCol := leftMargin + labelWidth + valueWidth(rows) + 2

	drawText(p.screen, leftMargin, 0, styleTitle, "monosynth")
	y := 2
	for _, r := range rows {
		if r.label == "" && r.value == "" {
			y++
			continue
		}
		drawText(p.screen, leftMargin, y, styleLabel, r.label)
		drawText(p.screen, leftMargin+labelWidth, y, r.style, r.value)
		if r.keys != "" {
			drawText(p.screen, keyCol, y, styleKey, r.keys)
		}
		y++
	}

	y++
	drawText(p.screen, leftMargin, y, styleKey, "[space] gate  [p] play/stop  [!] panic  [q] quit")
	if s := p.Status(); s != "" {
		drawText(p.screen, leftMargin, y+2, styleValue, s)
	}
	p.screen.Show()
}

// valueWidth returns the widest value among rows with key hints so the hints line up
func valueWidth(rows []row) int {
	w := 0
	for _, r := range rows {
		if r.keys == "" {
			continue
		}
		if n := utf8.RuneCountInString(r.value); n > w {
			w = n
		}
	}
	return w
}

func (p *Panel) rows() []row {
	params := p.bridge.Params()
	u, env, q := params.Unison, params.Envelope, params.Quality

	pitch := "silent"
	if f := p.bridge.Frequency(); f > 0 {
		name := "--"
		if n, err := synth.NearestNote(f); err == nil {
			name = synth.NoteName(n)
		}
		pitch = fmt.Sprintf("%-4s %8.2f Hz", name, f)
	}

	note := "-"
	if n, ok := p.bridge.CurrentNote(); ok {
		note = synth.NoteName(int(n))
	}

	gate, gateStyle := "closed", styleOff
	if p.bridge.GateOpen() {
		gate, gateStyle = "open", styleOn
	}

	audio, audioStyle := "stopped", styleOff
	if p.transport != nil && p.transport.Playing() {
		audio, audioStyle = "playing", styleOn
	}
	p.mu.Lock()
	driverName, ctl, reg := p.driver, p.midi, p.metrics
	p.mu.Unlock()
	if driverName != nil {
		if d := driverName(); d != "" {
			audio += " (" + d + ")"
		}
	}
	midi := "none"
	if ctl != nil {
		if m := ctl.PortName(); m != "" {
			midi = m
		}
	}

	level := p.engine.Level()
	stats := p.engine.Stats()

	rows := []row{
		{"Waveform", u.Waveform.String(), "[w]", styleValue},
		{"Voices", fmt.Sprintf("%d", u.Voices), "[-/+]", styleValue},
		{"Detune", fmt.Sprintf("%.1f cents", u.Detune), "[[/]]", styleValue},
		{},
		{"Attack", fmt.Sprintf("%.3f s", env.Attack), "[a/A]", styleValue},
		{"Decay", fmt.Sprintf("%.3f s", env.Decay), "[d/D]", styleValue},
		{"Sustain", fmt.Sprintf("%.2f", env.Sustain), "[s/S]", styleValue},
		{"Release", fmt.Sprintf("%.3f s", env.Release), "[r/R]", styleValue},
		{},
		{"Oversample", fmt.Sprintf("x%d", q.Oversample), "[o/O]", styleValue},
		{"Filter", fmt.Sprintf("%.2f", q.FilterAlpha), "[f/F]", styleValue},
		{"Smoothing", fmt.Sprintf("%.2f", q.Smoothing), "[h/H]", styleValue},
		{"Gain", fmt.Sprintf("%.2f", params.MasterGain), "[g/G]", styleValue},
		{},
		{"Pitch", pitch, "[arrows]", styleValue},
		{"Note", note, "", styleValue},
		{"Gate", gate, "", gateStyle},
		{"Envelope", fmt.Sprintf("%-8s %s %.2f", p.engine.State(), meter(level), level), "", styleMeter},
		{},
		{"Audio", audio, "", audioStyle},
		{"MIDI", midi, "", styleValue},
	}
	rows = append(rows, p.portRows()...)
	rows = append(rows, row{"Stats", fmt.Sprintf("buf %d  faults %d  dropped %d  %s",
		stats.Buffers, stats.Faults, stats.Dropped, p.engine.Mode()), "", styleLabel})
	if reg != nil {
		rows = append(rows, row{"Counters", counters(reg), "", styleLabel})
	}
	return rows
}

// counters formats every integer metric as key=value
func counters(reg *status.Registry) string {
	var parts []string
	reg.Ints.Range(func(k string, v *atomic.Int64) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, v.Load()))
	})
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "  ")
}

func meter(level float64) string {
	n := int(level*meterWidth + 0.5)
	if n < 0 {
		n = 0
	} else if n > meterWidth {
		n = meterWidth
	}
	return strings.Repeat("█", n) + strings.Repeat("░", meterWidth-n)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	w, h := s.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
