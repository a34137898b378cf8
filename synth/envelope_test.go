package synth

import (
	"math"
	"testing"
)

const testRate = 44100.0

func stepEnvelope(e *Envelope, seconds float64) {
	n := int(math.Round(seconds * testRate))
	for i := 0; i < n; i++ {
		e.Update(1 / testRate)
	}
}

// TestEnvelopeReachesSustain verifies sustain after attack+decay, held indefinitely
func TestEnvelopeReachesSustain(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.2})
	e.Start(1)
	stepEnvelope(e, 0.11)

	if e.State() != EnvSustain {
		t.Fatalf("Expected sustain after attack+decay, got %s", e.State())
	}
	if math.Abs(e.Value()-0.7) > 1e-9 {
		t.Errorf("got %f, want 0.7", e.Value())
	}

	stepEnvelope(e, 5)
	if e.Value() != 0.7 || e.State() != EnvSustain {
		t.Errorf("Expected sustain held at 0.7, got %f in %s", e.Value(), e.State())
	}
}

// TestEnvelopeAttackMonotonic verifies attack rises from 0 toward 1
func TestEnvelopeAttackMonotonic(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0.05, Decay: 0.1, Sustain: 0.5, Release: 0.1})
	e.Start(1)
	if e.Value() != 0 {
		t.Fatalf("Expected attack to begin at 0, got %f", e.Value())
	}
	prev := 0.0
	for i := 0; i < int(0.05*testRate)-1; i++ {
		e.Update(1 / testRate)
		if e.Value() < prev {
			t.Fatalf("step %d: attack decreased %f -> %f", i, prev, e.Value())
		}
		prev = e.Value()
	}
}

// TestEnvelopeRelease verifies release reaches 0 and decreases strictly
func TestEnvelopeRelease(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.01, Sustain: 0.6, Release: 0.2})
	e.Start(7)
	stepEnvelope(e, 0.05)
	e.End()

	if e.State() != EnvRelease {
		t.Fatalf("Expected release, got %s", e.State())
	}

	prev := e.Value()
	half := int(0.1 * testRate)
	for i := 0; i < half; i++ {
		e.Update(1 / testRate)
		if !(e.Value() < prev) {
			t.Fatalf("step %d: release not strictly decreasing %f -> %f", i, prev, e.Value())
		}
		prev = e.Value()
	}

	stepEnvelope(e, 0.1)
	if e.Value() != 0 {
		t.Errorf("Expected 0 after full release, got %f", e.Value())
	}
	if e.State() != EnvIdle || e.Active() {
		t.Errorf("Expected idle inactive envelope, got %s active=%v", e.State(), e.Active())
	}
	if e.Note() != 0 {
		t.Errorf("Expected note identity cleared, got %d", e.Note())
	}
}

// TestEnvelopeReleaseSingleStep verifies one update of exactly release seconds completes
func TestEnvelopeReleaseSingleStep(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.01, Sustain: 0.6, Release: 0.2})
	e.Start(1)
	e.Update(0.02)
	e.End()
	e.Update(0.2)
	if e.Value() != 0 || e.State() != EnvIdle {
		t.Errorf("Expected idle at 0, got %f in %s", e.Value(), e.State())
	}
}

// TestEnvelopeSameNoteIdempotent verifies retriggering the held note changes nothing
func TestEnvelopeSameNoteIdempotent(t *testing.T) {
	e := NewEnvelope(DefaultEnvelopeParams())
	e.Start(3)
	stepEnvelope(e, 0.005)

	before, state := e.Value(), e.State()
	e.Start(3)
	if e.Value() != before || e.State() != state {
		t.Errorf("Expected no change, got %f/%s want %f/%s", e.Value(), e.State(), before, state)
	}
}

// TestEnvelopeRetriggerNoJump verifies a new note fades out then attacks without clicks
func TestEnvelopeRetriggerNoJump(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.2}
	e := NewEnvelope(p)
	e.Start(1)
	stepEnvelope(e, 0.2)

	prior := e.Value()
	e.Start(2)
	if e.Value() != prior {
		t.Fatalf("Expected no instantaneous change, got %f want %f", e.Value(), prior)
	}
	if pending, ok := e.Pending(); !ok || pending != 2 {
		t.Fatalf("Expected pending note 2, got %d %v", pending, ok)
	}

	// Max per-sample slope of smootherstep is 15/8 per unit phase
	attackSlope := 1.875 / (p.Attack * testRate)
	fadeSlope := 1.875 * prior / (0.005 * testRate)
	bound := math.Max(attackSlope, fadeSlope) + 1e-9

	prev := e.Value()
	sawAttack := false
	for i := 0; i < int(0.05*testRate); i++ {
		e.Update(1 / testRate)
		v := e.Value()
		if math.Abs(v-prev) > bound {
			t.Fatalf("step %d: jump %f exceeds bound %f", i, math.Abs(v-prev), bound)
		}
		if e.Note() == 2 && e.State() == EnvAttack {
			sawAttack = true
		}
		prev = v
	}
	if !sawAttack {
		t.Error("Expected pending note to reach attack")
	}
	if e.Note() != 2 {
		t.Errorf("Expected note 2 sounding, got %d", e.Note())
	}
}

// TestEnvelopeEndCancelsPending verifies releasing during a retrigger fade drops the queued note
func TestEnvelopeEndCancelsPending(t *testing.T) {
	e := NewEnvelope(DefaultEnvelopeParams())
	e.Start(1)
	stepEnvelope(e, 0.2)
	e.Start(2)
	e.End()

	if _, ok := e.Pending(); ok {
		t.Fatal("Expected pending note cancelled")
	}
	stepEnvelope(e, 0.01)
	if e.State() != EnvIdle {
		t.Errorf("Expected idle after fade, got %s", e.State())
	}
}

// TestEnvelopeUpdateWhenIdle verifies silence-after-stop contract
func TestEnvelopeUpdateWhenIdle(t *testing.T) {
	e := NewEnvelope(DefaultEnvelopeParams())
	e.value = 0.4
	e.released = true
	e.Update(0.001)
	if e.Value() != 0 || e.Released() {
		t.Errorf("Expected forced silence, got %f released=%v", e.Value(), e.Released())
	}
}

// TestEnvelopeZeroDurations verifies malformed params never divide by zero
func TestEnvelopeZeroDurations(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0, Decay: -1, Sustain: 2, Release: math.NaN()})
	p := e.Params()
	if p.Attack <= 0 || p.Decay <= 0 || p.Release <= 0 {
		t.Fatalf("Expected positive durations, got %+v", p)
	}
	if p.Sustain != 1 {
		t.Errorf("Expected sustain clamped to 1, got %f", p.Sustain)
	}

	e.Start(1)
	for i := 0; i < 200; i++ {
		e.Update(1 / testRate)
		if math.IsNaN(e.Value()) || e.Value() < 0 || e.Value() > 1 {
			t.Fatalf("step %d: invalid value %f", i, e.Value())
		}
	}
}

// TestEnvelopeLargeStepCarriesOver verifies one big update crosses several stages
func TestEnvelopeLargeStepCarriesOver(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.3, Release: 0.2})
	e.Start(1)
	e.Update(0.5)
	if e.State() != EnvSustain || e.Value() != 0.3 {
		t.Errorf("Expected sustain 0.3, got %f in %s", e.Value(), e.State())
	}
}

// TestEnvelopeSetParamsDuringSustain verifies the held level follows sustain changes
func TestEnvelopeSetParamsDuringSustain(t *testing.T) {
	e := NewEnvelope(DefaultEnvelopeParams())
	e.Start(1)
	e.Update(1)
	p := e.Params()
	p.Sustain = 0.25
	e.SetParams(p)
	if e.Value() != 0.25 {
		t.Errorf("got %f, want 0.25", e.Value())
	}
}

// TestEnvelopeManagerPool verifies batch control and clamped sizing
func TestEnvelopeManagerPool(t *testing.T) {
	if m := NewEnvelopeManager(0, DefaultEnvelopeParams()); m.Size() != 1 {
		t.Errorf("Expected pool clamped to 1, got %d", m.Size())
	}
	if m := NewEnvelopeManager(20, DefaultEnvelopeParams()); m.Size() != 8 {
		t.Errorf("Expected pool clamped to 8, got %d", m.Size())
	}

	m := NewEnvelopeManager(3, DefaultEnvelopeParams())
	m.StartAll(5)
	m.UpdateAll(0.5)
	for i := 0; i < m.Size(); i++ {
		if math.Abs(m.Value(i)-0.7) > 1e-9 {
			t.Errorf("envelope %d: got %f, want 0.7", i, m.Value(i))
		}
	}
	if m.Value(-1) != 0 || m.Value(3) != 0 {
		t.Error("Expected out-of-range Value to be 0")
	}
	if m.State() != EnvSustain {
		t.Errorf("Expected sustain, got %s", m.State())
	}

	m.EndNote(6)
	if m.State() != EnvSustain {
		t.Error("Expected EndNote for another note to be ignored")
	}
	m.EndNote(5)
	if m.State() != EnvRelease {
		t.Errorf("Expected release, got %s", m.State())
	}
	m.UpdateAll(1)
	if m.Active() || m.Level() != 0 {
		t.Errorf("Expected silent pool, active=%v level=%f", m.Active(), m.Level())
	}
}

// TestSmootherstepEndpoints verifies curve endpoints and midpoint
func TestSmootherstepEndpoints(t *testing.T) {
	if smootherstep(0) != 0 || smootherstep(1) != 1 {
		t.Error("Expected endpoints 0 and 1")
	}
	if math.Abs(smootherstep(0.5)-0.5) > 1e-12 {
		t.Errorf("Expected midpoint 0.5, got %f", smootherstep(0.5))
	}
}
