package status

import (
	"math"
	"sync/atomic"
	"unicode/utf8"
)

// MaxStringLen bounds stored text values in bytes
const MaxStringLen = 64

// AtomicFloat is a float64 gauge shared between the audio callback and
// readers. Stored as IEEE bits, so access never locks or allocates
type AtomicFloat struct {
	bits atomic.Uint64
}

func (f *AtomicFloat) Set(val float64) { f.bits.Store(math.Float64bits(val)) }

func (f *AtomicFloat) Get() float64 { return math.Float64frombits(f.bits.Load()) }

// AtomicString holds a short label such as a port or driver name
type AtomicString struct {
	ptr atomic.Pointer[string]
}

// Store replaces the label. Values over MaxStringLen bytes are cut at the
// last rune boundary that fits, so device names never end in a split rune
func (s *AtomicString) Store(val string) {
	if len(val) > MaxStringLen {
		cut := MaxStringLen
		for cut > 0 && !utf8.RuneStart(val[cut]) {
			cut--
		}
		val = val[:cut]
	}
	s.ptr.Store(&val)
}

func (s *AtomicString) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
