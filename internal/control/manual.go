package control

import (
	"sync"

	"github.com/san-kum/rigsim/internal/drive"
)

// ArrowPWM is the PWM an arrow or lift key adds while held.
const ArrowPWM = 0.5

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyRaise // "1"
	KeyLower // "2"
	numKeys
)

// Manual overlays held keys on a base source. Up/Down drive PWM 0 and 1 in
// opposite senses, Left/Right in the same sense; Raise/Lower drive PWM 2.
// Results are clamped to [-1, 1]. Safe for use from an input goroutine.
type Manual struct {
	mu   sync.Mutex
	held [numKeys]bool
	base Source
	pwm  int
	can  int
}

// NewManual returns a keyboard source. base may be nil.
func NewManual(base Source, pwm, can int) *Manual {
	if pwm < 3 {
		pwm = 3
	}
	return &Manual{base: base, pwm: pwm, can: can}
}

// Set records whether k is held.
func (m *Manual) Set(k Key, down bool) {
	if k < 0 || k >= numKeys {
		return
	}
	m.mu.Lock()
	m.held[k] = down
	m.mu.Unlock()
}

// ReleaseAll clears every held key.
func (m *Manual) ReleaseAll() {
	m.mu.Lock()
	m.held = [numKeys]bool{}
	m.mu.Unlock()
}

func (m *Manual) Held(k Key) bool {
	if k < 0 || k >= numKeys {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[k]
}

func (m *Manual) Poll(t float64) drive.Signals {
	sig := drive.NewSignals(m.pwm, m.can)
	if m.base != nil {
		b := m.base.Poll(t)
		copy(sig.PWM, b.PWM)
		copy(sig.CAN, b.CAN)
		if len(b.PWM) > len(sig.PWM) {
			sig.PWM = append(sig.PWM, b.PWM[len(sig.PWM):]...)
		}
		if len(b.CAN) > len(sig.CAN) {
			sig.CAN = append(sig.CAN, b.CAN[len(sig.CAN):]...)
		}
	}

	m.mu.Lock()
	h := m.held
	m.mu.Unlock()

	press := func(k Key, v float64) float64 {
		if h[k] {
			return v
		}
		return 0
	}

	sig.PWM[0] += press(KeyUp, ArrowPWM) + press(KeyDown, -ArrowPWM) +
		press(KeyLeft, -ArrowPWM) + press(KeyRight, ArrowPWM)
	sig.PWM[1] += press(KeyUp, -ArrowPWM) + press(KeyDown, ArrowPWM) +
		press(KeyLeft, -ArrowPWM) + press(KeyRight, ArrowPWM)
	switch {
	case h[KeyRaise]:
		sig.PWM[2] += ArrowPWM
	case h[KeyLower]:
		sig.PWM[2] -= ArrowPWM
	}

	for i := 0; i < 3; i++ {
		sig.PWM[i] = clamp(sig.PWM[i], -1, 1)
	}
	return sig
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
