package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/sim"
)

// TrackingError is the mean |value - target| of one telemetry column.
type TrackingError struct {
	name   string
	column int
	target float64
	sum    float64
	n      int
}

func NewTrackingError(name string, column int, target float64) *TrackingError {
	return &TrackingError{name: "tracking_error_" + name, column: column, target: target}
}

func (m *TrackingError) Name() string { return m.name }

func (m *TrackingError) Observe(x sim.Sample, sig drive.Signals, t float64) {
	if m.column < 0 || m.column >= len(x) {
		return
	}
	m.sum += math.Abs(x[m.column] - m.target)
	m.n++
}

func (m *TrackingError) Value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func (m *TrackingError) Reset() { m.sum, m.n = 0, 0 }
