package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/sim"
)

// Travel is the largest |value| seen in one telemetry column.
type Travel struct {
	name   string
	column int
	max    float64
}

func NewTravel(name string, column int) *Travel {
	return &Travel{name: "travel_" + name, column: column}
}

func (m *Travel) Name() string { return m.name }

func (m *Travel) Observe(x sim.Sample, sig drive.Signals, t float64) {
	if m.column < 0 || m.column >= len(x) {
		return
	}
	m.max = math.Max(m.max, math.Abs(x[m.column]))
}

func (m *Travel) Value() float64 { return m.max }

func (m *Travel) Reset() { m.max = 0 }
