package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/sim"
)

// Stability is the fraction of ticks on which every telemetry value stayed
// within threshold and finite.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.Sample, sig drive.Signals, t float64) {
	s.samples++
	for _, val := range x {
		if math.IsNaN(val) || math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Defaults returns the metrics every run records: control effort, stability
// and the travel of each telemetry column.
func Defaults(columns []string, threshold float64) []sim.Metric {
	out := []sim.Metric{NewControlEffort(), NewStability(threshold)}
	for i, c := range columns {
		out = append(out, NewTravel(c, i))
	}
	return out
}
