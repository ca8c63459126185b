package sim

import (
	"math"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
)

// Sample is one telemetry row: one value per column of a Telemetry.
type Sample []float64

func (s Sample) Clone() Sample {
	c := make(Sample, len(s))
	copy(c, s)
	return c
}

func (s Sample) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Stepper advances the physics world.
type Stepper interface {
	Step(dt float64)
}

type Metric interface {
	Name() string
	Observe(x Sample, sig drive.Signals, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x Sample, sig drive.Signals, t float64)
}

type Config struct {
	Dt       float64
	Duration float64

	// ResetAt lists times at which the robot is oriented back to Origin,
	// before that tick's physics step.
	ResetAt []float64
	// Origin defaults to orient.DefaultOrigin when nil.
	Origin *geom.Vec3

	ValidateSamples bool
}

type Result struct {
	Columns  []string
	Samples  []Sample
	Controls [][]float64
	Times    []float64
	Metrics  map[string]float64

	Ticks   int
	Updated int
	Skipped int
	Resets  int

	ConfigErrors []*drive.ConfigurationError
	Errors       []error
}
