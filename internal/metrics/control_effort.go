package metrics

import (
	"math"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/sim"
)

// ControlEffort is the mean per-tick sum of |pwm| across all ports.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.Sample, sig drive.Signals, t float64) {
	for _, val := range sig.PWM {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
