package sim

import (
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// Telemetry reads one value per driven node: the joint angle in degrees for
// motors, the travel along the joint axis for linear motors and solenoids.
type Telemetry struct {
	ctrl    *drive.Controller
	columns []string
	read    []func() float64
}

func NewTelemetry(ctrl *drive.Controller) *Telemetry {
	tel := &Telemetry{ctrl: ctrl}
	for _, n := range ctrl.Driven() {
		id := n.ID
		switch n.Driver().Kind {
		case skeleton.Motor:
			tel.columns = append(tel.columns, n.Name+".angle")
			tel.read = append(tel.read, func() float64 {
				v, _ := ctrl.Angle(id)
				return v
			})
		default:
			tel.columns = append(tel.columns, n.Name+".position")
			tel.read = append(tel.read, func() float64 {
				v, _ := ctrl.LinearPosition(id)
				return v
			})
		}
	}
	return tel
}

func (t *Telemetry) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Telemetry) Read() Sample {
	x := make(Sample, len(t.read))
	for i, r := range t.read {
		x[i] = r()
	}
	return x
}
