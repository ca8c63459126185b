package control

import (
	"fmt"
	"sort"

	"github.com/san-kum/rigsim/internal/drive"
)

// Params configure a source when it is built from the registry.
type Params struct {
	PWMPorts int
	CANPorts int
	Values   map[string]float64
	Measure  Measurement
}

type Factory func(Params) (Source, error)

type Registry struct {
	sources map[string]Factory
}

// NewRegistry returns a registry holding the built-in sources: "none",
// "manual" and "hold".
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Factory)}

	r.Register("none", func(p Params) (Source, error) {
		return NewNone(p.PWMPorts, p.CANPorts), nil
	})
	r.Register("manual", func(p Params) (Source, error) {
		return NewManual(nil, p.PWMPorts, p.CANPorts), nil
	})
	r.Register("hold", func(p Params) (Source, error) {
		if p.Measure == nil {
			return nil, fmt.Errorf("hold source needs a measurement")
		}
		v := p.Values
		h := NewHoldPosition(int(v["port"]), p.Measure, v["kp"], v["ki"], v["kd"], v["target"])
		return h.WithPorts(p.PWMPorts, p.CANPorts), nil
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.sources[name] = f
}

func (r *Registry) Get(name string, p Params) (Source, error) {
	fn, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown control source: %s", name)
	}
	if p.PWMPorts <= 0 {
		p.PWMPorts = drive.DefaultPWMPorts
	}
	if p.CANPorts <= 0 {
		p.CANPorts = drive.DefaultCANPorts
	}
	return fn(p)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
