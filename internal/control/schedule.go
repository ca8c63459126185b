package control

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigsim/internal/drive"
)

// Schedule is a scripted control sequence.
type Schedule struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	PWMPorts    int       `yaml:"pwm_ports"`
	CANPorts    int       `yaml:"can_ports"`
	Segments    []Segment `yaml:"segments"`
}

// Segment holds port values over [Start, End). Later segments override
// earlier ones on the ports they set.
type Segment struct {
	Start float64         `yaml:"start"`
	End   float64         `yaml:"end"`
	PWM   map[int]float64 `yaml:"pwm"`
	CAN   map[int]float64 `yaml:"can"`
	Label string          `yaml:"label,omitempty"`
}

func NewSchedule(segments ...Segment) *Schedule {
	return &Schedule{Segments: segments}
}

// LoadSchedule loads a schedule from a YAML file
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSchedule(data)
}

func ParseSchedule(data []byte) (*Schedule, error) {
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schedule) Validate() error {
	for i, seg := range s.Segments {
		if seg.Start < 0 || !(seg.End > seg.Start) {
			return fmt.Errorf("segment %d: need 0 <= start < end, got [%v, %v)", i, seg.Start, seg.End)
		}
		for port, v := range seg.PWM {
			if port < 0 {
				return fmt.Errorf("segment %d: negative pwm port %d", i, port)
			}
			if math.IsNaN(v) || v < -1 || v > 1 {
				return fmt.Errorf("segment %d: pwm[%d] = %v outside [-1, 1]", i, port, v)
			}
		}
		for port, v := range seg.CAN {
			if port < 0 {
				return fmt.Errorf("segment %d: negative can port %d", i, port)
			}
			if math.IsNaN(v) {
				return fmt.Errorf("segment %d: can[%d] is NaN", i, port)
			}
		}
	}
	return nil
}

// Duration is the end of the last segment.
func (s *Schedule) Duration() float64 {
	var d float64
	for _, seg := range s.Segments {
		d = math.Max(d, seg.End)
	}
	return d
}

// Boundaries lists every segment start and end in ascending order.
func (s *Schedule) Boundaries() []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, seg := range s.Segments {
		for _, t := range []float64{seg.Start, seg.End} {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Float64s(out)
	return out
}

func (s *Schedule) Poll(t float64) drive.Signals {
	pwm, can := s.PWMPorts, s.CANPorts
	if pwm <= 0 {
		pwm = drive.DefaultPWMPorts
	}
	if can <= 0 {
		can = drive.DefaultCANPorts
	}
	sig := drive.NewSignals(pwm, can)

	for _, seg := range s.Segments {
		if t < seg.Start || t >= seg.End {
			continue
		}
		for port, v := range seg.PWM {
			sig.PWM = set(sig.PWM, port, v)
		}
		for port, v := range seg.CAN {
			sig.CAN = set(sig.CAN, port, v)
		}
	}
	return sig
}

// set grows v when a schedule names a port beyond its declared range; the
// drive loop reports the oversize vector.
func set(v []float64, i int, x float64) []float64 {
	for len(v) <= i {
		v = append(v, 0)
	}
	v[i] = x
	return v
}
