package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/sim"
)

func TestControlEffort(t *testing.T) {
	c := NewControlEffort()
	c.Observe(nil, drive.Signals{PWM: []float64{1, -0.5}}, 0)
	c.Observe(nil, drive.Signals{PWM: []float64{0, 0.5}}, 0.1)

	if got := c.Value(); math.Abs(got-1) > 1e-12 {
		t.Errorf("effort = %v, want 1", got)
	}
	c.Reset()
	if c.Value() != 0 {
		t.Error("reset did not clear effort")
	}
}

func TestTravel(t *testing.T) {
	m := NewTravel("lift.position", 1)
	for _, x := range []sim.Sample{{5, 0.2}, {9, -0.7}, {1, 0.4}, {2}} {
		m.Observe(x, drive.Signals{}, 0)
	}
	if m.Name() != "travel_lift.position" {
		t.Errorf("name = %q", m.Name())
	}
	if m.Value() != 0.7 {
		t.Errorf("travel = %v, want 0.7", m.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Error("empty stability should be 1")
	}
	s.Observe(sim.Sample{1, 2}, drive.Signals{}, 0)
	s.Observe(sim.Sample{1, 20}, drive.Signals{}, 0)
	s.Observe(sim.Sample{math.NaN()}, drive.Signals{}, 0)
	s.Observe(sim.Sample{-3}, drive.Signals{}, 0)

	if got := s.Value(); got != 0.5 {
		t.Errorf("stability = %v, want 0.5", got)
	}
}

func TestDefaults(t *testing.T) {
	ms := Defaults([]string{"a.angle", "b.position"}, 100)
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	want := []string{"control_effort", "stability", "travel_a.angle", "travel_b.position"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("metric %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestTrackingError(t *testing.T) {
	m := NewTrackingError("lift.position", 0, 10)
	if m.Value() != 0 {
		t.Error("empty tracking error should be 0")
	}
	for _, x := range []sim.Sample{{8}, {12}, {10}, {}} {
		m.Observe(x, drive.Signals{}, 0)
	}
	if m.Name() != "tracking_error_lift.position" {
		t.Errorf("name = %q", m.Name())
	}
	if got := m.Value(); math.Abs(got-4.0/3) > 1e-12 {
		t.Errorf("tracking error = %v, want 4/3", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset did not clear")
	}
}
