package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/physics"
	"github.com/san-kum/rigsim/internal/skeleton"
)

func testRobot(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	s := skeleton.New("chassis", "")
	for i, side := range []skeleton.WheelSide{skeleton.SideLeft, skeleton.SideRight} {
		_, err := s.AddChild(s.RootID(), side.String(), "", &skeleton.Joint{
			Kind:   skeleton.Hinge,
			Axis:   geom.UnitX,
			Anchor: geom.V(0.25-0.5*float64(i), 0, 0),
			Driver: &skeleton.Driver{
				Kind: skeleton.Motor,
				Port: i,
				Meta: []skeleton.Meta{skeleton.MetaWheel{Radius: 0.1, Side: side}},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	_, err := s.AddChild(s.RootID(), "lift", "", &skeleton.Joint{
		Kind:   skeleton.Slider,
		Axis:   geom.V(0, -1, 0),
		Limits: &skeleton.Limits{Min: 0, Max: 1},
		Driver: &skeleton.Driver{Kind: skeleton.LinearMotor, Port: 2, Meta: []skeleton.Meta{skeleton.MetaElevator{}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestSim(t *testing.T, src control.Source, opts ...Option) (*Simulator, *physics.World) {
	t.Helper()
	s := testRobot(t)
	w := physics.NewWorld(s, nil)
	ctrl := drive.NewController(s, w, drive.DefaultConstants())
	return New(w, ctrl, src, opts...), w
}

type countMetric struct{ n int }

func (c *countMetric) Name() string                           { return "count" }
func (c *countMetric) Observe(Sample, drive.Signals, float64) { c.n++ }
func (c *countMetric) Value() float64                         { return float64(c.n) }
func (c *countMetric) Reset()                                 { c.n = 0 }

func TestSimulatorRun(t *testing.T) {
	sim, _ := newTestSim(t, control.NewNone(3, 0))
	m := &countMetric{}
	sim.AddMetric(m)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Samples) != 11 || len(result.Times) != 11 {
		t.Errorf("expected 11 samples and times, got %d and %d", len(result.Samples), len(result.Times))
	}
	if len(result.Controls) != 10 || result.Ticks != 10 {
		t.Errorf("expected 10 ticks, got %d controls, %d ticks", len(result.Controls), result.Ticks)
	}
	if result.Metrics["count"] != 10 {
		t.Errorf("metric observed %v ticks", result.Metrics["count"])
	}
	want := []string{"left.angle", "right.angle", "lift.position"}
	if diff := cmp.Diff(want, result.Columns); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if len(result.ConfigErrors) != 0 {
		t.Errorf("config errors: %v", result.ConfigErrors)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim, _ := newTestSim(t, control.NewNone(3, 0))

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative reset", Config{Dt: 0.1, Duration: 1.0, ResetAt: []float64{-1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sim.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error for invalid config")
			}
		})
	}
}

func TestSimulatorLiftTracksSchedule(t *testing.T) {
	src := control.NewSchedule(control.Segment{Start: 0, End: 10, PWM: map[int]float64{2: 1}})
	sim, _ := newTestSim(t, src)

	result, err := sim.Run(context.Background(), Config{Dt: 0.01, Duration: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	first, last := result.Samples[0][2], result.Samples[len(result.Samples)-1][2]
	if first != 0 || last <= 0 {
		t.Errorf("lift travel %v -> %v, want increasing from 0", first, last)
	}
	if result.Updated != 3*result.Ticks {
		t.Errorf("updated %d targets over %d ticks", result.Updated, result.Ticks)
	}
}

func TestSimulatorResetAt(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := observability.NewDriveCollector(reg)
	if err != nil {
		t.Fatal(err)
	}

	src := control.NewSchedule(control.Segment{Start: 0, End: 10, PWM: map[int]float64{0: 1, 1: 1}})
	sim, w := newTestSim(t, src, WithCollector(col))
	origin := geom.V(0, 5, 0)

	result, err := sim.Run(context.Background(), Config{Dt: 0.01, Duration: 1, ResetAt: []float64{0.5, 0.25}, Origin: &origin})
	if err != nil {
		t.Fatal(err)
	}
	if result.Resets != 2 {
		t.Errorf("resets = %d, want 2", result.Resets)
	}
	if got := testutil.ToFloat64(col.Resets); got != 2 {
		t.Errorf("reset metric = %v", got)
	}

	root, _ := w.Body(w.Skeleton().RootID())
	o := root.WorldTransform().Origin
	if math.Abs(o.Y-5) > 1e-9 {
		t.Errorf("chassis height %v, want orient origin 5", o.Y)
	}
	// driven for half a second after the last reset
	if o.Z <= 0 || o.Z > 5 {
		t.Errorf("chassis z = %v", o.Z)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim, _ := newTestSim(t, control.NewNone(3, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.Ticks != 0 {
		t.Errorf("unexpected partial result %+v", result)
	}
}

func TestRunWithCallback(t *testing.T) {
	sim, _ := newTestSim(t, control.NewNone(3, 0))
	calls := 0
	err := sim.RunWithCallback(context.Background(), Config{Dt: 0.1, Duration: 1}, func(x Sample, sig drive.Signals, tm float64) bool {
		calls++
		return calls < 4
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("callback ran %d times, want 4", calls)
	}
}

func TestBatch(t *testing.T) {
	build := func() (*Simulator, error) {
		sim, _ := newTestSim(t, control.NewNone(3, 0))
		return sim, nil
	}
	results, err := NewBatch(
		Job{Name: "a", Build: build, Config: Config{Dt: 0.1, Duration: 1}},
		Job{Name: "b", Build: build, Config: Config{Dt: 0.1, Duration: 2}},
	).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Ticks != 10 || results[1].Ticks != 20 {
		t.Errorf("ticks = %d, %d", results[0].Ticks, results[1].Ticks)
	}

	_, err = NewBatch(Job{Name: "bad", Build: build, Config: Config{}}).Run(context.Background())
	if err == nil {
		t.Error("expected error from invalid job")
	}
}

func TestSample_IsValid(t *testing.T) {
	if !(Sample{1, 2}).IsValid() {
		t.Error("finite sample reported invalid")
	}
	if (Sample{1, math.NaN()}).IsValid() {
		t.Error("NaN sample reported valid")
	}
}
