package drive

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/skeleton"
)

type fakeBody struct {
	mass     float64
	vel      geom.Vec3
	tf       geom.Transform
	interpOK bool
}

func (b *fakeBody) Mass() float64                      { return b.mass }
func (b *fakeBody) Velocity() geom.Vec3                { return b.vel }
func (b *fakeBody) WorldTransform() geom.Transform     { return b.tf }
func (b *fakeBody) SetWorldTransform(t geom.Transform) { b.tf = t }
func (b *fakeBody) ResetInterpolation()                { b.interpOK = true }

type fakeHinge struct {
	vel, impulse float64
	calls        int
	angle        float64
}

func (h *fakeHinge) SetMotorTarget(v, imp float64) {
	h.vel, h.impulse = v, imp
	h.calls++
}

func (h *fakeHinge) HingeAngle() float64 { return h.angle }

type fakeSlider struct {
	powered bool
	force   float64
	vel     float64
}

func (s *fakeSlider) SetPoweredLinearMotor(on bool)          { s.powered = on }
func (s *fakeSlider) SetMaxLinearMotorForce(f float64)       { s.force = f }
func (s *fakeSlider) SetTargetLinearMotorVelocity(v float64) { s.vel = v }

type fakePiston struct {
	maxForce float64
	target   float64
	set      bool
}

func (p *fakePiston) MaxLinearMotorForce() float64   { return p.maxForce }
func (p *fakePiston) SetLinearMotorTarget(v float64) { p.target, p.set = v, true }

type fakeBinding struct {
	bodies  map[skeleton.NodeID]*fakeBody
	hinges  map[skeleton.NodeID]*fakeHinge
	sliders map[skeleton.NodeID]*fakeSlider
	pistons map[skeleton.NodeID]*fakePiston
}

func newFakeBinding(s *skeleton.Skeleton) *fakeBinding {
	b := &fakeBinding{
		bodies:  map[skeleton.NodeID]*fakeBody{},
		hinges:  map[skeleton.NodeID]*fakeHinge{},
		sliders: map[skeleton.NodeID]*fakeSlider{},
		pistons: map[skeleton.NodeID]*fakePiston{},
	}
	for n := range s.ListAllNodes() {
		b.bodies[n.ID] = &fakeBody{mass: 1, tf: geom.IdentityTransform()}
		if n.Joint == nil {
			continue
		}
		switch n.Joint.Kind {
		case skeleton.Hinge:
			b.hinges[n.ID] = &fakeHinge{}
		case skeleton.Slider:
			b.sliders[n.ID] = &fakeSlider{}
		case skeleton.SixDOF:
			b.pistons[n.ID] = &fakePiston{}
		}
	}
	return b
}

func (b *fakeBinding) Body(id skeleton.NodeID) (Body, bool) {
	v, ok := b.bodies[id]
	return v, ok
}

func (b *fakeBinding) Hinge(id skeleton.NodeID) (HingeMotor, bool) {
	v, ok := b.hinges[id]
	return v, ok
}

func (b *fakeBinding) Slider(id skeleton.NodeID) (SliderMotor, bool) {
	v, ok := b.sliders[id]
	return v, ok
}

func (b *fakeBinding) LinearMotor(id skeleton.NodeID) (LinearMotor, bool) {
	v, ok := b.pistons[id]
	return v, ok
}

func wheel(port int) *skeleton.Joint {
	return &skeleton.Joint{
		Kind:   skeleton.Hinge,
		Axis:   geom.UnitX,
		Driver: &skeleton.Driver{Kind: skeleton.Motor, Port: port, Meta: []skeleton.Meta{skeleton.MetaWheel{Radius: 0.05}}},
	}
}

func elevator(port int) *skeleton.Joint {
	return &skeleton.Joint{
		Kind:   skeleton.Slider,
		Axis:   geom.UnitY,
		Driver: &skeleton.Driver{Kind: skeleton.LinearMotor, Port: port, Meta: []skeleton.Meta{skeleton.MetaElevator{Stage: 1}}},
	}
}

func piston(port int, maxForce float64) *skeleton.Joint {
	return &skeleton.Joint{
		Kind:   skeleton.SixDOF,
		Axis:   geom.UnitX,
		Driver: &skeleton.Driver{Kind: skeleton.Solenoid, Port: port, MaxForce: maxForce},
	}
}

func mustAdd(t *testing.T, s *skeleton.Skeleton, name string, j *skeleton.Joint) skeleton.NodeID {
	t.Helper()
	id, err := s.AddChild(s.RootID(), name, "", j)
	if err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return id
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMotorCommand(t *testing.T) {
	c := DefaultConstants()
	tests := []struct {
		pwm         float64
		wantVel     float64
		wantImpulse float64
	}{
		{0, 0, DefaultMotorCoastFriction},
		{1, DefaultWheelMaxSpeed, DefaultMaxMotorImpulse},
		{-0.5, -DefaultWheelMaxSpeed, 0.5 * DefaultMaxMotorImpulse},
		{0.25, DefaultWheelMaxSpeed, 0.25 * DefaultMaxMotorImpulse},
	}

	for _, tt := range tests {
		vel, imp := MotorCommand(tt.pwm, c)
		if !approx(vel, tt.wantVel) || !approx(imp, tt.wantImpulse) {
			t.Errorf("MotorCommand(%v) = (%v, %v), want (%v, %v)", tt.pwm, vel, imp, tt.wantVel, tt.wantImpulse)
		}
	}
}

func TestSliderCommand(t *testing.T) {
	vel, force := SliderCommand(0.3, DefaultConstants())
	if !approx(vel, 0.3*DefaultMaxSliderSpeed) {
		t.Errorf("velocity = %v, want %v", vel, 0.3*DefaultMaxSliderSpeed)
	}
	if force != DefaultMaxSliderForce {
		t.Errorf("force = %v, want %v", force, DefaultMaxSliderForce)
	}
}

func TestSolenoidAcceleration_Sign(t *testing.T) {
	c := DefaultConstants()
	fwd, err := SolenoidAcceleration(10, 4, true, c)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	back, err := SolenoidAcceleration(10, 4, false, c)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	if fwd <= 0 {
		t.Errorf("forward acceleration %v not positive", fwd)
	}
	if back != -fwd {
		t.Errorf("backward %v is not the negation of forward %v", back, fwd)
	}
	if !approx(fwd, 2.5) {
		t.Errorf("forward = %v, want 2.5", fwd)
	}
}

func TestSolenoidAcceleration_Fallback(t *testing.T) {
	c := DefaultConstants()
	if _, err := SolenoidAcceleration(0, 2, true, c); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error without max force, got %v", err)
	}

	c.DeriveSolenoidForce = true
	got, err := SolenoidAcceleration(0, 2, false, c)
	if err != nil {
		t.Fatalf("derived: %v", err)
	}
	want := -(60 * PSIToNPerMM2 * math.Pi * 6.35 * 6.35) / 2
	if !approx(got, want) {
		t.Errorf("derived acceleration = %v, want %v", got, want)
	}

	if _, err := SolenoidAcceleration(10, 0, true, c); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for zero mass, got %v", err)
	}
}

func TestUpdate_Wheels(t *testing.T) {
	s := skeleton.New("chassis", "")
	a := mustAdd(t, s, "a", wheel(0))
	b := mustAdd(t, s, "b", wheel(1))
	c := mustAdd(t, s, "c", wheel(2))
	fb := newFakeBinding(s)

	ctrl := NewController(s, fb, DefaultConstants())
	rep := ctrl.Update(Signals{PWM: []float64{0, 1, -0.5}}, 0.01)

	if rep.Updated != 3 {
		t.Errorf("updated = %d, want 3", rep.Updated)
	}
	checks := []struct {
		id       skeleton.NodeID
		vel, imp float64
	}{
		{a, 0, DefaultMotorCoastFriction},
		{b, DefaultWheelMaxSpeed, DefaultMaxMotorImpulse},
		{c, -DefaultWheelMaxSpeed, 0.5 * DefaultMaxMotorImpulse},
	}
	for _, ck := range checks {
		h := fb.hinges[ck.id]
		if !approx(h.vel, ck.vel) || !approx(h.impulse, ck.imp) {
			t.Errorf("node %d: (%v, %v), want (%v, %v)", ck.id, h.vel, h.impulse, ck.vel, ck.imp)
		}
	}
}

func TestUpdate_Elevator(t *testing.T) {
	s := skeleton.New("chassis", "")
	e := mustAdd(t, s, "stage", elevator(3))
	fb := newFakeBinding(s)

	ctrl := NewController(s, fb, DefaultConstants())
	pwm := make([]float64, 4)
	pwm[3] = 0.3
	ctrl.Update(Signals{PWM: pwm}, 0.01)

	sl := fb.sliders[e]
	if !sl.powered {
		t.Error("powered mode not enabled")
	}
	if sl.force != DefaultMaxSliderForce {
		t.Errorf("force = %v", sl.force)
	}
	if !approx(sl.vel, 0.3*DefaultMaxSliderSpeed) {
		t.Errorf("velocity = %v", sl.vel)
	}
}

func TestUpdate_DriverConstantsOverride(t *testing.T) {
	s := skeleton.New("chassis", "")
	j := wheel(0)
	j.Driver.MaxSpeed = 50
	id := mustAdd(t, s, "w", j)
	fb := newFakeBinding(s)

	NewController(s, fb, DefaultConstants()).Update(Signals{PWM: []float64{1}}, 0.01)
	if fb.hinges[id].vel != 50 {
		t.Errorf("velocity = %v, want driver max speed 50", fb.hinges[id].vel)
	}
}

func TestUpdate_SolenoidFeedback(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "arm", piston(0, 10))
	fb := newFakeBinding(s)
	fb.bodies[id].mass = 2
	fb.bodies[id].vel = geom.V(2, 0, 0)

	ctrl := NewController(s, fb, DefaultConstants())
	rep := ctrl.Update(Signals{CAN: []float64{1}}, 0.1)
	if rep.Updated != 1 {
		t.Fatalf("updated = %d, want 1", rep.Updated)
	}
	// accel 10/2 = 5; 5*0.1 - 2 = -1.5
	if !approx(fb.pistons[id].target, -1.5) {
		t.Errorf("forward target = %v, want -1.5", fb.pistons[id].target)
	}

	ctrl.Update(Signals{CAN: []float64{-1}}, 0.1)
	if !approx(fb.pistons[id].target, -2.5) {
		t.Errorf("backward target = %v, want -2.5", fb.pistons[id].target)
	}
}

func TestUpdate_SolenoidRotatedAxis(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "arm", piston(0, 10))
	fb := newFakeBinding(s)
	fb.bodies[id].mass = 1
	fb.bodies[id].vel = geom.V(0, 3, 0)
	fb.bodies[id].tf = geom.Transform{Rotation: geom.AxisAngle(geom.UnitZ, math.Pi/2)}

	ctrl := NewController(s, fb, DefaultConstants())
	if !ctrl.SetSolenoid(id, true, 0.1) {
		t.Fatal("SetSolenoid reported skip")
	}
	// local X maps to world Y, so the 3 m/s along Y is cancelled
	if !approx(fb.pistons[id].target, 10*0.1-3) {
		t.Errorf("target = %v, want %v", fb.pistons[id].target, 10*0.1-3)
	}
}

func TestUpdate_SolenoidWithoutForceSkipped(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "arm", piston(0, 0))
	fb := newFakeBinding(s)

	reg := prometheus.NewRegistry()
	col, err := observability.NewDriveCollector(reg)
	if err != nil {
		t.Fatal(err)
	}

	ctrl := NewController(s, fb, DefaultConstants(), WithCollector(col))
	for i := 0; i < 3; i++ {
		rep := ctrl.Update(Signals{CAN: []float64{1}}, 0.01)
		if rep.Skipped != 1 || rep.Updated != 0 {
			t.Errorf("tick %d: report %+v", i, rep)
		}
	}
	if fb.pistons[id].set {
		t.Error("skipped solenoid still received a target")
	}
	if n := len(ctrl.ConfigErrors()); n != 1 {
		t.Errorf("expected 1 reported configuration error, got %d", n)
	}
	if got := testutil.ToFloat64(col.ConfigErrors); got != 1 {
		t.Errorf("config error metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(col.DriverSkips.WithLabelValues(skipMissingForce)); got != 3 {
		t.Errorf("skip metric = %v, want 3", got)
	}
}

func TestUpdate_SolenoidUsesConstraintForce(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "arm", piston(0, 0))
	fb := newFakeBinding(s)
	fb.pistons[id].maxForce = 4

	ctrl := NewController(s, fb, DefaultConstants())
	ctrl.Update(Signals{CAN: []float64{1}}, 0.5)
	if !approx(fb.pistons[id].target, 2) {
		t.Errorf("target = %v, want 2", fb.pistons[id].target)
	}
}

func TestUpdate_ZeroCANIsNotAFire(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "arm", piston(0, 10))
	fb := newFakeBinding(s)

	NewController(s, fb, DefaultConstants()).Update(Signals{CAN: []float64{0}}, 0.01)
	if fb.pistons[id].set {
		t.Error("zero CAN value fired the solenoid")
	}
}

func TestPlan_PortCollision(t *testing.T) {
	s := skeleton.New("chassis", "")
	first := mustAdd(t, s, "first", wheel(0))
	second := mustAdd(t, s, "second", elevator(0))
	fb := newFakeBinding(s)

	ctrl := NewController(s, fb, DefaultConstants())
	ctrl.Update(Signals{PWM: []float64{1}}, 0.01)

	if fb.hinges[first].calls != 1 {
		t.Error("first owner of port 0 not driven")
	}
	if fb.sliders[second].powered {
		t.Error("colliding node was driven")
	}
	errs := ctrl.ConfigErrors()
	if len(errs) != 1 || errs[0].Node != second || !errors.Is(errs[0], ErrConfiguration) {
		t.Errorf("unexpected config errors: %v", errs)
	}
}

func TestPlan_SameNumberDifferentGroups(t *testing.T) {
	s := skeleton.New("chassis", "")
	mustAdd(t, s, "w", wheel(0))
	mustAdd(t, s, "p", piston(0, 10))
	ctrl := NewController(s, newFakeBinding(s), DefaultConstants())
	if len(ctrl.ConfigErrors()) != 0 {
		t.Errorf("pwm and can ports collided: %v", ctrl.ConfigErrors())
	}
	if len(ctrl.Driven()) != 2 {
		t.Errorf("driven = %d, want 2", len(ctrl.Driven()))
	}
}

func TestPlan_MetaGateAndMissingBinding(t *testing.T) {
	s := skeleton.New("chassis", "")
	j := wheel(0)
	j.Driver.Meta = nil
	bare := mustAdd(t, s, "bare", j)
	unbound := mustAdd(t, s, "unbound", wheel(1))
	fb := newFakeBinding(s)
	delete(fb.hinges, unbound)

	ctrl := NewController(s, fb, DefaultConstants())
	ctrl.Update(Signals{PWM: []float64{1, 1}}, 0.01)

	if fb.hinges[bare].calls != 0 {
		t.Error("motor without wheel meta was driven")
	}
	if len(ctrl.ConfigErrors()) != 2 {
		t.Errorf("expected 2 config errors, got %v", ctrl.ConfigErrors())
	}
}

func TestUpdate_OutOfRangeSignalReportedOnce(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "w", wheel(1))
	fb := newFakeBinding(s)

	ctrl := NewController(s, fb, DefaultConstants(), WithPorts(2, 2))
	sig := Signals{PWM: []float64{0, 1, 1, 1}}
	for i := 0; i < 5; i++ {
		ctrl.Update(sig, 0.01)
	}

	if fb.hinges[id].calls != 5 {
		t.Errorf("in-range port driven %d times, want 5", fb.hinges[id].calls)
	}
	if n := len(ctrl.ConfigErrors()); n != 1 {
		t.Errorf("expected one report for the oversize vector, got %d", n)
	}
}

func TestPlan_DriverPortOutOfRange(t *testing.T) {
	s := skeleton.New("chassis", "")
	id := mustAdd(t, s, "w", wheel(12))
	fb := newFakeBinding(s)

	ctrl := NewController(s, fb, DefaultConstants())
	pwm := make([]float64, 13)
	pwm[12] = 1
	ctrl.Update(Signals{PWM: pwm}, 0.01)
	if fb.hinges[id].calls != 0 {
		t.Error("out-of-range driver port was driven")
	}
}

func TestAngleBetweenChildAndParent(t *testing.T) {
	s := skeleton.New("chassis", "")
	w := mustAdd(t, s, "w", wheel(0))
	arm := mustAdd(t, s, "arm", piston(0, 10))
	fb := newFakeBinding(s)
	fb.hinges[w].angle = math.Pi / 2
	fb.bodies[arm].tf = geom.Transform{Rotation: geom.AxisAngle(geom.UnitX, math.Pi/4)}

	if got, ok := AngleBetweenChildAndParent(s, fb, w); !ok || !approx(got, 90) {
		t.Errorf("hinge angle = %v, %v; want 90", got, ok)
	}
	if got, ok := AngleBetweenChildAndParent(s, fb, arm); !ok || math.Abs(got-45) > 1e-6 {
		t.Errorf("up-axis angle = %v, %v; want 45", got, ok)
	}
	if _, ok := AngleBetweenChildAndParent(s, fb, s.RootID()); ok {
		t.Error("root reported an angle")
	}
}

func TestLinearPositionRelativeToParent(t *testing.T) {
	s := skeleton.New("chassis", "")
	e := mustAdd(t, s, "stage", elevator(0))
	fb := newFakeBinding(s)
	fb.bodies[s.RootID()].tf = geom.Translation(geom.V(1, 1, 1))
	fb.bodies[e].tf = geom.Translation(geom.V(1, 0.4, 1))

	ctrl := NewController(s, fb, DefaultConstants())
	got, ok := ctrl.LinearPosition(e)
	if !ok {
		t.Fatal("no position reported")
	}
	if !approx(got, 0.6) {
		t.Errorf("position = %v, want 0.6", got)
	}
}
