package drive

import (
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// Body is a bound rigid body.
type Body interface {
	Mass() float64
	Velocity() geom.Vec3
	WorldTransform() geom.Transform
	SetWorldTransform(t geom.Transform)
	// ResetInterpolation clears the interpolated transform so the renderer
	// does not blend across a teleport.
	ResetInterpolation()
}

// HingeMotor is the motor of a hinge constraint.
type HingeMotor interface {
	SetMotorTarget(velocity, maxImpulse float64)
	HingeAngle() float64 // radians
}

// SliderMotor is the linear motor of a slider constraint.
type SliderMotor interface {
	SetPoweredLinearMotor(on bool)
	SetMaxLinearMotorForce(force float64)
	SetTargetLinearMotorVelocity(velocity float64)
}

// LinearMotor is the linear motor of a six-DOF constraint, used by pistons.
// It deliberately has no continuous velocity command beyond the per-fire target.
type LinearMotor interface {
	MaxLinearMotorForce() float64
	SetLinearMotorTarget(velocity float64)
}

// Binding maps skeleton nodes to physics objects. Absence is reported with
// false, never an error.
type Binding interface {
	Body(id skeleton.NodeID) (Body, bool)
	Hinge(id skeleton.NodeID) (HingeMotor, bool)
	Slider(id skeleton.NodeID) (SliderMotor, bool)
	LinearMotor(id skeleton.NodeID) (LinearMotor, bool)
}

// Signals is one tick's control snapshot: continuous PWM values in [-1, 1]
// and discrete CAN values, both indexed by port.
type Signals struct {
	PWM []float64
	CAN []float64
}

func NewSignals(pwmPorts, canPorts int) Signals {
	return Signals{PWM: make([]float64, pwmPorts), CAN: make([]float64, canPorts)}
}

func (s Signals) Clone() Signals {
	return Signals{
		PWM: append([]float64(nil), s.PWM...),
		CAN: append([]float64(nil), s.CAN...),
	}
}
