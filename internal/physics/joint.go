package physics

import (
	"math"

	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

type joint struct {
	node *skeleton.Node
	axis geom.Vec3
	mass float64

	q, qd float64

	motorOn    bool
	targetVel  float64
	maxImpulse float64 // hinge, per step
	maxForce   float64 // slider and six-DOF
}

func (j *joint) advance(dt float64) {
	if j.motorOn {
		switch j.node.Joint.Kind {
		case skeleton.Hinge:
			j.qd = approach(j.qd, j.targetVel, j.maxImpulse/j.mass)
		case skeleton.Slider, skeleton.SixDOF:
			j.qd = approach(j.qd, j.targetVel, j.maxForce*dt/j.mass)
		}
	}
	if j.node.Joint.Kind == skeleton.Fixed {
		j.qd = 0
		return
	}

	q := j.q + j.qd*dt
	if c := j.clamp(q); c != q {
		j.qd = 0
		q = c
	}
	j.q = q
}

func (j *joint) clamp(q float64) float64 {
	if l := j.node.Joint.Limits; l != nil {
		return l.Clamp(q)
	}
	return q
}

func (j *joint) motion() geom.Transform {
	switch j.node.Joint.Kind {
	case skeleton.Hinge:
		return geom.Transform{Rotation: geom.AxisAngle(j.axis, j.q)}
	case skeleton.Slider, skeleton.SixDOF:
		return geom.Translation(j.axis.Scale(-j.q))
	default:
		return geom.IdentityTransform()
	}
}

// approach moves cur toward target by at most step.
func approach(cur, target, step float64) float64 {
	if step <= 0 || math.IsNaN(step) {
		return cur
	}
	d := target - cur
	if math.Abs(d) <= step {
		return target
	}
	return cur + math.Copysign(step, d)
}

type hinge struct{ *joint }

func (h hinge) SetMotorTarget(velocity, maxImpulse float64) {
	h.motorOn, h.targetVel, h.maxImpulse = true, velocity, maxImpulse
}

func (h hinge) HingeAngle() float64 { return h.q }

type slider struct{ *joint }

func (s slider) SetPoweredLinearMotor(on bool) { s.motorOn = on }

func (s slider) SetMaxLinearMotorForce(f float64) { s.maxForce = f }

func (s slider) SetTargetLinearMotorVelocity(v float64) { s.targetVel = v }

type piston struct{ *joint }

func (p piston) MaxLinearMotorForce() float64 { return p.maxForce }

func (p piston) SetLinearMotorTarget(v float64) {
	p.motorOn, p.targetVel = true, v
}
