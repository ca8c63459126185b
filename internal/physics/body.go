package physics

import "github.com/san-kum/rigsim/internal/geom"

// Body is one rigid body of the world.
type Body struct {
	mass float64
	tf   geom.Transform
	prev geom.Transform
	vel  geom.Vec3
}

func (b *Body) Mass() float64 { return b.mass }

// Velocity is the linear world velocity over the last step.
func (b *Body) Velocity() geom.Vec3 { return b.vel }

func (b *Body) WorldTransform() geom.Transform { return b.tf }

func (b *Body) SetWorldTransform(t geom.Transform) { b.tf = t }

// Interpolation is the pose at the start of the last step, used to blend
// frames between ticks. It is the zero Transform after ResetInterpolation
// until the next step.
func (b *Body) Interpolation() geom.Transform { return b.prev }

// ResetInterpolation zeroes the previous pose and the velocity derived
// from it.
func (b *Body) ResetInterpolation() {
	b.prev = geom.Transform{}
	b.vel = geom.Zero
}
