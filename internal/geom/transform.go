package geom

import "math"

// Quat is a rotation quaternion. Only unit quaternions are meaningful.
type Quat struct {
	W, X, Y, Z float64
}

func Identity() Quat { return Quat{W: 1} }

// AxisAngle builds the rotation of rad radians about axis.
func AxisAngle(axis Vec3, rad float64) Quat {
	a := axis.Normalize()
	s, c := math.Sincos(rad / 2)
	return Quat{W: c, X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Conj() Quat { return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z} }

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Identity()
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Transform is a rigid-body pose. The zero value (zero rotation) is used as
// the cleared interpolation transform and is not a usable pose.
type Transform struct {
	Origin   Vec3
	Rotation Quat
}

func IdentityTransform() Transform { return Transform{Rotation: Identity()} }

func Translation(v Vec3) Transform { return Transform{Origin: v, Rotation: Identity()} }

// Apply maps a point from local to world space.
func (t Transform) Apply(p Vec3) Vec3 { return t.Rotation.Rotate(p).Add(t.Origin) }

// Mul composes t with a local transform o, o applied first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Origin:   t.Apply(o.Origin),
		Rotation: t.Rotation.Mul(o.Rotation).Normalize(),
	}
}

// Translate shifts the pose in world space, leaving the rotation untouched.
func (t Transform) Translate(v Vec3) Transform {
	return Transform{Origin: t.Origin.Add(v), Rotation: t.Rotation}
}

// Up is the body's local +Y axis in world space.
func (t Transform) Up() Vec3 { return t.Rotation.Rotate(UnitY) }

func (t Transform) IsZero() bool { return t == Transform{} }
