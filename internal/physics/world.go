package physics

import (
	"math"

	"github.com/san-kum/rigsim/internal/codec"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

const (
	DefaultMass = 1.0

	// minimum denominator when deriving velocities from poses
	minDt = 1e-9
)

// World owns one body per skeleton node.
type World struct {
	skel   *skeleton.Skeleton
	order  []*skeleton.Node
	bodies []*Body
	joints []*joint // indexed by NodeID; nil for the root

	chassisVel geom.Vec3
	yawRate    float64
	time       float64

	pistonForce float64
}

type Option func(*World)

// WithPistonForce sets the linear motor force of six-DOF joints whose
// driver does not configure one.
func WithPistonForce(f float64) Option {
	return func(w *World) { w.pistonForce = f }
}

// NewWorld creates bodies for skel. meshes is indexed by NodeID; missing or
// massless meshes get DefaultMass.
func NewWorld(skel *skeleton.Skeleton, meshes []*codec.Mesh, opts ...Option) *World {
	w := &World{
		skel:   skel,
		order:  skel.Nodes(),
		bodies: make([]*Body, skel.Len()),
		joints: make([]*joint, skel.Len()),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, n := range w.order {
		mass := DefaultMass
		if int(n.ID) < len(meshes) && meshes[n.ID] != nil && meshes[n.ID].Mass > 0 {
			mass = meshes[n.ID].Mass
		}
		w.bodies[n.ID] = &Body{mass: mass, tf: geom.IdentityTransform(), prev: geom.IdentityTransform()}

		if n.Joint == nil {
			continue
		}
		j := &joint{node: n, axis: n.Joint.Axis.Normalize(), mass: mass}
		if n.Joint.Kind == skeleton.SixDOF {
			j.maxForce = w.pistonForce
			if d := n.Joint.Driver; d != nil && d.MaxForce > 0 {
				j.maxForce = d.MaxForce
			}
		}
		w.joints[n.ID] = j
	}

	w.pose()
	for _, b := range w.bodies {
		b.prev = b.tf
	}
	return w
}

func (w *World) Skeleton() *skeleton.Skeleton { return w.skel }

func (w *World) Time() float64 { return w.time }

// Joint returns the coordinate and rate of node id's joint.
func (w *World) Joint(id skeleton.NodeID) (q, qd float64, ok bool) {
	j := w.joint(id)
	if j == nil {
		return 0, 0, false
	}
	return j.q, j.qd, true
}

// SetJoint overrides a joint coordinate, clamped to its limits. The pose is
// rebuilt on the next Step.
func (w *World) SetJoint(id skeleton.NodeID, q float64) bool {
	j := w.joint(id)
	if j == nil {
		return false
	}
	j.q = j.clamp(q)
	return true
}

func (w *World) joint(id skeleton.NodeID) *joint {
	if id < 0 || int(id) >= len(w.joints) {
		return nil
	}
	return w.joints[id]
}

// Step advances the world by dt seconds.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	for _, n := range w.order {
		if j := w.joints[n.ID]; j != nil {
			j.advance(dt)
		}
	}

	for _, b := range w.bodies {
		b.prev = b.tf
	}
	w.drive(dt)
	w.pose()

	for _, b := range w.bodies {
		b.vel = b.tf.Origin.Sub(b.prev.Origin).Scale(1 / math.Max(dt, minDt))
	}
	w.time += dt
}

// drive moves the chassis from the surface speed of its wheels. Facing +Z
// the right side is -X, so a faster left side yaws toward -X.
func (w *World) drive(dt float64) {
	var sum, left, right float64
	var nSum, nLeft, nRight int
	var xLeft, xRight float64

	root := w.skel.Root()
	for _, id := range root.Children {
		j := w.joints[id]
		if j == nil || j.node.Joint.Kind != skeleton.Hinge {
			continue
		}
		d := j.node.Driver()
		if d == nil {
			continue
		}
		wh, ok := d.Wheel()
		if !ok || wh.Radius <= 0 {
			continue
		}
		s := j.qd * wh.Radius
		if j.axis.X < 0 {
			s = -s
		}
		sum += s
		nSum++
		switch wh.Side {
		case skeleton.SideLeft:
			left += s
			xLeft += j.node.Joint.Anchor.X
			nLeft++
		case skeleton.SideRight:
			right += s
			xRight += j.node.Joint.Anchor.X
			nRight++
		}
	}

	rb := w.bodies[root.ID]
	if nSum == 0 {
		w.chassisVel, w.yawRate = geom.Zero, 0
		return
	}

	speed := sum / float64(nSum)
	w.yawRate = 0
	if nLeft > 0 && nRight > 0 {
		track := math.Abs(xRight/float64(nRight) - xLeft/float64(nLeft))
		if track > 0 {
			w.yawRate = (right/float64(nRight) - left/float64(nLeft)) / track
		}
	}

	rot := geom.AxisAngle(geom.UnitY, w.yawRate*dt).Mul(rb.tf.Rotation).Normalize()
	w.chassisVel = rot.Rotate(geom.UnitZ).Scale(speed)
	rb.tf = geom.Transform{Origin: rb.tf.Origin.Add(w.chassisVel.Scale(dt)), Rotation: rot}
}

// pose rebuilds every child transform from its parent.
func (w *World) pose() {
	for _, n := range w.order {
		j := w.joints[n.ID]
		if j == nil {
			continue
		}
		parent := w.bodies[n.Parent].tf
		w.bodies[n.ID].tf = parent.Mul(geom.Translation(n.Joint.Anchor)).Mul(j.motion())
	}
}

var _ drive.Binding = (*World)(nil)

func (w *World) Body(id skeleton.NodeID) (drive.Body, bool) {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil, false
	}
	return w.bodies[id], true
}

func (w *World) Hinge(id skeleton.NodeID) (drive.HingeMotor, bool) {
	j := w.joint(id)
	if j == nil || j.node.Joint.Kind != skeleton.Hinge {
		return nil, false
	}
	return hinge{j}, true
}

func (w *World) Slider(id skeleton.NodeID) (drive.SliderMotor, bool) {
	j := w.joint(id)
	if j == nil || j.node.Joint.Kind != skeleton.Slider {
		return nil, false
	}
	return slider{j}, true
}

func (w *World) LinearMotor(id skeleton.NodeID) (drive.LinearMotor, bool) {
	j := w.joint(id)
	if j == nil || j.node.Joint.Kind != skeleton.SixDOF {
		return nil, false
	}
	return piston{j}, true
}
