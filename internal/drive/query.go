package drive

import (
	"math"

	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// AngleBetweenChildAndParent reports the joint angle of node id in degrees.
// Hinges read the constraint's live angle; other joints use the angle
// between the child's and parent's up axes. Read-only.
func AngleBetweenChildAndParent(skel *skeleton.Skeleton, b Binding, id skeleton.NodeID) (float64, bool) {
	n, ok := skel.Node(id)
	if !ok {
		return 0, false
	}
	if _, ok := n.JointOf(skeleton.Hinge); ok {
		if h, ok := b.Hinge(id); ok {
			return geom.Degrees(h.HingeAngle()), true
		}
	}

	child, parent, ok := bodies(skel, b, id)
	if !ok {
		return 0, false
	}
	cu := child.WorldTransform().Up()
	pu := parent.WorldTransform().Up()
	denom := cu.Len() * pu.Len()
	if denom == 0 {
		return 0, false
	}
	cos := math.Max(-1, math.Min(1, cu.Dot(pu)/denom))
	return geom.Degrees(math.Acos(cos)), true
}

// LinearPositionRelativeToParent projects the parent-to-child offset onto
// the joint axis in world space, negated so travel from rest reads positive.
func LinearPositionRelativeToParent(skel *skeleton.Skeleton, b Binding, id skeleton.NodeID) (float64, bool) {
	n, ok := skel.Node(id)
	if !ok || n.Joint == nil {
		return 0, false
	}
	child, parent, ok := bodies(skel, b, id)
	if !ok {
		return 0, false
	}

	ct := child.WorldTransform()
	dir := ct.Rotation.Rotate(n.Joint.Axis).Normalize()
	diff := ct.Origin.Sub(parent.WorldTransform().Origin)
	return -dir.Dot(diff), true
}

func bodies(skel *skeleton.Skeleton, b Binding, id skeleton.NodeID) (child, parent Body, ok bool) {
	p, ok := skel.Parent(id)
	if !ok {
		return nil, nil, false
	}
	if child, ok = b.Body(id); !ok {
		return nil, nil, false
	}
	if parent, ok = b.Body(p.ID); !ok {
		return nil, nil, false
	}
	return child, parent, true
}

// Angle is AngleBetweenChildAndParent on the controller's skeleton.
func (c *Controller) Angle(id skeleton.NodeID) (float64, bool) {
	return AngleBetweenChildAndParent(c.skel, c.binding, id)
}

// LinearPosition is LinearPositionRelativeToParent on the controller's skeleton.
func (c *Controller) LinearPosition(id skeleton.NodeID) (float64, bool) {
	return LinearPositionRelativeToParent(c.skel, c.binding, id)
}
