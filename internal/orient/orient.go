// Package orient moves a robot back to a canonical pose without disturbing
// the relative placement of its bodies.
package orient

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// DefaultOrigin is where the root body is placed after a reset.
var DefaultOrigin = geom.V(0, 75, 0)

var ErrNoRootBody = errors.New("orient: root body is not bound")

// Orient translates every body by origin minus the parent's origin and
// clears their interpolation transforms. parent is moved once even when it
// also appears in bodies; that match uses ==, so it only applies to
// comparable bodies such as pointers. The applied offset is returned.
func Orient(bodies []drive.Body, parent drive.Body, origin geom.Vec3) geom.Vec3 {
	if parent == nil {
		return geom.Zero
	}
	offset := origin.Sub(parent.WorldTransform().Origin)

	move := func(b drive.Body) {
		b.SetWorldTransform(b.WorldTransform().Translate(offset))
		b.ResetInterpolation()
	}

	move(parent)
	for _, b := range bodies {
		if b == nil || same(b, parent) {
			continue
		}
		move(b)
	}
	return offset
}

// same reports whether a and b are the same body without panicking on
// dynamic types that cannot be compared.
func same(a, b drive.Body) bool {
	ta := reflect.TypeOf(a)
	return ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}

// OrientSkeleton orients all bound bodies of skel around its root. The root
// is matched by node ID, so any Body implementation works.
func OrientSkeleton(skel *skeleton.Skeleton, b drive.Binding, origin geom.Vec3) (geom.Vec3, error) {
	root, ok := b.Body(skel.RootID())
	if !ok {
		return geom.Zero, fmt.Errorf("%w: node %d (%s)", ErrNoRootBody, skel.RootID(), skel.Root().Name)
	}

	var bodies []drive.Body
	for n := range skel.ListAllNodes() {
		if n.ID == skel.RootID() {
			continue
		}
		if body, ok := b.Body(n.ID); ok {
			bodies = append(bodies, body)
		}
	}
	return Orient(bodies, root, origin), nil
}
