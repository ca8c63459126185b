// Package physics is a small reduced-coordinate world for robot skeletons.
//
// Every node is a [Body]. Joints carry one coordinate each: an angle for
// hinges, a travel for sliders and six-DOF linear motors. [World.Step]
// advances the motors, integrates the joint coordinates and rebuilds every
// child pose from its parent:
//
//	child = parent * translate(anchor) * motion(q)
//
// Hinges rotate about their axis by q. Prismatic joints move the child by
// q against their axis, so positive travel reads positive from
// [drive.LinearPositionRelativeToParent].
//
// The chassis is moved by its wheels: wheel surface speed averaged across
// the drivetrain pushes it along its local +Z, and the left/right speed
// difference turns it about +Y. A wheel whose axis points along -X rolls
// forward with a negative rate.
//
// A World implements [drive.Binding]; it is not safe for concurrent use.
package physics
