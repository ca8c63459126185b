// Package skeleton models a robot as a tree of rigid bodies.
//
// Each [Node] is one rigid body. Every node except the root is attached to
// its parent by a [Joint] whose kind is one of a closed set:
//
//   - [Hinge]: rotation about a local axis (wheels, arms)
//   - [Slider]: translation along a local axis (elevator stages)
//   - [Fixed]: rigid attachment
//   - [SixDOF]: generic constraint, used for pneumatic pistons
//
// A joint may carry one [Driver] that turns a control port into motion:
// [Motor], [LinearMotor] or [Solenoid]. Drivers carry [Meta] tags such as
// [MetaWheel] that higher-level code uses to pick behaviour subsets.
//
// # Arena
//
// Nodes live in an arena owned by the [Skeleton]. Parent links are [NodeID]
// indices into that arena, never pointers, so edits cannot leave dangling
// back-references.
//
// # Traversal
//
// [Skeleton.ListAllNodes] yields nodes parent-before-child (pre-order, children
// in insertion order). The order is stable and is the order used by both the
// codec and the control loop.
package skeleton
