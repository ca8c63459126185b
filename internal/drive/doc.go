// Package drive translates per-tick control signals into constraint targets.
//
// A [Controller] is bound to a [skeleton.Skeleton] and a physics [Binding].
// Each tick the caller passes an immutable [Signals] snapshot to
// [Controller.Update], which writes:
//
//   - wheel motors: target angular velocity and max impulse
//   - linear motors (elevators): powered mode, max force, target velocity
//   - solenoids: a one-step velocity feedback target along the joint axis
//
// # Errors
//
// Configuration problems (port collisions, ports outside the configured range,
// missing constants, missing bindings) are [ConfigurationError]s. They are
// reported once through the logger and metrics collector and the affected
// node is skipped; [Controller.Update] itself never fails.
//
// # Thread Safety
//
// A Controller is driven from the simulation thread only. It holds no locks.
package drive
