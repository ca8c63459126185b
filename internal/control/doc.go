// Package control produces the per-tick signal snapshot the drive loop
// consumes.
//
// A [Source] is polled once per tick and returns PWM and CAN vectors:
//
//   - [None]: all ports idle
//   - [Manual]: keyboard state, arrow keys drive PWM 0/1 tank style
//   - [Schedule]: timed segments loaded from YAML
//   - [HoldPosition]: PID on a measured joint position
//
// Sources are looked up by name through a [Registry].
package control
