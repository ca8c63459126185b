// Package viz is the interactive drive view: a Bubble Tea program that
// steps a robot in real time under keyboard control.
//
// The left pane is a Braille wireframe of the skeleton, drawn from the
// parent-to-child links of every body and centred on the chassis. The
// right pane lists every driven node with its live reading and a short
// history sparkline.
//
// # Key Bindings
//
//	Arrows - drive (up/down forward and back, left/right turn in place)
//	1 / 2  - raise / lower the lift on PWM 2
//	R      - orient the robot back to its origin
//	Space  - pause/resume
//	Tab    - select the graphed column
//	[ ]    - rotate the camera
//	+ -    - zoom
//	T      - cycle color themes
//	Q      - quit
//
// Terminals report key presses but not releases, so a key counts as held
// for a few frames after its last press. Key repeat keeps it held.
package viz
