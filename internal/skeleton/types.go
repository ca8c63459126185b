package skeleton

import (
	"fmt"

	"github.com/san-kum/rigsim/internal/geom"
)

// JointKind enumerates the mechanical relations a node can have to its parent.
// The numeric values are the codec's wire tags.
type JointKind uint8

const (
	Hinge  JointKind = iota + 1 // rotation about Axis
	Slider                      // translation along Axis
	Fixed                       // rigid
	SixDOF                      // generic; linear motor along Axis
)

func (k JointKind) String() string {
	switch k {
	case Hinge:
		return "hinge"
	case Slider:
		return "slider"
	case Fixed:
		return "fixed"
	case SixDOF:
		return "sixdof"
	default:
		return fmt.Sprintf("JointKind(%d)", uint8(k))
	}
}

func (k JointKind) Valid() bool { return k >= Hinge && k <= SixDOF }

// ParseJointKind maps the names used in rig descriptions to a kind.
func ParseJointKind(s string) (JointKind, error) {
	switch s {
	case "hinge", "rotational":
		return Hinge, nil
	case "slider", "linear":
		return Slider, nil
	case "fixed":
		return Fixed, nil
	case "sixdof", "6dof":
		return SixDOF, nil
	default:
		return 0, fmt.Errorf("unknown joint kind: %s", s)
	}
}

// DriverKind enumerates driver behaviours. NoDriver is the wire tag for "absent".
type DriverKind uint8

const (
	NoDriver    DriverKind = iota
	Motor                  // continuous rotation, wheels
	LinearMotor            // elevator / slider actuation
	Solenoid               // binary extend/retract piston
)

func (k DriverKind) String() string {
	switch k {
	case NoDriver:
		return "none"
	case Motor:
		return "motor"
	case LinearMotor:
		return "linear_motor"
	case Solenoid:
		return "solenoid"
	default:
		return fmt.Sprintf("DriverKind(%d)", uint8(k))
	}
}

func (k DriverKind) Valid() bool { return k >= Motor && k <= Solenoid }

// Channel is the output channel group a driver's port belongs to. Ports must
// be unique within a group.
type Channel int

const (
	ChannelPWM Channel = iota
	ChannelCAN
)

func (c Channel) String() string {
	if c == ChannelCAN {
		return "can"
	}
	return "pwm"
}

func (k DriverKind) Channel() Channel {
	if k == Solenoid {
		return ChannelCAN
	}
	return ChannelPWM
}

// ParseDriverKind maps the names used in rig descriptions to a kind.
func ParseDriverKind(s string) (DriverKind, error) {
	switch s {
	case "", "none":
		return NoDriver, nil
	case "motor":
		return Motor, nil
	case "linear_motor", "elevator":
		return LinearMotor, nil
	case "solenoid":
		return Solenoid, nil
	default:
		return 0, fmt.Errorf("unknown driver kind: %s", s)
	}
}

// Limits bounds a joint coordinate: radians for hinges, length units for sliders.
type Limits struct {
	Min, Max float64
}

func (l Limits) Clamp(v float64) float64 {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

// Joint attaches a node to its parent. Axis and Anchor are in the child's
// local frame.
type Joint struct {
	Kind   JointKind
	Axis   geom.Vec3
	Anchor geom.Vec3
	Limits *Limits
	Driver *Driver
}

func (j *Joint) clone() *Joint {
	if j == nil {
		return nil
	}
	c := *j
	if j.Limits != nil {
		l := *j.Limits
		c.Limits = &l
	}
	c.Driver = j.Driver.clone()
	return &c
}

func (j *Joint) validate() error {
	if !j.Kind.Valid() {
		return fmt.Errorf("invalid joint kind %d", uint8(j.Kind))
	}
	if j.Kind != Fixed && (j.Axis.IsZero() || !j.Axis.IsValid()) {
		return fmt.Errorf("%s joint needs a non-zero axis", j.Kind)
	}
	if j.Limits != nil && j.Limits.Min > j.Limits.Max {
		return fmt.Errorf("limits min %.4f > max %.4f", j.Limits.Min, j.Limits.Max)
	}
	if j.Driver != nil {
		if !j.Driver.Kind.Valid() {
			return fmt.Errorf("invalid driver kind %d", uint8(j.Driver.Kind))
		}
		if j.Driver.Port < 0 {
			return fmt.Errorf("negative driver port %d", j.Driver.Port)
		}
	}
	return nil
}

// Driver converts a control port into joint motion. Zero constants mean the
// value was never configured.
type Driver struct {
	Kind          DriverKind
	Port          int
	MaxForce      float64
	MaxSpeed      float64
	CoastFriction float64
	Meta          []Meta
}

func (d *Driver) clone() *Driver {
	if d == nil {
		return nil
	}
	c := *d
	c.Meta = append([]Meta(nil), d.Meta...)
	return &c
}

func (d *Driver) HasMeta(tag MetaTag) bool {
	if d == nil {
		return false
	}
	for _, m := range d.Meta {
		if m.Tag() == tag {
			return true
		}
	}
	return false
}

// Wheel returns the first wheel tag, if any.
func (d *Driver) Wheel() (MetaWheel, bool) {
	if d == nil {
		return MetaWheel{}, false
	}
	for _, m := range d.Meta {
		if w, ok := m.(MetaWheel); ok {
			return w, true
		}
	}
	return MetaWheel{}, false
}

// Elevator returns the first elevator tag, if any.
func (d *Driver) Elevator() (MetaElevator, bool) {
	if d == nil {
		return MetaElevator{}, false
	}
	for _, m := range d.Meta {
		if e, ok := m.(MetaElevator); ok {
			return e, true
		}
	}
	return MetaElevator{}, false
}

// MetaTag identifies a driver meta variant on the wire.
type MetaTag uint8

const (
	MetaTagWheel    MetaTag = 1
	MetaTagElevator MetaTag = 2
)

func (t MetaTag) String() string {
	switch t {
	case MetaTagWheel:
		return "wheel"
	case MetaTagElevator:
		return "elevator"
	default:
		return fmt.Sprintf("MetaTag(%d)", uint8(t))
	}
}

// Meta is a semantic label on a driver. Implementations are restricted to
// this package.
type Meta interface {
	Tag() MetaTag
	meta()
}

type WheelSide uint8

const (
	SideCenter WheelSide = iota
	SideLeft
	SideRight
)

func (s WheelSide) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "center"
	}
}

// MetaWheel marks a motor as a drivetrain wheel.
type MetaWheel struct {
	Radius float64
	Side   WheelSide
}

func (MetaWheel) Tag() MetaTag { return MetaTagWheel }
func (MetaWheel) meta()        {}

// MetaElevator marks a linear motor as an elevator stage.
type MetaElevator struct {
	Stage uint8
}

func (MetaElevator) Tag() MetaTag { return MetaTagElevator }
func (MetaElevator) meta()        {}
