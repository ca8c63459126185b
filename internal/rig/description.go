package rig

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/skeleton"
)

// Vec is a YAML-friendly [x, y, z].
type Vec [3]float64

func (v Vec) Geom() geom.Vec3 { return geom.V(v[0], v[1], v[2]) }

type Description struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Chassis     Part   `yaml:"chassis"`
	Parts       []Part `yaml:"parts"`
}

// Part is one body. The chassis ignores Parent, Joint and Driver.
type Part struct {
	Name    string      `yaml:"name"`
	Parent  string      `yaml:"parent,omitempty"`
	Joint   *JointSpec  `yaml:"joint,omitempty"`
	Driver  *DriverSpec `yaml:"driver,omitempty"`
	Shape   Shape       `yaml:"shape"`
	Density float64     `yaml:"density"`
}

type JointSpec struct {
	Kind   string      `yaml:"kind"`
	Axis   Vec         `yaml:"axis"`
	Anchor Vec         `yaml:"anchor"`
	Limits *[2]float64 `yaml:"limits,omitempty"`
}

type DriverSpec struct {
	Kind          string        `yaml:"kind"`
	Port          int           `yaml:"port"`
	MaxForce      float64       `yaml:"max_force,omitempty"`
	MaxSpeed      float64       `yaml:"max_speed,omitempty"`
	CoastFriction float64       `yaml:"coast_friction,omitempty"`
	Wheel         *WheelSpec    `yaml:"wheel,omitempty"`
	Elevator      *ElevatorSpec `yaml:"elevator,omitempty"`
}

type WheelSpec struct {
	Radius float64 `yaml:"radius"`
	Side   string  `yaml:"side,omitempty"`
}

type ElevatorSpec struct {
	Stage uint8 `yaml:"stage"`
}

const (
	ShapeBox      = "box"
	ShapeCylinder = "cylinder"
)

// Shape is a primitive centred on the body origin. Cylinders run along
// Axis ("x", "y" or "z", default "z").
type Shape struct {
	Kind   string  `yaml:"kind"`
	Size   Vec     `yaml:"size,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
	Height float64 `yaml:"height,omitempty"`
	Axis   string  `yaml:"axis,omitempty"`
}

func (s Shape) Volume() float64 {
	switch s.Kind {
	case ShapeBox:
		return s.Size[0] * s.Size[1] * s.Size[2]
	case ShapeCylinder:
		return math.Pi * s.Radius * s.Radius * s.Height
	default:
		return 0
	}
}

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeBox:
		if s.Size[0] <= 0 || s.Size[1] <= 0 || s.Size[2] <= 0 {
			return fmt.Errorf("box size %v must be positive", s.Size)
		}
	case ShapeCylinder:
		if s.Radius <= 0 || s.Height <= 0 {
			return fmt.Errorf("cylinder needs positive radius and height")
		}
		switch s.Axis {
		case "", "x", "y", "z":
		default:
			return fmt.Errorf("unknown cylinder axis %q", s.Axis)
		}
	default:
		return fmt.Errorf("unknown shape %q", s.Kind)
	}
	return nil
}

func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse robot description: %w", err)
	}
	return &d, nil
}

func Save(path string, d *Description) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (j *JointSpec) joint() (*skeleton.Joint, error) {
	kind, err := skeleton.ParseJointKind(j.Kind)
	if err != nil {
		return nil, err
	}
	out := &skeleton.Joint{Kind: kind, Axis: j.Axis.Geom(), Anchor: j.Anchor.Geom()}
	if j.Limits != nil {
		out.Limits = &skeleton.Limits{Min: j.Limits[0], Max: j.Limits[1]}
	}
	return out, nil
}

func (d *DriverSpec) driver() (*skeleton.Driver, error) {
	kind, err := skeleton.ParseDriverKind(d.Kind)
	if err != nil {
		return nil, err
	}
	out := &skeleton.Driver{
		Kind:          kind,
		Port:          d.Port,
		MaxForce:      d.MaxForce,
		MaxSpeed:      d.MaxSpeed,
		CoastFriction: d.CoastFriction,
	}
	if d.Wheel != nil {
		side, err := parseSide(d.Wheel.Side)
		if err != nil {
			return nil, err
		}
		out.Meta = append(out.Meta, skeleton.MetaWheel{Radius: d.Wheel.Radius, Side: side})
	}
	if d.Elevator != nil {
		out.Meta = append(out.Meta, skeleton.MetaElevator{Stage: d.Elevator.Stage})
	}
	return out, nil
}

func parseSide(s string) (skeleton.WheelSide, error) {
	switch s {
	case "", "center":
		return skeleton.SideCenter, nil
	case "left":
		return skeleton.SideLeft, nil
	case "right":
		return skeleton.SideRight, nil
	default:
		return 0, fmt.Errorf("unknown wheel side %q", s)
	}
}
