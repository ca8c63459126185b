package rig

import "sort"

const wheelDensity = 0.002

// Presets build fresh descriptions so callers may modify what they get.
var Presets = map[string]func() *Description{
	"tank":      tank,
	"elevator":  elevator,
	"pneumatic": pneumatic,
}

func GetPreset(name string) *Description {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func tank() *Description {
	return &Description{
		Name:        "tank",
		Description: "two-wheel differential drive base with front and rear casters",
		Chassis: Part{
			Name:    "chassis",
			Shape:   Shape{Kind: ShapeBox, Size: Vec{30, 8, 40}},
			Density: 0.001,
		},
		Parts: []Part{
			wheel("left_wheel", 0, Vec{1, 0, 0}, -17, "left"),
			wheel("right_wheel", 1, Vec{-1, 0, 0}, 17, "right"),
			caster("front_caster", 15),
			caster("rear_caster", -15),
		},
	}
}

func elevator() *Description {
	d := tank()
	d.Name = "elevator"
	d.Description = "tank base carrying a two-stage lift"
	d.Parts = append(d.Parts,
		Part{
			Name:    "stage1",
			Joint:   &JointSpec{Kind: "slider", Axis: Vec{0, -1, 0}, Anchor: Vec{0, 4, -15}, Limits: &[2]float64{0, 30}},
			Driver:  &DriverSpec{Kind: "linear_motor", Port: 2, Elevator: &ElevatorSpec{Stage: 0}},
			Shape:   Shape{Kind: ShapeBox, Size: Vec{20, 40, 2}},
			Density: 0.001,
		},
		Part{
			Name:    "stage2",
			Parent:  "stage1",
			Joint:   &JointSpec{Kind: "slider", Axis: Vec{0, -1, 0}, Anchor: Vec{0, 2, 1}, Limits: &[2]float64{0, 25}},
			Driver:  &DriverSpec{Kind: "linear_motor", Port: 3, Elevator: &ElevatorSpec{Stage: 1}},
			Shape:   Shape{Kind: ShapeBox, Size: Vec{16, 36, 2}},
			Density: 0.001,
		},
	)
	return d
}

func pneumatic() *Description {
	d := tank()
	d.Name = "pneumatic"
	d.Description = "tank base with a solenoid-driven kicker on CAN 0"
	d.Parts = append(d.Parts, Part{
		Name:    "kicker",
		Joint:   &JointSpec{Kind: "sixdof", Axis: Vec{0, 0, 1}, Anchor: Vec{0, 6, 10}, Limits: &[2]float64{-2, 8}},
		Driver:  &DriverSpec{Kind: "solenoid", Port: 0, MaxForce: 40},
		Shape:   Shape{Kind: ShapeBox, Size: Vec{4, 4, 20}},
		Density: 0.001,
	})
	return d
}

func wheel(name string, port int, axis Vec, x float64, side string) Part {
	return Part{
		Name:    name,
		Joint:   &JointSpec{Kind: "hinge", Axis: axis, Anchor: Vec{x, -4, 0}},
		Driver:  &DriverSpec{Kind: "motor", Port: port, Wheel: &WheelSpec{Radius: 5, Side: side}},
		Shape:   Shape{Kind: ShapeCylinder, Radius: 5, Height: 3, Axis: "x"},
		Density: wheelDensity,
	}
}

func caster(name string, z float64) Part {
	return Part{
		Name:    name,
		Joint:   &JointSpec{Kind: "hinge", Axis: Vec{1, 0, 0}, Anchor: Vec{0, -7, z}},
		Shape:   Shape{Kind: ShapeCylinder, Radius: 2, Height: 2, Axis: "x"},
		Density: wheelDensity,
	}
}
