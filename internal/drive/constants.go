package drive

import (
	"fmt"
	"math"

	"github.com/san-kum/rigsim/internal/skeleton"
)

const (
	DefaultWheelMaxSpeed      = 300.0
	DefaultMaxMotorImpulse    = 0.1
	DefaultMotorCoastFriction = 0.025
	DefaultMaxSliderForce     = 100.0
	DefaultMaxSliderSpeed     = 5.0

	DefaultSolenoidPressurePSI = 60.0
	DefaultBoreRadiusMM        = 6.35

	// PSIToNPerMM2 converts pounds per square inch to newtons per mm².
	PSIToNPerMM2 = 0.00689475728
)

// Constants are the physical limits used when a driver does not configure
// its own. Driver constants greater than zero take precedence.
type Constants struct {
	WheelMaxSpeed      float64 `yaml:"wheel_max_speed"`
	MaxMotorImpulse    float64 `yaml:"max_motor_impulse"`
	MotorCoastFriction float64 `yaml:"motor_coast_friction"`
	MaxSliderForce     float64 `yaml:"max_slider_force"`
	MaxSliderSpeed     float64 `yaml:"max_slider_speed"`

	// DeriveSolenoidForce enables the pressure × bore area fallback for
	// solenoids without a max force. When false such solenoids are skipped.
	DeriveSolenoidForce bool    `yaml:"derive_solenoid_force"`
	SolenoidPressurePSI float64 `yaml:"solenoid_pressure_psi"`
	BoreRadiusMM        float64 `yaml:"bore_radius_mm"`
}

func DefaultConstants() Constants {
	return Constants{
		WheelMaxSpeed:       DefaultWheelMaxSpeed,
		MaxMotorImpulse:     DefaultMaxMotorImpulse,
		MotorCoastFriction:  DefaultMotorCoastFriction,
		MaxSliderForce:      DefaultMaxSliderForce,
		MaxSliderSpeed:      DefaultMaxSliderSpeed,
		SolenoidPressurePSI: DefaultSolenoidPressurePSI,
		BoreRadiusMM:        DefaultBoreRadiusMM,
	}
}

func (c Constants) Validate() error {
	for name, v := range map[string]float64{
		"wheel_max_speed":      c.WheelMaxSpeed,
		"max_motor_impulse":    c.MaxMotorImpulse,
		"motor_coast_friction": c.MotorCoastFriction,
		"max_slider_force":     c.MaxSliderForce,
		"max_slider_speed":     c.MaxSliderSpeed,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("drive constant %s must be a finite non-negative number, got %v", name, v)
		}
	}
	if c.DeriveSolenoidForce && (c.SolenoidPressurePSI <= 0 || c.BoreRadiusMM <= 0) {
		return fmt.Errorf("derive_solenoid_force needs positive solenoid_pressure_psi and bore_radius_mm")
	}
	return nil
}

// forDriver overlays the driver's own configured constants.
func (c Constants) forDriver(d *skeleton.Driver) Constants {
	if d == nil {
		return c
	}
	switch d.Kind {
	case skeleton.Motor:
		if d.MaxSpeed > 0 {
			c.WheelMaxSpeed = d.MaxSpeed
		}
		if d.MaxForce > 0 {
			c.MaxMotorImpulse = d.MaxForce
		}
		if d.CoastFriction > 0 {
			c.MotorCoastFriction = d.CoastFriction
		}
	case skeleton.LinearMotor:
		if d.MaxSpeed > 0 {
			c.MaxSliderSpeed = d.MaxSpeed
		}
		if d.MaxForce > 0 {
			c.MaxSliderForce = d.MaxForce
		}
	}
	return c
}

// MotorCommand is the wheel law: full speed in the sign of pwm with impulse
// scaled by |pwm|, or coast friction when pwm is zero.
func MotorCommand(pwm float64, c Constants) (velocity, maxImpulse float64) {
	switch {
	case pwm > 0:
		velocity = c.WheelMaxSpeed
	case pwm < 0:
		velocity = -c.WheelMaxSpeed
	}
	if pwm == 0 {
		return 0, c.MotorCoastFriction
	}
	return velocity, math.Abs(pwm * c.MaxMotorImpulse)
}

// SliderCommand is the elevator law.
func SliderCommand(pwm float64, c Constants) (velocity, maxForce float64) {
	return pwm * c.MaxSliderSpeed, c.MaxSliderForce
}

// PneumaticForce is the force of a piston at the configured pressure.
func (c Constants) PneumaticForce() float64 {
	return c.SolenoidPressurePSI * PSIToNPerMM2 * math.Pi * c.BoreRadiusMM * c.BoreRadiusMM
}

// SolenoidAcceleration is the signed acceleration a piston fire commands.
// A non-positive maxForce falls back to the pneumatic force when enabled;
// otherwise the fire is a configuration gap.
func SolenoidAcceleration(maxForce, mass float64, forward bool, c Constants) (float64, error) {
	if mass <= 0 || math.IsNaN(mass) {
		return 0, &ConfigurationError{Node: skeleton.NoNode, Port: -1, Reason: fmt.Sprintf("body mass %v is not positive", mass)}
	}

	force := maxForce
	if force <= 0 {
		if !c.DeriveSolenoidForce {
			return 0, &ConfigurationError{Node: skeleton.NoNode, Port: -1, Reason: "solenoid has no max force configured"}
		}
		force = c.PneumaticForce()
	}

	dir := -1.0
	if forward {
		dir = 1.0
	}
	return force / mass * dir, nil
}
