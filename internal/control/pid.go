package control

import "github.com/san-kum/rigsim/internal/drive"

// Measurement reads the controlled quantity; false means no reading.
type Measurement func() (float64, bool)

// HoldPosition drives one PWM port with a PID loop so a measured joint
// position tracks Target. Output is clamped to [-1, 1].
type HoldPosition struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64

	port     int
	pwm, can int
	measure  Measurement

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewHoldPosition(port int, measure Measurement, kp, ki, kd, target float64) *HoldPosition {
	return &HoldPosition{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		Target:  target,
		port:    port,
		pwm:     drive.DefaultPWMPorts,
		can:     drive.DefaultCANPorts,
		measure: measure,
		first:   true,
	}
}

// WithPorts sizes the produced vectors.
func (p *HoldPosition) WithPorts(pwm, can int) *HoldPosition {
	p.pwm, p.can = pwm, can
	return p
}

func (p *HoldPosition) Poll(t float64) drive.Signals {
	sig := drive.NewSignals(p.pwm, p.can)
	if p.port < 0 || p.port >= len(sig.PWM) || p.measure == nil {
		return sig
	}
	x, ok := p.measure()
	if !ok {
		return sig
	}
	sig.PWM[p.port] = clamp(p.compute(x, t), -1, 1)
	return sig
}

func (p *HoldPosition) compute(x, t float64) float64 {
	err := p.Target - x

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.Kp * err
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t
		return u
	}
	return p.Kp * err
}

// Reset clears integral and derivative state
func (p *HoldPosition) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *HoldPosition) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

func (p *HoldPosition) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
