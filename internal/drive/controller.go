package drive

import (
	"errors"

	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/skeleton"
)

const (
	DefaultPWMPorts = 10
	DefaultCANPorts = 16
)

// skip reasons, used as metric labels
const (
	skipMissingForce = "missing_max_force"
	skipBadMass      = "bad_mass"
	skipNoBody       = "no_body"
)

type target struct {
	node   *skeleton.Node
	driver *skeleton.Driver
	consts Constants
}

// TickReport counts what one Update did.
type TickReport struct {
	Updated int
	Skipped int
}

// Controller writes constraint targets for every driven joint of a skeleton.
type Controller struct {
	skel     *skeleton.Skeleton
	binding  Binding
	consts   Constants
	pwmPorts int
	canPorts int

	pwm map[int][]target
	can map[int][]target

	hinges  map[skeleton.NodeID]HingeMotor
	sliders map[skeleton.NodeID]SliderMotor
	pistons map[skeleton.NodeID]LinearMotor

	log      logging.Logger
	metrics  *observability.DriveCollector
	reporter *reporter
}

type Option func(*Controller)

// WithPorts sets the configured PWM and CAN port ranges.
func WithPorts(pwm, can int) Option {
	return func(c *Controller) {
		c.pwmPorts, c.canPorts = pwm, can
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithCollector(m *observability.DriveCollector) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController plans the drive loop for skel. Configuration problems found
// while planning are reported once and the offending nodes are left out.
func NewController(skel *skeleton.Skeleton, binding Binding, consts Constants, opts ...Option) *Controller {
	c := &Controller{
		skel:     skel,
		binding:  binding,
		consts:   consts,
		pwmPorts: DefaultPWMPorts,
		canPorts: DefaultCANPorts,
		pwm:      make(map[int][]target),
		can:      make(map[int][]target),
		hinges:   make(map[skeleton.NodeID]HingeMotor),
		sliders:  make(map[skeleton.NodeID]SliderMotor),
		pistons:  make(map[skeleton.NodeID]LinearMotor),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reporter = newReporter(c.log, c.metrics)
	c.metrics.SetNodes(skel.Len())
	c.plan()
	return c
}

func (c *Controller) plan() {
	owner := map[skeleton.Channel]map[int]*skeleton.Node{
		skeleton.ChannelPWM: {},
		skeleton.ChannelCAN: {},
	}

	for n := range c.skel.ListAllNodes() {
		d := n.Driver()
		if d == nil || d.Kind == skeleton.NoDriver {
			continue
		}

		ch := d.Kind.Channel()
		limit := c.pwmPorts
		if ch == skeleton.ChannelCAN {
			limit = c.canPorts
		}
		if d.Port < 0 || d.Port >= limit {
			c.reporter.report(configError(n, d.Port, "%s port outside configured range [0,%d)", ch, limit))
			continue
		}
		if prev, taken := owner[ch][d.Port]; taken {
			c.reporter.report(configError(n, d.Port, "%s port already used by node %d (%s)", ch, prev.ID, prev.Name))
			continue
		}

		if !c.bind(n, d) {
			continue
		}
		owner[ch][d.Port] = n

		t := target{node: n, driver: d, consts: c.consts.forDriver(d)}
		if ch == skeleton.ChannelCAN {
			c.can[d.Port] = append(c.can[d.Port], t)
		} else {
			c.pwm[d.Port] = append(c.pwm[d.Port], t)
		}
	}
}

// bind resolves the constraint a driver writes to and checks the meta gate.
func (c *Controller) bind(n *skeleton.Node, d *skeleton.Driver) bool {
	switch d.Kind {
	case skeleton.Motor:
		if !d.HasMeta(skeleton.MetaTagWheel) {
			c.reporter.report(configError(n, d.Port, "motor has no wheel meta; not driven"))
			return false
		}
		h, ok := c.binding.Hinge(n.ID)
		if !ok {
			c.reporter.report(configError(n, d.Port, "motor has no bound hinge constraint"))
			return false
		}
		c.hinges[n.ID] = h
	case skeleton.LinearMotor:
		if !d.HasMeta(skeleton.MetaTagElevator) {
			c.reporter.report(configError(n, d.Port, "linear motor has no elevator meta; not driven"))
			return false
		}
		s, ok := c.binding.Slider(n.ID)
		if !ok {
			c.reporter.report(configError(n, d.Port, "linear motor has no bound slider constraint"))
			return false
		}
		c.sliders[n.ID] = s
	case skeleton.Solenoid:
		p, ok := c.binding.LinearMotor(n.ID)
		if !ok {
			c.reporter.report(configError(n, d.Port, "solenoid has no bound six-dof constraint"))
			return false
		}
		c.pistons[n.ID] = p
	default:
		return false
	}
	return true
}

// Update applies one tick of signals. Signal indices beyond the configured
// port ranges are reported once and ignored.
func (c *Controller) Update(sig Signals, dt float64) TickReport {
	var rep TickReport
	c.metrics.IncTick()

	for i, v := range sig.PWM {
		if i >= c.pwmPorts {
			c.reporter.report(configError(nil, i, "pwm signal index outside configured range [0,%d)", c.pwmPorts))
			break
		}
		for _, t := range c.pwm[i] {
			switch t.driver.Kind {
			case skeleton.Motor:
				vel, imp := MotorCommand(v, t.consts)
				c.hinges[t.node.ID].SetMotorTarget(vel, imp)
			case skeleton.LinearMotor:
				vel, force := SliderCommand(v, t.consts)
				s := c.sliders[t.node.ID]
				s.SetPoweredLinearMotor(true)
				s.SetMaxLinearMotorForce(force)
				s.SetTargetLinearMotorVelocity(vel)
			}
			rep.Updated++
			c.metrics.IncUpdate(t.driver.Kind.String())
		}
	}

	for i, v := range sig.CAN {
		if i >= c.canPorts {
			c.reporter.report(configError(nil, i, "can signal index outside configured range [0,%d)", c.canPorts))
			break
		}
		if v == 0 {
			continue
		}
		for _, t := range c.can[i] {
			if c.fire(t, v > 0, dt) {
				rep.Updated++
				c.metrics.IncUpdate(t.driver.Kind.String())
			} else {
				rep.Skipped++
			}
		}
	}

	return rep
}

// SetSolenoid fires the solenoid on node id forward or backward. It returns
// false when the node is not a planned solenoid or the fire was skipped.
func (c *Controller) SetSolenoid(id skeleton.NodeID, forward bool, dt float64) bool {
	n, ok := c.skel.Node(id)
	if !ok {
		return false
	}
	d, ok := n.DriverOf(skeleton.Solenoid)
	if !ok {
		return false
	}
	for _, t := range c.can[d.Port] {
		if t.node.ID == id {
			return c.fire(t, forward, dt)
		}
	}
	return false
}

func (c *Controller) fire(t target, forward bool, dt float64) bool {
	body, ok := c.binding.Body(t.node.ID)
	if !ok {
		c.reporter.report(configError(t.node, t.driver.Port, "solenoid has no bound body"))
		c.metrics.IncSkip(skipNoBody)
		return false
	}
	piston := c.pistons[t.node.ID]

	maxForce := t.driver.MaxForce
	if maxForce <= 0 {
		maxForce = piston.MaxLinearMotorForce()
	}

	accel, err := SolenoidAcceleration(maxForce, body.Mass(), forward, t.consts)
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Node, ce.Name, ce.Port = t.node.ID, t.node.Name, t.driver.Port
			c.reporter.report(ce)
		}
		if body.Mass() <= 0 {
			c.metrics.IncSkip(skipBadMass)
		} else {
			c.metrics.IncSkip(skipMissingForce)
		}
		return false
	}

	axis := body.WorldTransform().Rotation.Rotate(t.node.Joint.Axis)
	piston.SetLinearMotorTarget(accel*dt - body.Velocity().Dot(axis))
	return true
}

// ConfigErrors returns every distinct configuration error reported so far.
func (c *Controller) ConfigErrors() []*ConfigurationError {
	return append([]*ConfigurationError(nil), c.reporter.errs...)
}

// Driven lists the planned nodes in port order, PWM group first.
func (c *Controller) Driven() []*skeleton.Node {
	var out []*skeleton.Node
	for i := 0; i < c.pwmPorts; i++ {
		for _, t := range c.pwm[i] {
			out = append(out, t.node)
		}
	}
	for i := 0; i < c.canPorts; i++ {
		for _, t := range c.can[i] {
			out = append(out, t.node)
		}
	}
	return out
}

func (c *Controller) Skeleton() *skeleton.Skeleton { return c.skel }

func (c *Controller) Binding() Binding { return c.binding }
