package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/orient"
)

// Simulator runs the fixed-rate control loop: poll the source, update the
// drive targets, orient if a reset is due, then step the world.
type Simulator struct {
	world     Stepper
	ctrl      *drive.Controller
	source    control.Source
	telemetry *Telemetry
	metrics   []Metric
	observers []Observer

	log       logging.Logger
	collector *observability.DriveCollector
}

type Option func(*Simulator)

func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

func WithCollector(c *observability.DriveCollector) Option {
	return func(s *Simulator) { s.collector = c }
}

func New(world Stepper, ctrl *drive.Controller, source control.Source, opts ...Option) *Simulator {
	s := &Simulator{
		world:     world,
		ctrl:      ctrl,
		source:    source,
		telemetry: NewTelemetry(ctrl),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Telemetry() *Telemetry { return s.telemetry }

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	result := &Result{
		Columns:  s.telemetry.Columns(),
		Samples:  make([]Sample, 0, steps+1),
		Controls: make([][]float64, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	resets := append([]float64(nil), cfg.ResetAt...)
	sort.Float64s(resets)
	origin := orient.DefaultOrigin
	if cfg.Origin != nil {
		origin = *cfg.Origin
	}

	x := s.telemetry.Read()
	t := 0.0
	dt := cfg.Dt

	result.Samples = append(result.Samples, x.Clone())
	result.Times = append(result.Times, t)

	s.log.Info(ctx, "run started",
		logging.Int("ticks", steps),
		logging.Float("dt", dt),
		logging.Int("driven", len(result.Columns)),
	)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.ConfigErrors = s.ctrl.ConfigErrors()
			return result, ctx.Err()
		default:
		}

		sig := s.source.Poll(t)

		for _, m := range s.metrics {
			m.Observe(x, sig, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, sig, t)
		}

		rep := s.ctrl.Update(sig, dt)
		result.Updated += rep.Updated
		result.Skipped += rep.Skipped

		for len(resets) > 0 && resets[0] <= t+dt/2 {
			resets = resets[1:]
			if _, err := orient.OrientSkeleton(s.ctrl.Skeleton(), s.ctrl.Binding(), origin); err != nil {
				result.Errors = append(result.Errors, &StepError{Time: t, Step: i, Err: err})
				continue
			}
			result.Resets++
			s.collector.IncReset()
			s.log.Debug(ctx, "robot oriented", logging.Float("t", t))
		}

		s.world.Step(dt)
		x = s.telemetry.Read()
		t += dt
		result.Ticks++

		if cfg.ValidateSamples && !x.IsValid() {
			result.Errors = append(result.Errors, &StepError{Time: t, Step: i, Err: ErrInvalidSample})
			break
		}

		result.Samples = append(result.Samples, x.Clone())
		result.Controls = append(result.Controls, append([]float64(nil), sig.PWM...))
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.ConfigErrors = s.ctrl.ConfigErrors()

	s.log.Info(ctx, "run finished",
		logging.Int("ticks", result.Ticks),
		logging.Int("skipped", result.Skipped),
		logging.Int("resets", result.Resets),
		logging.Int("config_errors", len(result.ConfigErrors)),
	)
	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	for _, r := range cfg.ResetAt {
		if r < 0 {
			return fmt.Errorf("reset time must not be negative, got %f", r)
		}
	}
	return nil
}

// RunWithCallback runs until the callback returns false or the duration
// elapses. The callback sees the sample and signals before each step.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample, drive.Signals, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	t := 0.0
	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sig := s.source.Poll(t)
		if !callback(s.telemetry.Read(), sig, t) {
			return nil
		}
		s.ctrl.Update(sig, cfg.Dt)
		s.world.Step(cfg.Dt)
		t += cfg.Dt
	}
	return nil
}
