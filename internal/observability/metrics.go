// Package observability exposes Prometheus metrics for the drive loop.
package observability

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// DriveCollector bundles the control-loop metrics. A nil collector is valid
// and records nothing.
type DriveCollector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	DriverUpdates *prometheus.CounterVec
	DriverSkips   *prometheus.CounterVec
	ConfigErrors  prometheus.Counter
	Nodes         prometheus.Gauge
	Resets        prometheus.Counter
}

// NewDriveCollector registers drive metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing collectors.
func NewDriveCollector(reg prometheus.Registerer) (*DriveCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rigsim_ticks_total",
		Help: "Control ticks processed.",
	}), "rigsim_ticks_total")
	if err != nil {
		return nil, err
	}

	updates, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rigsim_driver_updates_total",
		Help: "Constraint target updates written, labeled by driver kind.",
	}, []string{"kind"}), "rigsim_driver_updates_total")
	if err != nil {
		return nil, err
	}

	skips, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rigsim_driver_skips_total",
		Help: "Driver updates skipped, labeled by reason.",
	}, []string{"reason"}), "rigsim_driver_skips_total")
	if err != nil {
		return nil, err
	}

	configErrs, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rigsim_configuration_errors_total",
		Help: "Distinct configuration errors reported.",
	}), "rigsim_configuration_errors_total")
	if err != nil {
		return nil, err
	}

	nodes, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rigsim_skeleton_nodes",
		Help: "Nodes in the bound skeleton.",
	}), "rigsim_skeleton_nodes")
	if err != nil {
		return nil, err
	}

	resets, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rigsim_orient_resets_total",
		Help: "Assembly orient/reset operations applied.",
	}), "rigsim_orient_resets_total")
	if err != nil {
		return nil, err
	}

	return &DriveCollector{
		gatherer:      gatherer,
		Ticks:         ticks,
		DriverUpdates: updates,
		DriverSkips:   skips,
		ConfigErrors:  configErrs,
		Nodes:         nodes,
		Resets:        resets,
	}, nil
}

func (c *DriveCollector) IncTick() {
	if c == nil {
		return
	}
	c.Ticks.Inc()
}

func (c *DriveCollector) IncUpdate(kind string) {
	if c == nil {
		return
	}
	c.DriverUpdates.WithLabelValues(kind).Inc()
}

func (c *DriveCollector) IncSkip(reason string) {
	if c == nil {
		return
	}
	c.DriverSkips.WithLabelValues(reason).Inc()
}

func (c *DriveCollector) IncConfigError() {
	if c == nil {
		return
	}
	c.ConfigErrors.Inc()
}

func (c *DriveCollector) SetNodes(n int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(n))
}

func (c *DriveCollector) IncReset() {
	if c == nil {
		return
	}
	c.Resets.Inc()
}

// Gatherer returns the gatherer paired with the registerer.
func (c *DriveCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the gathered metrics over HTTP.
func (c *DriveCollector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Dump writes the gathered rigsim metrics in the text exposition format.
func (c *DriveCollector) Dump(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
