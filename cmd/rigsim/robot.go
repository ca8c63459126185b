package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/rigsim/internal/codec"
	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/metrics"
	"github.com/san-kum/rigsim/internal/observability"
	"github.com/san-kum/rigsim/internal/physics"
	"github.com/san-kum/rigsim/internal/sim"
	"github.com/san-kum/rigsim/internal/skeleton"
)

var (
	collector     *observability.DriveCollector
	collectorOnce sync.Once
)

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	var err error
	collectorOnce.Do(func() {
		collector, err = observability.NewDriveCollector(prometheus.NewRegistry())
	})
	return cfg, err
}

// robot is a loaded robot bound to a fresh physics world.
type robot struct {
	skel   *skeleton.Skeleton
	meshes []*codec.Mesh
	world  *physics.World
	ctrl   *drive.Controller
	log    logging.Logger
}

func openRobot(dir string, cfg *config.Config) (*robot, error) {
	skel, meshes, err := codec.ReadRobot(dir, nil)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger().With(logging.String("robot", dir))
	world := physics.NewWorld(skel, meshes)
	opts := append(cfg.DriveOptions(), drive.WithLogger(log), drive.WithCollector(collector))
	ctrl := drive.NewController(skel, world, cfg.Drive, opts...)

	return &robot{skel: skel, meshes: meshes, world: world, ctrl: ctrl, log: log}, nil
}

// newSimulator opens dir and wires it to sched, or to the configured named
// source when sched is nil.
func newSimulator(dir string, cfg *config.Config, sched *control.Schedule) (*sim.Simulator, error) {
	r, err := openRobot(dir, cfg)
	if err != nil {
		return nil, err
	}

	var src control.Source = sched
	if sched == nil {
		src, err = control.NewRegistry().Get(cfg.Source, cfg.ControllerParams(r.measure(cfg.Hold.Node)))
		if err != nil {
			return nil, err
		}
	}

	s := sim.New(r.world, r.ctrl, src, sim.WithLogger(r.log), sim.WithCollector(collector))
	for _, m := range metrics.Defaults(s.Telemetry().Columns(), cfg.Metrics.StabilityThreshold) {
		s.AddMetric(m)
	}
	return s, nil
}

// newHoldSimulator runs the hold source and scores how closely the held
// node's travel tracks the target.
func newHoldSimulator(dir string, cfg *config.Config) (*sim.Simulator, error) {
	s, err := newSimulator(dir, cfg, nil)
	if err != nil {
		return nil, err
	}
	column := cfg.Hold.Node + ".position"
	for i, c := range s.Telemetry().Columns() {
		if c == column {
			s.AddMetric(metrics.NewTrackingError(column, i, cfg.Hold.Target))
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s is not a driven linear joint", cfg.Hold.Node)
}

// measure reads the travel of the named node, or nil when it is absent.
func (r *robot) measure(name string) control.Measurement {
	n, ok := r.skel.Lookup(name)
	if !ok {
		return nil
	}
	return func() (float64, bool) { return r.ctrl.LinearPosition(n.ID) }
}

func renderTree(r *robot) string {
	var b strings.Builder
	var walk func(id skeleton.NodeID, prefix string, last bool)
	walk = func(id skeleton.NodeID, prefix string, last bool) {
		n, _ := r.skel.Node(id)
		branch, next := "├─ ", "│  "
		if last {
			branch, next = "└─ ", "   "
		}
		if n.IsRoot() {
			branch, next = "", ""
		}

		line := n.Name
		if n.Joint != nil {
			line += dimStyle.Render(" " + n.Joint.Kind.String())
		}
		if d := n.Driver(); d != nil {
			line += " " + driveStyle.Render(fmt.Sprintf("[%s %s %d]", d.Kind, d.Kind.Channel(), d.Port))
		}
		if int(n.ID) < len(r.meshes) && r.meshes[n.ID] != nil {
			m := r.meshes[n.ID]
			line += dimStyle.Render(fmt.Sprintf("  mass %.3f  tris %d", m.Mass, m.TriangleCount()))
		}
		b.WriteString(prefix + branch + line + "\n")

		for i, c := range n.Children {
			walk(c, prefix+next, i == len(n.Children)-1)
		}
	}
	walk(r.skel.RootID(), "", true)
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
