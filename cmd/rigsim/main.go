package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigsim/internal/codec"
	"github.com/san-kum/rigsim/internal/config"
	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/export"
	"github.com/san-kum/rigsim/internal/optim"
	"github.com/san-kum/rigsim/internal/rig"
	"github.com/san-kum/rigsim/internal/sim"
	"github.com/san-kum/rigsim/internal/storage"
	"github.com/san-kum/rigsim/internal/viz"
)

var (
	dataDir     string
	configFile  string
	dumpMetrics bool

	outDir     string
	boxMeshes  bool
	resolution int

	dt        float64
	duration  float64
	resetAt   []float64
	schedules []string
	source    string
	exportTo  string

	plotColumn string
	svgOut     string

	tuneNode   string
	tuneTarget float64
	tuneKp     []float64
	tuneKi     []float64
	tuneKd     []float64
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	driveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// main registers the rigsim commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "rigsim",
		Short:         "robot skeleton authoring and drive simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !dumpMetrics || collector == nil {
				return nil
			}
			return collector.Dump(os.Stderr)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigsim", "run data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "dump drive metrics to stderr on exit")

	buildCmd := &cobra.Command{
		Use:   "build [robot.yaml|preset]",
		Short: "build a robot directory from a description or preset",
		Args:  cobra.ExactArgs(1),
		RunE:  buildRobot,
	}
	buildCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: robot name)")
	buildCmd.Flags().BoolVar(&boxMeshes, "box", false, "emit bounding box meshes instead of tessellating")
	buildCmd.Flags().IntVar(&resolution, "resolution", 0, "marching cubes resolution (overrides config)")

	inspectCmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "print a robot's skeleton and drive plan",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectRobot,
	}
	inspectCmd.Flags().StringVar(&svgOut, "svg", "", "write a wireframe snapshot as SVG")

	runCmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "run a robot headless and store its telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  runRobot,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().Float64SliceVar(&resetAt, "reset-at", nil, "times at which to orient the robot")
	runCmd.Flags().StringArrayVar(&schedules, "schedule", nil, "control schedule (yaml); repeat to run several in parallel")
	runCmd.Flags().StringVar(&source, "source", "", "named control source when no schedule is given")
	runCmd.Flags().StringVar(&exportTo, "export", "", "also write the run as JSON to this path (- for stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotColumn, "column", "", "plot only this column")
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the plot as SVG")

	driveCmd := &cobra.Command{
		Use:   "drive [dir]",
		Short: "drive a robot interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  driveRobot,
	}
	driveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")

	tuneCmd := &cobra.Command{
		Use:   "tune [dir]",
		Short: "grid-search hold gains for a linear joint",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneHold,
	}
	tuneCmd.Flags().StringVar(&tuneNode, "node", "", "node whose travel is held (default: config hold.node)")
	tuneCmd.Flags().Float64Var(&tuneTarget, "target", 0, "target travel (default: config hold.target)")
	tuneCmd.Flags().Float64SliceVar(&tuneKp, "kp", []float64{1, 2, 4, 8}, "kp values")
	tuneCmd.Flags().Float64SliceVar(&tuneKi, "ki", []float64{0}, "ki values")
	tuneCmd.Flags().Float64SliceVar(&tuneKd, "kd", []float64{0, 0.2}, "kd values")
	tuneCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	tuneCmd.Flags().Float64Var(&duration, "time", 5, "duration of each run")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list robot presets and control sources",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(buildCmd, inspectCmd, runCmd, listCmd, plotCmd, driveCmd, tuneCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRobot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	desc := rig.GetPreset(args[0])
	if desc == nil {
		if desc, err = rig.Load(args[0]); err != nil {
			return fmt.Errorf("%s is neither a preset (%s) nor a readable description: %w",
				args[0], strings.Join(rig.ListPresets(), ", "), err)
		}
	}

	var mesher rig.Mesher = rig.SDFMesher{Resolution: cfg.Mesh.Resolution}
	if resolution > 0 {
		mesher = rig.SDFMesher{Resolution: resolution}
	}
	if boxMeshes {
		mesher = rig.BoxMesher{}
	}

	skel, meshes, err := rig.Build(desc, mesher, progressLine("tessellate"))
	if err != nil {
		return err
	}

	dir := outDir
	if dir == "" {
		dir = desc.Name
	}
	if err := codec.WriteRobot(dir, skel, meshes, progressLine("write")); err != nil {
		return err
	}
	fmt.Printf("built %s: %d nodes -> %s\n", desc.Name, skel.Len(), dir)
	return nil
}

func progressLine(label string) codec.Progress {
	return func(done, total int, stage string) {
		fmt.Fprintf(os.Stderr, "\r%-10s %3d/%-3d %s", label, done, total, stage)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func inspectRobot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := openRobot(args[0], cfg)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(filepath.Base(args[0])) + dimStyle.Render(fmt.Sprintf("  %d nodes", r.skel.Len())))
	fmt.Println()
	fmt.Print(renderTree(r))

	fmt.Println()
	fmt.Println(titleStyle.Render("drive plan"))
	driven := r.ctrl.Driven()
	if len(driven) == 0 {
		fmt.Println(dimStyle.Render("  no driven nodes"))
	}
	for _, n := range driven {
		d := n.Driver()
		fmt.Printf("  %s %s\n", driveStyle.Render(fmt.Sprintf("%-4s %2d", d.Kind.Channel(), d.Port)), n.Name)
	}
	for _, e := range r.ctrl.ConfigErrors() {
		fmt.Println(warnStyle.Render("  ! " + e.Error()))
	}

	if svgOut != "" {
		canvas := viz.NewCanvas(60, 24)
		cam := viz.NewCamera()
		if root, ok := r.world.Body(r.skel.RootID()); ok {
			cam.Target = root.WorldTransform().Origin
		}
		viz.Render(canvas, viz.SkeletonWireframe(r.skel, r.world, 10), cam)
		if err := os.WriteFile(svgOut, []byte(export.CanvasToSVG(canvas, 4)), 0644); err != nil {
			return err
		}
		fmt.Println(dimStyle.Render("wrote " + svgOut))
	}
	return nil
}

func runRobot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if source != "" {
		cfg.Source = source
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dir := args[0]
	robotName := filepath.Base(dir)
	simCfg := sim.Config{
		Dt:              cfg.Dt,
		Duration:        cfg.Duration,
		ResetAt:         resetAt,
		Origin:          &cfg.Orient.Origin,
		ValidateSamples: true,
	}

	var jobs []sim.Job
	var infos []storage.RunInfo
	if len(schedules) == 0 {
		jobs = append(jobs, sim.Job{Name: cfg.Source, Config: simCfg, Build: func() (*sim.Simulator, error) {
			return newSimulator(dir, cfg, nil)
		}})
		infos = append(infos, storage.RunInfo{Robot: robotName, Source: cfg.Source})
	}
	for _, path := range schedules {
		sched, err := control.LoadSchedule(path)
		if err != nil {
			return err
		}
		jobCfg := simCfg
		if !cmd.Flags().Changed("time") && sched.Duration() > 0 {
			jobCfg.Duration = sched.Duration()
		}
		jobs = append(jobs, sim.Job{Name: path, Config: jobCfg, Build: func() (*sim.Simulator, error) {
			return newSimulator(dir, cfg, sched)
		}})
		name := sched.Name
		if name == "" {
			name = filepath.Base(path)
		}
		infos = append(infos, storage.RunInfo{Robot: robotName, Source: "schedule:" + name})
	}

	results, err := sim.NewBatch(jobs...).Run(ctx)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	for i, result := range results {
		info := infos[i]
		info.Dt, info.Duration, info.ResetAt = jobs[i].Config.Dt, jobs[i].Config.Duration, resetAt

		runID, err := st.Save(info, result)
		if err != nil {
			return err
		}
		printResult(runID, info, result)

		if exportTo != "" {
			if err := exportRun(exportTo, i, len(results), info, result); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportRun(path string, i, n int, info storage.RunInfo, result *sim.Result) error {
	if path == "-" {
		return storage.ExportJSON(os.Stdout, info, result)
	}
	if n > 1 {
		ext := filepath.Ext(path)
		path = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), i, ext)
	}
	return storage.ExportJSONFile(path, info, result)
}

func printResult(runID string, info storage.RunInfo, result *sim.Result) {
	fmt.Printf("run %s (%s)\n", titleStyle.Render(runID), info.Source)
	fmt.Printf("  ticks %d  updated %d  skipped %d  resets %d\n", result.Ticks, result.Updated, result.Skipped, result.Resets)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Fprintf(w, "  %s\t%.4f\n", name, result.Metrics[name])
	}
	w.Flush()

	for _, e := range result.ConfigErrors {
		fmt.Println(warnStyle.Render("  ! " + e.Error()))
	}
	for _, e := range result.Errors {
		fmt.Println(warnStyle.Render("  ! " + e.Error()))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tSOURCE\tTIME\tDURATION\tDT\tTICKS\tERRORS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Robot,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Ticks,
			len(run.ConfigErrors)+len(run.Errors),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tel, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(tel.Samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("robot: %s\n", meta.Robot)
	fmt.Printf("samples: %d\n\n", len(tel.Samples))

	columns := meta.Columns
	if plotColumn != "" {
		columns = []string{plotColumn}
	}
	if len(columns) == 0 {
		return fmt.Errorf("run %s has no telemetry columns", runID)
	}

	var series []export.Series
	for _, col := range columns {
		data, ok := tel.Column(col)
		if !ok {
			return fmt.Errorf("unknown column %q (have %s)", col, strings.Join(meta.Columns, ", "))
		}
		series = append(series, export.Series{Name: col, Times: tel.Times, Values: data})
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.WriteSeriesSVG(f, series, 800, 400); err != nil {
			return err
		}
		return f.Close()
	}
	return nil
}

func tuneHold(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("node") {
		cfg.Hold.Node = tuneNode
	}
	if cmd.Flags().Changed("target") {
		cfg.Hold.Target = tuneTarget
	}
	if cfg.Hold.Node == "" {
		return fmt.Errorf("no node to hold: pass --node or set hold.node")
	}
	cfg.Dt, cfg.Duration, cfg.Source = dt, duration, "hold"
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metric := "tracking_error_" + cfg.Hold.Node + ".position"
	search := optim.NewGridSearch([]string{"kp", "ki", "kd"}, [][]float64{tuneKp, tuneKi, tuneKd})
	best, points, err := search.Search(ctx, func(p map[string]float64) (sim.Job, error) {
		c := *cfg
		c.Hold.Kp, c.Hold.Ki, c.Hold.Kd = p["kp"], p["ki"], p["kd"]
		return sim.Job{
			Config: sim.Config{Dt: c.Dt, Duration: c.Duration},
			Build:  func() (*sim.Simulator, error) { return newHoldSimulator(args[0], &c) },
		}, nil
	}, metric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KP\tKI\tKD\tERROR")
	for _, p := range points {
		fmt.Fprintf(w, "%g\t%g\t%g\t%.4f\n", p.Params["kp"], p.Params["ki"], p.Params["kd"], p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: %s kp=%g ki=%g kd=%g (%s %.4f)\n", titleStyle.Render(cfg.Hold.Node),
		best.Params["kp"], best.Params["ki"], best.Params["kd"], metric, best.Value)
	return nil
}

func driveRobot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	r, err := openRobot(args[0], cfg)
	if err != nil {
		return err
	}

	return viz.Run(viz.Session{
		World:  r.world,
		Ctrl:   r.ctrl,
		Manual: control.NewManual(nil, cfg.Ports.PWM, cfg.Ports.CAN),
		Dt:     cfg.Dt,
		Origin: cfg.Orient.Origin,
		Name:   filepath.Base(args[0]),
		Log:    r.log,
	})
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("robots"))
	for _, name := range rig.ListPresets() {
		d := rig.GetPreset(name)
		fmt.Printf("  %-10s %s\n", name, dimStyle.Render(d.Description))
	}
	fmt.Println()
	fmt.Println(titleStyle.Render("control sources"))
	for _, name := range control.NewRegistry().List() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
