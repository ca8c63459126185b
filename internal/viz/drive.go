package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/orient"
	"github.com/san-kum/rigsim/internal/sim"
)

const (
	canvasWidth     = 48
	canvasHeight    = 18
	historyCapacity = 240
	sparkWidth      = 24

	// HoldFrames is how long a key press counts as held.
	HoldFrames = 6
	// FrameRate is the target frames per second.
	FrameRate = 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/FrameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Session is what the drive view steps each frame.
type Session struct {
	World  sim.Stepper
	Ctrl   *drive.Controller
	Manual *control.Manual
	Dt     float64
	// TicksPerFrame defaults to the number of Dt steps in one frame.
	TicksPerFrame int
	Origin        geom.Vec3
	Name          string
	Log           logging.Logger
}

var keyBindings = map[string]control.Key{
	"up":    control.KeyUp,
	"down":  control.KeyDown,
	"left":  control.KeyLeft,
	"right": control.KeyRight,
	"1":     control.KeyRaise,
	"2":     control.KeyLower,
}

// Model is the Bubble Tea model of the drive view.
type Model struct {
	s         Session
	tel       *sim.Telemetry
	columns   []string
	current   sim.Sample
	history   [][]float64
	hold      map[control.Key]int
	t         float64
	ticks     int
	resets    int
	running   bool
	selected  int
	canvas    *Canvas
	camera    *Camera
	theme     Theme
	st        styles
	lastError string
}

func NewModel(s Session) Model {
	if s.Dt <= 0 {
		s.Dt = 1.0 / 60
	}
	if s.TicksPerFrame <= 0 {
		s.TicksPerFrame = max(1, int(1.0/FrameRate/s.Dt+0.5))
	}
	if s.Log == nil {
		s.Log = logging.Noop()
	}
	tel := sim.NewTelemetry(s.Ctrl)
	cols := tel.Columns()
	m := Model{
		s:       s,
		tel:     tel,
		columns: cols,
		current: tel.Read(),
		history: make([][]float64, len(cols)),
		hold:    make(map[control.Key]int),
		running: true,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
		theme:   Themes[0],
		st:      newStyles(Themes[0]),
	}
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if k, ok := keyBindings[key]; ok {
			m.s.Manual.Set(k, true)
			m.hold[k] = HoldFrames
			return m, nil
		}
		switch key {
		case "q", "ctrl+c", "esc":
			m.s.Manual.ReleaseAll()
			return m, tea.Quit
		case "r":
			m.reset()
		case " ":
			m.running = !m.running
		case "tab":
			if len(m.columns) > 0 {
				m.selected = (m.selected + 1) % len(m.columns)
			}
		case "[":
			m.camera.RotateY(-0.2)
		case "]":
			m.camera.RotateY(0.2)
		case "+", "=":
			m.camera.ZoomIn()
		case "-":
			m.camera.ZoomOut()
		case "t":
			m.theme = nextTheme(m.theme)
			m.st = newStyles(m.theme)
		}
		return m, nil

	case TickMsg:
		if m.running {
			m.step()
		}
		m.release()
		return m, tick()
	}
	return m, nil
}

// release counts down held keys and lets go of expired ones.
func (m *Model) release() {
	for k, n := range m.hold {
		if n <= 1 {
			delete(m.hold, k)
			m.s.Manual.Set(k, false)
			continue
		}
		m.hold[k] = n - 1
	}
}

func (m *Model) step() {
	for i := 0; i < m.s.TicksPerFrame; i++ {
		sig := m.s.Manual.Poll(m.t)
		m.s.Ctrl.Update(sig, m.s.Dt)
		m.s.World.Step(m.s.Dt)
		m.t += m.s.Dt
		m.ticks++
	}
	m.current = m.tel.Read()
	for i, v := range m.current {
		h := append(m.history[i], v)
		if len(h) > historyCapacity {
			h = h[len(h)-historyCapacity:]
		}
		m.history[i] = h
	}
}

func (m *Model) reset() {
	if _, err := orient.OrientSkeleton(m.s.Ctrl.Skeleton(), m.s.Ctrl.Binding(), m.s.Origin); err != nil {
		m.lastError = err.Error()
		m.s.Log.Warn(context.Background(), "orient failed", logging.Err(err))
		return
	}
	m.resets++
	m.s.Log.Info(context.Background(), "robot oriented", logging.Float("t", m.t))
}

// Time is the simulated time so far.
func (m Model) Time() float64 { return m.t }

func (m Model) Ticks() int { return m.ticks }

func (m Model) Resets() int { return m.resets }

// Reading returns the latest telemetry value of a column.
func (m Model) Reading(column string) (float64, bool) {
	for i, c := range m.columns {
		if c == column && i < len(m.current) {
			return m.current[i], true
		}
	}
	return 0, false
}

func (m Model) View() string {
	skel := m.s.Ctrl.Skeleton()
	binding := m.s.Ctrl.Binding()
	if root, ok := binding.Body(skel.RootID()); ok {
		m.camera.Target = root.WorldTransform().Origin
	}
	m.canvas.Clear()
	Render(m.canvas, SkeletonWireframe(skel, binding, 10), m.camera)

	left := m.st.panel.Render(m.canvas.String())

	var b strings.Builder
	name := m.s.Name
	if name == "" {
		name = skel.Root().Name
	}
	b.WriteString(m.st.title.Render(name) + "\n\n")

	status := m.st.running.Render("● RUNNING")
	if !m.running {
		status = m.st.paused.Render("❚❚ PAUSED")
	}
	b.WriteString(status + "\n")
	b.WriteString(m.st.label.Render("time") + m.st.value.Render(fmt.Sprintf("%8.2f s", m.t)) + "\n")
	b.WriteString(m.st.label.Render("ticks") + m.st.value.Render(fmt.Sprintf("%8d", m.ticks)) + "\n")
	b.WriteString(m.st.label.Render("resets") + m.st.value.Render(fmt.Sprintf("%8d", m.resets)) + "\n\n")

	for i, c := range m.columns {
		label := m.st.label.Render(c)
		if i == m.selected {
			label = m.st.selected.Width(22).Render(c)
		}
		v := 0.0
		if i < len(m.current) {
			v = m.current[i]
		}
		b.WriteString(label + m.st.value.Render(fmt.Sprintf("%9.3f ", v)) + m.st.sparkline(m.history[i], sparkWidth) + "\n")
	}
	if len(m.columns) == 0 {
		b.WriteString(m.st.hint.Render("no driven nodes") + "\n")
	}

	if n := len(m.s.Ctrl.ConfigErrors()); n > 0 {
		b.WriteString("\n" + m.st.warning.Render(fmt.Sprintf("%d configuration error(s)", n)) + "\n")
	}
	if m.lastError != "" {
		b.WriteString(m.st.warning.Render(m.lastError) + "\n")
	}

	right := m.st.panel.Render(b.String())
	view := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	if m.selected < len(m.history) && len(m.history[m.selected]) > 1 {
		graph := asciigraph.Plot(m.history[m.selected],
			asciigraph.Height(6),
			asciigraph.Width(70),
			asciigraph.Caption(m.columns[m.selected]),
		)
		view += "\n" + graph
	}

	view += "\n" + m.st.hint.Render("arrows drive · 1/2 lift · r orient · space pause · tab select · [ ] rotate · +/- zoom · t theme · q quit")
	return view
}

// Run starts the drive view on the terminal.
func Run(s Session) error {
	_, err := tea.NewProgram(NewModel(s), tea.WithAltScreen()).Run()
	return err
}
