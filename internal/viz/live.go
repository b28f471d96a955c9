package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
)

const (
	canvasWidth     = 40
	canvasHeight    = 20
	historyCapacity = 600
	feedBuffer      = 64
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(52)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

// Frame is the part of a dump the live view keeps.
type Frame struct {
	Step        int
	Time        float64
	Phase       dynamo.Phase
	Total       float64
	Kinetic     float64
	Potential   float64
	Temperature float64
	Pressure    float64
	Positions   []r3.Vec
}

// Feed forwards dumps to a live view. It implements dynamo.Observer and
// drops frames while the view is behind, so it never slows the run.
type Feed struct {
	frames chan Frame
}

func NewFeed(buffer int) *Feed {
	return &Feed{frames: make(chan Frame, buffer)}
}

func (f *Feed) OnSnapshot(s *dynamo.Snapshot) {
	if len(f.frames) == cap(f.frames) {
		return
	}
	fr := Frame{
		Step:        s.Step,
		Time:        s.Time,
		Phase:       s.Phase,
		Total:       s.Energy.Total(),
		Kinetic:     s.Energy.Kinetic,
		Potential:   s.Energy.Potential(),
		Temperature: s.Temperature,
		Pressure:    s.Pressure,
		Positions:   append([]r3.Vec(nil), s.Positions...),
	}
	select {
	case f.frames <- fr:
	default:
	}
}

// Close ends the stream. No snapshot may be sent afterwards.
func (f *Feed) Close() { close(f.frames) }

type frameMsg Frame

type doneMsg struct {
	res *dynamo.Result
	err error
}

// Live is the Bubble Tea model of a running simulation.
type Live struct {
	title  string
	total  int
	box    r3.Vec
	frames <-chan Frame
	cancel context.CancelFunc

	canvas      *Canvas
	axis        Axis
	frame       Frame
	seen        bool
	energy      []float64
	temperature []float64
	frozen      bool
	showHelp    bool

	done   bool
	result *dynamo.Result
	err    error
}

// NewLive builds the view. cancel is called when the user quits before the
// run is over.
func NewLive(title string, total int, box r3.Vec, feed *Feed, cancel context.CancelFunc) Live {
	return Live{
		title:       title,
		total:       total,
		box:         box,
		frames:      feed.frames,
		cancel:      cancel,
		canvas:      NewCanvas(canvasWidth, canvasHeight),
		energy:      make([]float64, 0, historyCapacity),
		temperature: make([]float64, 0, historyCapacity),
	}
}

func (m Live) Init() tea.Cmd { return m.wait() }

func (m Live) wait() tea.Cmd {
	ch := m.frames
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "a":
			m.axis = (m.axis + 1) % 3
		case "t":
			nextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case frameMsg:
		m.energy = push(m.energy, msg.Total)
		m.temperature = push(m.temperature, msg.Temperature)
		if !m.frozen || !m.seen {
			m.frame = Frame(msg)
			m.seen = true
		}
		return m, m.wait()
	case doneMsg:
		m.done = true
		m.result, m.err = msg.res, msg.err
		if m.result != nil && m.result.Final != nil {
			fin := m.result.Final
			m.frame.Step, m.frame.Time, m.frame.Phase = fin.Step, fin.Time, fin.Phase
			m.frame.Positions = fin.Positions
		}
	}
	return m, nil
}

func push(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m Live) status() string {
	switch {
	case m.done && m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.done:
		return StatusRunning.Render("FINISHED")
	case m.frozen:
		return StatusFrozen.Render("FROZEN")
	}
	return StatusRunning.Render("RUNNING")
}

func (m Live) View() string {
	m.canvas.Project(m.frame.Positions, m.box, m.axis)
	canvasView := canvasStyle.Render(m.canvas.String() + Subtle.Render(fmt.Sprintf("view along %s", m.axis)))

	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.frame.Step) / float64(m.total)
	}
	s.WriteString(ProgressBar(frac, 30) + fmt.Sprintf(" %d/%d\n\n", m.frame.Step, m.total))

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("phase", m.frame.Phase.String())
	row("time", fmt.Sprintf("%.4e", m.frame.Time))
	row("total", fmt.Sprintf("%.6e", m.frame.Total))
	row("kinetic", fmt.Sprintf("%.6e", m.frame.Kinetic))
	row("potential", fmt.Sprintf("%.6e", m.frame.Potential))
	row("temperature", fmt.Sprintf("%.6e", m.frame.Temperature))
	row("pressure", fmt.Sprintf("%.6e", m.frame.Pressure))
	s.WriteString(MetricLabel.Render("T history") + Sparkline(m.temperature, 30) + "\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("total energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("\nSP:Freeze A:Axis T:Theme ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return Panel.Render(strings.Join([]string{
			Title.Render("KEYBOARD SHORTCUTS"),
			"Space  freeze or follow the display",
			"A      cycle the projection axis",
			"T      cycle themes",
			"?      toggle this help",
			"Q      cancel the run and quit",
		}, "\n")) + "\n\n" + mainView
	}
	return mainView
}

// RunLive runs fn in the background under a live view. fn must attach the
// observer it is given to the simulator; quitting the view cancels the
// context passed to fn. The outcome of fn is returned once both have ended.
func RunLive(ctx context.Context, title string, total int, box r3.Vec, fn func(context.Context, dynamo.Observer) (*dynamo.Result, error)) (*dynamo.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(feedBuffer)
	p := tea.NewProgram(NewLive(title, total, box, feed, cancel), tea.WithAltScreen())

	out := make(chan doneMsg, 1)
	go func() {
		res, err := fn(ctx, feed)
		feed.Close()
		out <- doneMsg{res: res, err: err}
		p.Send(doneMsg{res: res, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-out
		return nil, fmt.Errorf("viz: live view: %w", err)
	}
	cancel()
	o := <-out
	return o.res, o.err
}
