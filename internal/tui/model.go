// Package tui draws the cadastral map in a terminal and drives the viewport
// camera from keys and the mouse.
package tui

import (
	"context"
	"fmt"
	"time"

	"cadastre/internal/cadastre"
	"cadastre/internal/viewport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
)

// A terminal cell is treated as cellW×cellH camera pixels: cells are about
// twice as tall as wide, and the drag threshold spans a few cells.
const (
	cellW      = 2
	cellH      = 4
	headerRows = 1
	panCells   = 4
)

type Layers struct {
	Plots     bool
	Streets   bool
	Districts bool
	Merged    bool
}

type Model struct {
	data  *cadastre.AppData
	title string
	cfg   viewport.Config

	ctl  *viewport.Controller
	gest *viewport.Gestures

	keys   keyMap
	help   help.Model
	layers Layers

	width    int
	height   int
	hover    viewport.Point
	hovering bool
	selected string
	status   string
	now      func() time.Time
}

func New(data *cadastre.AppData, cfg viewport.Config, title string) Model {
	if data == nil {
		data = cadastre.FromRecords(cadastre.Records{})
	}
	ctl := viewport.New(cfg, nil)
	return Model{
		data:   data,
		title:  title,
		cfg:    cfg,
		ctl:    ctl,
		gest:   viewport.NewGestures(ctl),
		keys:   defaultKeys(),
		help:   help.New(),
		layers: Layers{Plots: true, Streets: true, Districts: false, Merged: true},
		status: fmt.Sprintf("%d plots loaded", len(data.Plots)),
		now:    time.Now,
	}
}

// Run shows the map full screen until the user quits or ctx ends.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Camera() viewport.Camera { return m.ctl.Camera() }
func (m Model) Selected() string        { return m.selected }
func (m Model) Layers() Layers          { return m.layers }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.fit()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.ctl.PanPixels(0, -panCells*cellH)
	case key.Matches(msg, m.keys.Down):
		m.ctl.PanPixels(0, panCells*cellH)
	case key.Matches(msg, m.keys.Left):
		m.ctl.PanPixels(-panCells*cellW, 0)
	case key.Matches(msg, m.keys.Right):
		m.ctl.PanPixels(panCells*cellW, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		m.ctl.ZoomStep(-viewport.ButtonStep)
	case key.Matches(msg, m.keys.ZoomOut):
		m.ctl.ZoomStep(viewport.ButtonStep)
	case key.Matches(msg, m.keys.Reset):
		m.ctl.Reset()
		m.status = "view reset"
	case key.Matches(msg, m.keys.Plots):
		m.layers.Plots = !m.layers.Plots
		m.status = fmt.Sprintf("plots: %v", m.layers.Plots)
	case key.Matches(msg, m.keys.Streets):
		m.layers.Streets = !m.layers.Streets
		m.status = fmt.Sprintf("streets: %v", m.layers.Streets)
	case key.Matches(msg, m.keys.Districts):
		m.layers.Districts = !m.layers.Districts
		m.status = fmt.Sprintf("districts: %v", m.layers.Districts)
	case key.Matches(msg, m.keys.Merged):
		m.layers.Merged = !m.layers.Merged
		m.status = fmt.Sprintf("merged: %v", m.layers.Merged)
	case key.Matches(msg, m.keys.Next):
		m.selectNext()
	case key.Matches(msg, m.keys.Clear):
		m.selected = ""
		m.status = "selection cleared"
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.fit()
	}
	return *m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	col, row, inside := m.mapCell(msg.X, msg.Y)
	p := viewport.Point{X: (float64(col) + 0.5) * cellW, Y: (float64(row) + 0.5) * cellH}
	switch msg.Action {
	case tea.MouseActionPress:
		if !inside {
			return
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.gest.Wheel(-1, p)
		case tea.MouseButtonWheelDown:
			m.gest.Wheel(1, p)
		case tea.MouseButtonLeft:
			m.gest.PointerDown(p)
		}
	case tea.MouseActionMotion:
		m.hover, m.hovering = p, inside
		m.gest.PointerMove(p)
	case tea.MouseActionRelease:
		if m.gest.Mode() != viewport.ModePan {
			return
		}
		now := m.now()
		m.gest.PointerUp(now)
		if m.gest.Dragging(now) || !inside {
			return
		}
		if name, ok := m.plotAt(col, row); ok {
			m.selected = name
			m.status = "selected " + name
		} else {
			m.selected = ""
			x, z := m.ctl.ToWorld(p)
			m.status = fmt.Sprintf("nothing at x=%.0f z=%.0f", x, z)
		}
	}
}

// selectNext moves the selection to the next plot in load order and centres
// the camera on it.
func (m *Model) selectNext() {
	if len(m.data.Plots) == 0 {
		return
	}
	next := 0
	for i, p := range m.data.Plots {
		if p.Name == m.selected {
			next = (i + 1) % len(m.data.Plots)
			break
		}
	}
	p := m.data.Plots[next]
	m.selected = p.Name
	cam := m.ctl.Camera()
	cx := float64(p.Rect.X1+p.Rect.X2) / 2
	cz := float64(p.Rect.Z1+p.Rect.Z2) / 2
	m.ctl.SetCamera(cx-cam.W/2, cz-cam.H/2, cam.W, cam.H)
	m.status = "selected " + p.Name
}

func (m *Model) fit() {
	size := m.containerSize()
	if size.W <= 0 || size.H <= 0 {
		return
	}
	if m.ctl.Initial().W > 0 {
		m.ctl.Resize(size)
		return
	}
	content := m.cfg.WorldBound()
	if b, ok := m.data.Bounds(); ok {
		content = orb.Bound{
			Min: orb.Point{float64(b.X1), float64(b.Z1)},
			Max: orb.Point{float64(b.X2), float64(b.Z2)},
		}
	}
	m.ctl.Frame(content, size)
}

func (m Model) mapCols() int { return max(m.width, 0) }

func (m Model) mapRows() int {
	return max(m.height-headerRows-m.footerRows(), 0)
}

func (m Model) footerRows() int {
	return 1 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) containerSize() viewport.Size {
	return viewport.Size{W: float64(m.mapCols() * cellW), H: float64(m.mapRows() * cellH)}
}

// mapCell converts a terminal position to a map cell.
func (m Model) mapCell(x, y int) (col, row int, inside bool) {
	col, row = x, y-headerRows
	inside = col >= 0 && col < m.mapCols() && row >= 0 && row < m.mapRows()
	return col, row, inside
}
