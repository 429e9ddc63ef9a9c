package tui

import (
	"math"
	"strings"
	"testing"
	"time"

	"cadastre/internal/cadastre/cadastretest"
	"cadastre/internal/viewport"

	tea "github.com/charmbracelet/bubbletea"
)

func sized(t *testing.T) Model {
	t.Helper()
	m := New(cadastretest.Data(), viewport.DefaultConfig(), "cadastre")
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return send(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("update returned %T", next)
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mouse(x, y int, action tea.MouseAction, button tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

func TestFramesPlotsOnFirstResize(t *testing.T) {
	m := sized(t)
	cam := m.Camera()
	if cam.W <= 0 || cam.H <= 0 {
		t.Fatalf("camera not framed: %+v", cam)
	}
	size := m.containerSize()
	if got, want := cam.W/cam.H, size.W/size.H; math.Abs(got-want) > 1e-9 {
		t.Fatalf("camera aspect=%v want container aspect %v", got, want)
	}
	if !strings.Contains(m.View(), "cadastre") {
		t.Fatalf("view missing title")
	}
}

func TestZoomKeysAndReset(t *testing.T) {
	m := sized(t)
	start := m.Camera()

	m = send(t, m, runes("+"))
	if got, want := m.Camera().W, start.W*(1-viewport.ButtonStep); math.Abs(got-want) > 1e-9 {
		t.Fatalf("zoom in width=%v want %v", got, want)
	}
	m = send(t, m, runes("-"))
	m = send(t, m, runes("-"))
	if m.Camera().W <= start.W {
		t.Fatalf("zoom out did not widen: %v", m.Camera().W)
	}
	m = send(t, m, runes("r"))
	if m.Camera() != start {
		t.Fatalf("reset camera=%+v want %+v", m.Camera(), start)
	}
}

func TestClickSelectsPlot(t *testing.T) {
	m := sized(t)
	p, _ := m.data.Plot("P3")
	s, ok := m.rectSpan(p.Rect)
	if !ok {
		t.Fatalf("P3 not visible")
	}
	x, y := s.c0, s.r0+headerRows

	m = send(t, m, mouse(x, y, tea.MouseActionPress, tea.MouseButtonLeft))
	m = send(t, m, mouse(x, y, tea.MouseActionRelease, tea.MouseButtonLeft))
	if m.Selected() != "P3" {
		t.Fatalf("selected=%q want P3", m.Selected())
	}
	if !strings.Contains(m.statusLine(), "P3") {
		t.Fatalf("status line %q does not describe selection", m.statusLine())
	}
}

func TestDragPansWithoutSelecting(t *testing.T) {
	m := sized(t)
	before := m.Camera()

	m = send(t, m, mouse(10, 10, tea.MouseActionPress, tea.MouseButtonLeft))
	m = send(t, m, mouse(16, 10, tea.MouseActionMotion, tea.MouseButtonLeft))
	m = send(t, m, mouse(16, 10, tea.MouseActionRelease, tea.MouseButtonLeft))

	after := m.Camera()
	if after.X >= before.X || after.Y != before.Y {
		t.Fatalf("drag right should move camera left: before=%+v after=%+v", before, after)
	}
	if m.Selected() != "" {
		t.Fatalf("drag selected %q", m.Selected())
	}
}

func TestWheelZoomsAroundCursor(t *testing.T) {
	m := sized(t)
	before := m.Camera()
	m = send(t, m, mouse(20, 10, tea.MouseActionPress, tea.MouseButtonWheelUp))
	if got, want := m.Camera().W, before.W*(1-viewport.WheelStep); math.Abs(got-want) > 1e-9 {
		t.Fatalf("wheel width=%v want %v", got, want)
	}
}

func TestLayerToggles(t *testing.T) {
	m := sized(t)
	if !strings.Contains(m.View(), "Boczna") {
		t.Fatalf("street label missing from view")
	}
	m = send(t, m, runes("2"))
	if m.Layers().Streets {
		t.Fatalf("streets still on")
	}
	if strings.Contains(m.View(), "Boczna") {
		t.Fatalf("street label drawn with streets off")
	}

	m = send(t, m, runes("1"))
	p, _ := m.data.Plot("P3")
	s, _ := m.rectSpan(p.Rect)
	if _, ok := m.plotAt(s.c0, s.r0); ok {
		t.Fatalf("hidden plots are still clickable")
	}
}

func TestTabCyclesSelection(t *testing.T) {
	m := sized(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Selected() != "P1" {
		t.Fatalf("selected=%q want P1", m.Selected())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Selected() != "P2" {
		t.Fatalf("selected=%q want P2", m.Selected())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Selected() != "" {
		t.Fatalf("esc kept selection %q", m.Selected())
	}
}

func TestHoverShowsCursorPosition(t *testing.T) {
	m := sized(t)
	if strings.Contains(m.statusLine(), "cursor") {
		t.Fatalf("cursor shown before any motion")
	}
	m = send(t, m, mouse(10, 5, tea.MouseActionMotion, tea.MouseButtonNone))
	if !strings.Contains(m.statusLine(), "cursor x=") {
		t.Fatalf("status=%q", m.statusLine())
	}
	m = send(t, m, mouse(10, 0, tea.MouseActionMotion, tea.MouseButtonNone))
	if strings.Contains(m.statusLine(), "cursor") {
		t.Fatalf("cursor shown over the header")
	}
}
