package tui

import (
	"fmt"
	"math"
	"strings"

	"cadastre/internal/cadastre"

	"github.com/charmbracelet/lipgloss"
)

var (
	streetColor   = lipgloss.Color("#9ca3af")
	districtColor = lipgloss.Color("#60a5fa")
	mergedColor   = lipgloss.Color("#f472b6")
	selectColor   = lipgloss.Color("#ffffff")

	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"})
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E6E6")).Bold(true)
)

type cell struct {
	ch    rune
	color lipgloss.TerminalColor
	bold  bool
}

type canvas struct {
	cols, rows int
	cells      []cell
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range c.cells {
		c.cells[i] = cell{ch: ' '}
	}
	return c
}

func (c *canvas) set(col, row int, v cell) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = v
}

// span is a half-open cell range covered by a world rectangle.
type span struct {
	c0, r0, c1, r1 int
}

func (s span) contains(col, row int) bool {
	return col >= s.c0 && col < s.c1 && row >= s.r0 && row < s.r1
}

func (s span) edge(col, row int) bool {
	return col == s.c0 || col == s.c1-1 || row == s.r0 || row == s.r1-1
}

// cellSpan rasterizes a world rectangle. Every rectangle covers at least one
// cell so small plots stay visible and clickable when zoomed out.
func (m Model) cellSpan(x1, z1, x2, z2 float64) (span, bool) {
	a := m.ctl.ToPixel(x1, z1)
	b := m.ctl.ToPixel(x2, z2)
	s := span{
		c0: int(math.Floor(a.X / cellW)),
		r0: int(math.Floor(a.Y / cellH)),
	}
	s.c1 = max(s.c0+1, int(math.Ceil(b.X/cellW)))
	s.r1 = max(s.r0+1, int(math.Ceil(b.Y/cellH)))
	visible := s.c1 > 0 && s.r1 > 0 && s.c0 < m.mapCols() && s.r0 < m.mapRows()
	return s, visible
}

func (m Model) rectSpan(r cadastre.Rect) (span, bool) {
	return m.cellSpan(float64(r.X1), float64(r.Z1), float64(r.X2), float64(r.Z2))
}

// plotAt returns the topmost plot drawn at a cell.
func (m Model) plotAt(col, row int) (string, bool) {
	if !m.layers.Plots {
		return "", false
	}
	for i := len(m.data.Plots) - 1; i >= 0; i-- {
		p := m.data.Plots[i]
		if s, ok := m.rectSpan(p.Rect); ok && s.contains(col, row) {
			return p.Name, true
		}
	}
	return "", false
}

func (m Model) render() *canvas {
	cv := newCanvas(m.mapCols(), m.mapRows())
	streets := m.data.NamedStreets()

	if m.layers.Streets {
		for _, st := range streets {
			for _, seg := range st.Segments {
				s, ok := m.cellSpan(float64(seg.X1), float64(seg.Z1), float64(seg.X1+seg.Width), float64(seg.Z1+seg.Height))
				if !ok {
					continue
				}
				fill(cv, s, func(int, int) cell { return cell{ch: '░', color: streetColor} })
			}
		}
	}

	if m.layers.Plots {
		for _, p := range m.data.Plots {
			s, ok := m.rectSpan(p.Rect)
			if !ok {
				continue
			}
			fillColor := lipgloss.Color(cadastre.TypeColor(p.Type).Hex())
			edgeColor := lipgloss.Color(cadastre.OutlineColors[p.Outline()].Hex())
			selected := p.Name == m.selected
			bordered := s.c1-s.c0 >= 3 && s.r1-s.r0 >= 3
			fill(cv, s, func(col, row int) cell {
				switch {
				case selected && (!bordered || s.edge(col, row)):
					return cell{ch: '█', color: selectColor, bold: true}
				case bordered && s.edge(col, row):
					return cell{ch: '▓', color: edgeColor}
				default:
					return cell{ch: '█', color: fillColor}
				}
			})
		}
	}

	if m.layers.Merged {
		for _, g := range m.data.MergedGroups {
			if s, ok := m.rectSpan(g.Rect); ok {
				outline(cv, s, cell{ch: '▒', color: mergedColor})
			}
		}
	}

	if m.layers.Districts {
		for _, c := range m.data.DistrictClusters {
			if s, ok := m.rectSpan(c.Outline); ok {
				outline(cv, s, cell{ch: '•', color: districtColor})
			}
		}
	}

	if m.layers.Streets {
		for _, st := range streets {
			m.drawLabel(cv, st)
		}
	}
	return cv
}

func fill(cv *canvas, s span, at func(col, row int) cell) {
	for row := max(s.r0, 0); row < min(s.r1, cv.rows); row++ {
		for col := max(s.c0, 0); col < min(s.c1, cv.cols); col++ {
			cv.set(col, row, at(col, row))
		}
	}
}

func outline(cv *canvas, s span, v cell) {
	fill(cv, s, func(col, row int) cell {
		if s.edge(col, row) {
			return v
		}
		return cv.cells[row*cv.cols+col]
	})
}

// drawLabel centres the street name on its label point, vertically for
// vertical streets.
func (m Model) drawLabel(cv *canvas, st cadastre.Street) {
	p := m.ctl.ToPixel(st.LabelX, st.LabelZ)
	col := int(math.Floor(p.X / cellW))
	row := int(math.Floor(p.Y / cellH))
	name := []rune(st.Name)
	v := cell{color: labelStyle.GetForeground(), bold: true}
	if st.Vertical {
		row -= len(name) / 2
		for i, r := range name {
			v.ch = r
			cv.set(col, row+i, v)
		}
		return
	}
	col -= len(name) / 2
	for i, r := range name {
		v.ch = r
		cv.set(col+i, row, v)
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := c.cells[row*c.cols : (row+1)*c.cols]
		for i := 0; i < len(line); {
			j := i + 1
			for j < len(line) && line[j].color == line[i].color && line[j].bold == line[i].bold {
				j++
			}
			var run strings.Builder
			for _, v := range line[i:j] {
				run.WriteRune(v.ch)
			}
			if line[i].color == nil {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(line[i].color).Bold(line[i].bold).Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	header := titleStyle.Render(" " + m.title + " ")
	body := m.render().String()
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.statusLine(), m.help.View(m.keys))
}

func (m Model) statusLine() string {
	cx, cz := m.ctl.Center()
	cam := m.ctl.Camera()
	parts := []string{fmt.Sprintf("centre x=%.0f z=%.0f w=%.0f", cx, cz, cam.W)}
	if m.hovering {
		hx, hz := m.ctl.ToWorld(m.hover)
		parts = append(parts, fmt.Sprintf("cursor x=%.0f z=%.0f", hx, hz))
	}
	parts = append(parts, "layers:"+m.layerFlags())
	if p, ok := m.data.Plot(m.selected); ok {
		owner := p.Owner
		if owner == "" {
			owner = "-"
		}
		parts = append(parts, fmt.Sprintf("%s [%s] %s · %s · %s", p.Name, p.Label(), p.Type, owner, p.Outline()))
		if p.District != "" || p.Street != "" {
			parts = append(parts, strings.Trim(p.District+" / "+p.Street, " /"))
		}
	} else if m.status != "" {
		parts = append(parts, m.status)
	}
	line := " " + strings.Join(parts, "  │  ")
	if w := m.width; w > 0 && lipgloss.Width(line) > w {
		line = string([]rune(line)[:max(w-1, 0)]) + "…"
	}
	return dimStyle.Render(line)
}

func (m Model) layerFlags() string {
	flag := func(on bool, c string) string {
		if on {
			return c
		}
		return "-"
	}
	return flag(m.layers.Plots, "P") + flag(m.layers.Streets, "S") + flag(m.layers.Districts, "D") + flag(m.layers.Merged, "M")
}
