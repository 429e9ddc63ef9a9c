package viewport

import (
	"math"
	"time"
)

const (
	DragThreshold  = 5
	DragResetDelay = 50 * time.Millisecond
	WheelStep      = 0.1
	ButtonStep     = 0.2
)

type Mode int

const (
	ModeIdle Mode = iota
	ModePan
	ModePinch
)

func (m Mode) String() string {
	switch m {
	case ModePan:
		return "pan"
	case ModePinch:
		return "pinch"
	default:
		return "idle"
	}
}

// Gestures turns raw pointer, wheel and touch events into camera updates on
// a Controller and tracks whether the current gesture counts as a drag.
// Positions are pixels relative to the container's top-left corner.
type Gestures struct {
	ctl *Controller

	mode     Mode
	origin   Point
	last     Point
	lastDist float64

	dragging   bool
	released   bool
	releasedAt time.Time
}

func NewGestures(ctl *Controller) *Gestures {
	return &Gestures{ctl: ctl}
}

func (g *Gestures) Mode() Mode { return g.mode }

// Dragging reports whether the gesture in progress (or the one that ended
// less than DragResetDelay before now) moved past DragThreshold. A click
// handler should ignore the release when this is true.
func (g *Gestures) Dragging(now time.Time) bool {
	if g.dragging && g.released && now.Sub(g.releasedAt) >= DragResetDelay {
		g.dragging = false
	}
	return g.dragging
}

func (g *Gestures) begin(p Point) {
	g.mode = ModePan
	g.origin = p
	g.last = p
	g.dragging = false
	g.released = false
}

func (g *Gestures) track(p Point) {
	if math.Abs(p.X-g.origin.X) > DragThreshold || math.Abs(p.Y-g.origin.Y) > DragThreshold {
		g.dragging = true
	}
}

func (g *Gestures) panTo(p Point) Camera {
	g.track(p)
	cam := g.ctl.PanPixels(g.last.X-p.X, g.last.Y-p.Y)
	g.last = p
	return cam
}

func (g *Gestures) end(now time.Time) {
	g.mode = ModeIdle
	g.released = true
	g.releasedAt = now
}

func (g *Gestures) PointerDown(p Point) {
	g.begin(p)
}

func (g *Gestures) PointerMove(p Point) Camera {
	if g.mode != ModePan {
		return g.ctl.Camera()
	}
	return g.panTo(p)
}

func (g *Gestures) PointerUp(now time.Time) {
	if g.mode == ModeIdle {
		return
	}
	g.end(now)
}

// Wheel zooms by WheelStep of the current width per event, out for a
// positive deltaY and in for a negative one, anchored at p.
func (g *Gestures) Wheel(deltaY float64, p Point) Camera {
	if deltaY == 0 || math.IsNaN(deltaY) {
		return g.ctl.Camera()
	}
	step := WheelStep
	if deltaY < 0 {
		step = -WheelStep
	}
	return g.ctl.ZoomAtPoint(g.ctl.Camera().W*step, p)
}

func (g *Gestures) TouchStart(touches []Point) {
	switch {
	case len(touches) == 1:
		g.begin(touches[0])
	case len(touches) >= 2:
		g.dragging = false
		g.released = false
		g.startPinch(touches)
	}
}

func (g *Gestures) startPinch(touches []Point) {
	g.mode = ModePinch
	g.origin = touches[0]
	g.lastDist = distance(touches[0], touches[1])
}

func (g *Gestures) TouchMove(touches []Point) Camera {
	switch {
	case len(touches) == 1:
		if g.mode != ModePan {
			// back from a pinch: continue panning from here
			g.mode = ModePan
			g.last = touches[0]
			return g.ctl.Camera()
		}
		return g.panTo(touches[0])
	case len(touches) >= 2:
		if g.mode != ModePinch {
			g.startPinch(touches)
			return g.ctl.Camera()
		}
		g.track(touches[0])
		dist := distance(touches[0], touches[1])
		if dist == 0 || g.lastDist == 0 {
			g.lastDist = dist
			return g.ctl.Camera()
		}
		cam := g.ctl.PinchZoom(g.lastDist/dist, midpoint(touches[0], touches[1]))
		g.lastDist = dist
		return cam
	}
	return g.ctl.Camera()
}

// TouchEnd receives the touches still on the surface after a lift.
func (g *Gestures) TouchEnd(remaining []Point, now time.Time) {
	switch {
	case len(remaining) == 0:
		g.end(now)
	case len(remaining) == 1:
		g.mode = ModePan
		g.last = remaining[0]
	default:
		g.startPinch(remaining)
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
