// Package viewport is a bounded pan/zoom camera over a fixed-size world.
//
// All gestures end up in Controller.SetCamera, which owns width clamping,
// aspect preservation and edge clamping. The controller is not safe for
// concurrent use; gesture updates must be applied in the order they arrive.
package viewport

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultWorldWidth   = 4296
	DefaultWorldHeight  = 2360
	DefaultPadding      = 100
	DefaultMinWidth     = 100
	DefaultMobileWidth  = 50
	DefaultMobileCutoff = 768
)

// Camera is the visible world rectangle.
type Camera struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Size is a container size in pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (s Size) degenerate() bool { return !(s.W > 0 && s.H > 0) }

// Point is a pixel position inside the container.
type Point struct {
	X float64
	Y float64
}

type Config struct {
	WorldWidth   float64
	WorldHeight  float64
	Padding      float64
	MinWidth     float64
	MobileWidth  float64
	MobileCutoff float64
}

func DefaultConfig() Config {
	return Config{
		WorldWidth:   DefaultWorldWidth,
		WorldHeight:  DefaultWorldHeight,
		Padding:      DefaultPadding,
		MinWidth:     DefaultMinWidth,
		MobileWidth:  DefaultMobileWidth,
		MobileCutoff: DefaultMobileCutoff,
	}
}

// WorldBound is the world rectangle centred on the origin.
func (c Config) WorldBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-c.WorldWidth / 2, -c.WorldHeight / 2},
		Max: orb.Point{c.WorldWidth / 2, c.WorldHeight / 2},
	}
}

type Controller struct {
	cfg       Config
	world     orb.Bound
	content   orb.Bound
	framed    bool
	container Size
	camera    Camera
	initial   Camera
	maxWidth  float64
	onChange  func(Camera)
}

// New returns a controller whose camera covers the whole world until Frame
// is called. onChange, when set, receives the camera after every update.
func New(cfg Config, onChange func(Camera)) *Controller {
	world := cfg.WorldBound()
	c := &Controller{
		cfg:      cfg,
		world:    world,
		maxWidth: cfg.WorldWidth,
		onChange: onChange,
	}
	c.camera = Camera{X: world.Min[0], Y: world.Min[1], W: cfg.WorldWidth, H: cfg.WorldHeight}
	return c
}

func (c *Controller) Camera() Camera   { return c.camera }
func (c *Controller) Initial() Camera  { return c.initial }
func (c *Controller) Container() Size  { return c.container }
func (c *Controller) MaxWidth() float64 { return c.maxWidth }

// MinWidth is the deepest zoom level for the current container.
func (c *Controller) MinWidth() float64 {
	if c.container.W > 0 && c.container.W <= c.cfg.MobileCutoff {
		return c.cfg.MobileWidth
	}
	return c.cfg.MinWidth
}

// Frame computes the initial framing that shows content with padding,
// letterboxed to the container aspect, and moves the camera there. It
// returns false and changes nothing when the container has no area.
func (c *Controller) Frame(content orb.Bound, container Size) bool {
	if container.degenerate() {
		return false
	}
	initial, ok := c.framing(content, container)
	if !ok {
		return false
	}
	c.content = content
	c.framed = true
	c.container = container
	c.initial = initial
	c.maxWidth = c.maxWidthFor(container)
	c.SetCamera(initial.X, initial.Y, initial.W, initial.H)
	return true
}

func (c *Controller) framing(content orb.Bound, container Size) (Camera, bool) {
	pad := c.cfg.Padding
	minX, minY := content.Min[0], content.Min[1]
	contentW := content.Max[0] - minX + 2*pad
	contentH := content.Max[1] - minY + 2*pad
	if !(contentW > 0 && contentH > 0) {
		return Camera{}, false
	}
	ratio := container.W / container.H
	var w, h float64
	if ratio > contentW/contentH {
		h = contentH
		w = h * ratio
	} else {
		w = contentW
		h = w / ratio
	}
	return Camera{
		X: minX - (w-contentW+2*pad)/2,
		Y: minY - (h-contentH+2*pad)/2,
		W: w,
		H: h,
	}, true
}

func (c *Controller) maxWidthFor(container Size) float64 {
	ratio := container.W / container.H
	if ratio > c.cfg.WorldWidth/c.cfg.WorldHeight {
		return c.cfg.WorldHeight * ratio
	}
	return c.cfg.WorldWidth
}

// Resize adopts a new container size. The initial framing is recomputed for
// the new aspect and the camera keeps its centre and width.
func (c *Controller) Resize(container Size) Camera {
	if container.degenerate() || c.degenerateWorld() {
		return c.camera
	}
	cx, cy := c.Center()
	c.container = container
	c.maxWidth = c.maxWidthFor(container)
	if c.framed {
		if initial, ok := c.framing(c.content, container); ok {
			c.initial = initial
		}
	}
	w := c.clampWidth(c.camera.W)
	h := c.heightFor(w)
	return c.SetCamera(cx-w/2, cy-h/2, w, h)
}

// SetCamera is the single entry point for camera changes. Width is clamped
// to [MinWidth, MaxWidth], height follows the initial framing aspect, then
// x and y are clamped so the camera stays inside the world.
func (c *Controller) SetCamera(x, y, w, h float64) Camera {
	if c.degenerateWorld() || !finite(x, y, w, h) {
		return c.camera
	}
	w = c.clampWidth(w)
	if c.initial.W > 0 {
		h = w / c.initial.W * c.initial.H
	}

	minX, minY := c.world.Min[0], c.world.Min[1]
	maxX, maxY := c.world.Max[0], c.world.Max[1]
	if x < minX {
		x = minX
	}
	if y < minY {
		y = minY
	}
	if x+w > maxX {
		x = maxX - w
	}
	if y+h > maxY {
		y = maxY - h
	}

	c.camera = Camera{X: x, Y: y, W: w, H: h}
	if c.onChange != nil {
		c.onChange(c.camera)
	}
	return c.camera
}

// Pan moves the camera by a world-unit delta.
func (c *Controller) Pan(dx, dy float64) Camera {
	return c.SetCamera(c.camera.X+dx, c.camera.Y+dy, c.camera.W, c.camera.H)
}

// PanPixels moves the camera by a pixel delta at the current scale.
func (c *Controller) PanPixels(dx, dy float64) Camera {
	if c.container.degenerate() {
		return c.camera
	}
	return c.Pan(dx*c.camera.W/c.container.W, dy*c.camera.H/c.container.H)
}

// ZoomAtPoint changes the camera width by deltaWidth (negative zooms in)
// while keeping the world point under anchor fixed on screen.
func (c *Controller) ZoomAtPoint(deltaWidth float64, anchor Point) Camera {
	if c.container.degenerate() || !finite(deltaWidth, anchor.X, anchor.Y) {
		return c.camera
	}
	cam := c.camera
	w := c.clampWidth(cam.W + deltaWidth)
	h := c.heightFor(w)
	fx := anchor.X / c.container.W
	fy := anchor.Y / c.container.H
	return c.SetCamera(cam.X+(cam.W-w)*fx, cam.Y+(cam.H-h)*fy, w, h)
}

// PinchZoom scales the camera width by scale around a pixel centre.
func (c *Controller) PinchZoom(scale float64, center Point) Camera {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return c.camera
	}
	return c.ZoomAtPoint(c.camera.W*scale-c.camera.W, center)
}

// ZoomStep zooms around the container centre by a fraction of the current
// width; 0.2 zooms out by 20%, -0.2 zooms in.
func (c *Controller) ZoomStep(fraction float64) Camera {
	return c.ZoomAtPoint(c.camera.W*fraction, Point{X: c.container.W / 2, Y: c.container.H / 2})
}

// Reset returns to the initial framing.
func (c *Controller) Reset() Camera {
	if c.initial.W == 0 {
		return c.camera
	}
	return c.SetCamera(c.initial.X, c.initial.Y, c.initial.W, c.initial.H)
}

// ToWorld maps a container pixel to world coordinates.
func (c *Controller) ToWorld(p Point) (float64, float64) {
	if c.container.degenerate() {
		return c.camera.X, c.camera.Y
	}
	return c.camera.X + p.X/c.container.W*c.camera.W, c.camera.Y + p.Y/c.container.H*c.camera.H
}

// ToPixel maps a world coordinate to a container pixel.
func (c *Controller) ToPixel(x, y float64) Point {
	if c.camera.W == 0 || c.camera.H == 0 {
		return Point{}
	}
	return Point{
		X: (x - c.camera.X) / c.camera.W * c.container.W,
		Y: (y - c.camera.Y) / c.camera.H * c.container.H,
	}
}

// Center is the world point in the middle of the camera.
func (c *Controller) Center() (float64, float64) {
	return c.camera.X + c.camera.W/2, c.camera.Y + c.camera.H/2
}

func (c *Controller) clampWidth(w float64) float64 {
	w = math.Max(c.MinWidth(), w)
	return math.Min(w, c.maxWidth)
}

func (c *Controller) heightFor(w float64) float64 {
	if c.initial.W > 0 {
		return w / c.initial.W * c.initial.H
	}
	if c.camera.W > 0 {
		return w / c.camera.W * c.camera.H
	}
	return w
}

func (c *Controller) degenerateWorld() bool {
	return !(c.cfg.WorldWidth > 0 && c.cfg.WorldHeight > 0)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
