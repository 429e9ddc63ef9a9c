package viewport

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func framed(t *testing.T) *Controller {
	t.Helper()
	c := New(DefaultConfig(), nil)
	content := orb.Bound{Min: orb.Point{-300, -200}, Max: orb.Point{300, 200}}
	if !c.Frame(content, Size{W: 1600, H: 800}) {
		t.Fatalf("frame failed")
	}
	return c
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFrameLetterboxesContent(t *testing.T) {
	c := framed(t)
	// content 800x600 with padding, container 2:1 so height fits.
	want := Camera{X: -600, Y: -300, W: 1200, H: 600}
	if got := c.Initial(); got != want {
		t.Fatalf("initial=%+v want %+v", got, want)
	}
	if got := c.Camera(); got != want {
		t.Fatalf("camera=%+v want %+v", got, want)
	}
	// container 2.0 > world 1.82, so max width follows world height.
	if c.MaxWidth() != DefaultWorldHeight*2 {
		t.Fatalf("max width=%v", c.MaxWidth())
	}
}

func TestFrameRejectsDegenerateContainer(t *testing.T) {
	c := New(DefaultConfig(), nil)
	before := c.Camera()
	if c.Frame(orb.Bound{Max: orb.Point{10, 10}}, Size{W: 0, H: 600}) {
		t.Fatalf("zero-width container should not frame")
	}
	if c.Camera() != before {
		t.Fatalf("camera changed: %+v", c.Camera())
	}
}

func TestSetCameraIdempotent(t *testing.T) {
	c := framed(t)
	first := c.SetCamera(-100, -50, 400, 0)
	second := c.SetCamera(first.X, first.Y, first.W, first.H)
	if first != second {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
	if first.H != 200 {
		t.Fatalf("height should follow initial aspect, got %v", first.H)
	}
}

func TestSetCameraZoomEnvelope(t *testing.T) {
	c := framed(t)
	if got := c.SetCamera(0, 0, 1, 1); got.W != DefaultMinWidth {
		t.Fatalf("width=%v want min %v", got.W, DefaultMinWidth)
	}
	if got := c.SetCamera(0, 0, 1e9, 1); got.W != c.MaxWidth() {
		t.Fatalf("width=%v want max %v", got.W, c.MaxWidth())
	}

	mobile := New(DefaultConfig(), nil)
	mobile.Frame(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}, Size{W: 400, H: 800})
	if got := mobile.SetCamera(0, 0, 1, 1); got.W != DefaultMobileWidth {
		t.Fatalf("mobile width=%v want %v", got.W, DefaultMobileWidth)
	}
}

func TestSetCameraClampsToWorld(t *testing.T) {
	c := framed(t)
	got := c.SetCamera(-5000, -5000, 400, 0)
	if got.X != -DefaultWorldWidth/2 || got.Y != -DefaultWorldHeight/2 {
		t.Fatalf("top-left clamp=%+v", got)
	}
	got = c.SetCamera(5000, 5000, 400, 0)
	if !near(got.X+got.W, DefaultWorldWidth/2) || !near(got.Y+got.H, DefaultWorldHeight/2) {
		t.Fatalf("bottom-right clamp=%+v", got)
	}
}

func TestSetCameraDegenerateWorld(t *testing.T) {
	var calls int
	c := New(Config{WorldWidth: 0, WorldHeight: 100, MinWidth: 10}, func(Camera) { calls++ })
	before := c.Camera()
	if got := c.SetCamera(1, 2, 3, 4); got != before {
		t.Fatalf("camera changed on degenerate world: %+v", got)
	}
	if calls != 0 {
		t.Fatalf("onChange fired %d times", calls)
	}
}

func TestZoomAtPointKeepsAnchor(t *testing.T) {
	c := framed(t)
	anchor := Point{X: 400, Y: 600}
	wx, wy := c.ToWorld(anchor)
	c.ZoomAtPoint(-300, anchor)
	gx, gy := c.ToWorld(anchor)
	if !near(wx, gx) || !near(wy, gy) {
		t.Fatalf("anchor moved from (%v,%v) to (%v,%v)", wx, wy, gx, gy)
	}
	if c.Camera().W != 900 {
		t.Fatalf("width=%v", c.Camera().W)
	}
}

func TestPinchAndStepZoom(t *testing.T) {
	c := framed(t)
	cx, cy := c.Center()
	c.ZoomStep(-ButtonStep)
	if !near(c.Camera().W, 960) {
		t.Fatalf("button zoom width=%v", c.Camera().W)
	}
	if x, y := c.Center(); !near(x, cx) || !near(y, cy) {
		t.Fatalf("centre moved to (%v,%v)", x, y)
	}
	c.PinchZoom(0.5, Point{X: 800, Y: 400})
	if !near(c.Camera().W, 480) {
		t.Fatalf("pinch width=%v", c.Camera().W)
	}
	before := c.Camera()
	c.PinchZoom(0, Point{})
	c.PinchZoom(math.NaN(), Point{})
	if c.Camera() != before {
		t.Fatalf("invalid scale changed camera")
	}
}

func TestPanPixelsAndReset(t *testing.T) {
	var last Camera
	c := New(DefaultConfig(), func(cam Camera) { last = cam })
	c.Frame(orb.Bound{Min: orb.Point{-300, -200}, Max: orb.Point{300, 200}}, Size{W: 1600, H: 800})

	// 1600px across 1200 world units: 0.75 units per pixel.
	got := c.PanPixels(160, -80)
	if got.X != -480 || got.Y != -360 {
		t.Fatalf("pan=%+v", got)
	}
	if last != got {
		t.Fatalf("onChange saw %+v want %+v", last, got)
	}
	if got := c.Reset(); got != c.Initial() {
		t.Fatalf("reset=%+v want %+v", got, c.Initial())
	}
}

func TestResizeKeepsCentre(t *testing.T) {
	c := framed(t)
	c.ZoomStep(-0.5)
	cx, cy := c.Center()
	w := c.Camera().W
	c.Resize(Size{W: 800, H: 800})
	if x, y := c.Center(); !near(x, cx) || !near(y, cy) {
		t.Fatalf("centre moved to (%v,%v)", x, y)
	}
	cam := c.Camera()
	if cam.W != w || !near(cam.H, cam.W) {
		t.Fatalf("camera after resize=%+v", cam)
	}
	if c.MaxWidth() != DefaultWorldWidth {
		t.Fatalf("max width=%v", c.MaxWidth())
	}
	before := c.Camera()
	c.Resize(Size{})
	if c.Camera() != before {
		t.Fatalf("degenerate resize changed camera")
	}
}

func TestToPixelInvertsToWorld(t *testing.T) {
	c := framed(t)
	p := Point{X: 123, Y: 456}
	x, y := c.ToWorld(p)
	back := c.ToPixel(x, y)
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Fatalf("round trip=%+v", back)
	}
}
