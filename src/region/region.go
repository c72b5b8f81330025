// Package region turns drag gestures on a virtual-screen overlay into absolute
// capture rectangles.
//
// Overlay-local coordinates are relative to the overlay's own top-left corner,
// which sits at Metrics.Origin and not at the primary display's (0,0). The
// absolute coordinate is always local + Origin; on layouts where a monitor lies
// left of or above the primary display the origin is negative.
package region

import (
	"fmt"
	"image"
)

// DefaultMinSpan is the smallest width/height (in pixels) a selection may have.
// Anything smaller is treated as an accidental click.
const DefaultMinSpan = 5

// Point is a pixel position.
type Point struct {
	X int
	Y int
}

// Metrics describes the virtual screen: the bounding rectangle of all attached
// displays in absolute pixel coordinates.
type Metrics struct {
	Origin Point
	Width  int
	Height int
}

// MetricsFromRect builds Metrics from an absolute rectangle.
func MetricsFromRect(r image.Rectangle) Metrics {
	return Metrics{
		Origin: Point{X: r.Min.X, Y: r.Min.Y},
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Rect returns the absolute rectangle covered by the virtual screen.
func (m Metrics) Rect() image.Rectangle {
	return image.Rect(m.Origin.X, m.Origin.Y, m.Origin.X+m.Width, m.Origin.Y+m.Height)
}

// Valid reports whether the metrics describe a non-empty surface.
func (m Metrics) Valid() bool { return m.Width > 0 && m.Height > 0 }

// Clamp pins a local point into [0, Width) x [0, Height).
func (m Metrics) Clamp(p Point) Point {
	return Point{X: clamp(p.X, 0, m.Width-1), Y: clamp(p.Y, 0, m.Height-1)}
}

func (m Metrics) String() string {
	return fmt.Sprintf("origin=(%d,%d) size=%dx%d", m.Origin.X, m.Origin.Y, m.Width, m.Height)
}

// CaptureBox is an absolute virtual-screen rectangle. Right and Bottom are exclusive.
type CaptureBox struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (b CaptureBox) Width() int  { return b.Right - b.Left }
func (b CaptureBox) Height() int { return b.Bottom - b.Top }

// Rect converts the box to an image.Rectangle.
func (b CaptureBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Empty reports whether the box has no area.
func (b CaptureBox) Empty() bool { return b.Right <= b.Left || b.Bottom <= b.Top }

func (b CaptureBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", b.Left, b.Top, b.Right, b.Bottom, b.Width(), b.Height())
}

// Normalize returns the rectangle spanned by two points regardless of drag direction.
func Normalize(a, b Point) image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		Max: image.Point{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

// ToCaptureBox maps an overlay-local rectangle to absolute coordinates.
func ToCaptureBox(local image.Rectangle, m Metrics) CaptureBox {
	return CaptureBox{
		Left:   local.Min.X + m.Origin.X,
		Top:    local.Min.Y + m.Origin.Y,
		Right:  local.Max.X + m.Origin.X,
		Bottom: local.Max.Y + m.Origin.Y,
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
