// Package screenshot reads display geometry and captures pixels in absolute
// virtual-screen coordinates.
package screenshot

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"quick-ocr/src/region"
)

var ErrNoDisplays = errors.New("no active displays found")

// DisplayBounds returns the bounds of every active display.
func DisplayBounds() ([]image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}
	return bounds, nil
}

// UnionBounds returns the smallest rectangle containing every display.
func UnionBounds(displays []image.Rectangle) image.Rectangle {
	var union image.Rectangle
	for i, b := range displays {
		if i == 0 {
			union = b
			continue
		}
		union = union.Union(b)
	}
	return union
}

// VirtualScreen returns the metrics of the rectangle covering all displays.
// Its origin is negative when a monitor sits left of or above the primary one.
func VirtualScreen() (region.Metrics, error) {
	displays, err := DisplayBounds()
	if err != nil {
		return region.Metrics{}, err
	}
	m := region.MetricsFromRect(UnionBounds(displays))
	if !m.Valid() {
		return region.Metrics{}, fmt.Errorf("virtual screen has no area: %s", m)
	}
	return m, nil
}

// Capture captures the entire virtual screen across all active displays.
func Capture() (*image.RGBA, error) {
	m, err := VirtualScreen()
	if err != nil {
		return nil, err
	}
	return captureRect(m.Rect())
}

// CaptureBox captures the pixels inside an absolute capture box.
func CaptureBox(box region.CaptureBox) (*image.RGBA, error) {
	if box.Empty() {
		return nil, fmt.Errorf("invalid capture box %s", box)
	}
	return captureRect(box.Rect())
}

func captureRect(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region %v: %w", r, err)
	}
	return img, nil
}
