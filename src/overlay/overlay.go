package overlay

import (
	"context"
	"fmt"

	"quick-ocr/src/gui"
	"quick-ocr/src/region"
)

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// Returns (box, cancelled, error). If cancelled is true, box is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (region.CaptureBox, bool, error)
}

type (
	metricsFunc func() (region.Metrics, error)
	selectFunc  func(ctx context.Context, m region.Metrics, opts gui.SelectOptions) (region.Session, error)
)

type guiSelector struct {
	opts    gui.SelectOptions
	metrics metricsFunc
	run     selectFunc
}

// NewSelector returns the platform overlay. minSpan <= 0 selects region.DefaultMinSpan.
func NewSelector(minSpan int) Selector {
	return &guiSelector{
		opts:    gui.SelectOptions{MinSpan: minSpan},
		metrics: gui.VirtualScreen,
		run:     gui.SelectRegion,
	}
}

// Select reads the virtual screen metrics afresh, so monitors attached
// since the last call are covered.
func (s *guiSelector) Select(ctx context.Context) (region.CaptureBox, bool, error) {
	if err := ctx.Err(); err != nil {
		return region.CaptureBox{}, true, nil
	}
	m, err := s.metrics()
	if err != nil {
		return region.CaptureBox{}, false, fmt.Errorf("failed to read virtual screen: %w", err)
	}

	session, err := s.run(ctx, m, s.opts)
	if err != nil {
		return region.CaptureBox{}, false, err
	}
	box, ok := session.Captured()
	if !ok {
		return region.CaptureBox{}, true, nil
	}
	return box, false, nil
}
