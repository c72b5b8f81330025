//go:build !windows

package gui

import (
	"context"

	"quick-ocr/src/region"
	"quick-ocr/src/screenshot"
)

// SelectRegion is not available on this platform.
func SelectRegion(ctx context.Context, m region.Metrics, opts SelectOptions) (region.Session, error) {
	return region.Session{}, ErrUnsupportedPlatform
}

// VirtualScreen falls back to the display bounds reported by the capture backend.
func VirtualScreen() (region.Metrics, error) {
	return screenshot.VirtualScreen()
}
