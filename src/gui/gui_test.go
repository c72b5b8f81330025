package gui

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"quick-ocr/src/region"
)

func TestSelectRegionUnsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the overlay is implemented on Windows")
	}
	_, err := SelectRegion(context.Background(), region.Metrics{Width: 100, Height: 100}, SelectOptions{})
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("Expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestVirtualScreen(t *testing.T) {
	m, err := VirtualScreen()
	if err != nil {
		t.Logf("Failed to read virtual screen (expected in headless environment): %v", err)
		return
	}
	if !m.Valid() {
		t.Errorf("Expected valid metrics, got %s", m)
	}
}

func TestSelectRegionCancelledByContext(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("interactive region selection test is Windows-only")
	}
	if os.Getenv("QUICKOCR_INTERACTIVE_TESTS") != "1" {
		t.Skip("set QUICKOCR_INTERACTIVE_TESTS=1 to run interactive region selection test")
	}
	m, err := VirtualScreen()
	if err != nil {
		t.Fatalf("VirtualScreen failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	s, err := SelectRegion(ctx, m, SelectOptions{})
	if err != nil {
		t.Fatalf("SelectRegion failed: %v", err)
	}
	if s.Phase != region.PhaseCancelled {
		t.Errorf("Expected cancelled session after context expiry, got %s", s.Phase)
	}
}

func TestSelectRegionInteractive(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("interactive region selection test is Windows-only")
	}
	if os.Getenv("QUICKOCR_INTERACTIVE_TESTS") != "1" {
		t.Skip("set QUICKOCR_INTERACTIVE_TESTS=1 to run interactive region selection test")
	}
	m, err := VirtualScreen()
	if err != nil {
		t.Fatalf("VirtualScreen failed: %v", err)
	}

	t.Log("Drag a rectangle over the screen (or press ESC)")
	s, err := SelectRegion(context.Background(), m, SelectOptions{})
	if err != nil {
		t.Fatalf("SelectRegion failed: %v", err)
	}
	if box, ok := s.Captured(); ok {
		if !box.Rect().In(m.Rect()) {
			t.Errorf("Expected box %s inside virtual screen %s", box, m)
		}
	} else {
		t.Logf("Selection ended in phase %s", s.Phase)
	}
}
