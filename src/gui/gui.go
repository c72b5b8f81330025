// Package gui hosts the full virtual-screen selection overlay.
//
// SelectRegion opens a translucent topmost window over every monitor, feeds
// mouse and keyboard input into a region.Tracker and returns the final
// session once it reaches a terminal phase. Rendering only subscribes to the
// tracker; it keeps no selection state of its own.
package gui

import (
	"errors"
	"log"

	"quick-ocr/src/region"
)

var (
	ErrUnsupportedPlatform = errors.New("interactive region selection not implemented for this platform")
	ErrSelectionInProgress = errors.New("a region selection is already in progress")
)

// SelectOptions tunes a selection session.
type SelectOptions struct {
	// MinSpan is the smallest accepted width and height; <= 0 means region.DefaultMinSpan.
	MinSpan int
}

func logOutcome(s region.Session) {
	switch s.Phase {
	case region.PhaseCaptured:
		log.Printf("OVERLAY: Selection captured: %s", s.Box)
	case region.PhaseCancelled:
		log.Printf("OVERLAY: Selection cancelled")
	default:
		log.Printf("OVERLAY: Selection ended in phase %s", s.Phase)
	}
}
