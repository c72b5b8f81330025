//go:build !windows

package main

import (
	"log"

	"quick-ocr/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	displays, err := screenshot.DisplayBounds()
	if err != nil {
		log.Printf("MONITOR: %v", err)
		return
	}
	log.Printf("MONITOR: Detected %d monitors, virtual screen %v", len(displays), screenshot.UnionBounds(displays))
}
