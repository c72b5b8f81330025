// Package tray puts the resident application in the notification area.
package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"
)

const Title = "Quick OCR"

type Config struct {
	Hotkey    string
	OnCapture func()
	OnExit    func()
}

type Tray struct {
	cfg Config

	mu      sync.Mutex
	ready   bool
	tooltip string
}

func New(cfg Config) *Tray {
	return &Tray{cfg: cfg, tooltip: Tooltip(cfg.Hotkey, false)}
}

// Run blocks until Quit is called or the Quit menu item is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) Quit() {
	systray.Quit()
}

// UpdateTooltip reflects whether a capture is being processed.
func (t *Tray) UpdateTooltip(busy bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tooltip = Tooltip(t.cfg.Hotkey, busy)
	if t.ready {
		systray.SetTooltip(t.tooltip)
	}
}

// Tooltip returns the tray tooltip for the given state.
func Tooltip(hotkey string, busy bool) string {
	if busy {
		return Title + " - recognising text..."
	}
	if hotkey == "" {
		return Title
	}
	return fmt.Sprintf("%s - Press %s to capture", Title, hotkey)
}

func (t *Tray) onReady() {
	icon, err := Icon()
	if err != nil {
		log.Printf("Tray: could not build icon: %v", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle(Title)

	t.mu.Lock()
	t.ready = true
	systray.SetTooltip(t.tooltip)
	t.mu.Unlock()

	mCapture := systray.AddMenuItem("Capture zone", "Select a screen region and copy its text")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				if t.cfg.OnCapture != nil {
					t.cfg.OnCapture()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}
