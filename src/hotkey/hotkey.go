// Package hotkey watches global keyboard events for a configured key combination.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"

	gohook "github.com/robotn/gohook"
)

// Combo is a parsed hotkey such as "Ctrl+Alt+Q".
type Combo struct {
	Spec string
	keys []key
}

type key struct {
	name     string
	rawcodes []uint16
}

// Parse validates a hotkey string. Every part must map to a known key.
func Parse(spec string) (Combo, error) {
	names := parseHotkey(spec)
	if len(names) == 0 {
		return Combo{}, fmt.Errorf("empty hotkey %q", spec)
	}
	c := Combo{Spec: spec}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("hotkey %q: unknown key %q", spec, name)
		}
		c.keys = append(c.keys, key{name: name, rawcodes: codes})
	}
	return c, nil
}

// matcher tracks which keys of a combo are held down.
type matcher struct {
	combo   Combo
	pressed []bool
}

func newMatcher(c Combo) *matcher {
	return &matcher{combo: c, pressed: make([]bool, len(c.keys))}
}

// handle feeds one key event and reports whether it completed the combo.
// libuiohook reports a physical press as KeyHold and a typed character as KeyDown.
// Held keys are released on completion so auto-repeat fires only once.
func (m *matcher) handle(kind uint8, rawcode uint16) bool {
	idx := m.indexOf(rawcode)
	if idx < 0 {
		return false
	}
	switch kind {
	case gohook.KeyUp:
		m.pressed[idx] = false
		return false
	case gohook.KeyDown, gohook.KeyHold:
		m.pressed[idx] = true
	default:
		return false
	}
	for _, p := range m.pressed {
		if !p {
			return false
		}
	}
	for i := range m.pressed {
		m.pressed[i] = false
	}
	return true
}

func (m *matcher) indexOf(rawcode uint16) int {
	for i, k := range m.combo.keys {
		for _, c := range k.rawcodes {
			if c == rawcode {
				return i
			}
		}
	}
	return -1
}

// Listen starts the global keyboard hook and calls callback each time the
// combo is pressed, until ctx is cancelled. The callback runs on the hook
// goroutine and must not block.
func Listen(ctx context.Context, spec string, callback func()) error {
	combo, err := Parse(spec)
	if err != nil {
		return err
	}
	log.Printf("Hotkey listener configured for: %s", combo.Spec)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("keyboard hook could not be started")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		defer gohook.End()

		m := newMatcher(combo)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Printf("Hotkey: event channel closed")
					return
				}
				if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyHold && ev.Kind != gohook.KeyUp {
					continue
				}
				if m.handle(ev.Kind, ev.Rawcode) {
					log.Printf("Hotkey activated: %s", combo.Spec)
					if callback != nil {
						callback()
					}
				}
			}
		}
	}()
	return nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(spec string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(spec), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// Windows virtual key codes, which gohook reports as Rawcode.
var specialKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":       {32},
	"enter":       {13},
	"return":      {13},
	"esc":         {27},
	"escape":      {27},
	"tab":         {9},
	"backspace":   {8},
	"delete":      {46},
	"del":         {46},
	"insert":      {45},
	"ins":         {45},
	"home":        {36},
	"end":         {35},
	"pageup":      {33},
	"pgup":        {33},
	"pagedown":    {34},
	"pgdn":        {34},
	"printscreen": {44},
	"prtsc":       {44},

	"left":  {37},
	"up":    {38},
	"right": {39},
	"down":  {40},
}

// keyNameToRawcodes maps a key name to its virtual key codes; modifiers map
// to both their left and right variants.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "win", "super":
		name = "cmd"
	}
	if codes, ok := specialKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}
