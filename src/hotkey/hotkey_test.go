package hotkey

import (
	"strings"
	"testing"

	gohook "github.com/robotn/gohook"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},
		{"super", []uint16{91, 92}},

		// Letter and number keys
		{"a", []uint16{65}},
		{"q", []uint16{81}},
		{"z", []uint16{90}},
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},
		{"f25", nil},
		{"f1x", nil},

		// Special keys
		{"space", []uint16{32}},
		{"Enter", []uint16{13}},
		{"esc", []uint16{27}},
		{"printscreen", []uint16{44}},

		{"unknown", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Fatalf("keyNameToRawcodes(%q) = %v, expected %v", tt.keyName, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d", tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+Q", []string{"ctrl", "alt", "q"}},
		{"Control + Shift + O", []string{"ctrl", "shift", "o"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Ctrl++Q", []string{"ctrl", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := strings.Join(parseHotkey(tt.input), ",")
			if want := strings.Join(tt.expected, ","); got != want {
				t.Errorf("parseHotkey(%q) = %s, expected %s", tt.input, got, want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("Ctrl+Alt+Q"); err != nil {
		t.Errorf("Expected default hotkey to parse, got %v", err)
	}
	for _, bad := range []string{"", "Ctrl+Hyper+Q", "+"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Expected Parse(%q) to fail", bad)
		}
	}
}

func TestMatcher(t *testing.T) {
	combo, err := Parse("Ctrl+Alt+Q")
	if err != nil {
		t.Fatal(err)
	}

	type ev struct {
		kind uint8
		code uint16
	}
	down := func(c uint16) ev { return ev{gohook.KeyDown, c} }
	up := func(c uint16) ev { return ev{gohook.KeyUp, c} }
	hold := func(c uint16) ev { return ev{gohook.KeyHold, c} }

	tests := []struct {
		name   string
		events []ev
		fires  int
	}{
		{"left modifiers", []ev{down(162), down(164), down(81)}, 1},
		{"right modifiers", []ev{down(163), down(165), down(81)}, 1},
		{"any order", []ev{down(81), down(164), down(162)}, 1},
		{"released modifier", []ev{down(162), down(164), up(164), down(81)}, 0},
		{"hold events", []ev{hold(162), hold(164), hold(81)}, 1},
		{"unrelated key", []ev{down(162), down(164), down(87)}, 0},
		{"auto repeat fires once", []ev{down(162), down(164), down(81), down(81)}, 1},
		{"press again after release", []ev{down(162), down(164), down(81), up(81), up(164), up(162), down(162), down(164), down(81)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatcher(combo)
			fires := 0
			for _, e := range tt.events {
				if m.handle(e.kind, e.code) {
					fires++
				}
			}
			if fires != tt.fires {
				t.Errorf("Expected %d activations, got %d", tt.fires, fires)
			}
		})
	}
}
