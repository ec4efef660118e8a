package hotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Combo is a parsed key combination: each part mapped to the Windows
// virtual-key rawcodes the OS hook reports. Modifiers carry both their left
// and right variants.
type Combo struct {
	Label string
	keys  []comboKey
}

type comboKey struct {
	name     string
	rawcodes []uint16
}

// ParseCombo canonicalizes a combo string like "Ctrl+Alt+Space". Every part
// must map to a known key; an empty string is rejected outright.
func ParseCombo(s string) (Combo, error) {
	if strings.TrimSpace(s) == "" {
		return Combo{}, errors.New("hotkey: empty combo")
	}

	c := Combo{Label: s}
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		codes := keyRawcodes(part)
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("hotkey: unknown key %q in combo %q", part, s)
		}
		c.keys = append(c.keys, comboKey{name: part, rawcodes: codes})
	}
	return c, nil
}

// keyRawcodes maps a key name to its virtual-key rawcodes. Modifiers return
// both variants (e.g. VK_LCONTROL and VK_RCONTROL).
func keyRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33} // VK_PRIOR
	case "pagedown", "pgdn":
		return []uint16{34} // VK_NEXT
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}

	// Letters and digits map directly onto their VK codes.
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 0x41}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 0x30}
		}
	}

	// Function keys F1..F24 occupy VK 0x70..0x87.
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(0x70 + n - 1)}
		}
	}

	return nil
}
