package input

import (
	"fmt"
	"strings"
)

// Linux input event codes (linux/input-event-codes.h).
const (
	evKey = 0x01

	keyEsc        = 1
	keyTab        = 15
	keyLeftCtrl   = 29
	keyGrave      = 41
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
	keyMax        = 0x2ff
)

// Mod is a set of held modifiers.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// modifierKeys maps modifier key codes to the modifier they hold.
var modifierKeys = map[uint16]Mod{
	keyLeftShift:  ModShift,
	keyRightShift: ModShift,
	keyLeftCtrl:   ModControl,
	keyRightCtrl:  ModControl,
	keyLeftAlt:    ModAlt,
	keyRightAlt:   ModAlt,
	keyLeftMeta:   ModSuper,
	keyRightMeta:  ModSuper,
}

var modifierNames = map[string]Mod{
	"shift":   ModShift,
	"control": ModControl,
	"ctrl":    ModControl,
	"mod1":    ModAlt,
	"alt":     ModAlt,
	"mod4":    ModSuper,
	"super":   ModSuper,
}

var keyNames = map[string]uint16{
	"tab":    keyTab,
	"escape": keyEsc,
	"grave":  keyGrave,
	"space":  keySpace,
	"f11":    87,
	"f12":    88,
}

func init() {
	for i, r := range "1234567890" {
		keyNames[string(r)] = uint16(2 + i)
	}
	rows := []struct {
		letters string
		first   uint16
	}{
		{"qwertyuiop", 16},
		{"asdfghjkl", 30},
		{"zxcvbnm", 44},
	}
	for _, row := range rows {
		for i, r := range row.letters {
			keyNames[string(r)] = row.first + uint16(i)
		}
	}
	for i := 0; i < 10; i++ {
		keyNames[fmt.Sprintf("f%d", i+1)] = uint16(59 + i)
	}
}

// Binding is a key code plus the exact modifier set that must be held.
type Binding struct {
	Code uint16
	Mods Mod
}

// ParseBinding reads the same "Shift-Tab" / "Mod1-F1" notation the X11
// backend accepts.
func ParseBinding(s string) (Binding, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Binding{}, fmt.Errorf("empty key binding %q", s)
	}

	var b Binding
	for _, part := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(part)]
		if !ok {
			return Binding{}, fmt.Errorf("unknown modifier %q in %q", part, s)
		}
		b.Mods |= mod
	}
	key := strings.ToLower(parts[len(parts)-1])
	code, ok := keyNames[key]
	if !ok {
		return Binding{}, fmt.Errorf("unsupported key %q in %q", parts[len(parts)-1], s)
	}
	b.Code = code
	return b, nil
}

// Bound is a parsed hotkey.
type Bound struct {
	Binding Binding
	Command Command
}

// ParseHotkeys parses every key. The first failure names the key.
func ParseHotkeys(keys []Hotkey) ([]Bound, error) {
	out := make([]Bound, 0, len(keys))
	for _, k := range keys {
		b, err := ParseBinding(k.Key)
		if err != nil {
			return nil, fmt.Errorf("%s key: %w", k.Command.Action, err)
		}
		out = append(out, Bound{Binding: b, Command: k.Command})
	}
	return out, nil
}

// Matcher turns key events into commands, tracking modifiers across every
// device it is fed from. When two entries share a binding the first wins.
type Matcher struct {
	keys []Bound
	held map[uint16]bool
}

// NewMatcher builds a matcher over keys.
func NewMatcher(keys []Bound) *Matcher {
	return &Matcher{keys: keys, held: make(map[uint16]bool)}
}

func (m *Matcher) mods() Mod {
	var mods Mod
	for code, down := range m.held {
		if down {
			mods |= modifierKeys[code]
		}
	}
	return mods
}

// Key processes one EV_KEY event. value is 0 for release, 1 for press and 2
// for autorepeat; repeats never fire.
func (m *Matcher) Key(code uint16, value int32) (Command, bool) {
	if _, ok := modifierKeys[code]; ok {
		m.held[code] = value != 0
		return Command{}, false
	}
	if value != 1 {
		return Command{}, false
	}
	mods := m.mods()
	for _, k := range m.keys {
		if k.Binding.Code == code && k.Binding.Mods == mods {
			return k.Command, true
		}
	}
	return Command{}, false
}
