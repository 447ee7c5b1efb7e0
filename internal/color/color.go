package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/render"
)

// Hex is a colour in ARGB32 layout (0xAARRGGBB).
type Hex uint32

// ParseHex parses "RRGGBB" or "AARRGGBB", with or without a leading '#'.
// Six-digit colours are fully opaque.
func ParseHex(s string) (Hex, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(digits) != 6 && len(digits) != 8 {
		return 0, fmt.Errorf("invalid hex color %q: expected 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	if len(digits) == 6 {
		v |= 0xFF000000
	}
	return Hex(v), nil
}

// MustParseHex is ParseHex for compile-time constants.
func MustParseHex(s string) Hex {
	h, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hex) A() uint8 { return uint8(h >> 24) }
func (h Hex) R() uint8 { return uint8(h >> 16) }
func (h Hex) G() uint8 { return uint8(h >> 8) }
func (h Hex) B() uint8 { return uint8(h) }

// ARGB32 returns the raw value.
func (h Hex) ARGB32() uint32 { return uint32(h) }

// Pixel returns the colour without alpha, suitable as a core GC foreground.
func (h Hex) Pixel() uint32 { return uint32(h) & 0x00FFFFFF }

// ToRender widens each channel to 16 bits for RENDER requests.
func (h Hex) ToRender() render.Color {
	return render.Color{
		Red:   widen(h.R()),
		Green: widen(h.G()),
		Blue:  widen(h.B()),
		Alpha: widen(h.A()),
	}
}

// String formats the colour as #AARRGGBB.
func (h Hex) String() string {
	return fmt.Sprintf("#%08X", uint32(h))
}

func widen(v uint8) uint16 {
	return uint16(v)<<8 | uint16(v)
}

// Opacity is a percentage between 0 and 100.
type Opacity uint8

// OpacityFromPercent clamps p to 100.
func OpacityFromPercent(p uint8) Opacity {
	if p > 100 {
		p = 100
	}
	return Opacity(p)
}

// OpacityFromARGB32 recovers a percentage from a _NET_WM_WINDOW_OPACITY value.
func OpacityFromARGB32(v uint32) Opacity {
	alpha := float64(v >> 24)
	return OpacityFromPercent(uint8(math.Round(alpha / 255 * 100)))
}

// ToARGB32 places the alpha in the upper 8 bits, the layout compositors read
// from _NET_WM_WINDOW_OPACITY.
func (o Opacity) ToARGB32() uint32 {
	alpha := uint32(float64(o) / 100 * 255)
	return alpha << 24
}

// Percent returns the opacity as a percentage.
func (o Opacity) Percent() uint8 { return uint8(o) }
