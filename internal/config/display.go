package config

import (
	"github.com/1broseidon/evepreview/internal/color"
	"github.com/1broseidon/evepreview/internal/geometry"
)

// DisplayConfig is the resolved, render-ready view of a profile. It is shared
// by pointer between thumbnails and replaced wholesale when a new profile is
// applied, never mutated in place.
type DisplayConfig struct {
	Enabled    bool
	Dimensions geometry.Dimensions
	Opacity    uint32 // ARGB32 value for _NET_WM_WINDOW_OPACITY

	ActiveBorderEnabled bool
	ActiveBorderSize    uint16
	ActiveBorderColor   color.Hex

	InactiveBorderEnabled bool
	InactiveBorderSize    uint16
	InactiveBorderColor   color.Hex

	TextOffset geometry.TextOffset
	TextColor  color.Hex
	TextSize   uint16
	TextFont   string

	HideWhenNoFocus  bool
	MinimizedOverlay bool
	SnapThreshold    uint16

	Characters map[string]CharacterSettings
}

// DisplayConfig resolves the profile's thumbnail settings. Colours are
// validated on load, so a parse failure here falls back to the defaults.
func (p *Profile) DisplayConfig() *DisplayConfig {
	t := p.Thumbnails
	chars := make(map[string]CharacterSettings, len(p.Characters))
	for name, cs := range p.Characters {
		chars[name] = cs
	}
	return &DisplayConfig{
		Enabled:               t.Enabled,
		Dimensions:            geometry.Dimensions{Width: t.Width, Height: t.Height},
		Opacity:               color.OpacityFromPercent(t.Opacity).ToARGB32(),
		ActiveBorderEnabled:   t.ActiveBorder.Enabled,
		ActiveBorderSize:      t.ActiveBorder.Size,
		ActiveBorderColor:     parseOr(t.ActiveBorder.Color, DefaultActiveColor),
		InactiveBorderEnabled: t.InactiveBorder.Enabled,
		InactiveBorderSize:    t.InactiveBorder.Size,
		InactiveBorderColor:   parseOr(t.InactiveBorder.Color, DefaultInactiveColor),
		TextOffset:            geometry.TextOffset{X: t.Text.X, Y: t.Text.Y},
		TextColor:             parseOr(t.Text.Color, DefaultTextColor),
		TextSize:              t.Text.Size,
		TextFont:              t.Text.Font,
		HideWhenNoFocus:       p.Behavior.HideWhenNoFocus,
		MinimizedOverlay:      t.MinimizedOverlay,
		SnapThreshold:         p.Behavior.SnapThreshold,
		Characters:            chars,
	}
}

func parseOr(s, fallback string) color.Hex {
	if h, err := color.ParseHex(s); err == nil {
		return h
	}
	return color.MustParseHex(fallback)
}

// BorderStyle is the border to draw for one character in one focus state.
type BorderStyle struct {
	Size  uint16
	Color color.Hex
	// Override is set when Color comes from the character rather than the
	// shared fill.
	Override bool
	Visible  bool
}

// Border resolves the border for name, applying per-character overrides.
func (d *DisplayConfig) Border(name string, focused bool) BorderStyle {
	cs, hasChar := d.Characters[name]

	style := BorderStyle{Size: d.InactiveBorderSize, Color: d.InactiveBorderColor}
	enabled := d.InactiveBorderEnabled
	sizeOverride, colorOverride := cs.OverrideInactiveBorderSize, cs.OverrideInactiveBorderColor
	if focused {
		style = BorderStyle{Size: d.ActiveBorderSize, Color: d.ActiveBorderColor}
		enabled = d.ActiveBorderEnabled
		sizeOverride, colorOverride = cs.OverrideActiveBorderSize, cs.OverrideActiveBorderColor
	}

	if hasChar {
		if sizeOverride != nil {
			style.Size = *sizeOverride
		}
		if colorOverride != "" {
			if h, err := color.ParseHex(colorOverride); err == nil {
				style.Color = h
				style.Override = true
			}
		}
	}
	style.Visible = enabled && style.Size > 0
	return style
}

// Label returns the text drawn for name: its alias when set, and the
// character's text colour override when it parses.
func (d *DisplayConfig) Label(name string) (string, color.Hex) {
	text, c := name, d.TextColor
	cs, ok := d.Characters[name]
	if !ok {
		return text, c
	}
	if cs.Alias != "" {
		text = cs.Alias
	}
	if cs.OverrideTextColor != "" {
		if h, err := color.ParseHex(cs.OverrideTextColor); err == nil {
			c = h
		}
	}
	return text, c
}

// StaticFill reports whether name is configured to show a solid colour
// instead of the live capture.
func (d *DisplayConfig) StaticFill(name string) (color.Hex, bool) {
	cs, ok := d.Characters[name]
	if !ok || !cs.PreviewMode.IsStatic() {
		return 0, false
	}
	h, err := color.ParseHex(cs.PreviewMode.Color)
	if err != nil {
		return 0, false
	}
	return h, true
}
