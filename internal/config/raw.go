package config

// Raw types mirror the file layout with pointer fields so that an absent key
// keeps its default instead of decoding to the zero value.

type RawBorder struct {
	Enabled *bool   `yaml:"enabled"`
	Size    *uint16 `yaml:"size"`
	Color   *string `yaml:"color"`
}

type RawTextConfig struct {
	Size  *uint16 `yaml:"size"`
	X     *int16  `yaml:"x"`
	Y     *int16  `yaml:"y"`
	Color *string `yaml:"color"`
	Font  *string `yaml:"font"`
}

type RawThumbnailConfig struct {
	Enabled          *bool          `yaml:"enabled"`
	Width            *uint16        `yaml:"width"`
	Height           *uint16        `yaml:"height"`
	Opacity          *uint8         `yaml:"opacity"`
	ActiveBorder     *RawBorder     `yaml:"active_border"`
	InactiveBorder   *RawBorder     `yaml:"inactive_border"`
	Text             *RawTextConfig `yaml:"text"`
	MinimizedOverlay *bool          `yaml:"minimized_overlay"`
}

type RawBehaviorConfig struct {
	AutoSavePosition       *bool   `yaml:"auto_save_position"`
	SnapThreshold          *uint16 `yaml:"snap_threshold"`
	HideWhenNoFocus        *bool   `yaml:"hide_when_no_focus"`
	PreservePositionOnSwap *bool   `yaml:"preserve_position_on_swap"`
	MinimizeOnSwitch       *bool   `yaml:"minimize_on_switch"`
}

type RawHotkeyConfig struct {
	Backend         *HotkeyBackend    `yaml:"backend"`
	InputDevice     *string           `yaml:"input_device"`
	Forward         *string           `yaml:"forward"`
	Backward        *string           `yaml:"backward"`
	LoggedOutCycle  *bool             `yaml:"logged_out_cycle"`
	RequireEVEFocus *bool             `yaml:"require_eve_focus"`
	ToggleSkip      *string           `yaml:"toggle_skip"`
	TogglePreviews  *string           `yaml:"toggle_previews"`
	ProfileSwitch   *string           `yaml:"profile_switch"`
	Characters      map[string]string `yaml:"characters"`
}

type RawProfile struct {
	Name          *string                      `yaml:"name"`
	Description   *string                      `yaml:"description"`
	Thumbnails    *RawThumbnailConfig          `yaml:"thumbnails"`
	Behavior      *RawBehaviorConfig           `yaml:"behavior"`
	Hotkeys       *RawHotkeyConfig             `yaml:"hotkeys"`
	CycleOrder    []string                     `yaml:"cycle_order"`
	CycleGroups   []CycleGroup                 `yaml:"cycle_groups"`
	CustomWindows []CustomWindowRule           `yaml:"custom_windows"`
	Characters    map[string]CharacterSettings `yaml:"characters"`
}

type RawLogConfig struct {
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawConfig struct {
	SelectedProfile *string       `yaml:"selected_profile"`
	Log             *RawLogConfig `yaml:"log"`
	Profiles        []RawProfile  `yaml:"profiles"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (b *RawBorder) applyTo(dst *Border) {
	if b == nil {
		return
	}
	set(&dst.Enabled, b.Enabled)
	set(&dst.Size, b.Size)
	set(&dst.Color, b.Color)
}

func (t *RawTextConfig) applyTo(dst *TextConfig) {
	if t == nil {
		return
	}
	set(&dst.Size, t.Size)
	set(&dst.X, t.X)
	set(&dst.Y, t.Y)
	set(&dst.Color, t.Color)
	set(&dst.Font, t.Font)
}

func (t *RawThumbnailConfig) applyTo(dst *ThumbnailConfig) {
	if t == nil {
		return
	}
	set(&dst.Enabled, t.Enabled)
	set(&dst.Width, t.Width)
	set(&dst.Height, t.Height)
	set(&dst.Opacity, t.Opacity)
	t.ActiveBorder.applyTo(&dst.ActiveBorder)
	t.InactiveBorder.applyTo(&dst.InactiveBorder)
	t.Text.applyTo(&dst.Text)
	set(&dst.MinimizedOverlay, t.MinimizedOverlay)
}

func (b *RawBehaviorConfig) applyTo(dst *BehaviorConfig) {
	if b == nil {
		return
	}
	set(&dst.AutoSavePosition, b.AutoSavePosition)
	set(&dst.SnapThreshold, b.SnapThreshold)
	set(&dst.HideWhenNoFocus, b.HideWhenNoFocus)
	set(&dst.PreservePositionOnSwap, b.PreservePositionOnSwap)
	set(&dst.MinimizeOnSwitch, b.MinimizeOnSwitch)
}

func (h *RawHotkeyConfig) applyTo(dst *HotkeyConfig) {
	if h == nil {
		return
	}
	set(&dst.Backend, h.Backend)
	set(&dst.InputDevice, h.InputDevice)
	set(&dst.Forward, h.Forward)
	set(&dst.Backward, h.Backward)
	set(&dst.LoggedOutCycle, h.LoggedOutCycle)
	set(&dst.RequireEVEFocus, h.RequireEVEFocus)
	set(&dst.ToggleSkip, h.ToggleSkip)
	set(&dst.TogglePreviews, h.TogglePreviews)
	set(&dst.ProfileSwitch, h.ProfileSwitch)
	if h.Characters != nil {
		dst.Characters = make(map[string]string, len(h.Characters))
		for name, key := range h.Characters {
			dst.Characters[name] = key
		}
	}
}
