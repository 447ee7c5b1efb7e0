package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/color"
)

// HotkeyBackend selects how cycle keys are captured.
type HotkeyBackend string

const (
	HotkeyBackendX11   HotkeyBackend = "x11"   // Passive key grabs on the root window.
	HotkeyBackendEvdev HotkeyBackend = "evdev" // Raw /dev/input devices; needs the input group.
)

// Preview modes.
const (
	PreviewModeLive   = "live"
	PreviewModeStatic = "static"
)

const (
	DefaultProfileName     = "default"
	DefaultCycleGroup      = "default"
	DefaultThumbnailWidth  = 250
	DefaultThumbnailHeight = 140
	DefaultOpacity         = 75
	DefaultBorderSize      = 3
	DefaultActiveColor     = "#40FF00"
	DefaultInactiveColor   = "#808080"
	DefaultTextSize        = 22
	DefaultTextOffset      = 10
	DefaultTextColor       = "#40FF00"
	DefaultSnapThreshold   = 15
	DefaultForwardKey      = "Tab"
	DefaultBackwardKey     = "Shift-Tab"
)

// Border configures one of the two thumbnail borders.
type Border struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Size    uint16 `yaml:"size" json:"size"`
	Color   string `yaml:"color" json:"color"`
}

// TextConfig configures the character name label.
type TextConfig struct {
	Size  uint16 `yaml:"size" json:"size"`
	X     int16  `yaml:"x" json:"x"`
	Y     int16  `yaml:"y" json:"y"`
	Color string `yaml:"color" json:"color"`
	// Font is a path to a TrueType/OpenType file. Empty searches the default
	// families and then falls back to the X core font.
	Font string `yaml:"font,omitempty" json:"font,omitempty"`
}

// ThumbnailConfig holds the visual settings shared by every preview.
type ThumbnailConfig struct {
	Enabled          bool       `yaml:"enabled" json:"enabled"`
	Width            uint16     `yaml:"width" json:"width"`
	Height           uint16     `yaml:"height" json:"height"`
	Opacity          uint8      `yaml:"opacity" json:"opacity"` // 0-100
	ActiveBorder     Border     `yaml:"active_border" json:"active_border"`
	InactiveBorder   Border     `yaml:"inactive_border" json:"inactive_border"`
	Text             TextConfig `yaml:"text" json:"text"`
	MinimizedOverlay bool       `yaml:"minimized_overlay" json:"minimized_overlay"`
}

// BehaviorConfig holds placement and focus policies.
type BehaviorConfig struct {
	AutoSavePosition       bool   `yaml:"auto_save_position" json:"auto_save_position"`
	SnapThreshold          uint16 `yaml:"snap_threshold" json:"snap_threshold"` // 0 disables snapping
	HideWhenNoFocus        bool   `yaml:"hide_when_no_focus" json:"hide_when_no_focus"`
	PreservePositionOnSwap bool   `yaml:"preserve_position_on_swap" json:"preserve_position_on_swap"`
	MinimizeOnSwitch       bool   `yaml:"minimize_on_switch" json:"minimize_on_switch"`
}

// HotkeyConfig configures client cycling.
type HotkeyConfig struct {
	Backend HotkeyBackend `yaml:"backend" json:"backend"`
	// InputDevice pins the evdev backend to one device; empty scans all
	// keyboards.
	InputDevice     string `yaml:"input_device,omitempty" json:"input_device,omitempty"`
	Forward         string `yaml:"forward" json:"forward"`
	Backward        string `yaml:"backward" json:"backward"`
	LoggedOutCycle  bool   `yaml:"logged_out_cycle" json:"logged_out_cycle"`
	RequireEVEFocus bool   `yaml:"require_eve_focus" json:"require_eve_focus"`

	// ToggleSkip marks the focused client as skipped by cycling.
	ToggleSkip string `yaml:"toggle_skip,omitempty" json:"toggle_skip,omitempty"`
	// TogglePreviews hides or shows every preview.
	TogglePreviews string `yaml:"toggle_previews,omitempty" json:"toggle_previews,omitempty"`
	// ProfileSwitch selects this profile. Every profile's key is bound,
	// whichever profile is active.
	ProfileSwitch string `yaml:"profile_switch,omitempty" json:"profile_switch,omitempty"`
	// Characters maps a character to a key that activates it directly.
	// Characters sharing a key are stepped through in cycle order.
	Characters map[string]string `yaml:"characters,omitempty" json:"characters,omitempty"`
}

// CycleGroup is a named cycle order with its own keys. The profile's
// CycleOrder and Forward/Backward keys form the implicit "default" group.
type CycleGroup struct {
	Name       string   `yaml:"name" json:"name"`
	Characters []string `yaml:"characters" json:"characters"`
	Forward    string   `yaml:"forward,omitempty" json:"forward,omitempty"`
	Backward   string   `yaml:"backward,omitempty" json:"backward,omitempty"`
}

// CustomWindowRule previews a non-EVE window. Title and Class are
// case-insensitive substrings of WM_NAME and WM_CLASS; when both are set both
// must match. The alias stands in for the character name everywhere.
type CustomWindowRule struct {
	Alias  string `yaml:"alias" json:"alias"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
	Class  string `yaml:"class,omitempty" json:"class,omitempty"`
	Width  uint16 `yaml:"width,omitempty" json:"width,omitempty"`
	Height uint16 `yaml:"height,omitempty" json:"height,omitempty"`
	// Limit previews only the first matching window.
	Limit bool `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// PreviewMode selects live capture or a static colour fill.
type PreviewMode struct {
	Mode  string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// IsStatic reports whether the preview shows a solid colour.
func (m PreviewMode) IsStatic() bool {
	return m.Mode == PreviewModeStatic
}

// CharacterSettings is the persisted per-character record.
type CharacterSettings struct {
	X      int16  `yaml:"x" json:"x"`
	Y      int16  `yaml:"y" json:"y"`
	Width  uint16 `yaml:"width,omitempty" json:"width,omitempty"`
	Height uint16 `yaml:"height,omitempty" json:"height,omitempty"`

	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`

	OverrideActiveBorderColor   string  `yaml:"override_active_border_color,omitempty" json:"override_active_border_color,omitempty"`
	OverrideInactiveBorderColor string  `yaml:"override_inactive_border_color,omitempty" json:"override_inactive_border_color,omitempty"`
	OverrideActiveBorderSize    *uint16 `yaml:"override_active_border_size,omitempty" json:"override_active_border_size,omitempty"`
	OverrideInactiveBorderSize  *uint16 `yaml:"override_inactive_border_size,omitempty" json:"override_inactive_border_size,omitempty"`
	OverrideTextColor           string  `yaml:"override_text_color,omitempty" json:"override_text_color,omitempty"`

	PreviewMode PreviewMode `yaml:"preview_mode,omitempty" json:"preview_mode,omitempty"`
}

// Profile is a named set of visual settings, policies and character records.
type Profile struct {
	Name          string                       `yaml:"name" json:"name"`
	Description   string                       `yaml:"description,omitempty" json:"description,omitempty"`
	Thumbnails    ThumbnailConfig              `yaml:"thumbnails" json:"thumbnails"`
	Behavior      BehaviorConfig               `yaml:"behavior" json:"behavior"`
	Hotkeys       HotkeyConfig                 `yaml:"hotkeys" json:"hotkeys"`
	CycleOrder    []string                     `yaml:"cycle_order,omitempty" json:"cycle_order,omitempty"`
	CycleGroups   []CycleGroup                 `yaml:"cycle_groups,omitempty" json:"cycle_groups,omitempty"`
	CustomWindows []CustomWindowRule           `yaml:"custom_windows,omitempty" json:"custom_windows,omitempty"`
	Characters    map[string]CharacterSettings `yaml:"characters,omitempty" json:"characters,omitempty"`
}

// LogConfig configures daemon logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// File enables a rotating log file in addition to stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// MaxSizeMB is the size at which the file rotates (default: 10).
	MaxSizeMB int `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3).
	MaxFiles int `yaml:"max_files,omitempty" json:"max_files,omitempty"`
}

// Config is the whole configuration file.
type Config struct {
	SelectedProfile string    `yaml:"selected_profile" json:"selected_profile"`
	Log             LogConfig `yaml:"log" json:"log"`
	Profiles        []Profile `yaml:"profiles" json:"profiles"`
}

// DefaultProfile returns a profile with every setting at its default.
func DefaultProfile(name string) Profile {
	return Profile{
		Name: name,
		Thumbnails: ThumbnailConfig{
			Enabled: true,
			Width:   DefaultThumbnailWidth,
			Height:  DefaultThumbnailHeight,
			Opacity: DefaultOpacity,
			ActiveBorder: Border{
				Enabled: true,
				Size:    DefaultBorderSize,
				Color:   DefaultActiveColor,
			},
			InactiveBorder: Border{
				Enabled: false,
				Size:    DefaultBorderSize,
				Color:   DefaultInactiveColor,
			},
			Text: TextConfig{
				Size:  DefaultTextSize,
				X:     DefaultTextOffset,
				Y:     DefaultTextOffset,
				Color: DefaultTextColor,
			},
			MinimizedOverlay: true,
		},
		Behavior: BehaviorConfig{
			AutoSavePosition:       true,
			SnapThreshold:          DefaultSnapThreshold,
			HideWhenNoFocus:        false,
			PreservePositionOnSwap: true,
			MinimizeOnSwitch:       false,
		},
		Hotkeys: HotkeyConfig{
			Backend:         HotkeyBackendX11,
			Forward:         DefaultForwardKey,
			Backward:        DefaultBackwardKey,
			RequireEVEFocus: true,
		},
		Characters: make(map[string]CharacterSettings),
	}
}

// DefaultConfig returns a configuration with a single default profile.
func DefaultConfig() *Config {
	return &Config{
		SelectedProfile: DefaultProfileName,
		Log:             defaultLogConfig(),
		Profiles:        []Profile{DefaultProfile(DefaultProfileName)},
	}
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "info", MaxSizeMB: 10, MaxFiles: 3}
}

// ActiveProfile returns the selected profile, or the first one when the
// selection names no profile.
func (c *Config) ActiveProfile() *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == c.SelectedProfile {
			return &c.Profiles[i]
		}
	}
	if len(c.Profiles) > 0 {
		return &c.Profiles[0]
	}
	return nil
}

// Profile returns the named profile.
func (c *Config) Profile(name string) (*Profile, bool) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], true
		}
	}
	return nil, false
}

// ReplaceProfile swaps in p for the profile with the same name, appending it
// when none exists.
func (c *Config) ReplaceProfile(p Profile) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			return
		}
	}
	c.Profiles = append(c.Profiles, p)
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath validates and atomically replaces the file at path.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod config file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	if c.Log.MaxSizeMB < 0 {
		return &ValidationError{Path: "log.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Log.MaxFiles < 0 {
		return &ValidationError{Path: "log.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}

	if len(c.Profiles) == 0 {
		return &ValidationError{Path: "profiles", Err: fmt.Errorf("at least one profile is required")}
	}
	seen := make(map[string]struct{}, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		prefix := fmt.Sprintf("profiles.%d", i)
		if p.Name == "" {
			return &ValidationError{Path: prefix + ".name", Err: fmt.Errorf("profile name is required")}
		}
		if _, dup := seen[p.Name]; dup {
			return &ValidationError{Path: prefix + ".name", Err: fmt.Errorf("duplicate profile name %q", p.Name)}
		}
		seen[p.Name] = struct{}{}
		if err := validateProfile(p, prefix); err != nil {
			return err
		}
	}
	if err := validateProfileSwitchKeys(c.Profiles); err != nil {
		return err
	}
	if _, ok := c.Profile(c.SelectedProfile); !ok {
		return &ValidationError{Path: "selected_profile", Err: fmt.Errorf("profile %q not found", c.SelectedProfile)}
	}
	return nil
}

func validateProfile(p *Profile, prefix string) error {
	t := p.Thumbnails
	if t.Width == 0 || t.Height == 0 {
		return &ValidationError{Path: prefix + ".thumbnails.width", Err: fmt.Errorf("thumbnail width and height must be > 0")}
	}
	if t.Opacity > 100 {
		return &ValidationError{Path: prefix + ".thumbnails.opacity", Err: fmt.Errorf("opacity must be between 0 and 100")}
	}
	colors := map[string]string{
		".thumbnails.active_border.color":   t.ActiveBorder.Color,
		".thumbnails.inactive_border.color": t.InactiveBorder.Color,
		".thumbnails.text.color":            t.Text.Color,
	}
	for path, value := range colors {
		if _, err := color.ParseHex(value); err != nil {
			return &ValidationError{Path: prefix + path, Err: err}
		}
	}
	if t.Text.Size == 0 {
		return &ValidationError{Path: prefix + ".thumbnails.text.size", Err: fmt.Errorf("text size must be > 0")}
	}

	switch p.Hotkeys.Backend {
	case HotkeyBackendX11, HotkeyBackendEvdev:
	default:
		return &ValidationError{Path: prefix + ".hotkeys.backend", Err: fmt.Errorf("backend must be one of: x11, evdev")}
	}
	if p.Hotkeys.Backend == HotkeyBackendX11 && (p.Hotkeys.Forward == "" || p.Hotkeys.Backward == "") {
		return &ValidationError{Path: prefix + ".hotkeys.forward", Err: fmt.Errorf("forward and backward keys are required for the x11 backend")}
	}
	if err := validateGroups(p, prefix); err != nil {
		return err
	}
	if err := validateCustomWindows(p, prefix); err != nil {
		return err
	}
	if err := validateKeys(p, prefix); err != nil {
		return err
	}

	for name, cs := range p.Characters {
		cp := prefix + ".characters." + name
		for field, value := range map[string]string{
			"override_active_border_color":   cs.OverrideActiveBorderColor,
			"override_inactive_border_color": cs.OverrideInactiveBorderColor,
			"override_text_color":            cs.OverrideTextColor,
		} {
			if value == "" {
				continue
			}
			if _, err := color.ParseHex(value); err != nil {
				return &ValidationError{Path: cp + "." + field, Err: err}
			}
		}
		switch cs.PreviewMode.Mode {
		case "", PreviewModeLive:
		case PreviewModeStatic:
			if _, err := color.ParseHex(cs.PreviewMode.Color); err != nil {
				return &ValidationError{Path: cp + ".preview_mode.color", Err: err}
			}
		default:
			return &ValidationError{Path: cp + ".preview_mode.mode", Err: fmt.Errorf("mode must be one of: live, static")}
		}
	}
	return nil
}
