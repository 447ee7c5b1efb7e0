package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/input"
)

// BehaviorTab edits placement policies and cycle hotkeys of the selected
// profile.
type BehaviorTab struct {
	cfg *config.Config

	width  int
	height int

	editing bool
	form    *huh.Form
	v       *behaviorFields
}

type behaviorFields struct {
	fAutoSave       bool
	fSnapThreshold  string
	fHideNoFocus    bool
	fPreserveOnSwap bool
	fMinimizeSwitch bool

	fBackend        string
	fDevice         string
	fForward        string
	fBackward       string
	fLoggedOutCycle bool
	fRequireFocus   bool
	fToggleSkip     string
	fTogglePreviews string
	fProfileSwitch  string
}

// NewBehaviorTab creates a BehaviorTab over cfg.
func NewBehaviorTab(cfg *config.Config) BehaviorTab {
	return BehaviorTab{cfg: cfg}
}

// Update implements tea.Model.
func (b BehaviorTab) Update(msg tea.Msg) (BehaviorTab, tea.Cmd) {
	if b.editing {
		return b.updateEditing(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && b.cfg.ActiveProfile() != nil {
			b.startEditing()
			return b, b.form.Init()
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
	}
	return b, nil
}

func (b BehaviorTab) updateEditing(msg tea.Msg) (BehaviorTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			b.editing = false
			b.form = nil
			return b, nil
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
	}

	form, cmd := b.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		b.form = f
	}

	if b.form.State == huh.StateCompleted {
		b.applyForm()
		b.editing = false
		b.form = nil
		return b, nil
	}
	return b, cmd
}

// validKey checks a key against the evdev grammar when that backend is
// chosen; xgbutil accepts a superset.
func (v *behaviorFields) validKey(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("a key is required")
	}
	if config.HotkeyBackend(v.fBackend) != config.HotkeyBackendEvdev {
		return nil
	}
	_, err := input.ParseBinding(s)
	return err
}

func (v *behaviorFields) validOptionalKey(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return v.validKey(s)
}

func (b *BehaviorTab) startEditing() {
	p := b.cfg.ActiveProfile()
	b.v = &behaviorFields{}
	v := b.v

	v.fAutoSave = p.Behavior.AutoSavePosition
	v.fSnapThreshold = u16(p.Behavior.SnapThreshold)
	v.fHideNoFocus = p.Behavior.HideWhenNoFocus
	v.fPreserveOnSwap = p.Behavior.PreservePositionOnSwap
	v.fMinimizeSwitch = p.Behavior.MinimizeOnSwitch

	v.fBackend = string(p.Hotkeys.Backend)
	v.fDevice = p.Hotkeys.InputDevice
	v.fForward = p.Hotkeys.Forward
	v.fBackward = p.Hotkeys.Backward
	v.fLoggedOutCycle = p.Hotkeys.LoggedOutCycle
	v.fRequireFocus = p.Hotkeys.RequireEVEFocus
	v.fToggleSkip = p.Hotkeys.ToggleSkip
	v.fTogglePreviews = p.Hotkeys.TogglePreviews
	v.fProfileSwitch = p.Hotkeys.ProfileSwitch

	w := b.width - 4
	if w < 40 {
		w = 40
	}

	b.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("auto_save").
				Title("Auto-save Positions").
				Description("Write the config after every drag").
				Value(&v.fAutoSave),
			huh.NewInput().
				Key("snap_threshold").
				Title("Snap Threshold").
				Description("Pixels; 0 disables snapping").
				Validate(validUint16).
				Value(&v.fSnapThreshold),
			huh.NewConfirm().
				Key("hide_when_no_focus").
				Title("Hide When No Client Focused").
				Value(&v.fHideNoFocus),
			huh.NewConfirm().
				Key("preserve_position_on_swap").
				Title("Keep Position On Character Swap").
				Value(&v.fPreserveOnSwap),
			huh.NewConfirm().
				Key("minimize_on_switch").
				Title("Minimize Others On Switch").
				Value(&v.fMinimizeSwitch),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("backend").
				Title("Hotkey Backend").
				Description("The daemon rebinds keys when the config is saved").
				Options(huh.NewOptions(string(config.HotkeyBackendX11), string(config.HotkeyBackendEvdev))...).
				Value(&v.fBackend),
			huh.NewInput().
				Key("input_device").
				Title("Input Device").
				Description("evdev only; empty scans every keyboard").
				Value(&v.fDevice),
			huh.NewInput().
				Key("forward").
				Title("Cycle Forward").
				Validate(v.validKey).
				Value(&v.fForward),
			huh.NewInput().
				Key("backward").
				Title("Cycle Backward").
				Validate(v.validKey).
				Value(&v.fBackward),
			huh.NewConfirm().
				Key("logged_out_cycle").
				Title("Cycle Logged-out Clients").
				Value(&v.fLoggedOutCycle),
			huh.NewConfirm().
				Key("require_eve_focus").
				Title("Require Client Focus").
				Description("Only cycle while a client window is focused").
				Value(&v.fRequireFocus),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("toggle_skip").
				Title("Toggle Skip").
				Description("Leave the focused client out of cycling; empty disables").
				Validate(v.validOptionalKey).
				Value(&v.fToggleSkip),
			huh.NewInput().
				Key("toggle_previews").
				Title("Toggle Previews").
				Description("Hide or show every preview; empty disables").
				Validate(v.validOptionalKey).
				Value(&v.fTogglePreviews),
			huh.NewInput().
				Key("profile_switch").
				Title("Switch To This Profile").
				Description("Bound whichever profile is active; empty disables").
				Validate(v.validOptionalKey).
				Value(&v.fProfileSwitch),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	b.editing = true
}

func (b *BehaviorTab) applyForm() {
	p := b.cfg.ActiveProfile()
	if p == nil || b.v == nil {
		return
	}
	v := b.v
	p.Behavior.AutoSavePosition = v.fAutoSave
	setUint16(&p.Behavior.SnapThreshold, v.fSnapThreshold)
	p.Behavior.HideWhenNoFocus = v.fHideNoFocus
	p.Behavior.PreservePositionOnSwap = v.fPreserveOnSwap
	p.Behavior.MinimizeOnSwitch = v.fMinimizeSwitch

	if v.fBackend != "" {
		p.Hotkeys.Backend = config.HotkeyBackend(v.fBackend)
	}
	p.Hotkeys.InputDevice = strings.TrimSpace(v.fDevice)
	if key := strings.TrimSpace(v.fForward); key != "" {
		p.Hotkeys.Forward = key
	}
	if key := strings.TrimSpace(v.fBackward); key != "" {
		p.Hotkeys.Backward = key
	}
	p.Hotkeys.LoggedOutCycle = v.fLoggedOutCycle
	p.Hotkeys.RequireEVEFocus = v.fRequireFocus
	p.Hotkeys.ToggleSkip = strings.TrimSpace(v.fToggleSkip)
	p.Hotkeys.TogglePreviews = strings.TrimSpace(v.fTogglePreviews)
	p.Hotkeys.ProfileSwitch = strings.TrimSpace(v.fProfileSwitch)
}

// View implements tea.Model.
func (b BehaviorTab) View() string {
	if b.editing && b.form != nil {
		return renderForm("Editing Behavior and Hotkeys", b.form, b.width, b.height)
	}

	p := b.cfg.ActiveProfile()
	if p == nil {
		return renderEmpty("No profile selected", b.width, b.height)
	}

	snap := "off"
	if p.Behavior.SnapThreshold > 0 {
		snap = fmt.Sprintf("%dpx", p.Behavior.SnapThreshold)
	}

	lines := []string{
		"",
		row("Auto-save Positions", onOff(p.Behavior.AutoSavePosition)),
		row("Snap Threshold", snap),
		row("Hide Without Focus", onOff(p.Behavior.HideWhenNoFocus)),
		row("Keep Pos On Swap", onOff(p.Behavior.PreservePositionOnSwap)),
		row("Minimize On Switch", onOff(p.Behavior.MinimizeOnSwitch)),
		"",
		row("Hotkey Backend", string(p.Hotkeys.Backend)),
		row("Input Device", displayOrDefault(p.Hotkeys.InputDevice, "(all keyboards)")),
		row("Cycle Keys", p.Hotkeys.Forward+" / "+p.Hotkeys.Backward),
		row("Logged-out Cycling", onOff(p.Hotkeys.LoggedOutCycle)),
		row("Require Focus", onOff(p.Hotkeys.RequireEVEFocus)),
		row("Toggle Skip", displayOrDefault(p.Hotkeys.ToggleSkip, "(none)")),
		row("Toggle Previews", displayOrDefault(p.Hotkeys.TogglePreviews, "(none)")),
		row("Profile Switch", displayOrDefault(p.Hotkeys.ProfileSwitch, "(none)")),
		row("Cycle Groups", fmt.Sprintf("%d", len(p.CycleGroups))),
		"",
		dimStyle.Render("  Press 'e' to edit settings"),
	}
	return renderPanel(lines, b.width, b.height)
}
