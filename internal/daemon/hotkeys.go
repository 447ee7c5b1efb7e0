package daemon

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/input"
)

// Hotkeys lists every key the active profile binds, followed by the switch
// key of each profile. The default cycle keys fall back to Tab and Shift-Tab.
// Characters sharing a key produce one entry whose target is the normalised
// key.
func Hotkeys(cfg *config.Config) []input.Hotkey {
	var keys []input.Hotkey
	add := func(key string, cmd input.Command) {
		if key != "" {
			keys = append(keys, input.Hotkey{Key: key, Command: cmd})
		}
	}

	if p := cfg.ActiveProfile(); p != nil {
		for _, g := range p.Groups() {
			fwd, bwd := g.Forward, g.Backward
			if g.Name == config.DefaultCycleGroup {
				fwd = orDefault(fwd, config.DefaultForwardKey)
				bwd = orDefault(bwd, config.DefaultBackwardKey)
			}
			add(fwd, input.Command{Action: input.CycleForward, Target: g.Name})
			add(bwd, input.Command{Action: input.CycleBackward, Target: g.Name})
		}
		add(p.Hotkeys.ToggleSkip, input.Command{Action: input.ToggleSkip})
		add(p.Hotkeys.TogglePreviews, input.Command{Action: input.TogglePreviews})

		names := make([]string, 0, len(p.Hotkeys.Characters))
		for name := range p.Hotkeys.Characters {
			names = append(names, name)
		}
		sort.Strings(names)
		seen := make(map[string]bool)
		for _, name := range names {
			key := p.Hotkeys.Characters[name]
			id := config.NormalizeKey(key)
			if key == "" || seen[id] {
				continue
			}
			seen[id] = true
			add(key, input.Command{Action: input.ActivateCharacter, Target: id})
		}
	}

	for _, p := range cfg.Profiles {
		add(p.Hotkeys.ProfileSwitch, input.Command{Action: input.SwitchProfile, Target: p.Name})
	}
	return keys
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (d *Daemon) handleInput(cmd input.Command) {
	switch cmd.Action {
	case input.CycleForward, input.CycleBackward:
		d.cycleClients(cmd.Action, cmd.Target, cmd.Time)
	case input.ActivateCharacter:
		d.activateCharacter(cmd.Target, cmd.Time)
	case input.ToggleSkip:
		d.toggleSkip()
	case input.TogglePreviews:
		d.togglePreviews()
	case input.SwitchProfile:
		if err := d.switchProfile(cmd.Target); err != nil {
			d.logger.Error("profile switch failed", "profile", cmd.Target, "error", err)
			d.emitError(err)
		}
	}
}

// cycleClients activates the next client in the named group; an empty group
// is the default one.
func (d *Daemon) cycleClients(action input.Action, group string, ts xproto.Timestamp) (string, bool) {
	if group == "" {
		group = config.DefaultCycleGroup
	}
	if d.profile.Hotkeys.RequireEVEFocus && !d.clientActive() {
		d.logger.Debug("cycle ignored, no client focused", "direction", action)
		return "", false
	}

	loggedOut := d.loggedOutWindows()
	var (
		name string
		win  xproto.Window
		ok   bool
	)
	if action == input.CycleBackward {
		name, win, ok = d.cycle.BackwardIn(group, loggedOut)
	} else {
		name, win, ok = d.cycle.ForwardIn(group, loggedOut)
	}
	if !ok {
		d.logger.Debug("cycle found no running client", "direction", action, "group", group)
		return "", false
	}
	d.activate(name, win, ts)
	d.logger.Debug("cycled", "direction", action, "group", group, "character", name, "window", win)
	return name, true
}

// activateCharacter steps through the characters bound to key.
func (d *Daemon) activateCharacter(key string, ts xproto.Timestamp) {
	if d.profile.Hotkeys.RequireEVEFocus && !d.clientActive() {
		d.logger.Debug("character key ignored, no client focused", "key", key)
		return
	}
	names := d.profile.CharactersForKey(key)
	name, win, ok := d.cycle.ActivateNext(names, d.loggedOutWindows())
	if !ok {
		d.logger.Debug("character key found no running client", "key", key, "characters", names)
		return
	}
	d.activate(name, win, ts)
	d.logger.Debug("activated character", "character", name, "window", win)
}

func (d *Daemon) activate(name string, win xproto.Window, ts xproto.Timestamp) {
	if th, tracked := d.thumbnails[win]; tracked {
		d.logIfFailed(th, "activate client", th.ActivateSource(ts))
	} else if err := d.backend.Activate(win, ts); err != nil {
		d.logger.Warn("activate client failed", "character", name, "window", win, "error", err)
	}
	if d.profile.Behavior.MinimizeOnSwitch {
		d.minimizeOthers(win)
	}
	d.backend.Flush()
}

// toggleSkip marks or clears the focused client's character.
func (d *Daemon) toggleSkip() {
	active, err := d.backend.ActiveWindow()
	if err != nil {
		d.logger.Debug("toggle skip ignored, no active window", "error", err)
		return
	}
	id, ok := d.clients[active]
	if !ok || !id.LoggedIn() {
		d.logger.Debug("toggle skip ignored, no logged-in client focused", "window", active)
		return
	}
	skipped := d.cycle.ToggleSkip(id.Character)
	for _, th := range d.thumbnails {
		if th.Character == id.Character {
			d.logIfFailed(th, "mark skipped", th.SetSkipped(skipped))
		}
	}
	d.backend.Flush()
	d.logger.Info("cycle skip toggled", "character", id.Character, "skipped", skipped)
}

// togglePreviews hides every preview, or brings them back as the focus
// policy allows.
func (d *Daemon) togglePreviews() {
	d.previewsHidden = !d.previewsHidden
	hide := d.previewsHidden || (d.display.HideWhenNoFocus && !d.clientActive())
	for _, th := range d.thumbnails {
		d.logIfFailed(th, "toggle preview", th.SetHidden(hide))
	}
	d.backend.Flush()
	d.logger.Info("previews toggled", "hidden", d.previewsHidden)
}

// switchProfile selects name, moves the previews to its saved positions and
// persists the selection.
func (d *Daemon) switchProfile(name string) error {
	if name == d.profile.Name {
		return nil
	}
	if _, ok := d.cfg.Profile(name); !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	for _, th := range d.thumbnails {
		d.profile.UpdateCharacterPosition(th.Character, th.Position(), th.Dimensions())
	}

	next := *d.cfg
	next.SelectedProfile = name
	if err := d.applyConfig(&next); err != nil {
		return err
	}
	for src, th := range d.thumbnails {
		pos, ok := d.profile.SavedPosition(th.Character)
		if !ok || th.Character == "" {
			continue
		}
		d.logIfFailed(th, "move preview", th.Reposition(pos))
		d.session.UpdatePosition(src, pos)
		d.emitPosition(src, th.Character, pos, th.Dimensions())
	}
	d.backend.Flush()
	return d.save()
}

// limited reports whether win must be ignored because its custom rule only
// allows one preview and another window already has it.
func (d *Daemon) limited(win xproto.Window, id Identity) bool {
	if !id.Custom {
		return false
	}
	rule, ok := d.profile.CustomWindow(id.Character)
	if !ok || !rule.Limit {
		return false
	}
	for other, oid := range d.clients {
		if other != win && oid.Custom && oid.Character == id.Character {
			return true
		}
	}
	return false
}
