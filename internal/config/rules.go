package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Groups returns the default group followed by the configured ones.
func (p *Profile) Groups() []CycleGroup {
	groups := make([]CycleGroup, 0, len(p.CycleGroups)+1)
	groups = append(groups, CycleGroup{
		Name:       DefaultCycleGroup,
		Characters: p.CycleOrder,
		Forward:    p.Hotkeys.Forward,
		Backward:   p.Hotkeys.Backward,
	})
	return append(groups, p.CycleGroups...)
}

// Matches reports whether a window with the given title and WM_CLASS falls
// under r. A rule with neither pattern matches nothing.
func (r CustomWindowRule) Matches(title, class string) bool {
	if r.Title == "" && r.Class == "" {
		return false
	}
	if r.Title != "" && !containsFold(title, r.Title) {
		return false
	}
	if r.Class != "" && !containsFold(class, r.Class) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// CustomWindow returns the rule whose alias is name.
func (p *Profile) CustomWindow(alias string) (CustomWindowRule, bool) {
	for _, r := range p.CustomWindows {
		if r.Alias == alias {
			return r, true
		}
	}
	return CustomWindowRule{}, false
}

// MatchCustomWindow returns the first rule matching the window.
func (p *Profile) MatchCustomWindow(title, class string) (CustomWindowRule, bool) {
	for _, r := range p.CustomWindows {
		if r.Matches(title, class) {
			return r, true
		}
	}
	return CustomWindowRule{}, false
}

func validateGroups(p *Profile, prefix string) error {
	seen := make(map[string]struct{}, len(p.CycleGroups))
	for i, g := range p.CycleGroups {
		path := fmt.Sprintf("%s.cycle_groups.%d.name", prefix, i)
		switch {
		case g.Name == "":
			return &ValidationError{Path: path, Err: fmt.Errorf("group name is required")}
		case strings.EqualFold(g.Name, DefaultCycleGroup):
			return &ValidationError{Path: path, Err: fmt.Errorf("%q is reserved for cycle_order", DefaultCycleGroup)}
		}
		if _, dup := seen[g.Name]; dup {
			return &ValidationError{Path: path, Err: fmt.Errorf("duplicate group name %q", g.Name)}
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

func validateCustomWindows(p *Profile, prefix string) error {
	seen := make(map[string]struct{}, len(p.CustomWindows))
	for i, r := range p.CustomWindows {
		path := fmt.Sprintf("%s.custom_windows.%d", prefix, i)
		if r.Alias == "" {
			return &ValidationError{Path: path + ".alias", Err: fmt.Errorf("alias is required")}
		}
		if _, dup := seen[r.Alias]; dup {
			return &ValidationError{Path: path + ".alias", Err: fmt.Errorf("duplicate alias %q", r.Alias)}
		}
		seen[r.Alias] = struct{}{}
		if r.Title == "" && r.Class == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("title or class is required")}
		}
	}
	return nil
}

// keyUse is one configured key and the action it is bound to.
type keyUse struct {
	path   string
	action string
	id     string
}

func profileKeys(p *Profile, prefix string) []keyUse {
	var uses []keyUse
	add := func(path, action, key string) {
		if key != "" {
			uses = append(uses, keyUse{path: path, action: action, id: NormalizeKey(key)})
		}
	}

	hp := prefix + ".hotkeys."
	add(hp+"forward", "cycle forward", p.Hotkeys.Forward)
	add(hp+"backward", "cycle backward", p.Hotkeys.Backward)
	add(hp+"toggle_skip", "toggle skip", p.Hotkeys.ToggleSkip)
	add(hp+"toggle_previews", "toggle previews", p.Hotkeys.TogglePreviews)
	add(hp+"profile_switch", "switch profile "+p.Name, p.Hotkeys.ProfileSwitch)
	for i, g := range p.CycleGroups {
		gp := fmt.Sprintf("%s.cycle_groups.%d.", prefix, i)
		add(gp+"forward", "group "+g.Name+" forward", g.Forward)
		add(gp+"backward", "group "+g.Name+" backward", g.Backward)
	}
	names := make([]string, 0, len(p.Hotkeys.Characters))
	for name := range p.Hotkeys.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// Characters may share a key; the daemon steps through them.
		add(hp+"characters."+name, "activate character", p.Hotkeys.Characters[name])
	}
	return uses
}

// validateKeys rejects a key bound to two different actions in one profile.
func validateKeys(p *Profile, prefix string) error {
	owner := make(map[string]string)
	for _, u := range profileKeys(p, prefix) {
		if prev, ok := owner[u.id]; ok && prev != u.action {
			return &ValidationError{Path: u.path, Err: fmt.Errorf("key %q is already bound to %s", u.id, prev)}
		}
		owner[u.id] = u.action
	}
	return nil
}

// validateProfileSwitchKeys checks the switch keys, which stay bound whatever
// profile is active, against every profile's keys.
func validateProfileSwitchKeys(profiles []Profile) error {
	for i := range profiles {
		sw := profiles[i].Hotkeys.ProfileSwitch
		if sw == "" {
			continue
		}
		id := NormalizeKey(sw)
		for j := range profiles {
			for _, u := range profileKeys(&profiles[j], fmt.Sprintf("profiles.%d", j)) {
				if u.id != id || (i == j && u.action == "switch profile "+profiles[i].Name) {
					continue
				}
				return &ValidationError{
					Path: fmt.Sprintf("profiles.%d.hotkeys.profile_switch", i),
					Err:  fmt.Errorf("key %q is already bound to %s", id, u.action),
				}
			}
		}
	}
	return nil
}

var modAliases = map[string]string{
	"ctrl": "control",
	"mod1": "alt",
	"mod4": "super",
}

// NormalizeKey normalises a binding so that "Ctrl-Shift-Tab" and "shift-control-tab"
// compare equal.
func NormalizeKey(s string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "-")
	mods := parts[:len(parts)-1]
	for i, m := range mods {
		if alias, ok := modAliases[m]; ok {
			mods[i] = alias
		}
	}
	sort.Strings(mods)
	mods = slices.Compact(mods)
	return strings.Join(append(mods, parts[len(parts)-1]), "-")
}

// CharactersForKey lists, sorted, the characters whose activation key is
// key.
func (p *Profile) CharactersForKey(key string) []string {
	id := NormalizeKey(key)
	var names []string
	for name, k := range p.Hotkeys.Characters {
		if NormalizeKey(k) == id {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
