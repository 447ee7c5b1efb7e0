package daemon

import (
	"slices"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
)

// Cycle walks the configured character orders, skipping characters that are
// not running or were marked skipped. The default group follows cycle_order
// and also takes every running character; named groups only hold what they
// list.
type Cycle struct {
	groups    map[string]*cycleGroup
	windows   map[string]xproto.Window
	skipped   map[string]bool
	loggedOut bool
}

type cycleGroup struct {
	order   []string
	current int // index into order, -1 when nothing is selected
}

// NewCycle creates a cycle whose default group is order. With loggedOut set,
// a character that is not running can still be reached through a logged-out
// client whose last identity was that character.
func NewCycle(order []string, loggedOut bool) *Cycle {
	return &Cycle{
		groups: map[string]*cycleGroup{
			config.DefaultCycleGroup: {order: slices.Clone(order), current: -1},
		},
		windows:   make(map[string]xproto.Window),
		skipped:   make(map[string]bool),
		loggedOut: loggedOut,
	}
}

func (c *Cycle) main() *cycleGroup {
	return c.groups[config.DefaultCycleGroup]
}

// SetOrder replaces the default order, keeping the selection when the
// selected character is still listed.
func (c *Cycle) SetOrder(order []string, loggedOut bool) {
	g := c.main()
	name := g.selected()
	g.order = slices.Clone(order)
	c.loggedOut = loggedOut
	for running := range c.windows {
		c.ensure(running)
	}
	g.current = slices.Index(g.order, name)
}

// SetGroups replaces the named groups. A group keeps its selection when it
// still lists the selected character.
func (c *Cycle) SetGroups(groups []config.CycleGroup) {
	next := map[string]*cycleGroup{config.DefaultCycleGroup: c.main()}
	for _, cg := range groups {
		g := &cycleGroup{order: slices.Clone(cg.Characters), current: -1}
		if old, ok := c.groups[cg.Name]; ok {
			g.current = slices.Index(g.order, old.selected())
		}
		next[cg.Name] = g
	}
	c.groups = next
}

// Order returns a copy of the default order.
func (c *Cycle) Order() []string {
	return slices.Clone(c.main().order)
}

// Add records name as running on win. Characters missing from the default
// order are appended to it.
func (c *Cycle) Add(name string, win xproto.Window) {
	if name == "" {
		return
	}
	c.windows[name] = win
	c.ensure(name)
}

func (c *Cycle) ensure(name string) {
	g := c.main()
	if !slices.Contains(g.order, name) {
		g.order = append(g.order, name)
	}
}

// Remove forgets every character running on win.
func (c *Cycle) Remove(win xproto.Window) {
	for name, w := range c.windows {
		if w == win {
			delete(c.windows, name)
		}
	}
}

// UpdateCharacter moves win to a new identity. An empty name means the
// client logged out.
func (c *Cycle) UpdateCharacter(win xproto.Window, name string) {
	c.Remove(win)
	c.Add(name, win)
}

// ToggleSkip flips whether name is passed over by cycling and returns the
// new state. The mark belongs to the character, so it survives restarts of
// its client.
func (c *Cycle) ToggleSkip(name string) bool {
	if name == "" {
		return false
	}
	if c.skipped[name] {
		delete(c.skipped, name)
		return false
	}
	c.skipped[name] = true
	return true
}

// Skipped reports whether name is passed over by cycling.
func (c *Cycle) Skipped(name string) bool {
	return c.skipped[name]
}

// Forward selects the next reachable character after the current one in the
// default group. loggedOut maps logged-out windows to their last identity.
func (c *Cycle) Forward(loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	return c.ForwardIn(config.DefaultCycleGroup, loggedOut)
}

// Backward selects the previous reachable character in the default group.
func (c *Cycle) Backward(loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	return c.BackwardIn(config.DefaultCycleGroup, loggedOut)
}

// ForwardIn steps forward through the named group.
func (c *Cycle) ForwardIn(group string, loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	return c.step(group, 1, loggedOut)
}

// BackwardIn steps backward through the named group.
func (c *Cycle) BackwardIn(group string, loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	return c.step(group, -1, loggedOut)
}

func (c *Cycle) step(group string, delta int, loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	g, ok := c.groups[group]
	if !ok {
		return "", 0, false
	}
	n := len(g.order)
	if n == 0 {
		return "", 0, false
	}
	start := g.current
	if start < 0 {
		if delta > 0 {
			start = -1
		} else {
			start = 0
		}
	}
	for i := 1; i <= n; i++ {
		idx := ((start+delta*i)%n + n) % n
		name := g.order[idx]
		if c.skipped[name] {
			continue
		}
		if win, ok := c.resolve(name, loggedOut); ok {
			c.SetCurrent(name)
			return name, win, true
		}
	}
	return "", 0, false
}

// ActivateNext picks the next reachable character among names, the
// characters sharing one activation key. Names in the default order keep
// that order; the rest follow alphabetically. The search starts after the
// current character, so repeated presses step through the set.
func (c *Cycle) ActivateNext(names []string, loggedOut map[xproto.Window]string) (string, xproto.Window, bool) {
	order := c.main().order
	candidates := slices.Clone(names)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := slices.Index(order, candidates[i]), slices.Index(order, candidates[j])
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0 || b >= 0:
			return a >= 0
		default:
			return candidates[i] < candidates[j]
		}
	})

	n := len(candidates)
	start := slices.Index(candidates, c.Current())
	for i := 1; i <= n; i++ {
		name := candidates[(start+i)%n]
		if c.skipped[name] {
			continue
		}
		if win, ok := c.resolve(name, loggedOut); ok {
			c.SetCurrent(name)
			return name, win, true
		}
	}
	return "", 0, false
}

func (c *Cycle) resolve(name string, loggedOut map[xproto.Window]string) (xproto.Window, bool) {
	if win, ok := c.windows[name]; ok {
		return win, true
	}
	if !c.loggedOut {
		return 0, false
	}
	// Lowest window id first so the choice is stable.
	var (
		best  xproto.Window
		found bool
	)
	for win, last := range loggedOut {
		if last == name && (!found || win < best) {
			best, found = win, true
		}
	}
	return best, found
}

// SetCurrent selects name in every group that lists it. It reports false
// when no group does.
func (c *Cycle) SetCurrent(name string) bool {
	found := false
	for _, g := range c.groups {
		if idx := slices.Index(g.order, name); idx >= 0 {
			g.current = idx
			found = true
		}
	}
	return found
}

// SetCurrentByWindow selects whichever character win belongs to, including
// its last identity when it is logged out and logged-out cycling is on.
func (c *Cycle) SetCurrentByWindow(win xproto.Window, loggedOut map[xproto.Window]string) bool {
	for name, w := range c.windows {
		if w == win {
			return c.SetCurrent(name)
		}
	}
	if c.loggedOut {
		if last, ok := loggedOut[win]; ok {
			return c.SetCurrent(last)
		}
	}
	return false
}

// Current returns the character selected in the default group, or "" when
// none is selected.
func (c *Cycle) Current() string {
	return c.main().selected()
}

func (g *cycleGroup) selected() string {
	if g.current < 0 || g.current >= len(g.order) {
		return ""
	}
	return g.order[g.current]
}
