package daemon

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/x11"
)

const (
	titlePrefix    = "EVE - "
	loggedOutTitle = "EVE"
)

var winePreloaders = []string{"wine64-preloader", "wine-preloader"}

// Identity is a detected client. An empty Character means the client is at
// the character selection screen. Custom clients matched a custom window
// rule and carry its alias as their Character.
type Identity struct {
	Character string
	Custom    bool
}

func (i Identity) LoggedIn() bool { return i.Character != "" }

// Classify maps a window title to a client identity.
func Classify(title string) (Identity, bool) {
	if name, ok := strings.CutPrefix(title, titlePrefix); ok {
		if strings.Contains(strings.ToLower(name), "steam_app_") {
			return Identity{}, false
		}
		return Identity{Character: name}, true
	}
	if title == loggedOutTitle {
		return Identity{}, true
	}
	return Identity{}, false
}

// windowInfo is the part of the backend detection reads from.
type windowInfo interface {
	WindowTitle(win xproto.Window) (string, error)
	WindowPID(win xproto.Window) (uint32, error)
	WindowClass(win xproto.Window) string
}

// Detector decides whether a window is a game client.
type Detector struct {
	windows windowInfo
	ownPID  uint32
	exePath func(pid uint32) (string, error)
	custom  []config.CustomWindowRule
}

func NewDetector(windows windowInfo, ownPID uint32) *Detector {
	return &Detector{windows: windows, ownPID: ownPID, exePath: procExe}
}

// SetCustomWindows replaces the rules for non-EVE windows.
func (d *Detector) SetCustomWindows(rules []config.CustomWindowRule) {
	d.custom = rules
}

func procExe(pid uint32) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
}

// Identify inspects win. ok is false for anything that is not a client,
// including windows that disappear while they are being queried. A window
// that is not a game client is checked against the custom window rules.
func (d *Detector) Identify(win xproto.Window) (id Identity, ok bool, err error) {
	pid, err := d.windows.WindowPID(win)
	switch {
	case x11.IsBadWindow(err):
		return Identity{}, false, nil
	case err != nil:
		// No _NET_WM_PID: Wine does not always set it.
		pid = 0
	}
	native := false
	if pid != 0 {
		if pid == d.ownPID {
			return Identity{}, false, nil
		}
		if exe, err := d.exePath(pid); err == nil && !isWine(exe) {
			native = true
		}
	}
	if native && len(d.custom) == 0 {
		return Identity{}, false, nil
	}

	title, err := d.windows.WindowTitle(win)
	if err != nil {
		if x11.IsBadWindow(err) {
			return Identity{}, false, nil
		}
		return Identity{}, false, fmt.Errorf("read title of window %d: %w", win, err)
	}
	if !native {
		if id, ok = Classify(title); ok {
			return id, true, nil
		}
	}
	id, ok = d.matchCustom(win, title)
	return id, ok, nil
}

func (d *Detector) matchCustom(win xproto.Window, title string) (Identity, bool) {
	if len(d.custom) == 0 {
		return Identity{}, false
	}
	class := d.windows.WindowClass(win)
	for _, rule := range d.custom {
		if rule.Matches(title, class) {
			return Identity{Character: rule.Alias, Custom: true}, true
		}
	}
	return Identity{}, false
}

func isWine(exe string) bool {
	for _, name := range winePreloaders {
		if strings.Contains(exe, name) {
			return true
		}
	}
	return false
}
