// Package hotkeys captures the configured keys with passive grabs on the X
// root window and turns them into input commands.
package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/evepreview/internal/input"
)

// Options configures a Handler.
type Options struct {
	Keys []input.Hotkey
	// RequireFocus replays key presses to the focused window unless
	// IsClient accepts its title.
	RequireFocus bool
	IsClient     func(title string) bool
	Logger       *slog.Logger
}

// Handler owns a dedicated X connection whose event loop only serves key
// grabs, so it never competes with the daemon for events.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	out    chan<- input.Command
	opts   Options
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler connects to the display and grabs every key in opts. Commands
// are delivered to out.
func NewHandler(out chan<- input.Command, opts Options) (*Handler, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("hotkeys: no keys to register")
	}
	if opts.RequireFocus && opts.IsClient == nil {
		return nil, fmt.Errorf("hotkeys: focus check requires a client matcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("hotkeys: connect to X server: %w", err)
	}
	keybind.Initialize(xu)
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	h := &Handler{
		xu:     xu,
		root:   xu.RootWin(),
		out:    out,
		opts:   opts,
		logger: logger,
	}
	for _, k := range uniqueKeys(opts.Keys) {
		if err := h.register(k.Key, k.Command); err != nil {
			xu.Conn().Close()
			return nil, err
		}
	}
	return h, nil
}

// uniqueKeys drops repeats of a key string, keeping the first binding.
func uniqueKeys(keys []input.Hotkey) []input.Hotkey {
	seen := make(map[string]bool, len(keys))
	out := make([]input.Hotkey, 0, len(keys))
	for _, k := range keys {
		if seen[k.Key] {
			continue
		}
		seen[k.Key] = true
		out = append(out, k)
	}
	return out
}

// Run processes key presses until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) error {
	go xevent.Main(h.xu)
	h.logger.Info("hotkeys registered", "keys", len(h.opts.Keys))
	<-ctx.Done()
	xevent.Quit(h.xu)
	h.xu.Conn().Close()
	return nil
}

// register grabs keySequence synchronously so a press can be replayed to the
// focused window when cycling does not apply.
func (h *Handler) register(keySequence string, cmd input.Command) error {
	mods, keycodes, err := keybind.ParseString(h.xu, keySequence)
	if err != nil {
		return fmt.Errorf("hotkeys: parse %q: %w", keySequence, err)
	}
	for _, keycode := range keycodes {
		for _, ignore := range xevent.IgnoreMods {
			err := xproto.GrabKeyChecked(h.xu.Conn(), false, h.root, mods|ignore, keycode,
				xproto.GrabModeAsync, xproto.GrabModeSync).Check()
			if err != nil {
				return fmt.Errorf("hotkeys: grab %q (is another program using it?): %w", keySequence, err)
			}
		}
	}

	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		if h.opts.RequireFocus && !h.clientFocused() {
			xproto.AllowEvents(xu.Conn(), xproto.AllowReplayKeyboard, ev.Time)
			xu.Sync()
			return
		}
		xproto.AllowEvents(xu.Conn(), xproto.AllowAsyncKeyboard, ev.Time)
		xu.Sync()
		pressed := cmd
		pressed.Time = ev.Time
		h.emit(pressed)
	}).Connect(h.xu, h.root, keySequence, false)
}

func (h *Handler) clientFocused() bool {
	active, err := ewmh.ActiveWindowGet(h.xu)
	if err != nil || active == 0 {
		return false
	}
	title, err := ewmh.WmNameGet(h.xu, active)
	if err != nil || title == "" {
		if title, err = icccm.WmNameGet(h.xu, active); err != nil {
			return false
		}
	}
	return h.opts.IsClient(title)
}

// emit never blocks the X event loop; a full queue drops the press.
func (h *Handler) emit(cmd input.Command) {
	select {
	case h.out <- cmd:
	default:
		h.logger.Warn("hotkey dropped, daemon busy", "action", cmd.Action, "target", cmd.Target)
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")
	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks returns every combination of the distinct non-zero lock
// masks, including the empty one, in ascending order.
func ignoreMasks(locks ...uint16) []uint16 {
	var base []uint16
	seen := make(map[uint16]bool)
	for _, m := range locks {
		if m != 0 && !seen[m] {
			seen[m] = true
			base = append(base, m)
		}
	}

	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	sort.Slice(ignore, func(i, j int) bool { return ignore[i] < ignore[j] })
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
