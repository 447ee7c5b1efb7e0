// Package daemon owns the preview windows. A single goroutine runs Run and is
// the only code that touches thumbnails, session and cycle state; everything
// else talks to it through channels.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/input"
	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/x11"
)

const (
	spawnOffset    = 20
	focusLossDelay = 100 * time.Millisecond
	commandBuffer  = 32
)

var errStopped = errors.New("daemon is not running")

// Options configures a Daemon.
type Options struct {
	Backend    platform.Backend
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Broker     *ipc.Broker

	// Saver persists the configuration. Defaults to SaveToPath(ConfigPath).
	Saver func(*config.Config) error
	// OnSaved runs after every successful save.
	OnSaved func()
	// OnConfigApplied runs on the loop goroutine after a new configuration
	// takes effect. It must not block.
	OnConfigApplied func(*config.Config)
	Now             func() time.Time
}

// Daemon tracks game clients and their previews.
type Daemon struct {
	backend platform.Backend
	logger  *slog.Logger
	broker  *ipc.Broker
	cfg     *config.Config
	cfgPath string
	saver   func(*config.Config) error
	onSaved func()
	onApply func(*config.Config)
	now     func() time.Time

	profile *config.Profile
	display *config.DisplayConfig
	style   *preview.Style

	detector   *Detector
	session    *Session
	cycle      *Cycle
	clients    map[xproto.Window]Identity
	thumbnails map[xproto.Window]*preview.Thumbnail // keyed by source window

	// previewsHidden is the toggle-previews state; it outranks the focus
	// policy.
	previewsHidden bool
	hideDeadline   time.Time
	saveRequested  atomic.Bool
	wake           chan struct{}
	commands       chan func()
	inputs         chan input.Command
	done           chan struct{}
	started        time.Time
}

// New prepares a daemon. Nothing is drawn until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Backend == nil {
		return nil, errors.New("daemon: backend is required")
	}
	if opts.Config == nil {
		return nil, errors.New("daemon: config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	d := &Daemon{
		backend:    opts.Backend,
		logger:     opts.Logger,
		broker:     opts.Broker,
		cfgPath:    opts.ConfigPath,
		saver:      opts.Saver,
		onSaved:    opts.OnSaved,
		onApply:    opts.OnConfigApplied,
		now:        opts.Now,
		session:    NewSession(),
		clients:    make(map[xproto.Window]Identity),
		thumbnails: make(map[xproto.Window]*preview.Thumbnail),
		wake:       make(chan struct{}, 1),
		commands:   make(chan func(), commandBuffer),
		inputs:     make(chan input.Command, commandBuffer),
		done:       make(chan struct{}),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.saver == nil {
		path := opts.ConfigPath
		d.saver = func(c *config.Config) error { return c.SaveToPath(path) }
	}
	d.detector = NewDetector(opts.Backend, uint32(os.Getpid()))

	if err := d.useConfig(opts.Config); err != nil {
		return nil, err
	}
	d.cycle = NewCycle(d.profile.CycleOrder, d.profile.Hotkeys.LoggedOutCycle)
	d.cycle.SetGroups(d.profile.CycleGroups)
	d.started = d.now()
	return d, nil
}

// useConfig switches to cfg's active profile and its resolved style.
func (d *Daemon) useConfig(cfg *config.Config) error {
	profile := cfg.ActiveProfile()
	if profile == nil {
		return errors.New("config has no profiles")
	}
	display := profile.DisplayConfig()
	fnt, err := d.backend.ResolveFont(display.TextFont, float64(display.TextSize))
	if err != nil {
		return fmt.Errorf("resolve font: %w", err)
	}
	old := d.style
	d.cfg = cfg
	d.profile = profile
	d.display = display
	d.style = &preview.Style{Display: display, Font: fnt}
	d.detector.SetCustomWindows(profile.CustomWindows)
	if old != nil && old.Font != nil && old.Font != fnt {
		defer old.Font.Close()
	}
	return nil
}

// Inputs is where hotkey listeners send their commands.
func (d *Daemon) Inputs() chan<- input.Command {
	return d.inputs
}

// Submit runs fn on the loop goroutine. It reports false once the daemon has
// stopped.
func (d *Daemon) Submit(fn func()) bool {
	select {
	case d.commands <- fn:
		return true
	case <-d.done:
		return false
	}
}

// Dispatch handles an IPC request on the loop goroutine and waits for the
// answer.
func (d *Daemon) Dispatch(req *ipc.Request) *ipc.Response {
	reply := make(chan *ipc.Response, 1)
	if !d.Submit(func() { reply <- d.handleRequest(req) }) {
		return ipc.NewErrorResponse(errStopped.Error())
	}
	select {
	case resp := <-reply:
		return resp
	case <-d.done:
		return ipc.NewErrorResponse(errStopped.Error())
	}
}

// RequestSave asks the loop to save positions on its next iteration. Safe to
// call from a signal handler goroutine.
func (d *Daemon) RequestSave() {
	d.saveRequested.Store(true)
	d.poke()
}

// RequestReload asks the loop to re-read the configuration file.
func (d *Daemon) RequestReload() {
	d.Submit(func() {
		if err := d.reload(); err != nil {
			d.logger.Error("config reload failed", "error", err)
			d.emitError(err)
		}
	})
}

func (d *Daemon) poke() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Scan tracks every client that already exists.
func (d *Daemon) Scan() error {
	wins, err := d.backend.TopLevelWindows()
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	for _, win := range wins {
		d.consider(win)
	}
	d.backend.Flush()
	return nil
}

// consider runs detection on an untracked window.
func (d *Daemon) consider(win xproto.Window) {
	if _, ok := d.clients[win]; ok || d.isPreview(win) {
		return
	}
	// Watch titles on every window so a client that sets its title late is
	// still picked up.
	if err := d.backend.SelectInput(win, xproto.EventMaskPropertyChange); err != nil {
		if !x11.IsBadWindow(err) {
			d.logger.Debug("select property events failed", "window", win, "error", err)
		}
		return
	}
	id, ok, err := d.detector.Identify(win)
	if err != nil {
		d.logger.Warn("window detection failed", "window", win, "error", err)
		return
	}
	if !ok {
		return
	}
	d.track(win, id)
}

func (d *Daemon) isPreview(win xproto.Window) bool {
	for _, th := range d.thumbnails {
		if th.Window() == win {
			return true
		}
	}
	return false
}

func (d *Daemon) track(win xproto.Window, id Identity) {
	if d.limited(win, id) {
		d.logger.Debug("custom window over its limit", "window", win, "alias", id.Character)
		return
	}
	err := d.backend.SelectInput(win, xproto.EventMaskPropertyChange|xproto.EventMaskFocusChange)
	if err != nil {
		if !x11.IsBadWindow(err) {
			d.logger.Warn("select client events failed", "window", win, "error", err)
		}
		return
	}
	d.clients[win] = id
	d.session.UpdateLastCharacter(win, id.Character)
	d.cycle.Add(id.Character, win)
	d.logger.Info("detected client", "window", win, "character", id.Character, "custom", id.Custom)

	if d.display.Enabled {
		d.createThumbnail(win, id)
	}
	if id.LoggedIn() {
		d.emit(eventDetected(win, id.Character))
	}
}

func (d *Daemon) createThumbnail(win xproto.Window, id Identity) {
	name := id.Character
	dims := d.profile.CharacterDimensions(name)
	pos, ok := d.session.Position(name, win, d.profile.SavedPositions(), d.profile.Behavior.PreservePositionOnSwap)
	if !ok {
		var err error
		if pos, err = d.spawnPosition(win, dims); err != nil {
			if !x11.IsBadWindow(err) {
				d.logger.Warn("query source geometry failed", "window", win, "error", err)
			}
			return
		}
	}

	depth, err := d.backend.Depth(win)
	if err != nil {
		if !x11.IsBadWindow(err) {
			d.logger.Warn("query source depth failed", "window", win, "error", err)
		}
		return
	}
	surface, err := d.backend.NewSurface(name, win, depth, d.style, pos, dims)
	if err != nil {
		if x11.IsBadWindow(err) {
			return
		}
		d.logger.Error("create preview failed", "character", name, "window", win, "error", err)
		d.emitError(fmt.Errorf("create preview for %q: %w", name, err))
		return
	}

	th := preview.NewThumbnail(name, surface, pos, dims)
	d.thumbnails[win] = th
	d.session.UpdatePosition(win, pos)

	if minimized, err := d.backend.IsMinimized(win); err == nil && minimized {
		err = th.Minimize()
		d.logIfFailed(th, "draw minimized preview", err)
	} else {
		active, _ := d.backend.ActiveWindow()
		if active == win {
			d.logIfFailed(th, "draw focused preview", th.Focus())
		} else {
			d.logIfFailed(th, "draw preview", th.Unfocus())
		}
	}
	d.logIfFailed(th, "mark skipped", th.SetSkipped(d.cycle.Skipped(name)))
	if d.previewsHidden || (d.display.HideWhenNoFocus && !d.clientActive()) {
		d.logIfFailed(th, "hide preview", th.SetHidden(true))
	}

	d.logger.Info("created preview", "character", name, "window", win, "x", pos.X, "y", pos.Y)
	if name != "" {
		d.profile.UpdateCharacterPosition(name, pos, dims)
		d.emitPosition(win, name, pos, dims)
	}
}

// spawnPosition places a new preview just inside its source window, kept on
// screen.
func (d *Daemon) spawnPosition(win xproto.Window, dims geometry.Dimensions) (geometry.Position, error) {
	rect, err := d.backend.Geometry(win)
	if err != nil {
		return geometry.Position{}, err
	}
	pos := geometry.Position{X: rect.X + spawnOffset, Y: rect.Y + spawnOffset}
	monitors, err := d.backend.Monitors()
	if err != nil {
		return pos, nil
	}
	return x11.ClampToMonitors(geometry.NewRect(pos, dims), monitors), nil
}

// removeClient forgets win and releases its preview.
func (d *Daemon) removeClient(win xproto.Window) {
	id, known := d.clients[win]
	delete(d.clients, win)
	d.cycle.Remove(win)
	d.session.Remove(win)
	if th, ok := d.thumbnails[win]; ok {
		delete(d.thumbnails, win)
		d.logIfFailed(th, "close preview", th.Close())
	}
	if known {
		d.logger.Info("client gone", "window", win, "character", id.Character)
	}
}

// clientActive reports whether the active window is a tracked client.
func (d *Daemon) clientActive() bool {
	active, err := d.backend.ActiveWindow()
	if err != nil {
		return false
	}
	_, ok := d.clients[active]
	return ok
}

// loggedOutWindows maps each logged-out client to the character it last had.
func (d *Daemon) loggedOutWindows() map[xproto.Window]string {
	out := make(map[xproto.Window]string)
	for win, id := range d.clients {
		if id.LoggedIn() {
			continue
		}
		if last, ok := d.session.LastCharacter(win); ok {
			out[win] = last
		}
	}
	return out
}

func (d *Daemon) thumbnailByCharacter(name string) (xproto.Window, *preview.Thumbnail, bool) {
	for win, th := range d.thumbnails {
		if th.Character == name {
			return win, th, true
		}
	}
	return 0, nil, false
}

// save writes the configuration and reports the write to OnSaved.
func (d *Daemon) save() error {
	if err := d.saver(d.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if d.onSaved != nil {
		d.onSaved()
	}
	return nil
}

// savePositions records every preview's current geometry and saves.
func (d *Daemon) savePositions() error {
	for _, th := range d.thumbnails {
		d.profile.UpdateCharacterPosition(th.Character, th.Position(), th.Dimensions())
	}
	if err := d.save(); err != nil {
		return err
	}
	d.logger.Info("saved preview positions", "profile", d.profile.Name, "count", len(d.thumbnails))
	return nil
}

// applyConfig switches to cfg and restyles every preview.
func (d *Daemon) applyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := d.useConfig(cfg); err != nil {
		return err
	}
	d.cycle.SetOrder(d.profile.CycleOrder, d.profile.Hotkeys.LoggedOutCycle)
	d.cycle.SetGroups(d.profile.CycleGroups)
	if d.onApply != nil {
		defer d.onApply(d.cfg)
	}

	if !d.display.Enabled {
		for win, th := range d.thumbnails {
			delete(d.thumbnails, win)
			d.logIfFailed(th, "close preview", th.Close())
		}
		d.backend.Flush()
		return nil
	}

	for _, th := range d.thumbnails {
		d.logIfFailed(th, "apply style", th.ApplyStyle(d.style))
		d.logIfFailed(th, "resize preview", th.Resize(d.profile.CharacterDimensions(th.Character)))
		if !d.display.HideWhenNoFocus && !d.previewsHidden {
			d.logIfFailed(th, "show preview", th.SetHidden(false))
		}
	}
	for win, id := range d.clients {
		if _, ok := d.thumbnails[win]; !ok {
			d.createThumbnail(win, id)
		}
	}
	d.backend.Flush()
	d.logger.Info("applied profile", "profile", d.profile.Name)
	return nil
}

// applyProfile replaces the profile with p's name and selects it.
func (d *Daemon) applyProfile(p config.Profile) error {
	next := *d.cfg
	next.Profiles = append([]config.Profile(nil), d.cfg.Profiles...)
	next.ReplaceProfile(p)
	next.SelectedProfile = p.Name
	return d.applyConfig(&next)
}

// reload re-reads the configuration file.
func (d *Daemon) reload() error {
	res, err := config.LoadFromPath(d.cfgPath)
	if err != nil {
		return err
	}
	return d.applyConfig(res.Config)
}

// moveThumbnail places a character's preview. Moving to where it already is,
// or moving a preview that is being dragged, does nothing.
func (d *Daemon) moveThumbnail(m ipc.ThumbnailMovePayload) error {
	win, th, ok := d.thumbnailByCharacter(m.Character)
	if !ok {
		return fmt.Errorf("no preview for character %q", m.Character)
	}
	if th.Input.Dragging {
		return nil
	}
	pos := geometry.Position{X: m.X, Y: m.Y}
	dims := geometry.Dimensions{Width: m.Width, Height: m.Height}
	if dims.IsZero() {
		dims = th.Dimensions()
	}
	if pos == th.Position() && dims == th.Dimensions() {
		return nil
	}
	if err := th.Reposition(pos); err != nil {
		return err
	}
	if err := th.Resize(dims); err != nil {
		return err
	}
	d.backend.Flush()
	d.session.UpdatePosition(win, pos)
	d.profile.UpdateCharacterPosition(th.Character, pos, dims)
	if d.profile.Behavior.AutoSavePosition {
		if err := d.save(); err != nil {
			return err
		}
	}
	d.emitPosition(win, th.Character, pos, dims)
	return nil
}

func (d *Daemon) status() ipc.StatusData {
	previews := make([]ipc.PreviewInfo, 0, len(d.thumbnails))
	for win, th := range d.thumbnails {
		pos, dims := th.Position(), th.Dimensions()
		previews = append(previews, ipc.PreviewInfo{
			Character: th.Character,
			Window:    uint32(th.Window()),
			Source:    uint32(win),
			X:         pos.X,
			Y:         pos.Y,
			Width:     dims.Width,
			Height:    dims.Height,
			Focused:   th.State().Focused(),
			Minimized: th.State().Minimized(),
			Hidden:    th.Hidden(),
		})
	}
	sort.Slice(previews, func(i, j int) bool {
		if previews[i].Character != previews[j].Character {
			return previews[i].Character < previews[j].Character
		}
		return previews[i].Source < previews[j].Source
	})
	return ipc.StatusData{
		Profile:       d.profile.Name,
		UptimeSeconds: int64(d.now().Sub(d.started).Seconds()),
		Previews:      previews,
	}
}

func (d *Daemon) emit(ev ipc.Event) {
	if d.broker != nil {
		d.broker.Publish(ev)
	}
}

func eventDetected(win xproto.Window, name string) ipc.Event {
	return ipc.Event{Type: ipc.EventCharacterDetected, Character: name, Window: uint32(win)}
}

func (d *Daemon) emitPosition(win xproto.Window, name string, pos geometry.Position, dims geometry.Dimensions) {
	d.emit(ipc.Event{
		Type:       ipc.EventPositionChanged,
		Character:  name,
		Window:     uint32(win),
		Position:   &pos,
		Dimensions: &dims,
	})
}

func (d *Daemon) emitError(err error) {
	d.emit(ipc.Event{Type: ipc.EventError, Level: "error", Message: err.Error()})
}

func (d *Daemon) logIfFailed(th *preview.Thumbnail, what string, err error) {
	if err == nil || x11.IsTeardownRace(err) {
		return
	}
	d.logger.Warn(what+" failed", "character", th.Character, "window", th.Source(), "error", err)
}
