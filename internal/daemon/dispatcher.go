package daemon

import (
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/x11"
)

const (
	buttonLeft  xproto.Button = 1
	buttonRight xproto.Button = 3
)

// HandleEvent routes one X event. It must run on the loop goroutine.
func (d *Daemon) HandleEvent(ev xgb.Event) {
	switch e := ev.(type) {
	case damage.NotifyEvent:
		d.handleDamage(e)
	case xproto.CreateNotifyEvent:
		if !e.OverrideRedirect {
			d.consider(e.Window)
		}
	case xproto.DestroyNotifyEvent:
		d.handleDestroy(e.Window)
	case xproto.ReparentNotifyEvent:
		d.handleReparent(e)
	case xproto.PropertyNotifyEvent:
		d.handleProperty(e)
	case xproto.FocusInEvent:
		if e.Mode != xproto.NotifyModeUngrab {
			d.handleFocusIn(e.Event)
		}
	case xproto.FocusOutEvent:
		if e.Mode != xproto.NotifyModeGrab {
			d.handleFocusOut(e.Event)
		}
	case xproto.ButtonPressEvent:
		d.handleButtonPress(e)
	case xproto.ButtonReleaseEvent:
		d.handleButtonRelease(e)
	case xproto.MotionNotifyEvent:
		d.handleMotion(e)
	}
}

func (d *Daemon) handleDamage(e damage.NotifyEvent) {
	for _, th := range d.thumbnails {
		if th.Damage() == e.Damage {
			d.logIfFailed(th, "update preview", th.HandleDamage())
			return
		}
	}
}

func (d *Daemon) handleDestroy(win xproto.Window) {
	if _, ok := d.clients[win]; ok {
		d.removeClient(win)
		return
	}
	for src, th := range d.thumbnails {
		if th.Parent() != 0 && th.Parent() == win {
			d.removeClient(src)
			return
		}
	}
}

func (d *Daemon) handleReparent(e xproto.ReparentNotifyEvent) {
	th, ok := d.thumbnails[e.Window]
	if !ok {
		return
	}
	parent := e.Parent
	if parent == d.backend.Root() {
		parent = 0
	}
	th.SetParent(parent)
}

func (d *Daemon) handleProperty(e xproto.PropertyNotifyEvent) {
	atoms := d.backend.Atoms()
	switch e.Atom {
	case atoms.WMName, atoms.NetWMName:
		if _, ok := d.clients[e.Window]; ok {
			d.handleTitleChange(e.Window)
		} else {
			d.consider(e.Window)
		}
	case atoms.NetWMState, atoms.WMState:
		d.handleWindowState(e.Window)
	}
}

// handleTitleChange follows a client through login, logout and character
// swaps.
func (d *Daemon) handleTitleChange(win xproto.Window) {
	id, ok, err := d.detector.Identify(win)
	if err != nil {
		d.logger.Warn("window detection failed", "window", win, "error", err)
		return
	}
	if !ok {
		return
	}
	prev := d.clients[win]
	if prev == id {
		return
	}
	if d.limited(win, id) {
		return
	}
	d.clients[win] = id
	d.session.UpdateLastCharacter(win, id.Character)
	d.cycle.UpdateCharacter(win, id.Character)
	d.logger.Info("character changed", "window", win, "from", prev.Character, "to", id.Character)

	th, ok := d.thumbnails[win]
	if !ok {
		if id.LoggedIn() {
			d.emit(eventDetected(win, id.Character))
		}
		return
	}

	saved, hasSaved := d.profile.HandleCharacterChange(prev.Character, id.Character, th.Position(), th.Dimensions())
	d.logIfFailed(th, "mark skipped", th.SetSkipped(d.cycle.Skipped(id.Character)))
	if !id.LoggedIn() {
		d.logIfFailed(th, "rename preview", th.SetCharacter("", nil, geometry.Dimensions{}))
		return
	}

	dims := d.profile.CharacterDimensions(id.Character)
	target := saved
	if !hasSaved {
		dims = th.Dimensions()
		if d.profile.Behavior.PreservePositionOnSwap {
			target = th.Position()
		} else if target, err = d.spawnPosition(win, dims); err != nil {
			if !x11.IsBadWindow(err) {
				d.logger.Warn("query source geometry failed", "window", win, "error", err)
			}
			target = th.Position()
		}
	}
	d.logIfFailed(th, "rename preview", th.SetCharacter(id.Character, &target, dims))
	d.backend.Flush()

	d.session.UpdatePosition(win, th.Position())
	d.profile.UpdateCharacterPosition(id.Character, th.Position(), th.Dimensions())
	if prev.LoggedIn() && d.profile.Behavior.AutoSavePosition {
		if err := d.save(); err != nil {
			d.logger.Error("save after character change failed", "error", err)
			d.emitError(err)
		}
	}
	d.emit(eventDetected(win, id.Character))
	d.emitPosition(win, th.Character, th.Position(), th.Dimensions())
}

func (d *Daemon) handleWindowState(win xproto.Window) {
	th, ok := d.thumbnails[win]
	if !ok {
		return
	}
	minimized, err := d.backend.IsMinimized(win)
	if err != nil {
		if !x11.IsBadWindow(err) {
			d.logger.Debug("query window state failed", "window", win, "error", err)
		}
		return
	}
	switch {
	case minimized && !th.State().Minimized():
		d.logIfFailed(th, "draw minimized preview", th.Minimize())
	case !minimized && th.State().Minimized():
		d.logIfFailed(th, "restore preview", th.Restore())
	}
}

func (d *Daemon) handleFocusIn(win xproto.Window) {
	d.cycle.SetCurrentByWindow(win, d.loggedOutWindows())
	d.hideDeadline = time.Time{}

	if d.display.HideWhenNoFocus && !d.previewsHidden {
		for _, th := range d.thumbnails {
			d.logIfFailed(th, "show preview", th.SetHidden(false))
		}
	}
	for src, th := range d.thumbnails {
		switch {
		case src == win && !th.State().Focused():
			d.logIfFailed(th, "focus preview", th.Focus())
		case src != win && th.State().Focused():
			d.logIfFailed(th, "unfocus preview", th.Unfocus())
		}
	}
}

func (d *Daemon) handleFocusOut(win xproto.Window) {
	if !d.display.HideWhenNoFocus {
		return
	}
	if th, ok := d.thumbnails[win]; ok && th.State().Focused() {
		d.hideDeadline = d.now().Add(focusLossDelay)
	}
}

// checkHideDeadline hides every preview once focus has stayed away from the
// clients for focusLossDelay.
func (d *Daemon) checkHideDeadline(now time.Time) {
	if d.hideDeadline.IsZero() || now.Before(d.hideDeadline) {
		return
	}
	d.hideDeadline = time.Time{}
	if d.clientActive() {
		return
	}
	for _, th := range d.thumbnails {
		if th.State().Minimized() {
			return
		}
	}
	for _, th := range d.thumbnails {
		d.logIfFailed(th, "hide preview", th.SetHidden(true))
	}
}

// hovered finds the visible preview under the pointer, preferring the window
// that received the event.
func (d *Daemon) hovered(event xproto.Window, x, y int16) (xproto.Window, *preview.Thumbnail, bool) {
	var (
		found    *preview.Thumbnail
		foundSrc xproto.Window
	)
	for src, th := range d.thumbnails {
		if !th.Hovered(x, y) {
			continue
		}
		if th.Window() == event {
			return src, th, true
		}
		if found == nil || src < foundSrc {
			found, foundSrc = th, src
		}
	}
	return foundSrc, found, found != nil
}

func (d *Daemon) dragging() (xproto.Window, *preview.Thumbnail, bool) {
	for src, th := range d.thumbnails {
		if th.Input.Dragging {
			return src, th, true
		}
	}
	return 0, nil, false
}

func (d *Daemon) handleButtonPress(e xproto.ButtonPressEvent) {
	src, th, ok := d.hovered(e.Event, e.RootX, e.RootY)
	if !ok {
		return
	}
	switch e.Detail {
	case buttonLeft:
		if th.Character != "" {
			d.cycle.SetCurrent(th.Character)
		} else {
			d.cycle.SetCurrentByWindow(src, d.loggedOutWindows())
		}
	case buttonRight:
		var targets []geometry.Rect
		for other, t := range d.thumbnails {
			if other == src || t.Hidden() {
				continue
			}
			rect, err := t.Geometry()
			if err != nil {
				continue
			}
			targets = append(targets, rect)
		}
		cursor := geometry.Position{X: e.RootX, Y: e.RootY}
		if err := th.BeginDrag(cursor, targets); err != nil {
			d.logIfFailed(th, "start drag", err)
		}
	}
}

func (d *Daemon) handleMotion(e xproto.MotionNotifyEvent) {
	_, th, ok := d.dragging()
	if !ok {
		return
	}
	cursor := geometry.Position{X: e.RootX, Y: e.RootY}
	d.logIfFailed(th, "drag preview", th.DragTo(cursor, d.display.SnapThreshold))
}

func (d *Daemon) handleButtonRelease(e xproto.ButtonReleaseEvent) {
	if src, th, ok := d.dragging(); ok && th.EndDrag() {
		d.finishDrag(src, th)
	}

	if e.Detail != buttonLeft {
		return
	}
	src, th, ok := d.hovered(e.Event, e.RootX, e.RootY)
	if !ok {
		return
	}
	d.logIfFailed(th, "activate client", th.ActivateSource(e.Time))
	if d.profile.Behavior.MinimizeOnSwitch {
		d.minimizeOthers(src)
	}
	d.backend.Flush()
}

// finishDrag commits the dropped position once.
func (d *Daemon) finishDrag(src xproto.Window, th *preview.Thumbnail) {
	rect, err := th.Geometry()
	if err != nil {
		d.logIfFailed(th, "query dropped geometry", err)
		return
	}
	pos := rect.Position()
	d.session.UpdatePosition(src, pos)
	d.profile.UpdateCharacterPosition(th.Character, pos, th.Dimensions())
	if d.profile.Behavior.AutoSavePosition && th.Character != "" {
		if err := d.save(); err != nil {
			d.logger.Error("save after drag failed", "character", th.Character, "error", err)
			d.emitError(err)
		}
	}
	d.emitPosition(src, th.Character, pos, th.Dimensions())
}

func (d *Daemon) minimizeOthers(keep xproto.Window) {
	for src := range d.thumbnails {
		if src == keep {
			continue
		}
		if err := d.backend.Minimize(src); err != nil && !x11.IsBadWindow(err) {
			d.logger.Debug("minimize failed", "window", src, "error", err)
		}
	}
}
