package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/input"
	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/x11"
)

// ErrConnectionClosed is returned by Run when the X server goes away.
var ErrConnectionClosed = errors.New("X connection closed")

type xevent struct {
	ev  xgb.Event
	err xgb.Error
}

// Run scans for clients and then processes events and commands until ctx is
// cancelled. Previews are released before it returns.
func (d *Daemon) Run(ctx context.Context) error {
	defer close(d.done)
	defer d.shutdown()

	events := make(chan xevent, commandBuffer)
	go d.pump(ctx, events)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)
	defer signal.Stop(signals)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				d.RequestSave()
			}
		}
	}()

	if err := d.Scan(); err != nil {
		return err
	}
	d.logger.Info("daemon running", "profile", d.profile.Name, "clients", len(d.clients))

	for {
		d.drainCommands()
		if d.saveRequested.CompareAndSwap(true, false) {
			if err := d.savePositions(); err != nil {
				d.logger.Error("manual save failed", "error", err)
				d.emitError(err)
			}
		}
		d.checkHideDeadline(d.now())

		var deadline <-chan time.Time
		var timer *time.Timer
		if !d.hideDeadline.IsZero() {
			timer = time.NewTimer(max(d.hideDeadline.Sub(d.now()), 0))
			deadline = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil
		case xe, ok := <-events:
			if !ok {
				stopTimer(timer)
				return ErrConnectionClosed
			}
			d.handleXEvent(xe)
		case fn := <-d.commands:
			fn()
		case cmd := <-d.inputs:
			d.handleInput(cmd)
		case <-d.wake:
		case <-deadline:
		}
		stopTimer(timer)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// pump reads the X connection so the loop can select on it.
func (d *Daemon) pump(ctx context.Context, out chan<- xevent) {
	defer close(out)
	for {
		ev, err := d.backend.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		select {
		case out <- xevent{ev: ev, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Daemon) drainCommands() {
	for {
		select {
		case fn := <-d.commands:
			fn()
		case cmd := <-d.inputs:
			d.handleInput(cmd)
		default:
			return
		}
	}
}

func (d *Daemon) handleXEvent(xe xevent) {
	if xe.err != nil {
		if x11.IsBadWindow(xe.err) {
			d.logger.Debug("window vanished", "error", xe.err)
		} else {
			d.logger.Warn("X error", "error", xe.err)
		}
		return
	}
	d.HandleEvent(xe.ev)
}

func (d *Daemon) shutdown() {
	if d.profile.Behavior.AutoSavePosition && len(d.thumbnails) > 0 {
		if err := d.savePositions(); err != nil {
			d.logger.Error("save on shutdown failed", "error", err)
		}
	}
	for win := range d.thumbnails {
		d.removeClient(win)
	}
	d.backend.Flush()
	d.logger.Info("daemon stopped")
}

func (d *Daemon) handleRequest(req *ipc.Request) *ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return okResponse(d.status())

	case ipc.CommandSave:
		if err := d.savePositions(); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case ipc.CommandReload:
		if err := d.reload(); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		return okResponse(d.status())

	case ipc.CommandCycle:
		var p ipc.CyclePayload
		if err := req.DecodePayload(&p); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		action := input.CycleForward
		switch p.Direction {
		case ipc.DirectionForward, "":
		case ipc.DirectionBackward:
			action = input.CycleBackward
		default:
			return ipc.NewErrorResponse(fmt.Sprintf("unknown direction %q", p.Direction))
		}
		name, ok := d.cycleClients(action, p.Group, xproto.TimeCurrentTime)
		if !ok {
			return ipc.NewErrorResponse("no client to cycle to")
		}
		return okResponse(ipc.CycleResult{Character: name})

	case ipc.CommandApplyConfig:
		var p ipc.ApplyConfigPayload
		if err := req.DecodePayload(&p); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		if err := d.applyProfile(p.Profile); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		return okResponse(d.status())

	case ipc.CommandThumbnailMove:
		var p ipc.ThumbnailMovePayload
		if err := req.DecodePayload(&p); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		if err := d.moveThumbnail(p); err != nil {
			return ipc.NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	default:
		return ipc.NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func okResponse(data interface{}) *ipc.Response {
	resp, err := ipc.NewOKResponse(data)
	if err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	return resp
}
