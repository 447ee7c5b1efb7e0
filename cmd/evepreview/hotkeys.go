package main

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/daemon"
	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/input"
)

// hotkeySetup is everything a key listener is started from. Listeners are
// restarted only when it changes.
type hotkeySetup struct {
	Backend      config.HotkeyBackend
	Device       string
	RequireFocus bool
	Keys         []input.Hotkey
}

func hotkeySetupFor(cfg *config.Config) hotkeySetup {
	s := hotkeySetup{Keys: daemon.Hotkeys(cfg)}
	if p := cfg.ActiveProfile(); p != nil {
		s.Backend = p.Hotkeys.Backend
		s.Device = p.Hotkeys.InputDevice
		s.RequireFocus = p.Hotkeys.RequireEVEFocus
	}
	return s
}

// hotkeyRunner keeps one key listener running for the latest configuration.
type hotkeyRunner struct {
	out     chan<- input.Command
	logger  *slog.Logger
	updates chan hotkeySetup
}

func newHotkeyRunner(out chan<- input.Command, logger *slog.Logger) *hotkeyRunner {
	return &hotkeyRunner{out: out, logger: logger, updates: make(chan hotkeySetup, 1)}
}

// Apply queues cfg's keys without blocking. An update not yet picked up is
// replaced. It must be called from a single goroutine.
func (r *hotkeyRunner) Apply(cfg *config.Config) {
	s := hotkeySetupFor(cfg)
	select {
	case <-r.updates:
	default:
	}
	r.updates <- s
}

// Run starts a listener for every changed setup until ctx is done. The old
// listener is fully stopped first so its key grabs are released.
func (r *hotkeyRunner) Run(ctx context.Context) {
	var (
		current *hotkeySetup
		cancel  context.CancelFunc
		done    chan struct{}
	)
	stop := func() {
		if cancel != nil {
			cancel()
			<-done
			cancel, done = nil, nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.updates:
			if current != nil && reflect.DeepEqual(*current, s) {
				continue
			}
			stop()
			current = &s
			if len(s.Keys) == 0 {
				r.logger.Info("no hotkeys configured")
				continue
			}
			var child context.Context
			child, cancel = context.WithCancel(ctx)
			done = make(chan struct{})
			if !r.start(child, s, done) {
				cancel()
				cancel, done = nil, nil
			}
		}
	}
}

// start launches the listener for s and reports whether it is running. A
// backend that cannot start is logged; previews keep working without it.
func (r *hotkeyRunner) start(ctx context.Context, s hotkeySetup, done chan<- struct{}) bool {
	var run func(context.Context) error
	switch s.Backend {
	case config.HotkeyBackendEvdev:
		keys, err := input.ParseHotkeys(s.Keys)
		if err != nil {
			r.logger.Error("invalid hotkey", "error", err)
			return false
		}
		files, err := input.OpenKeyboards(s.Device)
		if err != nil {
			r.logger.Error("evdev hotkeys unavailable", "error", err)
			return false
		}
		run = input.NewListener(files, keys, r.out, r.logger).Run

	default:
		h, err := hotkeys.NewHandler(r.out, hotkeys.Options{
			Keys:         s.Keys,
			RequireFocus: s.RequireFocus,
			IsClient:     isClientTitle,
			Logger:       r.logger,
		})
		if err != nil {
			r.logger.Error("X11 hotkeys unavailable", "error", err)
			return false
		}
		run = h.Run
	}

	r.logger.Debug("hotkey listener starting", "backend", s.Backend, "keys", len(s.Keys))
	go func() {
		defer close(done)
		if err := run(ctx); err != nil {
			r.logger.Warn("hotkey listener stopped", "error", err)
		}
	}()
	return true
}

func isClientTitle(title string) bool {
	_, ok := daemon.Classify(title)
	return ok
}
