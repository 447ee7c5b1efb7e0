package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/evepreview/internal/x11"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically rescans the window tree so clients whose events
// were missed still get a preview and previews of vanished clients are
// released.
type Reconciler struct {
	interval time.Duration
	daemon   *Daemon
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, d *Daemon) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = d.logger
	}
	return &Reconciler{
		interval: interval,
		daemon:   d,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if !r.daemon.Submit(r.reconcile) {
				return
			}
		}
	}
}

// reconcile performs a single pass on the loop goroutine.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	d := r.daemon
	for win, id := range d.clients {
		if _, err := d.backend.Geometry(win); x11.IsBadWindow(err) {
			r.logger.Info("reconciler: client vanished", "window", win, "character", id.Character)
			d.removeClient(win)
		}
	}

	before := len(d.clients)
	if err := d.Scan(); err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}
	if added := len(d.clients) - before; added > 0 {
		r.logger.Info("reconciler: picked up missed clients", "count", added)
	}
}

// ReconcileNow runs a pass immediately. It must be called on the loop
// goroutine.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
