// Package logging sets up the daemon's slog logger: a text handler on stderr,
// an optional rotating file, and a mirror that forwards records to IPC
// subscribers as log events.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/ipc"
)

// Publisher receives mirrored log records.
type Publisher interface {
	Publish(ipc.Event)
}

// ParseLevel converts a config level name to a slog.Level. Unknown names
// map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the daemon logger. The returned closer releases the log file
// and is never nil.
func Setup(cfg config.LogConfig, pub Publisher) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		f, err := NewRotatingFile(cfg.File, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	return New(out, ParseLevel(cfg.Level), pub), closer, nil
}

// New returns a text logger writing to w. Records are also published to pub
// when it is non-nil.
func New(w io.Writer, level slog.Level, pub Publisher) *slog.Logger {
	var h slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if pub != nil {
		h = &mirrorHandler{next: h, pub: pub}
	}
	return slog.New(h)
}

// mirrorHandler forwards every handled record to a Publisher.
type mirrorHandler struct {
	next  slog.Handler
	pub   Publisher
	attrs []slog.Attr
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *mirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)
	h.pub.Publish(ipc.Event{
		Type:    ipc.EventLog,
		Time:    r.Time,
		Level:   strings.ToLower(r.Level.String()),
		Message: formatRecord(r, h.attrs),
	})
	return err
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{
		next:  h.next.WithAttrs(attrs),
		pub:   h.pub,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup only affects the wrapped handler; mirrored messages stay flat.
func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{next: h.next.WithGroup(name), pub: h.pub, attrs: h.attrs}
}

// formatRecord renders msg followed by key=value pairs.
func formatRecord(r slog.Record, extra []slog.Attr) string {
	var sb strings.Builder
	sb.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}
	for _, a := range extra {
		write(a)
	}
	r.Attrs(write)
	return sb.String()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
