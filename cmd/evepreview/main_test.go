package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/input"
	"github.com/1broseidon/evepreview/internal/ipc"
)

func TestWriteStatusAlignsWideNames(t *testing.T) {
	var buf bytes.Buffer
	writeStatus(&buf, &ipc.StatusData{
		Profile:       "main",
		UptimeSeconds: 90,
		Previews: []ipc.PreviewInfo{
			{Character: "アリス", Source: 0x2a, X: 10, Y: 20, Width: 250, Height: 140, Focused: true},
			{Character: "", Source: 0x10, X: -5, Y: 0, Width: 250, Height: 140, Minimized: true, Hidden: true},
		},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "profile: main  uptime: 1m30s  previews: 2" {
		t.Fatalf("summary = %q", lines[0])
	}

	col := func(line, marker string) int {
		idx := strings.Index(line, marker)
		if idx < 0 {
			t.Fatalf("%q not found in %q", marker, line)
		}
		return runewidth.StringWidth(line[:idx])
	}
	want := col(lines[1], "SOURCE")
	for _, line := range lines[2:] {
		if got := col(line, "0x"); got != want {
			t.Errorf("source column at %d, want %d: %q", got, want, line)
		}
	}
	if !strings.HasPrefix(lines[2], "(logged out)") || !strings.HasSuffix(lines[2], "minimized,hidden") {
		t.Errorf("logged out row = %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "focused") {
		t.Errorf("focused row = %q", lines[3])
	}
}

func TestWriteStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeStatus(&buf, &ipc.StatusData{Profile: "main"})
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected summary only, got %q", buf.String())
	}
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)
	got := formatEvent(ipc.Event{
		Type:       ipc.EventPositionChanged,
		Time:       ts,
		Character:  "Alice",
		Window:     0x2a,
		Position:   &geometry.Position{X: 110, Y: 100},
		Dimensions: &geometry.Dimensions{Width: 50, Height: 50},
	})
	want := `13:04:05 position_changed character="Alice" window=0x2a pos=110,100 size=50x50`
	if got != want {
		t.Fatalf("formatEvent = %q, want %q", got, want)
	}

	got = formatEvent(ipc.Event{Type: ipc.EventLog, Time: ts, Level: "warn", Message: "X error"})
	if got != "13:04:05 log [warn] X error" {
		t.Fatalf("log event = %q", got)
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evepreview", "config.yaml")
	run := func(cmd string, args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		code := runConfigCommand(&stdout, &stderr, cmd, append([]string{"--path", path}, args...))
		return code, stdout.String(), stderr.String()
	}

	if code, out, _ := run("path"); code != 0 || strings.TrimSpace(out) != path {
		t.Fatalf("path: code %d out %q", code, out)
	}
	if code, out, _ := run("validate"); code != 0 || !strings.Contains(out, "using defaults") {
		t.Fatalf("validate missing file: code %d out %q", code, out)
	}

	if code, _, errOut := run("init"); code != 0 {
		t.Fatalf("init: code %d: %s", code, errOut)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("init did not write %s: %v", path, err)
	}
	if code, _, errOut := run("init"); code != 1 || !strings.Contains(errOut, "already exists") {
		t.Fatalf("second init: code %d err %q", code, errOut)
	}
	if code, _, errOut := run("init", "--force"); code != 0 {
		t.Fatalf("init --force: code %d: %s", code, errOut)
	}

	if code, out, errOut := run("validate"); code != 0 || strings.TrimSpace(out) != "config: ok" {
		t.Fatalf("validate: code %d out %q err %q", code, out, errOut)
	}

	code, out, errOut := run("explain", "log.level")
	if code != 0 {
		t.Fatalf("explain: code %d: %s", code, errOut)
	}
	if !strings.Contains(out, "path: log.level") || !strings.Contains(out, "info") {
		t.Fatalf("explain output %q", out)
	}

	if code, _, _ := run("explain"); code != 2 {
		t.Fatalf("explain without path: code %d, want 2", code)
	}
	if code, _, _ := run("bogus"); code != 2 {
		t.Fatalf("unknown command: code %d, want 2", code)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("not_a_key: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if code := runConfigCommand(&stdout, &stderr, "validate", []string{"--path", path}); code != 1 {
		t.Fatalf("validate bad file: code %d, stdout %q", code, stdout.String())
	}
}

func TestHotkeySetupFor(t *testing.T) {
	cfg := config.DefaultConfig()
	p := cfg.ActiveProfile()
	p.Hotkeys.Backend = config.HotkeyBackendEvdev
	p.Hotkeys.Forward, p.Hotkeys.Backward = "", ""

	s := hotkeySetupFor(cfg)
	if s.Backend != config.HotkeyBackendEvdev || len(s.Keys) != 2 {
		t.Fatalf("setup = %+v", s)
	}
	// evdev must be able to bind the fallback cycle keys.
	bound, err := input.ParseHotkeys(s.Keys)
	if err != nil {
		t.Fatalf("ParseHotkeys: %v", err)
	}
	if bound[0].Binding.Mods != 0 || bound[1].Binding.Mods == 0 || bound[0].Binding.Code != bound[1].Binding.Code {
		t.Fatalf("default bindings = %+v", bound)
	}

	if !reflect.DeepEqual(hotkeySetupFor(cfg), s) {
		t.Fatal("same config should give the same setup")
	}
	p.Hotkeys.TogglePreviews = "F2"
	if reflect.DeepEqual(hotkeySetupFor(cfg), s) {
		t.Fatal("a new key should change the setup")
	}
}

func TestHotkeyRunnerApplyKeepsLatest(t *testing.T) {
	r := newHotkeyRunner(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg := config.DefaultConfig()
	r.Apply(cfg)
	cfg.ActiveProfile().Hotkeys.Forward = "F7"
	r.Apply(cfg)

	select {
	case s := <-r.updates:
		if s.Keys[0].Key != "F7" {
			t.Fatalf("queued forward key = %q, want F7", s.Keys[0].Key)
		}
	default:
		t.Fatal("nothing queued")
	}
	if len(r.updates) != 0 {
		t.Fatal("stale update left in the queue")
	}
}

func TestIsClientTitle(t *testing.T) {
	for title, want := range map[string]bool{
		"EVE - Alice": true,
		"EVE":         true,
		"Firefox":     false,
	} {
		if got := isClientTitle(title); got != want {
			t.Errorf("isClientTitle(%q) = %v, want %v", title, got, want)
		}
	}
}
