package tui

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/evepreview/internal/config"
)

func writeConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}
}

func TestSaveConfigKeepsDaemonPositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	initial := config.DefaultConfig()
	p := initial.ActiveProfile()
	p.Characters["Alice"] = config.CharacterSettings{X: 10, Y: 10}
	p.Characters["Carol"] = config.CharacterSettings{X: 50, Y: 50}
	writeConfig(t, path, initial)

	original := cloneConfig(initial)
	edited := cloneConfig(initial)
	ep := edited.ActiveProfile()
	alice := ep.Characters["Alice"]
	alice.Alias = "Main"
	ep.Characters["Alice"] = alice
	delete(ep.Characters, "Carol")
	ep.Behavior.SnapThreshold = 30

	// The daemon moves Alice and discovers Bob while the editor is open.
	disk := cloneConfig(initial)
	dp := disk.ActiveProfile()
	dp.Characters["Alice"] = config.CharacterSettings{X: 300, Y: 400, Width: 320, Height: 180}
	dp.Characters["Bob"] = config.CharacterSettings{X: 700, Y: 20}
	writeConfig(t, path, disk)

	if err := saveConfig(edited, original, path); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	got := res.Config.ActiveProfile()
	if a := got.Characters["Alice"]; a.X != 300 || a.Y != 400 || a.Width != 320 || a.Alias != "Main" {
		t.Fatalf("Alice = %+v, want daemon position with edited alias", a)
	}
	if _, ok := got.Characters["Bob"]; !ok {
		t.Fatal("character recorded by the daemon was dropped")
	}
	if _, ok := got.Characters["Carol"]; ok {
		t.Fatal("character removed in the editor came back")
	}
	if got.Behavior.SnapThreshold != 30 {
		t.Fatalf("snap threshold = %d, want 30", got.Behavior.SnapThreshold)
	}
}

func TestSaveConfigWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := config.DefaultConfig()
	cfg.ActiveProfile().Thumbnails.Opacity = 90

	if err := saveConfig(cfg, cloneConfig(cfg), path); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if !res.Exists || res.Config.ActiveProfile().Thumbnails.Opacity != 90 {
		t.Fatalf("saved config not read back: exists=%v", res.Exists)
	}
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.ActiveProfile().Thumbnails.Text.Color = "green"

	if err := saveConfig(cfg, nil, path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestComputeDiffLines(t *testing.T) {
	a := config.DefaultConfig()
	if lines := computeDiffLines(a, cloneConfig(a)); lines != nil {
		t.Fatalf("identical configs produced a diff: %+v", lines)
	}

	b := cloneConfig(a)
	b.ActiveProfile().Behavior.SnapThreshold = 42
	lines := computeDiffLines(a, b)

	var added, removed int
	for _, l := range lines {
		switch l.kind {
		case diffAdded:
			added++
			if strings.TrimSpace(l.text) != "snap_threshold: 42" {
				t.Errorf("added line = %q", l.text)
			}
		case diffRemoved:
			removed++
		}
	}
	if added != 1 || removed != 1 {
		t.Fatalf("added=%d removed=%d, want 1 each", added, removed)
	}
}

func TestSaveOverlayNoChanges(t *testing.T) {
	cfg := config.DefaultConfig()
	var s SaveOverlay
	s.Show(cfg, cloneConfig(cfg))
	if !s.Active() || s.SaveSucceeded() || s.err == nil {
		t.Fatalf("expected a 'no changes' result, got phase=%v err=%v", s.phase, s.err)
	}
}
