package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/ipc"
)

type fakeDaemon struct {
	status  *ipc.StatusData
	reloads int
}

func (f *fakeDaemon) Status() (*ipc.StatusData, error) { return f.status, nil }

func (f *fakeDaemon) Reload() error {
	f.reloads++
	return nil
}

func newTestModel(t *testing.T, d Daemon) (model, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := newModel(path, d)
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40}), path
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(model)
}

func TestModelTabNavigation(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != TabThumbnails {
		t.Fatalf("tab = %v, want Thumbnails", m.activeTab)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab != TabCharacters {
		t.Fatalf("tab = %v, want wrap to Characters", m.activeTab)
	}
	m = send(t, m, key("3"))
	if m.activeTab != TabBehavior {
		t.Fatalf("tab = %v, want Behavior", m.activeTab)
	}
	if m.View() == "" {
		t.Fatal("empty view")
	}
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t, nil)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestModelEditFormCapturesKeys(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m = send(t, m, key("2"))
	m = send(t, m, key("e"))
	if !m.thumbnailsTab.editing {
		t.Fatal("e did not open the form")
	}
	// Digits go to the form, not the tab bar.
	m = send(t, m, key("4"))
	if m.activeTab != TabThumbnails {
		t.Fatalf("tab switched while editing: %v", m.activeTab)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.thumbnailsTab.editing {
		t.Fatal("esc did not close the form")
	}
}

func TestModelSaveReloadsDaemon(t *testing.T) {
	d := &fakeDaemon{status: &ipc.StatusData{Profile: config.DefaultProfileName}}
	m, path := newTestModel(t, d)
	m = send(t, m, fetchStatus(d)())
	if m.status == nil {
		t.Fatal("status not recorded")
	}

	m.cfg.ActiveProfile().Behavior.SnapThreshold = 40
	if !m.dirty() {
		t.Fatal("edit not detected")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.saveOverlay.Active() {
		t.Fatal("ctrl+s did not open the save preview")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.saveOverlay.SaveSucceeded() {
		t.Fatalf("save failed: %v", m.saveOverlay.err)
	}
	if d.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", d.reloads)
	}
	if m.dirty() {
		t.Fatal("config still dirty after save")
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if got := res.Config.ActiveProfile().Behavior.SnapThreshold; got != 40 {
		t.Fatalf("saved snap threshold = %d", got)
	}

	m = send(t, m, key("x"))
	if m.saveOverlay.Active() {
		t.Fatal("result not dismissed")
	}
}
