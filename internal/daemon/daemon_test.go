package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/input"
	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/preview/previewtest"
	"github.com/1broseidon/evepreview/internal/x11"
)

const (
	root     xproto.Window = 1
	winAlice xproto.Window = 0x10
	winBob   xproto.Window = 0x20
	winOther xproto.Window = 0x30
)

var testAtoms = x11.Atoms{
	WMName:           101,
	NetWMName:        102,
	NetWMPID:         103,
	NetWMState:       104,
	NetWMStateHidden: 105,
	WMState:          106,
}

// fakeBackend is an in-memory X server.
type fakeBackend struct {
	titles    map[xproto.Window]string
	classes   map[xproto.Window]string
	geoms     map[xproto.Window]geometry.Rect
	minimized map[xproto.Window]bool
	order     []xproto.Window
	active    xproto.Window

	nextWin   xproto.Window
	surfaces  map[xproto.Window]*previewtest.Surface // by source
	selected  map[xproto.Window]uint32
	minimizes []xproto.Window
	activated []xproto.Window
	events    chan xgb.Event
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		titles: map[xproto.Window]string{
			winAlice: "EVE - Alice",
			winBob:   "EVE - Bob",
			winOther: "Terminal",
		},
		geoms: map[xproto.Window]geometry.Rect{
			winAlice: {X: 0, Y: 0, Width: 1920, Height: 1080},
			winBob:   {X: 0, Y: 0, Width: 1920, Height: 1080},
			winOther: {X: 0, Y: 0, Width: 800, Height: 600},
		},
		classes:   make(map[xproto.Window]string),
		minimized: make(map[xproto.Window]bool),
		order:     []xproto.Window{winAlice, winBob, winOther},
		nextWin:   0x1000,
		surfaces:  make(map[xproto.Window]*previewtest.Surface),
		selected:  make(map[xproto.Window]uint32),
		events:    make(chan xgb.Event, 16),
	}
}

func (f *fakeBackend) exists(win xproto.Window) error {
	if _, ok := f.geoms[win]; !ok {
		return xproto.WindowError{}
	}
	return nil
}

func (f *fakeBackend) Root() xproto.Window { return root }
func (f *fakeBackend) Atoms() x11.Atoms    { return testAtoms }

func (f *fakeBackend) WaitForEvent() (xgb.Event, xgb.Error) {
	ev, ok := <-f.events
	if !ok {
		return nil, nil
	}
	return ev, nil
}

func (f *fakeBackend) WindowTitle(win xproto.Window) (string, error) {
	return f.titles[win], f.exists(win)
}

func (f *fakeBackend) WindowClass(win xproto.Window) string { return f.classes[win] }

func (f *fakeBackend) WindowPID(win xproto.Window) (uint32, error) {
	return 0, f.exists(win)
}

func (f *fakeBackend) IsMinimized(win xproto.Window) (bool, error) {
	return f.minimized[win], f.exists(win)
}

func (f *fakeBackend) Geometry(win xproto.Window) (geometry.Rect, error) {
	return f.geoms[win], f.exists(win)
}

func (f *fakeBackend) Depth(win xproto.Window) (byte, error) {
	return 24, f.exists(win)
}

func (f *fakeBackend) ActiveWindow() (xproto.Window, error) { return f.active, nil }

func (f *fakeBackend) TopLevelWindows() ([]xproto.Window, error) { return f.order, nil }

func (f *fakeBackend) Monitors() ([]x11.Monitor, error) {
	return []x11.Monitor{{Name: "screen", Width: 1920, Height: 1080}}, nil
}

func (f *fakeBackend) SelectInput(win xproto.Window, mask uint32) error {
	if err := f.exists(win); err != nil {
		return err
	}
	f.selected[win] = mask
	return nil
}

func (f *fakeBackend) Minimize(win xproto.Window) error {
	f.minimizes = append(f.minimizes, win)
	return nil
}

func (f *fakeBackend) Activate(win xproto.Window, _ xproto.Timestamp) error {
	f.activated = append(f.activated, win)
	return nil
}

func (f *fakeBackend) ResolveFont(string, float64) (*font.Renderer, error) {
	return new(font.Renderer), nil
}

func (f *fakeBackend) NewSurface(_ string, src xproto.Window, _ byte, style *preview.Style, pos geometry.Position, dims geometry.Dimensions) (preview.Surface, error) {
	f.nextWin++
	s := previewtest.New(f.nextWin, src, geometry.NewRect(pos, dims))
	s.Style = style
	f.surfaces[src] = s
	return s, nil
}

func (f *fakeBackend) Flush() {}

type harness struct {
	t      *testing.T
	x      *fakeBackend
	d      *Daemon
	cfg    *config.Config
	broker *ipc.Broker
	mu     sync.Mutex
	saves  int
	clock  time.Time
	events <-chan ipc.Event
	unsub  func()

	// applied records every configuration passed to OnConfigApplied.
	applied []*config.Config
}

func testConfig(edit func(*config.Profile)) *config.Config {
	cfg := config.DefaultConfig()
	p := cfg.ActiveProfile()
	p.Characters["Alice"] = config.CharacterSettings{X: 100, Y: 100, Width: 50, Height: 50}
	p.Characters["Bob"] = config.CharacterSettings{X: 160, Y: 100, Width: 50, Height: 50}
	p.CycleOrder = []string{"Alice", "Bob"}
	if edit != nil {
		edit(p)
	}
	return cfg
}

func newHarness(t *testing.T, edit func(*config.Profile)) *harness {
	t.Helper()
	return newConfigHarness(t, testConfig(edit))
}

func newConfigHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		x:      newFakeBackend(),
		cfg:    cfg,
		broker: ipc.NewBroker(),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	d, err := New(Options{
		Backend:    h.x,
		Config:     cfg,
		ConfigPath: t.TempDir() + "/config.yaml",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Broker:     h.broker,
		Saver: func(*config.Config) error {
			h.mu.Lock()
			h.saves++
			h.mu.Unlock()
			return nil
		},
		OnConfigApplied: func(c *config.Config) { h.applied = append(h.applied, c) },
		Now:             func() time.Time { return h.clock },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.d = d
	t.Cleanup(h.broker.Close)
	return h
}

func (h *harness) scan() {
	h.t.Helper()
	if err := h.d.Scan(); err != nil {
		h.t.Fatalf("Scan: %v", err)
	}
}

// subscribe starts recording events from this point on.
func (h *harness) subscribe() {
	h.events, h.unsub = h.broker.Subscribe()
	h.t.Cleanup(h.unsub)
}

func (h *harness) drain() []ipc.Event {
	var out []ipc.Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (h *harness) saveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saves
}

func (h *harness) thumb(src xproto.Window) *preview.Thumbnail {
	h.t.Helper()
	th, ok := h.d.thumbnails[src]
	if !ok {
		h.t.Fatalf("no preview for window %#x", src)
	}
	return th
}

func countType(events []ipc.Event, typ ipc.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestScanCreatesPreviewsForClientsOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.subscribe()
	h.scan()

	if len(h.d.thumbnails) != 2 {
		t.Fatalf("expected 2 previews, got %d", len(h.d.thumbnails))
	}
	if _, ok := h.d.thumbnails[winOther]; ok {
		t.Fatal("non-client window got a preview")
	}
	if got := h.thumb(winAlice).Position(); got != (geometry.Position{X: 100, Y: 100}) {
		t.Fatalf("Alice placed at %+v, want saved position", got)
	}
	if got := h.x.selected[winAlice]; got != xproto.EventMaskPropertyChange|xproto.EventMaskFocusChange {
		t.Fatalf("client event mask = %#x", got)
	}
	if got := h.x.selected[winOther]; got != xproto.EventMaskPropertyChange {
		t.Fatalf("other window event mask = %#x", got)
	}
	events := h.drain()
	if n := countType(events, ipc.EventCharacterDetected); n != 2 {
		t.Fatalf("expected 2 character_detected events, got %d", n)
	}
}

func TestNewClientSpawnsInsideSource(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	const carol xproto.Window = 0x40
	h.x.titles[carol] = "EVE - Carol"
	h.x.geoms[carol] = geometry.Rect{X: 300, Y: 200, Width: 1024, Height: 768}
	h.d.HandleEvent(xproto.CreateNotifyEvent{Window: carol, Parent: root})

	got := h.thumb(carol).Position()
	if got != (geometry.Position{X: 320, Y: 220}) {
		t.Fatalf("spawn position = %+v, want source + 20", got)
	}
	if _, ok := h.d.profile.Characters["Carol"]; !ok {
		t.Fatal("new character should be recorded in the profile")
	}
}

func TestDragSnapSaveEmitsOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()
	h.subscribe()

	alice := h.thumb(winAlice)
	surface := h.x.surfaces[winAlice]
	press := func(x, y int16) {
		h.d.HandleEvent(xproto.ButtonPressEvent{Detail: buttonRight, Event: alice.Window(), RootX: x, RootY: y})
	}
	motion := func(x, y int16) {
		h.d.HandleEvent(xproto.MotionNotifyEvent{Event: alice.Window(), RootX: x, RootY: y})
	}

	press(110, 110)
	if !alice.Input.Dragging || len(alice.Input.SnapTargets) != 1 {
		t.Fatalf("drag not started: %+v", alice.Input)
	}

	motion(112, 110) // raw x 102, right edge 152 is 8px from Bob's left edge
	if got := alice.Position(); got != (geometry.Position{X: 110, Y: 100}) {
		t.Fatalf("snapped position = %+v, want 110,100", got)
	}
	motion(400, 500)
	if got := alice.Position(); got != (geometry.Position{X: 390, Y: 490}) {
		t.Fatalf("free position = %+v, want 390,490", got)
	}
	motion(112, 110)

	geometryCalls := 0
	for _, c := range surface.Calls {
		if c == "geometry" {
			geometryCalls++
		}
	}
	h.d.HandleEvent(xproto.ButtonReleaseEvent{Detail: buttonRight, Event: alice.Window(), RootX: 112, RootY: 110})

	after := 0
	for _, c := range surface.Calls {
		if c == "geometry" {
			after++
		}
	}
	if after-geometryCalls != 1 {
		t.Fatalf("expected exactly one geometry query on release, got %d", after-geometryCalls)
	}
	if alice.Input.Dragging || alice.Input.SnapTargets != nil {
		t.Fatalf("drag state not cleared: %+v", alice.Input)
	}
	if got := h.d.profile.Characters["Alice"]; got.X != 110 || got.Y != 100 {
		t.Fatalf("profile position = %d,%d; want 110,100", got.X, got.Y)
	}
	if pos, _ := h.d.session.Position("", winAlice, nil, true); pos != (geometry.Position{X: 110, Y: 100}) {
		t.Fatalf("session position = %+v", pos)
	}
	if h.saveCount() != 1 {
		t.Fatalf("expected 1 save, got %d", h.saveCount())
	}
	events := h.drain()
	if n := countType(events, ipc.EventPositionChanged); n != 1 {
		t.Fatalf("expected exactly one position_changed event, got %d", n)
	}
	ev := events[0]
	if ev.Character != "Alice" || ev.Position == nil || *ev.Position != (geometry.Position{X: 110, Y: 100}) {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(surface.Activations) != 0 {
		t.Fatal("right-button release must not activate the client")
	}
}

func TestDragWithoutAutoSave(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) { p.Behavior.AutoSavePosition = false })
	h.scan()

	alice := h.thumb(winAlice)
	h.d.HandleEvent(xproto.ButtonPressEvent{Detail: buttonRight, Event: alice.Window(), RootX: 110, RootY: 110})
	h.d.HandleEvent(xproto.MotionNotifyEvent{RootX: 610, RootY: 610})
	h.d.HandleEvent(xproto.ButtonReleaseEvent{Detail: buttonRight, RootX: 610, RootY: 610})

	if h.saveCount() != 0 {
		t.Fatalf("expected no save, got %d", h.saveCount())
	}
	if got := h.d.profile.Characters["Alice"]; got.X != 600 || got.Y != 600 {
		t.Fatalf("in-memory position = %d,%d; want 600,600", got.X, got.Y)
	}
}

func TestLeftClickActivatesAndMinimizesOthers(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) { p.Behavior.MinimizeOnSwitch = true })
	h.scan()

	bob := h.thumb(winBob)
	h.d.HandleEvent(xproto.ButtonPressEvent{Detail: buttonLeft, Event: bob.Window(), RootX: 170, RootY: 110})
	if h.d.cycle.Current() != "Bob" {
		t.Fatalf("click should select Bob for cycling, got %q", h.d.cycle.Current())
	}
	h.d.HandleEvent(xproto.ButtonReleaseEvent{Detail: buttonLeft, Event: bob.Window(), RootX: 170, RootY: 110, Time: 1234})

	if got := h.x.surfaces[winBob].Activations; len(got) != 1 || got[0] != 1234 {
		t.Fatalf("activations = %v, want [1234]", got)
	}
	if len(h.x.minimizes) != 1 || h.x.minimizes[0] != winAlice {
		t.Fatalf("minimized = %v, want [Alice]", h.x.minimizes)
	}
}

func TestCharacterSwap(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()
	h.subscribe()

	alice := h.thumb(winAlice)
	h.x.titles[winAlice] = "EVE - Carol"
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.WMName})

	if alice.Character != "Carol" {
		t.Fatalf("Character = %q, want Carol", alice.Character)
	}
	if got := alice.Position(); got != (geometry.Position{X: 100, Y: 100}) {
		t.Fatalf("preserved position = %+v", got)
	}
	if _, ok := h.d.profile.Characters["Carol"]; !ok {
		t.Fatal("Carol should be recorded")
	}
	if h.saveCount() != 1 {
		t.Fatalf("expected the outgoing position to be saved once, got %d", h.saveCount())
	}
	events := h.drain()
	if countType(events, ipc.EventCharacterDetected) != 1 || countType(events, ipc.EventPositionChanged) != 1 {
		t.Fatalf("unexpected events %+v", events)
	}

	// Logout keeps the preview and makes the window reachable through its
	// last character.
	h.x.titles[winAlice] = "EVE"
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.WMName})
	if alice.Character != "" {
		t.Fatalf("Character after logout = %q", alice.Character)
	}
	if _, ok := h.d.thumbnails[winAlice]; !ok {
		t.Fatal("logout must keep the preview")
	}
	if got := h.d.loggedOutWindows(); got[winAlice] != "Carol" {
		t.Fatalf("loggedOutWindows() = %v", got)
	}
}

func TestSwapToSavedCharacterMoves(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) {
		p.Characters["Dave"] = config.CharacterSettings{X: 700, Y: 50}
	})
	h.scan()

	h.x.titles[winAlice] = "EVE - Dave"
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.NetWMName})

	if got := h.thumb(winAlice).Position(); got != (geometry.Position{X: 700, Y: 50}) {
		t.Fatalf("position = %+v, want Dave's saved position", got)
	}
	if got := h.d.profile.Characters["Alice"]; got.X != 100 || got.Y != 100 {
		t.Fatalf("outgoing position not kept: %+v", got)
	}
}

func TestUntrackedTitleChangeDetects(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	h.x.titles[winOther] = "EVE - Erin"
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winOther, Atom: testAtoms.WMName})
	if h.thumb(winOther).Character != "Erin" {
		t.Fatal("late title should be detected")
	}
}

func TestDestroyRemovesClient(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	surface := h.x.surfaces[winAlice]
	delete(h.x.geoms, winAlice)
	h.d.HandleEvent(xproto.DestroyNotifyEvent{Window: winAlice})

	if !surface.Closed {
		t.Fatal("preview not closed")
	}
	if _, ok := h.d.clients[winAlice]; ok {
		t.Fatal("client still tracked")
	}
	h.x.active = winBob
	if name, _, ok := h.d.cycle.Forward(nil); !ok || name != "Bob" {
		t.Fatalf("cycle still reaches removed client: %q", name)
	}
}

func TestDestroyQuietsFreedResources(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLog bool
	}{
		{"picture freed with window", fmt.Errorf("close preview: %w", render.PictureError{NiceName: "Picture"}), false},
		{"damage freed with window", damage.BadDamageError{NiceName: "BadDamage"}, false},
		{"real failure", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.scan()
			var buf bytes.Buffer
			h.d.logger = slog.New(slog.NewTextHandler(&buf, nil))

			h.x.surfaces[winAlice].CloseErr = tt.err
			delete(h.x.geoms, winAlice)
			h.d.HandleEvent(xproto.DestroyNotifyEvent{Window: winAlice})

			if got := strings.Contains(buf.String(), "close preview failed"); got != tt.wantLog {
				t.Fatalf("logged = %v, want %v\n%s", got, tt.wantLog, buf.String())
			}
		})
	}
}

func TestDestroyOfParentFrame(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	const frame xproto.Window = 0x500
	h.d.HandleEvent(xproto.ReparentNotifyEvent{Window: winBob, Parent: frame})
	h.d.HandleEvent(xproto.DestroyNotifyEvent{Window: frame})
	if _, ok := h.d.thumbnails[winBob]; ok {
		t.Fatal("preview should go with its frame")
	}
}

func TestMinimizeAndRestore(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	alice := h.thumb(winAlice)
	h.x.minimized[winAlice] = true
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.NetWMState})
	if !alice.State().Minimized() {
		t.Fatal("expected minimized state")
	}

	h.x.minimized[winAlice] = false
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.NetWMState})
	if alice.State().Minimized() || alice.State().Focused() {
		t.Fatalf("expected normal unfocused state, got %s", alice.State())
	}
}

func TestFocusRestoresMinimizedPreview(t *testing.T) {
	h := newHarness(t, nil)
	h.x.minimized[winAlice] = true
	h.scan()

	alice := h.thumb(winAlice)
	if !alice.State().Minimized() {
		t.Fatal("expected minimized state")
	}
	// Window managers send FocusIn before clearing _NET_WM_STATE_HIDDEN.
	h.d.HandleEvent(xproto.FocusInEvent{Event: winAlice, Mode: xproto.NotifyModeNormal})
	if alice.State().Minimized() || !alice.State().Focused() {
		t.Fatalf("state after focus = %s, want focused", alice.State())
	}

	h.x.minimized[winAlice] = false
	borders := len(h.x.surfaces[winAlice].Borders)
	h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.NetWMState})
	if !alice.State().Focused() || len(h.x.surfaces[winAlice].Borders) != borders {
		t.Fatal("late state change should leave the focused preview alone")
	}
}

func TestFocusAndHideWhenNoFocus(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) { p.Behavior.HideWhenNoFocus = true })
	h.x.active = winAlice
	h.scan()

	alice, bob := h.thumb(winAlice), h.thumb(winBob)
	if !alice.State().Focused() || bob.State().Focused() {
		t.Fatal("initial focus should follow the active window")
	}

	h.d.HandleEvent(xproto.FocusInEvent{Event: winBob, Mode: xproto.NotifyModeNormal})
	if alice.State().Focused() || !bob.State().Focused() {
		t.Fatal("focus should move to Bob")
	}
	if h.d.cycle.Current() != "Bob" {
		t.Fatalf("cycle selection = %q, want Bob", h.d.cycle.Current())
	}

	h.d.HandleEvent(xproto.FocusOutEvent{Event: winBob, Mode: xproto.NotifyModeNormal})
	h.x.active = 0
	h.d.checkHideDeadline(h.clock.Add(50 * time.Millisecond))
	if alice.Hidden() {
		t.Fatal("hidden before the deadline")
	}
	h.d.checkHideDeadline(h.clock.Add(150 * time.Millisecond))
	if !alice.Hidden() || !bob.Hidden() {
		t.Fatal("previews should hide once focus stays away")
	}

	h.d.HandleEvent(xproto.FocusInEvent{Event: winAlice, Mode: xproto.NotifyModeNormal})
	if alice.Hidden() || bob.Hidden() {
		t.Fatal("focus should reveal previews")
	}
}

func TestFocusOutGrabIsIgnored(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) { p.Behavior.HideWhenNoFocus = true })
	h.x.active = winAlice
	h.scan()

	h.d.HandleEvent(xproto.FocusOutEvent{Event: winAlice, Mode: xproto.NotifyModeGrab})
	if !h.d.hideDeadline.IsZero() {
		t.Fatal("grab focus-out must not schedule a hide")
	}
}

func TestDamageUpdatesOwner(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	surface := h.x.surfaces[winBob]
	before := surface.Updates
	h.d.HandleEvent(damage.NotifyEvent{Damage: surface.DamageID})
	if surface.Updates != before+1 || surface.Subtracts != 1 {
		t.Fatalf("updates %d->%d, subtracts %d", before, surface.Updates, surface.Subtracts)
	}
}

func TestCycleHotkeys(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	if _, ok := h.d.cycleClients(input.CycleForward, "", 0); ok {
		t.Fatal("cycling needs a focused client")
	}

	h.x.active = winAlice
	h.d.HandleEvent(xproto.FocusInEvent{Event: winAlice})
	name, ok := h.d.cycleClients(input.CycleForward, "", 77)
	if !ok || name != "Bob" {
		t.Fatalf("cycle = %q, %v; want Bob", name, ok)
	}
	if got := h.x.surfaces[winBob].Activations; len(got) != 1 || got[0] != 77 {
		t.Fatalf("activations = %v", got)
	}
	if name, _ := h.d.cycleClients(input.CycleBackward, "", 0); name != "Alice" {
		t.Fatalf("backward = %q, want Alice", name)
	}
}

func TestCycleWithPreviewsDisabled(t *testing.T) {
	h := newHarness(t, func(p *config.Profile) {
		p.Thumbnails.Enabled = false
		p.Hotkeys.RequireEVEFocus = false
	})
	h.scan()

	if len(h.d.thumbnails) != 0 {
		t.Fatal("no previews expected")
	}
	if name, ok := h.d.cycleClients(input.CycleForward, "", 0); !ok || name != "Alice" {
		t.Fatalf("cycle = %q, %v", name, ok)
	}
	if len(h.x.activated) != 1 || h.x.activated[0] != winAlice {
		t.Fatalf("activated = %v", h.x.activated)
	}
}

func TestThumbnailMove(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()
	h.subscribe()

	alice := h.thumb(winAlice)
	surface := h.x.surfaces[winAlice]
	move := func(x, y int16) *ipc.Response {
		req, err := ipc.NewRequest(ipc.CommandThumbnailMove, ipc.ThumbnailMovePayload{Character: "Alice", X: x, Y: y})
		if err != nil {
			t.Fatal(err)
		}
		return h.d.handleRequest(req)
	}

	if resp := move(100, 100); resp.Status != "OK" {
		t.Fatalf("move: %s", resp.Error)
	}
	if len(surface.Repositions) != 0 || len(h.drain()) != 0 {
		t.Fatal("move to the current position should be a no-op")
	}

	if resp := move(300, 300); resp.Status != "OK" {
		t.Fatalf("move: %s", resp.Error)
	}
	if alice.Position() != (geometry.Position{X: 300, Y: 300}) {
		t.Fatalf("position = %+v", alice.Position())
	}
	if n := countType(h.drain(), ipc.EventPositionChanged); n != 1 {
		t.Fatalf("expected one position_changed, got %d", n)
	}

	h.d.HandleEvent(xproto.ButtonPressEvent{Detail: buttonRight, Event: alice.Window(), RootX: 310, RootY: 310})
	move(500, 500)
	if alice.Position() != (geometry.Position{X: 300, Y: 300}) || !alice.Input.Dragging {
		t.Fatal("move must not interrupt a drag")
	}

	req, _ := ipc.NewRequest(ipc.CommandThumbnailMove, ipc.ThumbnailMovePayload{Character: "Nobody"})
	if resp := h.d.handleRequest(req); resp.Status != "ERROR" {
		t.Fatal("expected an error for an unknown character")
	}
}

func TestResizeSurvivesSwapAndRestart(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	req, err := ipc.NewRequest(ipc.CommandThumbnailMove, ipc.ThumbnailMovePayload{Character: "Alice", X: 100, Y: 100, Width: 300, Height: 200})
	if err != nil {
		t.Fatal(err)
	}
	if resp := h.d.handleRequest(req); resp.Status != "OK" {
		t.Fatalf("move: %s", resp.Error)
	}

	want := geometry.Dimensions{Width: 300, Height: 200}
	retitle := func(title string) {
		h.x.titles[winAlice] = title
		h.d.HandleEvent(xproto.PropertyNotifyEvent{Window: winAlice, Atom: testAtoms.WMName})
	}
	retitle("EVE - Carol")
	retitle("EVE - Alice")

	if got := h.thumb(winAlice).Dimensions(); got != want {
		t.Fatalf("dimensions after swap back = %+v, want %+v", got, want)
	}
	if got := h.d.profile.Characters["Alice"]; got.Width != 300 || got.Height != 200 {
		t.Fatalf("saved dimensions = %dx%d, want 300x200", got.Width, got.Height)
	}

	delete(h.x.geoms, winAlice)
	h.d.HandleEvent(xproto.DestroyNotifyEvent{Window: winAlice})
	h.x.geoms[winAlice] = geometry.Rect{Width: 1920, Height: 1080}
	h.d.HandleEvent(xproto.CreateNotifyEvent{Window: winAlice, Parent: root})

	if got := h.thumb(winAlice).Dimensions(); got != want {
		t.Fatalf("dimensions after restart = %+v, want %+v", got, want)
	}
}

func TestApplyConfigRestyles(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	p := *h.d.profile
	p.Thumbnails.Opacity = 40
	p.Characters = map[string]config.CharacterSettings{
		"Alice": {X: 100, Y: 100, Width: 80, Height: 60},
	}
	req, err := ipc.NewRequest(ipc.CommandApplyConfig, ipc.ApplyConfigPayload{Profile: p})
	if err != nil {
		t.Fatal(err)
	}
	if resp := h.d.handleRequest(req); resp.Status != "OK" {
		t.Fatalf("apply: %s", resp.Error)
	}

	surface := h.x.surfaces[winAlice]
	if surface.Style != h.d.style || surface.Style.Display.Opacity != h.d.display.Opacity {
		t.Fatal("style not applied")
	}
	if got := h.thumb(winAlice).Dimensions(); got != (geometry.Dimensions{Width: 80, Height: 60}) {
		t.Fatalf("dimensions = %+v", got)
	}

	bad := p
	bad.Thumbnails.ActiveBorder.Color = "nope"
	req, _ = ipc.NewRequest(ipc.CommandApplyConfig, ipc.ApplyConfigPayload{Profile: bad})
	if resp := h.d.handleRequest(req); resp.Status != "ERROR" {
		t.Fatal("invalid profile should be rejected")
	}
	if h.d.profile.Thumbnails.ActiveBorder.Color == "nope" {
		t.Fatal("rejected profile must not be applied")
	}
}

func TestApplyConfigDisablesPreviews(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()

	surface := h.x.surfaces[winAlice]
	p := *h.d.profile
	p.Thumbnails.Enabled = false
	if err := h.d.applyProfile(p); err != nil {
		t.Fatal(err)
	}
	if !surface.Closed || len(h.d.thumbnails) != 0 {
		t.Fatal("previews should close when disabled")
	}

	p.Thumbnails.Enabled = true
	if err := h.d.applyProfile(p); err != nil {
		t.Fatal(err)
	}
	if len(h.d.thumbnails) != 2 {
		t.Fatalf("previews should come back, got %d", len(h.d.thumbnails))
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.scan()
	h.clock = h.clock.Add(90 * time.Second)

	st := h.d.status()
	if st.Profile != config.DefaultProfileName || st.UptimeSeconds != 90 {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Previews) != 2 || st.Previews[0].Character != "Alice" || st.Previews[1].Character != "Bob" {
		t.Fatalf("previews = %+v", st.Previews)
	}
}

func TestRunServesRequestsAndSaves(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.d.Run(ctx) }()

	req, _ := ipc.NewRequest(ipc.CommandStatus, nil)
	resp := h.d.Dispatch(req)
	if resp.Status != "OK" {
		t.Fatalf("status: %s", resp.Error)
	}

	h.d.RequestSave()
	deadline := time.Now().Add(2 * time.Second)
	for h.saveCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("save request was not handled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	close(h.x.events)
	if !h.x.surfaces[winAlice].Closed {
		t.Fatal("previews should be released on shutdown")
	}
	if resp := h.d.Dispatch(req); resp.Status != "ERROR" {
		t.Fatal("dispatch after stop should fail")
	}
}

func TestRunStopsWhenConnectionCloses(t *testing.T) {
	h := newHarness(t, nil)
	close(h.x.events)
	err := h.d.Run(context.Background())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Run() = %v, want ErrConnectionClosed", err)
	}
}
