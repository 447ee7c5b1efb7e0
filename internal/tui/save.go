package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/config"
)

type savePhase int

const (
	saveHidden  savePhase = iota
	savePreview           // showing diff, awaiting confirm
	saveResult            // showing outcome message
)

var errNoChanges = errors.New("no changes to save")

// SaveOverlay shows pending changes as a diff and writes them on confirm.
type SaveOverlay struct {
	phase    savePhase
	lines    []diffLine
	scroll   int
	err      error
	reloaded bool
}

// Active reports whether the overlay is visible.
func (s SaveOverlay) Active() bool {
	return s.phase != saveHidden
}

// Show diffs current against original and opens the overlay.
func (s *SaveOverlay) Show(original, current *config.Config) {
	*s = SaveOverlay{phase: savePreview, lines: computeDiffLines(original, current)}
	if len(s.lines) == 0 {
		s.phase = saveResult
		s.err = errNoChanges
	}
}

// SaveSucceeded reports whether the last save completed without error.
func (s SaveOverlay) SaveSucceeded() bool {
	return s.phase == saveResult && s.err == nil
}

// Update handles input while the overlay is active. Confirming writes cfg to
// path and asks a running daemon to reload it.
func (s SaveOverlay) Update(msg tea.Msg, cfg, original *config.Config, path string, d Daemon, running bool) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	if s.phase == saveResult {
		s.phase = saveHidden
		return s
	}

	switch km.String() {
	case "esc", "n":
		s.phase = saveHidden
	case "enter", "y":
		s.err = saveConfig(cfg, original, path)
		if s.err == nil && running && d != nil {
			s.reloaded = d.Reload() == nil
		}
		s.phase = saveResult
	case "up", "k":
		s.scroll = max(s.scroll-1, 0)
	case "down", "j":
		s.scroll = min(s.scroll+1, max(len(s.lines)-1, 0))
	}
	return s
}

// saveConfig writes the edited config. Character positions are owned by the
// daemon, which may have saved since the editor opened, so they are taken
// from the file on disk before writing.
func saveConfig(cfg, original *config.Config, path string) error {
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("re-read %s: %w", path, err)
	}
	if res.Exists {
		mergeDaemonPositions(cfg, original, res.Config)
	}
	return cfg.SaveToPath(path)
}

// mergeDaemonPositions copies placement from disk into cfg. Characters the
// daemon recorded after original was loaded are added; characters removed in
// the editor stay removed.
func mergeDaemonPositions(cfg, original, disk *config.Config) {
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		dp, ok := disk.Profile(p.Name)
		if !ok {
			continue
		}
		var known map[string]config.CharacterSettings
		if original != nil {
			if op, ok := original.Profile(p.Name); ok {
				known = op.Characters
			}
		}
		for name, ds := range dp.Characters {
			cs, have := p.Characters[name]
			if !have {
				if _, removed := known[name]; removed {
					continue
				}
				if p.Characters == nil {
					p.Characters = make(map[string]config.CharacterSettings)
				}
				p.Characters[name] = ds
				continue
			}
			cs.X, cs.Y, cs.Width, cs.Height = ds.X, ds.Y, ds.Width, ds.Height
			p.Characters[name] = cs
		}
	}
}

var (
	diffStyles = map[diffKind]lipgloss.Style{
		diffContext: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		diffRemoved: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		diffAdded:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	diffPrefix = map[diffKind]string{diffContext: "  ", diffRemoved: "- ", diffAdded: "+ "}
)

// View renders the overlay centred in the content area.
func (s SaveOverlay) View(width, height int) string {
	switch s.phase {
	case savePreview:
		return overlayBox(s.previewContent(width, height), width, height, 80)
	case saveResult:
		return overlayBox(s.resultContent(), width, height, 60)
	}
	return ""
}

func (s SaveOverlay) previewContent(width, height int) string {
	// Rows left for the diff once the title, footer, border and padding
	// are drawn.
	rows := max(height-10, 3)
	textWidth := max(min(width-8, 80)-8, 8)

	start := min(s.scroll, max(len(s.lines)-rows, 0))
	end := min(start+rows, len(s.lines))

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("Save Config: Pending Changes"))
	b.WriteString("\n\n")
	for _, l := range s.lines[start:end] {
		text := l.text
		if r := []rune(text); len(r) > textWidth {
			text = string(r[:textWidth])
		}
		b.WriteString(diffStyles[l.kind].Render(diffPrefix[l.kind] + text))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: save  esc: cancel  j/k: scroll"))
	return b.String()
}

func (s SaveOverlay) resultContent() string {
	var msg string
	if s.err != nil {
		msg = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Render("Error: " + s.err.Error())
	} else {
		ok := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		msg = ok.Bold(true).Render("Config saved")
		if s.reloaded {
			msg += "\n" + ok.Render("Daemon reloaded")
		}
	}
	return msg + "\n\n" + dimStyle.Render("press any key to dismiss")
}

func overlayBox(content string, width, height, maxWidth int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("28")).
		Padding(1, 2).
		Width(max(min(width-8, maxWidth), 30)).
		Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
