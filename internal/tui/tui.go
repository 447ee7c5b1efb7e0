// Package tui is the interactive terminal editor for the preview
// configuration: profiles, thumbnail visuals, behaviour, hotkeys and the
// per-character records the daemon persists.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// Daemon is the part of the daemon the editor talks to.
type Daemon interface {
	Status() (*ipc.StatusData, error)
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Run opens the editor on the config file at path until the user quits.
func Run(path string, d Daemon) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("manage requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	m, err := newModel(path, d)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
