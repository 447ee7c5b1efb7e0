package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/ipc"
)

// Tab identifies a TUI tab.
type Tab int

const (
	TabProfiles Tab = iota
	TabThumbnails
	TabBehavior
	TabCharacters
	tabCount // sentinel for iteration
)

func (t Tab) String() string {
	switch t {
	case TabProfiles:
		return "Profiles"
	case TabThumbnails:
		return "Thumbnails"
	case TabBehavior:
		return "Behavior"
	case TabCharacters:
		return "Characters"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderTabBar renders the tab bar with the given active tab and width.
func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := fmt.Sprintf("%d:%s", int(i)+1, i)
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar shows the edited profile and whether the daemon is up.
func renderStatusBar(status *ipc.StatusData, editing string, dirty bool, width int) string {
	var parts []string
	if status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts = append(parts,
			dot+" daemon running",
			"active:"+status.Profile,
			fmt.Sprintf("previews:%d", len(status.Previews)),
		)
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		parts = append(parts, dot+" daemon not running")
	}
	if editing != "" {
		parts = append(parts, "editing:"+editing)
	}
	if dirty {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("unsaved"))
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(strings.Join(parts, "  "))
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "tab/shift-tab: switch tabs  1-4: jump to tab  ctrl-s: save  q/ctrl-c: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}

func displayOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
