package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/ipc"
)

const statusPollInterval = 5 * time.Second

// daemonStatusMsg carries the latest daemon status; nil when it is not
// running.
type daemonStatusMsg struct {
	status *ipc.StatusData
}

type pollStatusMsg struct{}

// model is the root bubbletea model for the TUI.
type model struct {
	path   string
	cfg    *config.Config
	daemon Daemon
	status *ipc.StatusData

	// Tab navigation
	activeTab Tab

	// Sub-models
	profilesTab   ProfilesTab
	thumbnailsTab ThumbnailsTab
	behaviorTab   BehaviorTab
	charactersTab CharactersTab

	// Save overlay
	originalConfig *config.Config
	saveOverlay    SaveOverlay

	// Terminal dimensions
	width  int
	height int
}

func newModel(path string, d Daemon) (model, error) {
	res, err := config.LoadFromPath(path)
	if err != nil {
		return model{}, err
	}
	cfg := res.Config

	m := model{
		path:           path,
		cfg:            cfg,
		daemon:         d,
		activeTab:      TabProfiles,
		originalConfig: cloneConfig(cfg),
		profilesTab:    NewProfilesTab(cfg),
		thumbnailsTab:  NewThumbnailsTab(cfg),
		behaviorTab:    NewBehaviorTab(cfg),
		charactersTab:  NewCharactersTab(cfg),
	}
	return m, nil
}

func fetchStatus(d Daemon) tea.Cmd {
	return func() tea.Msg {
		if d == nil {
			return daemonStatusMsg{}
		}
		status, err := d.Status()
		if err != nil {
			return daemonStatusMsg{}
		}
		return daemonStatusMsg{status: status}
	}
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// capturing reports whether a sub-model is consuming raw key input.
func (m model) capturing() bool {
	switch m.activeTab {
	case TabProfiles:
		return m.profilesTab.prompting()
	case TabThumbnails:
		return m.thumbnailsTab.editing
	case TabBehavior:
		return m.behaviorTab.editing
	case TabCharacters:
		return m.charactersTab.editingAlias
	}
	return false
}

func (m model) dirty() bool {
	return len(computeDiffLines(m.originalConfig, m.cfg)) > 0
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return fetchStatus(m.daemon)
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case daemonStatusMsg:
		m.status = msg.status
		return m, tea.Tick(statusPollInterval, func(time.Time) tea.Msg { return pollStatusMsg{} })
	case pollStatusMsg:
		return m, fetchStatus(m.daemon)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		subMsg := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
		m.profilesTab, _ = m.profilesTab.Update(subMsg)
		m.thumbnailsTab, _ = m.thumbnailsTab.Update(subMsg)
		m.behaviorTab, _ = m.behaviorTab.Update(subMsg)
		m.charactersTab, _ = m.charactersTab.Update(subMsg)
		return m, nil
	}

	// Save overlay captures all input when active
	if m.saveOverlay.Active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			if km.String() == "ctrl+c" {
				return m, tea.Quit
			}
			prevPhase := m.saveOverlay.phase
			m.saveOverlay = m.saveOverlay.Update(km, m.cfg, m.originalConfig, m.path, m.daemon, m.status != nil)
			// After a successful save the file is the new baseline.
			if prevPhase == savePreview && m.saveOverlay.SaveSucceeded() {
				m.originalConfig = cloneConfig(m.cfg)
				m.refreshTabs()
				return m, fetchStatus(m.daemon)
			}
		}
		return m, nil
	}

	// ctrl+s triggers save overlay from any context (including form editing)
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+s" {
		m.saveOverlay.Show(m.originalConfig, m.cfg)
		return m, nil
	}

	if !m.capturing() {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "tab":
				m.activeTab = (m.activeTab + 1) % tabCount
				return m, nil
			case "shift+tab":
				m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
				return m, nil
			case "1", "2", "3", "4":
				m.activeTab = Tab(km.String()[0] - '1')
				return m, nil
			}
		}
	} else if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Delegate to active tab's sub-model
	var cmd tea.Cmd
	switch m.activeTab {
	case TabProfiles:
		selected := m.cfg.SelectedProfile
		m.profilesTab, cmd = m.profilesTab.Update(msg)
		if m.cfg.SelectedProfile != selected {
			m.refreshTabs()
		}
	case TabThumbnails:
		m.thumbnailsTab, cmd = m.thumbnailsTab.Update(msg)
	case TabBehavior:
		m.behaviorTab, cmd = m.behaviorTab.Update(msg)
	case TabCharacters:
		m.charactersTab, cmd = m.charactersTab.Update(msg)
	}
	return m, cmd
}

// refreshTabs rebuilds list state after the edited profile or the config
// itself changed underneath the tabs.
func (m *model) refreshTabs() {
	m.profilesTab.refresh()
	m.charactersTab.refresh()
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	editing := ""
	if p := m.cfg.ActiveProfile(); p != nil {
		editing = p.Name
	}
	statusBar := renderStatusBar(m.status, editing, m.dirty(), m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.width)

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(tabBar) + lipgloss.Height(helpBar)
	contentHeight := m.height - usedHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	if m.saveOverlay.Active() {
		content = m.saveOverlay.View(m.width, contentHeight)
	} else {
		switch m.activeTab {
		case TabProfiles:
			content = m.profilesTab.View()
		case TabThumbnails:
			content = m.thumbnailsTab.View()
		case TabBehavior:
			content = m.behaviorTab.View()
		case TabCharacters:
			content = m.charactersTab.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
