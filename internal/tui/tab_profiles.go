package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/config"
)

// profileItem is a list item representing one profile.
type profileItem struct {
	name        string
	description string
	characters  int
	selected    bool
}

func (i profileItem) Title() string {
	if i.selected {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●") + " " + i.name
	}
	return "  " + i.name
}

func (i profileItem) Description() string {
	desc := fmt.Sprintf("%d characters", i.characters)
	if i.description != "" {
		desc += " | " + i.description
	}
	return desc
}

func (i profileItem) FilterValue() string { return i.name }

type promptMode int

const (
	promptNone promptMode = iota
	promptNew
	promptClone
)

// ProfilesTab lists profiles and picks the one the daemon runs.
type ProfilesTab struct {
	list   list.Model
	cfg    *config.Config
	width  int
	height int

	mode      promptMode
	textInput textinput.Model
	message   string
}

// NewProfilesTab creates a ProfilesTab over cfg.
func NewProfilesTab(cfg *config.Config) ProfilesTab {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("28"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("28"))

	l := list.New(buildProfileItems(cfg), delegate, 0, 0)
	l.Title = "Profiles"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("28")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "profile name"
	ti.CharLimit = 64

	return ProfilesTab{
		list:      l,
		cfg:       cfg,
		textInput: ti,
	}
}

func buildProfileItems(cfg *config.Config) []list.Item {
	items := make([]list.Item, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		items = append(items, profileItem{
			name:        p.Name,
			description: p.Description,
			characters:  len(p.Characters),
			selected:    p.Name == cfg.SelectedProfile,
		})
	}
	return items
}

func (t ProfilesTab) prompting() bool {
	return t.mode != promptNone
}

func (t *ProfilesTab) refresh() {
	t.list.SetItems(buildProfileItems(t.cfg))
}

func (t ProfilesTab) selectedName() string {
	if item, ok := t.list.SelectedItem().(profileItem); ok {
		return item.name
	}
	return ""
}

// Update handles messages for the profiles tab.
func (t ProfilesTab) Update(msg tea.Msg) (ProfilesTab, tea.Cmd) {
	if t.prompting() {
		return t.updatePrompt(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.list.SetSize(t.listWidth(), t.height)
		return t, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if name := t.selectedName(); name != "" {
				t.cfg.SelectedProfile = name
				t.message = "now editing " + name
				t.refresh()
			}
			return t, nil
		case "a":
			return t, t.startPrompt(promptNew)
		case "c":
			if t.selectedName() == "" {
				return t, nil
			}
			return t, t.startPrompt(promptClone)
		case "x", "delete":
			if name := t.selectedName(); name != "" {
				if err := t.removeProfile(name); err != nil {
					t.message = err.Error()
				} else {
					t.message = "removed " + name
				}
				t.refresh()
			}
			return t, nil
		}
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return t, cmd
}

func (t *ProfilesTab) startPrompt(mode promptMode) tea.Cmd {
	t.mode = mode
	t.message = ""
	t.textInput.Reset()
	if mode == promptClone {
		t.textInput.SetValue(t.selectedName() + "-copy")
	}
	t.textInput.Focus()
	return textinput.Blink
}

func (t ProfilesTab) updatePrompt(msg tea.Msg) (ProfilesTab, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			name := strings.TrimSpace(t.textInput.Value())
			var err error
			if t.mode == promptClone {
				err = t.cloneProfile(t.selectedName(), name)
			} else {
				err = t.addProfile(name)
			}
			if err != nil {
				t.message = err.Error()
			} else {
				t.message = "added " + name
			}
			t.mode = promptNone
			t.textInput.Blur()
			t.refresh()
			return t, nil
		case "esc":
			t.mode = promptNone
			t.textInput.Blur()
			return t, nil
		}
	}

	var cmd tea.Cmd
	t.textInput, cmd = t.textInput.Update(msg)
	return t, cmd
}

func (t *ProfilesTab) addProfile(name string) error {
	if err := t.checkNewName(name); err != nil {
		return err
	}
	t.cfg.Profiles = append(t.cfg.Profiles, config.DefaultProfile(name))
	return nil
}

// cloneProfile copies every setting of src, character records included.
func (t *ProfilesTab) cloneProfile(src, name string) error {
	if err := t.checkNewName(name); err != nil {
		return err
	}
	p, ok := t.cfg.Profile(src)
	if !ok {
		return fmt.Errorf("profile %q not found", src)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	var clone config.Profile
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return err
	}
	clone.Name = name
	// Switch keys select one profile each.
	clone.Hotkeys.ProfileSwitch = ""
	t.cfg.Profiles = append(t.cfg.Profiles, clone)
	return nil
}

func (t *ProfilesTab) checkNewName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	if _, exists := t.cfg.Profile(name); exists {
		return fmt.Errorf("profile %q already exists", name)
	}
	return nil
}

// removeProfile deletes name, moving the selection to the first remaining
// profile when it pointed at name.
func (t *ProfilesTab) removeProfile(name string) error {
	if len(t.cfg.Profiles) <= 1 {
		return fmt.Errorf("cannot remove the last profile")
	}
	for i, p := range t.cfg.Profiles {
		if p.Name != name {
			continue
		}
		t.cfg.Profiles = append(t.cfg.Profiles[:i], t.cfg.Profiles[i+1:]...)
		if t.cfg.SelectedProfile == name {
			t.cfg.SelectedProfile = t.cfg.Profiles[0].Name
		}
		return nil
	}
	return fmt.Errorf("profile %q not found", name)
}

func (t ProfilesTab) listWidth() int {
	w := t.width * 2 / 5
	if w < 20 {
		w = 20
	}
	return w
}

// View implements tea.Model.
func (t ProfilesTab) View() string {
	if t.width == 0 || t.height == 0 {
		return ""
	}

	leftWidth := t.listWidth()
	rightWidth := t.width - leftWidth
	if rightWidth < 10 {
		rightWidth = 10
	}

	leftContent := t.list.View()
	if t.prompting() {
		title := "New profile:"
		if t.mode == promptClone {
			title = "Clone " + t.selectedName() + " as:"
		}
		prompt := lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true).
			Render(title) + "\n" +
			t.textInput.View() + "\n" +
			dimStyle.Render("enter: confirm  esc: cancel")
		inputBlock := lipgloss.NewStyle().Padding(0, 1).Width(leftWidth).Render(prompt)
		listHeight := t.height - lipgloss.Height(inputBlock)
		if listHeight < 1 {
			listHeight = 1
		}
		t.list.SetSize(leftWidth, listHeight)
		leftContent = inputBlock + "\n" + t.list.View()
	}

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(t.height).
		Render(leftContent)

	right := t.renderDetail(rightWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (t ProfilesTab) renderDetail(width int) string {
	var b strings.Builder

	if p, ok := t.cfg.Profile(t.selectedName()); ok {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render(p.Name))
		b.WriteString("\n\n")
		if p.Name == t.cfg.SelectedProfile {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● selected; the daemon runs this profile"))
			b.WriteString("\n\n")
		}

		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(18)
		valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
		field := func(label, value string) {
			b.WriteString(labelStyle.Render(label))
			b.WriteString(valueStyle.Render(value))
			b.WriteString("\n")
		}
		field("description:", displayOrDefault(p.Description, "(none)"))
		field("thumbnails:", fmt.Sprintf("%dx%d @ %d%%", p.Thumbnails.Width, p.Thumbnails.Height, p.Thumbnails.Opacity))
		field("hotkeys:", fmt.Sprintf("%s / %s (%s)", p.Hotkeys.Forward, p.Hotkeys.Backward, p.Hotkeys.Backend))
		field("characters:", fmt.Sprintf("%d", len(p.Characters)))
		field("cycle order:", displayOrDefault(strings.Join(p.CycleOrder, ", "), "(none)"))
		groups := make([]string, 0, len(p.CycleGroups))
		for _, g := range p.CycleGroups {
			groups = append(groups, fmt.Sprintf("%s (%d)", g.Name, len(g.Characters)))
		}
		field("cycle groups:", displayOrDefault(strings.Join(groups, ", "), "(none)"))
		field("custom windows:", fmt.Sprintf("%d", len(p.CustomWindows)))
		field("switch key:", displayOrDefault(p.Hotkeys.ProfileSwitch, "(none)"))
	}

	b.WriteString("\n")
	if t.message != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(t.message))
		b.WriteString("\n")
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	b.WriteString(helpStyle.Render("enter: select  a: add  c: clone  x: remove"))

	style := lipgloss.NewStyle().
		Width(width).
		Height(t.height).
		Padding(1, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(lipgloss.Color("236"))
	return style.Render(b.String())
}
