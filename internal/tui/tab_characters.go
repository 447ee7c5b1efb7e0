package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/config"
)

// characterItem is a list item for one saved character.
type characterItem struct {
	name     string
	settings config.CharacterSettings
	order    int // position in the cycle order, -1 when absent
}

func (i characterItem) Title() string {
	if i.order >= 0 {
		return fmt.Sprintf("%d. %s", i.order+1, i.name)
	}
	return "   " + i.name
}

func (i characterItem) Description() string {
	desc := fmt.Sprintf("(%d,%d)", i.settings.X, i.settings.Y)
	if i.settings.Alias != "" {
		desc += " | " + i.settings.Alias
	}
	return desc
}

func (i characterItem) FilterValue() string { return i.name }

// CharactersTab manages the character records and cycle order of the
// selected profile.
type CharactersTab struct {
	list   list.Model
	cfg    *config.Config
	width  int
	height int

	editingAlias bool
	textInput    textinput.Model
}

// NewCharactersTab creates a CharactersTab over cfg.
func NewCharactersTab(cfg *config.Config) CharactersTab {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("28"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("28"))

	l := list.New(buildCharacterItems(cfg.ActiveProfile()), delegate, 0, 0)
	l.Title = "Characters"
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
	ti.Placeholder = "display name (empty clears)"
	ti.CharLimit = 64

	return CharactersTab{
		list:      l,
		cfg:       cfg,
		textInput: ti,
	}
}

// buildCharacterItems lists cycle-order members first, in order, then the
// remaining characters by name.
func buildCharacterItems(p *config.Profile) []list.Item {
	if p == nil {
		return nil
	}
	var items []list.Item
	for i, name := range p.CycleOrder {
		items = append(items, characterItem{name: name, settings: p.Characters[name], order: i})
	}
	for _, pl := range placements(p) {
		if slices.Contains(p.CycleOrder, pl.name) {
			continue
		}
		items = append(items, characterItem{name: pl.name, settings: p.Characters[pl.name], order: -1})
	}
	return items
}

func (t *CharactersTab) refresh() {
	t.list.SetItems(buildCharacterItems(t.cfg.ActiveProfile()))
}

// reselect rebuilds the list and keeps name highlighted.
func (t *CharactersTab) reselect(name string) {
	t.refresh()
	for i, item := range t.list.Items() {
		if ci, ok := item.(characterItem); ok && ci.name == name {
			t.list.Select(i)
			return
		}
	}
}

func (t CharactersTab) selected() (characterItem, bool) {
	item, ok := t.list.SelectedItem().(characterItem)
	return item, ok
}

// Update handles messages for the characters tab.
func (t CharactersTab) Update(msg tea.Msg) (CharactersTab, tea.Cmd) {
	if t.editingAlias {
		return t.updateAlias(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.list.SetSize(t.listWidth(), t.height)
		return t, nil

	case tea.KeyMsg:
		item, ok := t.selected()
		switch msg.String() {
		case "r":
			if !ok {
				return t, nil
			}
			t.editingAlias = true
			t.textInput.Reset()
			t.textInput.SetValue(item.settings.Alias)
			t.textInput.Focus()
			return t, textinput.Blink
		case "o":
			if ok {
				t.toggleCycle(item.name)
				t.reselect(item.name)
			}
			return t, nil
		case "K":
			if ok {
				t.moveInCycle(item.name, -1)
				t.reselect(item.name)
			}
			return t, nil
		case "J":
			if ok {
				t.moveInCycle(item.name, 1)
				t.reselect(item.name)
			}
			return t, nil
		case "x", "delete":
			if ok {
				t.forget(item.name)
				t.refresh()
			}
			return t, nil
		}
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return t, cmd
}

func (t CharactersTab) updateAlias(msg tea.Msg) (CharactersTab, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			if item, ok := t.selected(); ok {
				t.setAlias(item.name, strings.TrimSpace(t.textInput.Value()))
				t.reselect(item.name)
			}
			t.editingAlias = false
			t.textInput.Blur()
			return t, nil
		case "esc":
			t.editingAlias = false
			t.textInput.Blur()
			return t, nil
		}
	}

	var cmd tea.Cmd
	t.textInput, cmd = t.textInput.Update(msg)
	return t, cmd
}

func (t *CharactersTab) setAlias(name, alias string) {
	p := t.cfg.ActiveProfile()
	if p == nil {
		return
	}
	cs, ok := p.Characters[name]
	if !ok {
		return
	}
	cs.Alias = alias
	p.Characters[name] = cs
}

// toggleCycle adds name to the end of the cycle order, or removes it.
func (t *CharactersTab) toggleCycle(name string) {
	p := t.cfg.ActiveProfile()
	if p == nil {
		return
	}
	if i := slices.Index(p.CycleOrder, name); i >= 0 {
		p.CycleOrder = slices.Delete(p.CycleOrder, i, i+1)
		return
	}
	p.CycleOrder = append(p.CycleOrder, name)
}

// moveInCycle shifts name by delta places within the cycle order.
func (t *CharactersTab) moveInCycle(name string, delta int) {
	p := t.cfg.ActiveProfile()
	if p == nil {
		return
	}
	i := slices.Index(p.CycleOrder, name)
	j := i + delta
	if i < 0 || j < 0 || j >= len(p.CycleOrder) {
		return
	}
	p.CycleOrder[i], p.CycleOrder[j] = p.CycleOrder[j], p.CycleOrder[i]
}

// forget drops the saved record and the cycle-order entry for name.
func (t *CharactersTab) forget(name string) {
	p := t.cfg.ActiveProfile()
	if p == nil {
		return
	}
	delete(p.Characters, name)
	if i := slices.Index(p.CycleOrder, name); i >= 0 {
		p.CycleOrder = slices.Delete(p.CycleOrder, i, i+1)
	}
}

func (t CharactersTab) listWidth() int {
	w := t.width * 2 / 5
	if w < 20 {
		w = 20
	}
	return w
}

// View implements tea.Model.
func (t CharactersTab) View() string {
	if t.width == 0 || t.height == 0 {
		return ""
	}

	leftWidth := t.listWidth()
	rightWidth := t.width - leftWidth
	if rightWidth < 10 {
		rightWidth = 10
	}

	leftContent := t.list.View()
	if t.editingAlias {
		item, _ := t.selected()
		prompt := lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true).
			Render("Alias for "+item.name+":") + "\n" +
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

	var right string
	if item, ok := t.selected(); ok {
		right = t.renderDetail(item, rightWidth)
	} else {
		right = renderEmpty("No saved characters yet; they appear once the daemon sees a client", rightWidth, t.height)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (t CharactersTab) renderDetail(item characterItem, width int) string {
	var b strings.Builder
	cs := item.settings

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render(item.name))
	b.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(18)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	field := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	field("position:", fmt.Sprintf("%d,%d", cs.X, cs.Y))
	if cs.Width > 0 && cs.Height > 0 {
		field("size:", fmt.Sprintf("%dx%d", cs.Width, cs.Height))
	} else {
		field("size:", "(profile default)")
	}
	field("alias:", displayOrDefault(cs.Alias, "(none)"))
	if cs.Notes != "" {
		field("notes:", cs.Notes)
	}
	if item.order >= 0 {
		field("cycle order:", fmt.Sprintf("#%d", item.order+1))
	} else {
		field("cycle order:", "(not cycled)")
	}
	if cs.PreviewMode.IsStatic() {
		field("preview:", "static "+swatch(displayOrDefault(cs.PreviewMode.Color, "#000000")))
	}
	if cs.OverrideActiveBorderColor != "" {
		field("active border:", swatch(cs.OverrideActiveBorderColor))
	}
	if cs.OverrideInactiveBorderColor != "" {
		field("inactive border:", swatch(cs.OverrideInactiveBorderColor))
	}
	if cs.OverrideTextColor != "" {
		field("label colour:", swatch(cs.OverrideTextColor))
	}

	// Map fills what is left below the fields and help line.
	used := strings.Count(b.String(), "\n") + 4
	mapHeight := t.height - used - 2
	if mapHeight >= 5 {
		b.WriteString("\n")
		lines := renderLayoutMap(placements(t.cfg.ActiveProfile()), item.name, width-6, mapHeight)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	b.WriteString(helpStyle.Render("r: alias  o: toggle cycle  K/J: move in cycle  x: forget"))

	style := lipgloss.NewStyle().
		Width(width).
		Height(t.height).
		Padding(1, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(lipgloss.Color("236"))
	return style.Render(b.String())
}
