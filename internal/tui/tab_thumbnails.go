package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/evepreview/internal/config"
)

// ThumbnailsTab edits the visual settings of the selected profile.
type ThumbnailsTab struct {
	cfg *config.Config

	width  int
	height int

	editing bool
	form    *huh.Form
	v       *thumbnailFields
}

// thumbnailFields holds the form-bound values (strings for huh, converted on
// submit). It lives behind a pointer so copies of the tab share it.
type thumbnailFields struct {
	fEnabled          bool
	fWidth            string
	fHeight           string
	fOpacity          string
	fActiveEnabled    bool
	fActiveSize       string
	fActiveColor      string
	fInactiveEnabled  bool
	fInactiveSize     string
	fInactiveColor    string
	fTextSize         string
	fTextX            string
	fTextY            string
	fTextColor        string
	fFont             string
	fMinimizedOverlay bool
}

// NewThumbnailsTab creates a ThumbnailsTab over cfg.
func NewThumbnailsTab(cfg *config.Config) ThumbnailsTab {
	return ThumbnailsTab{cfg: cfg}
}

// Update implements tea.Model.
func (g ThumbnailsTab) Update(msg tea.Msg) (ThumbnailsTab, tea.Cmd) {
	if g.editing {
		return g.updateEditing(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && g.cfg.ActiveProfile() != nil {
			g.startEditing()
			return g, g.form.Init()
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}
	return g, nil
}

func (g ThumbnailsTab) updateEditing(msg tea.Msg) (ThumbnailsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			g.editing = false
			g.form = nil
			return g, nil
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if g.form.State == huh.StateCompleted {
		g.applyForm()
		g.editing = false
		g.form = nil
		return g, nil
	}
	return g, cmd
}

func (g *ThumbnailsTab) startEditing() {
	t := g.cfg.ActiveProfile().Thumbnails
	g.v = &thumbnailFields{}
	v := g.v

	v.fEnabled = t.Enabled
	v.fWidth = u16(t.Width)
	v.fHeight = u16(t.Height)
	v.fOpacity = fmt.Sprintf("%d", t.Opacity)
	v.fActiveEnabled = t.ActiveBorder.Enabled
	v.fActiveSize = u16(t.ActiveBorder.Size)
	v.fActiveColor = t.ActiveBorder.Color
	v.fInactiveEnabled = t.InactiveBorder.Enabled
	v.fInactiveSize = u16(t.InactiveBorder.Size)
	v.fInactiveColor = t.InactiveBorder.Color
	v.fTextSize = u16(t.Text.Size)
	v.fTextX = i16(t.Text.X)
	v.fTextY = i16(t.Text.Y)
	v.fTextColor = t.Text.Color
	v.fFont = t.Text.Font
	v.fMinimizedOverlay = t.MinimizedOverlay

	w := g.width - 4
	if w < 40 {
		w = 40
	}

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("enabled").
				Title("Previews Enabled").
				Value(&v.fEnabled),
			huh.NewInput().
				Key("width").
				Title("Width").
				Description("Default preview width in pixels").
				Validate(validPositive).
				Value(&v.fWidth),
			huh.NewInput().
				Key("height").
				Title("Height").
				Description("Default preview height in pixels").
				Validate(validPositive).
				Value(&v.fHeight),
			huh.NewInput().
				Key("opacity").
				Title("Opacity").
				Description("Percent, 100 is fully opaque").
				Validate(validPercent).
				Value(&v.fOpacity),
			huh.NewConfirm().
				Key("minimized_overlay").
				Title("Minimized Overlay").
				Description("Draw a placeholder while the client is minimized").
				Value(&v.fMinimizedOverlay),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("active_enabled").
				Title("Active Border").
				Description("Border around the focused client's preview").
				Value(&v.fActiveEnabled),
			huh.NewInput().
				Key("active_size").
				Title("Active Border Size").
				Validate(validUint16).
				Value(&v.fActiveSize),
			huh.NewInput().
				Key("active_color").
				Title("Active Border Color").
				Description("#RRGGBB or #AARRGGBB").
				Validate(validColor).
				Value(&v.fActiveColor),
			huh.NewConfirm().
				Key("inactive_enabled").
				Title("Inactive Border").
				Value(&v.fInactiveEnabled),
			huh.NewInput().
				Key("inactive_size").
				Title("Inactive Border Size").
				Validate(validUint16).
				Value(&v.fInactiveSize),
			huh.NewInput().
				Key("inactive_color").
				Title("Inactive Border Color").
				Validate(validColor).
				Value(&v.fInactiveColor),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("text_size").
				Title("Label Size").
				Validate(validPositive).
				Value(&v.fTextSize),
			huh.NewInput().
				Key("text_x").
				Title("Label X Offset").
				Validate(validInt16).
				Value(&v.fTextX),
			huh.NewInput().
				Key("text_y").
				Title("Label Y Offset").
				Validate(validInt16).
				Value(&v.fTextY),
			huh.NewInput().
				Key("text_color").
				Title("Label Color").
				Validate(validColor).
				Value(&v.fTextColor),
			huh.NewInput().
				Key("font").
				Title("Font").
				Description("Path to a TrueType/OpenType file; empty picks a default").
				Value(&v.fFont),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	g.editing = true
}

func (g *ThumbnailsTab) applyForm() {
	p := g.cfg.ActiveProfile()
	if p == nil || g.v == nil {
		return
	}
	v := g.v
	t := &p.Thumbnails
	t.Enabled = v.fEnabled
	setUint16(&t.Width, v.fWidth)
	setUint16(&t.Height, v.fHeight)
	setPercent(&t.Opacity, v.fOpacity)
	t.MinimizedOverlay = v.fMinimizedOverlay

	t.ActiveBorder.Enabled = v.fActiveEnabled
	setUint16(&t.ActiveBorder.Size, v.fActiveSize)
	t.ActiveBorder.Color = strings.TrimSpace(v.fActiveColor)
	t.InactiveBorder.Enabled = v.fInactiveEnabled
	setUint16(&t.InactiveBorder.Size, v.fInactiveSize)
	t.InactiveBorder.Color = strings.TrimSpace(v.fInactiveColor)

	setUint16(&t.Text.Size, v.fTextSize)
	setInt16(&t.Text.X, v.fTextX)
	setInt16(&t.Text.Y, v.fTextY)
	t.Text.Color = strings.TrimSpace(v.fTextColor)
	t.Text.Font = strings.TrimSpace(v.fFont)
}

// View implements tea.Model.
func (g ThumbnailsTab) View() string {
	if g.editing && g.form != nil {
		return renderForm("Editing Thumbnail Settings", g.form, g.width, g.height)
	}

	p := g.cfg.ActiveProfile()
	if p == nil {
		return renderEmpty("No profile selected", g.width, g.height)
	}
	t := p.Thumbnails

	border := func(b config.Border) string {
		if !b.Enabled {
			return "off"
		}
		return fmt.Sprintf("%dpx %s", b.Size, swatch(b.Color))
	}

	lines := []string{
		"",
		row("Previews", onOff(t.Enabled)),
		row("Size", fmt.Sprintf("%dx%d", t.Width, t.Height)),
		row("Opacity", fmt.Sprintf("%d%%", t.Opacity)),
		row("Minimized Overlay", onOff(t.MinimizedOverlay)),
		"",
		row("Active Border", border(t.ActiveBorder)),
		row("Inactive Border", border(t.InactiveBorder)),
		"",
		row("Label", fmt.Sprintf("%dpx at (%d,%d) %s", t.Text.Size, t.Text.X, t.Text.Y, swatch(t.Text.Color))),
		row("Font", displayOrDefault(t.Text.Font, "(default)")),
		"",
		dimStyle.Render("  Press 'e' to edit settings"),
	}
	return renderPanel(lines, g.width, g.height)
}

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Width(22).
			Align(lipgloss.Right).
			PaddingRight(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// swatch renders a colour value next to a block painted in it. Alpha is
// dropped since terminals have none.
func swatch(hex string) string {
	rgb := hex
	if len(rgb) == 9 {
		rgb = "#" + rgb[3:]
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(rgb)).Render("■") + " " + hex
}

func renderPanel(lines []string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

func renderForm(title string, form *huh.Form, width, height int) string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("28")).
		Bold(true).
		Render(title) +
		dimStyle.Render("  (esc to cancel)")

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(1, 2).
		Render(header + "\n\n" + form.View())
}

func renderEmpty(msg string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Foreground(lipgloss.Color("241")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(msg)
}
