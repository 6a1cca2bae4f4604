package theme

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette used by the renderers
type Theme struct {
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Selected  lipgloss.Color
}

// Default is the default palette
var Default = Theme{
	Primary:   lipgloss.Color("#7d56f4"),
	Text:      lipgloss.Color("#ffffff"),
	TextMuted: lipgloss.Color("#808080"),
	Success:   lipgloss.Color("42"),
	Warning:   lipgloss.Color("214"),
	Error:     lipgloss.Color("196"),
	Selected:  lipgloss.Color("#00afff"),
}

// CurrentTheme is the palette in use
var CurrentTheme = Default

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// Styles derived from the current theme
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Selected lipgloss.Style
	Banner   lipgloss.Style
	User     lipgloss.Style
	Bot      lipgloss.Style
}

// NewStyles builds styles from the current theme.
func NewStyles() Styles {
	t := CurrentTheme
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Muted:    lipgloss.NewStyle().Foreground(t.TextMuted),
		Success:  lipgloss.NewStyle().Foreground(t.Success),
		Warning:  lipgloss.NewStyle().Foreground(t.Warning),
		Error:    lipgloss.NewStyle().Foreground(t.Error),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(t.Selected),
		Banner:   lipgloss.NewStyle().Bold(true).Foreground(t.Error).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Error).PaddingLeft(1),
		User:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Bot:      lipgloss.NewStyle().Bold(true).Foreground(t.Success),
	}
}
