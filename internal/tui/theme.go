package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the colour palette, in ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	LinkText   lipgloss.Color
	TagText    lipgloss.Color
	ErrorText  lipgloss.Color
	Selected   lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),
	Accent:     lipgloss.Color("212"),
	LinkText:   lipgloss.Color("39"),
	TagText:    lipgloss.Color("108"),
	ErrorText:  lipgloss.Color("203"),
	Selected:   lipgloss.Color("236"),
	Border:     lipgloss.Color("240"),
}

// Styles are the rendered styles derived from a Theme.
type Styles struct {
	Text     lipgloss.Style
	Faint    lipgloss.Style
	Heading  lipgloss.Style
	Title    lipgloss.Style
	Link     lipgloss.Style
	Button   lipgloss.Style
	Tag      lipgloss.Style
	Error    lipgloss.Style
	Active   lipgloss.Style
	Selected lipgloss.Style
	Modal    lipgloss.Style
	Notice   lipgloss.Style
	Help     lipgloss.Style
}

// NewStyles builds Styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Text:     lipgloss.NewStyle().Foreground(t.NormalText),
		Faint:    lipgloss.NewStyle().Foreground(t.FaintText),
		Heading:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent).MarginTop(1),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.NormalText),
		Link:     lipgloss.NewStyle().Underline(true).Foreground(t.LinkText),
		Button:   lipgloss.NewStyle().Foreground(t.Accent),
		Tag:      lipgloss.NewStyle().Foreground(t.TagText),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(t.ErrorText),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Selected: lipgloss.NewStyle().Background(t.Selected).BorderStyle(lipgloss.ThickBorder()).BorderLeft(true).BorderForeground(t.Accent),
		Modal:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		Notice:   lipgloss.NewStyle().Foreground(t.Accent).Italic(true),
		Help:     lipgloss.NewStyle().Foreground(t.FaintText),
	}
}
