package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the browser.
type KeyMap struct {
	// Browse screen.
	Up   key.Binding
	Down key.Binding
	Open key.Binding

	PageUp   key.Binding
	PageDown key.Binding

	// Search box.
	Search      key.Binding
	SearchClear key.Binding

	// Gallery.
	SwitchScreen key.Binding
	Prev         key.Binding
	Next         key.Binding
	Featured     key.Binding // 1-6 jump to a featured slot.
	StripBack    key.Binding
	StripForward key.Binding

	// Item actions (selected card, current slide or open detail).
	Share    key.Binding
	Bookmark key.Binding
	Download key.Binding

	Reload key.Binding
	Back   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("pgdn", "page down"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	SearchClear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "clear search"),
	),
	SwitchScreen: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "grids/gallery"),
	),
	Prev: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "previous"),
	),
	Next: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next"),
	),
	Featured: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6"),
		key.WithHelp("1-6", "featured"),
	),
	StripBack: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "scroll strip"),
	),
	StripForward: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "scroll strip"),
	),
	Share: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "share"),
	),
	Bookmark: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "bookmark"),
	),
	Download: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "download"),
	),
	Reload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "reload"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer of a screen.
func (k KeyMap) ShortHelp(gallery, detail bool) []key.Binding {
	switch {
	case detail:
		return []key.Binding{k.Back, k.Share, k.Bookmark, k.Download, k.Quit}
	case gallery:
		return []key.Binding{k.Prev, k.Next, k.Featured, k.StripBack, k.Open, k.SwitchScreen, k.Quit}
	default:
		return []key.Binding{k.Up, k.Down, k.Open, k.Search, k.SwitchScreen, k.Share, k.Quit}
	}
}
