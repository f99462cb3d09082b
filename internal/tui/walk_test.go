package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/view"
)

func TestWalkerFlattensFragments(t *testing.T) {
	w := walker{st: NewStyles(DefaultTheme)}

	img := view.El("img", "thumb")
	view.SetAttr(img, "alt", "Sea level")

	hidden := view.TextEl("div", "loading-spinner hidden", "Loading...")

	root := view.El("div", "card",
		view.TextEl("h3", "card__title", "Sea   level\n rising"),
		img,
		view.El("div", "tags", view.TextEl("span", "tag", "climate"), view.TextEl("span", "tag", "ocean")),
		view.El("ul", "", view.TextEl("li", "", "First"), view.TextEl("li", "", "Second")),
		view.Link("btn btn--primary", "/detail/viz/1", "Details", false),
		view.Link("", "https://noaa.example", "NOAA", true),
		hidden,
	)

	out := w.render(root)
	require.Contains(t, out, "Sea level rising")
	require.Contains(t, out, "[image: Sea level]")
	require.Contains(t, out, "#climate #ocean")
	require.Contains(t, out, "• First\n")
	require.Contains(t, out, "• Second")
	require.Contains(t, out, "[Details]")
	require.Contains(t, out, "NOAA")
	require.NotContains(t, out, "Loading...")
	require.NotContains(t, out, "\n\n\n")
}

func TestWalkerImageWithoutAlt(t *testing.T) {
	w := walker{st: NewStyles(DefaultTheme)}
	require.Equal(t, "[image: image]", w.render(view.El("img", "")))
	require.Empty(t, w.render(nil))
}

func TestTidy(t *testing.T) {
	require.Equal(t, "a\n\nb", tidy("\n\na  \n\n\n\nb\n"))
}
