package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/detail"
	"github.com/DeafMist/vizdesk/internal/gallery"
	"github.com/DeafMist/vizdesk/internal/platform"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/source"
)

const fixture = `{
  "news_articles": [
    {"id": 1, "title": "Rainfall hits record", "preview": "Wettest spring", "source": "Met Desk", "tags": ["weather"]},
    {"id": 2, "title": "Transit budget approved", "preview": "Council vote"}
  ],
  "visualizations": [
    {"id": "v1", "title": "Rent map", "imageUrl": "https://cdn.example/rent.png", "tags": ["housing"],
     "detailContent": {"description": "Median **rent** by district", "keyInsights": ["North up 8%"]}},
    {"id": "v2", "title": "Bus ridership", "summary": "Riders per month"},
    {"id": "v3", "title": "Air quality"}
  ]
}`

type fixtureOpts struct {
	data     string
	debounce time.Duration
	delay    time.Duration
	term     *platform.Terminal
}

func newModel(t *testing.T, o fixtureOpts) Model {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.json")
	if o.data != "" {
		require.NoError(t, os.WriteFile(path, []byte(o.data), 0o600))
	}

	if o.delay == 0 {
		o.delay = time.Millisecond
	}

	m := New(Options{
		Primary: source.File(path),
		Content: config.Content{
			DetailDelay:    o.delay,
			SearchDebounce: o.debounce,
			StripWindow:    2,
			PublicURL:      "https://vizdesk.example",
		},
		Terminal: o.term,
		Animator: gallery.Instant{},
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 300})
	return step(t, m, m.load()())
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys one by one and applies whatever the resulting commands
// produce before the next key.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = next.(Model)
		for _, msg := range collect(cmd) {
			m = step(t, m, msg)
		}
	}
	return m
}

// collect runs cmd and keeps the messages the browser acts on. Commands
// that block past a short wait, like notice listeners and fade timers, are
// abandoned.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(300 * time.Millisecond):
		return nil
	}

	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case loadedMsg, searchMsg, detailMsg, movedMsg, actionMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func TestBrowseListsBothGrids(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	out := m.View()
	require.Contains(t, out, "Latest news")
	require.Contains(t, out, "Rainfall hits record")
	require.Contains(t, out, "#weather")
	require.Contains(t, out, "Rent map")
	require.Contains(t, out, "[image: Rent map]")
	require.Contains(t, out, "[Details]")
	require.Equal(t, 5, m.selectable())
}

func TestSelectionStaysInRange(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	m = press(t, m, "up")
	require.Zero(t, m.selected)

	m = press(t, m, "j", "j", "j", "j", "j", "j")
	require.Equal(t, 4, m.selected)

	m = press(t, m, "k")
	require.Equal(t, 3, m.selected)
}

func TestSearchFiltersGrids(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	m = press(t, m, "/", "r", "e", "n", "t")
	require.True(t, m.search.Focused())
	require.Equal(t, "rent", m.store.View().Query)

	out := m.View()
	require.Contains(t, out, "Rent map")
	require.NotContains(t, out, "Bus ridership")
	require.Contains(t, out, render.NoResultsText("rent"))

	m = press(t, m, "enter")
	require.False(t, m.search.Focused())
	require.Equal(t, 1, m.selectable())

	m = press(t, m, "esc")
	require.Empty(t, m.search.Value())
	require.Equal(t, 5, m.selectable())
}

func TestSearchDebounceAppliesLastQuery(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture, debounce: time.Millisecond})
	m = press(t, m, "/")

	next, first := m.Update(keyMsg("q"))
	m = next.(Model)
	next, second := m.Update(keyMsg("u"))
	m = next.(Model)

	for _, msg := range collect(first) {
		m = step(t, m, msg)
	}
	require.Empty(t, m.store.View().Query, "stale keystroke is dropped")

	for _, msg := range collect(second) {
		m = step(t, m, msg)
	}
	require.Equal(t, "qu", m.store.View().Query)
	require.Equal(t, 1, m.selectable())
}

func TestOpenAndCloseDetail(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	m = press(t, m, "down", "down")
	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)
	require.Contains(t, m.View(), "Loading...")

	for _, msg := range collect(cmd) {
		m = step(t, m, msg)
	}
	require.Equal(t, detail.Open, m.modal.State())
	out := m.View()
	require.Contains(t, out, "Home")
	require.Contains(t, out, "Rent map")
	require.Contains(t, out, "Median rent by district")
	require.Contains(t, out, "North up 8%")
	require.NotContains(t, out, "Latest news")

	// Keys meant for the grids do not leak through the modal.
	m = press(t, m, "tab")
	require.Equal(t, screenBrowse, m.screen)

	m = press(t, m, "esc")
	require.Equal(t, detail.Closed, m.modal.State())
	require.Contains(t, m.View(), "Latest news")
}

func TestCloseWhileLoadingCancels(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture, delay: 200 * time.Millisecond})

	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)

	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd) }()
	require.Eventually(t, func() bool { return m.modal.State() == detail.Loading }, time.Second, time.Millisecond)

	m = press(t, m, "esc")
	for _, msg := range <-done {
		m = step(t, m, msg)
	}
	require.Equal(t, detail.Closed, m.modal.State())
	require.Zero(t, m.opening)
}

func TestDetailActionsPostNotices(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")

	var clip bytes.Buffer
	m := newModel(t, fixtureOpts{data: fixture, term: platform.NewTerminal(&clip, nil)})

	m = press(t, m, "down", "down", "enter", "b")
	require.Equal(t, `"Rent map" has been bookmarked!`, <-m.notices)

	m = press(t, m, "w")
	require.Equal(t, `Downloading "Rent map" - Feature coming soon!`, <-m.notices)

	m = press(t, m, "s")
	require.Equal(t, platform.CopiedNotice, <-m.notices)
	require.Contains(t, clip.String(), "]52;")

	m = step(t, m, noticeMsg{text: platform.CopiedNotice})
	require.Contains(t, m.View(), platform.CopiedNotice)

	m = step(t, m, noticeFadeMsg{seq: m.noticeSeq - 1})
	require.Equal(t, platform.CopiedNotice, m.notice, "older fade is ignored")
	m = step(t, m, noticeFadeMsg{seq: m.noticeSeq})
	require.Empty(t, m.notice)
}

func TestShareWithoutClipboardShowsLink(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	press(t, m, "s")
	require.Equal(t, "Rainfall hits record - https://vizdesk.example/detail/news/1", <-m.notices)
}

func TestGalleryNavigation(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	m = press(t, m, "tab")
	require.Equal(t, screenGallery, m.screen)
	require.Contains(t, m.View(), "1 / 3 — Rent map")
	require.Contains(t, m.View(), "[ Rent map ]")

	m = press(t, m, "l")
	require.Equal(t, 1, m.gallery.State().Index)
	require.Contains(t, m.View(), "2 / 3 — Bus ridership")

	m = press(t, m, "left", "left")
	require.Equal(t, 2, m.gallery.State().Index)

	m = press(t, m, "1")
	require.Zero(t, m.gallery.State().Index)
	require.Equal(t, 0, m.gallery.Featured.Active())

	// Slot 6 is an empty placeholder.
	m = press(t, m, "6")
	require.Zero(t, m.gallery.State().Index)
	require.Zero(t, m.moving)

	m = press(t, m, "]")
	from, to := m.gallery.Strip.Window()
	require.Equal(t, 1, from)
	require.Equal(t, 3, to)
	require.Zero(t, m.gallery.Strip.Active())

	m = press(t, m, "enter")
	require.Equal(t, detail.Open, m.modal.State())
	require.Equal(t, "Rent map", m.modal.Snapshot().Title)
}

func drag(t *testing.T, m Model, from, to int) Model {
	t.Helper()
	m = step(t, m, tea.MouseMsg{X: from, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	next, cmd := m.Update(tea.MouseMsg{X: to, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	m = next.(Model)
	for _, msg := range collect(cmd) {
		m = step(t, m, msg)
	}
	return m
}

func TestGallerySwipe(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	// Drags on the browse screen are ignored.
	m = drag(t, m, 60, 10)
	require.Zero(t, m.gallery.State().Index)

	m = press(t, m, "tab")
	m = drag(t, m, 60, 19)
	require.Equal(t, 1, m.gallery.State().Index)
	require.Zero(t, m.moving)

	m = drag(t, m, 19, 60)
	require.Zero(t, m.gallery.State().Index)

	m = drag(t, m, 19, 60)
	require.Equal(t, 2, m.gallery.State().Index, "backward swipe wraps")

	m = drag(t, m, 50, 10)
	require.Equal(t, 2, m.gallery.State().Index, "short drag does nothing")

	// A release without a press is not a swipe.
	m = step(t, m, tea.MouseMsg{X: 0, Action: tea.MouseActionRelease})
	require.Equal(t, 2, m.gallery.State().Index)
}

func TestFailedLoadShowsInlineErrors(t *testing.T) {
	m := newModel(t, fixtureOpts{})

	out := m.View()
	require.Contains(t, out, render.NewsLoadError)
	require.Contains(t, out, render.VisualizationLoadError)
	require.Contains(t, out, "Load failed")

	m = press(t, m, "tab")
	require.Nil(t, m.gallery)
	require.Contains(t, m.View(), render.NoVisualsText)
}

func TestSpinnerStopsWhenIdle(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})
	require.False(t, m.busy())

	_, cmd := m.Update(spinner.TickMsg{})
	require.Nil(t, cmd)
}

func TestQuit(t *testing.T) {
	m := newModel(t, fixtureOpts{data: fixture})

	_, cmd := m.Update(keyMsg("q"))
	require.IsType(t, tea.QuitMsg{}, cmd())

	// q is typed while searching; ctrl+c always quits.
	m = press(t, m, "/", "q")
	require.Equal(t, "q", m.search.Value())
	_, cmd = m.Update(keyMsg("ctrl+c"))
	require.IsType(t, tea.QuitMsg{}, cmd())
}
