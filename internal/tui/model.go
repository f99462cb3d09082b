// Package tui is the terminal front end: the news and visualization grids
// with live search, the gallery carousel with its thumbnail strip and
// featured grid, and the detail modal, driven by the same controllers
// the HTTP front end uses.
package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/dataset"
	"github.com/DeafMist/vizdesk/internal/detail"
	"github.com/DeafMist/vizdesk/internal/gallery"
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/platform"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/source"
	"github.com/DeafMist/vizdesk/internal/view"
)

// noticeFade is how long a notice stays in the status line.
const noticeFade = 3 * time.Second

const loadTimeout = 30 * time.Second

// chromeLines is the height taken by the title, search and status rows.
const chromeLines = 4

type screen int

const (
	screenBrowse screen = iota
	screenGallery
)

// Options wire the browser to its data and controllers.
type Options struct {
	Primary  source.Source
	Fallback source.Source
	Content  config.Content
	// Terminal receives clipboard writes. Nil leaves the clipboard
	// unsupported, so shares end in a notice.
	Terminal *platform.Terminal
	// Animator paces carousel transitions. Nil uses a Timed animator of
	// Content.AnimationDuration.
	Animator   gallery.Animator
	Prefetcher gallery.Prefetcher
	Logger     *slog.Logger
}

type loadedMsg struct{ err error }

type searchMsg struct{ seq int }

type detailMsg struct {
	outcome detail.Outcome
	err     error
}

type movedMsg struct{ err error }

type actionMsg struct{ err error }

type noticeMsg struct{ text string }

type noticeFadeMsg struct{ seq int }

// Model is the bubbletea model of the browser.
type Model struct {
	opts   Options
	log    *slog.Logger
	keys   KeyMap
	styles Styles
	walker walker

	store   *dataset.Store
	render  *render.Renderer
	modal   *detail.Modal
	gallery *gallery.Gallery
	notices chan string

	search  textinput.Model
	spinner spinner.Model
	body    viewport.Model

	screen    screen
	loading   bool
	selected  int
	searchSeq int
	opening   int
	moving    int

	// dragFrom is the column a left-button press started at, or -1.
	dragFrom int

	notice    string
	noticeSeq int

	width, height int
}

// New builds the browser. The dataset is loaded by Init.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Terminal == nil {
		opts.Terminal = platform.NewTerminal(nil, nil)
	}
	if opts.Animator == nil {
		opts.Animator = gallery.Timed{Duration: opts.Content.AnimationDuration}
	}

	notices := make(chan string, 16)
	opts.Terminal.OnNotify(func(msg string) {
		select {
		case notices <- msg:
		default:
		}
	})

	styles := NewStyles(DefaultTheme)
	r := render.New(render.Options{Placeholder: opts.Content.Placeholder})
	store := dataset.New(opts.Logger)

	search := textinput.New()
	search.Placeholder = "Search news and visualizations"
	search.Prompt = "/ "
	search.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.Active

	return Model{
		opts:    opts,
		log:     opts.Logger,
		keys:    DefaultKeyMap,
		styles:  styles,
		walker:  walker{st: styles},
		store:   store,
		render:  r,
		modal: detail.New(store, r, opts.Terminal, detail.Options{
			Delay:     opts.Content.DetailDelay,
			PublicURL: opts.Content.PublicURL,
			Logger:    opts.Logger,
		}),
		notices:  notices,
		search:   search,
		spinner:  spin,
		body:     viewport.New(80, 20),
		loading:  true,
		dragFrom: -1,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spinner.Tick, listenForNotice(m.notices))
}

func listenForNotice(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{text: text}
	}
}

func (m Model) load() tea.Cmd {
	store, primary, fallback := m.store, m.opts.Primary, m.opts.Fallback
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return loadedMsg{err: store.Load(ctx, primary, fallback)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.refresh()
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.Width = max(10, msg.Width-4)
		m.body.Width = msg.Width
		m.body.Height = max(1, msg.Height-chromeLines)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case loadedMsg:
		m.loading = false
		m.onLoaded(msg.err)
		return m, nil

	case searchMsg:
		if msg.seq == m.searchSeq {
			m.applySearch()
		}
		return m, nil

	case detailMsg:
		m.opening = max(0, m.opening-1)
		if msg.err != nil && !errors.Is(msg.err, detail.ErrCancelled) {
			m.log.Warn("open detail", slog.Any("err", msg.err))
		} else if msg.err == nil {
			m.log.Debug("detail opened", slog.String("outcome", string(msg.outcome)))
		}
		m.body.GotoTop()
		return m, nil

	case movedMsg:
		m.moving = max(0, m.moving-1)
		if msg.err != nil && !errors.Is(msg.err, gallery.ErrBusy) {
			m.log.Warn("gallery move", slog.Any("err", msg.err))
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.log.Warn("item action", slog.Any("err", msg.err))
		}
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Batch(
			listenForNotice(m.notices),
			tea.Tick(noticeFade, func(time.Time) tea.Msg { return noticeFadeMsg{seq: seq} }),
		)

	case noticeFadeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.modal.Close()
		return m, tea.Quit
	}
	if m.search.Focused() {
		return m.handleSearchKeys(msg)
	}
	if m.opening > 0 || m.modal.State() != detail.Closed {
		return m.handleDetailKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.screen = screenBrowse
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.SearchClear):
		m.search.SetValue("")
		return m, m.queueSearch()
	case key.Matches(msg, m.keys.Reload):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.load(), m.spinner.Tick)
	case key.Matches(msg, m.keys.Back):
		if m.screen == screenGallery {
			m.screen = screenBrowse
		} else if m.search.Value() != "" {
			m.search.SetValue("")
			m.searchSeq++
			m.applySearch()
		}
		return m, nil
	case key.Matches(msg, m.keys.SwitchScreen):
		if m.screen == screenGallery {
			m.screen = screenBrowse
		} else {
			m.screen = screenGallery
		}
		m.body.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.body.SetYOffset(m.body.YOffset - m.body.Height)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.body.SetYOffset(m.body.YOffset + m.body.Height)
		return m, nil
	}

	if action, ok := m.itemAction(msg); ok {
		kind, id, found := m.target()
		if !found {
			return m, nil
		}
		if action == view.ActionOpenDetail {
			return m, m.openDetail(kind, id)
		}
		return m, m.act(action, kind, id)
	}

	if m.screen == screenGallery {
		return m.handleGalleryKeys(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selected = max(0, m.selected-1)
	case key.Matches(msg, m.keys.Down):
		m.selected = min(m.selected+1, max(0, m.selectable()-1))
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		m.searchSeq++
		m.applySearch()
		return m, nil
	}
	if key.Matches(msg, m.keys.SearchClear) {
		m.search.SetValue("")
		return m, m.queueSearch()
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.queueSearch())
}

// handleDetailKeys routes keys while the modal is loading or open. Any
// close cancels a pending population.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.modal.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.modal.Close()
		m.opening = 0
		m.body.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.body.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.body.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.body.SetYOffset(m.body.YOffset - m.body.Height)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.body.SetYOffset(m.body.YOffset + m.body.Height)
		return m, nil
	}

	snap := m.modal.Snapshot()
	if snap.State != detail.Open {
		return m, nil
	}
	if action, ok := m.itemAction(msg); ok && action != view.ActionOpenDetail {
		return m, m.act(action, snap.Kind, snap.ID)
	}
	return m, nil
}

func (m Model) handleGalleryKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	g := m.gallery
	if g == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Prev):
		return m, m.move(func(ctx context.Context) error { return g.Advance(ctx, -1) })
	case key.Matches(msg, m.keys.Next):
		return m, m.move(func(ctx context.Context) error { return g.Advance(ctx, 1) })
	case key.Matches(msg, m.keys.Featured):
		slot, err := strconv.Atoi(msg.String())
		if err != nil || slot-1 >= g.Len() {
			return m, nil
		}
		return m, m.move(func(ctx context.Context) error { return g.JumpTo(ctx, slot-1) })
	case key.Matches(msg, m.keys.StripBack):
		g.Strip.Scroll(-1)
	case key.Matches(msg, m.keys.StripForward):
		g.Strip.Scroll(1)
	}
	return m, nil
}

// handleMouse turns a horizontal drag over the gallery into a swipe.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.screen != screenGallery || m.gallery == nil || m.search.Focused() ||
		m.opening > 0 || m.modal.State() != detail.Closed {
		m.dragFrom = -1
		return m, nil
	}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.dragFrom = msg.X
		}
	case tea.MouseActionRelease:
		from := m.dragFrom
		m.dragFrom = -1
		if from < 0 {
			return m, nil
		}
		if dir := gallery.SwipeDirection(msg.X - from); dir != 0 {
			g := m.gallery
			return m, m.move(func(ctx context.Context) error { return g.Advance(ctx, dir) })
		}
	}
	return m, nil
}

func (m Model) itemAction(msg tea.KeyMsg) (view.ActionKind, bool) {
	switch {
	case key.Matches(msg, m.keys.Open):
		return view.ActionOpenDetail, true
	case key.Matches(msg, m.keys.Share):
		return view.ActionShare, true
	case key.Matches(msg, m.keys.Bookmark):
		return view.ActionBookmark, true
	case key.Matches(msg, m.keys.Download):
		return view.ActionDownload, true
	}
	return "", false
}

// target is the item the actions apply to: the current slide in the
// gallery, the selected card otherwise.
func (m Model) target() (models.Kind, models.ID, bool) {
	if m.screen == screenGallery {
		if m.gallery == nil {
			return "", "", false
		}
		return models.KindVisualization, m.gallery.Current().ID, true
	}
	v := m.store.View()
	switch i := m.selected; {
	case i < len(v.NewsArticles):
		return models.KindNews, v.NewsArticles[i].ID, true
	case i-len(v.NewsArticles) < len(v.Visualizations):
		return models.KindVisualization, v.Visualizations[i-len(v.NewsArticles)].ID, true
	}
	return "", "", false
}

func (m Model) selectable() int {
	v := m.store.View()
	return len(v.NewsArticles) + len(v.Visualizations)
}

func (m Model) busy() bool {
	return m.loading || m.opening > 0 || m.moving > 0 || m.modal.State() == detail.Loading
}

func (m *Model) onLoaded(err error) {
	if err != nil {
		m.log.Error("load dataset", slog.Any("err", err))
	}
	m.applySearch()

	g, gErr := gallery.Build(m.store.Visualizations(), m.render, m.opts.Content.StripWindow, gallery.Options{
		Animator:   m.opts.Animator,
		Prefetcher: m.opts.Prefetcher,
		Logger:     m.log,
	})
	if gErr != nil {
		g = nil
	}
	m.gallery = g
}

// queueSearch debounces the filter: only the last keystroke inside the
// debounce window applies.
func (m *Model) queueSearch() tea.Cmd {
	m.searchSeq++
	seq := m.searchSeq
	if m.opts.Content.SearchDebounce <= 0 {
		m.applySearch()
		return nil
	}
	return tea.Tick(m.opts.Content.SearchDebounce, func(time.Time) tea.Msg {
		return searchMsg{seq: seq}
	})
}

func (m *Model) applySearch() {
	m.store.Search(m.search.Value())
	m.selected = min(m.selected, max(0, m.selectable()-1))
	m.body.GotoTop()
}

func (m *Model) openDetail(kind models.Kind, id models.ID) tea.Cmd {
	m.opening++
	modal := m.modal
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		outcome, err := modal.Open(context.Background(), kind, id)
		return detailMsg{outcome: outcome, err: err}
	})
}

func (m *Model) move(step func(context.Context) error) tea.Cmd {
	m.moving++
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return movedMsg{err: step(context.Background())}
	})
}

func (m Model) act(action view.ActionKind, kind models.Kind, id models.ID) tea.Cmd {
	modal := m.modal
	return func() tea.Msg {
		return actionMsg{err: modal.Dispatch(context.Background(), view.Action{Kind: action, ItemKind: kind, ItemID: id})}
	}
}

// refresh renders the active screen into the body viewport and keeps the
// selected card in sight.
func (m *Model) refresh() {
	content, focus := m.content()
	m.body.SetContent(content)
	if focus < 0 {
		return
	}
	switch {
	case focus < m.body.YOffset:
		m.body.SetYOffset(focus)
	case focus >= m.body.YOffset+m.body.Height:
		m.body.SetYOffset(focus - m.body.Height + 3)
	}
}

func (m Model) content() (string, int) {
	switch {
	case m.loading && !m.store.Loaded():
		return m.spinner.View() + " Loading...", -1
	case m.opening > 0 || m.modal.State() != detail.Closed:
		return m.detailContent(), -1
	case m.screen == screenGallery:
		return m.galleryContent(), -1
	}
	return m.browseContent()
}

func (m Model) detailContent() string {
	if m.modal.State() != detail.Open {
		return m.spinner.View() + " Loading..."
	}
	text := m.walker.render(m.modal.Chrome().Node)
	return m.styles.Modal.Width(max(20, m.width-2)).Render(text)
}

// browseContent renders both grids card by card and returns the line the
// selected card starts on.
func (m Model) browseContent() (string, int) {
	v := m.store.View()
	var b strings.Builder
	line, focus, index := 0, -1, 0
	add := func(s string) {
		if s == "" {
			return
		}
		b.WriteString(s)
		b.WriteString("\n\n")
		line += strings.Count(s, "\n") + 2
	}

	grids := []struct {
		title string
		frag  view.Fragment
	}{
		{"Latest news", m.render.NewsGrid(v, m.store.Failed(models.KindNews))},
		{"Visualizations", m.render.VisualizationGrid(v, m.store.Failed(models.KindVisualization))},
	}
	for _, grid := range grids {
		add(m.styles.Heading.Render(grid.title))
		for n := grid.frag.Node.FirstChild; n != nil; n = n.NextSibling {
			if !view.HasClass(n, "news-grid") && !view.HasClass(n, "visualization-grid") {
				add(m.walker.render(n))
				continue
			}
			for card := n.FirstChild; card != nil; card = card.NextSibling {
				isCard := view.HasClass(card, "news-card") || view.HasClass(card, "viz-card")
				if isCard && index == m.selected {
					view.AddClass(card, "selected")
					focus = line
				}
				if isCard {
					index++
				}
				add(m.walker.render(card))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), focus
}

func (m Model) galleryContent() string {
	g := m.gallery
	if g == nil {
		return m.styles.Faint.Render(render.NoVisualsText)
	}
	st := g.Viewport.State()
	items := g.Items()
	slides := g.Viewport.Slides()

	arrow := "  "
	switch {
	case st.Animating && st.Direction > 0:
		arrow = m.styles.Active.Render("→ ")
	case st.Animating && st.Direction < 0:
		arrow = m.styles.Active.Render("← ")
	}
	track := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Faint.Render("‹ "+items[slides.Prev].DisplayTitle()+"   "),
		m.styles.Active.Render("[ "+items[slides.Current].DisplayTitle()+" ]"),
		m.styles.Faint.Render("   "+items[slides.Next].DisplayTitle()+" ›"),
	)

	current := items[slides.Current]
	summary := current.Summary
	if summary == "" {
		summary = current.Preview
	}

	parts := []string{
		m.styles.Heading.Render("Gallery"),
		arrow + track,
		m.styles.Text.Render(g.Viewport.Meta()),
	}
	if summary != "" {
		parts = append(parts, m.styles.Faint.Render(summary))
	}
	parts = append(parts,
		m.walker.render(m.render.GalleryControls(current).Node),
		m.walker.render(g.Strip.Fragment().Node),
		m.styles.Heading.Render("Featured"),
		m.walker.render(g.Featured.Fragment().Node),
	)
	return strings.Join(parts, "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	title := m.styles.Title.Render("VizDesk")
	if m.screen == screenGallery {
		title += m.styles.Faint.Render("  gallery")
	}

	status := m.styles.Notice.Render(m.notice)
	if m.notice == "" && m.store.Err() != nil && !m.loading {
		status = m.styles.Error.Render("Load failed: " + m.store.Err().Error())
	}

	detailOpen := m.opening > 0 || m.modal.State() != detail.Closed
	var help []string
	for _, b := range m.keys.ShortHelp(m.screen == screenGallery, detailOpen) {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.search.View(),
		m.body.View(),
		status,
		m.styles.Help.Render(strings.Join(help, " • ")),
	)
}
