package gallery

import (
	"sync"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/render"
	"github.com/DeafMist/vizdesk/internal/view"
)

// DefaultStripWindow is how many thumbnails the strip shows at once.
const DefaultStripWindow = 5

// Viewport is the three-slide slider, its meta line and control row.
type Viewport struct {
	render *render.Renderer
	items  []models.Visualization

	mu    sync.RWMutex
	state State
}

// NewViewport creates a viewport over items.
func NewViewport(r *render.Renderer, items []models.Visualization) *Viewport {
	return &Viewport{render: r, items: items}
}

// Sync implements View.
func (v *Viewport) Sync(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// State returns the last synced state.
func (v *Viewport) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Slides returns the indices on screen.
func (v *Viewport) Slides() render.Slides {
	s := v.State()
	return render.Slides{Prev: s.Prev, Current: s.Index, Next: s.Next}
}

// Meta returns the position line of the current item.
func (v *Viewport) Meta() string {
	s := v.State()
	if len(v.items) == 0 {
		return ""
	}
	return render.GalleryMeta(v.items[s.Index], s.Index, len(v.items))
}

// Fragment renders the viewport, meta line and controls.
func (v *Viewport) Fragment() view.Fragment {
	s := v.State()
	var frag view.Fragment
	if len(v.items) == 0 {
		return v.render.Viewport(nil, 0, 0)
	}

	moving := 0
	if s.Animating {
		moving = s.Direction
	}
	slides := v.render.Viewport(v.items, s.Index, moving)
	controls := v.render.GalleryControls(v.items[s.Index])
	frag.Node = view.El("div", "gallery",
		slides.Node,
		view.TextEl("div", "gallery-meta", v.Meta()),
		controls.Node,
	)
	frag.Merge(slides, controls)
	return frag
}

// ThumbnailStrip shows a window of thumbnails kept centred on the active
// entry. Scroll moves the window without changing the active entry.
type ThumbnailStrip struct {
	render *render.Renderer
	items  []models.Visualization
	window int

	mu     sync.RWMutex
	active int
	from   int
}

// NewThumbnailStrip creates a strip showing window entries at a time.
func NewThumbnailStrip(r *render.Renderer, items []models.Visualization, window int) *ThumbnailStrip {
	if window <= 0 {
		window = DefaultStripWindow
	}
	return &ThumbnailStrip{render: r, items: items, window: window}
}

// Sync implements View. The window scrolls so the active entry is centred.
func (t *ThumbnailStrip) Sync(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = s.Index
	t.from = t.clamp(s.Index - t.window/2)
}

// Active returns the highlighted index.
func (t *ThumbnailStrip) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Window returns the visible range [from, to).
func (t *ThumbnailStrip) Window() (from, to int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.from, min(t.from+t.window, len(t.items))
}

// Scroll shifts the visible window by delta entries.
func (t *ThumbnailStrip) Scroll(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.from = t.clamp(t.from + delta)
}

// Fragment renders the visible window.
func (t *ThumbnailStrip) Fragment() view.Fragment {
	from, to := t.Window()
	return t.render.ThumbnailStrip(t.items, t.Active(), from, to)
}

func (t *ThumbnailStrip) clamp(from int) int {
	return max(0, min(from, len(t.items)-t.window))
}

// FeaturedGrid is the fixed six-slot grid. Only an index inside the grid
// has a highlighted card.
type FeaturedGrid struct {
	render *render.Renderer
	items  []models.Visualization

	mu     sync.RWMutex
	active int
}

// NewFeaturedGrid creates the grid over the first slots of items.
func NewFeaturedGrid(r *render.Renderer, items []models.Visualization) *FeaturedGrid {
	return &FeaturedGrid{render: r, items: items}
}

// Sync implements View.
func (g *FeaturedGrid) Sync(s State) {
	g.mu.Lock()
	g.active = s.Index
	g.mu.Unlock()
}

// Active returns the current index.
func (g *FeaturedGrid) Active() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// Fragment renders the grid with the active card highlighted.
func (g *FeaturedGrid) Fragment() view.Fragment {
	return g.render.FeaturedGrid(g.items, g.Active())
}
