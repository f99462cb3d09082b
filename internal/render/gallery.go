package render

import (
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/view"
)

// NoVisualsText replaces the whole gallery when there is nothing to show.
const NoVisualsText = "No visuals available."

// Track offsets of the three-slide track: settled on the middle slide, or
// moving towards one of the neighbours.
const (
	trackSettled  = "translateX(-100%)"
	trackForward  = "translateX(-200%)"
	trackBackward = "translateX(0%)"
)

// Slides holds the indices shown by the three-slide viewport.
type Slides struct {
	Prev, Current, Next int
}

// Neighbours computes the previous and next indices of index in a ring of
// n items.
func Neighbours(index, n int) Slides {
	return Slides{
		Prev:    (index - 1 + n) % n,
		Current: index,
		Next:    (index + 1) % n,
	}
}

// Viewport renders the prev/current/next slides and the nav controls.
// moving is the direction of an in-flight transition, or 0 when settled.
func (r *Renderer) Viewport(items []models.Visualization, index, moving int) view.Fragment {
	var frag view.Fragment
	if len(items) == 0 {
		frag.Node = view.TextEl("div", "gallery-empty", NoVisualsText)
		return frag
	}

	s := Neighbours(index, len(items))
	track := view.El("div", "gallery-track",
		r.slide(&frag, items[s.Prev], s.Prev),
		r.slide(&frag, items[s.Current], s.Current),
		r.slide(&frag, items[s.Next], s.Next),
	)
	transform := trackSettled
	switch {
	case moving > 0:
		transform = trackForward
	case moving < 0:
		transform = trackBackward
	}
	view.SetAttr(track, "style", "transform: "+transform)
	view.ToggleClass(track, "animating", moving != 0)

	prev := view.Link("gallery-nav gallery-nav--prev", r.opts.JumpHref(s.Prev), "‹", false)
	view.SetAttr(prev, "aria-label", "Previous")
	frag.Bind(view.Action{Kind: view.ActionJump, Target: prev, Index: s.Prev})

	next := view.Link("gallery-nav gallery-nav--next", r.opts.JumpHref(s.Next), "›", false)
	view.SetAttr(next, "aria-label", "Next")
	frag.Bind(view.Action{Kind: view.ActionJump, Target: next, Index: s.Next})

	frag.Node = view.El("div", "gallery-viewport", prev, track, next)
	return frag
}

func (r *Renderer) slide(frag *view.Fragment, v models.Visualization, index int) *html.Node {
	src := v.ImageURL
	if src == "" {
		src = ThumbURL(v, r.opts.Placeholder)
	}
	img := r.image(frag, "gallery-image", src, altText(v))
	// Neighbours sit outside the visible track but must be ready for the
	// next transition.
	view.SetAttr(img, "loading", "eager")
	s := view.El("div", "gallery-slide", img)
	view.SetAttr(s, "data-index", strconv.Itoa(index))
	return s
}

// GalleryControls renders the action row under the viewport for the
// current item.
func (r *Renderer) GalleryControls(v models.Visualization) view.Fragment {
	var frag view.Fragment
	wrap := view.El("div", "gallery-controls")
	if v.ImageURL != "" {
		view.Append(wrap, externalLink(&frag, "btn btn--outline", v.ImageURL, "View Image"))
	}
	view.Append(wrap, r.detailButton(&frag, "btn btn--primary", models.KindVisualization, v.ID))
	if v.ExternalLink != "" {
		view.Append(wrap, externalLink(&frag, "btn btn--outline", v.ExternalLink, "Open Source"))
	}
	frag.Node = wrap
	return frag
}

// GalleryMeta formats the position line, e.g. "2 / 5 — Sea level • NOAA".
func GalleryMeta(v models.Visualization, index, n int) string {
	line := fmt.Sprintf("%d / %d — %s", index+1, n, v.DisplayTitle())
	if v.DataSource != "" {
		line += " • " + v.DataSource
	}
	return line
}

// ThumbnailStrip renders the thumbnails in [from, to). The entry at
// active carries the active class.
func (r *Renderer) ThumbnailStrip(items []models.Visualization, active, from, to int) view.Fragment {
	var frag view.Fragment
	strip := view.El("div", "thumb-strip")

	from = max(from, 0)
	to = min(to, len(items))
	for i := from; i < to; i++ {
		v := items[i]
		card := view.El("div", "thumb-card",
			r.image(&frag, "thumb-image", ThumbURL(v, r.opts.Placeholder), thumbAlt(v), v.ImageURL),
		)
		view.ToggleClass(card, "active", i == active)
		frag.Bind(view.Action{Kind: view.ActionJump, Target: card, Index: i})
		view.Append(strip, card)
	}

	frag.Node = strip
	return frag
}

func thumbAlt(v models.Visualization) string {
	if v.Title != "" {
		return v.Title
	}
	return "Visual thumbnail"
}
