// Package render maps dataset items onto view fragments: news and
// visualization cards, the grids holding them, the featured grid, the
// gallery parts and the detail views. Every function here is pure; the
// actions it attaches are descriptors for the front ends to dispatch.
package render

import (
	"net/url"
	"regexp"
	"strconv"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/view"
)

// DefaultPlaceholder is substituted for images that fail to load.
const DefaultPlaceholder = "Assets/images/placeholder.png"

var (
	thumbMarker  = regexp.MustCompile(`(?i)-400w|thumb-400`)
	extensionURL = regexp.MustCompile(`^(.*?)(\.[a-zA-Z0-9]+)$`)
)

// Options configure the fixed inputs of the renderers.
type Options struct {
	// Placeholder is the image used when an image is absent or broken.
	Placeholder string
	// DetailHref builds the link target of a Details action.
	DetailHref func(kind models.Kind, id models.ID) string
	// JumpHref builds the link target of a gallery jump.
	JumpHref func(index int) string
}

// Renderer holds Options and the rich-text converter.
type Renderer struct {
	opts Options
	rich *richText
}

// New builds a Renderer, filling in defaults for unset options.
func New(opts Options) *Renderer {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.DetailHref == nil {
		opts.DetailHref = func(kind models.Kind, id models.ID) string {
			return "#detail-" + kind.Short() + "-" + url.PathEscape(string(id))
		}
	}
	if opts.JumpHref == nil {
		opts.JumpHref = func(index int) string {
			return "#gallery-" + strconv.Itoa(index)
		}
	}
	return &Renderer{opts: opts, rich: newRichText()}
}

// Placeholder returns the configured placeholder image.
func (r *Renderer) Placeholder() string {
	return r.opts.Placeholder
}

// ThumbURL resolves the thumbnail of a visualization: the precomputed
// thumbnail, then an image URL already sized for thumbnails, then the
// image URL with its extension rewritten to the -400w.webp variant, then
// the raw image URL, then the placeholder.
func ThumbURL(v models.Visualization, placeholder string) string {
	if v.Thumb400 != "" {
		return v.Thumb400
	}
	if v.ImageURL == "" {
		return placeholder
	}
	if thumbMarker.MatchString(v.ImageURL) {
		return v.ImageURL
	}
	if m := extensionURL.FindStringSubmatch(v.ImageURL); m != nil {
		return m[1] + "-400w.webp"
	}
	return v.ImageURL
}

// image creates an img node whose load failures walk through fallbacks
// and end on the placeholder, each tried once.
func (r *Renderer) image(frag *view.Fragment, class, src, alt string, fallbacks ...string) *html.Node {
	img := view.El("img", class)
	view.SetAttr(img, "src", src)
	view.SetAttr(img, "alt", alt)
	view.SetAttr(img, "loading", "lazy")
	frag.Bind(view.Action{
		Kind:      view.ActionImageFallback,
		Target:    img,
		URL:       src,
		Fallbacks: view.Fallbacks(src, append(fallbacks, r.opts.Placeholder)...),
	})
	return img
}

// detailButton creates a Details button bound to the detail modal.
func (r *Renderer) detailButton(frag *view.Fragment, class string, kind models.Kind, id models.ID) *html.Node {
	btn := view.Link(class, r.opts.DetailHref(kind, id), "Details", false)
	view.SetAttr(btn, "role", "button")
	frag.Bind(view.Action{Kind: view.ActionOpenDetail, Target: btn, ItemKind: kind, ItemID: id})
	return btn
}

// externalLink creates a link that opens in a new browsing context.
func externalLink(frag *view.Fragment, class, href, label string) *html.Node {
	a := view.Link(class, href, label, true)
	frag.Bind(view.Action{Kind: view.ActionOpenExternal, Target: a, URL: href})
	return a
}

func tags(class string, values []string) *html.Node {
	wrap := view.El("div", class)
	for _, t := range values {
		view.Append(wrap, view.TextEl("span", "tag", t))
	}
	return wrap
}
