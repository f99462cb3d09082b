package gallery

import (
	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/render"
)

// Gallery is a carousel wired to its three views.
type Gallery struct {
	*Carousel
	Viewport *Viewport
	Strip    *ThumbnailStrip
	Featured *FeaturedGrid
}

// Build creates the views over items and a carousel that drives them.
// Views already in opts are synced too. It returns ErrEmpty for an empty
// collection, in which case no gallery UI is shown.
func Build(items []models.Visualization, r *render.Renderer, stripWindow int, opts Options) (*Gallery, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	items = append([]models.Visualization(nil), items...)

	g := &Gallery{
		Viewport: NewViewport(r, items),
		Strip:    NewThumbnailStrip(r, items, stripWindow),
		Featured: NewFeaturedGrid(r, items),
	}
	opts.Views = append([]View{g.Viewport, g.Strip, g.Featured}, opts.Views...)

	c, err := New(items, opts)
	if err != nil {
		return nil, err
	}
	g.Carousel = c
	return g, nil
}
