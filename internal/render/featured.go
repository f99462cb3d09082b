package render

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/models"
	"github.com/DeafMist/vizdesk/internal/processing"
	"github.com/DeafMist/vizdesk/internal/view"
)

// FeaturedSlots is the fixed size of the featured grid.
const FeaturedSlots = 6

const (
	featuredFallbackText = "A comparative visualization..."
	featuredDescWords    = 24
	emptySlotText        = "Empty slot"
	emptySlotHint        = "Add an item to the dataset to fill this slot"
)

// FeaturedGrid renders exactly FeaturedSlots cards for the first items of
// the collection. Slots past the end are inert placeholders. The card at
// active carries the active class.
func (r *Renderer) FeaturedGrid(items []models.Visualization, active int) view.Fragment {
	var frag view.Fragment
	grid := view.El("div", "full-gallery-grid")

	for slot := 0; slot < FeaturedSlots; slot++ {
		if slot >= len(items) {
			view.Append(grid, emptySlot(slot))
			continue
		}
		card := r.FeaturedCard(items[slot], slot)
		view.ToggleClass(card.Node, "active", slot == active)
		view.Append(grid, card.Node)
		frag.Merge(card)
	}

	frag.Node = grid
	return frag
}

// FeaturedCard renders one filled slot. Clicking the card jumps the
// carousel to slot.
func (r *Renderer) FeaturedCard(v models.Visualization, slot int) view.Fragment {
	var frag view.Fragment

	card := view.El("div", "full-card")

	alt := altText(v)
	view.Append(card,
		r.image(&frag, "full-card-image", ThumbURL(v, r.opts.Placeholder), alt, v.ImageURL),
		view.TextEl("div", "full-card-title", v.DisplayTitle()),
		view.TextEl("div", "full-card-description", featuredDescription(v)),
	)
	if tag := v.FirstTag(); tag != "" {
		view.Append(card, view.TextEl("span", "full-card-tag", tag))
	}

	viewHref := v.ImageURL
	if viewHref == "" {
		viewHref = ThumbURL(v, r.opts.Placeholder)
	}
	buttons := view.El("div", "full-card-buttons",
		externalLink(&frag, "btn btn--outline small-btn", viewHref, "View Image"),
		r.detailButton(&frag, "btn btn--primary small-btn", models.KindVisualization, v.ID),
	)
	if v.ExternalLink != "" {
		view.Append(buttons, externalLink(&frag, "btn btn--outline small-btn", v.ExternalLink, "Open Source"))
	}
	view.Append(card, buttons)

	frag.Bind(view.Action{Kind: view.ActionJump, Target: card, Index: slot})
	frag.Node = card
	return frag
}

func featuredDescription(v models.Visualization) string {
	text := v.Summary
	if text == "" {
		text = v.Preview
	}
	if text == "" {
		return featuredFallbackText
	}
	return processing.TruncateWords(text, featuredDescWords)
}

func emptySlot(slot int) *html.Node {
	card := view.El("div", "full-card empty",
		view.El("div", "placeholder-inner",
			view.TextEl("div", "placeholder-title", emptySlotText),
			view.TextEl("div", "placeholder-hint", emptySlotHint),
		),
	)
	view.SetAttr(card, "data-slot", strconv.Itoa(slot))
	return card
}
