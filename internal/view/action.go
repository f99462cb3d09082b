package view

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/DeafMist/vizdesk/internal/models"
)

// ActionKind names what a user interaction with a node asks for.
type ActionKind string

const (
	ActionOpenDetail    ActionKind = "open-detail"
	ActionCloseDetail   ActionKind = "close-detail"
	ActionOpenExternal  ActionKind = "open-external"
	ActionJump          ActionKind = "jump"
	ActionImageFallback ActionKind = "image-fallback"
	ActionShare         ActionKind = "share"
	ActionBookmark      ActionKind = "bookmark"
	ActionDownload      ActionKind = "download"
)

// fallbackSep separates image fallback targets inside the data attribute.
const fallbackSep = "|"

// imageFallbackScript swaps in the next fallback on each load error and
// detaches itself once the list is exhausted, so a failing placeholder
// cannot loop.
const imageFallbackScript = `var f=(this.dataset.fallback||'').split('` + fallbackSep + `').filter(Boolean);` +
	`if(!f.length){this.onerror=null;return;}this.src=f.shift();this.dataset.fallback=f.join('` + fallbackSep + `');`

// Action describes a callback a renderer attached to a node. Renderers only
// describe; front ends dispatch to the controllers.
type Action struct {
	Kind      ActionKind
	Target    *html.Node
	ItemKind  models.Kind
	ItemID    models.ID
	URL       string
	Index     int
	Fallbacks []string
}

// Fragment is a rendered tree plus its actions.
type Fragment struct {
	Node    *html.Node
	Actions []Action
}

// Bind records action on its target node and mirrors it into data
// attributes so serialised output keeps the wiring.
func (f *Fragment) Bind(a Action) {
	if a.Target != nil {
		SetAttr(a.Target, "data-action", string(a.Kind))
		switch a.Kind {
		case ActionOpenDetail, ActionShare, ActionBookmark, ActionDownload:
			SetAttr(a.Target, "data-kind", a.ItemKind.Short())
			SetAttr(a.Target, "data-id", string(a.ItemID))
		case ActionJump:
			SetAttr(a.Target, "data-index", strconv.Itoa(a.Index))
		case ActionImageFallback:
			SetAttr(a.Target, "data-fallback", strings.Join(a.Fallbacks, fallbackSep))
			SetAttr(a.Target, "onerror", imageFallbackScript)
		}
	}
	f.Actions = append(f.Actions, a)
}

// Merge appends the actions of other fragments, whose nodes the caller has
// already placed in the tree.
func (f *Fragment) Merge(others ...Fragment) {
	for _, o := range others {
		f.Actions = append(f.Actions, o.Actions...)
	}
}

// First returns the first action of kind, if any.
func (f Fragment) First(kind ActionKind) (Action, bool) {
	for _, a := range f.Actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}

// Fallbacks builds an ordered, de-duplicated fallback list that never
// repeats the current source.
func Fallbacks(src string, candidates ...string) []string {
	seen := map[string]bool{src: true}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
