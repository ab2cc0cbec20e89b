package grid

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/gridloop/gridfilter/pkg/logger"
)

// NoResultsHTML is the placeholder appended when a filter pass matches
// nothing. A defined UI state, not an error.
const NoResultsHTML = `<div class="no-results-message" style="grid-column: 1/-1; text-align: center; padding: 60px 20px; font-size: 16px; color: #666;">No products found matching your criteria.</div>`

// forcedLayoutStyle re-asserts the grid layout the builder's stylesheet
// expects after the container has been emptied. Some builder runtimes
// treat a cleared container as "reset to default", which collapses the
// column layout.
const forcedLayoutStyle = "display: grid; grid-template-columns: repeat(4, 1fr); gap: 30px; width: 100%; justify-items: stretch; align-items: start; justify-content: start; align-content: start;"

// PlanItem is one node-construction instruction: append a fresh clone of
// this identity's snapshot.
type PlanItem struct {
	Identity string
	HTML     string
}

// Plan is the pure output of planning a render: restored container
// presentation plus the ordered, duplicate-free item list. Applying it
// to a live container is a separate, thin side-effecting step.
type Plan struct {
	Class      string
	Style      string
	Items      []PlanItem
	Duplicates []string
}

func (p *Plan) Empty() bool {
	return len(p.Items) == 0
}

// BuildPlan turns an ordered entry list into render instructions. A
// per-plan identity set guards against a duplicate slipping through;
// with the store invariant intact it never fires, but a repeat is
// dropped and reported rather than rendered.
func BuildPlan(store *Store, entries []*Entry) Plan {
	class, style := store.Presentation()
	plan := Plan{
		Class: class,
		Style: style,
		Items: make([]PlanItem, 0, len(entries)),
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Identity] {
			plan.Duplicates = append(plan.Duplicates, e.Identity)
			continue
		}
		seen[e.Identity] = true
		plan.Items = append(plan.Items, PlanItem{Identity: e.Identity, HTML: e.Snapshot})
	}
	return plan
}

// Renderer applies plans to a live container. ForceLayout swaps the
// captured inline style for the known-good grid layout declaration.
type Renderer struct {
	ForceLayout bool
}

// Render clears the container, restores its presentation and appends one
// fresh clone per matched identity, in order. Idempotent for the same
// inputs: after it returns the container holds exactly len(entries)
// cards (or the no-results placeholder). Returns the rendered count.
func (r *Renderer) Render(container *goquery.Selection, store *Store, entries []*Entry) int {
	log := logger.With("render")
	plan := BuildPlan(store, entries)

	for _, id := range plan.Duplicates {
		log.Warn().Str("identity", id).Msg("prevented duplicate render")
	}

	container.Empty()
	if plan.Class != "" {
		container.SetAttr("class", plan.Class)
	}
	style := plan.Style
	if r.ForceLayout {
		style = forcedLayoutStyle
	}
	if style != "" {
		container.SetAttr("style", style)
	}

	for _, item := range plan.Items {
		container.AppendHtml(item.HTML)
	}

	if plan.Empty() {
		container.AppendHtml(NoResultsHTML)
	}

	log.Debug().Int("rendered", len(plan.Items)).Msg("grid rendered")
	return len(plan.Items)
}
