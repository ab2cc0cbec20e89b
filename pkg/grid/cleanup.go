package grid

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/logger"
	"github.com/gridloop/gridfilter/pkg/record"
)

// ghostSelector casts a wider net than CandidateSelector: draft and
// trashed products can surface through any of the historical card
// markers, not just the ones the loop currently emits.
const ghostSelector = `.e-loop-item, .product-loop-item, [class*="product-id-"], [data-product-id], .elementor-post, .product, .type-product`

// CleanupGhosts removes cards whose identity is not present in the
// published dataset — leftovers of drafted or trashed products that the
// loop renderer still emitted. Cards with no resolvable identity are
// left alone. Returns the number of removed nodes.
func CleanupGhosts(container *goquery.Selection, reg *identity.Registry, ds record.Dataset) int {
	log := logger.With("cleanup")
	removed := 0

	container.Find(ghostSelector).Each(func(i int, sel *goquery.Selection) {
		id, ok := reg.Resolve(sel)
		if !ok {
			return
		}
		if ds.Has(id) {
			return
		}
		sel.Remove()
		removed++
		log.Debug().Str("identity", id).Msg("removed unpublished product card")
	})

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("ghost cleanup complete")
	}
	return removed
}
