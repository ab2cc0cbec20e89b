// Package annotate applies the server-supplied product dataset onto
// rendered cards as data markers, so the scrape path and the dataset
// path agree on every field. Runs once before capture; the caller fires
// the attributes-ready signal when it returns.
package annotate

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/logger"
	"github.com/gridloop/gridfilter/pkg/record"
)

// itemSelector is structural rather than data-driven: at this point the
// cards do not carry markers yet.
const itemSelector = `.e-loop-item, .elementor-loop-container > *`

// Result summarizes one annotation pass.
type Result struct {
	Annotated int
	Skipped   int
}

// Apply writes the dataset fields of every resolvable card onto the
// element: identity, title, prices, category/tag id lists, and one
// data attribute per taxonomy (pa_color becomes data-pa-color). Cards
// without a dataset entry are left untouched.
func Apply(container *goquery.Selection, ds record.Dataset, reg *identity.Registry) Result {
	log := logger.With("annotate")
	var res Result

	container.Find(itemSelector).Each(func(i int, sel *goquery.Selection) {
		id, ok := reg.Resolve(sel)
		if !ok || !ds.Has(id) {
			res.Skipped++
			return
		}
		annotateCard(sel, id, ds[id])
		res.Annotated++
	})

	log.Info().Int("annotated", res.Annotated).Int("skipped", res.Skipped).Msg("data markers applied")
	return res
}

func annotateCard(sel *goquery.Selection, id string, p record.Product) {
	sel.SetAttr("data-product-id", id)
	sel.SetAttr("data-title", p.Title)
	sel.SetAttr("data-price", formatPrice(float64(p.Price)))

	regular := float64(p.RegularPrice)
	if regular == 0 {
		regular = float64(p.Price)
	}
	sel.SetAttr("data-regular-price", formatPrice(regular))
	sel.SetAttr("data-sale-price", formatPrice(float64(p.SalePrice)))

	if p.MinPrice > 0 {
		sel.SetAttr("data-min-price", formatPrice(float64(p.MinPrice)))
	}
	if p.MaxPrice > 0 {
		sel.SetAttr("data-max-price", formatPrice(float64(p.MaxPrice)))
	}

	if len(p.Categories) > 0 {
		sel.SetAttr("data-categories", strings.Join(p.Categories, ","))
	}
	if len(p.Tags) > 0 {
		sel.SetAttr("data-tags", strings.Join(p.Tags, ","))
	}

	// Full taxonomy names survive the round trip: pa_color is written
	// as data-pa-color and read back as pa_color by the extractor.
	for taxonomy, values := range p.Attributes {
		if len(values) == 0 {
			continue
		}
		sel.SetAttr(record.DataAttrName(taxonomy), strings.Join(values, ","))
	}

	if !sel.HasClass("has-filter-data") {
		sel.AddClass("has-filter-data")
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
