package record

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// titleSelectors is tried in order; the first descendant with non-empty
// text wins. Covers the heading widget, plain headings and both product
// title class conventions.
var titleSelectors = []string{
	".elementor-heading-title",
	"h2",
	"h3",
	"h4",
	".product-title",
	".woocommerce-loop-product__title",
}

// reservedDatasetKeys are the base-field markers; everything else on the
// element is treated as a taxonomy attribute. Keys are in dataset
// (camelCase) form.
var reservedDatasetKeys = map[string]bool{
	"productId":    true,
	"title":        true,
	"price":        true,
	"regularPrice": true,
	"salePrice":    true,
	"categories":   true,
	"tags":         true,
	"minPrice":     true,
	"maxPrice":     true,
}

// Extract scrapes one card element into a ProductRecord. It never fails:
// absent or malformed fields default to empty/zero. Pure read, the
// element is not touched.
func Extract(identity string, sel *goquery.Selection) *ProductRecord {
	rec := New(identity)

	rec.Title = extractTitle(sel)
	rec.Categories = SplitList(sel.AttrOr("data-categories", ""))
	rec.Tags = SplitList(sel.AttrOr("data-tags", ""))
	rec.Price = EffectivePrice(
		parsePrice(sel.AttrOr("data-price", "")),
		parsePrice(sel.AttrOr("data-sale-price", "")),
		parsePrice(sel.AttrOr("data-regular-price", "")),
		parsePrice(sel.AttrOr("data-min-price", "")),
	)

	if len(sel.Nodes) > 0 {
		for _, attr := range sel.Nodes[0].Attr {
			name, ok := strings.CutPrefix(attr.Key, "data-")
			if !ok {
				continue
			}
			key := DatasetKey(name)
			if reservedDatasetKeys[key] {
				continue
			}
			values := SplitValueList(attr.Val)
			if len(values) > 0 {
				rec.Attributes[TaxonomyName(key)] = values
			}
		}
	}

	return rec
}

func extractTitle(sel *goquery.Selection) string {
	for _, selector := range titleSelectors {
		text := strings.TrimSpace(sel.Find(selector).First().Text())
		if text != "" {
			return strings.ToLower(text)
		}
	}
	return strings.ToLower(strings.TrimSpace(sel.AttrOr("data-title", "")))
}

func parsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}

// DatasetKey converts a data-attribute name to its dataset (camelCase)
// key: pa-color and pa_color both become paColor.
func DatasetKey(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		switch r {
		case '-', '_':
			upper = true
		default:
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// TaxonomyName reverses the dataset compaction for namespaced attribute
// keys: paColor becomes pa_color. Keys outside the pa namespace pass
// through unchanged.
func TaxonomyName(key string) string {
	if !strings.HasPrefix(key, "pa") || len(key) <= 2 {
		return key
	}
	if !unicode.IsUpper(rune(key[2])) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DataAttrName converts a taxonomy attribute name to the kebab-case
// data-attribute it is written as: pa_color becomes data-pa-color.
func DataAttrName(taxonomy string) string {
	return "data-" + strings.ReplaceAll(taxonomy, "_", "-")
}
