// Package record turns one product card, whether a DOM element or a
// server-supplied JSON entry, into the normalized ProductRecord the
// filter engine operates on.
package record

import "strings"

// ProductRecord is the canonical filterable shape of one product.
// Titles and attribute values are stored lowercased so matching never
// re-normalizes.
type ProductRecord struct {
	Identity   string
	Title      string
	Price      float64
	Categories []string
	Tags       []string
	Attributes map[string][]string
}

func New(identity string) *ProductRecord {
	return &ProductRecord{
		Identity:   identity,
		Attributes: make(map[string][]string),
	}
}

// AttributeValues returns the value set for a taxonomy attribute name,
// or nil when the record does not carry that attribute at all.
func (r *ProductRecord) AttributeValues(name string) []string {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes[name]
}

// FillFrom copies dataset fields into gaps left by the DOM scrape. The
// scraped value always wins when present; the dataset is a fallback
// source, not an override.
func (r *ProductRecord) FillFrom(other *ProductRecord) {
	if other == nil {
		return
	}
	if r.Title == "" {
		r.Title = other.Title
	}
	if r.Price == 0 {
		r.Price = other.Price
	}
	if len(r.Categories) == 0 {
		r.Categories = append(r.Categories, other.Categories...)
	}
	if len(r.Tags) == 0 {
		r.Tags = append(r.Tags, other.Tags...)
	}
	for name, values := range other.Attributes {
		if len(r.Attributes[name]) == 0 {
			r.Attributes[name] = append([]string(nil), values...)
		}
	}
}

// EffectivePrice applies the display-price precedence used across both
// sources: explicit price, else sale, else regular, else the minimum
// variant price. Anything unparsable or absent contributes zero.
func EffectivePrice(price, sale, regular, min float64) float64 {
	switch {
	case price > 0:
		return price
	case sale > 0:
		return sale
	case regular > 0:
		return regular
	case min > 0:
		return min
	default:
		return 0
	}
}

// SplitList parses the comma-joined identifier lists used for category
// and tag markers. Empty segments are dropped.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitValueList is SplitList plus lowercasing, for attribute value
// slugs.
func SplitValueList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
