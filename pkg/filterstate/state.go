// Package filterstate holds the mutable filter state for one grid and
// the pure matching/ordering logic evaluated against product records.
package filterstate

import "strings"

// DefaultMaxPrice is the open upper bound used until the price controls
// report their real maximum.
const DefaultMaxPrice = 99999

type SortKey string

const (
	// SortAsIndexed is first-seen capture order, the "date" option of
	// the sort control.
	SortAsIndexed SortKey = "date"
	SortTitle     SortKey = "title"
	SortPriceAsc  SortKey = "price"
	SortPriceDesc SortKey = "price-desc"
)

// ParseSortKey maps a raw control value to a sort key; anything unknown
// falls back to capture order.
func ParseSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortTitle, SortPriceAsc, SortPriceDesc:
		return SortKey(raw)
	default:
		return SortAsIndexed
	}
}

// State is the current filter selection. Categories and tags are OR
// within the set; attributes are AND across names, OR within one name's
// values. MinPrice <= MaxPrice is kept by the input layer (the setters
// clamp), never checked by the evaluator.
type State struct {
	Search     string
	Sort       SortKey
	Categories []string
	Tags       []string
	Attributes map[string][]string
	MinPrice   float64
	MaxPrice   float64
}

func Default() State {
	return State{
		Sort:       SortAsIndexed,
		Attributes: make(map[string][]string),
		MaxPrice:   DefaultMaxPrice,
	}
}

// ParseAttributeSelections folds checked attribute control values of the
// form "pa_color:Red" into the attribute filter map, lowercasing the
// value slug. Malformed entries (no separator) are dropped.
func ParseAttributeSelections(values []string) map[string][]string {
	out := make(map[string][]string)
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		if !ok || name == "" || value == "" {
			continue
		}
		out[name] = append(out[name], strings.ToLower(value))
	}
	return out
}
