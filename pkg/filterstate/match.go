package filterstate

import (
	"strings"

	"github.com/gridloop/gridfilter/pkg/record"
)

// Matches reports whether a record passes every active rule group. Pure
// and total: any well-formed record/state pair evaluates without error,
// and an empty rule group always passes.
func Matches(rec *record.ProductRecord, st *State) bool {
	if st.Search != "" {
		if rec.Title == "" || !strings.Contains(rec.Title, st.Search) {
			return false
		}
	}

	if len(st.Categories) > 0 && !intersects(rec.Categories, st.Categories) {
		return false
	}

	if len(st.Tags) > 0 && !intersects(rec.Tags, st.Tags) {
		return false
	}

	// AND across attribute names; OR within one name's value set. A
	// record lacking a filtered attribute entirely fails that name.
	for name, wanted := range st.Attributes {
		if len(wanted) == 0 {
			continue
		}
		have := rec.AttributeValues(name)
		if len(have) == 0 || !intersects(have, wanted) {
			return false
		}
	}

	// Zero-priced records are exempt from the range: unknown or free
	// prices are never excluded by a price filter.
	if rec.Price > 0 {
		if rec.Price < st.MinPrice || rec.Price > st.MaxPrice {
			return false
		}
	}

	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
