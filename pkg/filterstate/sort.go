package filterstate

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gridloop/gridfilter/pkg/grid"
)

// Compare orders two canonical entries by the given key: -1, 0 or 1.
// Title comparison is locale-aware. The collator may be nil for
// non-title keys.
func Compare(a, b *grid.Entry, key SortKey, col *collate.Collator) int {
	switch key {
	case SortTitle:
		return col.CompareString(a.Record.Title, b.Record.Title)
	case SortPriceAsc:
		return comparePrice(a.Record.Price, b.Record.Price)
	case SortPriceDesc:
		return comparePrice(b.Record.Price, a.Record.Price)
	default:
		return compareIndex(a.SortIndex, b.SortIndex)
	}
}

// SortEntries orders matched entries in place. The sort is stable, so
// entries with equal keys keep their relative first-seen order when the
// input is in sort-index order (which every caller guarantees by
// starting from the store's All()).
func SortEntries(entries []*grid.Entry, key SortKey) {
	var col *collate.Collator
	if key == SortTitle {
		col = collate.New(language.Und)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return Compare(entries[i], entries[j], key, col) < 0
	})
}

func comparePrice(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareIndex(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
