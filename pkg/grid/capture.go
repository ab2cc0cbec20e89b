package grid

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/logger"
	"github.com/gridloop/gridfilter/pkg/record"
)

// CandidateSelector matches anything that looks like a product card.
// Deliberately wide: loop templates changed class conventions over time
// and a grid can mix them.
const CandidateSelector = `.e-loop-item, .product-loop-item, [class*="product-id-"]`

// CaptureResult summarizes one capture or merge pass.
type CaptureResult struct {
	Added      int
	Duplicates int
	Unresolved int
}

// Capture walks all candidate cards inside the container in document
// order and builds the canonical mapping: resolve identity, skip repeats
// (first occurrence wins), extract a record, snapshot the card markup.
// Also captures the container's class/style so renders can restore them.
func Capture(container *goquery.Selection, reg *identity.Registry, ds record.Dataset, store *Store) CaptureResult {
	store.SetPresentation(container.AttrOr("class", ""), container.AttrOr("style", ""))
	return absorb(container.Find(CandidateSelector), reg, ds, store, "capture")
}

// absorb is the shared body of Capture and Merge: each candidate either
// extends the mapping or is skipped with a diagnostic. Never aborts.
func absorb(items *goquery.Selection, reg *identity.Registry, ds record.Dataset, store *Store, component string) CaptureResult {
	log := logger.With(component)
	var res CaptureResult

	items.Each(func(i int, sel *goquery.Selection) {
		id, ok := reg.Resolve(sel)
		if !ok {
			log.Warn().Int("item", i).Msg("card has no resolvable product identity, skipping")
			res.Unresolved++
			return
		}

		if store.Has(id) {
			log.Debug().Str("identity", id).Int("item", i).Msg("duplicate identity, keeping first occurrence")
			res.Duplicates++
			return
		}

		rec := record.Extract(id, sel)
		if ds != nil {
			rec.FillFrom(ds.Record(id))
		}

		snapshot, err := snapshotNode(sel)
		if err != nil {
			log.Warn().Err(err).Str("identity", id).Msg("failed to snapshot card markup, skipping")
			res.Unresolved++
			return
		}

		if store.Add(id, rec, snapshot) {
			res.Added++
		}
	})

	log.Info().
		Int("added", res.Added).
		Int("duplicates", res.Duplicates).
		Int("unresolved", res.Unresolved).
		Int("total", store.Len()).
		Msg("grid pass complete")

	return res
}

// snapshotNode serializes the card's first node to markup. Stored as a
// string so every render re-parses it into a fresh, unshared clone.
func snapshotNode(sel *goquery.Selection) (string, error) {
	if len(sel.Nodes) == 0 {
		return "", nil
	}
	var b strings.Builder
	if err := html.Render(&b, sel.Nodes[0]); err != nil {
		return "", err
	}
	return b.String(), nil
}
