package grid

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/record"
)

// Merge reconciles a raw pagination batch into the canonical mapping.
// Extraction is identical to Capture; identities already known are left
// untouched (no overwrite) and new entries continue the sort index
// sequence. A batch that adds nothing is not an error — it is the
// caller's "no more pages" signal.
func Merge(batchHTML string, reg *identity.Registry, ds record.Dataset, store *Store) (CaptureResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(batchHTML))
	if err != nil {
		return CaptureResult{}, fmt.Errorf("parse pagination batch: %w", err)
	}
	return absorb(doc.Find(CandidateSelector), reg, ds, store, "merge"), nil
}
