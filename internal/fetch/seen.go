package fetch

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// PageBloomFilter remembers which batch pages were already fetched, so
// a misbehaving trigger cannot re-download the same page. False
// positives only skip a redundant fetch; the merge layer's first-seen
// rule is the correctness guarantee.
type PageBloomFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewPageBloomFilter sizes the filter for the expected number of page
// fetches over the process lifetime.
func NewPageBloomFilter(expectedItems uint, fpRate float64) *PageBloomFilter {
	return &PageBloomFilter{
		filter: bloom.NewWithEstimates(expectedItems, fpRate),
	}
}

func (b *PageBloomFilter) Add(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(key)
}

func (b *PageBloomFilter) MayContain(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(key)
}

func (b *PageBloomFilter) Count() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.ApproximatedSize()
}
