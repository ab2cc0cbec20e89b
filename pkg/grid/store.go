// Package grid owns the canonical product mapping for one grid instance
// and the operations that build, extend and re-render it: deduplicating
// capture, pagination merge, ghost cleanup and the grid renderer.
package grid

import (
	"sync"

	"github.com/gridloop/gridfilter/pkg/record"
)

// Entry is one canonical product: the normalized record, an independent
// markup snapshot of its card (re-parsed into a fresh clone on every
// render), and the stable first-seen position.
type Entry struct {
	Identity  string
	Record    *record.ProductRecord
	Snapshot  string
	SortIndex int
}

// Store is the canonical mapping for one grid instance. At most one
// entry exists per identity; SortIndex values form a dense 0..n-1
// sequence in first-seen order. Capture creates it, the merger extends
// it, the controller only reads it. It lives as long as the grid does.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string

	containerClass string
	containerStyle string
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
	}
}

// Add inserts an entry under the next sort index. Returns false without
// touching the mapping when the identity is already present: first seen
// always wins.
func (s *Store) Add(identity string, rec *record.ProductRecord, snapshot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[identity]; exists {
		return false
	}
	s.entries[identity] = &Entry{
		Identity:  identity,
		Record:    rec,
		Snapshot:  snapshot,
		SortIndex: len(s.order),
	}
	s.order = append(s.order, identity)
	return true
}

func (s *Store) Has(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[identity]
	return ok
}

func (s *Store) Get(identity string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[identity]
	return e, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns the entries in first-seen order.
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// Identities returns the known identities in first-seen order.
func (s *Store) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// EachTitle implements identity.TitleSource so the slug fallback can
// scan already-captured products.
func (s *Store) EachTitle(fn func(identity, title string) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if !fn(id, s.entries[id].Record.Title) {
			return
		}
	}
}

// SetPresentation stores the container's own class list and inline
// style, captured once so every re-render can restore them verbatim.
func (s *Store) SetPresentation(class, style string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containerClass = class
	s.containerStyle = style
}

func (s *Store) Presentation() (class, style string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containerClass, s.containerStyle
}
