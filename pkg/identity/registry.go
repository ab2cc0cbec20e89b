// Package identity resolves the stable product identity of a rendered
// product card. Markup arrives from several historical template
// generations, so resolution runs an ordered chain of strategies and the
// first success wins. A card that defeats every strategy has no identity
// and must be skipped by the caller.
package identity

import (
	"sort"

	"github.com/PuerkitoBio/goquery"
)

// Resolver is one strategy for pulling a product identity out of a card
// element. Higher priority runs first.
type Resolver interface {
	Name() string
	Priority() int
	Resolve(sel *goquery.Selection) (string, bool)
}

// TitleSource lets the slug fallback scan titles of already-known
// products. Both the canonical store and the server-supplied dataset
// satisfy it.
type TitleSource interface {
	EachTitle(fn func(identity, title string) bool)
}

type Registry struct {
	resolvers []Resolver
}

func NewRegistry() *Registry {
	return &Registry{
		resolvers: make([]Resolver, 0),
	}
}

// Default builds the full fallback chain: explicit marker, class-name
// patterns, nested marker, then the slug scan against known titles.
func Default(titles TitleSource) *Registry {
	r := NewRegistry()
	r.Register(&MarkerResolver{})
	r.Register(&ClassResolver{})
	r.Register(&NestedMarkerResolver{})
	r.Register(&SlugResolver{Titles: titles})
	return r
}

func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
	sort.Slice(r.resolvers, func(i, j int) bool {
		return r.resolvers[i].Priority() > r.resolvers[j].Priority()
	})
}

// Resolve runs the chain in priority order and returns the first
// identity found. ok is false when every strategy fails; callers log and
// skip the card, they never guess.
func (r *Registry) Resolve(sel *goquery.Selection) (identity string, ok bool) {
	for _, res := range r.resolvers {
		if id, found := res.Resolve(sel); found {
			return id, true
		}
	}
	return "", false
}
