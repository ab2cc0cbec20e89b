// Package events carries the small set of lifecycle signals the filter
// engine emits and consumes: the readiness signal the controller waits
// on before capturing, and the post-render/post-merge notifications that
// let widget collaborators rebind against freshly cloned nodes.
package events

import "sync"

type Kind string

const (
	// AttributesReady fires once the annotator has finished writing
	// data markers onto the initial cards.
	AttributesReady Kind = "attributes-ready"
	// RenderComplete fires after every grid re-render.
	RenderComplete Kind = "render-complete"
	// MergeComplete fires after a pagination batch has been merged.
	MergeComplete Kind = "merge-complete"
)

type Event struct {
	Kind   Kind   `json:"kind"`
	GridID string `json:"grid_id,omitempty"`
	Count  int    `json:"count"`
}

type Handler func(Event)

// Bus is a synchronous in-process dispatcher. Handlers run on the
// publisher's goroutine in subscription order; each handler body stays
// "update state, trigger one recompute".
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind][]Handler),
	}
}

func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
