// Package controller orchestrates one grid instance: it owns the filter
// state, waits for the readiness signal (or a fallback timeout) before
// capturing, and re-renders on every state change or merge. The control
// flow is a trivial state machine: idle → input → recompute → render →
// idle.
package controller

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/gridloop/gridfilter/pkg/annotate"
	"github.com/gridloop/gridfilter/pkg/events"
	"github.com/gridloop/gridfilter/pkg/filterstate"
	"github.com/gridloop/gridfilter/pkg/grid"
	"github.com/gridloop/gridfilter/pkg/identity"
	"github.com/gridloop/gridfilter/pkg/logger"
	"github.com/gridloop/gridfilter/pkg/record"
)

// ErrMergeInFlight is returned when a merge is requested while another
// one is still outstanding. The caller retries after the current one
// settles; the canonical mapping is never touched concurrently.
var ErrMergeInFlight = errors.New("pagination merge already in flight")

type Config struct {
	ID           string
	SearchDelay  time.Duration // trailing-edge debounce for search input
	ReadyTimeout time.Duration // fallback when attributes-ready never fires
	ForceLayout  bool
	MaxPrice     float64 // price control maximum; 0 keeps the default
}

func (c *Config) defaults() {
	if c.SearchDelay <= 0 {
		c.SearchDelay = 500 * time.Millisecond
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 2 * time.Second
	}
}

type Controller struct {
	mu sync.Mutex

	id        string
	container *goquery.Selection
	store     *grid.Store
	registry  *identity.Registry
	dataset   record.Dataset
	state     filterstate.State
	renderer  *grid.Renderer
	bus       *events.Bus
	log       zerolog.Logger

	defaultMax   float64
	readyTimeout time.Duration
	captured     bool
	merging      bool

	searchDebounce *Debouncer
	readyTimer     *time.Timer
}

// New wires a controller around a grid container. The slug fallback
// scans the dataset titles when a dataset is present, otherwise the
// already-captured store.
func New(container *goquery.Selection, ds record.Dataset, bus *events.Bus, cfg Config) *Controller {
	cfg.defaults()

	store := grid.NewStore()
	var titles identity.TitleSource = store
	if ds != nil {
		titles = ds
	}

	maxPrice := cfg.MaxPrice
	if maxPrice <= 0 {
		maxPrice = filterstate.DefaultMaxPrice
	}
	state := filterstate.Default()
	state.MaxPrice = maxPrice

	return &Controller{
		id:             cfg.ID,
		container:      container,
		store:          store,
		registry:       identity.Default(titles),
		dataset:        ds,
		state:          state,
		renderer:       &grid.Renderer{ForceLayout: cfg.ForceLayout},
		bus:            bus,
		log:            logger.With("controller").With().Str("grid", cfg.ID).Logger(),
		defaultMax:     maxPrice,
		readyTimeout:   cfg.ReadyTimeout,
		searchDebounce: NewDebouncer(cfg.SearchDelay),
	}
}

// Init arms the two capture triggers: the attributes-ready event and the
// fallback timer. Whichever fires first wins; the capture-done flag
// gates re-entry, so a late second signal is a no-op.
func (c *Controller) Init() {
	c.bus.Subscribe(events.AttributesReady, func(e events.Event) {
		if e.GridID == "" || e.GridID == c.id {
			c.EnsureCaptured()
		}
	})
	c.readyTimer = time.AfterFunc(c.readyTimeout, func() {
		c.log.Warn().Msg("readiness signal never fired, capturing current DOM state")
		c.EnsureCaptured()
	})
}

// Annotate applies the dataset onto the cards, removes unpublished ghost
// cards, and fires the readiness signal. Skipped entirely when no
// dataset was supplied.
func (c *Controller) Annotate() {
	if c.dataset == nil {
		return
	}
	annotate.Apply(c.container, c.dataset, c.registry)
	grid.CleanupGhosts(c.container, c.registry, c.dataset)
	c.bus.Publish(events.Event{Kind: events.AttributesReady, GridID: c.id})
}

// EnsureCaptured runs the deduplicating capture exactly once per grid
// instance, no matter how many triggers race to call it.
func (c *Controller) EnsureCaptured() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureCapturedLocked()
}

func (c *Controller) ensureCapturedLocked() {
	if c.captured {
		return
	}
	c.captured = true
	if c.readyTimer != nil {
		c.readyTimer.Stop()
	}
	res := grid.Capture(c.container, c.registry, c.dataset, c.store)
	c.log.Info().Int("products", res.Added).Int("duplicates", res.Duplicates).Msg("canonical mapping captured")
}

// SetSearch updates the search term and schedules a debounced recompute;
// rapid keystrokes coalesce into a single render.
func (c *Controller) SetSearch(query string) {
	c.mu.Lock()
	c.state.Search = strings.ToLower(strings.TrimSpace(query))
	c.mu.Unlock()
	c.searchDebounce.Trigger(c.Apply)
}

func (c *Controller) SetSort(raw string) {
	c.mu.Lock()
	c.state.Sort = filterstate.ParseSortKey(raw)
	c.applyLocked()
	c.mu.Unlock()
}

func (c *Controller) SetCategories(ids []string) {
	c.mu.Lock()
	c.state.Categories = ids
	c.applyLocked()
	c.mu.Unlock()
}

func (c *Controller) SetTags(ids []string) {
	c.mu.Lock()
	c.state.Tags = ids
	c.applyLocked()
	c.mu.Unlock()
}

// SetAttributes replaces the attribute filter from checked "name:value"
// control selections.
func (c *Controller) SetAttributes(selections []string) {
	c.mu.Lock()
	c.state.Attributes = filterstate.ParseAttributeSelections(selections)
	c.applyLocked()
	c.mu.Unlock()
}

// SetPriceRange clamps min above max down to max, keeping the
// min <= max invariant at the input layer. The evaluator never checks
// it.
func (c *Controller) SetPriceRange(min, max float64) {
	c.mu.Lock()
	if min < 0 {
		min = 0
	}
	if max <= 0 {
		max = c.defaultMax
	}
	if min > max {
		min = max
	}
	c.state.MinPrice = min
	c.state.MaxPrice = max
	c.applyLocked()
	c.mu.Unlock()
}

// SetState replaces the whole filter state at once (the service path,
// where one request carries every control value).
func (c *Controller) SetState(st filterstate.State) {
	c.mu.Lock()
	st.Search = strings.ToLower(strings.TrimSpace(st.Search))
	st.Sort = filterstate.ParseSortKey(string(st.Sort))
	if st.MaxPrice <= 0 {
		st.MaxPrice = c.defaultMax
	}
	if st.MinPrice < 0 {
		st.MinPrice = 0
	}
	if st.MinPrice > st.MaxPrice {
		st.MinPrice = st.MaxPrice
	}
	if st.Attributes == nil {
		st.Attributes = make(map[string][]string)
	}
	c.state = st
	c.applyLocked()
	c.mu.Unlock()
}

// Apply recomputes the matched set against the current state and
// re-renders the grid.
func (c *Controller) Apply() {
	c.mu.Lock()
	c.applyLocked()
	c.mu.Unlock()
}

func (c *Controller) applyLocked() {
	c.ensureCapturedLocked()

	matched := make([]*grid.Entry, 0, c.store.Len())
	for _, e := range c.store.All() {
		if filterstate.Matches(e.Record, &c.state) {
			matched = append(matched, e)
		}
	}
	filterstate.SortEntries(matched, c.state.Sort)

	rendered := c.renderer.Render(c.container, c.store, matched)
	c.bus.Publish(events.Event{Kind: events.RenderComplete, GridID: c.id, Count: rendered})
}

// Reset restores the default filter state and renders the full
// canonical mapping in first-seen order.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.searchDebounce.Stop()
	st := filterstate.Default()
	st.MaxPrice = c.defaultMax
	c.state = st
	c.applyLocked()
	c.mu.Unlock()
}

// Merge reconciles a pagination batch into the canonical mapping and
// re-applies the current filter state. Refuses a second merge while one
// is outstanding; on a parse failure the mapping is left untouched.
func (c *Controller) Merge(batchHTML string) (int, error) {
	c.mu.Lock()
	if c.merging {
		c.mu.Unlock()
		return 0, ErrMergeInFlight
	}
	c.merging = true
	c.ensureCapturedLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.merging = false
		c.mu.Unlock()
	}()

	res, err := grid.Merge(batchHTML, c.registry, c.dataset, c.store)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.applyLocked()
	c.mu.Unlock()

	c.bus.Publish(events.Event{Kind: events.MergeComplete, GridID: c.id, Count: res.Added})
	return res.Added, nil
}

// State returns a copy of the current filter state.
func (c *Controller) State() filterstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Store exposes the canonical mapping to read-only consumers.
func (c *Controller) Store() *grid.Store {
	return c.store
}

// ContainerHTML renders the container subtree back to markup.
func (c *Controller) ContainerHTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return goquery.OuterHtml(c.container)
}
