package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2"

	"github.com/gridloop/gridfilter/internal/fetch"
	"github.com/gridloop/gridfilter/pkg/controller"
	"github.com/gridloop/gridfilter/pkg/events"
	"github.com/gridloop/gridfilter/pkg/filterstate"
	"github.com/gridloop/gridfilter/pkg/logger"
	"github.com/gridloop/gridfilter/pkg/record"
)

// containerSelector locates the grid container inside a submitted page
// fragment; when no known container class is present the body itself is
// treated as the grid.
const containerSelector = `.elementor-loop-container, .custom-product-loop-grid`

type ControllerConfig struct {
	SearchDelay  time.Duration
	ReadyTimeout time.Duration
	ForceLayout  bool
}

// Server hosts grid instances over HTTP. Instances live in memory for
// the process lifetime; there is no teardown beyond shutdown.
type Server struct {
	mu      sync.RWMutex
	grids   map[string]*gridInstance
	counter int

	bus    *events.Bus
	loader *fetch.Loader
	cfg    ControllerConfig
}

type gridInstance struct {
	ctrl *controller.Controller
	doc  *goquery.Document
}

func NewServer(bus *events.Bus, loader *fetch.Loader, cfg ControllerConfig) *Server {
	return &Server{
		grids:  make(map[string]*gridInstance),
		bus:    bus,
		loader: loader,
		cfg:    cfg,
	}
}

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.handleHealth)
	app.Post("/api/grids", s.handleCreateGrid)
	app.Get("/api/grids/:id", s.handleGetGrid)
	app.Post("/api/grids/:id/filter", s.handleFilter)
	app.Post("/api/grids/:id/reset", s.handleReset)
	app.Post("/api/grids/:id/merge", s.handleMerge)
}

type createGridRequest struct {
	HTML     string          `json:"html"`
	Dataset  json.RawMessage `json:"dataset,omitempty"`
	MaxPrice float64         `json:"max_price,omitempty"`
}

type filterRequest struct {
	Search     string              `json:"search"`
	Sort       string              `json:"sort"`
	Categories []string            `json:"categories"`
	Tags       []string            `json:"tags"`
	Attributes map[string][]string `json:"attributes"`
	// Selections carries raw "pa_color:Red" control values as an
	// alternative to the attributes map.
	Selections []string `json:"selections"`
	MinPrice   float64  `json:"min_price"`
	MaxPrice   float64  `json:"max_price"`
}

type mergeRequest struct {
	HTML  string `json:"html"`
	Fetch bool   `json:"fetch"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.mu.RLock()
	count := len(s.grids)
	s.mu.RUnlock()
	return c.JSON(fiber.Map{
		"status": "ok",
		"grids":  count,
	})
}

func (s *Server) handleCreateGrid(c *fiber.Ctx) error {
	log := logger.With("api")

	var req createGridRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.HTML) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "html is required"})
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "unparsable html"})
	}

	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}
	if container.Length() == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "no grid container found"})
	}

	var ds record.Dataset
	if len(req.Dataset) > 0 {
		ds, err = record.ParseDataset(req.Dataset)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
	}

	s.mu.Lock()
	s.counter++
	id := fmt.Sprintf("grid-%d", s.counter)
	s.mu.Unlock()

	ctrl := controller.New(container, ds, s.bus, controller.Config{
		ID:           id,
		SearchDelay:  s.cfg.SearchDelay,
		ReadyTimeout: s.cfg.ReadyTimeout,
		ForceLayout:  s.cfg.ForceLayout,
		MaxPrice:     req.MaxPrice,
	})
	ctrl.Init()
	ctrl.Annotate()
	// The request is synchronous; don't wait out the fallback timer.
	ctrl.EnsureCaptured()

	s.mu.Lock()
	s.grids[id] = &gridInstance{ctrl: ctrl, doc: doc}
	s.mu.Unlock()

	log.Info().Str("grid", id).Int("products", ctrl.Store().Len()).Msg("grid captured")

	return c.JSON(fiber.Map{
		"grid_id":    id,
		"size":       ctrl.Store().Len(),
		"identities": ctrl.Store().Identities(),
	})
}

func (s *Server) handleGetGrid(c *fiber.Ctx) error {
	inst, ok := s.grid(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "grid not found"})
	}
	st := inst.ctrl.State()
	return c.JSON(fiber.Map{
		"grid_id":    c.Params("id"),
		"size":       inst.ctrl.Store().Len(),
		"identities": inst.ctrl.Store().Identities(),
		"state":      st,
	})
}

func (s *Server) handleFilter(c *fiber.Ctx) error {
	inst, ok := s.grid(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "grid not found"})
	}

	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	attrs := req.Attributes
	if len(req.Selections) > 0 {
		attrs = filterstate.ParseAttributeSelections(req.Selections)
	}

	inst.ctrl.SetState(filterstate.State{
		Search:     req.Search,
		Sort:       filterstate.SortKey(req.Sort),
		Categories: req.Categories,
		Tags:       req.Tags,
		Attributes: attrs,
		MinPrice:   req.MinPrice,
		MaxPrice:   req.MaxPrice,
	})

	return s.renderResponse(c, inst)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	inst, ok := s.grid(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "grid not found"})
	}
	inst.ctrl.Reset()
	return s.renderResponse(c, inst)
}

func (s *Server) handleMerge(c *fiber.Ctx) error {
	inst, ok := s.grid(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "grid not found"})
	}

	var req mergeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	batch := req.HTML
	if batch == "" && req.Fetch {
		if s.loader == nil {
			return c.Status(400).JSON(fiber.Map{"error": "no pagination endpoint configured"})
		}
		ctx, cancel := context.WithTimeout(c.Context(), 60*time.Second)
		defer cancel()

		html, _, err := s.loader.LoadNext(ctx)
		switch {
		case errors.Is(err, fetch.ErrLoadInFlight):
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, fetch.ErrNoMorePages):
			return c.JSON(fiber.Map{"added": 0, "no_more": true})
		case err != nil:
			// Mapping untouched; the client may retry.
			return c.Status(502).JSON(fiber.Map{"error": "failed to load more products, please try again"})
		}
		batch = html
	}

	if strings.TrimSpace(batch) == "" {
		return c.JSON(fiber.Map{"added": 0, "no_more": true})
	}

	added, err := inst.ctrl.Merge(batch)
	switch {
	case errors.Is(err, controller.ErrMergeInFlight):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if added == 0 && s.loader != nil {
		s.loader.MarkExhausted()
	}

	return c.JSON(fiber.Map{
		"added":   added,
		"size":    inst.ctrl.Store().Len(),
		"no_more": added == 0,
	})
}

func (s *Server) renderResponse(c *fiber.Ctx, inst *gridInstance) error {
	html, err := inst.ctrl.ContainerHTML()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to render grid"})
	}

	st := inst.ctrl.State()
	matched := make([]string, 0)
	for _, e := range inst.ctrl.Store().All() {
		if filterstate.Matches(e.Record, &st) {
			matched = append(matched, e.Identity)
		}
	}

	return c.JSON(fiber.Map{
		"html":    html,
		"matched": matched,
		"total":   inst.ctrl.Store().Len(),
	})
}

func (s *Server) grid(id string) (*gridInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.grids[id]
	return inst, ok
}
