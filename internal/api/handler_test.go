package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/gridloop/gridfilter/internal/fetch"
	"github.com/gridloop/gridfilter/pkg/events"
)

const pageFixture = `
<html><body>
<div class="elementor-loop-container" style="gap: 10px;">
	<div class="e-loop-item product-id-1"><h3>Alpha</h3></div>
	<div class="e-loop-item product-id-2"><h3>Beta</h3></div>
	<div class="e-loop-item product-id-1"><h3>Alpha Duplicate</h3></div>
	<div class="e-loop-item product-id-3"><h3>Gamma</h3></div>
</div>
</body></html>`

const datasetFixture = `{
	"1": {"id": 1, "title": "Alpha", "price": 100, "categories": ["10"], "attributes": {"pa_color": ["red"]}},
	"2": {"id": 2, "title": "Beta", "price": 300, "categories": ["20"], "attributes": {"pa_color": ["blue"]}},
	"3": {"id": 3, "title": "Gamma", "price": 0, "categories": ["10"], "attributes": {}}
}`

func newTestApp(t *testing.T, loader *fetch.Loader) *fiber.App {
	t.Helper()
	server := NewServer(events.NewBus(), loader, ControllerConfig{
		ReadyTimeout: time.Hour, // capture is explicit on create
	})
	app := fiber.New()
	server.SetupRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func createGrid(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, out := doJSON(t, app, http.MethodPost, "/api/grids", map[string]any{
		"html":    pageFixture,
		"dataset": json.RawMessage(datasetFixture),
	})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, out["size"], "duplicate card must not count")
	return out["grid_id"].(string)
}

func matchedIDs(out map[string]any) []string {
	raw := out["matched"].([]any)
	ids := make([]string, len(raw))
	for i, v := range raw {
		ids[i] = v.(string)
	}
	return ids
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)
	status, out := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", out["status"])
}

func TestCreateGridValidation(t *testing.T) {
	app := newTestApp(t, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/api/grids", map[string]any{"html": "  "})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGridNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	for _, path := range []string{"/api/grids/nope", "/api/grids/nope/filter", "/api/grids/nope/reset", "/api/grids/nope/merge"} {
		method := http.MethodPost
		if path == "/api/grids/nope" {
			method = http.MethodGet
		}
		status, _ := doJSON(t, app, method, path, map[string]any{})
		require.Equal(t, http.StatusNotFound, status, path)
	}
}

func TestFilterAndResetFlow(t *testing.T) {
	app := newTestApp(t, nil)
	id := createGrid(t, app)

	status, out := doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/filter", map[string]any{
		"categories": []string{"10"},
	})
	require.Equal(t, http.StatusOK, status)
	require.ElementsMatch(t, []string{"1", "3"}, matchedIDs(out))
	require.EqualValues(t, 3, out["total"])
	require.NotContains(t, out["html"].(string), "product-id-2")

	// Attribute selections via raw control values.
	status, out = doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/filter", map[string]any{
		"selections": []string{"pa_color:Blue"},
	})
	require.Equal(t, http.StatusOK, status)
	require.ElementsMatch(t, []string{"2"}, matchedIDs(out))

	// Nothing matches: the placeholder renders, the mapping is intact.
	status, out = doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/filter", map[string]any{
		"search": "zzz",
	})
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, matchedIDs(out))
	require.Contains(t, out["html"].(string), "no-results-message")

	status, out = doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, status)
	require.ElementsMatch(t, []string{"1", "2", "3"}, matchedIDs(out))
}

func TestFilterSortOrder(t *testing.T) {
	app := newTestApp(t, nil)
	id := createGrid(t, app)

	status, out := doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/filter", map[string]any{
		"sort": "price-desc",
	})
	require.Equal(t, http.StatusOK, status)
	html := out["html"].(string)
	require.Less(t, bytes.Index([]byte(html), []byte("product-id-2")), bytes.Index([]byte(html), []byte("product-id-1")))
}

func TestMergeInlineBatch(t *testing.T) {
	app := newTestApp(t, nil)
	id := createGrid(t, app)

	batch := `<div class="e-loop-item product-id-4"><h3>Delta</h3></div>`
	status, out := doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/merge", map[string]any{"html": batch})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, out["added"])
	require.EqualValues(t, 4, out["size"])
	require.Equal(t, false, out["no_more"])

	// The same batch again adds nothing and signals exhaustion.
	status, out = doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/merge", map[string]any{"html": batch})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 0, out["added"])
	require.Equal(t, true, out["no_more"])
}

func TestMergeFetchWithoutLoader(t *testing.T) {
	app := newTestApp(t, nil)
	id := createGrid(t, app)

	status, _ := doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/merge", map[string]any{"fetch": true})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestMergeFetchFromEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"html":"<div class=\"e-loop-item product-id-5\"><h3>Epsilon</h3></div>"}}`))
	}))
	defer upstream.Close()

	loader := fetch.New(fetch.Config{AjaxURL: upstream.URL, PerSecond: 1000})
	app := newTestApp(t, loader)
	id := createGrid(t, app)

	status, out := doJSON(t, app, http.MethodPost, "/api/grids/"+id+"/merge", map[string]any{"fetch": true})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, out["added"])
	require.EqualValues(t, 4, out["size"])
}

func TestGetGrid(t *testing.T) {
	app := newTestApp(t, nil)
	id := createGrid(t, app)

	status, out := doJSON(t, app, http.MethodGet, "/api/grids/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, out["size"])
	require.Len(t, out["identities"].([]any), 3)
}
