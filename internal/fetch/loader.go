// Package fetch drives the "load more" side of pagination: it requests
// the next batch of rendered cards from the upstream AJAX endpoint,
// serialized by an in-flight flag and paced by a rate limiter. It only
// produces raw markup; reconciling it into the canonical mapping is the
// merger's job.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gridloop/gridfilter/pkg/logger"
)

var (
	// ErrLoadInFlight means a previous batch request has not settled
	// yet. Callers retry after it completes; requests never overlap.
	ErrLoadInFlight = errors.New("batch fetch already in flight")
	// ErrNoMorePages means the endpoint has no further pages.
	ErrNoMorePages = errors.New("no more pages")
)

type Config struct {
	AjaxURL   string
	Nonce     string
	WidgetID  string
	Timeout   time.Duration
	PerSecond float64
	MaxPages  int // 0 means unknown; rely on empty batches
}

type Loader struct {
	client  *http.Client
	limiter *rate.Limiter
	seen    *PageBloomFilter

	ajaxURL  string
	nonce    string
	widgetID string
	maxPages int

	mu       sync.Mutex
	inFlight bool
	page     int
	done     bool
}

// batchResponse is the upstream envelope: {"success":true,"data":{"html":"..."}}.
type batchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		HTML string `json:"html"`
	} `json:"data"`
}

func New(cfg Config) *Loader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Loader{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		seen:     NewPageBloomFilter(10_000, 0.001),
		ajaxURL:  cfg.AjaxURL,
		nonce:    cfg.Nonce,
		widgetID: cfg.WidgetID,
		maxPages: cfg.MaxPages,
		page:     1,
	}
}

// LoadNext fetches the next batch of card markup. Returns the raw HTML
// fragment and the page number it belongs to. An empty fragment with a
// nil error means the page was already fetched; the caller's zero-new-
// records bookkeeping handles it the same way as an exhausted source.
func (l *Loader) LoadNext(ctx context.Context) (string, int, error) {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return "", 0, ErrLoadInFlight
	}
	if l.done {
		l.mu.Unlock()
		return "", 0, ErrNoMorePages
	}
	next := l.page + 1
	if l.maxPages > 0 && next > l.maxPages {
		l.done = true
		l.mu.Unlock()
		return "", 0, ErrNoMorePages
	}
	l.inFlight = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.inFlight = false
		l.mu.Unlock()
	}()

	log := logger.With("fetch")

	key := fmt.Sprintf("%s#page=%d", l.ajaxURL, next)
	if l.seen.MayContain(key) {
		log.Debug().Int("page", next).Msg("page already fetched, skipping")
		l.advance(next)
		return "", next, nil
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return "", 0, err
	}

	html, err := l.request(ctx, next)
	if err != nil {
		// The in-flight flag is cleared by the deferred reset, so the
		// caller can retry the same page.
		log.Error().Err(err).Int("page", next).Msg("batch fetch failed")
		return "", 0, err
	}

	l.seen.Add(key)
	l.advance(next)

	log.Info().Int("page", next).Int("bytes", len(html)).Msg("batch fetched")
	return html, next, nil
}

func (l *Loader) advance(page int) {
	l.mu.Lock()
	l.page = page
	if l.maxPages > 0 && page >= l.maxPages {
		l.done = true
	}
	l.mu.Unlock()
}

// MarkExhausted records the merger's "zero new records" signal so no
// further pages are requested.
func (l *Loader) MarkExhausted() {
	l.mu.Lock()
	l.done = true
	l.mu.Unlock()
}

func (l *Loader) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loader) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

func (l *Loader) request(ctx context.Context, page int) (string, error) {
	form := url.Values{}
	form.Set("action", "load_more_products")
	form.Set("page", strconv.Itoa(page))
	if l.nonce != "" {
		form.Set("nonce", l.nonce)
	}
	if l.widgetID != "" {
		form.Set("widget_id", l.widgetID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.ajaxURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var batch batchResponse
	if err := json.Unmarshal(body, &batch); err != nil {
		return "", fmt.Errorf("decode batch response: %w", err)
	}
	if !batch.Success {
		return "", fmt.Errorf("endpoint rejected page %d", page)
	}

	return batch.Data.HTML, nil
}
