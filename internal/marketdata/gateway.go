// Package marketdata implements the historical-price retrieval gateway
// (§4.2), grounded on market/api_client.go's single-provider HTTP pattern:
// a thin http.Client wrapper keyed by API credentials, generalized here into
// a provider chain with process-wide caching and per-symbol serialization.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"hunter/internal/herr"
	"hunter/internal/logger"
)

// Provider fetches recent daily/hourly close prices for a symbol.
type Provider interface {
	Name() string
	HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

type cacheEntry struct {
	prices    []float64
	fetchedAt time.Time
}

// Gateway tries providers in order, caches results for an hour, and
// serializes concurrent requests for the same symbol to avoid a thundering
// herd on cache miss (§4.2).
type Gateway struct {
	providers []Provider
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
	locks map[string]*sync.Mutex

	log *logger.Logger
}

// New constructs a Gateway trying providers in the given order.
func New(providers ...Provider) *Gateway {
	return &Gateway{
		providers: providers,
		ttl:       time.Hour,
		cache:     make(map[string]cacheEntry),
		locks:     make(map[string]*sync.Mutex),
		log:       logger.With("marketdata.gateway"),
	}
}

func cacheKey(symbol string, days int) string {
	return fmt.Sprintf("%s:%d", symbol, days)
}

func (g *Gateway) symbolLock(symbol string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		g.locks[symbol] = l
	}
	return l
}

// HistoricalCloses returns an oldest→newest slice of ≥20 strictly positive
// prices for symbol, or ErrMalformedResponse if no provider can supply
// enough history. The asset must be skipped by the caller in that case —
// this gateway never fabricates data.
func (g *Gateway) HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	key := cacheKey(symbol, days)

	g.mu.Lock()
	if entry, ok := g.cache[key]; ok && time.Since(entry.fetchedAt) < g.ttl {
		g.mu.Unlock()
		return entry.prices, nil
	}
	g.mu.Unlock()

	lock := g.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	g.mu.Lock()
	if entry, ok := g.cache[key]; ok && time.Since(entry.fetchedAt) < g.ttl {
		g.mu.Unlock()
		return entry.prices, nil
	}
	g.mu.Unlock()

	for _, p := range g.providers {
		prices, err := p.HistoricalCloses(ctx, symbol, days)
		if err != nil {
			g.log.Warnf("%s failed for %s: %v", p.Name(), symbol, err)
			continue
		}
		if len(prices) < 20 {
			g.log.Warnf("%s returned only %d points for %s, trying next provider", p.Name(), len(prices), symbol)
			continue
		}
		g.mu.Lock()
		g.cache[key] = cacheEntry{prices: prices, fetchedAt: time.Now()}
		g.mu.Unlock()
		return prices, nil
	}

	return nil, fmt.Errorf("no provider returned sufficient history for %s: %w", symbol, herr.ErrMalformedResponse)
}

// Snapshot appends a live price to the cached history, producing the
// analysis-ready series with the current quote as its newest point.
func (g *Gateway) Snapshot(ctx context.Context, symbol string, days int, livePrice float64) ([]float64, error) {
	prices, err := g.HistoricalCloses(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if livePrice <= 0 {
		return nil, fmt.Errorf("non-positive live price for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	out := make([]float64, len(prices)+1)
	copy(out, prices)
	out[len(prices)] = livePrice
	return out, nil
}

// PrimaryProvider is the free, no-key hourly-candle source (§4.2 step 1),
// grounded on APIClient.GetKlines's URL-building and JSON-decode shape.
type PrimaryProvider struct {
	baseURL string
	client  *http.Client
}

// NewPrimaryProvider constructs the no-auth hourly-candle provider.
func NewPrimaryProvider(baseURL string) *PrimaryProvider {
	return &PrimaryProvider{baseURL: baseURL, client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *PrimaryProvider) Name() string { return "primary" }

func (p *PrimaryProvider) HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/candles/%s?interval=1h&days=%d", p.baseURL, symbol, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build primary request for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("primary provider %s: %w", symbol, herr.ErrConnectivity)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read primary response for %s: %w", symbol, herr.ErrConnectivity)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("primary provider %s returned %d: %w", symbol, resp.StatusCode, herr.ErrConnectivity)
	}
	var parsed struct {
		Candles []struct {
			Close float64 `json:"close"`
		} `json:"candles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode primary response for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	out := make([]float64, 0, len(parsed.Candles))
	for _, c := range parsed.Candles {
		if c.Close > 0 {
			out = append(out, c.Close)
		}
	}
	return out, nil
}

// SecondaryProvider is the wider-coverage, rate-limited daily-data fallback
// (§4.2 step 2): ≥0.5s spacing between calls, honouring HTTP 429.
type SecondaryProvider struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

// NewSecondaryProvider constructs the rate-limited daily-data fallback.
func NewSecondaryProvider(baseURL string) *SecondaryProvider {
	return &SecondaryProvider{baseURL: baseURL, client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *SecondaryProvider) Name() string { return "secondary" }

func (p *SecondaryProvider) throttle(ctx context.Context) error {
	p.mu.Lock()
	wait := 500*time.Millisecond - time.Since(p.lastCall)
	p.mu.Unlock()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	p.lastCall = time.Now()
	p.mu.Unlock()
	return nil
}

func (p *SecondaryProvider) HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	if err := p.throttle(ctx); err != nil {
		return nil, fmt.Errorf("secondary provider throttle %s: %w", symbol, herr.ErrTimeout)
	}
	url := fmt.Sprintf("%s/v1/daily/%s?days=%d", p.baseURL, symbol, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build secondary request for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secondary provider %s: %w", symbol, herr.ErrConnectivity)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("secondary provider rate limited for %s: %w", symbol, herr.ErrRateLimited)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read secondary response for %s: %w", symbol, herr.ErrConnectivity)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secondary provider %s returned %d: %w", symbol, resp.StatusCode, herr.ErrConnectivity)
	}
	var parsed struct {
		Prices []float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode secondary response for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	out := make([]float64, 0, len(parsed.Prices))
	for _, p := range parsed.Prices {
		if p > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}
