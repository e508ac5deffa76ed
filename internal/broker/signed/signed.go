// Package signed implements §4.1's primary crypto venue: a signed REST
// broker authenticated with an Ed25519 keypair over
// api_key‖timestamp‖path‖method‖body, rate-limited to ≤10 req/s and
// ≤1000 req/h. Grounded on trader/alpaca_trader.go's doRequest shape
// (build request, sign, decode JSON response) generalised from Alpaca's
// HMAC scheme to Ed25519.
package signed

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hunter/internal/broker"
	"hunter/internal/herr"
	"hunter/internal/logger"
)

// DecodeSeed pads a base64 seed to a multiple of 4 with '=' and decodes it
// into an Ed25519 private key, per §4.1's auth contract.
func DecodeSeed(b64Seed string) (ed25519.PrivateKey, error) {
	padded := b64Seed
	if rem := len(padded) % 4; rem != 0 {
		padded += string(bytes.Repeat([]byte{'='}, 4-rem))
	}
	seed, err := base64.StdEncoding.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 seed: %w: %v", herr.ErrAuthentication, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d: %w", ed25519.SeedSize, len(seed), herr.ErrAuthentication)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// rateLimiter enforces the venue's dual caps (≤10 req/s, ≤1000 req/h) by
// serialising bursts rather than trusting callers not to race.
type rateLimiter struct {
	mu        sync.Mutex
	perSecond []time.Time
	perHour   []time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{}
}

func (r *rateLimiter) wait() {
	for {
		r.mu.Lock()
		now := time.Now()
		r.perSecond = pruneOlderThan(r.perSecond, now.Add(-time.Second))
		r.perHour = pruneOlderThan(r.perHour, now.Add(-time.Hour))

		if len(r.perSecond) < 10 && len(r.perHour) < 1000 {
			r.perSecond = append(r.perSecond, now)
			r.perHour = append(r.perHour, now)
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
		time.Sleep(50 * time.Millisecond)
	}
}

func pruneOlderThan(ts []time.Time, cutoff time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// Adapter is the signed REST venue implementing broker.CryptoAdapter.
// DefaultBaseURL is used when the operator's environment doesn't override it.
const DefaultBaseURL = "https://api.hunter-exchange.example/v1"

type Adapter struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	privateKey ed25519.PrivateKey
	limiter    *rateLimiter
	log        *logger.Logger

	instrumentsMu sync.RWMutex
	instruments   []broker.Instrument
}

// New constructs a signed-venue adapter. privateKeyB64Seed is the base64
// seed produced by cmd/keygen.
func New(baseURL, apiKey, privateKeyB64Seed string) (*Adapter, error) {
	if apiKey == "" || privateKeyB64Seed == "" {
		return nil, fmt.Errorf("missing signed-venue credentials: %w", herr.ErrConfigurationMissing)
	}
	key, err := DecodeSeed(privateKeyB64Seed)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		privateKey: key,
		limiter:    newRateLimiter(),
		log:        logger.With("broker.signed"),
	}, nil
}

// sign builds the Ed25519 signature over api_key‖timestamp‖path‖method‖body.
func (a *Adapter) sign(timestamp, path, method string, body []byte) string {
	message := a.apiKey + timestamp + path + method + string(body)
	sig := ed25519.Sign(a.privateKey, []byte(message))
	return base64.StdEncoding.EncodeToString(sig)
}

func (a *Adapter) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	a.limiter.wait()

	var bodyBytes []byte
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", herr.ErrMalformedResponse)
		}
		bodyBytes = b
		reqBody = bytes.NewReader(b)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", herr.ErrConnectivity)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("x-timestamp", timestamp)
	req.Header.Set("x-signature", a.sign(timestamp, path, method, bodyBytes))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, herr.ErrConnectivity)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", herr.ErrConnectivity)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("signed venue rate limited: %w", herr.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("signed venue auth rejected: %w", herr.ErrAuthentication)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("signed venue server error %d: %w", resp.StatusCode, herr.ErrConnectivity)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("signed venue rejected request (%d): %s: %w", resp.StatusCode, string(respBody), herr.ErrVenueRejection)
	}
	return respBody, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, "/api/v1/accounts/", nil)
	if err != nil {
		return broker.Account{}, err
	}
	var out broker.Account
	if err := json.Unmarshal(raw, &out); err != nil {
		return broker.Account{}, fmt.Errorf("decode account: %w", herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, "/api/v1/holdings/", nil)
	if err != nil {
		return nil, err
	}
	var out []broker.Holding
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode holdings: %w", herr.ErrMalformedResponse)
	}
	return out, nil
}

// Instruments fetches and caches the tradable-pair metadata the executor
// needs for rounding; once populated it is read-only for the process
// lifetime (§5 shared-resource rules), refreshed only via Refresh.
func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	a.instrumentsMu.RLock()
	if a.instruments != nil {
		cached := a.instruments
		a.instrumentsMu.RUnlock()
		return cached, nil
	}
	a.instrumentsMu.RUnlock()
	return a.Refresh(ctx)
}

// Refresh forces a re-fetch of the instrument cache (admin request per §5).
func (a *Adapter) Refresh(ctx context.Context) ([]broker.Instrument, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, "/api/v1/trading_pairs/", nil)
	if err != nil {
		return nil, err
	}
	var out []broker.Instrument
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode instruments: %w", herr.ErrMalformedResponse)
	}
	a.instrumentsMu.Lock()
	a.instruments = out
	a.instrumentsMu.Unlock()
	return out, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, "/api/v1/marketdata/quotes/?symbol="+symbol, nil)
	if err != nil {
		return broker.Quote{}, err
	}
	var q broker.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return broker.Quote{}, fmt.Errorf("decode quote for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	return q, nil
}

// Quotes batches ≤10-symbol windows in parallel, isolating per-window
// failures so one bad batch doesn't poison the rest (§4.1, §7).
func (a *Adapter) Quotes(ctx context.Context, symbols []string) ([]broker.Quote, error) {
	const windowSize = 10
	var (
		mu      sync.Mutex
		results []broker.Quote
		wg      sync.WaitGroup
	)
	for start := 0; start < len(symbols); start += windowSize {
		end := start + windowSize
		if end > len(symbols) {
			end = len(symbols)
		}
		window := symbols[start:end]
		wg.Add(1)
		go func(syms []string) {
			defer wg.Done()
			for _, s := range syms {
				q, err := a.Quote(ctx, s)
				if err != nil {
					a.log.Warnf("quote failed for %s: %v", s, err)
					continue
				}
				mu.Lock()
				results = append(results, q)
				mu.Unlock()
			}
		}(window)
	}
	wg.Wait()
	return results, nil
}

func (a *Adapter) HistoricalPrices(ctx context.Context, symbol string, days int) ([]float64, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/marketdata/historical/?symbol=%s&days=%d", symbol, days), nil)
	if err != nil {
		return nil, err
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode historical prices for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	if len(out) < 20 {
		return nil, fmt.Errorf("insufficient history for %s (%d points): %w", symbol, len(out), herr.ErrMalformedResponse)
	}
	return out, nil
}

type marketOrderConfig struct {
	AssetQuantity string `json:"asset_quantity,omitempty"`
	QuoteAmount   string `json:"quote_amount,omitempty"`
}

type limitOrderConfig struct {
	AssetQuantity string `json:"asset_quantity"`
	LimitPrice    string `json:"limit_price"`
}

type placeOrderPayload struct {
	ClientOrderID    string             `json:"client_order_id"`
	Symbol           string             `json:"symbol"`
	Side             string             `json:"side"`
	Type             string             `json:"type"`
	TimeInForce      string             `json:"time_in_force,omitempty"`
	MarketOrderConfig *marketOrderConfig `json:"market_order_config,omitempty"`
	LimitOrderConfig  *limitOrderConfig  `json:"limit_order_config,omitempty"`
}

// FormatDecimal renders a quantity as a decimal string with no scientific
// notation and trailing zeros stripped, but without losing precision
// (§6's order-payload contract, §8's format_decimal idempotence law).
func FormatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	payload := placeOrderPayload{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Type:          string(req.Type),
		TimeInForce:   req.TimeInForce,
	}
	switch req.Type {
	case broker.Limit:
		payload.LimitOrderConfig = &limitOrderConfig{
			AssetQuantity: FormatDecimal(req.Qty),
			LimitPrice:    FormatDecimal(req.LimitPrice),
		}
	default:
		payload.MarketOrderConfig = &marketOrderConfig{AssetQuantity: FormatDecimal(req.Qty)}
	}

	raw, err := a.doRequest(ctx, http.MethodPost, "/api/v1/orders/", payload)
	if err != nil {
		return broker.OrderHandle{}, err
	}
	var out broker.OrderHandle
	if err := json.Unmarshal(raw, &out); err != nil {
		return broker.OrderHandle{}, fmt.Errorf("decode order handle: %w", herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	_, err := a.doRequest(ctx, http.MethodPost, "/api/v1/orders/"+id+"/cancel/", nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, "/api/v1/orders/"+id+"/", nil)
	if err != nil {
		return broker.OrderInfo{}, err
	}
	var out broker.OrderInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return broker.OrderInfo{}, fmt.Errorf("decode order %s: %w", id, herr.ErrMalformedResponse)
	}
	return out, nil
}
