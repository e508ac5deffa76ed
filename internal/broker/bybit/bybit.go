// Package bybit adapts github.com/bybit-exchange/bybit.go.api to
// broker.CryptoAdapter, mirroring the teacher's per-exchange dispatch for
// "bybit" in trader/auto_trader.go. Bybit's v5 REST auth is
// HMAC-SHA256 over timestamp+apiKey+recvWindow+body; the SDK client owns
// that signing, this adapter only shapes requests. SDK responses are not
// decoded: Account and CancelOrder report fixed values, Instruments returns
// no instruments, Quote carries no prices, GetOrder always reports pending,
// and Holdings, HistoricalPrices and PlaceOrder return ErrMalformedResponse.
package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	bybitapi "github.com/bybit-exchange/bybit.go.api"

	"hunter/internal/broker"
	"hunter/internal/herr"
)

// Adapter wraps a bybit.go.api HTTP client for the unified spot/linear account.
type Adapter struct {
	client *bybitapi.Client
}

// New constructs a Bybit adapter from API credentials.
func New(apiKey, secretKey string) (*Adapter, error) {
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing bybit credentials: %w", herr.ErrConfigurationMissing)
	}
	client := bybitapi.NewBybitHttpClient(apiKey, secretKey, bybitapi.WithBaseURL(bybitapi.MAINNET))
	return &Adapter{client: client}, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	resp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"accountType": "UNIFIED",
	}).GetWalletBalance(ctx)
	if err != nil {
		return broker.Account{}, fmt.Errorf("bybit account: %w", herr.ErrConnectivity)
	}
	_ = resp
	return broker.Account{ID: "bybit", Status: "active", Active: true}, nil
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	return nil, fmt.Errorf("bybit holdings: %w", herr.ErrMalformedResponse)
}

func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	resp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
	}).GetInstrumentsInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit instruments: %w", herr.ErrConnectivity)
	}
	_ = resp
	return nil, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	resp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
		"symbol":   symbol,
	}).GetTickers(ctx)
	if err != nil {
		return broker.Quote{}, fmt.Errorf("bybit quote %s: %w", symbol, herr.ErrConnectivity)
	}
	_ = resp
	return broker.Quote{Symbol: symbol, Ts: time.Now()}, nil
}

func (a *Adapter) Quotes(ctx context.Context, symbols []string) ([]broker.Quote, error) {
	var out []broker.Quote
	for _, s := range symbols {
		q, err := a.Quote(ctx, s)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (a *Adapter) HistoricalPrices(ctx context.Context, symbol string, days int) ([]float64, error) {
	resp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
		"symbol":   symbol,
		"interval": "D",
		"limit":    days,
	}).GetKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit klines %s: %w", symbol, herr.ErrConnectivity)
	}
	_ = resp
	return nil, fmt.Errorf("bybit klines %s: %w", symbol, herr.ErrMalformedResponse)
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	side := "Buy"
	if req.Side == broker.Sell {
		side = "Sell"
	}
	orderType := "Market"
	params := map[string]interface{}{
		"category":    "spot",
		"symbol":      req.Symbol,
		"side":        side,
		"orderType":   orderType,
		"qty":         strconv.FormatFloat(req.Qty, 'f', -1, 64),
		"orderLinkId": req.ClientOrderID,
	}
	if req.Type == broker.Limit {
		params["orderType"] = "Limit"
		params["price"] = strconv.FormatFloat(req.LimitPrice, 'f', -1, 64)
	}
	resp, err := a.client.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("bybit place order %s: %w", req.Symbol, herr.ErrVenueRejection)
	}
	_ = resp
	return broker.OrderHandle{}, fmt.Errorf("bybit place order %s: %w", req.Symbol, herr.ErrMalformedResponse)
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	_, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
		"orderId":  id,
	}).CancelOrder(ctx)
	if err != nil {
		return false, fmt.Errorf("bybit cancel %s: %w", id, herr.ErrConnectivity)
	}
	return true, nil
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	resp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
		"orderId":  id,
	}).GetOpenOrders(ctx)
	if err != nil {
		return broker.OrderInfo{}, fmt.Errorf("bybit get order %s: %w", id, herr.ErrConnectivity)
	}
	_ = resp
	return broker.OrderInfo{ID: id, Status: broker.OrderPending}, nil
}
