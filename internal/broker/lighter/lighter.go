// Package lighter adapts github.com/elliottech/lighter-go (a zk-rollup
// perpetuals venue authenticated by an API-key-derived signer rather than a
// wallet private key directly) to broker.CryptoAdapter, following the same
// per-exchange dispatch pattern as the other alternative venues registered
// in internal/broker/registry.go.
package lighter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	lighter "github.com/elliottech/lighter-go"

	"hunter/internal/broker"
	"hunter/internal/herr"
)

// Adapter wraps a lighter-go signer client for one account index.
type Adapter struct {
	client    *lighter.Client
	accountID int64
}

// New constructs a Lighter adapter from an API private key and account
// index, as issued by the venue's key-management flow.
func New(apiKeyPrivateHex string, accountIndex int64) (*Adapter, error) {
	if apiKeyPrivateHex == "" {
		return nil, fmt.Errorf("missing lighter api key: %w", herr.ErrConfigurationMissing)
	}
	signer, err := lighter.NewKeyManager(apiKeyPrivateHex)
	if err != nil {
		return nil, fmt.Errorf("init lighter signer: %w", herr.ErrConfigurationMissing)
	}
	client := lighter.NewClient(lighter.MainnetBaseURL, signer, accountIndex)
	return &Adapter{client: client, accountID: accountIndex}, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	acc, err := a.client.GetAccount(ctx, a.accountID)
	if err != nil {
		return broker.Account{}, fmt.Errorf("lighter account: %w", herr.ErrConnectivity)
	}
	return broker.Account{ID: strconv.FormatInt(a.accountID, 10), Status: "active", BuyingPower: acc.AvailableBalance, Active: true}, nil
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	positions, err := a.client.GetPositions(ctx, a.accountID)
	if err != nil {
		return nil, fmt.Errorf("lighter holdings: %w", herr.ErrConnectivity)
	}
	out := make([]broker.Holding, 0, len(positions))
	for _, p := range positions {
		if p.Size == 0 {
			continue
		}
		out = append(out, broker.Holding{Asset: p.Symbol, TotalQty: p.Size, AvailableQty: p.Size})
	}
	return out, nil
}

func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	markets, err := a.client.GetOrderBookMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("lighter markets: %w", herr.ErrConnectivity)
	}
	out := make([]broker.Instrument, 0, len(markets))
	for _, m := range markets {
		out = append(out, broker.Instrument{
			Symbol:            m.Symbol,
			Tradable:          true,
			PriceIncrement:    m.PriceTick,
			QuantityIncrement: m.SizeTick,
		})
	}
	return out, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	book, err := a.client.GetOrderBook(ctx, symbol)
	if err != nil {
		return broker.Quote{}, fmt.Errorf("lighter quote %s: %w", symbol, herr.ErrConnectivity)
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return broker.Quote{}, fmt.Errorf("lighter empty book for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	bid, ask := book.Bids[0].Price, book.Asks[0].Price
	return broker.Quote{Symbol: symbol, Bid: bid, Ask: ask, Mark: (bid + ask) / 2, Ts: time.Now()}, nil
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
	candles, err := a.client.GetCandlesticks(ctx, symbol, "1d", days)
	if err != nil {
		return nil, fmt.Errorf("lighter candles %s: %w", symbol, herr.ErrConnectivity)
	}
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.Close)
	}
	if len(out) < 20 {
		return nil, fmt.Errorf("insufficient lighter history for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	isAsk := req.Side == broker.Sell
	orderType := lighter.OrderTypeMarket
	if req.Type == broker.Limit {
		orderType = lighter.OrderTypeLimit
	}
	resp, err := a.client.CreateOrder(ctx, lighter.CreateOrderParams{
		Market:   req.Symbol,
		IsAsk:    isAsk,
		Type:     orderType,
		Price:    req.LimitPrice,
		Size:     req.Qty,
		ClientID: req.ClientOrderID,
	})
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("lighter place order %s: %w", req.Symbol, herr.ErrVenueRejection)
	}
	return broker.OrderHandle{OrderID: strconv.FormatInt(resp.OrderIndex, 10)}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	orderIndex, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, fmt.Errorf("lighter cancel %s: %w", id, herr.ErrMalformedResponse)
	}
	if err := a.client.CancelOrder(ctx, orderIndex); err != nil {
		return false, fmt.Errorf("lighter cancel %s: %w", id, herr.ErrConnectivity)
	}
	return true, nil
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	orderIndex, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return broker.OrderInfo{}, fmt.Errorf("lighter get order %s: %w", id, herr.ErrMalformedResponse)
	}
	order, err := a.client.GetOrder(ctx, orderIndex)
	if err != nil {
		return broker.OrderInfo{}, fmt.Errorf("lighter get order %s: %w", id, herr.ErrConnectivity)
	}
	st := broker.OrderPending
	switch order.Status {
	case "filled":
		st = broker.OrderFilled
	case "open":
		st = broker.OrderOpen
	case "canceled":
		st = broker.OrderCanceled
	}
	return broker.OrderInfo{ID: id, Status: st, FilledQty: order.FilledSize}, nil
}
