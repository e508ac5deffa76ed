// Package binance adapts github.com/adshao/go-binance/v2 to
// broker.CryptoAdapter, grounded on the teacher's per-exchange dispatch in
// trader/auto_trader.go's NewAutoTrader (config.Exchange == "binance").
// Only the spot surface is wired; this backend is an alternative to the
// spec's primary signed venue for operators who already hold Binance keys,
// and has no tests of its own — the risk/cycle logic is identical
// regardless of which CryptoAdapter is plugged in.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"

	"hunter/internal/broker"
	"hunter/internal/herr"
)

// Adapter wraps a go-binance/v2 client.
type Adapter struct {
	client *binancesdk.Client
}

// New constructs a Binance spot adapter from API credentials.
func New(apiKey, secretKey string) (*Adapter, error) {
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing binance credentials: %w", herr.ErrConfigurationMissing)
	}
	return &Adapter{client: binancesdk.NewClient(apiKey, secretKey)}, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	acc, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return broker.Account{}, fmt.Errorf("binance account: %w", herr.ErrConnectivity)
	}
	status := "active"
	if !acc.CanTrade {
		status = "restricted"
	}
	return broker.Account{ID: "binance", Status: status, Active: acc.CanTrade}, nil
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	acc, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance holdings: %w", herr.ErrConnectivity)
	}
	var out []broker.Holding
	for _, b := range acc.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		if free+locked == 0 {
			continue
		}
		out = append(out, broker.Holding{Asset: b.Asset, TotalQty: free + locked, AvailableQty: free, HeldQty: locked})
	}
	return out, nil
}

func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", herr.ErrConnectivity)
	}
	out := make([]broker.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		inst := broker.Instrument{Symbol: s.Symbol, Tradable: s.Status == "TRADING"}
		if f := s.LotSizeFilter(); f != nil {
			inst.QuantityIncrement, _ = strconv.ParseFloat(f.StepSize, 64)
			inst.MinOrderSize, _ = strconv.ParseFloat(f.MinQty, 64)
			inst.MaxOrderSize, _ = strconv.ParseFloat(f.MaxQty, 64)
		}
		if f := s.PriceFilter(); f != nil {
			inst.PriceIncrement, _ = strconv.ParseFloat(f.TickSize, 64)
		}
		out = append(out, inst)
	}
	return out, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	ticker, err := a.client.NewBookTickerService().Symbol(symbol).Do(ctx)
	if err != nil {
		return broker.Quote{}, fmt.Errorf("binance quote %s: %w", symbol, herr.ErrConnectivity)
	}
	bid, _ := strconv.ParseFloat(ticker.BidPrice, 64)
	ask, _ := strconv.ParseFloat(ticker.AskPrice, 64)
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
	klines, err := a.client.NewKlinesService().Symbol(symbol).Interval("1d").Limit(days).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, herr.ErrConnectivity)
	}
	out := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	if len(out) < 20 {
		return nil, fmt.Errorf("insufficient binance history for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	side := binancesdk.SideTypeBuy
	if req.Side == broker.Sell {
		side = binancesdk.SideTypeSell
	}
	orderType := binancesdk.OrderTypeMarket
	svc := a.client.NewCreateOrderService().Symbol(req.Symbol).Side(side).
		NewClientOrderID(req.ClientOrderID).Quantity(strconv.FormatFloat(req.Qty, 'f', -1, 64))
	if req.Type == broker.Limit {
		orderType = binancesdk.OrderTypeLimit
		svc = svc.Price(strconv.FormatFloat(req.LimitPrice, 'f', -1, 64)).
			TimeInForce(binancesdk.TimeInForceTypeGTC)
	}
	resp, err := svc.Type(orderType).Do(ctx)
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("binance place order %s: %w", req.Symbol, herr.ErrVenueRejection)
	}
	return broker.OrderHandle{OrderID: strconv.FormatInt(resp.OrderID, 10)}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	orderID, _ := strconv.ParseInt(id, 10, 64)
	_, err := a.client.NewCancelOrderService().OrderID(orderID).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("binance cancel %s: %w", id, herr.ErrConnectivity)
	}
	return true, nil
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	orderID, _ := strconv.ParseInt(id, 10, 64)
	resp, err := a.client.NewGetOrderService().OrderID(orderID).Do(ctx)
	if err != nil {
		return broker.OrderInfo{}, fmt.Errorf("binance get order %s: %w", id, herr.ErrConnectivity)
	}
	filledQty, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	return broker.OrderInfo{
		ID:        id,
		Status:    mapStatus(resp.Status),
		FilledQty: filledQty,
		UpdatedAt: time.UnixMilli(resp.UpdateTime),
	}, nil
}

func mapStatus(s binancesdk.OrderStatusType) broker.OrderStatus {
	switch s {
	case binancesdk.OrderStatusTypeFilled:
		return broker.OrderFilled
	case binancesdk.OrderStatusTypePartiallyFilled:
		return broker.OrderPartiallyFilled
	case binancesdk.OrderStatusTypeCanceled:
		return broker.OrderCanceled
	case binancesdk.OrderStatusTypeRejected:
		return broker.OrderRejected
	case binancesdk.OrderStatusTypeNew:
		return broker.OrderOpen
	default:
		return broker.OrderPending
	}
}
