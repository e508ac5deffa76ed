// Package hyperliquid adapts github.com/sonirico/go-hyperliquid (wallet
// signing via github.com/ethereum/go-ethereum/crypto) to broker.CryptoAdapter,
// mirroring the per-exchange dispatch in trader/auto_trader.go. Hyperliquid
// authenticates requests with an ECDSA secp256k1 signature over the action
// payload rather than an API-key header, so New takes a hex private key
// instead of a key/secret pair.
package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	hl "github.com/sonirico/go-hyperliquid"

	"hunter/internal/broker"
	"hunter/internal/herr"
)

// Adapter wraps a go-hyperliquid exchange client keyed by an ECDSA wallet.
type Adapter struct {
	client  *hl.Client
	address string
}

// New constructs a Hyperliquid adapter from a hex-encoded secp256k1 private
// key (no 0x prefix required).
func New(privateKeyHex string, testnet bool) (*Adapter, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("missing hyperliquid private key: %w", herr.ErrConfigurationMissing)
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse hyperliquid private key: %w", herr.ErrConfigurationMissing)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	baseURL := hl.MainnetAPIURL
	if testnet {
		baseURL = hl.TestnetAPIURL
	}
	client := hl.NewClient(baseURL).WithWallet(key)
	return &Adapter{client: client, address: address}, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	state, err := a.client.UserState(ctx, a.address)
	if err != nil {
		return broker.Account{}, fmt.Errorf("hyperliquid account: %w", herr.ErrConnectivity)
	}
	buyingPower, _ := state.MarginSummary.AccountValue.Float64()
	return broker.Account{ID: a.address, Status: "active", BuyingPower: buyingPower, Active: true}, nil
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	state, err := a.client.UserState(ctx, a.address)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid holdings: %w", herr.ErrConnectivity)
	}
	out := make([]broker.Holding, 0, len(state.AssetPositions))
	for _, p := range state.AssetPositions {
		qty, _ := p.Position.Szi.Float64()
		if qty == 0 {
			continue
		}
		out = append(out, broker.Holding{Asset: p.Position.Coin, TotalQty: qty, AvailableQty: qty})
	}
	return out, nil
}

func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	meta, err := a.client.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid meta: %w", herr.ErrConnectivity)
	}
	out := make([]broker.Instrument, 0, len(meta.Universe))
	for _, u := range meta.Universe {
		out = append(out, broker.Instrument{
			Symbol:            u.Name,
			Tradable:          !u.IsDelisted,
			QuantityIncrement: 1.0 / pow10(u.SzDecimals),
		})
	}
	return out, nil
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	mids, err := a.client.AllMids(ctx)
	if err != nil {
		return broker.Quote{}, fmt.Errorf("hyperliquid quote %s: %w", symbol, herr.ErrConnectivity)
	}
	px, ok := mids[symbol]
	if !ok {
		return broker.Quote{}, fmt.Errorf("hyperliquid unknown symbol %s: %w", symbol, herr.ErrMalformedResponse)
	}
	mark, _ := px.Float64()
	return broker.Quote{Symbol: symbol, Mark: mark, Bid: mark, Ask: mark, Ts: time.Now()}, nil
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
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	candles, err := a.client.Candles(ctx, symbol, "1d", start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("hyperliquid candles %s: %w", symbol, herr.ErrConnectivity)
	}
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		close, err := c.Close.Float64()
		if err != nil {
			continue
		}
		out = append(out, close)
	}
	if len(out) < 20 {
		return nil, fmt.Errorf("insufficient hyperliquid history for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	isBuy := req.Side == broker.Buy
	orderType := hl.OrderType{Market: &hl.MarketOrderType{}}
	limitPx := req.LimitPrice
	if req.Type == broker.Limit {
		orderType = hl.OrderType{Limit: &hl.LimitOrderType{Tif: "Gtc"}}
	}
	resp, err := a.client.Order(ctx, hl.OrderRequest{
		Coin:       req.Symbol,
		IsBuy:      isBuy,
		Sz:         req.Qty,
		LimitPx:    limitPx,
		OrderType:  orderType,
		ReduceOnly: false,
		Cloid:      req.ClientOrderID,
	})
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("hyperliquid place order %s: %w", req.Symbol, herr.ErrVenueRejection)
	}
	return broker.OrderHandle{OrderID: fmt.Sprintf("%d", resp.Response.Data.Statuses[0].Resting.OID)}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	if err := a.client.CancelByCloid(ctx, id); err != nil {
		return false, fmt.Errorf("hyperliquid cancel %s: %w", id, herr.ErrConnectivity)
	}
	return true, nil
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	status, err := a.client.OrderStatus(ctx, a.address, id)
	if err != nil {
		return broker.OrderInfo{}, fmt.Errorf("hyperliquid get order %s: %w", id, herr.ErrConnectivity)
	}
	st := broker.OrderPending
	switch status.Order.Status {
	case "filled":
		st = broker.OrderFilled
	case "open":
		st = broker.OrderOpen
	case "canceled":
		st = broker.OrderCanceled
	}
	return broker.OrderInfo{ID: id, Status: st}, nil
}
