// Package broker defines the uniform capability surface (§4.1) that every
// concrete venue adapter implements, grounded on the teacher's Trader
// interface in trader/auto_trader.go (one interface, multiple venue
// structs dispatched by config.Exchange).
package broker

import (
	"context"
	"time"
)

// Account is the venue's view of the trading account.
type Account struct {
	ID          string
	Status      string
	BuyingPower float64
	Active      bool
}

// Holding is one asset balance on the venue.
type Holding struct {
	Asset        string
	TotalQty     float64
	AvailableQty float64
	HeldQty      float64
	CostBasis    *float64
	MarketValue  *float64
}

// Instrument carries the rounding/tradability metadata the executor needs.
type Instrument struct {
	Symbol            string
	MinOrderSize      float64
	MaxOrderSize      float64
	PriceIncrement    float64
	QuantityIncrement float64
	Tradable          bool
}

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Mark   float64
	High   *float64
	Low    *float64
	Open   *float64
	Volume *float64
	Ts     time.Time
}

// Side is buy or sell.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderType is market or limit.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// OrderRequest is the uniform order payload across venues.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Qty           float64
	LimitPrice    float64
	TimeInForce   string
	ClientOrderID string
}

// OrderHandle is returned from a successful placeOrder call.
type OrderHandle struct {
	OrderID string
}

// OrderStatus is the venue-reported lifecycle of a submitted order.
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderOpen            OrderStatus = "open"
	OrderFilled          OrderStatus = "filled"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderCanceled        OrderStatus = "canceled"
	OrderRejected        OrderStatus = "rejected"
	OrderFailed          OrderStatus = "failed"
)

// IsTerminal reports whether the order will not transition further.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderRejected, OrderFailed:
		return true
	default:
		return false
	}
}

// OrderInfo is the polled state of a previously submitted order.
type OrderInfo struct {
	ID          string
	Status      OrderStatus
	FilledQty   float64
	FilledPrice *float64
	UpdatedAt   time.Time
}

// SpreadCriteria selects a two-leg put spread by delta/width (options-only).
type SpreadCriteria struct {
	Symbol       string
	TargetDelta  float64
	SpreadWidth  float64
	ExpirationDays int
}

// SpreadLeg is one leg of a found or placed credit spread.
type SpreadLeg struct {
	Strike     float64
	Expiration string
	Right      string // "put" or "call"
	Delta      float64
	Bid        float64
	Ask        float64
}

// SpreadQuote is a found short/long pair with estimated credit.
type SpreadQuote struct {
	Short           SpreadLeg
	Long            SpreadLeg
	EstimatedCredit float64
}

// CryptoAdapter is the capability surface for a 24/7 crypto venue.
type CryptoAdapter interface {
	Account(ctx context.Context) (Account, error)
	Holdings(ctx context.Context) ([]Holding, error)
	Instruments(ctx context.Context) ([]Instrument, error)
	Quote(ctx context.Context, symbol string) (Quote, error)
	Quotes(ctx context.Context, symbols []string) ([]Quote, error)
	HistoricalPrices(ctx context.Context, symbol string, days int) ([]float64, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderHandle, error)
	CancelOrder(ctx context.Context, id string) (bool, error)
	GetOrder(ctx context.Context, id string) (OrderInfo, error)
}

// OptionContract is one strike/expiration row in an option chain listing.
type OptionContract struct {
	Strike     float64
	Expiration string
	Right      string // "put" or "call"
	Bid        float64
	Ask        float64
	Delta      float64
	OpenInterest int
}

// EquitiesAdapter extends the surface with the options-only operations over
// a socket-based options/stock broker (§4.1).
type EquitiesAdapter interface {
	CryptoAdapter
	EnsureConnected(ctx context.Context) error
	Disconnect() error
	Connected() bool
	OptionChain(ctx context.Context, symbol string) ([]OptionContract, error)
	FindPutSpread(ctx context.Context, criteria SpreadCriteria) (SpreadQuote, error)
	PlaceSpreadOrder(ctx context.Context, short, long SpreadLeg, expiration, right string, qty int, limitPrice float64) (OrderHandle, error)
	CancelAllOrders(ctx context.Context, symbol string) (int, error)
}
