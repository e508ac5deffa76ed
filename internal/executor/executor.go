// Package executor wraps a broker.CryptoAdapter with fill semantics (§4.7):
// precision rounding against cached instrument metadata, entry/exit order
// type selection, a poll-until-filled loop, and partial-fill/cancel/retry
// handling. Grounded on trader/auto_trader.go's order-submission and
// polling loop, generalized from Alpaca-specific calls to the uniform
// broker.CryptoAdapter surface.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hunter/internal/broker"
	"hunter/internal/herr"
	"hunter/internal/logger"
	"hunter/internal/risk"
)

// excludedQuoteAssets are stablecoin quote pairs the executor refuses to
// enter (§4.7 step 1).
var excludedQuoteAssets = map[string]bool{
	"USDC": true, "USDT": true, "DAI": true, "BUSD": true, "TUSD": true,
}

// Status is the lifecycle of one execution attempt (§4.7's return record).
type Status string

const (
	StatusPending         Status = "pending"
	StatusSubmitted       Status = "submitted"
	StatusFilled          Status = "filled"
	StatusPartiallyFilled Status = "partially_filled"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
	StatusFailed          Status = "failed"
)

// Result is the uniform outcome of an entry or exit attempt.
type Result struct {
	Symbol       string
	Side         broker.Side
	Type         broker.OrderType
	RequestedQty float64
	FilledQty    float64
	FilledPrice  *float64
	Status       Status
	OrderID      string
	Message      string
	Ts           time.Time
}

// Options tunes the fill-wait loop.
type Options struct {
	OrderTimeout   time.Duration // default 60s
	PollInterval   time.Duration // default 2s
	LimitOffsetPct float64
	UseLimitOrders bool
}

func (o Options) withDefaults() Options {
	if o.OrderTimeout <= 0 {
		o.OrderTimeout = 60 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	return o
}

// Executor places and tracks orders against one venue adapter, rounding
// against the adapter's cached instrument metadata.
type Executor struct {
	adapter     broker.CryptoAdapter
	log         *logger.Logger
	instruments map[string]broker.Instrument
}

// New constructs an Executor; LoadInstruments must be called before any
// order is placed so quantity/price rounding has metadata to round against.
func New(adapter broker.CryptoAdapter) *Executor {
	return &Executor{adapter: adapter, log: logger.With("executor"), instruments: make(map[string]broker.Instrument)}
}

// LoadInstruments populates the rounding cache (§4.7: "must have
// instruments() cached"). Safe to call again to refresh at admin request.
func (ex *Executor) LoadInstruments(ctx context.Context) error {
	instruments, err := ex.adapter.Instruments(ctx)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	m := make(map[string]broker.Instrument, len(instruments))
	for _, inst := range instruments {
		m[inst.Symbol] = inst
	}
	ex.instruments = m
	return nil
}

// QuantityIncrement returns the cached venue increment for symbol, for
// callers (sizing) that need to floor a quantity before an order exists.
// Falls back to a crypto-fractional or equities-whole-share default when
// the instrument hasn't been loaded yet, rather than the zero value, which
// FloorToIncrement treats as "round to a whole unit" and would silently
// floor small-quantity crypto entries to zero.
func (ex *Executor) QuantityIncrement(symbol string, isCrypto bool) float64 {
	if inst, known := ex.instruments[symbol]; known && inst.QuantityIncrement > 0 {
		return inst.QuantityIncrement
	}
	if isCrypto {
		return 0.00000001
	}
	return 1
}

func isExcluded(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for asset := range excludedQuoteAssets {
		if strings.HasSuffix(upper, asset) {
			return true
		}
	}
	return false
}

// round applies the instrument's quantity/price increments, flooring
// quantity down and rounding price to the nearest increment.
func (ex *Executor) round(symbol string, qty, limitPrice float64) (roundedQty, roundedPrice float64, ok bool) {
	inst, known := ex.instruments[symbol]
	if !known {
		return qty, limitPrice, true
	}
	roundedQty = risk.FloorToIncrement(qty, inst.QuantityIncrement)
	if roundedQty <= 0 {
		return 0, 0, false
	}
	if limitPrice > 0 && inst.PriceIncrement > 0 {
		roundedPrice = risk.RoundDecimalPlaces(limitPrice, inst.PriceIncrement)
	} else {
		roundedPrice = limitPrice
	}
	return roundedQty, roundedPrice, true
}

// EnterBest places an entry order for symbol, choosing limit-above-mark or
// market per opts, then waits for a fill (§4.7 Entry).
func (ex *Executor) EnterBest(ctx context.Context, symbol string, qty, mark float64, opts Options) Result {
	return ex.execute(ctx, symbol, broker.Buy, qty, mark, "", opts)
}

// ExitPosition places an exit order for symbol; reason "stop_loss" forces
// a market order regardless of opts.UseLimitOrders (§4.7 Exit).
func (ex *Executor) ExitPosition(ctx context.Context, symbol string, qty, mark float64, reason string, opts Options) Result {
	return ex.execute(ctx, symbol, broker.Sell, qty, mark, reason, opts)
}

func (ex *Executor) execute(ctx context.Context, symbol string, side broker.Side, qty, mark float64, exitReason string, opts Options) Result {
	opts = opts.withDefaults()
	now := time.Now()

	if isExcluded(symbol) {
		return Result{Symbol: symbol, Side: side, Status: StatusRejected, Message: "symbol is an excluded stablecoin pair", Ts: now}
	}

	orderType := broker.Market
	limitPrice := 0.0
	isExit := exitReason != ""
	forceMarket := exitReason == "stop_loss"
	if opts.UseLimitOrders && !forceMarket {
		orderType = broker.Limit
		if side == broker.Buy {
			limitPrice = mark * (1 + opts.LimitOffsetPct)
		} else {
			limitPrice = mark * (1 - opts.LimitOffsetPct)
		}
	}

	roundedQty, roundedPrice, ok := ex.round(symbol, qty, limitPrice)
	if !ok {
		return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: qty, Status: StatusRejected, Message: "quantity rounds to zero at venue increment", Ts: now}
	}

	req := broker.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Qty:           roundedQty,
		LimitPrice:    roundedPrice,
		ClientOrderID: uuid.New().String(),
	}

	handle, err := ex.adapter.PlaceOrder(ctx, req)
	if err != nil {
		return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: roundedQty, Status: StatusFailed, Message: err.Error(), Ts: now}
	}

	result := ex.waitForFill(ctx, symbol, side, orderType, roundedQty, handle.OrderID, opts)

	if result.Status != StatusFilled && orderType == broker.Limit && isExit {
		ex.log.Warnf("%s limit order %s unfilled, retrying as market", symbol, handle.OrderID)
		retryReq := req
		retryReq.Type = broker.Market
		retryReq.LimitPrice = 0
		retryReq.ClientOrderID = uuid.New().String()
		retryHandle, err := ex.adapter.PlaceOrder(ctx, retryReq)
		if err != nil {
			return Result{Symbol: symbol, Side: side, Type: broker.Market, RequestedQty: roundedQty, Status: StatusFailed, Message: err.Error(), Ts: time.Now()}
		}
		return ex.waitForFill(ctx, symbol, side, broker.Market, roundedQty, retryHandle.OrderID, opts)
	}

	return result
}

func (ex *Executor) waitForFill(ctx context.Context, symbol string, side broker.Side, orderType broker.OrderType, requestedQty float64, orderID string, opts Options) Result {
	deadline := time.Now().Add(opts.OrderTimeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		info, err := ex.adapter.GetOrder(ctx, orderID)
		if err == nil {
			switch info.Status {
			case broker.OrderFilled:
				return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: requestedQty, FilledQty: info.FilledQty, FilledPrice: info.FilledPrice, Status: StatusFilled, OrderID: orderID, Ts: time.Now()}
			case broker.OrderRejected, broker.OrderFailed:
				return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: requestedQty, Status: StatusRejected, OrderID: orderID, Message: "venue rejected order", Ts: time.Now()}
			}
		}

		if time.Now().After(deadline) {
			return ex.cancelOnTimeout(ctx, symbol, side, orderType, requestedQty, orderID)
		}

		select {
		case <-ctx.Done():
			return ex.cancelOnTimeout(ctx, symbol, side, orderType, requestedQty, orderID)
		case <-ticker.C:
		}
	}
}

func (ex *Executor) cancelOnTimeout(ctx context.Context, symbol string, side broker.Side, orderType broker.OrderType, requestedQty float64, orderID string) Result {
	info, infoErr := ex.adapter.GetOrder(ctx, orderID)
	if infoErr == nil && info.FilledQty > 0 && info.FilledQty < requestedQty {
		_, _ = ex.adapter.CancelOrder(ctx, orderID)
		return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: requestedQty, FilledQty: info.FilledQty, FilledPrice: info.FilledPrice, Status: StatusPartiallyFilled, OrderID: orderID, Message: "partial fill, remainder cancelled at timeout", Ts: time.Now()}
	}
	cancelled, err := ex.adapter.CancelOrder(ctx, orderID)
	if err != nil || !cancelled {
		return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: requestedQty, Status: StatusFailed, OrderID: orderID, Message: fmt.Sprintf("fill wait timed out: %v", err), Ts: time.Now()}
	}
	return Result{Symbol: symbol, Side: side, Type: orderType, RequestedQty: requestedQty, Status: StatusCancelled, OrderID: orderID, Message: "no fill before order_timeout_seconds", Ts: time.Now()}
}

// Classify maps a Result's status to the herr taxonomy for the cycle summary.
func Classify(r Result) error {
	switch r.Status {
	case StatusFilled, StatusPartiallyFilled, StatusCancelled:
		return nil
	case StatusRejected:
		return fmt.Errorf("%s: %w", r.Message, herr.ErrVenueRejection)
	default:
		return fmt.Errorf("%s: %w", r.Message, herr.ErrConnectivity)
	}
}
