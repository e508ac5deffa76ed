// Package equities implements the socket-based options/stock broker
// adapter (§4.1 options-only operations), grounded on
// trader/alpaca_trader.go's request/response shape but carried over a
// persistent net.Conn with a read-pump goroutine instead of one-shot HTTP,
// since the spec calls this venue socket-based (an IB/TWS-gateway style
// client).
package equities

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"hunter/internal/broker"
	"hunter/internal/herr"
	"hunter/internal/logger"
)

type rpcRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Adapter is a persistent socket connection to a local gateway process
// (IB/TWS-style), implementing broker.EquitiesAdapter.
type Adapter struct {
	host     string
	port     int
	clientID string

	mu       sync.Mutex
	conn     net.Conn
	pending  map[int64]chan rpcResponse
	nextID   int64
	connected atomic.Bool
	log      *logger.Logger
}

// New constructs the equities socket adapter. Dial happens lazily in
// EnsureConnected so construction never blocks or fails on a down gateway.
func New(host string, port int, clientID string) *Adapter {
	return &Adapter{
		host:     host,
		port:     port,
		clientID: clientID,
		pending:  make(map[int64]chan rpcResponse),
		log:      logger.With("broker.equities"),
	}
}

// EnsureConnected dials the gateway if not already connected, a
// best-effort reconnect attempted once at the start of each cycle (§7).
func (a *Adapter) EnsureConnected(ctx context.Context) error {
	if a.connected.Load() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected.Load() {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", a.host, a.port)
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to equities gateway %s: %w", addr, herr.ErrConnectivity)
	}
	a.conn = conn
	a.connected.Store(true)
	go a.readPump(conn)
	a.log.Infof("connected to equities gateway at %s (client %s)", addr, a.clientID)
	return nil
}

// Connected reports the adapter's last-known socket state.
func (a *Adapter) Connected() bool { return a.connected.Load() }

// Disconnect closes the gateway socket; EnsureConnected will redial on the
// next call.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	a.connected.Store(false)
	return err
}

func (a *Adapter) readPump(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			a.log.Warnf("malformed frame from equities gateway: %v", err)
			continue
		}
		a.mu.Lock()
		ch, ok := a.pending[resp.ID]
		if ok {
			delete(a.pending, resp.ID)
		}
		a.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	a.connected.Store(false)
	a.log.Warnf("equities gateway connection closed")
}

func (a *Adapter) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := a.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, herr.ErrMalformedResponse)
	}

	a.mu.Lock()
	id := atomic.AddInt64(&a.nextID, 1)
	ch := make(chan rpcResponse, 1)
	a.pending[id] = ch
	conn := a.conn
	a.mu.Unlock()

	req := rpcRequest{ID: id, Method: method, Params: raw}
	payload, _ := json.Marshal(req)
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write to equities gateway: %w", herr.ErrConnectivity)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("equities gateway call %s: %w", method, herr.ErrTimeout)
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("equities gateway rejected %s: %s: %w", method, resp.Error, herr.ErrVenueRejection)
		}
		return resp.Result, nil
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("equities gateway call %s: %w", method, herr.ErrTimeout)
	}
}

func decodeInto[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if jerr := json.Unmarshal(raw, &out); jerr != nil {
		return out, fmt.Errorf("decode response: %w", herr.ErrMalformedResponse)
	}
	return out, nil
}

func (a *Adapter) Account(ctx context.Context) (broker.Account, error) {
	raw, err := a.call(ctx, "account", nil)
	return decodeInto[broker.Account](raw, err)
}

func (a *Adapter) Holdings(ctx context.Context) ([]broker.Holding, error) {
	raw, err := a.call(ctx, "holdings", nil)
	return decodeInto[[]broker.Holding](raw, err)
}

func (a *Adapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	raw, err := a.call(ctx, "instruments", nil)
	return decodeInto[[]broker.Instrument](raw, err)
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	raw, err := a.call(ctx, "quote", map[string]string{"symbol": symbol})
	return decodeInto[broker.Quote](raw, err)
}

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
	raw, err := a.call(ctx, "historicalPrices", map[string]interface{}{"symbol": symbol, "days": days})
	prices, err := decodeInto[[]float64](raw, err)
	if err != nil {
		return nil, err
	}
	if len(prices) < 20 {
		return nil, fmt.Errorf("insufficient history for %s: %w", symbol, herr.ErrMalformedResponse)
	}
	return prices, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	raw, err := a.call(ctx, "placeOrder", req)
	return decodeInto[broker.OrderHandle](raw, err)
}

func (a *Adapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	raw, err := a.call(ctx, "cancelOrder", map[string]string{"id": id})
	return decodeInto[bool](raw, err)
}

func (a *Adapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	raw, err := a.call(ctx, "getOrder", map[string]string{"id": id})
	return decodeInto[broker.OrderInfo](raw, err)
}

func (a *Adapter) OptionChain(ctx context.Context, symbol string) ([]broker.OptionContract, error) {
	raw, err := a.call(ctx, "optionChain", map[string]string{"symbol": symbol})
	return decodeInto[[]broker.OptionContract](raw, err)
}

func (a *Adapter) FindPutSpread(ctx context.Context, criteria broker.SpreadCriteria) (broker.SpreadQuote, error) {
	raw, err := a.call(ctx, "findPutSpread", criteria)
	return decodeInto[broker.SpreadQuote](raw, err)
}

func (a *Adapter) PlaceSpreadOrder(ctx context.Context, short, long broker.SpreadLeg, expiration, right string, qty int, limitPrice float64) (broker.OrderHandle, error) {
	params := map[string]interface{}{
		"short": short, "long": long, "expiration": expiration,
		"right": right, "qty": qty, "limit_price": limitPrice,
	}
	raw, err := a.call(ctx, "placeSpreadOrder", params)
	return decodeInto[broker.OrderHandle](raw, err)
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	raw, err := a.call(ctx, "cancelAllOrders", map[string]string{"symbol": symbol})
	return decodeInto[int](raw, err)
}
