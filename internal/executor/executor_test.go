package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/broker"
)

type fakeAdapter struct {
	instruments []broker.Instrument
	placed      []broker.OrderRequest
	fillAfter   int // calls to GetOrder before reporting filled; 0 = instant
	calls       int
	rejectPlace bool
	partialQty  float64 // FilledQty reported while the order is still open
}

func (f *fakeAdapter) Account(ctx context.Context) (broker.Account, error) { return broker.Account{}, nil }
func (f *fakeAdapter) Holdings(ctx context.Context) ([]broker.Holding, error) { return nil, nil }
func (f *fakeAdapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	return f.instruments, nil
}
func (f *fakeAdapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	return broker.Quote{Symbol: symbol, Mark: 65.12345}, nil
}
func (f *fakeAdapter) Quotes(ctx context.Context, symbols []string) ([]broker.Quote, error) {
	return nil, nil
}
func (f *fakeAdapter) HistoricalPrices(ctx context.Context, symbol string, days int) ([]float64, error) {
	return nil, nil
}

func (f *fakeAdapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	if f.rejectPlace {
		return broker.OrderHandle{}, assertErr
	}
	f.placed = append(f.placed, req)
	return broker.OrderHandle{OrderID: "order-1"}, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, id string) (bool, error) { return true, nil }

func (f *fakeAdapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	f.calls++
	if f.calls > f.fillAfter {
		price := 65.12
		return broker.OrderInfo{ID: id, Status: broker.OrderFilled, FilledQty: f.placed[len(f.placed)-1].Qty, FilledPrice: &price}, nil
	}
	return broker.OrderInfo{ID: id, Status: broker.OrderOpen, FilledQty: f.partialQty}, nil
}

var assertErr = assertError("place rejected")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestExecutorRoundsQuantityAndPrice(t *testing.T) {
	fa := &fakeAdapter{instruments: []broker.Instrument{
		{Symbol: "BTC-USD", QuantityIncrement: 1e-6, PriceIncrement: 0.01, Tradable: true},
	}}
	ex := New(fa)
	require.NoError(t, ex.LoadInstruments(context.Background()))

	r1 := ex.EnterBest(context.Background(), "BTC-USD", 0.1234567, 65.12345, Options{UseLimitOrders: true, PollInterval: time.Millisecond, OrderTimeout: time.Second})
	require.Equal(t, StatusFilled, r1.Status)

	r2 := ex.EnterBest(context.Background(), "BTC-USD", 0.1234567, 65.12345, Options{UseLimitOrders: true, PollInterval: time.Millisecond, OrderTimeout: time.Second})
	require.Equal(t, StatusFilled, r2.Status)

	require.Len(t, fa.placed, 2)
	assert.NotEqual(t, fa.placed[0].ClientOrderID, fa.placed[1].ClientOrderID)
	assert.InDelta(t, 0.123456, fa.placed[0].Qty, 1e-9)
	assert.InDelta(t, 0.123456, fa.placed[1].Qty, 1e-9)
	assert.Equal(t, fa.placed[0].LimitPrice, fa.placed[1].LimitPrice)
}

func TestExecutorRejectsZeroRoundedQuantity(t *testing.T) {
	fa := &fakeAdapter{instruments: []broker.Instrument{
		{Symbol: "SHIB-USD", QuantityIncrement: 1.0, Tradable: true},
	}}
	ex := New(fa)
	require.NoError(t, ex.LoadInstruments(context.Background()))

	r := ex.EnterBest(context.Background(), "SHIB-USD", 0.5, 0.00001, Options{})
	assert.Equal(t, StatusRejected, r.Status)
}

func TestExecutorRejectsExcludedStablecoinPair(t *testing.T) {
	fa := &fakeAdapter{}
	ex := New(fa)
	r := ex.EnterBest(context.Background(), "BTC-USDT", 1, 1, Options{})
	assert.Equal(t, StatusRejected, r.Status)
	assert.Empty(t, fa.placed)
}

func TestExecutorStopLossForcesMarketOrder(t *testing.T) {
	fa := &fakeAdapter{}
	ex := New(fa)
	r := ex.ExitPosition(context.Background(), "ETH-USD", 1, 3000, "stop_loss", Options{UseLimitOrders: true, PollInterval: time.Millisecond, OrderTimeout: time.Second})
	require.Equal(t, StatusFilled, r.Status)
	require.Len(t, fa.placed, 1)
	assert.Equal(t, broker.Market, fa.placed[0].Type)
}

func TestExecutorPartialFillCancelsRemainderAtTimeout(t *testing.T) {
	fa := &fakeAdapter{fillAfter: 1000, partialQty: 1}
	ex := New(fa)
	r := ex.EnterBest(context.Background(), "ETH-USD", 2, 3000, Options{PollInterval: time.Millisecond, OrderTimeout: 5 * time.Millisecond})
	assert.Equal(t, StatusPartiallyFilled, r.Status)
	assert.InDelta(t, 1.0, r.FilledQty, 1e-9)
}
