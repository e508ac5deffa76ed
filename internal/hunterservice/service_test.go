package hunterservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/activity"
	"hunter/internal/analysis"
	"hunter/internal/broker"
	"hunter/internal/executor"
	"hunter/internal/marketdata"
	"hunter/internal/models"
	"hunter/internal/risk"
)

type fakeAdapter struct {
	quoteErr map[string]error
	prices   map[string]float64
}

func (f *fakeAdapter) Account(ctx context.Context) (broker.Account, error) { return broker.Account{}, nil }
func (f *fakeAdapter) Holdings(ctx context.Context) ([]broker.Holding, error) { return nil, nil }
func (f *fakeAdapter) Instruments(ctx context.Context) ([]broker.Instrument, error) {
	return nil, nil
}
func (f *fakeAdapter) Quote(ctx context.Context, symbol string) (broker.Quote, error) {
	if err, ok := f.quoteErr[symbol]; ok {
		return broker.Quote{}, err
	}
	return broker.Quote{Symbol: symbol, Mark: f.prices[symbol]}, nil
}
func (f *fakeAdapter) Quotes(ctx context.Context, symbols []string) ([]broker.Quote, error) {
	return nil, nil
}
func (f *fakeAdapter) HistoricalPrices(ctx context.Context, symbol string, days int) ([]float64, error) {
	return nil, nil
}
func (f *fakeAdapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderHandle, error) {
	return broker.OrderHandle{OrderID: "order-" + req.Symbol}, nil
}
func (f *fakeAdapter) CancelOrder(ctx context.Context, id string) (bool, error) { return true, nil }
func (f *fakeAdapter) GetOrder(ctx context.Context, id string) (broker.OrderInfo, error) {
	price := 100.0
	return broker.OrderInfo{ID: id, Status: broker.OrderFilled, FilledQty: 1, FilledPrice: &price}, nil
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }
func (fakeProvider) HistoricalCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i%5)
	}
	return prices, nil
}

type fakeCandidates struct{ symbols []string }

func (f fakeCandidates) Candidates(ctx context.Context) ([]string, error) { return f.symbols, nil }

type fakeFundamentals struct{}

func (fakeFundamentals) Lookup(ctx context.Context, symbol string) (analysis.FundamentalInput, bool) {
	return analysis.FundamentalInput{}, false
}

type memPositions struct {
	mu     sync.Mutex
	open   map[string][]models.Position
	trades []models.Trade
}

func newMemPositions() *memPositions { return &memPositions{open: map[string][]models.Position{}} }

func (m *memPositions) OpenPositions(ctx context.Context, agentID string) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Position(nil), m.open[agentID]...), nil
}
func (m *memPositions) SavePosition(ctx context.Context, p models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.open[p.AgentID]
	for i, existing := range list {
		if existing.ID == p.ID {
			if p.Status != models.PositionOpen {
				m.open[p.AgentID] = append(list[:i], list[i+1:]...)
				return nil
			}
			list[i] = p
			return nil
		}
	}
	if p.Status == models.PositionOpen {
		m.open[p.AgentID] = append(list, p)
	}
	return nil
}
func (m *memPositions) InsertTrade(ctx context.Context, t models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

type memWatchlist struct {
	mu    sync.Mutex
	items map[string]models.Watchlist
}

func newMemWatchlist() *memWatchlist { return &memWatchlist{items: map[string]models.Watchlist{}} }

func (m *memWatchlist) Watchlist(ctx context.Context, agentID string) ([]models.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Watchlist
	for _, w := range m.items {
		if w.AgentID == agentID {
			out = append(out, w)
		}
	}
	return out, nil
}
func (m *memWatchlist) UpsertWatchlist(ctx context.Context, w models.Watchlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[w.ID] = w
	return nil
}
func (m *memWatchlist) ExpireOlderThan(ctx context.Context, agentID string, cutoff time.Time) error {
	return nil
}

func testParams(agentID string) Params {
	return Params{
		AgentID:             agentID,
		IsCrypto:            true,
		MaxWatchlist:        10,
		MinCompositeScore:   0,
		EntryScoreThreshold: 1000, // never auto-enters in this test
		MaxHold:             24 * time.Hour,
		AutoTrade:           false,
		WatchlistTTL:        48 * time.Hour,
		ExecOptions:         executor.Options{OrderTimeout: time.Second, PollInterval: time.Millisecond},
		Weights:             Weights{Trend: 0.5, Fundamental: 0.3, Momentum: 0.2},
	}
}

// TestCycleIsolatesPerSymbolErrors implements the cycle-isolation scenario:
// three symbols where the second's quote call fails; the cycle still
// completes, scans all three, analyses the other two, and surfaces no
// cycle-level error.
func TestCycleIsolatesPerSymbolErrors(t *testing.T) {
	adapter := &fakeAdapter{
		prices: map[string]float64{"AAA": 100, "CCC": 100},
		quoteErr: map[string]error{
			"BBB": errors.New("malformed response"),
		},
	}
	gateway := marketdata.New(fakeProvider{})
	riskEngine := risk.New(risk.Config{AllocatedCapital: 10000, MaxPositions: 8, MaxPositionPct: 0.15, StopLossPct: 0.08, TakeProfitPct: 0.2, DailyLossLimitPct: 0.05, IsCrypto: true})
	exec := executor.New(adapter)
	positions := newMemPositions()
	watchlist := newMemWatchlist()
	log := activity.New()

	svc := New(adapter, gateway, riskEngine, exec, positions, watchlist, fakeCandidates{symbols: []string{"AAA", "BBB", "CCC"}}, fakeFundamentals{}, log)

	summary := svc.RunCycle(context.Background(), testParams("crypto-1"), time.Now())

	assert.False(t, summary.Aborted)
	require.NoError(t, CycleError(summary))
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Analysed)
}

func TestCycleAbortsOnDailyLossGate(t *testing.T) {
	adapter := &fakeAdapter{prices: map[string]float64{"AAA": 100}}
	gateway := marketdata.New(fakeProvider{})
	riskEngine := risk.New(risk.Config{AllocatedCapital: 10000, MaxPositions: 8, MaxPositionPct: 0.15, StopLossPct: 0.08, TakeProfitPct: 0.2, DailyLossLimitPct: 0.05, IsCrypto: true})
	now := time.Now()
	riskEngine.RecordClosedTrade(risk.ClosedTrade{PnLPct: -0.10, Date: now})
	exec := executor.New(adapter)
	positions := newMemPositions()
	watchlist := newMemWatchlist()
	log := activity.New()

	svc := New(adapter, gateway, riskEngine, exec, positions, watchlist, fakeCandidates{symbols: []string{"AAA"}}, fakeFundamentals{}, log)

	summary := svc.RunCycle(context.Background(), testParams("crypto-1"), now)

	assert.True(t, summary.Aborted)
	assert.Error(t, CycleError(summary))
}

func TestCycleSkipsEquitiesOutsideRegularSession(t *testing.T) {
	adapter := &fakeAdapter{prices: map[string]float64{"AAA": 100}}
	gateway := marketdata.New(fakeProvider{})
	riskEngine := risk.New(risk.Config{AllocatedCapital: 10000, MaxPositions: 8, MaxPositionPct: 0.25, StopLossPct: 0.08, TakeProfitPct: 0.2, DailyLossLimitPct: 0.05})
	exec := executor.New(adapter)
	positions := newMemPositions()
	watchlist := newMemWatchlist()
	log := activity.New()

	svc := New(adapter, gateway, riskEngine, exec, positions, watchlist, fakeCandidates{symbols: []string{"AAA"}}, fakeFundamentals{}, log)

	p := testParams("gem-1")
	p.IsCrypto = false

	// 3am Eastern-ish UTC is outside regular session regardless of host tz
	// quirks around a fixed weekday.
	closed := time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)
	summary := svc.RunCycle(context.Background(), p, closed)

	assert.True(t, summary.Aborted)
	assert.Equal(t, "market_closed", summary.Reason)
}

// TestExecuteTradesRespectsDeployedCapitalAndQuantityIncrement covers two
// sizing bugs together: a high-priced crypto entry must not round to a
// zero quantity under the default venue increment, and capital already
// committed to an open position must reduce what a new entry can size
// into (§8's sum(allocated_amount) <= allocated_capital invariant).
func TestExecuteTradesRespectsDeployedCapitalAndQuantityIncrement(t *testing.T) {
	adapter := &fakeAdapter{prices: map[string]float64{"BTC-USD": 50000}}
	gateway := marketdata.New(fakeProvider{})
	riskEngine := risk.New(risk.Config{AllocatedCapital: 10000, MaxPositions: 8, MaxPositionPct: 0.15, StopLossPct: 0.08, TakeProfitPct: 0.2, DailyLossLimitPct: 0.05, IsCrypto: true})
	exec := executor.New(adapter)
	positions := newMemPositions()
	positions.open["crypto-1"] = []models.Position{{
		ID: "p0", AgentID: "crypto-1", Symbol: "ETH-USD", Quantity: 1, EntryPrice: 9500,
		AllocatedAmount: 9500, Status: models.PositionOpen, CreatedAt: time.Now(),
	}}
	watchlist := newMemWatchlist()
	log := activity.New()

	svc := New(adapter, gateway, riskEngine, exec, positions, watchlist, fakeCandidates{symbols: []string{"BTC-USD"}}, fakeFundamentals{}, log)

	p := testParams("crypto-1")
	p.AutoTrade = true
	p.EntryScoreThreshold = 0

	summary := svc.RunCycle(context.Background(), p, time.Now())
	require.Equal(t, 1, summary.Executed, "expected one executed entry, errors: %v", summary.Errors)

	open, err := positions.OpenPositions(context.Background(), "crypto-1")
	require.NoError(t, err)
	var newPos models.Position
	for _, pos := range open {
		if pos.Symbol == "BTC-USD" {
			newPos = pos
		}
	}
	assert.NotZero(t, newPos.Quantity, "BTC-USD entry should not round to a zero quantity")
	assert.Less(t, newPos.AllocatedAmount, 501.0, "new position must stay within the capital left after the existing $9500 position")
}
