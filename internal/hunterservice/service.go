// Package hunterservice implements the per-agent cycle orchestration
// (§4.8): market-hours gate, risk gate, position management, candidate
// discovery, analysis, watchlist maintenance, and trade execution. Grounded
// on trader/auto_trader.go's single large run-loop method, split here into
// the cycle's named steps so crypto_hunter and gem_hunter share one
// sequence differing only in their CandidateSource and scoring weights.
package hunterservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hunter/internal/activity"
	"hunter/internal/analysis"
	"hunter/internal/broker"
	"hunter/internal/executor"
	"hunter/internal/herr"
	"hunter/internal/logger"
	"hunter/internal/marketdata"
	"hunter/internal/markethours"
	"hunter/internal/models"
	"hunter/internal/risk"
)

// CandidateSource enumerates and pre-filters the symbols a cycle should
// analyse (crypto: tradable pairs minus excludes; equities: the configured
// universe passed through a volume screen, with no market-cap floor).
type CandidateSource interface {
	Candidates(ctx context.Context) ([]string, error)
}

// Fundamentals supplies the per-symbol metrics FundamentalAnalyzer needs;
// crypto and equities agents each have their own data source for this.
type Fundamentals interface {
	Lookup(ctx context.Context, symbol string) (analysis.FundamentalInput, bool)
}

// PositionRepo is the subset of persistence hunterservice needs for
// positions; internal/store implements this against the database.
type PositionRepo interface {
	OpenPositions(ctx context.Context, agentID string) ([]models.Position, error)
	SavePosition(ctx context.Context, p models.Position) error
	InsertTrade(ctx context.Context, t models.Trade) error
}

// WatchlistRepo is the subset of persistence for watchlist rows.
type WatchlistRepo interface {
	Watchlist(ctx context.Context, agentID string) ([]models.Watchlist, error)
	UpsertWatchlist(ctx context.Context, w models.Watchlist) error
	ExpireOlderThan(ctx context.Context, agentID string, cutoff time.Time) error
}

// Weights are the composite-score blend for one agent kind (§4.8 step 6).
type Weights struct {
	Trend       float64
	Fundamental float64
	Momentum    float64
}

// Params bundles the per-cycle tunables sourced from the agent's decoded
// config.
type Params struct {
	AgentID             string
	IsCrypto            bool
	MaxWatchlist        int
	MinCompositeScore   float64
	EntryScoreThreshold float64
	ImmediateEntryScore float64 // equities-only; 0 disables
	MaxHold             time.Duration
	AutoTrade           bool
	WatchlistTTL        time.Duration
	ExecOptions         executor.Options
	Weights             Weights
}

// CycleSummary is §4.8 step 9's counters, persisted as an AgentRun.
type CycleSummary struct {
	Scanned  int
	Analysed int
	Added    int
	Executed int
	Closed   int
	Errors   []string
	Aborted  bool
	Reason   string
	Started  time.Time
	Ended    time.Time
}

// Service runs one agent's cycle against its broker adapter, risk engine,
// and persistence repos.
type Service struct {
	adapter    broker.CryptoAdapter
	gateway    *marketdata.Gateway
	riskEngine *risk.Engine
	exec       *executor.Executor
	positions  PositionRepo
	watchlist  WatchlistRepo
	candidates CandidateSource
	fundamentals Fundamentals
	activityLog *activity.Log
	log         *logger.Logger
}

// New constructs a Service wiring together one agent's dependencies.
func New(adapter broker.CryptoAdapter, gateway *marketdata.Gateway, riskEngine *risk.Engine, exec *executor.Executor, positions PositionRepo, watchlist WatchlistRepo, candidates CandidateSource, fundamentals Fundamentals, activityLog *activity.Log) *Service {
	return &Service{
		adapter: adapter, gateway: gateway, riskEngine: riskEngine, exec: exec,
		positions: positions, watchlist: watchlist, candidates: candidates,
		fundamentals: fundamentals, activityLog: activityLog,
		log: logger.With("hunterservice"),
	}
}

// RunCycle executes the full §4.8 sequence for one agent, isolating
// per-asset failures into the returned summary's Errors slice (§7
// propagation policy: one bad symbol never aborts the cycle).
func (s *Service) RunCycle(ctx context.Context, p Params, now time.Time) CycleSummary {
	summary := CycleSummary{Started: now}

	if !p.IsCrypto && !markethours.IsRegularSession(now) {
		s.activityLog.Record(p.AgentID, models.ActivityMarketClosed, "market is not in regular session", nil, now)
		summary.Aborted = true
		summary.Reason = "market_closed"
		summary.Ended = now
		return summary
	}

	s.activityLog.Record(p.AgentID, models.ActivityCycleBegin, "cycle started", nil, now)

	gate := s.riskEngine.CheckGate(now)
	if gate.DailyLossHit {
		s.activityLog.Errorf(p.AgentID, now, "daily loss gate: %s", gate.Reason)
		summary.Aborted = true
		summary.Reason = gate.Reason
		summary.Ended = now
		return summary
	}

	closed := s.manageOpenPositions(ctx, p, now, &summary)
	summary.Closed = closed

	candidates, err := s.candidates.Candidates(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("discover candidates: %v", err))
		summary.Ended = now
		return summary
	}
	summary.Scanned = len(candidates)

	scored := s.analyseCandidates(ctx, p, candidates, now, &summary)

	openPositions, err := s.positions.OpenPositions(ctx, p.AgentID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("load open positions: %v", err))
		openPositions = nil
	}

	s.updateWatchlist(ctx, p, scored, now, &summary)

	if p.AutoTrade && gate.CanOpenNew {
		summary.Executed = s.executeTrades(ctx, p, scored, openPositions, now, &summary)
	}

	s.activityLog.Record(p.AgentID, models.ActivityCycleEnd, "cycle complete", summary, now)
	summary.Ended = time.Now()
	return summary
}

type scoredCandidate struct {
	symbol    string
	price     float64
	trend     analysis.TrendAnalysis
	fund      analysis.FundamentalScore
	momentum  float64
	composite float64
}

func (s *Service) analyseCandidates(ctx context.Context, p Params, symbols []string, now time.Time, summary *CycleSummary) []scoredCandidate {
	var out []scoredCandidate
	for _, symbol := range symbols {
		quote, err := s.adapter.Quote(ctx, symbol)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: quote failed: %v", symbol, err))
			continue
		}
		series, err := s.gateway.Snapshot(ctx, symbol, 90, quote.Mark)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", symbol, err))
			continue
		}

		trend := analysis.Analyze(series)
		fundInput, haveFund := s.fundamentals.Lookup(ctx, symbol)
		fund := analysis.FundamentalScore{Composite: 50, MomentumPercentile: 50}
		if haveFund {
			fund = analysis.Fundamental(fundInput)
		}

		momentum := fund.MomentumPercentile
		composite := p.Weights.Trend*trend.Score + p.Weights.Fundamental*fund.Composite + p.Weights.Momentum*momentum
		summary.Analysed++

		if composite < p.MinCompositeScore {
			continue
		}
		out = append(out, scoredCandidate{symbol: symbol, price: quote.Mark, trend: trend, fund: fund, momentum: momentum, composite: composite})
	}
	return out
}

func entryTrigger(c scoredCandidate) models.EntryTrigger {
	switch {
	case c.composite >= 90:
		return models.TriggerImmediate
	case len(c.trend.Resistance) > 0 && c.price >= c.trend.Resistance[0]*0.98:
		return models.TriggerBreakout
	case len(c.trend.Support) > 0 && c.price <= c.trend.Support[0]*1.02:
		return models.TriggerPullback
	default:
		return models.TriggerVolumeSurge
	}
}

func (s *Service) updateWatchlist(ctx context.Context, p Params, scored []scoredCandidate, now time.Time, summary *CycleSummary) {
	topN := scored
	if p.MaxWatchlist > 0 && len(topN) > p.MaxWatchlist {
		topN = topN[:p.MaxWatchlist]
	}
	for _, c := range topN {
		st := s.riskEngine.ComputeStopTarget(c.price, 0)
		w := models.Watchlist{
			ID:     uuid.New().String(),
			AgentID: p.AgentID,
			Symbol:  c.symbol,
			Scores: models.Scores{Composite: c.composite, Trend: c.trend.Score, Fundamental: c.fund.Composite, Momentum: c.momentum},
			EntryPrice:   c.price,
			TargetPrice:  st.Target,
			StopLoss:     st.Stop,
			EntryTrigger: entryTrigger(c),
			Status:       models.WatchWatching,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.watchlist.UpsertWatchlist(ctx, w); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: upsert watchlist: %v", c.symbol, err))
			continue
		}
		summary.Added++
	}
	_ = s.watchlist.ExpireOlderThan(ctx, p.AgentID, now.Add(-p.WatchlistTTL))
}

func (s *Service) manageOpenPositions(ctx context.Context, p Params, now time.Time, summary *CycleSummary) int {
	positions, err := s.positions.OpenPositions(ctx, p.AgentID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("load open positions: %v", err))
		return 0
	}

	closed := 0
	for _, pos := range positions {
		quote, err := s.adapter.Quote(ctx, pos.Symbol)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: quote failed: %v", pos.Symbol, err))
			continue
		}
		pos.CurrentPrice = quote.Mark
		pos.UnrealizedPnL = (quote.Mark - pos.EntryPrice) * pos.Quantity

		held := now.Sub(pos.CreatedAt)
		shouldExit, reason := risk.ShouldExit(quote.Mark, pos.EntryPrice, pos.StopLoss, pos.TakeProfit, held, p.MaxHold)
		if !shouldExit {
			_ = s.positions.SavePosition(ctx, pos)
			continue
		}

		result := s.exec.ExitPosition(ctx, pos.Symbol, pos.Quantity, quote.Mark, string(reason), p.ExecOptions)
		if classifyErr := executor.Classify(result); classifyErr != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: exit failed: %v", pos.Symbol, classifyErr))
			continue
		}

		fillPrice := quote.Mark
		if result.FilledPrice != nil {
			fillPrice = *result.FilledPrice
		}
		realized := (fillPrice - pos.EntryPrice) * pos.Quantity
		pos.Status = models.PositionClosed
		pos.RealizedPnL = realized
		pos.ExitReason = reason
		pos.ExitPrice = &fillPrice
		closedAt := now
		pos.ClosedAt = &closedAt

		if err := s.positions.SavePosition(ctx, pos); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: save closed position: %v", pos.Symbol, err))
		}
		trade := models.Trade{
			ID: uuid.New().String(), AgentID: p.AgentID, PositionID: pos.ID, Symbol: pos.Symbol,
			Side: models.TradeSell, Quantity: result.FilledQty, Price: fillPrice, Notional: fillPrice * result.FilledQty,
			OrderID: result.OrderID, OrderType: models.OrderMarket, Status: string(result.Status), PnL: &realized, ExecutedAt: now,
		}
		if err := s.positions.InsertTrade(ctx, trade); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: insert trade: %v", pos.Symbol, err))
		}
		s.riskEngine.RecordClosedTrade(risk.ClosedTrade{Entry: pos.EntryPrice, Exit: fillPrice, PnLPct: realized / pos.AllocatedAmount, Date: now})
		s.activityLog.Record(p.AgentID, models.ActivityPositionClosed, fmt.Sprintf("%s closed: %s", pos.Symbol, reason), pos, now)
		closed++
	}
	return closed
}

func (s *Service) executeTrades(ctx context.Context, p Params, scored []scoredCandidate, openPositions []models.Position, now time.Time, summary *CycleSummary) int {
	threshold := p.EntryScoreThreshold
	executed := 0
	openCount := len(openPositions)
	var deployedCapital float64
	for _, pos := range openPositions {
		deployedCapital += pos.AllocatedAmount
	}
	for _, c := range scored {
		effectiveThreshold := threshold
		if p.ImmediateEntryScore > 0 && c.composite >= p.ImmediateEntryScore {
			effectiveThreshold = p.ImmediateEntryScore
		}
		if c.composite < effectiveThreshold {
			continue
		}

		quote, err := s.adapter.Quote(ctx, c.symbol)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: re-quote failed: %v", c.symbol, err))
			continue
		}

		st := s.riskEngine.ComputeStopTarget(quote.Mark, 0)
		qtyIncrement := s.exec.QuantityIncrement(c.symbol, p.IsCrypto)
		size := s.riskEngine.SizePosition(c.symbol, quote.Mark, deployedCapital, openCount+executed, st.Stop, qtyIncrement)
		if size.Rejected {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: sizing rejected: %s", c.symbol, size.Reason))
			if size.Reason != "" && (errIsMaxPositions(size.Reason)) {
				break
			}
			continue
		}

		result := s.exec.EnterBest(ctx, c.symbol, size.Quantity, quote.Mark, p.ExecOptions)
		if classifyErr := executor.Classify(result); classifyErr != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: entry failed: %v", c.symbol, classifyErr))
			continue
		}
		if result.Status != executor.StatusFilled && result.Status != executor.StatusPartiallyFilled {
			continue
		}

		fillPrice := quote.Mark
		if result.FilledPrice != nil {
			fillPrice = *result.FilledPrice
		}
		pos := models.Position{
			ID: uuid.New().String(), AgentID: p.AgentID, Symbol: c.symbol, Side: models.SideLong,
			Quantity: result.FilledQty, EntryPrice: fillPrice, AllocatedAmount: size.Position,
			StopLoss: st.Stop, TakeProfit: st.Target, CurrentPrice: fillPrice, Status: models.PositionOpen,
			EntryReason: string(entryTrigger(c)), EntryOrderID: result.OrderID, CreatedAt: now,
		}
		if err := s.positions.SavePosition(ctx, pos); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: save position: %v", c.symbol, err))
			continue
		}
		trade := models.Trade{
			ID: uuid.New().String(), AgentID: p.AgentID, PositionID: pos.ID, Symbol: c.symbol,
			Side: models.TradeBuy, Quantity: result.FilledQty, Price: fillPrice, Notional: fillPrice * result.FilledQty,
			OrderID: result.OrderID, OrderType: models.OrderMarket, Status: string(result.Status), ExecutedAt: now,
		}
		_ = s.positions.InsertTrade(ctx, trade)
		s.activityLog.Record(p.AgentID, models.ActivityPositionOpened, fmt.Sprintf("%s entered at %.4f", c.symbol, fillPrice), pos, now)
		deployedCapital += pos.AllocatedAmount
		executed++
	}
	return executed
}

func errIsMaxPositions(reason string) bool {
	return len(reason) >= len("open_positions") && reason[:len("open_positions")] == "open_positions"
}

// CycleError classifies a cycle-level failure for the HTTP layer (§7).
func CycleError(summary CycleSummary) error {
	if summary.Aborted {
		return fmt.Errorf("%s: %w", summary.Reason, herr.ErrInvariantViolation)
	}
	return nil
}
