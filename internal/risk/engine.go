// Package risk implements the fractional-Kelly sizing engine: the daily
// loss gate, position-count gate, stop/target calculation, and exit rule
// from §4.6. Grounded on the gate/threshold shape of
// other_examples/8014f6f2_RajChodisetti-Trading-app__internal-risk-manager.go
// (a RiskManagerConfig of named thresholds plus a DecisionResult envelope),
// adapted to the Kelly formulas spec.md names explicitly.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"hunter/internal/models"
)

// ClosedTrade is one historical trade used to update the empirical Kelly inputs.
type ClosedTrade struct {
	Entry   float64
	Exit    float64
	PnLPct  float64
	Date    time.Time
}

// Config bundles the per-agent risk tunables named in §4.6.
type Config struct {
	AllocatedCapital  float64
	StopLossPct       float64
	TakeProfitPct     float64
	MaxHold           time.Duration
	MaxPositions      int
	MaxPositionPct    float64
	KellyMultiplier   float64
	DailyLossLimitPct float64
	IsCrypto          bool // selects default win-rate prior and the 0.15/0.25 ceiling
}

// Engine is one agent's stateful risk engine: trade history plus daily PnL.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	history  []ClosedTrade
	dailyPnL map[string]float64 // date (YYYY-MM-DD) -> pnl
}

// New constructs a risk Engine for one agent.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, dailyPnL: make(map[string]float64)}
}

// RecordClosedTrade appends to history and updates the day's PnL bucket,
// per §4.8 step 4 ("update daily_pnl and Kelly history").
func (e *Engine) RecordClosedTrade(t ClosedTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, t)
	key := t.Date.UTC().Format("2006-01-02")
	e.dailyPnL[key] += t.PnLPct * e.cfg.AllocatedCapital
}

func (e *Engine) dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// DailyPnL returns the running PnL for the UTC day containing `at`.
func (e *Engine) DailyPnL(at time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyPnL[e.dayKey(at)]
}

// kellyMaxCeiling returns the venue-specific absolute ceiling (§4.6: 0.15
// crypto, 0.25 equities) independent of the configured max_position_pct.
func (e *Engine) kellyMaxCeiling() float64 {
	if e.cfg.IsCrypto {
		return 0.15
	}
	return 0.25
}

// KellyFraction computes the fractional-Kelly position-size fraction from
// the empirical win rate / average win / average loss in history, or the
// documented defaults when history is empty.
func (e *Engine) KellyFraction() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kellyFractionLocked()
}

func (e *Engine) kellyFractionLocked() float64 {
	p, w, l := e.empiricalInputsLocked()
	ceiling := e.cfg.MaxPositionPct
	if vc := e.kellyMaxCeiling(); vc < ceiling || ceiling == 0 {
		ceiling = vc
	}
	return KellyFraction(p, w, l, e.cfg.KellyMultiplier, ceiling)
}

// KellyFraction is the pure fractional-Kelly formula from §4.6/§8 S1:
// b = W/L, k = (b*p - (1-p)) / b, adjusted = k*multiplier clamped to
// [0, ceiling]. No edge (p=0.5, W=L) ⇒ 0, per §8's round-trip law.
func KellyFraction(winRate, avgWin, avgLoss, multiplier, ceiling float64) float64 {
	if avgLoss <= 0 {
		return 0
	}
	b := avgWin / avgLoss
	if b <= 0 {
		return 0
	}
	k := (b*winRate - (1 - winRate)) / b
	adjusted := k * multiplier
	if adjusted < 0 {
		adjusted = 0
	}
	if ceiling > 0 && adjusted > ceiling {
		adjusted = ceiling
	}
	return adjusted
}

// empiricalInputsLocked returns (win_rate, avg_win_pct, avg_loss_pct) from
// history, floored per §4.6, or the documented priors when history is empty.
func (e *Engine) empiricalInputsLocked() (p, w, l float64) {
	if len(e.history) == 0 {
		if e.cfg.IsCrypto {
			p = 0.45
		} else {
			p = 0.50
		}
		return p, e.cfg.TakeProfitPct, e.cfg.StopLossPct
	}

	var wins, losses int
	var sumWin, sumLoss float64
	for _, t := range e.history {
		if t.PnLPct >= 0 {
			wins++
			sumWin += t.PnLPct
		} else {
			losses++
			sumLoss += -t.PnLPct
		}
	}
	total := wins + losses
	if total == 0 {
		return 0.5, e.cfg.TakeProfitPct, e.cfg.StopLossPct
	}
	p = float64(wins) / float64(total)
	if wins > 0 {
		w = sumWin / float64(wins)
	} else {
		w = e.cfg.TakeProfitPct
	}
	if losses > 0 {
		l = sumLoss / float64(losses)
	} else {
		l = e.cfg.StopLossPct
	}
	if l < e.cfg.StopLossPct {
		l = e.cfg.StopLossPct
	}
	return p, w, l
}

// SizeResult is the sizing decision for one candidate entry.
type SizeResult struct {
	Quantity  float64
	Position  float64 // dollar amount
	Rejected  bool
	Reason    string
}

// SizePosition computes the Kelly/risk/cap-bounded position size and floors
// quantity to `qtyIncrement` (0 or negative means "no increment rounding").
func (e *Engine) SizePosition(symbol string, entryPrice, deployedCapital float64, openPositions int, stop float64, qtyIncrement float64) SizeResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if openPositions >= e.cfg.MaxPositions {
		return SizeResult{Rejected: true, Reason: fmt.Sprintf("open_positions %d >= max_positions %d", openPositions, e.cfg.MaxPositions)}
	}
	available := e.cfg.AllocatedCapital - deployedCapital
	if available <= 0 {
		return SizeResult{Rejected: true, Reason: "no available capital"}
	}
	if entryPrice <= 0 {
		return SizeResult{Rejected: true, Reason: "invalid entry price"}
	}

	k := e.kellyFractionLocked()
	kellyAmount := e.cfg.AllocatedCapital * k

	position := kellyAmount
	if stop > 0 && stop < entryPrice {
		riskPerUnit := (entryPrice - stop) / entryPrice
		if riskPerUnit > 0 {
			riskAmount := (e.cfg.AllocatedCapital * 0.02) / riskPerUnit
			position = math.Min(position, riskAmount)
		}
	}
	position = math.Min(position, e.cfg.AllocatedCapital*e.cfg.MaxPositionPct)
	position = math.Min(position, available)

	if position <= 0 {
		return SizeResult{Rejected: true, Reason: "sized position is non-positive"}
	}

	qty := position / entryPrice
	qty = FloorToIncrement(qty, qtyIncrement)
	if qty <= 0 {
		return SizeResult{Rejected: true, Reason: "quantity rounds to zero at venue increment"}
	}

	return SizeResult{Quantity: qty, Position: qty * entryPrice}
}

// FloorToIncrement floors qty down to the nearest multiple of increment
// using exact decimal-safe rounding (§4.7 precision contract). increment<=0
// means integer-share rounding (equities).
func FloorToIncrement(qty, increment float64) float64 {
	if increment <= 0 {
		return math.Floor(qty)
	}
	steps := math.Floor(qty/increment + 1e-9)
	if steps < 0 {
		steps = 0
	}
	return RoundDecimalPlaces(steps*increment, increment)
}

// RoundDecimalPlaces rounds v to the same number of decimal places as the
// increment carries, avoiding float accumulation noise (e.g. 0.1+0.2 style
// drift) after a floor-to-increment multiply.
func RoundDecimalPlaces(v, increment float64) float64 {
	places := decimalPlaces(increment)
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

func decimalPlaces(increment float64) int {
	for places := 0; places <= 12; places++ {
		scaled := increment * math.Pow(10, float64(places))
		if math.Abs(scaled-math.Round(scaled)) < 1e-6 {
			return places
		}
	}
	return 12
}

// GateStatus is the outcome of the daily-loss and position-count gates.
type GateStatus struct {
	CanOpenNew   bool
	DailyLossHit bool
	Reason       string
}

// CheckGate implements §4.6's daily loss gate: daily_pnl ≤ -allocated*limit
// disables trading for the day.
func (e *Engine) CheckGate(at time.Time) GateStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	dailyPnL := e.dailyPnL[e.dayKey(at)]
	limit := -e.cfg.AllocatedCapital * e.cfg.DailyLossLimitPct
	if dailyPnL <= limit {
		return GateStatus{CanOpenNew: false, DailyLossHit: true, Reason: "daily loss limit reached"}
	}
	return GateStatus{CanOpenNew: true}
}

// StopTarget is the computed exit levels for one entry.
type StopTarget struct {
	Stop   float64
	Target float64
}

// ComputeStopTarget implements §4.6: stop from pct or 2×ATR, target from
// pct or a 2.5:1 risk-reward multiple of the stop distance when a stop
// exists.
func (e *Engine) ComputeStopTarget(entry float64, atr float64) StopTarget {
	var stop float64
	if atr > 0 {
		stop = entry - 2*atr
	} else {
		stop = entry * (1 - e.cfg.StopLossPct)
	}

	var target float64
	if stop > 0 && stop < entry {
		target = entry + 2.5*(entry-stop)
	} else {
		target = entry * (1 + e.cfg.TakeProfitPct)
	}
	return StopTarget{Stop: stop, Target: target}
}

// ShouldExit implements §4.6's exit decision tree.
func ShouldExit(price, entry, stop, target float64, held time.Duration, maxHold time.Duration) (bool, models.ExitReason) {
	if stop > 0 && price <= stop {
		return true, models.ExitStopLoss
	}
	if target > 0 && price >= target {
		return true, models.ExitTakeProfit
	}
	if maxHold > 0 && held >= maxHold {
		return true, models.ExitMaxHoldTime
	}
	if entry > 0 {
		pnlPct := (price - entry) / entry
		if pnlPct > 0.15 && price <= entry*1.01 {
			return true, models.ExitTrailingStop
		}
	}
	return false, ""
}
