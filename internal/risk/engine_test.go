package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKellyFractionS1(t *testing.T) {
	// S1: allocated=10000, win_rate=0.6, W=0.20, L=0.08, multiplier=0.5, cap=0.25.
	f := KellyFraction(0.6, 0.20, 0.08, 0.5, 0.25)
	assert.InDelta(t, 0.22, f, 1e-9)
	assert.InDelta(t, 2200, f*10000, 1e-6)
}

func TestKellyFractionNoEdgeIsZero(t *testing.T) {
	// Round-trip law: Kelly(p=0.5, W=L) = 0.
	f := KellyFraction(0.5, 0.1, 0.1, 0.5, 0.25)
	assert.Equal(t, 0.0, f)
}

func TestKellyFractionZeroLossIsZero(t *testing.T) {
	f := KellyFraction(0.6, 0.2, 0, 0.5, 0.25)
	assert.Equal(t, 0.0, f)
}

func TestStopTargetS2(t *testing.T) {
	e := New(Config{StopLossPct: 0.08, TakeProfitPct: 0.20, AllocatedCapital: 10000})
	st := e.ComputeStopTarget(100, 0)
	assert.InDelta(t, 92.0, st.Stop, 1e-9)
	assert.InDelta(t, 120.0, st.Target, 1e-9)

	ok, reason := ShouldExit(91.99, 100, st.Stop, st.Target, time.Hour, 100*time.Hour)
	assert.True(t, ok)
	assert.Equal(t, "stop_loss", string(reason))

	ok, reason = ShouldExit(120.00, 100, st.Stop, st.Target, time.Hour, 100*time.Hour)
	assert.True(t, ok)
	assert.Equal(t, "take_profit", string(reason))
}

func TestDailyLossGateS3(t *testing.T) {
	e := New(Config{AllocatedCapital: 5000, DailyLossLimitPct: 0.05})
	now := time.Now()

	e.RecordClosedTrade(ClosedTrade{PnLPct: -250.00 / 5000, Date: now})
	status := e.CheckGate(now)
	assert.True(t, status.DailyLossHit)
	assert.False(t, status.CanOpenNew)
}

func TestDailyLossGateJustUnderLimitStillOpen(t *testing.T) {
	e := New(Config{AllocatedCapital: 5000, DailyLossLimitPct: 0.05})
	now := time.Now()
	e.RecordClosedTrade(ClosedTrade{PnLPct: -249.99 / 5000, Date: now})
	status := e.CheckGate(now)
	assert.False(t, status.DailyLossHit)
	assert.True(t, status.CanOpenNew)
}

func TestShouldExitMaxHoldTime(t *testing.T) {
	ok, reason := ShouldExit(101, 100, 90, 130, 100*time.Hour, 72*time.Hour)
	assert.True(t, ok)
	assert.Equal(t, "max_hold_time", string(reason))
}

func TestShouldExitTrailingStop(t *testing.T) {
	// The rule needs pnl_pct > 0.15 and price <= entry*1.01 at once.
	ok, reason := ShouldExit(100.5, 100, 80, 200, time.Hour, 1000*time.Hour)
	// price 100.5 is not >15% above entry so this must not fire.
	assert.False(t, ok)
	_ = reason

	// 100.9 is 18.7% above entry 85 but above 85*1.01 = 85.85, so this does
	// not fire either: any price >15% above entry is above entry*1.01.
	ok, reason = ShouldExit(100.9, 85, 70, 200, time.Hour, 1000*time.Hour)
	assert.False(t, ok)
	assert.Equal(t, "", string(reason))
}

func TestFloorToIncrementTinyIncrement(t *testing.T) {
	// quantity increment 1e-8: 1.234567891 rounds to 1.23456789.
	qty := FloorToIncrement(1.234567891, 1e-8)
	assert.InDelta(t, 1.23456789, qty, 1e-10)
}

func TestFloorToIncrementRoundsToZeroRejected(t *testing.T) {
	qty := FloorToIncrement(0.5e-9, 1e-8)
	assert.Equal(t, 0.0, qty)
}

func TestSizePositionRejectsAtMaxPositions(t *testing.T) {
	e := New(Config{AllocatedCapital: 10000, MaxPositions: 1, MaxPositionPct: 0.25, StopLossPct: 0.08, TakeProfitPct: 0.2})
	result := e.SizePosition("BTC-USD", 100, 0, 1, 90, 0.0001)
	assert.True(t, result.Rejected)
}

func TestSizePositionRejectsWhenNoAvailableCapital(t *testing.T) {
	e := New(Config{AllocatedCapital: 10000, MaxPositions: 5, MaxPositionPct: 0.25})
	result := e.SizePosition("BTC-USD", 100, 10000, 0, 90, 0.0001)
	assert.True(t, result.Rejected)
}

func TestSizePositionIntegerSharesForEquities(t *testing.T) {
	e := New(Config{AllocatedCapital: 100000, MaxPositions: 5, MaxPositionPct: 0.5, KellyMultiplier: 1, StopLossPct: 0.08, TakeProfitPct: 0.2})
	result := e.SizePosition("AAPL", 150.25, 0, 0, 138, 0) // increment 0 = integer shares
	require.False(t, result.Rejected)
	assert.Equal(t, result.Quantity, float64(int64(result.Quantity)))
}
