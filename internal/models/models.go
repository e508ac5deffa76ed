// Package models holds the persistence-facing entities from the data model:
// Agent, Watchlist entry, Position, Trade, Regime, Recommendation, Activity.
package models

import "time"

// AgentStatus is the lifecycle state of an Agent.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentRunning AgentStatus = "running"
	AgentPaused  AgentStatus = "paused"
	AgentError   AgentStatus = "error"
	AgentStopped AgentStatus = "stopped"
)

// AgentKind distinguishes the three agent families.
type AgentKind string

const (
	KindCryptoHunter AgentKind = "crypto_hunter"
	KindGemHunter    AgentKind = "gem_hunter"
	KindOrchestrator AgentKind = "orchestrator"
)

// Agent is the identity and lifecycle record for one trading agent.
type Agent struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"` // unique
	Kind       AgentKind       `json:"kind"`
	Status     AgentStatus     `json:"status"`
	Active     bool            `json:"active"`
	Config     string          `json:"config"` // opaque JSON blob
	LastRunAt  *time.Time      `json:"last_run_at,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// EntryTrigger labels the condition that should convert a watchlist row
// into a live position.
type EntryTrigger string

const (
	TriggerImmediate   EntryTrigger = "immediate"
	TriggerBreakout    EntryTrigger = "breakout"
	TriggerPullback    EntryTrigger = "pullback"
	TriggerVolumeSurge EntryTrigger = "volume_surge"
	TriggerManual      EntryTrigger = "manual"
)

// WatchlistStatus is the lifecycle of a Watchlist entry.
type WatchlistStatus string

const (
	WatchWatching  WatchlistStatus = "watching"
	WatchTriggered WatchlistStatus = "triggered"
	WatchEntered   WatchlistStatus = "entered"
	WatchExpired   WatchlistStatus = "expired"
	WatchRemoved   WatchlistStatus = "removed"
)

// Scores bundles the per-dimension scores carried on a Watchlist entry.
type Scores struct {
	Composite   float64 `json:"composite"`
	Trend       float64 `json:"trend"`
	Fundamental float64 `json:"fundamental"`
	Momentum    float64 `json:"momentum"`
}

// Watchlist is a scored candidate that has not yet been entered.
type Watchlist struct {
	ID           string          `json:"id"`
	AgentID      string          `json:"agent_id"`
	Symbol       string          `json:"symbol"`
	Scores       Scores          `json:"scores"`
	EntryPrice   float64         `json:"entry_price"`
	TargetPrice  float64         `json:"target_price"`
	StopLoss     float64         `json:"stop_loss"`
	EntryTrigger EntryTrigger    `json:"entry_trigger"`
	Status       WatchlistStatus `json:"status"`
	Analysis     string          `json:"analysis,omitempty"` // JSON payload
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PositionSide distinguishes crypto (always long) from equities sides.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideStock PositionSide = "stock"
	SideCall  PositionSide = "call"
	SidePut   PositionSide = "put"
)

// PositionStatus is the lifecycle of a Position.
type PositionStatus string

const (
	PositionOpen       PositionStatus = "open"
	PositionClosed     PositionStatus = "closed"
	PositionStoppedOut PositionStatus = "stopped_out"
	PositionTargetHit  PositionStatus = "target_hit"
	PositionExpired    PositionStatus = "expired"
)

// ExitReason labels why a Position was closed.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTakeProfit   ExitReason = "take_profit"
	ExitMaxHoldTime  ExitReason = "max_hold_time"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitManual       ExitReason = "manual"
)

// Position is an open or closed holding for one agent.
type Position struct {
	ID              string         `json:"id"`
	AgentID         string         `json:"agent_id"`
	Symbol          string         `json:"symbol"`
	Side            PositionSide   `json:"side"`
	Quantity        float64        `json:"quantity"`
	EntryPrice      float64        `json:"entry_price"`
	AllocatedAmount float64        `json:"allocated_amount"`
	StopLoss        float64        `json:"stop_loss"`
	TakeProfit      float64        `json:"take_profit"`
	CurrentPrice    float64        `json:"current_price"`
	Status          PositionStatus `json:"status"`
	RealizedPnL     float64        `json:"realized_pnl"`
	UnrealizedPnL   float64        `json:"unrealized_pnl"`
	EntryReason     string         `json:"entry_reason"`
	ExitReason      ExitReason     `json:"exit_reason,omitempty"`
	EntryOrderID    string         `json:"entry_order_id,omitempty"`
	ExitOrderID     string         `json:"exit_order_id,omitempty"`
	ExitPrice       *float64       `json:"exit_price,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
}

// IsOpen satisfies the invariant check in §8: open ⇒ closed_at/exit_price nil.
func (p *Position) IsOpen() bool { return p.Status == PositionOpen }

// TradeSide is buy or sell.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// OrderType is market or limit.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Trade is an immutable record of one fill.
type Trade struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	PositionID string    `json:"position_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Side       TradeSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Notional   float64   `json:"notional"`
	Fees       float64   `json:"fees"`
	OrderID    string    `json:"order_id"`
	OrderType  OrderType `json:"order_type"`
	Status     string    `json:"status"`
	PnL        *float64  `json:"pnl,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// RegimeType is one of the four options-workflow market stances.
type RegimeType string

const (
	RegimeNormalBull       RegimeType = "normal_bull"
	RegimeDefenseTrigger   RegimeType = "defense_trigger"
	RegimeRecoveryMode     RegimeType = "recovery_mode"
	RegimeRecoveryComplete RegimeType = "recovery_complete"
)

// Regime is one entry in the market-regime state machine's history.
type Regime struct {
	ID                string     `json:"id"`
	Type              RegimeType `json:"type"`
	QQQPriceAtStart   float64    `json:"qqq_price_at_start"`
	RecoveryStrike    *float64   `json:"recovery_strike,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	Active            bool       `json:"active"`
}

// RecommendationAction is the options structure being proposed.
type RecommendationAction string

const (
	ActionOpenPutSpread  RecommendationAction = "open_put_spread"
	ActionClosePutSpread RecommendationAction = "close_put_spread"
	ActionOpenCallSpread RecommendationAction = "open_call_spread"
	ActionOpenLongCall   RecommendationAction = "open_long_call"
)

// RecommendationStatus is the approval-gate lifecycle.
type RecommendationStatus string

const (
	RecPending  RecommendationStatus = "pending"
	RecApproved RecommendationStatus = "approved"
	RecRejected RecommendationStatus = "rejected"
	RecExecuted RecommendationStatus = "executed"
	RecExpired  RecommendationStatus = "expired"
)

// TradeParams is the options-leg sizing payload carried on a Recommendation.
type TradeParams struct {
	Symbol           string  `json:"symbol"`
	ShortStrike      float64 `json:"short_strike"`
	LongStrike       float64 `json:"long_strike"`
	Expiration       string  `json:"expiration"` // YYYYMMDD
	Contracts        int     `json:"contracts"`
	EstimatedCredit  float64 `json:"estimated_credit,omitempty"`
	EstimatedDebit   float64 `json:"estimated_debit,omitempty"`
	MaxRisk          float64 `json:"max_risk"`
	MaxProfit        float64 `json:"max_profit"`
	ShortDelta       float64 `json:"short_delta"`
}

// Recommendation is a human-approval-gated trade proposal from the orchestrator.
type Recommendation struct {
	ID              string                `json:"id"`
	RegimeType      RegimeType            `json:"regime_type"`
	QQQPrice        float64               `json:"qqq_price"`
	VIX             float64               `json:"vix"`
	Action          RecommendationAction  `json:"action"`
	TradeParams     TradeParams           `json:"trade_params"`
	Reasoning       string                `json:"reasoning"`
	RiskAssessment  string                `json:"risk_assessment"`
	Status          RecommendationStatus  `json:"status"`
	ExpiresAt       time.Time             `json:"expires_at"`
	CreatedAt       time.Time             `json:"created_at"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	RejectedAt      *time.Time            `json:"rejected_at,omitempty"`
	ExecutedAt      *time.Time            `json:"executed_at,omitempty"`
	ExpiredAt       *time.Time            `json:"expired_at,omitempty"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	OrderID         string                `json:"order_id,omitempty"`
	ExecutionPrice  float64               `json:"execution_price,omitempty"`
}

// ActivityType enumerates the events an Agent can log.
type ActivityType string

const (
	ActivityCycleBegin       ActivityType = "cycle_begin"
	ActivityCycleEnd         ActivityType = "cycle_end"
	ActivityMarketClosed     ActivityType = "market_closed"
	ActivityTradeSignal      ActivityType = "trade_signal"
	ActivityOrderPlaced      ActivityType = "order_placed"
	ActivityOrderFilled      ActivityType = "order_filled"
	ActivityOrderCancelled   ActivityType = "order_cancelled"
	ActivityPositionOpened   ActivityType = "position_opened"
	ActivityPositionClosed   ActivityType = "position_closed"
	ActivityStopTriggered    ActivityType = "stop_triggered"
	ActivityTargetHit        ActivityType = "target_hit"
	ActivityError            ActivityType = "error"
	ActivityWarning          ActivityType = "warning"
	ActivityInfo             ActivityType = "info"
)

// Activity is one append-only structured log event, owned by an Agent.
type Activity struct {
	ID        string       `json:"id"`
	AgentID   string       `json:"agent_id"`
	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"` // JSON payload
	CreatedAt time.Time    `json:"created_at"`
}

// AgentRun persists one cycle's summary so §6's GET /agents/{id}/runs has
// something to serve (SPEC_FULL supplement, grounded on agent_service.py).
type AgentRun struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Scanned   int       `json:"scanned"`
	Analysed  int       `json:"analysed"`
	Added     int       `json:"added"`
	Executed  int       `json:"executed"`
	Closed    int       `json:"closed"`
	Errors    []string  `json:"errors"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}
