package store

import (
	"context"
	"database/sql"
	"fmt"

	"hunter/internal/models"
)

// PositionRepo persists positions and trades, implementing
// hunterservice.PositionRepo.
type PositionRepo struct {
	db *sql.DB
}

// NewPositionRepo constructs a PositionRepo over an already-migrated database.
func NewPositionRepo(db *sql.DB) *PositionRepo { return &PositionRepo{db: db} }

// OpenPositions returns every open position for an agent.
func (r *PositionRepo) OpenPositions(ctx context.Context, agentID string) ([]models.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, agent_id, symbol, side, quantity, entry_price, allocated_amount, stop_loss, take_profit,
			current_price, status, realized_pnl, unrealized_pnl, entry_reason, exit_reason, entry_order_id,
			exit_order_id, exit_price, created_at, closed_at
		FROM positions WHERE agent_id = ? AND status = ?`, agentID, models.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches one position by id.
func (r *PositionRepo) Get(ctx context.Context, id string) (models.Position, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, agent_id, symbol, side, quantity, entry_price, allocated_amount, stop_loss, take_profit,
			current_price, status, realized_pnl, unrealized_pnl, entry_reason, exit_reason, entry_order_id,
			exit_order_id, exit_price, created_at, closed_at
		FROM positions WHERE id = ?`, id)
	var p models.Position
	if err := row.Scan(&p.ID, &p.AgentID, &p.Symbol, &p.Side, &p.Quantity, &p.EntryPrice, &p.AllocatedAmount,
		&p.StopLoss, &p.TakeProfit, &p.CurrentPrice, &p.Status, &p.RealizedPnL, &p.UnrealizedPnL, &p.EntryReason,
		&p.ExitReason, &p.EntryOrderID, &p.ExitOrderID, &p.ExitPrice, &p.CreatedAt, &p.ClosedAt); err != nil {
		return models.Position{}, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// AllOpenPositions returns every open position across every agent, for the
// dashboard-wide GET /trades/open view.
func (r *PositionRepo) AllOpenPositions(ctx context.Context) ([]models.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, agent_id, symbol, side, quantity, entry_price, allocated_amount, stop_loss, take_profit,
			current_price, status, realized_pnl, unrealized_pnl, entry_reason, exit_reason, entry_order_id,
			exit_order_id, exit_price, created_at, closed_at
		FROM positions WHERE status = ?`, models.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePosition upserts a position by id.
func (r *PositionRepo) SavePosition(ctx context.Context, p models.Position) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (id, agent_id, kind, symbol, side, quantity, entry_price, allocated_amount,
			stop_loss, take_profit, current_price, status, realized_pnl, unrealized_pnl, entry_reason,
			exit_reason, entry_order_id, exit_order_id, exit_price, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quantity = excluded.quantity, current_price = excluded.current_price, status = excluded.status,
			realized_pnl = excluded.realized_pnl, unrealized_pnl = excluded.unrealized_pnl,
			exit_reason = excluded.exit_reason, exit_order_id = excluded.exit_order_id,
			exit_price = excluded.exit_price, closed_at = excluded.closed_at`,
		p.ID, p.AgentID, positionKind(p.Side), p.Symbol, p.Side, p.Quantity, p.EntryPrice, p.AllocatedAmount,
		p.StopLoss, p.TakeProfit, p.CurrentPrice, p.Status, p.RealizedPnL, p.UnrealizedPnL, p.EntryReason,
		p.ExitReason, p.EntryOrderID, p.ExitOrderID, p.ExitPrice, p.CreatedAt, p.ClosedAt)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// InsertTrade appends an immutable trade record.
func (r *PositionRepo) InsertTrade(ctx context.Context, t models.Trade) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades (id, agent_id, position_id, symbol, side, quantity, price, notional, fees,
			order_id, order_type, status, pnl, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentID, t.PositionID, t.Symbol, t.Side, t.Quantity, t.Price, t.Notional, t.Fees,
		t.OrderID, t.OrderType, t.Status, t.PnL, t.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// TradesForAgent returns an agent's trade history, newest first.
func (r *PositionRepo) TradesForAgent(ctx context.Context, agentID string, limit int) ([]models.Trade, error) {
	query := `SELECT id, agent_id, position_id, symbol, side, quantity, price, notional, fees, order_id,
		order_type, status, pnl, executed_at FROM trades WHERE agent_id = ? ORDER BY executed_at DESC`
	args := []interface{}{agentID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.AgentID, &t.PositionID, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.Notional, &t.Fees, &t.OrderID, &t.OrderType, &t.Status, &t.PnL, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllTrades returns trade history across every agent, newest first.
func (r *PositionRepo) AllTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	query := `SELECT id, agent_id, position_id, symbol, side, quantity, price, notional, fees, order_id,
		order_type, status, pnl, executed_at FROM trades ORDER BY executed_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.AgentID, &t.PositionID, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.Notional, &t.Fees, &t.OrderID, &t.OrderType, &t.Status, &t.PnL, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Stats summarizes closed-trade performance across every agent (§6:
// GET /trades/stats).
type Stats struct {
	TotalTrades int
	Wins        int
	Losses      int
	TotalPnL    float64
}

// TradeStats aggregates the trades table into a Stats snapshot.
func (r *PositionRepo) TradeStats(ctx context.Context) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0)
		FROM trades WHERE pnl IS NOT NULL`)
	var s Stats
	if err := row.Scan(&s.TotalTrades, &s.Wins, &s.Losses, &s.TotalPnL); err != nil {
		return Stats{}, fmt.Errorf("trade stats: %w", err)
	}
	return s, nil
}

// DailyPnL is one day's aggregated realized P&L, for the dashboard's
// /metrics/pnl-chart line.
type DailyPnL struct {
	Day   string
	PnL   float64
	Count int
}

// PnLByDay buckets closed trades into daily P&L totals over the trailing
// window, oldest first.
func (r *PositionRepo) PnLByDay(ctx context.Context, days int) ([]DailyPnL, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date(executed_at) AS day, COALESCE(SUM(pnl), 0), COUNT(*)
		FROM trades
		WHERE pnl IS NOT NULL AND executed_at >= date('now', ?)
		GROUP BY day ORDER BY day`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query pnl by day: %w", err)
	}
	defer rows.Close()

	var out []DailyPnL
	for rows.Next() {
		var d DailyPnL
		if err := rows.Scan(&d.Day, &d.PnL, &d.Count); err != nil {
			return nil, fmt.Errorf("scan pnl by day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TradesByType counts fills grouped by side (buy/sell), for the dashboard's
// /metrics/trades-by-type breakdown.
type TradesByType struct {
	Side  models.TradeSide
	Count int
}

func (r *PositionRepo) TradesByType(ctx context.Context) ([]TradesByType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT side, COUNT(*) FROM trades GROUP BY side`)
	if err != nil {
		return nil, fmt.Errorf("query trades by type: %w", err)
	}
	defer rows.Close()

	var out []TradesByType
	for rows.Next() {
		var t TradesByType
		if err := rows.Scan(&t.Side, &t.Count); err != nil {
			return nil, fmt.Errorf("scan trades by type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func positionKind(side models.PositionSide) string {
	if side == models.SideLong {
		return "crypto"
	}
	return "equities"
}

func scanPosition(rows *sql.Rows) (models.Position, error) {
	var p models.Position
	if err := rows.Scan(&p.ID, &p.AgentID, &p.Symbol, &p.Side, &p.Quantity, &p.EntryPrice, &p.AllocatedAmount,
		&p.StopLoss, &p.TakeProfit, &p.CurrentPrice, &p.Status, &p.RealizedPnL, &p.UnrealizedPnL, &p.EntryReason,
		&p.ExitReason, &p.EntryOrderID, &p.ExitOrderID, &p.ExitPrice, &p.CreatedAt, &p.ClosedAt); err != nil {
		return models.Position{}, fmt.Errorf("scan position: %w", err)
	}
	return p, nil
}
