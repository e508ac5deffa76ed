package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MetricsRepo implements the periodic snapshot rollup named in §6's
// persistence list: one agent_metrics row per agent per tick, plus one
// system_metrics row aggregating across all agents. Grounded on
// metrics_service.py's snapshot-on-a-timer shape (SPEC_FULL supplement);
// the Prometheus gauges in internal/metrics stay the live view, this table
// is the queryable history behind them.
type MetricsRepo struct {
	db *sql.DB
}

// NewMetricsRepo constructs a MetricsRepo over an already-migrated database.
func NewMetricsRepo(db *sql.DB) *MetricsRepo { return &MetricsRepo{db: db} }

// AgentSnapshot is one agent's point-in-time performance summary.
type AgentSnapshot struct {
	AgentID       string
	Equity        float64
	OpenPositions int
	DailyPnL      float64
	WinRate       float64
}

// RecordAgent inserts one agent_metrics row.
func (r *MetricsRepo) RecordAgent(ctx context.Context, s AgentSnapshot, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_metrics (agent_id, equity, open_positions, daily_pnl, win_rate, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.AgentID, s.Equity, s.OpenPositions, s.DailyPnL, s.WinRate, at)
	if err != nil {
		return fmt.Errorf("record agent metrics: %w", err)
	}
	return nil
}

// RecordSystem inserts one system_metrics row aggregating across all agents.
func (r *MetricsRepo) RecordSystem(ctx context.Context, totalEquity float64, totalOpenPositions, activeAgents int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_metrics (total_equity, total_open_positions, active_agents, recorded_at)
		VALUES (?, ?, ?, ?)`,
		totalEquity, totalOpenPositions, activeAgents, at)
	if err != nil {
		return fmt.Errorf("record system metrics: %w", err)
	}
	return nil
}

// AgentHistory returns an agent's metric snapshots recorded since a cutoff,
// oldest first (GET /metrics/agent/{id}?hours=).
func (r *MetricsRepo) AgentHistory(ctx context.Context, agentID string, since time.Time) ([]AgentMetricPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT agent_id, equity, open_positions, daily_pnl, win_rate, recorded_at
		FROM agent_metrics WHERE agent_id = ? AND recorded_at >= ? ORDER BY recorded_at`, agentID, since)
	if err != nil {
		return nil, fmt.Errorf("query agent metrics: %w", err)
	}
	defer rows.Close()

	var out []AgentMetricPoint
	for rows.Next() {
		var p AgentMetricPoint
		if err := rows.Scan(&p.AgentID, &p.Equity, &p.OpenPositions, &p.DailyPnL, &p.WinRate, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan agent metrics: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AgentMetricPoint is one row of AgentHistory.
type AgentMetricPoint struct {
	AgentID       string
	Equity        float64
	OpenPositions int
	DailyPnL      float64
	WinRate       float64
	RecordedAt    time.Time
}

// SystemMetricPoint is one row of SystemHistory.
type SystemMetricPoint struct {
	TotalEquity        float64
	TotalOpenPositions int
	ActiveAgents       int
	RecordedAt         time.Time
}

// SystemHistory returns system-wide metric snapshots recorded since a
// cutoff, oldest first (GET /metrics/system?metric_name=&hours=).
func (r *MetricsRepo) SystemHistory(ctx context.Context, since time.Time) ([]SystemMetricPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT total_equity, total_open_positions, active_agents, recorded_at
		FROM system_metrics WHERE recorded_at >= ? ORDER BY recorded_at`, since)
	if err != nil {
		return nil, fmt.Errorf("query system metrics: %w", err)
	}
	defer rows.Close()

	var out []SystemMetricPoint
	for rows.Next() {
		var p SystemMetricPoint
		if err := rows.Scan(&p.TotalEquity, &p.TotalOpenPositions, &p.ActiveAgents, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan system metrics: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
