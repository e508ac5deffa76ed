package store

import (
	"database/sql"
	"fmt"
)

// Migrate creates every table named in §6's persistence list if it does not
// already exist. crypto_positions/gem_positions and crypto_watchlist/
// gem_watchlist are normalized into one `positions`/`watchlist` table each
// with a `kind` discriminator column (crypto|equities) rather than four
// near-identical tables, since models.Position/models.Watchlist are already
// one shared Go type across both agent families — see DESIGN.md.
func Migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			config TEXT NOT NULL DEFAULT '{}',
			last_run_at DATETIME,
			last_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_runs (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			scanned INTEGER NOT NULL DEFAULT 0,
			analysed INTEGER NOT NULL DEFAULT 0,
			added INTEGER NOT NULL DEFAULT 0,
			executed INTEGER NOT NULL DEFAULT 0,
			closed INTEGER NOT NULL DEFAULT 0,
			errors TEXT NOT NULL DEFAULT '[]',
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_agent_id ON agent_runs(agent_id)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			kind TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			entry_price REAL NOT NULL,
			allocated_amount REAL NOT NULL,
			stop_loss REAL NOT NULL DEFAULT 0,
			take_profit REAL NOT NULL DEFAULT 0,
			current_price REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			realized_pnl REAL NOT NULL DEFAULT 0,
			unrealized_pnl REAL NOT NULL DEFAULT 0,
			entry_reason TEXT NOT NULL DEFAULT '',
			exit_reason TEXT NOT NULL DEFAULT '',
			entry_order_id TEXT NOT NULL DEFAULT '',
			exit_order_id TEXT NOT NULL DEFAULT '',
			exit_price REAL,
			created_at DATETIME NOT NULL,
			closed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_agent_status ON positions(agent_id, status)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			kind TEXT NOT NULL,
			symbol TEXT NOT NULL,
			composite_score REAL NOT NULL,
			trend_score REAL NOT NULL,
			fundamental_score REAL NOT NULL,
			momentum_score REAL NOT NULL,
			entry_price REAL NOT NULL,
			target_price REAL NOT NULL,
			stop_loss REAL NOT NULL,
			entry_trigger TEXT NOT NULL,
			status TEXT NOT NULL,
			analysis TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_agent_status ON watchlist(agent_id, status)`,
		// Enforces §3's "at most one row per (agent, symbol, status=watching)"
		// invariant at the schema level; WatchlistRepo.UpsertWatchlist also
		// looks up and reuses the existing watching row's id to avoid ever
		// hitting this constraint in the normal path.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_watchlist_agent_symbol_watching
			ON watchlist(agent_id, symbol) WHERE status = 'watching'`,
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			position_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			notional REAL NOT NULL,
			fees REAL NOT NULL DEFAULT 0,
			order_id TEXT NOT NULL DEFAULT '',
			order_type TEXT NOT NULL,
			status TEXT NOT NULL,
			pnl REAL,
			executed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_agent_id ON trades(agent_id)`,
		`CREATE TABLE IF NOT EXISTS regimes (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			qqq_price_at_start REAL NOT NULL,
			recovery_strike REAL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			active INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS trade_recommendations (
			id TEXT PRIMARY KEY,
			regime_type TEXT NOT NULL,
			qqq_price REAL NOT NULL,
			vix REAL NOT NULL,
			action TEXT NOT NULL,
			trade_params TEXT NOT NULL DEFAULT '{}',
			reasoning TEXT NOT NULL DEFAULT '',
			risk_assessment TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			approved_at DATETIME,
			rejected_at DATETIME,
			executed_at DATETIME,
			expired_at DATETIME,
			rejection_reason TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			execution_price REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS agent_activities (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_activities_agent_id ON agent_activities(agent_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS crypto_quote_cache (
			symbol TEXT PRIMARY KEY,
			mark REAL NOT NULL,
			bid REAL NOT NULL DEFAULT 0,
			ask REAL NOT NULL DEFAULT 0,
			fetched_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id TEXT NOT NULL REFERENCES agents(id),
			equity REAL NOT NULL,
			open_positions INTEGER NOT NULL,
			daily_pnl REAL NOT NULL,
			win_rate REAL NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_metrics_agent_id ON agent_metrics(agent_id, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS system_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			total_equity REAL NOT NULL,
			total_open_positions INTEGER NOT NULL,
			active_agents INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
