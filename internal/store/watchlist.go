package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hunter/internal/models"
)

// WatchlistRepo persists watchlist rows, implementing
// hunterservice.WatchlistRepo.
type WatchlistRepo struct {
	db *sql.DB
}

// NewWatchlistRepo constructs a WatchlistRepo over an already-migrated database.
func NewWatchlistRepo(db *sql.DB) *WatchlistRepo { return &WatchlistRepo{db: db} }

// Watchlist returns every non-expired watchlist row for an agent.
func (r *WatchlistRepo) Watchlist(ctx context.Context, agentID string) ([]models.Watchlist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, agent_id, symbol, composite_score, trend_score, fundamental_score, momentum_score,
			entry_price, target_price, stop_loss, entry_trigger, status, analysis, created_at, updated_at
		FROM watchlist WHERE agent_id = ? AND status NOT IN (?, ?)`,
		agentID, models.WatchExpired, models.WatchRemoved)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var out []models.Watchlist
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpsertWatchlist inserts or replaces a watchlist row. When w is entering
// (or staying in) the watching status, it is keyed to the agent's existing
// watching row for that symbol, if any, rather than always inserting by a
// fresh id — otherwise every cycle would mint a new row for the same
// (agent, symbol) and violate the "at most one row per (agent, symbol,
// status=watching)" invariant (§3).
func (r *WatchlistRepo) UpsertWatchlist(ctx context.Context, w models.Watchlist) error {
	if w.Status == models.WatchWatching {
		var existingID string
		err := r.db.QueryRowContext(ctx, `
			SELECT id FROM watchlist WHERE agent_id = ? AND symbol = ? AND status = ?`,
			w.AgentID, w.Symbol, models.WatchWatching).Scan(&existingID)
		switch {
		case err == nil:
			w.ID = existingID
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("lookup existing watchlist row: %w", err)
		}
	}

	var agentKind string
	if err := r.db.QueryRowContext(ctx, `SELECT kind FROM agents WHERE id = ?`, w.AgentID).Scan(&agentKind); err != nil {
		return fmt.Errorf("lookup agent kind: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist (id, agent_id, kind, symbol, composite_score, trend_score, fundamental_score,
			momentum_score, entry_price, target_price, stop_loss, entry_trigger, status, analysis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			composite_score = excluded.composite_score, trend_score = excluded.trend_score,
			fundamental_score = excluded.fundamental_score, momentum_score = excluded.momentum_score,
			entry_price = excluded.entry_price, target_price = excluded.target_price, stop_loss = excluded.stop_loss,
			entry_trigger = excluded.entry_trigger, status = excluded.status, analysis = excluded.analysis,
			updated_at = excluded.updated_at`,
		w.ID, w.AgentID, watchlistKind(agentKind), w.Symbol, w.Scores.Composite, w.Scores.Trend, w.Scores.Fundamental,
		w.Scores.Momentum, w.EntryPrice, w.TargetPrice, w.StopLoss, w.EntryTrigger, w.Status, w.Analysis,
		w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert watchlist: %w", err)
	}
	return nil
}

// ExpireOlderThan marks every still-watching row created before cutoff as
// expired (§3's per-kind watchlist TTL).
func (r *WatchlistRepo) ExpireOlderThan(ctx context.Context, agentID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE watchlist SET status = ?, updated_at = ?
		WHERE agent_id = ? AND status = ? AND created_at < ?`,
		models.WatchExpired, cutoff, agentID, models.WatchWatching, cutoff)
	if err != nil {
		return fmt.Errorf("expire watchlist: %w", err)
	}
	return nil
}

// watchlistKind derives the persisted discriminator from the owning
// agent's kind, not from anything on the watchlist row itself — entry
// trigger is not a reliable stand-in for venue (manual adds happen on
// both venues).
func watchlistKind(agentKind string) string {
	if agentKind == string(models.KindCryptoHunter) {
		return "crypto"
	}
	return "equities"
}

func scanWatchlist(rows *sql.Rows) (models.Watchlist, error) {
	var w models.Watchlist
	if err := rows.Scan(&w.ID, &w.AgentID, &w.Symbol, &w.Scores.Composite, &w.Scores.Trend, &w.Scores.Fundamental,
		&w.Scores.Momentum, &w.EntryPrice, &w.TargetPrice, &w.StopLoss, &w.EntryTrigger, &w.Status, &w.Analysis,
		&w.CreatedAt, &w.UpdatedAt); err != nil {
		return models.Watchlist{}, fmt.Errorf("scan watchlist: %w", err)
	}
	return w, nil
}
