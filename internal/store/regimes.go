package store

import (
	"context"
	"database/sql"
	"fmt"

	"hunter/internal/models"
)

// RegimeRepo persists the market-regime history (§4.9).
type RegimeRepo struct {
	db *sql.DB
}

// NewRegimeRepo constructs a RegimeRepo over an already-migrated database.
func NewRegimeRepo(db *sql.DB) *RegimeRepo { return &RegimeRepo{db: db} }

// Insert appends a regime row (called once per transition by the caller
// wrapping regime.Controller, which owns the in-process state machine).
func (r *RegimeRepo) Insert(ctx context.Context, rg models.Regime) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO regimes (id, type, qqq_price_at_start, recovery_strike, started_at, ended_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rg.ID, rg.Type, rg.QQQPriceAtStart, rg.RecoveryStrike, rg.StartedAt, rg.EndedAt, boolToInt(rg.Active))
	if err != nil {
		return fmt.Errorf("insert regime: %w", err)
	}
	return nil
}

// EndActive marks the currently active regime row ended.
func (r *RegimeRepo) EndActive(ctx context.Context, id string, rg models.Regime) error {
	_, err := r.db.ExecContext(ctx, `UPDATE regimes SET active = 0, ended_at = ? WHERE id = ?`, rg.EndedAt, id)
	if err != nil {
		return fmt.Errorf("end regime: %w", err)
	}
	return nil
}

// History returns every regime, oldest first.
func (r *RegimeRepo) History(ctx context.Context) ([]models.Regime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, qqq_price_at_start, recovery_strike, started_at, ended_at, active
		FROM regimes ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("query regime history: %w", err)
	}
	defer rows.Close()

	var out []models.Regime
	for rows.Next() {
		var rg models.Regime
		var active int
		if err := rows.Scan(&rg.ID, &rg.Type, &rg.QQQPriceAtStart, &rg.RecoveryStrike, &rg.StartedAt, &rg.EndedAt, &active); err != nil {
			return nil, fmt.Errorf("scan regime: %w", err)
		}
		rg.Active = active != 0
		out = append(out, rg)
	}
	return out, rows.Err()
}
