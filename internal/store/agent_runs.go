package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"hunter/internal/models"
)

// AgentRunRepo persists per-cycle summaries so GET /agents/{id}/runs has
// something to serve (SPEC_FULL supplement, grounded on agent_service.py).
type AgentRunRepo struct {
	db *sql.DB
}

// NewAgentRunRepo constructs an AgentRunRepo over an already-migrated database.
func NewAgentRunRepo(db *sql.DB) *AgentRunRepo { return &AgentRunRepo{db: db} }

// Insert stores a cycle's summary.
func (r *AgentRunRepo) Insert(ctx context.Context, agentID string, run models.AgentRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agent_runs (id, agent_id, scanned, analysed, added, executed, closed, errors, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, agentID, run.Scanned, run.Analysed, run.Added, run.Executed, run.Closed, string(errs),
		run.StartedAt, run.EndedAt)
	if err != nil {
		return fmt.Errorf("insert agent run: %w", err)
	}
	return nil
}

// ForAgent returns an agent's run history, newest first.
func (r *AgentRunRepo) ForAgent(ctx context.Context, agentID string, limit int) ([]models.AgentRun, error) {
	query := `SELECT id, agent_id, scanned, analysed, added, executed, closed, errors, started_at, ended_at
		FROM agent_runs WHERE agent_id = ? ORDER BY started_at DESC`
	args := []interface{}{agentID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agent runs: %w", err)
	}
	defer rows.Close()

	var out []models.AgentRun
	for rows.Next() {
		var run models.AgentRun
		var errs string
		if err := rows.Scan(&run.ID, &run.AgentID, &run.Scanned, &run.Analysed, &run.Added, &run.Executed,
			&run.Closed, &errs, &run.StartedAt, &run.EndedAt); err != nil {
			return nil, fmt.Errorf("scan agent run: %w", err)
		}
		if err := json.Unmarshal([]byte(errs), &run.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal run errors: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
