package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hunter/internal/models"
)

// AgentRepo persists Agent rows.
type AgentRepo struct {
	db *sql.DB
}

// NewAgentRepo constructs an AgentRepo over an already-migrated database.
func NewAgentRepo(db *sql.DB) *AgentRepo { return &AgentRepo{db: db} }

// Create inserts a new agent.
func (r *AgentRepo) Create(ctx context.Context, a models.Agent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, kind, status, active, config, last_run_at, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Kind, a.Status, boolToInt(a.Active), a.Config, a.LastRunAt, a.LastError, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// Get fetches one agent by id.
func (r *AgentRepo) Get(ctx context.Context, id string) (models.Agent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, kind, status, active, config, last_run_at, last_error, created_at, updated_at
		FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// List returns every agent, optionally filtered to one kind (empty = all).
func (r *AgentRepo) List(ctx context.Context, kind models.AgentKind) ([]models.Agent, error) {
	query := `SELECT id, name, kind, status, active, config, last_run_at, last_error, created_at, updated_at FROM agents`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus transitions an agent's status and bumps updated_at.
func (r *AgentRepo) UpdateStatus(ctx context.Context, id string, status models.AgentStatus, lastError string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE agents SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, lastError, now, id)
	if err != nil {
		return fmt.Errorf("update agent status: %w", err)
	}
	return nil
}

// RecordRun stamps last_run_at after a completed cycle.
func (r *AgentRepo) RecordRun(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE agents SET last_run_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
	if err != nil {
		return fmt.Errorf("record agent run: %w", err)
	}
	return nil
}

// UpdateConfig overwrites an agent's name/config blob (PATCH /agents/{id}).
func (r *AgentRepo) UpdateConfig(ctx context.Context, id, name, config string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE agents SET name = ?, config = ?, updated_at = ? WHERE id = ?`,
		name, config, now, id)
	if err != nil {
		return fmt.Errorf("update agent config: %w", err)
	}
	return nil
}

// SetActive flips the active flag (pause/resume from the admin API).
func (r *AgentRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE agents SET active = ?, updated_at = ? WHERE id = ?`, boolToInt(active), now, id)
	if err != nil {
		return fmt.Errorf("set agent active: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (models.Agent, error) {
	var a models.Agent
	var active int
	var lastRunAt sql.NullTime
	if err := row.Scan(&a.ID, &a.Name, &a.Kind, &a.Status, &active, &a.Config, &lastRunAt, &a.LastError, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	a.Active = active != 0
	if lastRunAt.Valid {
		a.LastRunAt = &lastRunAt.Time
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
