package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hunter/internal/models"
)

// ActivityRepo persists agent_activities rows. GET /agents/{id}/activities
// reads it when the in-memory activity.Log has no entries for the agent.
// No code path calls Insert, so activity.Log entries are not copied here.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo constructs an ActivityRepo over an already-migrated database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Insert appends one activity row.
func (r *ActivityRepo) Insert(ctx context.Context, a models.Activity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_activities (id, agent_id, type, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.AgentID, a.Type, a.Message, a.Details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ForAgent returns an agent's activity history, newest first.
func (r *ActivityRepo) ForAgent(ctx context.Context, agentID string, limit int) ([]models.Activity, error) {
	query := `SELECT id, agent_id, type, message, details, created_at FROM agent_activities
		WHERE agent_id = ? ORDER BY created_at DESC`
	args := []interface{}{agentID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.AgentID, &a.Type, &a.Message, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes rows older than the retention floor (§3: 7 days).
func (r *ActivityRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agent_activities WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune activities: %w", err)
	}
	return res.RowsAffected()
}
