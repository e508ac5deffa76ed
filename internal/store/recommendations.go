package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"hunter/internal/models"
)

// RecommendationRepo persists trade_recommendations rows. The orchestrator
// keeps the authoritative approval-gate state in recommendation.Store
// in-memory for low-latency approve/reject calls; this repo is the durable
// copy §6 lists. The API writes it after approve, reject and execute;
// expiries applied by recommendation.Store.Sweep are not written here.
type RecommendationRepo struct {
	db *sql.DB
}

// NewRecommendationRepo constructs a RecommendationRepo over an
// already-migrated database.
func NewRecommendationRepo(db *sql.DB) *RecommendationRepo { return &RecommendationRepo{db: db} }

// Save upserts a recommendation by id.
func (r *RecommendationRepo) Save(ctx context.Context, rec models.Recommendation) error {
	params, err := json.Marshal(rec.TradeParams)
	if err != nil {
		return fmt.Errorf("marshal trade params: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trade_recommendations (id, regime_type, qqq_price, vix, action, trade_params, reasoning,
			risk_assessment, status, expires_at, created_at, approved_at, rejected_at, executed_at, expired_at,
			rejection_reason, order_id, execution_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, approved_at = excluded.approved_at, rejected_at = excluded.rejected_at,
			executed_at = excluded.executed_at, expired_at = excluded.expired_at,
			rejection_reason = excluded.rejection_reason, order_id = excluded.order_id,
			execution_price = excluded.execution_price`,
		rec.ID, rec.RegimeType, rec.QQQPrice, rec.VIX, rec.Action, string(params), rec.Reasoning,
		rec.RiskAssessment, rec.Status, rec.ExpiresAt, rec.CreatedAt, rec.ApprovedAt, rec.RejectedAt,
		rec.ExecutedAt, rec.ExpiredAt, rec.RejectionReason, rec.OrderID, rec.ExecutionPrice)
	if err != nil {
		return fmt.Errorf("save recommendation: %w", err)
	}
	return nil
}

// List returns every recommendation, newest first.
func (r *RecommendationRepo) List(ctx context.Context) ([]models.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, regime_type, qqq_price, vix, action, trade_params, reasoning, risk_assessment, status,
			expires_at, created_at, approved_at, rejected_at, executed_at, expired_at, rejection_reason,
			order_id, execution_price
		FROM trade_recommendations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var params string
		if err := rows.Scan(&rec.ID, &rec.RegimeType, &rec.QQQPrice, &rec.VIX, &rec.Action, &params,
			&rec.Reasoning, &rec.RiskAssessment, &rec.Status, &rec.ExpiresAt, &rec.CreatedAt, &rec.ApprovedAt,
			&rec.RejectedAt, &rec.ExecutedAt, &rec.ExpiredAt, &rec.RejectionReason, &rec.OrderID, &rec.ExecutionPrice); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &rec.TradeParams); err != nil {
			return nil, fmt.Errorf("unmarshal trade params: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
