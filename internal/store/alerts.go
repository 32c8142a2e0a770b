package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MorganMind/penrose/internal/model"
)

// SaveDriftAlert appends a drift alert
func (s *Store) SaveDriftAlert(ctx context.Context, a model.DriftAlert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drift_alerts (id, user_id, kind, recent_mean, older_mean, recent_variance,
			older_variance, samples, model, prompt_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Kind), a.RecentMean, a.OlderMean, a.RecentVariance,
		a.OlderVariance, a.Samples, a.Model, a.PromptVersion, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert drift alert: %w", err)
	}
	return nil
}

// ListDriftAlerts returns a user's most recent alerts, newest first
func (s *Store) ListDriftAlerts(ctx context.Context, userID string, limit int) ([]model.DriftAlert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, recent_mean, older_mean, recent_variance, older_variance, samples,
			model, prompt_version, created_at
		 FROM drift_alerts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query drift alerts: %w", err)
	}
	defer rows.Close()

	var out []model.DriftAlert
	for rows.Next() {
		var (
			a                     model.DriftAlert
			kind                  string
			modelName, prompt, at sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &kind, &a.RecentMean, &a.OlderMean, &a.RecentVariance,
			&a.OlderVariance, &a.Samples, &modelName, &prompt, &at); err != nil {
			return nil, fmt.Errorf("scan drift alert: %w", err)
		}
		a.Kind = model.DriftKind(kind)
		a.Model = modelName.String
		a.PromptVersion = prompt.String
		if a.CreatedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
