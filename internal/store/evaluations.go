package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MorganMind/penrose/internal/model"
)

// SaveEvaluation writes a standalone evaluation
func (s *Store) SaveEvaluation(ctx context.Context, ev model.Evaluation) error {
	return insertEvaluation(ctx, s.db, ev)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvaluation(ctx context.Context, db execer, ev model.Evaluation) error {
	correction := ev.Correction
	ev.Correction = nil
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	var corr any
	if correction != nil {
		b, err := json.Marshal(correction)
		if err != nil {
			return fmt.Errorf("marshal correction: %w", err)
		}
		corr = string(b)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO evaluations (id, run_id, candidate_id, class, passed, body, correction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.RunID, ev.CandidateID, string(ev.Class), boolInt(ev.Passed), string(body), corr,
		formatTime(ev.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", ev.ID, err)
	}
	return nil
}

// GetEvaluation loads one evaluation including its correction outcome
func (s *Store) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	var (
		body       string
		correction sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT body, correction FROM evaluations WHERE id = ?`, id).
		Scan(&body, &correction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation %s: %w", id, err)
	}

	var ev model.Evaluation
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	if correction.Valid {
		ev.Correction = &model.CorrectionOutcome{}
		if err := json.Unmarshal([]byte(correction.String), ev.Correction); err != nil {
			return nil, fmt.Errorf("unmarshal correction: %w", err)
		}
	}
	return &ev, nil
}

// PatchEvaluationCorrection records the correction outcome on an evaluation exactly once
func (s *Store) PatchEvaluationCorrection(ctx context.Context, id string, c model.CorrectionOutcome) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal correction: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE evaluations SET correction = ? WHERE id = ? AND correction IS NULL`, string(b), id)
	if err != nil {
		return fmt.Errorf("patch evaluation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check evaluation %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrAlreadyPatched
}
