package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MorganMind/penrose/internal/model"
)

// SupersedeAndCreateRun marks the tenant's active run for the same document and mode
// as superseded and writes the new run with all candidates and evaluations, atomically
func (s *Store) SupersedeAndCreateRun(ctx context.Context, run *model.Run, evaluations []model.Evaluation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET superseded = 1
		 WHERE user_id = ? AND org_id = ? AND document_id = ? AND mode = ? AND superseded = 0`,
		run.UserID, run.OrgID, run.DocumentID, string(run.Mode))
	if err != nil {
		return fmt.Errorf("supersede runs: %w", err)
	}

	var profileConfidence any
	if run.ProfileConfidence != nil {
		profileConfidence = *run.ProfileConfidence
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, user_id, org_id, document_id, mode, original_text, variation_seed, attempt,
			selected_index, retry_triggered, initial_class, outcome, enforcement_active, returned_original,
			superseded, profile_id, profile_confidence, model, prompt_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.UserID, run.OrgID, run.DocumentID, string(run.Mode), run.OriginalText,
		run.VariationSeed, run.Attempt, run.SelectedIndex, boolInt(run.RetryTriggered),
		string(run.InitialEnforcementClass), string(run.EnforcementOutcome),
		boolInt(run.EnforcementActive), boolInt(run.ReturnedOriginal), boolInt(run.Superseded),
		run.ProfileID, profileConfidence, run.Model, run.PromptVersion, formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range run.Candidates {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO candidates (id, run_id, idx, phase, variation, text, semantic, stylistic, scope,
				combined, selection_score, class, passed, selected, shown, evaluation_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, run.ID, c.Index, string(c.Phase), c.Variation, c.Text,
			c.Scores.Semantic, c.Scores.Stylistic, c.Scores.Scope, c.Scores.Combined,
			c.SelectionScore, string(c.Class), boolInt(c.Passed), boolInt(c.Selected), boolInt(c.Shown),
			c.EvaluationID,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %d: %w", c.Index, err)
		}
	}

	for _, ev := range evaluations {
		if err := insertEvaluation(ctx, tx, ev); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun loads a run and its candidates ordered by index
func (s *Store) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var (
		run                                   model.Run
		mode, initial, outcome                string
		retry, active, returned, superseded   int
		profileID, modelName, prompt, created sql.NullString
		profileConfidence                     sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, document_id, mode, original_text, variation_seed, attempt,
			selected_index, retry_triggered, initial_class, outcome, enforcement_active, returned_original,
			superseded, profile_id, profile_confidence, model, prompt_version, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.UserID, &run.OrgID, &run.DocumentID, &mode, &run.OriginalText,
		&run.VariationSeed, &run.Attempt, &run.SelectedIndex, &retry, &initial, &outcome,
		&active, &returned, &superseded, &profileID, &profileConfidence, &modelName, &prompt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	run.Mode = model.Mode(mode)
	run.InitialEnforcementClass = model.EnforcementClass(initial)
	run.EnforcementOutcome = model.EnforcementOutcome(outcome)
	run.RetryTriggered = retry == 1
	run.EnforcementActive = active == 1
	run.ReturnedOriginal = returned == 1
	run.Superseded = superseded == 1
	run.ProfileID = profileID.String
	run.Model = modelName.String
	run.PromptVersion = prompt.String
	if profileConfidence.Valid {
		c := profileConfidence.Float64
		run.ProfileConfidence = &c
	}
	if run.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}

	run.Candidates, err = s.candidates(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) candidates(ctx context.Context, runID string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, idx, phase, variation, text, semantic, stylistic, scope, combined,
			selection_score, class, passed, selected, shown, evaluation_id
		 FROM candidates WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var (
			c                       model.Candidate
			phase, class            string
			passed, selected, shown int
			evalID                  sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.RunID, &c.Index, &phase, &c.Variation, &c.Text,
			&c.Scores.Semantic, &c.Scores.Stylistic, &c.Scores.Scope, &c.Scores.Combined,
			&c.SelectionScore, &class, &passed, &selected, &shown, &evalID); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Phase = model.Phase(phase)
		c.Class = model.EnforcementClass(class)
		c.Passed = passed == 1
		c.Selected = selected == 1
		c.Shown = shown == 1
		c.EvaluationID = evalID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// SwapSelection makes the candidate at index the run's selected and shown candidate
func (s *Store) SwapSelection(ctx context.Context, runID string, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE candidates SET selected = CASE WHEN idx = ? THEN 1 ELSE 0 END,
			shown = CASE WHEN idx = ? THEN 1 ELSE shown END
		 WHERE run_id = ?`, index, index, runID)
	if err != nil {
		return fmt.Errorf("update candidates: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET selected_index = ?, returned_original = 0 WHERE id = ?`, index, runID); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return tx.Commit()
}

// RecentObservations returns the selected candidates' scores of a user's most recent runs, oldest first
func (s *Store) RecentObservations(ctx context.Context, userID string, limit int) ([]model.DriftObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.semantic, c.stylistic, c.combined, r.profile_confidence, r.model, r.prompt_version, r.created_at
		 FROM runs r JOIN candidates c ON c.run_id = r.id AND c.selected = 1
		 WHERE r.user_id = ?
		 ORDER BY r.created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []model.DriftObservation
	for rows.Next() {
		var (
			o                     model.DriftObservation
			conf                  sql.NullFloat64
			modelName, prompt, at sql.NullString
		)
		if err := rows.Scan(&o.Semantic, &o.Stylistic, &o.Combined, &conf, &modelName, &prompt, &at); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Confidence = conf.Float64
		o.Model = modelName.String
		o.PromptVersion = prompt.String
		if o.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
