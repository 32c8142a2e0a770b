package refine

import (
	"context"
	"errors"
	"fmt"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/selection"
	"github.com/MorganMind/penrose/internal/store"
)

// TryAgain gives the caller a different suggestion for an existing run.
// It swaps to the best unshown passing candidate when one exists and only
// regenerates, with the next variation seed, when none does.
func (o *Orchestrator) TryAgain(ctx context.Context, runID string) (*Result, error) {
	run, err := o.store.GetRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run.Superseded {
		return nil, fmt.Errorf("%w: %s", ErrRunSuperseded, runID)
	}

	if idx, ok := selection.NextUnshown(run.Candidates); ok {
		if err := o.store.SwapSelection(ctx, run.ID, run.Candidates[idx].Index); err != nil {
			return nil, fmt.Errorf("swap selection: %w", err)
		}
		for i := range run.Candidates {
			run.Candidates[i].Selected = i == idx
			if i == idx {
				run.Candidates[i].Shown = true
			}
		}
		run.SelectedIndex = run.Candidates[idx].Index
		run.ReturnedOriginal = false

		o.logger.Info("try again reused candidate", "run", run.ID, "index", run.SelectedIndex)
		return resultFromRun(run, true), nil
	}

	if run.Attempt >= o.cfg.MaxAttemptsPerDocument {
		return nil, fmt.Errorf("%w: %d of %d", ErrAttemptsExhausted, run.Attempt, o.cfg.MaxAttemptsPerDocument)
	}

	req := Request{
		Text: run.OriginalText,
		Mode: run.Mode,
		Tenant: model.Tenant{
			UserID:     run.UserID,
			OrgID:      run.OrgID,
			DocumentID: run.DocumentID,
		},
	}
	next, err := o.run(ctx, req, run.VariationSeed+1, run.Attempt+1)
	if err != nil {
		return nil, err
	}
	return resultFromRun(next, false), nil
}
