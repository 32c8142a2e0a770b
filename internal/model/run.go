package model

import (
	"fmt"
	"time"
)

// MaxCandidatesPerRun is the hard cap of candidates in one run (2 initial + 2 retry)
const MaxCandidatesPerRun = 4

// Phase tags when a candidate was generated
type Phase string

const (
	PhaseInitial          Phase = "initial"
	PhaseEnforcementRetry Phase = "enforcement_retry"
)

// Run groups one refinement request and its candidates
type Run struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	OrgID      string `json:"org_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Mode       Mode   `json:"mode"`

	OriginalText  string `json:"original_text"`
	VariationSeed int    `json:"variation_seed"`
	Attempt       int    `json:"attempt"` // 1 for the first refinement of a (document, mode)

	Candidates    []Candidate `json:"candidates"`
	SelectedIndex int         `json:"selected_index"`

	RetryTriggered          bool               `json:"retry_triggered"`
	InitialEnforcementClass EnforcementClass   `json:"initial_enforcement_class"`
	EnforcementOutcome      EnforcementOutcome `json:"enforcement_outcome"`
	EnforcementActive       bool               `json:"enforcement_active"`
	ReturnedOriginal        bool               `json:"returned_original"`
	Superseded              bool               `json:"superseded"`

	ProfileID         string   `json:"profile_id,omitempty"`
	ProfileConfidence *float64 `json:"profile_confidence,omitempty"`

	Model         string    `json:"model,omitempty"`
	PromptVersion string    `json:"prompt_version,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Candidate is one generated suggestion within a run
type Candidate struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	Index     int    `json:"index"`
	Phase     Phase  `json:"phase"`
	Variation string `json:"variation"`
	Text      string `json:"text"`

	Scores         Scores           `json:"scores"`
	SelectionScore float64          `json:"selection_score"`
	Class          EnforcementClass `json:"enforcement_class"`
	Passed         bool             `json:"passed"`
	Selected       bool             `json:"selected"`
	Shown          bool             `json:"shown"`

	EvaluationID string `json:"evaluation_id,omitempty"`
}

// Selected returns the selected candidate, or nil when none is marked
func (r *Run) Selected() *Candidate {
	for i := range r.Candidates {
		if r.Candidates[i].Selected {
			return &r.Candidates[i]
		}
	}
	return nil
}

// SuggestedText is the text the caller receives for this run
func (r *Run) SuggestedText() string {
	if r.ReturnedOriginal {
		return r.OriginalText
	}
	if c := r.Selected(); c != nil {
		return c.Text
	}
	return r.OriginalText
}

// MustBeWellFormed panics when the run breaks its structural invariants.
// These never happen with a correct orchestrator; the check exists for development.
func (r *Run) MustBeWellFormed() {
	n := len(r.Candidates)
	if n != 2 && n != MaxCandidatesPerRun {
		panic(fmt.Sprintf("run %s: %d candidates, want 2 or %d", r.ID, n, MaxCandidatesPerRun))
	}
	selected := 0
	for _, c := range r.Candidates {
		if c.Selected {
			selected++
		}
	}
	if selected != 1 {
		panic(fmt.Sprintf("run %s: %d selected candidates, want 1", r.ID, selected))
	}
}
