// Package refine runs the multi-candidate refinement state machine
package refine

import (
	"errors"

	"github.com/MorganMind/penrose/internal/model"
)

var (
	// ErrGenerationFailed wraps any text-generation failure, including empty output
	ErrGenerationFailed = errors.New("generation failed")

	// ErrRunNotFound is returned by TryAgain for an unknown run
	ErrRunNotFound = errors.New("run not found")

	// ErrRunSuperseded is returned by TryAgain when a newer run replaced this one
	ErrRunSuperseded = errors.New("run superseded")

	// ErrAttemptsExhausted is returned when a document has used every fresh regeneration
	ErrAttemptsExhausted = errors.New("refinement attempts exhausted for document")

	// ErrEmptyText is returned when the request has nothing to refine
	ErrEmptyText = errors.New("text is empty")

	// ErrInvalidMode is returned for an unknown editorial mode
	ErrInvalidMode = errors.New("invalid mode")

	// ErrMissingUser is returned when the request has no user
	ErrMissingUser = errors.New("user id is required")
)

// Request is one refinement request
type Request struct {
	Text   string
	Mode   model.Mode
	Tenant model.Tenant
}

// CandidateInfo is the caller-facing summary of one candidate
type CandidateInfo struct {
	Index          int                    `json:"index"`
	Phase          model.Phase            `json:"phase"`
	Variation      string                 `json:"variation"`
	Scores         model.Scores           `json:"scores"`
	SelectionScore float64                `json:"selection_score"`
	Class          model.EnforcementClass `json:"enforcement_class"`
	Passed         bool                   `json:"passed"`
	Selected       bool                   `json:"selected"`
	Shown          bool                   `json:"shown"`
}

// Result is what a caller receives for a refinement
type Result struct {
	RunID              string                   `json:"run_id"`
	SuggestedText      string                   `json:"suggested_text"`
	ReturnedOriginal   bool                     `json:"returned_original"`
	EnforcementClass   model.EnforcementClass   `json:"enforcement_class"` // Class of the best initial candidate
	EnforcementOutcome model.EnforcementOutcome `json:"enforcement_outcome"`
	EnforcementActive  bool                     `json:"enforcement_active"`
	RetryTriggered     bool                     `json:"retry_triggered"`
	SelectedIndex      int                      `json:"selected_index"`
	Attempt            int                      `json:"attempt"`
	Candidates         []CandidateInfo          `json:"candidates"`
	Reused             bool                     `json:"reused"` // TryAgain swapped to an existing candidate
}

func resultFromRun(run *model.Run, reused bool) *Result {
	r := &Result{
		RunID:              run.ID,
		SuggestedText:      run.SuggestedText(),
		ReturnedOriginal:   run.ReturnedOriginal,
		EnforcementClass:   run.InitialEnforcementClass,
		EnforcementOutcome: run.EnforcementOutcome,
		EnforcementActive:  run.EnforcementActive,
		RetryTriggered:     run.RetryTriggered,
		SelectedIndex:      run.SelectedIndex,
		Attempt:            run.Attempt,
		Candidates:         make([]CandidateInfo, len(run.Candidates)),
		Reused:             reused,
	}
	for i, c := range run.Candidates {
		r.Candidates[i] = CandidateInfo{
			Index:          c.Index,
			Phase:          c.Phase,
			Variation:      c.Variation,
			Scores:         c.Scores,
			SelectionScore: c.SelectionScore,
			Class:          c.Class,
			Passed:         c.Passed,
			Selected:       c.Selected,
			Shown:          c.Shown,
		}
	}
	return r
}

// Config tunes the orchestrator
type Config struct {
	MinProfileWords        int     // Profile words required before enforcement is active
	MaxAttemptsPerDocument int     // Fresh generations allowed per (user, org, document, mode)
	InitialTemperature     float32 // Temperature of the two initial candidates
	RetryTemperature       float32 // Temperature of the two corrective candidates
}

// DefaultConfig returns the standard orchestrator settings
func DefaultConfig() Config {
	return Config{
		MinProfileWords:        500,
		MaxAttemptsPerDocument: 5,
		InitialTemperature:     0.7,
		RetryTemperature:       0.4,
	}
}

// ConfigFromModel converts the persisted configuration, keeping defaults for unset values
func ConfigFromModel(c model.EnforcementConfig) Config {
	cfg := DefaultConfig()
	if c.MinProfileWords > 0 {
		cfg.MinProfileWords = c.MinProfileWords
	}
	if c.MaxAttemptsPerDocument > 0 {
		cfg.MaxAttemptsPerDocument = c.MaxAttemptsPerDocument
	}
	if c.InitialTemperature > 0 {
		cfg.InitialTemperature = c.InitialTemperature
	}
	if c.RetryTemperature > 0 {
		cfg.RetryTemperature = c.RetryTemperature
	}
	return cfg
}
