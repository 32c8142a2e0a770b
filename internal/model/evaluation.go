package model

import "time"

// Mode is the editorial scope of a refinement request
type Mode string

const (
	ModeDevelopmental Mode = "developmental" // Structural rewrites, widest scope
	ModeLine          Mode = "line"          // Sentence-level rewrites
	ModeCopy          Mode = "copy"          // Mechanical corrections, narrowest scope
)

// Modes lists every editorial mode
var Modes = []Mode{ModeDevelopmental, ModeLine, ModeCopy}

// Valid reports whether the mode is known
func (m Mode) Valid() bool {
	switch m {
	case ModeDevelopmental, ModeLine, ModeCopy:
		return true
	}
	return false
}

// Scores holds the similarity sub-scores and their combination, each in [0,1]
type Scores struct {
	Semantic  float64 `json:"semantic"`
	Stylistic float64 `json:"stylistic"`
	Scope     float64 `json:"scope"`
	Combined  float64 `json:"combined"`
}

// Thresholds are the five classifier constants in effect for one evaluation
type Thresholds struct {
	PassFloor            float64 `json:"pass_floor"`             // Combined score needed to pass
	SemanticPassFloor    float64 `json:"semantic_pass_floor"`    // Semantic score needed to pass
	WarningFloor         float64 `json:"warning_floor"`          // Combined score below this fails
	SemanticWarningFloor float64 `json:"semantic_warning_floor"` // Reported with the evaluation; failure is decided by the combined floor
	DriftCeiling         float64 `json:"drift_ceiling"`          // Semantic score below this is drift
}

// EnforcementClass is the classifier verdict for one candidate
type EnforcementClass string

const (
	ClassPass        EnforcementClass = "pass"
	ClassSoftWarning EnforcementClass = "soft_warning"
	ClassFailure     EnforcementClass = "failure"
	ClassDrift       EnforcementClass = "drift"
)

// EnforcementOutcome is the terminal result of a run
type EnforcementOutcome string

const (
	OutcomePass                EnforcementOutcome = "pass"
	OutcomeSoftWarningResolved EnforcementOutcome = "soft_warning_resolved"
	OutcomeFailureResolved     EnforcementOutcome = "failure_resolved"
	OutcomeDriftResolved       EnforcementOutcome = "drift_resolved"
	OutcomeOriginalReturned    EnforcementOutcome = "original_returned"
)

// Evaluation records one original/suggestion comparison.
// Written once; Correction may be patched in once afterwards.
type Evaluation struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
	Mode        Mode   `json:"mode"`

	OriginalFingerprint   Fingerprint  `json:"original_fingerprint"`
	SuggestionFingerprint Fingerprint  `json:"suggestion_fingerprint"`
	ProfileFingerprint    *Fingerprint `json:"profile_fingerprint,omitempty"` // Stylistic target, nil without profile

	Scores           Scores           `json:"scores"`
	SemanticFallback bool             `json:"semantic_fallback"` // Embedding unavailable, heuristic used
	Thresholds       Thresholds       `json:"thresholds"`
	Class            EnforcementClass `json:"class"`
	Passed           bool             `json:"passed"`

	EnforcementActive bool               `json:"enforcement_active"`
	Correction        *CorrectionOutcome `json:"correction,omitempty"`

	Signals []Signal `json:"signals,omitempty"` // Transparent scoring breakdown

	CreatedAt time.Time `json:"created_at"`
}

// CorrectionOutcome is patched onto the initial evaluation once a retry round completes
type CorrectionOutcome struct {
	TriggerClass EnforcementClass   `json:"trigger_class"`
	Outcome      EnforcementOutcome `json:"outcome"`
	RetryRunID   string             `json:"retry_run_id,omitempty"`
}

// Signal is one transparent scoring contribution
type Signal struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Weight  float64 `json:"weight,omitempty"`
	Formula string  `json:"formula,omitempty"`
}
