package enforce

import "github.com/MorganMind/penrose/internal/model"

// Classify maps a candidate's combined and semantic scores to an enforcement class
func Classify(combined, semantic float64, mode model.Mode, conf *float64) model.EnforcementClass {
	return ClassifyWith(combined, semantic, ThresholdsFor(mode, conf))
}

// ClassifyWith applies the fixed priority order against explicit thresholds:
// drift, then pass, then failure, then soft warning. A semantic score under the
// drift ceiling is drift no matter how good the other scores are.
func ClassifyWith(combined, semantic float64, t model.Thresholds) model.EnforcementClass {
	switch {
	case semantic < t.DriftCeiling:
		return model.ClassDrift
	case combined >= t.PassFloor && semantic >= t.SemanticPassFloor:
		return model.ClassPass
	case combined < t.WarningFloor:
		return model.ClassFailure
	default:
		return model.ClassSoftWarning
	}
}

// Resolve maps the initial class of a run and whether its final winner passed to the terminal outcome.
// Runs without active enforcement always resolve to pass.
func Resolve(initial model.EnforcementClass, active, winnerPassed bool) model.EnforcementOutcome {
	if !active || initial == model.ClassPass {
		return model.OutcomePass
	}
	if !winnerPassed {
		return model.OutcomeOriginalReturned
	}
	switch initial {
	case model.ClassSoftWarning:
		return model.OutcomeSoftWarningResolved
	case model.ClassFailure:
		return model.OutcomeFailureResolved
	case model.ClassDrift:
		return model.OutcomeDriftResolved
	}
	return model.OutcomeOriginalReturned
}
