package selection

import (
	"errors"

	"github.com/MorganMind/penrose/internal/model"
)

// Presentation weights: voice first, then meaning, then scope.
// These rank candidates for display and are independent of the safety weights.
const (
	StylisticWeight = 0.45
	SemanticWeight  = 0.35
	ScopeWeight     = 0.20
)

// ErrNoCandidates is returned when selecting from an empty pool
var ErrNoCandidates = errors.New("no candidates to select from")

// Score is the presentation-priority score of a candidate
func Score(s model.Scores) float64 {
	return s.Stylistic*StylisticWeight + s.Semantic*SemanticWeight + s.Scope*ScopeWeight
}

// Select returns the index of the best passing candidate by selection score.
// When none passed it returns the best overall and fallbackUsed=true.
// Ties keep the earlier candidate.
func Select(candidates []model.Candidate) (index int, fallbackUsed bool, err error) {
	if len(candidates) == 0 {
		return -1, false, ErrNoCandidates
	}
	if i := best(candidates, func(c model.Candidate) bool { return c.Passed }); i >= 0 {
		return i, false, nil
	}
	return Best(candidates), true, nil
}

// Best returns the index of the highest selection score regardless of class, or -1 when empty
func Best(candidates []model.Candidate) int {
	return best(candidates, func(model.Candidate) bool { return true })
}

// NextUnshown returns the best passing candidate that has not been shown yet
func NextUnshown(candidates []model.Candidate) (int, bool) {
	i := best(candidates, func(c model.Candidate) bool { return c.Passed && !c.Shown })
	return i, i >= 0
}

func best(candidates []model.Candidate, eligible func(model.Candidate) bool) int {
	idx := -1
	for i, c := range candidates {
		if !eligible(c) {
			continue
		}
		if idx < 0 || c.SelectionScore > candidates[idx].SelectionScore {
			idx = i
		}
	}
	return idx
}
