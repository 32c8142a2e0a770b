package enforce

import (
	"math"

	"github.com/MorganMind/penrose/internal/confidence"
	"github.com/MorganMind/penrose/internal/model"
)

// ModeThresholds are the unmodulated classifier thresholds per mode.
// Narrower edits must preserve more; copy edits are held tightest.
var ModeThresholds = map[model.Mode]model.Thresholds{
	model.ModeCopy: {
		PassFloor:            0.85,
		SemanticPassFloor:    0.90,
		WarningFloor:         0.70,
		SemanticWarningFloor: 0.80,
		DriftCeiling:         0.70,
	},
	model.ModeLine: {
		PassFloor:            0.78,
		SemanticPassFloor:    0.85,
		WarningFloor:         0.62,
		SemanticWarningFloor: 0.75,
		DriftCeiling:         0.65,
	},
	model.ModeDevelopmental: {
		PassFloor:            0.70,
		SemanticPassFloor:    0.78,
		WarningFloor:         0.55,
		SemanticWarningFloor: 0.68,
		DriftCeiling:         0.55,
	},
}

// ThresholdsFor returns the thresholds for a mode, modulated by profile confidence when supplied.
// Stylistic floors relax and semantic floors tighten as confidence drops; none exceed 1.
func ThresholdsFor(mode model.Mode, conf *float64) model.Thresholds {
	t, ok := ModeThresholds[mode]
	if !ok {
		t = ModeThresholds[model.ModeLine]
	}
	if conf == nil {
		return t
	}

	m := confidence.ThresholdModulation(*conf)
	return model.Thresholds{
		PassFloor:            math.Min(t.PassFloor*m.Stylistic, 1),
		SemanticPassFloor:    math.Min(t.SemanticPassFloor*m.Semantic, 1),
		WarningFloor:         math.Min(t.WarningFloor*m.Stylistic, 1),
		SemanticWarningFloor: math.Min(t.SemanticWarningFloor*m.Semantic, 1),
		DriftCeiling:         math.Min(t.DriftCeiling*m.Semantic, 1),
	}
}
