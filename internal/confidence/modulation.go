package confidence

// ThresholdMultipliers scale classifier thresholds for a given profile confidence
type ThresholdMultipliers struct {
	Stylistic float64 `json:"stylistic"` // Applied to the combined pass and warning floors
	Semantic  float64 `json:"semantic"`  // Applied to the semantic floors and the drift ceiling
}

// WeightMultipliers scale the combined-score weights before renormalization
type WeightMultipliers struct {
	Semantic  float64 `json:"semantic"`
	Stylistic float64 `json:"stylistic"`
	Scope     float64 `json:"scope"`
}

// position maps a confidence onto [0,1] across the medium band
func position(c float64) float64 {
	t := (c - LowBelow) / (HighAtLeast - LowBelow)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

func lerp(from, to, t float64) float64 {
	return from*(1-t) + to*t
}

// ThresholdModulation relaxes stylistic floors and tightens semantic ones when confidence is low.
// High confidence returns identity multipliers.
func ThresholdModulation(c float64) ThresholdMultipliers {
	t := position(c)
	return ThresholdMultipliers{
		Stylistic: lerp(0.85, 1.0, t),
		Semantic:  lerp(1.05, 1.0, t),
	}
}

// WeightModulation shifts combined-score weight from style to meaning when confidence is low
func WeightModulation(c float64) WeightMultipliers {
	t := position(c)
	return WeightMultipliers{
		Semantic:  lerp(1.30, 1.0, t),
		Stylistic: lerp(0.70, 1.0, t),
		Scope:     1.0,
	}
}

// FeatureSensitivity is how strongly stylistic feature differences count, 0.6 to 1.0
func FeatureSensitivity(c float64) float64 {
	return lerp(0.6, 1.0, position(c))
}
