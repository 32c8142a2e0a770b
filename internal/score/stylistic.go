package score

import (
	"math"

	"github.com/MorganMind/penrose/internal/model"
)

// FeatureScore is one stylistic feature comparison
type FeatureScore struct {
	Name       string  `json:"name"`
	Target     float64 `json:"target"`
	Suggestion float64 `json:"suggestion"`
	Raw        float64 `json:"raw"`      // Similarity before sensitivity dampening
	Dampened   float64 `json:"dampened"` // Similarity after dampening
	Weight     float64 `json:"weight"`
}

// Stylistic compares a suggestion's fingerprint with a target fingerprint.
// Sensitivity in [0,1] softens every feature difference: raw + (1-raw)*(1-sensitivity).
func Stylistic(target, suggestion model.Fingerprint, sensitivity float64) (float64, []FeatureScore) {
	sensitivity = clamp01(sensitivity)
	dampen := func(raw float64) float64 { return raw + (1-raw)*(1-sensitivity) }

	features := make([]FeatureScore, 0, len(rangedFeatures)+2)
	for _, f := range rangedFeatures {
		a, b := f.value(target), f.value(suggestion)
		raw := math.Max(0, 1-math.Abs(a-b)/f.rng)
		features = append(features, FeatureScore{
			Name: f.name, Target: a, Suggestion: b,
			Raw: raw, Dampened: dampen(raw), Weight: f.weight,
		})
	}

	punct := punctuationSimilarity(target.Punctuation, suggestion.Punctuation)
	features = append(features, FeatureScore{
		Name: "punctuation_profile", Raw: punct, Dampened: dampen(punct), Weight: punctuationWeight,
	})

	lex := signatureOverlap(target.LexicalSignature, suggestion.LexicalSignature)
	features = append(features, FeatureScore{
		Name: "lexical_signature", Raw: lex, Dampened: dampen(lex), Weight: signatureWeight,
	})

	total := 0.0
	for _, f := range features {
		total += f.Dampened * f.Weight
	}
	return clamp01(total), features
}

// punctuationSimilarity is the cosine of the two punctuation vectors.
// Two texts without punctuation are identical; one without is unrelated.
func punctuationSimilarity(a, b model.Punctuation) float64 {
	va, vb := a.Vector(), b.Vector()
	var dot, na, nb float64
	for i := range va {
		dot += va[i] * vb[i]
		na += va[i] * va[i]
		nb += vb[i] * vb[i]
	}
	switch {
	case na == 0 && nb == 0:
		return 1
	case na == 0 || nb == 0:
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// signatureOverlap is the frequency-weighted Jaccard overlap of two lexical signatures
func signatureOverlap(a, b []model.SignatureEntry) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	fa := make(map[string]float64, len(a))
	for _, e := range a {
		fa[e.Word] = e.Frequency
	}
	fb := make(map[string]float64, len(b))
	for _, e := range b {
		fb[e.Word] = e.Frequency
	}

	var minSum, maxSum float64
	for _, e := range a {
		y := fb[e.Word]
		minSum += math.Min(e.Frequency, y)
		maxSum += math.Max(e.Frequency, y)
	}
	for _, e := range b {
		if _, ok := fa[e.Word]; !ok {
			maxSum += e.Frequency
		}
	}
	if maxSum == 0 {
		return 0
	}
	return minSum / maxSum
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
