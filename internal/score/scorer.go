package score

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MorganMind/penrose/internal/confidence"
	"github.com/MorganMind/penrose/internal/fingerprint"
	"github.com/MorganMind/penrose/internal/model"
)

// Scorer computes similarity scores between an original text and a suggestion
// and explains them as signals
type Scorer struct {
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewScorer creates a new scorer. A nil embedder forces the length heuristic for semantic scoring.
func NewScorer(embedder Embedder, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{embedder: embedder, logger: logger, now: time.Now}
}

// EvaluateInput is one original/suggestion comparison request
type EvaluateInput struct {
	Original   string
	Suggestion string
	Mode       model.Mode
	Profile    *model.Fingerprint // Stylistic target; the original is used when nil
	Confidence *float64           // Profile confidence; nil disables modulation
}

// Evaluate fingerprints both texts and computes all sub-scores and the combined score.
// The returned evaluation carries no enforcement class; the classifier assigns it.
func (s *Scorer) Evaluate(ctx context.Context, in EvaluateInput) model.Evaluation {
	original := fingerprint.Extract(in.Original)
	suggestion := fingerprint.Extract(in.Suggestion)

	target := original
	if in.Profile != nil {
		target = *in.Profile
	}
	sensitivity := 1.0
	if in.Confidence != nil {
		sensitivity = confidence.FeatureSensitivity(*in.Confidence)
	}

	var signals []model.Signal

	// 1. Semantic similarity
	semantic, fallback := s.Semantic(ctx, in.Original, in.Suggestion)
	semanticFormula := "cosine(embed(original), embed(suggestion)) * length_penalty"
	if fallback {
		semanticFormula = "length_penalty * 0.85"
	}
	signals = append(signals, model.Signal{Name: "semantic", Value: semantic, Formula: semanticFormula})

	// 2. Stylistic similarity
	stylistic, features := Stylistic(target, suggestion, sensitivity)
	signals = append(signals, model.Signal{
		Name:    "stylistic",
		Value:   stylistic,
		Formula: fmt.Sprintf("sum(weight * (raw + (1-raw)*(1-%.2f)))", sensitivity),
	})
	for _, f := range features {
		signals = append(signals, model.Signal{
			Name:    "stylistic." + f.Name,
			Value:   f.Dampened,
			Weight:  f.Weight,
			Formula: "max(0, 1 - |target - suggestion| / range)",
		})
	}

	// 3. Scope adherence
	scope := Scope(original, suggestion, in.Mode)
	signals = append(signals, model.Signal{
		Name:    "scope",
		Value:   scope,
		Formula: "mean(band(paragraph_ratio), band(sentence_ratio), band(word_ratio))",
	})

	// 4. Combined
	scores := model.Scores{Semantic: semantic, Stylistic: stylistic, Scope: scope}
	w := EffectiveWeights(in.Mode, in.Confidence)
	scores.Combined = combine(scores, w)
	signals = append(signals, model.Signal{
		Name:    "combined",
		Value:   scores.Combined,
		Formula: fmt.Sprintf("%.3f*semantic + %.3f*stylistic + %.3f*scope", w.Semantic, w.Stylistic, w.Scope),
	})

	ev := model.Evaluation{
		ID:                    uuid.NewString(),
		Mode:                  in.Mode,
		OriginalFingerprint:   original,
		SuggestionFingerprint: suggestion,
		Scores:                scores,
		SemanticFallback:      fallback,
		Signals:               signals,
		CreatedAt:             s.now().UTC(),
	}
	if in.Profile != nil {
		profile := *in.Profile
		ev.ProfileFingerprint = &profile
	}
	return ev
}

// Combined weights the three sub-scores for a mode, modulated by profile confidence when supplied
func Combined(scores model.Scores, mode model.Mode, conf *float64) float64 {
	return combine(scores, EffectiveWeights(mode, conf))
}

// EffectiveWeights returns the mode's base weights, modulated and renormalized when confidence is supplied
func EffectiveWeights(mode model.Mode, conf *float64) Weights {
	w, ok := ModeWeights[mode]
	if !ok {
		w = ModeWeights[model.ModeLine]
	}
	if conf == nil {
		return w
	}

	m := confidence.WeightModulation(*conf)
	w = Weights{
		Semantic:  w.Semantic * m.Semantic,
		Stylistic: w.Stylistic * m.Stylistic,
		Scope:     w.Scope * m.Scope,
	}
	sum := w.Semantic + w.Stylistic + w.Scope
	return Weights{Semantic: w.Semantic / sum, Stylistic: w.Stylistic / sum, Scope: w.Scope / sum}
}

func combine(s model.Scores, w Weights) float64 {
	return clamp01(s.Semantic*w.Semantic + s.Stylistic*w.Stylistic + s.Scope*w.Scope)
}
