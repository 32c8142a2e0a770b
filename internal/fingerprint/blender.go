package fingerprint

import (
	"fmt"
	"math"
	"time"

	"github.com/MorganMind/penrose/internal/model"
)

// Blending constants. Alpha is the weight given to the incoming sample.
const (
	AlphaMin         = 0.05
	AlphaMax         = 0.30
	OversizeMultiple = 3.0
	OversizePenalty  = 0.5
	StaleAfter       = 30 * 24 * time.Hour
	StaleBoost       = 1.5
)

// BlendInput is everything needed to fold one sample into a profile fingerprint
type BlendInput struct {
	Existing       model.Fingerprint
	Incoming       model.Fingerprint
	SampleCount    int       // Samples already in the profile
	AvgSampleWords float64   // Average words per prior sample, 0 if unknown
	LastSampleAt   time.Time // Zero when there is no prior sample
	Now            time.Time
}

// BlendGuards reports which guards shaped the final alpha
type BlendGuards struct {
	BaseAlpha      float64 `json:"base_alpha"`
	Clamped        bool    `json:"clamped"`
	SizePenalty    bool    `json:"size_penalty"`
	StalenessBoost bool    `json:"staleness_boost"`
}

// BlendResult is the blended fingerprint and the alpha that produced it
type BlendResult struct {
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Alpha       float64           `json:"alpha"`
	Guards      BlendGuards       `json:"guards"`
}

// Alpha computes the bounded learning rate for an incoming sample
func Alpha(in BlendInput) (float64, BlendGuards) {
	base := 1.0 / float64(in.SampleCount+1)
	guards := BlendGuards{BaseAlpha: base}

	alpha := clamp(base, AlphaMin, AlphaMax)
	guards.Clamped = alpha != base

	if in.AvgSampleWords > 0 && float64(in.Incoming.WordCount) > OversizeMultiple*in.AvgSampleWords {
		alpha = math.Max(alpha*OversizePenalty, AlphaMin)
		guards.SizePenalty = true
	}

	if !in.LastSampleAt.IsZero() && in.Now.Sub(in.LastSampleAt) > StaleAfter {
		alpha = math.Min(alpha*StaleBoost, AlphaMax)
		guards.StalenessBoost = true
	}

	if alpha < AlphaMin || alpha > AlphaMax {
		panic(fmt.Sprintf("fingerprint: alpha %.4f outside [%.2f, %.2f]", alpha, AlphaMin, AlphaMax))
	}
	return alpha, guards
}

// Blend folds an incoming fingerprint into an existing one with a bounded alpha
func Blend(in BlendInput) BlendResult {
	a, guards := Alpha(in)
	e, i := in.Existing, in.Incoming
	mix := func(x, y float64) float64 { return x*(1-a) + y*a }
	stats := func(x, y model.LengthStats) model.LengthStats {
		return model.LengthStats{
			Mean:     mix(x.Mean, y.Mean),
			Variance: mix(x.Variance, y.Variance),
			StdDev:   mix(x.StdDev, y.StdDev),
		}
	}

	ev, iv := e.Punctuation.Vector(), i.Punctuation.Vector()
	var pv [model.PunctuationDims]float64
	for k := range pv {
		pv[k] = mix(ev[k], iv[k])
	}

	out := model.Fingerprint{
		SentenceLength:     stats(e.SentenceLength, i.SentenceLength),
		ParagraphLength:    stats(e.ParagraphLength, i.ParagraphLength),
		Punctuation:        model.PunctuationFromVector(pv),
		AdjectiveDensity:   mix(e.AdjectiveDensity, i.AdjectiveDensity),
		AdverbDensity:      mix(e.AdverbDensity, i.AdverbDensity),
		HedgingPer1K:       mix(e.HedgingPer1K, i.HedgingPer1K),
		StopwordDensity:    mix(e.StopwordDensity, i.StopwordDensity),
		ContractionPer1K:   mix(e.ContractionPer1K, i.ContractionPer1K),
		QuestionRatio:      mix(e.QuestionRatio, i.QuestionRatio),
		ExclamationRatio:   mix(e.ExclamationRatio, i.ExclamationRatio),
		RepetitionIndex:    mix(e.RepetitionIndex, i.RepetitionIndex),
		VocabularyRichness: mix(e.VocabularyRichness, i.VocabularyRichness),
		AvgWordLength:      mix(e.AvgWordLength, i.AvgWordLength),
		Readability:        mix(e.Readability, i.Readability),
		Complexity:         mix(e.Complexity, i.Complexity),
		LexicalSignature:   blendSignature(e.LexicalSignature, i.LexicalSignature, a),
		WordCount:          e.WordCount + i.WordCount,
		SentenceCount:      e.SentenceCount + i.SentenceCount,
		ParagraphCount:     e.ParagraphCount + i.ParagraphCount,
		Confidence:         math.Min(e.Confidence+i.Confidence, 1),
	}

	return BlendResult{Fingerprint: out, Alpha: a, Guards: guards}
}

// blendSignature takes the weighted union of two signatures; absent words weigh 0
func blendSignature(existing, incoming []model.SignatureEntry, a float64) []model.SignatureEntry {
	freq := make(map[string]float64)
	for _, s := range existing {
		freq[s.Word] += s.Frequency * (1 - a)
	}
	for _, s := range incoming {
		freq[s.Word] += s.Frequency * a
	}
	entries := make([]model.SignatureEntry, 0, len(freq))
	for w, f := range freq {
		entries = append(entries, model.SignatureEntry{Word: w, Frequency: f})
	}
	return rankSignature(entries, SignatureSize)
}
