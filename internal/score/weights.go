package score

import "github.com/MorganMind/penrose/internal/model"

// Weights are the combined-score weights for one mode; they sum to 1
type Weights struct {
	Semantic  float64 `json:"semantic"`
	Stylistic float64 `json:"stylistic"`
	Scope     float64 `json:"scope"`
}

// ModeWeights are the base combined-score weights per mode.
// Copy edits lean on meaning; developmental edits lean on voice.
var ModeWeights = map[model.Mode]Weights{
	model.ModeCopy:          {Semantic: 0.40, Stylistic: 0.35, Scope: 0.25},
	model.ModeLine:          {Semantic: 0.30, Stylistic: 0.50, Scope: 0.20},
	model.ModeDevelopmental: {Semantic: 0.30, Stylistic: 0.55, Scope: 0.15},
}

// Band is an acceptable [Low, High] ratio of suggestion to original
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ScopeBands bounds structural change per mode
type ScopeBands struct {
	Paragraphs Band `json:"paragraphs"`
	Sentences  Band `json:"sentences"`
	Words      Band `json:"words"`
}

// ModeScopeBands are the acceptable structural ratios per mode
var ModeScopeBands = map[model.Mode]ScopeBands{
	model.ModeDevelopmental: {
		Paragraphs: Band{0.5, 2.0},
		Sentences:  Band{0.5, 2.0},
		Words:      Band{0.5, 1.8},
	},
	model.ModeLine: {
		Paragraphs: Band{0.8, 1.25},
		Sentences:  Band{0.7, 1.4},
		Words:      Band{0.75, 1.3},
	},
	model.ModeCopy: {
		Paragraphs: Band{0.9, 1.1},
		Sentences:  Band{0.85, 1.15},
		Words:      Band{0.9, 1.1},
	},
}

// feature describes one stylistic feature compared between fingerprints
type feature struct {
	name   string
	weight float64
	rng    float64 // Difference at which the feature scores 0
	value  func(model.Fingerprint) float64
}

// Punctuation and lexical signature are compared as distributions, not ranges
const (
	punctuationWeight = 0.10
	signatureWeight   = 0.07
)

var rangedFeatures = []feature{
	{"sentence_length_mean", 0.12, 15, func(f model.Fingerprint) float64 { return f.SentenceLength.Mean }},
	{"sentence_length_stddev", 0.06, 10, func(f model.Fingerprint) float64 { return f.SentenceLength.StdDev }},
	{"paragraph_length_mean", 0.05, 60, func(f model.Fingerprint) float64 { return f.ParagraphLength.Mean }},
	{"adjective_density", 0.06, 0.08, func(f model.Fingerprint) float64 { return f.AdjectiveDensity }},
	{"adverb_density", 0.06, 0.05, func(f model.Fingerprint) float64 { return f.AdverbDensity }},
	{"hedging_per_1k", 0.07, 15, func(f model.Fingerprint) float64 { return f.HedgingPer1K }},
	{"stopword_density", 0.06, 0.15, func(f model.Fingerprint) float64 { return f.StopwordDensity }},
	{"contraction_per_1k", 0.09, 30, func(f model.Fingerprint) float64 { return f.ContractionPer1K }},
	{"question_ratio", 0.03, 0.3, func(f model.Fingerprint) float64 { return f.QuestionRatio }},
	{"exclamation_ratio", 0.03, 0.3, func(f model.Fingerprint) float64 { return f.ExclamationRatio }},
	{"vocabulary_richness", 0.06, 0.25, func(f model.Fingerprint) float64 { return f.VocabularyRichness }},
	{"avg_word_length", 0.05, 1.5, func(f model.Fingerprint) float64 { return f.AvgWordLength }},
	{"readability", 0.05, 40, func(f model.Fingerprint) float64 { return f.Readability }},
	{"complexity", 0.04, 0.4, func(f model.Fingerprint) float64 { return f.Complexity }},
}
