package confidence

import (
	"math"
	"time"

	"github.com/MorganMind/penrose/internal/model"
)

// Confidence model constants
const (
	WordHalfLife   = 3000.0
	SampleHalfLife = 5.0

	LowBelow    = 0.35 // Scores below this are low confidence
	HighAtLeast = 0.70 // Scores at or above this are high confidence

	diversityDocsCap  = 5
	temporalMinimum   = 24 * time.Hour
	temporalSaturated = 14 * 24 * time.Hour
)

// Input is the profile bookkeeping the confidence model needs
type Input struct {
	TotalWords        int
	SampleCount       int
	SourceTypeCounts  map[model.SourceType]int
	DistinctDocuments int
	OldestSample      time.Time
	NewestSample      time.Time
}

// Result is the overall confidence and its components, each in [0,1]
type Result struct {
	Overall   float64              `json:"overall"`
	Band      model.ConfidenceBand `json:"band"`
	Words     float64              `json:"words"`
	Samples   float64              `json:"samples"`
	Diversity float64              `json:"diversity"`
	Temporal  float64              `json:"temporal"`
}

// Compute scores how far a profile's fingerprint can be trusted
func Compute(in Input) Result {
	r := Result{
		Words:     1 - math.Exp(-float64(in.TotalWords)/WordHalfLife),
		Samples:   1 - math.Exp(-float64(in.SampleCount)/SampleHalfLife),
		Diversity: diversity(in.SourceTypeCounts, in.DistinctDocuments),
		Temporal:  temporal(in.OldestSample, in.NewestSample),
	}

	overall := math.Min(r.Words, r.Samples) * (0.6 + 0.4*r.Diversity) * (0.8 + 0.2*r.Temporal)
	r.Overall = math.Max(0, math.Min(overall, 1))
	r.Band = BandOf(r.Overall)
	return r
}

// BandOf maps a confidence score to its band
func BandOf(c float64) model.ConfidenceBand {
	switch {
	case c < LowBelow:
		return model.BandLow
	case c < HighAtLeast:
		return model.BandMedium
	default:
		return model.BandHigh
	}
}

// diversity rewards a mix of source types, distinct documents and an even spread
func diversity(counts map[model.SourceType]int, docs int) float64 {
	known := float64(len(model.SourceTypes))

	present, total := 0, 0
	for _, st := range model.SourceTypes {
		if counts[st] > 0 {
			present++
			total += counts[st]
		}
	}
	variety := float64(present) / known

	docsScore := math.Min(float64(docs), diversityDocsCap) / diversityDocsCap

	evenness := 0.0
	if total > 0 {
		entropy := 0.0
		for _, st := range model.SourceTypes {
			if counts[st] == 0 {
				continue
			}
			p := float64(counts[st]) / float64(total)
			entropy -= p * math.Log(p)
		}
		evenness = entropy / math.Log(known)
	}

	return variety*0.3 + docsScore*0.4 + evenness*0.3
}

// temporal is 0 for samples spanning under a day and rises linearly to 1 at two weeks
func temporal(oldest, newest time.Time) float64 {
	if oldest.IsZero() || newest.IsZero() {
		return 0
	}
	span := newest.Sub(oldest)
	if span < temporalMinimum {
		return 0
	}
	return math.Min(float64(span-temporalMinimum)/float64(temporalSaturated-temporalMinimum), 1)
}
