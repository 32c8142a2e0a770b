package score

import "github.com/MorganMind/penrose/internal/model"

// Scope scores how well a suggestion stays within the structural change a mode allows.
// Each of paragraphs, sentences and words scores 1 inside its band and decays
// linearly outside it, reaching 0 one band-width past either edge.
func Scope(original, suggestion model.Fingerprint, mode model.Mode) float64 {
	bands, ok := ModeScopeBands[mode]
	if !ok {
		bands = ModeScopeBands[model.ModeLine]
	}
	p := bandScore(original.ParagraphCount, suggestion.ParagraphCount, bands.Paragraphs)
	s := bandScore(original.SentenceCount, suggestion.SentenceCount, bands.Sentences)
	w := bandScore(original.WordCount, suggestion.WordCount, bands.Words)
	return (p + s + w) / 3
}

func bandScore(original, suggestion int, b Band) float64 {
	if original == 0 {
		if suggestion == 0 {
			return 1
		}
		return 0
	}
	return BandScore(float64(suggestion)/float64(original), b)
}

// BandScore scores a ratio against a band
func BandScore(ratio float64, b Band) float64 {
	width := b.High - b.Low
	switch {
	case ratio >= b.Low && ratio <= b.High:
		return 1
	case width <= 0:
		return 0
	case ratio < b.Low:
		return clamp01(1 - (b.Low-ratio)/width)
	default:
		return clamp01(1 - (ratio-b.High)/width)
	}
}
