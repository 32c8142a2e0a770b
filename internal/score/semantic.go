package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Embedder turns texts into embedding vectors, one per input text
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// fallbackFactor scales the length penalty when no embedding is available
const fallbackFactor = 0.85

// Semantic scores meaning preservation as the cosine similarity of the two
// texts' embeddings times a length penalty. When embeddings are unavailable
// it falls back to the length heuristic alone and reports fallback=true.
func (s *Scorer) Semantic(ctx context.Context, original, suggestion string) (score float64, fallback bool) {
	penalty := LengthPenalty(original, suggestion)
	if s.embedder == nil {
		return penalty * fallbackFactor, true
	}

	cos, err := s.cosine(ctx, original, suggestion)
	if err != nil {
		s.logger.Warn("semantic scoring fell back to length heuristic", "error", err)
		return penalty * fallbackFactor, true
	}
	return clamp01(cos) * penalty, false
}

func (s *Scorer) cosine(ctx context.Context, a, b string) (float64, error) {
	vectors, err := s.embedder.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}
	va, vb := vectors[0], vectors[1]
	if len(va) == 0 || len(va) != len(vb) {
		return 0, fmt.Errorf("embedding dimensions mismatch: %d vs %d", len(va), len(vb))
	}

	var dot, na, nb float64
	for i := range va {
		x, y := float64(va[i]), float64(vb[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero-norm embedding")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// LengthPenalty discounts suggestions whose length strays far from the original
func LengthPenalty(original, suggestion string) float64 {
	o := len(strings.Fields(original))
	g := len(strings.Fields(suggestion))
	if o == 0 {
		if g == 0 {
			return 1
		}
		return 0.7
	}
	ratio := float64(g) / float64(o)
	switch {
	case ratio > 1.5 || ratio < 0.5:
		return 0.7
	case ratio > 1.3 || ratio < 0.7:
		return 0.85
	}
	return 1
}
