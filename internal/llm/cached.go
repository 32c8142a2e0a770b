package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MorganMind/penrose/internal/cache"
)

// CachedEmbedder serves repeated texts from a cache and embeds only the misses
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner; model namespaces the cache keys
func NewCachedEmbedder(inner Embedder, c cache.Cache, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, model: model, ttl: ttl}
}

// Embed returns one embedding per text, calling the inner embedder once for all misses
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var (
		missing []string
		missIdx []int
	)
	for i, t := range texts {
		keys[i] = cache.Key("embedding", e.model, t)
		if data, ok := e.cache.Get(keys[i]); ok {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, t)
		missIdx = append(missIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := e.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}

	for j, vec := range vecs {
		i := missIdx[j]
		out[i] = vec
		if data, err := json.Marshal(vec); err == nil {
			_ = e.cache.Set(keys[i], data, e.ttl)
		}
	}
	return out, nil
}
