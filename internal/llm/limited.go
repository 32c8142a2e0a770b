package llm

import (
	"context"
	"fmt"

	"github.com/MorganMind/penrose/internal/worker"
)

// LimitedGenerator rate-limits calls to a generator, one bucket per provider
type LimitedGenerator struct {
	inner   Generator
	limiter *worker.Limiter
}

// NewLimitedGenerator wraps inner with limiter
func NewLimitedGenerator(inner Generator, limiter *worker.Limiter) *LimitedGenerator {
	return &LimitedGenerator{inner: inner, limiter: limiter}
}

// Name returns the wrapped provider name
func (g *LimitedGenerator) Name() string {
	return g.inner.Name()
}

// Generate waits for a token then delegates
func (g *LimitedGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := g.limiter.Wait(ctx, g.inner.Name()); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", g.inner.Name(), err)
	}
	return g.inner.Generate(ctx, req)
}
