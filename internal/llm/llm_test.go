package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MorganMind/penrose/internal/cache"
	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/worker"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", false},
		{"OpenAI", "openai", false},
		{"anthropic", "anthropic", false},
		{"claude", "anthropic", false},
		{"ollama", "ollama", false},
		{"", "", true},
		{"bard", "", true},
	}
	for _, tt := range tests {
		g, err := NewGenerator(Config{Provider: tt.provider, APIKey: "k", Model: "m"})
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.provider, err)
			continue
		}
		if g.Name() != tt.wantName {
			t.Errorf("%q: name = %s, want %s", tt.provider, g.Name(), tt.wantName)
		}
	}
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(Config{})
	if err != nil || e != nil {
		t.Fatalf("empty provider: got %v, %v; want nil, nil", e, err)
	}
	if _, err := NewEmbedder(Config{Provider: "anthropic", APIKey: "k"}); err == nil {
		t.Fatal("expected anthropic embeddings to be rejected")
	}
	if e, err := NewEmbedder(Config{Provider: "ollama", Model: "nomic-embed-text"}); err != nil || e == nil {
		t.Fatalf("ollama: %v", err)
	}
}

func TestEmbeddingConfigFromModel(t *testing.T) {
	l := model.LLMConfig{Provider: "openai", APIKey: "llm-key", HTTPSProxy: "http://proxy:3128"}

	c := EmbeddingConfigFromModel(model.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}, l)
	if c.APIKey != "llm-key" || c.HTTPSProxy != "http://proxy:3128" {
		t.Fatalf("expected shared key and proxy, got %+v", c)
	}

	c = EmbeddingConfigFromModel(model.EmbeddingConfig{Provider: "ollama", Model: "nomic"}, l)
	if c.APIKey != "" {
		t.Fatalf("key must not leak to a different provider, got %q", c.APIKey)
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "http://secure:8443", "localhost, .internal.example")

	tests := []struct {
		target string
		want   string
	}{
		{"https://api.openai.com/v1", "http://secure:8443"},
		{"http://api.example.com", "http://plain:8080"},
		{"http://localhost:11434/api/generate", ""},
		{"https://llm.internal.example/v1", ""},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("%s: %v", tt.target, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("%s: proxy = %q, want %q", tt.target, gotStr, tt.want)
		}
	}
}

type countingEmbedder struct {
	calls  int32
	inputs [][]string
	err    error
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	e.inputs = append(e.inputs, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	e := NewCachedEmbedder(inner, c, "m1", 0)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if first[0][0] != 1 || first[1][0] != 3 {
		t.Fatalf("unexpected vectors: %v", first)
	}

	second, err := e.Embed(ctx, []string{"bbb", "cc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if second[0][0] != 3 || second[1][0] != 2 {
		t.Fatalf("unexpected vectors: %v", second)
	}
	if len(inner.inputs) != 2 || len(inner.inputs[1]) != 1 || inner.inputs[1][0] != "cc" {
		t.Fatalf("expected only the miss to be embedded, got %v", inner.inputs)
	}

	if _, err := e.Embed(ctx, []string{"a", "cc"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if atomic.LoadInt32(&inner.calls) != 2 {
		t.Fatalf("all-hit call should not reach the embedder, calls = %d", inner.calls)
	}

	// A different model does not share entries
	other := NewCachedEmbedder(inner, c, "m2", 0)
	_, _ = other.Embed(ctx, []string{"a"})
	if atomic.LoadInt32(&inner.calls) != 3 {
		t.Fatalf("expected cache miss for other model, calls = %d", inner.calls)
	}
}

func TestCachedEmbedder_Error(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	e := NewCachedEmbedder(inner, cache.NewMemoryCache(time.Minute, time.Minute), "m", 0)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected inner error to propagate")
	}
}

type stubGenerator struct {
	calls int32
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	atomic.AddInt32(&g.calls, 1)
	return &GenerateResponse{Text: req.Prompt}, nil
}

func TestLimitedGenerator(t *testing.T) {
	inner := &stubGenerator{}
	limiter := worker.NewLimiter(0.1, 1)
	g := NewLimitedGenerator(inner, limiter)

	resp, err := g.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	if err != nil || resp.Text != "hi" {
		t.Fatalf("first call: %v %v", resp, err)
	}
	if g.Name() != "stub" {
		t.Fatalf("name = %s", g.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, GenerateRequest{Prompt: "again"}); err == nil {
		t.Fatal("expected rate limit error")
	}
	if atomic.LoadInt32(&inner.calls) != 1 {
		t.Fatalf("limited call reached the provider, calls = %d", inner.calls)
	}
}
