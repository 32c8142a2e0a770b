package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/MorganMind/penrose/internal/cache"
	"github.com/MorganMind/penrose/internal/drift"
	"github.com/MorganMind/penrose/internal/llm"
	"github.com/MorganMind/penrose/internal/metrics"
	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/profile"
	"github.com/MorganMind/penrose/internal/refine"
	"github.com/MorganMind/penrose/internal/score"
	"github.com/MorganMind/penrose/internal/store"
	"github.com/MorganMind/penrose/internal/worker"
)

// app holds the wired components a command needs
type app struct {
	cfg      *model.Config
	logger   *slog.Logger
	store    *store.Store
	profiles *profile.Service
	orch     *refine.Orchestrator // nil unless built with a generator
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	closers  []func() error
}

// newLogger builds the stderr logger; --verbose enables debug output
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newApp opens the store and profile service, and the refinement
// orchestrator when withGenerator is set
func newApp(withGenerator bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: st}
	a.closers = append(a.closers, st.Close)

	var locker store.Locker = store.NewLocalLocker()
	if cfg.Store.RedisURL != "" {
		rl, err := store.NewRedisLocker(cfg.Store.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis locker: %w", err)
		}
		locker = rl
		a.closers = append(a.closers, rl.Close)
	}
	a.profiles = profile.NewService(st, locker, logger)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	if !withGenerator {
		return a, nil
	}

	gen, err := llm.NewGenerator(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	a.orch = refine.New(refine.Deps{
		Generator: llm.NewLimitedGenerator(gen, limiter),
		Scorer:    score.NewScorer(a.embedder(), logger),
		Profiles:  a.profiles,
		Store:     st,
		Drift:     drift.NewMonitor(drift.FromModel(cfg.Drift), st, logger),
		Metrics:   a.metrics,
		Logger:    logger,
	}, refine.ConfigFromModel(cfg.Enforcement))

	// Close runs in reverse order: drain drift updates before the store closes
	a.closers = append(a.closers, func() error { a.orch.Close(); return nil })
	return a, nil
}

// embedder returns the configured embedder, cached when enabled, or nil for heuristic scoring
func (a *app) embedder() score.Embedder {
	emb, err := llm.NewEmbedder(llm.EmbeddingConfigFromModel(a.cfg.Embedding, a.cfg.LLM))
	if err != nil {
		a.logger.Warn("embeddings unavailable, semantic scoring uses the length heuristic", "error", err)
		return nil
	}
	if emb == nil {
		return nil
	}
	if !a.cfg.Cache.Enabled {
		return emb
	}
	c := cache.New(a.cfg.Cache.MemoryTTL, a.cfg.Cache.DiskDir, a.cfg.Cache.DiskTTL)
	return llm.NewCachedEmbedder(emb, c, a.cfg.Embedding.Model, a.cfg.Cache.DiskTTL)
}

// tenant returns the author identity from flags, env or $USER
func (a *app) tenant(documentID string) (model.Tenant, error) {
	user := viper.GetString("user")
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		return model.Tenant{}, fmt.Errorf("no user id (use --user or PENROSE_USER)")
	}
	return model.Tenant{UserID: user, OrgID: viper.GetString("org"), DocumentID: documentID}, nil
}

// close releases resources in reverse order and writes metrics when requested
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if metricsFile != "" && a.registry != nil {
		if err := metrics.WriteTextfile(metricsFile, a.registry); err != nil {
			a.logger.Warn("failed to write metrics", "path", metricsFile, "error", err)
		}
	}
}
