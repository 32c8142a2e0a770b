package drift

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MorganMind/penrose/internal/fingerprint"
	"github.com/MorganMind/penrose/internal/model"
)

// Config tunes the rolling-window analysis
type Config struct {
	Window             int     // Observations kept per author
	Recent             int     // Most recent observations compared against the rest
	MinSamples         int     // Observations required before evaluating
	DropThreshold      float64 // Absolute stylistic mean drop that raises an alert
	VarianceMultiplier float64 // Recent/older variance ratio that raises an alert
}

// DefaultConfig returns the standard drift settings
func DefaultConfig() Config {
	return Config{Window: 20, Recent: 10, MinSamples: 15, DropThreshold: 0.08, VarianceMultiplier: 2.0}
}

// FromModel converts the persisted configuration
func FromModel(c model.DriftConfig) Config {
	cfg := Config{
		Window:             c.Window,
		Recent:             c.Recent,
		MinSamples:         c.MinSamples,
		DropThreshold:      c.DropThreshold,
		VarianceMultiplier: c.VarianceMultiplier,
	}
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Recent <= 0 {
		cfg.Recent = def.Recent
	}
	if cfg.Recent >= cfg.Window {
		cfg.Recent = cfg.Window / 2
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.MinSamples <= cfg.Recent || cfg.MinSamples > cfg.Window {
		cfg.MinSamples = cfg.Window
	}
	if cfg.DropThreshold <= 0 {
		cfg.DropThreshold = def.DropThreshold
	}
	if cfg.VarianceMultiplier <= 0 {
		cfg.VarianceMultiplier = def.VarianceMultiplier
	}
	return cfg
}

// AlertSink receives raised alerts
type AlertSink interface {
	SaveDriftAlert(ctx context.Context, alert model.DriftAlert) error
}

// Monitor keeps a rolling window of run outcomes per author
type Monitor struct {
	cfg    Config
	sink   AlertSink
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]model.DriftObservation
}

// NewMonitor creates a drift monitor. A nil sink only logs alerts.
func NewMonitor(cfg Config, sink AlertSink, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
		windows: make(map[string][]model.DriftObservation),
	}
}

// Record appends an observation to an author's window, evaluates it and
// forwards any alerts to the sink
func (m *Monitor) Record(ctx context.Context, userID string, obs model.DriftObservation) ([]model.DriftAlert, error) {
	m.mu.Lock()
	w := append(m.windows[userID], obs)
	if len(w) > m.cfg.Window {
		w = w[len(w)-m.cfg.Window:]
	}
	m.windows[userID] = w
	snapshot := append([]model.DriftObservation(nil), w...)
	m.mu.Unlock()

	alerts := m.Check(userID, snapshot)
	for _, a := range alerts {
		m.logger.Warn("voice drift detected",
			"user", userID, "kind", a.Kind,
			"recent_mean", a.RecentMean, "older_mean", a.OlderMean,
			"recent_variance", a.RecentVariance, "older_variance", a.OlderVariance)
		if m.sink == nil {
			continue
		}
		if err := m.sink.SaveDriftAlert(ctx, a); err != nil {
			return alerts, fmt.Errorf("failed to save drift alert: %w", err)
		}
	}
	return alerts, nil
}

// Seed loads persisted history, oldest first, into an author's window when the
// monitor has not seen that author yet. It reports whether the window was seeded.
func (m *Monitor) Seed(userID string, history []model.DriftObservation) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.windows[userID]) > 0 {
		return false
	}
	if len(history) > m.cfg.Window {
		history = history[len(history)-m.cfg.Window:]
	}
	m.windows[userID] = append([]model.DriftObservation(nil), history...)
	return true
}

// Size is the number of observations kept per author
func (m *Monitor) Size() int {
	return m.cfg.Window
}

// Window returns a copy of an author's current window
func (m *Monitor) Window(userID string) []model.DriftObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DriftObservation(nil), m.windows[userID]...)
}

// Check evaluates a window of observations, oldest first, without recording anything.
// Only the last Window observations are considered.
func (m *Monitor) Check(userID string, window []model.DriftObservation) []model.DriftAlert {
	if len(window) > m.cfg.Window {
		window = window[len(window)-m.cfg.Window:]
	}
	if len(window) < m.cfg.MinSamples {
		return nil
	}

	split := len(window) - m.cfg.Recent
	older := stylistic(window[:split])
	recent := stylistic(window[split:])

	olderMean, recentMean := fingerprint.Mean(older), fingerprint.Mean(recent)
	olderVar, recentVar := fingerprint.Variance(older), fingerprint.Variance(recent)

	latest := window[len(window)-1]
	alert := func(kind model.DriftKind) model.DriftAlert {
		return model.DriftAlert{
			ID:             uuid.NewString(),
			UserID:         userID,
			Kind:           kind,
			RecentMean:     recentMean,
			OlderMean:      olderMean,
			RecentVariance: recentVar,
			OlderVariance:  olderVar,
			Samples:        len(window),
			Model:          latest.Model,
			PromptVersion:  latest.PromptVersion,
			CreatedAt:      m.now().UTC(),
		}
	}

	var alerts []model.DriftAlert
	if olderMean-recentMean > m.cfg.DropThreshold {
		alerts = append(alerts, alert(model.DriftSimilarityDrop))
	}
	if olderVar > 0 && recentVar > m.cfg.VarianceMultiplier*olderVar {
		alerts = append(alerts, alert(model.DriftVarianceSpike))
	}
	return alerts
}

func stylistic(obs []model.DriftObservation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Stylistic
	}
	return out
}
