package drift

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MorganMind/penrose/internal/model"
)

type memorySink struct {
	alerts []model.DriftAlert
	err    error
}

func (s *memorySink) SaveDriftAlert(ctx context.Context, a model.DriftAlert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func newTestMonitor(sink AlertSink) *Monitor {
	return NewMonitor(DefaultConfig(), sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func obs(stylistic float64) model.DriftObservation {
	return model.DriftObservation{Stylistic: stylistic, Semantic: 0.9, Combined: 0.8, Model: "gpt-test", PromptVersion: "v1"}
}

func TestMonitor_NotEnoughSamples(t *testing.T) {
	m := newTestMonitor(nil)
	for i := 0; i < 14; i++ {
		alerts, err := m.Record(context.Background(), "u1", obs(0.9-float64(i)*0.05))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if len(alerts) != 0 {
			t.Fatalf("expected no alerts before 15 samples, got %d at %d", len(alerts), i)
		}
	}
}

func TestMonitor_SimilarityDrop(t *testing.T) {
	sink := &memorySink{}
	m := newTestMonitor(sink)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := m.Record(ctx, "u1", obs(0.85)); err != nil {
			t.Fatal(err)
		}
	}
	var last []model.DriftAlert
	for i := 0; i < 10; i++ {
		alerts, err := m.Record(ctx, "u1", obs(0.70))
		if err != nil {
			t.Fatal(err)
		}
		last = alerts
	}

	if len(last) != 1 || last[0].Kind != model.DriftSimilarityDrop {
		t.Fatalf("expected one similarity_drop alert, got %+v", last)
	}
	if last[0].Samples != 20 || last[0].Model != "gpt-test" {
		t.Errorf("unexpected alert metadata: %+v", last[0])
	}
	if len(sink.alerts) == 0 {
		t.Error("expected alerts to reach the sink")
	}
}

func TestMonitor_VarianceSpike(t *testing.T) {
	m := newTestMonitor(nil)
	window := make([]model.DriftObservation, 0, 20)
	for i := 0; i < 10; i++ {
		window = append(window, obs(0.80+0.01*float64(i%2)))
	}
	for i := 0; i < 10; i++ {
		window = append(window, obs(0.60+0.40*float64(i%2)))
	}

	alerts := m.Check("u1", window)
	var kinds []model.DriftKind
	for _, a := range alerts {
		kinds = append(kinds, a.Kind)
	}
	if len(kinds) != 1 || kinds[0] != model.DriftVarianceSpike {
		t.Errorf("expected only variance_spike, got %v", kinds)
	}
}

func TestMonitor_StableIsQuiet(t *testing.T) {
	m := newTestMonitor(nil)
	window := make([]model.DriftObservation, 20)
	for i := range window {
		window[i] = obs(0.8 + 0.02*float64(i%3))
	}
	if alerts := m.Check("u1", window); len(alerts) != 0 {
		t.Errorf("expected no alerts for a stable window, got %+v", alerts)
	}
}

func TestMonitor_WindowIsBounded(t *testing.T) {
	m := newTestMonitor(nil)
	for i := 0; i < 50; i++ {
		if _, err := m.Record(context.Background(), "u1", obs(0.8)); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(m.Window("u1")); got != 20 {
		t.Errorf("expected window of 20, got %d", got)
	}
	if got := len(m.Window("u2")); got != 0 {
		t.Errorf("expected authors to be isolated, got %d", got)
	}
}

func TestMonitor_SinkError(t *testing.T) {
	m := newTestMonitor(&memorySink{err: errors.New("disk full")})
	window := make([]model.DriftObservation, 0, 20)
	for i := 0; i < 10; i++ {
		window = append(window, obs(0.9))
	}
	for i := 0; i < 9; i++ {
		window = append(window, obs(0.5))
	}
	m.windows["u1"] = window

	if _, err := m.Record(context.Background(), "u1", obs(0.5)); err == nil {
		t.Error("expected sink error to propagate")
	}
}

func TestFromModel(t *testing.T) {
	tests := []struct {
		name string
		in   model.DriftConfig
		want Config
	}{
		{"empty", model.DriftConfig{}, DefaultConfig()},
		{"model defaults", model.DefaultConfig().Drift, DefaultConfig()},
		{"zero thresholds", model.DriftConfig{Window: 20, Recent: 10, MinSamples: 15}, DefaultConfig()},
		{
			"small window",
			model.DriftConfig{Window: 8},
			Config{Window: 8, Recent: 4, MinSamples: 8, DropThreshold: 0.08, VarianceMultiplier: 2.0},
		},
		{
			"explicit",
			model.DriftConfig{Window: 30, Recent: 12, MinSamples: 20, DropThreshold: 0.05, VarianceMultiplier: 3},
			Config{Window: 30, Recent: 12, MinSamples: 20, DropThreshold: 0.05, VarianceMultiplier: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromModel(tt.in); got != tt.want {
				t.Errorf("FromModel(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMonitor_Seed(t *testing.T) {
	m := newTestMonitor(nil)

	history := make([]model.DriftObservation, 25)
	for i := range history {
		history[i] = obs(float64(i) / 100)
	}
	if !m.Seed("u1", history) {
		t.Fatal("expected first seed to apply")
	}
	w := m.Window("u1")
	if len(w) != 20 || w[0].Stylistic != 0.05 {
		t.Fatalf("seeded window: len=%d first=%.2f", len(w), w[0].Stylistic)
	}

	if m.Seed("u1", history[:3]) {
		t.Fatal("seed must not overwrite a live window")
	}
	if len(m.Window("u1")) != 20 {
		t.Fatal("window changed by second seed")
	}
}
