package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MorganMind/penrose/internal/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRun(id string, at time.Time, stylistic float64) *model.Run {
	conf := 0.6
	return &model.Run{
		ID:                      id,
		UserID:                  "u1",
		OrgID:                   "o1",
		DocumentID:              "doc",
		Mode:                    model.ModeLine,
		OriginalText:            "original",
		Attempt:                 1,
		SelectedIndex:           0,
		InitialEnforcementClass: model.ClassPass,
		EnforcementOutcome:      model.OutcomePass,
		EnforcementActive:       true,
		ProfileID:               "p1",
		ProfileConfidence:       &conf,
		Model:                   "gpt-4o-mini",
		PromptVersion:           "v1",
		CreatedAt:               at,
		Candidates: []model.Candidate{
			{ID: id + "-c0", RunID: id, Index: 0, Phase: model.PhaseInitial, Variation: "a", Text: "first",
				Scores: model.Scores{Semantic: 0.9, Stylistic: stylistic, Scope: 1, Combined: 0.88},
				Class:  model.ClassPass, Passed: true, Selected: true, Shown: true, EvaluationID: id + "-e0"},
			{ID: id + "-c1", RunID: id, Index: 1, Phase: model.PhaseInitial, Variation: "b", Text: "second",
				Scores: model.Scores{Semantic: 0.8, Stylistic: 0.7, Scope: 1, Combined: 0.8},
				Class:  model.ClassSoftWarning},
		},
	}
}

func TestStore_Profile_RoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	scope := model.ProfileScope{UserID: "u1", OrgID: "o1"}

	if _, err := s.GetProfile(ctx, scope); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := &model.VoiceProfile{
		ID:               "p1",
		UserID:           "u1",
		OrgID:            "o1",
		Fingerprint:      model.Fingerprint{WordCount: 120, Readability: 64.5},
		SampleCount:      2,
		WordCount:        240,
		Status:           model.ProfileBuilding,
		Confidence:       0.2,
		Band:             model.BandLow,
		SourceTypeCounts: map[model.SourceType]int{model.SourceDraft: 2},
		OldestSampleAt:   base,
		LastSampleAt:     base.Add(time.Hour),
		AvgSampleWords:   120,
		CreatedAt:        base,
		UpdatedAt:        base.Add(time.Hour),
	}
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, scope)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Fingerprint.Readability != 64.5 || got.SampleCount != 2 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if got.SourceTypeCounts[model.SourceDraft] != 2 {
		t.Fatalf("source counts = %v", got.SourceTypeCounts)
	}
	if !got.LastSampleAt.Equal(p.LastSampleAt) {
		t.Fatalf("last sample = %v, want %v", got.LastSampleAt, p.LastSampleAt)
	}

	// Upsert keeps one row per scope
	p.SampleCount = 3
	p.Status = model.ProfileActive
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile update: %v", err)
	}
	got, _ = s.GetProfile(ctx, scope)
	if got.SampleCount != 3 || got.Status != model.ProfileActive {
		t.Fatalf("update not applied: %+v", got)
	}

	if _, err := s.GetProfile(ctx, model.ProfileScope{UserID: "u1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user-global scope should be separate, got %v", err)
	}
}

func TestStore_AddProfileDocument(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	isNew, err := s.AddProfileDocument(ctx, "p1", "d1")
	if err != nil || !isNew {
		t.Fatalf("first add: new=%v err=%v", isNew, err)
	}
	isNew, err = s.AddProfileDocument(ctx, "p1", "d1")
	if err != nil || isNew {
		t.Fatalf("second add: new=%v err=%v", isNew, err)
	}
}

func TestStore_SupersedeAndCreateRun(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	first := testRun("r1", base, 0.9)
	if err := s.SupersedeAndCreateRun(ctx, first, nil); err != nil {
		t.Fatalf("create r1: %v", err)
	}
	second := testRun("r2", base.Add(time.Minute), 0.9)
	second.Attempt = 2
	ev := model.Evaluation{ID: "r2-e0", RunID: "r2", CandidateID: "r2-c0", Class: model.ClassPass, Passed: true, CreatedAt: base}
	if err := s.SupersedeAndCreateRun(ctx, second, []model.Evaluation{ev}); err != nil {
		t.Fatalf("create r2: %v", err)
	}

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun r1: %v", err)
	}
	if !got.Superseded {
		t.Fatal("r1 should be superseded")
	}

	got, err = s.GetRun(ctx, "r2")
	if err != nil {
		t.Fatalf("GetRun r2: %v", err)
	}
	if got.Superseded || got.Attempt != 2 {
		t.Fatalf("unexpected r2: %+v", got)
	}
	if len(got.Candidates) != 2 || got.Candidates[1].Variation != "b" {
		t.Fatalf("candidates = %+v", got.Candidates)
	}
	if got.ProfileConfidence == nil || *got.ProfileConfidence != 0.6 {
		t.Fatalf("profile confidence = %v", got.ProfileConfidence)
	}
	if got.SuggestedText() != "first" {
		t.Fatalf("suggested = %q", got.SuggestedText())
	}

	if _, err := s.GetEvaluation(ctx, "r2-e0"); err != nil {
		t.Fatalf("evaluation written with run: %v", err)
	}
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SupersedeAndCreateRun_RollsBack(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.SupersedeAndCreateRun(ctx, testRun("r1", base, 0.9), nil); err != nil {
		t.Fatalf("create r1: %v", err)
	}
	// Duplicate candidate index violates UNIQUE(run_id, idx)
	bad := testRun("r2", base.Add(time.Minute), 0.9)
	bad.Candidates[1].Index = 0
	if err := s.SupersedeAndCreateRun(ctx, bad, nil); err == nil {
		t.Fatal("expected error")
	}

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Superseded {
		t.Fatal("supersede must roll back with the failed insert")
	}
	if _, err := s.GetRun(ctx, "r2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("r2 should not exist, got %v", err)
	}
}

func TestStore_SwapSelection(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	r := testRun("r1", base, 0.9)
	r.ReturnedOriginal = true
	if err := s.SupersedeAndCreateRun(ctx, r, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SwapSelection(ctx, "r1", 1); err != nil {
		t.Fatalf("SwapSelection: %v", err)
	}

	got, _ := s.GetRun(ctx, "r1")
	if got.SelectedIndex != 1 || got.ReturnedOriginal {
		t.Fatalf("run not updated: %+v", got)
	}
	if got.Candidates[0].Selected || !got.Candidates[1].Selected {
		t.Fatal("selection not swapped")
	}
	if !got.Candidates[0].Shown || !got.Candidates[1].Shown {
		t.Fatal("both candidates should be shown")
	}

	if err := s.SwapSelection(ctx, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PatchEvaluationCorrection(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	ev := model.Evaluation{
		ID:        "e1",
		Mode:      model.ModeCopy,
		Scores:    model.Scores{Semantic: 0.6, Combined: 0.5},
		Class:     model.ClassDrift,
		Signals:   []model.Signal{{Name: "semantic", Value: 0.6}},
		CreatedAt: base,
	}
	if err := s.SaveEvaluation(ctx, ev); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	got, err := s.GetEvaluation(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if got.Correction != nil || got.Class != model.ClassDrift || len(got.Signals) != 1 {
		t.Fatalf("unexpected evaluation: %+v", got)
	}

	c := model.CorrectionOutcome{TriggerClass: model.ClassDrift, Outcome: model.OutcomeDriftResolved, RetryRunID: "r9"}
	if err := s.PatchEvaluationCorrection(ctx, "e1", c); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if err := s.PatchEvaluationCorrection(ctx, "e1", c); !errors.Is(err, ErrAlreadyPatched) {
		t.Fatalf("second patch: expected ErrAlreadyPatched, got %v", err)
	}
	if err := s.PatchEvaluationCorrection(ctx, "nope", c); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ = s.GetEvaluation(ctx, "e1")
	if got.Correction == nil || *got.Correction != c {
		t.Fatalf("correction = %+v", got.Correction)
	}
}

func TestStore_RecentObservations(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	for i, st := range []float64{0.9, 0.8, 0.7} {
		r := testRun(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), st)
		r.DocumentID = r.ID
		if err := s.SupersedeAndCreateRun(ctx, r, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	obs, err := s.RecentObservations(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentObservations: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	// Newest two, oldest first
	if obs[0].Stylistic != 0.8 || obs[1].Stylistic != 0.7 {
		t.Fatalf("unexpected order: %+v", obs)
	}
	if obs[0].Confidence != 0.6 || obs[0].Model != "gpt-4o-mini" {
		t.Fatalf("unexpected metadata: %+v", obs[0])
	}
}

func TestStore_DriftAlerts(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	for i, kind := range []model.DriftKind{model.DriftSimilarityDrop, model.DriftVarianceSpike} {
		a := model.DriftAlert{
			ID:        string(kind),
			UserID:    "u1",
			Kind:      kind,
			Samples:   20,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveDriftAlert(ctx, a); err != nil {
			t.Fatalf("SaveDriftAlert: %v", err)
		}
	}

	alerts, err := s.ListDriftAlerts(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListDriftAlerts: %v", err)
	}
	if len(alerts) != 2 || alerts[0].Kind != model.DriftVarianceSpike {
		t.Fatalf("alerts = %+v", alerts)
	}
	if alerts, _ := s.ListDriftAlerts(ctx, "other", 10); len(alerts) != 0 {
		t.Fatalf("expected no alerts for other user, got %d", len(alerts))
	}
}
