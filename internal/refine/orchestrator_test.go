package refine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MorganMind/penrose/internal/drift"
	"github.com/MorganMind/penrose/internal/enforce"
	"github.com/MorganMind/penrose/internal/fingerprint"
	"github.com/MorganMind/penrose/internal/llm"
	"github.com/MorganMind/penrose/internal/metrics"
	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/score"
	"github.com/MorganMind/penrose/internal/store"
)

const original = `I don't usually write about gardening, but this spring the tomatoes surprised me.
They grew fast and sprawled over the fence before I noticed.

Maybe it was the rain. Maybe it was luck. Either way, I'm planting twice as many next year.`

// offTopic is scored as unrelated in meaning by the fake embedder
const offTopic = `Zebra herds cross the river at dawn while the guides count them twice.
Nobody on the truck says a word until the last one climbs the far bank.

It takes an hour. It always does. Then the engines start again and we move on.`

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// topicEmbedder maps texts mentioning zebras to an orthogonal vector
type topicEmbedder struct{}

func (topicEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "zebra") {
			out[i] = []float32{0, 1}
		} else {
			out[i] = []float32{1, 0}
		}
	}
	return out, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []llm.GenerateRequest
	respond func(req llm.GenerateRequest) (string, error)
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	text, err := g.respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Text: text, Model: "fake-1"}, nil
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func always(text string) func(llm.GenerateRequest) (string, error) {
	return func(llm.GenerateRequest) (string, error) { return text, nil }
}

// retryFixes drifts on the initial round and returns the original on the corrective round
func retryFixes(req llm.GenerateRequest) (string, error) {
	if req.Temperature < 0.5 {
		return original, nil
	}
	return offTopic, nil
}

type fixedProfiles struct {
	profile *model.VoiceProfile
	err     error
}

func (f fixedProfiles) Lookup(ctx context.Context, tenant model.Tenant) (*model.VoiceProfile, error) {
	return f.profile, f.err
}

func activeProfile() *model.VoiceProfile {
	return &model.VoiceProfile{
		ID:          "p1",
		UserID:      "u1",
		Fingerprint: fingerprint.Extract(original),
		SampleCount: 6,
		WordCount:   800,
		Status:      model.ProfileActive,
		Confidence:  0.9,
		Band:        model.BandHigh,
	}
}

type harness struct {
	orch  *Orchestrator
	gen   *fakeGenerator
	store *store.Store
}

func newHarness(t *testing.T, profiles ProfileLookup, respond func(llm.GenerateRequest) (string, error), cfg Config) *harness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "refine.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gen := &fakeGenerator{respond: respond}
	orch := New(Deps{
		Generator: gen,
		Scorer:    score.NewScorer(topicEmbedder{}, quiet),
		Profiles:  profiles,
		Store:     st,
		Logger:    quiet,
	}, cfg)
	return &harness{orch: orch, gen: gen, store: st}
}

func request() Request {
	return Request{
		Text:   original,
		Mode:   model.ModeLine,
		Tenant: model.Tenant{UserID: "u1", DocumentID: "doc-1"},
	}
}

func selectedCount(r *Result) int {
	n := 0
	for _, c := range r.Candidates {
		if c.Selected {
			n++
		}
	}
	return n
}

func TestOrchestrator_Refine_PassWithoutRetry(t *testing.T) {
	h := newHarness(t, fixedProfiles{profile: activeProfile()}, always(original), DefaultConfig())

	res, err := h.orch.Refine(context.Background(), request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if res.RetryTriggered || len(res.Candidates) != 2 || h.gen.count() != 2 {
		t.Fatalf("retry=%v candidates=%d calls=%d, want no retry and 2", res.RetryTriggered, len(res.Candidates), h.gen.count())
	}
	if res.EnforcementClass != model.ClassPass || res.EnforcementOutcome != model.OutcomePass {
		t.Errorf("class=%s outcome=%s, want pass/pass", res.EnforcementClass, res.EnforcementOutcome)
	}
	if !res.EnforcementActive {
		t.Error("expected enforcement to be active")
	}
	if selectedCount(res) != 1 || res.SelectedIndex != 0 {
		t.Errorf("selected=%d index=%d, want exactly one at 0", selectedCount(res), res.SelectedIndex)
	}
}

func TestOrchestrator_Refine_RetryResolvesDrift(t *testing.T) {
	h := newHarness(t, fixedProfiles{profile: activeProfile()}, retryFixes, DefaultConfig())
	ctx := context.Background()

	res, err := h.orch.Refine(ctx, request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !res.RetryTriggered || len(res.Candidates) != model.MaxCandidatesPerRun || h.gen.count() != 4 {
		t.Fatalf("retry=%v candidates=%d calls=%d, want one retry round of 4", res.RetryTriggered, len(res.Candidates), h.gen.count())
	}
	if res.EnforcementClass != model.ClassDrift {
		t.Errorf("initial class = %s, want drift", res.EnforcementClass)
	}
	if res.EnforcementOutcome != model.OutcomeDriftResolved {
		t.Errorf("outcome = %s, want drift_resolved", res.EnforcementOutcome)
	}
	if res.ReturnedOriginal {
		t.Error("a passing retry candidate must be shown")
	}
	sel := res.Candidates[res.SelectedIndex]
	if sel.Phase != model.PhaseEnforcementRetry || !sel.Passed || !sel.Shown {
		t.Errorf("selected = %+v, want a shown passing retry candidate", sel)
	}

	// Corrective round runs cooler and carries the meaning constraints
	for _, call := range h.gen.calls {
		if call.Temperature < 0.5 && !strings.Contains(call.Prompt, "Meaning preservation is mandatory") {
			t.Errorf("retry prompt missing meaning constraints: %q", call.Prompt)
		}
	}

	run, err := h.store.GetRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(run.Candidates) != 4 {
		t.Fatalf("persisted %d candidates, want 4", len(run.Candidates))
	}
	ev, err := h.store.GetEvaluation(ctx, run.Candidates[0].EvaluationID)
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if ev.Correction == nil {
		t.Fatal("expected correction outcome on the initial evaluation")
	}
	if ev.Correction.TriggerClass != model.ClassDrift || ev.Correction.Outcome != model.OutcomeDriftResolved ||
		ev.Correction.RetryRunID != run.ID {
		t.Errorf("correction = %+v", ev.Correction)
	}
	if ev.Class != model.ClassDrift || !ev.EnforcementActive {
		t.Errorf("evaluation class=%s active=%v", ev.Class, ev.EnforcementActive)
	}
}

// runOn keeps the meaning but loses the author's structure and voice entirely
var runOn = strings.Repeat("the committee reviewed the quarterly figures and ", 20) + "adjourned."

// retryAfterFailure rewrites into a run-on sentence initially and returns the original on the corrective round
func retryAfterFailure(req llm.GenerateRequest) (string, error) {
	if req.Temperature < 0.5 {
		return original, nil
	}
	return runOn, nil
}

func TestOrchestrator_Refine_FailureRetryReplacesInstruction(t *testing.T) {
	h := newHarness(t, fixedProfiles{profile: activeProfile()}, retryAfterFailure, DefaultConfig())

	res, err := h.orch.Refine(context.Background(), request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if res.EnforcementClass != model.ClassFailure {
		t.Fatalf("initial class = %s, want failure", res.EnforcementClass)
	}
	if !res.RetryTriggered || h.gen.count() != 4 {
		t.Fatalf("retry=%v calls=%d, want one retry round", res.RetryTriggered, h.gen.count())
	}
	if res.EnforcementOutcome != model.OutcomeFailureResolved {
		t.Errorf("outcome = %s, want failure_resolved", res.EnforcementOutcome)
	}

	retries := 0
	for _, call := range h.gen.calls {
		if call.Temperature >= 0.5 {
			continue
		}
		retries++
		if !strings.HasPrefix(call.Prompt, enforce.MinimalChangeInstruction+"\n\nText:\n") {
			t.Errorf("retry prompt must be the minimal-change directive followed by the text: %q", call.Prompt)
		}
		for _, pair := range variationPairs {
			for _, v := range pair {
				if strings.Contains(call.Prompt, v.Line) {
					t.Errorf("retry prompt carries the %s leaning", v.Name)
				}
			}
		}
	}
	if retries != 2 {
		t.Errorf("retry calls = %d, want 2", retries)
	}
}

func TestOrchestrator_Refine_ReturnsOriginalWhenNothingPasses(t *testing.T) {
	h := newHarness(t, fixedProfiles{profile: activeProfile()}, always(offTopic), DefaultConfig())

	res, err := h.orch.Refine(context.Background(), request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if h.gen.count() != 4 {
		t.Fatalf("calls = %d, want exactly one retry round", h.gen.count())
	}
	if !res.ReturnedOriginal || res.SuggestedText != original {
		t.Errorf("returnedOriginal=%v, suggested text must be the original byte for byte", res.ReturnedOriginal)
	}
	if res.EnforcementOutcome != model.OutcomeOriginalReturned {
		t.Errorf("outcome = %s, want original_returned", res.EnforcementOutcome)
	}
	if selectedCount(res) != 1 {
		t.Errorf("selected = %d, want 1 recorded for audit", selectedCount(res))
	}
	for _, c := range res.Candidates {
		if c.Shown {
			t.Errorf("candidate %d shown although the original was returned", c.Index)
		}
	}
}

func TestOrchestrator_Refine_InactiveEnforcement(t *testing.T) {
	building := activeProfile()
	building.Status = model.ProfileBuilding
	thin := activeProfile()
	thin.WordCount = 120

	tests := []struct {
		name     string
		profiles ProfileLookup
	}{
		{"no profile", fixedProfiles{}},
		{"building profile", fixedProfiles{profile: building}},
		{"too few words", fixedProfiles{profile: thin}},
		{"lookup error", fixedProfiles{err: errors.New("db down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.profiles, always(offTopic), DefaultConfig())

			res, err := h.orch.Refine(context.Background(), request())
			if err != nil {
				t.Fatalf("Refine: %v", err)
			}
			if res.EnforcementActive || res.RetryTriggered || h.gen.count() != 2 {
				t.Fatalf("active=%v retry=%v calls=%d, want no enforcement", res.EnforcementActive, res.RetryTriggered, h.gen.count())
			}
			if res.EnforcementClass != model.ClassDrift {
				t.Errorf("class = %s, want drift recorded", res.EnforcementClass)
			}
			if res.EnforcementOutcome != model.OutcomePass {
				t.Errorf("outcome = %s, want pass without enforcement", res.EnforcementOutcome)
			}
			if res.ReturnedOriginal || res.SuggestedText != strings.TrimSpace(offTopic) {
				t.Errorf("expected the best candidate to be returned")
			}
		})
	}
}

func TestOrchestrator_Refine_GenerationFailure(t *testing.T) {
	tests := []struct {
		name    string
		respond func(llm.GenerateRequest) (string, error)
	}{
		{"provider error", func(llm.GenerateRequest) (string, error) { return "", errors.New("boom") }},
		{"empty output", always("   ")},
		{"retry error", func(req llm.GenerateRequest) (string, error) {
			if req.Temperature < 0.5 {
				return "", errors.New("rate limited")
			}
			return offTopic, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fixedProfiles{profile: activeProfile()}, tt.respond, DefaultConfig())

			_, err := h.orch.Refine(context.Background(), request())
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
			obs, err := h.store.RecentObservations(context.Background(), "u1", 10)
			if err != nil {
				t.Fatalf("RecentObservations: %v", err)
			}
			if len(obs) != 0 {
				t.Errorf("expected nothing persisted, got %d runs", len(obs))
			}
		})
	}
}

func TestOrchestrator_Refine_Validation(t *testing.T) {
	h := newHarness(t, fixedProfiles{}, always(original), DefaultConfig())

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty text", Request{Text: "  \n", Mode: model.ModeLine, Tenant: model.Tenant{UserID: "u1"}}, ErrEmptyText},
		{"bad mode", Request{Text: original, Mode: "rewrite", Tenant: model.Tenant{UserID: "u1"}}, ErrInvalidMode},
		{"no user", Request{Text: original, Mode: model.ModeCopy}, ErrMissingUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.orch.Refine(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if h.gen.count() != 0 {
		t.Errorf("invalid requests must not reach the generator")
	}
}

func TestOrchestrator_Refine_VariationPair(t *testing.T) {
	h := newHarness(t, fixedProfiles{}, always(original), DefaultConfig())

	if _, err := h.orch.Refine(context.Background(), request()); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	pair := variationsFor(0)
	seen := map[string]bool{}
	for _, call := range h.gen.calls {
		for _, v := range pair {
			if strings.Contains(call.Prompt, v.Line) {
				seen[v.Name] = true
			}
		}
		if call.System != systemPrompt || !strings.HasSuffix(call.Prompt, original) {
			t.Errorf("unexpected request: %+v", call)
		}
	}
	if len(seen) != 2 {
		t.Errorf("expected both variations of the pair, saw %v", seen)
	}
}

func TestOrchestrator_TryAgain_ReusesThenRegenerates(t *testing.T) {
	h := newHarness(t, fixedProfiles{}, always(original), DefaultConfig())
	ctx := context.Background()

	first, err := h.orch.Refine(ctx, request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	// Second passing candidate is unshown, so no generation is needed
	reused, err := h.orch.TryAgain(ctx, first.RunID)
	if err != nil {
		t.Fatalf("TryAgain: %v", err)
	}
	if !reused.Reused || reused.RunID != first.RunID || reused.SelectedIndex != 1 {
		t.Fatalf("reused=%v run=%s index=%d, want swap to candidate 1", reused.Reused, reused.RunID, reused.SelectedIndex)
	}
	if h.gen.count() != 2 {
		t.Fatalf("calls = %d, swap must not generate", h.gen.count())
	}
	run, err := h.store.GetRun(ctx, first.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.Candidates[1].Selected || !run.Candidates[1].Shown || !run.Candidates[0].Shown || run.Candidates[0].Selected {
		t.Errorf("persisted selection not swapped: %+v", run.Candidates)
	}

	// Every passing candidate has been shown now
	fresh, err := h.orch.TryAgain(ctx, first.RunID)
	if err != nil {
		t.Fatalf("TryAgain: %v", err)
	}
	if fresh.Reused || fresh.RunID == first.RunID || fresh.Attempt != 2 {
		t.Fatalf("reused=%v attempt=%d, want a fresh second attempt", fresh.Reused, fresh.Attempt)
	}
	if h.gen.count() != 4 {
		t.Errorf("calls = %d, want 4", h.gen.count())
	}
	next := variationsFor(1)
	if !strings.Contains(h.gen.calls[3].Prompt, next[0].Line) && !strings.Contains(h.gen.calls[3].Prompt, next[1].Line) {
		t.Errorf("fresh attempt should use the next variation pair")
	}

	if _, err := h.orch.TryAgain(ctx, first.RunID); !errors.Is(err, ErrRunSuperseded) {
		t.Errorf("expected ErrRunSuperseded, got %v", err)
	}
}

func TestOrchestrator_TryAgain_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerDocument = 1
	h := newHarness(t, fixedProfiles{}, always(offTopic), cfg)
	ctx := context.Background()

	if _, err := h.orch.TryAgain(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	res, err := h.orch.Refine(ctx, request())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if _, err := h.orch.TryAgain(ctx, res.RunID); !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("expected ErrAttemptsExhausted, got %v", err)
	}
	if h.gen.count() != 2 {
		t.Errorf("calls = %d, exhausted try again must not generate", h.gen.count())
	}
}

func TestOrchestrator_Metrics(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "refine.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m := metrics.New(prometheus.NewRegistry())
	orch := New(Deps{
		Generator: &fakeGenerator{respond: retryFixes},
		Scorer:    score.NewScorer(topicEmbedder{}, quiet),
		Profiles:  fixedProfiles{profile: activeProfile()},
		Store:     st,
		Metrics:   m,
		Logger:    quiet,
	}, DefaultConfig())

	if _, err := orch.Refine(context.Background(), request()); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if v := testutil.ToFloat64(m.RunsTotal.WithLabelValues("drift_resolved", "true")); v != 1 {
		t.Errorf("RunsTotal[drift_resolved,true] = %f, want 1", v)
	}
	if v := testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("initial", "drift")); v != 2 {
		t.Errorf("CandidatesTotal[initial,drift] = %f, want 2", v)
	}
	if v := testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("enforcement_retry", "pass")); v != 2 {
		t.Errorf("CandidatesTotal[enforcement_retry,pass] = %f, want 2", v)
	}
}

func TestOrchestrator_DriftSeededFromHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "refine.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	build := func(mon *drift.Monitor) *Orchestrator {
		return New(Deps{
			Generator: &fakeGenerator{respond: always(original)},
			Scorer:    score.NewScorer(topicEmbedder{}, quiet),
			Profiles:  fixedProfiles{},
			Store:     st,
			Drift:     mon,
			Logger:    quiet,
		}, DefaultConfig())
	}
	ctx := context.Background()

	first := drift.NewMonitor(drift.DefaultConfig(), st, quiet)
	o1 := build(first)
	for i := 0; i < 2; i++ {
		if _, err := o1.Refine(ctx, request()); err != nil {
			t.Fatalf("Refine: %v", err)
		}
	}
	o1.Close()
	if got := len(first.Window("u1")); got != 2 {
		t.Fatalf("window = %d, want 2", got)
	}

	// A fresh process picks up the persisted runs before recording the new one
	second := drift.NewMonitor(drift.DefaultConfig(), st, quiet)
	o2 := build(second)
	if _, err := o2.Refine(ctx, request()); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	o2.Close()
	if got := len(second.Window("u1")); got != 3 {
		t.Errorf("window = %d, want 3 after seeding", got)
	}
}
