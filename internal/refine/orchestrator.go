package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MorganMind/penrose/internal/drift"
	"github.com/MorganMind/penrose/internal/enforce"
	"github.com/MorganMind/penrose/internal/llm"
	"github.com/MorganMind/penrose/internal/metrics"
	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/score"
	"github.com/MorganMind/penrose/internal/selection"
)

// driftTimeout bounds one asynchronous drift update
const driftTimeout = 10 * time.Second

// Store is the persistence the orchestrator needs
type Store interface {
	SupersedeAndCreateRun(ctx context.Context, run *model.Run, evaluations []model.Evaluation) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	SwapSelection(ctx context.Context, runID string, index int) error
	PatchEvaluationCorrection(ctx context.Context, id string, c model.CorrectionOutcome) error
	RecentObservations(ctx context.Context, userID string, limit int) ([]model.DriftObservation, error)
}

// ProfileLookup resolves the voice profile for a tenant; nil means none yet
type ProfileLookup interface {
	Lookup(ctx context.Context, tenant model.Tenant) (*model.VoiceProfile, error)
}

// Deps are the orchestrator's collaborators. Drift, Metrics and Logger are optional.
type Deps struct {
	Generator llm.Generator
	Scorer    *score.Scorer
	Profiles  ProfileLookup
	Store     Store
	Drift     *drift.Monitor
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Orchestrator generates, scores, classifies and selects refinement candidates
type Orchestrator struct {
	generator llm.Generator
	scorer    *score.Scorer
	profiles  ProfileLookup
	store     Store
	drift     *drift.Monitor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	wg     sync.WaitGroup
	seeded sync.Map // user id -> struct{}
}

// New creates an orchestrator
func New(deps Deps, cfg Config) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		generator: deps.Generator,
		scorer:    deps.Scorer,
		profiles:  deps.Profiles,
		store:     deps.Store,
		drift:     deps.Drift,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Close waits for pending drift updates
func (o *Orchestrator) Close() {
	o.wg.Wait()
}

// Refine produces a suggestion for the request's text
func (o *Orchestrator) Refine(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.Tenant.UserID == "" {
		return nil, ErrMissingUser
	}

	run, err := o.run(ctx, req, 0, 1)
	if err != nil {
		return nil, err
	}
	return resultFromRun(run, false), nil
}

// generated is one scored and classified candidate before it joins a run
type generated struct {
	candidate  model.Candidate
	evaluation model.Evaluation
	model      string
}

// attempt carries what every candidate of a run shares
type attempt struct {
	text        string
	mode        model.Mode
	profile     *model.Fingerprint
	confidence  *float64
	active      bool
	thresholds  model.Thresholds
	variations  [2]variation
	instruction string
}

// run executes the full state machine and persists the result
func (o *Orchestrator) run(ctx context.Context, req Request, variationSeed, attemptNo int) (*model.Run, error) {
	// 1. Resolve the author's profile
	profile, err := o.profiles.Lookup(ctx, req.Tenant)
	if err != nil {
		o.logger.Warn("profile lookup failed, continuing without profile",
			"user", req.Tenant.UserID, "error", err)
		profile = nil
	}

	a := attempt{
		text:        req.Text,
		mode:        req.Mode,
		variations:  variationsFor(variationSeed),
		instruction: instructionFor(req.Mode),
	}
	if profile != nil {
		fp := profile.Fingerprint
		conf := profile.Confidence
		a.profile = &fp
		a.confidence = &conf
		a.active = profile.Status == model.ProfileActive && profile.WordCount >= o.cfg.MinProfileWords
	}
	a.thresholds = enforce.ThresholdsFor(a.mode, a.confidence)

	// 2. Generate, score and classify the two initial candidates
	pool, err := o.generatePair(ctx, a, model.PhaseInitial, a.instruction, o.cfg.InitialTemperature)
	if err != nil {
		return nil, err
	}

	best := selection.Best(candidatesOf(pool))
	initialClass := pool[best].candidate.Class
	bestInitialEval := pool[best].evaluation.ID

	// 3. One corrective round when enforcement is active and the best initial did not pass
	retried := false
	if a.active && initialClass != model.ClassPass {
		correction, ok := enforce.Correct(initialClass, a.instruction, *a.profile)
		if ok {
			retried = true
			o.logger.Debug("enforcement retry", "user", req.Tenant.UserID,
				"trigger", initialClass, "strategy", correction.Strategy)
			more, err := o.generatePair(ctx, retryAttempt(a, correction.Strategy), model.PhaseEnforcementRetry,
				correction.Instruction, o.cfg.RetryTemperature)
			if err != nil {
				return nil, err
			}
			pool = append(pool, more...)
		}
	}

	// 4. Select over the full pool
	candidates := candidatesOf(pool)
	idx, fallbackUsed, err := selection.Select(candidates)
	if err != nil {
		return nil, err
	}
	returnedOriginal := retried && fallbackUsed
	outcome := enforce.Resolve(initialClass, a.active, candidates[idx].Passed)

	// 5. Assemble the run
	runID := uuid.NewString()
	evaluations := make([]model.Evaluation, len(pool))
	for i := range pool {
		c := &candidates[i]
		c.RunID = runID
		c.Index = i
		c.Selected = i == idx
		c.Shown = i == idx && !returnedOriginal

		ev := pool[i].evaluation
		ev.RunID = runID
		ev.CandidateID = c.ID
		evaluations[i] = ev
	}

	run := &model.Run{
		ID:                      runID,
		UserID:                  req.Tenant.UserID,
		OrgID:                   req.Tenant.OrgID,
		DocumentID:              req.Tenant.DocumentID,
		Mode:                    req.Mode,
		OriginalText:            req.Text,
		VariationSeed:           variationSeed,
		Attempt:                 attemptNo,
		Candidates:              candidates,
		SelectedIndex:           idx,
		RetryTriggered:          retried,
		InitialEnforcementClass: initialClass,
		EnforcementOutcome:      outcome,
		EnforcementActive:       a.active,
		ReturnedOriginal:        returnedOriginal,
		ProfileConfidence:       a.confidence,
		Model:                   pool[0].model,
		PromptVersion:           PromptVersion,
		CreatedAt:               o.now().UTC(),
	}
	if profile != nil {
		run.ProfileID = profile.ID
	}
	run.MustBeWellFormed()

	// 6. Persist the run, superseding the previous one for this document and mode
	o.seed(ctx, run.UserID)
	if err := o.store.SupersedeAndCreateRun(ctx, run, evaluations); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	// 7. Record how the corrective round ended on the initial evaluation
	if retried {
		err := o.store.PatchEvaluationCorrection(ctx, bestInitialEval, model.CorrectionOutcome{
			TriggerClass: initialClass,
			Outcome:      outcome,
			RetryRunID:   runID,
		})
		if err != nil {
			o.logger.Warn("failed to record correction outcome", "run", runID, "error", err)
		}
	}

	for i, c := range candidates {
		o.metrics.RecordCandidate(c.Phase, c.Class, pool[i].evaluation.SemanticFallback)
	}
	o.metrics.RecordRun(outcome, retried)

	o.logger.Info("refinement complete",
		"run", runID, "user", run.UserID, "mode", run.Mode, "attempt", attemptNo,
		"initial_class", initialClass, "outcome", outcome, "retry", retried,
		"returned_original", returnedOriginal, "candidates", len(candidates))

	// 8. Drift analysis never affects the run
	o.observe(run)

	return run, nil
}

// generatePair generates and evaluates the two candidates of one phase concurrently
func (o *Orchestrator) generatePair(ctx context.Context, a attempt, phase model.Phase, instruction string, temperature float32) ([]generated, error) {
	out := make([]generated, len(a.variations))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range a.variations {
		g.Go(func() error {
			c, err := o.generate(gctx, a, phase, v, instruction, temperature)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// generate runs one generation and scores its output
func (o *Orchestrator) generate(ctx context.Context, a attempt, phase model.Phase, v variation, instruction string, temperature float32) (generated, error) {
	start := time.Now()
	resp, err := o.generator.Generate(ctx, llm.GenerateRequest{
		System:      systemPrompt,
		Prompt:      userPrompt(instruction, v, a.text),
		Temperature: temperature,
	})
	o.metrics.ObserveGeneration(o.generator.Name(), time.Since(start), err)
	if err != nil {
		return generated{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return generated{}, fmt.Errorf("%w: empty output from %s", ErrGenerationFailed, o.generator.Name())
	}

	ev := o.scorer.Evaluate(ctx, score.EvaluateInput{
		Original:   a.text,
		Suggestion: text,
		Mode:       a.mode,
		Profile:    a.profile,
		Confidence: a.confidence,
	})
	class := enforce.ClassifyWith(ev.Scores.Combined, ev.Scores.Semantic, a.thresholds)
	ev.Thresholds = a.thresholds
	ev.Class = class
	ev.Passed = class == model.ClassPass
	ev.EnforcementActive = a.active

	c := model.Candidate{
		ID:             uuid.NewString(),
		Phase:          phase,
		Variation:      v.Name,
		Text:           text,
		Scores:         ev.Scores,
		SelectionScore: selection.Score(ev.Scores),
		Class:          class,
		Passed:         ev.Passed,
		EvaluationID:   ev.ID,
	}
	modelName := resp.Model
	if modelName == "" {
		modelName = o.generator.Name()
	}
	return generated{candidate: c, evaluation: ev, model: modelName}, nil
}

// retryAttempt drops the variation leanings when the strategy replaces the whole instruction
func retryAttempt(a attempt, strategy enforce.Strategy) attempt {
	if strategy != enforce.StrategyMinimalChange {
		return a
	}
	for i := range a.variations {
		a.variations[i].Line = ""
	}
	return a
}

func candidatesOf(pool []generated) []model.Candidate {
	out := make([]model.Candidate, len(pool))
	for i, g := range pool {
		out[i] = g.candidate
	}
	return out
}

// observe feeds the selected candidate to the drift monitor in the background
func (o *Orchestrator) observe(run *model.Run) {
	if o.drift == nil {
		return
	}
	selected := run.Selected()
	if selected == nil {
		return
	}
	obs := model.DriftObservation{
		Stylistic:     selected.Scores.Stylistic,
		Semantic:      selected.Scores.Semantic,
		Combined:      selected.Scores.Combined,
		Model:         run.Model,
		PromptVersion: run.PromptVersion,
		At:            run.CreatedAt,
	}
	if run.ProfileConfidence != nil {
		obs.Confidence = *run.ProfileConfidence
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), driftTimeout)
		defer cancel()

		alerts, err := o.drift.Record(ctx, run.UserID, obs)
		if err != nil {
			o.logger.Warn("drift update failed", "user", run.UserID, "error", err)
		}
		for _, a := range alerts {
			o.metrics.RecordDriftAlert(a.Kind)
		}
	}()
}

// seed loads an author's persisted history into the monitor once per process.
// It runs before the current run is persisted so the history never includes it.
func (o *Orchestrator) seed(ctx context.Context, userID string) {
	if o.drift == nil {
		return
	}
	if _, loaded := o.seeded.LoadOrStore(userID, struct{}{}); loaded {
		return
	}
	history, err := o.store.RecentObservations(ctx, userID, o.drift.Size())
	if err != nil {
		o.seeded.Delete(userID)
		o.logger.Warn("failed to load drift history", "user", userID, "error", err)
		return
	}
	o.drift.Seed(userID, history)
}
