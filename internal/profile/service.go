// Package profile maintains per-author voice profiles from contributed samples
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MorganMind/penrose/internal/confidence"
	"github.com/MorganMind/penrose/internal/fingerprint"
	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/store"
)

// MinSamples is the sample count at which a profile becomes active
const MinSamples = 3

// ErrEmptySample is returned when a sample has no words to learn from
var ErrEmptySample = errors.New("sample contains no words")

// Store is the persistence the service needs
type Store interface {
	GetProfile(ctx context.Context, scope model.ProfileScope) (*model.VoiceProfile, error)
	SaveProfile(ctx context.Context, p *model.VoiceProfile) error
	AddProfileDocument(ctx context.Context, profileID, documentID string) (bool, error)
}

// Sample is one piece of an author's writing
type Sample struct {
	Text       string
	HTML       bool
	SourceType model.SourceType
	DocumentID string
	At         time.Time // Defaults to now
}

// Service builds and reads voice profiles
type Service struct {
	store  Store
	locker store.Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a profile service
func NewService(s Store, locker store.Locker, logger *slog.Logger) *Service {
	if locker == nil {
		locker = store.NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, locker: locker, logger: logger, now: time.Now}
}

// Contribute folds a sample into the scope's profile, creating it on the first sample
func (s *Service) Contribute(ctx context.Context, scope model.ProfileScope, sample Sample) (*model.VoiceProfile, error) {
	if scope.UserID == "" {
		return nil, fmt.Errorf("contribute: user id is required")
	}
	if sample.SourceType == "" {
		sample.SourceType = model.SourceManualSample
	}
	if !sample.SourceType.Valid() {
		return nil, fmt.Errorf("contribute: unknown source type %q", sample.SourceType)
	}
	if sample.At.IsZero() {
		sample.At = s.now()
	}

	text := sample.Text
	if sample.HTML {
		plain, err := fingerprint.PlainText(text)
		if err != nil {
			return nil, fmt.Errorf("contribute: %w", err)
		}
		text = plain
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySample
	}
	fp := fingerprint.Extract(text)
	if fp.WordCount == 0 {
		return nil, ErrEmptySample
	}

	unlock, err := s.locker.Lock(ctx, scope.Key())
	if err != nil {
		return nil, fmt.Errorf("lock profile %s: %w", scope.Key(), err)
	}
	defer unlock()

	p, err := s.store.GetProfile(ctx, scope)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = s.create(scope, fp, sample)
	case err != nil:
		return nil, fmt.Errorf("contribute: %w", err)
	default:
		s.blend(p, fp, sample)
	}

	if sample.DocumentID != "" {
		isNew, err := s.store.AddProfileDocument(ctx, p.ID, sample.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("contribute: %w", err)
		}
		if isNew {
			p.DistinctDocuments++
		}
	}

	if p.SampleCount >= MinSamples {
		p.Status = model.ProfileActive
	}
	conf := confidence.Compute(confidence.Input{
		TotalWords:        p.WordCount,
		SampleCount:       p.SampleCount,
		SourceTypeCounts:  p.SourceTypeCounts,
		DistinctDocuments: p.DistinctDocuments,
		OldestSample:      p.OldestSampleAt,
		NewestSample:      p.LastSampleAt,
	})
	p.Confidence = conf.Overall
	p.Band = conf.Band
	p.UpdatedAt = s.now()

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("contribute: %w", err)
	}

	s.logger.Info("profile sample contributed",
		"scope", scope.Key(),
		"samples", p.SampleCount,
		"words", p.WordCount,
		"status", p.Status,
		"confidence", p.Confidence)
	return p, nil
}

func (s *Service) create(scope model.ProfileScope, fp model.Fingerprint, sample Sample) *model.VoiceProfile {
	now := s.now()
	return &model.VoiceProfile{
		ID:               uuid.New().String(),
		UserID:           scope.UserID,
		OrgID:            scope.OrgID,
		Fingerprint:      fp,
		SampleCount:      1,
		WordCount:        fp.WordCount,
		Status:           model.ProfileBuilding,
		SourceTypeCounts: map[model.SourceType]int{sample.SourceType: 1},
		OldestSampleAt:   sample.At,
		LastSampleAt:     sample.At,
		AvgSampleWords:   float64(fp.WordCount),
		CreatedAt:        now,
	}
}

func (s *Service) blend(p *model.VoiceProfile, fp model.Fingerprint, sample Sample) {
	res := fingerprint.Blend(fingerprint.BlendInput{
		Existing:       p.Fingerprint,
		Incoming:       fp,
		SampleCount:    p.SampleCount,
		AvgSampleWords: p.AvgSampleWords,
		LastSampleAt:   p.LastSampleAt,
		Now:            sample.At,
	})
	s.logger.Debug("profile blended",
		"profile", p.ID,
		"alpha", res.Alpha,
		"size_penalty", res.Guards.SizePenalty,
		"staleness_boost", res.Guards.StalenessBoost)

	p.Fingerprint = res.Fingerprint
	p.SampleCount++
	p.WordCount += fp.WordCount
	p.AvgSampleWords = float64(p.WordCount) / float64(p.SampleCount)

	if p.SourceTypeCounts == nil {
		p.SourceTypeCounts = make(map[model.SourceType]int)
	}
	p.SourceTypeCounts[sample.SourceType]++

	if p.OldestSampleAt.IsZero() || sample.At.Before(p.OldestSampleAt) {
		p.OldestSampleAt = sample.At
	}
	if sample.At.After(p.LastSampleAt) {
		p.LastSampleAt = sample.At
	}
}
