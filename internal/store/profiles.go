package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MorganMind/penrose/internal/model"
)

const profileColumns = `id, user_id, org_id, fingerprint, sample_count, word_count, status, confidence, band,
	source_type_counts, distinct_documents, oldest_sample_at, last_sample_at, avg_sample_words, created_at, updated_at`

// GetProfile returns the profile for exactly this scope, or ErrNotFound
func (s *Store) GetProfile(ctx context.Context, scope model.ProfileScope) (*model.VoiceProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM voice_profiles WHERE user_id = ? AND org_id = ?`,
		scope.UserID, scope.OrgID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", scope.Key(), err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a profile, keyed by its scope
func (s *Store) SaveProfile(ctx context.Context, p *model.VoiceProfile) error {
	fp, err := json.Marshal(p.Fingerprint)
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	counts, err := json.Marshal(p.SourceTypeCounts)
	if err != nil {
		return fmt.Errorf("marshal source type counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO voice_profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, org_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			sample_count = excluded.sample_count,
			word_count = excluded.word_count,
			status = excluded.status,
			confidence = excluded.confidence,
			band = excluded.band,
			source_type_counts = excluded.source_type_counts,
			distinct_documents = excluded.distinct_documents,
			oldest_sample_at = excluded.oldest_sample_at,
			last_sample_at = excluded.last_sample_at,
			avg_sample_words = excluded.avg_sample_words,
			updated_at = excluded.updated_at`,
		p.ID, p.UserID, p.OrgID, string(fp), p.SampleCount, p.WordCount, string(p.Status),
		p.Confidence, string(p.Band), string(counts), p.DistinctDocuments,
		formatTime(p.OldestSampleAt), formatTime(p.LastSampleAt), p.AvgSampleWords,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AddProfileDocument records that a profile has seen a document and reports whether it is new
func (s *Store) AddProfileDocument(ctx context.Context, profileID, documentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profile_documents (profile_id, document_id) VALUES (?, ?)`,
		profileID, documentID)
	if err != nil {
		return false, fmt.Errorf("add profile document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*model.VoiceProfile, error) {
	var (
		p                              model.VoiceProfile
		fp, counts, status, band       string
		oldest, last, created, updated sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.OrgID, &fp, &p.SampleCount, &p.WordCount, &status,
		&p.Confidence, &band, &counts, &p.DistinctDocuments, &oldest, &last, &p.AvgSampleWords,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProfileStatus(status)
	p.Band = model.ConfidenceBand(band)

	if err := json.Unmarshal([]byte(fp), &p.Fingerprint); err != nil {
		return nil, fmt.Errorf("unmarshal fingerprint: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &p.SourceTypeCounts); err != nil {
		return nil, fmt.Errorf("unmarshal source type counts: %w", err)
	}
	if p.SourceTypeCounts == nil {
		p.SourceTypeCounts = make(map[model.SourceType]int)
	}

	for _, ts := range []struct {
		dst *time.Time
		src sql.NullString
	}{
		{&p.OldestSampleAt, oldest},
		{&p.LastSampleAt, last},
		{&p.CreatedAt, created},
		{&p.UpdatedAt, updated},
	} {
		t, err := parseTime(ts.src)
		if err != nil {
			return nil, err
		}
		*ts.dst = t
	}
	return &p, nil
}
