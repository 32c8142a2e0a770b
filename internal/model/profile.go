package model

import "time"

// VoiceProfile is an author's accumulated, slowly-evolving fingerprint.
// One profile exists per (user, org) scope; OrgID is empty for the user-global profile.
type VoiceProfile struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id,omitempty"`

	Fingerprint Fingerprint `json:"fingerprint"` // Current blended fingerprint

	SampleCount int           `json:"sample_count"`
	WordCount   int           `json:"word_count"`
	Status      ProfileStatus `json:"status"`

	Confidence float64        `json:"confidence"` // Profile-level confidence, 0-1
	Band       ConfidenceBand `json:"band"`

	SourceTypeCounts  map[SourceType]int `json:"source_type_counts"`
	DistinctDocuments int                `json:"distinct_documents"`

	OldestSampleAt time.Time `json:"oldest_sample_at"`
	LastSampleAt   time.Time `json:"last_sample_at"`
	AvgSampleWords float64   `json:"avg_sample_words"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileStatus is the lifecycle status of a voice profile
type ProfileStatus string

const (
	ProfileBuilding ProfileStatus = "building" // Below the minimum sample count
	ProfileActive   ProfileStatus = "active"   // Eligible to drive enforcement
)

// ConfidenceBand classifies a confidence score
type ConfidenceBand string

const (
	BandLow    ConfidenceBand = "low"
	BandMedium ConfidenceBand = "medium"
	BandHigh   ConfidenceBand = "high"
)

// SourceType classifies where a contributed sample came from
type SourceType string

const (
	SourcePublishedPost SourceType = "published_post"
	SourceDraft         SourceType = "draft"
	SourceImported      SourceType = "imported"
	SourceManualSample  SourceType = "manual_sample"
)

// SourceTypes lists every known source type in a stable order
var SourceTypes = []SourceType{SourcePublishedPost, SourceDraft, SourceImported, SourceManualSample}

// Valid reports whether the source type is known
func (s SourceType) Valid() bool {
	for _, known := range SourceTypes {
		if s == known {
			return true
		}
	}
	return false
}

// Tenant identifies who a refinement or contribution is for
type Tenant struct {
	UserID     string `json:"user_id"`
	OrgID      string `json:"org_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// ProfileScope identifies one profile row
type ProfileScope struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id,omitempty"`
}

// Key returns a stable string key for the scope
func (s ProfileScope) Key() string {
	if s.OrgID == "" {
		return "user:" + s.UserID
	}
	return "org:" + s.OrgID + ":user:" + s.UserID
}

// LookupOrder returns the scopes to try for a tenant: tenant-scoped first, then user-global
func (t Tenant) LookupOrder() []ProfileScope {
	order := make([]ProfileScope, 0, 2)
	if t.OrgID != "" {
		order = append(order, ProfileScope{UserID: t.UserID, OrgID: t.OrgID})
	}
	order = append(order, ProfileScope{UserID: t.UserID})
	return order
}
