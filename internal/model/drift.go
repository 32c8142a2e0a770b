package model

import "time"

// DriftKind classifies a drift alert
type DriftKind string

const (
	DriftSimilarityDrop DriftKind = "similarity_drop" // Recent stylistic mean fell below the older mean
	DriftVarianceSpike  DriftKind = "variance_spike"  // Recent stylistic variance jumped
)

// DriftObservation is one run outcome recorded for drift analysis
type DriftObservation struct {
	Stylistic     float64   `json:"stylistic"`
	Semantic      float64   `json:"semantic"`
	Combined      float64   `json:"combined"`
	Confidence    float64   `json:"confidence"`
	Model         string    `json:"model,omitempty"`
	PromptVersion string    `json:"prompt_version,omitempty"`
	At            time.Time `json:"at"`
}

// DriftAlert is an advisory signal that an author's suggestions are regressing
type DriftAlert struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	Kind   DriftKind `json:"kind"`

	RecentMean     float64 `json:"recent_mean"`
	OlderMean      float64 `json:"older_mean"`
	RecentVariance float64 `json:"recent_variance"`
	OlderVariance  float64 `json:"older_variance"`
	Samples        int     `json:"samples"`

	Model         string    `json:"model,omitempty"`
	PromptVersion string    `json:"prompt_version,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
