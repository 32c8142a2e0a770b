package model

import "time"

// Config is the complete penrose configuration.
// Hierarchy (highest first): CLI flags, PENROSE_* env vars, config file, defaults.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding" mapstructure:"embedding"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Enforcement  EnforcementConfig  `yaml:"enforcement" mapstructure:"enforcement"`
	Drift        DriftConfig        `yaml:"drift" mapstructure:"drift"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
}

// LLMConfig configures the text-generation provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// EmbeddingConfig configures the embedding provider used by semantic scoring
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (heuristic only)
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// StoreConfig configures persistence
type StoreConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`                     // SQLite database path
	RedisURL string `yaml:"redis_url,omitempty" mapstructure:"redis_url"` // Optional; enables distributed profile locks
}

// CacheConfig configures the embedding cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// EnforcementConfig configures the refinement orchestrator
type EnforcementConfig struct {
	MinProfileWords        int     `yaml:"min_profile_words" mapstructure:"min_profile_words"`
	MaxAttemptsPerDocument int     `yaml:"max_attempts_per_document" mapstructure:"max_attempts_per_document"`
	InitialTemperature     float32 `yaml:"initial_temperature" mapstructure:"initial_temperature"`
	RetryTemperature       float32 `yaml:"retry_temperature" mapstructure:"retry_temperature"`
}

// DriftConfig configures the rolling-window drift monitor
type DriftConfig struct {
	Window             int     `yaml:"window" mapstructure:"window"`
	Recent             int     `yaml:"recent" mapstructure:"recent"`
	MinSamples         int     `yaml:"min_samples" mapstructure:"min_samples"`
	DropThreshold      float64 `yaml:"drop_threshold" mapstructure:"drop_threshold"`
	VarianceMultiplier float64 `yaml:"variance_multiplier" mapstructure:"variance_multiplier"`
}

// RateLimitingConfig bounds outbound generation calls per provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
			Timeout:  30,
		},
		Store: StoreConfig{
			Path: "penrose.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Enforcement: EnforcementConfig{
			MinProfileWords:        500,
			MaxAttemptsPerDocument: 5,
			InitialTemperature:     0.7,
			RetryTemperature:       0.4,
		},
		Drift: DriftConfig{
			Window:             20,
			Recent:             10,
			MinSamples:         15,
			DropThreshold:      0.08,
			VarianceMultiplier: 2.0,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
