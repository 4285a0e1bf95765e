package search

import (
	"log/slog"
	"sync"
	"time"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/plugin/embedding"
)

// Default hybrid weights used when both configured weights are zero.
const (
	defaultTextWeight   = 0.4
	defaultVectorWeight = 0.6
)

// Settings is the process-wide runtime search configuration. Reads go through
// snapshot accessors; the only writer is EnableVectorSearch, which swaps the
// enabled flag and the provider handle under one lock so a reader can never
// observe the feature enabled without a usable provider.
type Settings struct {
	mu sync.RWMutex

	enabled      bool
	apiKey       string
	baseURL      string
	model        string
	dimensions   int
	textWeight   float64
	vectorWeight float64
	batchSize    int
	defaultLimit int
	maxLimit     int
	timeout      time.Duration

	provider embedding.Service
}

// Snapshot is an immutable copy of the runtime search configuration.
type Snapshot struct {
	Enabled      bool
	Model        string
	Dimensions   int
	TextWeight   float64
	VectorWeight float64
	BatchSize    int
	DefaultLimit int
	MaxLimit     int
	Timeout      time.Duration
}

// NewSettingsFromProfile builds the runtime configuration, normalizing the
// hybrid weights and constructing the embedding provider when the profile
// enables vector search with a usable key.
func NewSettingsFromProfile(p *profile.Profile) (*Settings, error) {
	textWeight, vectorWeight := normalizeWeights(p.TextWeight, p.VectorWeight)

	s := &Settings{
		apiKey:       p.OpenAIAPIKey,
		baseURL:      p.OpenAIBaseURL,
		model:        p.EmbeddingModel,
		dimensions:   p.EmbeddingDimensions,
		textWeight:   textWeight,
		vectorWeight: vectorWeight,
		batchSize:    p.EmbeddingBatchSize,
		defaultLimit: p.SearchDefaultLimit,
		maxLimit:     p.SearchMaxLimit,
		timeout:      p.EmbeddingTimeout,
	}

	if p.IsVectorSearchCapable() {
		provider, err := embedding.NewOpenAIService(&embedding.Config{
			APIKey:     s.apiKey,
			BaseURL:    s.baseURL,
			Model:      s.model,
			Dimensions: s.dimensions,
			Timeout:    s.timeout,
		})
		if err != nil {
			return nil, err
		}
		s.enabled = true
		s.provider = provider
		slog.Info("vector search enabled from profile",
			slog.String("model", s.model),
			slog.Int("dimensions", s.dimensions))
	}

	return s, nil
}

// normalizeWeights scales the hybrid weights to sum to 1.0 preserving their
// ratio; when both are zero the documented defaults apply.
func normalizeWeights(textWeight, vectorWeight float64) (float64, float64) {
	if textWeight <= 0 && vectorWeight <= 0 {
		return defaultTextWeight, defaultVectorWeight
	}
	sum := textWeight + vectorWeight
	return textWeight / sum, vectorWeight / sum
}

// Snapshot returns a consistent copy of the current configuration.
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Enabled:      s.enabled,
		Model:        s.model,
		Dimensions:   s.dimensions,
		TextWeight:   s.textWeight,
		VectorWeight: s.vectorWeight,
		BatchSize:    s.batchSize,
		DefaultLimit: s.defaultLimit,
		MaxLimit:     s.maxLimit,
		Timeout:      s.timeout,
	}
}

// Enabled reports whether vector search is currently usable.
func (s *Settings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled && s.provider != nil
}

// Provider returns the current embedding provider, or nil when disabled.
func (s *Settings) Provider() embedding.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return nil
	}
	return s.provider
}

// EnableVectorSearch turns the feature on at runtime. An empty apiKey keeps
// the configured one; empty model or zero dimensions keep current values. The
// new provider and the enabled flag are swapped atomically.
func (s *Settings) EnableVectorSearch(apiKey, model string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiKey == "" {
		apiKey = s.apiKey
	}
	if apiKey == "" {
		return serviceerrors.FeatureDisabled("no embedding API key configured; supply api_key or set STOREFRONT_OPENAI_API_KEY")
	}
	if model == "" {
		model = s.model
	}
	if dimensions <= 0 {
		dimensions = s.dimensions
	}

	provider, err := embedding.NewOpenAIService(&embedding.Config{
		APIKey:     apiKey,
		BaseURL:    s.baseURL,
		Model:      model,
		Dimensions: dimensions,
		Timeout:    s.timeout,
	})
	if err != nil {
		return err
	}

	s.apiKey = apiKey
	s.model = model
	s.dimensions = dimensions
	s.provider = provider
	s.enabled = true

	slog.Info("vector search enabled",
		slog.String("model", model),
		slog.Int("dimensions", dimensions))
	return nil
}
