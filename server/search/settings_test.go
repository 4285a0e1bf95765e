package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/profile"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		EmbeddingBatchSize:  50,
		EmbeddingTimeout:    30 * time.Second,
		TextWeight:          0.4,
		VectorWeight:        0.6,
		SearchDefaultLimit:  20,
		SearchMaxLimit:      100,
	}
}

// TestNormalizeWeights tests weight normalization at startup.
func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name       string
		text       float64
		vector     float64
		wantText   float64
		wantVector float64
	}{
		{"defaults kept", 0.4, 0.6, 0.4, 0.6},
		{"equal weights scaled", 0.3, 0.3, 0.5, 0.5},
		{"both zero fall back to defaults", 0, 0, 0.4, 0.6},
		{"negative treated as zero", -1, -2, 0.4, 0.6},
		{"ratio preserved", 1, 3, 0.25, 0.75},
		{"one-sided text", 2, 0, 1, 0},
		{"one-sided vector", 0, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotVector := normalizeWeights(tt.text, tt.vector)
			assert.InDelta(t, tt.wantText, gotText, 1e-9)
			assert.InDelta(t, tt.wantVector, gotVector, 1e-9)
		})
	}
}

// TestNewSettingsFromProfile tests provider construction gating.
func TestNewSettingsFromProfile(t *testing.T) {
	t.Run("disabled without key", func(t *testing.T) {
		p := testProfile()
		p.VectorSearchEnabled = true

		settings, err := NewSettingsFromProfile(p)
		require.NoError(t, err)
		assert.False(t, settings.Enabled())
		assert.Nil(t, settings.Provider())
	})

	t.Run("disabled by flag even with key", func(t *testing.T) {
		p := testProfile()
		p.OpenAIAPIKey = "sk-test"

		settings, err := NewSettingsFromProfile(p)
		require.NoError(t, err)
		assert.False(t, settings.Enabled())
		assert.Nil(t, settings.Provider())
	})

	t.Run("enabled with flag and key", func(t *testing.T) {
		p := testProfile()
		p.VectorSearchEnabled = true
		p.OpenAIAPIKey = "sk-test"

		settings, err := NewSettingsFromProfile(p)
		require.NoError(t, err)
		assert.True(t, settings.Enabled())
		assert.NotNil(t, settings.Provider())
	})

	t.Run("weights normalized on load", func(t *testing.T) {
		p := testProfile()
		p.TextWeight = 0.3
		p.VectorWeight = 0.3

		settings, err := NewSettingsFromProfile(p)
		require.NoError(t, err)

		snapshot := settings.Snapshot()
		assert.InDelta(t, 0.5, snapshot.TextWeight, 1e-9)
		assert.InDelta(t, 0.5, snapshot.VectorWeight, 1e-9)
	})
}

// TestSnapshot tests that snapshots carry the effective runtime values.
func TestSnapshot(t *testing.T) {
	settings := newTestSettings(newMockProvider(8))

	snapshot := settings.Snapshot()
	assert.True(t, snapshot.Enabled)
	assert.Equal(t, "text-embedding-3-small", snapshot.Model)
	assert.Equal(t, 1536, snapshot.Dimensions)
	assert.Equal(t, 50, snapshot.BatchSize)
	assert.Equal(t, 20, snapshot.DefaultLimit)
	assert.Equal(t, 100, snapshot.MaxLimit)
}

// TestEnableVectorSearch tests the runtime enable path.
func TestEnableVectorSearch(t *testing.T) {
	t.Run("no key anywhere", func(t *testing.T) {
		settings, err := NewSettingsFromProfile(testProfile())
		require.NoError(t, err)

		err = settings.EnableVectorSearch("", "", 0)
		assert.Error(t, err)
		assert.True(t, serviceerrors.IsCode(err, serviceerrors.ErrCodeFeatureDisabled))
		assert.False(t, settings.Enabled())
	})

	t.Run("key supplied at enable time", func(t *testing.T) {
		settings, err := NewSettingsFromProfile(testProfile())
		require.NoError(t, err)

		err = settings.EnableVectorSearch("sk-test", "text-embedding-3-large", 3072)
		require.NoError(t, err)

		assert.True(t, settings.Enabled())
		assert.NotNil(t, settings.Provider())

		snapshot := settings.Snapshot()
		assert.Equal(t, "text-embedding-3-large", snapshot.Model)
		assert.Equal(t, 3072, snapshot.Dimensions)
	})

	t.Run("stored key reused", func(t *testing.T) {
		p := testProfile()
		p.OpenAIAPIKey = "sk-stored"

		settings, err := NewSettingsFromProfile(p)
		require.NoError(t, err)
		assert.False(t, settings.Enabled())

		err = settings.EnableVectorSearch("", "", 0)
		require.NoError(t, err)
		assert.True(t, settings.Enabled())
	})

	t.Run("omitted model and dimensions keep current", func(t *testing.T) {
		settings, err := NewSettingsFromProfile(testProfile())
		require.NoError(t, err)

		err = settings.EnableVectorSearch("sk-test", "", 0)
		require.NoError(t, err)

		snapshot := settings.Snapshot()
		assert.Equal(t, "text-embedding-3-small", snapshot.Model)
		assert.Equal(t, 1536, snapshot.Dimensions)
	})
}
