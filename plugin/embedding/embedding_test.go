package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
)

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{APIKey: "sk-test"}).withDefaults()

	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 1536, cfg.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestConfigDefaultsPreserveExplicitValues(t *testing.T) {
	cfg := (&Config{
		APIKey:     "sk-test",
		BaseURL:    "https://example.test/v1",
		Model:      "custom-model",
		Dimensions: 768,
		Timeout:    5 * time.Second,
	}).withDefaults()

	assert.Equal(t, "https://example.test/v1", cfg.BaseURL)
	assert.Equal(t, "custom-model", cfg.Model)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestNewOpenAIServiceRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIService(&Config{})
	require.Error(t, err)
	assert.True(t, serviceerrors.IsCode(err, serviceerrors.ErrCodeFeatureDisabled))

	_, err = NewOpenAIService(nil)
	require.Error(t, err)
}

func TestNewOpenAIServiceDimensions(t *testing.T) {
	svc, err := NewOpenAIService(&Config{APIKey: "sk-test", Dimensions: 512})
	require.NoError(t, err)
	assert.Equal(t, 512, svc.Dimensions())

	svc, err = NewOpenAIService(&Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode serviceerrors.ErrorCode
	}{
		{
			name:     "deadline exceeded maps to timeout",
			err:      context.DeadlineExceeded,
			wantCode: serviceerrors.ErrCodeTimeout,
		},
		{
			name:     "api error maps to provider error",
			err:      &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"},
			wantCode: serviceerrors.ErrCodeEmbeddingProvider,
		},
		{
			name:     "request error maps to provider error",
			err:      &openai.RequestError{HTTPStatusCode: 401, Body: []byte("unauthorized")},
			wantCode: serviceerrors.ErrCodeEmbeddingProvider,
		},
		{
			name:     "unknown error maps to provider error",
			err:      assert.AnError,
			wantCode: serviceerrors.ErrCodeEmbeddingProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := parseProviderError(tt.err)
			assert.True(t, serviceerrors.IsCode(mapped, tt.wantCode), "got %v", mapped)
		})
	}
}
