package embedding

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/metrics"
)

type openAIService struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewOpenAIService creates an embedding service backed by the OpenAI
// embeddings API (or any OpenAI-compatible endpoint via BaseURL).
func NewOpenAIService(cfg *Config) (Service, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, serviceerrors.FeatureDisabled("embedding provider API key is not configured")
	}
	cfg = cfg.withDefaults()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &openAIService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
	}, nil
}

func (s *openAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(s.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if s.dimensions > 0 {
		req.Dimensions = s.dimensions
	}

	start := time.Now()
	resp, err := s.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("embed", "error").Inc()
		return nil, parseProviderError(err)
	}
	if len(resp.Data) == 0 {
		metrics.EmbeddingRequests.WithLabelValues("embed", "error").Inc()
		return nil, serviceerrors.EmbeddingProvider("empty embedding response", nil)
	}

	metrics.EmbeddingRequests.WithLabelValues("embed", "success").Inc()
	metrics.EmbeddingDuration.Observe(elapsed.Seconds())

	return resp.Data[0].Embedding, nil
}

func (s *openAIService) Dimensions() int {
	return s.dimensions
}

// parseProviderError maps transport failures onto the coded error taxonomy so
// callers can distinguish timeouts from ordinary provider errors.
func parseProviderError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return serviceerrors.Timeout("embedding provider call timed out")
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return serviceerrors.EmbeddingProvider(
			fmt.Sprintf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message), err)
	}

	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return serviceerrors.EmbeddingProvider(
			fmt.Sprintf("embedding request error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body)), err)
	}

	return serviceerrors.EmbeddingProvider("embedding request failed", err)
}
