// Package embedding wraps the external embedding provider behind a small
// interface: given a text, return a fixed-length vector or fail with a
// recoverable provider error.
package embedding

import (
	"context"
	"time"
)

// Service is the embedding provider interface consumed by the search
// strategies and the backfill runner.
type Service interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension this service produces.
	Dimensions() int
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// Timeout bounds every provider call so one unresponsive request cannot
	// stall a caller indefinitely.
	Timeout time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.openai.com/v1"
	}
	if out.Model == "" {
		out.Model = "text-embedding-3-small"
	}
	if out.Dimensions <= 0 {
		out.Dimensions = 1536
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return &out
}
