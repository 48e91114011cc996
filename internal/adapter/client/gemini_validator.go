package client

import (
	"context"

	"google.golang.org/genai"
)

// GeminiKeyValidator checks a key with the cheapest authenticated call
// available: listing a single model.
type GeminiKeyValidator struct {
	opts GeminiOptions
}

func NewGeminiKeyValidator(opts GeminiOptions) *GeminiKeyValidator {
	return &GeminiKeyValidator{opts: opts}
}

func (v *GeminiKeyValidator) ValidateKey(ctx context.Context, key string) error {
	c, err := newGenAIClient(ctx, key, v.opts)
	if err != nil {
		return err
	}
	if _, err := c.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		return wrapGenAIError("gemini", err)
	}
	return nil
}
