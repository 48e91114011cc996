package client

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"wisdom-core/internal/domain/entity"
)

// Embedder turns text into vectors for the semantic cache. It shares the
// key source of a GeminiClient.
type Embedder struct {
	gemini *GeminiClient
	model  string // e.g., "text-embedding-004"
}

func NewEmbedder(gemini *GeminiClient, model string) *Embedder {
	return &Embedder{gemini: gemini, model: model}
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key, err := e.gemini.keys.Key(ctx)
	if err != nil {
		return nil, err
	}
	c, err := e.gemini.clientFor(ctx, key)
	if err != nil {
		return nil, err
	}

	res, err := c.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		err = wrapGenAIError("gemini-embed", err)
		if entity.KindOf(err) == entity.FailureAuth {
			e.gemini.keys.Invalidate(key)
		}
		return nil, err
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, entity.NewServiceError(entity.FailureUpstream, "gemini-embed", 0, errors.New("empty embedding"))
	}
	return res.Embeddings[0].Values, nil
}
