package usecase

import (
	"context"
	"fmt"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// SemanticCache answers a question with the answer to an earlier question
// of the same category and language whose embedding is close enough. An
// optional IntentJudge confirms the match.
type SemanticCache struct {
	embedder  repository.Embedder
	store     repository.VectorStore
	judge     repository.IntentJudge // may be nil
	threshold float32
}

func NewSemanticCache(embedder repository.Embedder, store repository.VectorStore, judge repository.IntentJudge, threshold float32) *SemanticCache {
	return &SemanticCache{embedder: embedder, store: store, judge: judge, threshold: threshold}
}

func semanticFilters(req entity.WisdomRequest) map[string]string {
	return map[string]string{
		"category": string(req.Category),
		"language": string(req.Language),
	}
}

func (c *SemanticCache) Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error) {
	vector, err := c.embedder.CreateEmbedding(ctx, req.Question)
	if err != nil {
		return "", false, fmt.Errorf("embed question: %w", err)
	}

	hit, _, cachedQuestion, err := c.store.Search(ctx, vector, c.threshold, semanticFilters(req))
	if err != nil {
		return "", false, fmt.Errorf("vector search: %w", err)
	}
	if hit == nil || hit.Content == "" {
		return "", false, nil
	}
	if c.judge != nil && cachedQuestion != req.Question && !c.judge.IsMatch(ctx, req.Question, cachedQuestion) {
		return "", false, nil
	}
	return hit.Content, true, nil
}

func (c *SemanticCache) Set(ctx context.Context, req entity.WisdomRequest, answer string) error {
	vector, err := c.embedder.CreateEmbedding(ctx, req.Question)
	if err != nil {
		return fmt.Errorf("embed question: %w", err)
	}

	metadata := make(map[string]any, 2)
	for k, v := range semanticFilters(req) {
		metadata[k] = v
	}
	return c.store.Save(ctx, req.Question, &entity.Completion{Content: answer}, vector, metadata)
}
