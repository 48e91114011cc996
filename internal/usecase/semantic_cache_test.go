package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-core/internal/domain/entity"
)

// lengthEmbedder maps a question to a one-dimensional vector; good enough to
// exercise the plumbing.
type lengthEmbedder struct{ err error }

func (e lengthEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, e.err
}

type savedPoint struct {
	prompt   string
	content  string
	metadata map[string]any
}

type memoryVectors struct{ points []savedPoint }

func (m *memoryVectors) Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.Completion, float32, string, error) {
	for _, p := range m.points {
		match := true
		for k, v := range filters {
			if p.metadata[k] != v {
				match = false
			}
		}
		if match {
			return &entity.Completion{Content: p.content}, 1, p.prompt, nil
		}
	}
	return nil, 0, "", nil
}

func (m *memoryVectors) Save(ctx context.Context, prompt string, resp *entity.Completion, vector []float32, metadata map[string]any) error {
	m.points = append(m.points, savedPoint{prompt: prompt, content: resp.Content, metadata: metadata})
	return nil
}

type judgeFunc func(a, b string) bool

func (f judgeFunc) IsMatch(ctx context.Context, a, b string) bool { return f(a, b) }

func TestSemanticCache_RoundTrip(t *testing.T) {
	vectors := &memoryVectors{}
	c := NewSemanticCache(lengthEmbedder{}, vectors, nil, 0.9)
	req := entity.WisdomRequest{Question: "How do I find peace?", Category: entity.CategoryHappiness, Language: entity.LanguageEnglish}

	require.NoError(t, c.Set(context.Background(), req, "Breathe."))
	require.Len(t, vectors.points, 1)
	assert.Equal(t, "happiness", vectors.points[0].metadata["category"])

	answer, ok, err := c.Get(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Breathe.", answer)

	other := req
	other.Language = entity.LanguageHindi
	_, ok, err = c.Get(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSemanticCache_JudgeRejects(t *testing.T) {
	vectors := &memoryVectors{}
	judged := 0
	c := NewSemanticCache(lengthEmbedder{}, vectors, judgeFunc(func(a, b string) bool {
		judged++
		return strings.Contains(a, "peace") == strings.Contains(b, "peace")
	}), 0.9)
	base := entity.WisdomRequest{Question: "How do I find peace?", Category: entity.CategoryHappiness, Language: entity.LanguageEnglish}
	require.NoError(t, c.Set(context.Background(), base, "Breathe."))

	// identical question skips the judge
	_, ok, _ := c.Get(context.Background(), base)
	assert.True(t, ok)
	assert.Zero(t, judged)

	similar := base
	similar.Question = "How can I find joy?"
	_, ok, _ = c.Get(context.Background(), similar)
	assert.False(t, ok)
	assert.Equal(t, 1, judged)
}

func TestSemanticCache_EmbedderError(t *testing.T) {
	c := NewSemanticCache(lengthEmbedder{err: errors.New("quota")}, &memoryVectors{}, nil, 0.9)
	_, ok, err := c.Get(context.Background(), entity.WisdomRequest{Question: "q"})
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), entity.WisdomRequest{Question: "q"}, "a"))
}
