package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"wisdom-core/internal/domain/entity"
)

type cannedProvider struct {
	content string
	err     error
	prompt  string
}

func (p *cannedProvider) Generate(ctx context.Context, prompt string) (*entity.Completion, error) {
	p.prompt = prompt
	if p.err != nil {
		return nil, p.err
	}
	return &entity.Completion{Content: p.content}, nil
}

func TestIntentJudge(t *testing.T) {
	yes := &cannedProvider{content: " yes\n"}
	assert.True(t, NewIntentJudge(yes).IsMatch(context.Background(), "a", "b"))
	assert.Contains(t, yes.prompt, "Question 1: a")

	assert.False(t, NewIntentJudge(&cannedProvider{content: "NO"}).IsMatch(context.Background(), "a", "b"))
	assert.False(t, NewIntentJudge(&cannedProvider{content: "NOT YES"}).IsMatch(context.Background(), "a", "b"))
	assert.False(t, NewIntentJudge(&cannedProvider{err: errors.New("down")}).IsMatch(context.Background(), "a", "b"))
}
