package client

import (
	"context"
	"fmt"
	"strings"

	"wisdom-core/internal/domain/repository"
)

// IntentJudge asks a model whether two questions want the same guidance,
// so the semantic cache never serves an answer to a merely similar question.
type IntentJudge struct {
	provider repository.AIProvider
}

func NewIntentJudge(provider repository.AIProvider) *IntentJudge {
	return &IntentJudge{provider: provider}
}

const judgeInstruction = `You compare two questions a seeker asked a spiritual guide.
Would the same answer serve both of them equally well?
- If yes, respond ONLY with "YES".
- If they differ in situation, feeling or what they ask for, respond ONLY with "NO".`

func (j *IntentJudge) IsMatch(ctx context.Context, question, cachedQuestion string) bool {
	prompt := fmt.Sprintf("%s\n\nQuestion 1: %s\nQuestion 2: %s", judgeInstruction, question, cachedQuestion)

	resp, err := j.provider.Generate(ctx, prompt)
	if err != nil {
		return false // no match on error
	}

	result := strings.TrimSpace(strings.ToUpper(resp.Content))
	return strings.HasPrefix(result, "YES")
}
