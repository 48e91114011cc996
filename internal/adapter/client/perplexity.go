package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"wisdom-core/internal/domain/entity"
)

const defaultPerplexityURL = "https://api.perplexity.ai"

// PerplexityClient is the secondary model of the direct tier.
type PerplexityClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewPerplexityClient(apiKey, model, baseURL string, hc *http.Client) *PerplexityClient {
	if baseURL == "" {
		baseURL = defaultPerplexityURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &PerplexityClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

func (p *PerplexityClient) Generate(ctx context.Context, prompt string) (*entity.Completion, error) {
	start := time.Now()
	raw, _, err := postJSON(ctx, p.http, "perplexity", p.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		chatRequest{Model: p.model, Messages: []chatMessage{{Role: "user", Content: prompt}}},
	)
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return nil, entity.NewServiceError(entity.FailureUpstream, "perplexity", 0, errors.New("no content in response"))
	}

	model := gjson.GetBytes(raw, "model").String()
	if model == "" {
		model = p.model
	}
	return &entity.Completion{
		Content:    content,
		Model:      model,
		TokenCount: int(gjson.GetBytes(raw, "usage.total_tokens").Int()),
		Latency:    time.Since(start),
	}, nil
}
