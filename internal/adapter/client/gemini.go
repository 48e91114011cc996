package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"wisdom-core/internal/domain/entity"
)

// KeySource hands out the API key to call Gemini with.
// usecase.KeyRing implements it.
type KeySource interface {
	Key(ctx context.Context) (string, error)
	Invalidate(key string)
}

// GeminiOptions points the clients at a non-default endpoint. Tests use it
// with an httptest server.
type GeminiOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient generates completions with the Gemini API, one genai client
// per API key.
type GeminiClient struct {
	keys  KeySource
	model string
	opts  GeminiOptions

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiClient(keys KeySource, model string, opts GeminiOptions) *GeminiClient {
	return &GeminiClient{
		keys:    keys,
		model:   model,
		opts:    opts,
		clients: make(map[string]*genai.Client),
	}
}

// Model is the model name completions are requested from.
func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*entity.Completion, error) {
	start := time.Now()
	result, err := g.call(ctx, func(ctx context.Context, c *genai.Client) (*genai.GenerateContentResponse, error) {
		return c.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	})
	if err != nil {
		return nil, err
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return nil, entity.NewServiceError(entity.FailureUpstream, "gemini", 0, errors.New("no text in response"))
	}

	completion := &entity.Completion{
		Content: text,
		Model:   g.model,
		Latency: time.Since(start),
	}
	if result.UsageMetadata != nil {
		completion.TokenCount = int(result.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}

// call runs fn with the client for the current key. A rejected key is
// invalidated so the next call rotates to a backup.
func (g *GeminiClient) call(ctx context.Context, fn func(context.Context, *genai.Client) (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	key, err := g.keys.Key(ctx)
	if err != nil {
		return nil, err
	}
	c, err := g.clientFor(ctx, key)
	if err != nil {
		return nil, err
	}

	result, err := fn(ctx, c)
	if err != nil {
		err = wrapGenAIError("gemini", err)
		if entity.KindOf(err) == entity.FailureAuth {
			g.keys.Invalidate(key)
		}
		return nil, err
	}
	return result, nil
}

func (g *GeminiClient) clientFor(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	c, err := newGenAIClient(ctx, key, g.opts)
	if err != nil {
		return nil, err
	}
	g.clients[key] = c
	return c, nil
}

func newGenAIClient(ctx context.Context, key string, opts GeminiOptions) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return c, nil
}

// wrapGenAIError converts a genai error into an entity.ServiceError.
func wrapGenAIError(source string, err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		kind := entity.FailureUpstream
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
			kind = entity.FailureNetwork
		}
		return entity.NewServiceError(kind, source, 0, err)
	}

	kind := entity.KindForStatus(apiErr.Code)
	if isKeyRejection(apiErr) {
		kind = entity.FailureAuth
	}
	return entity.NewServiceError(kind, source, apiErr.Code, err)
}

// Gemini answers an invalid key with 400 INVALID_ARGUMENT and an
// ErrorInfo reason of API_KEY_INVALID rather than a 401.
func isKeyRejection(apiErr genai.APIError) bool {
	for _, d := range apiErr.Details {
		if reason, _ := d["reason"].(string); strings.HasPrefix(reason, "API_KEY_") {
			return true
		}
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key")
}
