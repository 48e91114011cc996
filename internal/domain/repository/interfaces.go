package repository

import (
	"context"
	"time"

	"wisdom-core/internal/domain/entity"
)

// ResponseCache stores answers for previously seen questions.
// A miss is ("", false, nil); errors are reserved for backend failures.
type ResponseCache interface {
	Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error)
	Set(ctx context.Context, req entity.WisdomRequest, answer string) error
}

// RemoteFunction is the get-wisdom endpoint, hosted or self-served.
type RemoteFunction interface {
	Invoke(ctx context.Context, req entity.WisdomRequest) (*entity.RemoteResult, error)
}

type AIProvider interface {
	Generate(ctx context.Context, prompt string) (*entity.Completion, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorStore backs the semantic cache.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.Completion, float32, string, error)
	Save(ctx context.Context, prompt string, resp *entity.Completion, vector []float32, metadata map[string]any) error
}

// IntentJudge decides whether two questions ask the same thing.
type IntentJudge interface {
	IsMatch(ctx context.Context, userPrompt, cachedPrompt string) bool
}

// KeyValidator checks an upstream API key with a cheap call.
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) error
}

// UsageStore keeps per-user monthly counters.
type UsageStore interface {
	// Consume atomically adds units unless the result would exceed limit.
	// It returns the counter value after the call.
	Consume(ctx context.Context, userID string, period string, units, limit int64) (int64, error)
	Usage(ctx context.Context, userID string, period string) (int64, error)
}

type Profile struct {
	UserID       string
	IsPremium    bool
	PlanID       string
	PremiumSince time.Time
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	SetPremium(ctx context.Context, userID, planID string) error
}

type PaymentEvent struct {
	ID       string
	UserID   string
	Provider string
	PlanID   string
	Token    string
	Status   string
}

type PaymentLog interface {
	RecordPayment(ctx context.Context, ev PaymentEvent) error
}
