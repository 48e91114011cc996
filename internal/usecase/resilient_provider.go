package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/retry"
)

// ResilientProvider is the direct-call tier: the primary model with
// retries, then one attempt on a fallback model.
type ResilientProvider struct {
	primary  repository.AIProvider
	fallback repository.AIProvider // The "Plan B" (e.g. Perplexity); may be nil
	policy   retry.Policy
	timeout  time.Duration // cap for the whole call
	log      logrus.FieldLogger
}

func NewResilientProvider(primary, fallback repository.AIProvider, log logrus.FieldLogger) *ResilientProvider {
	return &ResilientProvider{
		primary:  primary,
		fallback: fallback,
		policy: retry.Policy{
			MaxRetries: 2, // Total 3 attempts for Primary
			BaseDelay:  500 * time.Millisecond,
		},
		timeout: 25 * time.Second,
		log:     log.WithField("component", "reliability"),
	}
}

// WithPolicy overrides the retry policy and overall timeout.
func (r *ResilientProvider) WithPolicy(p retry.Policy, timeout time.Duration) *ResilientProvider {
	r.policy = p
	r.timeout = timeout
	return r
}

// primaryShare is the part of the overall timeout the primary may use when a
// fallback is configured; the rest is reserved for the fallback attempt.
const primaryShare = 2.0 / 3.0

func (r *ResilientProvider) Generate(ctx context.Context, prompt string) (*entity.Completion, error) {
	deadline := time.Now().Add(r.timeout)

	primaryBudget := r.timeout
	if r.fallback != nil {
		primaryBudget = time.Duration(float64(r.timeout) * primaryShare)
	}
	primaryCtx, cancel := context.WithTimeout(ctx, primaryBudget)
	resp, err := retry.Do(primaryCtx, r.policy, isRetryable, func(ctx context.Context) (*entity.Completion, error) {
		return r.primary.Generate(ctx, prompt)
	})
	cancel()
	if err == nil && resp != nil {
		return resp, nil
	}
	if err == nil {
		err = entity.NewServiceError(entity.FailureUpstream, "primary", 0, errEmptyAnswer)
	}
	if r.fallback == nil {
		return nil, err
	}

	r.log.WithError(err).Warn("primary exhausted, switching to fallback model")

	fbCtx, fbCancel := context.WithDeadline(ctx, deadline)
	defer fbCancel()
	fbResp, fbErr := r.fallback.Generate(fbCtx, prompt)
	if fbErr == nil && fbResp == nil {
		fbErr = entity.NewServiceError(entity.FailureUpstream, "fallback", 0, errEmptyAnswer)
	}
	if fbErr != nil {
		return nil, errors.Join(fbErr, err)
	}

	if fbResp.Metadata == nil {
		fbResp.Metadata = make(map[string]any)
	}
	fbResp.Metadata["fallback_used"] = true
	fbResp.Metadata["primary_error"] = err.Error()

	return fbResp, nil
}

// isRetryable retries network failures and rate limit / server errors.
func isRetryable(err error) bool {
	var se *entity.ServiceError
	if errors.As(err, &se) {
		switch se.Kind {
		case entity.FailureNetwork:
			return true
		case entity.FailureAuth:
			return false
		}
		return se.Status == 429 || se.Status >= 500
	}
	return entity.KindOf(err) == entity.FailureNetwork
}
