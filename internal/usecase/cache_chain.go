package usecase

import (
	"context"
	"errors"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// CacheChain layers caches from fastest to slowest. A hit in a slower tier
// is copied into the faster ones.
type CacheChain struct {
	tiers []repository.ResponseCache
}

func NewCacheChain(tiers ...repository.ResponseCache) *CacheChain {
	var nonNil []repository.ResponseCache
	for _, t := range tiers {
		if t != nil {
			nonNil = append(nonNil, t)
		}
	}
	return &CacheChain{tiers: nonNil}
}

func (c *CacheChain) Len() int { return len(c.tiers) }

func (c *CacheChain) Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error) {
	var errs []error
	for i, tier := range c.tiers {
		answer, ok, err := tier.Get(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range c.tiers[:i] {
			if err := faster.Set(ctx, req, answer); err != nil {
				errs = append(errs, err)
			}
		}
		return answer, true, errors.Join(errs...)
	}
	return "", false, errors.Join(errs...)
}

func (c *CacheChain) Set(ctx context.Context, req entity.WisdomRequest, answer string) error {
	var errs []error
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, req, answer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
