package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// QuotaStatus is a user's voice-agent usage for the current month.
type QuotaStatus struct {
	UserID    string `json:"userId"`
	Period    string `json:"period"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Premium   bool   `json:"premium"`
}

// QuotaService meters voice-agent usage per user and month.
type QuotaService struct {
	usage        repository.UsageStore
	profiles     repository.ProfileStore // may be nil: everyone is on the free tier
	freeLimit    int64
	premiumLimit int64
	now          func() time.Time
}

func NewQuotaService(usage repository.UsageStore, profiles repository.ProfileStore, freeLimit, premiumLimit int64) *QuotaService {
	return &QuotaService{
		usage:        usage,
		profiles:     profiles,
		freeLimit:    freeLimit,
		premiumLimit: premiumLimit,
		now:          time.Now,
	}
}

// Period is the UTC month a usage counter belongs to.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Consume records units of usage. When it would push the user over the
// limit nothing is recorded and ErrQuotaExceeded is returned along with the
// unchanged status.
func (s *QuotaService) Consume(ctx context.Context, userID string, units int64) (QuotaStatus, error) {
	if userID == "" || units <= 0 {
		return QuotaStatus{}, entity.ErrInvalidRequest
	}
	premium, limit, err := s.limitFor(ctx, userID)
	if err != nil {
		return QuotaStatus{}, err
	}

	period := Period(s.now())
	used, err := s.usage.Consume(ctx, userID, period, units, limit)
	status := newQuotaStatus(userID, period, used, limit, premium)
	if err != nil {
		if errors.Is(err, entity.ErrQuotaExceeded) {
			return status, err
		}
		return QuotaStatus{}, fmt.Errorf("consume usage: %w", err)
	}
	return status, nil
}

// Status reports usage without changing it.
func (s *QuotaService) Status(ctx context.Context, userID string) (QuotaStatus, error) {
	if userID == "" {
		return QuotaStatus{}, entity.ErrInvalidRequest
	}
	premium, limit, err := s.limitFor(ctx, userID)
	if err != nil {
		return QuotaStatus{}, err
	}
	period := Period(s.now())
	used, err := s.usage.Usage(ctx, userID, period)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("read usage: %w", err)
	}
	return newQuotaStatus(userID, period, used, limit, premium), nil
}

func (s *QuotaService) limitFor(ctx context.Context, userID string) (bool, int64, error) {
	if s.profiles == nil {
		return false, s.freeLimit, nil
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return false, s.freeLimit, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("load profile: %w", err)
	}
	if profile.IsPremium {
		return true, s.premiumLimit, nil
	}
	return false, s.freeLimit, nil
}

func newQuotaStatus(userID, period string, used, limit int64, premium bool) QuotaStatus {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		UserID:    userID,
		Period:    period,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		Premium:   premium,
	}
}
