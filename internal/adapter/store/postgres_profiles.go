package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// ProfileStore keeps premium status and the payment audit trail.
type ProfileStore struct {
	db *DB
}

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*repository.Profile, error) {
	query := `
		SELECT user_id, is_premium, COALESCE(plan_id, ''), COALESCE(premium_since, 'epoch'::timestamptz)
		FROM profiles WHERE user_id = $1
	`

	var p repository.Profile
	err := s.db.Pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.IsPremium, &p.PlanID, &p.PremiumSince)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, dbError("get profile", err)
	}
	return &p, nil
}

// SetPremium upserts the profile. premium_since keeps the first activation.
func (s *ProfileStore) SetPremium(ctx context.Context, userID, planID string) error {
	query := `
		INSERT INTO profiles (user_id, is_premium, plan_id, premium_since)
		VALUES ($1, TRUE, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			is_premium = TRUE,
			plan_id = EXCLUDED.plan_id,
			premium_since = COALESCE(profiles.premium_since, EXCLUDED.premium_since),
			updated_at = NOW()
	`
	if _, err := s.db.Pool.Exec(ctx, query, userID, planID); err != nil {
		return dbError("set premium", err)
	}
	return nil
}

func (s *ProfileStore) RecordPayment(ctx context.Context, ev repository.PaymentEvent) error {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		id = uuid.New()
	}
	query := `
		INSERT INTO payment_events (id, user_id, provider, plan_id, token, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.Pool.Exec(ctx, query, id, ev.UserID, ev.Provider, nullIfEmpty(ev.PlanID), nullIfEmpty(ev.Token), ev.Status)
	if err != nil {
		return dbError("record payment", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
