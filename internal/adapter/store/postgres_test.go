package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// testDB connects to TEST_DATABASE_URL and migrates it; tests skip without it.
func testDB(t *testing.T) *DB {
	t.Helper()
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, connString)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(connString))

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(ctx, "DELETE FROM wisdom_cache")
		_, _ = db.Pool.Exec(ctx, "DELETE FROM payment_events")
		_, _ = db.Pool.Exec(ctx, "DELETE FROM profiles")
		db.Close()
	})
	return db
}

func TestPostgresCache(t *testing.T) {
	db := testDB(t)
	cache := NewPostgresCache(db, time.Hour)
	ctx := context.Background()
	req := entity.WisdomRequest{Question: "How do I let go?", Category: entity.CategoryAnxiety, Language: entity.LanguageSpanish}

	_, ok, err := cache.Get(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, req, "first"))
	require.NoError(t, cache.Set(ctx, req, "second"))

	answer, ok, err := cache.Get(ctx, req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", answer)

	var rows int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM wisdom_cache WHERE cache_key = $1`, "anxiety_spanish").Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err = db.Pool.Exec(ctx, `UPDATE wisdom_cache SET updated_at = NOW() - INTERVAL '2 hours'`)
	require.NoError(t, err)
	_, ok, err = cache.Get(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok)

	pruned, err := cache.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}

func TestProfileStore(t *testing.T) {
	db := testDB(t)
	s := NewProfileStore(db)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, s.SetPremium(ctx, "u1", "monthly"))
	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.IsPremium)
	assert.Equal(t, "monthly", p.PlanID)
	first := p.PremiumSince

	require.NoError(t, s.SetPremium(ctx, "u1", "yearly"))
	p, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "yearly", p.PlanID)
	assert.True(t, first.Equal(p.PremiumSince))

	ev := repository.PaymentEvent{ID: uuid.NewString(), UserID: "u1", Provider: "paypal", Status: "success"}
	require.NoError(t, s.RecordPayment(ctx, ev))
	require.NoError(t, s.RecordPayment(ctx, ev))

	var n int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_events WHERE user_id = 'u1'`).Scan(&n))
	assert.Equal(t, 1, n)
}
