package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"wisdom-core/internal/domain/entity"
)

// PostgresCache is the durable cache table keyed by "<category>_<language>"
// and the question digest.
type PostgresCache struct {
	db     *DB
	maxAge time.Duration // zero keeps rows forever
}

func NewPostgresCache(db *DB, maxAge time.Duration) *PostgresCache {
	return &PostgresCache{db: db, maxAge: maxAge}
}

func (c *PostgresCache) Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error) {
	query := `
		SELECT answer FROM wisdom_cache
		WHERE cache_key = $1 AND question_digest = $2
		  AND updated_at > $3
	`

	cutoff := time.Unix(0, 0)
	if c.maxAge > 0 {
		cutoff = time.Now().Add(-c.maxAge)
	}

	var answer string
	err := c.db.Pool.QueryRow(ctx, query, req.CacheKey(), req.QuestionDigest(), cutoff).Scan(&answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dbError("get cached answer", err)
	}
	return answer, true, nil
}

func (c *PostgresCache) Set(ctx context.Context, req entity.WisdomRequest, answer string) error {
	query := `
		INSERT INTO wisdom_cache (cache_key, question_digest, category, language, answer)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key, question_digest) DO UPDATE SET
			answer = EXCLUDED.answer,
			updated_at = NOW()
	`
	_, err := c.db.Pool.Exec(ctx, query, req.CacheKey(), req.QuestionDigest(), string(req.Category), string(req.Language), answer)
	if err != nil {
		return dbError("store cached answer", err)
	}
	return nil
}

// Prune deletes rows older than maxAge and reports how many went.
func (c *PostgresCache) Prune(ctx context.Context) (int64, error) {
	if c.maxAge <= 0 {
		return 0, nil
	}
	tag, err := c.db.Pool.Exec(ctx, `DELETE FROM wisdom_cache WHERE updated_at < $1`, time.Now().Add(-c.maxAge))
	if err != nil {
		return 0, dbError("prune cache", err)
	}
	return tag.RowsAffected(), nil
}
