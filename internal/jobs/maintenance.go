package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// KeyRefresher re-validates the Gemini key ring. usecase.KeyRing implements it.
type KeyRefresher interface {
	Refresh(ctx context.Context) error
}

// CachePruner drops expired rows from the durable cache.
type CachePruner interface {
	Prune(ctx context.Context) (int64, error)
}

// KeyRefreshJob gives rejected keys another chance and re-picks the primary
// when it recovers. observe may be nil.
func KeyRefreshJob(schedule string, keys KeyRefresher, observe func(error)) Job {
	return Job{
		Name:     "key-refresh",
		Schedule: schedule,
		Timeout:  30 * time.Second,
		Run: func(ctx context.Context) error {
			err := keys.Refresh(ctx)
			if observe != nil {
				observe(err)
			}
			return err
		},
	}
}

func CachePruneJob(schedule string, pruner CachePruner, log logrus.FieldLogger) Job {
	return Job{
		Name:     "cache-prune",
		Schedule: schedule,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			n, err := pruner.Prune(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.WithField("rows", n).Info("pruned expired cache rows")
			}
			return nil
		},
	}
}
