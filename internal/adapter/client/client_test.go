package client

import (
	"context"
	"sync"
)

type staticKeys struct {
	mu          sync.Mutex
	key         string
	err         error
	invalidated []string
}

func (k *staticKeys) Key(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key, k.err
}

func (k *staticKeys) Invalidate(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.invalidated = append(k.invalidated, key)
}
