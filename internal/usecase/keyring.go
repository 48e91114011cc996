package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/retry"
)

// KeyRing hands out a working Gemini API key: the primary key if it
// validates, otherwise the first backup that does.
type KeyRing struct {
	keys      []string
	validator repository.KeyValidator
	timeout   time.Duration
	log       logrus.FieldLogger

	mu      sync.Mutex
	current string
	invalid map[string]bool
}

// NewKeyRing takes the primary key followed by backups, in priority order.
// Empty keys are skipped.
func NewKeyRing(validator repository.KeyValidator, log logrus.FieldLogger, keys ...string) *KeyRing {
	var ordered []string
	seen := make(map[string]bool)
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ordered = append(ordered, k)
	}
	return &KeyRing{
		keys:      ordered,
		validator: validator,
		timeout:   5 * time.Second,
		log:       log.WithField("component", "keyring"),
		invalid:   make(map[string]bool),
	}
}

// Size is the number of configured keys.
func (k *KeyRing) Size() int { return len(k.keys) }

// Key returns the cached key, validating candidates when there is none.
func (k *KeyRing) Key(ctx context.Context) (string, error) {
	k.mu.Lock()
	current := k.current
	k.mu.Unlock()
	if current != "" {
		return current, nil
	}
	return k.selectKey(ctx)
}

// Invalidate drops key after the upstream rejected it, so the next Key call
// rotates to a backup.
func (k *KeyRing) Invalidate(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.invalid[key] = true
	if k.current == key {
		k.current = ""
	}
	k.log.WithField("key", redact(key)).Warn("api key invalidated")
}

// Refresh re-validates every key, giving previously rejected keys another
// chance, and re-selects the best one.
func (k *KeyRing) Refresh(ctx context.Context) error {
	k.mu.Lock()
	k.invalid = make(map[string]bool)
	k.current = ""
	k.mu.Unlock()

	_, err := k.selectKey(ctx)
	return err
}

func (k *KeyRing) selectKey(ctx context.Context) (string, error) {
	if len(k.keys) == 0 {
		return "", entity.ErrNoValidKey
	}

	var errs []error
	for i, key := range k.keys {
		k.mu.Lock()
		skip := k.invalid[key]
		k.mu.Unlock()
		if skip {
			continue
		}

		_, err := retry.Attempt(ctx, k.timeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, k.validator.ValidateKey(ctx, key)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("key %d: %w", i, err))
			// Only a rejected key is remembered; a network blip says nothing
			// about the key itself.
			if entity.KindOf(err) == entity.FailureAuth {
				k.mu.Lock()
				k.invalid[key] = true
				k.mu.Unlock()
			}
			continue
		}

		k.mu.Lock()
		k.current = key
		k.mu.Unlock()
		if i > 0 {
			k.log.WithField("index", i).Info("using backup api key")
		}
		return key, nil
	}

	return "", errors.Join(append([]error{entity.ErrNoValidKey}, errs...)...)
}

func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
