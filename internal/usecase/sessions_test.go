package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/fallback"
	"wisdom-core/internal/retry"
)

func TestSessionManager_RetryBound(t *testing.T) {
	remote := &fakeRemote{err: entity.NewServiceError(entity.FailureNetwork, "remote-function", 0, errors.New("failed to fetch"))}
	r := newTestResolver(nil, remote, nil, nil)

	var mu sync.Mutex
	var states []retry.State
	m := NewSessionManager(r, retry.Policy{Timeout: time.Second, MaxRetries: 2}, time.Minute, func(id string, s retry.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	defer m.Close()

	sess, resp := m.Start(context.Background(), entity.WisdomRequest{Question: "Why do I feel sad?"})
	assert.True(t, resp.IsFallback)
	assert.True(t, resp.IsNetworkIssue)
	assert.Equal(t, 1, sess.Attempts())
	assert.True(t, sess.CanRetry())
	assert.Equal(t, 1, m.Len())

	for i := 0; i < 2; i++ {
		_, resp, err := m.Retry(context.Background(), sess.ID)
		require.NoError(t, err)
		assert.True(t, resp.IsFallback)
	}
	assert.False(t, sess.CanRetry())

	_, _, err := m.Retry(context.Background(), sess.ID)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, retry.StateExhausted, sess.State())
	assert.Equal(t, 3, remote.Calls())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, retry.StateExhausted, states[len(states)-1])
}

func TestSessionManager_UnknownSession(t *testing.T) {
	m := NewSessionManager(newTestResolver(nil, nil, nil, nil), retry.DefaultPolicy(), time.Minute, nil)
	defer m.Close()

	_, _, err := m.Retry(context.Background(), "nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	m := NewSessionManager(newTestResolver(nil, nil, nil, nil), retry.DefaultPolicy(), time.Nanosecond, nil)
	defer m.Close()

	sess, _ := m.Start(context.Background(), entity.WisdomRequest{Question: "q"})
	time.Sleep(time.Millisecond)

	_, _, err := m.Retry(context.Background(), sess.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSessionManager_OverallTimeoutServesFallback(t *testing.T) {
	remote := &fakeRemote{delay: time.Second, result: &entity.RemoteResult{Answer: "late"}}
	r := NewResolver(nil, remote, nil, fallback.Default(), ResolverConfig{RemoteTimeout: time.Second}, nullLogger(), nil)
	m := NewSessionManager(r, retry.Policy{Timeout: 50 * time.Millisecond, MaxRetries: 1}, time.Minute, nil)
	defer m.Close()

	sess, resp := m.Start(context.Background(), entity.WisdomRequest{Question: "I can't sleep"})
	assert.True(t, resp.IsFallback)
	assert.True(t, resp.IsNetworkIssue)
	assert.Equal(t, entity.CategoryHealth, resp.Category)
	assert.Equal(t, retry.StateFailed, sess.State())
	assert.True(t, sess.CanRetry())
}
