package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/retry"
)

// Session is one question a user may retry a bounded number of times.
type Session struct {
	ID         string
	Request    entity.WisdomRequest
	controller *retry.Controller[entity.WisdomResponse]
	expiry     time.Time
}

func (s *Session) Attempts() int  { return s.controller.Attempts() }
func (s *Session) CanRetry() bool { return s.controller.CanRetry() }
func (s *Session) State() retry.State {
	return s.controller.State()
}

// SessionManager keeps retry sessions in memory until they expire.
type SessionManager struct {
	resolver *Resolver
	policy   retry.Policy
	ttl      time.Duration
	onState  func(id string, s retry.State)

	mu       sync.RWMutex
	sessions map[string]*Session
	stopCh   chan struct{}
}

// NewSessionManager starts a cleanup goroutine; call Close to stop it.
func NewSessionManager(resolver *Resolver, policy retry.Policy, ttl time.Duration, onState func(id string, s retry.State)) *SessionManager {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	m := &SessionManager{
		resolver: resolver,
		policy:   policy,
		ttl:      ttl,
		onState:  onState,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Start opens a session for req and makes the first attempt.
func (m *SessionManager) Start(ctx context.Context, req entity.WisdomRequest) (*Session, entity.WisdomResponse) {
	req = Normalize(req)
	sess := &Session{
		ID:      uuid.NewString(),
		Request: req,
		expiry:  time.Now().Add(m.ttl),
	}
	sess.controller = retry.NewController(m.policy, func(ctx context.Context) (entity.WisdomResponse, error) {
		return m.resolver.Resolve(ctx, req), nil
	}, func(s retry.State) {
		if m.onState != nil {
			m.onState(sess.ID, s)
		}
	})

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	resp, err := sess.controller.Run(ctx)
	if err != nil {
		resp = m.timeoutResponse(req, err)
	}
	return sess, resp
}

// Retry re-resolves the session's question. It returns retry.ErrExhausted
// once the bound is reached, and entity.ErrNotFound for unknown or expired ids.
func (m *SessionManager) Retry(ctx context.Context, id string) (*Session, entity.WisdomResponse, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || time.Now().After(sess.expiry) {
		return nil, entity.WisdomResponse{}, entity.ErrNotFound
	}

	resp, err := sess.controller.Retry(ctx)
	switch {
	case errors.Is(err, retry.ErrExhausted), errors.Is(err, retry.ErrBusy):
		return sess, entity.WisdomResponse{}, err
	case err != nil:
		resp = m.timeoutResponse(sess.Request, err)
	}
	return sess, resp, nil
}

// timeoutResponse covers the case where the whole resolution overran the
// session policy; Resolve itself never fails.
func (m *SessionManager) timeoutResponse(req entity.WisdomRequest, err error) entity.WisdomResponse {
	return entity.WisdomResponse{
		Answer:         m.resolver.table.Lookup(req.Language, req.Category),
		IsFallback:     true,
		IsNetworkIssue: entity.KindOf(err) == entity.FailureNetwork,
		ErrorDetails:   err.Error(),
		Category:       req.Category,
		Language:       req.Language,
		Source:         entity.SourceFallback,
	}
}

// Len is the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for id, sess := range m.sessions {
				if now.After(sess.expiry) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (m *SessionManager) Close() {
	close(m.stopCh)
}
