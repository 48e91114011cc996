package retry

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrExhausted = errors.New("retry limit reached, stop retrying")
	ErrBusy      = errors.New("an attempt is already in progress")
)

// State is the lifecycle of a user-visible retryable operation.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSlow // still pending, past SlowAfter: "taking longer than expected"
	StateSucceeded
	StateFailed
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSlow:
		return "slow"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Controller drives one operation through Run and a bounded number of
// Retry calls. Each attempt carries a generation number; timers and results
// from an older generation never touch the state of a newer one.
type Controller[T any] struct {
	policy  Policy
	op      func(context.Context) (T, error)
	onState func(State)

	mu         sync.Mutex
	state      State
	attempts   int
	generation uint64
}

// NewController creates a controller. onState may be nil.
func NewController[T any](policy Policy, op func(context.Context) (T, error), onState func(State)) *Controller[T] {
	return &Controller[T]{policy: policy, op: op, onState: onState}
}

// Run makes the first attempt.
func (c *Controller[T]) Run(ctx context.Context) (T, error) {
	return c.start(ctx)
}

// Retry makes another attempt, or returns ErrExhausted once MaxRetries
// retries have been used. The exhausted state is terminal.
func (c *Controller[T]) Retry(ctx context.Context) (T, error) {
	return c.start(ctx)
}

func (c *Controller[T]) start(ctx context.Context) (T, error) {
	var zero T

	c.mu.Lock()
	switch {
	case c.state == StatePending || c.state == StateSlow:
		c.mu.Unlock()
		return zero, ErrBusy
	case c.state == StateExhausted:
		c.mu.Unlock()
		return zero, ErrExhausted
	case c.attempts > c.policy.MaxRetries:
		c.state = StateExhausted
		c.mu.Unlock()
		c.notify(StateExhausted)
		return zero, ErrExhausted
	}
	c.attempts++
	c.generation++
	gen := c.generation
	c.state = StatePending
	c.mu.Unlock()
	c.notify(StatePending)

	var slow *time.Timer
	if c.policy.SlowAfter > 0 {
		slow = time.AfterFunc(c.policy.SlowAfter, func() {
			c.transition(gen, StatePending, StateSlow)
		})
	}

	v, err := Attempt(ctx, c.policy.Timeout, c.op)
	if slow != nil {
		slow.Stop()
	}

	final := StateSucceeded
	if err != nil {
		final = StateFailed
	}
	c.finish(gen, final)
	return v, err
}

func (c *Controller[T]) transition(gen uint64, from, to State) {
	c.mu.Lock()
	if c.generation != gen || c.state != from {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()
	c.notify(to)
}

func (c *Controller[T]) finish(gen uint64, to State) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()
	c.notify(to)
}

func (c *Controller[T]) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

// State returns the current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns how many attempts have been started.
func (c *Controller[T]) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// CanRetry reports whether a Retry call would start a new attempt.
func (c *Controller[T]) CanRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StatePending, StateSlow, StateExhausted:
		return false
	}
	return c.attempts <= c.policy.MaxRetries
}
