package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

func nullLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (c *memoryCache) key(req entity.WisdomRequest) string {
	return req.CacheKey() + ":" + req.QuestionDigest()
}

func (c *memoryCache) Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[c.key(req)]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, req entity.WisdomRequest, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[c.key(req)] = answer
	return nil
}

type fakeRemote struct {
	calls  int32
	result *entity.RemoteResult
	err    error
	delay  time.Duration
}

func (f *fakeRemote) Invoke(ctx context.Context, req entity.WisdomRequest) (*entity.RemoteResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeRemote) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	resps   []*entity.Completion
	errs    []error
}

// Generate replays resps/errs in order; the last pair repeats.
func (f *fakeProvider) Generate(ctx context.Context, prompt string) (*entity.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)

	var resp *entity.Completion
	var err error
	if len(f.resps) > 0 {
		resp = f.resps[min(i, len(f.resps)-1)]
	}
	if len(f.errs) > 0 {
		err = f.errs[min(i, len(f.errs)-1)]
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeValidator struct {
	mu      sync.Mutex
	results map[string]error
	calls   []string
}

func (v *fakeValidator) ValidateKey(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, key)
	return v.results[key]
}

type fakeUsage struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeUsage() *fakeUsage { return &fakeUsage{counts: make(map[string]int64)} }

func (u *fakeUsage) Consume(ctx context.Context, userID, period string, units, limit int64) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return 0, u.err
	}
	k := userID + ":" + period
	if u.counts[k]+units > limit {
		return u.counts[k], entity.ErrQuotaExceeded
	}
	u.counts[k] += units
	return u.counts[k], nil
}

func (u *fakeUsage) Usage(ctx context.Context, userID, period string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[userID+":"+period], u.err
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*repository.Profile
	setErrs  []error
	setCalls int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*repository.Profile)}
}

func (p *fakeProfiles) GetProfile(ctx context.Context, userID string) (*repository.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof, ok := p.profiles[userID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return prof, nil
}

func (p *fakeProfiles) SetPremium(ctx context.Context, userID, planID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.setCalls
	p.setCalls++
	if i < len(p.setErrs) && p.setErrs[i] != nil {
		return p.setErrs[i]
	}
	p.profiles[userID] = &repository.Profile{UserID: userID, IsPremium: true, PlanID: planID, PremiumSince: time.Now()}
	return nil
}

type fakePaymentLog struct {
	mu     sync.Mutex
	events []repository.PaymentEvent
}

func (l *fakePaymentLog) RecordPayment(ctx context.Context, ev repository.PaymentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

type recorder struct {
	mu          sync.Mutex
	resolutions []string
	tiers       []string
}

func (r *recorder) ObserveResolution(source entity.Source, failure string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, string(source)+"/"+failure)
}

func (r *recorder) ObserveTier(tier string, elapsed time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
}
