package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/fallback"
)

func testResolverConfig() ResolverConfig {
	return ResolverConfig{
		RemoteTimeout: 200 * time.Millisecond,
		DirectTimeout: 200 * time.Millisecond,
		CacheTimeout:  100 * time.Millisecond,
	}
}

func newTestResolver(cache repository.ResponseCache, remote repository.RemoteFunction, direct repository.AIProvider, rec ResolutionRecorder) *Resolver {
	return NewResolver(cache, remote, direct, fallback.Default(), testResolverConfig(), nullLogger(), rec)
}

func TestResolve_RemoteSuccess(t *testing.T) {
	cache := newMemoryCache()
	remote := &fakeRemote{result: &entity.RemoteResult{Answer: "Breathe.", Status: "success"}}
	direct := &fakeProvider{}
	rec := &recorder{}

	resp := newTestResolver(cache, remote, direct, rec).Resolve(context.Background(), entity.WisdomRequest{
		Question: "I'm worried about my job interview",
	})

	assert.Equal(t, "Breathe.", resp.Answer)
	assert.Equal(t, entity.CategoryCareer, resp.Category)
	assert.Equal(t, entity.LanguageEnglish, resp.Language)
	assert.Equal(t, entity.SourceRemote, resp.Source)
	assert.False(t, resp.IsFallback)
	assert.False(t, resp.IsDirectApiUsed)
	assert.Empty(t, resp.ErrorDetails)
	assert.Zero(t, direct.Calls())
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, []string{"remote/"}, rec.resolutions)
}

func TestResolve_CacheHitIsIdenticalAndSkipsNetwork(t *testing.T) {
	cache := newMemoryCache()
	remote := &fakeRemote{result: &entity.RemoteResult{Answer: "Trust the process.", Status: "success"}}
	r := newTestResolver(cache, remote, nil, nil)
	req := entity.WisdomRequest{Question: "What is my purpose?", Language: "en"}

	first := r.Resolve(context.Background(), req)
	second := r.Resolve(context.Background(), req)

	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, remote.Calls())
	assert.True(t, second.Cached)
	assert.Equal(t, entity.SourceCache, second.Source)
	assert.False(t, second.IsFallback)
}

func TestResolve_RemoteUseFallbackWithApiKeyError(t *testing.T) {
	remote := &fakeRemote{result: &entity.RemoteResult{Status: "error", UseFallback: true, Error: "API key invalid"}}
	table := fallback.Default()

	resp := newTestResolver(nil, remote, nil, nil).Resolve(context.Background(), entity.WisdomRequest{
		Question: "How do I pray?",
		Language: "hindi",
	})

	assert.True(t, resp.IsFallback)
	assert.True(t, resp.IsApiKeyIssue)
	assert.False(t, resp.IsNetworkIssue)
	assert.Equal(t, table.Lookup(entity.LanguageHindi, entity.CategorySpirituality), resp.Answer)
	assert.Contains(t, resp.ErrorDetails, "API key invalid")
	assert.Equal(t, entity.SourceFallback, resp.Source)
}

func TestResolve_RemoteErrorKindPreferredOverText(t *testing.T) {
	remote := &fakeRemote{result: &entity.RemoteResult{
		Status: "error", UseFallback: true, ErrorKind: "network", Error: "upstream said 403",
	}}

	resp := newTestResolver(nil, remote, nil, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "hello"})

	assert.True(t, resp.IsNetworkIssue)
	assert.False(t, resp.IsApiKeyIssue)
}

func TestResolve_RemoteTimeoutThenDirectSuccess(t *testing.T) {
	cache := newMemoryCache()
	remote := &fakeRemote{delay: time.Second, result: &entity.RemoteResult{Answer: "too late"}}
	direct := &fakeProvider{resps: []*entity.Completion{{Content: "Direct wisdom.", Model: "gemini"}}}

	start := time.Now()
	resp := newTestResolver(cache, remote, direct, nil).Resolve(context.Background(), entity.WisdomRequest{
		Question: "I feel lost",
		Language: "spanish",
	})

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, resp.IsFallback)
	assert.True(t, resp.IsDirectApiUsed)
	assert.Equal(t, "Direct wisdom.", resp.Answer)
	assert.Equal(t, entity.SourceDirect, resp.Source)
	require.Len(t, direct.prompts, 1)
	assert.Contains(t, direct.prompts[0], "Please respond entirely in Spanish.")
	assert.Equal(t, 1, cache.sets)
}

func TestResolve_BothFailNetwork(t *testing.T) {
	remote := &fakeRemote{err: entity.NewServiceError(entity.FailureNetwork, "remote-function", 0, errors.New("connection refused"))}
	direct := &fakeProvider{errs: []error{entity.NewServiceError(entity.FailureNetwork, "gemini", 0, errors.New("dial tcp: i/o timeout"))}}
	rec := &recorder{}

	resp := newTestResolver(newMemoryCache(), remote, direct, rec).Resolve(context.Background(), entity.WisdomRequest{
		Question: "Why do I feel sad?",
		Language: "klingon",
	})

	assert.True(t, resp.IsFallback)
	assert.True(t, resp.IsNetworkIssue)
	assert.False(t, resp.IsApiKeyIssue)
	assert.False(t, resp.IsDirectApiUsed)
	assert.Equal(t, fallback.Default().Lookup(entity.LanguageEnglish, entity.CategoryHappiness), resp.Answer)
	assert.Equal(t, []string{"fallback/network"}, rec.resolutions)
	assert.Equal(t, []string{"remote", "direct"}, rec.tiers)
}

func TestResolve_DirectAuthFailureIsLastError(t *testing.T) {
	remote := &fakeRemote{err: entity.NewServiceError(entity.FailureNetwork, "remote-function", 0, errors.New("failed to fetch"))}
	direct := &fakeProvider{errs: []error{entity.NewServiceError(entity.FailureAuth, "gemini", 403, errors.New("permission denied"))}}

	resp := newTestResolver(nil, remote, direct, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "hi"})

	assert.True(t, resp.IsFallback)
	assert.True(t, resp.IsApiKeyIssue)
	assert.False(t, resp.IsNetworkIssue)
}

func TestResolve_EmptyDirectCompletionFallsBack(t *testing.T) {
	direct := &fakeProvider{resps: []*entity.Completion{{Content: "  "}}}

	resp := newTestResolver(nil, nil, direct, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "hi"})

	assert.True(t, resp.IsFallback)
	assert.False(t, resp.IsApiKeyIssue)
	assert.False(t, resp.IsNetworkIssue)
}

func TestResolve_NilDirectCompletionFallsBack(t *testing.T) {
	direct := &fakeProvider{}

	var resp entity.WisdomResponse
	require.NotPanics(t, func() {
		resp = newTestResolver(nil, nil, direct, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "hi"})
	})

	assert.True(t, resp.IsFallback)
	assert.Equal(t, 1, direct.Calls())
}

func TestResolve_NoTiersConfigured(t *testing.T) {
	resp := newTestResolver(nil, nil, nil, nil).Resolve(context.Background(), entity.WisdomRequest{})

	assert.True(t, resp.IsFallback)
	assert.Equal(t, entity.CategoryDefault, resp.Category)
	assert.NotEmpty(t, resp.Answer)
	assert.NotEmpty(t, resp.ErrorDetails)
}

func TestResolve_CacheFailuresAreNotFatal(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	remote := &fakeRemote{result: &entity.RemoteResult{Answer: "Still here.", Status: "success"}}

	resp := newTestResolver(cache, remote, nil, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "hi"})

	assert.Equal(t, "Still here.", resp.Answer)
	assert.False(t, resp.IsFallback)
	assert.Equal(t, 1, cache.sets)
}

func TestResolve_ExplicitCategoryIsKept(t *testing.T) {
	remote := &fakeRemote{err: errors.New("boom")}

	resp := newTestResolver(nil, remote, nil, nil).Resolve(context.Background(), entity.WisdomRequest{
		Question: "I'm worried about my job interview",
		Category: "anxiety",
	})

	assert.Equal(t, entity.CategoryAnxiety, resp.Category)
	assert.Equal(t, fallback.Default().Lookup(entity.LanguageEnglish, entity.CategoryAnxiety), resp.Answer)
}

// Every combination of remote and direct outcomes yields a well-formed
// response with IsFallback set iff neither live tier succeeded.
func TestResolve_OutcomeMatrix(t *testing.T) {
	for _, remoteOK := range []bool{true, false} {
		for _, directOK := range []bool{true, false} {
			remote := &fakeRemote{result: &entity.RemoteResult{Status: "error", UseFallback: true, Error: "quota"}}
			if remoteOK {
				remote.result = &entity.RemoteResult{Status: "success", Answer: "remote answer"}
			}
			direct := &fakeProvider{errs: []error{errors.New("upstream 500")}}
			if directOK {
				direct = &fakeProvider{resps: []*entity.Completion{{Content: "direct answer"}}}
			}

			resp := newTestResolver(nil, remote, direct, nil).Resolve(context.Background(), entity.WisdomRequest{Question: "q"})

			assert.NotEmpty(t, resp.Answer)
			assert.Equal(t, !remoteOK && !directOK, resp.IsFallback, "remote=%v direct=%v", remoteOK, directOK)
			assert.Equal(t, !remoteOK && directOK, resp.IsDirectApiUsed, "remote=%v direct=%v", remoteOK, directOK)
		}
	}
}

func TestNormalize(t *testing.T) {
	req := Normalize(entity.WisdomRequest{Question: "  I can't sleep ", Category: "bogus", Language: "HI"})
	assert.Equal(t, "I can't sleep", req.Question)
	assert.Equal(t, entity.CategoryHealth, req.Category)
	assert.Equal(t, entity.LanguageHindi, req.Language)
}
