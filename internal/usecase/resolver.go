package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/fallback"
	"wisdom-core/internal/retry"
)

var errEmptyAnswer = errors.New("empty completion")

// ResolutionRecorder receives resolver telemetry. metrics.Metrics implements it.
type ResolutionRecorder interface {
	ObserveResolution(source entity.Source, failure string)
	ObserveTier(tier string, elapsed time.Duration, err error)
}

type ResolverConfig struct {
	RemoteTimeout time.Duration
	DirectTimeout time.Duration
	CacheTimeout  time.Duration
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		RemoteTimeout: 15 * time.Second,
		DirectTimeout: 15 * time.Second,
		CacheTimeout:  2 * time.Second,
	}
}

// Resolver picks the answer for a question: cache, then the remote
// function, then the direct provider, then the static fallback table.
// Any of cache, remote and direct may be nil to disable that tier.
type Resolver struct {
	cache    repository.ResponseCache
	remote   repository.RemoteFunction
	direct   repository.AIProvider
	table    *fallback.Table
	cfg      ResolverConfig
	log      logrus.FieldLogger
	recorder ResolutionRecorder
}

func NewResolver(cache repository.ResponseCache, remote repository.RemoteFunction, direct repository.AIProvider, table *fallback.Table, cfg ResolverConfig, log logrus.FieldLogger, recorder ResolutionRecorder) *Resolver {
	return &Resolver{
		cache:    cache,
		remote:   remote,
		direct:   direct,
		table:    table,
		cfg:      cfg,
		log:      log.WithField("component", "resolver"),
		recorder: recorder,
	}
}

// Normalize fills in the category and language of req.
func Normalize(req entity.WisdomRequest) entity.WisdomRequest {
	req.Question = strings.TrimSpace(req.Question)
	req.Category = entity.ParseCategory(string(req.Category))
	if req.Category == "" {
		req.Category = Classify(req.Question)
	}
	req.Language = entity.ParseLanguage(string(req.Language))
	return req
}

// Resolve always produces a response; failures degrade to the fallback table.
func (r *Resolver) Resolve(ctx context.Context, req entity.WisdomRequest) entity.WisdomResponse {
	req = Normalize(req)
	resp := entity.WisdomResponse{Category: req.Category, Language: req.Language}
	log := r.log.WithFields(logrus.Fields{"category": req.Category, "language": req.Language})

	// 1. Cache lookup
	if r.cache != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, r.cfg.CacheTimeout)
		answer, ok, err := r.cache.Get(cacheCtx, req)
		cancel()
		if err != nil {
			log.WithError(err).Warn("cache lookup failed, continuing")
		}
		if ok && answer != "" {
			resp.Answer = answer
			resp.Source = entity.SourceCache
			resp.Cached = true
			r.observe(resp, nil)
			return resp
		}
	}

	var lastErr error

	// 2. Remote function
	if r.remote != nil {
		start := time.Now()
		result, err := retry.Attempt(ctx, r.cfg.RemoteTimeout, func(ctx context.Context) (*entity.RemoteResult, error) {
			return r.remote.Invoke(ctx, req)
		})
		if err == nil && !result.Succeeded() {
			err = remoteFailure(result)
		}
		r.observeTier("remote", start, err)
		if err == nil {
			resp.Answer = result.Answer
			resp.Source = entity.SourceRemote
			r.store(ctx, req, result.Answer, log)
			r.observe(resp, nil)
			return resp
		}
		lastErr = err
		log.WithError(err).Warn("remote function failed, trying direct api")
	}

	// 3. Direct provider call
	if r.direct != nil {
		prompt := BuildPrompt(req.Question, req.Category, req.Language)
		start := time.Now()
		completion, err := retry.Attempt(ctx, r.cfg.DirectTimeout, func(ctx context.Context) (*entity.Completion, error) {
			return r.direct.Generate(ctx, prompt)
		})
		if err == nil && (completion == nil || strings.TrimSpace(completion.Content) == "") {
			err = entity.NewServiceError(entity.FailureUpstream, "direct", 0, errEmptyAnswer)
		}
		r.observeTier("direct", start, err)
		if err == nil {
			resp.Answer = completion.Content
			resp.Source = entity.SourceDirect
			resp.IsDirectApiUsed = true
			r.store(ctx, req, completion.Content, log)
			r.observe(resp, nil)
			return resp
		}
		lastErr = err
		log.WithError(err).Warn("direct api failed")
	}

	// 4. Static fallback
	if lastErr == nil {
		lastErr = errors.New("no live wisdom source configured")
	}
	kind := entity.KindOf(lastErr)
	resp.Answer = r.table.Lookup(req.Language, req.Category)
	resp.Source = entity.SourceFallback
	resp.IsFallback = true
	resp.IsApiKeyIssue = kind == entity.FailureAuth
	resp.IsNetworkIssue = kind == entity.FailureNetwork
	resp.ErrorDetails = lastErr.Error()
	log.WithField("failure", kind.String()).Warn("serving fallback response")
	r.observe(resp, lastErr)
	return resp
}

// store writes through to the cache. It is awaited, but a failure only
// gets logged; the answer is already good.
func (r *Resolver) store(ctx context.Context, req entity.WisdomRequest, answer string, log logrus.FieldLogger) {
	if r.cache == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CacheTimeout)
	defer cancel()
	if err := r.cache.Set(writeCtx, req, answer); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
}

func (r *Resolver) observe(resp entity.WisdomResponse, err error) {
	if r.recorder == nil {
		return
	}
	failure := ""
	if err != nil {
		failure = entity.KindOf(err).String()
	}
	r.recorder.ObserveResolution(resp.Source, failure)
}

func (r *Resolver) observeTier(tier string, start time.Time, err error) {
	if r.recorder != nil {
		r.recorder.ObserveTier(tier, time.Since(start), err)
	}
}

// remoteFailure turns an unusable get-wisdom payload into a ServiceError.
// The errorKind field is preferred; message text is only a last resort for
// functions that do not send one.
func remoteFailure(result *entity.RemoteResult) error {
	if result == nil {
		return entity.NewServiceError(entity.FailureUpstream, "remote-function", 0, errors.New("empty payload"))
	}
	msg := result.Error
	if msg == "" {
		msg = result.Message
	}
	if msg == "" {
		if result.UseFallback {
			msg = "remote function requested fallback"
		} else {
			msg = "remote function returned no answer"
		}
	}

	kind, ok := entity.ParseFailureKind(result.ErrorKind)
	if !ok {
		kind = entity.ClassifyMessage(result.Error + " " + result.Message)
	}
	return entity.NewServiceError(kind, "remote-function", 0, errors.New(msg))
}
