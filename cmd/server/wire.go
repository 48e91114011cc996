package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"wisdom-core/internal/adapter/client"
	"wisdom-core/internal/adapter/store"
	"wisdom-core/internal/config"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/fallback"
	"wisdom-core/internal/jobs"
	"wisdom-core/internal/metrics"
	"wisdom-core/internal/retry"
	"wisdom-core/internal/usecase"
)

// services is everything the commands need, built from Config. Optional
// backends that are not configured stay nil.
type services struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics

	table    *fallback.Table
	keys     *usecase.KeyRing
	gemini   *client.GeminiClient
	embedder *client.Embedder
	direct   repository.AIProvider
	resolver *usecase.Resolver
	function *usecase.WisdomFunction

	rdb      *redis.Client
	db       *store.DB
	pgCache  *store.PostgresCache
	profiles *store.ProfileStore
	qdrant   *qdrant.Client

	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildServices(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*services, error) {
	s := &services{cfg: cfg, log: log, metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	s.table = fallback.Default()
	if cfg.FallbackFile != "" {
		t, err := fallback.Load(cfg.FallbackFile)
		if err != nil {
			return nil, err
		}
		s.table = t
	}

	httpClient := &http.Client{}

	// LLM providers
	var providers []repository.AIProvider
	if cfg.GeminiAPIKey != "" || len(cfg.GeminiBackupKeys) > 0 {
		opts := client.GeminiOptions{BaseURL: cfg.GeminiBaseURL}
		s.keys = usecase.NewKeyRing(client.NewGeminiKeyValidator(opts), log, cfg.GeminiKeys()...)
		s.gemini = client.NewGeminiClient(s.keys, cfg.GeminiModel, opts)
		s.embedder = client.NewEmbedder(s.gemini, cfg.EmbeddingModel)
		providers = append(providers, s.gemini)
	}
	if cfg.PerplexityAPIKey != "" {
		providers = append(providers, client.NewPerplexityClient(cfg.PerplexityAPIKey, cfg.PerplexityModel, "", httpClient))
	}
	if len(providers) == 0 {
		log.Warn("no LLM provider configured, direct tier disabled")
	} else {
		var secondary repository.AIProvider
		if len(providers) > 1 {
			secondary = providers[1]
		}
		policy := retry.DefaultPolicy()
		policy.MaxRetries = cfg.MaxRetries
		// one hung attempt must not eat the retries or the fallback's share
		policy.Timeout = cfg.DirectTimeout / time.Duration(cfg.MaxRetries+2)
		rp := usecase.NewResilientProvider(providers[0], secondary, log).WithPolicy(policy, cfg.DirectTimeout)
		s.direct = rp
		s.function = usecase.NewWisdomFunction(rp, log)
	}

	// Caches, fastest first
	var tiers []repository.ResponseCache
	if cfg.RedisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		s.closers = append(s.closers, func() { _ = s.rdb.Close() })
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		tiers = append(tiers, store.NewRedisCache(s.rdb, cfg.CacheTTL))
	}
	if cfg.DatabaseURL != "" {
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.closers = append(s.closers, db.Close)
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		s.pgCache = store.NewPostgresCache(db, cfg.CacheMaxAge)
		s.profiles = store.NewProfileStore(db)
		tiers = append(tiers, s.pgCache)
	}
	if cfg.QdrantHost != "" && s.embedder != nil {
		qc, err := qdrant.NewClient(&qdrant.Config{Host: cfg.QdrantHost, Port: cfg.QdrantPort})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		s.qdrant = qc
		s.closers = append(s.closers, func() { _ = qc.Close() })

		vectors := store.NewQdrantStore(qc, cfg.QdrantCollection, cfg.CacheMaxAge, log)
		if err := vectors.InitCollection(ctx, cfg.EmbeddingDim); err != nil {
			return nil, fmt.Errorf("failed to init qdrant collection: %w", err)
		}
		judge := client.NewIntentJudge(s.gemini)
		tiers = append(tiers, usecase.NewSemanticCache(s.embedder, vectors, judge, float32(cfg.SemanticThreshold)))
	}

	var cache repository.ResponseCache
	if chain := usecase.NewCacheChain(tiers...); chain.Len() > 0 {
		cache = chain
	}

	var remote repository.RemoteFunction
	if cfg.FunctionURL != "" {
		fn := client.NewRemoteFunction(cfg.FunctionURL, cfg.SupabaseAnonKey, httpClient)
		if selfHostedFunction(cfg) {
			fn.WithServiceToken(cfg.ServiceToken)
		}
		remote = fn
	}

	s.resolver = usecase.NewResolver(cache, remote, s.direct, s.table, usecase.ResolverConfig{
		RemoteTimeout: cfg.RemoteTimeout,
		DirectTimeout: cfg.DirectTimeout,
		CacheTimeout:  usecase.DefaultResolverConfig().CacheTimeout,
	}, log, s.metrics)

	log.WithFields(logrus.Fields{
		"cache_tiers": len(tiers),
		"remote":      remote != nil,
		"direct":      s.direct != nil,
	}).Info("resolver configured")

	ok = true
	return s, nil
}

// sessionSlack covers logging and bookkeeping between tiers.
const sessionSlack = time.Second

func (s *services) sessionPolicy() retry.Policy {
	return sessionPolicyFor(s.cfg.RemoteTimeout, s.cfg.DirectTimeout, usecase.DefaultResolverConfig().CacheTimeout, s.cfg.SlowAfter, s.cfg.MaxRetries)
}

// sessionPolicyFor sizes one attempt to the worst-case walk: the cache read,
// both live tiers and the awaited cache write.
func sessionPolicyFor(remote, direct, cache, slowAfter time.Duration, maxRetries int) retry.Policy {
	return retry.Policy{
		Timeout:    cache + remote + direct + cache + sessionSlack,
		SlowAfter:  slowAfter,
		MaxRetries: maxRetries,
	}
}

func (s *services) scheduledJobs() []jobs.Job {
	var out []jobs.Job
	if s.keys != nil {
		out = append(out, jobs.KeyRefreshJob(s.cfg.KeyRefreshSchedule, s.keys, s.metrics.ObserveKeyRefresh))
	}
	if s.pgCache != nil {
		out = append(out, jobs.CachePruneJob("@daily", s.pgCache, s.log))
	}
	return out
}

// selfHostedFunction reports whether FUNCTION_URL points somewhere other than
// the Supabase project, i.e. at this gateway.
func selfHostedFunction(cfg *config.Config) bool {
	return cfg.SupabaseURL == "" || !strings.HasPrefix(cfg.FunctionURL, cfg.SupabaseURL)
}
