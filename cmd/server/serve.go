package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wisdom-core/internal/adapter/api"
	"wisdom-core/internal/adapter/store"
	"wisdom-core/internal/fallback"
	"wisdom-core/internal/jobs"
	"wisdom-core/internal/usecase"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if cfg.FallbackFile != "" {
		watcher, err := fallback.NewWatcher(svc.table, cfg.FallbackFile, log)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		go watcher.Run(runCtx)
	}

	sessions := usecase.NewSessionManager(svc.resolver, svc.sessionPolicy(), cfg.SessionTTL, svc.metrics.ObserveSessionState)
	defer sessions.Close()

	routes := api.Routes{
		Wisdom:       api.NewWisdomHandler(sessions),
		Metrics:      svc.metrics.Handler(),
		Limiter:      api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		JWTSecret:    cfg.SupabaseJWTSecret,
		ServiceToken: cfg.ServiceToken,
		Version:      cfg.Version,
		Env:          cfg.Env,
		AccessLog:    cfg.Env != "production",
	}
	if svc.function != nil {
		var keys api.KeyProvider
		if svc.keys != nil {
			keys = svc.keys
		}
		routes.Function = api.NewFunctionHandler(svc.function, keys)
	}
	if svc.profiles != nil {
		payments := usecase.NewPaymentService(svc.profiles, svc.profiles, log)
		routes.Payment = api.NewPaymentHandler(payments, cfg.PricingURL, svc.metrics.ObservePayment, log)
	}
	if svc.rdb != nil && cfg.SupabaseJWTSecret != "" {
		var quota *usecase.QuotaService
		if svc.profiles != nil {
			quota = usecase.NewQuotaService(store.NewRedisUsage(svc.rdb), svc.profiles, cfg.VoiceFreeLimit, cfg.VoicePremiumLimit)
		} else {
			quota = usecase.NewQuotaService(store.NewRedisUsage(svc.rdb), nil, cfg.VoiceFreeLimit, cfg.VoicePremiumLimit)
		}
		routes.Usage = api.NewUsageHandler(quota, svc.metrics.ObserveQuota)
	}

	scheduler := jobs.NewScheduler(log)
	scheduled := svc.scheduledJobs()
	for _, job := range scheduled {
		if err := scheduler.Add(job); err != nil {
			return err
		}
	}
	scheduler.Start()

	go warmUp(svc, log)

	app := fiber.New(fiber.Config{
		AppName:               "Wisdom Gateway",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          svc.sessionPolicy().Timeout + 5*time.Second,
	})
	api.SetupRouter(app, routes)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("wisdom gateway listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		log.WithField("signal", s.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// warmUp validates the key ring and opens the embedding model so the first
// user request does not pay for it.
func warmUp(svc *services, log *logrus.Logger) {
	warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	l := log.WithField("component", "warmer")

	if svc.keys != nil {
		if err := svc.keys.Refresh(warmCtx); err != nil {
			l.WithError(err).Warn("key ring warm-up failed")
		}
	}
	if svc.embedder != nil && svc.qdrant != nil {
		if _, err := svc.embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
			l.WithError(err).Warn("embedder warm-up failed")
		}
	}
	l.Info("pre-warm complete")
}
