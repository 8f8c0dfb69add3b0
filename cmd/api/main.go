package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/cloudgreet-receptionist/cmd/mainconfig"
	"github.com/wolfman30/cloudgreet-receptionist/internal/api/router"
	"github.com/wolfman30/cloudgreet-receptionist/internal/app/bootstrap"
	"github.com/wolfman30/cloudgreet-receptionist/internal/appointments"
	"github.com/wolfman30/cloudgreet-receptionist/internal/booking"
	"github.com/wolfman30/cloudgreet-receptionist/internal/business"
	"github.com/wolfman30/cloudgreet-receptionist/internal/calendar"
	appconfig "github.com/wolfman30/cloudgreet-receptionist/internal/config"
	"github.com/wolfman30/cloudgreet-receptionist/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/cloudgreet-receptionist/internal/http/middleware"
	"github.com/wolfman30/cloudgreet-receptionist/internal/notify"
	"github.com/wolfman30/cloudgreet-receptionist/internal/observability/metrics"
	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

func main() {
	// Local development convenience; production injects the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting cloudgreet receptionist API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, voiceMetrics := setupMetrics()

	handler, err := buildVoiceWebhook(ctx, cfg, logger, pool, voiceMetrics)
	if err != nil {
		return err
	}

	var limiter *httpmiddleware.RateLimiter
	if redisClient != nil {
		limiter = httpmiddleware.NewRateLimiter(redisClient, httpmiddleware.RateLimiterConfig{
			Limit:  cfg.RateLimitPerMinute,
			Window: time.Minute,
			Prefix: "cloudgreet:ratelimit:voice",
			Logger: logger,
		})
	} else {
		logger.Warn("redis not configured; webhook rate limiting disabled")
	}

	r := router.New(&router.Config{
		Logger:         logger,
		Health:         handlers.NewHealthHandler(pool, logger),
		VoiceWebhook:   handler,
		RateLimiter:    limiter,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// querier is satisfied by *pgxpool.Pool.
type querier interface {
	appointments.Querier
	business.Querier
}

func buildVoiceWebhook(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, db querier, voiceMetrics *metrics.VoiceMetrics) (*handlers.VoiceWebhookHandler, error) {
	businesses := business.NewRepository(db)
	appts := appointments.NewRepository(db)
	google := bootstrap.BuildCalendarProvider(cfg, logger)

	notifyCfg := notify.Config{DefaultFrom: cfg.TelnyxFromNumber, Logger: logger}
	if sms, reason := bootstrap.BuildSMSClient(cfg, logger); sms != nil {
		notifyCfg.SMS = sms
	} else {
		logger.Warn("sms confirmations disabled", "reason", reason)
	}
	email, err := mainconfig.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if email != nil {
		notifyCfg.Email = email
	}
	notifier := notify.NewService(notifyCfg)

	bookingCfg := booking.Config{
		Businesses:   businesses,
		Appointments: appts,
		Calendar:     google,
		Notifier:     notifier,
		Metrics:      voiceMetrics,
		Logger:       logger,
	}
	invoicer, err := bootstrap.BuildInvoicer(cfg, logger)
	if err != nil {
		return nil, err
	}
	if invoicer != nil {
		bookingCfg.Invoicer = invoicer
	} else {
		logger.Info("per-booking billing disabled")
	}

	verifier, verify := bootstrap.BuildWebhookVerifier(cfg, logger)

	return handlers.NewVoiceWebhookHandler(handlers.VoiceWebhookConfig{
		Booking:          booking.NewService(bookingCfg),
		Businesses:       businesses,
		Appointments:     appts,
		Availability:     calendar.NewCalculator(appts, google),
		SMS:              notifier,
		Verifier:         verifier,
		VerifySignatures: verify,
		Metrics:          voiceMetrics,
		Logger:           logger,
	}), nil
}

func setupMetrics() (http.Handler, *metrics.VoiceMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	voiceMetrics := metrics.NewVoiceMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), voiceMetrics
}
