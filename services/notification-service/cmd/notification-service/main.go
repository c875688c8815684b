package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/libs/kafkax"
	otelx "github.com/suavhq/suav/libs/otel"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/libs/runtime"
	"github.com/suavhq/suav/services/notification-service/internal/consumer"
	"github.com/suavhq/suav/services/notification-service/internal/email"
	"github.com/suavhq/suav/services/notification-service/internal/metrics"
	"github.com/suavhq/suav/services/notification-service/internal/notifier"
	"github.com/suavhq/suav/services/notification-service/internal/sms"
	"github.com/suavhq/suav/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	emailSender, err := newEmailSender(cfg)
	if err != nil {
		logger.Error("email setup failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	outboxRepo := outbox.NewRepository()
	n := notifier.New(notifier.Deps{
		DB:         pool,
		Inbox:      storage.NewInboxRepository(),
		Log:        storage.NewNotificationRepository(),
		Outbox:     outboxRepo,
		Email:      emailSender,
		SMS:        newSMSSender(cfg),
		FailSuffix: cfg.FailSuffix,
		Metrics:    metrics.NewNotificationMetrics(reg),
		Logger:     logger,
	})

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPoll,
		BatchSize: cfg.OutboxBatch,
	})
	go publisher.Run(ctx)

	if len(kafkax.SplitBrokers(cfg.KafkaBrokers)) > 0 {
		eventConsumer := consumer.New(logger, consumer.Config{
			Brokers:     cfg.KafkaBrokers,
			GroupID:     cfg.GroupID,
			Topics:      cfg.Topics,
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
		}, n.HandleMessage)
		go eventConsumer.Run(ctx)
		logger.Info("consuming booking events", "topics", cfg.Topics, "group_id", cfg.GroupID)
	} else {
		logger.Warn("event consumer disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func newEmailSender(cfg serviceConfig) (email.Sender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		sg, err := email.NewSendGridSender(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SMTPFrom,
			FromName:  cfg.SendGridFromName,
		})
		if err != nil {
			return nil, err
		}
		return sg, nil
	case "smtp":
		return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), nil
	}
	return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
}

func newSMSSender(cfg serviceConfig) sms.Sender {
	if cfg.SMSProvider == "webhook" {
		return sms.NewWebhookSender(cfg.SMSWebhookURL, cfg.SMSWebhookToken)
	}
	return sms.NewNoopSender()
}
