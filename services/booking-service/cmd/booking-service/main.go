package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/grpcx"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/libs/kafkax"
	otelx "github.com/suavhq/suav/libs/otel"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/libs/runtime"
	"github.com/suavhq/suav/services/booking-service/internal/bookings"
	"github.com/suavhq/suav/services/booking-service/internal/handlers"
	"github.com/suavhq/suav/services/booking-service/internal/merchants"
	"github.com/suavhq/suav/services/booking-service/internal/metrics"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
	"github.com/suavhq/suav/services/booking-service/internal/uploads"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
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

	verifier, err := newVerifier(cfg)
	if err != nil {
		logger.Error("auth setup failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	var gateway payments.Gateway
	if cfg.StripeSecretKey != "" {
		sg, err := payments.NewStripeGateway(payments.StripeConfig{
			SecretKey:         cfg.StripeSecretKey,
			ReturnURL:         cfg.StripeReturnURL,
			ApplicationFeeBPS: int64(cfg.StripeFeeBPS),
		})
		if err != nil {
			logger.Error("stripe setup failed", "err", err)
			os.Exit(1)
		}
		gateway = sg
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; bookings are created without checkout sessions")
	}
	webhooks := payments.NewWebhookVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	if !webhooks.Configured() {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set; payment webhooks are refused")
	}

	var presigner uploads.Presigner
	if cfg.S3Bucket != "" {
		pc, err := uploads.NewS3Presigner(ctx, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			logger.Error("s3 setup failed; uploads disabled", "err", err)
		} else {
			presigner = pc
		}
	}
	signer := uploads.NewSigner(presigner, cfg.S3Bucket, cfg.UploadTTL)

	bookingRepo := storage.NewBookingRepository()
	merchantRepo := storage.NewMerchantRepository()
	serviceRepo := storage.NewServiceRepository()
	outboxRepo := outbox.NewRepository()

	bookingSvc := bookings.New(bookings.Deps{
		DB:          pool,
		Bookings:    bookingRepo,
		Merchants:   merchantRepo,
		Services:    serviceRepo,
		Payments:    storage.NewPaymentRepository(),
		Idempotency: storage.NewIdempotencyRepository(),
		Outbox:      outboxRepo,
		Gateway:     gateway,
		Metrics:     bookingMetrics,
		Logger:      logger,
	})
	merchantSvc := merchants.New(merchants.Deps{
		DB:             pool,
		Merchants:      merchantRepo,
		Services:       serviceRepo,
		Gateway:        gateway,
		DefaultCountry: cfg.StripeCountry,
		Metrics:        bookingMetrics,
		Logger:         logger,
	})

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPoll,
		BatchSize: cfg.OutboxBatch,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	}
	public := httpx.NewRateLimiter(cfg.RateLimit, time.Minute).Middleware()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		public = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, time.Minute, "suav:rl").Middleware(logger, cfg.RateLimitOpen)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("rate limiting enabled (redis)", "per_minute", cfg.RateLimit, "redis_addr", cfg.RedisAddr)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.Routes{
		Bookings:    handlers.NewBookingHandler(bookingSvc, logger),
		Merchants:   handlers.NewMerchantHandler(merchantSvc, logger),
		Webhooks:    handlers.NewWebhookHandler(webhooks, bookingSvc, logger),
		Uploads:     handlers.NewUploadHandler(signer, merchantSvc, logger),
		RequireAuth: auth.Require(verifier),
		Public:      public,
	}.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			ExposedHeaders: []string{"Idempotent-Replayed", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(cfg.BodyLimit)),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	health.SetServingStatus(cfg.Service, healthpb.HealthCheckResponse_SERVING)
	go func() {
		if err := grpcx.Serve(ctx, grpcSrv, ":"+cfg.GRPCPort, logger); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func newVerifier(cfg serviceConfig) (*auth.Verifier, error) {
	vc := auth.VerifierConfig{
		HS256Secret: cfg.JWTSecret,
		Issuer:      cfg.Issuer,
		Audience:    cfg.Audience,
	}
	if cfg.JWKSURL != "" {
		vc.JWKS = auth.NewJWKSClient(cfg.JWKSURL, cfg.JWKSTTL)
	}
	return auth.NewVerifier(vc)
}
