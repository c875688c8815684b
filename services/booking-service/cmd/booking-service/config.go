package main

import (
	"time"

	"github.com/suavhq/suav/libs/config"
)

type serviceConfig struct {
	Service     string
	Port        string
	GRPCPort    string
	DatabaseURL string

	KafkaBrokers string
	OutboxPoll   time.Duration
	OutboxBatch  int

	JWTSecret string
	JWKSURL   string
	JWKSTTL   time.Duration
	Issuer    string
	Audience  string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeReturnURL     string
	StripeFeeBPS        int
	StripeCountry       string
	WebhookTolerance    time.Duration

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	UploadTTL  time.Duration

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RateLimit      int
	RateLimitOpen  bool
	BodyLimit      int
	RequestTimeout time.Duration

	CORSOrigins []string
}

func loadConfig() (serviceConfig, error) {
	config.LoadDotEnv()

	var (
		c   serviceConfig
		err error
	)
	c.Service = config.String("SERVICE_NAME", "booking-service")
	if c.Port, err = config.Port("PORT", "8083"); err != nil {
		return c, err
	}
	if c.GRPCPort, err = config.Port("GRPC_PORT", "9083"); err != nil {
		return c, err
	}
	if c.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return c, err
	}

	c.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	if c.OutboxPoll, err = config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return c, err
	}
	if c.OutboxBatch, err = config.Int("OUTBOX_BATCH_SIZE", 50); err != nil {
		return c, err
	}

	c.JWTSecret = config.String("JWT_SECRET", "")
	c.JWKSURL = config.String("JWKS_URL", "")
	if c.JWKSTTL, err = config.Duration("JWKS_CACHE_TTL", 5*time.Minute); err != nil {
		return c, err
	}
	c.Issuer = config.String("JWT_ISSUER", "")
	c.Audience = config.String("JWT_AUDIENCE", "")

	c.StripeSecretKey = config.String("STRIPE_SECRET_KEY", "")
	c.StripeWebhookSecret = config.String("STRIPE_WEBHOOK_SECRET", "")
	c.StripeReturnURL = config.String("STRIPE_RETURN_URL", "http://localhost:3000/booking/return?session_id={CHECKOUT_SESSION_ID}")
	if c.StripeFeeBPS, err = config.Int("STRIPE_APPLICATION_FEE_BPS", 0); err != nil {
		return c, err
	}
	c.StripeCountry = config.String("STRIPE_DEFAULT_COUNTRY", "US")
	if c.WebhookTolerance, err = config.Duration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute); err != nil {
		return c, err
	}

	c.S3Bucket = config.String("S3_BUCKET", "")
	c.S3Region = config.String("AWS_REGION", "us-east-1")
	c.S3Endpoint = config.String("S3_ENDPOINT", "")
	if c.UploadTTL, err = config.Duration("UPLOAD_URL_TTL", 15*time.Minute); err != nil {
		return c, err
	}

	c.RedisAddr = config.String("REDIS_ADDR", "")
	c.RedisPassword = config.String("REDIS_PASSWORD", "")
	if c.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return c, err
	}
	if c.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return c, err
	}
	c.RateLimitOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	if c.BodyLimit, err = config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20); err != nil {
		return c, err
	}
	if c.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return c, err
	}
	c.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS", nil)
	return c, nil
}
