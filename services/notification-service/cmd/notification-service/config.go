package main

import (
	"strings"
	"time"

	"github.com/suavhq/suav/libs/config"
	"github.com/suavhq/suav/services/notification-service/internal/notifier"
)

type serviceConfig struct {
	Service     string
	Port        string
	DatabaseURL string

	KafkaBrokers  string
	GroupID       string
	Topics        []string
	MaxAttempts   int
	RetryBackoff  time.Duration
	OutboxPoll    time.Duration
	OutboxBatch   int
	FailSuffix    string
	EmailProvider string

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	SendGridAPIKey   string
	SendGridFromName string

	SMSProvider     string
	SMSWebhookURL   string
	SMSWebhookToken string
}

func loadConfig() (serviceConfig, error) {
	config.LoadDotEnv()

	var (
		c   serviceConfig
		err error
	)
	c.Service = config.String("SERVICE_NAME", "notification-service")
	if c.Port, err = config.Port("PORT", "8085"); err != nil {
		return c, err
	}
	if c.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return c, err
	}

	c.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	c.GroupID = config.String("KAFKA_GROUP_ID", "notification-service")
	c.Topics = config.List("KAFKA_CONSUME_TOPICS", notifier.Topics())
	if c.MaxAttempts, err = config.Int("CONSUMER_MAX_ATTEMPTS", 5); err != nil {
		return c, err
	}
	if c.RetryBackoff, err = config.Duration("CONSUMER_RETRY_BACKOFF", time.Second); err != nil {
		return c, err
	}
	if c.OutboxPoll, err = config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return c, err
	}
	if c.OutboxBatch, err = config.Int("OUTBOX_BATCH_SIZE", 50); err != nil {
		return c, err
	}
	c.FailSuffix = config.String("NOTIFICATION_FAIL_SUFFIX", "")

	c.EmailProvider = strings.ToLower(config.String("EMAIL_PROVIDER", "smtp"))
	c.SMTPHost = config.String("SMTP_HOST", "mailpit")
	c.SMTPPort = config.String("SMTP_PORT", "1025")
	c.SMTPFrom = config.String("SMTP_FROM", "no-reply@suav.local")
	c.SendGridAPIKey = config.String("SENDGRID_API_KEY", "")
	c.SendGridFromName = config.String("SENDGRID_FROM_NAME", "Suav")

	c.SMSProvider = strings.ToLower(config.String("SMS_PROVIDER", "noop"))
	c.SMSWebhookURL = config.String("SMS_WEBHOOK_URL", "")
	c.SMSWebhookToken = config.String("SMS_WEBHOOK_TOKEN", "")
	return c, nil
}
