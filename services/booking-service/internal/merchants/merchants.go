// Package merchants manages merchant profiles, their weekly schedules, their
// services and the payment accounts bookings are paid into.
package merchants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/db"
	otelx "github.com/suavhq/suav/libs/otel"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/metrics"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/trace"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

type MerchantStore interface {
	ReserveUsername(ctx context.Context, q db.Querier, username, ownerID string) error
	UsernameTaken(ctx context.Context, q db.Querier, username string) (bool, error)
	Insert(ctx context.Context, q db.Querier, m *model.Merchant) error
	Get(ctx context.Context, q db.Querier, id model.MerchantID) (model.Merchant, error)
	GetByOwner(ctx context.Context, q db.Querier, ownerID string) (model.Merchant, error)
	GetByUsername(ctx context.Context, q db.Querier, username string) (model.Merchant, error)
	UpdateSchedule(ctx context.Context, q db.Querier, id model.MerchantID, w schedule.Weekly) error
	SetPaymentsAccount(ctx context.Context, q db.Querier, id model.MerchantID, provider, accountID string) error
	Delete(ctx context.Context, q db.Querier, m model.Merchant) error
}

type ServiceStore interface {
	Insert(ctx context.Context, q db.Querier, s *model.Service) error
	Get(ctx context.Context, q db.Querier, id model.ServiceID) (model.Service, error)
	ListByMerchant(ctx context.Context, q db.Querier, merchantID model.MerchantID) ([]model.Service, error)
	Delete(ctx context.Context, q db.Querier, id model.ServiceID, merchantID model.MerchantID) error
}

type Deps struct {
	DB        db.DB
	Merchants MerchantStore
	Services  ServiceStore
	// Gateway may be nil; payment account operations then fail with an upstream error.
	Gateway        payments.Gateway
	DefaultCountry string
	Metrics        *metrics.BookingMetrics
	Logger         *slog.Logger
}

type Service struct {
	db             db.DB
	merchants      MerchantStore
	services       ServiceStore
	gateway        payments.Gateway
	defaultCountry string
	metrics        *metrics.BookingMetrics
	logger         *slog.Logger
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultCountry == "" {
		d.DefaultCountry = "US"
	}
	return &Service{
		db:             d.DB,
		merchants:      d.Merchants,
		services:       d.Services,
		gateway:        d.Gateway,
		defaultCountry: d.DefaultCountry,
		metrics:        d.Metrics,
		logger:         d.Logger,
	}
}

var tracer = otelx.Tracer("booking-service/merchants")

func (s *Service) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "merchants."+op)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	if err != nil && !apperr.Is(err, apperr.KindNotModified) {
		span.RecordError(err)
	}
	span.End()
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	s.metrics.ObserveOperation("merchant_"+op, outcome)
}

func storageError(err error, what string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, storage.ErrDuplicate):
		return apperr.Conflict("%s already exists", what)
	case errors.Is(err, storage.ErrInUse):
		return apperr.Conflict("%s still has bookings", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// NormalizeUsername lowercases and trims a username and checks its shape.
func NormalizeUsername(raw string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(u) {
		return "", apperr.Validation("username must be 3-32 characters of a-z, 0-9, '.', '_' or '-'")
	}
	return u, nil
}

type CreateProfileRequest struct {
	Username      string `json:"username"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Profession    string `json:"profession"`
	Bio           string `json:"bio"`
	ProfilePublic bool   `json:"profile_public"`
}

// CreateProfile reserves the username and inserts the profile in one
// transaction. New profiles start with a closed schedule and default
// notification settings.
func (s *Service) CreateProfile(ctx context.Context, who auth.Identity, req CreateProfileRequest) (p Profile, err error) {
	ctx, span := s.start(ctx, "create")
	defer func() { s.finish(span, "create", err) }()

	username, err := NormalizeUsername(req.Username)
	if err != nil {
		return Profile{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Profile{}, apperr.Validation("name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = who.Email
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.merchants.GetByOwner(ctx, tx, who.Subject); err == nil {
		return Profile{}, apperr.Conflict("merchant profile already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Profile{}, storageError(err, "merchant profile")
	}
	if err := s.merchants.ReserveUsername(ctx, tx, username, who.Subject); err != nil {
		return Profile{}, storageError(err, "username")
	}
	m := model.Merchant{
		OwnerID:       who.Subject,
		Username:      username,
		Name:          name,
		Email:         email,
		Profession:    strings.TrimSpace(req.Profession),
		Bio:           strings.TrimSpace(req.Bio),
		ProfilePublic: req.ProfilePublic,
		Schedule:      schedule.Default(),
		Settings:      model.DefaultNotificationSettings(),
	}
	if err := s.merchants.Insert(ctx, tx, &m); err != nil {
		return Profile{}, storageError(err, "merchant profile")
	}
	if err := tx.Commit(ctx); err != nil {
		return Profile{}, storageError(err, "merchant profile")
	}
	s.logger.InfoContext(ctx, "merchant created",
		slog.String("merchant_id", string(m.ID)),
		slog.String("username", m.Username),
	)
	return ProfileOf(m), nil
}

func (s *Service) own(ctx context.Context, q db.Querier, who auth.Identity) (model.Merchant, error) {
	m, err := s.merchants.GetByOwner(ctx, q, who.Subject)
	if err != nil {
		return model.Merchant{}, storageError(err, "merchant profile")
	}
	return m, nil
}

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context, who auth.Identity) (p Profile, err error) {
	ctx, span := s.start(ctx, "me")
	defer func() { s.finish(span, "me", err) }()

	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return Profile{}, err
	}
	return ProfileOf(m), nil
}

// MerchantID resolves the caller's merchant profile id.
func (s *Service) MerchantID(ctx context.Context, who auth.Identity) (model.MerchantID, error) {
	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (s *Service) PublicProfile(ctx context.Context, username string) (p PublicProfile, err error) {
	ctx, span := s.start(ctx, "public_profile")
	defer func() { s.finish(span, "public_profile", err) }()

	m, err := s.merchants.GetByUsername(ctx, s.db, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return PublicProfile{}, storageError(err, "merchant")
	}
	svcs, err := s.services.ListByMerchant(ctx, s.db, m.ID)
	if err != nil {
		return PublicProfile{}, storageError(err, "services")
	}
	return PublicProfileOf(m, svcs), nil
}

// UpdateSchedule replaces the caller's weekly schedule. Concurrent updates are
// last-write-wins.
func (s *Service) UpdateSchedule(ctx context.Context, who auth.Identity, w schedule.Weekly) (p Profile, err error) {
	ctx, span := s.start(ctx, "update_schedule")
	defer func() { s.finish(span, "update_schedule", err) }()

	if err := schedule.Validate(w); err != nil {
		return Profile{}, apperr.Wrap(apperr.KindValidation, err, err.Error())
	}
	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return Profile{}, err
	}
	if schedule.Equal(m.Schedule, w) {
		return Profile{}, apperr.NotModified("schedule unchanged")
	}
	if err := s.merchants.UpdateSchedule(ctx, s.db, m.ID, w); err != nil {
		return Profile{}, storageError(err, "merchant profile")
	}
	m.Schedule = w
	s.logger.InfoContext(ctx, "merchant schedule updated", slog.String("merchant_id", string(m.ID)))
	return ProfileOf(m), nil
}

// Delete removes the caller's profile and frees the username together.
func (s *Service) Delete(ctx context.Context, who auth.Identity) (err error) {
	ctx, span := s.start(ctx, "delete")
	defer func() { s.finish(span, "delete", err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := s.own(ctx, tx, who)
	if err != nil {
		return err
	}
	if err := s.merchants.Delete(ctx, tx, m); err != nil {
		return storageError(err, "merchant profile")
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError(err, "merchant profile")
	}
	s.logger.InfoContext(ctx, "merchant deleted", slog.String("merchant_id", string(m.ID)))
	return nil
}

type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func (s *Service) UsernameAvailable(ctx context.Context, raw string) (UsernameAvailability, error) {
	u, err := NormalizeUsername(raw)
	if err != nil {
		return UsernameAvailability{Username: strings.TrimSpace(raw), Available: false}, nil
	}
	taken, err := s.merchants.UsernameTaken(ctx, s.db, u)
	if err != nil {
		return UsernameAvailability{}, fmt.Errorf("username lookup: %w", err)
	}
	return UsernameAvailability{Username: u, Available: !taken}, nil
}
