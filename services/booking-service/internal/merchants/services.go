package merchants

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

type CreateServiceRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceMinor      int64  `json:"price_minor"`
	Currency        string `json:"currency"`
}

func (r CreateServiceRequest) validate() (model.Service, error) {
	svc := model.Service{
		Name:            strings.TrimSpace(r.Name),
		Description:     strings.TrimSpace(r.Description),
		DurationMinutes: r.DurationMinutes,
		PriceMinor:      r.PriceMinor,
		Currency:        strings.ToLower(strings.TrimSpace(r.Currency)),
	}
	switch {
	case svc.Name == "":
		return svc, apperr.Validation("name is required")
	case svc.DurationMinutes <= 0 || svc.DurationMinutes > 24*60:
		return svc, apperr.Validation("duration_minutes must be between 1 and 1440")
	case svc.PriceMinor < 0:
		return svc, apperr.Validation("price_minor must not be negative")
	case !currencyPattern.MatchString(svc.Currency):
		return svc, apperr.Validation("currency must be a three letter ISO code")
	}
	return svc, nil
}

// CreateService adds a service to the caller's merchant profile.
func (s *Service) CreateService(ctx context.Context, who auth.Identity, req CreateServiceRequest) (v ServiceView, err error) {
	ctx, span := s.start(ctx, "create_service")
	defer func() { s.finish(span, "create_service", err) }()

	svc, err := req.validate()
	if err != nil {
		return ServiceView{}, err
	}
	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return ServiceView{}, err
	}
	svc.MerchantID = m.ID
	if err := s.services.Insert(ctx, s.db, &svc); err != nil {
		return ServiceView{}, storageError(err, "service")
	}
	s.logger.InfoContext(ctx, "service created",
		slog.String("merchant_id", string(m.ID)),
		slog.String("service_id", string(svc.ID)),
	)
	return ServiceViewOf(svc), nil
}

func (s *Service) GetService(ctx context.Context, id model.ServiceID) (ServiceView, error) {
	svc, err := s.services.Get(ctx, s.db, id)
	if err != nil {
		return ServiceView{}, storageError(err, "service")
	}
	return ServiceViewOf(svc), nil
}

// DeleteService removes a service. Only the owning merchant may do so.
func (s *Service) DeleteService(ctx context.Context, who auth.Identity, id model.ServiceID) (err error) {
	ctx, span := s.start(ctx, "delete_service")
	defer func() { s.finish(span, "delete_service", err) }()

	svc, err := s.services.Get(ctx, s.db, id)
	if err != nil {
		return storageError(err, "service")
	}
	m, err := s.merchants.GetByOwner(ctx, s.db, who.Subject)
	if err != nil || m.ID != svc.MerchantID {
		return apperr.Unauthorized("service belongs to another merchant")
	}
	if err := s.services.Delete(ctx, s.db, id, m.ID); err != nil {
		return storageError(err, "service")
	}
	return nil
}
