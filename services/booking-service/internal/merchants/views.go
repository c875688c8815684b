package merchants

import (
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

type Profile struct {
	ID                string                     `json:"id"`
	Username          string                     `json:"username"`
	Name              string                     `json:"name"`
	Email             string                     `json:"email"`
	Profession        string                     `json:"profession"`
	Bio               string                     `json:"bio"`
	ProfilePublic     bool                       `json:"profile_public"`
	Schedule          schedule.Weekly            `json:"schedule"`
	Settings          model.NotificationSettings `json:"settings"`
	PaymentsProvider  string                     `json:"payments_provider,omitempty"`
	PaymentsAccountID string                     `json:"payments_account_id,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
}

func ProfileOf(m model.Merchant) Profile {
	return Profile{
		ID:                string(m.ID),
		Username:          m.Username,
		Name:              m.Name,
		Email:             m.Email,
		Profession:        m.Profession,
		Bio:               m.Bio,
		ProfilePublic:     m.ProfilePublic,
		Schedule:          m.Schedule,
		Settings:          m.Settings,
		PaymentsProvider:  m.PaymentsProvider,
		PaymentsAccountID: m.PaymentsAccountID,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

// PublicProfile is what anyone may see of a merchant.
type PublicProfile struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Name       string          `json:"name"`
	Profession string          `json:"profession"`
	Bio        string          `json:"bio"`
	Schedule   schedule.Weekly `json:"schedule"`
	Services   []ServiceView   `json:"services"`
}

func PublicProfileOf(m model.Merchant, svcs []model.Service) PublicProfile {
	p := PublicProfile{
		ID:         string(m.ID),
		Username:   m.Username,
		Name:       m.Name,
		Profession: m.Profession,
		Bio:        m.Bio,
		Schedule:   m.Schedule,
		Services:   make([]ServiceView, 0, len(svcs)),
	}
	for _, s := range svcs {
		p.Services = append(p.Services, ServiceViewOf(s))
	}
	return p
}

type ServiceView struct {
	ID              string    `json:"id"`
	MerchantID      string    `json:"merchant_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceMinor      int64     `json:"price_minor"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}

func ServiceViewOf(s model.Service) ServiceView {
	return ServiceView{
		ID:              string(s.ID),
		MerchantID:      string(s.MerchantID),
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		PriceMinor:      s.PriceMinor,
		Currency:        s.Currency,
		CreatedAt:       s.CreatedAt.UTC(),
	}
}
