package services

import (
	"context"
	"strings"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/validation"
)

type ClientInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	SIRET      string `json:"siret"`
	VATNumber  string `json:"vat_number"`
	Notes      string `json:"notes"`
}

func (in ClientInput) validate() error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.Email("email", strings.TrimSpace(in.Email), v)
	validation.MaxLength("siret", in.SIRET, 14, v)
	validation.MaxLength("vat_number", in.VATNumber, 20, v)
	validation.MaxLength("postal_code", in.PostalCode, 20, v)
	return invalid(v)
}

func (in ClientInput) apply(c *models.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = in.Phone
	c.Company = in.Company
	c.Address = in.Address
	c.City = in.City
	c.PostalCode = in.PostalCode
	c.Country = in.Country
	c.SIRET = in.SIRET
	c.VATNumber = in.VATNumber
	c.Notes = in.Notes
}

type ClientService struct {
	base
}

// List filters by name, company or email when a query is given.
func (s *ClientService) List(ctx context.Context, userID uint, p ListParams) (Page[models.Client], error) {
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID)
	q = likeAny(q, p.Query, "name", "company", "email")
	return paginate[models.Client](q, p, "name, id")
}

func (s *ClientService) Get(ctx context.Context, userID, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.first(ctx, userID, gate.ActionView, &c, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientService) Create(ctx context.Context, userID uint, in ClientInput) (*models.Client, error) {
	if err := s.authorize(ctx, userID, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := models.Client{UserID: userID}
	in.apply(&c)
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, c.ID, events.ActionCreated)
	return &c, nil
}

func (s *ClientService) Update(ctx context.Context, userID, id uint, in ClientInput) (*models.Client, error) {
	var c models.Client
	if err := s.first(ctx, userID, gate.ActionUpdate, &c, id); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(&c)
	if err := s.DB.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, c.ID, events.ActionUpdated)
	return &c, nil
}

// Delete soft-deletes the client. Its sales keep referencing it.
func (s *ClientService) Delete(ctx context.Context, userID, id uint) error {
	var c models.Client
	if err := s.first(ctx, userID, gate.ActionDelete, &c, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&c).Error; err != nil {
		return err
	}
	s.changed(ctx, userID, c.ID, events.ActionDeleted)
	return nil
}
