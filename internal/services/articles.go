package services

import (
	"context"
	"strings"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/recurrence"
	"github.com/ares-dev-tech/dashboard/validation"
)

var pricingTypes = []string{string(models.PricingFlat), string(models.PricingHourly)}

type ArticleInput struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Price            float64  `json:"price"`
	PricingType      string   `json:"pricing_type"`
	BillingFrequency string   `json:"billing_frequency"`
	VATRate          *float64 `json:"vat_rate"`
	Active           *bool    `json:"active"`
}

// normalize validates the input and resolves the enum fields.
func (in ArticleInput) normalize() (models.PricingType, recurrence.Type, error) {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.PositiveFloat("price", in.Price, v)

	pricing := models.PricingType(strings.ToLower(strings.TrimSpace(in.PricingType)))
	if pricing == "" {
		pricing = models.PricingFlat
	}
	validation.OneOf("pricing_type", string(pricing), pricingTypes, v)

	freq, err := recurrence.Parse(in.BillingFrequency)
	if err != nil {
		v.Add("billing_frequency", "unknown_recurrence")
	}
	if in.VATRate != nil {
		validation.RangeFloat("vat_rate", *in.VATRate, 0, 1, v)
	}
	return pricing, freq, invalid(v)
}

type ArticleService struct {
	base
}

// List filters by name or description; active=false rows are included.
func (s *ArticleService) List(ctx context.Context, userID uint, p ListParams) (Page[models.Article], error) {
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Article{}).Where("user_id = ?", userID)
	q = likeAny(q, p.Query, "name", "description")
	return paginate[models.Article](q, p, "name, id")
}

func (s *ArticleService) Get(ctx context.Context, userID, id uint) (*models.Article, error) {
	var a models.Article
	if err := s.first(ctx, userID, gate.ActionView, &a, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *ArticleService) Create(ctx context.Context, userID uint, in ArticleInput) (*models.Article, error) {
	if err := s.authorize(ctx, userID, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	pricing, freq, err := in.normalize()
	if err != nil {
		return nil, err
	}
	a := models.Article{UserID: userID, Active: true}
	applyArticle(&a, in, pricing, freq)
	if err := s.DB.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, a.ID, events.ActionCreated)
	return &a, nil
}

func (s *ArticleService) Update(ctx context.Context, userID, id uint, in ArticleInput) (*models.Article, error) {
	var a models.Article
	if err := s.first(ctx, userID, gate.ActionUpdate, &a, id); err != nil {
		return nil, err
	}
	pricing, freq, err := in.normalize()
	if err != nil {
		return nil, err
	}
	applyArticle(&a, in, pricing, freq)
	if err := s.DB.WithContext(ctx).Save(&a).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, a.ID, events.ActionUpdated)
	return &a, nil
}

// Delete soft-deletes the article; sale lines keep their copied prices.
func (s *ArticleService) Delete(ctx context.Context, userID, id uint) error {
	var a models.Article
	if err := s.first(ctx, userID, gate.ActionDelete, &a, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&a).Error; err != nil {
		return err
	}
	s.changed(ctx, userID, a.ID, events.ActionDeleted)
	return nil
}

func applyArticle(a *models.Article, in ArticleInput, pricing models.PricingType, freq recurrence.Type) {
	a.Name = strings.TrimSpace(in.Name)
	a.Description = in.Description
	a.Price = in.Price
	a.PricingType = pricing
	a.BillingFrequency = freq
	a.VATRate = in.VATRate
	if in.Active != nil {
		a.Active = *in.Active
	}
}
