package services

import (
	"context"
	"strings"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/recurrence"
	"github.com/ares-dev-tech/dashboard/validation"
)

// DefaultChargeCategory is used when no category is given.
const DefaultChargeCategory = "autre"

// ChargeInput creates or replaces a charge. Dates are YYYY-MM-DD.
type ChargeInput struct {
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Vendor      string  `json:"vendor"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Recurrence  string  `json:"recurrence"`
	EndDate     string  `json:"end_date"`
	SaleID      *uint   `json:"sale_id"`
	ClientID    *uint   `json:"client_id"`
	ArticleID   *uint   `json:"article_id"`
}

type ChargeService struct {
	base
}

// List filters by vendor, description or category; newest first.
func (s *ChargeService) List(ctx context.Context, userID uint, p ListParams) (Page[models.Charge], error) {
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Charge{}).Where("user_id = ?", userID)
	q = likeAny(q, p.Query, "vendor", "description", "category")
	return paginate[models.Charge](q, p, "date DESC, id DESC")
}

func (s *ChargeService) Get(ctx context.Context, userID, id uint) (*models.Charge, error) {
	var c models.Charge
	if err := s.first(ctx, userID, gate.ActionView, &c, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChargeService) Create(ctx context.Context, userID uint, in ChargeInput) (*models.Charge, error) {
	if err := s.authorize(ctx, userID, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	c := models.Charge{UserID: userID}
	if err := s.resolve(ctx, userID, in, &c); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, c.ID, events.ActionCreated)
	return &c, nil
}

func (s *ChargeService) Update(ctx context.Context, userID, id uint, in ChargeInput) (*models.Charge, error) {
	var c models.Charge
	if err := s.first(ctx, userID, gate.ActionUpdate, &c, id); err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, userID, in, &c); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	s.changed(ctx, userID, c.ID, events.ActionUpdated)
	return &c, nil
}

func (s *ChargeService) Delete(ctx context.Context, userID, id uint) error {
	var c models.Charge
	if err := s.first(ctx, userID, gate.ActionDelete, &c, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&c).Error; err != nil {
		return err
	}
	s.changed(ctx, userID, c.ID, events.ActionDeleted)
	return nil
}

// resolve validates in, including that linked records belong to userID.
func (s *ChargeService) resolve(ctx context.Context, userID uint, in ChargeInput, c *models.Charge) error {
	v := make(validation.Violations)

	date := parseDateField("date", in.Date, true, v)
	end := parseOptionalDate("end_date", in.EndDate, v)
	validation.PositiveFloat("amount", in.Amount, v)

	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = DefaultChargeCategory
	}
	validation.MaxLength("category", category, 100, v)
	validation.MaxLength("vendor", in.Vendor, 255, v)

	rec, err := recurrence.Parse(in.Recurrence)
	if err != nil {
		v.Add("recurrence", "unknown_recurrence")
	}
	if rec.IsRecurring() && end != nil {
		validation.DateNotBefore("end_date", end, date, v)
	}

	links := []struct {
		field string
		id    *uint
		model any
	}{
		{"sale_id", in.SaleID, &models.Sale{}},
		{"client_id", in.ClientID, &models.Client{}},
		{"article_id", in.ArticleID, &models.Article{}},
	}
	for _, l := range links {
		if l.id != nil && !s.owns(ctx, userID, l.model, *l.id) {
			v.Add(l.field, "unknown_reference")
		}
	}
	if err := invalid(v); err != nil {
		return err
	}

	c.Date = date
	c.Category = category
	c.Vendor = strings.TrimSpace(in.Vendor)
	c.Description = in.Description
	c.Amount = in.Amount
	c.Recurrence = rec
	c.EndDate = end
	c.SaleID = in.SaleID
	c.ClientID = in.ClientID
	c.ArticleID = in.ArticleID
	return nil
}

func chargeRecords(charges []models.Charge) []analytics.ChargeRecord {
	out := make([]analytics.ChargeRecord, 0, len(charges))
	for i := range charges {
		c := &charges[i]
		out = append(out, analytics.ChargeRecord{
			ID:        c.ID,
			Label:     c.Label(),
			Category:  c.Category,
			Rule:      c.Rule(),
			Amount:    c.AmountDecimal(),
			SaleID:    c.SaleID,
			ClientID:  c.ClientID,
			ArticleID: c.ArticleID,
		})
	}
	return out
}
