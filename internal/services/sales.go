package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/recurrence"
	"github.com/ares-dev-tech/dashboard/validation"
)

// SaleItemInput is one line. With an article, missing description, unit
// price and VAT rate are copied from it.
type SaleItemInput struct {
	ArticleID   *uint    `json:"article_id"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	VATRate     *float64 `json:"vat_rate"`
}

// SaleInput creates or replaces a sale. Dates are YYYY-MM-DD. A nil
// Recurrence lets the articles decide.
type SaleInput struct {
	ClientID   uint            `json:"client_id"`
	Date       string          `json:"date"`
	Recurrence *string         `json:"recurrence"`
	EndDate    string          `json:"end_date"`
	Status     string          `json:"status"`
	PaidAt     string          `json:"paid_at"`
	Notes      string          `json:"notes"`
	Items      []SaleItemInput `json:"items"`
}

type SaleService struct {
	base
	settings *SettingsService
}

// List filters by number or notes when a query is given; newest first.
func (s *SaleService) List(ctx context.Context, userID uint, p ListParams) (Page[models.Sale], error) {
	p = p.normalized()
	q := s.DB.WithContext(ctx).Model(&models.Sale{}).Where("user_id = ?", userID).Preload("Items", orderItems).Preload("Client")
	q = likeAny(q, p.Query, "number", "notes")
	return paginate[models.Sale](q, p, "date DESC, id DESC")
}

func orderItems(db *gorm.DB) *gorm.DB { return db.Order("position, id") }

func (s *SaleService) Get(ctx context.Context, userID, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := s.first(ctx, userID, gate.ActionView, &sale, id, "Client"); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Scopes(orderItems).Where("sale_id = ?", sale.ID).Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// Create numbers the sale FAC-YYYY-NNNN within its year.
func (s *SaleService) Create(ctx context.Context, userID uint, in SaleInput) (*models.Sale, error) {
	if err := s.authorize(ctx, userID, gate.ActionCreate, nil); err != nil {
		return nil, err
	}
	sale := models.Sale{UserID: userID}
	if err := s.resolve(ctx, userID, in, &sale); err != nil {
		return nil, err
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := models.NextSaleNumber(tx, userID, sale.Date.Year())
			if err != nil {
				return err
			}
			sale.ID = 0
			sale.Number = number
			return tx.Create(&sale).Error
		})
		// A concurrent create took the number; count again.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		for i := range sale.Items {
			sale.Items[i].ID = 0
			sale.Items[i].SaleID = 0
		}
	}
	if err != nil {
		return nil, err
	}
	s.changed(ctx, userID, sale.ID, events.ActionCreated)
	return &sale, nil
}

// Update replaces the sale fields and its lines. The number is kept.
func (s *SaleService) Update(ctx context.Context, userID, id uint, in SaleInput) (*models.Sale, error) {
	var sale models.Sale
	if err := s.first(ctx, userID, gate.ActionUpdate, &sale, id); err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, userID, in, &sale); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Items", "Client").Save(&sale).Error; err != nil {
			return err
		}
		for i := range sale.Items {
			sale.Items[i].SaleID = sale.ID
		}
		return tx.Create(&sale.Items).Error
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, userID, sale.ID, events.ActionUpdated)
	return &sale, nil
}

// SetStatus marks a sale paid, pending or cancelled. paidAt defaults to
// today for paid and is cleared otherwise.
func (s *SaleService) SetStatus(ctx context.Context, userID, id uint, status, paidAt string) (*models.Sale, error) {
	var sale models.Sale
	if err := s.first(ctx, userID, gate.ActionUpdate, &sale, id); err != nil {
		return nil, err
	}
	v := make(validation.Violations)
	st, paid := s.resolveStatus(status, paidAt, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Model(&sale).Updates(map[string]any{"status": st, "paid_at": paid}).Error
	if err != nil {
		return nil, err
	}
	sale.Status, sale.PaidAt = st, paid
	s.changed(ctx, userID, sale.ID, events.ActionUpdated)
	return s.Get(ctx, userID, sale.ID)
}

// Delete soft-deletes the sale. Its number stays taken.
func (s *SaleService) Delete(ctx context.Context, userID, id uint) error {
	var sale models.Sale
	if err := s.first(ctx, userID, gate.ActionDelete, &sale, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&sale).Error; err != nil {
		return err
	}
	s.changed(ctx, userID, sale.ID, events.ActionDeleted)
	return nil
}

// resolve validates in against the user's client, articles and settings and
// fills sale. Every problem is reported at once.
func (s *SaleService) resolve(ctx context.Context, userID uint, in SaleInput, sale *models.Sale) error {
	v := make(validation.Violations)

	validation.RequiredID("client_id", in.ClientID, v)
	if in.ClientID != 0 && !s.owns(ctx, userID, &models.Client{}, in.ClientID) {
		v.Add("client_id", "unknown_reference")
	}

	date := parseDateField("date", in.Date, true, v)
	end := parseOptionalDate("end_date", in.EndDate, v)
	validation.MaxLength("notes", in.Notes, 5000, v)

	if len(in.Items) == 0 {
		v.Add("items", "items_required")
	}
	defaultVAT, err := s.settings.TVARate(ctx, userID)
	if err != nil {
		return err
	}

	items := make([]models.SaleItem, 0, len(in.Items))
	freqs := make(map[recurrence.Type]int)
	allArticles := len(in.Items) > 0
	for i, it := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		item := models.SaleItem{Description: strings.TrimSpace(it.Description), Quantity: it.Quantity, Position: i}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		validation.PositiveFloat(field("quantity"), item.Quantity, v)

		vat := defaultVAT
		if it.ArticleID != nil {
			var a models.Article
			if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", *it.ArticleID, userID).First(&a).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				v.Add(field("article_id"), "unknown_reference")
			} else {
				id := a.ID
				item.ArticleID = &id
				if item.Description == "" {
					item.Description = a.Name
				}
				item.UnitPrice = a.Price
				vat = a.EffectiveVATRate(defaultVAT)
				freqs[a.BillingFrequency]++
			}
		} else {
			allArticles = false
			if it.UnitPrice == nil {
				v.Add(field("unit_price"), "required")
			}
		}
		if it.UnitPrice != nil {
			item.UnitPrice = *it.UnitPrice
		}
		if it.VATRate != nil {
			vat = *it.VATRate
		}
		item.VATRate = vat
		validation.Required(field("description"), item.Description, v)
		validation.MaxLength(field("description"), item.Description, 500, v)
		validation.NonNegativeFloat(field("unit_price"), item.UnitPrice, v)
		validation.RangeFloat(field("vat_rate"), item.VATRate, 0, 1, v)
		items = append(items, item)
	}

	rec := recurrence.None
	if in.Recurrence != nil {
		t, err := recurrence.Parse(*in.Recurrence)
		if err != nil {
			v.Add("recurrence", "unknown_recurrence")
		}
		rec = t
	} else if allArticles && len(freqs) == 1 {
		// Every line bills an article sharing one frequency.
		for t := range freqs {
			rec = t
		}
	}

	status, paidAt := s.resolveStatus(in.Status, in.PaidAt, v)

	if rec.IsRecurring() && end != nil {
		validation.DateNotBefore("end_date", end, date, v)
	}
	if err := invalid(v); err != nil {
		return err
	}

	sale.ClientID = in.ClientID
	sale.Date = date
	sale.Recurrence = rec
	sale.EndDate = end
	sale.Status = status
	sale.PaidAt = paidAt
	sale.Notes = in.Notes
	sale.Items = items
	sale.Client = nil
	return nil
}

func (s *SaleService) resolveStatus(status, paidAt string, v validation.Violations) (models.SaleStatus, *time.Time) {
	st := models.SaleStatus(strings.ToLower(strings.TrimSpace(status)))
	if st == "" {
		st = models.SaleStatusPending
	}
	validation.OneOf("status", string(st), models.SaleStatuses, v)
	paid := parseOptionalDate("paid_at", paidAt, v)
	if st != models.SaleStatusPaid {
		return st, nil
	}
	if paid == nil {
		today := recurrence.Day(s.Now())
		paid = &today
	}
	return st, paid
}

// owns reports whether the record id of model's table belongs to userID.
func (s *base) owns(ctx context.Context, userID uint, model any, id uint) bool {
	var count int64
	err := s.DB.WithContext(ctx).Model(model).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error
	return err == nil && count > 0
}

// parseDateField parses a YYYY-MM-DD field into a UTC day.
func parseDateField(field, value string, required bool, v validation.Violations) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			v.Add(field, "required")
		}
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		// Accept full timestamps from clients that send them.
		ts, terr := time.Parse(time.RFC3339, value)
		if terr != nil {
			v.Add(field, "invalid_date")
			return time.Time{}
		}
		t = ts
	}
	return recurrence.Day(t)
}

func parseOptionalDate(field, value string, v validation.Violations) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t := parseDateField(field, value, false, v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// saleRecords converts sales for the analytics package.
func saleRecords(sales []models.Sale) []analytics.SaleRecord {
	out := make([]analytics.SaleRecord, 0, len(sales))
	for i := range sales {
		s := &sales[i]
		out = append(out, analytics.SaleRecord{
			ID:        s.ID,
			ClientID:  s.ClientID,
			Label:     s.Number,
			Rule:      s.Rule(),
			HT:        s.TotalHT(),
			TTC:       s.TotalTTC(),
			Paid:      s.IsPaid(),
			Cancelled: s.IsCancelled(),
		})
	}
	return out
}
