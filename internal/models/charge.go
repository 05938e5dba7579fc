package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

// ChargeCategories are the suggested categories; any other value is accepted.
var ChargeCategories = []string{"logiciel", "materiel", "deplacement", "sous-traitance", "assurance", "banque", "formation", "loyer", "autre"}

// Charge is an expense, one-time or recurring. It may be tied to the sale,
// client or article it was incurred for.
type Charge struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	Date        time.Time `gorm:"not null;index" json:"date"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Vendor      string    `gorm:"size:255" json:"vendor,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Amount      float64   `gorm:"type:decimal(12,2);not null" json:"amount"`

	Recurrence recurrence.Type `gorm:"size:20" json:"recurrence"`
	EndDate    *time.Time      `json:"end_date,omitempty"`

	SaleID    *uint `gorm:"index" json:"sale_id,omitempty"`
	ClientID  *uint `gorm:"index" json:"client_id,omitempty"`
	ArticleID *uint `gorm:"index" json:"article_id,omitempty"`
}

func (c *Charge) GetUserID() uint { return c.UserID }

func (c *Charge) Rule() recurrence.Rule {
	return recurrence.Rule{Type: c.Recurrence, Start: c.Date, End: c.EndDate}.UTC()
}

func (c *Charge) AfterFind(*gorm.DB) error {
	c.Date = c.Date.UTC()
	c.EndDate = utcPtr(c.EndDate)
	return nil
}

func (c *Charge) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Amount)
}

// Label is what lists and calendars show for the charge.
func (c *Charge) Label() string {
	switch {
	case c.Vendor != "" && c.Category != "":
		return c.Vendor + " (" + c.Category + ")"
	case c.Vendor != "":
		return c.Vendor
	case c.Description != "":
		return c.Description
	}
	return c.Category
}
