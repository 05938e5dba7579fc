package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

// PricingType tells whether Price is per hour or a flat amount.
type PricingType string

const (
	PricingFlat   PricingType = "forfait"
	PricingHourly PricingType = "horaire"
)

// Article is a product or service that sale lines can refer to.
type Article struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	Name        string      `gorm:"size:255;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Price       float64     `gorm:"type:decimal(12,2);not null" json:"price"`
	PricingType PricingType `gorm:"size:20;not null;default:'forfait'" json:"pricing_type"`

	// BillingFrequency is the default recurrence of sales of this article.
	BillingFrequency recurrence.Type `gorm:"size:20" json:"billing_frequency"`

	// VATRate overrides the company rate when set (0.20 = 20%).
	VATRate *float64 `gorm:"type:decimal(5,4)" json:"vat_rate,omitempty"`
	Active  bool     `gorm:"not null" json:"active"`
}

func (a *Article) GetUserID() uint { return a.UserID }

func (a *Article) IsHourly() bool { return a.PricingType == PricingHourly }

// Unit is the label of one quantity of this article.
func (a *Article) Unit() string {
	if a.IsHourly() {
		return "heure"
	}
	return "forfait"
}

// EffectiveVATRate returns the article rate or fallback when unset.
func (a *Article) EffectiveVATRate(fallback float64) float64 {
	if a.VATRate != nil {
		return *a.VATRate
	}
	return fallback
}

// PriceWithVAT returns the unit price including VAT at rate.
func (a *Article) PriceWithVAT(rate float64) decimal.Decimal {
	p := decimal.NewFromFloat(a.Price)
	return p.Add(p.Mul(decimal.NewFromFloat(rate))).Round(2)
}
