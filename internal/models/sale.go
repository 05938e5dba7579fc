package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

// SaleStatus is the payment state of a sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// SaleStatuses lists the accepted statuses.
var SaleStatuses = []string{string(SaleStatusPending), string(SaleStatusPaid), string(SaleStatusCancelled)}

// Sale is an invoice. A recurring sale repeats monthly or yearly from Date
// until EndDate (inclusive) and every occurrence is billed the same amount.
type Sale struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint   `gorm:"not null;uniqueIndex:idx_sales_user_number" json:"user_id"`
	Number string `gorm:"size:30;not null;uniqueIndex:idx_sales_user_number" json:"number"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Date       time.Time       `gorm:"not null;index" json:"date"`
	Recurrence recurrence.Type `gorm:"size:20" json:"recurrence"`
	EndDate    *time.Time      `json:"end_date,omitempty"`

	Status SaleStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
	Notes  string     `gorm:"type:text" json:"notes,omitempty"`

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
}

func (s *Sale) GetUserID() uint { return s.UserID }

func (s *Sale) IsPaid() bool      { return s.Status == SaleStatusPaid }
func (s *Sale) IsCancelled() bool { return s.Status == SaleStatusCancelled }

// Rule is the recurrence of the sale for projection.
func (s *Sale) Rule() recurrence.Rule {
	return recurrence.Rule{Type: s.Recurrence, Start: s.Date, End: s.EndDate}.UTC()
}

// AfterFind keeps dates in UTC whatever zone the driver decoded them in.
func (s *Sale) AfterFind(*gorm.DB) error {
	s.Date = s.Date.UTC()
	s.EndDate = utcPtr(s.EndDate)
	s.PaidAt = utcPtr(s.PaidAt)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// TotalHT is the sum of the rounded line totals.
func (s *Sale) TotalHT() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Items {
		total = total.Add(s.Items[i].TotalHT())
	}
	return total
}

func (s *Sale) TotalVAT() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Items {
		total = total.Add(s.Items[i].TotalVAT())
	}
	return total
}

func (s *Sale) TotalTTC() decimal.Decimal {
	return s.TotalHT().Add(s.TotalVAT())
}

// SaleItem is a line of a sale. Description and prices are copied from the
// article at creation so later article edits do not rewrite history.
type SaleItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SaleID uint `gorm:"index;not null" json:"sale_id"`

	ArticleID *uint    `gorm:"index" json:"article_id,omitempty"`
	Article   *Article `gorm:"foreignKey:ArticleID" json:"-"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	VATRate     float64 `gorm:"type:decimal(5,4);not null" json:"vat_rate"`
	Position    int     `gorm:"default:0" json:"position"`
}

// TotalHT is quantity × unit price rounded to cents.
func (item *SaleItem) TotalHT() decimal.Decimal {
	return decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.UnitPrice)).Round(2)
}

func (item *SaleItem) TotalVAT() decimal.Decimal {
	return item.TotalHT().Mul(decimal.NewFromFloat(item.VATRate)).Round(2)
}

func (item *SaleItem) TotalTTC() decimal.Decimal {
	return item.TotalHT().Add(item.TotalVAT())
}

// FormatSaleNumber renders FAC-YYYY-NNNN.
func FormatSaleNumber(year int, seq int64) string {
	return fmt.Sprintf("FAC-%d-%04d", year, seq)
}

// NextSaleNumber counts every sale of userID dated in year, deleted ones
// included, so numbers are never reused.
func NextSaleNumber(db *gorm.DB, userID uint, year int) (string, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	var count int64
	err := db.Unscoped().Model(&Sale{}).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return FormatSaleNumber(year, count+1), nil
}
