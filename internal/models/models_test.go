package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

func TestGetUserID(t *testing.T) {
	owned := []interface{ GetUserID() uint }{
		&Client{UserID: 42}, &Article{UserID: 42}, &Sale{UserID: 42}, &Charge{UserID: 42}, &Setting{UserID: 42},
	}
	for _, o := range owned {
		if got := o.GetUserID(); got != 42 {
			t.Errorf("%T.GetUserID() = %d, want 42", o, got)
		}
	}
}

func TestClient_FullAddress(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{
			name: "full address",
			client: Client{
				Address:    "12 rue de la Paix",
				PostalCode: "75002",
				City:       "Paris",
				Country:    "France",
			},
			want: "12 rue de la Paix\n75002 Paris\nFrance",
		},
		{"only city", Client{City: "Lyon"}, "Lyon"},
		{"address and city", Client{Address: "3 quai Saint-Vincent", City: "Lyon"}, "3 quai Saint-Vincent\nLyon"},
		{"empty", Client{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_DisplayName(t *testing.T) {
	if got := (&Client{Name: "Jeanne", Company: "Atelier J"}).DisplayName(); got != "Atelier J" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (&Client{Name: "Jeanne"}).DisplayName(); got != "Jeanne" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestArticle_PriceWithVAT(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		rate  float64
		want  string
	}{
		{"20% VAT on 100", 100, 0.20, "120"},
		{"10% VAT on 50", 50, 0.10, "55"},
		{"0% VAT", 100, 0, "100"},
		{"5.5% VAT", 100, 0.055, "105.5"},
		{"rounded to cents", 33.33, 0.20, "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Article{Price: tt.price}
			if got := a.PriceWithVAT(tt.rate); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("PriceWithVAT() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestArticle_EffectiveVATRate(t *testing.T) {
	rate := 0.055
	if got := (&Article{VATRate: &rate}).EffectiveVATRate(0.2); got != 0.055 {
		t.Errorf("EffectiveVATRate() = %f, want 0.055", got)
	}
	if got := (&Article{}).EffectiveVATRate(0.2); got != 0.2 {
		t.Errorf("EffectiveVATRate() = %f, want 0.2", got)
	}
	if !(&Article{PricingType: PricingHourly}).IsHourly() {
		t.Error("expected hourly article")
	}
}

func TestSale_Totals(t *testing.T) {
	sale := &Sale{
		Items: []SaleItem{
			{Quantity: 2, UnitPrice: 100, VATRate: 0.20}, // HT 200, VAT 40
			{Quantity: 1, UnitPrice: 50, VATRate: 0.10},  // HT 50, VAT 5
			{Quantity: 3, UnitPrice: 10, VATRate: 0.055}, // HT 30, VAT 1.65
		},
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"TotalHT", sale.TotalHT(), "280"},
		{"TotalVAT", sale.TotalVAT(), "46.65"},
		{"TotalTTC", sale.TotalTTC(), "326.65"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s() = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestSaleItem_HourlyLineRoundsToCents(t *testing.T) {
	item := &SaleItem{Quantity: 1.5, UnitPrice: 45.33, VATRate: 0.20}
	// 67.995 -> 68.00, VAT 13.60
	if got := item.TotalHT(); !got.Equal(decimal.RequireFromString("68")) {
		t.Errorf("TotalHT() = %s, want 68", got)
	}
	if got := item.TotalTTC(); !got.Equal(decimal.RequireFromString("81.6")) {
		t.Errorf("TotalTTC() = %s, want 81.6", got)
	}
}

func TestSale_Status(t *testing.T) {
	tests := []struct {
		status    SaleStatus
		paid      bool
		cancelled bool
	}{
		{SaleStatusPending, false, false},
		{SaleStatusPaid, true, false},
		{SaleStatusCancelled, false, true},
	}
	for _, tt := range tests {
		s := &Sale{Status: tt.status}
		if s.IsPaid() != tt.paid || s.IsCancelled() != tt.cancelled {
			t.Errorf("%s: IsPaid=%v IsCancelled=%v", tt.status, s.IsPaid(), s.IsCancelled())
		}
	}
}

func TestSale_Rule(t *testing.T) {
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	s := &Sale{Date: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), Recurrence: recurrence.Monthly, EndDate: &end}
	if n := recurrence.Count(s.Rule(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)); n != 12 {
		t.Errorf("expected 12 occurrences, got %d", n)
	}
}

// newYork stands in for a driver decoding timestamptz in a local zone west
// of UTC.
var newYork = time.FixedZone("EST", -5*60*60)

func TestSale_RuleFromLocalZone(t *testing.T) {
	stored := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC).In(newYork)
	s := &Sale{Date: stored.In(newYork), Recurrence: recurrence.Monthly, EndDate: &end}

	got := recurrence.ProjectOccurrences(s.Rule(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	want := []time.Time{
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("occurrences = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCharge_RuleFromLocalZone(t *testing.T) {
	c := &Charge{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).In(newYork)}
	got := recurrence.ProjectOccurrences(c.Rule(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	if len(got) != 1 || !got[0].Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("occurrences = %v, want [2024-03-01]", got)
	}
}

func TestAfterFind_NormalizesToUTC(t *testing.T) {
	paid := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC).In(newYork)
	s := &Sale{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC).In(newYork), PaidAt: &paid}
	if err := s.AfterFind(nil); err != nil {
		t.Fatal(err)
	}
	if s.Date.Location() != time.UTC || s.Date.Day() != 31 {
		t.Errorf("Date = %s, want 2024-01-31 UTC", s.Date)
	}
	if s.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", s.EndDate)
	}
	if s.PaidAt.Location() != time.UTC || s.PaidAt.Day() != 10 {
		t.Errorf("PaidAt = %s, want 2024-02-10 UTC", s.PaidAt)
	}

	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC).In(newYork)
	c := &Charge{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).In(newYork), EndDate: &end}
	if err := c.AfterFind(nil); err != nil {
		t.Fatal(err)
	}
	if c.Date.Day() != 1 || c.EndDate.Day() != 30 || c.EndDate.Location() != time.UTC {
		t.Errorf("charge dates = %s / %s", c.Date, c.EndDate)
	}
}

func TestCharge_Label(t *testing.T) {
	tests := []struct {
		charge Charge
		want   string
	}{
		{Charge{Vendor: "OVH", Category: "logiciel"}, "OVH (logiciel)"},
		{Charge{Vendor: "OVH"}, "OVH"},
		{Charge{Description: "Train Paris-Lyon", Category: "deplacement"}, "Train Paris-Lyon"},
		{Charge{Category: "banque"}, "banque"},
	}
	for _, tt := range tests {
		if got := tt.charge.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestNextSaleNumber(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	user := User{Email: "num@test", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	n, err := NextSaleNumber(db, user.ID, 2025)
	if err != nil || n != "FAC-2025-0001" {
		t.Fatalf("NextSaleNumber() = %q, %v", n, err)
	}

	sale := Sale{UserID: user.ID, Number: n, ClientID: 1, Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Status: SaleStatusPending}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("sale: %v", err)
	}
	if err := db.Delete(&sale).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	n, _ = NextSaleNumber(db, user.ID, 2025)
	if n != "FAC-2025-0002" {
		t.Errorf("deleted sales must keep their number, got %q", n)
	}
	n, _ = NextSaleNumber(db, user.ID, 2026)
	if n != "FAC-2026-0001" {
		t.Errorf("numbering restarts each year, got %q", n)
	}
}
