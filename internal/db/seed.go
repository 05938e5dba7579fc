package db

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

// Demo account created by SeedDemo.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demodemo"
)

// SeedUserSettings stores the default TVA and URSSAF rates for userID.
// Existing values are left untouched.
func SeedUserSettings(db *gorm.DB, userID uint, tvaRate, urssafRate float64) error {
	defaults := map[string]string{
		models.SettingTVARate:    strconv.FormatFloat(tvaRate, 'f', -1, 64),
		models.SettingURSSAFRate: strconv.FormatFloat(urssafRate, 'f', -1, 64),
	}
	for key, value := range defaults {
		s := models.Setting{UserID: userID, Key: key}
		if err := db.Where(models.Setting{UserID: userID, Key: key}).
			Attrs(models.Setting{Value: value}).
			FirstOrCreate(&s).Error; err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}

// SeedDemo creates a demo account with a few clients, articles, sales and
// charges dated around now. It does nothing when the account already exists.
func SeedDemo(db *gorm.DB, now time.Time, tvaRate, urssafRate float64) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", DemoEmail).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	user := models.User{Email: DemoEmail, Name: "Démo", Password: hash}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := SeedUserSettings(tx, user.ID, tvaRate, urssafRate); err != nil {
			return err
		}

		clients := []models.Client{
			{UserID: user.ID, Name: "Claire Martin", Company: "Atelier Martin", City: "Lyon", Country: "France"},
			{UserID: user.ID, Name: "Hugo Bernard", Email: "hugo@example.com", City: "Nantes", Country: "France"},
		}
		if err := tx.Create(&clients).Error; err != nil {
			return err
		}
		articles := []models.Article{
			{UserID: user.ID, Name: "Maintenance site", Price: 150, PricingType: models.PricingFlat, BillingFrequency: recurrence.Monthly, Active: true},
			{UserID: user.ID, Name: "Développement", Price: 55, PricingType: models.PricingHourly, Active: true},
			{UserID: user.ID, Name: "Hébergement", Price: 240, PricingType: models.PricingFlat, BillingFrequency: recurrence.Yearly, Active: true},
		}
		if err := tx.Create(&articles).Error; err != nil {
			return err
		}

		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
		sales := []models.Sale{
			demoSale(user.ID, clients[0].ID, start, recurrence.Monthly, models.SaleStatusPaid, articles[0], 1, tvaRate),
			demoSale(user.ID, clients[1].ID, start.AddDate(0, 2, 9), recurrence.None, models.SaleStatusPaid, articles[1], 12, tvaRate),
			demoSale(user.ID, clients[1].ID, start.AddDate(0, 4, 14), recurrence.Yearly, models.SaleStatusPending, articles[2], 1, tvaRate),
		}
		for i := range sales {
			number, err := models.NextSaleNumber(tx, user.ID, sales[i].Date.Year())
			if err != nil {
				return err
			}
			sales[i].Number = number
			if err := tx.Create(&sales[i]).Error; err != nil {
				return err
			}
		}

		saleID := sales[1].ID
		charges := []models.Charge{
			{UserID: user.ID, Date: start.AddDate(0, 0, 4), Category: "logiciel", Vendor: "OVH", Amount: 12.99, Recurrence: recurrence.Monthly},
			{UserID: user.ID, Date: start.AddDate(0, 0, 9), Category: "assurance", Vendor: "Hiscox", Amount: 320, Recurrence: recurrence.Yearly},
			{UserID: user.ID, Date: start.AddDate(0, 2, 11), Category: "deplacement", Description: "Train Paris-Nantes", Amount: 86.5, SaleID: &saleID},
		}
		return tx.Create(&charges).Error
	})
	if err != nil {
		return nil, fmt.Errorf("seed demo: %w", err)
	}
	return &user, nil
}

func demoSale(userID, clientID uint, date time.Time, rec recurrence.Type, status models.SaleStatus, a models.Article, qty, vat float64) models.Sale {
	articleID := a.ID
	s := models.Sale{
		UserID:     userID,
		ClientID:   clientID,
		Date:       date,
		Recurrence: rec,
		Status:     status,
		Items: []models.SaleItem{{
			ArticleID:   &articleID,
			Description: a.Name,
			Quantity:    qty,
			UnitPrice:   a.Price,
			VATRate:     a.EffectiveVATRate(vat),
		}},
	}
	if status == models.SaleStatusPaid {
		paid := date
		s.PaidAt = &paid
	}
	return s
}
