package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/validation"
)

// SettingKeys are the accepted company parameters.
var SettingKeys = []string{
	models.SettingTVARate,
	models.SettingURSSAFRate,
	models.SettingCompanyName,
	models.SettingCompanySIRET,
	models.SettingCompanyAddress,
	models.SettingCompanyEmail,
	models.SettingCompanyPhone,
	models.SettingVATNumber,
}

// SettingsService reads and writes the per-user company parameters.
type SettingsService struct {
	base
}

func (s *SettingsService) defaults() map[string]string {
	return map[string]string{
		models.SettingTVARate:    formatRate(s.DefaultTVARate),
		models.SettingURSSAFRate: formatRate(s.DefaultURSSAFRate),
	}
}

// All returns the stored settings over the defaults.
func (s *SettingsService) All(ctx context.Context, userID uint) (map[string]string, error) {
	if err := s.authorize(ctx, userID, gate.ActionList, nil); err != nil {
		return nil, err
	}
	var rows []models.Setting
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := s.defaults()
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Get returns one setting, its default, or ErrNotFound.
func (s *SettingsService) Get(ctx context.Context, userID uint, key string) (string, error) {
	var row models.Setting
	err := s.DB.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).First(&row).Error
	switch {
	case err == nil:
		if err := s.authorize(ctx, userID, gate.ActionView, &row); err != nil {
			return "", err
		}
		return row.Value, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if v, ok := s.defaults()[key]; ok {
			return v, nil
		}
		return "", ErrNotFound
	default:
		return "", err
	}
}

// Set validates and upserts values, then returns every setting. Rates given
// as percentages (20) are stored as fractions (0.2).
func (s *SettingsService) Set(ctx context.Context, userID uint, values map[string]string) (map[string]string, error) {
	if err := s.authorize(ctx, userID, gate.ActionUpdate, &models.Setting{UserID: userID}); err != nil {
		return nil, err
	}
	clean, err := normalizeSettings(values)
	if err != nil {
		return nil, err
	}

	if len(clean) > 0 {
		keys := make([]string, 0, len(clean))
		for k := range clean {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([]models.Setting, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, models.Setting{UserID: userID, Key: k, Value: clean[k]})
		}
		err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			return nil, err
		}
		s.changed(ctx, userID, 0, events.ActionUpdated)
	}
	return s.All(ctx, userID)
}

// Rates returns the TVA and URSSAF rates of userID.
func (s *SettingsService) Rates(ctx context.Context, userID uint) (analytics.Rates, error) {
	all, err := s.All(ctx, userID)
	if err != nil {
		return analytics.Rates{}, err
	}
	tva, err := decimal.NewFromString(all[models.SettingTVARate])
	if err != nil {
		tva = decimal.NewFromFloat(s.DefaultTVARate)
	}
	urssaf, err := decimal.NewFromString(all[models.SettingURSSAFRate])
	if err != nil {
		urssaf = decimal.NewFromFloat(s.DefaultURSSAFRate)
	}
	return analytics.Rates{TVA: tva, URSSAF: urssaf}, nil
}

// TVARate is the default VAT rate applied to new sale lines.
func (s *SettingsService) TVARate(ctx context.Context, userID uint) (float64, error) {
	rates, err := s.Rates(ctx, userID)
	if err != nil {
		return 0, err
	}
	return rates.TVA.InexactFloat64(), nil
}

func normalizeSettings(values map[string]string) (map[string]string, error) {
	v := make(validation.Violations)
	clean := make(map[string]string, len(values))
	for key, raw := range values {
		value := strings.TrimSpace(raw)
		switch key {
		case models.SettingTVARate, models.SettingURSSAFRate:
			rate, err := parseRate(value)
			if err != nil {
				v.Add(key, "out_of_range")
				continue
			}
			validation.RangeFloat(key, rate, 0, 1, v)
			value = formatRate(rate)
		case models.SettingCompanyEmail:
			validation.Email(key, value, v)
		case models.SettingCompanySIRET:
			validation.MaxLength(key, value, 14, v)
		case models.SettingVATNumber:
			validation.MaxLength(key, value, 20, v)
		case models.SettingCompanyName, models.SettingCompanyAddress, models.SettingCompanyPhone:
			validation.MaxLength(key, value, 500, v)
		default:
			v.Add(key, "unknown_setting")
			continue
		}
		clean[key] = value
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	return clean, nil
}

// parseRate accepts "0.2", "20", "20%" or "0,2". A value with a % suffix is
// always a percentage; a bare number above 1 is read as one too.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	percent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return 0, err
	}
	if percent || (f > 1 && f <= 100) {
		f /= 100
	}
	return f, nil
}

func formatRate(f float64) string {
	return decimal.NewFromFloat(f).Round(4).String()
}
