package models

import "time"

// Setting is one key/value entry of the company parameters
// (TVA rate, URSSAF rate, company identity).
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint   `gorm:"not null;uniqueIndex:idx_settings_user_key" json:"-"`
	Key    string `gorm:"size:100;not null;uniqueIndex:idx_settings_user_key" json:"key"`
	Value  string `gorm:"type:text" json:"value"`
}

func (s *Setting) GetUserID() uint { return s.UserID }

// Known setting keys.
const (
	SettingTVARate        = "tva_rate"
	SettingURSSAFRate     = "urssaf_rate"
	SettingCompanyName    = "company_name"
	SettingCompanySIRET   = "company_siret"
	SettingCompanyAddress = "company_address"
	SettingCompanyEmail   = "company_email"
	SettingCompanyPhone   = "company_phone"
	SettingVATNumber      = "vat_number"
)

// All returns every model in migration order.
func All() []any {
	return []any{&User{}, &Client{}, &Article{}, &Sale{}, &SaleItem{}, &Charge{}, &Setting{}}
}
