package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/models"
)

func memoryConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: "sqlite", URL: "file:" + t.Name() + "?mode=memory&cache=shared", MaxRetries: 1}
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := memoryConfig(t)
	gdb, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb, cfg, false, log.Discard()))
	return gdb
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  'postgres://u:p@h:5432/d?sslmode=require' ", "postgres://u:p@h:5432/d?sslmode=require"},
		{"host=h   user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"not a dsn", "not a dsn"},
	}
	for _, tt := range tests {
		if got := NormalizeDSN(tt.in); got != tt.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithUTC(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"host=h user=u dbname=d sslmode=disable", "host=h user=u dbname=d sslmode=disable TimeZone=UTC"},
		{"host=h dbname=d TimeZone=Europe/Paris", "host=h dbname=d TimeZone=Europe/Paris"},
		{"postgres://u:p@h:5432/d?sslmode=require", "postgres://u:p@h:5432/d?TimeZone=UTC&sslmode=require"},
		{"postgres://u@h/d", "postgres://u@h/d?TimeZone=UTC"},
	}
	for _, tt := range tests {
		if got := WithUTC(tt.in); got != tt.want {
			t.Errorf("WithUTC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=app password=secret dbname=dash sslmode=disable")
	assert.Equal(t, "postgres://app:secret@db:5432/dash?sslmode=disable", got)
	assert.Equal(t, "host=db", ToURLDSN("host=db"), "incomplete DSN returned unchanged")
	assert.Equal(t, "postgres://x@y/z", ToURLDSN("postgres://x@y/z"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/dash", MaskDSN("postgres://app:secret@db:5432/dash"))
	assert.Equal(t, "host=db password=*** dbname=dash", MaskDSN("host=db password=secret dbname=dash"))
	assert.Equal(t, "./data/dashboard.db", MaskDSN("./data/dashboard.db"))
}

func TestOpenAndAutoMigrate(t *testing.T) {
	gdb := openMemory(t)
	for _, table := range requiredTables {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}

func TestRunSQLMigrations_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "dash.db"), MaxRetries: 1}

	gdb, err := Open(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb, cfg, true, log.Discard()))

	version, err := RunSQLMigrations(cfg)
	require.NoError(t, err, "second run is a no-op")
	assert.EqualValues(t, 1, version)

	// The SQL schema must accept what the models write.
	user := models.User{Email: "sql@test", Password: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	client := models.Client{UserID: user.ID, Name: "C"}
	require.NoError(t, gdb.Create(&client).Error)
	sale := models.Sale{UserID: user.ID, Number: "FAC-2025-0001", ClientID: client.ID, Date: time.Now(), Status: models.SaleStatusPending,
		Items: []models.SaleItem{{Description: "x", Quantity: 1, UnitPrice: 10, VATRate: 0.2}}}
	require.NoError(t, gdb.Create(&sale).Error)

	var loaded models.Sale
	require.NoError(t, gdb.Preload("Items").First(&loaded, sale.ID).Error)
	assert.Len(t, loaded.Items, 1)
	assert.True(t, loaded.TotalTTC().Equal(sale.TotalTTC()))
}

func TestSeedUserSettings_Idempotent(t *testing.T) {
	gdb := openMemory(t)

	require.NoError(t, SeedUserSettings(gdb, 1, 0.2, 0.22))
	require.NoError(t, gdb.Model(&models.Setting{}).Where("user_id = ? AND key = ?", 1, models.SettingTVARate).Update("value", "0.1").Error)
	require.NoError(t, SeedUserSettings(gdb, 1, 0.2, 0.22))

	var settings []models.Setting
	require.NoError(t, gdb.Where("user_id = ?", 1).Order("key").Find(&settings).Error)
	require.Len(t, settings, 2)
	assert.Equal(t, models.SettingTVARate, settings[0].Key)
	assert.Equal(t, "0.1", settings[0].Value, "existing values are kept")
	assert.Equal(t, "0.22", settings[1].Value)
}

func TestSeedDemo(t *testing.T) {
	gdb := openMemory(t)
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	user, err := SeedDemo(gdb, now, 0.2, 0.22)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(user.Password, DemoPassword))

	again, err := SeedDemo(gdb, now, 0.2, 0.22)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	var sales []models.Sale
	require.NoError(t, gdb.Preload("Items").Where("user_id = ?", user.ID).Order("id").Find(&sales).Error)
	require.Len(t, sales, 3)
	assert.Equal(t, "FAC-2025-0001", sales[0].Number)
	assert.Equal(t, "FAC-2025-0003", sales[2].Number)
	assert.True(t, sales[1].TotalHT().Equal(sales[1].Items[0].TotalHT()))

	var charges int64
	gdb.Model(&models.Charge{}).Where("user_id = ?", user.ID).Count(&charges)
	assert.EqualValues(t, 3, charges)
}
