package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "Asia/Kolkata", cfg.Books.Location.String())
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Empty(t, cfg.Books.ExpenseAccounts)
}

func TestFromViperOverrides(t *testing.T) {
	v := newViper()
	v.Set("SERVER_PORT", "9090")
	v.Set("REPORT_TIMEZONE", "UTC")
	v.Set("LOG_FORMAT", "TEXT")
	v.Set("LOG_LEVEL", "DEBUG")
	v.Set("SUBMISSION_LOCK_TTL", "5s")
	v.Set("EXPENSE_ACCOUNTS", "Salaries=Payroll; Rent = Occupancy ;")
	v.Set("DATABASE_URL", "postgres://localhost/erp")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.UTC, cfg.Books.Location)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, map[string]string{"Salaries": "Payroll", "Rent": "Occupancy"}, cfg.Books.ExpenseAccounts)
	assert.NoError(t, cfg.RequireDatabase())
}

func TestFromViperRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REPORT_TIMEZONE", "Mars/Olympus"},
		{"SUBMISSION_LOCK_TTL", "soon"},
		{"SUBMISSION_LOCK_TTL", "-1s"},
		{"LOG_FORMAT", "xml"},
		{"LOG_LEVEL", "loud"},
		{"EXPENSE_ACCOUNTS", "Salaries"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.RequireDatabase(), "DATABASE_URL environment variable not set")
}
