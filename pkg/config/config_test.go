package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "INV", cfg.Billing.InvoicePrefix)
	assert.Equal(t, "970436", cfg.Billing.BankCode)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Calendar.Timezone)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("STATS_CACHE_TTL", "not-a-duration")
	t.Setenv("BILLING_ACCOUNT_NUMBER", "0011223344")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, "0011223344", cfg.Billing.AccountNumber)
}
