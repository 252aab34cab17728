package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Equal(t, "caremarket", cfg.App.Name)
	assert.Equal(t, "EUR", cfg.Billing.Currency)
	assert.Equal(t, 15.0, cfg.Billing.PlatformCommissionRate)
	assert.Equal(t, 21.0, cfg.Billing.VATRate)
	assert.Equal(t, "@every 1h", cfg.Scheduler.OverdueSpec)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAREMARKET_BILLING_PLATFORM_COMMISSION_RATE", "12.5")
	t.Setenv("CAREMARKET_DATABASE_DRIVER", "sqlite")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(replacer())
	v.AutomaticEnv()

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.Billing.PlatformCommissionRate)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("billing.platform_commission_rate", 120)
	v.Set("database.driver", "oracle")
	v.Set("billing.currency", "euro")

	_, err := New(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform_commission_rate")
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "ISO-4217")
}
