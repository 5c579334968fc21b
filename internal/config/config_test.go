package config_test

import (
	"testing"

	"storefront/internal/config"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.True(t, cfg.FreeShippingThreshold.Equal(decimal.NewFromInt(500)))
	assert.True(t, cfg.FlatShippingRate.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.18")))
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.False(t, cfg.RabbitMQEnabled)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("STORE_DRIVER", "sqlite")
	v.Set("TAX_RATE", "0.05")
	v.Set("LOW_STOCK_THRESHOLD", 3)

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 3, cfg.LowStockThreshold)
}

func TestFromViper_Invalid(t *testing.T) {
	cases := map[string]struct {
		key   string
		value interface{}
	}{
		"unknown driver":     {"STORE_DRIVER", "mongo"},
		"tax above one":      {"TAX_RATE", "1.5"},
		"not a number":       {"FLAT_SHIPPING_RATE", "fifty"},
		"negative shipping":  {"FLAT_SHIPPING_RATE", "-1"},
		"negative threshold": {"LOW_STOCK_THRESHOLD", -2},
		"empty secret":       {"JWT_SECRET", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			config.SetDefaults(v)
			v.Set(tc.key, tc.value)

			_, err := config.FromViper(v)
			assert.Error(t, err)
		})
	}
}
