package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost/feastly",
		"REDIS_URL":               "redis://localhost:6379",
		"PORT":                    "",
		"DELIVERY_BASE_FEE":       "",
		"DELIVERY_BASE_RADIUS_KM": "",
		"DIRECTIONS_TIMEOUT":      "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, int64(3500), cfg.DeliveryBaseFee)
	require.Equal(t, 3.0, cfg.DeliveryBaseRadiusKm)
	require.Equal(t, 8*time.Second, cfg.DirectionsTimeout)
	require.True(t, cfg.DeliveryFeeEnabled)
	require.Equal(t, "INR", cfg.CurrencyCode)
}

func TestLoadRequiresDatabase(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
	})
	require.Error(t, err)
}

func TestLoadRejectsZeroRadius(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost/feastly",
		"REDIS_URL":               "redis://localhost:6379",
		"DELIVERY_BASE_RADIUS_KM": "0",
	})
	require.Error(t, err)
}
