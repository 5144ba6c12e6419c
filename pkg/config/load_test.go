package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolempay/billing/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GATEWAY_API_URL", "https://gw.example.kz/api")
	t.Setenv("GATEWAY_API_KEY", "api-key")
	t.Setenv("GATEWAY_SECRET_KEY", "secret")
	t.Setenv("GATEWAY_MERCHANT_ID", "m-1")
	t.Setenv("GATEWAY_SERVICE_ID", "s-1")
	t.Setenv("GATEWAY_CALLBACK_URL", "https://billing.example.kz/webhooks/gateway")

	cfg, err := config.Load("nonexistent.env", slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://gw.example.kz/api", cfg.Gateway.ApiUrl)
	assert.Equal(t, "24h", cfg.Scheduler.RenewalWindow.String())
	assert.Equal(t, "2s", cfg.Scheduler.Throttle.String())
	assert.Equal(t, "8760h0m0s", cfg.Scheduler.Retention.String())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("GATEWAY_API_URL", "")
	t.Setenv("GATEWAY_API_KEY", "")
	t.Setenv("GATEWAY_SECRET_KEY", "")
	t.Setenv("GATEWAY_MERCHANT_ID", "")
	t.Setenv("GATEWAY_SERVICE_ID", "")
	t.Setenv("GATEWAY_CALLBACK_URL", "")

	_, err := config.Load("nonexistent.env", slog.Default())
	assert.Error(t, err)
}
