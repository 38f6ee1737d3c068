package legacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/infrastructure/config"
)

func TestNewGateway(t *testing.T) {
	t.Run("builds HTTP gateway", func(t *testing.T) {
		cfg := &config.LegacyConfig{
			GatewayKind: "http",
			Timeout:     time.Second,
			HTTP: config.LegacyHTTPConfig{
				BaseURL: "http://legacy.internal:8080",
				APIKey:  "secret",
			},
		}

		gateway, err := NewGateway(cfg)

		require.NoError(t, err)
		assert.Equal(t, authz.GatewayKindHTTP, gateway.Kind())
	})

	t.Run("rejects HTTP gateway without base URL", func(t *testing.T) {
		cfg := &config.LegacyConfig{GatewayKind: "http"}

		gateway, err := NewGateway(cfg)

		assert.Nil(t, gateway)
		assert.ErrorIs(t, err, ErrHTTPConfigMissingBaseURL)
	})

	t.Run("rejects unknown gateway kind", func(t *testing.T) {
		cfg := &config.LegacyConfig{GatewayKind: "carrier_pigeon"}

		gateway, err := NewGateway(cfg)

		assert.Nil(t, gateway)
		assert.ErrorIs(t, err, authz.ErrUnknownGatewayKind)
		assert.Contains(t, err.Error(), "carrier_pigeon")
	})
}
