package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/interfaces/http/dto"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping() error {
	return s.err
}

type stubGateway struct {
	pingErr error
}

func (s *stubGateway) Kind() authz.GatewayKind {
	return authz.GatewayKindSQL
}

func (s *stubGateway) FetchGrant(ctx context.Context, subjectID int64, operation string) (*authz.LegacyGrant, error) {
	return nil, authz.ErrGrantNotFound
}

func (s *stubGateway) Ping(ctx context.Context) error {
	return s.pingErr
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(nil, nil)
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Legacy Bridge API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])

	// Verify timestamp is valid RFC3339
	timestamp := data["timestamp"].(string)
	_, err = time.Parse(time.RFC3339, timestamp)
	assert.NoError(t, err)
}

func TestSystemHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		db             DatabasePinger
		gateway        authz.LegacyGateway
		expectedHTTP   int
		expectedStatus string
		expectedChecks map[string]string
	}{
		{
			name:           "all probes healthy",
			db:             &stubPinger{},
			gateway:        &stubGateway{},
			expectedHTTP:   http.StatusOK,
			expectedStatus: "ok",
			expectedChecks: map[string]string{
				"bridge_database": "ok",
				"legacy_gateway":  "ok",
			},
		},
		{
			name:           "bridge database down yields 503",
			db:             &stubPinger{err: errors.New("connection refused")},
			gateway:        &stubGateway{},
			expectedHTTP:   http.StatusServiceUnavailable,
			expectedStatus: "failed",
			expectedChecks: map[string]string{
				"bridge_database": "failed",
				"legacy_gateway":  "ok",
			},
		},
		{
			name:           "legacy gateway down degrades but stays 200",
			db:             &stubPinger{},
			gateway:        &stubGateway{pingErr: errors.New("legacy timeout")},
			expectedHTTP:   http.StatusOK,
			expectedStatus: "degraded",
			expectedChecks: map[string]string{
				"bridge_database": "ok",
				"legacy_gateway":  "failed",
			},
		},
		{
			name:           "both down reports failed",
			db:             &stubPinger{err: errors.New("connection refused")},
			gateway:        &stubGateway{pingErr: errors.New("legacy timeout")},
			expectedHTTP:   http.StatusServiceUnavailable,
			expectedStatus: "failed",
			expectedChecks: map[string]string{
				"bridge_database": "failed",
				"legacy_gateway":  "failed",
			},
		},
		{
			name:           "nil probes are skipped",
			db:             nil,
			gateway:        nil,
			expectedHTTP:   http.StatusOK,
			expectedStatus: "ok",
			expectedChecks: map[string]string{
				"bridge_database": "skipped",
				"legacy_gateway":  "skipped",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.db, tt.gateway)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

			h.Health(c)

			assert.Equal(t, tt.expectedHTTP, w.Code)

			var resp dto.Response
			err := json.Unmarshal(w.Body.Bytes(), &resp)
			require.NoError(t, err)

			data := resp.Data.(map[string]interface{})
			assert.Equal(t, tt.expectedStatus, data["status"])

			checks := data["checks"].(map[string]interface{})
			for probe, want := range tt.expectedChecks {
				assert.Equal(t, want, checks[probe], "probe %s", probe)
			}
		})
	}
}
