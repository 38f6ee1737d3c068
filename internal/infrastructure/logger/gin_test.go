package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observedRouter builds a gin engine whose middleware logs into an
// in-memory observer at the given level.
func observedRouter(level zapcore.Level, middlewares ...gin.HandlerFunc) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(middlewares...)
	router.Use(GinMiddleware(zap.New(core)))
	return router, recorded
}

func serveGin(router *gin.Engine, method, path string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	router.ServeHTTP(w, req)
	return w
}

// requestLog returns the recorded "HTTP Request" entry, failing the
// test when none was emitted.
func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == "HTTP Request" {
			return entry
		}
	}
	require.FailNow(t, "HTTP Request log should exist")
	return observer.LoggedEntry{}
}

func logFields(entry observer.LoggedEntry) map[string]zapcore.Field {
	fields := make(map[string]zapcore.Field, len(entry.Context))
	for _, field := range entry.Context {
		fields[field.Key] = field
	}
	return fields
}

// Response status picks the log level: 2xx info, 4xx warn, 5xx error.
func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		observed zapcore.Level
		want     zapcore.Level
	}{
		{"success logs at info", http.StatusOK, zapcore.InfoLevel, zapcore.InfoLevel},
		{"client error logs at warn", http.StatusBadRequest, zapcore.WarnLevel, zapcore.WarnLevel},
		{"server error logs at error", http.StatusInternalServerError, zapcore.ErrorLevel, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, recorded := observedRouter(tt.observed)
			router.GET("/api/v1/authz/checks", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{"status": tt.status})
			})

			w := serveGin(router, "GET", "/api/v1/authz/checks")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.want, requestLog(t, recorded).Level)
		})
	}
}

func TestGinMiddleware_WithRequestID(t *testing.T) {
	// Simulates the RequestID middleware running first
	router, recorded := observedRouter(zapcore.InfoLevel, func(c *gin.Context) {
		c.Set("request_id", "test-req-123")
		c.Next()
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGin(router, "GET", "/healthz")

	fields := logFields(requestLog(t, recorded))
	require.Contains(t, fields, "request_id")
	assert.Equal(t, "test-req-123", fields["request_id"].String)
}

func TestGinMiddleware_WithQuery(t *testing.T) {
	router, recorded := observedRouter(zapcore.InfoLevel)
	router.GET("/api/v1/cutover/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGin(router, "GET", "/api/v1/cutover/routes?operation=create_order&page=1")

	fields := logFields(requestLog(t, recorded))
	require.Contains(t, fields, "query")
	assert.Contains(t, fields["query"].String, "operation=create_order")
}

func TestGinMiddleware_LogsCorrectFields(t *testing.T) {
	router, recorded := observedRouter(zapcore.InfoLevel)
	router.POST("/api/v1/authz/mappings", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": 1})
	})

	serveGin(router, "POST", "/api/v1/authz/mappings", "User-Agent", "Test-Agent/1.0")

	fields := logFields(requestLog(t, recorded))
	for _, key := range []string{"status", "latency", "client_ip", "user_agent", "method", "path"} {
		assert.Contains(t, fields, key)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	var w *httptest.ResponseRecorder
	assert.NotPanics(t, func() {
		w = serveGin(router, "GET", "/panic")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	router, _ := observedRouter(zapcore.InfoLevel)

	var retrieved *zap.Logger
	router.GET("/healthz", func(c *gin.Context) {
		retrieved = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGin(router, "GET", "/healthz")
	assert.NotNil(t, retrieved)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var retrieved *zap.Logger
	router := gin.New()
	router.GET("/healthz", func(c *gin.Context) {
		retrieved = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGin(router, "GET", "/healthz")

	// Falls back to a no-op logger rather than nil
	require.NotNil(t, retrieved)
	assert.NotPanics(t, func() { retrieved.Info("test") })
}
