package middleware

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/cutover"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
	"github.com/erp/bridge/internal/interfaces/http/dto"
)

// Gate context keys and routing headers
const (
	// GateTargetKey is the gin context key holding the decided target
	GateTargetKey = "cutover_target"
	// GateReasonKey is the gin context key holding the decision reason
	GateReasonKey = "cutover_reason"

	// RouteTargetHeader tells clients which side served the request
	RouteTargetHeader = "X-Bridge-Route-Target"
	// RouteReasonHeader tells clients why that side was chosen
	RouteReasonHeader = "X-Bridge-Route-Reason"
)

// RouteDecider answers which side of the migration serves an operation for
// a given subject key. Satisfied by the cutover application service.
type RouteDecider interface {
	Decide(ctx context.Context, operation, subjectKey string) cutover.Decision
}

// GateConfig holds configuration for the cutover gate middleware
type GateConfig struct {
	// Decider is required; it answers routing decisions
	Decider RouteDecider
	// LegacyTarget is the base URL legacy-routed requests are proxied to
	LegacyTarget *url.URL
	// Metrics is optional; decisions are recorded when set
	Metrics *telemetry.BridgeMetrics
	// Logger for gate logging
	Logger *zap.Logger
}

// CutoverGate returns the strangler gate middleware for one operation.
//
// The gate asks the decider where the request belongs. A modern decision
// lets the request continue into this service's handlers. A legacy decision
// reverse-proxies the request, unmodified, to the monolith: the client never
// learns which side answered beyond the routing headers.
//
// The subject key is the authenticated user ID so that one user always
// lands in the same canary cohort. Unauthenticated requests fall back to
// the client IP, which still gives a stable-enough cohort for smoke traffic.
func CutoverGate(operation string, cfg GateConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var proxy *httputil.ReverseProxy
	if cfg.LegacyTarget != nil {
		proxy = httputil.NewSingleHostReverseProxy(cfg.LegacyTarget)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("Legacy proxy request failed",
				zap.String("operation", operation),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` +
				dto.ErrCodeLegacyUnavailable + `","message":"Legacy system did not answer"}}`))
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		subjectKey := GetJWTUserID(c)
		if subjectKey == "" {
			subjectKey = c.ClientIP()
		}

		decision := cfg.Decider.Decide(ctx, operation, subjectKey)

		c.Set(GateTargetKey, decision.Target.String())
		c.Set(GateReasonKey, string(decision.Reason))
		c.Writer.Header().Set(RouteTargetHeader, decision.Target.String())
		c.Writer.Header().Set(RouteReasonHeader, string(decision.Reason))

		if cfg.Metrics != nil {
			cfg.Metrics.RecordCutoverDecision(ctx, operation,
				decision.Target.String(), string(decision.Reason))
		}

		if decision.IsModern() {
			c.Next()
			return
		}

		if proxy == nil {
			// No proxy target configured: legacy traffic cannot be served here
			logger.Error("Legacy decision without a proxy target",
				zap.String("operation", operation))
			c.AbortWithStatusJSON(http.StatusBadGateway, dto.NewErrorResponse(
				dto.ErrCodeLegacyUnavailable, "No legacy target configured"))
			return
		}

		logger.Debug("Proxying request to legacy system",
			zap.String("operation", operation),
			zap.String("path", c.Request.URL.Path),
			zap.String("reason", string(decision.Reason)))

		proxy.ServeHTTP(c.Writer, c.Request)
		c.Abort()
	}
}

// GetGateTarget retrieves the decided routing target from gin context
func GetGateTarget(c *gin.Context) string {
	if target, exists := c.Get(GateTargetKey); exists {
		if t, ok := target.(string); ok {
			return t
		}
	}
	return ""
}
