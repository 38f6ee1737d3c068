package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/interfaces/http/dto"
)

// DatabasePinger verifies the bridge's own database is reachable.
type DatabasePinger interface {
	Ping() error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	db        DatabasePinger
	gateway   authz.LegacyGateway
}

// NewSystemHandler creates a new SystemHandler. Both probes are optional;
// a nil probe reports as "skipped" rather than failing health.
func NewSystemHandler(db DatabasePinger, gateway authz.LegacyGateway) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		db:        db,
		gateway:   gateway,
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/ping", h.Ping)
	}
	rg.GET("/health", h.Health)
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Legacy Bridge API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Legacy Bridge API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-08-24T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// HealthResponse represents the aggregated health check response
// @name HandlerHealthResponse
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
}

const (
	healthOK      = "ok"
	healthFailed  = "failed"
	healthSkipped = "skipped"
	// Degraded means the bridge itself works but the legacy side does
	// not; permission checks will answer 503 until it recovers.
	healthDegraded = "degraded"
)

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Probes the bridge database and the legacy authorization gateway. A failing bridge database yields 503; a failing legacy gateway reports degraded with 200 since the bridge can still serve routed traffic.
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := healthOK
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["bridge_database"] = healthFailed
			status = healthFailed
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["bridge_database"] = healthOK
		}
	} else {
		checks["bridge_database"] = healthSkipped
	}

	if h.gateway != nil {
		if err := h.gateway.Ping(ctx); err != nil {
			checks["legacy_gateway"] = healthFailed
			if status == healthOK {
				status = healthDegraded
			}
		} else {
			checks["legacy_gateway"] = healthOK
		}
	} else {
		checks["legacy_gateway"] = healthSkipped
	}

	c.JSON(httpStatus, dto.NewSuccessResponse(HealthResponse{
		Status: status,
		Checks: checks,
	}))
}
