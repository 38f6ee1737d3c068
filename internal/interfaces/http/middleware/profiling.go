package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erp/bridge/internal/infrastructure/telemetry"
)

// ProfilingConfig configures which requests get profiling labels.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths bypass labelling on exact match.
	SkipPaths []string
	// SkipPathPrefixes bypass labelling on prefix match.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig labels everything except the operational
// endpoints and the API docs.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling attaches Pyroscope labels to each request with the default
// config.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig attaches Pyroscope labels to each request so the
// profiling UI can slice flamegraphs by them:
//
//   - controller: resource name derived from the route ("orders")
//   - route: route pattern ("/api/v1/orders/:id")
//   - method: HTTP method
//   - target: which side of the migration served the request, on
//     strangled routes
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	return func(c *gin.Context) {
		if skipPath(c.Request.URL.Path, cfg.SkipPaths, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), requestProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipPath(path string, exact, prefixes []string) bool {
	for _, p := range exact {
		if path == p {
			return true
		}
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// requestProfilingLabels builds the label set for one request. All
// values are low cardinality: method, route pattern, controller and
// the two-valued routing target.
func requestProfilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}
	if controller := controllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	if target := GetGateTarget(c); target != "" {
		labels[telemetry.ProfilingLabelTarget] = target
	}

	return labels
}

// controllerFromRoute picks the first meaningful segment after the
// /api/{version} prefix: "/api/v1/orders/:id" yields "orders".
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment reports whether a path segment looks like an API
// version ("v1", "V2", ...).
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}

// ProfilingAttributeInjector is Profiling positioned after the JWT and
// cutover gate middleware, so the target label is populated.
func ProfilingAttributeInjector() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}
