package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	authzapp "github.com/erp/bridge/internal/application/authz"
	cutoverapp "github.com/erp/bridge/internal/application/cutover"
	orderingapp "github.com/erp/bridge/internal/application/ordering"
	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/infrastructure/auth"
	"github.com/erp/bridge/internal/infrastructure/cache"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/erp/bridge/internal/infrastructure/event"
	"github.com/erp/bridge/internal/infrastructure/legacy"
	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/erp/bridge/internal/infrastructure/persistence"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
	"github.com/erp/bridge/internal/interfaces/http/handler"
	"github.com/erp/bridge/internal/interfaces/http/middleware"
	"github.com/erp/bridge/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/bridge/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Legacy Bridge API
//	@version		1.0
//	@description	Bridge service that fronts the legacy ERP permission store while order intake is migrated to a modern backend. Authorization checks, subject mapping and cutover routing are exposed through this API.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/bridge
//	@contact.email	support@erp.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

// telemetryStack bundles the observability providers so main can shut
// them down as one unit in reverse start order.
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
	metrics  *telemetry.BridgeMetrics
}

// initTelemetry starts the tracer, meter, log and profile providers.
// The returned logger duplicates every record to the collector when log
// export is active; otherwise it is the base logger unchanged.
func initTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, *zap.Logger, error) {
	stack := &telemetryStack{}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	stack.tracer = tracer

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	stack.meter = meter

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	stack.logs = logs

	if logs.IsEnabled() {
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logs, cfg.Telemetry.ServiceName)
		if err != nil {
			return nil, nil, err
		}
		log = bridged
		log.Info("Log export to collector enabled")
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.PyroscopeAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	stack.profiler = profiler

	// Span profiles link traces to flamegraphs; they need both sides up
	if tracer.IsEnabled() && profiler.IsEnabled() {
		if err := tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	if meter.IsEnabled() {
		stack.metrics, err = telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
			Meter:  meter.Meter("legacy-bridge"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to initialize bridge metrics", zap.Error(err))
		}
	}

	return stack, log, nil
}

// shutdown stops the providers, flushing what they still hold.
func (s *telemetryStack) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.profiler != nil {
		if err := s.profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := s.logs.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := s.meter.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Legacy Bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Observability first: everything downstream logs through the bridged
	// logger and attaches to the global providers. All providers are
	// no-ops when telemetry is disabled, so the rest of the wiring does
	// not branch on cfg.Telemetry.Enabled.
	tel, log, err := initTelemetry(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer tel.shutdown(log)

	// Bridge-owned database (subject mappings, cutover routes, modern orders)
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Bridge database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, tel.meter, telemetry.DBMetricsConfig{
		Enabled: cfg.Telemetry.Enabled,
	}, log); err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}

	// Gateway into the legacy permission store. The legacy schema never leaks
	// past this boundary.
	legacyGateway, err := legacy.NewGateway(&cfg.Legacy)
	if err != nil {
		log.Fatal("Failed to initialize legacy gateway", zap.Error(err))
	}
	log.Info("Legacy gateway initialized", zap.String("kind", string(legacyGateway.Kind())))

	// Repositories and application services
	mappingRepo := persistence.NewGormSubjectMappingRepository(db.DB)
	routeRepo := persistence.NewGormRouteRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	authzService := authzapp.NewService(legacyGateway, mappingRepo, log)

	// Decision caching keeps hot permission checks off the legacy store.
	// Denials are cached the same as grants; only gateway failures bypass it.
	var checker authz.Checker = authzService
	var decisionCache authz.DecisionCache
	if cfg.Authz.EnableCache {
		cacheFactory := cache.NewDecisionCacheFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithDecisionCacheConfig(authz.CacheConfig{TTL: cfg.Authz.CacheTTL}),
			cache.WithInMemoryFallback(true),
		)
		decisionCache, err = cacheFactory.CreateCache()
		if err != nil {
			log.Fatal("Failed to initialize decision cache", zap.Error(err))
		}
		checker = authzapp.NewCachedChecker(authzService, decisionCache,
			authzapp.WithCachedCheckerLogger(log),
			authzapp.WithCachedCheckerConfig(authz.CacheConfig{TTL: cfg.Authz.CacheTTL}),
		)
		log.Info("Authorization decision cache enabled", zap.Duration("ttl", cfg.Authz.CacheTTL))
	}

	routeService := cutoverapp.NewRouteService(routeRepo, log)
	orderService := orderingapp.NewOrderService(orderRepo, checker, log)

	// Event bus for cross-context integration events
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	routeService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)

	routeChangedHandler := cutoverapp.NewRouteChangedHandler(log)
	if decisionCache != nil {
		routeChangedHandler = routeChangedHandler.WithInvalidator(decisionCache)
	}
	eventBus.Subscribe(routeChangedHandler)
	eventBus.Subscribe(orderingapp.NewOrderCreatedHandler(log))

	jwtService := auth.NewJWTService(cfg.JWT)

	authzHandler := handler.NewAuthzHandler(authzService)
	cutoverHandler := handler.NewCutoverHandler(routeService)
	orderHandler := handler.NewOrderHandler(orderService, authzService)
	systemHandler := handler.NewSystemHandler(db, legacyGateway)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order matters: the request ID and recovery run before
	// tracing so the server span sees both, and rate limiting runs last
	// so rejected requests still carry telemetry.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.meter,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Profiling())

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check outside API versioning. Probes both the bridge
	// database and the legacy gateway; a legacy outage degrades but does
	// not fail the bridge itself.
	engine.GET("/health", systemHandler.Health)

	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		Logger:     log,
	})
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtMiddleware),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Cutover gate for the strangled create-order operation. Requests that
	// decide "legacy" are proxied to the monolith; "modern" requests fall
	// through to the handler below.
	legacyTarget, err := url.Parse(cfg.Cutover.LegacyTarget)
	if err != nil {
		log.Fatal("Invalid legacy target URL", zap.Error(err), zap.String("target", cfg.Cutover.LegacyTarget))
	}
	createOrderGate := middleware.CutoverGate(authz.OperationCreateOrder, middleware.GateConfig{
		Decider:      routeService,
		LegacyTarget: legacyTarget,
		Metrics:      tel.metrics,
		Logger:       log,
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/health",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}))
	r.Register(authzHandler).
		Register(cutoverHandler).
		Register(&gatedOrderRoutes{handler: orderHandler, gate: createOrderGate}).
		Register(systemHandler)
	r.Setup()

	// Bare ping for load balancers that cannot parse the health payload
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// gatedOrderRoutes registers the order routes with the cutover gate applied
// to the strangled create operation.
type gatedOrderRoutes struct {
	handler *handler.OrderHandler
	gate    gin.HandlerFunc
}

func (g *gatedOrderRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	g.handler.RegisterRoutesWithGate(rg, g.gate)
}
