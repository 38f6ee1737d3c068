// Package config loads bridge configuration from config.toml and
// BRIDGE_-prefixed environment variables, with env taking precedence.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Legacy    LegacyConfig
	Redis     RedisConfig
	Authz     AuthzConfig
	Cutover   CutoverConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the bridge's own database connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
}

// LegacyConfig holds settings for reaching the legacy system's
// authorization store. Exactly one gateway kind is active at a time.
type LegacyConfig struct {
	GatewayKind string        // sql, http
	Timeout     time.Duration // per-lookup budget against the legacy system
	Database    LegacyDatabaseConfig
	HTTP        LegacyHTTPConfig
}

// LegacyDatabaseConfig holds read-only access to the legacy database.
type LegacyDatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// LegacyHTTPConfig holds access to the legacy monolith's internal API.
type LegacyHTTPConfig struct {
	BaseURL string
	APIKey  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthzConfig holds authorization facade settings.
type AuthzConfig struct {
	EnableCache bool          // wrap the facade in the decision cache decorator
	CacheTTL    time.Duration // how long cached decisions stay valid
}

// CutoverConfig holds strangler gate settings.
type CutoverConfig struct {
	LegacyTarget string        // base URL proxied traffic is sent to
	ProxyTimeout time.Duration // budget for one proxied legacy request
}

type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SwaggerConfig guards the API documentation endpoint.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string // empty means allow all
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0 to 1.0
	ServiceName       string
	Insecure          bool // plaintext collector connection, development only

	DBTraceEnabled    bool          // otelgorm query tracing
	DBLogFullSQL      bool          // full SQL statements in traces, never in production
	DBSlowQueryThresh time.Duration // slow query warning threshold

	ProfilingEnabled bool   // continuous profiling via Pyroscope
	PyroscopeAddress string // Pyroscope server, e.g. "http://pyroscope:4040"
}

// Load reads config.toml (current directory or /app), overlays
// BRIDGE_-prefixed environment variables, fills in defaults and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		// Running purely on env vars and defaults is supported
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Legacy: LegacyConfig{
			GatewayKind: v.GetString("legacy.gateway_kind"),
			Timeout:     v.GetDuration("legacy.timeout"),
			Database: LegacyDatabaseConfig{
				Host:         v.GetString("legacy.database.host"),
				Port:         v.GetInt("legacy.database.port"),
				User:         v.GetString("legacy.database.user"),
				Password:     v.GetString("legacy.database.password"),
				DBName:       v.GetString("legacy.database.dbname"),
				SSLMode:      v.GetString("legacy.database.sslmode"),
				MaxOpenConns: v.GetInt("legacy.database.max_open_conns"),
				MaxIdleConns: v.GetInt("legacy.database.max_idle_conns"),
			},
			HTTP: LegacyHTTPConfig{
				BaseURL: v.GetString("legacy.http.base_url"),
				APIKey:  v.GetString("legacy.http.api_key"),
			},
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Authz: AuthzConfig{
			EnableCache: v.GetBool("authz.enable_cache"),
			CacheTTL:    v.GetDuration("authz.cache_ttl"),
		},
		Cutover: CutoverConfig{
			LegacyTarget: v.GetString("cutover.legacy_target"),
			ProxyTimeout: v.GetDuration("cutover.proxy_timeout"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers the built-in defaults. Anything absent from
// this table (passwords, secrets, CORS origins) has no fallback and
// stays empty until configured.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "erp-bridge")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.conn_max_idle_time", 30)

	// The legacy pool stays small: the bridge only reads one permission
	// table and must not starve the monolith's own connections.
	v.SetDefault("legacy.gateway_kind", "sql")
	v.SetDefault("legacy.timeout", 3*time.Second)
	v.SetDefault("legacy.database.host", "localhost")
	v.SetDefault("legacy.database.port", 5432)
	v.SetDefault("legacy.database.user", "bridge_readonly")
	v.SetDefault("legacy.database.dbname", "legacy_erp")
	v.SetDefault("legacy.database.sslmode", "disable")
	v.SetDefault("legacy.database.max_open_conns", 5)
	v.SetDefault("legacy.database.max_idle_conns", 2)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("authz.cache_ttl", 30*time.Second)

	v.SetDefault("cutover.legacy_target", "http://localhost:8081")
	v.SetDefault("cutover.proxy_timeout", 30*time.Second)

	v.SetDefault("jwt.issuer", "erp-bridge")
	v.SetDefault("jwt.access_token_expiration", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)  // 1MB
	v.SetDefault("http.max_body_size", 10<<20)    // 10MB
	v.SetDefault("http.rate_limit_requests", 100)
	v.SetDefault("http.rate_limit_window", time.Minute)
	// CORS origins deliberately have no default: an empty list means no
	// cross-origin requests are allowed until explicitly configured.
	v.SetDefault("http.cors_allow_methods", []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "erp-bridge")
	v.SetDefault("telemetry.db_slow_query_threshold", 200*time.Millisecond)
	v.SetDefault("telemetry.pyroscope_address", "http://localhost:4040")
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Legacy.GatewayKind {
	case "sql", "http":
	default:
		return fmt.Errorf("legacy.gateway_kind must be 'sql' or 'http', got %q", c.Legacy.GatewayKind)
	}
	if c.Legacy.GatewayKind == "http" && c.Legacy.HTTP.BaseURL == "" {
		return fmt.Errorf("legacy.http.base_url is required when legacy.gateway_kind is 'http'")
	}
	if c.Legacy.Timeout <= 0 {
		return fmt.Errorf("legacy.timeout must be positive")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction enforces the hardening requirements that only
// apply outside development.
func (c *Config) validateProduction() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	if c.Legacy.GatewayKind == "sql" && c.Legacy.Database.Password == "" {
		return fmt.Errorf("legacy.database.password is required in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
	}
	// Full SQL in traces leaks order and permission data to the collector
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}
	return nil
}

func postgresDSN(host string, port int, user, password, dbname, sslmode string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   dbname,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

// DSN returns the bridge database connection string with escaped credentials.
func (d *DatabaseConfig) DSN() string {
	return postgresDSN(d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// DSN returns the legacy database connection string.
func (d *LegacyDatabaseConfig) DSN() string {
	return postgresDSN(d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
