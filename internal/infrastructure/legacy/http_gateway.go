package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/bridge/internal/domain/authz"
)

// maxResponseSize is the maximum allowed response size from the legacy
// monolith's internal API (1MB)
const maxResponseSize = 1 << 20

// checkPath is the monolith's internal permission check endpoint
const checkPath = "/internal/auth/check"

// healthPath is the monolith's internal health endpoint
const healthPath = "/internal/health"

// Errors for HTTP gateway configuration
var (
	ErrHTTPConfigMissingBaseURL = errors.New("legacy: base URL is required")
	ErrHTTPConfigInvalidTimeout = errors.New("legacy: timeout must be positive")
)

// HTTPConfig holds configuration for the legacy monolith's internal API
type HTTPConfig struct {
	// BaseURL is the root of the monolith's internal API
	BaseURL string
	// APIKey authenticates the bridge against the internal endpoints
	APIKey string
	// Timeout is the HTTP client timeout
	Timeout time.Duration
}

// Validate checks that the configuration is usable
func (c *HTTPConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrHTTPConfigMissingBaseURL
	}
	if c.Timeout < 0 {
		return ErrHTTPConfigInvalidTimeout
	}
	return nil
}

// checkResponse is the wire shape of the monolith's permission check reply
type checkResponse struct {
	UserID    int64  `json:"user_id"`
	Operation string `json:"operation"`
	Allowed   bool   `json:"allowed"`
}

// HTTPGateway calls the legacy monolith's internal permission check endpoint
type HTTPGateway struct {
	config     *HTTPConfig
	httpClient *http.Client
}

// NewHTTPGateway creates a new HTTP gateway with the given configuration
func NewHTTPGateway(config *HTTPConfig) (*HTTPGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &HTTPGateway{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Kind returns the gateway kind this adapter handles
func (g *HTTPGateway) Kind() authz.GatewayKind {
	return authz.GatewayKindHTTP
}

// FetchGrant asks the monolith whether (subjectID, operation) is authorized.
// HTTP 404 maps to authz.ErrGrantNotFound; transport failures, non-OK
// statuses and malformed replies are all translated to
// authz.ErrLegacyUnavailable.
func (g *HTTPGateway) FetchGrant(ctx context.Context, subjectID int64, operation string) (*authz.LegacyGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(checkPath), nil)
	if err != nil {
		return nil, fmt.Errorf("legacy: failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("user_id", strconv.FormatInt(subjectID, 10))
	q.Set("operation", operation)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("X-API-Key", g.config.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", authz.ErrLegacyUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, authz.ErrGrantNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d", authz.ErrLegacyUnavailable, resp.StatusCode)
	}

	var payload checkResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", authz.ErrLegacyUnavailable, err)
	}

	return &authz.LegacyGrant{
		SubjectID:  subjectID,
		Operation:  operation,
		Authorized: payload.Allowed,
		Source:     authz.GatewayKindHTTP,
		FetchedAt:  time.Now(),
	}, nil
}

// Ping checks that the monolith's internal API is reachable
func (g *HTTPGateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(healthPath), nil)
	if err != nil {
		return fmt.Errorf("legacy: failed to create request: %w", err)
	}
	if g.config.APIKey != "" {
		req.Header.Set("X-API-Key", g.config.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", authz.ErrLegacyUnavailable, resp.StatusCode)
	}
	return nil
}

// endpoint joins the configured base URL with an internal API path
func (g *HTTPGateway) endpoint(path string) string {
	return strings.TrimSuffix(g.config.BaseURL, "/") + path
}

// Ensure HTTPGateway implements LegacyGateway
var _ authz.LegacyGateway = (*HTTPGateway)(nil)
