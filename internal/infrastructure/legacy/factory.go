package legacy

import (
	"fmt"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/infrastructure/config"
)

// NewGateway builds the legacy gateway selected by cfg.GatewayKind. The SQL
// kind opens its own connection to the legacy database; the HTTP kind talks
// to the monolith's internal API.
func NewGateway(cfg *config.LegacyConfig) (authz.LegacyGateway, error) {
	switch authz.GatewayKind(cfg.GatewayKind) {
	case authz.GatewayKindSQL:
		db, err := OpenDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewSQLGateway(db, cfg.Timeout), nil

	case authz.GatewayKindHTTP:
		return NewHTTPGateway(&HTTPConfig{
			BaseURL: cfg.HTTP.BaseURL,
			APIKey:  cfg.HTTP.APIKey,
			Timeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: %s", authz.ErrUnknownGatewayKind, cfg.GatewayKind)
	}
}
