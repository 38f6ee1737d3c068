package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel/metric"
)

// CheckOutcome labels the result of a permission check for metrics.
type CheckOutcome string

const (
	CheckOutcomeAllowed     CheckOutcome = "allowed"
	CheckOutcomeDenied      CheckOutcome = "denied"
	CheckOutcomeUnavailable CheckOutcome = "unavailable"
	CheckOutcomeUnmapped    CheckOutcome = "unmapped"
)

// BridgeMetrics provides the migration-facing metrics of the bridge:
// permission check outcomes, legacy gateway latency, cutover routing
// decisions and modern order intake.
type BridgeMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	permissionCheckTotal *Counter
	cutoverDecisionTotal *Counter
	orderCreatedTotal    *Counter
	orderAmountTotal     *Counter

	// Histogram metrics
	legacyLookupDuration *Histogram
}

// BridgeMetricsConfig holds configuration for bridge metrics.
type BridgeMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBridgeMetrics creates a new BridgeMetrics instance.
func NewBridgeMetrics(cfg BridgeMetricsConfig) (*BridgeMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BridgeMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	bm.permissionCheckTotal, err = NewCounter(
		cfg.Meter,
		"bridge_permission_check_total",
		"Total number of permission checks answered by the facade",
		"{checks}",
	)
	if err != nil {
		return nil, err
	}

	bm.cutoverDecisionTotal, err = NewCounter(
		cfg.Meter,
		"bridge_cutover_decision_total",
		"Total number of strangler routing decisions",
		"{decisions}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderCreatedTotal, err = NewCounter(
		cfg.Meter,
		"bridge_order_created_total",
		"Total number of orders taken in by the modernized service",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderAmountTotal, err = NewCounter(
		cfg.Meter,
		"bridge_order_amount_total",
		"Total order amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.legacyLookupDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bridge_legacy_lookup_duration_seconds",
		Description: "Latency of legacy authorization store lookups",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordPermissionCheck records one facade answer.
func (bm *BridgeMetrics) RecordPermissionCheck(ctx context.Context, operation string, outcome CheckOutcome) {
	bm.permissionCheckTotal.Inc(ctx,
		AttrOperation.String(operation),
		AttrCheckOutcome.String(string(outcome)),
	)
}

// RecordLegacyLookup records one gateway round trip against the legacy store.
func (bm *BridgeMetrics) RecordLegacyLookup(ctx context.Context, gateway string, d time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	bm.legacyLookupDuration.RecordDuration(ctx, d,
		AttrGatewayKind.String(gateway),
		AttrCheckOutcome.String(outcome),
	)
}

// RecordCutoverDecision records one strangler routing decision.
func (bm *BridgeMetrics) RecordCutoverDecision(ctx context.Context, operation, target, reason string) {
	bm.cutoverDecisionTotal.Inc(ctx,
		AttrOperation.String(operation),
		AttrRouteTarget.String(target),
		AttrRouteReason.String(reason),
	)
}

// RecordOrderCreated records a successful modern order intake with its amount.
// Amount is converted to the smallest currency unit (cents).
func (bm *BridgeMetrics) RecordOrderCreated(ctx context.Context, amount decimal.Decimal) {
	bm.orderCreatedTotal.Inc(ctx)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.orderAmountTotal.Add(ctx, amountCents)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBridgeMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
