package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Standard profiling label keys. Keeping handlers on this fixed set
// keeps the Pyroscope series count bounded.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelTarget     = "target" // cutover side, legacy or modern
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region" // code region, e.g. "db_query"
)

// MaxLabelValueLength caps label values; longer values are truncated.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists label keys sanitizeLabels silently drops.
// legacy_subject_id is here deliberately: the legacy store can hold
// hundreds of thousands of subjects and labelling profiles by subject
// would blow up Pyroscope series. Do not modify this map at runtime.
var HighCardinalityLabels = map[string]bool{
	"user_id":           true,
	"request_id":        true,
	"order_id":          true,
	"trace_id":          true,
	"span_id":           true,
	"session_id":        true,
	"legacy_subject_id": true,
}

// WithProfilingLabels runs fn with the given labels attached to its
// profile samples, so the Pyroscope UI can slice flamegraphs by them:
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "OrderHandler",
//	    "operation":  "create_order",
//	}, func(c context.Context) {
//	    processOrder(c)
//	})
//
// The labels map is copied and sanitized first, so callers may reuse or
// mutate it afterwards. fn always runs, labelled or not.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if pairs := sanitizedPairs(labels); len(pairs) > 0 {
		pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
		return
	}
	fn(ctx)
}

// WithPprofLabels is the same as WithProfilingLabels but goes through
// Go's native pprof label API. The two are interchangeable; use this
// one when the output must stay readable by standard pprof tooling.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if pairs := sanitizedPairs(labels); len(pairs) > 0 {
		pprof.Do(ctx, pprof.Labels(pairs...), fn)
		return
	}
	fn(ctx)
}

// sanitizedPairs copies, sanitizes and flattens a label map into the
// alternating key/value slice both label APIs take.
func sanitizedPairs(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	return sanitizeLabels(maps.Clone(labels))
}

// ProfilingScope accumulates labels incrementally before running a
// labelled function.
type ProfilingScope struct {
	labels map[string]string
}

// NewProfilingScope starts a scope from an initial label set, which is
// copied.
func NewProfilingScope(labels map[string]string) *ProfilingScope {
	scope := &ProfilingScope{labels: make(map[string]string, len(labels))}
	maps.Copy(scope.labels, labels)
	return scope
}

// WithLabel adds one label and returns the scope for chaining.
func (s *ProfilingScope) WithLabel(key, value string) *ProfilingScope {
	s.labels[key] = value
	return s
}

func (s *ProfilingScope) WithController(controller string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelController, controller)
}

func (s *ProfilingScope) WithRoute(route string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRoute, route)
}

func (s *ProfilingScope) WithMethod(method string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelMethod, method)
}

func (s *ProfilingScope) WithTarget(target string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelTarget, target)
}

func (s *ProfilingScope) WithOperation(operation string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelOperation, operation)
}

func (s *ProfilingScope) WithRegion(region string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRegion, region)
}

// Labels returns a copy of the accumulated labels.
func (s *ProfilingScope) Labels() map[string]string {
	return maps.Clone(s.labels)
}

// Run executes fn with the accumulated labels.
func (s *ProfilingScope) Run(ctx context.Context, fn func(context.Context)) {
	WithProfilingLabels(ctx, s.labels, fn)
}

// sanitizeLabels drops empty and high-cardinality entries, truncates
// oversized values, normalizes keys and returns the surviving labels as
// a deterministic (key-sorted) pair slice.
func sanitizeLabels(labels map[string]string) []string {
	pairs := make([]string, 0, len(labels)*2)
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		// Dropped silently rather than logged, this runs on hot paths
		if HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if key = sanitizeLabelKey(key); key == "" {
			continue
		}
		pairs = append(pairs, key, value)
	}
	if len(pairs) == 0 {
		return nil
	}
	return pairs
}

// sanitizeLabelKey lowercases the key, maps spaces and dashes to
// underscores and strips everything else outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}, key)
}

func putIfSet(labels map[string]string, key, value string) {
	if value != "" {
		labels[key] = value
	}
}

// HTTPRequestLabels builds the standard label set for one HTTP request;
// empty components are omitted.
func HTTPRequestLabels(controller, route, method, target string) map[string]string {
	labels := make(map[string]string, 4)
	putIfSet(labels, ProfilingLabelController, controller)
	putIfSet(labels, ProfilingLabelRoute, route)
	putIfSet(labels, ProfilingLabelMethod, method)
	putIfSet(labels, ProfilingLabelTarget, target)
	return labels
}

// OperationLabels builds labels for a named operation plus extras.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}

// RegionLabels builds labels for a code region plus extras.
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extraLabels)
	return labels
}
