package metrics

import (
	"sync"
	"time"

	"styx-hq/charon/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry and the relay metric set. It
// is the single type handlers talk to for recording metrics.
//
// Updates are cheap: metric instances are pre-registered, and a
// cardinality limiter keeps the supplier label from growing without
// bound when callers ship inline base URLs.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Relay traffic metrics
	relayMetrics *RelayMetrics

	// Cardinality tracking for the supplier label
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is used.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "styx",
//		Subsystem: "charon",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = "styx"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "charon"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Chat requests run 100ms to minutes; streams hold longest
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000), // Max 1K unique supplier labels
	}

	c.relayMetrics = NewRelayMetrics(cfg, registry)

	return c
}

// NewNopCollector returns a collector that records nothing. It stands in
// when metrics are disabled or a caller did not wire a real collector.
func NewNopCollector() *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: false}, nil)
}

// RecordRequest records metrics for a completed relay request.
//
// Parameters:
//   - supplier: Supplier label (registry name or "inline")
//   - operation: Relay operation ("chat", "chat_stream", "models")
//   - code: HTTP status code returned to the caller
//   - duration: Total request duration
func (c *Collector) RecordRequest(supplier, operation, code string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.RecordRequest(c.boundedSupplier(supplier), operation, code, duration)
}

// RecordUpstreamError records a failed relay operation by error kind.
func (c *Collector) RecordUpstreamError(kind string) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.RecordUpstreamError(kind)
}

// RecordStreamChunk records one relayed SSE chunk and its size.
func (c *Collector) RecordStreamChunk(supplier string, sizeBytes int) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.RecordStreamChunk(c.boundedSupplier(supplier), sizeBytes)
}

// StreamOpened marks a stream as open for the supplier. The caller
// must pair it with StreamClosed.
func (c *Collector) StreamOpened(supplier string) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.StreamOpened(c.boundedSupplier(supplier))
}

// StreamClosed marks a stream as closed for the supplier.
func (c *Collector) StreamClosed(supplier string) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.StreamClosed(c.boundedSupplier(supplier))
}

// RecordPayload records the size of a request or response body.
func (c *Collector) RecordPayload(operation, direction string, sizeBytes int) {
	if !c.config.Enabled {
		return
	}

	c.relayMetrics.RecordPayload(operation, direction, sizeBytes)
}

// boundedSupplier aggregates suppliers into "other" once the label set
// hits the cardinality cap. Registry names are bounded; the cap guards
// the counters and gauge if a future caller derives the label from
// request input.
func (c *Collector) boundedSupplier(supplier string) string {
	if !c.cardinalityLimiter.Allow(supplier) {
		return "other"
	}
	return supplier
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique values for a label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the
// specified maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelValue string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelValue]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelValue]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelValue] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
