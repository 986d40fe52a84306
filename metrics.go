package talespin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a Session.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "talespin").
	Namespace string

	// Subsystem is the metrics subsystem (default: "session").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "talespin",
		Subsystem: "session",
		Registry:  prometheus.DefaultRegisterer,
	}
}

const (
	dropReasonMalformed   = "malformed"
	dropReasonUnknown     = "unknown_event"
	dropReasonOutboxFull  = "outbox_full"
	dropReasonEncodeError = "encode_error"
)

// Metrics holds the collectors updated by a Session. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reconnects     prometheus.Counter
	framesSent     prometheus.Counter
	framesBuffered prometheus.Counter
	framesReceived prometheus.Counter
	framesDropped  *prometheus.CounterVec
	outboxDepth    prometheus.Gauge
	state          prometheus.Gauge
}

// NewMetrics registers the session collectors.
//
// Metrics collected:
//   - talespin_session_reconnects_total: transport handle replacements
//   - talespin_session_frames_sent_total: frames written to an open handle
//   - talespin_session_frames_buffered_total: frames queued while not open
//   - talespin_session_frames_received_total: inbound data frames
//   - talespin_session_frames_dropped_total: frames discarded, by reason
//   - talespin_session_outbox_depth: frames waiting for the next open handle
//   - talespin_session_connection_state: 0 connecting, 1 open, 2 closed
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Total number of transport handle replacements",
			ConstLabels: config.ConstLabels,
		}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total number of frames written to an open transport",
			ConstLabels: config.ConstLabels,
		}),
		framesBuffered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_buffered_total",
			Help:        "Total number of frames queued while the transport was not open",
			ConstLabels: config.ConstLabels,
		}),
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total number of inbound data frames",
			ConstLabels: config.ConstLabels,
		}),
		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_dropped_total",
			Help:        "Total number of frames discarded by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),
		outboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "outbox_depth",
			Help:        "Number of frames waiting for the next open transport",
			ConstLabels: config.ConstLabels,
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "Transport lifecycle state: 0 connecting, 1 open, 2 closed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) recordSent(n int) {
	if m == nil {
		return
	}
	m.framesSent.Add(float64(n))
}

func (m *Metrics) recordBuffered(depth int) {
	if m == nil {
		return
	}
	m.framesBuffered.Inc()
	m.outboxDepth.Set(float64(depth))
}

func (m *Metrics) recordReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

func (m *Metrics) recordDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordOutboxDepth(depth int) {
	if m == nil {
		return
	}
	m.outboxDepth.Set(float64(depth))
}

func (m *Metrics) recordState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
