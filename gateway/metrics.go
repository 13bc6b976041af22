package gateway

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the prometheus collectors described in §6's external
// interfaces. A nil *metrics makes every recording method a no-op, so
// components built without one (as the unit tests build them) never
// have to construct one.
type metrics struct {
	tickReceived  *prometheus.CounterVec
	tickFiltered  *prometheus.CounterVec
	reconnects    *prometheus.CounterVec
	state         *prometheus.GaugeVec
	subscriptions *prometheus.GaugeVec
	queueSize     *prometheus.GaugeVec
	tickLatency   *prometheus.HistogramVec
}

// newMetrics constructs and registers the collector set against reg. If
// reg is nil, the default prometheus.Registerer is used.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &metrics{
		tickReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_received_total",
			Help: "Total number of ticks received from the front end.",
		}, []string{"gateway", "exchange"}),
		tickFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tick_filtered_total",
			Help: "Total number of ticks dropped during validation, by reason.",
		}, []string{"gateway", "reason"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconnect_total",
			Help: "Total number of reconnect attempts, by result.",
		}, []string{"gateway", "result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_state",
			Help: "Current session state (0=DISCONNECTED .. 7=STOPPED).",
		}, []string{"gateway"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_subscriptions",
			Help: "Current number of active subscriptions.",
		}, []string{"gateway"}),
		queueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_queue_size",
			Help: "Current depth of the ingest dispatch queue.",
		}, []string{"gateway"}),
		tickLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tick_latency_seconds",
			Help:    "Latency between exchange timestamp and local reception.",
			Buckets: []float64{1e-4, 5e-4, 1e-3, 5e-3, 1e-2, 5e-2, 1e-1, 5e-1, 1.0},
		}, []string{"gateway"}),
	}

	register := func(c prometheus.Collector) prometheus.Collector {
		if are, ok := reg.Register(c).(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector // a second Gateway in the same process reuses the existing collector
		}
		return c
	}
	m.tickReceived = register(m.tickReceived).(*prometheus.CounterVec)
	m.tickFiltered = register(m.tickFiltered).(*prometheus.CounterVec)
	m.reconnects = register(m.reconnects).(*prometheus.CounterVec)
	m.state = register(m.state).(*prometheus.GaugeVec)
	m.subscriptions = register(m.subscriptions).(*prometheus.GaugeVec)
	m.queueSize = register(m.queueSize).(*prometheus.GaugeVec)
	m.tickLatency = register(m.tickLatency).(*prometheus.HistogramVec)
	return m
}

func (m *metrics) recordTick(gatewayName, exchange string) {
	if m == nil {
		return
	}
	m.tickReceived.WithLabelValues(gatewayName, exchange).Inc()
}

func (m *metrics) recordFiltered(gatewayName, reason string) {
	if m == nil {
		return
	}
	m.tickFiltered.WithLabelValues(gatewayName, reason).Inc()
}

func (m *metrics) recordReconnect(gatewayName, result string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(gatewayName, result).Inc()
}

func (m *metrics) setState(gatewayName string, s SessionState) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(gatewayName).Set(s.metricsValue())
}

func (m *metrics) setSubscriptions(gatewayName string, n int) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(gatewayName).Set(float64(n))
}

func (m *metrics) setQueueSize(gatewayName string, n int) {
	if m == nil {
		return
	}
	m.queueSize.WithLabelValues(gatewayName).Set(float64(n))
}

func (m *metrics) observeLatency(gatewayName string, seconds float64) {
	if m == nil {
		return
	}
	m.tickLatency.WithLabelValues(gatewayName).Observe(seconds)
}
