package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics exposes counters/histograms for OpenEMR API traffic.
type ClientMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	tokenExchanges *prometheus.CounterVec
	authRetries    prometheus.Counter
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "openemr",
			Name:      "requests_total",
			Help:      "Total OpenEMR API requests",
		}, []string{"method", "endpoint", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "openemr",
			Name:      "request_latency_seconds",
			Help:      "Latency of OpenEMR API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		tokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "openemr",
			Name:      "token_exchanges_total",
			Help:      "Total OAuth2 password-grant exchanges",
		}, []string{"outcome"}),
		authRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "openemr",
			Name:      "auth_retries_total",
			Help:      "Requests retried after a 401 response",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.tokenExchanges, m.authRetries)
	return m
}

func (m *ClientMetrics) ObserveRequest(method, endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.requestLatency.WithLabelValues(method, endpoint).Observe(seconds)
}

func (m *ClientMetrics) ObserveTokenExchange(outcome string) {
	if m == nil {
		return
	}
	m.tokenExchanges.WithLabelValues(outcome).Inc()
}

func (m *ClientMetrics) ObserveAuthRetry() {
	if m == nil {
		return
	}
	m.authRetries.Inc()
}

// EngineMetrics exposes counters/histograms for the query-resolution engine.
type EngineMetrics struct {
	searchesTotal *prometheus.CounterVec
	searchLatency prometheus.Histogram
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "scheduling",
			Name:      "searches_total",
			Help:      "Total find_appointments invocations",
		}, []string{"outcome"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "scheduling",
			Name:      "search_latency_seconds",
			Help:      "Latency of find_appointments invocations",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchesTotal, m.searchLatency)
	return m
}

func (m *EngineMetrics) ObserveSearch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
	m.searchLatency.Observe(seconds)
}
