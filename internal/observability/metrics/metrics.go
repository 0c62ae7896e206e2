package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PortalMetrics exposes counters/histograms for the office portal engine.
type PortalMetrics struct {
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	fetchTotal    *prometheus.CounterVec
	cachedRecords prometheus.Gauge
	deleteTotal   *prometheus.CounterVec
	messagesTotal *prometheus.CounterVec
	sessionEvents *prometheus.CounterVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "office",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Office API calls by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "office",
			Subsystem: "api",
			Name:      "request_seconds",
			Help:      "Latency of office API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "office",
			Subsystem: "cache",
			Name:      "fetch_total",
			Help:      "Booking cache fetches by outcome",
		}, []string{"outcome"}),
		cachedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "office",
			Subsystem: "cache",
			Name:      "records",
			Help:      "Bookings currently held in the cache",
		}),
		deleteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "office",
			Subsystem: "bookings",
			Name:      "delete_total",
			Help:      "Batch deletions by outcome",
		}, []string{"outcome"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "office",
			Subsystem: "messaging",
			Name:      "send_total",
			Help:      "Text messages sent by outcome",
		}, []string{"outcome"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "office",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session transitions (login, restore, expire, logout)",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.apiRequests, m.apiLatency, m.fetchTotal, m.cachedRecords, m.deleteTotal, m.messagesTotal, m.sessionEvents)
	return m
}

// ObserveAPIRequest records one office API round trip. status 0 means the
// request never got a response.
func (m *PortalMetrics) ObserveAPIRequest(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(endpoint, label).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *PortalMetrics) ObserveFetch(outcome string, records int) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.cachedRecords.Set(float64(records))
	}
}

func (m *PortalMetrics) ObserveDelete(outcome string) {
	if m == nil {
		return
	}
	m.deleteTotal.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}
